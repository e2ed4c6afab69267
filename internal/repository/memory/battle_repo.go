package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/beachhead/internal/model"
)

// BattleRepo keeps battle history in process. It follows the Postgres
// repository's contract: missing rows come back as nil, nil and only a
// pending battle can be resolved.
type BattleRepo struct {
	mu      sync.Mutex
	battles map[string]*model.Battle
	rounds  map[string][]model.BattleRound
}

// NewBattleRepo creates an empty BattleRepo.
func NewBattleRepo() *BattleRepo {
	return &BattleRepo{
		battles: make(map[string]*model.Battle),
		rounds:  make(map[string][]model.BattleRound),
	}
}

func (r *BattleRepo) Create(_ context.Context, b *model.Battle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.battles[b.ID]; ok {
		return fmt.Errorf("create battle %s: already exists", b.ID)
	}
	b.Status = model.BattlePending
	b.CreatedAt = time.Now().UTC()
	cp := *b
	r.battles[b.ID] = &cp
	return nil
}

func (r *BattleRepo) FindByID(_ context.Context, id string) (*model.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *BattleRepo) ListByGame(_ context.Context, gameID, status string) ([]model.Battle, error) {
	return r.list(func(b *model.Battle) bool {
		return b.GameID == gameID && (status == "" || b.Status == status)
	}), nil
}

func (r *BattleRepo) ListPending(_ context.Context) ([]model.Battle, error) {
	return r.list(func(b *model.Battle) bool { return b.Status == model.BattlePending }), nil
}

// list returns matching battles oldest first.
func (r *BattleRepo) list(match func(*model.Battle) bool) []model.Battle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Battle
	for _, b := range r.battles {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *BattleRepo) SaveRound(_ context.Context, rnd *model.BattleRound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[rnd.BattleID]
	if !ok {
		return fmt.Errorf("save round: battle %s not found", rnd.BattleID)
	}
	for _, existing := range r.rounds[rnd.BattleID] {
		if existing.Round == rnd.Round {
			return fmt.Errorf("save round: battle %s round %d already stored", rnd.BattleID, rnd.Round)
		}
	}
	rnd.CreatedAt = time.Now().UTC()
	r.rounds[rnd.BattleID] = append(r.rounds[rnd.BattleID], *rnd)
	b.Rounds = rnd.Round
	return nil
}

func (r *BattleRepo) ListRounds(_ context.Context, battleID string) ([]model.BattleRound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.BattleRound, len(r.rounds[battleID]))
	copy(out, r.rounds[battleID])
	return out, nil
}

func (r *BattleRepo) Resolve(_ context.Context, battleID, result, winner string, rounds int, outcome json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[battleID]
	if !ok || b.Status != model.BattlePending {
		return fmt.Errorf("resolve battle %s: not pending", battleID)
	}
	now := time.Now().UTC()
	b.Status = model.BattleResolved
	b.Result, b.Winner, b.Rounds, b.Outcome = result, winner, rounds, outcome
	b.ResolvedAt = &now
	return nil
}

func (r *BattleRepo) Abort(_ context.Context, battleID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[battleID]
	if !ok {
		return fmt.Errorf("abort battle %s: not found", battleID)
	}
	now := time.Now().UTC()
	b.Status = model.BattleAborted
	b.Error = reason
	b.ResolvedAt = &now
	return nil
}
