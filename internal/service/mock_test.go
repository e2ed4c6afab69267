package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/freeeve/beachhead/internal/model"
)

type mockBattleRepo struct {
	mu      sync.Mutex
	battles map[string]*model.Battle
	order   []string
	rounds  map[string][]model.BattleRound
	saveErr error
}

func newMockBattleRepo() *mockBattleRepo {
	return &mockBattleRepo{
		battles: make(map[string]*model.Battle),
		rounds:  make(map[string][]model.BattleRound),
	}
}

func (m *mockBattleRepo) Create(_ context.Context, b *model.Battle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.battles[b.ID]; ok {
		return fmt.Errorf("battle %s exists", b.ID)
	}
	b.Status = model.BattlePending
	b.CreatedAt = time.Now()
	cp := *b
	m.battles[b.ID] = &cp
	m.order = append(m.order, b.ID)
	return nil
}

func (m *mockBattleRepo) FindByID(_ context.Context, id string) (*model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBattleRepo) ListByGame(_ context.Context, gameID, status string) ([]model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Battle
	for _, id := range m.order {
		b := m.battles[id]
		if b.GameID == gameID && (status == "" || b.Status == status) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBattleRepo) ListPending(_ context.Context) ([]model.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Battle
	for _, id := range m.order {
		if b := m.battles[id]; b.Status == model.BattlePending {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBattleRepo) SaveRound(_ context.Context, r *model.BattleRound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	b, ok := m.battles[r.BattleID]
	if !ok {
		return fmt.Errorf("battle %s not found", r.BattleID)
	}
	for _, existing := range m.rounds[r.BattleID] {
		if existing.Round == r.Round {
			return fmt.Errorf("battle %s round %d already stored", r.BattleID, r.Round)
		}
	}
	r.CreatedAt = time.Now()
	m.rounds[r.BattleID] = append(m.rounds[r.BattleID], *r)
	b.Rounds = r.Round
	return nil
}

func (m *mockBattleRepo) ListRounds(_ context.Context, battleID string) ([]model.BattleRound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.BattleRound(nil), m.rounds[battleID]...), nil
}

func (m *mockBattleRepo) Resolve(_ context.Context, battleID, result, winner string, rounds int, outcome json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[battleID]
	if !ok || b.Status != model.BattlePending {
		return fmt.Errorf("resolve battle %s: not pending", battleID)
	}
	now := time.Now()
	b.Status, b.Result, b.Winner, b.Rounds, b.Outcome, b.ResolvedAt = model.BattleResolved, result, winner, rounds, outcome, &now
	return nil
}

func (m *mockBattleRepo) Abort(_ context.Context, battleID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[battleID]
	if !ok {
		return fmt.Errorf("battle %s not found", battleID)
	}
	b.Status, b.Error = model.BattleAborted, reason
	return nil
}

type event struct {
	gameID string
	kind   string
	data   any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (m *mockBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event{gameID: gameID, kind: eventType, data: data})
}

func (m *mockBroadcaster) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}
