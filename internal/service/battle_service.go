package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"

	"github.com/freeeve/beachhead/internal/logger"
	"github.com/freeeve/beachhead/internal/model"
	"github.com/freeeve/beachhead/internal/repository"
	"github.com/freeeve/beachhead/internal/telemetry"
	"github.com/freeeve/beachhead/pkg/combat"
)

var (
	ErrBattleNotFound  = errors.New("battle not found")
	ErrBattleFinished  = errors.New("battle is not pending")
	ErrBlocked         = errors.New("battle is waiting on other battles")
	ErrDependencyCycle = errors.New("pending battles depend on each other")
)

// ValidationError is a bad start request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// DecisionProvider hands out the decision source for a game's players.
type DecisionProvider interface {
	ForGame(gameID string) combat.DecisionSource
}

// DefaultDecisionProvider answers every question with the default choice.
type DefaultDecisionProvider struct{}

func (DefaultDecisionProvider) ForGame(string) combat.DecisionSource { return combat.DefaultDecisions{} }

// RandomFactory returns the dice source for a battle.
type RandomFactory func(battleID string) combat.RandomSource

// TimeSeeded gives each battle its own seeded source.
func TimeSeeded(string) combat.RandomSource {
	return combat.NewSeededSource(uint64(time.Now().UnixNano()))
}

// StartBattleRequest opens a battle. Units are referenced by ID and must be
// on the board: combatants at the site, bombarding ships next to it.
type StartBattleRequest struct {
	Site          string   `json:"site"`
	Kind          string   `json:"kind"`
	Attacker      string   `json:"attacker"`
	Defender      string   `json:"defender"`
	Attacking     []string `json:"attacking"`
	Defending     []string `json:"defending"`
	Bombarding    []string `json:"bombarding,omitempty"`
	AttackingFrom []string `json:"attacking_from,omitempty"`
	Amphibious    bool     `json:"amphibious,omitempty"`
	DependsOn     []string `json:"depends_on,omitempty"`
}

// RoundHistory is a stored round with its dice decoded.
type RoundHistory struct {
	Round      int               `json:"round"`
	Steps      json.RawMessage   `json:"steps"`
	Casualties json.RawMessage   `json:"casualties,omitempty"`
	Changes    json.RawMessage   `json:"changes"`
	Rolls      []combat.DiceRoll `json:"rolls"`
	CreatedAt  time.Time         `json:"created_at"`
}

type liveBattle struct {
	gameID string
	battle *combat.Battle
	random combat.RandomSource
	// unsaved is a round already committed to the board whose history
	// write failed. It is stored before anything else happens.
	unsaved *combat.RoundResult
}

// BattleService opens battles, fights their rounds and commits each
// round's changes to the game board.
type BattleService struct {
	repo        repository.BattleRepository
	states      repository.GameStates
	ruleset     *combat.Ruleset
	decisions   DecisionProvider
	random      RandomFactory
	broadcaster Broadcaster

	// battleLocks serialises rounds of one battle; HTTP requests and a
	// resolve-all run can race for the same battle.
	battleLocks sync.Map
	// gameLocks serialises resolve-all runs per game.
	gameLocks sync.Map
	live      sync.Map // battle ID -> *liveBattle
}

// NewBattleService creates a BattleService. Nil collaborators fall back to
// default decisions, time-seeded dice and no broadcasting.
func NewBattleService(
	repo repository.BattleRepository,
	states repository.GameStates,
	ruleset *combat.Ruleset,
	decisions DecisionProvider,
	random RandomFactory,
	broadcaster Broadcaster,
) *BattleService {
	if decisions == nil {
		decisions = DefaultDecisionProvider{}
	}
	if random == nil {
		random = TimeSeeded
	}
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &BattleService{
		repo:        repo,
		states:      states,
		ruleset:     ruleset,
		decisions:   decisions,
		random:      random,
		broadcaster: broadcaster,
	}
}

func (s *BattleService) battleLock(battleID string) *sync.Mutex {
	v, _ := s.battleLocks.LoadOrStore(battleID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *BattleService) gameLock(gameID string) *sync.Mutex {
	v, _ := s.gameLocks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// LoadBoard seeds or updates a game's territories and units.
func (s *BattleService) LoadBoard(ctx context.Context, gameID string, territories []combat.Territory, units []combat.UnitState) error {
	for _, u := range units {
		if _, err := s.ruleset.UnitType(u.Type); err != nil {
			return invalid("unit %s: %v", u.ID, err)
		}
	}
	if err := s.states.Board(gameID).Load(ctx, territories, units); err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	return nil
}

// StartBattle records a new pending battle and returns it with its first
// round's steps.
func (s *BattleService) StartBattle(ctx context.Context, gameID string, req StartBattleRequest) (*model.Battle, []combat.Step, error) {
	kind, err := parseKind(req.Kind)
	if err != nil {
		return nil, nil, err
	}
	if req.Site == "" || req.Attacker == "" || req.Defender == "" {
		return nil, nil, invalid("site, attacker and defender are required")
	}
	if len(req.Attacking) == 0 {
		return nil, nil, invalid("at least one attacking unit is required")
	}

	rec := &model.Battle{
		ID:       uuid.NewString(),
		GameID:   gameID,
		Site:     req.Site,
		Kind:     kind.String(),
		Attacker: req.Attacker,
		Defender: req.Defender,
		Setup: model.BattleSetup{
			Attacking:     req.Attacking,
			Defending:     req.Defending,
			Bombarding:    req.Bombarding,
			AttackingFrom: req.AttackingFrom,
			Amphibious:    req.Amphibious,
			DependsOn:     req.DependsOn,
		},
	}
	b, err := s.build(ctx, rec, true)
	if err != nil {
		return nil, nil, err
	}
	reg := s.states.Registry(gameID)
	env, err := s.env(ctx, gameID, rec.ID, nil)
	if err != nil {
		return nil, nil, err
	}
	steps, err := b.PlanNext(ctx, env)
	if err != nil {
		return nil, nil, fmt.Errorf("plan first round: %w", err)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, nil, err
	}
	if err := reg.Register(ctx, rec.ID, rec.Site); err != nil {
		return nil, nil, err
	}
	for _, dep := range req.DependsOn {
		if err := reg.AddDependency(ctx, rec.ID, dep); err != nil {
			return nil, nil, err
		}
	}
	s.live.Store(rec.ID, &liveBattle{gameID: gameID, battle: b, random: s.random(rec.ID)})

	s.broadcaster.BroadcastGameEvent(gameID, EventBattleSteps, map[string]any{
		"battle_id": rec.ID,
		"round":     1,
		"steps":     steps,
	})
	log.Info().Str("gameId", gameID).Str("battleId", rec.ID).Str("site", rec.Site).
		Str("kind", rec.Kind).Int("attackers", len(req.Attacking)).Int("defenders", len(req.Defending)).
		Msg("Battle started")
	return rec, steps, nil
}

func parseKind(kind string) (combat.BattleKind, error) {
	switch kind {
	case "", combat.NormalBattle.String():
		return combat.NormalBattle, nil
	case combat.BombingRaid.String():
		return combat.BombingRaid, nil
	}
	return 0, invalid("unknown battle kind %q", kind)
}

// build assembles an engine battle from a record and the board. On start
// every listed unit must exist; when rebuilding, missing units are the
// ones that already died.
func (s *BattleService) build(ctx context.Context, rec *model.Battle, strict bool) (*combat.Battle, error) {
	board := s.states.Board(rec.GameID)
	site, err := board.Territory(ctx, rec.Site)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, invalid("unknown territory %s", rec.Site)
	}

	pool := make(map[string]combat.UnitState)
	for _, name := range append([]string{site.Name}, site.Neighbors...) {
		units, err := board.Units(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, u := range units {
			pool[u.ID] = u
		}
	}
	pick := func(ids []string, atSite bool) ([]*combat.Unit, error) {
		var out []*combat.Unit
		for _, id := range ids {
			st, ok := pool[id]
			if !ok || (atSite && st.Territory != site.Name) {
				if strict {
					return nil, invalid("unit %s is not at %s", id, rec.Site)
				}
				continue
			}
			u, err := s.ruleset.NewUnit(st)
			if err != nil {
				return nil, invalid("unit %s: %v", id, err)
			}
			out = append(out, u)
		}
		return out, nil
	}

	attacking, err := pick(rec.Setup.Attacking, true)
	if err != nil {
		return nil, err
	}
	defending, err := pick(rec.Setup.Defending, true)
	if err != nil {
		return nil, err
	}
	bombarding, err := pick(rec.Setup.Bombarding, false)
	if err != nil {
		return nil, err
	}
	kind, err := parseKind(rec.Kind)
	if err != nil {
		return nil, err
	}

	b, err := combat.NewBattle(combat.Config{
		ID:            rec.ID,
		Kind:          kind,
		Site:          *site,
		Attacker:      combat.Player(rec.Attacker),
		Defender:      combat.Player(rec.Defender),
		Attacking:     attacking,
		Defending:     defending,
		Bombarding:    bombarding,
		AttackingFrom: rec.Setup.AttackingFrom,
		Amphibious:    rec.Setup.Amphibious,
		Ruleset:       s.ruleset,
	})
	if err != nil {
		return nil, fmt.Errorf("open battle: %w", err)
	}
	b.Round = rec.Rounds
	return b, nil
}

// load returns the in-memory battle, rebuilding it from its record after a
// restart or a failed commit.
func (s *BattleService) load(ctx context.Context, battleID string) (*liveBattle, error) {
	if v, ok := s.live.Load(battleID); ok {
		return v.(*liveBattle), nil
	}
	rec, err := s.repo.FindByID(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrBattleNotFound
	}
	if rec.Status != model.BattlePending {
		return nil, ErrBattleFinished
	}
	b, err := s.build(ctx, rec, false)
	if err != nil {
		if combat.IsDefect(err) {
			s.abort(ctx, rec.GameID, battleID, err)
		}
		return nil, err
	}
	lb := &liveBattle{gameID: rec.GameID, battle: b, random: s.random(battleID)}
	s.live.Store(battleID, lb)
	log.Info().Str("gameId", rec.GameID).Str("battleId", battleID).Int("round", rec.Rounds).Msg("Battle rebuilt from store")
	return lb, nil
}

// Battle returns a battle record.
func (s *BattleService) Battle(ctx context.Context, battleID string) (*model.Battle, error) {
	rec, err := s.repo.FindByID(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrBattleNotFound
	}
	return rec, nil
}

// ListPending returns a game's unresolved battles.
func (s *BattleService) ListPending(ctx context.Context, gameID string) ([]model.Battle, error) {
	return s.repo.ListByGame(ctx, gameID, model.BattlePending)
}

// Steps returns the current step list of a pending battle.
func (s *BattleService) Steps(ctx context.Context, battleID string) ([]combat.Step, error) {
	lock := s.battleLock(battleID)
	lock.Lock()
	defer lock.Unlock()

	lb, err := s.load(ctx, battleID)
	if err != nil {
		return nil, err
	}
	env, err := s.env(ctx, lb.gameID, battleID, nil)
	if err != nil {
		return nil, err
	}
	return lb.battle.PlanNext(ctx, env)
}

// env assembles the engine's collaborators for a battle: the game board as
// terrain and the sites of the game's other pending battles.
func (s *BattleService) env(ctx context.Context, gameID, battleID string, random combat.RandomSource) (combat.Env, error) {
	contested, err := s.contested(ctx, s.states.Registry(gameID), battleID)
	if err != nil {
		return combat.Env{}, err
	}
	return combat.Env{
		Random:    random,
		Decisions: s.decisions.ForGame(gameID),
		Terrain:   s.states.Board(gameID),
		Contested: contested,
	}, nil
}

// Rounds returns a battle's stored rounds.
func (s *BattleService) Rounds(ctx context.Context, battleID string) ([]RoundHistory, error) {
	if _, err := s.Battle(ctx, battleID); err != nil {
		return nil, err
	}
	rounds, err := s.repo.ListRounds(ctx, battleID)
	if err != nil {
		return nil, err
	}
	out := make([]RoundHistory, 0, len(rounds))
	for _, r := range rounds {
		h := RoundHistory{
			Round:      r.Round,
			Steps:      r.Steps,
			Casualties: r.Casualties,
			Changes:    r.Changes,
			CreatedAt:  r.CreatedAt,
		}
		for _, d := range r.Rolls {
			packed := make([]uint32, len(d.Dice))
			for i, v := range d.Dice {
				packed[i] = uint32(v)
			}
			h.Rolls = append(h.Rolls, combat.DecompressDiceRoll(combat.Player(d.Player), d.Annotation, packed, d.Hits))
		}
		out = append(out, h)
	}
	return out, nil
}

// FightRound fights one round of a battle and commits its changes.
func (s *BattleService) FightRound(ctx context.Context, battleID string) (*combat.RoundResult, error) {
	lock := s.battleLock(battleID)
	lock.Lock()
	defer lock.Unlock()
	return s.fightRound(ctx, battleID)
}

// Resolve fights a battle until it ends.
func (s *BattleService) Resolve(ctx context.Context, battleID string) (*combat.Outcome, error) {
	lock := s.battleLock(battleID)
	lock.Lock()
	defer lock.Unlock()

	for {
		res, err := s.fightRound(ctx, battleID)
		if err != nil {
			return nil, err
		}
		if res.Outcome != nil {
			return res.Outcome, nil
		}
	}
}

func (s *BattleService) fightRound(ctx context.Context, battleID string) (*combat.RoundResult, error) {
	lb, err := s.load(ctx, battleID)
	if err != nil {
		return nil, err
	}
	gameID, b := lb.gameID, lb.battle
	reg := s.states.Registry(gameID)

	if lb.unsaved != nil {
		prev := lb.unsaved
		if err := s.saveRound(ctx, prev); err != nil {
			return nil, err
		}
		lb.unsaved = nil
		if prev.Outcome != nil {
			if err := s.finish(ctx, gameID, prev.Outcome); err != nil {
				return nil, err
			}
			return prev, nil
		}
	}

	deps, err := reg.Dependencies(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if len(deps) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, strings.Join(deps, ", "))
	}
	env, err := s.env(ctx, gameID, battleID, lb.random)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartRound(ctx, gameID, battleID, b.Round+1)
	defer span.End()
	blog := logger.ForBattle(ctx, battleID)

	board := s.states.Board(gameID)
	res, err := b.FightRound(ctx, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "round failed")
		if combat.IsDefect(err) {
			s.abort(ctx, gameID, battleID, err)
		}
		return nil, fmt.Errorf("fight round: %w", err)
	}

	if err := board.Apply(ctx, res.Changes); err != nil {
		// The engine has moved on but the board has not; drop the battle so
		// the next request rebuilds it from the stored state.
		s.live.Delete(battleID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		if combat.IsDefect(err) {
			s.abort(ctx, gameID, battleID, err)
		}
		return nil, fmt.Errorf("commit round: %w", err)
	}

	if err := s.saveRound(ctx, res); err != nil {
		// The board already holds this round, so the engine stays in step
		// with it; the history write is retried before the next round.
		lb.unsaved = res
		span.RecordError(err)
		return nil, err
	}

	for _, roll := range res.Rolls {
		s.broadcaster.BroadcastGameEvent(gameID, EventDiceRolled, map[string]any{
			"battle_id": battleID,
			"round":     res.Round,
			"roll":      roll,
		})
	}
	blog.Info().Str("gameId", gameID).Int("round", res.Round).Int("rolls", len(res.Rolls)).
		Int("changes", len(res.Changes)).Msg("Round fought")

	if res.Outcome != nil {
		if err := s.finish(ctx, gameID, res.Outcome); err != nil {
			return nil, err
		}
		return res, nil
	}

	s.broadcaster.BroadcastGameEvent(gameID, EventBattleSteps, map[string]any{
		"battle_id": battleID,
		"round":     res.Round + 1,
		"steps":     b.Steps(),
	})
	return res, nil
}

// contested returns the sites of the game's other pending battles.
func (s *BattleService) contested(ctx context.Context, reg combat.Registry, battleID string) (map[string]bool, error) {
	pending, err := reg.Pending(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, p := range pending {
		if p.ID != battleID {
			out[p.Site] = true
		}
	}
	return out, nil
}

func (s *BattleService) saveRound(ctx context.Context, res *combat.RoundResult) error {
	steps, err := json.Marshal(res.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	changes, err := json.Marshal(res.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	var casualties json.RawMessage
	if len(res.Casualties) > 0 {
		if casualties, err = json.Marshal(res.Casualties); err != nil {
			return fmt.Errorf("marshal casualties: %w", err)
		}
	}
	rnd := &model.BattleRound{
		BattleID:   res.BattleID,
		Round:      res.Round,
		Steps:      steps,
		Casualties: casualties,
		Changes:    changes,
	}
	for i, roll := range res.Rolls {
		packed := roll.Compressed()
		dice := make([]int64, len(packed))
		for j, v := range packed {
			dice[j] = int64(v)
		}
		rnd.Rolls = append(rnd.Rolls, model.DiceRecord{
			Seq:        i,
			Player:     string(roll.Player),
			Annotation: roll.Annotation,
			Hits:       roll.Hits,
			Dice:       dice,
		})
	}
	if err := s.repo.SaveRound(ctx, rnd); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

func (s *BattleService) finish(ctx context.Context, gameID string, out *combat.Outcome) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := s.repo.Resolve(ctx, out.BattleID, string(out.Result), string(out.Winner), out.Rounds, data); err != nil {
		return err
	}
	if err := s.states.Registry(gameID).Deregister(ctx, out.BattleID); err != nil {
		return err
	}
	s.live.Delete(out.BattleID)

	s.broadcaster.BroadcastGameEvent(gameID, EventBattleResolved, out)
	log.Info().Str("gameId", gameID).Str("battleId", out.BattleID).Str("result", string(out.Result)).
		Str("winner", string(out.Winner)).Int("rounds", out.Rounds).Msg("Battle resolved")
	return nil
}

// abort retires a battle after a protocol defect. Failures here are logged;
// the defect itself is what the caller reports.
func (s *BattleService) abort(ctx context.Context, gameID, battleID string, cause error) {
	s.live.Delete(battleID)
	if err := s.repo.Abort(ctx, battleID, cause.Error()); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("Failed to mark battle aborted")
	}
	if err := s.states.Registry(gameID).Deregister(ctx, battleID); err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("Failed to deregister aborted battle")
	}
	s.broadcaster.BroadcastGameEvent(gameID, EventBattleAborted, map[string]any{
		"battle_id": battleID,
		"error":     cause.Error(),
	})
	log.Error().Err(cause).Str("gameId", gameID).Str("battleId", battleID).Msg("Battle aborted")
}

// ResolvePending fights every pending battle of a game to the end, each
// only after the battles it depends on.
func (s *BattleService) ResolvePending(ctx context.Context, gameID string) ([]combat.Outcome, error) {
	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	reg := s.states.Registry(gameID)
	var outcomes []combat.Outcome
	for {
		pending, err := reg.Pending(ctx)
		if err != nil {
			return outcomes, err
		}
		if len(pending) == 0 {
			return outcomes, nil
		}
		next := ""
		for _, p := range pending {
			deps, err := reg.Dependencies(ctx, p.ID)
			if err != nil {
				return outcomes, err
			}
			if len(deps) == 0 {
				next = p.ID
				break
			}
		}
		if next == "" {
			return outcomes, fmt.Errorf("%w: %d battles left", ErrDependencyCycle, len(pending))
		}
		out, err := s.Resolve(ctx, next)
		if err != nil {
			return outcomes, fmt.Errorf("resolve battle %s: %w", next, err)
		}
		outcomes = append(outcomes, *out)
	}
}

// RecoverPending re-registers unresolved battles after a restart. Engine
// state is rebuilt lazily on the next request for each battle.
func (s *BattleService) RecoverPending(ctx context.Context) error {
	battles, err := s.repo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending battles: %w", err)
	}
	if len(battles) == 0 {
		log.Info().Msg("No pending battles to recover")
		return nil
	}
	for _, b := range battles {
		reg := s.states.Registry(b.GameID)
		if err := reg.Register(ctx, b.ID, b.Site); err != nil {
			return fmt.Errorf("register battle %s: %w", b.ID, err)
		}
	}
	// Dependencies go in after every battle is registered.
	for _, b := range battles {
		reg := s.states.Registry(b.GameID)
		for _, dep := range b.Setup.DependsOn {
			if err := reg.AddDependency(ctx, b.ID, dep); err != nil {
				return fmt.Errorf("restore dependency of %s: %w", b.ID, err)
			}
		}
	}
	log.Info().Int("count", len(battles)).Msg("Recovered pending battles")
	return nil
}
