package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/beachhead/internal/model"
	"github.com/freeeve/beachhead/pkg/combat"
)

// BattleRepository defines battle history data operations.
type BattleRepository interface {
	Create(ctx context.Context, b *model.Battle) error
	FindByID(ctx context.Context, id string) (*model.Battle, error)
	ListByGame(ctx context.Context, gameID, status string) ([]model.Battle, error)
	ListPending(ctx context.Context) ([]model.Battle, error)
	SaveRound(ctx context.Context, r *model.BattleRound) error
	ListRounds(ctx context.Context, battleID string) ([]model.BattleRound, error)
	Resolve(ctx context.Context, battleID, result, winner string, rounds int, outcome json.RawMessage) error
	Abort(ctx context.Context, battleID, reason string) error
}

// Board is one game's shared state: the territories and units battles read
// and commit to.
type Board interface {
	combat.StateStore
	// Load replaces or adds the given territories and units.
	Load(ctx context.Context, territories []combat.Territory, units []combat.UnitState) error
}

// GameStates hands out the live state of each game (Redis or in-memory).
type GameStates interface {
	Board(gameID string) Board
	Registry(gameID string) combat.Registry
}
