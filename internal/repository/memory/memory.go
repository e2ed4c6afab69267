// Package memory keeps game state in process, for the battle simulator and
// for servers started without Redis.
package memory

import (
	"context"
	"sync"

	"github.com/freeeve/beachhead/internal/repository"
	"github.com/freeeve/beachhead/pkg/combat"
)

// GameStates hands out one board and one registry per game.
type GameStates struct {
	mu         sync.Mutex
	boards     map[string]*Board
	registries map[string]*combat.MemoryRegistry
}

// NewGameStates creates an empty set of games.
func NewGameStates() *GameStates {
	return &GameStates{
		boards:     make(map[string]*Board),
		registries: make(map[string]*combat.MemoryRegistry),
	}
}

func (g *GameStates) Board(gameID string) repository.Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.boards[gameID]
	if !ok {
		b = &Board{MemoryStore: combat.NewMemoryStore()}
		g.boards[gameID] = b
	}
	return b
}

func (g *GameStates) Registry(gameID string) combat.Registry {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.registries[gameID]
	if !ok {
		r = combat.NewMemoryRegistry()
		g.registries[gameID] = r
	}
	return r
}

// Board adds bulk loading to the engine's in-memory store.
type Board struct {
	*combat.MemoryStore
}

func (b *Board) Load(_ context.Context, territories []combat.Territory, units []combat.UnitState) error {
	for _, t := range territories {
		b.PutTerritory(t)
	}
	for _, u := range units {
		b.PutUnit(u)
	}
	return nil
}
