package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/beachhead/pkg/combat"
)

func battlesKey(gameID string) string   { return "game:" + gameID + ":battles" }
func battleSeqKey(gameID string) string { return "game:" + gameID + ":battles:seq" }
func battleSiteKey(gameID, battleID string) string {
	return "game:" + gameID + ":battle:" + battleID + ":site"
}
func battleDepsKey(gameID, battleID string) string {
	return "game:" + gameID + ":battle:" + battleID + ":deps"
}

// Registry returns the pending-battle registry of one game.
func (c *Client) Registry(gameID string) combat.Registry {
	return &Registry{rdb: c.rdb, gameID: gameID}
}

// Registry keeps pending battles in a sorted set scored by registration
// order, with each battle's blockers in a set of its own.
type Registry struct {
	rdb    *redis.Client
	gameID string
}

func (r *Registry) Register(ctx context.Context, battleID, site string) error {
	score, err := r.rdb.ZScore(ctx, battlesKey(r.gameID), battleID).Result()
	if err == redis.Nil {
		seq, err := r.rdb.Incr(ctx, battleSeqKey(r.gameID)).Result()
		if err != nil {
			return fmt.Errorf("register battle: %w", err)
		}
		score = float64(seq)
	} else if err != nil {
		return fmt.Errorf("register battle: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, battlesKey(r.gameID), redis.Z{Score: score, Member: battleID})
		pipe.Set(ctx, battleSiteKey(r.gameID, battleID), site, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register battle: %w", err)
	}
	return nil
}

func (r *Registry) AddDependency(ctx context.Context, battleID, blockingID string) error {
	exists, err := r.rdb.Exists(ctx, battleSiteKey(r.gameID, battleID)).Result()
	if err != nil {
		return fmt.Errorf("add dependency: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("battle %s is not registered", battleID)
	}
	return r.rdb.SAdd(ctx, battleDepsKey(r.gameID, battleID), blockingID).Err()
}

// Dependencies returns the still-pending battles that block battleID.
func (r *Registry) Dependencies(ctx context.Context, battleID string) ([]string, error) {
	deps, err := r.rdb.SMembers(ctx, battleDepsKey(r.gameID, battleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	var out []string
	for _, d := range deps {
		if _, err := r.rdb.ZScore(ctx, battlesKey(r.gameID), d).Result(); err == nil {
			out = append(out, d)
		} else if err != redis.Nil {
			return nil, fmt.Errorf("dependencies: %w", err)
		}
	}
	return out, nil
}

func (r *Registry) Deregister(ctx context.Context, battleID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, battlesKey(r.gameID), battleID)
		pipe.Del(ctx, battleSiteKey(r.gameID, battleID), battleDepsKey(r.gameID, battleID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("deregister battle: %w", err)
	}
	return nil
}

// Pending returns registered battles in registration order.
func (r *Registry) Pending(ctx context.Context) ([]combat.PendingBattle, error) {
	ids, err := r.rdb.ZRange(ctx, battlesKey(r.gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("pending battles: %w", err)
	}
	out := make([]combat.PendingBattle, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = battleSiteKey(r.gameID, id)
	}
	sites, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("pending battle sites: %w", err)
	}
	for i, id := range ids {
		site, _ := sites[i].(string)
		out = append(out, combat.PendingBattle{ID: id, Site: site})
	}
	return out, nil
}
