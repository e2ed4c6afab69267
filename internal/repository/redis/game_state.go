package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/beachhead/internal/repository"
	"github.com/freeeve/beachhead/pkg/combat"
)

// Key patterns for Redis game state.
func territoriesKey(gameID string) string { return "game:" + gameID + ":territories" }
func unitsKey(gameID string) string       { return "game:" + gameID + ":units" }

// maxApplyAttempts bounds optimistic-lock retries when two rounds commit at once.
const maxApplyAttempts = 5

// Board returns the shared state of one game.
func (c *Client) Board(gameID string) repository.Board {
	return &Board{rdb: c.rdb, gameID: gameID}
}

// Board stores territories and units as JSON values in two hashes.
type Board struct {
	rdb    *redis.Client
	gameID string
}

// Territory returns a territory, or nil if the game has no such territory.
func (b *Board) Territory(ctx context.Context, name string) (*combat.Territory, error) {
	data, err := b.rdb.HGet(ctx, territoriesKey(b.gameID), name).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get territory: %w", err)
	}
	var t combat.Territory
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode territory %s: %w", name, err)
	}
	return &t, nil
}

// Units returns the units located in a territory, ordered by ID.
func (b *Board) Units(ctx context.Context, territory string) ([]combat.UnitState, error) {
	all, err := b.rdb.HGetAll(ctx, unitsKey(b.gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	var out []combat.UnitState
	for id, raw := range all {
		var u combat.UnitState
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("decode unit %s: %w", id, err)
		}
		if u.Territory == territory {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load writes territories and units, replacing any with the same key.
func (b *Board) Load(ctx context.Context, territories []combat.Territory, units []combat.UnitState) error {
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range territories {
			data, err := json.Marshal(t)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, territoriesKey(b.gameID), t.Name, data)
		}
		for _, u := range units {
			data, err := json.Marshal(u)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, unitsKey(b.gameID), u.ID, data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	return nil
}

// Apply commits a change set atomically. Both hashes are watched, the
// changes are applied to a snapshot, and only the touched entries are
// written back in a MULTI block. A concurrent writer forces a retry.
func (b *Board) Apply(ctx context.Context, cs combat.ChangeSet) error {
	if len(cs) == 0 {
		return nil
	}
	tk, uk := territoriesKey(b.gameID), unitsKey(b.gameID)

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		err := b.rdb.Watch(ctx, func(tx *redis.Tx) error {
			territories, err := decodeHash[combat.Territory](ctx, tx, tk)
			if err != nil {
				return err
			}
			units, err := decodeHash[combat.UnitState](ctx, tx, uk)
			if err != nil {
				return err
			}
			if err := combat.ApplyChanges(territories, units, cs); err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, name := range cs.Territories() {
					if t, ok := territories[name]; ok {
						data, err := json.Marshal(t)
						if err != nil {
							return err
						}
						pipe.HSet(ctx, tk, name, data)
					}
				}
				for _, id := range cs.Units() {
					u, ok := units[id]
					if !ok {
						pipe.HDel(ctx, uk, id)
						continue
					}
					data, err := json.Marshal(u)
					if err != nil {
						return err
					}
					pipe.HSet(ctx, uk, id, data)
				}
				return nil
			})
			return err
		}, tk, uk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("apply changes: %w", err)
		}
		return nil
	}
	return fmt.Errorf("apply changes: gave up after %d conflicting writes", maxApplyAttempts)
}

func decodeHash[T any](ctx context.Context, tx *redis.Tx, key string) (map[string]*T, error) {
	raw, err := tx.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out := make(map[string]*T, len(raw))
	for k, v := range raw {
		var item T
		if err := json.Unmarshal([]byte(v), &item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", key, k, err)
		}
		out[k] = &item
	}
	return out, nil
}

// DeleteGameData removes all Redis data for a game.
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	pending, err := c.Registry(gameID).Pending(ctx)
	if err != nil {
		return err
	}
	keys := []string{territoriesKey(gameID), unitsKey(gameID), battlesKey(gameID), battleSeqKey(gameID)}
	for _, p := range pending {
		keys = append(keys, battleSiteKey(gameID, p.ID), battleDepsKey(gameID, p.ID))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
