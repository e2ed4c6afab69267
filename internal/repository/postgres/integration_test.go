//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/beachhead/internal/model"
	"github.com/freeeve/beachhead/internal/testutil"
	"github.com/freeeve/beachhead/pkg/combat"
)

var testDB *sql.DB

func setup(t *testing.T) *BattleRepo {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
	return NewBattleRepo(testDB)
}

func createTestBattle(t *testing.T, repo *BattleRepo, id string) *model.Battle {
	t.Helper()
	b := &model.Battle{
		ID: id, GameID: "game-1", Site: "karelia", Kind: "normal",
		Attacker: "germany", Defender: "russia",
		Setup: model.BattleSetup{Attacking: []string{"arm-1"}, Defending: []string{"inf-1"}, AttackingFrom: []string{"finland"}},
	}
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestBattleCreateAndFind(t *testing.T) {
	repo := setup(t)
	created := createTestBattle(t, repo, "b1")
	assert.Equal(t, model.BattlePending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"finland"}, got.Setup.AttackingFrom)
	assert.Nil(t, got.ResolvedAt)
}

func TestBattleFindMissing(t *testing.T) {
	repo := setup(t)
	got, err := repo.FindByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBattleRoundDiceRoundTrip(t *testing.T) {
	repo := setup(t)
	createTestBattle(t, repo, "b1")

	dice := []combat.Die{combat.NewDie(0, 3), combat.NewDie(5, 3), {Rolled: 2, HitAt: 4, Type: combat.Ignored}}
	var packed []int64
	for _, d := range dice {
		packed = append(packed, int64(d.Compress()))
	}
	rnd := &model.BattleRound{
		BattleID: "b1", Round: 1,
		Steps:   json.RawMessage(`[{"kind":"fire","name":"germany fire"}]`),
		Changes: json.RawMessage(`[]`),
		Rolls:   []model.DiceRecord{{Seq: 0, Player: "germany", Annotation: "germany fire", Hits: 1, Dice: packed}},
	}
	require.NoError(t, repo.SaveRound(context.Background(), rnd))

	rounds, err := repo.ListRounds(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Len(t, rounds[0].Rolls, 1)
	for i, v := range rounds[0].Rolls[0].Dice {
		assert.Equal(t, dice[i], combat.DecompressDie(uint32(v)))
	}

	b, _ := repo.FindByID(context.Background(), "b1")
	assert.Equal(t, 1, b.Rounds)
}

func TestBattleResolveOnlyOnce(t *testing.T) {
	repo := setup(t)
	createTestBattle(t, repo, "b1")
	ctx := context.Background()

	require.NoError(t, repo.Resolve(ctx, "b1", "attacker_won", "germany", 2, json.RawMessage(`{"result":"attacker_won"}`)))
	assert.Error(t, repo.Resolve(ctx, "b1", "attacker_won", "germany", 2, json.RawMessage(`{}`)))

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	resolved, err := repo.ListByGame(ctx, "game-1", model.BattleResolved)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "germany", resolved[0].Winner)
	assert.NotNil(t, resolved[0].ResolvedAt)
}

func TestBattleAbort(t *testing.T) {
	repo := setup(t)
	createTestBattle(t, repo, "b1")
	createTestBattle(t, repo, "b2")
	ctx := context.Background()

	require.NoError(t, repo.Abort(ctx, "b1", "protocol defect: random draw count mismatch"))
	all, err := repo.ListByGame(ctx, "game-1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.BattleAborted, all[0].Status)
	assert.Contains(t, all[0].Error, "draw count")
}
