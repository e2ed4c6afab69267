//go:build integration

package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/beachhead/internal/model"
	"github.com/freeeve/beachhead/internal/repository/postgres"
	redisrepo "github.com/freeeve/beachhead/internal/repository/redis"
	"github.com/freeeve/beachhead/internal/testutil"
	"github.com/freeeve/beachhead/pkg/combat"
)

// testEnv holds shared test infrastructure.
type testEnv struct {
	db     *sql.DB
	rdb    *goredis.Client
	repo   *postgres.BattleRepo
	states *redisrepo.Client
}

var env *testEnv

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	if env == nil {
		db := testutil.SetupDB(t)
		rdb := testutil.SetupRedis(t)
		env = &testEnv{
			db:     db,
			rdb:    rdb,
			repo:   postgres.NewBattleRepo(db),
			states: redisrepo.NewClientFromPool(rdb),
		}
	}
	testutil.CleanupDB(t, env.db)
	testutil.CleanupRedis(t, env.rdb)
	return env
}

func seedKarelia(t *testing.T, svc *BattleService, gameID string) {
	t.Helper()
	err := svc.LoadBoard(context.Background(), gameID,
		[]combat.Territory{
			{Name: "karelia", Owner: combat.Russia, Neighbors: []string{"finland"}},
			{Name: "finland", Owner: combat.Germany, Neighbors: []string{"karelia"}},
		},
		[]combat.UnitState{
			{ID: "inf-1", Type: "infantry", Owner: combat.Germany, Territory: "karelia"},
			{ID: "inf-2", Type: "infantry", Owner: combat.Germany, Territory: "karelia"},
			{ID: "art-1", Type: "artillery", Owner: combat.Germany, Territory: "karelia"},
			{ID: "rinf-1", Type: "infantry", Owner: combat.Russia, Territory: "karelia"},
			{ID: "rinf-2", Type: "infantry", Owner: combat.Russia, Territory: "karelia"},
			{ID: "aa-1", Type: "aagun", Owner: combat.Russia, Territory: "karelia"},
		})
	require.NoError(t, err)
}

func TestBattleLifecycle(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	svc := NewBattleService(e.repo, e.states, combat.StandardRuleset(), nil,
		func(string) combat.RandomSource { return combat.NewSeededSource(11) }, nil)
	seedKarelia(t, svc, "game-int")

	rec, _, err := svc.StartBattle(ctx, "game-int", StartBattleRequest{
		Site: "karelia", Attacker: "germany", Defender: "russia",
		Attacking: []string{"inf-1", "inf-2", "art-1"}, Defending: []string{"rinf-1", "rinf-2", "aa-1"},
		AttackingFrom: []string{"finland"},
	})
	require.NoError(t, err)

	outcomes, err := svc.ResolvePending(ctx, "game-int")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	out := outcomes[0]

	stored, err := e.repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BattleResolved, stored.Status)
	assert.Equal(t, string(out.Result), stored.Result)
	assert.Equal(t, out.Rounds, stored.Rounds)

	rounds, err := svc.Rounds(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, rounds, out.Rounds)
	for _, r := range rounds {
		for _, roll := range r.Rolls {
			hits := 0
			for _, d := range roll.Dice {
				if d.Type == combat.Hit {
					hits++
				}
			}
			assert.Equal(t, roll.Hits, hits, "normal dice hits match their dice")
		}
	}

	// The board only holds survivors.
	board := e.states.Board("game-int")
	left, err := board.Units(ctx, "karelia")
	require.NoError(t, err)
	onBoard := make(map[string]bool)
	for _, u := range left {
		onBoard[u.ID] = true
	}
	for _, id := range append(out.AttackerSurvivors, out.DefenderSurvivors...) {
		if id == "" {
			continue
		}
		if out.RetreatedTo == "" {
			assert.True(t, onBoard[id], "survivor %s missing from board", id)
		}
	}
}

func TestConcurrentRoundRequests(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	svc := NewBattleService(e.repo, e.states, combat.StandardRuleset(), nil,
		func(string) combat.RandomSource { return combat.NewSeededSource(3) }, nil)
	seedKarelia(t, svc, "game-conc")

	rec, _, err := svc.StartBattle(ctx, "game-conc", StartBattleRequest{
		Site: "karelia", Attacker: "germany", Defender: "russia",
		Attacking: []string{"inf-1", "inf-2", "art-1"}, Defending: []string{"rinf-1", "rinf-2", "aa-1"},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.FightRound(ctx, rec.ID)
		}()
	}
	wg.Wait()

	rounds, err := e.repo.ListRounds(ctx, rec.ID)
	require.NoError(t, err)
	for i, r := range rounds {
		assert.Equal(t, i+1, r.Round, "rounds are stored in sequence")
	}
}
