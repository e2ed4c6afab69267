package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/beachhead/internal/model"
)

// BattleRepo handles battle history database operations.
type BattleRepo struct {
	db *sql.DB
}

// NewBattleRepo creates a BattleRepo.
func NewBattleRepo(db *sql.DB) *BattleRepo {
	return &BattleRepo{db: db}
}

const battleColumns = `id, game_id, site, kind, attacker, defender, status, result, winner, rounds, setup, outcome, error, created_at, resolved_at`

// Create inserts a new pending battle. The caller assigns the ID.
func (r *BattleRepo) Create(ctx context.Context, b *model.Battle) error {
	setup, err := json.Marshal(b.Setup)
	if err != nil {
		return fmt.Errorf("marshal setup: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO battles (id, game_id, site, kind, attacker, defender, status, setup)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING status, created_at`,
		b.ID, b.GameID, b.Site, b.Kind, b.Attacker, b.Defender, model.BattlePending, setup,
	).Scan(&b.Status, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create battle: %w", err)
	}
	return nil
}

// FindByID returns a battle by ID, or nil if not found.
func (r *BattleRepo) FindByID(ctx context.Context, id string) (*model.Battle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+battleColumns+` FROM battles WHERE id = $1`, id)
	b, err := scanBattle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find battle: %w", err)
	}
	return b, nil
}

// ListByGame returns a game's battles in creation order. An empty status
// lists all of them.
func (r *BattleRepo) ListByGame(ctx context.Context, gameID, status string) ([]model.Battle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+battleColumns+` FROM battles
		 WHERE game_id = $1 AND ($2 = '' OR status = $2)
		 ORDER BY created_at, id`, gameID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	return collectBattles(rows)
}

// ListPending returns every unresolved battle across games.
func (r *BattleRepo) ListPending(ctx context.Context) ([]model.Battle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE status = $1 ORDER BY created_at, id`, model.BattlePending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending battles: %w", err)
	}
	return collectBattles(rows)
}

// SaveRound stores a round and its dice in one transaction.
func (r *BattleRepo) SaveRound(ctx context.Context, rnd *model.BattleRound) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO battle_rounds (battle_id, round, steps, casualties, changes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		rnd.BattleID, rnd.Round, []byte(rnd.Steps), nullJSON(rnd.Casualties), []byte(rnd.Changes),
	).Scan(&rnd.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO battle_dice (battle_id, round, seq, player, annotation, hits, dice)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("prepare insert dice: %w", err)
	}
	defer stmt.Close()

	for _, d := range rnd.Rolls {
		if _, err := stmt.ExecContext(ctx, rnd.BattleID, rnd.Round, d.Seq, d.Player, d.Annotation, d.Hits, pq.Array(d.Dice)); err != nil {
			return fmt.Errorf("insert dice: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE battles SET rounds = $2 WHERE id = $1`, rnd.BattleID, rnd.Round); err != nil {
		return fmt.Errorf("update round count: %w", err)
	}
	return tx.Commit()
}

// ListRounds returns a battle's rounds with their dice in order.
func (r *BattleRepo) ListRounds(ctx context.Context, battleID string) ([]model.BattleRound, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT battle_id, round, steps, casualties, changes, created_at
		 FROM battle_rounds WHERE battle_id = $1 ORDER BY round`, battleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []model.BattleRound
	index := make(map[int]int)
	for rows.Next() {
		var rnd model.BattleRound
		var casualties []byte
		if err := rows.Scan(&rnd.BattleID, &rnd.Round, &rnd.Steps, &casualties, &rnd.Changes, &rnd.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if casualties != nil {
			rnd.Casualties = json.RawMessage(casualties)
		}
		index[rnd.Round] = len(rounds)
		rounds = append(rounds, rnd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dice, err := r.db.QueryContext(ctx,
		`SELECT round, seq, player, annotation, hits, dice
		 FROM battle_dice WHERE battle_id = $1 ORDER BY round, seq`, battleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dice: %w", err)
	}
	defer dice.Close()
	for dice.Next() {
		var round int
		var d model.DiceRecord
		if err := dice.Scan(&round, &d.Seq, &d.Player, &d.Annotation, &d.Hits, pq.Array(&d.Dice)); err != nil {
			return nil, fmt.Errorf("scan dice: %w", err)
		}
		if i, ok := index[round]; ok {
			rounds[i].Rolls = append(rounds[i].Rolls, d)
		}
	}
	return rounds, dice.Err()
}

// Resolve marks a battle resolved with its outcome.
func (r *BattleRepo) Resolve(ctx context.Context, battleID, result, winner string, rounds int, outcome json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE battles SET status = $2, result = $3, winner = $4, rounds = $5, outcome = $6, resolved_at = now()
		 WHERE id = $1 AND status = $7`,
		battleID, model.BattleResolved, result, nullStr(winner), rounds, []byte(outcome), model.BattlePending,
	)
	if err != nil {
		return fmt.Errorf("resolve battle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("resolve battle %s: not pending", battleID)
	}
	return nil
}

// Abort marks a battle as aborted after a protocol defect.
func (r *BattleRepo) Abort(ctx context.Context, battleID, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE battles SET status = $2, error = $3, resolved_at = now() WHERE id = $1`,
		battleID, model.BattleAborted, reason,
	)
	if err != nil {
		return fmt.Errorf("abort battle: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBattle(s scanner) (*model.Battle, error) {
	var b model.Battle
	var result, winner, errMsg sql.NullString
	var setup, outcome []byte
	if err := s.Scan(&b.ID, &b.GameID, &b.Site, &b.Kind, &b.Attacker, &b.Defender, &b.Status,
		&result, &winner, &b.Rounds, &setup, &outcome, &errMsg, &b.CreatedAt, &b.ResolvedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(setup, &b.Setup); err != nil {
		return nil, fmt.Errorf("decode setup: %w", err)
	}
	if outcome != nil {
		b.Outcome = json.RawMessage(outcome)
	}
	b.Result, b.Winner, b.Error = result.String, winner.String, errMsg.String
	return &b, nil
}

func collectBattles(rows *sql.Rows) ([]model.Battle, error) {
	defer rows.Close()
	var battles []model.Battle
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		battles = append(battles, *b)
	}
	return battles, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
