package model

import (
	"encoding/json"
	"time"
)

// Battle statuses.
const (
	BattlePending  = "pending"
	BattleResolved = "resolved"
	BattleAborted  = "aborted"
)

// Battle is the persisted record of one fight.
type Battle struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id"`
	Site       string          `json:"site"`
	Kind       string          `json:"kind"` // normal, bombing_raid
	Attacker   string          `json:"attacker"`
	Defender   string          `json:"defender"`
	Status     string          `json:"status"`
	Result     string          `json:"result,omitempty"`
	Winner     string          `json:"winner,omitempty"`
	Rounds     int             `json:"rounds"`
	Setup      BattleSetup     `json:"setup"`
	Outcome    json.RawMessage `json:"outcome,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// BattleSetup is what a battle was opened with. Units are referenced by ID
// and loaded from the game state when the battle is rebuilt.
type BattleSetup struct {
	Attacking     []string `json:"attacking"`
	Defending     []string `json:"defending"`
	Bombarding    []string `json:"bombarding,omitempty"`
	AttackingFrom []string `json:"attacking_from,omitempty"`
	Amphibious    bool     `json:"amphibious,omitempty"`
	DependsOn     []string `json:"depends_on,omitempty"`
}

// BattleRound is the persisted record of one round.
type BattleRound struct {
	BattleID   string          `json:"battle_id"`
	Round      int             `json:"round"`
	Steps      json.RawMessage `json:"steps"`
	Casualties json.RawMessage `json:"casualties,omitempty"`
	Changes    json.RawMessage `json:"changes"`
	Rolls      []DiceRecord    `json:"rolls"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DiceRecord is one roll with its dice in compressed form.
type DiceRecord struct {
	Seq        int     `json:"seq"`
	Player     string  `json:"player"`
	Annotation string  `json:"annotation"`
	Hits       int     `json:"hits"`
	Dice       []int64 `json:"dice"`
}
