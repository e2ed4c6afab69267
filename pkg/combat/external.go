package combat

import "context"

// CasualtyRequest asks a player to choose casualties. Default is a valid
// choice the player may simply accept.
type CasualtyRequest struct {
	BattleID   string
	Step       string
	Player     Player
	Hits       int
	Candidates []*Unit
	Default    CasualtyList
	Roll       DiceRoll
}

// RetreatRequest asks a player whether and where to retreat. Submerge
// requests offer only the battle site.
type RetreatRequest struct {
	BattleID string
	Player   Player
	Site     string
	Submerge bool
	Units    []*Unit
	Options  []string
}

// ConfirmRequest is a yes/no question put to a player.
type ConfirmRequest struct {
	BattleID string
	Player   Player
	Prompt   string
}

// DecisionSource answers the questions a battle puts to its players. A
// remote implementation may block for a long time; errors such as a
// disconnect are returned to the caller unchanged.
type DecisionSource interface {
	SelectCasualties(ctx context.Context, req CasualtyRequest) (CasualtyList, error)
	// ConfirmRetreat returns the chosen destination, or ok=false to stay.
	ConfirmRetreat(ctx context.Context, req RetreatRequest) (dest string, ok bool, err error)
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// DefaultDecisions accepts every default, never retreats and says yes to
// every confirmation.
type DefaultDecisions struct{}

func (DefaultDecisions) SelectCasualties(_ context.Context, req CasualtyRequest) (CasualtyList, error) {
	return req.Default, nil
}

func (DefaultDecisions) ConfirmRetreat(context.Context, RetreatRequest) (string, bool, error) {
	return "", false, nil
}

func (DefaultDecisions) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return true, nil
}

// Terrain exposes the board around a battle.
type Terrain interface {
	Territory(ctx context.Context, name string) (*Territory, error)
	Units(ctx context.Context, territory string) ([]UnitState, error)
}

// StateStore is the shared game state a battle reads from and commits to.
// Apply must apply a change set entirely or not at all.
type StateStore interface {
	Terrain
	Apply(ctx context.Context, changes ChangeSet) error
}

// PendingBattle is a registry entry.
type PendingBattle struct {
	ID   string `json:"id"`
	Site string `json:"site"`
}

// Registry tracks the battles still to be fought in a turn and which of
// them must wait for others.
type Registry interface {
	Register(ctx context.Context, battleID, site string) error
	// AddDependency records that battleID cannot start until blockingID resolves.
	AddDependency(ctx context.Context, battleID, blockingID string) error
	Dependencies(ctx context.Context, battleID string) ([]string, error)
	Deregister(ctx context.Context, battleID string) error
	Pending(ctx context.Context) ([]PendingBattle, error)
}
