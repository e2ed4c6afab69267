package service

// Battle events pushed to a game's subscribers.
const (
	EventBattleSteps    = "battle_steps"
	EventDiceRolled     = "dice_rolled"
	EventBattleResolved = "battle_resolved"
	EventBattleAborted  = "battle_aborted"
)

// Broadcaster pushes battle events to everyone watching a game.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
}

// NoopBroadcaster drops every event. Used by the simulator and tests.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}
