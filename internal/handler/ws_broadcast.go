package handler

// BroadcastGameEvent implements service.Broadcaster using the WebSocket hub.
// Every battle event goes to the whole game channel; decision requests are
// sent to one seat through RemoteDecisions instead.
func (h *Hub) BroadcastGameEvent(gameID string, eventType string, data any) {
	h.BroadcastToGame(gameID, WSEvent{
		Type:   eventType,
		GameID: gameID,
		Data:   data,
	})
}
