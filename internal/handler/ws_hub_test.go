package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func newTestConn(gameID, player string) *WSConn {
	return &WSConn{
		conn:   nil, // no real connection for hub tests
		player: player,
		gameID: gameID,
		send:   make(chan []byte, 256),
	}
}

func receive(t *testing.T, c *WSConn) WSEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatalf("%s did not receive an event", c.player)
	}
	return WSEvent{}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("game-1", "germany")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}
	if !hub.PlayerConnected("game-1", "germany") {
		t.Error("expected germany to be connected")
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
	if hub.PlayerConnected("game-1", "germany") {
		t.Error("expected germany to be gone")
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("game-1", "germany")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "game-1")
	if hub.GameSubscriberCount("game-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.GameSubscriberCount("game-1"))
	}

	hub.Unsubscribe(c, "game-1")
	if hub.GameSubscriberCount("game-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.GameSubscriberCount("game-1"))
	}
}

func TestHubBroadcastToGame(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("game-1", "germany")
	c2 := newTestConn("game-1", "russia")
	c3 := newTestConn("game-2", "japan") // not subscribed

	for _, c := range []*WSConn{c1, c2, c3} {
		hub.Register(c)
		defer hub.Unregister(c)
	}
	hub.Subscribe(c1, "game-1")
	hub.Subscribe(c2, "game-1")

	hub.BroadcastToGame("game-1", WSEvent{
		Type:   EventBattleResolved,
		GameID: "game-1",
		Data:   map[string]string{"result": "attacker_won"},
	})

	if ev := receive(t, c1); ev.Type != EventBattleResolved {
		t.Errorf("expected battle_resolved, got %s", ev.Type)
	}
	receive(t, c2)

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
	}
}

func TestHubSendToPlayer(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("game-1", "germany")
	c2 := newTestConn("game-1", "germany") // same seat, two connections
	c3 := newTestConn("game-1", "russia")
	c4 := newTestConn("game-2", "germany") // same player name, other game

	for _, c := range []*WSConn{c1, c2, c3, c4} {
		hub.Register(c)
		defer hub.Unregister(c)
	}

	ok := hub.SendToPlayer("game-1", "germany", WSEvent{Type: EventDecisionRequest, GameID: "game-1"})
	if !ok {
		t.Fatal("expected delivery")
	}
	receive(t, c1)
	receive(t, c2)
	for _, c := range []*WSConn{c3, c4} {
		select {
		case <-c.send:
			t.Errorf("%s/%s should not have received the request", c.gameID, c.player)
		default:
		}
	}

	if hub.SendToPlayer("game-1", "italy", WSEvent{Type: EventDecisionRequest}) {
		t.Error("expected no delivery to an absent seat")
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("game-1", "germany")
	hub.Register(c)
	hub.Subscribe(c, "game-1")
	hub.Subscribe(c, "game-2")

	hub.Unregister(c)

	if hub.GameSubscriberCount("game-1") != 0 {
		t.Errorf("expected 0 subscribers for game-1 after unregister")
	}
	if hub.GameSubscriberCount("game-2") != 0 {
		t.Errorf("expected 0 subscribers for game-2 after unregister")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestConn("game-1", "germany")
			hub.Register(c)
			hub.Subscribe(c, "game-1")
			hub.BroadcastToGame("game-1", WSEvent{Type: "test", GameID: "game-1"})
			hub.SendToPlayer("game-1", "germany", WSEvent{Type: "test", GameID: "game-1"})
			hub.Unsubscribe(c, "game-1")
			hub.Unregister(c)
		}()
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastGameEvent(t *testing.T) {
	hub := NewHub()
	c := newTestConn("game-1", "germany")
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "game-1")

	hub.BroadcastGameEvent("game-1", EventDiceRolled, map[string]int{"round": 1})

	ev := receive(t, c)
	if ev.Type != EventDiceRolled {
		t.Errorf("expected dice_rolled, got %s", ev.Type)
	}
	if ev.GameID != "game-1" {
		t.Errorf("expected game-1, got %s", ev.GameID)
	}
}

func TestClientMessageDecision(t *testing.T) {
	raw := `{"action":"decision_response","game_id":"game-1","request_id":"r1","decision":{"killed":["inf-1"],"retreat_to":"finland"}}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Action != "decision_response" || msg.RequestID != "r1" {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	if msg.Decision == nil || len(msg.Decision.Killed) != 1 || msg.Decision.RetreatTo != "finland" {
		t.Errorf("unexpected decision: %+v", msg.Decision)
	}
}
