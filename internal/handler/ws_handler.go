package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/auth"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 16384
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub       *Hub
	jwtMgr    *auth.JWTManager
	decisions *RemoteDecisions
}

// NewWSHandler creates a WSHandler. Decision responses read off the socket
// are handed to decisions.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, decisions *RemoteDecisions) *WSHandler {
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, decisions: decisions}
}

// ServeWS handles GET /api/v1/ws and upgrades to WebSocket.
// Auth via ?token= query parameter (WebSocket can't send headers) or the
// usual bearer header. The connection is subscribed to the token's game
// straight away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	seat, err := h.jwtMgr.Authenticate(r, true)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:   conn,
		player: seat.Player,
		gameID: seat.GameID,
		send:   make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.hub.Subscribe(client, seat.GameID)

	welcome, _ := json.Marshal(WSEvent{
		Type:   "connected",
		GameID: seat.GameID,
		Data:   map[string]any{"player": seat.Player},
	})
	client.send <- welcome

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("gameId", seat.GameID).Str("player", seat.Player).
		Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		if h.decisions != nil && !h.hub.PlayerConnected(c.gameID, c.player) {
			h.decisions.Disconnected(c.gameID, c.player)
		}
		log.Info().Str("gameId", c.gameID).Str("player", c.player).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("player", c.player).Msg("WebSocket unexpected close")
			}
			break
		}
		h.handleMessage(c, message)
	}
}

func (h *WSHandler) handleMessage(c *WSConn, message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Action {
	case "subscribe":
		// A seat only ever watches its own game.
		if msg.GameID == c.gameID {
			h.hub.Subscribe(c, msg.GameID)
		}
	case "unsubscribe":
		if msg.GameID != "" {
			h.hub.Unsubscribe(c, msg.GameID)
		}
	case "decision_response":
		if h.decisions == nil || msg.Decision == nil {
			return
		}
		if err := h.decisions.Answer(c.gameID, c.player, msg.RequestID, *msg.Decision); err != nil {
			log.Warn().Err(err).Str("player", c.player).Str("requestId", msg.RequestID).Msg("Rejected decision response")
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
