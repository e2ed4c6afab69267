package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/auth"
)

// AuthHandler issues player tokens.
type AuthHandler struct {
	jwtMgr *auth.JWTManager
	dev    bool
}

// NewAuthHandler creates an AuthHandler. Tokens are only handed out when
// dev is set; production seats get their tokens from the game host.
func NewAuthHandler(jwtMgr *auth.JWTManager, dev bool) *AuthHandler {
	return &AuthHandler{jwtMgr: jwtMgr, dev: dev}
}

// DevLogin handles POST /auth/dev and returns a token for a seat.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.dev {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		GameID string `json:"game_id"`
		Player string `json:"player"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameID == "" || req.Player == "" {
		writeError(w, http.StatusBadRequest, "game_id and player are required")
		return
	}

	tokens, err := h.jwtMgr.IssueToken(req.GameID, req.Player)
	if err != nil {
		log.Error().Err(err).Str("gameId", req.GameID).Str("player", req.Player).Msg("Failed to issue dev token")
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
