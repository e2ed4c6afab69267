package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/auth"
	"github.com/freeeve/beachhead/internal/logger"
	"github.com/freeeve/beachhead/internal/service"
	"github.com/freeeve/beachhead/pkg/combat"
)

// maxBodyBytes bounds request bodies. Boards are the largest payload.
const maxBodyBytes = 4 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a request body into v, rejecting fields v does not know.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// seatFor checks the caller holds a seat in gameID.
func seatFor(w http.ResponseWriter, r *http.Request, gameID string) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return id, false
	}
	if id.GameID != gameID {
		writeError(w, http.StatusForbidden, "you are not in this game")
		return id, false
	}
	return id, true
}

// statusFor maps service and engine errors onto status codes.
func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBattleNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBattleFinished), errors.Is(err, combat.ErrBattleResolved),
		errors.Is(err, service.ErrBlocked), errors.Is(err, service.ErrDependencyCycle):
		return http.StatusConflict
	case errors.Is(err, ErrPlayerDisconnected), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		var verr *service.ValidationError
		errors.As(err, &verr)
		writeError(w, status, verr.Error())
	case http.StatusNotFound:
		writeError(w, status, "battle not found")
	case http.StatusInternalServerError:
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Bool("defect", combat.IsDefect(err)).Msg("Battle request failed")
		writeError(w, status, err.Error())
	default:
		writeError(w, status, err.Error())
	}
}
