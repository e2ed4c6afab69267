package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/internal/service"
	"github.com/freeeve/beachhead/pkg/combat"
)

// BattleHandler handles board and battle endpoints.
type BattleHandler struct {
	battleSvc *service.BattleService
}

// NewBattleHandler creates a BattleHandler.
func NewBattleHandler(battleSvc *service.BattleService) *BattleHandler {
	return &BattleHandler{battleSvc: battleSvc}
}

// LoadBoard handles PUT /api/v1/games/{gameId}/board.
func (h *BattleHandler) LoadBoard(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	if _, ok := seatFor(w, r, gameID); !ok {
		return
	}
	var req struct {
		Territories []combat.Territory `json:"territories"`
		Units       []combat.UnitState `json:"units"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.battleSvc.LoadBoard(r.Context(), gameID, req.Territories, req.Units); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"territories": len(req.Territories), "units": len(req.Units)})
}

// StartBattle handles POST /api/v1/games/{gameId}/battles.
func (h *BattleHandler) StartBattle(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	if _, ok := seatFor(w, r, gameID); !ok {
		return
	}
	var req service.StartBattleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	battle, steps, err := h.battleSvc.StartBattle(r.Context(), gameID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"battle": battle, "steps": steps})
}

// ListPending handles GET /api/v1/games/{gameId}/battles.
func (h *BattleHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	if _, ok := seatFor(w, r, gameID); !ok {
		return
	}
	battles, err := h.battleSvc.ListPending(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if battles == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, battles)
}

// ResolvePending handles POST /api/v1/games/{gameId}/battles/resolve.
func (h *BattleHandler) ResolvePending(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameId")
	id, ok := seatFor(w, r, gameID)
	if !ok {
		return
	}
	outcomes, err := h.battleSvc.ResolvePending(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info().Str("gameId", gameID).Str("player", id.Player).Int("battles", len(outcomes)).Msg("Pending battles resolved")
	if outcomes == nil {
		outcomes = []combat.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

// battleFor loads a battle and checks the caller sits in its game.
func (h *BattleHandler) battleFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	battleID := r.PathValue("id")
	battle, err := h.battleSvc.Battle(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, r, err)
		return "", false
	}
	if _, ok := seatFor(w, r, battle.GameID); !ok {
		return "", false
	}
	return battleID, true
}

// GetBattle handles GET /api/v1/battles/{id}.
func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	battleID, ok := h.battleFor(w, r)
	if !ok {
		return
	}
	battle, err := h.battleSvc.Battle(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battle)
}

// Steps handles GET /api/v1/battles/{id}/steps.
func (h *BattleHandler) Steps(w http.ResponseWriter, r *http.Request) {
	battleID, ok := h.battleFor(w, r)
	if !ok {
		return
	}
	steps, err := h.battleSvc.Steps(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

// FightRound handles POST /api/v1/battles/{id}/rounds.
func (h *BattleHandler) FightRound(w http.ResponseWriter, r *http.Request) {
	battleID, ok := h.battleFor(w, r)
	if !ok {
		return
	}
	res, err := h.battleSvc.FightRound(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rounds handles GET /api/v1/battles/{id}/rounds.
func (h *BattleHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	battleID, ok := h.battleFor(w, r)
	if !ok {
		return
	}
	rounds, err := h.battleSvc.Rounds(r.Context(), battleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}
