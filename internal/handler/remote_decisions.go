package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/beachhead/pkg/combat"
)

var (
	ErrPlayerDisconnected = errors.New("player disconnected")
	ErrUnknownRequest     = errors.New("unknown decision request")
)

// DecisionResponse is a player's answer to a decision_request. Which fields
// matter depends on the request kind.
type DecisionResponse struct {
	Killed    []string `json:"killed,omitempty"`
	Damaged   []string `json:"damaged,omitempty"`
	RetreatTo string   `json:"retreat_to,omitempty"`
	Confirm   bool     `json:"confirm,omitempty"`
}

// decisionRequest is pushed to the deciding player.
type decisionRequest struct {
	RequestID string         `json:"request_id"`
	Kind      string         `json:"kind"` // casualties, retreat, confirm
	BattleID  string         `json:"battle_id"`
	Player    string         `json:"player"`
	Deadline  time.Time      `json:"deadline"`
	Details   map[string]any `json:"details"`
}

type unitView struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Owner  string `json:"owner"`
	Damage int    `json:"damage,omitempty"`
	HPLeft int    `json:"hp_left"`
}

func viewUnits(units []*combat.Unit) []unitView {
	out := make([]unitView, len(units))
	for i, u := range units {
		out[i] = unitView{ID: u.ID, Type: u.Type.Name, Owner: string(u.Owner), Damage: u.Damage, HPLeft: u.HPLeft()}
	}
	return out
}

func idsOf(units []*combat.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}

type decisionReply struct {
	resp DecisionResponse
	err  error
}

type pendingDecision struct {
	gameID string
	player string
	reply  chan decisionReply
}

// RemoteDecisions asks connected players over WebSocket. Seats with no open
// connection get the fallback's answer.
type RemoteDecisions struct {
	hub      *Hub
	timeout  time.Duration
	fallback combat.DecisionSource

	mu      sync.Mutex
	pending map[string]*pendingDecision
}

// NewRemoteDecisions creates a RemoteDecisions. Players must answer within
// timeout.
func NewRemoteDecisions(hub *Hub, timeout time.Duration) *RemoteDecisions {
	return &RemoteDecisions{
		hub:      hub,
		timeout:  timeout,
		fallback: combat.DefaultDecisions{},
		pending:  make(map[string]*pendingDecision),
	}
}

// ForGame implements service.DecisionProvider.
func (r *RemoteDecisions) ForGame(gameID string) combat.DecisionSource {
	return &seatDecisions{remote: r, gameID: gameID}
}

// Answer delivers a player's response to the request waiting for it.
func (r *RemoteDecisions) Answer(gameID, player, requestID string, resp DecisionResponse) error {
	r.mu.Lock()
	p, ok := r.pending[requestID]
	if ok && p.gameID == gameID && p.player == player {
		delete(r.pending, requestID)
	}
	r.mu.Unlock()

	if !ok || p.gameID != gameID || p.player != player {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	p.reply <- decisionReply{resp: resp}
	return nil
}

// Disconnected fails every request waiting on a seat.
func (r *RemoteDecisions) Disconnected(gameID, player string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.pending {
		if p.gameID == gameID && p.player == player {
			delete(r.pending, id)
			p.reply <- decisionReply{err: ErrPlayerDisconnected}
		}
	}
}

// PendingCount returns the number of unanswered requests.
func (r *RemoteDecisions) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *RemoteDecisions) ask(ctx context.Context, gameID string, player combat.Player, battleID, kind string, details map[string]any) (DecisionResponse, error) {
	id := uuid.NewString()
	p := &pendingDecision{gameID: gameID, player: string(player), reply: make(chan decisionReply, 1)}
	r.mu.Lock()
	r.pending[id] = p
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	sent := r.hub.SendToPlayer(gameID, string(player), WSEvent{
		Type:   EventDecisionRequest,
		GameID: gameID,
		Data: decisionRequest{
			RequestID: id,
			Kind:      kind,
			BattleID:  battleID,
			Player:    string(player),
			Deadline:  deadline,
			Details:   details,
		},
	})
	if !sent {
		return DecisionResponse{}, fmt.Errorf("%s decision for %s: %w", kind, player, ErrPlayerDisconnected)
	}
	log.Debug().Str("gameId", gameID).Str("battleId", battleID).Str("player", string(player)).
		Str("kind", kind).Str("requestId", id).Msg("Decision requested")

	select {
	case rep := <-p.reply:
		if rep.err != nil {
			return DecisionResponse{}, fmt.Errorf("%s decision for %s: %w", kind, player, rep.err)
		}
		return rep.resp, nil
	case <-ctx.Done():
		return DecisionResponse{}, fmt.Errorf("%s decision for %s: %w", kind, player, ctx.Err())
	}
}

// seatDecisions answers one game's questions.
type seatDecisions struct {
	remote *RemoteDecisions
	gameID string
}

func (s *seatDecisions) connected(player combat.Player) bool {
	return s.remote.hub.PlayerConnected(s.gameID, string(player))
}

func (s *seatDecisions) SelectCasualties(ctx context.Context, req combat.CasualtyRequest) (combat.CasualtyList, error) {
	if !s.connected(req.Player) {
		return s.remote.fallback.SelectCasualties(ctx, req)
	}
	resp, err := s.remote.ask(ctx, s.gameID, req.Player, req.BattleID, "casualties", map[string]any{
		"step":       req.Step,
		"hits":       req.Hits,
		"candidates": viewUnits(req.Candidates),
		"default":    map[string]any{"killed": idsOf(req.Default.Killed), "damaged": idsOf(req.Default.Damaged)},
		"roll":       req.Roll,
	})
	if err != nil {
		return combat.CasualtyList{}, err
	}

	byID := make(map[string]*combat.Unit, len(req.Candidates))
	for _, u := range req.Candidates {
		byID[u.ID] = u
	}
	var list combat.CasualtyList
	for _, id := range resp.Killed {
		u, ok := byID[id]
		if !ok {
			return combat.CasualtyList{}, fmt.Errorf("casualty %s is not a candidate", id)
		}
		list.Killed = append(list.Killed, u)
	}
	for _, id := range resp.Damaged {
		u, ok := byID[id]
		if !ok {
			return combat.CasualtyList{}, fmt.Errorf("damaged unit %s is not a candidate", id)
		}
		list.Damaged = append(list.Damaged, u)
	}
	return list, nil
}

func (s *seatDecisions) ConfirmRetreat(ctx context.Context, req combat.RetreatRequest) (string, bool, error) {
	if !s.connected(req.Player) {
		return s.remote.fallback.ConfirmRetreat(ctx, req)
	}
	resp, err := s.remote.ask(ctx, s.gameID, req.Player, req.BattleID, "retreat", map[string]any{
		"site":     req.Site,
		"submerge": req.Submerge,
		"units":    viewUnits(req.Units),
		"options":  req.Options,
	})
	if err != nil {
		return "", false, err
	}
	if resp.RetreatTo == "" {
		return "", false, nil
	}
	return resp.RetreatTo, true, nil
}

func (s *seatDecisions) Confirm(ctx context.Context, req combat.ConfirmRequest) (bool, error) {
	if !s.connected(req.Player) {
		return s.remote.fallback.Confirm(ctx, req)
	}
	resp, err := s.remote.ask(ctx, s.gameID, req.Player, req.BattleID, "confirm", map[string]any{
		"prompt": req.Prompt,
	})
	if err != nil {
		return false, err
	}
	return resp.Confirm, nil
}
