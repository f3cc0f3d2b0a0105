// internal/handlers/table.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebtracey/blackjack/internal/auth"
	"github.com/calebtracey/blackjack/internal/blackjack"
	"github.com/calebtracey/blackjack/internal/cache"
)

// CreateTableHandler creates a table. The body may carry partial rules
// overrides on top of the house defaults; an empty body gets the default
// six-deck 3:2 table.
func (s *TableServer) CreateTableHandler(w http.ResponseWriter, r *http.Request) {
	rules := blackjack.DefaultRules()
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rules body"})
			return
		}
	}
	if err := rules.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	table := blackjack.NewTable(rules, time.Now().UnixNano())
	s.Store.Add(table)
	s.archiveTable(r.Context(), table.ID, rules)
	s.committed(r.Context(), table, cache.EventTableCreated, nil)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"table_id": table.ID,
		"rules":    rules,
	})
}

// JoinTableHandler seats a player at the table and mints their seat token.
func (s *TableServer) JoinTableHandler(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return
	}

	var req struct {
		Name  string `json:"name"`
		BuyIn int64  `json:"buy_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid join body"})
		return
	}

	var seat *blackjack.Seat
	updated, err := s.Store.Update(tableID, func(t *blackjack.Table) error {
		var e error
		seat, e = t.Join(req.Name, req.BuyIn)
		return e
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.CreateSeatToken(seat.ID, tableID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mint seat token"})
		return
	}

	s.committed(r.Context(), updated, cache.EventSeatJoined, map[string]interface{}{
		"seat_id": seat.ID.String(),
		"name":    req.Name,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seat_id": seat.ID,
		"token":   token,
		"version": updated.Version,
	})
}

// StartRoundHandler opens a new round in AwaitingBets. Requires a seat token
// for this table.
func (s *TableServer) StartRoundHandler(w http.ResponseWriter, r *http.Request) {
	tableID, claims, ok := s.authedTable(w, r)
	if !ok {
		return
	}
	_ = claims

	updated, err := s.Store.Update(tableID, func(t *blackjack.Table) error {
		return t.StartRound(time.Now().UTC())
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.committed(r.Context(), updated, cache.EventRoundStarted, nil)
	writeJSON(w, http.StatusOK, updated.Snapshot())
}

// BetHandler places the seat's main bet and optional side bets.
func (s *TableServer) BetHandler(w http.ResponseWriter, r *http.Request) {
	tableID, claims, ok := s.authedTable(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount   int64                      `json:"amount"`
		SideBets []blackjack.SideBetRequest `json:"side_bets,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bet body"})
		return
	}

	updated, err := s.Store.Update(tableID, func(t *blackjack.Table) error {
		return t.PlaceBet(claims.SeatID, req.Amount, req.SideBets, time.Now().UTC())
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.committed(r.Context(), updated, cache.EventBetPlaced, map[string]interface{}{
		"seat_id": claims.SeatID.String(),
		"amount":  req.Amount,
	})
	writeJSON(w, http.StatusOK, updated.Snapshot())
}

// ActionHandler applies one player action computed against a table version.
func (s *TableServer) ActionHandler(w http.ResponseWriter, r *http.Request) {
	tableID, claims, ok := s.authedTable(w, r)
	if !ok {
		return
	}

	var req struct {
		Version uint64    `json:"version"`
		HandID  uuid.UUID `json:"hand_id"`
		Action  string    `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid action body"})
		return
	}
	action, err := blackjack.ParseAction(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	updated, err := s.Store.Update(tableID, func(t *blackjack.Table) error {
		return t.SubmitAction(req.Version, claims.SeatID, req.HandID, action, time.Now().UTC())
	})
	if errors.Is(err, blackjack.ErrDuplicateAction) {
		// Redelivery of an applied payload: answer with the current state,
		// commit nothing, publish nothing.
		current, getErr := s.Store.Get(tableID)
		if getErr != nil {
			writeError(w, getErr)
			return
		}
		writeJSON(w, http.StatusOK, current.Snapshot())
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	s.committed(r.Context(), updated, cache.EventAction, map[string]interface{}{
		"seat_id": claims.SeatID.String(),
		"hand_id": req.HandID.String(),
		"action":  string(action),
	})
	writeJSON(w, http.StatusOK, updated.Snapshot())
}

// SettleHandler forces dealer play and settlement for the round. Idempotent:
// re-settling a closed round returns the archived result.
func (s *TableServer) SettleHandler(w http.ResponseWriter, r *http.Request) {
	tableID, claims, ok := s.authedTable(w, r)
	if !ok {
		return
	}
	_ = claims

	var req struct {
		Version uint64 `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid settle body"})
		return
	}

	// A closed round returns its archived result without another version
	// tick: settlement is idempotent.
	if current, err := s.Store.Get(tableID); err == nil {
		if current.Round != nil && current.Round.Phase == blackjack.PhaseClosed && current.Round.Settlement != nil {
			writeJSON(w, http.StatusOK, current.Round.Settlement)
			return
		}
	}

	var result *blackjack.SettlementResult
	updated, err := s.Store.Update(tableID, func(t *blackjack.Table) error {
		var e error
		result, e = t.DealerPlayAndSettle(req.Version, time.Now().UTC())
		return e
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.archiveSettlement(r.Context(), result)
	s.committed(r.Context(), updated, cache.EventSettled, map[string]interface{}{
		"round_id": result.RoundID.String(),
	})
	writeJSON(w, http.StatusOK, result)
}

// GetTableHandler returns the public snapshot of the table.
func (s *TableServer) GetTableHandler(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return
	}
	table, err := s.Store.Get(tableID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table.Snapshot())
}

// authedTable parses the table id from the path and authenticates the seat
// token against it. Writes the error response itself when either fails.
func (s *TableServer) authedTable(w http.ResponseWriter, r *http.Request) (uuid.UUID, auth.SeatClaims, bool) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return uuid.Nil, auth.SeatClaims{}, false
	}
	claims, err := seatClaimsFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid seat token"})
		return uuid.Nil, auth.SeatClaims{}, false
	}
	if claims.TableID != tableID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "seat token is for another table"})
		return uuid.Nil, auth.SeatClaims{}, false
	}
	return tableID, claims, true
}
