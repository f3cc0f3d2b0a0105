package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/calebtracey/blackjack/internal/auth"
	"github.com/calebtracey/blackjack/internal/blackjack"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// seatClaimsFromRequest authenticates the seat token from the Authorization
// header ("Bearer <token>") or the seat_token cookie.
func seatClaimsFromRequest(r *http.Request) (auth.SeatClaims, error) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		token = extractCookieToken(r.Header.Get("Cookie"), "seat_token")
	}
	if token == "" {
		return auth.SeatClaims{}, errors.New("missing seat token")
	}
	return auth.AuthenticateSeatToken(token)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error onto an HTTP status and a JSON error body.
// Every rejection left the table unchanged, so clients can refetch and retry.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, blackjack.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, blackjack.ErrIllegalAction),
		errors.Is(err, blackjack.ErrInvalidSeat):
		status = http.StatusBadRequest
	case errors.Is(err, blackjack.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, blackjack.ErrConcurrentModification),
		errors.Is(err, blackjack.ErrRoundAlreadyActive),
		errors.Is(err, blackjack.ErrTableFull):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
