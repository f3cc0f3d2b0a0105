// internal/blackjack/errors.go
package blackjack

import "errors"

// Engine error taxonomy. Every rejection leaves the table state unchanged;
// callers surface these to the submitting player. "Dealer busts" and similar
// game outcomes are data, never errors.
var (
	// ErrIllegalAction rejects an action submitted out of turn, in the wrong
	// phase, or not in the legal set for the current hand.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInsufficientFunds rejects a bet or double/split/insurance that
	// exceeds the seat's bankroll.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrShoeExhausted signals a draw from an empty shoe. The penetration
	// policy makes this unreachable in normal play; treat it as an internal
	// invariant violation, fatal for the round.
	ErrShoeExhausted = errors.New("shoe exhausted")

	// ErrConcurrentModification rejects a mutation computed against a stale
	// table version. The caller must re-fetch and retry; the engine never
	// retries internally.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrDuplicateAction flags a redelivery of an action already folded into
	// the round. It is not a failure: boundaries answer it with the current
	// state and commit nothing, so the version token stays stable.
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrRoundAlreadyActive rejects starting a round while one is in progress.
	ErrRoundAlreadyActive = errors.New("round already active")

	// ErrTableFull rejects a join once every seat is taken.
	ErrTableFull = errors.New("table full")

	// ErrInvalidSeat rejects an operation referencing an unknown seat.
	ErrInvalidSeat = errors.New("invalid seat")

	// ErrTableNotFound rejects an operation on an unknown table id.
	ErrTableNotFound = errors.New("table not found")
)
