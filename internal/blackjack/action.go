// internal/blackjack/action.go
package blackjack

import "fmt"

// Action is the closed set of player action kinds. Every transition in the
// round machine matches on it exhaustively.
type Action string

const (
	ActionHit       Action = "hit"
	ActionStand     Action = "stand"
	ActionDouble    Action = "double"
	ActionSplit     Action = "split"
	ActionSurrender Action = "surrender"

	// Insurance decisions are only legal during the InsuranceOffer phase.
	ActionInsurance        Action = "insurance"
	ActionDeclineInsurance Action = "decline_insurance"
)

// ParseAction validates an action string off the wire.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionHit, ActionStand, ActionDouble, ActionSplit, ActionSurrender,
		ActionInsurance, ActionDeclineInsurance:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q: %w", s, ErrIllegalAction)
}
