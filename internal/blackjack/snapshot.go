// internal/blackjack/snapshot.go
package blackjack

import (
	"time"

	"github.com/google/uuid"
)

// Snapshots are the serializable public view of a table. They never contain
// the shoe's unseen order, and the dealer hole card appears only after
// reveal. That hiding is a protocol requirement, not presentation: leaking
// either before its time breaks the game's fairness contract.

// HandSnapshot is the public view of one hand.
type HandSnapshot struct {
	ID           uuid.UUID  `json:"id"`
	Cards        []Card     `json:"cards"`
	Bet          int64      `json:"bet"`
	Status       HandStatus `json:"status"`
	Value        HandValue  `json:"value"`
	Split        bool       `json:"split,omitempty"`
	SplitFrom    uuid.UUID  `json:"splitFrom,omitempty"`
	LegalActions []Action   `json:"legalActions,omitempty"` // only on the active hand
	Advice       Action     `json:"advice,omitempty"`       // advisory only, never enforced
}

// SeatSnapshot is the public view of one seat.
type SeatSnapshot struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Bankroll         int64           `json:"bankroll"`
	Bet              int64           `json:"bet"`
	SittingOut       bool            `json:"sittingOut"`
	Insurance        int64           `json:"insurance"`
	InsuranceDecided bool            `json:"insuranceDecided"`
	Hands            []HandSnapshot `json:"hands"`
	SideBets         []SideBetWager `json:"sideBets,omitempty"`
}

// RoundSnapshot is the public view of the round in progress.
type RoundSnapshot struct {
	ID         uuid.UUID         `json:"id"`
	Phase      Phase             `json:"phase"`
	ActiveSeat uuid.UUID         `json:"activeSeat,omitempty"`
	ActiveHand uuid.UUID         `json:"activeHand,omitempty"`
	Deadline   time.Time         `json:"deadline"`
	Pot        int64             `json:"pot"`
	Settlement *SettlementResult `json:"settlement,omitempty"`
}

// TableSnapshot is the full public view, versioned with the
// optimistic-concurrency token clients echo back on mutations.
type TableSnapshot struct {
	ID      uuid.UUID   `json:"id"`
	Version uint64      `json:"version"`
	Rules   RulesConfig `json:"rules"`

	Seats []SeatSnapshot `json:"seats"`

	// Dealer shows the upcard only until the hole card is revealed.
	Dealer       []Card `json:"dealer"`
	HoleRevealed bool   `json:"holeRevealed"`

	ShoeRemaining int `json:"shoeRemaining"`
	RunningCount  int `json:"runningCount"`
	TrueCount     int `json:"trueCount"`

	Round *RoundSnapshot `json:"round,omitempty"`
}

// Snapshot renders the public view of the table.
func (t *Table) Snapshot() TableSnapshot {
	snap := TableSnapshot{
		ID:            t.ID,
		Version:       t.Version,
		Rules:         t.Rules,
		HoleRevealed:  t.HoleRevealed,
		ShoeRemaining: t.Shoe.Remaining(),
		RunningCount:  t.Count.Running,
		TrueCount:     t.Count.TrueCount(t.Shoe.Remaining()),
	}

	if len(t.Dealer) > 0 {
		if t.HoleRevealed {
			snap.Dealer = append([]Card(nil), t.Dealer...)
		} else {
			snap.Dealer = []Card{t.Dealer[0]}
		}
	}

	activeSeat, activeHand := t.activeHand()
	var upcard Card
	if len(t.Dealer) > 0 {
		upcard = t.Dealer[0]
	}

	for _, seat := range t.Seats {
		ss := SeatSnapshot{
			ID:               seat.ID,
			Name:             seat.Name,
			Bankroll:         seat.Bankroll,
			Bet:              seat.Bet,
			SittingOut:       seat.SittingOut,
			Insurance:        seat.Insurance,
			InsuranceDecided: seat.InsuranceDecided,
		}
		for _, w := range seat.SideBets {
			ss.SideBets = append(ss.SideBets, *w)
		}
		for _, hand := range seat.Hands {
			hs := HandSnapshot{
				ID:        hand.ID,
				Cards:     append([]Card(nil), hand.Cards...),
				Bet:       hand.Bet,
				Status:    hand.Status,
				Value:     hand.Value(),
				Split:     hand.Split,
				SplitFrom: hand.SplitFrom,
			}
			if seat == activeSeat && hand == activeHand {
				legal := t.LegalActions(seat, hand)
				hs.LegalActions = legal
				hs.Advice = Advise(t.Rules, hand.Cards, upcard, AdviseOptions{
					CanDouble:    actionLegal(legal, ActionDouble),
					CanSplit:     actionLegal(legal, ActionSplit),
					CanSurrender: actionLegal(legal, ActionSurrender),
				})
			}
			ss.Hands = append(ss.Hands, hs)
		}
		snap.Seats = append(snap.Seats, ss)
	}

	if r := t.Round; r != nil {
		rs := &RoundSnapshot{
			ID:         r.ID,
			Phase:      r.Phase,
			Deadline:   r.Deadline,
			Pot:        r.Pot,
			Settlement: r.Settlement,
		}
		if activeSeat != nil {
			rs.ActiveSeat = activeSeat.ID
			rs.ActiveHand = activeHand.ID
		}
		snap.Round = rs
	}
	return snap
}
