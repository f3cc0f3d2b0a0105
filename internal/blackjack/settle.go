// internal/blackjack/settle.go
package blackjack

import (
	"time"

	"github.com/google/uuid"
)

// HandOutcome classifies a settled hand. These are data outcomes, never
// errors: a dealer bust is just a payout row.
type HandOutcome string

const (
	OutcomeWin       HandOutcome = "win"
	OutcomeLose      HandOutcome = "lose"
	OutcomePush      HandOutcome = "push"
	OutcomeBlackjack HandOutcome = "blackjack"
	OutcomeSurrender HandOutcome = "surrender"
)

// HandResult is the settlement row for one hand. Payout is the amount
// returned to the bankroll, stake included: a push pays Bet, a win pays
// 2*Bet, a loss pays 0.
type HandResult struct {
	SeatID  uuid.UUID   `json:"seatId"`
	HandID  uuid.UUID   `json:"handId"`
	Outcome HandOutcome `json:"outcome"`
	Bet     int64       `json:"bet"`
	Payout  int64       `json:"payout"`
}

// InsuranceResult is the settlement row for one insurance wager. Insurance
// pays 2:1 when the dealer has blackjack, otherwise the stake is forfeited.
type InsuranceResult struct {
	SeatID          uuid.UUID `json:"seatId"`
	Bet             int64     `json:"bet"`
	Payout          int64     `json:"payout"`
	DealerBlackjack bool      `json:"dealerBlackjack"`
}

// SideBetResult is the settlement row for one side bet, resolved back at the
// deal and paid out here in the same atomic batch.
type SideBetResult struct {
	SeatID  uuid.UUID   `json:"seatId"`
	Kind    SideBetKind `json:"kind"`
	Pattern string      `json:"pattern,omitempty"`
	Bet     int64       `json:"bet"`
	Payout  int64       `json:"payout"`
}

// SettlementResult is the complete, archivable outcome of one round. All
// deltas are computed first and applied to bankrolls in a single step, so
// partial settlement is never observable.
type SettlementResult struct {
	TableID     uuid.UUID `json:"tableId"`
	RoundID     uuid.UUID `json:"roundId"`
	DealerCards []Card    `json:"dealerCards"`
	DealerValue HandValue `json:"dealerValue"`

	Hands     []HandResult      `json:"hands"`
	Insurance []InsuranceResult `json:"insurance,omitempty"`
	SideBets  []SideBetResult   `json:"sideBets,omitempty"`

	// Payouts is the total amount credited back to each seat.
	Payouts map[uuid.UUID]int64 `json:"payouts"`

	SettledAt time.Time `json:"settledAt"`
}

// DealerPlayAndSettle reveals the hole card, plays the dealer hand per the
// rules, settles every wager, and closes the round. It is idempotent:
// invoking it again after settlement returns the archived result unchanged.
// A stale version on a still-open round is an ErrConcurrentModification.
func (t *Table) DealerPlayAndSettle(version uint64, now time.Time) (*SettlementResult, error) {
	r := t.Round
	if r == nil {
		return nil, ErrIllegalAction
	}
	if r.Phase == PhaseClosed {
		if r.Settlement != nil {
			return r.Settlement, nil
		}
		return nil, ErrIllegalAction
	}
	if r.Phase != PhaseDealerTurn {
		return nil, ErrIllegalAction
	}
	if version != t.Version {
		return nil, ErrConcurrentModification
	}
	return t.dealerPlayAndSettle(now)
}

// dealerPlayAndSettle is the internal transition shared with the deadline
// trigger, which forces dealer play without a version token.
func (t *Table) dealerPlayAndSettle(now time.Time) (*SettlementResult, error) {
	r := t.Round

	// Reveal the hole card; the counter sees it now, per the counting
	// contract, whether or not the dealer draws.
	if !t.HoleRevealed {
		t.HoleRevealed = true
		if len(t.Dealer) >= 2 {
			t.Count.Observe(t.Dealer[1])
		}
	}

	// The dealer draws only while a hand that is neither busted nor
	// surrendered is still in contention.
	if t.anyContestedHand() {
		for t.dealerMustDraw() {
			c, err := t.drawCounted()
			if err != nil {
				return nil, err
			}
			t.Dealer = append(t.Dealer, c)
		}
	}

	r.Phase = PhaseSettlement
	result := t.computeSettlement(now)

	// Apply every delta in one pass; nothing observable exists in between.
	for _, seat := range t.Seats {
		if payout, ok := result.Payouts[seat.ID]; ok {
			seat.Bankroll += payout
		}
		for _, w := range seat.SideBets {
			w.Resolved = true
		}
	}

	r.Phase = PhaseClosed
	r.Settlement = result
	return result, nil
}

func (t *Table) anyContestedHand() bool {
	for _, s := range t.Seats {
		for _, h := range s.Hands {
			if h.Status != HandBusted && h.Status != HandSurrendered {
				return true
			}
		}
	}
	return false
}

// dealerMustDraw implements the terminal condition: hit below 17 always, and
// hit soft 17 when the table rules say so.
func (t *Table) dealerMustDraw() bool {
	v := Evaluate(t.Dealer)
	if v.Bust {
		return false
	}
	if v.Best < 17 {
		return true
	}
	return v.Best == 17 && v.Soft && t.Rules.HitSoft17
}

// computeSettlement builds the full delta batch without touching any
// bankroll. Chips conservation: everything reserved at bet time either comes
// back through Payouts or stays with the house; nothing is created outside
// the configured payout ratios.
func (t *Table) computeSettlement(now time.Time) *SettlementResult {
	dealerV := Evaluate(t.Dealer)
	result := &SettlementResult{
		TableID:     t.ID,
		RoundID:     t.Round.ID,
		DealerCards: append([]Card(nil), t.Dealer...),
		DealerValue: dealerV,
		Payouts:     make(map[uuid.UUID]int64),
		SettledAt:   now,
	}

	for _, seat := range t.Seats {
		if seat.SittingOut {
			continue
		}
		for _, hand := range seat.Hands {
			hr := settleHand(t.Rules, hand, dealerV)
			hr.SeatID = seat.ID
			result.Hands = append(result.Hands, hr)
			result.Payouts[seat.ID] += hr.Payout
		}
		if seat.Insurance > 0 {
			ir := InsuranceResult{
				SeatID:          seat.ID,
				Bet:             seat.Insurance,
				DealerBlackjack: dealerV.Blackjack,
			}
			if dealerV.Blackjack {
				ir.Payout = seat.Insurance * 3 // stake back plus 2:1
			}
			result.Insurance = append(result.Insurance, ir)
			result.Payouts[seat.ID] += ir.Payout
		}
		for _, w := range seat.SideBets {
			sr := SideBetResult{
				SeatID:  seat.ID,
				Kind:    w.Kind,
				Pattern: w.Pattern,
				Bet:     w.Amount,
			}
			if w.Multiplier > 0 {
				sr.Payout = w.Amount * (w.Multiplier + 1)
			}
			result.SideBets = append(result.SideBets, sr)
			result.Payouts[seat.ID] += sr.Payout
		}
	}
	return result
}

// settleHand compares one hand against the dealer outcome per the table
// payout rules.
func settleHand(rules RulesConfig, hand *Hand, dealer HandValue) HandResult {
	hr := HandResult{HandID: hand.ID, Bet: hand.Bet}
	v := hand.Value()

	switch {
	case hand.Status == HandSurrendered:
		// Half the original bet comes back regardless of the dealer outcome.
		hr.Outcome = OutcomeSurrender
		hr.Payout = hand.Bet / 2

	case hand.Status == HandBusted:
		hr.Outcome = OutcomeLose

	case v.Blackjack && dealer.Blackjack:
		hr.Outcome = OutcomePush
		hr.Payout = hand.Bet

	case v.Blackjack:
		hr.Outcome = OutcomeBlackjack
		hr.Payout = hand.Bet + rules.BlackjackPayout.Apply(hand.Bet)

	case dealer.Blackjack:
		hr.Outcome = OutcomeLose

	case dealer.Bust:
		hr.Outcome = OutcomeWin
		hr.Payout = hand.Bet * 2

	case v.Best > dealer.Best:
		hr.Outcome = OutcomeWin
		hr.Payout = hand.Bet * 2

	case v.Best < dealer.Best:
		hr.Outcome = OutcomeLose

	default:
		hr.Outcome = OutcomePush
		hr.Payout = hand.Bet
	}
	return hr
}
