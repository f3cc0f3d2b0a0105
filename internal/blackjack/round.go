// internal/blackjack/round.go
package blackjack

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SideBetRequest is a side-bet wager submitted alongside the main bet.
type SideBetRequest struct {
	Kind   SideBetKind `json:"kind"`
	Amount int64       `json:"amount"`
}

// StartRound opens a new round in AwaitingBets. Fails with
// ErrRoundAlreadyActive while a round is in progress. The reshuffle check
// happens here, strictly between rounds, so the count never resets mid-shoe
// and no hand ever spans a shuffle.
func (t *Table) StartRound(now time.Time) error {
	if t.RoundActive() {
		return ErrRoundAlreadyActive
	}
	if len(t.Seats) == 0 {
		return ErrInvalidSeat
	}

	if t.Shoe.NeedsReshuffle() {
		t.Shoe.Shuffle()
		t.Count.Reset()
	}

	for _, s := range t.Seats {
		s.Hands = nil
		s.SideBets = nil
		s.Bet = 0
		s.Insurance = 0
		s.InsuranceDecided = false
		s.SittingOut = false
	}
	t.Dealer = nil
	t.HoleRevealed = false

	t.Round = &Round{
		ID:       uuid.New(),
		Phase:    PhaseAwaitingBets,
		Deadline: now.Add(time.Duration(t.Rules.BetDeadlineSec) * time.Second),
		applied:  make(map[string]struct{}),
	}
	return nil
}

// PlaceBet reserves a seat's main bet and optional side bets for the round.
// Chips leave the bankroll here and only come back at settlement.
func (t *Table) PlaceBet(seatID uuid.UUID, amount int64, sideBets []SideBetRequest, now time.Time) error {
	if t.Round == nil || t.Round.Phase != PhaseAwaitingBets {
		return ErrIllegalAction
	}
	seat, err := t.SeatByID(seatID)
	if err != nil {
		return err
	}
	if seat.Bet > 0 {
		return ErrIllegalAction
	}
	if amount < t.Rules.MinBet || amount > t.Rules.MaxBet {
		return ErrIllegalAction
	}

	total := amount
	for _, sb := range sideBets {
		if sb.Amount <= 0 {
			return ErrIllegalAction
		}
		if _, offered := t.Rules.SideBets[sb.Kind]; !offered {
			return ErrIllegalAction
		}
		total += sb.Amount
	}
	if total > seat.Bankroll {
		return ErrInsufficientFunds
	}

	seat.Bankroll -= total
	seat.Bet = amount
	for _, sb := range sideBets {
		seat.SideBets = append(seat.SideBets, &SideBetWager{Kind: sb.Kind, Amount: sb.Amount})
	}
	t.Round.Pot += total

	if t.allSeatsBet() {
		return t.deal(now)
	}
	return nil
}

func (t *Table) allSeatsBet() bool {
	for _, s := range t.Seats {
		if s.Bet == 0 {
			return false
		}
	}
	return true
}

// SubmitAction applies a player action computed against the given table
// version. A stale version is an ErrConcurrentModification unless the exact
// payload was already applied to this round, in which case the redelivery is
// flagged as ErrDuplicateAction and changes nothing: at-least-once delivery
// must never double a bet, and must never tick the version either.
func (t *Table) SubmitAction(version uint64, seatID, handID uuid.UUID, action Action, now time.Time) error {
	if !t.RoundActive() {
		return ErrIllegalAction
	}
	r := t.Round
	key := actionKey(version, seatID, handID, action)
	if version != t.Version {
		if _, dup := r.applied[key]; dup {
			return ErrDuplicateAction
		}
		return ErrConcurrentModification
	}

	var err error
	switch action {
	case ActionInsurance, ActionDeclineInsurance:
		err = t.applyInsuranceDecision(seatID, action == ActionInsurance, now)
	case ActionHit, ActionStand, ActionDouble, ActionSplit, ActionSurrender:
		err = t.applyHandAction(seatID, handID, action, now)
	default:
		err = ErrIllegalAction
	}
	if err != nil {
		return err
	}
	r.applied[key] = struct{}{}
	return nil
}

func actionKey(version uint64, seatID, handID uuid.UUID, action Action) string {
	return fmt.Sprintf("%d|%s|%s|%s", version, seatID, handID, action)
}

// AdvanceDeadline is the scheduled trigger: if the round is past its
// deadline it applies the phase's default action (deal with absentees
// sitting out, decline insurance, implicit stand, forced dealer play) and
// reports whether state changed. A late human action after the trigger has
// advanced the state simply fails as out of turn.
func (t *Table) AdvanceDeadline(now time.Time) (bool, error) {
	r := t.Round
	if r == nil || r.Phase == PhaseClosed || now.Before(r.Deadline) {
		return false, nil
	}

	switch r.Phase {
	case PhaseAwaitingBets:
		anyBet := false
		for _, s := range t.Seats {
			if s.Bet > 0 {
				anyBet = true
			} else {
				s.SittingOut = true
			}
		}
		if !anyBet {
			r.Phase = PhaseClosed
			return true, nil
		}
		return true, t.deal(now)

	case PhaseInsuranceOffer:
		for _, s := range t.Seats {
			if !s.SittingOut && !s.InsuranceDecided {
				s.InsuranceDecided = true // decline is the timeout default
			}
		}
		t.startPlayerTurns(now)
		return true, nil

	case PhasePlayerTurns:
		_, hand := t.activeHand()
		if hand == nil {
			t.toDealerTurn(now)
			return true, nil
		}
		hand.Status = HandStood
		t.advancePointer(now)
		return true, nil

	case PhaseDealerTurn:
		_, err := t.dealerPlayAndSettle(now)
		return err == nil, err
	}
	return false, nil
}

// drawCounted pulls a card from the shoe and feeds it to the counter. Every
// card leaving the shoe is observed except the dealer hole card, which the
// counter sees at reveal.
func (t *Table) drawCounted() (Card, error) {
	c, err := t.Shoe.Draw()
	if err != nil {
		return Card{}, err
	}
	t.Count.Observe(c)
	return c, nil
}

// deal transitions AwaitingBets -> Dealing: two cards per betting seat and
// two for the dealer with the hole card face down, then resolves side bets
// and moves to the insurance offer or straight to player turns.
func (t *Table) deal(now time.Time) error {
	r := t.Round
	r.Phase = PhaseDealing

	var active []*Seat
	for _, s := range t.Seats {
		if s.Bet > 0 {
			active = append(active, s)
			s.Hands = []*Hand{{
				ID:     uuid.New(),
				Bet:    s.Bet,
				Status: HandActive,
			}}
		} else {
			s.SittingOut = true
		}
	}

	// First pass, then dealer upcard, second pass, then the hole card. The
	// hole card is drawn uncounted; the counter sees it at reveal.
	for _, s := range active {
		c, err := t.drawCounted()
		if err != nil {
			return err
		}
		s.Hands[0].Cards = append(s.Hands[0].Cards, c)
	}
	up, err := t.drawCounted()
	if err != nil {
		return err
	}
	t.Dealer = []Card{up}
	for _, s := range active {
		c, err := t.drawCounted()
		if err != nil {
			return err
		}
		s.Hands[0].Cards = append(s.Hands[0].Cards, c)
	}
	hole, err := t.Shoe.Draw()
	if err != nil {
		return err
	}
	t.Dealer = append(t.Dealer, hole)

	// Side bets resolve once, against the initial deal, before any player
	// action. A surrender or double later never reopens them.
	for _, s := range active {
		for _, w := range s.SideBets {
			resolveSideBet(t.Rules, w, s.Hands[0].Cards[0], s.Hands[0].Cards[1], up)
		}
	}

	// Naturals are terminal immediately.
	for _, s := range active {
		if s.Hands[0].Value().Blackjack {
			s.Hands[0].Status = HandBlackjack
		}
	}

	if up.Rank == RankAce && t.Rules.InsuranceAllowed {
		r.Phase = PhaseInsuranceOffer
		r.Deadline = now.Add(time.Duration(t.Rules.ActionDeadlineSec) * time.Second)
		return nil
	}
	t.startPlayerTurns(now)
	return nil
}

// applyInsuranceDecision handles accept/decline during the insurance offer.
func (t *Table) applyInsuranceDecision(seatID uuid.UUID, accept bool, now time.Time) error {
	if t.Round.Phase != PhaseInsuranceOffer {
		return ErrIllegalAction
	}
	seat, err := t.SeatByID(seatID)
	if err != nil {
		return err
	}
	if seat.SittingOut || seat.InsuranceDecided {
		return ErrIllegalAction
	}
	if accept {
		stake := seat.Bet / 2
		if stake > seat.Bankroll {
			return ErrInsufficientFunds
		}
		seat.Bankroll -= stake
		seat.Insurance = stake
		t.Round.Pot += stake
	}
	seat.InsuranceDecided = true

	for _, s := range t.Seats {
		if !s.SittingOut && !s.InsuranceDecided {
			return nil // still waiting on someone
		}
	}
	t.startPlayerTurns(now)
	return nil
}

// startPlayerTurns positions the turn pointer on the first playable hand, or
// skips straight to the dealer when every hand is already terminal.
func (t *Table) startPlayerTurns(now time.Time) {
	r := t.Round
	r.Phase = PhasePlayerTurns
	r.ActiveSeat = 0
	r.ActiveHand = 0
	if !t.pointerOnPlayable() {
		t.advancePointer(now)
		return
	}
	r.Deadline = now.Add(time.Duration(t.Rules.ActionDeadlineSec) * time.Second)
}

// pointerOnPlayable reports whether the active pointer currently rests on a
// non-terminal hand.
func (t *Table) pointerOnPlayable() bool {
	r := t.Round
	if r.ActiveSeat >= len(t.Seats) {
		return false
	}
	seat := t.Seats[r.ActiveSeat]
	if seat.SittingOut || r.ActiveHand >= len(seat.Hands) {
		return false
	}
	return !seat.Hands[r.ActiveHand].Terminal()
}

// advancePointer moves the turn pointer forward to the next playable hand,
// never backward. Past the last hand the round enters DealerTurn.
func (t *Table) advancePointer(now time.Time) {
	r := t.Round
	for {
		if r.ActiveSeat >= len(t.Seats) {
			t.toDealerTurn(now)
			return
		}
		seat := t.Seats[r.ActiveSeat]
		if seat.SittingOut {
			r.ActiveSeat++
			r.ActiveHand = 0
			continue
		}
		if r.ActiveHand >= len(seat.Hands) {
			r.ActiveSeat++
			r.ActiveHand = 0
			continue
		}
		if seat.Hands[r.ActiveHand].Terminal() {
			r.ActiveHand++
			continue
		}
		r.Deadline = now.Add(time.Duration(t.Rules.ActionDeadlineSec) * time.Second)
		return
	}
}

func (t *Table) toDealerTurn(now time.Time) {
	r := t.Round
	r.Phase = PhaseDealerTurn
	r.Deadline = now.Add(time.Duration(t.Rules.ActionDeadlineSec) * time.Second)
}

// LegalActions computes the legal action set for a hand from its status and
// the rules. Used both for enforcement and for advertising options in
// snapshots; the advisor never overrides this.
func (t *Table) LegalActions(seat *Seat, hand *Hand) []Action {
	if hand.Terminal() {
		return nil
	}
	actions := []Action{ActionHit, ActionStand}
	if len(hand.Cards) == 2 {
		canDouble := seat.Bankroll >= hand.Bet
		if hand.Split && !t.Rules.DoubleAfterSplit {
			canDouble = false
		}
		if canDouble {
			actions = append(actions, ActionDouble)
		}
		if hand.Cards[0].Rank == hand.Cards[1].Rank &&
			len(seat.Hands) <= t.Rules.MaxSplits &&
			seat.Bankroll >= hand.Bet {
			actions = append(actions, ActionSplit)
		}
		// Surrender only exists straight off the initial deal; a hand born
		// from a split is past that point.
		if t.Rules.SurrenderAllowed && !hand.Split {
			actions = append(actions, ActionSurrender)
		}
	}
	return actions
}

// applyHandAction validates and applies one action on the active hand. Any
// rejection happens before the first mutation, so a failed action leaves the
// table untouched.
func (t *Table) applyHandAction(seatID, handID uuid.UUID, action Action, now time.Time) error {
	if t.Round.Phase != PhasePlayerTurns {
		return ErrIllegalAction
	}
	seat, hand := t.activeHand()
	if seat == nil || hand == nil {
		return ErrIllegalAction
	}
	if seat.ID != seatID || hand.ID != handID {
		return ErrIllegalAction
	}
	if !actionLegal(t.LegalActions(seat, hand), action) {
		// ErrInsufficientFunds only when the bankroll is the sole objection;
		// a structural rejection stays an illegal action.
		if len(hand.Cards) == 2 && seat.Bankroll < hand.Bet {
			switch action {
			case ActionDouble:
				if !hand.Split || t.Rules.DoubleAfterSplit {
					return ErrInsufficientFunds
				}
			case ActionSplit:
				if hand.Cards[0].Rank == hand.Cards[1].Rank &&
					len(seat.Hands) <= t.Rules.MaxSplits {
					return ErrInsufficientFunds
				}
			}
		}
		return ErrIllegalAction
	}

	switch action {
	case ActionHit:
		c, err := t.drawCounted()
		if err != nil {
			return err
		}
		hand.Cards = append(hand.Cards, c)
		v := hand.Value()
		switch {
		case v.Bust:
			hand.Status = HandBusted
		case v.Best == 21:
			hand.Status = HandStood
		}

	case ActionStand:
		hand.Status = HandStood

	case ActionDouble:
		seat.Bankroll -= hand.Bet
		t.Round.Pot += hand.Bet
		hand.Bet *= 2
		c, err := t.drawCounted()
		if err != nil {
			return err
		}
		hand.Cards = append(hand.Cards, c)
		if hand.Value().Bust {
			hand.Status = HandBusted
		} else {
			hand.Status = HandDoubled
		}

	case ActionSplit:
		if err := t.splitHand(seat, hand); err != nil {
			return err
		}

	case ActionSurrender:
		hand.Status = HandSurrendered
	}

	if hand.Terminal() {
		t.advancePointer(now)
	} else {
		t.Round.Deadline = now.Add(time.Duration(t.Rules.ActionDeadlineSec) * time.Second)
	}
	return nil
}

// splitHand creates the sibling hand immediately after the current one in
// turn order, reserves a second stake equal to the original bet, and deals a
// new card to each half.
func (t *Table) splitHand(seat *Seat, hand *Hand) error {
	seat.Bankroll -= hand.Bet
	t.Round.Pot += hand.Bet

	sibling := &Hand{
		ID:        uuid.New(),
		Cards:     []Card{hand.Cards[1]},
		Bet:       hand.Bet,
		Status:    HandActive,
		Split:     true,
		SplitFrom: hand.ID,
	}
	hand.Cards = hand.Cards[:1]
	hand.Split = true

	idx := t.Round.ActiveHand
	seat.Hands = append(seat.Hands, nil)
	copy(seat.Hands[idx+2:], seat.Hands[idx+1:])
	seat.Hands[idx+1] = sibling

	for _, h := range []*Hand{hand, sibling} {
		c, err := t.drawCounted()
		if err != nil {
			return err
		}
		h.Cards = append(h.Cards, c)
		if h.Value().Best == 21 {
			h.Status = HandStood
		}
	}
	return nil
}

func actionLegal(legal []Action, a Action) bool {
	for _, l := range legal {
		if l == a {
			return true
		}
	}
	return false
}
