// internal/blackjack/table.go
package blackjack

import (
	"time"

	"github.com/google/uuid"
)

// HandStatus is the closed set of states a hand can be in. Status is
// monotonic: once a hand is busted, blackjack, or surrendered it accepts no
// further actions.
type HandStatus string

const (
	HandActive      HandStatus = "active"
	HandStood       HandStatus = "stood"
	HandBusted      HandStatus = "busted"
	HandBlackjack   HandStatus = "blackjack"
	HandSurrendered HandStatus = "surrendered"
	HandDoubled     HandStatus = "doubled"
)

// Hand is one playable card sequence with its stake. Split marks both halves
// of a split pair; the sibling additionally carries a non-owning
// back-reference to its origin hand.
type Hand struct {
	ID        uuid.UUID  `json:"id"`
	Cards     []Card     `json:"cards"`
	Bet       int64      `json:"bet"`
	Status    HandStatus `json:"status"`
	Split     bool       `json:"split,omitempty"`
	SplitFrom uuid.UUID  `json:"splitFrom,omitempty"` // uuid.Nil except on the sibling
}

// Value evaluates the hand, masking blackjack for split-born hands: a
// two-card 21 after splitting is a plain 21, not a natural.
func (h *Hand) Value() HandValue {
	v := Evaluate(h.Cards)
	if h.Split {
		v.Blackjack = false
	}
	return v
}

// Terminal reports whether the hand can take no further action.
func (h *Hand) Terminal() bool {
	return h.Status != HandActive
}

func (h *Hand) clone() *Hand {
	c := *h
	c.Cards = append([]Card(nil), h.Cards...)
	return &c
}

// Seat is one player position at the table. Bankroll is minor currency
// units; bets are reserved out of it at placement and flow back only at
// settlement, so it never goes negative mid-round.
type Seat struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Bankroll int64     `json:"bankroll"`

	// Bet is the main wager for the current round, already deducted from
	// Bankroll. Zero until placed.
	Bet int64 `json:"bet"`

	Hands    []*Hand         `json:"hands"`
	SideBets []*SideBetWager `json:"sideBets"`

	// Insurance is the reserved insurance stake, half the main bet when
	// accepted. InsuranceDecided distinguishes "declined" from "not asked".
	Insurance        int64 `json:"insurance"`
	InsuranceDecided bool  `json:"insuranceDecided"`

	// SittingOut marks a seat that did not bet before the deal this round.
	SittingOut bool `json:"sittingOut"`
}

func (s *Seat) clone() *Seat {
	c := *s
	c.Hands = make([]*Hand, len(s.Hands))
	for i, h := range s.Hands {
		c.Hands[i] = h.clone()
	}
	c.SideBets = make([]*SideBetWager, len(s.SideBets))
	for i, w := range s.SideBets {
		wc := *w
		c.SideBets[i] = &wc
	}
	return &c
}

// Phase is the round state machine phase.
type Phase string

const (
	PhaseAwaitingBets   Phase = "awaiting_bets"
	PhaseDealing        Phase = "dealing" // transient, never observed at rest
	PhaseInsuranceOffer Phase = "insurance_offer"
	PhasePlayerTurns    Phase = "player_turns"
	PhaseDealerTurn     Phase = "dealer_turn"
	PhaseSettlement     Phase = "settlement" // transient, never observed at rest
	PhaseClosed         Phase = "closed"
)

// Round is the state of one hand of play. The active pointer only advances
// within a round, never rewinds. Deadline is an explicit timestamp; a
// scheduled trigger re-evaluates it rather than an in-memory timer, so the
// machine survives process restarts.
type Round struct {
	ID         uuid.UUID `json:"id"`
	Phase      Phase     `json:"phase"`
	ActiveSeat int       `json:"activeSeat"` // index into Table.Seats
	ActiveHand int       `json:"activeHand"` // index into the active seat's hands
	Deadline   time.Time `json:"deadline"`
	Pot        int64     `json:"pot"` // total chips reserved this round

	// Settlement is the archived result once the round closes; it makes
	// DealerPlayAndSettle idempotent.
	Settlement *SettlementResult `json:"settlement,omitempty"`

	// applied records action payloads already folded into this round, keyed
	// by the table version they were computed against. A duplicate delivery
	// of an applied payload reports ErrDuplicateAction rather than
	// double-applying; boundaries answer it with the current state.
	applied map[string]struct{}
}

func (r *Round) clone() *Round {
	c := *r
	if r.applied != nil {
		c.applied = make(map[string]struct{}, len(r.applied))
		for k := range r.applied {
			c.applied[k] = struct{}{}
		}
	}
	if r.Settlement != nil {
		sc := *r.Settlement
		c.Settlement = &sc
	}
	return &c
}

// Table is the authoritative record for one blackjack table. It is the unit
// of shared mutable state: every mutation goes through a versioned
// read-modify-write (see Store), and Version is the optimistic-concurrency
// token carried by clients.
type Table struct {
	ID    uuid.UUID   `json:"id"`
	Rules RulesConfig `json:"rules"`

	// Seats in insertion order; insertion order is turn order.
	Seats []*Seat `json:"seats"`

	Shoe         *Shoe      `json:"-"`
	Dealer       []Card     `json:"-"`
	HoleRevealed bool       `json:"holeRevealed"`
	Count        CountState `json:"count"`

	Round *Round `json:"round,omitempty"`

	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTable creates a table with a freshly shuffled shoe and no round.
func NewTable(rules RulesConfig, seed int64) *Table {
	shoe := NewShoe(rules.Decks, rules.PenetrationCards, seed)
	shoe.Shuffle()
	now := time.Now().UTC()
	return &Table{
		ID:        uuid.New(),
		Rules:     rules,
		Shoe:      shoe,
		Count:     NewCountState(HiLo()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Join seats a new player. Fails with ErrTableFull when every seat is taken
// and ErrInvalidSeat for a non-positive buy-in.
func (t *Table) Join(name string, buyIn int64) (*Seat, error) {
	if len(t.Seats) >= t.Rules.MaxSeats {
		return nil, ErrTableFull
	}
	if buyIn <= 0 {
		return nil, ErrInvalidSeat
	}
	seat := &Seat{
		ID:       uuid.New(),
		Name:     name,
		Bankroll: buyIn,
	}
	t.Seats = append(t.Seats, seat)
	return seat, nil
}

// SeatByID looks a seat up by id.
func (t *Table) SeatByID(id uuid.UUID) (*Seat, error) {
	for _, s := range t.Seats {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrInvalidSeat
}

// Clone deep-copies the table. The store mutates a clone and swaps it in on
// success, so a rejected mutation can never leave partial state behind.
func (t *Table) Clone() *Table {
	c := *t
	c.Rules.SideBets = t.Rules.cloneSideBets()
	c.Seats = make([]*Seat, len(t.Seats))
	for i, s := range t.Seats {
		c.Seats[i] = s.clone()
	}
	c.Shoe = t.Shoe.clone()
	c.Dealer = append([]Card(nil), t.Dealer...)
	if t.Round != nil {
		c.Round = t.Round.clone()
	}
	return &c
}

// RoundActive reports whether a round is in progress (created and not yet
// closed).
func (t *Table) RoundActive() bool {
	return t.Round != nil && t.Round.Phase != PhaseClosed
}

// activeHand returns the seat and hand the turn pointer rests on, or nils
// when the pointer is past the last hand.
func (t *Table) activeHand() (*Seat, *Hand) {
	r := t.Round
	if r == nil || r.Phase != PhasePlayerTurns {
		return nil, nil
	}
	if r.ActiveSeat >= len(t.Seats) {
		return nil, nil
	}
	seat := t.Seats[r.ActiveSeat]
	if r.ActiveHand >= len(seat.Hands) {
		return nil, nil
	}
	return seat, seat.Hands[r.ActiveHand]
}
