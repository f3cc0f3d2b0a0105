// internal/blackjack/round_test.go
package blackjack

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNow() time.Time {
	return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
}

// riggedTable builds a table whose shoe deals the given cards in order, so
// scenarios are exact. Deal order: one card per betting seat, the dealer
// upcard, a second card per seat, then the hole card.
func riggedTable(tb testing.TB, rules RulesConfig, buyIns []int64, cards ...Card) (*Table, []*Seat) {
	tb.Helper()
	table := NewTable(rules, 1)
	table.Shoe = &Shoe{
		cards: cards,
		rng:   rand.New(rand.NewSource(1)),
	}
	seats := make([]*Seat, len(buyIns))
	for i, b := range buyIns {
		s, err := table.Join("player", b)
		require.NoError(tb, err)
		seats[i] = s
	}
	return table, seats
}

func TestBlackjackAgainstSixNoInsurance(t *testing.T) {
	// Player dealt T,A vs dealer upcard 6: immediate natural, no insurance
	// offered, paid 3:2 once the dealer resolves without blackjack.
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("TS"), cc("6D"), cc("AH"), cc("TC"), cc("2H"))
	now := testNow()

	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	require.Len(t, seat.Hands, 1)
	assert.Equal(t, HandBlackjack, seat.Hands[0].Status)
	assert.Equal(t, PhaseDealerTurn, table.Round.Phase, "natural skips straight past player turns")
	assert.Equal(t, int64(900), seat.Bankroll)

	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)
	require.Len(t, result.Hands, 1)
	assert.Equal(t, OutcomeBlackjack, result.Hands[0].Outcome)
	assert.Equal(t, int64(250), result.Hands[0].Payout, "100 stake plus 150 at 3:2")
	assert.Equal(t, 18, result.DealerValue.Best)
	assert.Equal(t, int64(1150), table.Seats[0].Bankroll)
	assert.Equal(t, PhaseClosed, table.Round.Phase)
}

func TestDealerPlayAndSettleIdempotent(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("TS"), cc("6D"), cc("AH"), cc("TC"), cc("2H"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	first, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)

	// Re-invocation after settlement is a no-op returning the prior result,
	// whatever version the caller holds.
	again, err := table.DealerPlayAndSettle(table.Version+41, now)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int64(1150), table.Seats[0].Bankroll, "no double payout")
}

func TestSplitEights(t *testing.T) {
	// (8,8) vs dealer 5: split produces two hands each starting with one 8,
	// each independently playable, each consuming the bet again.
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("8S"), cc("5D"), cc("8H"), cc("TD"), cc("3C"), cc("2C"), cc("KH"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	origID := seat.Hands[0].ID
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, origID, ActionSplit, now))

	require.Len(t, seat.Hands, 2)
	assert.Equal(t, []Card{cc("8S"), cc("3C")}, seat.Hands[0].Cards)
	assert.Equal(t, []Card{cc("8H"), cc("2C")}, seat.Hands[1].Cards)
	assert.Equal(t, origID, seat.Hands[1].SplitFrom, "sibling back-references its origin")
	assert.Equal(t, uuid.Nil, seat.Hands[0].SplitFrom)
	assert.Equal(t, int64(800), seat.Bankroll, "split reserves the bet a second time")
	assert.Equal(t, int64(200), table.Round.Pot)

	// Both hands play independently, in order.
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionStand, now))
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[1].ID, ActionStand, now))

	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)
	assert.True(t, result.DealerValue.Bust)
	require.Len(t, result.Hands, 2)
	for _, hr := range result.Hands {
		assert.Equal(t, OutcomeWin, hr.Outcome)
		assert.Equal(t, int64(200), hr.Payout)
	}
	assert.Equal(t, int64(1200), seat.Bankroll)
}

func TestSplitHandsHonorDoubleAfterSplitOff(t *testing.T) {
	rules := DefaultRules()
	rules.DoubleAfterSplit = false
	table, seats := riggedTable(t, rules, []int64{1000},
		cc("8S"), cc("5D"), cc("8H"), cc("TD"), cc("3C"), cc("2C"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionSplit, now))

	// Both halves are split-born, the original included.
	require.True(t, seat.Hands[0].Split)
	require.True(t, seat.Hands[1].Split)

	legal := table.LegalActions(seat, seat.Hands[0])
	assert.NotContains(t, legal, ActionDouble)

	err := table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionDouble, now)
	assert.ErrorIs(t, err, ErrIllegalAction, "rule violation, not a funds problem")
	assert.Equal(t, int64(100), seat.Hands[0].Bet)
	assert.Equal(t, int64(800), seat.Bankroll)
}

func TestNoSurrenderAfterSplit(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("8S"), cc("5D"), cc("8H"), cc("TD"), cc("3C"), cc("2C"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionSplit, now))

	legal := table.LegalActions(seat, seat.Hands[0])
	assert.Contains(t, legal, ActionDouble, "double after split is allowed by default")
	assert.NotContains(t, legal, ActionSurrender)

	err := table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionSurrender, now)
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.Equal(t, HandActive, seat.Hands[0].Status)
}

func TestSplitRejectionTaxonomy(t *testing.T) {
	now := testNow()

	// Splitting a non-pair fails structurally even when the bankroll is
	// also short.
	table, seats := riggedTable(t, DefaultRules(), []int64{150},
		cc("9S"), cc("5D"), cc("8H"), cc("TD"))
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))
	err := table.SubmitAction(table.Version, seats[0].ID, table.Seats[0].Hands[0].ID, ActionSplit, now)
	assert.ErrorIs(t, err, ErrIllegalAction)

	// A true pair with the same bankroll is a funds problem.
	table, seats = riggedTable(t, DefaultRules(), []int64{150},
		cc("8S"), cc("5D"), cc("8H"), cc("TD"))
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))
	err = table.SubmitAction(table.Version, seats[0].ID, table.Seats[0].Hands[0].ID, ActionSplit, now)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(50), table.Seats[0].Bankroll, "rejection reserves nothing")
}

func TestInsuranceDeclinedDealerBlackjack(t *testing.T) {
	// Dealer upcard ace, player declines insurance, dealer reveals
	// blackjack: main bet lost, no insurance payout either way.
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("9S"), cc("AH"), cc("7D"), cc("KD"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))
	assert.Equal(t, PhaseInsuranceOffer, table.Round.Phase)

	seat := table.Seats[0]
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionDeclineInsurance, now))
	assert.Equal(t, PhasePlayerTurns, table.Round.Phase)

	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionStand, now))

	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)
	assert.True(t, result.DealerValue.Blackjack)
	assert.Equal(t, OutcomeLose, result.Hands[0].Outcome)
	assert.Empty(t, result.Insurance, "no stake, no insurance row")
	assert.Equal(t, int64(900), seat.Bankroll)
}

func TestInsuranceAcceptedPaysTwoToOne(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("9S"), cc("AH"), cc("7D"), cc("KD"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionInsurance, now))
	assert.Equal(t, int64(850), seat.Bankroll, "half the main bet reserved")

	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionStand, now))
	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)

	require.Len(t, result.Insurance, 1)
	assert.True(t, result.Insurance[0].DealerBlackjack)
	assert.Equal(t, int64(150), result.Insurance[0].Payout, "50 stake back plus 100 at 2:1")
	// Main bet lost, insurance made the seat whole.
	assert.Equal(t, int64(1000), seat.Bankroll)
}

func TestTurnEnforcement(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000, 1000},
		cc("9S"), cc("7H"), cc("8D"), cc("9C"), cc("7D"), cc("5S"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))
	require.NoError(t, table.PlaceBet(seats[1].ID, 100, nil, now))
	require.Equal(t, PhasePlayerTurns, table.Round.Phase)

	seatA, seatB := table.Seats[0], table.Seats[1]

	// A perfectly valid action from the wrong seat is still illegal.
	err := table.SubmitAction(table.Version, seatB.ID, seatB.Hands[0].ID, ActionStand, now)
	assert.ErrorIs(t, err, ErrIllegalAction)
	// Right seat, wrong hand id: same rejection.
	err = table.SubmitAction(table.Version, seatA.ID, seatB.Hands[0].ID, ActionHit, now)
	assert.ErrorIs(t, err, ErrIllegalAction)
	// State unchanged by the rejections.
	assert.Equal(t, 0, table.Round.ActiveSeat)

	require.NoError(t, table.SubmitAction(table.Version, seatA.ID, seatA.Hands[0].ID, ActionStand, now))
	_, active := table.activeHand()
	assert.Equal(t, seatB.Hands[0].ID, active.ID)
}

func TestDuplicateSubmissionIsFlagged(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("9S"), cc("7H"), cc("8D"), cc("TD"), cc("KC"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	handID := seat.Hands[0].ID
	submitted := table.Version
	require.NoError(t, table.SubmitAction(submitted, seat.ID, handID, ActionStand, now))
	table.Version++ // the store bumps on every accepted mutation

	// Redelivery of the identical payload against the advanced round is
	// flagged, never re-applied; the round state stays put.
	err := table.SubmitAction(submitted, seat.ID, handID, ActionStand, now)
	assert.ErrorIs(t, err, ErrDuplicateAction)
	assert.Equal(t, PhaseDealerTurn, table.Round.Phase)

	// A different stale payload is a real conflict.
	err = table.SubmitAction(submitted, seat.ID, handID, ActionHit, now)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestDoubleDown(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("6S"), cc("9C"), cc("5H"), cc("8D"), cc("TS"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	hand := seat.Hands[0]
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, hand.ID, ActionDouble, now))

	assert.Equal(t, HandDoubled, hand.Status)
	assert.Equal(t, int64(200), hand.Bet)
	assert.Len(t, hand.Cards, 3, "double draws exactly one card then stands")
	assert.Equal(t, int64(800), seat.Bankroll)
	assert.Equal(t, PhaseDealerTurn, table.Round.Phase)

	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, result.Hands[0].Outcome)
	assert.Equal(t, int64(400), result.Hands[0].Payout)
	assert.Equal(t, int64(1200), seat.Bankroll)
}

func TestDoubleWithoutFunds(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{150},
		cc("6S"), cc("9C"), cc("5H"), cc("8D"), cc("TS"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	err := table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionDouble, now)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(50), seat.Bankroll, "rejection reserves nothing")
	assert.Equal(t, int64(100), seat.Hands[0].Bet)
}

func TestSurrenderReturnsHalf(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("TS"), cc("9C"), cc("6H"), cc("8D"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	seat := table.Seats[0]
	require.NoError(t, table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, ActionSurrender, now))
	assert.Equal(t, HandSurrendered, seat.Hands[0].Status)

	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSurrender, result.Hands[0].Outcome)
	assert.Equal(t, int64(50), result.Hands[0].Payout)
	assert.Equal(t, int64(950), seat.Bankroll)
	// Every hand surrendered: the dealer never draws past the hole card.
	assert.Len(t, result.DealerCards, 2)
}

func TestBetValidation(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{500})
	now := testNow()
	require.NoError(t, table.StartRound(now))

	err := table.PlaceBet(seats[0].ID, 10_000, nil, now)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	err = table.PlaceBet(seats[0].ID, 50, nil, now)
	assert.ErrorIs(t, err, ErrIllegalAction, "below table minimum")
	err = table.PlaceBet(uuid.New(), 100, nil, now)
	assert.ErrorIs(t, err, ErrInvalidSeat)
	assert.Equal(t, int64(500), table.Seats[0].Bankroll)
}

func TestStartRoundWhileActive(t *testing.T) {
	table, _ := riggedTable(t, DefaultRules(), []int64{500})
	now := testNow()
	require.NoError(t, table.StartRound(now))
	assert.ErrorIs(t, table.StartRound(now), ErrRoundAlreadyActive)
}

func TestJoinLimits(t *testing.T) {
	rules := DefaultRules()
	rules.MaxSeats = 2
	table := NewTable(rules, 1)

	_, err := table.Join("a", 1000)
	require.NoError(t, err)
	_, err = table.Join("b", 0)
	assert.ErrorIs(t, err, ErrInvalidSeat)
	_, err = table.Join("b", 1000)
	require.NoError(t, err)
	_, err = table.Join("c", 1000)
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestBetDeadlineSeatsOutAbsentees(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000, 1000},
		cc("9S"), cc("8D"), cc("9C"), cc("5S"), cc("KH"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	// Second seat never bets; the deadline trigger deals around it.
	changed, err := table.AdvanceDeadline(now.Add(31 * time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, table.Seats[1].SittingOut)
	assert.Empty(t, table.Seats[1].Hands)
	assert.Len(t, table.Seats[0].Hands, 1)
}

func TestActionDeadlineImpliesStand(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("9S"), cc("7H"), cc("8D"), cc("TD"), cc("KC"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	deadline := table.Round.Deadline
	changed, err := table.AdvanceDeadline(deadline.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, changed, "nothing due before the deadline")

	changed, err = table.AdvanceDeadline(deadline.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, HandStood, table.Seats[0].Hands[0].Status)
	assert.Equal(t, PhaseDealerTurn, table.Round.Phase)

	// A late human action after the trigger advanced the state fails as
	// out of turn; it is not treated as a race.
	err = table.SubmitAction(table.Version, seats[0].ID, table.Seats[0].Hands[0].ID, ActionHit, now)
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestInsuranceDeadlineDeclines(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("9S"), cc("AH"), cc("7D"), cc("KD"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))
	require.Equal(t, PhaseInsuranceOffer, table.Round.Phase)

	changed, err := table.AdvanceDeadline(table.Round.Deadline.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PhasePlayerTurns, table.Round.Phase)
	assert.True(t, table.Seats[0].InsuranceDecided)
	assert.Zero(t, table.Seats[0].Insurance)
}

func TestSettlementConservation(t *testing.T) {
	// Two seats, side bets and insurance in play: everything reserved
	// either returns through payouts or stays with the house. No chips are
	// created or destroyed outside the configured ratios.
	table, seats := riggedTable(t, DefaultRules(), []int64{1000, 1000},
		cc("8H"), cc("TS"), cc("AH"), cc("8D"), cc("9H"), cc("KD"), cc("4C"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, []SideBetRequest{
		{Kind: SideBetPerfectPairs, Amount: 25},
	}, now))
	require.NoError(t, table.PlaceBet(seats[1].ID, 200, nil, now))
	require.Equal(t, PhaseInsuranceOffer, table.Round.Phase)

	seatA, seatB := table.Seats[0], table.Seats[1]
	require.NoError(t, table.SubmitAction(table.Version, seatA.ID, seatA.Hands[0].ID, ActionInsurance, now))
	require.NoError(t, table.SubmitAction(table.Version, seatB.ID, seatB.Hands[0].ID, ActionDeclineInsurance, now))
	require.NoError(t, table.SubmitAction(table.Version, seatA.ID, seatA.Hands[0].ID, ActionStand, now))
	require.NoError(t, table.SubmitAction(table.Version, seatB.ID, seatB.Hands[0].ID, ActionStand, now))

	reservedA := int64(100 + 25 + 50) // bet, side bet, insurance
	reservedB := int64(200)
	require.Equal(t, int64(1000)-reservedA, seatA.Bankroll)
	require.Equal(t, int64(1000)-reservedB, seatB.Bankroll)

	result, err := table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)

	var returned int64
	for _, p := range result.Payouts {
		returned += p
	}
	houseTake := (reservedA + reservedB) - returned
	assert.Equal(t, int64(2000)+returned-reservedA-reservedB, seatA.Bankroll+seatB.Bankroll)
	assert.Equal(t, reservedA+reservedB, table.Round.Pot)
	assert.Equal(t, houseTake, table.Round.Pot-returned)

	// Row-level payouts add up to the per-seat totals.
	rowTotal := map[uuid.UUID]int64{}
	for _, hr := range result.Hands {
		rowTotal[hr.SeatID] += hr.Payout
	}
	for _, ir := range result.Insurance {
		rowTotal[ir.SeatID] += ir.Payout
	}
	for _, sr := range result.SideBets {
		rowTotal[sr.SeatID] += sr.Payout
	}
	assert.Equal(t, result.Payouts, rowTotal)
}
