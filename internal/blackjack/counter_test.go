// internal/blackjack/counter_test.go
package blackjack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHiLoBalancedOverFullShoe(t *testing.T) {
	// A balanced system sums to zero over any whole number of decks.
	for _, decks := range []int{1, 2, 6} {
		s := NewShoe(decks, 0, 1)
		s.Shuffle()
		count := NewCountState(HiLo())
		for {
			c, err := s.Draw()
			if err != nil {
				break
			}
			count.Observe(c)
		}
		assert.Equalf(t, 0, count.Running, "%d decks", decks)
		assert.Equal(t, decks*52, count.Seen)
	}
}

func TestHiLoTags(t *testing.T) {
	count := NewCountState(HiLo())
	count.Observe(cc("2S"))
	count.Observe(cc("6D"))
	assert.Equal(t, 2, count.Running)
	count.Observe(cc("8C"))
	assert.Equal(t, 2, count.Running)
	count.Observe(cc("KH"))
	count.Observe(cc("AS"))
	assert.Equal(t, 0, count.Running)
	assert.Equal(t, 5, count.Seen)
}

func TestTrueCountTruncatesTowardZero(t *testing.T) {
	count := NewCountState(HiLo())
	count.Running = 7

	// Two decks remaining: 7/2 truncates to 3.
	assert.Equal(t, 3, count.TrueCount(104))
	// One deck remaining.
	assert.Equal(t, 7, count.TrueCount(52))
	// Half a deck remaining divides by 0.5.
	assert.Equal(t, 14, count.TrueCount(26))

	count.Running = -7
	assert.Equal(t, -3, count.TrueCount(104))
}

func TestTrueCountNearCutCard(t *testing.T) {
	count := NewCountState(HiLo())
	count.Running = 4
	// Under half a deck remaining is estimated as half a deck.
	assert.Equal(t, 8, count.TrueCount(10))
	assert.Equal(t, 4, count.TrueCount(0))
}

func TestCountResetsOnlyAtReshuffle(t *testing.T) {
	rules := DefaultRules()
	rules.Decks = 1
	rules.PenetrationCards = 48
	rules.MinBet = 10

	table := NewTable(rules, 9)
	seat, err := table.Join("ada", 10000)
	require.NoError(t, err)

	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seat.ID, 100, nil, now))
	// All seats bet, so the deal already happened and cards were counted.
	require.Greater(t, table.Count.Seen, 0)

	// Finish the round however it stands.
	late := now
	for table.Round.Phase == PhaseInsuranceOffer || table.Round.Phase == PhasePlayerTurns {
		late = late.Add(1000 * time.Second)
		changed, err := table.AdvanceDeadline(late)
		require.NoError(t, err)
		require.True(t, changed)
	}
	_, err = table.dealerPlayAndSettle(now)
	require.NoError(t, err)

	// Remaining is now below the aggressive penetration threshold, so the
	// next round starts from a fresh shoe and a zero count.
	require.True(t, table.Shoe.NeedsReshuffle())
	require.NoError(t, table.StartRound(now))
	assert.Equal(t, 0, table.Count.Running)
	assert.Equal(t, 0, table.Count.Seen)
	assert.Equal(t, 52, table.Shoe.Remaining())
}
