// internal/blackjack/snapshot_test.go
package blackjack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotHidesHoleCardUntilReveal(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("9S"), cc("7H"), cc("8D"), cc("QD"), cc("KC"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	snap := table.Snapshot()
	require.Len(t, snap.Dealer, 1, "only the upcard before reveal")
	assert.Equal(t, cc("7H"), snap.Dealer[0])

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), `"Q"`), "hole card leaked into snapshot JSON")

	// The table's own JSON form never carries the shoe or dealer cards.
	rawTable, err := json.Marshal(table)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(rawTable), `"Q"`))
	assert.False(t, strings.Contains(string(rawTable), `"K"`), "undealt shoe cards leaked")

	require.NoError(t, table.SubmitAction(table.Version, seats[0].ID, table.Seats[0].Hands[0].ID, ActionStand, now))
	_, err = table.DealerPlayAndSettle(table.Version, now)
	require.NoError(t, err)

	snap = table.Snapshot()
	assert.True(t, snap.HoleRevealed)
	assert.GreaterOrEqual(t, len(snap.Dealer), 2, "full dealer hand after reveal")
}

func TestSnapshotAdvertisesActiveHandOptions(t *testing.T) {
	table, seats := riggedTable(t, DefaultRules(), []int64{1000},
		cc("8S"), cc("6H"), cc("8D"), cc("QD"), cc("KC"))
	now := testNow()
	require.NoError(t, table.StartRound(now))
	require.NoError(t, table.PlaceBet(seats[0].ID, 100, nil, now))

	snap := table.Snapshot()
	require.Len(t, snap.Seats, 1)
	require.Len(t, snap.Seats[0].Hands, 1)
	hand := snap.Seats[0].Hands[0]

	assert.Equal(t, snap.Round.ActiveHand, hand.ID)
	assert.Contains(t, hand.LegalActions, ActionSplit, "pair of eights can split")
	assert.Equal(t, ActionSplit, hand.Advice, "eights split against a six")
	assert.Equal(t, snap.Version, table.Version)
}
