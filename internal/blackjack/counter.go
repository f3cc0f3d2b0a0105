// internal/blackjack/counter.go
package blackjack

// CountSystem tags each rank with a counting value. Balanced systems sum to
// zero over a full deck.
type CountSystem struct {
	Name string       `json:"name"`
	Tags map[Rank]int `json:"tags"`
}

// HiLo is the standard balanced system: 2-6 count +1, 7-9 count 0, tens and
// aces count -1.
func HiLo() CountSystem {
	return CountSystem{
		Name: "hi-lo",
		Tags: map[Rank]int{
			RankTwo: 1, RankThree: 1, RankFour: 1, RankFive: 1, RankSix: 1,
			RankSeven: 0, RankEight: 0, RankNine: 0,
			RankTen: -1, RankJack: -1, RankQueen: -1, RankKing: -1, RankAce: -1,
		},
	}
}

// CountState is the running tally for one counting system. It observes every
// card that leaves the shoe, including dealer cards and the hole card once
// revealed. It is pure telemetry: nothing in the legality checks reads it.
// It persists across rounds within one shoe lifetime and resets exactly at
// reshuffle, never mid-shoe.
type CountState struct {
	System  CountSystem `json:"system"`
	Running int         `json:"running"`
	Seen    int         `json:"seen"`
}

// NewCountState starts a zeroed count for the given system.
func NewCountState(sys CountSystem) CountState {
	return CountState{System: sys}
}

// Observe folds one dealt card into the running count.
func (c *CountState) Observe(card Card) {
	c.Running += c.System.Tags[card.Rank]
	c.Seen++
}

// Reset zeroes the count. Called only when the shoe reshuffles.
func (c *CountState) Reset() {
	c.Running = 0
	c.Seen = 0
}

// TrueCount normalizes the running count by estimated decks remaining
// (remaining cards / 52). Convention: the result is truncated toward zero,
// and fewer than half a deck remaining is estimated as half a deck to avoid
// division blow-up near the cut card. Affects advisory output only.
func (c *CountState) TrueCount(remaining int) int {
	if remaining <= 0 {
		return c.Running
	}
	// Work in half-decks so a 26-card remainder divides cleanly.
	halfDecks := remaining * 2 / 52
	if halfDecks < 1 {
		halfDecks = 1
	}
	return c.Running * 2 / halfDecks
}
