// internal/blackjack/shoe.go
package blackjack

import "math/rand"

// Shoe holds the ordered cards of one or more decks plus a draw cursor.
// Cards behind the cursor have been dealt; a reshuffle resets the cursor and
// re-permutes every card. Reshuffles only happen between rounds (the table
// checks NeedsReshuffle when a round closes), never mid-hand.
type Shoe struct {
	cards       []Card
	cursor      int
	penetration int // remaining-card count at or below which a reshuffle is due
	seed        int64
	shuffles    int // shuffles performed since construction, for clone replay
	rng         *rand.Rand
}

// NewShoe builds a fresh ordered shoe of decks*52 cards. The shoe is not
// shuffled until Shuffle is called.
func NewShoe(decks, penetration int, seed int64) *Shoe {
	if decks <= 0 {
		decks = 1
	}
	cards := make([]Card, 0, decks*52)
	for d := 0; d < decks; d++ {
		for _, s := range suits {
			for _, r := range ranks {
				cards = append(cards, Card{Rank: r, Suit: s})
			}
		}
	}
	return &Shoe{
		cards:       cards,
		penetration: penetration,
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Shuffle performs a Fisher-Yates permutation over all cards, including any
// already dealt, and resets the cursor.
func (s *Shoe) Shuffle() {
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
	s.cursor = 0
	s.shuffles++
}

// Draw returns the next card and advances the cursor. It fails with
// ErrShoeExhausted when no cards remain; given the penetration policy this
// is an invariant violation, not a normal outcome.
func (s *Shoe) Draw() (Card, error) {
	if s.cursor >= len(s.cards) {
		return Card{}, ErrShoeExhausted
	}
	c := s.cards[s.cursor]
	s.cursor++
	return c, nil
}

// Remaining reports how many undealt cards are left.
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.cursor
}

// Size reports the total card count of the shoe.
func (s *Shoe) Size() int {
	return len(s.cards)
}

// NeedsReshuffle is true once the remaining cards are at or below the
// configured penetration threshold.
func (s *Shoe) NeedsReshuffle() bool {
	return s.Remaining() <= s.penetration
}

// clone copies the shoe without touching the parent's generator: the child
// rng is rebuilt from the seed and fast-forwarded past the shuffles already
// performed, so parent and clone produce identical future shuffle sequences
// and cloning never perturbs the parent.
func (s *Shoe) clone() *Shoe {
	cards := make([]Card, len(s.cards))
	copy(cards, s.cards)
	rng := rand.New(rand.NewSource(s.seed))
	for i := 0; i < s.shuffles; i++ {
		rng.Shuffle(len(s.cards), func(int, int) {})
	}
	return &Shoe{
		cards:       cards,
		cursor:      s.cursor,
		penetration: s.penetration,
		seed:        s.seed,
		shuffles:    s.shuffles,
		rng:         rng,
	}
}
