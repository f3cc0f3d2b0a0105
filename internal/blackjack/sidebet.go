// internal/blackjack/sidebet.go
package blackjack

// Side-bet pattern names, used as pay-table keys and reported in settlement
// records.
const (
	PatternMixedPair   = "mixed_pair"
	PatternColoredPair = "colored_pair"
	PatternPerfectPair = "perfect_pair"

	PatternFlush         = "flush"
	PatternStraight      = "straight"
	PatternTrips         = "trips"
	PatternStraightFlush = "straight_flush"
	PatternSuitedTrips   = "suited_trips"
)

// SideBetWager is one auxiliary wager placed by a seat before the deal. It is
// resolved exactly once, immediately after the initial deal and before any
// player action, so its outcome is independent of the main hand: a later
// surrender or double never touches it.
type SideBetWager struct {
	Kind       SideBetKind `json:"kind"`
	Amount     int64       `json:"amount"`
	Pattern    string      `json:"pattern,omitempty"` // matched pattern, empty if none
	Multiplier int64       `json:"multiplier"`
	Resolved   bool        `json:"resolved"`
}

// resolveSideBet matches a wager against the initial deal and fills in the
// matched pattern and multiplier. A zero multiplier means the stake is lost.
func resolveSideBet(rules RulesConfig, w *SideBetWager, first, second, upcard Card) {
	table, offered := rules.SideBets[w.Kind]
	w.Resolved = true
	if !offered {
		return
	}
	var pattern string
	switch w.Kind {
	case SideBetPerfectPairs:
		pattern = perfectPairsPattern(first, second)
	case SideBetTwentyOne3:
		pattern = twentyOnePlusThreePattern(first, second, upcard)
	}
	if pattern == "" {
		return
	}
	mult, ok := table[pattern]
	if !ok {
		return
	}
	w.Pattern = pattern
	w.Multiplier = mult
}

// perfectPairsPattern classifies the player's first two cards: identical rank
// and suit is a perfect pair, same rank and color a colored pair, same rank
// otherwise a mixed pair.
func perfectPairsPattern(a, b Card) string {
	if a.Rank != b.Rank {
		return ""
	}
	switch {
	case a.Suit == b.Suit:
		return PatternPerfectPair
	case a.IsRed() == b.IsRed():
		return PatternColoredPair
	default:
		return PatternMixedPair
	}
}

// twentyOnePlusThreePattern classifies the player's two cards plus the dealer
// upcard as a three-card poker hand. Highest tier wins; the pay table decides
// what each tier is worth.
func twentyOnePlusThreePattern(a, b, up Card) string {
	cards := [3]Card{a, b, up}

	trips := a.Rank == b.Rank && b.Rank == up.Rank
	flush := a.Suit == b.Suit && b.Suit == up.Suit
	straight := isThreeStraight(cards)

	switch {
	case trips && flush:
		return PatternSuitedTrips
	case straight && flush:
		return PatternStraightFlush
	case trips:
		return PatternTrips
	case straight:
		return PatternStraight
	case flush:
		return PatternFlush
	}
	return ""
}

// isThreeStraight reports whether the three ranks form a run. Ace plays high
// (Q-K-A) or low (A-2-3).
func isThreeStraight(cards [3]Card) bool {
	idx := []int{
		cards[0].Rank.orderIndex(),
		cards[1].Rank.orderIndex(),
		cards[2].Rank.orderIndex(),
	}
	if idx[0] < 0 || idx[1] < 0 || idx[2] < 0 {
		return false
	}
	sort3(idx)
	if idx[0]+1 == idx[1] && idx[1]+1 == idx[2] {
		return true
	}
	// Ace high: indices {0, 11, 12} are A, Q, K.
	return idx[0] == 0 && idx[1] == 11 && idx[2] == 12
}

func sort3(v []int) {
	if v[0] > v[1] {
		v[0], v[1] = v[1], v[0]
	}
	if v[1] > v[2] {
		v[1], v[2] = v[2], v[1]
	}
	if v[0] > v[1] {
		v[0], v[1] = v[1], v[0]
	}
}
