// internal/blackjack/strategy.go
package blackjack

// Basic strategy advisor. Chart cells encode a primary action plus the
// fallback to use when the primary is not currently legal (double with three
// cards, surrender not offered, split cap reached). The advisor never gates
// legality; the round machine does its own checks.

type chartCell int

const (
	chartHit chartCell = iota
	chartStand
	chartDoubleHit      // double, else hit
	chartDoubleStand    // double, else stand
	chartSplit          // split, else play as the corresponding total
	chartSurrenderHit   // surrender, else hit
	chartSurrenderStand // surrender, else stand
)

// AdviseOptions tells the advisor which of the conditional actions are legal
// right now. Hit and stand are assumed always available on an active hand.
type AdviseOptions struct {
	CanDouble    bool
	CanSplit     bool
	CanSurrender bool
}

// Advise recommends an action for the player's hand against the dealer
// upcard under the given rules. For a fixed rules config and hand class the
// result is always the same. Fallback precedence when the charted action is
// unavailable: surrender > split > double > hit/stand.
func Advise(rules RulesConfig, cards []Card, upcard Card, opts AdviseOptions) Action {
	up := upcardValue(upcard)

	if opts.CanSplit && len(cards) == 2 && cards[0].Rank == cards[1].Rank {
		if pairChart(rules, cards[0], up) {
			return ActionSplit
		}
	}

	v := Evaluate(cards)
	var cell chartCell
	if v.Soft {
		cell = softChart(rules, v.Best, up)
	} else {
		cell = hardChart(rules, v.Best, up)
	}
	return resolveCell(cell, opts)
}

func resolveCell(cell chartCell, opts AdviseOptions) Action {
	switch cell {
	case chartStand:
		return ActionStand
	case chartDoubleHit:
		if opts.CanDouble {
			return ActionDouble
		}
		return ActionHit
	case chartDoubleStand:
		if opts.CanDouble {
			return ActionDouble
		}
		return ActionStand
	case chartSurrenderHit:
		if opts.CanSurrender {
			return ActionSurrender
		}
		return ActionHit
	case chartSurrenderStand:
		if opts.CanSurrender {
			return ActionSurrender
		}
		return ActionStand
	default:
		return ActionHit
	}
}

// upcardValue indexes the dealer upcard 2..11, ace high.
func upcardValue(c Card) int {
	if c.Rank == RankAce {
		return 11
	}
	return c.PipValue()
}

// hardChart covers hard totals 4-21.
func hardChart(rules RulesConfig, total, up int) chartCell {
	switch {
	case total >= 18:
		return chartStand
	case total == 17:
		if rules.HitSoft17 && up == 11 {
			return chartSurrenderStand
		}
		return chartStand
	case total >= 13: // 13-16
		if up <= 6 {
			return chartStand
		}
		if total == 16 && up >= 9 {
			return chartSurrenderHit
		}
		if total == 15 && (up == 10 || (rules.HitSoft17 && up == 11)) {
			return chartSurrenderHit
		}
		return chartHit
	case total == 12:
		if up >= 4 && up <= 6 {
			return chartStand
		}
		return chartHit
	case total == 11:
		if up == 11 && !rules.HitSoft17 {
			return chartHit
		}
		return chartDoubleHit
	case total == 10:
		if up <= 9 {
			return chartDoubleHit
		}
		return chartHit
	case total == 9:
		if up >= 3 && up <= 6 {
			return chartDoubleHit
		}
		return chartHit
	default: // 4-8
		return chartHit
	}
}

// softChart covers soft totals 13-21 (A counted as 11).
func softChart(rules RulesConfig, total, up int) chartCell {
	switch total {
	case 13, 14:
		if up == 5 || up == 6 {
			return chartDoubleHit
		}
		return chartHit
	case 15, 16:
		if up >= 4 && up <= 6 {
			return chartDoubleHit
		}
		return chartHit
	case 17:
		if up >= 3 && up <= 6 {
			return chartDoubleHit
		}
		return chartHit
	case 18:
		switch {
		case up == 2:
			if rules.HitSoft17 {
				return chartDoubleStand
			}
			return chartStand
		case up >= 3 && up <= 6:
			return chartDoubleStand
		case up == 7 || up == 8:
			return chartStand
		default: // 9, 10, A
			return chartHit
		}
	case 19:
		if rules.HitSoft17 && up == 6 {
			return chartDoubleStand
		}
		return chartStand
	default: // 20, 21
		return chartStand
	}
}

// pairChart reports whether the pair should be split against the upcard.
// Non-split pairs fall through to the hard/soft charts on their total.
func pairChart(rules RulesConfig, card Card, up int) bool {
	switch card.Rank {
	case RankAce, RankEight:
		return true
	case RankNine:
		return up != 7 && up != 10 && up != 11
	case RankSeven:
		return up <= 7
	case RankSix:
		if up == 2 {
			return rules.DoubleAfterSplit
		}
		return up >= 3 && up <= 6
	case RankFour:
		return rules.DoubleAfterSplit && (up == 5 || up == 6)
	case RankTwo, RankThree:
		if up == 2 || up == 3 {
			return rules.DoubleAfterSplit
		}
		return up >= 4 && up <= 7
	default:
		// Tens and fives never split; play the total.
		return false
	}
}
