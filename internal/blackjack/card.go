// internal/blackjack/card.go
package blackjack

import "fmt"

// Rank is a card rank. Ten is "T" to keep ranks single-character on the wire.
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "T"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Suit is a single-letter suit code: "S", "H", "D", "C".
type Suit string

const (
	SuitSpades   Suit = "S"
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
)

var ranks = []Rank{
	RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
	RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing,
}

var suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Card is an immutable rank+suit value.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// PipValue returns the blackjack value of the card counting an ace as 1.
// The evaluator promotes aces to 11 where that stays at or under 21.
func (c Card) PipValue() int {
	switch c.Rank {
	case RankAce:
		return 1
	case RankTen, RankJack, RankQueen, RankKing:
		return 10
	case RankTwo:
		return 2
	case RankThree:
		return 3
	case RankFour:
		return 4
	case RankFive:
		return 5
	case RankSix:
		return 6
	case RankSeven:
		return 7
	case RankEight:
		return 8
	case RankNine:
		return 9
	}
	return 0
}

// IsRed reports whether the card is a heart or diamond, used by the
// colored-pair side bet tier.
func (c Card) IsRed() bool {
	return c.Suit == SuitHearts || c.Suit == SuitDiamonds
}

// orderIndex positions a rank for straight detection in the 21+3 side bet.
// Ace is high or low there, handled by the resolver.
func (r Rank) orderIndex() int {
	for i, rr := range ranks {
		if rr == r {
			return i
		}
	}
	return -1
}
