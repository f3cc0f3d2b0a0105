// internal/blackjack/evaluate.go
package blackjack

// HandValue is the full evaluation of a card sequence. Evaluate is pure and
// deterministic so settlements can be re-validated or replayed.
type HandValue struct {
	// Hard is the minimal total, counting every ace as 1.
	Hard int `json:"hard"`
	// Best is the highest total <= 21 if one exists, otherwise Hard.
	Best int `json:"best"`
	// Soft is true when Best counts an ace as 11.
	Soft bool `json:"soft"`
	// Blackjack is true for exactly two cards totaling 21. The round machine
	// masks this for hands created by a split.
	Blackjack bool `json:"blackjack"`
	// Bust is true when even the minimal total exceeds 21.
	Bust bool `json:"bust"`
}

// Evaluate computes the value of a hand. Aces count as 1 or 11; at most one
// ace can ever count as 11 without busting, so the promotion is a single +10.
func Evaluate(cards []Card) HandValue {
	hard := 0
	aces := 0
	for _, c := range cards {
		hard += c.PipValue()
		if c.Rank == RankAce {
			aces++
		}
	}

	v := HandValue{Hard: hard, Best: hard}
	if aces > 0 && hard+10 <= 21 {
		v.Best = hard + 10
		v.Soft = true
	}
	v.Bust = v.Hard > 21
	v.Blackjack = len(cards) == 2 && v.Best == 21
	return v
}
