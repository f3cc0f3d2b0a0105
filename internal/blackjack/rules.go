// internal/blackjack/rules.go
package blackjack

import "fmt"

// Payout is a winnings ratio expressed as Num:Denom, e.g. 3:2 blackjack.
// Winnings for a bet b are b*Num/Denom, computed in integer minor units.
type Payout struct {
	Num   int64 `json:"num"`
	Denom int64 `json:"denom"`
}

// Apply returns the winnings (excluding the returned stake) for a bet.
func (p Payout) Apply(bet int64) int64 {
	if p.Denom == 0 {
		return 0
	}
	return bet * p.Num / p.Denom
}

// SideBetKind identifies an auxiliary wager type.
type SideBetKind string

const (
	SideBetPerfectPairs SideBetKind = "perfect_pairs"
	SideBetTwentyOne3   SideBetKind = "twenty_one_plus_three"
)

// PayTable maps a side-bet pattern name to its winnings multiplier.
// A multiplier m pays m:1, i.e. the stake comes back plus stake*m.
type PayTable map[string]int64

// RulesConfig is the immutable description of a table variant. It is fixed at
// table creation; changing rules means creating a new table, never a live
// edit mid-round.
type RulesConfig struct {
	Decks            int  `json:"decks"`
	PenetrationCards int  `json:"penetrationCards"` // reshuffle when remaining <= this
	HitSoft17        bool `json:"hitSoft17"`        // dealer hits soft 17 when true
	DoubleAfterSplit bool `json:"doubleAfterSplit"`
	MaxSplits        int  `json:"maxSplits"` // additional hands allowed per seat
	SurrenderAllowed bool `json:"surrenderAllowed"`
	InsuranceAllowed bool `json:"insuranceAllowed"`

	BlackjackPayout Payout `json:"blackjackPayout"` // 3:2 standard, 6:5 on stingy tables

	MinBet int64 `json:"minBet"` // minor currency units
	MaxBet int64 `json:"maxBet"`

	MaxSeats int `json:"maxSeats"`

	// BetDeadlineSec and ActionDeadlineSec bound how long the table waits in
	// AwaitingBets and on each player decision before the default applies.
	BetDeadlineSec    int `json:"betDeadlineSec"`
	ActionDeadlineSec int `json:"actionDeadlineSec"`

	// SideBets holds the pay table per offered side bet. A kind absent from
	// the map is not offered at the table.
	SideBets map[SideBetKind]PayTable `json:"sideBets"`
}

// DefaultRules is a six-deck, 3:2, dealer-stands-soft-17 table with both
// standard side bets offered.
func DefaultRules() RulesConfig {
	return RulesConfig{
		Decks:             6,
		PenetrationCards:  78, // deal ~75% of a six-deck shoe
		HitSoft17:         false,
		DoubleAfterSplit:  true,
		MaxSplits:         3,
		SurrenderAllowed:  true,
		InsuranceAllowed:  true,
		BlackjackPayout:   Payout{Num: 3, Denom: 2},
		MinBet:            100,
		MaxBet:            100000,
		MaxSeats:          7,
		BetDeadlineSec:    30,
		ActionDeadlineSec: 25,
		SideBets: map[SideBetKind]PayTable{
			SideBetPerfectPairs: {
				PatternMixedPair:   5,
				PatternColoredPair: 12,
				PatternPerfectPair: 25,
			},
			SideBetTwentyOne3: {
				PatternFlush:         5,
				PatternStraight:      10,
				PatternTrips:         30,
				PatternStraightFlush: 40,
				PatternSuitedTrips:   100,
			},
		},
	}
}

// Validate rejects configurations the engine cannot honor.
func (rc RulesConfig) Validate() error {
	if rc.Decks < 1 || rc.Decks > 8 {
		return fmt.Errorf("decks must be between 1 and 8, got %d", rc.Decks)
	}
	if rc.PenetrationCards < 0 || rc.PenetrationCards >= rc.Decks*52 {
		return fmt.Errorf("penetrationCards %d out of range for %d decks", rc.PenetrationCards, rc.Decks)
	}
	if rc.BlackjackPayout.Denom <= 0 || rc.BlackjackPayout.Num <= 0 {
		return fmt.Errorf("blackjack payout ratio must be positive")
	}
	if rc.MinBet <= 0 || rc.MaxBet < rc.MinBet {
		return fmt.Errorf("bet limits invalid: min %d max %d", rc.MinBet, rc.MaxBet)
	}
	if rc.MaxSeats < 1 {
		return fmt.Errorf("maxSeats must be at least 1")
	}
	if rc.MaxSplits < 0 {
		return fmt.Errorf("maxSplits must be non-negative")
	}
	return nil
}

// cloneSideBets deep-copies the pay tables so table clones never alias them.
func (rc RulesConfig) cloneSideBets() map[SideBetKind]PayTable {
	if rc.SideBets == nil {
		return nil
	}
	out := make(map[SideBetKind]PayTable, len(rc.SideBets))
	for kind, table := range rc.SideBets {
		t := make(PayTable, len(table))
		for pattern, mult := range table {
			t[pattern] = mult
		}
		out[kind] = t
	}
	return out
}
