// cmd/blackjack/main.go is a solo-mode terminal host over the table engine:
// one seat, one shoe, advisor hints and a count readout at every decision.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/calebtracey/blackjack/internal/blackjack"
)

type CLI struct {
	Decks  int    `short:"d" help:"Number of decks in the shoe (1-8)" default:"6"`
	BuyIn  int64  `short:"b" help:"Starting bankroll in chips" default:"1000"`
	Bet    int64  `help:"Flat bet per round" default:"100"`
	Seed   *int64 `help:"Shoe shuffle seed (default: current time)"`
	Hints  bool   `help:"Show basic strategy advice at each decision" default:"true" negatable:""`
	Counts bool   `help:"Show the running and true count" default:"true" negatable:""`
	Name   string `help:"Seat name" default:"you"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli)

	var seed int64
	if cli.Seed != nil {
		seed = *cli.Seed
	} else {
		seed = time.Now().UnixNano()
	}

	rules := blackjack.DefaultRules()
	rules.Decks = cli.Decks
	rules.PenetrationCards = cli.Decks * 13 // deal ~75% of the shoe
	if err := rules.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid table rules: %v\n", err)
		ctx.Exit(1)
	}
	if cli.Bet < rules.MinBet {
		rules.MinBet = cli.Bet
	}

	table := blackjack.NewTable(rules, seed)
	seat, err := table.Join(cli.Name, cli.BuyIn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "join: %v\n", err)
		ctx.Exit(1)
	}

	fmt.Printf("Blackjack: %d decks, blackjack pays %d:%d, dealer %s soft 17.\n",
		rules.Decks, rules.BlackjackPayout.Num, rules.BlackjackPayout.Denom,
		map[bool]string{true: "hits", false: "stands on"}[rules.HitSoft17])
	fmt.Printf("Bankroll %d, flat bet %d. Ctrl-D quits.\n\n", seat.Bankroll, cli.Bet)

	in := bufio.NewScanner(os.Stdin)
	for seat.Bankroll >= cli.Bet {
		if err := playRound(table, seat, cli, in); err != nil {
			fmt.Printf("round aborted: %v\n", err)
			break
		}
		if !promptYes(in, "Deal again? [Y/n] ") {
			break
		}
		fmt.Println()
	}
	fmt.Printf("\nFinal bankroll: %d (started with %d)\n", seat.Bankroll, cli.BuyIn)
}

func playRound(table *blackjack.Table, seat *blackjack.Seat, cli CLI, in *bufio.Scanner) error {
	now := time.Now().UTC()
	if err := table.StartRound(now); err != nil {
		return err
	}
	if err := table.PlaceBet(seat.ID, cli.Bet, nil, now); err != nil {
		return err
	}

	showCounts(table, cli)
	fmt.Printf("Dealer shows %s\n", renderCard(table.Dealer[0]))

	// Insurance offer on a dealer ace.
	if table.Round.Phase == blackjack.PhaseInsuranceOffer {
		fmt.Printf("Your hand: %s\n", renderHand(seat.Hands[0]))
		action := blackjack.ActionDeclineInsurance
		if promptYes(in, "Insurance? [y/N] ") {
			action = blackjack.ActionInsurance
		}
		if err := table.SubmitAction(table.Version, seat.ID, seat.Hands[0].ID, action, now); err != nil {
			return err
		}
	}

	for table.Round.Phase == blackjack.PhasePlayerTurns {
		hand := activeHand(table, seat)
		if hand == nil {
			break
		}
		fmt.Printf("\nYour hand: %s\n", renderHand(hand))

		legal := table.LegalActions(seat, hand)
		if cli.Hints {
			fmt.Printf("Advice: %s\n", advise(table, seat, hand))
		}
		action, err := promptAction(in, legal)
		if err != nil {
			return err
		}
		if err := table.SubmitAction(table.Version, seat.ID, hand.ID, action, now); err != nil {
			fmt.Printf("rejected: %v\n", err)
		}
	}

	result, err := table.DealerPlayAndSettle(table.Version, now)
	if err != nil {
		return err
	}

	fmt.Printf("\nDealer: %s (%s)\n", renderCards(result.DealerCards), renderValue(result.DealerValue))
	for _, hr := range result.Hands {
		fmt.Printf("  %s: bet %d, payout %d\n", hr.Outcome, hr.Bet, hr.Payout)
	}
	for _, ir := range result.Insurance {
		fmt.Printf("  insurance: stake %d, payout %d\n", ir.Bet, ir.Payout)
	}
	fmt.Printf("Bankroll: %d\n", seat.Bankroll)
	showCounts(table, cli)
	return nil
}

// activeHand returns the seat's hand under the turn pointer, nil when the
// round has moved past player turns.
func activeHand(table *blackjack.Table, seat *blackjack.Seat) *blackjack.Hand {
	snap := table.Snapshot()
	if snap.Round == nil || snap.Round.ActiveHand == uuid.Nil {
		return nil
	}
	for _, h := range seat.Hands {
		if h.ID == snap.Round.ActiveHand {
			return h
		}
	}
	return nil
}

func advise(table *blackjack.Table, seat *blackjack.Seat, hand *blackjack.Hand) blackjack.Action {
	legal := table.LegalActions(seat, hand)
	opts := blackjack.AdviseOptions{}
	for _, a := range legal {
		switch a {
		case blackjack.ActionDouble:
			opts.CanDouble = true
		case blackjack.ActionSplit:
			opts.CanSplit = true
		case blackjack.ActionSurrender:
			opts.CanSurrender = true
		}
	}
	return blackjack.Advise(table.Rules, hand.Cards, table.Dealer[0], opts)
}

func promptAction(in *bufio.Scanner, legal []blackjack.Action) (blackjack.Action, error) {
	keys := map[string]blackjack.Action{
		"h": blackjack.ActionHit,
		"s": blackjack.ActionStand,
		"d": blackjack.ActionDouble,
		"p": blackjack.ActionSplit,
		"r": blackjack.ActionSurrender,
	}
	names := map[blackjack.Action]string{
		blackjack.ActionHit:       "[h]it",
		blackjack.ActionStand:     "[s]tand",
		blackjack.ActionDouble:    "[d]ouble",
		blackjack.ActionSplit:     "s[p]lit",
		blackjack.ActionSurrender: "sur[r]ender",
	}
	labels := make([]string, 0, len(legal))
	for _, a := range legal {
		labels = append(labels, names[a])
	}
	for {
		fmt.Printf("Action (%s): ", strings.Join(labels, " "))
		if !in.Scan() {
			return "", fmt.Errorf("input closed")
		}
		choice := strings.ToLower(strings.TrimSpace(in.Text()))
		if a, ok := keys[choice]; ok {
			for _, l := range legal {
				if l == a {
					return a, nil
				}
			}
		}
		fmt.Println("not a legal action here")
	}
}

func promptYes(in *bufio.Scanner, prompt string) bool {
	fmt.Print(prompt)
	if !in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(in.Text()))
	return answer == "y" || answer == "yes" || (answer == "" && strings.Contains(prompt, "[Y/n]"))
}

func showCounts(table *blackjack.Table, cli CLI) {
	if !cli.Counts {
		return
	}
	fmt.Printf("[shoe %d cards | running %+d | true %+d]\n",
		table.Shoe.Remaining(), table.Count.Running, table.Count.TrueCount(table.Shoe.Remaining()))
}

func renderHand(h *blackjack.Hand) string {
	v := h.Value()
	return fmt.Sprintf("%s (%s)", renderCards(h.Cards), renderValue(v))
}

func renderValue(v blackjack.HandValue) string {
	switch {
	case v.Blackjack:
		return "blackjack"
	case v.Bust:
		return fmt.Sprintf("bust %d", v.Hard)
	case v.Soft:
		return fmt.Sprintf("soft %d", v.Best)
	default:
		return fmt.Sprintf("%d", v.Best)
	}
}

func renderCards(cards []blackjack.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = renderCard(c)
	}
	return strings.Join(parts, " ")
}

func renderCard(c blackjack.Card) string {
	glyphs := map[blackjack.Suit]string{
		blackjack.SuitSpades:   "♠",
		blackjack.SuitHearts:   "♥",
		blackjack.SuitDiamonds: "♦",
		blackjack.SuitClubs:    "♣",
	}
	return string(c.Rank) + glyphs[c.Suit]
}
