package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/simulator"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	hitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	standStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	equalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// OddsCmd estimates win rates for one hand state
type OddsCmd struct {
	Total  int    `short:"t" help:"Player hand total"`
	Dealer int    `short:"d" required:"" help:"Dealer up-card value (2-11, ace is 11)"`
	Soft   bool   `short:"s" help:"The total counts an ace as 11"`
	Cards  string `short:"c" help:"Player cards, e.g. 'As6d'; overrides --total and --soft"`
	Trials int    `short:"i" default:"500" help:"Play-outs per action"`
	Seed   int64  `help:"Random seed for reproducible results"`
}

// state resolves the flags into a simulator state.
func (c *OddsCmd) state() (simulator.State, error) {
	s := simulator.State{Total: c.Total, DealerUp: c.Dealer, Soft: c.Soft}
	if c.Cards != "" {
		cards, err := deck.ParseCards(strings.ReplaceAll(c.Cards, " ", ""))
		if err != nil {
			return s, err
		}
		if len(cards) < 2 {
			return s, errors.New("need at least two cards")
		}
		s.Total = evaluator.Value(cards)
		s.Soft = evaluator.IsSoft(cards)
	}
	if s.Total < 4 || s.Total > 21 {
		return s, fmt.Errorf("total must be between 4 and 21, got %d", s.Total)
	}
	return s, nil
}

func (c *OddsCmd) Run(cli *CLI) error {
	state, err := c.state()
	if err != nil {
		return err
	}
	logger := setupLogger(cli.LogLevel)
	ctx := setupSignalHandler(logger)

	est := simulator.New(simulator.Config{
		Trials: c.Trials,
		Seed:   c.Seed,
		Logger: coreLogger(os.Stderr, cli.LogLevel).WithPrefix("simulator"),
	})

	start := time.Now()
	result, err := est.Simulate(ctx, state)
	if err != nil {
		return err
	}
	displayOdds(result, time.Since(start))
	return nil
}

func displayOdds(e simulator.Estimate, elapsed time.Duration) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Player %s", e.State)))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Action\tWin rate\n")
	fmt.Fprintf(w, "Hit\t%s\n", hitStyle.Render(fmt.Sprintf("%.1f%%", e.Hit*100)))
	fmt.Fprintf(w, "Stand\t%s\n", standStyle.Render(fmt.Sprintf("%.1f%%", e.Stand*100)))
	_ = w.Flush()
	fmt.Println()

	rec := "STAND"
	if e.Recommendation() == game.Hit {
		rec = "HIT"
	}
	basic := "STAND"
	if evaluator.BasicStrategy(e.State.Total, e.State.DealerUp) {
		basic = "HIT"
	}
	fmt.Printf("Recommendation: %s  (basic strategy: %s)\n", headerStyle.Render(rec), basic)
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d trials per action in %s; pushes count as half a win", e.Trials, elapsed.Round(time.Millisecond))))
}
