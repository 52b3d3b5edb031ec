package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/qlearning"
)

// StrategyCmd prints the learned policy
type StrategyCmd struct {
	TableFlags `embed:""`

	Total  int `help:"Show per-count q-values for this player total (needs --dealer)"`
	Dealer int `help:"Dealer card for --total"`
}

func (c *StrategyCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables, closeTables, err := openTableStore(ctx, c.TablePath, c.RedisURL, c.RedisKey, logger)
	if err != nil {
		return err
	}
	defer closeTables()

	rows, err := tables.Load(ctx)
	if err != nil {
		return fmt.Errorf("load q-table: %w", err)
	}
	agent := qlearning.New(qlearning.DefaultConfig())
	agent.Table().Replace(rows)
	if agent.Table().Size() == 0 {
		fmt.Fprintln(os.Stderr, "No learned states yet, run 'blackjack train' first")
	}

	if c.Total != 0 {
		if c.Dealer == 0 {
			return fmt.Errorf("--total needs --dealer")
		}
		displayDetails(c.Total, c.Dealer, agent.Details(c.Total, c.Dealer))
		return nil
	}

	displayHeatmap(agent.Heatmap())
	fmt.Println()
	displayComparison(agent.CompareWithBasicStrategy())
	return nil
}

func displayHeatmap(rows [][]int) {
	fmt.Println(headerStyle.Render("Learned policy (H hit, S stand, = no preference)"))
	var b strings.Builder
	b.WriteString("     ")
	for d := qlearning.MinDealerCard; d <= qlearning.MaxDealerCard; d++ {
		fmt.Fprintf(&b, "%3s", upCardLabel(d))
	}
	fmt.Println(dimStyle.Render(b.String()))

	for i, row := range rows {
		b.Reset()
		fmt.Fprintf(&b, "%4d ", qlearning.MinPlayerTotal+i)
		for _, cell := range row {
			switch cell {
			case qlearning.CellHit:
				b.WriteString(hitStyle.Render("  H"))
			case qlearning.CellStand:
				b.WriteString(standStyle.Render("  S"))
			default:
				b.WriteString(equalStyle.Render("  ="))
			}
		}
		fmt.Println(b.String())
	}
}

func displayComparison(c qlearning.Comparison) {
	fmt.Printf("Agreement with basic strategy: %s (%d of %d states)\n",
		headerStyle.Render(fmt.Sprintf("%.1f%%", c.Accuracy)), c.Matches, c.Total)
	for _, d := range c.Differences {
		fmt.Printf("  %2d vs %-2d basic %-5s learned %-5s q=[%.3f %.3f]\n",
			d.PlayerTotal, d.DealerCard, d.Basic, d.Learned, d.QValues[0], d.QValues[1])
	}
}

func displayDetails(total, dealer int, details map[string]qlearning.Detail) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Player %d vs dealer %d", total, dealer)))
	for _, b := range counter.Buckets {
		name := b.String()
		d := details[name]
		fmt.Printf("  %-9s stand %7.3f  hit %7.3f  -> %-5s (confidence %.3f)\n", name, d.QStand, d.QHit, d.Optimal, d.Confidence)
	}
}

// upCardLabel prints a dealer card value, with 11 as "A".
func upCardLabel(v int) string {
	if v == 11 {
		return "A"
	}
	return fmt.Sprint(v)
}
