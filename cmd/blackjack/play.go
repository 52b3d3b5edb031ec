package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/lox/blackjackbots/internal/bot"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/simulator"
	"github.com/lox/blackjackbots/internal/tui"
)

// PlayCmd runs a terminal table
type PlayCmd struct {
	TableFlags `embed:""`

	ComputerSeats int    `short:"a" default:"2" help:"Computer seats at the table (0-5)"`
	Difficulty    string `short:"d" default:"medium" enum:"easy,medium,hard" help:"Computer seat difficulty (${enum})"`
	Decks         int    `default:"6" help:"Decks in the shoe"`
	Trials        int    `default:"500" help:"Monte Carlo play-outs per action for odds"`
	LogFile       string `help:"Write debug logs to this file"`
}

func (c *PlayCmd) Run(cli *CLI) error {
	difficulty, err := game.ParseDifficulty(c.Difficulty)
	if err != nil {
		return err
	}
	cfg := game.DefaultConfig()
	cfg.Decks = c.Decks
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The table owns the terminal, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	core := coreLogger(out, cli.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tables, closeTables, err := openTableStore(ctx, c.TablePath, c.RedisURL, c.RedisKey, zerolog.New(out))
	cancel()
	if err != nil {
		return err
	}
	defer closeTables()

	agent := qlearning.New(qlearning.DefaultConfig(),
		qlearning.WithStore(tables),
		qlearning.WithLogger(core.WithPrefix("agent")))
	estimator := simulator.New(simulator.Config{Trials: c.Trials, Decks: c.Decks, Logger: core.WithPrefix("simulator")})
	advisor := bot.NewAdvisor(agent, estimator, bot.WithLogger(core))

	engine := game.NewEngine(cfg, game.WithAgent(advisor), game.WithLogger(core.WithPrefix("engine")))
	model := tui.NewModel(engine,
		tui.WithEstimator(estimator),
		tui.WithLogger(core),
		tui.WithComputerSeats(c.ComputerSeats),
		tui.WithDifficulty(difficulty))

	core.Info("Starting table", "seats", c.ComputerSeats, "difficulty", difficulty, "states", agent.Table().Size())
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
