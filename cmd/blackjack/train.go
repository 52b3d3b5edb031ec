package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
)

// TrainCmd runs offline self-play training
type TrainCmd struct {
	TableFlags `embed:""`

	Episodes   int     `short:"n" default:"10000" help:"Episodes to play"`
	Checkpoint int     `default:"0" help:"Save every N episodes instead of after every episode"`
	NoAutosave bool    `help:"Only save at checkpoints and at the end"`
	Progress   int     `default:"1000" help:"Report progress every N episodes"`
	Alpha      float64 `default:"0.1" help:"Learning rate"`
	Gamma      float64 `default:"0.9" help:"Discount factor"`
	Epsilon    float64 `default:"0.1" help:"Exploration rate"`
	Decks      int     `default:"6" help:"Decks in the training shoe"`
	Seed       int64   `help:"Deterministic RNG seed (optional)"`
}

func (c *TrainCmd) Run(cli *CLI) error {
	logger := setupLogger(cli.LogLevel)
	core := coreLogger(os.Stderr, cli.LogLevel)
	ctx := setupSignalHandler(logger)

	tables, closeTables, err := openTableStore(ctx, c.TablePath, c.RedisURL, c.RedisKey, logger)
	if err != nil {
		return err
	}
	defer closeTables()

	agentCfg := qlearning.Config{Alpha: c.Alpha, Gamma: c.Gamma, Epsilon: c.Epsilon, Seed: c.Seed}
	if err := agentCfg.Validate(); err != nil {
		return err
	}
	agent := qlearning.New(agentCfg,
		qlearning.WithStore(tables),
		qlearning.WithLogger(core.WithPrefix("agent")),
		qlearning.WithAutosave(c.autosave()))

	table := game.DefaultConfig()
	table.Decks = c.Decks
	trainer, err := qlearning.NewTrainer(agent, qlearning.TrainingConfig{
		Episodes:        c.Episodes,
		ProgressEvery:   c.Progress,
		CheckpointEvery: c.Checkpoint,
		Seed:            c.Seed,
		Table:           table,
	}, qlearning.WithTrainerLogger(core.WithPrefix("trainer")))
	if err != nil {
		return err
	}

	logger.Info().Int("episodes", c.Episodes).Int("known_states", agent.Table().Size()).Msg("Training")
	final, err := trainer.Run(ctx, func(p qlearning.Progress) {
		logger.Info().
			Int("episode", p.Episode).
			Float64("win_rate", p.WinRate).
			Float64("mean_reward", p.MeanReward).
			Str("ci95", fmt.Sprintf("[%.3f, %.3f]", p.CILow, p.CIHigh)).
			Int("states", p.States).
			Msg("Progress")
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Printf("Episodes:    %d/%d\n", final.Episode, final.Episodes)
	fmt.Printf("Win rate:    %.1f%% (%d wins, %d losses, %d pushes)\n", final.WinRate*100, final.Wins, final.Losses, final.Pushes)
	fmt.Printf("Score:       %.3f per hand, pushes count half\n", final.Score)
	fmt.Printf("Mean reward: %.3f (95%% CI %.3f to %.3f), median %.1f\n", final.MeanReward, final.CILow, final.CIHigh, final.Median)
	fmt.Printf("Naturals:    %d\n", final.Naturals)
	fmt.Printf("States:      %d (%d terminal updates)\n", final.States, final.Updates)
	fmt.Printf("Elapsed:     %s\n", final.Elapsed.Round(time.Millisecond))
	displayUpCards(final.UpCards)
	return nil
}

func displayUpCards(means map[int]float64) {
	if len(means) == 0 {
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Dealer up\tMean reward")
	for up := 2; up <= 11; up++ {
		if mean, ok := means[up]; ok {
			fmt.Fprintf(w, "%s\t%+.3f\n", upCardLabel(up), mean)
		}
	}
	_ = w.Flush()
}

// autosave is on unless checkpoints are requested or it is turned off.
func (c *TrainCmd) autosave() bool {
	return !c.NoAutosave && c.Checkpoint == 0
}
