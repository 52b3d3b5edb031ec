package qlearning

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/randutil"
	"github.com/lox/blackjackbots/internal/statistics"
)

// DefaultProgressEvery is how often Run reports progress.
const DefaultProgressEvery = 1000

// TrainingConfig controls an offline training run
type TrainingConfig struct {
	Episodes        int         // episodes to play
	ProgressEvery   int         // progress callback interval, 0 uses 1000
	CheckpointEvery int         // save interval, 0 saves only at the end
	Seed            int64       // 0 seeds from the runtime
	Table           game.Config // rules of the training table
}

// DefaultTrainingConfig returns a 10000 episode run on the default table.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Episodes:      10000,
		ProgressEvery: DefaultProgressEvery,
		Table:         game.DefaultConfig(),
	}
}

// Validate validates the training configuration
func (c TrainingConfig) Validate() error {
	if c.Episodes <= 0 {
		return errors.New("episodes must be > 0")
	}
	if c.ProgressEvery < 0 || c.CheckpointEvery < 0 {
		return errors.New("intervals must be >= 0")
	}
	return c.Table.Validate()
}

// Progress is emitted during a training run.
type Progress struct {
	Episode    int           `json:"episode"`
	Episodes   int           `json:"episodes"`
	Wins       int           `json:"wins"`
	Losses     int           `json:"losses"`
	Pushes     int           `json:"pushes"`
	Naturals   int           `json:"naturals"`
	WinRate    float64       `json:"win_rate"`
	Score      float64       `json:"score"` // wins plus half the pushes, per hand
	MeanReward float64       `json:"mean_reward"`
	Median     float64       `json:"median_reward"`
	CILow      float64       `json:"ci_low"`
	CIHigh     float64       `json:"ci_high"`
	States     int           `json:"states"`
	Updates    int           `json:"terminal_updates"`
	Elapsed    time.Duration `json:"elapsed"`

	// UpCards is the mean reward against each dealer up-card seen so far.
	UpCards map[int]float64 `json:"up_cards,omitempty"`
}

// Trainer plays solo episodes end to end to update an agent's table.
type Trainer struct {
	agent  *Agent
	cfg    TrainingConfig
	logger *log.Logger
	clock  quartz.Clock
}

// TrainerOption configures a Trainer
type TrainerOption func(*Trainer)

// WithTrainerLogger sets the trainer logger
func WithTrainerLogger(l *log.Logger) TrainerOption {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock sets the clock used for elapsed times.
func WithClock(c quartz.Clock) TrainerOption {
	return func(t *Trainer) { t.clock = c }
}

// NewTrainer creates a trainer for agent.
func NewTrainer(agent *Agent, cfg TrainingConfig, opts ...TrainerOption) (*Trainer, error) {
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := agent.Config().Validate(); err != nil {
		return nil, err
	}
	t := &Trainer{
		agent:  agent,
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		clock:  quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run plays the configured number of episodes, reporting progress every
// ProgressEvery episodes and once at the end. The table is saved at each
// checkpoint and when the run finishes, including on cancellation.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) (Progress, error) {
	seed := t.cfg.Seed
	if seed == 0 {
		seed = randutil.Seed()
	}
	rng := randutil.New(seed)
	quiet := log.NewWithOptions(io.Discard, log.Options{})

	var stats statistics.Statistics
	updates := 0
	start := t.clock.Now()
	report := func(episode int) Progress {
		low, high := stats.ConfidenceInterval95()
		p := Progress{
			Episode:    episode,
			Episodes:   t.cfg.Episodes,
			Wins:       stats.Wins,
			Losses:     stats.Losses,
			Pushes:     stats.Pushes,
			Naturals:   stats.Naturals,
			WinRate:    float64(stats.Wins) / float64(max(stats.Hands, 1)),
			Score:      stats.WinRate(),
			MeanReward: stats.Mean(),
			Median:     stats.Median(),
			CILow:      low,
			CIHigh:     high,
			States:     t.agent.Table().Size(),
			Updates:    updates,
			Elapsed:    t.clock.Since(start),
			UpCards:    make(map[int]float64),
		}
		for up := 2; up <= 11; up++ {
			if stats.UpCardResults[up].Hands > 0 {
				p.UpCards[up] = stats.UpCardMean(up)
			}
		}
		return p
	}

	t.logger.Info("Training started", "episodes", t.cfg.Episodes, "epsilon", t.agent.Config().Epsilon)

	var runErr error
	episode := 0
	for episode < t.cfg.Episodes {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		eng := game.NewEngine(t.cfg.Table, game.WithRand(rng), game.WithLogger(quiet))
		result, learned := t.episode(eng, rng)
		stats.Add(result)
		if learned {
			updates++
		}
		episode++

		if t.cfg.CheckpointEvery > 0 && episode%t.cfg.CheckpointEvery == 0 {
			if err := t.agent.Save(ctx); err != nil {
				t.logger.Warn("Checkpoint failed", "episode", episode, "error", err)
			}
		}
		if progress != nil && episode%t.cfg.ProgressEvery == 0 {
			progress(report(episode))
		}
	}

	final := report(episode)
	if progress != nil && episode%t.cfg.ProgressEvery != 0 {
		progress(final)
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := t.agent.Save(saveCtx); err != nil {
		t.logger.Warn("Failed to save Q-table", "error", err)
	}

	if episode > 0 {
		if err := stats.Validate(); err != nil && runErr == nil {
			runErr = fmt.Errorf("training statistics: %w", err)
		}
	}

	t.logger.Info("Training finished", "episodes", episode, "win_rate", final.WinRate,
		"mean_reward", final.MeanReward, "states", final.States, "elapsed", final.Elapsed)
	return final, runErr
}

// episode plays one solo round: bet, act until the hand ends, settle. It
// reports whether a terminal update was made; a round settled on the deal
// has no decision to learn from.
func (t *Trainer) episode(eng *game.Engine, rng *rand.Rand) (statistics.Result, bool) {
	eng.StartNewRound(0, game.Medium)
	s := eng.ConfirmBets()
	epsilon := t.agent.Config().Epsilon

	learned := false
	key, ok := keyForSeat(s)
	for ok && !s.GameOver {
		action := t.agent.choose(rng, key, epsilon)

		var reward float64
		var done bool
		if action == game.Hit {
			s = eng.Hit()
			seat, _ := s.Seat(game.HumanSeatID)
			switch {
			case seat.Busted:
				reward, done = -1, true
			case s.GameOver:
				reward, done = seat.Result.Reward(), true
			}
		} else {
			s = eng.Stand()
			seat, _ := s.Seat(game.HumanSeatID)
			reward, done = seat.Result.Reward(), true
		}

		next, _ := keyForSeat(s)
		t.agent.Learn(key, action, reward, next, done)
		if done {
			learned = true
			break
		}
		key = next
	}

	if !s.GameOver {
		s = eng.Stand()
	}

	seat, _ := s.Seat(game.HumanSeatID)
	return statistics.Result{
		Reward:   seat.Result.Reward(),
		Outcome:  seat.Result,
		DealerUp: s.Dealer.UpCard,
		Natural:  seat.Result == evaluator.Win && len(seat.Cards) == 2 && seat.Value == evaluator.BlackjackValue,
	}, learned
}

// keyForSeat abstracts the human seat of a solo table.
func keyForSeat(s game.Snapshot) (Key, bool) {
	seat, ok := s.Seat(game.HumanSeatID)
	if !ok {
		return Key{}, false
	}
	return NewKey(seat.Value, s.Dealer.UpCard, s.RunningCount), true
}
