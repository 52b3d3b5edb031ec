// Package qlearning implements a tabular Q-learning agent for the
// stand/hit decision, its persistence stores and an offline trainer.
package qlearning

import (
	"context"
	"errors"
	"io"
	rand "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/randutil"
)

// Config holds the learning parameters
type Config struct {
	Alpha   float64 // learning rate
	Gamma   float64 // discount factor
	Epsilon float64 // exploration rate
	Seed    int64   // 0 seeds from the runtime
}

// DefaultConfig returns alpha 0.1, gamma 0.9 and epsilon 0.1.
func DefaultConfig() Config {
	return Config{Alpha: 0.1, Gamma: 0.9, Epsilon: 0.1}
}

// Validate validates the learning parameters
func (c Config) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return errors.New("alpha must be in (0, 1]")
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return errors.New("gamma must be in [0, 1]")
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return errors.New("epsilon must be in [0, 1]")
	}
	return nil
}

// storeTimeout bounds a single load or save.
const storeTimeout = 5 * time.Second

// Option configures an Agent
type Option func(*Agent)

// WithStore sets the store the table is loaded from and saved to.
func WithStore(s Store) Option {
	return func(a *Agent) { a.store = s }
}

// WithLogger sets the agent logger
func WithLogger(l *log.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithAutosave controls whether terminal updates save the table.
func WithAutosave(enabled bool) Option {
	return func(a *Agent) { a.autosave.Store(enabled) }
}

// Agent is an epsilon-greedy tabular learner. It is safe for concurrent use
// by many tables; rows are locked individually and saves are serialised by
// the store.
type Agent struct {
	cfg    Config
	table  *Table
	store  Store
	logger *log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	autosave atomic.Bool
}

// New creates an agent and loads its table from the configured store.
// Load failures are logged and leave the table empty.
func New(cfg Config, opts ...Option) *Agent {
	a := &Agent{
		cfg:    cfg,
		table:  NewTable(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	a.autosave.Store(true)
	for _, opt := range opts {
		opt(a)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = randutil.Seed()
	}
	a.rng = randutil.New(seed)

	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := a.Load(ctx); err != nil {
			a.logger.Warn("Failed to load Q-table, starting empty", "error", err)
		}
	}
	return a
}

// Config returns the learning parameters
func (a *Agent) Config() Config { return a.cfg }

// Table returns the underlying table
func (a *Agent) Table() *Table { return a.table }

// QValues returns the action values for a state, creating the row if it
// has not been seen.
func (a *Agent) QValues(k Key) Values {
	return a.table.Get(k).Values()
}

// Greedy returns the highest-valued action; ties favour Stand.
func (a *Agent) Greedy(k Key) game.Action {
	return a.QValues(k).Best()
}

// ChooseAction picks a uniformly random action with probability epsilon
// and the greedy action otherwise.
func (a *Agent) ChooseAction(k Key, epsilon float64) game.Action {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return a.choose(a.rng, k, epsilon)
}

func (a *Agent) choose(rng *rand.Rand, k Key, epsilon float64) game.Action {
	if rng.Float64() < epsilon {
		if rng.IntN(2) == 0 {
			return game.Stand
		}
		return game.Hit
	}
	return a.Greedy(k)
}

// Learn applies one update and, on terminal steps, saves the table when
// autosave is on. Save failures are logged.
func (a *Agent) Learn(k Key, action game.Action, reward float64, next Key, done bool) {
	a.update(k, action, reward, next, done)
	if done && a.autosave.Load() && a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := a.Save(ctx); err != nil {
			a.logger.Warn("Failed to save Q-table", "error", err)
		}
	}
}

// update is the one-step rule Q(s,a) += alpha * (target - Q(s,a)).
func (a *Agent) update(k Key, action game.Action, reward float64, next Key, done bool) float64 {
	if action != game.Hit {
		action = game.Stand
	}
	target := reward
	if !done {
		target += a.cfg.Gamma * a.table.Get(next).Values().Max()
	}
	return a.table.Get(k).update(action, target, a.cfg.Alpha)
}

// Save writes the table to the store.
func (a *Agent) Save(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Save(ctx, a.table.Snapshot())
}

// Load replaces the table with the store's contents.
func (a *Agent) Load(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	rows, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	a.table.Replace(rows)
	a.logger.Debug("Loaded Q-table", "states", len(rows))
	return nil
}
