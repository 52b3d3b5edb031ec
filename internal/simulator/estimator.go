// Package simulator estimates hit and stand win rates by playing out
// randomized hands on disposable game engines.
package simulator

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	rand "math/rand/v2"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/randutil"
)

const (
	// DefaultTrials is the number of play-outs per action.
	DefaultTrials = 500
	// maxWorkers caps parallelism for a single estimate.
	maxWorkers = 8
	// minTrialsPerWorker keeps tiny batches sequential.
	minTrialsPerWorker = 64
)

// State is the abstraction estimates are keyed by
type State struct {
	Total    int  `json:"total"`
	DealerUp int  `json:"dealer_up"`
	Soft     bool `json:"soft"`
}

// String returns the string representation of a state
func (s State) String() string {
	kind := "hard"
	if s.Soft {
		kind = "soft"
	}
	return fmt.Sprintf("%s %d vs %d", kind, s.Total, s.DealerUp)
}

// Estimate holds win probabilities for both actions. A push counts as half
// a win.
type Estimate struct {
	State  State   `json:"state"`
	Hit    float64 `json:"hit_win_rate"`
	Stand  float64 `json:"stand_win_rate"`
	Trials int     `json:"trials"`
}

// Recommendation returns Hit when hitting has the strictly better estimate.
func (e Estimate) Recommendation() game.Action {
	if e.Hit > e.Stand {
		return game.Hit
	}
	return game.Stand
}

// Config holds configuration for the estimator
type Config struct {
	Trials  int   // play-outs per action
	Workers int   // 0 uses the CPU count, capped at 8
	Seed    int64 // 0 seeds from the runtime
	Decks   int   // decks in each fresh shoe
	Logger  *log.Logger
}

// DefaultConfig returns the default estimator configuration
func DefaultConfig() Config {
	return Config{Trials: DefaultTrials, Decks: deck.StandardDecks}
}

// Estimator runs and memoizes Monte Carlo estimates. It is safe for
// concurrent use; concurrent requests for the same state share one run.
type Estimator struct {
	config Config
	logger *log.Logger
	table  game.Config

	mu    sync.RWMutex
	cache map[State]Estimate
	group singleflight.Group
}

// New creates a new estimator with the given configuration
func New(config Config) *Estimator {
	if config.Trials <= 0 {
		config.Trials = DefaultTrials
	}
	if config.Decks <= 0 {
		config.Decks = deck.StandardDecks
	}
	if config.Workers <= 0 {
		config.Workers = min(runtime.NumCPU(), maxWorkers)
	}
	if config.Seed == 0 {
		config.Seed = randutil.Seed()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	table := game.DefaultConfig()
	table.Decks = config.Decks
	table.ReshuffleThreshold = 0

	return &Estimator{
		config: config,
		logger: logger,
		table:  table,
		cache:  make(map[State]Estimate),
	}
}

// Estimate returns the memoized estimate for a state, simulating it on the
// first request. A state that cannot be simulated is logged and yields zero
// rates without being cached.
func (e *Estimator) Estimate(s State) Estimate {
	e.mu.RLock()
	est, ok := e.cache[s]
	e.mu.RUnlock()
	if ok {
		return est
	}

	v, err, _ := e.group.Do(s.String(), func() (any, error) {
		e.mu.RLock()
		est, ok := e.cache[s]
		e.mu.RUnlock()
		if ok {
			return est, nil
		}
		est, err := e.Simulate(context.Background(), s)
		if err != nil {
			return Estimate{State: s}, err
		}
		e.mu.Lock()
		e.cache[s] = est
		e.mu.Unlock()
		return est, nil
	})
	if err != nil {
		e.logger.Warn("Estimate failed", "state", s, "error", err)
	}
	return v.(Estimate)
}

// CacheSize returns the number of memoized states
func (e *Estimator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// Simulate runs a fresh estimate without touching the cache. Trials are
// spread over workers, each with its own random stream derived from the
// seed and the state, so results do not depend on scheduling.
func (e *Estimator) Simulate(ctx context.Context, s State) (Estimate, error) {
	player, err := Synthesize(s.Total, s.Soft)
	if err != nil {
		return Estimate{State: s}, err
	}
	upRank, ok := deck.RankForValue(s.DealerUp)
	if !ok {
		return Estimate{State: s}, fmt.Errorf("invalid dealer up-card value %d", s.DealerUp)
	}
	up := deck.NewCard(deck.Clubs, upRank)
	seed := e.config.Seed ^ stateHash(s)

	trials := e.config.Trials
	workers := min(e.config.Workers, max(1, trials/minTrialsPerWorker))

	var hit, stand float64
	if workers == 1 {
		hit, stand, err = e.run(ctx, player, up, trials, randutil.Stream(seed, 0))
		if err != nil {
			return Estimate{State: s}, err
		}
	} else {
		type tally struct{ hit, stand float64 }
		results := make([]tally, workers)
		g, gctx := errgroup.WithContext(ctx)
		per, remainder := trials/workers, trials%workers
		for w := 0; w < workers; w++ {
			n := per
			if w < remainder {
				n++
			}
			g.Go(func() error {
				h, st, err := e.run(gctx, player, up, n, randutil.Stream(seed, w))
				results[w] = tally{h, st}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return Estimate{State: s}, err
		}
		for _, r := range results {
			hit += r.hit
			stand += r.stand
		}
	}

	est := Estimate{
		State:  s,
		Hit:    hit / float64(trials),
		Stand:  stand / float64(trials),
		Trials: trials,
	}
	e.logger.Debug("Simulated state", "state", s, "hit", est.Hit, "stand", est.Stand, "workers", workers)
	return est, nil
}

// run plays n trials of each action and returns the summed scores.
func (e *Estimator) run(ctx context.Context, player []deck.Card, up deck.Card, n int, rng *rand.Rand) (float64, float64, error) {
	var hit, stand float64
	for i := 0; i < n; i++ {
		if i%minTrialsPerWorker == 0 {
			if err := ctx.Err(); err != nil {
				return 0, 0, err
			}
		}
		hit += e.trial(player, up, true, rng).Score()
		stand += e.trial(player, up, false, rng).Score()
	}
	return hit, stand, nil
}

// trial plays one hand on an isolated engine with a full fresh shoe.
func (e *Estimator) trial(player []deck.Card, up deck.Card, hit bool, rng *rand.Rand) evaluator.Outcome {
	eng := game.NewEngine(e.table, game.WithRand(rng), game.WithLogger(e.logger))
	s := eng.StartScenario(player, up)
	if hit {
		s = eng.Hit()
	}
	if !s.GameOver {
		s = eng.Stand()
	}
	seat, ok := s.Seat(game.ScenarioSeatID)
	if !ok || !seat.Settled {
		return evaluator.Loss
	}
	return seat.Result
}

func stateHash(s State) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%d/%t", s.Total, s.DealerUp, s.Soft)
	return int64(h.Sum64())
}
