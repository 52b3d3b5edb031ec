// Package bot decides for computer seats by combining the Q-table, the
// Monte Carlo estimator and the Hi-Lo count.
package bot

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/simulator"
)

// Strategy labels written to the decision log.
const (
	StrategyCounting   = "Card Counting"
	StrategyMonteCarlo = "Monte Carlo"
	StrategyQLearning  = "Q-Learning"
)

// countingThreshold is the absolute running count at which the count is
// credited for a decision.
const countingThreshold = 2

// Advisor implements game.Agent. The Q-table picks the action; the
// estimator only supplies the logged rationale.
type Advisor struct {
	agent     *qlearning.Agent
	estimator *simulator.Estimator
	logger    *log.Logger
}

// Option configures an Advisor
type Option func(*Advisor)

// WithLogger sets the advisor logger
func WithLogger(l *log.Logger) Option {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l.WithPrefix("advisor")
		}
	}
}

// NewAdvisor creates an advisor over a shared agent and estimator.
func NewAdvisor(agent *qlearning.Agent, estimator *simulator.Estimator, opts ...Option) *Advisor {
	a := &Advisor{
		agent:     agent,
		estimator: estimator,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ game.Agent = (*Advisor)(nil)

// MakeDecision chooses stand or hit. HARD plays the greedy policy, MEDIUM
// keeps exploring with the agent's epsilon.
func (a *Advisor) MakeDecision(s game.TurnState) game.Decision {
	key := qlearning.KeyFor(s)

	var action game.Action
	switch s.Difficulty {
	case game.Hard:
		action = a.agent.Greedy(key)
	default:
		action = a.agent.ChooseAction(key, a.agent.Config().Epsilon)
	}

	est := a.estimator.Estimate(simulator.State{Total: s.Total, DealerUp: s.DealerUpCard, Soft: s.Soft})
	strategy := Label(s.RunningCount, est.Hit)

	a.logger.Debug("Decision", "seat", s.Seat, "state", key, "action", action,
		"strategy", strategy, "hit", est.Hit, "stand", est.Stand)

	return game.Decision{
		Action:         action,
		Strategy:       strategy,
		HitProbability: est.Hit,
	}
}

// Label names what drove a decision: the count when it is strong,
// otherwise Monte Carlo when hitting is favoured, otherwise the Q-table.
func Label(runningCount int, hitProbability float64) string {
	switch {
	case runningCount >= countingThreshold || runningCount <= -countingThreshold:
		return StrategyCounting
	case hitProbability > 0.5:
		return StrategyMonteCarlo
	default:
		return StrategyQLearning
	}
}
