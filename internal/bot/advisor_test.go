package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/randutil"
	"github.com/lox/blackjackbots/internal/simulator"
)

func newTestAdvisor(t *testing.T, epsilon float64) (*Advisor, *qlearning.Agent) {
	t.Helper()
	agent := qlearning.New(qlearning.Config{Alpha: 1, Gamma: 0.9, Epsilon: epsilon, Seed: 1})
	est := simulator.New(simulator.Config{Trials: 400, Seed: 1})
	return NewAdvisor(agent, est), agent
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name  string
		count int
		hit   float64
		want  string
	}{
		{"strong positive count", 2, 0.9, StrategyCounting},
		{"strong negative count", -3, 0.1, StrategyCounting},
		{"hit favoured", 1, 0.51, StrategyMonteCarlo},
		{"even odds", 0, 0.5, StrategyQLearning},
		{"stand favoured", -1, 0.2, StrategyQLearning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.count, tt.hit))
		})
	}
}

func TestHardPlaysGreedy(t *testing.T) {
	advisor, agent := newTestAdvisor(t, 1)
	state := game.TurnState{Total: 12, DealerUpCard: 10, RunningCount: 0, Difficulty: game.Hard}
	key := qlearning.Key{Total: 12, DealerUp: 10, Count: counter.NeutralBucket}
	agent.Learn(key, game.Hit, 0.5, key, true)

	for i := 0; i < 20; i++ {
		d := advisor.MakeDecision(state)
		assert.Equal(t, game.Hit, d.Action)
	}
}

func TestMediumExplores(t *testing.T) {
	advisor, agent := newTestAdvisor(t, 1)
	state := game.TurnState{Total: 19, DealerUpCard: 6, Difficulty: game.Medium}
	key := qlearning.KeyFor(state)
	agent.Learn(key, game.Stand, 1, key, true)

	seen := map[game.Action]bool{}
	for i := 0; i < 100; i++ {
		seen[advisor.MakeDecision(state).Action] = true
	}
	assert.True(t, seen[game.Hit])
	assert.True(t, seen[game.Stand])
}

func TestDecisionCarriesRationale(t *testing.T) {
	advisor, _ := newTestAdvisor(t, 0)

	d := advisor.MakeDecision(game.TurnState{Total: 11, DealerUpCard: 6, RunningCount: 0, Difficulty: game.Hard})
	assert.Equal(t, StrategyMonteCarlo, d.Strategy)
	assert.Greater(t, d.HitProbability, 0.5)

	d = advisor.MakeDecision(game.TurnState{Total: 20, DealerUpCard: 6, RunningCount: 4, Difficulty: game.Hard})
	assert.Equal(t, StrategyCounting, d.Strategy)
	assert.Equal(t, game.Stand, d.Action)

	d = advisor.MakeDecision(game.TurnState{Total: 20, DealerUpCard: 6, RunningCount: 0, Difficulty: game.Hard})
	assert.Equal(t, StrategyQLearning, d.Strategy)
	assert.Less(t, d.HitProbability, 0.5)
}

func TestAdvisorDrivesComputerSeats(t *testing.T) {
	advisor, _ := newTestAdvisor(t, 0.1)
	cfg := game.DefaultConfig()
	e := game.NewEngine(cfg, game.WithAgent(advisor), game.WithRand(randutil.New(5)))

	for round := 0; round < 5; round++ {
		e.StartNewRound(3, game.Medium)
		s := e.ConfirmBets()
		for !s.GameOver {
			s = e.Stand()
		}
	}

	s := e.Snapshot()
	require.NotEmpty(t, s.Decisions)
	for _, d := range s.Decisions {
		assert.Contains(t, []string{StrategyCounting, StrategyMonteCarlo, StrategyQLearning}, d.Strategy)
		assert.Contains(t, []string{"AI 1", "AI 2", "AI 3"}, d.Actor)
		assert.Contains(t, []game.Action{game.Stand, game.Hit}, d.Action)
	}
	assert.Equal(t, 5, s.Stats.RoundsPlayed)
	assert.Positive(t, s.Stats.ComputerDecisions)
}
