package server

import (
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/simulator"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	cfg := DefaultConfig()
	cfg.Agent.Trials = 100

	agent := qlearning.New(qlearning.Config{Alpha: 0.1, Gamma: 0.9, Epsilon: 0.1, Seed: 1})
	est := simulator.New(simulator.Config{Trials: 100, Seed: 1})

	srv, err := New(cfg, agent, est, testLogger(), append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return srv, clock
}
