package tui

import (
	"io"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/randutil"
	"github.com/lox/blackjackbots/internal/simulator"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// stackedEngine deals the given cards in order.
func stackedEngine(dealOrder string) *game.Engine {
	cards := deck.MustParseCards(dealOrder)
	slices.Reverse(cards)
	cfg := game.DefaultConfig()
	cfg.ReshuffleThreshold = 0
	return game.NewEngine(cfg, game.WithShoe(deck.NewShoeFromCards(cards)), game.WithRand(randutil.New(3)), game.WithLogger(quietLogger()))
}

func logContains(t *testing.T, m *Model, substr string) {
	t.Helper()
	for _, line := range m.Log() {
		if strings.Contains(line, substr) {
			return
		}
	}
	t.Errorf("log does not contain %q:\n%s", substr, strings.Join(m.Log(), "\n"))
}

func TestPlayRound(t *testing.T) {
	// Player 16, dealer 17 showing a king, player draws a 2.
	m := NewModel(stackedEngine("Ts7h6sKd2c9c9d9h"),
		WithComputerSeats(0),
		WithLogger(quietLogger()),
		WithEstimator(simulator.New(simulator.Config{Trials: 50, Seed: 1})))

	assert.Nil(t, m.execute(""))
	assert.Equal(t, game.WaitingForBets, m.Snapshot().Phase)
	logContains(t, m, "Round 1")

	m.execute("bet 50")
	snap := m.Snapshot()
	require.Equal(t, game.InProgress, snap.Phase)
	assert.Equal(t, 1, snap.Dealer.HiddenCards)
	logContains(t, m, "Dealer shows")

	cmd := m.execute("odds")
	require.NotNil(t, cmd)
	m.Update(cmd())
	logContains(t, m, "Odds hard 16 vs 10")

	m.execute("h")
	logContains(t, m, "18")

	m.execute("stand")
	snap = m.Snapshot()
	require.True(t, snap.GameOver)
	seat, ok := snap.Seat(game.HumanSeatID)
	require.True(t, ok)
	assert.Equal(t, game.DefaultConfig().StartingBalance+50, seat.Balance)
	logContains(t, m, "win")

	m.execute("stand")
	logContains(t, m, "No hand to play")
}

func TestRoundWithComputerSeats(t *testing.T) {
	engine := game.NewEngine(game.DefaultConfig(), game.WithRand(randutil.New(9)), game.WithLogger(quietLogger()))
	m := NewModel(engine, WithComputerSeats(2), WithDifficulty(game.Easy))

	m.execute("")
	require.Len(t, m.Snapshot().Seats, 3)
	m.execute("")
	for i := 0; i < 10 && !m.Snapshot().GameOver; i++ {
		m.execute("s")
	}
	snap := m.Snapshot()
	require.True(t, snap.GameOver)
	assert.Equal(t, 1, snap.Stats.RoundsPlayed)
	assert.Equal(t, game.Easy, snap.Difficulty)
}

func TestCommandErrors(t *testing.T) {
	m := NewModel(stackedEngine("Ts7h6sKd"), WithComputerSeats(0))

	m.execute("dance")
	logContains(t, m, `Unknown command "dance"`)

	m.execute("bet lots")
	logContains(t, m, "Bet must be a positive number")

	m.execute("difficulty impossible")
	logContains(t, m, "impossible")

	m.execute("odds")
	logContains(t, m, "Odds are not available")

	m.execute("difficulty hard")
	logContains(t, m, "HARD")
}

func TestViewAndQuit(t *testing.T) {
	m := NewModel(stackedEngine("Ts7h6sKd"), WithComputerSeats(0))
	assert.Equal(t, "Loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.execute("")
	view := m.View()
	assert.Contains(t, view, "Round 1")
	assert.Contains(t, view, "Player")

	assert.NotNil(t, m.execute("quit"))
	assert.Empty(t, m.View())
}
