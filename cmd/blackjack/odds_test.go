package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/simulator"
)

func TestOddsState(t *testing.T) {
	tests := []struct {
		name     string
		cmd      OddsCmd
		expected simulator.State
		hasError bool
	}{
		{
			name:     "total flags",
			cmd:      OddsCmd{Total: 16, Dealer: 10},
			expected: simulator.State{Total: 16, DealerUp: 10},
		},
		{
			name:     "soft total",
			cmd:      OddsCmd{Total: 18, Dealer: 9, Soft: true},
			expected: simulator.State{Total: 18, DealerUp: 9, Soft: true},
		},
		{
			name:     "cards override total",
			cmd:      OddsCmd{Total: 12, Dealer: 6, Cards: "As 6d"},
			expected: simulator.State{Total: 17, DealerUp: 6, Soft: true},
		},
		{
			name:     "hard cards",
			cmd:      OddsCmd{Dealer: 5, Cards: "Td8c"},
			expected: simulator.State{Total: 18, DealerUp: 5},
		},
		{
			name:     "single card",
			cmd:      OddsCmd{Dealer: 5, Cards: "Td"},
			hasError: true,
		},
		{
			name:     "bad card",
			cmd:      OddsCmd{Dealer: 5, Cards: "TdXy"},
			hasError: true,
		},
		{
			name:     "total too high",
			cmd:      OddsCmd{Total: 22, Dealer: 5},
			hasError: true,
		},
		{
			name:     "missing total",
			cmd:      OddsCmd{Dealer: 5},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := tt.cmd.state()
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, state)
		})
	}
}
