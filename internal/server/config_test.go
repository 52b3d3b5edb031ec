package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/game"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.Addr())
	assert.Equal(t, game.Hard, cfg.Difficulty())
	assert.True(t, cfg.Autosave())

	ttl, err := cfg.SessionTTL()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	err := os.WriteFile(path, []byte(`
server {
  port        = 9090
  session_ttl = "10m"
}

table {
  decks               = 2
  dealer_hits_soft_17 = true
  difficulty          = "medium"
}

agent {
  epsilon  = 0.2
  autosave = false
}

storage {
  redis_url = "redis://localhost:6379/0"
}
`), 0o644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Address)
	ttl, _ := cfg.SessionTTL()
	assert.Equal(t, 10*time.Minute, ttl)

	assert.Equal(t, 2, cfg.Table.Decks)
	assert.True(t, cfg.Table.DealerHitsSoft17)
	assert.Equal(t, game.Medium, cfg.Difficulty())
	assert.Equal(t, DefaultConfig().Table.MinBet, cfg.Table.MinBet)

	assert.Equal(t, 0.2, cfg.Agent.Epsilon)
	assert.Equal(t, 0.1, cfg.Agent.Alpha)
	assert.False(t, cfg.Autosave())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.NotEmpty(t, cfg.Storage.RedisKey)

	gc := cfg.GameConfig()
	assert.Equal(t, 2, gc.Decks)
	assert.True(t, gc.DealerHitsSoft17)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`server { port = `), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"ttl", func(c *Config) { c.Server.SessionTTL = "soon" }},
		{"negative interval", func(c *Config) { c.Server.ReapInterval = "-1m" }},
		{"rooms", func(c *Config) { c.Server.MaxRooms = 0 }},
		{"computer seats", func(c *Config) { c.Table.ComputerSeats = 6 }},
		{"difficulty", func(c *Config) { c.Table.Difficulty = "impossible" }},
		{"alpha", func(c *Config) { c.Agent.Alpha = 2 }},
		{"trials", func(c *Config) { c.Agent.Trials = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
