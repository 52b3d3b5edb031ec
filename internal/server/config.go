package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/simulator"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerSettings  `hcl:"server,block"`
	Table   TableSettings   `hcl:"table,block"`
	Agent   AgentSettings   `hcl:"agent,block"`
	Storage StorageSettings `hcl:"storage,block"`
}

// ServerSettings contains listener and housekeeping configuration
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	Port         int    `hcl:"port,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	SessionTTL   string `hcl:"session_ttl,optional"`
	ReapInterval string `hcl:"reap_interval,optional"`
	MaxRooms     int    `hcl:"max_rooms,optional"`
}

// TableSettings defines the rules every session and room plays by
type TableSettings struct {
	Decks              int    `hcl:"decks,optional"`
	StartingBalance    int    `hcl:"starting_balance,optional"`
	MinBet             int    `hcl:"min_bet,optional"`
	ReshuffleThreshold int    `hcl:"reshuffle_threshold,optional"`
	DealerHitsSoft17   bool   `hcl:"dealer_hits_soft_17,optional"`
	ComputerSeats      int    `hcl:"computer_seats,optional"`
	Difficulty         string `hcl:"difficulty,optional"`
}

// AgentSettings configures the learning agent and the estimator
type AgentSettings struct {
	Alpha     float64 `hcl:"alpha,optional"`
	Gamma     float64 `hcl:"gamma,optional"`
	Epsilon   float64 `hcl:"epsilon,optional"`
	Trials    int     `hcl:"trials,optional"`
	TablePath string  `hcl:"table_path,optional"`
	Autosave  *bool   `hcl:"autosave,optional"` // save after every finished episode, default true
}

// StorageSettings names the backing stores. Empty values fall back to
// in-memory accounts and a file-backed Q-table.
type StorageSettings struct {
	DatabaseURL string `hcl:"database_url,optional"`
	RedisURL    string `hcl:"redis_url,optional"`
	RedisKey    string `hcl:"redis_key,optional"`
}

// fileConfig mirrors Config with every block optional.
type fileConfig struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Table   *TableSettings   `hcl:"table,block"`
	Agent   *AgentSettings   `hcl:"agent,block"`
	Storage *StorageSettings `hcl:"storage,block"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	table := game.DefaultConfig()
	agent := qlearning.DefaultConfig()
	return Config{
		Server: ServerSettings{
			Address:      "localhost",
			Port:         8080,
			LogLevel:     "info",
			SessionTTL:   "30m",
			ReapInterval: "1m",
			MaxRooms:     100,
		},
		Table: TableSettings{
			Decks:              table.Decks,
			StartingBalance:    table.StartingBalance,
			MinBet:             table.MinBet,
			ReshuffleThreshold: table.ReshuffleThreshold,
			ComputerSeats:      2,
			Difficulty:         game.Hard.String(),
		},
		Agent: AgentSettings{
			Alpha:     agent.Alpha,
			Gamma:     agent.Gamma,
			Epsilon:   agent.Epsilon,
			Trials:    simulator.DefaultTrials,
			TablePath: qlearning.DefaultTablePath,
		},
		Storage: StorageSettings{
			RedisKey: qlearning.DefaultRedisKey,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := DefaultConfig()
	cfg.merge(raw)
	return cfg, nil
}

// merge overlays non-zero values from a decoded file onto the defaults.
func (c *Config) merge(raw fileConfig) {
	if s := raw.Server; s != nil {
		setString(&c.Server.Address, s.Address)
		setInt(&c.Server.Port, s.Port)
		setString(&c.Server.LogLevel, s.LogLevel)
		setString(&c.Server.SessionTTL, s.SessionTTL)
		setString(&c.Server.ReapInterval, s.ReapInterval)
		setInt(&c.Server.MaxRooms, s.MaxRooms)
	}
	if t := raw.Table; t != nil {
		setInt(&c.Table.Decks, t.Decks)
		setInt(&c.Table.StartingBalance, t.StartingBalance)
		setInt(&c.Table.MinBet, t.MinBet)
		setInt(&c.Table.ReshuffleThreshold, t.ReshuffleThreshold)
		setInt(&c.Table.ComputerSeats, t.ComputerSeats)
		setString(&c.Table.Difficulty, t.Difficulty)
		c.Table.DealerHitsSoft17 = t.DealerHitsSoft17
	}
	if a := raw.Agent; a != nil {
		setFloat(&c.Agent.Alpha, a.Alpha)
		setFloat(&c.Agent.Gamma, a.Gamma)
		setFloat(&c.Agent.Epsilon, a.Epsilon)
		setInt(&c.Agent.Trials, a.Trials)
		setString(&c.Agent.TablePath, a.TablePath)
		if a.Autosave != nil {
			c.Agent.Autosave = a.Autosave
		}
	}
	if s := raw.Storage; s != nil {
		setString(&c.Storage.DatabaseURL, s.DatabaseURL)
		setString(&c.Storage.RedisURL, s.RedisURL)
		setString(&c.Storage.RedisKey, s.RedisKey)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// Validate validates the server configuration
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.SessionTTL(); err != nil {
		return fmt.Errorf("session_ttl: %w", err)
	}
	if _, err := c.ReapInterval(); err != nil {
		return fmt.Errorf("reap_interval: %w", err)
	}
	if c.Server.MaxRooms < 1 {
		return errors.New("max_rooms must be positive")
	}
	if err := c.GameConfig().Validate(); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	if c.Table.ComputerSeats < 0 || c.Table.ComputerSeats > game.MaxComputerSeats {
		return fmt.Errorf("table: computer_seats must be between 0 and %d", game.MaxComputerSeats)
	}
	if _, err := game.ParseDifficulty(c.Table.Difficulty); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	if err := c.AgentConfig().Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if c.Agent.Trials < 1 {
		return errors.New("agent: trials must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SessionTTL is how long an idle session or room lives.
func (c Config) SessionTTL() (time.Duration, error) {
	return positiveDuration(c.Server.SessionTTL)
}

// ReapInterval is how often idle sessions and rooms are collected.
func (c Config) ReapInterval() (time.Duration, error) {
	return positiveDuration(c.Server.ReapInterval)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// GameConfig returns the table rules for new engines
func (c Config) GameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.Decks = c.Table.Decks
	cfg.StartingBalance = c.Table.StartingBalance
	cfg.MinBet = c.Table.MinBet
	cfg.ReshuffleThreshold = c.Table.ReshuffleThreshold
	cfg.DealerHitsSoft17 = c.Table.DealerHitsSoft17
	return cfg
}

// AgentConfig returns the learning parameters
func (c Config) AgentConfig() qlearning.Config {
	return qlearning.Config{Alpha: c.Agent.Alpha, Gamma: c.Agent.Gamma, Epsilon: c.Agent.Epsilon}
}

// Autosave reports whether the agent saves its table after every terminal
// update. It defaults to true.
func (c Config) Autosave() bool {
	return c.Agent.Autosave == nil || *c.Agent.Autosave
}

// Difficulty returns the configured default difficulty, falling back to
// Hard when it does not parse.
func (c Config) Difficulty() game.Difficulty {
	d, err := game.ParseDifficulty(c.Table.Difficulty)
	if err != nil {
		return game.Hard
	}
	return d
}
