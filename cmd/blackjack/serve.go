package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjackbots/internal/qlearning"
	"github.com/lox/blackjackbots/internal/server"
	"github.com/lox/blackjackbots/internal/simulator"
	"github.com/lox/blackjackbots/internal/store"
)

// ServeCmd runs the blackjack server
type ServeCmd struct {
	Config      string `short:"c" env:"BLACKJACK_CONFIG" default:"blackjack.hcl" help:"HCL config file; defaults apply when it is missing"`
	Addr        string `help:"Listen address, overrides the config"`
	Port        int    `help:"Listen port, overrides the config"`
	DatabaseURL string `env:"DATABASE_URL" help:"PostgreSQL DSN for accounts and the leaderboard"`
	RedisURL    string `env:"REDIS_URL" help:"Redis URL for a shared Q-table"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.DatabaseURL != "" {
		cfg.Storage.DatabaseURL = c.DatabaseURL
	}
	if c.RedisURL != "" {
		cfg.Storage.RedisURL = c.RedisURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := cli.LogLevel
	if level == "info" && cfg.Server.LogLevel != "" {
		level = cfg.Server.LogLevel
	}
	logger := setupLogger(level)
	core := coreLogger(os.Stderr, level)
	ctx := setupSignalHandler(logger)

	tables, closeTables, err := openTableStore(ctx, cfg.Agent.TablePath, cfg.Storage.RedisURL, cfg.Storage.RedisKey, logger)
	if err != nil {
		return err
	}
	defer closeTables()

	agentCfg := cfg.AgentConfig()
	agent := qlearning.New(agentCfg,
		qlearning.WithStore(tables),
		qlearning.WithLogger(core.WithPrefix("agent")),
		qlearning.WithAutosave(cfg.Autosave()))

	estimator := simulator.New(simulator.Config{
		Trials: cfg.Agent.Trials,
		Decks:  cfg.Table.Decks,
		Logger: core.WithPrefix("simulator"),
	})

	opts := []server.Option{server.WithEngineLogger(core.WithPrefix("engine"))}
	if cfg.Storage.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.Storage.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			return err
		}
		opts = append(opts, server.WithAccounts(db))
	} else {
		logger.Warn().Msg("No database configured, accounts and leaderboard are kept in memory")
	}

	srv, err := server.New(cfg, agent, estimator, logger, opts...)
	if err != nil {
		return err
	}

	logger.Info().
		Str("address", cfg.Addr()).
		Int("decks", cfg.Table.Decks).
		Int("computer_seats", cfg.Table.ComputerSeats).
		Str("difficulty", cfg.Difficulty().String()).
		Int("states", agent.Table().Size()).
		Msg("Starting blackjack server")

	return srv.Run(ctx)
}
