package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lox/blackjackbots/internal/qlearning"
)

// TableFlags select where the Q-table lives.
type TableFlags struct {
	TablePath string `default:"q_table.json" help:"Q-table file, used when no Redis URL is set"`
	RedisURL  string `env:"REDIS_URL" help:"Redis URL for a shared Q-table"`
	RedisKey  string `default:"blackjack:qtable" help:"Redis hash holding the Q-table"`
}

// openTableStore returns the configured Q-table store and a func releasing
// it.
func openTableStore(ctx context.Context, path, redisURL, redisKey string, logger zerolog.Logger) (qlearning.Store, func(), error) {
	if redisURL == "" {
		logger.Debug().Str("path", path).Msg("Using file Q-table store")
		return qlearning.NewFileStore(path), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Debug().Str("addr", opts.Addr).Str("key", redisKey).Msg("Using Redis Q-table store")
	return qlearning.NewRedisStore(client, redisKey), func() { _ = client.Close() }, nil
}
