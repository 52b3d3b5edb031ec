package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema embed.FS

// DB is a PostgreSQL-backed Store
type DB struct {
	*pgxpool.Pool
	logger zerolog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: p, logger: logger.With().Str("component", "store").Logger()}, nil
}

func (db *DB) Close() { db.Pool.Close() }

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db.logger.Info().Msg("Schema applied")
	return nil
}

func (db *DB) GetAccount(ctx context.Context, id string) (Account, error) {
	var a Account
	err := db.QueryRow(ctx, `
		SELECT id, name, balance, updated_at
		  FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Balance, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (db *DB) SaveAccount(ctx context.Context, a Account) error {
	_, err := db.Exec(ctx, `
		INSERT INTO accounts(id, name, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		  SET name = EXCLUDED.name,
		      balance = EXCLUDED.balance,
		      updated_at = now()
	`, a.ID, a.Name, a.Balance)
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	db.logger.Debug().Str("account", a.ID).Int("balance", a.Balance).Msg("Account saved")
	return nil
}

func (db *DB) AddEntry(ctx context.Context, e Entry) (Entry, error) {
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	err := db.QueryRow(ctx, `
		INSERT INTO leaderboard(player_name, peak_balance, rounds_played, win_rate, ai_accuracy, player_accuracy)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.Name, e.PeakBalance, e.RoundsPlayed, e.WinRate, e.AIAccuracy, e.PlayerAccuracy).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("add leaderboard entry: %w", err)
	}
	return e, nil
}

func (db *DB) TopEntries(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	rows, err := db.Query(ctx, `
		SELECT id, player_name, peak_balance, rounds_played, win_rate, ai_accuracy, player_accuracy, created_at
		  FROM leaderboard
		 ORDER BY peak_balance DESC, id ASC
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.PeakBalance, &e.RoundsPlayed, &e.WinRate, &e.AIAccuracy, &e.PlayerAccuracy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
