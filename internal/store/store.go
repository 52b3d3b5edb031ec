// Package store persists player accounts and the leaderboard.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lox/blackjackbots/internal/game"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("not found")

// DefaultLeaderboardSize is how many entries TopEntries returns when asked
// for zero or fewer.
const DefaultLeaderboardSize = 10

// Account is a player identity and the balance it carries between sessions.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int       `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is one leaderboard row.
type Entry struct {
	ID             int64     `json:"id"`
	Name           string    `json:"player_name"`
	PeakBalance    int       `json:"peak_balance"`
	RoundsPlayed   int       `json:"rounds_played"`
	WinRate        float64   `json:"win_rate"`
	AIAccuracy     float64   `json:"ai_accuracy"`
	PlayerAccuracy float64   `json:"player_accuracy"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is implemented by Memory and DB.
type Store interface {
	GetAccount(ctx context.Context, id string) (Account, error)
	SaveAccount(ctx context.Context, a Account) error
	AddEntry(ctx context.Context, e Entry) (Entry, error)
	TopEntries(ctx context.Context, limit int) ([]Entry, error)
	Close()
}

// EntryFromStats builds a leaderboard entry for a player from session
// statistics.
func EntryFromStats(name string, balance int, stats game.Stats) Entry {
	return Entry{
		Name:           strings.TrimSpace(name),
		PeakBalance:    max(balance, stats.PeakBalance),
		RoundsPlayed:   stats.RoundsPlayed,
		WinRate:        round2(stats.WinRate()),
		AIAccuracy:     round2(stats.ComputerAccuracy()),
		PlayerAccuracy: round2(stats.HumanAccuracy()),
	}
}

func (e Entry) validate() error {
	if e.Name == "" {
		return errors.New("player name is required")
	}
	if len(e.Name) > 50 {
		return errors.New("player name must be at most 50 characters")
	}
	return nil
}

func round2(x float64) float64 {
	return float64(int64(x*100+0.5)) / 100
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*DB)(nil)
)
