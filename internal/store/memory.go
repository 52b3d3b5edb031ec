package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	entries  []Entry
	nextID   int64
	now      func() time.Time
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]Account), now: time.Now}
}

func (m *Memory) GetAccount(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) SaveAccount(_ context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.UpdatedAt = m.now()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) AddEntry(_ context.Context, e Entry) (Entry, error) {
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = m.now()
	m.entries = append(m.entries, e)
	return e, nil
}

// TopEntries orders by peak balance, highest first; ties keep insertion
// order.
func (m *Memory) TopEntries(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	m.mu.RLock()
	out := slices.Clone(m.entries)
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Entry) int {
		return cmp.Compare(b.PeakBalance, a.PeakBalance)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() {}
