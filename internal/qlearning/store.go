package qlearning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/lox/blackjackbots/internal/fileutil"
)

// DefaultTablePath is where the CLI keeps the table when no store is
// configured.
const DefaultTablePath = "q_table.json"

// DefaultRedisKey is the hash the Redis store writes to.
const DefaultRedisKey = "blackjack:qtable"

// Store persists a Q-table. Implementations serialise their writers; the
// last write wins.
type Store interface {
	Load(ctx context.Context) (map[Key]Values, error)
	Save(ctx context.Context, rows map[Key]Values) error
}

// encodeRows converts rows to the persisted form: a map from the tuple key
// to [q_stand, q_hit].
func encodeRows(rows map[Key]Values) map[string][2]float64 {
	out := make(map[string][2]float64, len(rows))
	for k, v := range rows {
		out[k.String()] = v
	}
	return out
}

// decodeRows is the inverse of encodeRows. Keys that do not parse are
// skipped.
func decodeRows(raw map[string][2]float64) map[Key]Values {
	out := make(map[Key]Values, len(raw))
	for s, v := range raw {
		k, err := ParseKey(s)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out
}

// FileStore keeps the table as a JSON object on disk
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultTablePath
	}
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string { return s.path }

// Load reads the table. A missing file is an empty table.
func (s *FileStore) Load(_ context.Context) (map[Key]Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw map[string][2]float64
	err := fileutil.ReadJSON(s.path, &raw)
	if errors.Is(err, os.ErrNotExist) {
		return map[Key]Values{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load q-table: %w", err)
	}
	return decodeRows(raw), nil
}

// Save writes the table atomically
func (s *FileStore) Save(_ context.Context, rows map[Key]Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fileutil.WriteJSONAtomic(s.path, encodeRows(rows), 0o644); err != nil {
		return fmt.Errorf("save q-table: %w", err)
	}
	return nil
}

// RedisStore keeps the table in a Redis hash, one field per state. It lets
// several server processes share one table.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	mu     sync.Mutex
}

// NewRedisStore creates a store writing to the given hash key
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load reads every field of the hash.
func (s *RedisStore) Load(ctx context.Context) (map[Key]Values, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load q-table from redis: %w", err)
	}
	raw := make(map[string][2]float64, len(fields))
	for field, value := range fields {
		var v [2]float64
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			continue
		}
		raw[field] = v
	}
	return decodeRows(raw), nil
}

// Save replaces the hash in a single transaction.
func (s *RedisStore) Save(ctx context.Context, rows map[Key]Values) error {
	fields := make(map[string]any, len(rows))
	for k, v := range encodeRows(rows) {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode q-values: %w", err)
		}
		fields[k] = string(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save q-table to redis: %w", err)
	}
	return nil
}

// MemoryStore keeps a copy of the last saved table in memory
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[Key]Values
	saves int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[Key]Values{}}
}

// Load returns a copy of the stored rows
func (s *MemoryStore) Load(_ context.Context) (map[Key]Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Key]Values, len(s.rows))
	for k, v := range s.rows {
		out[k] = v
	}
	return out, nil
}

// Save replaces the stored rows
func (s *MemoryStore) Save(_ context.Context, rows map[Key]Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[Key]Values, len(rows))
	for k, v := range rows {
		s.rows[k] = v
	}
	s.saves++
	return nil
}

// Saves returns how many times Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
