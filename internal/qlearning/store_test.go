package qlearning

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/counter"
)

func sampleRows() map[Key]Values {
	return map[Key]Values{
		{Total: 20, DealerUp: 6, Count: counter.NeutralBucket}:   {0.8, -0.9},
		{Total: 11, DealerUp: 10, Count: counter.PositiveBucket}: {-0.3, 0.25},
		{Total: 16, DealerUp: 7, Count: counter.NegativeBucket}:  {-0.5, -0.45},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "models", "q_table.json")
	store := NewFileStore(path)

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, store.Save(ctx, sampleRows()))
	rows, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string][2]float64
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, [2]float64{0.8, -0.9}, raw["(20, 6, 0)"])
}

func TestFileStoreSkipsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "q_table.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"test_state": [1, 2], "(18, 10, 0)": [0.4, -0.6]}`), 0o644))

	rows, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Key]Values{{Total: 18, DealerUp: 10}: {0.4, -0.6}}, rows)
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "q_table.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "")
	rows, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, store.Save(ctx, sampleRows()))
	rows, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)

	field := mr.HGet(DefaultRedisKey, "(20, 6, 0)")
	assert.Equal(t, "[0.8,-0.9]", field)

	// Save replaces rather than merges.
	require.NoError(t, store.Save(ctx, map[Key]Values{{Total: 4, DealerUp: 2}: {0, 0.1}}))
	rows, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRedisStoreUnavailable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	_, err := NewRedisStore(client, "q").Load(context.Background())
	assert.Error(t, err)
}

func TestMemoryStoreCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	rows := sampleRows()
	require.NoError(t, store.Save(ctx, rows))
	rows[Key{Total: 5, DealerUp: 5}] = Values{1, 1}

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.Equal(t, 1, store.Saves())
}
