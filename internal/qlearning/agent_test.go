package qlearning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/game"
)

type failingStore struct{}

func (failingStore) Load(context.Context) (map[Key]Values, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, map[Key]Values) error {
	return errors.New("disk on fire")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Alpha = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Gamma = 1.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Epsilon = -0.1
	assert.Error(t, bad.Validate())
}

func TestLearnTerminalUpdate(t *testing.T) {
	a := New(Config{Alpha: 0.5, Gamma: 0.9, Epsilon: 0, Seed: 1})
	k := Key{Total: 20, DealerUp: 6}

	a.Learn(k, game.Stand, 1, k, true)
	assert.InDelta(t, 0.5, a.QValues(k).Stand(), 1e-9)

	a.Learn(k, game.Stand, 1, k, true)
	assert.InDelta(t, 0.75, a.QValues(k).Stand(), 1e-9)
	assert.Equal(t, 0.0, a.QValues(k).Hit())
}

func TestLearnBootstrapsFromNextState(t *testing.T) {
	a := New(Config{Alpha: 0.5, Gamma: 0.9, Seed: 1})
	from := Key{Total: 12, DealerUp: 10}
	next := Key{Total: 19, DealerUp: 10}

	a.Learn(next, game.Stand, 1, next, true)
	require.InDelta(t, 0.5, a.QValues(next).Max(), 1e-9)

	a.Learn(from, game.Hit, 0, next, false)
	// 0 + 0.5 * (0 + 0.9*0.5 - 0)
	assert.InDelta(t, 0.225, a.QValues(from).Hit(), 1e-9)
}

func TestGreedyTiesFavourStand(t *testing.T) {
	a := New(Config{Alpha: 0.1, Gamma: 0.9, Seed: 1})
	k := Key{Total: 15, DealerUp: 7}

	assert.Equal(t, game.Stand, a.Greedy(k))
	assert.Equal(t, 1, a.Table().Size(), "lookup materialises the row")

	a.Learn(k, game.Hit, 1, k, true)
	assert.Equal(t, game.Hit, a.Greedy(k))
}

func TestChooseActionExplores(t *testing.T) {
	a := New(Config{Alpha: 0.1, Gamma: 0.9, Seed: 7})
	k := Key{Total: 18, DealerUp: 9}
	a.Learn(k, game.Stand, 1, k, true)

	for i := 0; i < 50; i++ {
		assert.Equal(t, game.Stand, a.ChooseAction(k, 0))
	}

	counts := map[game.Action]int{}
	for i := 0; i < 1000; i++ {
		counts[a.ChooseAction(k, 1)]++
	}
	assert.Greater(t, counts[game.Hit], 400)
	assert.Greater(t, counts[game.Stand], 400)
}

func TestAutosaveOnTerminalUpdates(t *testing.T) {
	store := NewMemoryStore()
	a := New(DefaultConfig(), WithStore(store))
	k := Key{Total: 13, DealerUp: 3}

	a.Learn(k, game.Hit, 0, Key{Total: 17, DealerUp: 3}, false)
	assert.Equal(t, 0, store.Saves())

	a.Learn(k, game.Stand, 1, k, true)
	assert.Equal(t, 1, store.Saves())

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, rows, k)

	quiet := New(DefaultConfig(), WithStore(store), WithAutosave(false))
	quiet.Learn(k, game.Stand, 1, k, true)
	assert.Equal(t, 1, store.Saves())
}

func TestNewLoadsFromStore(t *testing.T) {
	store := NewMemoryStore()
	k := Key{Total: 20, DealerUp: 6}
	require.NoError(t, store.Save(context.Background(), map[Key]Values{k: {0.9, -0.8}}))

	a := New(DefaultConfig(), WithStore(store))
	assert.Equal(t, Values{0.9, -0.8}, a.QValues(k))
}

func TestStoreFailuresAreNotFatal(t *testing.T) {
	a := New(DefaultConfig(), WithStore(failingStore{}))
	assert.Equal(t, 0, a.Table().Size())

	k := Key{Total: 20, DealerUp: 6}
	a.Learn(k, game.Stand, 1, k, true)
	assert.Greater(t, a.QValues(k).Stand(), 0.0)
	assert.Error(t, a.Save(context.Background()))
}
