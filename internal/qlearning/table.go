package qlearning

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/game"
)

// Key is the abstracted state the table learns over: the player's total,
// the dealer's visible card and the running-count bucket.
type Key struct {
	Total    int
	DealerUp int
	Count    counter.Bucket
}

// NewKey builds a key from a raw running count.
func NewKey(total, dealerUp, runningCount int) Key {
	return Key{Total: total, DealerUp: dealerUp, Count: counter.BucketFor(runningCount)}
}

// KeyFor abstracts a computer seat's turn state.
func KeyFor(s game.TurnState) Key {
	return NewKey(s.Total, s.DealerUpCard, s.RunningCount)
}

// String formats the key as a tuple, e.g. "(20, 6, 0)". Persisted tables
// are keyed by this form.
func (k Key) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.Total, k.DealerUp, int(k.Count))
}

// ParseKey parses the tuple form written by String.
func ParseKey(s string) (Key, error) {
	inner := strings.TrimSpace(s)
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		return Key{}, fmt.Errorf("invalid state key %q", s)
	}
	parts := strings.Split(inner[1:len(inner)-1], ",")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("invalid state key %q: want 3 fields", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Key{}, fmt.Errorf("invalid state key %q: %w", s, err)
		}
		n[i] = v
	}
	if n[2] < -1 || n[2] > 1 {
		return Key{}, fmt.Errorf("invalid count bucket %d in %q", n[2], s)
	}
	return Key{Total: n[0], DealerUp: n[1], Count: counter.Bucket(n[2])}, nil
}

// Values holds the action values of one state, indexed by game.Stand and
// game.Hit.
type Values [2]float64

// Stand returns the value of standing
func (v Values) Stand() float64 { return v[game.Stand] }

// Hit returns the value of hitting
func (v Values) Hit() float64 { return v[game.Hit] }

// Best returns the greedy action. Ties favour Stand.
func (v Values) Best() game.Action {
	if v.Hit() > v.Stand() {
		return game.Hit
	}
	return game.Stand
}

// Max returns the larger of the two values
func (v Values) Max() float64 {
	return max(v[0], v[1])
}

// Entry is one mutable row of the table.
type Entry struct {
	mu     sync.Mutex
	values Values
}

// Values returns a copy of the entry's action values.
func (e *Entry) Values() Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values
}

// update moves the action's value towards target by alpha and returns the
// new value.
func (e *Entry) update(a game.Action, target, alpha float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.values[a]
	e.values[a] = old + alpha*(target-old)
	return e.values[a]
}

const tableShardCount = 64
const tableShardMask = tableShardCount - 1

type tableShard struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
}

// Table is a thread-safe Q-table using sharded maps. Rows are created on
// first access.
type Table struct {
	shards [tableShardCount]tableShard
}

// NewTable returns an empty table ready for use.
func NewTable() *Table {
	t := &Table{}
	for i := 0; i < tableShardCount; i++ {
		t.shards[i].entries = make(map[Key]*Entry)
	}
	return t
}

// Get returns the entry for the given key, creating a zero row if missing.
func (t *Table) Get(key Key) *Entry {
	shard := t.shardFor(key)

	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()
	if ok {
		return entry
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if entry, ok = shard.entries[key]; ok {
		return entry
	}
	entry = &Entry{}
	shard.entries[key] = entry
	return entry
}

// Peek returns the row's values without creating it.
func (t *Table) Peek(key Key) (Values, bool) {
	shard := t.shardFor(key)
	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()
	if !ok {
		return Values{}, false
	}
	return entry.Values(), true
}

// Snapshot copies every row for serialisation.
func (t *Table) Snapshot() map[Key]Values {
	out := make(map[Key]Values)
	for i := 0; i < tableShardCount; i++ {
		shard := &t.shards[i]
		shard.mu.RLock()
		for k, e := range shard.entries {
			out[k] = e.Values()
		}
		shard.mu.RUnlock()
	}
	return out
}

// Replace swaps the table contents for rows.
func (t *Table) Replace(rows map[Key]Values) {
	for i := 0; i < tableShardCount; i++ {
		shard := &t.shards[i]
		shard.mu.Lock()
		shard.entries = make(map[Key]*Entry)
		shard.mu.Unlock()
	}
	for k, v := range rows {
		shard := t.shardFor(k)
		shard.mu.Lock()
		shard.entries[k] = &Entry{values: v}
		shard.mu.Unlock()
	}
}

// Size returns the number of states tracked.
func (t *Table) Size() int {
	total := 0
	for i := 0; i < tableShardCount; i++ {
		shard := &t.shards[i]
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}

func (t *Table) shardFor(k Key) *tableShard {
	h := hashKey(k)
	return &t.shards[h&tableShardMask]
}

func hashKey(k Key) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	var hash uint32 = offset32
	for _, v := range [3]int{k.Total, k.DealerUp, int(k.Count)} {
		hash ^= uint32(v)
		hash *= prime32
	}
	return hash
}
