package qlearning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/game"
)

func setRow(a *Agent, k Key, v Values) {
	e := a.Table().Get(k)
	e.update(game.Stand, v.Stand(), 1)
	e.update(game.Hit, v.Hit(), 1)
}

func TestHeatmapShapeAndDefaults(t *testing.T) {
	a := New(DefaultConfig())
	hm := a.Heatmap()

	require.Len(t, hm, 18)
	for _, row := range hm {
		require.Len(t, row, 10)
		for _, cell := range row {
			assert.Equal(t, CellEqual, cell)
		}
	}
	assert.Equal(t, 0, a.Table().Size(), "heatmap does not materialise rows")
}

func TestHeatmapMajorityAcrossBuckets(t *testing.T) {
	a := New(DefaultConfig())
	// Player 20 vs 6: stand in two buckets, hit in one.
	setRow(a, Key{Total: 20, DealerUp: 6, Count: counter.NegativeBucket}, Values{0.7, -0.9})
	setRow(a, Key{Total: 20, DealerUp: 6, Count: counter.NeutralBucket}, Values{0.8, -0.8})
	setRow(a, Key{Total: 20, DealerUp: 6, Count: counter.PositiveBucket}, Values{0.1, 0.3})
	// Player 8 vs 10: hit in two buckets.
	setRow(a, Key{Total: 8, DealerUp: 10, Count: counter.NeutralBucket}, Values{-0.6, -0.2})
	setRow(a, Key{Total: 8, DealerUp: 10, Count: counter.PositiveBucket}, Values{-0.6, -0.1})
	// Nearly equal everywhere.
	setRow(a, Key{Total: 16, DealerUp: 10, Count: counter.NeutralBucket}, Values{-0.5, -0.495})

	hm := a.Heatmap()
	assert.Equal(t, CellStand, hm[20-MinPlayerTotal][6-MinDealerCard])
	assert.Equal(t, CellHit, hm[8-MinPlayerTotal][10-MinDealerCard])
	assert.Equal(t, CellEqual, hm[16-MinPlayerTotal][10-MinDealerCard])
}

func TestDetails(t *testing.T) {
	a := New(DefaultConfig())
	setRow(a, Key{Total: 16, DealerUp: 10, Count: counter.NeutralBucket}, Values{-0.5412, -0.4})

	d := a.Details(16, 10)
	require.Len(t, d, 3)
	assert.Equal(t, Detail{QStand: -0.541, QHit: -0.4, Optimal: "Hit", Confidence: 0.141}, d["Neutral"])
	assert.Equal(t, Detail{Optimal: "Stand"}, d["Negative"])
	assert.Contains(t, d, "Positive")
}

func TestCompareWithBasicStrategy(t *testing.T) {
	a := New(DefaultConfig())

	// An empty table stands everywhere.
	c := a.CompareWithBasicStrategy()
	assert.Equal(t, 180, c.Total)
	stands := 0
	for total := MinPlayerTotal; total <= MaxPlayerTotal; total++ {
		for dealer := MinDealerCard; dealer <= MaxDealerCard; dealer++ {
			if !evaluator.BasicStrategy(total, dealer) {
				stands++
			}
		}
	}
	assert.Equal(t, stands, c.Matches)
	assert.Len(t, c.Differences, maxDifferences)
	assert.Equal(t, Difference{PlayerTotal: 4, DealerCard: 2, Basic: "Hit", Learned: "Stand"}, c.Differences[0])

	// Teach every hit state to hit.
	for total := MinPlayerTotal; total <= MaxPlayerTotal; total++ {
		for dealer := MinDealerCard; dealer <= MaxDealerCard; dealer++ {
			if evaluator.BasicStrategy(total, dealer) {
				k := Key{Total: total, DealerUp: dealer, Count: counter.NeutralBucket}
				a.Table().Get(k).update(game.Hit, 1, 1)
			}
		}
	}
	c = a.CompareWithBasicStrategy()
	assert.Equal(t, 100.0, c.Accuracy)
	assert.Empty(t, c.Differences)
}
