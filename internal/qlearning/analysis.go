package qlearning

import (
	"math"

	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/evaluator"
	"github.com/lox/blackjackbots/internal/game"
)

// Heatmap grid bounds.
const (
	MinPlayerTotal = 4
	MaxPlayerTotal = 21
	MinDealerCard  = 2
	MaxDealerCard  = 11
)

// Heatmap cell values.
const (
	CellStand = 0
	CellHit   = 1
	CellEqual = 2
)

// equalThreshold is the value gap below which neither action is preferred.
const equalThreshold = 0.01

// Heatmap returns the learned policy as rows of player totals 4-21 by
// columns of dealer cards 2-11. Each cell is the most common preference
// across the three count buckets; unseen states count as equal.
func (a *Agent) Heatmap() [][]int {
	rows := make([][]int, 0, MaxPlayerTotal-MinPlayerTotal+1)
	for total := MinPlayerTotal; total <= MaxPlayerTotal; total++ {
		row := make([]int, 0, MaxDealerCard-MinDealerCard+1)
		for dealer := MinDealerCard; dealer <= MaxDealerCard; dealer++ {
			var votes [3]int
			for _, b := range counter.Buckets {
				v, _ := a.table.Peek(Key{Total: total, DealerUp: dealer, Count: b})
				votes[cellFor(v)]++
			}
			row = append(row, mostCommon(votes))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellFor(v Values) int {
	switch {
	case math.Abs(v.Stand()-v.Hit()) < equalThreshold:
		return CellEqual
	case v.Stand() > v.Hit():
		return CellStand
	default:
		return CellHit
	}
}

// mostCommon returns the cell with the most votes. A three-way tie is
// reported as equal.
func mostCommon(votes [3]int) int {
	best := CellEqual
	for cell, n := range votes {
		if n > votes[best] {
			best = cell
		}
	}
	return best
}

// Detail is the learned preference for one count bucket
type Detail struct {
	QStand     float64 `json:"q_stand"`
	QHit       float64 `json:"q_hit"`
	Optimal    string  `json:"optimal_action"`
	Confidence float64 `json:"confidence"`
}

// Details returns the q-values of a state for each count bucket, keyed by
// bucket name.
func (a *Agent) Details(total, dealer int) map[string]Detail {
	out := make(map[string]Detail, len(counter.Buckets))
	for _, b := range counter.Buckets {
		v, _ := a.table.Peek(Key{Total: total, DealerUp: dealer, Count: b})
		out[b.String()] = Detail{
			QStand:     round3(v.Stand()),
			QHit:       round3(v.Hit()),
			Optimal:    actionLabel(v.Best()),
			Confidence: round3(math.Abs(v.Stand() - v.Hit())),
		}
	}
	return out
}

// Difference is one state where the learned policy disagrees with basic
// strategy
type Difference struct {
	PlayerTotal int        `json:"player_sum"`
	DealerCard  int        `json:"dealer_card"`
	Basic       string     `json:"basic"`
	Learned     string     `json:"q_learning"`
	QValues     [2]float64 `json:"q_values"`
}

// Comparison summarises agreement with basic strategy
type Comparison struct {
	Accuracy    float64      `json:"accuracy"`
	Matches     int          `json:"matches"`
	Total       int          `json:"total"`
	Differences []Difference `json:"differences"`
}

// maxDifferences caps Comparison.Differences.
const maxDifferences = 10

// CompareWithBasicStrategy checks the neutral-count greedy policy against
// basic strategy over the heatmap grid.
func (a *Agent) CompareWithBasicStrategy() Comparison {
	var c Comparison
	for total := MinPlayerTotal; total <= MaxPlayerTotal; total++ {
		for dealer := MinDealerCard; dealer <= MaxDealerCard; dealer++ {
			v, _ := a.table.Peek(Key{Total: total, DealerUp: dealer, Count: counter.NeutralBucket})
			basic := game.Stand
			if evaluator.BasicStrategy(total, dealer) {
				basic = game.Hit
			}
			learned := v.Best()

			c.Total++
			if learned == basic {
				c.Matches++
				continue
			}
			if len(c.Differences) < maxDifferences {
				c.Differences = append(c.Differences, Difference{
					PlayerTotal: total,
					DealerCard:  dealer,
					Basic:       actionLabel(basic),
					Learned:     actionLabel(learned),
					QValues:     [2]float64{round3(v.Stand()), round3(v.Hit())},
				})
			}
		}
	}
	if c.Total > 0 {
		c.Accuracy = math.Round(float64(c.Matches)/float64(c.Total)*10000) / 100
	}
	return c
}

func actionLabel(a game.Action) string {
	if a == game.Hit {
		return "Hit"
	}
	return "Stand"
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
