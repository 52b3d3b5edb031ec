package statistics

import (
	"math"
	"strings"
	"testing"

	"github.com/lox/blackjackbots/internal/evaluator"
)

func TestStatistics_Empty(t *testing.T) {
	stats := &Statistics{}

	if stats.Mean() != 0 {
		t.Errorf("Expected mean of 0 for empty stats, got %f", stats.Mean())
	}
	if stats.Variance() != 0 {
		t.Errorf("Expected variance of 0 for empty stats, got %f", stats.Variance())
	}
	if stats.StdError() != 0 {
		t.Errorf("Expected stderr of 0 for empty stats, got %f", stats.StdError())
	}
	if stats.Median() != 0 {
		t.Errorf("Expected median of 0 for empty stats, got %f", stats.Median())
	}
	if stats.WinRate() != 0 {
		t.Errorf("Expected win rate of 0 for empty stats, got %f", stats.WinRate())
	}
}

func TestStatistics_SingleValue(t *testing.T) {
	stats := &Statistics{}
	stats.Add(Result{Reward: 1.5, Outcome: evaluator.Win, DealerUp: 10, Natural: true})

	if stats.Hands != 1 {
		t.Errorf("Expected 1 hand, got %d", stats.Hands)
	}
	if stats.Mean() != 1.5 {
		t.Errorf("Expected mean of 1.5, got %f", stats.Mean())
	}
	if stats.Variance() != 0 {
		t.Errorf("Expected variance of 0 for single value, got %f", stats.Variance())
	}
	if stats.Wins != 1 || stats.Naturals != 1 {
		t.Errorf("Expected 1 natural win, got wins=%d naturals=%d", stats.Wins, stats.Naturals)
	}
	if stats.UpCardResults[10].Wins != 1 {
		t.Errorf("Expected 1 win against a ten, got %d", stats.UpCardResults[10].Wins)
	}
	if !stats.IsLedgerBalanced() {
		t.Error("Expected ledger to be balanced")
	}
}

func TestStatistics_MultipleValues(t *testing.T) {
	stats := &Statistics{}

	results := []Result{
		{Reward: 1, Outcome: evaluator.Win, DealerUp: 5},
		{Reward: -2, Outcome: evaluator.Loss, DealerUp: 10},
		{Reward: 2, Outcome: evaluator.Win, DealerUp: 6},
		{Reward: 0, Outcome: evaluator.Push, DealerUp: 10},
		{Reward: -1, Outcome: evaluator.Loss, DealerUp: 11},
	}
	for _, result := range results {
		stats.Add(result)
	}

	expectedMean := 0.0
	if math.Abs(stats.Mean()-expectedMean) > 1e-9 {
		t.Errorf("Expected mean of %f, got %f", expectedMean, stats.Mean())
	}

	// Sorted values: -2, -1, 0, 1, 2
	if stats.Median() != 0.0 {
		t.Errorf("Expected median of 0.0, got %f", stats.Median())
	}

	if stats.Wins != 2 || stats.Losses != 2 || stats.Pushes != 1 {
		t.Errorf("Expected 2/2/1 outcomes, got %d/%d/%d", stats.Wins, stats.Losses, stats.Pushes)
	}
	if math.Abs(stats.WinRate()-0.5) > 1e-9 {
		t.Errorf("Expected win rate of 0.5, got %f", stats.WinRate())
	}
	if stats.UpCardResults[10].Hands != 2 {
		t.Errorf("Expected 2 hands against a ten, got %d", stats.UpCardResults[10].Hands)
	}

	if !stats.IsLedgerBalanced() {
		t.Error("Expected ledger to be balanced")
	}
	if err := stats.Validate(); err != nil {
		t.Errorf("Expected valid stats, got %v", err)
	}
}

func TestStatistics_ConfidenceInterval(t *testing.T) {
	stats := &Statistics{}

	for _, v := range []float64{1, -1, 1, 1, -1} {
		o := evaluator.Win
		if v < 0 {
			o = evaluator.Loss
		}
		stats.Add(Result{Reward: v, Outcome: o})
	}

	low, high := stats.ConfidenceInterval95()
	mean := stats.Mean()

	if math.Abs((low+high)/2-mean) > 1e-9 {
		t.Errorf("Confidence interval not symmetric around mean. Low: %f, High: %f, Mean: %f", low, high, mean)
	}
	if high-low <= 0 {
		t.Errorf("Confidence interval should be positive width, got %f", high-low)
	}
}

func TestStatistics_UpCardAnalysis(t *testing.T) {
	stats := &Statistics{}

	stats.Add(Result{Reward: 1, Outcome: evaluator.Win, DealerUp: 6})
	stats.Add(Result{Reward: 1, Outcome: evaluator.Win, DealerUp: 6})
	stats.Add(Result{Reward: -1, Outcome: evaluator.Loss, DealerUp: 11})
	stats.Add(Result{Reward: 1, Outcome: evaluator.Win, DealerUp: 11})

	if got := stats.UpCardMean(6); math.Abs(got-1) > 1e-9 {
		t.Errorf("Up-card 6 mean: expected 1, got %f", got)
	}
	if got := stats.UpCardMean(11); math.Abs(got) > 1e-9 {
		t.Errorf("Up-card 11 mean: expected 0, got %f", got)
	}
	if stats.UpCardMean(1) != 0 || stats.UpCardMean(12) != 0 {
		t.Error("Expected 0 for invalid up-cards")
	}
}

func TestStatistics_Variance(t *testing.T) {
	stats := &Statistics{}

	// [1, 3, 5] has sample variance 4
	for _, v := range []float64{1, 3, 5} {
		stats.Add(Result{Reward: v, Outcome: evaluator.Win})
	}

	if math.Abs(stats.Variance()-4.0) > 1e-9 {
		t.Errorf("Expected variance of 4, got %f", stats.Variance())
	}
	if math.Abs(stats.StdDev()-2.0) > 1e-9 {
		t.Errorf("Expected stddev of 2, got %f", stats.StdDev())
	}
}

func TestStatistics_Validate_LedgerMismatch(t *testing.T) {
	stats := &Statistics{}
	stats.Hands = 1
	stats.Wins = 1
	stats.Values = []float64{1.0}
	stats.AllReward = 1.0
	stats.WinReward = 0.5

	err := stats.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail with ledger mismatch")
	}
	if !strings.Contains(err.Error(), "ledger mismatch") {
		t.Errorf("Expected ledger mismatch error, got: %v", err)
	}
}

func TestStatistics_Validate_InvalidHandsCount(t *testing.T) {
	stats := &Statistics{}

	err := stats.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail with invalid hands count")
	}
	if !strings.Contains(err.Error(), "invalid hands count") {
		t.Errorf("Expected invalid hands count error, got: %v", err)
	}
}

func TestStatistics_Validate_ValuesMismatch(t *testing.T) {
	stats := &Statistics{}
	stats.Hands = 2
	stats.Wins = 2
	stats.Values = []float64{1.0}

	err := stats.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail with values array mismatch")
	}
	if !strings.Contains(err.Error(), "values array length") {
		t.Errorf("Expected values array length error, got: %v", err)
	}
}

func TestStatistics_Validate_OutcomeMismatch(t *testing.T) {
	stats := &Statistics{}
	stats.Hands = 2
	stats.Values = []float64{0, 0}
	stats.Pushes = 3

	err := stats.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail with outcome mismatch")
	}
	if !strings.Contains(err.Error(), "outcome total") {
		t.Errorf("Expected outcome total error, got: %v", err)
	}
}
