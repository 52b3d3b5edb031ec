package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/blackjackbots/internal/evaluator"
)

// Result represents the outcome of a single blackjack hand
type Result struct {
	Reward   float64           // Net reward in units of the initial bet
	Outcome  evaluator.Outcome // Win, loss or push against the dealer
	DealerUp int               // Dealer up-card value (2-11)
	Natural  bool              // Hand was a two-card 21
}

// UpCardStats tracks statistics against one dealer up-card
type UpCardStats struct {
	Hands     int
	SumReward float64
	Wins      int
}

// Statistics tracks running reward statistics for training and simulation
type Statistics struct {
	Hands      int
	SumReward  float64
	SumReward2 float64   // Sum of squares for variance calculation
	Values     []float64 // Store all values for median/percentile calculation

	Wins   int
	Losses int
	Pushes int

	WinReward  float64 // Reward from won hands
	LossReward float64 // Reward from lost hands (negative)
	AllReward  float64 // Total reward for sanity check

	Naturals int

	// Index 0 and 1 unused, 2-11 for dealer up-cards
	UpCardResults [12]UpCardStats
}

// Mean returns the arithmetic mean reward per hand
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumReward / float64(s.Hands)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumReward2 - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// WinRate returns the fraction of hands won, counting pushes as half.
func (s *Statistics) WinRate() float64 {
	if s.Hands == 0 {
		return 0
	}
	return (float64(s.Wins) + 0.5*float64(s.Pushes)) / float64(s.Hands)
}

// Add incorporates a new hand result into the statistics
func (s *Statistics) Add(result Result) {
	r := result.Reward
	s.Hands++
	s.SumReward += r
	s.SumReward2 += r * r
	s.Values = append(s.Values, r)
	s.AllReward += r

	switch result.Outcome {
	case evaluator.Win:
		s.Wins++
		s.WinReward += r
	case evaluator.Loss:
		s.Losses++
		s.LossReward += r
	default:
		s.Pushes++
	}

	if result.Natural {
		s.Naturals++
	}

	if up := result.DealerUp; up >= 2 && up <= 11 {
		s.UpCardResults[up].Hands++
		s.UpCardResults[up].SumReward += r
		if result.Outcome == evaluator.Win {
			s.UpCardResults[up].Wins++
		}
	}
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// UpCardMean returns the mean reward against a dealer up-card (2-11)
func (s *Statistics) UpCardMean(up int) float64 {
	if up < 2 || up > 11 {
		return 0
	}
	us := s.UpCardResults[up]
	if us.Hands == 0 {
		return 0
	}
	return us.SumReward / float64(us.Hands)
}

// IsLedgerBalanced checks that pushes carried no reward
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.AllReward-s.WinReward-s.LossReward) <= 1e-6
}

// Validate performs consistency checks on the collected data
func (s *Statistics) Validate() error {
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: AllReward=%.6f, WinReward=%.6f, LossReward=%.6f",
			s.AllReward, s.WinReward, s.LossReward)
	}

	if s.Hands <= 0 {
		return fmt.Errorf("invalid hands count: %d", s.Hands)
	}

	if len(s.Values) != s.Hands {
		return fmt.Errorf("values array length (%d) does not match hands count (%d)",
			len(s.Values), s.Hands)
	}

	if total := s.Wins + s.Losses + s.Pushes; total != s.Hands {
		return fmt.Errorf("outcome total (%d) does not match total hands (%d)", total, s.Hands)
	}

	totalUpCardHands := 0
	for up := 2; up <= 11; up++ {
		totalUpCardHands += s.UpCardResults[up].Hands
	}
	if totalUpCardHands > s.Hands {
		return fmt.Errorf("up-card hands total (%d) exceeds total hands (%d)",
			totalUpCardHands, s.Hands)
	}

	return nil
}
