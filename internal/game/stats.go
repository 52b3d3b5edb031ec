package game

import "github.com/lox/blackjackbots/internal/evaluator"

// Stats accumulates over a session. Decision accuracy counts hit/stand
// choices that agree with evaluator.BasicStrategy.
type Stats struct {
	RoundsPlayed int `json:"rounds_played"`

	HumanWins   int `json:"human_wins"`
	HumanLosses int `json:"human_losses"`
	HumanPushes int `json:"human_pushes"`

	ComputerWins   int `json:"computer_wins"`
	ComputerLosses int `json:"computer_losses"`
	DealerWins     int `json:"dealer_wins"`

	HumanDecisions    int `json:"human_decisions"`
	HumanCorrect      int `json:"human_correct"`
	ComputerDecisions int `json:"computer_decisions"`
	ComputerCorrect   int `json:"computer_correct"`

	PeakBalance int `json:"peak_balance"`
}

// WinRate is the percentage of settled human hands that won.
func (s Stats) WinRate() float64 {
	return percent(s.HumanWins, s.HumanWins+s.HumanLosses+s.HumanPushes)
}

// HumanAccuracy is the percentage of human decisions matching basic strategy.
func (s Stats) HumanAccuracy() float64 {
	return percent(s.HumanCorrect, s.HumanDecisions)
}

// ComputerAccuracy is the percentage of computer decisions matching basic strategy.
func (s Stats) ComputerAccuracy() float64 {
	return percent(s.ComputerCorrect, s.ComputerDecisions)
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

func matchesBasic(a Action, total, dealerUp int) bool {
	hit := a == Hit || a == DoubleDown
	return hit == evaluator.BasicStrategy(total, dealerUp)
}

func (s *Stats) recordHuman(a Action, total, dealerUp int) {
	s.HumanDecisions++
	if matchesBasic(a, total, dealerUp) {
		s.HumanCorrect++
	}
}

func (s *Stats) recordComputer(a Action, total, dealerUp int) {
	s.ComputerDecisions++
	if matchesBasic(a, total, dealerUp) {
		s.ComputerCorrect++
	}
}

func (s *Stats) recordOutcome(kind SeatKind, o evaluator.Outcome) {
	switch {
	case kind == Human && o == evaluator.Win:
		s.HumanWins++
	case kind == Human && o == evaluator.Loss:
		s.HumanLosses++
	case kind == Human:
		s.HumanPushes++
	case o == evaluator.Win:
		s.ComputerWins++
	case o == evaluator.Loss:
		s.ComputerLosses++
	}
	if o == evaluator.Loss {
		s.DealerWins++
	}
}
