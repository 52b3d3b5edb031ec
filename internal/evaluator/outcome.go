package evaluator

// Outcome is the result of a player hand against the dealer
type Outcome int

const (
	Loss Outcome = iota - 1
	Push
	Win
)

// String returns the string representation of an outcome
func (o Outcome) String() string {
	switch o {
	case Win:
		return "WIN"
	case Loss:
		return "LOSS"
	case Push:
		return "PUSH"
	default:
		return "UNKNOWN"
	}
}

// Reward maps the outcome to +1, 0 or -1.
func (o Outcome) Reward() float64 {
	return float64(o)
}

// Score maps the outcome to a win probability sample where a push is half a win.
func (o Outcome) Score() float64 {
	switch o {
	case Win:
		return 1
	case Push:
		return 0.5
	default:
		return 0
	}
}

// DetermineWinner compares final totals. A busted player loses even when
// the dealer also busts.
func DetermineWinner(playerValue, dealerValue int) Outcome {
	switch {
	case IsBust(playerValue):
		return Loss
	case IsBust(dealerValue):
		return Win
	case playerValue > dealerValue:
		return Win
	case playerValue < dealerValue:
		return Loss
	default:
		return Push
	}
}
