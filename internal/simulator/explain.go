package simulator

import (
	"fmt"
	"strings"
)

// Explanation is a recommendation with the estimate behind it and a short
// human-readable reason.
type Explanation struct {
	Estimate
	Action string `json:"recommendation"`
	Reason string `json:"reason"`
}

// Explain estimates a state and describes the recommended action.
func (e *Estimator) Explain(s State) Explanation {
	est := e.Estimate(s)
	action := est.Recommendation()

	var reasons []string
	switch {
	case s.Total <= 11:
		reasons = append(reasons, "low hand, safe to hit")
	case s.Total >= 17:
		reasons = append(reasons, "strong hand, bust risk high")
	}
	switch {
	case s.DealerUp >= 2 && s.DealerUp <= 6:
		reasons = append(reasons, fmt.Sprintf("dealer shows a weak %d", s.DealerUp))
	case s.DealerUp >= 7:
		reasons = append(reasons, fmt.Sprintf("dealer shows a strong %d", s.DealerUp))
	}
	reasons = append(reasons, fmt.Sprintf("hit wins %.0f%%, stand wins %.0f%%", est.Hit*100, est.Stand*100))

	return Explanation{
		Estimate: est,
		Action:   strings.ToUpper(action.String()),
		Reason:   strings.Join(reasons, "; "),
	}
}
