package game

import (
	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
)

// EasyHitBelow is the static rule easy computer seats follow: hit below 16.
const EasyHitBelow = 16

// TurnState is the read-only view a computer seat decides from
type TurnState struct {
	Seat         string
	Cards        []deck.Card
	Total        int
	Soft         bool
	DealerUpCard int
	RunningCount int
	TrueCount    float64
	Difficulty   Difficulty
}

// Decision is an agent's chosen action plus the rationale that goes into
// the decision log
type Decision struct {
	Action         Action
	Strategy       string
	HitProbability float64
}

// Agent decides for computer seats. Agents only read state; the engine
// applies the decision.
type Agent interface {
	MakeDecision(state TurnState) Decision
}

// DecisionRecord is one entry of the decision log
type DecisionRecord struct {
	Round          int     `json:"round"`
	Actor          string  `json:"actor"`
	Action         Action  `json:"action"`
	Strategy       string  `json:"strategy"`
	HitProbability float64 `json:"hit_probability"`
	Count          int     `json:"count"`
	Total          int     `json:"total"`
	DealerUpCard   int     `json:"dealer_up_card"`
}

// maxDecisionLog bounds the decision log kept on a session.
const maxDecisionLog = 200

// playComputer runs a computer seat's whole sub-turn.
func (e *Engine) playComputer(h *Hand) {
	for !h.finished() {
		state := e.turnState(h)

		var d Decision
		if e.difficulty == Easy || e.agent == nil {
			d.Action = Stand
			if state.Total < EasyHitBelow {
				d.Action = Hit
			}
		} else {
			d = e.agent.MakeDecision(state)
			e.recordDecision(h, state, d)
		}
		if d.Action != Hit {
			d.Action = Stand
		}

		e.stats.recordComputer(d.Action, state.Total, state.DealerUpCard)
		e.logger.Debug("Computer decision", "seat", h.account.Name, "action", d.Action,
			"total", state.Total, "dealer", state.DealerUpCard, "strategy", d.Strategy)

		if d.Action == Hit {
			e.dealTo(h)
		} else {
			h.standing = true
		}
	}
}

func (e *Engine) turnState(h *Hand) TurnState {
	return TurnState{
		Seat:         h.account.ID,
		Cards:        h.Cards(),
		Total:        h.value,
		Soft:         evaluator.IsSoft(h.cards),
		DealerUpCard: e.dealerUpValue(),
		RunningCount: e.counter.RunningCount(),
		TrueCount:    e.counter.TrueCount(e.shoe.DecksRemaining()),
		Difficulty:   e.difficulty,
	}
}

func (e *Engine) recordDecision(h *Hand, state TurnState, d Decision) {
	e.decisions = append(e.decisions, DecisionRecord{
		Round:          e.round,
		Actor:          h.account.Name,
		Action:         d.Action,
		Strategy:       d.Strategy,
		HitProbability: d.HitProbability,
		Count:          state.RunningCount,
		Total:          state.Total,
		DealerUpCard:   state.DealerUpCard,
	})
	if n := len(e.decisions); n > maxDecisionLog {
		e.decisions = append(e.decisions[:0], e.decisions[n-maxDecisionLog:]...)
	}
}
