package game

import (
	"github.com/lox/blackjackbots/internal/counter"
	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
)

// SeatSnapshot is one player hand as clients see it
type SeatSnapshot struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Kind         SeatKind    `json:"kind"`
	Cards        []deck.Card `json:"cards"`
	Value        int         `json:"value"`
	Soft         bool        `json:"soft"`
	Busted       bool        `json:"busted"`
	Standing     bool        `json:"standing"`
	Withdrawn    bool        `json:"withdrawn"`
	DoubledDown  bool        `json:"doubled_down"`
	Split        bool        `json:"split"`
	Insured      bool        `json:"insured"`
	SittingOut   bool        `json:"sitting_out"`
	Balance      int         `json:"balance"`
	Bet          int         `json:"bet"`
	InitialBet   int         `json:"initial_bet"`
	InsuranceBet int         `json:"insurance_bet"`
	Settled      bool        `json:"settled"`
	Outcome      string      `json:"outcome,omitempty"`
	Payout       int         `json:"payout"`
	IsTurn       bool        `json:"is_turn"`

	Result evaluator.Outcome `json:"-"`
}

// DealerSnapshot is the dealer hand. HiddenCards counts face-down cards
// removed by Public.
type DealerSnapshot struct {
	Cards       []deck.Card `json:"cards"`
	Value       int         `json:"value"`
	UpCard      int         `json:"up_card"`
	HiddenCards int         `json:"hidden_cards"`
}

// Snapshot is the full table state returned by every action
type Snapshot struct {
	Round          int              `json:"round"`
	Phase          Phase            `json:"phase"`
	Difficulty     Difficulty       `json:"difficulty"`
	Seats          []SeatSnapshot   `json:"seats"`
	Dealer         DealerSnapshot   `json:"dealer"`
	Turn           int              `json:"turn"`
	RunningCount   int              `json:"count"`
	TrueCount      float64          `json:"true_count"`
	Suggestion     string           `json:"suggestion"`
	CardsRemaining int              `json:"cards_remaining"`
	WaitingForBets bool             `json:"waiting_for_bets"`
	GameOver       bool             `json:"game_over"`
	Message        string           `json:"message"`
	Stats          Stats            `json:"stats"`
	Decisions      []DecisionRecord `json:"decisions"`

	holeTag int // Hi-Lo tag of the hole card included in RunningCount
}

// Snapshot returns the current table state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	e.refreshBalances()

	s := Snapshot{
		Round:          e.round,
		Phase:          e.phase,
		Difficulty:     e.difficulty,
		Seats:          make([]SeatSnapshot, 0, len(e.hands)),
		Turn:           e.turn,
		RunningCount:   e.counter.RunningCount(),
		TrueCount:      e.counter.TrueCount(e.shoe.DecksRemaining()),
		Suggestion:     string(e.counter.Suggestion()),
		CardsRemaining: e.shoe.Remaining(),
		WaitingForBets: e.phase == WaitingForBets,
		GameOver:       e.phase == GameOver,
		Message:        e.message,
		Stats:          e.stats,
		Decisions:      append([]DecisionRecord(nil), e.decisions...),
		Dealer: DealerSnapshot{
			Cards:  e.dealer.Cards(),
			Value:  e.dealer.value,
			UpCard: e.dealerUpValue(),
		},
	}

	if e.holeCount && len(e.dealer.cards) >= 2 {
		s.holeTag = counter.Tag(e.dealer.cards[0])
	}

	for i, h := range e.hands {
		seat := SeatSnapshot{
			ID:           h.account.ID,
			Name:         h.account.Name,
			Kind:         h.account.Kind,
			Cards:        h.Cards(),
			Value:        h.value,
			Soft:         evaluator.IsSoft(h.cards),
			Busted:       h.busted,
			Standing:     h.standing,
			Withdrawn:    h.withdrawn,
			DoubledDown:  h.doubledDown,
			Split:        h.split,
			Insured:      h.insured,
			SittingOut:   h.sittingOut,
			Balance:      h.balance,
			Bet:          h.bet,
			InitialBet:   h.initialBet,
			InsuranceBet: h.insuranceBet,
			Payout:       h.payout,
			IsTurn:       e.phase == InProgress && i == e.turn,
		}
		if h.settled {
			seat.Settled = true
			seat.Result = h.outcome
			seat.Outcome = h.outcome.String()
		}
		s.Seats = append(s.Seats, seat)
	}
	return s
}

// Public hides the dealer's hole card while seats are still acting,
// including its contribution to the count.
func (s Snapshot) Public() Snapshot {
	if s.Phase != InProgress || len(s.Dealer.Cards) < 2 {
		return s
	}
	up := s.Dealer.Cards[1]
	s.Dealer.Cards = []deck.Card{up}
	s.Dealer.Value = up.Value()
	s.Dealer.HiddenCards = 1

	s.RunningCount -= s.holeTag
	s.TrueCount = counter.TrueCountFor(s.RunningCount, float64(s.CardsRemaining)/52)
	s.Suggestion = string(counter.SuggestionFor(s.RunningCount))
	s.holeTag = 0
	return s
}

// Seat returns the first seat with the given id.
func (s Snapshot) Seat(id string) (SeatSnapshot, bool) {
	for _, seat := range s.Seats {
		if seat.ID == id {
			return seat, true
		}
	}
	return SeatSnapshot{}, false
}

// CurrentSeat returns the seat whose turn it is.
func (s Snapshot) CurrentSeat() (SeatSnapshot, bool) {
	if s.Phase != InProgress || s.Turn < 0 || s.Turn >= len(s.Seats) {
		return SeatSnapshot{}, false
	}
	return s.Seats[s.Turn], true
}
