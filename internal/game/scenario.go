package game

import "github.com/lox/blackjackbots/internal/deck"

// ScenarioSeatID is the single seat of an engine prepared by StartScenario.
const ScenarioSeatID = "scenario"

// StartScenario replaces the table with a single human hand holding player
// and a dealer showing only up, and puts it in play. The dealer's second
// card is drawn during the dealer turn. Used by simulations that only need
// the engine's turn and settlement logic; the cards are not counted.
func (e *Engine) StartScenario(player []deck.Card, up deck.Card) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := newAccount(ScenarioSeatID, "Scenario", Human, 0)
	h := newHand(a)
	for _, c := range player {
		h.AddCard(c)
	}
	e.accounts = []*Account{a}
	e.hands = []*Hand{h}
	e.seated = true

	e.dealer = newHand(nil)
	e.dealer.AddCard(up)

	e.round++
	e.message = ""
	e.phase = InProgress
	e.turn = 0
	return e.snapshotLocked()
}
