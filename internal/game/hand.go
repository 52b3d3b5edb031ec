package game

import (
	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
)

// Account is the single owner of an identity's balance. Every hand the
// identity plays (split hands included) settles against the same account.
type Account struct {
	ID   string
	Name string
	Kind SeatKind

	balance int
	peak    int
}

func newAccount(id, name string, kind SeatKind, balance int) *Account {
	return &Account{ID: id, Name: name, Kind: kind, balance: balance, peak: balance}
}

// Balance returns the current balance
func (a *Account) Balance() int {
	return a.balance
}

// Peak returns the highest balance observed
func (a *Account) Peak() int {
	return a.peak
}

func (a *Account) debit(n int) bool {
	if n < 0 || n > a.balance {
		return false
	}
	a.balance -= n
	return true
}

func (a *Account) credit(n int) {
	a.balance += n
	if a.balance > a.peak {
		a.peak = a.balance
	}
}

func (a *Account) set(n int) {
	a.balance = n
	if n > a.peak {
		a.peak = n
	}
}

// Hand is one set of cards in play. Player hands belong to an account; the
// dealer hand has none.
type Hand struct {
	account *Account

	cards  []deck.Card
	value  int
	busted bool

	standing    bool
	withdrawn   bool
	doubledDown bool
	split       bool
	insured     bool
	sittingOut  bool

	bet          int
	initialBet   int
	insuranceBet int
	balance      int // read-only copy of account.balance

	settled bool
	outcome evaluator.Outcome
	payout  int
}

func newHand(account *Account) *Hand {
	h := &Hand{account: account}
	h.refresh()
	return h
}

// AddCard appends a card and recomputes the cached value.
func (h *Hand) AddCard(c deck.Card) {
	h.cards = append(h.cards, c)
	h.recalculate()
}

func (h *Hand) recalculate() {
	h.value = evaluator.Value(h.cards)
	h.busted = evaluator.IsBust(h.value)
}

func (h *Hand) refresh() {
	if h.account != nil {
		h.balance = h.account.balance
	}
}

// Cards returns a copy of the cards in the hand
func (h *Hand) Cards() []deck.Card {
	out := make([]deck.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Value returns the best total of the hand
func (h *Hand) Value() int { return h.value }

// Busted reports whether the hand is over 21
func (h *Hand) Busted() bool { return h.busted }

// Soft reports whether an Ace is counted as 11
func (h *Hand) Soft() bool { return evaluator.IsSoft(h.cards) }

// Natural reports a two-card 21 that did not come from a split.
func (h *Hand) Natural() bool {
	return !h.split && evaluator.IsBlackjack(h.cards)
}

// Account returns the owning account, nil for the dealer
func (h *Hand) Account() *Account { return h.account }

// Balance is the owning account's balance as of the last mutation.
func (h *Hand) Balance() int { return h.balance }

func (h *Hand) finished() bool {
	return h.standing || h.withdrawn || h.busted || h.sittingOut
}

func (h *Hand) resetRound() {
	*h = Hand{account: h.account}
	h.refresh()
}
