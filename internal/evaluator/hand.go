// Package evaluator scores blackjack hands and settles them against the dealer.
package evaluator

import "github.com/lox/blackjackbots/internal/deck"

// BlackjackValue is the best possible hand total.
const BlackjackValue = 21

// Value returns the best total for cards: nominal values with Aces at 11,
// reduced by 10 per Ace while the total exceeds 21. If no reduction avoids
// busting, the fully reduced total is returned.
func Value(cards []deck.Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	for total > BlackjackValue && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// MinValue counts every Ace as 1.
func MinValue(cards []deck.Card) int {
	total := 0
	for _, c := range cards {
		if c.IsAce() {
			total++
			continue
		}
		total += c.Value()
	}
	return total
}

// IsSoft reports whether at least one Ace is still counted as 11.
func IsSoft(cards []deck.Card) bool {
	return Value(cards) != MinValue(cards)
}

// IsBust reports whether a total exceeds 21.
func IsBust(value int) bool {
	return value > BlackjackValue
}

// IsBlackjack reports a two-card 21.
func IsBlackjack(cards []deck.Card) bool {
	return len(cards) == 2 && Value(cards) == BlackjackValue
}
