package simulator

import (
	"fmt"

	"github.com/lox/blackjackbots/internal/deck"
	"github.com/lox/blackjackbots/internal/evaluator"
)

// Synthesize builds a concrete starting hand for a state. Soft hands are an
// Ace plus the remainder; hard hands are made from ten-valued cards down,
// never leaving a lone Ace.
func Synthesize(total int, soft bool) ([]deck.Card, error) {
	if total > evaluator.BlackjackValue {
		return nil, fmt.Errorf("total %d is above %d", total, evaluator.BlackjackValue)
	}
	if soft {
		if total < 12 {
			return nil, fmt.Errorf("soft total %d is below 12", total)
		}
		rest := total - 11
		if rest == 1 {
			return []deck.Card{
				deck.NewCard(deck.Spades, deck.Ace),
				deck.NewCard(deck.Hearts, deck.Ace),
			}, nil
		}
		r, _ := deck.RankForValue(rest)
		return []deck.Card{
			deck.NewCard(deck.Spades, deck.Ace),
			deck.NewCard(deck.Hearts, r),
		}, nil
	}

	total = max(total, 4)
	suits := []deck.Suit{deck.Spades, deck.Hearts, deck.Diamonds, deck.Clubs}
	var cards []deck.Card
	for remaining := total; remaining > 0; {
		v := min(10, remaining)
		if len(cards) == 0 && v == remaining {
			v = remaining - 2
		}
		if remaining-v == 1 {
			v--
		}
		r, _ := deck.RankForValue(v)
		cards = append(cards, deck.NewCard(suits[len(cards)%len(suits)], r))
		remaining -= v
	}
	return cards, nil
}
