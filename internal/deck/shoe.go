package deck

import rand "math/rand/v2"

// StandardDecks is the number of decks in a default shoe.
const StandardDecks = 6

// Shoe is a shuffled pool of cards built from one or more standard decks.
// Cards are drawn from the end of the slice.
type Shoe struct {
	cards []Card
	decks int
	rng   *rand.Rand
}

// NewShoe builds and shuffles a shoe of the given number of 52-card decks.
// A non-positive deck count falls back to StandardDecks.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	if decks <= 0 {
		decks = StandardDecks
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Shoe{
		cards: make([]Card, 0, decks*52),
		decks: decks,
		rng:   rng,
	}
	s.fill()
	s.Shuffle()
	return s
}

// NewShoeFromCards builds an unshuffled shoe; the last card is drawn first.
func NewShoeFromCards(cards []Card) *Shoe {
	c := make([]Card, len(cards))
	copy(c, cards)
	return &Shoe{cards: c, decks: (len(cards) + 51) / 52}
}

func (s *Shoe) fill() {
	s.cards = s.cards[:0]
	for d := 0; d < s.decks; d++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				s.cards = append(s.cards, NewCard(suit, rank))
			}
		}
	}
}

// Shuffle randomizes the remaining cards (Fisher-Yates)
func (s *Shoe) Shuffle() {
	if s.rng == nil {
		return
	}
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Draw removes and returns the last card. The boolean is false when the
// shoe is empty.
func (s *Shoe) Draw() (Card, bool) {
	n := len(s.cards)
	if n == 0 {
		return Card{}, false
	}
	card := s.cards[n-1]
	s.cards = s.cards[:n-1]
	return card, true
}

// Remaining returns the number of undealt cards
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// DecksRemaining estimates how many decks are left, as used by the true count.
func (s *Shoe) DecksRemaining() float64 {
	return float64(len(s.cards)) / 52
}

// Decks returns the number of decks the shoe was built from.
func (s *Shoe) Decks() int {
	return s.decks
}
