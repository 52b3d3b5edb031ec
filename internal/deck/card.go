package deck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankSymbols = map[Rank]string{
	Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7", Eight: "8",
	Nine: "9", Ten: "10", Jack: "J", Queen: "Q", King: "K", Ace: "A",
}

// String returns the string representation of a rank
func (r Rank) String() string {
	if s, ok := rankSymbols[r]; ok {
		return s
	}
	return "?"
}

// Value is the nominal blackjack value of the rank: face cards count 10 and
// the Ace counts 11 until a hand has to reduce it.
func (r Rank) Value() int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten:
		return 10
	case r >= Two:
		return int(r)
	default:
		return 0
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Value returns the nominal blackjack value of the card
func (c Card) Value() int {
	return c.Rank.Value()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

type cardJSON struct {
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Value int    `json:"value"`
}

// MarshalJSON renders the card the way clients display it.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Rank: c.Rank.String(), Suit: c.Suit.String(), Value: c.Value()})
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rank, ok := parseRank(raw.Rank)
	if !ok {
		return fmt.Errorf("invalid rank %q", raw.Rank)
	}
	suit, ok := parseSuit(raw.Suit)
	if !ok {
		return fmt.Errorf("invalid suit %q", raw.Suit)
	}
	*c = Card{Suit: suit, Rank: rank}
	return nil
}

func parseRank(s string) (Rank, bool) {
	switch strings.ToUpper(s) {
	case "T", "10":
		return Ten, true
	}
	for r, sym := range rankSymbols {
		if strings.EqualFold(sym, s) {
			return r, true
		}
	}
	return 0, false
}

func parseSuit(s string) (Suit, bool) {
	switch strings.ToLower(s) {
	case "s", "♠":
		return Spades, true
	case "h", "♥":
		return Hearts, true
	case "d", "♦":
		return Diamonds, true
	case "c", "♣":
		return Clubs, true
	}
	return 0, false
}

// ParseCards parses compact card notation such as "AsTd5h". Tens are
// written as "T".
func ParseCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string %q: odd length", s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		rank, ok := parseRank(s[i : i+1])
		if !ok {
			return nil, fmt.Errorf("invalid rank %q in %q", s[i:i+1], s)
		}
		suit, ok := parseSuit(s[i+1 : i+2])
		if !ok {
			return nil, fmt.Errorf("invalid suit %q in %q", s[i+1:i+2], s)
		}
		cards = append(cards, NewCard(suit, rank))
	}
	return cards, nil
}

// MustParseCards is ParseCards for fixtures; it panics on bad input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// RankForValue returns a rank with the given blackjack value. Value 10 maps
// to Ten and 11 (or 1) to Ace.
func RankForValue(v int) (Rank, bool) {
	switch {
	case v == 1 || v == 11:
		return Ace, true
	case v >= 2 && v <= 10:
		return Rank(v), true
	default:
		return 0, false
	}
}
