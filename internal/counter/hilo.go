// Package counter implements Hi-Lo card counting over a single shoe.
package counter

import "github.com/lox/blackjackbots/internal/deck"

// Suggestion is the qualitative betting advice derived from the running count.
type Suggestion string

const (
	Aggressive   Suggestion = "Bet High / Aggressive"
	Conservative Suggestion = "Bet Low / Conservative"
	Neutral      Suggestion = "Neutral"
)

// Bucket is the coarse count state used for learning.
type Bucket int

const (
	NegativeBucket Bucket = -1
	NeutralBucket  Bucket = 0
	PositiveBucket Bucket = 1
)

// String returns the string representation of a bucket
func (b Bucket) String() string {
	switch b {
	case NegativeBucket:
		return "Negative"
	case PositiveBucket:
		return "Positive"
	default:
		return "Neutral"
	}
}

// Buckets lists every bucket in ascending order.
var Buckets = []Bucket{NegativeBucket, NeutralBucket, PositiveBucket}

// Counter tracks the Hi-Lo running count. The zero value is ready to use.
type Counter struct {
	running int
	dealt   int
}

// Tag returns the Hi-Lo weight of a card: +1 for 2-6, 0 for 7-9, -1 for
// tens, faces and Aces.
func Tag(c deck.Card) int {
	switch v := c.Value(); {
	case v >= 2 && v <= 6:
		return 1
	case v >= 10:
		return -1
	default:
		return 0
	}
}

// Update records a dealt card.
func (c *Counter) Update(card deck.Card) {
	c.running += Tag(card)
	c.dealt++
}

// Reset clears the count; call it whenever the shoe is rebuilt.
func (c *Counter) Reset() {
	c.running = 0
	c.dealt = 0
}

// RunningCount returns the running count
func (c *Counter) RunningCount() int {
	return c.running
}

// Dealt returns the number of cards seen since the last reset
func (c *Counter) Dealt() int {
	return c.dealt
}

// TrueCount normalises the running count by decks remaining. Below half a
// deck the running count is returned unscaled.
func (c *Counter) TrueCount(decksRemaining float64) float64 {
	return TrueCountFor(c.running, decksRemaining)
}

// TrueCountFor normalises a running count the way Counter.TrueCount does.
func TrueCountFor(running int, decksRemaining float64) float64 {
	if decksRemaining < 0.5 {
		return float64(running)
	}
	return float64(running) / decksRemaining
}

// Suggestion maps the running count to betting advice.
func (c *Counter) Suggestion() Suggestion {
	return SuggestionFor(c.running)
}

// SuggestionFor maps a running count to betting advice.
func SuggestionFor(running int) Suggestion {
	switch {
	case running > 2:
		return Aggressive
	case running < -2:
		return Conservative
	default:
		return Neutral
	}
}

// Bucket classifies the running count for the learning state.
func (c *Counter) Bucket() Bucket {
	return BucketFor(c.running)
}

// BucketFor classifies a running count: <= -2 negative, >= 2 positive.
func BucketFor(running int) Bucket {
	switch {
	case running <= -2:
		return NegativeBucket
	case running >= 2:
		return PositiveBucket
	default:
		return NeutralBucket
	}
}
