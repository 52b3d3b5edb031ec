package counter

import (
	"testing"

	"github.com/lox/blackjackbots/internal/deck"
	"github.com/stretchr/testify/assert"
)

func feed(c *Counter, notation string) {
	for _, card := range deck.MustParseCards(notation) {
		c.Update(card)
	}
}

func TestRunningCount(t *testing.T) {
	var c Counter
	feed(&c, "2s5hKdTc7sAh")
	assert.Equal(t, -1, c.RunningCount())
	assert.Equal(t, 6, c.Dealt())
}

func TestTag(t *testing.T) {
	tests := []struct {
		cards string
		want  int
	}{
		{"2s", 1}, {"6h", 1}, {"7d", 0}, {"9c", 0}, {"Ts", -1}, {"Qh", -1}, {"Ad", -1},
	}
	for _, tt := range tests {
		t.Run(tt.cards, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(deck.MustParseCards(tt.cards)[0]))
		})
	}
}

func TestTrueCount(t *testing.T) {
	var c Counter
	feed(&c, "2s3s4s5s")
	assert.InDelta(t, 2.0, c.TrueCount(2), 1e-9)
	assert.InDelta(t, 4.0, c.TrueCount(0.4), 1e-9, "below half a deck returns the running count")
	assert.InDelta(t, 8.0, c.TrueCount(0.5), 1e-9)
}

func TestSuggestion(t *testing.T) {
	var c Counter
	assert.Equal(t, Neutral, c.Suggestion())

	feed(&c, "2s3s")
	assert.Equal(t, Neutral, c.Suggestion())
	feed(&c, "4s")
	assert.Equal(t, Aggressive, c.Suggestion())

	c.Reset()
	feed(&c, "KsKhKdKc")
	assert.Equal(t, Conservative, c.Suggestion())
}

func TestCountHelpers(t *testing.T) {
	assert.InDelta(t, -1.5, TrueCountFor(-3, 2), 1e-9)
	assert.InDelta(t, -3.0, TrueCountFor(-3, 0.25), 1e-9)
	assert.Equal(t, Aggressive, SuggestionFor(3))
	assert.Equal(t, Neutral, SuggestionFor(2))
	assert.Equal(t, Neutral, SuggestionFor(-2))
	assert.Equal(t, Conservative, SuggestionFor(-3))
}

func TestReset(t *testing.T) {
	var c Counter
	feed(&c, "2s3s4s")
	c.Reset()
	assert.Zero(t, c.RunningCount())
	assert.Zero(t, c.Dealt())
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, NegativeBucket, BucketFor(-2))
	assert.Equal(t, NeutralBucket, BucketFor(-1))
	assert.Equal(t, NeutralBucket, BucketFor(1))
	assert.Equal(t, PositiveBucket, BucketFor(2))
	assert.Equal(t, "Negative", NegativeBucket.String())
}
