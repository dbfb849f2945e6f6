package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anarjbu15-star/poker-site/internal/randutil"
)

func TestNewDeckHas52DistinctCards(t *testing.T) {
	t.Parallel()

	d := New()
	require.Equal(t, 52, d.Remaining())

	seen := map[Card]bool{}
	for d.Remaining() > 0 {
		c, err := d.Draw()
		require.NoError(t, err)
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestShuffledDeckStillDistinct(t *testing.T) {
	t.Parallel()

	d := NewShuffled(randutil.New(42))
	seen := map[Card]bool{}
	for d.Remaining() > 0 {
		c, err := d.Draw()
		require.NoError(t, err)
		assert.False(t, seen[c])
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	a := NewShuffled(randutil.New(7))
	b := NewShuffled(randutil.New(7))
	for a.Remaining() > 0 {
		ca, err := a.Draw()
		require.NoError(t, err)
		cb, err := b.Draw()
		require.NoError(t, err)
		assert.Equal(t, ca, cb)
	}
}

func TestDrawEmptyDeck(t *testing.T) {
	t.Parallel()

	d := NewStacked(NewCard(Spades, Ace))
	_, err := d.Draw()
	require.NoError(t, err)

	_, err = d.Draw()
	assert.ErrorIs(t, err, ErrEmptyDeck)

	_, err = d.DrawN(1)
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDrawN(t *testing.T) {
	t.Parallel()

	d := New()
	cards, err := d.DrawN(5)
	require.NoError(t, err)
	assert.Len(t, cards, 5)
	assert.Equal(t, 47, d.Remaining())

	_, err = d.DrawN(48)
	assert.ErrorIs(t, err, ErrEmptyDeck)
}
