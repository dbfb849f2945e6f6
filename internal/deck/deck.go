package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrEmptyDeck is returned by Draw when no cards remain. A full deck covers
// 6 seats x 2 hole cards + 5 community cards, so hitting this mid-hand means
// the table state is corrupt.
var ErrEmptyDeck = errors.New("deck: no cards remaining")

// Deck is an ordered sequence of distinct cards, consumed destructively.
type Deck struct {
	cards []Card
}

// New creates a fresh 52-card deck in canonical order.
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	return d
}

// NewStacked creates a deck holding exactly the given cards in order, top
// first. Deterministic deals for tests.
func NewStacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// NewShuffled creates a fresh deck and shuffles it with the given RNG.
func NewShuffled(rng *rand.Rand) *Deck {
	d := New()
	d.Shuffle(rng)
	return d
}

// Shuffle applies a Fisher-Yates shuffle using the provided RNG.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DrawN draws n cards from the top of the deck.
func (d *Deck) DrawN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrEmptyDeck
	}
	cards := make([]Card, n)
	for i := range cards {
		c, err := d.Draw()
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
