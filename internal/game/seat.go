package game

import "github.com/anarjbu15-star/poker-site/internal/deck"

// Seat is one of the table's fixed slots. A seat keeps its occupant and chip
// stack across hands; hole cards and the hand flags are cleared every deal.
// Disconnects do not touch the seat at all - the transport layer only drops
// its channel reference.
type Seat struct {
	Index int
	Name  string // empty when unoccupied
	Chips int

	HoleCards []deck.Card
	InHand    bool
	Folded    bool
	AllIn     bool

	Bet          int // committed this betting round
	Contribution int // committed this hand, drives side-pot layering
}

// Occupied reports whether a player holds this seat.
func (s *Seat) Occupied() bool {
	return s.Name != ""
}

// CanAct reports whether the seat is still due to act in the current round.
func (s *Seat) CanAct() bool {
	return s.Occupied() && s.InHand && !s.Folded && !s.AllIn
}

// resetForHand clears all per-hand state while preserving occupant and stack.
func (s *Seat) resetForHand() {
	s.HoleCards = nil
	s.InHand = false
	s.Folded = false
	s.AllIn = false
	s.Bet = 0
	s.Contribution = 0
}

// pay moves up to amount chips from the stack into the seat's current bet,
// returning what was actually paid. Running out of chips puts the seat
// all-in.
func (s *Seat) pay(amount int) int {
	if amount > s.Chips {
		amount = s.Chips
	}
	s.Chips -= amount
	s.Bet += amount
	s.Contribution += amount
	if s.Chips == 0 && s.InHand {
		s.AllIn = true
	}
	return amount
}
