// Package game implements the authoritative hand state machine for a single
// Hold'em table: dealing, blinds, betting legality, street advancement, side
// pots and showdown settlement. It is transport-free; the server layer feeds
// it one event at a time.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/anarjbu15-star/poker-site/internal/deck"
	"github.com/anarjbu15-star/poker-site/internal/evaluator"
)

var (
	ErrTableFull     = errors.New("game: table full")
	ErrNotSeated     = errors.New("game: not seated")
	ErrNotYourTurn   = errors.New("game: not your turn")
	ErrNoHand        = errors.New("game: no hand in progress")
	ErrHandRunning   = errors.New("game: hand already in progress")
	ErrCannotStart   = errors.New("game: need two funded seats to start")
	ErrCannotCheck   = errors.New("game: cannot check facing a bet")
	ErrRaiseTooSmall = errors.New("game: raise below minimum")
)

// Table owns all state for one hand at a time. Callers must serialize access;
// the server layer funnels every event through a single goroutine.
type Table struct {
	Seats  []*Seat
	Dealer int
	Actor  int // -1 outside a betting round
	Stage  Stage
	Board  []deck.Card
	Pot    int

	MinBet   int // big blind size
	HighBet  int // amount to call this round
	MinRaise int // minimum increment for a full raise

	acted    []bool // per seat, since the last full raise
	deck     *deck.Deck
	nextDeck *deck.Deck // consumed by the next StartHand when set
	rng      *rand.Rand
}

// NewTable creates an empty table with the given number of seats.
func NewTable(numSeats, minBet int, rng *rand.Rand) *Table {
	seats := make([]*Seat, numSeats)
	for i := range seats {
		seats[i] = &Seat{Index: i}
	}
	return &Table{
		Seats:  seats,
		Dealer: numSeats - 1, // first hand advances the button to seat 0
		Actor:  -1,
		Stage:  Idle,
		MinBet: minBet,
		acted:  make([]bool, numSeats),
		rng:    rng,
	}
}

// Join seats a named player at the first empty seat, granting startChips to a
// first-time occupant. Joining with a name that already holds a seat resumes
// that seat untouched: same index, same stack, same hand membership.
func (t *Table) Join(name string, startChips int) (int, error) {
	for _, s := range t.Seats {
		if s.Name == name {
			return s.Index, nil
		}
	}
	for _, s := range t.Seats {
		if !s.Occupied() {
			s.Name = name
			s.Chips = startChips
			s.resetForHand()
			return s.Index, nil
		}
	}
	return -1, ErrTableFull
}

// SetNextDeck stacks the deck for the next hand. Deterministic deals for
// tests.
func (t *Table) SetNextDeck(d *deck.Deck) {
	t.nextDeck = d
}

// SeatOf returns the seat index held by name, or -1.
func (t *Table) SeatOf(name string) int {
	for _, s := range t.Seats {
		if s.Occupied() && s.Name == name {
			return s.Index
		}
	}
	return -1
}

// CanStart reports whether a new hand could begin.
func (t *Table) CanStart() bool {
	return t.Stage == Idle && t.fundedSeats() >= 2
}

func (t *Table) fundedSeats() int {
	n := 0
	for _, s := range t.Seats {
		if s.Occupied() && s.Chips > 0 {
			n++
		}
	}
	return n
}

// TotalChips sums stacks, live bets and the pot. Constant for the lifetime of
// the table: chips move, they are never created or destroyed.
func (t *Table) TotalChips() int {
	total := t.Pot
	for _, s := range t.Seats {
		total += s.Chips + s.Bet
	}
	return total
}

// StartHand deals a new hand: fresh shuffled deck, button advance, hole
// cards, blinds, and the first actor. When blind posting leaves no one able
// to act, Actor is -1 and the caller must settle the hand with Runout; the
// dealt state stays observable in between so hole cards can be delivered.
func (t *Table) StartHand() error {
	if t.Stage != Idle {
		return ErrHandRunning
	}
	if t.fundedSeats() < 2 {
		return ErrCannotStart
	}

	if t.nextDeck != nil {
		t.deck = t.nextDeck
		t.nextDeck = nil
	} else {
		t.deck = deck.NewShuffled(t.rng)
	}
	t.Board = nil
	t.Pot = 0
	t.HighBet = 0
	t.MinRaise = t.MinBet
	for i := range t.acted {
		t.acted[i] = false
	}

	dealt := 0
	for _, s := range t.Seats {
		s.resetForHand()
		if s.Occupied() && s.Chips > 0 {
			cards, err := t.deck.DrawN(2)
			if err != nil {
				t.abortHand()
				return fmt.Errorf("dealing hole cards: %w", err)
			}
			s.HoleCards = cards
			s.InHand = true
			dealt++
		}
	}
	if dealt < 2 {
		t.abortHand()
		return ErrCannotStart
	}

	t.Dealer = t.nextInHand(t.Dealer + 1)

	// Small blind is the seat after the button, big blind the one after
	// that. Short stacks post what they have and are all-in.
	sb := t.nextInHand(t.Dealer + 1)
	bb := t.nextInHand(sb + 1)
	t.Seats[sb].pay(t.MinBet / 2)
	t.Seats[bb].pay(t.MinBet)
	t.HighBet = t.MinBet

	t.Stage = Preflop
	t.Actor = t.nextActor(bb + 1)
	return nil
}

// Runout deals the remaining streets and settles the hand when no seat can
// act, which happens when posting the blinds put every participant all-in.
func (t *Table) Runout() (*Result, error) {
	if !t.Stage.Betting() {
		return nil, ErrNoHand
	}
	if t.Actor != -1 {
		return nil, ErrHandRunning
	}
	return t.advanceStage()
}

// abortHand resets to idle without moving any chips. Used for internal
// failures during dealing.
func (t *Table) abortHand() {
	for _, s := range t.Seats {
		s.resetForHand()
	}
	t.Board = nil
	t.Pot = 0
	t.Stage = Idle
	t.Actor = -1
	t.deck = nil
}

// nextInHand finds the next seat at or after from (wrapping) that is dealt
// into the current hand.
func (t *Table) nextInHand(from int) int {
	n := len(t.Seats)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if t.Seats[idx].InHand && !t.Seats[idx].Folded {
			return idx
		}
	}
	return -1
}

// nextActor finds the next seat at or after from (wrapping) that can still
// act this round.
func (t *Table) nextActor(from int) int {
	n := len(t.Seats)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if t.Seats[idx].CanAct() {
			return idx
		}
	}
	return -1
}

// HandleAction validates and applies one player action. A non-nil Result
// means the hand ended (uncontested or at showdown) and chips have been
// awarded.
func (t *Table) HandleAction(seat int, action Action, amount int) (*Result, error) {
	if !t.Stage.Betting() {
		return nil, ErrNoHand
	}
	if seat < 0 || seat >= len(t.Seats) || !t.Seats[seat].Occupied() {
		return nil, ErrNotSeated
	}
	if seat != t.Actor {
		return nil, ErrNotYourTurn
	}
	s := t.Seats[seat]

	switch action {
	case Fold:
		s.Folded = true

	case Check:
		if s.Bet != t.HighBet {
			return nil, ErrCannotCheck
		}

	case Call:
		s.pay(t.HighBet - s.Bet)

	case Bet, Raise:
		if err := t.applyRaise(s, amount); err != nil {
			return nil, err
		}

	case AllIn:
		t.applyAllIn(s)

	default:
		return nil, fmt.Errorf("game: unsupported action %v", action)
	}

	t.acted[seat] = true
	return t.afterAction()
}

// applyRaise raises the seat's round bet to amount. amount is the raise-to
// total, capped at the stack. A raise below the full minimum is only legal
// when it puts the seat all-in, and such a short raise does not re-open
// action for players who already matched the previous high bet.
func (t *Table) applyRaise(s *Seat, amount int) error {
	max := s.Bet + s.Chips
	if amount > max {
		amount = max
	}
	allIn := amount == max

	minTo := t.MinBet
	if t.HighBet > 0 {
		minTo = t.HighBet + t.MinRaise
	}
	if amount < minTo && !allIn {
		return ErrRaiseTooSmall
	}
	if amount <= t.HighBet {
		if !allIn {
			return ErrRaiseTooSmall
		}
		// All-in under the high bet: effectively a short call.
		s.pay(amount - s.Bet)
		return nil
	}

	if amount >= t.HighBet+t.MinRaise {
		t.MinRaise = amount - t.HighBet
		t.reopenAction()
	}
	s.pay(amount - s.Bet)
	t.HighBet = amount
	return nil
}

// applyAllIn commits the seat's whole stack. Raising the high bet by a full
// raise re-opens action; a short all-in does not.
func (t *Table) applyAllIn(s *Seat) {
	target := s.Bet + s.Chips
	if target > t.HighBet {
		if target >= t.HighBet+t.MinRaise {
			t.MinRaise = target - t.HighBet
			t.reopenAction()
		}
		t.HighBet = target
	}
	s.pay(s.Chips)
}

// reopenAction clears acted flags so everyone gets to respond to a full
// raise. The raiser's own flag is set by HandleAction after the action
// applies.
func (t *Table) reopenAction() {
	for i := range t.acted {
		t.acted[i] = false
	}
}

// afterAction decides what the accepted action leads to: an uncontested win,
// the next actor, or the next street.
func (t *Table) afterAction() (*Result, error) {
	if t.liveSeats() <= 1 {
		return t.finishUncontested(), nil
	}
	if !t.roundComplete() {
		t.Actor = t.nextActor(t.Actor + 1)
		return nil, nil
	}
	return t.advanceStage()
}

// liveSeats counts participants who have not folded.
func (t *Table) liveSeats() int {
	n := 0
	for _, s := range t.Seats {
		if s.InHand && !s.Folded {
			n++
		}
	}
	return n
}

// roundComplete reports whether the betting round is closed: every seat that
// can still act has matched the high bet and has acted since the last full
// raise. All-in seats are exempt from matching. The acted requirement keeps
// a check from ending the round instantly and preserves the big blind's
// preflop option.
func (t *Table) roundComplete() bool {
	for _, s := range t.Seats {
		if !s.CanAct() {
			continue
		}
		if s.Bet != t.HighBet || !t.acted[s.Index] {
			return false
		}
	}
	return true
}

// collectBets sweeps the round's bets into the pot.
func (t *Table) collectBets() {
	for _, s := range t.Seats {
		t.Pot += s.Bet
		s.Bet = 0
	}
}

// advanceStage collects bets and moves to the next street, dealing community
// cards. When no one can act (everyone all-in) it keeps advancing until
// showdown.
func (t *Table) advanceStage() (*Result, error) {
	t.collectBets()
	t.HighBet = 0
	t.MinRaise = t.MinBet
	for i := range t.acted {
		t.acted[i] = false
	}

	var draw int
	switch t.Stage {
	case Preflop:
		t.Stage, draw = Flop, 3
	case Flop:
		t.Stage, draw = Turn, 1
	case Turn:
		t.Stage, draw = River, 1
	case River:
		t.Stage = Showdown
		return t.resolveShowdown()
	default:
		return nil, ErrNoHand
	}

	cards, err := t.deck.DrawN(draw)
	if err != nil {
		// Unreachable with 52 cards and 6 seats; treat as fatal to the hand.
		t.abortHand()
		return nil, fmt.Errorf("dealing %s: %w", t.Stage, err)
	}
	t.Board = append(t.Board, cards...)

	t.Actor = t.nextActor(t.Dealer + 1)
	if t.Actor == -1 {
		return t.advanceStage()
	}
	return nil, nil
}

// finishUncontested awards the whole pot to the last non-folded participant
// without any card reveal.
func (t *Table) finishUncontested() *Result {
	t.collectBets()
	winner := t.nextInHand(0)
	amount := t.Pot
	t.Seats[winner].Chips += amount
	t.Pot = 0

	res := &Result{
		Uncontested: true,
		Board:       append([]deck.Card{}, t.Board...),
		Pots: []PotResult{{
			Amount:  amount,
			Winners: []Winner{{Seat: winner, Name: t.Seats[winner].Name, Share: amount}},
		}},
	}
	t.endHand()
	return res
}

// resolveShowdown settles every pot layer: best 5-card hand among the
// layer's eligible seats wins, ties chop. Remainder chips from an uneven
// chop go to the earliest winner clockwise from the dealer.
func (t *Table) resolveShowdown() (*Result, error) {
	pots := BuildPots(t.Seats)
	t.Pot = 0

	scores := make(map[int]evaluator.Score)
	names := make(map[int]string)
	for _, s := range t.Seats {
		if !s.InHand || s.Folded {
			continue
		}
		score, _, err := evaluator.Best(append(append([]deck.Card{}, s.HoleCards...), t.Board...))
		if err != nil {
			t.abortHand()
			return nil, fmt.Errorf("evaluating seat %d: %w", s.Index, err)
		}
		scores[s.Index] = score
		names[s.Index] = score.Category().String()
	}

	res := &Result{Board: append([]deck.Card{}, t.Board...)}
	for _, pot := range pots {
		var best evaluator.Score
		var winners []int
		for _, idx := range pot.Eligible {
			score := scores[idx]
			switch {
			case len(winners) == 0 || score > best:
				best = score
				winners = []int{idx}
			case score == best:
				winners = append(winners, idx)
			}
		}
		if len(winners) == 0 {
			continue
		}

		// Order winners clockwise from the dealer so the remainder chip
		// lands deterministically.
		ordered := t.clockwiseFromDealer(winners)
		share := pot.Amount / len(ordered)
		remainder := pot.Amount % len(ordered)

		pr := PotResult{Amount: pot.Amount}
		for i, idx := range ordered {
			amount := share
			if i == 0 {
				amount += remainder
			}
			t.Seats[idx].Chips += amount
			pr.Winners = append(pr.Winners, Winner{
				Seat:  idx,
				Name:  t.Seats[idx].Name,
				Share: amount,
				Hand:  names[idx],
			})
		}
		res.Pots = append(res.Pots, pr)
	}

	t.endHand()
	return res, nil
}

// clockwiseFromDealer sorts the given seat indexes by distance clockwise
// from the seat after the dealer.
func (t *Table) clockwiseFromDealer(seats []int) []int {
	n := len(t.Seats)
	ordered := make([]int, len(seats))
	copy(ordered, seats)
	dist := func(idx int) int {
		return ((idx - t.Dealer - 1) + n) % n
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && dist(ordered[j]) < dist(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// endHand returns the table to idle. Stacks survive; everything else about
// the hand is discarded.
func (t *Table) endHand() {
	for _, s := range t.Seats {
		s.HoleCards = nil
		s.InHand = false
		s.Folded = false
		s.AllIn = false
		s.Bet = 0
		s.Contribution = 0
	}
	t.Board = nil
	t.Stage = Idle
	t.Actor = -1
	t.HighBet = 0
	t.deck = nil
}
