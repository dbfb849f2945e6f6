package game

import "github.com/anarjbu15-star/poker-site/internal/deck"

// Winner is one seat's share of a pot.
type Winner struct {
	Seat  int
	Name  string
	Share int
	Hand  string // hand category, empty for an uncontested win
}

// PotResult records how one pot layer was settled.
type PotResult struct {
	Amount  int
	Winners []Winner
}

// Result is produced when a hand ends, either uncontested or at showdown. It
// carries the final board because the table clears its own copy when the hand
// tears down.
type Result struct {
	Uncontested bool
	Board       []deck.Card
	Pots        []PotResult
}

// TotalAwarded sums every winner's share across all pots.
func (r *Result) TotalAwarded() int {
	total := 0
	for _, pot := range r.Pots {
		for _, w := range pot.Winners {
			total += w.Share
		}
	}
	return total
}
