// Package evaluator scores poker hands. A Score is totally ordered across
// players: higher wins, equal means an exact chop.
package evaluator

import (
	"errors"
	"sort"

	"github.com/anarjbu15-star/poker-site/internal/deck"
)

// Category is the hand tier. Declared in ascending strength so the tier
// comparison falls out of the integer ordering.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a description of the hand category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Score encodes a 5-card hand strength as category tier plus up to five
// tie-break ranks in descending significance, one nibble each. Comparing two
// Scores as integers compares the hands.
type Score uint32

// Category extracts the hand tier from a score.
func (s Score) Category() Category {
	return Category(s >> 20)
}

// ErrHandSize is returned when the input card count is outside the supported
// range.
var ErrHandSize = errors.New("evaluator: unsupported hand size")

func pack(cat Category, ranks ...int) Score {
	s := Score(cat) << 20
	shift := 16
	for _, r := range ranks {
		s |= Score(r) << shift
		shift -= 4
	}
	return s
}

// Score5 evaluates exactly five cards.
func Score5(cards []deck.Card) (Score, error) {
	if len(cards) != 5 {
		return 0, ErrHandSize
	}

	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Value()
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh := straightHighCard(ranks)

	if flush && straightHigh > 0 {
		return pack(StraightFlush, straightHigh), nil
	}

	// Group ranks by multiplicity, groups of equal size ordered by rank.
	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	type group struct{ rank, count int }
	groups := make([]group, 0, 5)
	for r, n := range counts {
		groups = append(groups, group{r, n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return pack(FourOfAKind, groups[0].rank, groups[1].rank), nil
	case groups[0].count == 3 && groups[1].count == 2:
		return pack(FullHouse, groups[0].rank, groups[1].rank), nil
	case flush:
		return pack(Flush, ranks[0], ranks[1], ranks[2], ranks[3], ranks[4]), nil
	case straightHigh > 0:
		return pack(Straight, straightHigh), nil
	case groups[0].count == 3:
		return pack(ThreeOfAKind, groups[0].rank, groups[1].rank, groups[2].rank), nil
	case groups[0].count == 2 && groups[1].count == 2:
		return pack(TwoPair, groups[0].rank, groups[1].rank, groups[2].rank), nil
	case groups[0].count == 2:
		return pack(Pair, groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank), nil
	default:
		return pack(HighCard, ranks[0], ranks[1], ranks[2], ranks[3], ranks[4]), nil
	}
}

// straightHighCard returns the high card of a straight formed by the five
// ranks (sorted descending), or 0 if they do not form one. The wheel
// (A-2-3-4-5) counts as a 5-high straight.
func straightHighCard(ranks []int) int {
	run := true
	for i := 1; i < 5; i++ {
		if ranks[i] != ranks[i-1]-1 {
			run = false
			break
		}
	}
	if run {
		return ranks[0]
	}
	if ranks[0] == 14 && ranks[1] == 5 && ranks[2] == 4 && ranks[3] == 3 && ranks[4] == 2 {
		return 5
	}
	return 0
}

// Best evaluates 5 to 7 cards by scoring every 5-card subset and returning
// the maximum, along with the winning subset.
func Best(cards []deck.Card) (Score, []deck.Card, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return 0, nil, ErrHandSize
	}
	if n == 5 {
		score, err := Score5(cards)
		if err != nil {
			return 0, nil, err
		}
		best := make([]deck.Card, 5)
		copy(best, cards)
		return score, best, nil
	}

	var (
		bestScore Score
		bestHand  []deck.Card
		subset    = make([]deck.Card, 5)
	)
	for _, idx := range combinations5(n) {
		for i, k := range idx {
			subset[i] = cards[k]
		}
		score, err := Score5(subset)
		if err != nil {
			return 0, nil, err
		}
		if bestHand == nil || score > bestScore {
			bestScore = score
			bestHand = make([]deck.Card, 5)
			copy(bestHand, subset)
		}
	}
	return bestScore, bestHand, nil
}

// combinations5 enumerates all 5-element index combinations of 0..n-1
// (C(6,5)=6, C(7,5)=21).
func combinations5(n int) [][5]int {
	var out [][5]int
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						out = append(out, [5]int{a, b, c, d, e})
					}
				}
			}
		}
	}
	return out
}
