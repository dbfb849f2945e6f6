package game

import "sort"

// Pot is one layer of the hand's pot with the seats allowed to win it. Side
// pots arise when players were all-in for unequal amounts.
type Pot struct {
	Amount   int
	Eligible []int // seat indexes, ascending
}

// BuildPots layers the seats' cumulative contributions into one or more pots.
// For each distinct positive contribution level L (ascending, previous level
// P): layer amount = (L-P) x count(contribution >= L), eligibility = the
// non-folded seats with contribution >= L. Folded seats fund every layer
// they reached but can never win one. A top layer no live seat reached, which
// happens when the highest contributor folds, merges into the pot below it.
// The layer amounts always sum to the total contributed.
func BuildPots(seats []*Seat) []Pot {
	levelSet := map[int]bool{}
	for _, s := range seats {
		if s.Contribution > 0 {
			levelSet[s.Contribution] = true
		}
	}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		pot := Pot{}
		for _, s := range seats {
			if s.Contribution >= level {
				pot.Amount += level - prev
				if s.InHand && !s.Folded {
					pot.Eligible = append(pot.Eligible, s.Index)
				}
			}
		}
		n := len(pots)
		switch {
		case len(pot.Eligible) == 0 && n > 0:
			// Only folded seats reached this level; their overage cannot
			// be won on its own, so it sinks into the pot below.
			pots[n-1].Amount += pot.Amount
		case n > 0 && equalSeatSets(pots[n-1].Eligible, pot.Eligible):
			// Adjacent layers with identical eligibility collapse into
			// one pot.
			pots[n-1].Amount += pot.Amount
		default:
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}

func equalSeatSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
