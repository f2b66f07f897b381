package gacycle

import (
	"math/rand"

	"golang.org/x/exp/slices"
)

// MultiSelector is the k-tournament selector for the population of
// MultiGenomes, identical in mechanics to Selector but operating on the
// multi-string genome type; kept as its own small type rather than a
// shared generic one, the same separate-hierarchy shape
// KTournamentSelectionOperator's own class split takes in the source.
type MultiSelector struct {
	k          int
	maximising bool
}

func NewMultiSelector(k int, maximising bool) *MultiSelector {
	if k < 1 {
		k = 1
	}
	return &MultiSelector{k: k, maximising: maximising}
}

func (s *MultiSelector) Select(pool []*MultiGenome, n int, rng *rand.Rand) []*MultiGenome {
	if n >= len(pool) {
		return slices.Clone(pool)
	}

	remaining := slices.Clone(pool)
	out := make([]*MultiGenome, 0, n)
	for round := 0; round < n; round++ {
		window := len(remaining) - round
		k := s.k
		if k > window {
			k = window
		}
		best := -1
		for i := 0; i < k; i++ {
			j := round + i + rng.Intn(window-i)
			remaining[round+i], remaining[j] = remaining[j], remaining[round+i]
			if best < 0 || s.better(remaining[round+i], remaining[best]) {
				best = round + i
			}
		}
		remaining[round], remaining[best] = remaining[best], remaining[round]
		out = append(out, remaining[round])
	}
	return out
}

func (s *MultiSelector) better(a, b *MultiGenome) bool {
	if s.maximising {
		return a.Fitness() > b.Fitness()
	}
	return a.Fitness() < b.Fitness()
}
