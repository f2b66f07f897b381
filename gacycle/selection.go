package gacycle

import (
	"math/rand"

	"golang.org/x/exp/slices"
)

// Selector is the direct Go port of KTournamentSelectionOperator: each
// selected slot is filled by drawing K random candidates from the
// not-yet-selected pool and keeping the fittest.
type Selector struct {
	k          int
	maximising bool
}

func NewSelector(k int, maximising bool) *Selector {
	if k < 1 {
		k = 1
	}
	return &Selector{k: k, maximising: maximising}
}

// Select returns n genomes drawn from pool by repeated k-tournament,
// without replacement; if n >= len(pool) the whole pool is returned
// unchanged, mirroring performSelection's pool >= request shortcut.
func (s *Selector) Select(pool []*Genome, n int, rng *rand.Rand) []*Genome {
	if n >= len(pool) {
		return slices.Clone(pool)
	}

	remaining := slices.Clone(pool)
	out := make([]*Genome, 0, n)
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

func (s *Selector) better(a, b *Genome) bool {
	if s.maximising {
		return a.Fitness() > b.Fitness()
	}
	return a.Fitness() < b.Fitness()
}
