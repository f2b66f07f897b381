// Package gacycle implements the rolling genetic algorithm that evolves a
// cyclic crusher->shovel dispatch schedule for simple road networks: a
// fixed-order sequence of shovel assignments that every truck round-robins
// through, re-fit against fresh simulation samples each generation so that
// noisy fitness estimates smooth out as a chromosome survives.
package gacycle

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Genome is a variable-length cyclic schedule together with a rolling
// fitness estimate: each call to GiveFitness folds a new sample into a
// bounded window, so a chromosome's Fitness is the mean of its last
// BucketSize evaluations rather than a single noisy sample.
type Genome struct {
	Cycle []int

	age        int
	bucketSize int
	bucket     []float64
}

// NewGenome wraps a cycle in a fresh, unevaluated Genome.
func NewGenome(cycle []int, bucketSize int) *Genome {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	return &Genome{Cycle: cycle, bucketSize: bucketSize}
}

// GiveFitness folds a new sample into the rolling bucket, evicting the
// oldest sample once the bucket is full.
func (g *Genome) GiveFitness(f float64) {
	g.bucket = append(g.bucket, f)
	if len(g.bucket) > g.bucketSize {
		g.bucket = g.bucket[1:]
	}
}

// Fitness is the mean of the rolling bucket, or zero for a chromosome that
// has never been evaluated.
func (g *Genome) Fitness() float64 {
	if len(g.bucket) == 0 {
		return 0
	}
	return stat.Mean(g.bucket, nil)
}

func (g *Genome) Age() int { return g.age }

func (g *Genome) IncrementAge() { g.age++ }

// Clone copies the cycle but not the fitness history: a mutated or
// crossed-over offspring starts with an empty bucket and age zero, exactly
// as the source's operator produces brand new chromosome instances rather
// than mutating in place.
func (g *Genome) Clone(cycle []int) *Genome {
	return NewGenome(cycle, g.bucketSize)
}

func (g *Genome) String() string {
	parts := make([]string, len(g.Cycle))
	for i, v := range g.Cycle {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("A%d-F%f-C[%s]", g.age, g.Fitness(), strings.Join(parts, ","))
}

// key returns a comparable representation of the cycle for offspring
// uniqueness checks, mirroring the source operator's HashSet<StringChromosome>
// membership test (Arrays.equals-based equality).
func key(cycle []int) string {
	var b strings.Builder
	for _, v := range cycle {
		fmt.Fprintf(&b, "%d,", v)
	}
	return b.String()
}
