package gacycle

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// MultiGenome is the complex-network counterpart of Genome: instead of one
// shared cyclic schedule, it carries one variable-length string per
// crusher (which outbound route that crusher's next idle truck takes) and
// one per shovel (which route a truck leaving that shovel returns on),
// mirroring MultiStringChromosome's per-location string array. Gene values
// are local indices into network.Network's RoutesFromCrusher/RoutesToShovel
// slices, not global route indices, so a string's length has no relation
// to any other string's.
type MultiGenome struct {
	CrusherStrings [][]int
	ShovelStrings  [][]int

	age        int
	bucketSize int
	bucket     []float64
}

// NewMultiGenome wraps a pair of per-location string sets in a fresh,
// unevaluated MultiGenome.
func NewMultiGenome(crusherStrings, shovelStrings [][]int, bucketSize int) *MultiGenome {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	return &MultiGenome{CrusherStrings: crusherStrings, ShovelStrings: shovelStrings, bucketSize: bucketSize}
}

func (g *MultiGenome) GiveFitness(f float64) {
	g.bucket = append(g.bucket, f)
	if len(g.bucket) > g.bucketSize {
		g.bucket = g.bucket[1:]
	}
}

func (g *MultiGenome) Fitness() float64 {
	if len(g.bucket) == 0 {
		return 0
	}
	return stat.Mean(g.bucket, nil)
}

func (g *MultiGenome) Age() int { return g.age }

func (g *MultiGenome) IncrementAge() { g.age++ }

func (g *MultiGenome) String() string {
	return fmt.Sprintf("A%d-F%f-%s", g.age, g.Fitness(), multiKey(g.CrusherStrings, g.ShovelStrings))
}

// multiKey concatenates every string's key into one comparable
// representation, used for the offspring-uniqueness check the same way
// key() is used for the single-string Genome.
func multiKey(crusherStrings, shovelStrings [][]int) string {
	var b strings.Builder
	b.WriteString("C[")
	for _, s := range crusherStrings {
		b.WriteString(key(s))
		b.WriteByte(';')
	}
	b.WriteString("]S[")
	for _, s := range shovelStrings {
		b.WriteString(key(s))
		b.WriteByte(';')
	}
	b.WriteByte(']')
	return b.String()
}
