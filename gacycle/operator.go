package gacycle

import (
	"math/rand"

	"golang.org/x/exp/slices"
)

// OperatorConfig bundles a genetic operator's per-mutation-type
// probabilities and counts, per spec §9's single-Config-value redesign;
// ClassicalStringOperatorF's builder-chain setters collapse into one
// struct here.
type OperatorConfig struct {
	MaxValue int // exclusive upper bound on a gene's shovel-route index

	CrossoverProb float64

	ValueMutateProb  float64
	ValueMutateCount int

	InversionProb float64

	SwapProb  float64
	SwapCount int

	MoveProb float64

	InsertProb  float64
	InsertCount int

	DeleteProb  float64
	DeleteCount int
}

// Operator is the direct Go port of ClassicalStringOperatorF: single-point
// crossover followed by up to six independently probability-gated
// mutations, each producing a brand new offspring cycle.
type Operator struct {
	cfg OperatorConfig
}

func NewOperator(cfg OperatorConfig) *Operator { return &Operator{cfg: cfg} }

// PerformOperation draws numOffspring genomes by repeatedly picking a
// random parent from pool, optionally crossing it with a second distinct
// random parent, then independently rolling each mutation type; a
// candidate whose resulting cycle collides with one already produced this
// call (or with a cycle already present in pool) is rerolled, mirroring
// the source operator's `seen` HashSet uniqueness check.
func (op *Operator) PerformOperation(pool []*Genome, numOffspring int, bucketSize int, rng *rand.Rand) []*Genome {
	seen := make(map[string]bool, len(pool)+numOffspring)
	for _, g := range pool {
		seen[key(g.Cycle)] = true
	}

	out := make([]*Genome, 0, numOffspring)
	for len(out) < numOffspring {
		p1 := pool[rng.Intn(len(pool))]
		var other []int
		if len(pool) > 1 {
			p2 := p1
			for p2 == p1 {
				p2 = pool[rng.Intn(len(pool))]
			}
			other = p2.Cycle
		}
		s := op.applyAll(p1.Cycle, other, rng)

		k := key(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, NewGenome(s, bucketSize))
	}
	return out
}

// applyAll runs the single-point crossover (against other, when non-nil)
// followed by the six independently probability-gated mutations against a
// fresh copy of s, and returns the resulting cycle. PerformOperation is
// its only caller; the multi-string genome's MultiOperator calls the
// *Once primitives directly instead.
func (op *Operator) applyAll(s, other []int, rng *rand.Rand) []int {
	out := slices.Clone(s)

	if other != nil && rng.Float64() < op.cfg.CrossoverProb {
		out = op.crossover(out, other, rng)
	}
	if rng.Float64() < op.cfg.ValueMutateProb {
		op.valueMutate(out, rng)
	}
	if rng.Float64() < op.cfg.InversionProb {
		op.invert(out, rng)
	}
	if rng.Float64() < op.cfg.SwapProb {
		op.swap(out, rng)
	}
	if rng.Float64() < op.cfg.MoveProb {
		out = op.move(out, rng)
	}
	if rng.Float64() < op.cfg.InsertProb {
		out = op.insert(out, rng)
	}
	if rng.Float64() < op.cfg.DeleteProb {
		out = op.delete(out, rng)
	}
	return out
}

// crossover performs the source's single-point crossover: each parent
// contributes a randomly sized prefix/suffix, so the child's length is
// generally different from either parent's.
func (op *Operator) crossover(s1, s2 []int, rng *rand.Rand) []int {
	return crossoverOnce(s1, s2, rng)
}

// crossoverOnce is Operator.crossover's logic as a free function, so
// MultiOperator can cross one string at a time without an Operator
// instance bound to that string's own MaxValue.
func crossoverOnce(s1, s2 []int, rng *rand.Rand) []int {
	if len(s1) <= 1 || len(s2) <= 1 {
		return s1
	}
	l1 := 1 + rng.Intn(len(s1)-1)
	l2 := 1 + rng.Intn(len(s2)-1)
	child := make([]int, 0, l1+l2)
	child = append(child, s1[:l1]...)
	child = append(child, s2[len(s2)-l2:]...)
	return child
}

func (op *Operator) valueMutate(s []int, rng *rand.Rand) {
	for i := 0; i < op.cfg.ValueMutateCount; i++ {
		valueMutateOnce(s, op.cfg.MaxValue, rng)
	}
}

func (op *Operator) invert(s []int, rng *rand.Rand) {
	invertOnce(s, rng)
}

func (op *Operator) swap(s []int, rng *rand.Rand) {
	for i := 0; i < op.cfg.SwapCount; i++ {
		swapOnce(s, rng)
	}
}

func (op *Operator) move(s []int, rng *rand.Rand) []int {
	return moveOnce(s, rng)
}

func (op *Operator) insert(s []int, rng *rand.Rand) []int {
	out := s
	for i := 0; i < op.cfg.InsertCount; i++ {
		out = insertOnce(out, op.cfg.MaxValue, rng)
	}
	return out
}

// delete removes up to DeleteCount random genes, but never shrinks the
// cycle below length one.
func (op *Operator) delete(s []int, rng *rand.Rand) []int {
	out := s
	for i := 0; i < op.cfg.DeleteCount && len(out) > 1; i++ {
		out = deleteOnce(out, rng)
	}
	return out
}

// valueMutateOnce picks one random gene and rerolls it to a different
// value in [0, maxValue), in place. Factored out of Operator.valueMutate
// so MultiOperator can apply a single point-mutation to one randomly
// chosen string at a time, per ClassicalMultiStringOperatorF's
// performValueMutation (each of its vmN draws targets an independently
// chosen string, not every string at once).
func valueMutateOnce(s []int, maxValue int, rng *rand.Rand) {
	if len(s) == 0 || maxValue <= 1 {
		return
	}
	idx := rng.Intn(len(s))
	s[idx] = (s[idx] + 1 + rng.Intn(maxValue-1)) % maxValue
}

// invertOnce reverses one random contiguous subrange, in place.
func invertOnce(s []int, rng *rand.Rand) {
	if len(s) <= 1 {
		return
	}
	i := rng.Intn(len(s))
	j := rng.Intn(len(s))
	if i > j {
		i, j = j, i
	}
	for i < j {
		s[i], s[j] = s[j], s[i]
		i++
		j--
	}
}

// swapOnce exchanges two random genes, in place.
func swapOnce(s []int, rng *rand.Rand) {
	if len(s) <= 1 {
		return
	}
	a := rng.Intn(len(s))
	b := rng.Intn(len(s))
	s[a], s[b] = s[b], s[a]
}

// moveOnce relocates a random contiguous sub-range to a random
// destination; a range covering the whole array or a no-op destination is
// left unchanged.
func moveOnce(s []int, rng *rand.Rand) []int {
	if len(s) <= 2 {
		return s
	}
	start := rng.Intn(len(s))
	end := start + rng.Intn(len(s)-start)
	if start == 0 && end == len(s)-1 {
		return s
	}
	segment := slices.Clone(s[start : end+1])
	rest := slices.Clone(s[:start])
	rest = append(rest, s[end+1:]...)
	if len(rest) == 0 {
		return s
	}
	dest := rng.Intn(len(rest) + 1)
	out := make([]int, 0, len(s))
	out = append(out, rest[:dest]...)
	out = append(out, segment...)
	out = append(out, rest[dest:]...)
	return out
}

// insertOnce inserts one random gene at a random position, returning the
// grown slice.
func insertOnce(s []int, maxValue int, rng *rand.Rand) []int {
	if maxValue <= 0 {
		return s
	}
	out := slices.Clone(s)
	pos := rng.Intn(len(out) + 1)
	v := rng.Intn(maxValue)
	out = append(out[:pos], append([]int{v}, out[pos:]...)...)
	return out
}

// deleteOnce removes one random gene, returning the shrunk slice.
func deleteOnce(s []int, rng *rand.Rand) []int {
	if len(s) == 0 {
		return s
	}
	out := slices.Clone(s)
	pos := rng.Intn(len(out))
	out = append(out[:pos], out[pos+1:]...)
	return out
}
