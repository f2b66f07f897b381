package gacycle

import (
	"math/rand"

	"github.com/nidoro/minehaul/network"
)

// MultiOperator is the direct Go port of ClassicalMultiStringOperatorF:
// one chromosome-wide probability gate per mutation type (value mutation,
// inversion, swap, move, insertion, deletion), and on a pass each of that
// type's N point-mutations picks its own target string uniformly at
// random from the combined pool of crusher and shovel strings --
// performValueMutation/performInversion/performSwap/performMove/
// performInsertion/performDeletion all draw `s :=
// ThreadLocalRandom.current().nextInt(numStrings)` independently per
// mutation, never mutating every string at once. Crossover is the one
// exception: it is gated per string, at probability spcSFactor/numStrings
// (performSinglePointCrossover line 334), since the source models
// crossover as "expected number of crossed strings per complete
// crossover" rather than a single chromosome-wide coin flip.
type MultiOperator struct {
	cfg              OperatorConfig
	crusherMaxValues []int
	shovelMaxValues  []int
}

// NewMultiOperator builds a MultiOperator sharing cfg's mutation
// probabilities/counts across every string, with each crusher/shovel
// string's own route count as its MaxValue bound -- mirroring
// ClassicalMultiStringOperatorF's maxValues[] array, one entry per
// string. cfg.CrossoverProb is read as the source's spcSFactor (expected
// crossed strings per complete crossover) and divided by the total
// string count before gating any one string's crossover.
func NewMultiOperator(net *network.Network, cfg OperatorConfig) *MultiOperator {
	crusherMaxValues := make([]int, len(net.Crushers))
	for c := range crusherMaxValues {
		crusherMaxValues[c] = len(net.RoutesFromCrusher[c])
	}
	shovelMaxValues := make([]int, len(net.Shovels))
	for s := range shovelMaxValues {
		shovelMaxValues[s] = len(net.RoutesToShovel[s])
	}
	return &MultiOperator{cfg: cfg, crusherMaxValues: crusherMaxValues, shovelMaxValues: shovelMaxValues}
}

// PerformOperation draws numOffspring genomes the same way Operator.
// PerformOperation does: repeatedly pick a random parent pair, run the
// per-string crossover pass followed by the six chromosome-wide gated
// mutation passes, and reroll on a collision with an already-produced (or
// already-present) MultiGenome.
func (op *MultiOperator) PerformOperation(pool []*MultiGenome, numOffspring int, bucketSize int, rng *rand.Rand) []*MultiGenome {
	seen := make(map[string]bool, len(pool)+numOffspring)
	for _, g := range pool {
		seen[multiKey(g.CrusherStrings, g.ShovelStrings)] = true
	}

	numStrings := len(pool[0].CrusherStrings) + len(pool[0].ShovelStrings)

	out := make([]*MultiGenome, 0, numOffspring)
	for len(out) < numOffspring {
		p1 := pool[rng.Intn(len(pool))]
		var p2 *MultiGenome
		if len(pool) > 1 {
			for p2 == nil || p2 == p1 {
				p2 = pool[rng.Intn(len(pool))]
			}
		}

		crusherStrings, shovelStrings := op.crossoverAll(p1, p2, numStrings, rng)
		op.mutateAll(crusherStrings, shovelStrings, numStrings, rng)

		k := multiKey(crusherStrings, shovelStrings)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, NewMultiGenome(crusherStrings, shovelStrings, bucketSize))
	}
	return out
}

// crossoverAll builds one child string per crusher/shovel location. With
// no second parent, every string is a straight clone of p1's. Otherwise
// each string independently rolls crossoverProb/numStrings: on a pass (and
// both parents' strings longer than one gene) it single-point-crosses the
// two; otherwise it takes one whole parent's string, chosen with equal
// probability, per performSinglePointCrossover's else branches.
func (op *MultiOperator) crossoverAll(p1, p2 *MultiGenome, numStrings int, rng *rand.Rand) ([][]int, [][]int) {
	prob := op.cfg.CrossoverProb / float64(numStrings)

	crossString := func(s1, s2 []int) []int {
		if p2 == nil {
			return append([]int(nil), s1...)
		}
		if len(s1) > 1 && len(s2) > 1 && rng.Float64() < prob {
			return crossoverOnce(s1, s2, rng)
		}
		if rng.Intn(2) == 0 {
			return append([]int(nil), s1...)
		}
		return append([]int(nil), s2...)
	}

	crusherStrings := make([][]int, len(p1.CrusherStrings))
	for c, s1 := range p1.CrusherStrings {
		var s2 []int
		if p2 != nil {
			s2 = p2.CrusherStrings[c]
		}
		crusherStrings[c] = crossString(s1, s2)
	}
	shovelStrings := make([][]int, len(p1.ShovelStrings))
	for s, s1 := range p1.ShovelStrings {
		var s2 []int
		if p2 != nil {
			s2 = p2.ShovelStrings[s]
		}
		shovelStrings[s] = crossString(s1, s2)
	}
	return crusherStrings, shovelStrings
}

// mutateAll runs the six chromosome-wide probability-gated mutation
// passes in place over crusherStrings/shovelStrings, dispatching each
// point-mutation within a pass to a uniformly random target string drawn
// from the combined pool.
func (op *MultiOperator) mutateAll(crusherStrings, shovelStrings [][]int, numStrings int, rng *rand.Rand) {
	maxValue := func(idx int) int {
		if idx < len(crusherStrings) {
			return op.crusherMaxValues[idx]
		}
		return op.shovelMaxValues[idx-len(crusherStrings)]
	}
	target := func(idx int) []int {
		if idx < len(crusherStrings) {
			return crusherStrings[idx]
		}
		return shovelStrings[idx-len(crusherStrings)]
	}
	setTarget := func(idx int, s []int) {
		if idx < len(crusherStrings) {
			crusherStrings[idx] = s
		} else {
			shovelStrings[idx-len(crusherStrings)] = s
		}
	}

	if rng.Float64() < op.cfg.ValueMutateProb {
		for m := 0; m < op.cfg.ValueMutateCount; m++ {
			idx := rng.Intn(numStrings)
			valueMutateOnce(target(idx), maxValue(idx), rng)
		}
	}
	if rng.Float64() < op.cfg.InversionProb {
		idx := rng.Intn(numStrings)
		invertOnce(target(idx), rng)
	}
	if rng.Float64() < op.cfg.SwapProb {
		for m := 0; m < op.cfg.SwapCount; m++ {
			idx := rng.Intn(numStrings)
			swapOnce(target(idx), rng)
		}
	}
	if rng.Float64() < op.cfg.MoveProb {
		idx := rng.Intn(numStrings)
		setTarget(idx, moveOnce(target(idx), rng))
	}
	if rng.Float64() < op.cfg.InsertProb {
		for m := 0; m < op.cfg.InsertCount; m++ {
			idx := rng.Intn(numStrings)
			setTarget(idx, insertOnce(target(idx), maxValue(idx), rng))
		}
	}
	if rng.Float64() < op.cfg.DeleteProb {
		for m := 0; m < op.cfg.DeleteCount; m++ {
			idx := rng.Intn(numStrings)
			if len(target(idx)) > 1 {
				setTarget(idx, deleteOnce(target(idx), rng))
			}
		}
	}
}
