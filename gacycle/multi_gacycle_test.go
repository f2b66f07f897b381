package gacycle

import (
	"math/rand"
	"testing"

	"github.com/nidoro/minehaul/simkernel"
	"github.com/nidoro/minehaul/timedist"
)

// complexNet has 2 crushers and 2 shovels: crusher 0 reaches both shovels,
// crusher 1 only reaches shovel 1 -- enough asymmetry to exercise
// per-string independence (crusher 1's string and shovel 0's string have
// only one possible route, while crusher 0's has two).
const complexNet = `T 4 1.5
C 2
1.0 0.1
1.2 0.1
S 2
2.0 0.2
2.5 0.2
R 4 N 1
c 0 n 0 3.0 0.3 t
n 0 s 0 2.0 0.2 t
n 0 s 1 2.0 0.2 o
c 1 s 1 4.0 0.4 t
`

func TestMultiGenomeRollingFitness(t *testing.T) {
	g := NewMultiGenome([][]int{{0}}, [][]int{{0}}, 3)
	if g.Fitness() != 0 {
		t.Fatalf("unevaluated genome should have fitness 0, got %f", g.Fitness())
	}
	g.GiveFitness(1)
	g.GiveFitness(2)
	g.GiveFitness(3)
	if got := g.Fitness(); got != 2 {
		t.Fatalf("Fitness = %f, want 2", got)
	}
}

func TestNewAllCycleFitnessAcceptsMultiCrusher(t *testing.T) {
	net := mustParse(t, complexNet)
	f, err := NewAllCycleFitness(MultiConfig{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 1})
	if err != nil {
		t.Fatalf("NewAllCycleFitness should accept a %d-crusher network: %v", len(net.Crushers), err)
	}
	if !f.Maximising() {
		t.Fatal("expected AllCycleFitness to maximise, like CycleFitness")
	}
}

func TestNewAllCycleFitnessRejectsBadConfig(t *testing.T) {
	net := mustParse(t, complexNet)
	cases := []MultiConfig{
		{Net: nil, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 1},
		{Net: net, Dist: nil, NumSamples: 1, Runtime: 1},
		{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 0, Runtime: 1},
		{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 0},
	}
	for i, c := range cases {
		if _, err := NewAllCycleFitness(c); err == nil {
			t.Fatalf("case %d: expected a ConfigError", i)
		}
	}
}

func TestAllCycleFitnessRunsToCompletion(t *testing.T) {
	net := mustParse(t, complexNet)
	f, err := NewAllCycleFitness(MultiConfig{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 2, Runtime: 200})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// crusher 0 -> two local routes (to shovel 0 and shovel 1); crusher 1
	// -> one local route; shovel 0 -> one local route (from crusher 0);
	// shovel 1 -> two local routes (from crusher 0 and crusher 1).
	g := NewMultiGenome([][]int{{0, 1}, {0}}, [][]int{{0}, {0, 1}}, 3)
	score := f.Evaluate(g)
	if score <= 0 {
		t.Fatalf("expected a positive average-empties score, got %f", score)
	}
}

// TestAllCycleFitnessCrusherThresholdUsesNumTrucks pins
// AllCycleFitnessFunction.java's two independent length thresholds: a
// crusher string is only over length past NumTrucks, not idealStringLen.
// Both genomes here route every truck through the network's only route
// regardless of string length (mod 1 always resolves to index 0), so a
// deterministic time distribution makes the simulated scores identical --
// any difference between them can only come from the length penalty.
func TestAllCycleFitnessCrusherThresholdUsesNumTrucks(t *testing.T) {
	net := mustParse(t, "T 10\nC 1\n1.0 0.1\nS 1\n5.0 0 1.0 0\n")
	f, err := NewAllCycleFitness(MultiConfig{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 200})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	atThreshold := NewMultiGenome([][]int{{0, 0, 0, 0}}, [][]int{{0}}, 1)
	pastIdealButUnderNumTrucks := NewMultiGenome([][]int{{0, 0, 0, 0, 0}}, [][]int{{0}}, 1)

	want := f.Evaluate(atThreshold)
	got := f.Evaluate(pastIdealButUnderNumTrucks)
	if want != got {
		t.Fatalf("a 5-gene crusher string (over idealStringLen=4 but under NumTrucks=10) scored %f, want unpenalized %f", got, want)
	}
}

func TestAllCycleFitnessEmptyStringScoresZero(t *testing.T) {
	net := mustParse(t, complexNet)
	f, err := NewAllCycleFitness(MultiConfig{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g := NewMultiGenome([][]int{{}, {0}}, [][]int{{0}, {0}}, 1)
	if got := f.Evaluate(g); got != 0 {
		t.Fatalf("an empty crusher-string should score 0, got %f", got)
	}
}

func TestMultiOperatorProducesDistinctOffspring(t *testing.T) {
	net := mustParse(t, complexNet)
	op := NewMultiOperator(net, OperatorConfig{
		CrossoverProb:    0.5,
		ValueMutateProb:  0.5,
		ValueMutateCount: 1,
		SwapProb:         0.3,
		SwapCount:        1,
		InsertProb:       0.2,
		InsertCount:      1,
		DeleteProb:       0.2,
		DeleteCount:      1,
	})
	pool := []*MultiGenome{
		NewMultiGenome([][]int{{0, 1}, {0}}, [][]int{{0}, {0, 1}}, 5),
		NewMultiGenome([][]int{{1, 0}, {0}}, [][]int{{0}, {1, 0}}, 5),
	}
	rng := rand.New(rand.NewSource(1))
	offspring := op.PerformOperation(pool, 4, 5, rng)
	if len(offspring) != 4 {
		t.Fatalf("expected 4 offspring, got %d", len(offspring))
	}
	seen := map[string]bool{}
	for _, o := range offspring {
		for _, s := range o.CrusherStrings {
			if len(s) == 0 {
				t.Fatalf("offspring crusher string must never be empty")
			}
		}
		k := multiKey(o.CrusherStrings, o.ShovelStrings)
		if seen[k] {
			t.Fatalf("duplicate offspring genome")
		}
		seen[k] = true
	}
}

func TestMultiSelectorPrefersFitterUnderMaximising(t *testing.T) {
	sel := NewMultiSelector(2, true)
	weak := NewMultiGenome([][]int{{0}}, [][]int{{0}}, 1)
	weak.GiveFitness(1)
	strong := NewMultiGenome([][]int{{0}}, [][]int{{0}}, 1)
	strong.GiveFitness(100)
	pool := []*MultiGenome{weak, strong}
	rng := rand.New(rand.NewSource(1))
	got := sel.Select(pool, 1, rng)
	if len(got) != 1 || got[0] != strong {
		t.Fatalf("expected the fitter genome to win a 2-tournament over 2 candidates")
	}
}

func TestMultiControllerRunsToCompletion(t *testing.T) {
	net := mustParse(t, complexNet)
	ctrl := NewMultiController(net, [][]int{{0, 1}, {0}}, [][]int{{0}, {0, 1}})
	sim := simkernel.New(net, timedist.NewAverageTimes(), ctrl, nil)
	sim.Reset(ctrl.InitialCrushers(net.NumTrucks))
	sim.Simulate(300)
	if sim.Empties <= 0 {
		t.Fatalf("expected empties > 0, got %d", sim.Empties)
	}
}

func TestMultiRollingGARunsToCompletion(t *testing.T) {
	net := mustParse(t, complexNet)
	fitness, err := NewAllCycleFitness(MultiConfig{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 2, Runtime: 150})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	op := NewMultiOperator(net, OperatorConfig{
		CrossoverProb:    0.3,
		ValueMutateProb:  0.4,
		ValueMutateCount: 1,
		SwapProb:         0.2,
		SwapCount:        1,
	})
	sel := NewMultiSelector(3, true)
	rng := rand.New(rand.NewSource(7))
	randomGenome := func(rng *rand.Rand) ([][]int, [][]int) {
		cs := make([][]int, len(net.Crushers))
		for c := range cs {
			n := len(net.RoutesFromCrusher[c])
			cs[c] = make([]int, 1+rng.Intn(3))
			for i := range cs[c] {
				cs[c][i] = rng.Intn(n)
			}
		}
		ss := make([][]int, len(net.Shovels))
		for s := range ss {
			n := len(net.RoutesToShovel[s])
			ss[s] = make([]int, 1+rng.Intn(3))
			for i := range ss[s] {
				ss[s][i] = rng.Intn(n)
			}
		}
		return cs, ss
	}
	ga := NewMultiRollingGA(RollingConfig{
		PopSize:        6,
		SelectionSize:  4,
		Elitism:        0.2,
		MaxGen:         3,
		BucketSize:     2,
		ResampleRate:   1,
		ResampleSize:   1,
		AllowSurvivors: true,
	}, fitness, op, sel, randomGenome, rng)

	best := ga.Run()
	if best == nil || len(best.CrusherStrings) != len(net.Crushers) || len(best.ShovelStrings) != len(net.Shovels) {
		t.Fatal("expected a fully-populated best genome")
	}
}
