package gacycle

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/simkernel"
	"github.com/nidoro/minehaul/timedist"
)

func mustParse(t *testing.T, src string) *network.Network {
	t.Helper()
	net, err := network.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return net
}

const simpleNet = "T 6\nC 1\n1.0 0.1\nS 2\n5.0 0 1.0 0\n5.0 0 2.0 0\n"

func TestGenomeRollingFitness(t *testing.T) {
	g := NewGenome([]int{0, 1}, 3)
	if g.Fitness() != 0 {
		t.Fatalf("unevaluated genome should have fitness 0, got %f", g.Fitness())
	}
	g.GiveFitness(1)
	g.GiveFitness(2)
	g.GiveFitness(3)
	if got := g.Fitness(); got != 2 {
		t.Fatalf("Fitness = %f, want 2", got)
	}
	g.GiveFitness(9) // evicts the oldest sample (1)
	if got := g.Fitness(); got != (2.0+3.0+9.0)/3.0 {
		t.Fatalf("Fitness after eviction = %f, want %f", got, (2.0+3.0+9.0)/3.0)
	}
}

func TestGenomeAge(t *testing.T) {
	g := NewGenome([]int{0}, 1)
	if g.Age() != 0 {
		t.Fatalf("new genome should start at age 0")
	}
	g.IncrementAge()
	g.IncrementAge()
	if g.Age() != 2 {
		t.Fatalf("Age = %d, want 2", g.Age())
	}
}

func TestNewCycleFitnessRejectsBadConfig(t *testing.T) {
	net := mustParse(t, simpleNet)
	multiCrusher := mustParse(t, simpleNet)
	multiCrusher.Crushers = append(multiCrusher.Crushers, multiCrusher.Crushers[0])
	cases := []Config{
		{Net: nil, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 1},
		{Net: net, Dist: nil, NumSamples: 1, Runtime: 1},
		{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 0, Runtime: 1},
		{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 0},
		{Net: multiCrusher, Dist: timedist.NewAverageTimes(), NumSamples: 1, Runtime: 1},
	}
	for i, c := range cases {
		if _, err := New(c); err == nil {
			t.Fatalf("case %d: expected a ConfigError", i)
		}
	}
}

func TestCycleFitnessRunsToCompletion(t *testing.T) {
	net := mustParse(t, simpleNet)
	f, err := New(Config{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 3, Runtime: 200})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g := NewGenome([]int{0, 1, 0, 1}, 3)
	score := f.Evaluate(g)
	if score <= 0 {
		t.Fatalf("expected a positive average-empties score, got %f", score)
	}
}

func TestCycleFitnessEmptyCycleScoresZero(t *testing.T) {
	net := mustParse(t, simpleNet)
	f, err := New(Config{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 2, Runtime: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g := NewGenome(nil, 1)
	if got := f.Evaluate(g); got != 0 {
		t.Fatalf("empty cycle should score 0, got %f", got)
	}
}

func TestCycleFitnessPenalizesLongCycles(t *testing.T) {
	net := mustParse(t, simpleNet)
	f, err := New(Config{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 5, Runtime: 300})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	short := NewGenome([]int{0, 1, 0, 1, 0, 1}, 5)
	long := make([]int, 0, 60)
	for i := 0; i < 60; i++ {
		long = append(long, i%2)
	}
	longGenome := NewGenome(long, 5)

	shortScore := f.Evaluate(short)
	longScore := f.Evaluate(longGenome)
	// Both cycles alternate the same two shovels, so raw throughput should
	// be close; the length penalty must still bite on the far longer one.
	if longScore >= shortScore {
		t.Fatalf("expected the length penalty to discount the longer cycle: short=%f long=%f", shortScore, longScore)
	}
}

func TestOperatorProducesDistinctOffspring(t *testing.T) {
	op := NewOperator(OperatorConfig{
		MaxValue:         2,
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
	pool := []*Genome{
		NewGenome([]int{0, 1, 0, 1}, 5),
		NewGenome([]int{1, 0, 1, 0}, 5),
	}
	rng := rand.New(rand.NewSource(1))
	offspring := op.PerformOperation(pool, 4, 5, rng)
	if len(offspring) != 4 {
		t.Fatalf("expected 4 offspring, got %d", len(offspring))
	}
	seen := map[string]bool{}
	for _, o := range offspring {
		if len(o.Cycle) == 0 {
			t.Fatalf("offspring cycle must never be empty")
		}
		k := key(o.Cycle)
		if seen[k] {
			t.Fatalf("duplicate offspring cycle %v", o.Cycle)
		}
		seen[k] = true
	}
}

func TestOperatorDeleteNeverEmptiesCycle(t *testing.T) {
	op := NewOperator(OperatorConfig{MaxValue: 2, DeleteProb: 1, DeleteCount: 10})
	got := op.delete([]int{0}, rand.New(rand.NewSource(2)))
	if len(got) != 1 {
		t.Fatalf("delete should never shrink below length 1, got %v", got)
	}
}

func TestSelectorReturnsWholePoolWhenRequestExceedsSize(t *testing.T) {
	sel := NewSelector(3, true)
	pool := []*Genome{NewGenome([]int{0}, 1), NewGenome([]int{1}, 1)}
	got := sel.Select(pool, 5, rand.New(rand.NewSource(1)))
	if len(got) != 2 {
		t.Fatalf("expected the whole pool back, got %d genomes", len(got))
	}
}

func TestSelectorPrefersFitterUnderMaximising(t *testing.T) {
	sel := NewSelector(2, true)
	weak := NewGenome([]int{0}, 1)
	weak.GiveFitness(1)
	strong := NewGenome([]int{1}, 1)
	strong.GiveFitness(100)
	pool := []*Genome{weak, strong}
	rng := rand.New(rand.NewSource(1))
	got := sel.Select(pool, 1, rng)
	if len(got) != 1 || got[0] != strong {
		t.Fatalf("expected the fitter genome to win a 2-tournament over 2 candidates")
	}
}

func TestControllerReversesRouteOnReturn(t *testing.T) {
	net := mustParse(t, simpleNet)
	ctrl := NewController(net, []int{1, 0})
	sim := simkernel.New(net, timedist.NewAverageTimes(), ctrl, nil)
	sim.Reset(make([]int, net.NumTrucks))
	sim.Simulate(300)
	if sim.Empties <= 0 {
		t.Fatalf("expected empties > 0, got %d", sim.Empties)
	}
}

func TestRollingGARunsToCompletion(t *testing.T) {
	net := mustParse(t, simpleNet)
	fitness, err := New(Config{Net: net, Dist: timedist.NewAverageTimes(), NumSamples: 2, Runtime: 150})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	op := NewOperator(OperatorConfig{
		MaxValue:         len(net.Routes),
		CrossoverProb:    0.3,
		ValueMutateProb:  0.4,
		ValueMutateCount: 1,
		SwapProb:         0.2,
		SwapCount:        1,
	})
	sel := NewSelector(3, true)
	rng := rand.New(rand.NewSource(7))
	randomCycle := func(rng *rand.Rand) []int {
		n := 1 + rng.Intn(6)
		out := make([]int, n)
		for i := range out {
			out[i] = rng.Intn(len(net.Routes))
		}
		return out
	}
	ga := NewRollingGA(RollingConfig{
		PopSize:        6,
		SelectionSize:  4,
		Elitism:        0.2,
		MaxGen:         3,
		BucketSize:     2,
		ResampleRate:   1,
		ResampleSize:   1,
		AllowSurvivors: true,
	}, fitness, op, sel, randomCycle, rng)

	best := ga.Run()
	if best == nil || len(best.Cycle) == 0 {
		t.Fatal("expected a non-empty best genome")
	}
}
