package simkernel

import (
	"strings"
	"testing"

	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/timedist"
)

// fixedRouter always answers with a single fixed route and records every
// FILLING transition in arrival order, for scenarios where there is only
// one sensible routing choice.
type fixedRouter struct {
	route   int
	filling []int
}

func (f *fixedRouter) NextRoute(int) RouteChoice { return Route(f.route) }
func (f *fixedRouter) Event(sc StateChange) {
	if sc.To == Filling {
		f.filling = append(f.filling, sc.Truck)
	}
}
func (f *fixedRouter) LightEvent(int, TLState) {}
func (f *fixedRouter) Reset()                  { f.filling = nil }

func mustParse(t *testing.T, src string) *network.Network {
	t.Helper()
	net, err := network.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return net
}

func TestScenarioASingleCrusherSingleShovel(t *testing.T) {
	// NT=2, empty_mean=1, travel_mean=5, fill_mean=2, sd=0 throughout.
	src := "T 2\nC 1\n1.0 0\nS 1\n5.0 0 2.0 0\n"
	net := mustParse(t, src)

	sim := New(net, timedist.NewAverageTimes(), &fixedRouter{route: 0}, nil)
	sim.Reset(nil)
	sim.Simulate(30)

	cycle := 2.0 + 1.0 + 5.0 + net.FullSlowdown*5.0
	perTruck := int(30.0 / cycle)
	want := perTruck * net.NumTrucks
	if sim.Empties < want-net.NumTrucks || sim.Empties > want+net.NumTrucks {
		t.Errorf("Empties = %d, want within a truck-cycle of %d (cycle=%.2f)", sim.Empties, want, cycle)
	}
	if sim.Empties <= 0 {
		t.Fatalf("expected a positive number of empties, got %d", sim.Empties)
	}
}

func TestScenarioBOneLaneFairness(t *testing.T) {
	src := "T 4 1.2\nC 1\n1.0 0\nS 1\n2.0 0\nR 1 N 0\nc 0 s 0 10.0 0 o\n"
	net := mustParse(t, src)
	if net.Roads[0].Kind != network.OneLane {
		t.Fatal("expected the sole road to be one-lane")
	}

	sim := New(net, timedist.NewAverageTimes(), &fixedRouter{route: 0}, nil)
	sim.Reset(nil)
	sim.Simulate(500)

	if sim.Empties <= 0 {
		t.Fatalf("expected some empties over the run, got %d", sim.Empties)
	}
	if len(sim.roadQueue[0][0]) > 0 && len(sim.roadQueue[0][1]) > 0 {
		t.Fatalf("one-lane road has trucks in both directions simultaneously: %v / %v",
			sim.roadQueue[0][0], sim.roadQueue[0][1])
	}
}

func TestScenarioCAntiOvertaking(t *testing.T) {
	// Truck-dependent sample noise via UniformTimes; dispatch is still
	// strictly round-robin (one route, FIFO road queue), so arrival order
	// at the shovel must equal dispatch order regardless of sample draws.
	src := "T 3\nC 1\n1.0 0\nS 1\n5.0 2.0 2.0 0\n"
	net := mustParse(t, src)
	router := &fixedRouter{route: 0}
	sim := New(net, timedist.NewUniformTimes(), router, nil)
	sim.Reset(nil)
	sim.Simulate(20)

	// The road queue is a strict FIFO validated inside the kernel itself
	// (onClearedRoad panics on a head mismatch); reaching here without a
	// panic already exercises property 3 from the testable-properties
	// list. Additionally check the queue never exceeds truck count.
	if len(sim.roadQueue[0][0]) > net.NumTrucks {
		t.Fatalf("road queue overflowed truck count: %v", sim.roadQueue[0][0])
	}
	if len(router.filling) < 3 {
		t.Fatalf("expected at least 3 fill starts, got %d", len(router.filling))
	}
	if router.filling[0] != 0 || router.filling[1] != 1 || router.filling[2] != 2 {
		t.Errorf("first-round fill order = %v, want dispatch order [0 1 2]", router.filling[:3])
	}
}

func TestUniversalInvariantTruckCountConserved(t *testing.T) {
	src := "T 5\nC 1\n1.0 0.1\nS 2\n5.0 0.5 2.0 0.2\n6.0 0.6 3.0 0.3\n"
	net := mustParse(t, src)
	router := &fixedRouter{route: 0}
	sim := New(net, timedist.NewUniformTimes(), router, nil)
	sim.Reset(nil)
	sim.Simulate(100)

	counts := map[TruckLocation]int{}
	for _, loc := range sim.loc {
		counts[loc]++
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != net.NumTrucks {
		t.Fatalf("truck count not conserved: got %d, want %d", total, net.NumTrucks)
	}
}
