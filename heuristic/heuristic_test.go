package heuristic

import (
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

func TestNewRejectsZeroSamples(t *testing.T) {
	net := mustParse(t, "T 1\nC 1\n1.0 0\nS 1\n1.0 0 1.0 0\n")
	_, err := New(Config{Net: net, Kind: MTCT, Dist: timedist.NewAverageTimes(), NumSamples: 0})
	if err == nil {
		t.Fatal("expected a ConfigError for NumSamples <= 0")
	}
}

func runHeuristic(t *testing.T, kind Kind) *simkernel.Simulator {
	t.Helper()
	src := "T 6\nC 1\n1.0 0.1\nS 2\n5.0 0 1.0 0\n5.0 0 2.0 0\n"
	net := mustParse(t, src)
	ctrl, err := New(Config{Net: net, Kind: kind, Dist: timedist.NewAverageTimes(), NumSamples: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sim := simkernel.New(net, timedist.NewAverageTimes(), ctrl, nil)
	sim.Reset(ctrl.InitialCrushers(net.NumTrucks))
	sim.Simulate(500)
	return sim
}

func TestAllKindsRunToCompletion(t *testing.T) {
	for _, kind := range []Kind{MTCT, MTST, MTWT, MSWT, MET} {
		t.Run(kind.String(), func(t *testing.T) {
			sim := runHeuristic(t, kind)
			if sim.Empties <= 0 {
				t.Fatalf("%s: expected empties > 0, got %d", kind, sim.Empties)
			}
		})
	}
}

// runComplexHeuristic parses a two-crusher network, so New sets
// Controller.complex and NextRoute(WAITING) runs bestOutboundComplex's
// forked-simulator lookahead instead of bestOutbound's closed form.
func runComplexHeuristic(t *testing.T, kind Kind) *simkernel.Simulator {
	t.Helper()
	src := "T 4 1.2\nC 2\n1.0 0.1\n1.0 0.1\nS 1\n1.0 0\nR 2 N 0\nc 0 s 0 5.0 0 t\nc 1 s 0 5.0 0 t\n"
	net := mustParse(t, src)
	ctrl, err := New(Config{Net: net, Kind: kind, Dist: timedist.NewAverageTimes(), NumSamples: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !ctrl.complex {
		t.Fatal("expected Controller.complex for a two-crusher network")
	}
	sim := simkernel.New(net, timedist.NewAverageTimes(), ctrl, nil)
	sim.Reset(ctrl.InitialCrushers(net.NumTrucks))
	sim.Simulate(200)
	return sim
}

func TestComplexNetworkKindsRunToCompletion(t *testing.T) {
	for _, kind := range []Kind{MTCT, MTST, MTWT, MSWT} {
		t.Run(kind.String(), func(t *testing.T) {
			sim := runComplexHeuristic(t, kind)
			if sim.Empties <= 0 {
				t.Fatalf("%s: expected empties > 0, got %d", kind, sim.Empties)
			}
		})
	}
}

// TestBestOutboundComplexPicksReachableRoute exercises bestOutboundComplex
// directly: with only one route out of crusher 0, the forked lookahead
// must return it regardless of how many samples it averages.
func TestBestOutboundComplexPicksReachableRoute(t *testing.T) {
	src := "T 4 1.2\nC 2\n1.0 0.1\n1.0 0.1\nS 1\n1.0 0\nR 2 N 0\nc 0 s 0 5.0 0 t\nc 1 s 0 5.0 0 t\n"
	net := mustParse(t, src)
	ctrl, err := New(Config{Net: net, Kind: MTCT, Dist: timedist.NewAverageTimes(), NumSamples: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctrl.crusher[0] = 0
	ctrl.loc[0] = simkernel.Waiting
	got := ctrl.bestOutboundComplex(0)
	if net.Routes[got].Crusher != 0 {
		t.Fatalf("expected a route out of crusher 0, got route %d -> crusher %d", got, net.Routes[got].Crusher)
	}
}

// TestPrefersEmptierShovel checks the heuristic favors the shovel with
// the shorter fill time when both routes start empty and equidistant,
// since a shorter fill time yields a shorter projected cycle time.
func TestPrefersEmptierShovel(t *testing.T) {
	src := "T 1\nC 1\n1.0 0\nS 2\n5.0 0 1.0 0\n5.0 0 10.0 0\n"
	net := mustParse(t, src)
	ctrl, err := New(Config{Net: net, Kind: MTCT, Dist: timedist.NewAverageTimes(), NumSamples: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctrl.crusher[0] = 0
	ctrl.loc[0] = simkernel.Waiting
	got := ctrl.bestOutbound(0)
	if net.Routes[got].Shovel != 0 {
		t.Fatalf("expected the faster-filling shovel 0, got route %d -> shovel %d", got, net.Routes[got].Shovel)
	}
}

func TestKindString(t *testing.T) {
	if MTCT.String() != "MTCT" || MET.String() != "MET" {
		t.Fatalf("unexpected Kind.String() values")
	}
}

// TestMETConsultsSharedCrusherQueue exercises the crusher-occupancy
// branches (Emptying, ApproachingCrusher, WaitingAtCrusher) that
// metOutbound reads and bestOutbound never inspects at all -- bestOutbound
// has no switch case for any of these three locations, so a truck sitting
// at the crusher cannot influence an MTCT/MTST/MTWT/MSWT decision. The
// test runs metOutbound with one truck emptying and one queued at the
// crusher and checks that it returns a route out of crusher 0.
func TestMETConsultsSharedCrusherQueue(t *testing.T) {
	src := "T 6\nC 1\n1.0 0.1\nS 2\n5.0 0 1.0 0\n5.0 0 2.0 0\n"
	net := mustParse(t, src)
	ctrl, err := New(Config{Net: net, Kind: MET, Dist: timedist.NewAverageTimes(), NumSamples: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctrl.crusher[0] = 0
	ctrl.loc[0] = simkernel.Waiting

	// Truck 1 is mid-service at the crusher with most of its emptying time
	// still remaining; truck 2 is queued behind it.
	ctrl.crusher[1] = 0
	ctrl.loc[1] = simkernel.Emptying
	ctrl.progress[1] = 0.05
	ctrl.crusher[2] = 0
	ctrl.loc[2] = simkernel.WaitingAtCrusher

	got := ctrl.metOutbound(0)
	if net.Routes[got].Crusher != 0 {
		t.Fatalf("metOutbound returned route %d whose crusher isn't 0", got)
	}
}
