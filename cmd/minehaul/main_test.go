package main

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/nidoro/minehaul/logx"
	"github.com/nidoro/minehaul/network"
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

func TestBuildSolutionRejectsUnknownIndex(t *testing.T) {
	net := mustParse(t, simpleNet)
	rng := rand.New(rand.NewSource(1))
	if _, err := buildSolution(6, net, timedist.NewUniformTimes(), 100, rng, logx.New(logx.LevelSilent)); err == nil {
		t.Fatal("expected an error for solution index 6")
	}
}

func TestBuildSolutionHeuristics(t *testing.T) {
	net := mustParse(t, simpleNet)
	rng := rand.New(rand.NewSource(1))
	for idx := 1; idx <= 4; idx++ {
		sol, err := buildSolution(idx, net, timedist.NewUniformTimes(), 100, rng, logx.New(logx.LevelSilent))
		if err != nil {
			t.Fatalf("index %d: %v", idx, err)
		}
		if sol.routing == nil || len(sol.initial) != net.NumTrucks {
			t.Fatalf("index %d: incomplete solution", idx)
		}
	}
}

func TestBuildSolutionDispatch(t *testing.T) {
	net := mustParse(t, simpleNet)
	rng := rand.New(rand.NewSource(1))
	sol, err := buildSolution(5, net, timedist.NewUniformTimes(), 500, rng, logx.New(logx.LevelSilent))
	if err != nil {
		t.Fatalf("buildSolution: %v", err)
	}
	if sol.name != "DISPATCH" {
		t.Fatalf("name = %q, want DISPATCH", sol.name)
	}
}

func TestBuildDispatchRejectsMultiCrusherNetwork(t *testing.T) {
	net := &network.Network{Crushers: []network.Crusher{{}, {}}}
	if _, err := buildDispatch(net, logx.New(logx.LevelSilent)); err == nil {
		t.Fatal("expected an error for a multi-crusher network")
	}
}
