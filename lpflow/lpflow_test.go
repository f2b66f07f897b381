package lpflow

import (
	"strings"
	"testing"

	"github.com/nidoro/minehaul/network"
)

func mustParse(t *testing.T, src string) *network.Network {
	t.Helper()
	net, err := network.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return net
}

func TestNewRejectsNilNetwork(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected a ConfigError for a nil network")
	}
}

// TestBuildRestrictColumnCount checks the restrict variant's variable
// count against spec §4.6's formula: crushers + shovels + 3*roads +
// 2*routes + 1, one extra road-worth of columns over the scale variant
// for the one-lane binary direction indicators.
func TestBuildRestrictColumnCount(t *testing.T) {
	src := "T 6\nC 1\n1.0 0.1\nS 2\n5.0 0 1.0 0\n5.0 0 2.0 0\n"
	net := mustParse(t, src)

	m, err := New(Config{Net: net, OneWayRestriction: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := len(net.Crushers) + len(net.Shovels) + 3*len(net.Roads) + 2*len(net.Routes) + 1
	if m.numVars != want {
		t.Fatalf("numVars = %d, want %d", m.numVars, want)
	}
}

func TestBuildScaleColumnCount(t *testing.T) {
	src := "T 6\nC 1\n1.0 0.1\nS 2\n5.0 0 1.0 0\n5.0 0 2.0 0\n"
	net := mustParse(t, src)

	m, err := New(Config{Net: net, OneWayRestriction: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := len(net.Crushers) + len(net.Shovels) + 2*len(net.Roads) + 2*len(net.Routes) + 1
	if m.numVars != want {
		t.Fatalf("numVars = %d, want %d", m.numVars, want)
	}
}

func TestRouteVarColumnsAreDistinct(t *testing.T) {
	src := "T 6\nC 1\n1.0 0.1\nS 2\n5.0 0 1.0 0\n5.0 0 2.0 0\n"
	net := mustParse(t, src)
	m, err := New(Config{Net: net, OneWayRestriction: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := map[int]bool{}
	for _, cols := range m.routeVar {
		for _, c := range cols {
			if seen[c] {
				t.Fatalf("column %d assigned to more than one route/direction", c)
			}
			seen[c] = true
		}
	}
}
