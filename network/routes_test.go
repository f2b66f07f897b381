package network

import "testing"

// diamond builds a two-crusher, one-shovel network with an intermediate
// junction so a route must pass through more than one road, and a
// crusher-adjacent road that must never appear in an enumerated route.
func diamond() *Network {
	c0 := Node{Kind: NodeCrusher, Index: 0}
	c1 := Node{Kind: NodeCrusher, Index: 1}
	s0 := Node{Kind: NodeShovel, Index: 0}
	j := Node{Kind: NodeIntermediate, Index: 0}
	return &Network{
		Crushers: []Crusher{{EmptyMean: 1}, {EmptyMean: 1}},
		Shovels:  []Shovel{{FillMean: 1}},
		Roads: []Road{
			{A: c0, B: j, TravelMean: 1},
			{A: j, B: s0, TravelMean: 1},
			{A: c1, B: c0, TravelMean: 1}, // crusher-to-crusher: never part of a route
		},
	}
}

func TestEnumerateRoutesFindsMultiHopPath(t *testing.T) {
	net := diamond()
	routes := enumerateRoutes(net)
	if len(routes) != 1 {
		t.Fatalf("expected exactly one route (crusher 1 has no path avoiding another crusher), got %d", len(routes))
	}
	rt := routes[0]
	if rt.Crusher != 0 || rt.Shovel != 0 {
		t.Fatalf("route = %+v, want crusher 0 to shovel 0", rt)
	}
	if rt.Len() != 2 {
		t.Fatalf("expected a two-hop route through the intermediate node, got %d hops", rt.Len())
	}
}

func TestEnumerateRoutesNeverRevisitsANode(t *testing.T) {
	c0 := Node{Kind: NodeCrusher, Index: 0}
	s0 := Node{Kind: NodeShovel, Index: 0}
	j := Node{Kind: NodeIntermediate, Index: 0}
	net := &Network{
		Crushers: []Crusher{{EmptyMean: 1}},
		Shovels:  []Shovel{{FillMean: 1}},
		Roads: []Road{
			{A: c0, B: j, TravelMean: 1},
			{A: j, B: s0, TravelMean: 1},
			{A: s0, B: c0, TravelMean: 1}, // would let the DFS cycle back through c0
		},
	}
	routes := enumerateRoutes(net)
	for _, rt := range routes {
		seen := map[int]bool{}
		for _, ri := range rt.Roads {
			if seen[ri] {
				t.Fatalf("route %+v revisits road %d", rt, ri)
			}
			seen[ri] = true
		}
	}
}

func TestRouteTravelTimeAppliesFullSlowdownOnlyOnReturn(t *testing.T) {
	c0 := Node{Kind: NodeCrusher, Index: 0}
	s0 := Node{Kind: NodeShovel, Index: 0}
	net := &Network{
		FullSlowdown: 1.2,
		Crushers:     []Crusher{{EmptyMean: 1}},
		Shovels:      []Shovel{{FillMean: 1}},
		Roads:        []Road{{A: c0, B: s0, TravelMean: 10}},
	}
	rt := Route{Crusher: 0, Shovel: 0, Roads: []int{0}, Directions: []int{0}}
	if got := net.RouteTravelTime(rt, true); got != 10 {
		t.Fatalf("outbound RouteTravelTime = %f, want 10", got)
	}
	if got := net.RouteTravelTime(rt, false); got != 12 {
		t.Fatalf("inbound RouteTravelTime = %f, want 12 (with full slowdown)", got)
	}
}
