// Package network describes the immutable structure of a mine: crushers,
// shovels, the roads connecting them, and the routes a truck may take
// between a crusher and a shovel. A Network is built once, by parsing an
// input file, and never mutated afterward — all per-shift state (truck
// positions, road-queue occupancy, traffic-light phase) lives in the
// simulation kernel, not here.
package network

import "fmt"

// LaneKind distinguishes a road that permits simultaneous opposing
// traffic from one that requires light arbitration.
type LaneKind int

const (
	TwoLane LaneKind = iota
	OneLane
)

func (k LaneKind) String() string {
	if k == OneLane {
		return "one-lane"
	}
	return "two-lane"
}

// NodeKind tags the three kinds of graph vertex the complex-network
// input file can name: a dump point, a load point, or a plain junction
// with no service of its own.
type NodeKind int

const (
	NodeCrusher NodeKind = iota
	NodeShovel
	NodeIntermediate
)

// Node identifies one endpoint of a road in the undirected route graph.
type Node struct {
	Kind  NodeKind
	Index int
}

func (n Node) String() string {
	switch n.Kind {
	case NodeCrusher:
		return fmt.Sprintf("c%d", n.Index)
	case NodeShovel:
		return fmt.Sprintf("s%d", n.Index)
	default:
		return fmt.Sprintf("n%d", n.Index)
	}
}

// Crusher is a dump point: trucks arriving full spend an Empty-
// distributed duration there before returning to the network empty.
type Crusher struct {
	EmptyMean float64
	EmptySD   float64
}

// Shovel is a load point: trucks arriving empty spend a Fill-distributed
// duration there before returning to the network full.
type Shovel struct {
	FillMean float64
	FillSD   float64
}

// Road is one edge of the route graph, directed travel-time-wise but
// physically traversable in either direction. Direction 0 runs A->B,
// direction 1 runs B->A; this indexing is used throughout the kernel and
// the LP builder to key per-direction queues and flow variables.
type Road struct {
	A, B       Node
	TravelMean float64
	TravelSD   float64
	Kind       LaneKind
}

// Other returns the node reached by walking this road from `from`.
func (r Road) Other(from Node) Node {
	if from == r.A {
		return r.B
	}
	if from == r.B {
		return r.A
	}
	panic(fmt.Sprintf("network: node %v is not an endpoint of road %v-%v", from, r.A, r.B))
}

// DirectionFrom returns the direction index (0 = A->B, 1 = B->A) of
// traversing this road starting at `from`.
func (r Road) DirectionFrom(from Node) int {
	if from == r.A {
		return 0
	}
	if from == r.B {
		return 1
	}
	panic(fmt.Sprintf("network: node %v is not an endpoint of road %v-%v", from, r.A, r.B))
}

// Route is an immutable crusher-to-shovel path: an ordered sequence of
// (road, direction) pairs describing the outbound, empty leg. The loaded
// return leg is the same roads walked in the opposite directions, in
// reverse order.
type Route struct {
	Crusher    int
	Shovel     int
	Roads      []int
	Directions []int
}

func (rt Route) Len() int { return len(rt.Roads) }

// SimpleFullSlowdown is the fixed full-truck travel-time penalty used by
// the single-crusher input format, which (unlike the complex format) does
// not carry full_slowdown as a parsed field.
const SimpleFullSlowdown = 1.2

// Network is the fully parsed, immutable mine structure.
type Network struct {
	NumTrucks    int
	FullSlowdown float64
	Simple       bool // true for the single-crusher input format
	Crushers     []Crusher
	Shovels      []Shovel
	Roads        []Road
	Routes       []Route

	// RoutesFromCrusher[c] / RoutesToShovel[s] index into Routes.
	RoutesFromCrusher [][]int
	RoutesToShovel    [][]int
}

func (n *Network) indexRoutes() {
	n.RoutesFromCrusher = make([][]int, len(n.Crushers))
	n.RoutesToShovel = make([][]int, len(n.Shovels))
	for i, rt := range n.Routes {
		n.RoutesFromCrusher[rt.Crusher] = append(n.RoutesFromCrusher[rt.Crusher], i)
		n.RoutesToShovel[rt.Shovel] = append(n.RoutesToShovel[rt.Shovel], i)
	}
}
