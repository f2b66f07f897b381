package network

// adjacency maps each node to the roads incident on it, so the route
// search can walk the network without caring whether an endpoint is
// listed as A or B on a given road.
type adjacency map[Node][]int

func buildAdjacency(roads []Road) adjacency {
	adj := make(adjacency)
	for i, r := range roads {
		adj[r.A] = append(adj[r.A], i)
		adj[r.B] = append(adj[r.B], i)
	}
	return adj
}

// enumerateRoutes performs a depth-first search from every crusher over
// the undirected road graph, recording the direction each road is
// traversed in, and closes off a path as soon as it reaches any shovel.
// A path may not revisit a node it has already passed through, and may
// never pass through a crusher other than the one it started at — both
// rules exist to prune the infinite family of cycles a general graph
// would otherwise admit.
func enumerateRoutes(net *Network) []Route {
	adj := buildAdjacency(net.Roads)
	var routes []Route

	for c := 0; c < len(net.Crushers); c++ {
		start := Node{Kind: NodeCrusher, Index: c}
		visited := map[Node]bool{start: true}
		var roadPath, dirPath []int

		var dfs func(cur Node)
		dfs = func(cur Node) {
			if cur.Kind == NodeShovel {
				routes = append(routes, Route{
					Crusher:    c,
					Shovel:     cur.Index,
					Roads:      append([]int(nil), roadPath...),
					Directions: append([]int(nil), dirPath...),
				})
				return
			}
			for _, ri := range adj[cur] {
				road := net.Roads[ri]
				next := road.Other(cur)
				if next.Kind == NodeCrusher {
					continue // never route through another crusher
				}
				if visited[next] {
					continue // no cycles within a single route
				}
				visited[next] = true
				roadPath = append(roadPath, ri)
				dirPath = append(dirPath, road.DirectionFrom(cur))

				dfs(next)

				roadPath = roadPath[:len(roadPath)-1]
				dirPath = dirPath[:len(dirPath)-1]
				visited[next] = false
			}
		}

		dfs(start)
	}

	return routes
}

// RouteTravelTime sums the mean travel time along a route's road sequence
// in the given direction. toShovel selects the outbound (crusher->shovel,
// empty) leg; the inbound (shovel->crusher) leg carries the full_slowdown
// penalty since it is the loaded return trip.
func (n *Network) RouteTravelTime(rt Route, toShovel bool) float64 {
	total := 0.0
	for _, ri := range rt.Roads {
		total += n.Roads[ri].TravelMean
	}
	if !toShovel {
		total *= n.FullSlowdown
	}
	return total
}
