// Package dispatch implements the DISPATCH lost-tons controller (White &
// Olson): a minimum-lost-tons routing policy driven by an LP-optimized
// route flow. One Controller instance serves both the single-crusher
// ("simple") and multi-crusher ("complex") network shapes, since a simple
// network is just a complex network whose routes are all owned by crusher
// zero.
package dispatch

import (
	"fmt"
	"sort"

	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/simkernel"
)

// ConfigError reports a controller misconfiguration caught at
// construction, per the error-handling design's "fail fast at controller
// construction" rule for configuration errors.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "dispatch: " + e.Msg }

// pair is the (index, value) tuple the original algorithm sorts
// extensively; kept as a small named type rather than parallel slices to
// match the source's own Pair/PairList idiom.
type pair struct {
	i int
	d float64
}

func sortPairs(ps []pair) {
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].d != ps[b].d {
			return ps[a].d < ps[b].d
		}
		return ps[a].i < ps[b].i
	})
}

// Config bundles the LP-derived route flow and the network it routes
// over, per spec §9's "single Config value, one-shot validation" builder
// redesign.
type Config struct {
	Net *network.Network
	// Flow[r][0] is the crusher->shovel (outbound) truck flow rate along
	// route r; Flow[r][1] is the shovel->crusher (inbound, loaded) flow
	// rate. Both come straight out of the LP flow builder's output matrix.
	Flow [][2]float64
}

// Controller is the DISPATCH routing capability: it implements
// simkernel.Routing by keeping its own copy of every truck's location,
// route and progress (fed by Event, mirroring the source's simLocs/
// simProgress bookkeeping) and answering NextRoute with the lost-tons
// minimizing choice.
type Controller struct {
	net  *network.Network
	flow [][2]float64

	meanOut  []float64 // per route, crusher->shovel mean travel time
	meanIn   []float64 // per route, shovel->crusher mean travel time
	minRoute []float64 // per crusher, min meanOut over its routes

	totalDiggingRate float64
	requiredTrucks   float64

	// live per-truck bookkeeping, updated by Event.
	loc      []simkernel.TruckLocation
	progress []float64
	route    []int
	crusher  []int
	shovel   []int

	// live per-route dispatch accounting, per direction (0=out, 1=in).
	allocated    [][2]float64
	lastDispatch [][2]float64
	now          float64

	// per-shovel last-service-completion estimate, updated from the Event
	// feed when a truck finishes filling (LEAVING_SHOVEL).
	shovelLastUsed []float64
}

// New validates the flow matrix against the network and precomputes the
// static quantities from spec §4.7 (total digging rate, required trucks,
// per-crusher minimum route time).
func New(cfg Config) (*Controller, error) {
	net := cfg.Net
	if len(cfg.Flow) != len(net.Routes) {
		return nil, &ConfigError{Msg: fmt.Sprintf("flow matrix has %d rows, network has %d routes", len(cfg.Flow), len(net.Routes))}
	}
	c := &Controller{
		net:            net,
		flow:           cfg.Flow,
		meanOut:        make([]float64, len(net.Routes)),
		meanIn:         make([]float64, len(net.Routes)),
		minRoute:       make([]float64, len(net.Crushers)),
		allocated:      make([][2]float64, len(net.Routes)),
		lastDispatch:   make([][2]float64, len(net.Routes)),
		shovelLastUsed: make([]float64, len(net.Shovels)),
	}
	for i := range c.minRoute {
		c.minRoute[i] = -1
	}
	for r, rt := range net.Routes {
		c.meanOut[r] = net.RouteTravelTime(rt, true)
		c.meanIn[r] = net.RouteTravelTime(rt, false)
		if c.minRoute[rt.Crusher] < 0 || c.meanOut[r] < c.minRoute[rt.Crusher] {
			c.minRoute[rt.Crusher] = c.meanOut[r]
		}
		c.totalDiggingRate += cfg.Flow[r][0]
		c.requiredTrucks += cfg.Flow[r][0]*(c.meanOut[r]+net.Shovels[rt.Shovel].FillMean) +
			cfg.Flow[r][1]*(c.meanIn[r]+net.Crushers[rt.Crusher].EmptyMean)
	}
	if c.requiredTrucks <= 0 {
		return nil, &ConfigError{Msg: "flow matrix implies zero required trucks"}
	}
	c.Reset()
	return c, nil
}

// InitialCrushers computes the load-proportional initial truck placement
// spec §4.7 calls for: each crusher gets a share of NT proportional to its
// routes' contribution to requiredTrucks.
func (c *Controller) InitialCrushers(numTrucks int) []int {
	share := make([]float64, len(c.net.Crushers))
	for r, rt := range c.net.Routes {
		share[rt.Crusher] += c.flow[r][0]*(c.meanOut[r]+c.net.Shovels[rt.Shovel].FillMean) +
			c.flow[r][1]*(c.meanIn[r]+c.net.Crushers[rt.Crusher].EmptyMean)
	}
	total := 0.0
	for _, s := range share {
		total += s
	}
	out := make([]int, numTrucks)
	if total <= 0 {
		return out
	}
	assigned := 0
	for cr := range share {
		n := int(float64(numTrucks) * share[cr] / total)
		for i := 0; i < n && assigned < numTrucks; i++ {
			out[assigned] = cr
			assigned++
		}
	}
	for assigned < numTrucks {
		out[assigned] = assigned % len(c.net.Crushers)
		assigned++
	}
	return out
}

func (c *Controller) Reset() {
	nt := c.net.NumTrucks
	c.loc = make([]simkernel.TruckLocation, nt)
	c.progress = make([]float64, nt)
	c.route = make([]int, nt)
	c.crusher = make([]int, nt)
	c.shovel = make([]int, nt)
	for i := range c.loc {
		c.loc[i] = simkernel.Waiting
		c.route[i] = -1
	}
	for r := range c.allocated {
		c.allocated[r] = [2]float64{0, 0}
		c.lastDispatch[r] = [2]float64{0, 0}
	}
	for s := range c.shovelLastUsed {
		c.shovelLastUsed[s] = 0
	}
	c.now = 0
}

func (c *Controller) Event(sc simkernel.StateChange) {
	c.now = sc.Time
	tid := sc.Truck
	c.loc[tid] = sc.To
	c.route[tid] = sc.Route
	c.crusher[tid] = sc.Crusher
	c.shovel[tid] = sc.Shovel
	for i, p := range sc.Progress {
		c.progress[i] = p
	}
	if sc.To == simkernel.LeavingShovel {
		c.shovelLastUsed[sc.Shovel] = sc.Time
	}
}

func (c *Controller) LightEvent(int, simkernel.TLState) {}

// recordDispatch applies spec §4.7's allocated-deficit update:
// allocated <- max(0, allocated - (now-last)*flow) + 1; last <- now.
func (c *Controller) recordDispatch(route, dir int) {
	flow := c.flow[route][dir]
	elapsed := c.now - c.lastDispatch[route][dir]
	c.allocated[route][dir] = maxf(0, c.allocated[route][dir]-elapsed*flow) + 1
	c.lastDispatch[route][dir] = c.now
}

// dispatchGreedy records the dispatch instant for a greedy-fallback choice
// before returning it, exactly like the ordinary outbound/inbound picks --
// the fallback is still a real dispatch of the requesting truck, not a
// projection.
func (c *Controller) dispatchGreedy(routes []int, sAvailable map[int]float64) simkernel.RouteChoice {
	route := c.greedy(routes, sAvailable)
	c.recordDispatch(route, 0)
	return simkernel.Route(route)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// NextRoute answers an outbound (WAITING) or inbound (LEAVING_SHOVEL)
// dispatch request; any other request is a controller misuse.
func (c *Controller) NextRoute(tid int) simkernel.RouteChoice {
	switch c.loc[tid] {
	case simkernel.Waiting:
		return c.outbound(tid)
	case simkernel.LeavingShovel:
		return c.inbound(tid)
	default:
		panic(fmt.Sprintf("dispatch: NextRoute called for truck %d in illegal state %s", tid, c.loc[tid]))
	}
}

// inbound implements spec §4.7's shovel-side rule: minimize
// allocated/desired over routes ending at this truck's shovel with
// positive inbound flow, where desired = mean_route_time * flow.
func (c *Controller) inbound(tid int) simkernel.RouteChoice {
	sh := c.shovel[tid]
	best, bestValue := -1, -1.0
	for _, r := range c.net.RoutesToShovel[sh] {
		if c.flow[r][1] <= 0 {
			continue
		}
		desired := c.meanIn[r] * c.flow[r][1]
		if desired <= 0 {
			continue
		}
		elapsed := c.now - c.lastDispatch[r][1]
		allocated := maxf(0, c.allocated[r][1]-elapsed*c.flow[r][1])
		v := allocated / desired
		if best < 0 || v < bestValue {
			best, bestValue = r, v
		}
	}
	if best < 0 {
		// No designated inbound flow (degenerate LP solution): fall back
		// to any route terminating here.
		if len(c.net.RoutesToShovel[sh]) == 0 {
			panic(fmt.Sprintf("dispatch: shovel %d has no route back to a crusher", sh))
		}
		best = c.net.RoutesToShovel[sh][0]
	}
	// recordDispatch fires here, at the true LEAVING_SHOVEL decision
	// instant (c.now), rather than off the later TRAVEL_TO_CRUSHER
	// StateChange the kernel only emits once the truck clears the first
	// road segment.
	c.recordDispatch(best, 1)
	return simkernel.Route(best)
}

// outbound implements spec §4.7 steps 1-5, restricted to the requesting
// truck's own crusher (each crusher's outbound dispatch is estimated and
// solved independently of other crushers' traffic).
func (c *Controller) outbound(tid int) simkernel.RouteChoice {
	cr := c.crusher[tid]
	routes := c.net.RoutesFromCrusher[cr]
	if len(routes) == 0 {
		panic(fmt.Sprintf("dispatch: crusher %d has no outbound routes", cr))
	}

	dispatchTime, sAvailable := c.estimateArrivals(cr, routes)

	needQueue := make([]pair, 0, len(routes))
	lastDispatch := make(map[int]float64, len(routes))
	allocated := make(map[int]float64, len(routes))
	for _, r := range routes {
		if c.flow[r][0] <= 0 {
			continue
		}
		lastDispatch[r] = c.lastDispatch[r][0] - c.now
		allocated[r] = c.allocated[r][0]
		needTime := lastDispatch[r] + allocated[r]/c.flow[r][0] - c.meanOut[r]
		needQueue = append(needQueue, pair{i: r, d: needTime})
	}
	if len(needQueue) == 0 {
		return c.dispatchGreedy(routes, sAvailable)
	}

	assigned := make(map[int]bool, len(dispatchTime))
	for {
		sortPairs(needQueue)
		route := needQueue[0].i
		needQueue = needQueue[1:]

		baseLoss := c.totalDiggingRate * (c.meanOut[route] - c.minRoute[cr]) / c.requiredTrucks
		bestTid, bestValue, bestPD := -1, 1e18, 0.0
		for _, p := range dispatchTime {
			if assigned[p.i] {
				continue
			}
			dispatch := maxf(p.d, lastDispatch[route])
			arrival := dispatch + c.meanOut[route]
			lost := baseLoss
			if arrival > sAvailable[route] {
				lost += (arrival - sAvailable[route]) * c.flow[route][0]
			} else {
				lost += (sAvailable[route] - arrival) * c.totalDiggingRate / c.requiredTrucks
			}
			if bestTid < 0 || lost < bestValue {
				bestTid, bestValue, bestPD = p.i, lost, p.d
			}
		}
		if bestTid < 0 {
			return c.dispatchGreedy(routes, sAvailable)
		}
		bestDispatch := maxf(bestPD, lastDispatch[route])
		if bestDispatch > bestPD {
			// The neediest route's best candidate would be pushed later
			// than its natural readiness: the truck should be dispatched
			// out of order instead. Fall back to single-truck greedy per
			// spec §4.7 step 5.
			return c.dispatchGreedy(routes, sAvailable)
		}
		if bestTid == tid {
			c.recordDispatch(route, 0)
			return simkernel.Route(route)
		}
		assigned[bestTid] = true
		allocated[route] = maxf(0, allocated[route]-(bestDispatch-lastDispatch[route])*c.flow[route][0]) + 1
		lastDispatch[route] = bestDispatch
		sAvailable[route] = maxf(bestDispatch+c.meanOut[route], sAvailable[route]) + c.net.Shovels[c.net.Routes[route].Shovel].FillMean
		needTime := lastDispatch[route] + allocated[route]/c.flow[route][0] - c.meanOut[route]
		needQueue = append(needQueue, pair{i: route, d: needTime})
	}
}

// greedy implements spec §4.7 step 5's single-truck fallback: pick the
// route out of this crusher minimizing marginal lost tons for one truck
// dispatched now.
func (c *Controller) greedy(routes []int, sAvailable map[int]float64) int {
	best, bestValue := routes[0], 1e18
	for _, r := range routes {
		cr := c.net.Routes[r].Crusher
		lost := c.totalDiggingRate * (c.meanOut[r] - c.minRoute[cr]) / c.requiredTrucks
		arrival := c.meanOut[r]
		avail := sAvailable[r]
		if arrival > avail {
			lost += (arrival - avail) * c.flow[r][0]
		} else {
			lost += (avail - arrival) * c.totalDiggingRate / c.requiredTrucks
		}
		if lost < bestValue {
			best, bestValue = r, lost
		}
	}
	return best
}

// estimateArrivals forward-projects, deterministically from current
// progress, (a) the dispatch time of every truck belonging to this
// crusher's routes and (b) each route's shovel-availability timestamp --
// the generalization of DISPATCHController.java's nextShovel() estimator
// from per-shovel to per-route bookkeeping.
func (c *Controller) estimateArrivals(cr int, routes []int) ([]pair, map[int]float64) {
	sAvailable := make(map[int]float64, len(routes))
	var arriveAtCrusher []pair

	byRoute := map[int][]pair{}    // TRAVEL_TO_SHOVEL
	fillWait := map[int][]pair{}   // APPROACHING_SHOVEL / WAITING_AT_SHOVEL
	filling := map[int]pair{}      // FILLING (at most one per route's shovel among this crusher's trucks)
	returning := map[int][]pair{}  // LEAVING_SHOVEL / TRAVEL_TO_CRUSHER
	var emptyList []pair
	var emptying *pair
	var dispatchNow []pair

	for tid := range c.loc {
		if c.loc[tid] == simkernel.Waiting && c.crusher[tid] == cr {
			dispatchNow = append(dispatchNow, pair{i: tid, d: 0})
			continue
		}
		if c.route[tid] < 0 {
			continue
		}
		rt := c.net.Routes[c.route[tid]]
		if rt.Crusher != cr {
			continue
		}
		p := pair{i: tid, d: c.progress[tid]}
		switch c.loc[tid] {
		case simkernel.TravelToShovel:
			byRoute[c.route[tid]] = append(byRoute[c.route[tid]], p)
		case simkernel.ApproachingShovel, simkernel.WaitingAtShovel:
			fillWait[c.route[tid]] = append(fillWait[c.route[tid]], p)
		case simkernel.Filling:
			filling[c.route[tid]] = p
		case simkernel.LeavingShovel, simkernel.TravelToCrusher:
			returning[c.route[tid]] = append(returning[c.route[tid]], p)
		case simkernel.ApproachingCrusher, simkernel.WaitingAtCrusher:
			emptyList = append(emptyList, p)
		case simkernel.Emptying:
			ep := p
			emptying = &ep
		}
	}

	for _, r := range routes {
		shovel := c.net.Routes[r].Shovel
		fillMean := c.net.Shovels[shovel].FillMean
		avail := c.shovelLastUsed[shovel] - c.now
		returnTime := c.meanIn[r]

		if fp, ok := filling[r]; ok {
			fillTime := fillMean * (1 - fp.d)
			avail = fillTime
			arriveAtCrusher = append(arriveAtCrusher, pair{i: fp.i, d: fillTime + returnTime})
		}
		for _, p := range fillWait[r] {
			avail = maxf(avail, 0) + fillMean
			arriveAtCrusher = append(arriveAtCrusher, pair{i: p.i, d: avail + returnTime})
		}
		var arriveAtShovel []pair
		for _, p := range byRoute[r] {
			arriveAtShovel = append(arriveAtShovel, pair{i: p.i, d: c.meanOut[r] * (1 - p.d)})
		}
		sortPairs(arriveAtShovel)
		for _, p := range arriveAtShovel {
			avail = maxf(avail, p.d) + fillMean
			arriveAtCrusher = append(arriveAtCrusher, pair{i: p.i, d: avail + returnTime})
		}
		for _, p := range returning[r] {
			arriveAtCrusher = append(arriveAtCrusher, pair{i: p.i, d: returnTime * (1 - p.d)})
		}
		sAvailable[r] = avail
	}

	sortPairs(arriveAtCrusher)
	emptyMean := c.net.Crushers[cr].EmptyMean
	dispatchTime := append([]pair(nil), dispatchNow...)
	cAvailable := 0.0
	if emptying != nil {
		emptyTime := emptyMean * (1 - emptying.d)
		cAvailable = emptyTime
		dispatchTime = append(dispatchTime, pair{i: emptying.i, d: emptyTime})
	}
	for _, p := range emptyList {
		cAvailable += emptyMean
		dispatchTime = append(dispatchTime, pair{i: p.i, d: cAvailable})
	}
	for _, p := range arriveAtCrusher {
		cAvailable = maxf(cAvailable, p.d) + emptyMean
		dispatchTime = append(dispatchTime, pair{i: p.i, d: cAvailable})
	}
	sortPairs(dispatchTime)
	return dispatchTime, sAvailable
}
