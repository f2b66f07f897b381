// Package heuristic implements the forward-simulation greedy dispatch
// heuristics (MTCT, MTST, MTWT, MSWT, and the MET cycle-time variant): for
// each candidate outbound route, project N synthetic forward simulations
// of the other trucks already committed to that route's shovel, and pick
// the route minimizing the heuristic's average scalar.
package heuristic

import (
	"fmt"
	"math"
	"sort"

	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/simkernel"
	"github.com/nidoro/minehaul/timedist"
)

// Kind selects which of the four Tan & Ramani criteria (or the MET
// variant) a Controller minimizes.
type Kind int

const (
	MTCT Kind = iota // minimum total cycle time
	MTST             // minimum total service (dispatch->fill start) time
	MTWT             // minimum truck waiting time
	MSWT             // minimum shovel waiting time
	MET              // cycle time including merged crusher-queue simulation
)

func (k Kind) String() string {
	switch k {
	case MTCT:
		return "MTCT"
	case MTST:
		return "MTST"
	case MTWT:
		return "MTWT"
	case MSWT:
		return "MSWT"
	case MET:
		return "MET"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ConfigError reports a controller misconfiguration caught at
// construction.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "heuristic: " + e.Msg }

// Config bundles a heuristic controller's parameters, per spec §9's
// single-Config-value redesign.
type Config struct {
	Net        *network.Network
	Kind       Kind
	Dist       timedist.TimeDistribution // sampling distribution for the internal forward simulations
	NumSamples int
}

const epsilon = 1e-6

// Controller implements simkernel.Routing, greedily choosing the outbound
// route minimizing the configured heuristic's projected average, and the
// inbound route with the shortest mean return time to the truck's own
// crusher (the source never contends this choice, since simple networks
// have exactly one route home; the complex generalization picks the
// fastest route back to the truck's currently assigned crusher).
//
// One Controller instance serves both the single-crusher and multi-
// crusher network shapes, the same way dispatch.Controller does: a
// single-crusher network scores candidate routes against the closed-form
// arrival projection bestOutbound builds from its own live bookkeeping
// (HeuristicController.nextShovel's approach), while a multi-crusher
// network instead forks a real simkernel.Simulator off the
// state-restartable snapshot for each candidate (outbound, return) route
// pair -- HeuristicControllerNLC/MTCTControllerN's GreedySimulator fork,
// since a candidate route's contention now depends on the rest of the
// network, not just its own shovel's queue.
type Controller struct {
	net     *network.Network
	kind    Kind
	dist    timedist.TimeDistribution
	n       int
	complex bool

	loc      []simkernel.TruckLocation
	progress []float64
	route    []int
	routePt  []int
	crusher  []int
	shovel   []int
	toShovel []bool
	lights   []simkernel.TLState
	lastUsed []float64
	now      float64
}

func New(cfg Config) (*Controller, error) {
	if cfg.NumSamples <= 0 {
		return nil, &ConfigError{Msg: "NumSamples must be positive"}
	}
	if cfg.Dist == nil {
		return nil, &ConfigError{Msg: "Dist must not be nil"}
	}
	c := &Controller{net: cfg.Net, kind: cfg.Kind, dist: cfg.Dist, n: cfg.NumSamples, complex: len(cfg.Net.Crushers) != 1}
	c.Reset()
	return c, nil
}

// InitialCrushers distributes trucks across crushers in proportion to the
// aggregate digging rate (1/FillMean, summed over each crusher's routes)
// their shovels can absorb -- the same load-proportional idea DISPATCH
// uses, adapted here since a heuristic controller has no LP flow matrix to
// draw the ratio from.
func (c *Controller) InitialCrushers(numTrucks int) []int {
	share := make([]float64, len(c.net.Crushers))
	for _, r := range c.net.Routes {
		if r.Shovel < len(c.net.Shovels) && c.net.Shovels[r.Shovel].FillMean > 0 {
			share[r.Crusher] += 1 / c.net.Shovels[r.Shovel].FillMean
		}
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
	c.routePt = make([]int, nt)
	c.crusher = make([]int, nt)
	c.shovel = make([]int, nt)
	c.toShovel = make([]bool, nt)
	c.lights = make([]simkernel.TLState, len(c.net.Roads))
	c.lastUsed = make([]float64, len(c.net.Shovels))
	c.now = 0
	for i := range c.route {
		c.route[i] = -1
	}
}

// outboundLocation reports whether a truck occupying location loc is on
// the crusher->shovel leg of its route, mirroring
// simkernel/restart.go's StoredState.RecordEvent classification -- the
// same derivation is needed here to fork a StoredState for the
// complex-network lookahead (see snapshot/bestOutboundComplex below).
func outboundLocation(loc simkernel.TruckLocation) bool {
	switch loc {
	case simkernel.TravelToShovel, simkernel.ApproachingTLCS, simkernel.StoppedAtTLCS,
		simkernel.ApproachingShovel, simkernel.WaitingAtShovel, simkernel.Filling:
		return true
	}
	return false
}

func (c *Controller) Event(sc simkernel.StateChange) {
	c.now = sc.Time
	tid := sc.Truck
	c.loc[tid] = sc.To
	c.route[tid] = sc.Route
	c.routePt[tid] = sc.RoutePoint
	c.crusher[tid] = sc.Crusher
	c.shovel[tid] = sc.Shovel
	c.toShovel[tid] = outboundLocation(sc.To)
	copy(c.progress, sc.Progress)
	if sc.To == simkernel.LeavingShovel {
		c.lastUsed[sc.Shovel] = sc.Time
	}
}

func (c *Controller) LightEvent(road int, state simkernel.TLState) { c.lights[road] = state }

// snapshot copies the controller's live bookkeeping into a
// simkernel.StoredState, the state-restartable simulator's memory (spec
// §4.5): bestOutboundComplex forks a fresh Simulator off this snapshot
// per candidate route rather than reasoning about contention in closed
// form, since a multi-crusher network's candidate routes can interact
// through shared roads and lights that a single shovel's queue does not
// capture.
func (c *Controller) snapshot() *simkernel.StoredState {
	st := simkernel.NewStoredState(c.net, c.net.NumTrucks)
	st.Time = c.now
	copy(st.Loc, c.loc)
	copy(st.Route, c.route)
	copy(st.RoutePt, c.routePt)
	copy(st.Crusher, c.crusher)
	copy(st.Shovel, c.shovel)
	copy(st.ToShovel, c.toShovel)
	copy(st.Progress, c.progress)
	copy(st.Lights, c.lights)
	return st
}

func (c *Controller) NextRoute(tid int) simkernel.RouteChoice {
	switch c.loc[tid] {
	case simkernel.Waiting:
		if c.kind == MET {
			return simkernel.Route(c.metOutbound(tid))
		}
		if c.complex {
			return simkernel.Route(c.bestOutboundComplex(tid))
		}
		return simkernel.Route(c.bestOutbound(tid))
	case simkernel.LeavingShovel:
		return simkernel.Route(c.fastestHome(tid))
	default:
		panic(fmt.Sprintf("heuristic: NextRoute called for truck %d in illegal state %s", tid, c.loc[tid]))
	}
}

// fastestHome picks the route terminating at the truck's own crusher with
// the least mean shovel->crusher travel time -- the inbound leg carries no
// scheduling decision in the source, since a shovel drains to a single
// crusher in the simple network; here we choose the quickest way back to
// the crusher this truck is already committed to.
func (c *Controller) fastestHome(tid int) int {
	return c.bestReturnRoute(c.shovel[tid], c.crusher[tid])
}

// bestReturnRoute is fastestHome's underlying search, factored out so
// bestOutboundComplex can pair a candidate outbound route with its own
// best return route when forking the lookahead simulator.
func (c *Controller) bestReturnRoute(shovel, crusher int) int {
	best, bestTime := -1, 0.0
	for _, r := range c.net.RoutesToShovel[shovel] {
		if c.net.Routes[r].Crusher != crusher {
			continue
		}
		t := c.net.RouteTravelTime(c.net.Routes[r], false)
		if best < 0 || t < bestTime {
			best, bestTime = r, t
		}
	}
	if best < 0 {
		best = c.net.RoutesToShovel[shovel][0]
	}
	return best
}

// bestOutbound is the direct Go port of HeuristicController.nextShovel:
// for every route out of the truck's crusher, run NumSamples synthetic
// forward simulations of the trucks already resident at that route's
// shovel, then choose the route minimizing the configured metric for the
// candidate truck being inserted at progress zero.
func (c *Controller) bestOutbound(tid int) int {
	routes := c.net.RoutesFromCrusher[c.crusher[tid]]
	if len(routes) == 0 {
		panic(fmt.Sprintf("heuristic: crusher %d has no outbound routes", c.crusher[tid]))
	}

	totalCycle := make([]float64, len(routes))
	totalService := make([]float64, len(routes))
	totalTWait := make([]float64, len(routes))
	totalSWait := make([]float64, len(routes))

	for ri, r := range routes {
		rt := c.net.Routes[r]
		shv := c.net.Shovels[rt.Shovel]
		travelMean, travelSD := routeMeanSD(c.net, rt, true)
		returnMean, returnSD := routeMeanSD(c.net, rt, false)

		var travelling, returning []float64
		var fillCount int
		fillingProgress := -1.0
		for i := range c.loc {
			if c.route[i] != r {
				continue
			}
			switch c.loc[i] {
			case simkernel.TravelToShovel:
				travelling = append(travelling, c.progress[i])
			case simkernel.ApproachingShovel, simkernel.WaitingAtShovel:
				fillCount++
			case simkernel.Filling:
				fillingProgress = c.progress[i]
			case simkernel.LeavingShovel, simkernel.TravelToCrusher:
				returning = append(returning, c.progress[i])
			}
		}
		travelling = append(travelling, 0) // the candidate truck, dispatched now
		sort.Float64s(travelling)
		sort.Float64s(returning)

		for j := 0; j < c.n; j++ {
			arriving := sampleArrivals(travelling, c.dist, travelMean, travelSD, 1)
			returningArr := sampleArrivals(returning, c.dist, returnMean, returnSD, c.net.FullSlowdown)

			sAvailable := c.lastUsed[rt.Shovel] - c.now
			maxArr := 0.0
			if len(returningArr) > 0 {
				maxArr = returningArr[len(returningArr)-1]
			}
			if fillingProgress >= 0 {
				sAvailable = c.dist.NextTime(shv.FillMean, shv.FillSD) * (1 - fillingProgress)
				arr := max(maxArr, sAvailable+c.net.FullSlowdown*c.dist.NextTime(returnMean, returnSD))
				maxArr = arr
				returningArr = append(returningArr, arr)
			}
			for k := 0; k < fillCount; k++ {
				sAvailable = max(sAvailable, 0) + c.dist.NextTime(shv.FillMean, shv.FillSD)
				arr := max(maxArr, sAvailable+c.net.FullSlowdown*c.dist.NextTime(returnMean, returnSD))
				maxArr = arr
				returningArr = append(returningArr, arr)
			}
			for k, a := range arriving {
				if k == len(arriving)-1 {
					totalService[ri] += max(sAvailable, a)
					totalTWait[ri] += max(0, sAvailable-a)
					totalSWait[ri] += sAvailable
				}
				sAvailable = max(sAvailable, a) + c.dist.NextTime(shv.FillMean, shv.FillSD)
				arr := max(maxArr, sAvailable+c.net.FullSlowdown*c.dist.NextTime(returnMean, returnSD))
				maxArr = arr
				returningArr = append(returningArr, arr)
			}
			totalCycle[ri] += returningArr[len(returningArr)-1]
		}
	}

	metric := totalCycle
	switch c.kind {
	case MTCT:
		metric = totalCycle
	case MTST:
		metric = totalService
	case MTWT:
		metric = totalTWait
	case MSWT:
		metric = totalSWait
	}
	best, bestVal := 0, metric[0]
	for i := 1; i < len(metric); i++ {
		if metric[i] < bestVal {
			best, bestVal = i, metric[i]
		}
	}
	return routes[best]
}

// metReturn is one entry of a merged shared-crusher-queue return stream:
// p is the projected arrival time back at the crusher, route is which
// candidate route it came from, and candidate marks the one entry per
// route that represents the truck being routed now (mirroring
// METController's Item.b flag).
type metReturn struct {
	p         float64
	candidate bool
	route     int
}

// routeIndexOf returns the position of route r within routes, or -1.
func routeIndexOf(routes []int, r int) int {
	for i, x := range routes {
		if x == r {
			return i
		}
	}
	return -1
}

// metOutbound is a direct Go port of METController.nextShovel, generalized
// from per-shovel to per-route bookkeeping the way bestOutbound is. Unlike
// bestOutbound, which scores every route against its own independent
// shovel queue, metOutbound merges all of this crusher's routes' return
// streams into one time-ordered list and drains them through a single
// shared crusher-emptying queue (cAvailable), so a route whose shovel
// queue looks clear can still lose to one that would arrive behind a
// crusher backlog.
func (c *Controller) metOutbound(tid int) int {
	cr := c.crusher[tid]
	routes := c.net.RoutesFromCrusher[cr]
	if len(routes) == 0 {
		panic(fmt.Sprintf("heuristic: crusher %d has no outbound routes", cr))
	}

	travelling := make([][]float64, len(routes))
	returning := make([][]float64, len(routes))
	fillCount := make([]int, len(routes))
	fillingProgress := make([]float64, len(routes))
	for i := range fillingProgress {
		fillingProgress[i] = -1
	}
	var emptyCount int
	emptying := -1.0

	for i := range c.loc {
		switch c.loc[i] {
		case simkernel.ApproachingCrusher, simkernel.WaitingAtCrusher:
			if c.crusher[i] == cr {
				emptyCount++
			}
			continue
		case simkernel.Emptying:
			if c.crusher[i] == cr {
				emptying = c.progress[i]
			}
			continue
		}
		if c.route[i] < 0 {
			continue
		}
		rt := c.net.Routes[c.route[i]]
		if rt.Crusher != cr {
			continue
		}
		ri := routeIndexOf(routes, c.route[i])
		if ri < 0 {
			continue
		}
		switch c.loc[i] {
		case simkernel.TravelToShovel:
			travelling[ri] = append(travelling[ri], c.progress[i])
		case simkernel.ApproachingShovel, simkernel.WaitingAtShovel:
			fillCount[ri]++
		case simkernel.Filling:
			fillingProgress[ri] = c.progress[i]
		case simkernel.LeavingShovel, simkernel.TravelToCrusher:
			returning[ri] = append(returning[ri], c.progress[i])
		}
	}
	for ri := range routes {
		travelling[ri] = append(travelling[ri], 0) // the candidate truck, dispatched now
		sort.Float64s(travelling[ri])
		sort.Float64s(returning[ri])
	}

	emptyMean, emptySD := c.net.Crushers[cr].EmptyMean, c.net.Crushers[cr].EmptySD
	totalCycle := make([]float64, len(routes))
	for sa := 0; sa < c.n; sa++ {
		var merged []metReturn
		for ri, r := range routes {
			rt := c.net.Routes[r]
			shv := c.net.Shovels[rt.Shovel]
			travelMean, travelSD := routeMeanSD(c.net, rt, true)
			returnMean, returnSD := routeMeanSD(c.net, rt, false)

			arriving := sampleArrivals(travelling[ri], c.dist, travelMean, travelSD, 1)
			returningArr := sampleArrivals(returning[ri], c.dist, returnMean, returnSD, c.net.FullSlowdown)
			maxArr := 0.0
			if len(returningArr) > 0 {
				maxArr = returningArr[len(returningArr)-1]
			}
			for _, p := range returningArr {
				merged = append(merged, metReturn{p: p, route: ri})
			}

			sAvailable := c.lastUsed[rt.Shovel] - c.now
			if fillingProgress[ri] >= 0 {
				sAvailable = c.dist.NextTime(shv.FillMean, shv.FillSD) * (1 - fillingProgress[ri])
				arr := max(maxArr, sAvailable+c.net.FullSlowdown*c.dist.NextTime(returnMean, returnSD))
				maxArr = arr
				merged = append(merged, metReturn{p: arr, route: ri})
			}
			for k := 0; k < fillCount[ri]; k++ {
				sAvailable = max(sAvailable, 0) + c.dist.NextTime(shv.FillMean, shv.FillSD)
				arr := max(maxArr, sAvailable+c.net.FullSlowdown*c.dist.NextTime(returnMean, returnSD))
				maxArr = arr
				merged = append(merged, metReturn{p: arr, route: ri})
			}
			for k, a := range arriving {
				sAvailable = max(sAvailable, a) + c.dist.NextTime(shv.FillMean, shv.FillSD)
				arr := max(maxArr, sAvailable+c.net.FullSlowdown*c.dist.NextTime(returnMean, returnSD))
				maxArr = arr
				merged = append(merged, metReturn{p: arr, candidate: k == len(arriving)-1, route: ri})
			}
		}

		sort.Slice(merged, func(i, j int) bool { return merged[i].p < merged[j].p })

		cAvailable := 0.0
		if emptying >= 0 {
			cAvailable = c.dist.NextTime(emptyMean, emptySD) * (1 - emptying)
		}
		for k := 0; k < emptyCount; k++ {
			cAvailable += c.dist.NextTime(emptyMean, emptySD)
		}
		for _, item := range merged {
			if item.candidate {
				totalCycle[item.route] += max(cAvailable, item.p)
			} else {
				cAvailable = max(cAvailable, item.p) + c.dist.NextTime(emptyMean, emptySD)
			}
		}
	}

	best, bestVal := 0, totalCycle[0]
	for i := 1; i < len(totalCycle); i++ {
		if totalCycle[i] < bestVal {
			best, bestVal = i, totalCycle[i]
		}
	}
	return routes[best]
}

// sampleArrivals reproduces the source's reverse-progress arrival-time
// projection: trucks are walked from nearest-complete (progress closest to
// 1) to furthest, each sampling a fresh travel duration scaled by its
// remaining fraction, clamped to be no earlier than the truck ahead of it
// (anti-overtaking, mirrored from the live kernel). Trucks within epsilon
// of the same progress collapse onto the same arrival time.
func sampleArrivals(progressAsc []float64, dist timedist.TimeDistribution, mean, sd, slowdown float64) []float64 {
	out := make([]float64, 0, len(progressAsc))
	maxArr := 0.0
	lastP := 1.1
	for k := len(progressAsc) - 1; k >= 0; k-- {
		p := progressAsc[k]
		if lastP-p < epsilon {
			out = append(out, maxArr)
			continue
		}
		arr := max(maxArr, slowdown*dist.NextTime(mean, sd)*(1-p))
		maxArr = arr
		lastP = p
		out = append(out, arr)
	}
	return out
}

// routeMeanSD sums a route's per-road travel mean/SD in the given
// direction; SDs add in quadrature, since travel time is a sum of
// independent per-road samples.
func routeMeanSD(net *network.Network, rt network.Route, toShovel bool) (mean, sd float64) {
	for _, ri := range rt.Roads {
		road := net.Roads[ri]
		mean += road.TravelMean
		sd += road.TravelSD * road.TravelSD
	}
	sd = math.Sqrt(sd)
	return mean, sd
}

// forkHorizon bounds how far a complex-network lookahead fork is allowed
// to run; in practice shadowRouting stops the fork (via
// simkernel.StopSimulation) the moment its metric is captured, so this
// only guards against a candidate truck never completing its measured
// leg within the forked world.
const forkHorizon = 1e6

// bestOutboundComplex is the multi-crusher counterpart of bestOutbound:
// for every route out of the truck's crusher, paired with its own best
// return route, fork NumSamples real simkernel.Simulator instances off
// the live StoredState snapshot (spec §4.5) with every other truck kept
// on its current route, and average shadowRouting's recorded metric --
// the Go analogue of HeuristicControllerNLC/MTCTControllerN forking a
// GreedySimulator per candidate instead of reasoning about one shovel's
// queue in closed form, since contention in a routed multi-crusher
// network depends on roads and lights shared with other routes too.
func (c *Controller) bestOutboundComplex(tid int) int {
	cr := c.crusher[tid]
	routes := c.net.RoutesFromCrusher[cr]
	if len(routes) == 0 {
		panic(fmt.Sprintf("heuristic: crusher %d has no outbound routes", cr))
	}

	best, bestVal := routes[0], math.MaxFloat64
	for _, r := range routes {
		rt := c.net.Routes[r]
		ret := c.bestReturnRoute(rt.Shovel, cr)
		val := c.complexScore(tid, r, ret)
		if val < bestVal {
			best, bestVal = r, val
		}
	}
	return best
}

// complexScore runs NumSamples forks of the candidate (outbound, return)
// route pair and returns the average of the controller's configured
// metric, freshly drawn from c.dist each time (each fork gets its own
// shadowRouting and its own clone of the snapshot, so samples are
// independent the same way bestOutbound's repeated closed-form draws
// are).
func (c *Controller) complexScore(tid, outRoute, retRoute int) float64 {
	total := 0.0
	until := c.now + forkHorizon
	for i := 0; i < c.n; i++ {
		sh := newShadowRouting(c, tid, outRoute, retRoute)
		sim := c.snapshot().Ready(c.net, c.dist, sh, nil)
		sim.Simulate(until)
		total += sh.metric()
	}
	return total / float64(c.n)
}

// shadowRouting drives a single forked Simulator for one
// complexScore sample: it forces the requesting truck down the candidate
// outbound route (and, once it reaches LEAVING_SHOVEL, the candidate
// return route) exactly once, keeps every other truck -- and every later
// decision for the requesting truck -- on whatever route it already had
// ("all other trucks on their current schedule", spec §4.8), and records
// the timestamps the configured Kind needs. It stops the fork (via the
// StopSimulation sentinel, spec §9) as soon as its metric has been
// captured.
type shadowRouting struct {
	net  *network.Network
	kind Kind
	tid  int

	forceOut, forceRet   int
	forcedOut, forcedRet bool

	live *simkernel.StoredState

	shovelLastDone []float64

	dispatchTime, arriveShovelTime float64
	fillStart, msWait              float64
	nextDispatchTime               float64
	done                           bool
}

func newShadowRouting(c *Controller, tid, outRoute, retRoute int) *shadowRouting {
	return &shadowRouting{
		net:              c.net,
		kind:             c.kind,
		tid:              tid,
		forceOut:         outRoute,
		forceRet:         retRoute,
		live:             c.snapshot(),
		shovelLastDone:   append([]float64(nil), c.lastUsed...),
		dispatchTime:     -1,
		arriveShovelTime: -1,
		fillStart:        -1,
		msWait:           -1,
		nextDispatchTime: -1,
	}
}

func (s *shadowRouting) NextRoute(id int) simkernel.RouteChoice {
	if s.done {
		return simkernel.StopSimulation()
	}
	loc := s.live.Loc[id]
	if id == s.tid {
		if loc == simkernel.Waiting && !s.forcedOut {
			s.forcedOut = true
			s.dispatchTime = s.live.Time
			return simkernel.Route(s.forceOut)
		}
		if loc == simkernel.LeavingShovel && !s.forcedRet {
			s.forcedRet = true
			return simkernel.Route(s.forceRet)
		}
	}
	// Every other decision -- any other truck, or a later decision for
	// the requesting truck once its candidate legs are forced -- repeats
	// whatever route it is already on, since the route encodes both
	// directions of travel between its endpoints (simkernel.Simulator
	// accepts the same route index for both the outbound and inbound
	// decision at a given crusher/shovel pair).
	if r := s.live.Route[id]; r >= 0 {
		return simkernel.Route(r)
	}
	if loc == simkernel.LeavingShovel {
		return simkernel.Route(s.net.RoutesToShovel[s.live.Shovel[id]][0])
	}
	return simkernel.Route(s.net.RoutesFromCrusher[s.live.Crusher[id]][0])
}

func (s *shadowRouting) Event(sc simkernel.StateChange) {
	s.live.RecordEvent(sc)
	if sc.To == simkernel.LeavingShovel {
		s.shovelLastDone[sc.Shovel] = sc.Time
	}
	if sc.Truck != s.tid {
		return
	}
	switch sc.To {
	case simkernel.ApproachingShovel:
		if s.arriveShovelTime < 0 {
			s.arriveShovelTime = sc.Time
		}
	case simkernel.Filling:
		if s.fillStart < 0 {
			s.fillStart = sc.Time
			s.msWait = sc.Time - s.shovelLastDone[sc.Shovel]
			if s.kind != MTCT {
				s.done = true
			}
		}
	case simkernel.Waiting:
		if s.forcedOut && s.nextDispatchTime < 0 {
			s.nextDispatchTime = sc.Time
			s.done = true
		}
	}
}

func (s *shadowRouting) LightEvent(road int, state simkernel.TLState) { s.live.RecordLight(road, state) }

func (s *shadowRouting) Reset() {}

// metric reports the configured Kind's recorded scalar for this fork, or
// falls back to the best partial information gathered if the lookahead
// ended before the truck's full cycle closed.
func (s *shadowRouting) metric() float64 {
	switch s.kind {
	case MTST:
		if s.fillStart >= 0 {
			return s.fillStart - s.dispatchTime
		}
	case MTWT:
		if s.arriveShovelTime >= 0 && s.fillStart >= 0 {
			return s.fillStart - s.arriveShovelTime
		}
	case MSWT:
		if s.msWait >= 0 {
			return s.msWait
		}
	default: // MTCT
		if s.nextDispatchTime >= 0 {
			return s.nextDispatchTime - s.dispatchTime
		}
	}
	if s.fillStart >= 0 {
		return s.fillStart - s.dispatchTime
	}
	return 0
}

