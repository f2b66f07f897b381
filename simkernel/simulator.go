package simkernel

import (
	"fmt"

	"github.com/kr/pretty"

	"github.com/nidoro/minehaul/logx"
	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/timedist"
)

// InvariantError reports a simulation-invariant violation: a bug in the
// simulator or in a controller's dispatch decision. It is never
// recovered from — construction of the error is itself the fatal
// surfacing point described in the error handling design.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "simkernel: invariant violated: " + e.Msg }

func (s *Simulator) fail(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	s.Log.Printf[logx.LevelRun](logx.Red("[INVARIANT VIOLATED] %s\n"), msg)
	panic(&InvariantError{Msg: msg})
}

// Simulator is the event-driven truck/crusher/shovel state machine. One
// Simulator instance serves both simple and complex networks: a simple
// network parses into single-segment, all-two-lane routes, so the
// traffic-light and multi-hop machinery here simply never engages.
type Simulator struct {
	Net     *network.Network
	Dist    timedist.TimeDistribution
	Routing Routing
	Log     *logx.Logger

	Now     float64
	Empties int
	stopped bool

	loc      []TruckLocation
	route    []int
	routePt  []int
	crusher  []int
	shovel   []int
	toShovel []bool

	curRoad []int
	curDir  []int

	taskStart []float64
	taskEnd   []float64

	crusherQueue [][]int
	shovelQueue  [][]int

	roadQueue     [][2][]int
	roadAvailable [][2]float64
	roadCounter   [][2]int

	lightState []TLState // indexed by road; only one-lane roads have a meaningful entry
	lightQueue [][2][]int

	events  *timedQueue
	instant *shortPQueue
}

func New(net *network.Network, dist timedist.TimeDistribution, routing Routing, log *logx.Logger) *Simulator {
	if log == nil {
		log = logx.New(logx.LevelSilent)
	}
	s := &Simulator{Net: net, Dist: dist, Routing: routing, Log: log}
	nt := net.NumTrucks
	nr := len(net.Roads)
	s.loc = make([]TruckLocation, nt)
	s.route = make([]int, nt)
	s.routePt = make([]int, nt)
	s.crusher = make([]int, nt)
	s.shovel = make([]int, nt)
	s.toShovel = make([]bool, nt)
	s.curRoad = make([]int, nt)
	s.curDir = make([]int, nt)
	s.taskStart = make([]float64, nt)
	s.taskEnd = make([]float64, nt)
	s.crusherQueue = make([][]int, len(net.Crushers))
	s.shovelQueue = make([][]int, len(net.Shovels))
	s.roadQueue = make([][2][]int, nr)
	s.roadAvailable = make([][2]float64, nr)
	s.roadCounter = make([][2]int, nr)
	s.lightState = make([]TLState, nr)
	s.lightQueue = make([][2][]int, nr)
	s.events = newTimedQueue()
	s.instant = &shortPQueue{}
	return s
}

// Reset clears all per-shift state and places trucks WAITING at their
// initial crushers, distributed round-robin unless initialCrushers is
// given explicitly (DISPATCH computes a load-proportional distribution;
// see dispatch.Controller).
func (s *Simulator) Reset(initialCrushers []int) {
	nt := s.Net.NumTrucks
	s.Now = 0
	s.Empties = 0
	s.stopped = false
	s.events.clear()
	s.instant.clear()

	for c := range s.crusherQueue {
		s.crusherQueue[c] = nil
	}
	for sh := range s.shovelQueue {
		s.shovelQueue[sh] = nil
	}
	for r := range s.roadQueue {
		s.roadQueue[r][0] = nil
		s.roadQueue[r][1] = nil
		s.roadAvailable[r] = [2]float64{0, 0}
		s.roadCounter[r] = [2]int{0, 0}
		s.lightState[r] = TLGreenRed
		s.lightQueue[r][0] = nil
		s.lightQueue[r][1] = nil
	}

	for i := 0; i < nt; i++ {
		c := i % len(s.Net.Crushers)
		if initialCrushers != nil {
			c = initialCrushers[i]
		}
		s.loc[i] = Waiting
		s.crusher[i] = c
		s.shovel[i] = -1
		s.route[i] = -1
		s.routePt[i] = 0
		s.taskStart[i] = 0
		s.taskEnd[i] = 0
	}

	s.Routing.Reset()

	for i := 0; i < nt; i++ {
		s.instant.add(Transition{Truck: i, Time: 0, From: Waiting, To: Waiting, Priority: priority(Waiting, i)})
	}
}

// Simulate advances the clock, processing events, until either the
// event queues are exhausted, the next timed event exceeds `until`, or
// the routing capability requests early termination.
func (s *Simulator) Simulate(until float64) {
	for !s.stopped {
		var t Transition
		if !s.instant.empty() {
			t = s.instant.poll()
		} else if !s.events.empty() {
			if s.events.peek().Time > until {
				return
			}
			t = s.events.poll()
		} else {
			return
		}
		s.Now = t.Time
		s.applyTransition(t)
	}
}

func (s *Simulator) applyTransition(t Transition) {
	tid := t.Truck
	s.loc[tid] = t.To
	sc := s.buildStateChange(t)
	if s.Log.Level >= logx.LevelTrace {
		s.Log.Printf[logx.LevelTrace](logx.Green(logx.Bold("[CLOCK] %s (%.2fs)\n")), logx.HumanTime(s.Now), s.Now)
		s.Log.Printf[logx.LevelTrace]("%# v\n", pretty.Formatter(sc))
	}
	s.Routing.Event(sc)
	s.dispatch(t)
}

func (s *Simulator) buildStateChange(t Transition) StateChange {
	progress := make([]float64, s.Net.NumTrucks)
	for i := range progress {
		progress[i] = s.progressOf(i)
	}
	return StateChange{
		Time:       s.Now,
		Truck:      t.Truck,
		From:       t.From,
		To:         t.To,
		Route:      s.route[t.Truck],
		RoutePoint: s.routePt[t.Truck],
		Crusher:    s.crusher[t.Truck],
		Shovel:     s.shovel[t.Truck],
		Progress:   progress,
	}
}

func (s *Simulator) progressOf(tid int) float64 {
	span := s.taskEnd[tid] - s.taskStart[tid]
	if span <= 0 {
		return 0
	}
	p := (s.Now - s.taskStart[tid]) / span
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (s *Simulator) dispatch(t Transition) {
	tid := t.Truck
	switch t.To {
	case Waiting:
		if t.From == Emptying {
			s.Empties++
			s.Log.Printf[logx.LevelTrace](logx.Green("[EMPTYING DONE] truck %d at crusher %d (%d empties)\n"), tid, s.crusher[tid], s.Empties)
			s.dequeueCrusher(tid)
		}
		s.onWaiting(tid)
	case LeavingShovel:
		if t.From == Filling {
			s.Log.Printf[logx.LevelTrace](logx.Green("[FILLING DONE] truck %d at shovel %d\n"), tid, s.shovel[tid])
			s.dequeueShovel(tid)
		}
		s.onLeavingShovel(tid)
	case ApproachingTLCS:
		s.onApproachingTL(tid, true)
	case ApproachingTLSS:
		s.onApproachingTL(tid, false)
	case StoppedAtTLCS, StoppedAtTLSS:
		s.onStoppedAtTL(tid)
	case TravelToShovel, TravelToCrusher:
		s.onClearedRoad(tid)
	case ApproachingShovel:
		s.onApproachingShovel(tid)
	case ApproachingCrusher:
		s.onApproachingCrusher(tid)
	case WaitingAtShovel, WaitingAtCrusher:
		// no immediate follow-up; released when the queue head vacates
	case Filling:
		s.onFilling(tid)
	case Emptying:
		s.onEmptying(tid)
	case Unused:
		// parked for the remainder of the shift
	}
}

// dequeueShovel removes a truck that has finished filling from the head
// of its shovel's service queue and, if another truck is waiting,
// instantly promotes it to FILLING.
func (s *Simulator) dequeueShovel(tid int) {
	sh := s.shovel[tid]
	q := s.shovelQueue[sh]
	if len(q) == 0 || q[0] != tid {
		s.fail("shovel %d service queue head mismatch: expected truck %d", sh, tid)
	}
	s.shovelQueue[sh] = q[1:]
	if len(s.shovelQueue[sh]) > 0 {
		next := s.shovelQueue[sh][0]
		s.instant.add(Transition{Truck: next, Time: s.Now, From: WaitingAtShovel, To: Filling, Priority: priority(Filling, next)})
	}
}

// dequeueCrusher is the crusher-side counterpart of dequeueShovel.
func (s *Simulator) dequeueCrusher(tid int) {
	c := s.crusher[tid]
	q := s.crusherQueue[c]
	if len(q) == 0 || q[0] != tid {
		s.fail("crusher %d service queue head mismatch: expected truck %d", c, tid)
	}
	s.crusherQueue[c] = q[1:]
	if len(s.crusherQueue[c]) > 0 {
		next := s.crusherQueue[c][0]
		s.instant.add(Transition{Truck: next, Time: s.Now, From: WaitingAtCrusher, To: Emptying, Priority: priority(Emptying, next)})
	}
}

func (s *Simulator) taskStartsNow(tid int) {
	s.taskStart[tid] = s.Now
	s.taskEnd[tid] = s.Now
}

// onWaiting is the outbound decision point: ask the routing capability
// which route (if any) this truck should take out of its crusher.
func (s *Simulator) onWaiting(tid int) {
	s.taskStartsNow(tid)
	choice := s.Routing.NextRoute(tid)
	switch choice.Kind {
	case ChoosePark:
		s.instant.add(Transition{Truck: tid, Time: s.Now, From: Waiting, To: Unused, Priority: priority(Unused, tid)})
	case ChooseStopSimulation:
		s.stopped = true
	case ChooseRoute:
		rt := s.Net.Routes[choice.Route]
		if rt.Crusher != s.crusher[tid] {
			s.fail("route %d does not originate at truck %d's crusher %d", choice.Route, tid, s.crusher[tid])
		}
		s.route[tid] = choice.Route
		s.shovel[tid] = rt.Shovel
		s.toShovel[tid] = true
		s.routePt[tid] = -1 // advanceSegment will set this to 0
		s.advanceSegment(tid, 0, true)
	default:
		s.fail("routing returned unknown choice kind %d for truck %d", choice.Kind, tid)
	}
}

// onLeavingShovel is the inbound decision point.
func (s *Simulator) onLeavingShovel(tid int) {
	s.taskStartsNow(tid)
	choice := s.Routing.NextRoute(tid)
	switch choice.Kind {
	case ChoosePark:
		s.instant.add(Transition{Truck: tid, Time: s.Now, From: LeavingShovel, To: Unused, Priority: priority(Unused, tid)})
	case ChooseStopSimulation:
		s.stopped = true
	case ChooseRoute:
		rt := s.Net.Routes[choice.Route]
		if rt.Shovel != s.shovel[tid] {
			s.fail("route %d does not terminate at truck %d's shovel %d", choice.Route, tid, s.shovel[tid])
		}
		s.route[tid] = choice.Route
		s.crusher[tid] = rt.Crusher
		s.toShovel[tid] = false
		s.advanceSegment(tid, 0, false)
	default:
		s.fail("routing returned unknown choice kind %d for truck %d", choice.Kind, tid)
	}
}

// advanceSegment begins traversal of route segment `pt` (0-indexed by
// hops from the start of the journey, regardless of direction).
func (s *Simulator) advanceSegment(tid, pt int, toShovel bool) {
	rt := s.Net.Routes[s.route[tid]]
	roadIdx, dir := roadAt(rt, pt, toShovel)
	s.routePt[tid] = pt
	s.curRoad[tid] = roadIdx
	s.curDir[tid] = dir
	road := s.Net.Roads[roadIdx]

	if road.Kind == network.OneLane {
		dest := ApproachingTLCS
		if !toShovel {
			dest = ApproachingTLSS
		}
		s.instant.add(Transition{Truck: tid, Time: s.Now, To: dest, Priority: priority(dest, tid)})
		return
	}
	s.enterRoad(tid, toShovel)
}

// roadAt returns the (road, direction) pair for segment `pt` of a route,
// walking the route's stored (road,direction) list forward for the
// outbound leg and reversed-and-flipped for the inbound leg.
func roadAt(rt network.Route, pt int, toShovel bool) (int, int) {
	if toShovel {
		return rt.Roads[pt], rt.Directions[pt]
	}
	n := len(rt.Roads)
	idx := n - 1 - pt
	return rt.Roads[idx], 1 - rt.Directions[idx]
}

// enterRoad samples a travel duration and applies the road's
// anti-overtaking discipline: the truck's actual completion time is
// clamped to the road's running availability timestamp, guaranteeing
// FIFO completion order regardless of sample draws.
func (s *Simulator) enterRoad(tid int, toShovel bool) {
	roadIdx, dir := s.curRoad[tid], s.curDir[tid]
	road := s.Net.Roads[roadIdx]
	tau := s.Dist.NextTime(road.TravelMean, road.TravelSD)
	if !toShovel {
		tau *= s.Net.FullSlowdown
	}
	arrival := s.Now + tau
	if s.roadAvailable[roadIdx][dir] > arrival {
		arrival = s.roadAvailable[roadIdx][dir]
	}
	s.roadAvailable[roadIdx][dir] = arrival
	s.roadQueue[roadIdx][dir] = append(s.roadQueue[roadIdx][dir], tid)
	counter := s.roadCounter[roadIdx][dir]
	s.roadCounter[roadIdx][dir]++

	dest := TravelToShovel
	if !toShovel {
		dest = TravelToCrusher
	}
	s.taskStart[tid] = s.Now
	s.taskEnd[tid] = arrival
	s.events.add(Transition{Truck: tid, Time: arrival, To: dest, Priority: priority(dest, counter)})
}

// onClearedRoad handles the completion of one road segment: the truck
// must be the head of that road's direction queue, guaranteeing
// in-order arrival, then either continues to the next segment or has
// reached its destination.
func (s *Simulator) onClearedRoad(tid int) {
	roadIdx, dir := s.curRoad[tid], s.curDir[tid]
	q := s.roadQueue[roadIdx][dir]
	if len(q) == 0 || q[0] != tid {
		s.fail("road %d direction %d completion out of order: expected head, got truck %d", roadIdx, dir, tid)
	}
	s.roadQueue[roadIdx][dir] = q[1:]
	s.checkLightsAfterClear(roadIdx)

	toShovel := s.toShovel[tid]
	rt := s.Net.Routes[s.route[tid]]
	nextPt := s.routePt[tid] + 1
	s.taskStartsNow(tid)
	if nextPt == len(rt.Roads) {
		dest := ApproachingShovel
		if !toShovel {
			dest = ApproachingCrusher
		}
		s.instant.add(Transition{Truck: tid, Time: s.Now, To: dest, Priority: priority(dest, tid)})
		return
	}
	s.advanceSegment(tid, nextPt, toShovel)
}

func (s *Simulator) onApproachingTL(tid int, toShovel bool) {
	roadIdx, side := s.curRoad[tid], s.curDir[tid]
	if s.lightState[roadIdx].sideState(side) == 'G' {
		s.enterRoad(tid, toShovel)
		return
	}
	dest := StoppedAtTLCS
	if !toShovel {
		dest = StoppedAtTLSS
	}
	s.instant.add(Transition{Truck: tid, Time: s.Now, To: dest, Priority: priority(dest, tid)})
}

func (s *Simulator) onStoppedAtTL(tid int) {
	roadIdx, side := s.curRoad[tid], s.curDir[tid]
	s.taskStartsNow(tid)
	wasEmpty := len(s.lightQueue[roadIdx][side]) == 0
	s.lightQueue[roadIdx][side] = append(s.lightQueue[roadIdx][side], tid)

	if wasEmpty {
		other := 1 - side
		st := s.lightState[roadIdx]
		if st.sideState(other) == 'G' {
			s.lightState[roadIdx] = yellowFor(other)
			s.Log.Printf[logx.LevelTrace](logx.Yellow("[LIGHT] road %d -> %s\n"), roadIdx, s.lightState[roadIdx])
			s.Routing.LightEvent(roadIdx, s.lightState[roadIdx])
			// The road may already be empty, in which case no later
			// clearance would trigger the flip.
			s.checkLightsAfterClear(roadIdx)
		}
	}
}

// yellowFor returns the state where `greenSide` is yellow-draining and
// the other side stays red.
func yellowFor(greenSide int) TLState {
	if greenSide == 0 {
		return TLYellowRed
	}
	return TLRedYellow
}

// checkLightsAfterClear implements the flip-and-release protocol once a
// road segment completes: if the light is mid-transition and the road
// has now fully drained in both directions, flip to the waiting side and
// release its queue.
func (s *Simulator) checkLightsAfterClear(roadIdx int) {
	st := s.lightState[roadIdx]
	if st != TLYellowRed && st != TLRedYellow {
		return
	}
	if len(s.roadQueue[roadIdx][0]) != 0 || len(s.roadQueue[roadIdx][1]) != 0 {
		return
	}

	var releasedSide, newRedSide int
	var newState TLState
	if st == TLYellowRed {
		newState, releasedSide, newRedSide = TLRedGreen, 1, 0
	} else {
		newState, releasedSide, newRedSide = TLGreenRed, 0, 1
	}
	s.lightState[roadIdx] = newState

	released := s.lightQueue[roadIdx][releasedSide]
	s.lightQueue[roadIdx][releasedSide] = nil

	if len(s.lightQueue[roadIdx][newRedSide]) > 0 {
		newState = yellowFor(releasedSide)
		s.lightState[roadIdx] = newState
	}
	s.Log.Printf[logx.LevelTrace](logx.Yellow("[LIGHT] road %d -> %s\n"), roadIdx, s.lightState[roadIdx])
	s.Routing.LightEvent(roadIdx, s.lightState[roadIdx])

	for _, tid := range released {
		s.enterRoad(tid, s.toShovel[tid])
	}
}

func (s *Simulator) onApproachingShovel(tid int) {
	sh := s.shovel[tid]
	s.taskStartsNow(tid)
	s.shovelQueue[sh] = append(s.shovelQueue[sh], tid)
	if len(s.shovelQueue[sh]) == 1 {
		s.instant.add(Transition{Truck: tid, Time: s.Now, To: Filling, Priority: priority(Filling, tid)})
	} else {
		s.instant.add(Transition{Truck: tid, Time: s.Now, To: WaitingAtShovel, Priority: priority(WaitingAtShovel, tid)})
	}
}

func (s *Simulator) onApproachingCrusher(tid int) {
	c := s.crusher[tid]
	s.taskStartsNow(tid)
	s.crusherQueue[c] = append(s.crusherQueue[c], tid)
	if len(s.crusherQueue[c]) == 1 {
		s.instant.add(Transition{Truck: tid, Time: s.Now, To: Emptying, Priority: priority(Emptying, tid)})
	} else {
		s.instant.add(Transition{Truck: tid, Time: s.Now, To: WaitingAtCrusher, Priority: priority(WaitingAtCrusher, tid)})
	}
}

func (s *Simulator) onFilling(tid int) {
	sh := s.shovel[tid]
	shv := s.Net.Shovels[sh]
	dur := s.Dist.NextTime(shv.FillMean, shv.FillSD)
	s.taskStart[tid] = s.Now
	s.taskEnd[tid] = s.Now + dur
	s.events.add(Transition{Truck: tid, Time: s.Now + dur, From: Filling, To: LeavingShovel, Priority: priority(LeavingShovel, tid)})
}

func (s *Simulator) onEmptying(tid int) {
	c := s.crusher[tid]
	cr := s.Net.Crushers[c]
	dur := s.Dist.NextTime(cr.EmptyMean, cr.EmptySD)
	s.taskStart[tid] = s.Now
	s.taskEnd[tid] = s.Now + dur
	s.events.add(Transition{Truck: tid, Time: s.Now + dur, From: Emptying, To: Waiting, Priority: priority(Waiting, tid)})
}
