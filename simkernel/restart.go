package simkernel

import (
	"sort"

	"github.com/nidoro/minehaul/logx"
	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/timedist"
)

// StoredState is the state-restartable simulator's memory: a snapshot of
// every truck's location, assignment and progress, plus every light's
// phase, kept up to date purely from the StateChange stream (via
// RecordEvent/RecordLight) with no access to a live Simulator's internals.
// The greedy heuristics' complex-network lookahead builds one of these from
// its own bookkeeping and forks a fresh Simulator from it whenever it
// needs a forward simulation.
type StoredState struct {
	Time     float64
	Loc      []TruckLocation
	Route    []int
	RoutePt  []int
	Crusher  []int
	Shovel   []int
	ToShovel []bool
	Progress []float64
	Lights   []TLState
}

// NewStoredState allocates a stored state for a network with the given
// truck count, with every truck WAITING, trucks spread round-robin across
// the crushers, and every light GR -- the same initial condition
// Simulator.Reset establishes by default.
func NewStoredState(net *network.Network, numTrucks int) *StoredState {
	st := &StoredState{
		Loc:      make([]TruckLocation, numTrucks),
		Route:    make([]int, numTrucks),
		RoutePt:  make([]int, numTrucks),
		Crusher:  make([]int, numTrucks),
		Shovel:   make([]int, numTrucks),
		ToShovel: make([]bool, numTrucks),
		Progress: make([]float64, numTrucks),
		Lights:   make([]TLState, len(net.Roads)),
	}
	for i := range st.Loc {
		st.Loc[i] = Waiting
		st.Route[i] = -1
		st.Crusher[i] = i % len(net.Crushers)
	}
	return st
}

// RecordEvent folds one emitted transition into the stored state. This is
// the only way a controller's copy of the world advances outside of its
// own forward-simulation forks.
func (st *StoredState) RecordEvent(sc StateChange) {
	st.Time = sc.Time
	tid := sc.Truck
	st.Loc[tid] = sc.To
	st.Route[tid] = sc.Route
	st.RoutePt[tid] = sc.RoutePoint
	st.Crusher[tid] = sc.Crusher
	st.Shovel[tid] = sc.Shovel
	st.ToShovel[tid] = sc.To == TravelToShovel || sc.To == ApproachingTLCS ||
		sc.To == StoppedAtTLCS || sc.To == ApproachingShovel ||
		sc.To == WaitingAtShovel || sc.To == Filling
	copy(st.Progress, sc.Progress)
}

// RecordLight folds one traffic-light phase change into the stored state.
func (st *StoredState) RecordLight(road int, state TLState) {
	st.Lights[road] = state
}

// Clone deep-copies the stored state so a controller may keep it while a
// fork mutates independently.
func (st *StoredState) Clone() *StoredState {
	c := &StoredState{Time: st.Time}
	c.Loc = append([]TruckLocation(nil), st.Loc...)
	c.Route = append([]int(nil), st.Route...)
	c.RoutePt = append([]int(nil), st.RoutePt...)
	c.Crusher = append([]int(nil), st.Crusher...)
	c.Shovel = append([]int(nil), st.Shovel...)
	c.ToShovel = append([]bool(nil), st.ToShovel...)
	c.Progress = append([]float64(nil), st.Progress...)
	c.Lights = append([]TLState(nil), st.Lights...)
	return c
}

// Ready reconstructs a fresh Simulator's queues from the stored state, in
// place of replaying history: service and road queues are rebuilt by
// sorting the trucks resident at each queue by descending progress (the
// truck closest to finishing its current task is nearest the head), and
// each truck resumes at an instant transition to its stored location so
// the ordinary transition handlers (onWaiting, onApproachingShovel, ...)
// rebuild derived bookkeeping exactly as they would have live.
//
// Ready also re-draws a fresh random duration for every truck's in-flight
// task (FILLING, EMPTYING, or travel), scaled by (1-progress), so that
// identical stored state and identical RNG draws reproduce identical
// traces.
func (st *StoredState) Ready(net *network.Network, dist timedist.TimeDistribution, routing Routing, log *logx.Logger) *Simulator {
	sim := New(net, dist, routing, log)
	sim.Now = st.Time
	sim.stopped = false
	copy(sim.lightState, st.Lights)

	order := make([]int, len(st.Loc))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return st.Progress[order[a]] > st.Progress[order[b]] })

	for _, tid := range order {
		sim.loc[tid] = st.Loc[tid]
		sim.route[tid] = st.Route[tid]
		sim.routePt[tid] = st.RoutePt[tid]
		sim.crusher[tid] = st.Crusher[tid]
		sim.shovel[tid] = st.Shovel[tid]
		sim.toShovel[tid] = st.ToShovel[tid]
		if st.Route[tid] >= 0 {
			rt := net.Routes[st.Route[tid]]
			pt := st.RoutePt[tid]
			if pt >= 0 && pt < len(rt.Roads) {
				sim.curRoad[tid], sim.curDir[tid] = roadAt(rt, pt, st.ToShovel[tid])
			}
		}
		sim.enqueueForReady(tid, st.Loc[tid])
	}

	for _, tid := range order {
		loc := st.Loc[tid]
		remaining := 1 - st.Progress[tid]
		if remaining < 0 {
			remaining = 0
		}
		switch loc {
		case Filling:
			shv := net.Shovels[sim.shovel[tid]]
			dur := dist.NextTime(shv.FillMean, shv.FillSD) * remaining
			sim.taskStart[tid], sim.taskEnd[tid] = sim.Now, sim.Now+dur
			sim.events.add(Transition{Truck: tid, Time: sim.Now + dur, From: Filling, To: LeavingShovel, Priority: priority(LeavingShovel, tid)})
		case Emptying:
			cr := net.Crushers[sim.crusher[tid]]
			dur := dist.NextTime(cr.EmptyMean, cr.EmptySD) * remaining
			sim.taskStart[tid], sim.taskEnd[tid] = sim.Now, sim.Now+dur
			sim.events.add(Transition{Truck: tid, Time: sim.Now + dur, From: Emptying, To: Waiting, Priority: priority(Waiting, tid)})
		case TravelToShovel, TravelToCrusher:
			roadIdx, dir := sim.curRoad[tid], sim.curDir[tid]
			road := net.Roads[roadIdx]
			tau := dist.NextTime(road.TravelMean, road.TravelSD) * remaining
			if loc == TravelToCrusher {
				tau *= net.FullSlowdown
			}
			arrival := sim.Now + tau
			if sim.roadAvailable[roadIdx][dir] > arrival {
				arrival = sim.roadAvailable[roadIdx][dir]
			}
			sim.roadAvailable[roadIdx][dir] = arrival
			counter := sim.roadCounter[roadIdx][dir]
			sim.roadCounter[roadIdx][dir]++
			sim.taskStart[tid], sim.taskEnd[tid] = sim.Now, arrival
			sim.events.add(Transition{Truck: tid, Time: arrival, To: loc, Priority: priority(loc, counter)})
		default:
			sim.instant.add(Transition{Truck: tid, Time: sim.Now, To: loc, Priority: priority(loc, tid)})
		}
	}
	return sim
}

// enqueueForReady rebuilds the auxiliary FIFO membership (service queues
// and road queues) for one truck resuming at `loc`, without scheduling
// anything -- the timed/instant event for resuming is added by the caller
// once every truck's queue position is settled. Light queues are rebuilt
// by onStoppedAtTL when a stopped truck's instant transition is replayed.
func (s *Simulator) enqueueForReady(tid int, loc TruckLocation) {
	switch loc {
	case WaitingAtShovel, Filling:
		s.shovelQueue[s.shovel[tid]] = append(s.shovelQueue[s.shovel[tid]], tid)
	case WaitingAtCrusher, Emptying:
		s.crusherQueue[s.crusher[tid]] = append(s.crusherQueue[s.crusher[tid]], tid)
	case TravelToShovel, TravelToCrusher:
		roadIdx, dir := s.curRoad[tid], s.curDir[tid]
		s.roadQueue[roadIdx][dir] = append(s.roadQueue[roadIdx][dir], tid)
	}
}
