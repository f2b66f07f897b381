// Package simkernel is the discrete-event simulation kernel: the truck
// state machine, road anti-overtaking discipline, traffic-light
// arbitration, and the state-restartable variant the heuristics fork for
// their complex-network lookahead.
//
// A single Simulator type serves both the "simple" and "complex"
// network shapes described by the input file formats: a simple network
// is simply a complex network whose routes all have length one and
// whose roads are all two-lane, so it needs no separate state machine.
package simkernel

import "fmt"

// TruckLocation enumerates every state a truck can occupy. The priority
// bands are assigned per location in priority.go, not derived from this
// order.
type TruckLocation int

const (
	Waiting TruckLocation = iota
	TravelToShovel
	ApproachingTLCS
	StoppedAtTLCS
	ApproachingShovel
	WaitingAtShovel
	Filling
	LeavingShovel
	TravelToCrusher
	ApproachingTLSS
	StoppedAtTLSS
	ApproachingCrusher
	WaitingAtCrusher
	Emptying
	Unused
)

func (l TruckLocation) String() string {
	switch l {
	case Waiting:
		return "WAITING"
	case TravelToShovel:
		return "TRAVEL_TO_SHOVEL"
	case ApproachingTLCS:
		return "APPROACHING_TL_CS"
	case StoppedAtTLCS:
		return "STOPPED_AT_TL_CS"
	case ApproachingShovel:
		return "APPROACHING_SHOVEL"
	case WaitingAtShovel:
		return "WAITING_AT_SHOVEL"
	case Filling:
		return "FILLING"
	case LeavingShovel:
		return "LEAVING_SHOVEL"
	case TravelToCrusher:
		return "TRAVEL_TO_CRUSHER"
	case ApproachingTLSS:
		return "APPROACHING_TL_SS"
	case StoppedAtTLSS:
		return "STOPPED_AT_TL_SS"
	case ApproachingCrusher:
		return "APPROACHING_CRUSHER"
	case WaitingAtCrusher:
		return "WAITING_AT_CRUSHER"
	case Emptying:
		return "EMPTYING"
	case Unused:
		return "UNUSED"
	default:
		return fmt.Sprintf("TruckLocation(%d)", int(l))
	}
}

// TLState is the phase of a one-lane road's traffic light. Side 0 refers
// to the road's direction-0 approach, side 1 to direction 1. Every light
// starts GR; the kernel never produces RR (both red).
type TLState int

const (
	TLGreenRed TLState = iota // side 0 green, side 1 red
	TLRedGreen                // side 0 red, side 1 green
	TLYellowRed               // side 0 yellow (draining), side 1 red
	TLRedYellow               // side 0 red, side 1 yellow (draining)
	TLRedRed
)

func (s TLState) String() string {
	switch s {
	case TLGreenRed:
		return "GR"
	case TLRedGreen:
		return "RG"
	case TLYellowRed:
		return "YR"
	case TLRedYellow:
		return "RY"
	default:
		return "RR"
	}
}

// sideState reports whether `side` currently reads green, yellow or red.
func (s TLState) sideState(side int) rune {
	switch s {
	case TLGreenRed:
		if side == 0 {
			return 'G'
		}
		return 'R'
	case TLRedGreen:
		if side == 0 {
			return 'R'
		}
		return 'G'
	case TLYellowRed:
		if side == 0 {
			return 'Y'
		}
		return 'R'
	case TLRedYellow:
		if side == 0 {
			return 'R'
		}
		return 'Y'
	default:
		return 'R'
	}
}

// Transition is a single scheduled truck event.
type Transition struct {
	Truck    int
	Time     float64
	From, To TruckLocation
	Priority int
}

// Less orders transitions by (time, priority), the sole ordering rule
// both the instant and timed event queues use.
func (t Transition) Less(o Transition) bool {
	if t.Time != o.Time {
		return t.Time < o.Time
	}
	return t.Priority < o.Priority
}

// StateChange is emitted to the routing capability and to any observer
// after every processed transition.
type StateChange struct {
	Time       float64
	Truck      int
	From, To   TruckLocation
	Route      int // assigned route index, or -1
	RoutePoint int
	Crusher    int
	Shovel     int
	Progress   []float64 // one entry per truck, in [0,1]
}

func (sc StateChange) GetProgress(tid int) float64 { return sc.Progress[tid] }

// RouteChoiceKind is the tag of the RouteChoice sum type. It replaces
// the source's "negative index means terminate" sentinel convention.
type RouteChoiceKind int

const (
	ChooseRoute RouteChoiceKind = iota
	ChoosePark
	ChooseStopSimulation
)

// RouteChoice is what a Routing capability returns when asked to route a
// truck: either a concrete route index, a request to park the truck
// (complex networks only, e.g. this crusher/shovel is not currently in
// use), or a request to end the simulation early.
type RouteChoice struct {
	Kind  RouteChoiceKind
	Route int
}

func Route(idx int) RouteChoice   { return RouteChoice{Kind: ChooseRoute, Route: idx} }
func Park() RouteChoice           { return RouteChoice{Kind: ChoosePark} }
func StopSimulation() RouteChoice { return RouteChoice{Kind: ChooseStopSimulation} }

// Routing is the capability a dispatch policy implements to plug into
// the kernel. NextRoute is called whenever a truck becomes WAITING
// (choose an outbound crusher->shovel route) or LEAVING_SHOVEL (choose
// an inbound route to reverse). Event and LightEvent are the
// state-restartable simulator's checkpoint hooks (see restart.go); a
// controller that only drives one simulator of its own can ignore them.
type Routing interface {
	NextRoute(tid int) RouteChoice
	Event(sc StateChange)
	LightEvent(road int, state TLState)
	Reset()
}
