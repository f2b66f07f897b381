package gacycle

import (
	"fmt"
	"math"

	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/simkernel"
	"github.com/nidoro/minehaul/timedist"
)

// ConfigError reports a fitness-function misconfiguration caught at
// construction.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "gacycle: " + e.Msg }

// cycleRouter is the simkernel.Routing capability a chromosome's cyclic
// schedule drives: every truck reaching WAITING is handed the next shovel
// route in the shared cycle, round-robin, exactly like
// CycleFitnessFunction.nextShovel; the return leg carries no scheduling
// decision, since a simple network's routes each already encode the full
// round trip, so LEAVING_SHOVEL simply reverses the truck's own route.
type cycleRouter struct {
	cycle []int
	pos   int

	route []int
}

func newCycleRouter(net *network.Network, cycle []int) *cycleRouter {
	return &cycleRouter{cycle: cycle, route: make([]int, net.NumTrucks)}
}

func (r *cycleRouter) NextRoute(tid int) simkernel.RouteChoice {
	switch len(r.cycle) {
	case 0:
		return simkernel.StopSimulation()
	default:
	}
	route := r.cycle[r.pos]
	r.pos = (r.pos + 1) % len(r.cycle)
	return simkernel.Route(route)
}

func (r *cycleRouter) Event(sc simkernel.StateChange) {
	r.route[sc.Truck] = sc.Route
}

func (r *cycleRouter) LightEvent(int, simkernel.TLState) {}

func (r *cycleRouter) Reset() { r.pos = 0 }

// Controller is the direct Go port of StringController: it wraps a
// cycleRouter so LEAVING_SHOVEL reverses the truck's current route instead
// of consulting the shared cycle position — the kernel calls NextRoute
// uniformly at both decision points, but the source's StringController/
// CycleFitnessFunction only ever answers the outbound one, since a simple
// network's single-hop routes leave no inbound choice to make. A trained
// cyclic schedule is deployed exactly the same way it was evaluated during
// the GA, by wrapping it in a Controller.
type Controller struct {
	*cycleRouter
	loc []simkernel.TruckLocation
}

// NewController wraps a cyclic schedule (e.g. a Genome's Cycle after
// RollingGA.Run) as a simkernel.Routing capability.
func NewController(net *network.Network, cycle []int) *Controller {
	return &Controller{
		cycleRouter: newCycleRouter(net, cycle),
		loc:         make([]simkernel.TruckLocation, net.NumTrucks),
	}
}

func (r *Controller) NextRoute(tid int) simkernel.RouteChoice {
	if r.loc[tid] == simkernel.LeavingShovel {
		return simkernel.Route(r.route[tid])
	}
	return r.cycleRouter.NextRoute(tid)
}

func (r *Controller) Event(sc simkernel.StateChange) {
	r.loc[sc.Truck] = sc.To
	r.cycleRouter.Event(sc)
}

// Config bundles a CycleFitness evaluator's parameters, per spec §9's
// single-Config-value builder redesign; CycleFitnessFunction's constructor
// plus setNumSamples chain collapses into one struct here.
type Config struct {
	Net        *network.Network
	Dist       timedist.TimeDistribution
	NumSamples int
	Runtime    float64
}

// CycleFitness evaluates a cyclic schedule genome by running NumSamples
// full-shift simulations of it and averaging the number of empties,
// length-penalized against the truck count so that pointlessly long
// cycles are not free to explore, mirroring CycleFitnessFunction.getFitness.
type CycleFitness struct {
	net            *network.Network
	dist           timedist.TimeDistribution
	numSamples     int
	runtime        float64
	discountFactor float64
}

func New(cfg Config) (*CycleFitness, error) {
	if cfg.Net == nil {
		return nil, &ConfigError{Msg: "Net must not be nil"}
	}
	if cfg.Dist == nil {
		return nil, &ConfigError{Msg: "Dist must not be nil"}
	}
	if cfg.NumSamples <= 0 {
		return nil, &ConfigError{Msg: "NumSamples must be positive"}
	}
	if cfg.Runtime <= 0 {
		return nil, &ConfigError{Msg: "Runtime must be positive"}
	}
	if cfg.Net.NumTrucks <= 0 {
		return nil, &ConfigError{Msg: "Net must have at least one truck"}
	}
	if len(cfg.Net.Crushers) != 1 {
		return nil, &ConfigError{Msg: "the single-string cyclic-schedule genome only supports a single-crusher network; use NewAllCycleFitness for a complex network"}
	}
	return &CycleFitness{
		net:            cfg.Net,
		dist:           cfg.Dist,
		numSamples:     cfg.NumSamples,
		runtime:        cfg.Runtime,
		discountFactor: math.Pow(0.995, 1.0/float64(cfg.Net.NumTrucks)),
	}, nil
}

// Maximising reports that a higher average-empties score is better, per
// CycleFitnessFunction.isMaximising.
func (f *CycleFitness) Maximising() bool { return true }

// Evaluate runs NumSamples full-shift simulations of the genome's cycle
// and returns the length-penalized average number of empties.
func (f *CycleFitness) Evaluate(g *Genome) float64 {
	if len(g.Cycle) == 0 {
		return 0
	}
	penalty := 1.0
	if len(g.Cycle) > f.net.NumTrucks {
		penalty = math.Pow(f.discountFactor, float64(len(g.Cycle)-f.net.NumTrucks))
	}

	router := NewController(f.net, g.Cycle)
	sim := simkernel.New(f.net, f.dist, router, nil)
	initial := make([]int, f.net.NumTrucks) // simple networks have exactly one crusher

	total := 0.0
	for i := 0; i < f.numSamples; i++ {
		sim.Reset(initial)
		sim.Simulate(f.runtime)
		total += float64(sim.Empties)
	}
	return total * penalty / float64(f.numSamples)
}

func (f *CycleFitness) String() string {
	return fmt.Sprintf("gacycle.CycleFitness{numSamples=%d, runtime=%g}", f.numSamples, f.runtime)
}
