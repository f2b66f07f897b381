package gacycle

import (
	"fmt"
	"math"

	"github.com/nidoro/minehaul/network"
	"github.com/nidoro/minehaul/simkernel"
	"github.com/nidoro/minehaul/timedist"
)

// idealStringLen is the string length above which AllCycleFitnessFunction
// starts discounting a chromosome's score, mirroring the source's
// IDEALSCLEN constant; a schedule with more genes per location than this
// is exploring pointlessly long round-robins, not richer scheduling.
const idealStringLen = 4

// multiCycleRouter is the simkernel.Routing capability a MultiGenome
// drives: every truck reaching WAITING at crusher c is handed the next
// route in c's crusher-string, round-robin; every truck reaching
// LEAVING_SHOVEL at shovel s is handed the next route in s's
// shovel-string, round-robin. This is the direct generalization of
// AllCycleFitnessFunction's nextRoute, which does the same per-string
// lookup but converts the string's local gene value to a global route
// index via routesFromCrusher[]/routesFromShovel[] the way
// network.Network's RoutesFromCrusher/RoutesToShovel already do here.
type multiCycleRouter struct {
	net            *network.Network
	crusherStrings [][]int
	shovelStrings  [][]int
	crusherPos     []int
	shovelPos      []int

	crusher []int
	shovel  []int
}

func newMultiCycleRouter(net *network.Network, crusherStrings, shovelStrings [][]int) *multiCycleRouter {
	return &multiCycleRouter{
		net:            net,
		crusherStrings: crusherStrings,
		shovelStrings:  shovelStrings,
		crusherPos:     make([]int, len(crusherStrings)),
		shovelPos:      make([]int, len(shovelStrings)),
		crusher:        make([]int, net.NumTrucks),
		shovel:         make([]int, net.NumTrucks),
	}
}

func (r *multiCycleRouter) outbound(tid int) int {
	cr := r.crusher[tid]
	s := r.crusherStrings[cr]
	if len(s) == 0 {
		panic(fmt.Sprintf("gacycle: crusher %d's string is empty", cr))
	}
	local := s[r.crusherPos[cr]] % len(r.net.RoutesFromCrusher[cr])
	r.crusherPos[cr] = (r.crusherPos[cr] + 1) % len(s)
	return r.net.RoutesFromCrusher[cr][local]
}

func (r *multiCycleRouter) inbound(tid int) int {
	sh := r.shovel[tid]
	s := r.shovelStrings[sh]
	if len(s) == 0 {
		panic(fmt.Sprintf("gacycle: shovel %d's string is empty", sh))
	}
	local := s[r.shovelPos[sh]] % len(r.net.RoutesToShovel[sh])
	r.shovelPos[sh] = (r.shovelPos[sh] + 1) % len(s)
	return r.net.RoutesToShovel[sh][local]
}

func (r *multiCycleRouter) Event(sc simkernel.StateChange) {
	r.crusher[sc.Truck] = sc.Crusher
	r.shovel[sc.Truck] = sc.Shovel
}

func (r *multiCycleRouter) LightEvent(int, simkernel.TLState) {}

func (r *multiCycleRouter) Reset() {
	for i := range r.crusherPos {
		r.crusherPos[i] = 0
	}
	for i := range r.shovelPos {
		r.shovelPos[i] = 0
	}
}

// MultiController wraps a multiCycleRouter as a simkernel.Routing
// capability, resolving NextRoute's outbound/inbound branch from the
// truck's own location the same way gacycle.Controller does for the
// single-string case.
type MultiController struct {
	*multiCycleRouter
	loc []simkernel.TruckLocation
}

// NewMultiController wraps a MultiGenome's strings (typically the best
// genome found by MultiRollingGA.Run) as a deployable simkernel.Routing
// capability.
func NewMultiController(net *network.Network, crusherStrings, shovelStrings [][]int) *MultiController {
	return &MultiController{
		multiCycleRouter: newMultiCycleRouter(net, crusherStrings, shovelStrings),
		loc:              make([]simkernel.TruckLocation, net.NumTrucks),
	}
}

func (r *MultiController) NextRoute(tid int) simkernel.RouteChoice {
	if r.loc[tid] == simkernel.LeavingShovel {
		return simkernel.Route(r.inbound(tid))
	}
	return simkernel.Route(r.outbound(tid))
}

func (r *MultiController) Event(sc simkernel.StateChange) {
	r.loc[sc.Truck] = sc.To
	r.multiCycleRouter.Event(sc)
}

// InitialCrushers spreads trucks round-robin across every crusher, giving
// the multi-crusher fitness evaluation and the deployed controller the
// same starting distribution AllCycleFitnessFunction uses before its first
// WAITING dispatch resolves an actual routing decision.
func (r *MultiController) InitialCrushers(numTrucks int) []int {
	out := make([]int, numTrucks)
	for i := range out {
		out[i] = i % len(r.net.Crushers)
	}
	return out
}

// MultiConfig bundles an AllCycleFitness evaluator's parameters, the
// multi-crusher counterpart of Config.
type MultiConfig struct {
	Net        *network.Network
	Dist       timedist.TimeDistribution
	NumSamples int
	Runtime    float64
}

// AllCycleFitness is the direct Go port of AllCycleFitnessFunction: it
// evaluates a MultiGenome by running NumSamples full-shift simulations of
// its per-crusher/per-shovel round-robin schedule, averaging the number of
// empties. AllCycleFitnessFunction.java:134-159 applies two independent
// length penalties, not one: a crusher string longer than NumTrucks is
// discounted at crusherDiscountFactor = pow(0.995, 1/NumTrucks), the same
// base CycleFitness uses for its single cycle, while a shovel string
// longer than idealStringLen is discounted at the fixed shovelDiscount =
// 0.995 — the two penalty terms have different bases and different
// thresholds and are multiplied into the final penalty independently, so
// they are tracked and applied separately here rather than folded into
// one combined exponent. Unlike CycleFitness, this evaluator has no
// single-crusher restriction, since it is exactly the shape the complex
// network case needs (spec §6: "complex net has the same indexing" for
// the GA-cycle solution).
type AllCycleFitness struct {
	net                   *network.Network
	dist                  timedist.TimeDistribution
	numSamples            int
	runtime               float64
	crusherDiscountFactor float64
	shovelDiscountFactor  float64
}

func NewAllCycleFitness(cfg MultiConfig) (*AllCycleFitness, error) {
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
	if len(cfg.Net.Crushers) == 0 || len(cfg.Net.Shovels) == 0 {
		return nil, &ConfigError{Msg: "Net must have at least one crusher and one shovel"}
	}
	return &AllCycleFitness{
		net:                   cfg.Net,
		dist:                  cfg.Dist,
		numSamples:            cfg.NumSamples,
		runtime:               cfg.Runtime,
		crusherDiscountFactor: math.Pow(0.995, 1.0/float64(cfg.Net.NumTrucks)),
		shovelDiscountFactor:  0.995,
	}, nil
}

func (f *AllCycleFitness) Maximising() bool { return true }

// Evaluate runs NumSamples full-shift simulations of the genome's
// per-location schedules and returns the length-penalized average number
// of empties. Crusher strings are measured against NumTrucks and shovel
// strings against idealStringLen, each with its own discount base, per
// AllCycleFitnessFunction.java's separate crusherDiscountFactor/
// shovelDiscountFactor penalty terms.
func (f *AllCycleFitness) Evaluate(g *MultiGenome) float64 {
	crusherOverLength := 0
	for _, s := range g.CrusherStrings {
		if len(s) == 0 {
			return 0
		}
		if len(s) > f.net.NumTrucks {
			crusherOverLength += len(s) - f.net.NumTrucks
		}
	}
	shovelOverLength := 0
	for _, s := range g.ShovelStrings {
		if len(s) == 0 {
			return 0
		}
		if len(s) > idealStringLen {
			shovelOverLength += len(s) - idealStringLen
		}
	}
	penalty := 1.0
	if crusherOverLength > 0 {
		penalty *= math.Pow(f.crusherDiscountFactor, float64(crusherOverLength))
	}
	if shovelOverLength > 0 {
		penalty *= math.Pow(f.shovelDiscountFactor, float64(shovelOverLength))
	}

	router := NewMultiController(f.net, g.CrusherStrings, g.ShovelStrings)
	sim := simkernel.New(f.net, f.dist, router, nil)
	initial := router.InitialCrushers(f.net.NumTrucks)

	total := 0.0
	for i := 0; i < f.numSamples; i++ {
		sim.Reset(initial)
		sim.Simulate(f.runtime)
		total += float64(sim.Empties)
	}
	return total * penalty / float64(f.numSamples)
}

func (f *AllCycleFitness) String() string {
	return fmt.Sprintf("gacycle.AllCycleFitness{numSamples=%d, runtime=%g}", f.numSamples, f.runtime)
}
