// Package lpflow builds and solves the maximum-throughput linear program
// that determines the target truck flow along every route, in both
// directions, given fixed shovel/crusher service rates: DISPATCH consumes
// this flow as its reference "optimal" traffic pattern (spec §4.6, White, Arnold & Clevenger 1982 / Li 1990).
package lpflow

import (
	"fmt"
	"io"
	"os"

	"github.com/draffensperger/golp"
	"github.com/kr/pretty"

	"github.com/nidoro/minehaul/logx"
	"github.com/nidoro/minehaul/network"
)

// bigM is the Big-M constant used both to reward crusher utilization in
// the objective and to enforce the restrict variant's one-way binary
// constraints.
const bigM = 1000

// ConfigError reports a builder misconfiguration caught before any LP
// columns are allocated.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "lpflow: " + e.Msg }

// SolveError wraps a non-optimal LP result together with the model's own
// textual dump, mirroring the source's "always leave the .lp file behind
// on failure" behavior.
type SolveError struct {
	Status int
	Model  []byte
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("lpflow: model did not solve to optimality (status %d)", e.Status)
}

// Config selects which of the two LP variants spec §4.6 describes to
// build: the one-way restriction variant forces a single direction on
// each one-lane road (a binary decision per road), while the congestion
// scale variant instead approximates one-lane contention by inflating a
// route's effective travel time as a function of its expected traffic.
type Config struct {
	Net               *network.Network
	OneWayRestriction bool

	// Log, if set, receives a kr/pretty dump of the per-route flow at
	// LevelTrace once Solve succeeds.
	Log *logx.Logger
}

// Model owns the column layout of a built LP alongside the solve handle,
// so a caller can read back per-route flow after Solve and, independent
// of success or failure, dump the model to disk via WriteTo.
type Model struct {
	net    *network.Network
	oneWay bool
	lp     *golp.LP
	log    *logx.Logger

	numVars    int
	routeVar   [][2]int // [route][dir] -> 0-based column index
	solved     bool
	lastResult int
}

// New constructs (but does not yet solve) the LP for the given network.
func New(cfg Config) (*Model, error) {
	if cfg.Net == nil {
		return nil, &ConfigError{Msg: "Net must not be nil"}
	}
	if len(cfg.Net.Routes) == 0 {
		return nil, &ConfigError{Msg: "network has no routes"}
	}
	log := cfg.Log
	if log == nil {
		log = logx.New(logx.LevelSilent)
	}
	m := &Model{net: cfg.Net, oneWay: cfg.OneWayRestriction, log: log}
	if m.oneWay {
		m.buildRestrict()
	} else {
		m.buildScale()
	}
	return m, nil
}

// routeUse records, per road, every route that travels it and in which
// direction -- the Go equivalent of the source's routesOnRoad IntList,
// which packs (route, direction) into a single signed int.
type routeUse struct {
	route int
	dir   int
}

func (h *layoutHelper) roadUsers() [][]routeUse {
	uses := make([][]routeUse, len(h.net.Roads))
	for r, rt := range h.net.Routes {
		for j, road := range rt.Roads {
			uses[road] = append(uses[road], routeUse{route: r, dir: rt.Directions[j]})
		}
	}
	return uses
}

// layoutHelper centralizes the column-index arithmetic shared by both LP
// variants, since the two only differ in the time-budget row and whether
// a road carries a binary one-way indicator.
type layoutHelper struct {
	net              *network.Network
	numCrushers      int
	numShovels       int
	numRoads         int
	numRoutes        int
	oneWay           bool
	crusherCol       func(i int) int
	shovelCol        func(i int) int
	roadCol          func(i, dir int) int
	routeCol         func(i, dir int) int
	timeCol          int
	roadBinaryCol    func(i int) int // restrict variant only
	maxExpRoadFlow   []float64       // scale variant only
}

func newLayout(net *network.Network, oneWay bool) *layoutHelper {
	nc, ns, nr, nrt := len(net.Crushers), len(net.Shovels), len(net.Roads), len(net.Routes)
	h := &layoutHelper{net: net, numCrushers: nc, numShovels: ns, numRoads: nr, numRoutes: nrt, oneWay: oneWay}
	h.crusherCol = func(i int) int { return i }
	h.shovelCol = func(i int) int { return nc + i }
	h.roadCol = func(i, dir int) int { return nc + ns + 2*i + dir }
	h.routeCol = func(i, dir int) int { return nc + ns + 2*nr + 2*i + dir }
	h.timeCol = nc + ns + 2*nr + 2*nrt
	if oneWay {
		h.roadBinaryCol = func(i int) int { return nc + ns + 2*nr + 2*nrt + 1 + i }
	} else {
		h.maxExpRoadFlow = make([]float64, nr)
		roadSuppliesShovel := make([][]bool, nr)
		for i := range roadSuppliesShovel {
			roadSuppliesShovel[i] = make([]bool, ns)
		}
		for _, rt := range net.Routes {
			for _, road := range rt.Roads {
				roadSuppliesShovel[road][rt.Shovel] = true
			}
		}
		for i := 0; i < nr; i++ {
			for j := 0; j < ns; j++ {
				if roadSuppliesShovel[i][j] && net.Shovels[j].FillMean > 0 {
					h.maxExpRoadFlow[i] += 1 / net.Shovels[j].FillMean
				}
			}
		}
	}
	return h
}

func (n *layoutHelper) numVarsScale() int  { return n.numCrushers + n.numShovels + 2*n.numRoads + 2*n.numRoutes + 1 }
func (n *layoutHelper) numVarsRestrict() int {
	return n.numCrushers + n.numShovels + 3*n.numRoads + 2*n.numRoutes + 1
}

func newRow(n int) []float64 { return make([]float64, n) }

// commonColumnsAndCapacity names every column and adds the two capacity
// families (crusher <= 1/emptyMean, shovel <= 1/fillMean) plus the
// crusher/shovel outflow-conservation rows shared by both LP variants.
func (h *layoutHelper) commonColumnsAndCapacity(lp *golp.LP, routeVar [][2]int) {
	net := h.net
	for i := range net.Crushers {
		lp.SetColName(h.crusherCol(i), fmt.Sprintf("C_%d", i))
	}
	for i := range net.Shovels {
		lp.SetColName(h.shovelCol(i), fmt.Sprintf("S_%d", i))
	}
	for i := range net.Roads {
		lp.SetColName(h.roadCol(i, 0), fmt.Sprintf("Rd_%d_0", i))
		lp.SetColName(h.roadCol(i, 1), fmt.Sprintf("Rd_%d_1", i))
	}
	for i := range net.Routes {
		lp.SetColName(h.routeCol(i, 0), fmt.Sprintf("Rt_%d_0", i))
		lp.SetColName(h.routeCol(i, 1), fmt.Sprintf("Rt_%d_1", i))
		routeVar[i][0], routeVar[i][1] = h.routeCol(i, 0), h.routeCol(i, 1)
	}
	lp.SetColName(h.timeCol, "T")

	for i, c := range net.Crushers {
		row := newRow(h.numVars())
		row[h.crusherCol(i)] = 1
		if c.EmptyMean > 0 {
			lp.AddConstraint(row, golp.LE, 1/c.EmptyMean)
		} else {
			lp.AddConstraint(row, golp.LE, 0)
		}

		roadsOut := map[[2]int]bool{}
		for _, r := range net.RoutesFromCrusher[i] {
			rt := net.Routes[r]
			roadsOut[[2]int{rt.Roads[0], rt.Directions[0]}] = true
		}
		for j := 0; j < 2; j++ {
			row := newRow(h.numVars())
			row[h.crusherCol(i)] = 1
			for rd := range roadsOut {
				dir := rd[1]
				if j == 1 {
					dir = 1 - dir
				}
				row[h.roadCol(rd[0], dir)] = -1
			}
			lp.AddConstraint(row, golp.EQ, 0)
		}
	}

	for i, s := range net.Shovels {
		row := newRow(h.numVars())
		row[h.shovelCol(i)] = 1
		if s.FillMean > 0 {
			lp.AddConstraint(row, golp.LE, 1/s.FillMean)
		} else {
			lp.AddConstraint(row, golp.LE, 0)
		}

		roadsOut := map[[2]int]bool{}
		for _, r := range net.RoutesToShovel[i] {
			rt := net.Routes[r]
			last := len(rt.Roads) - 1
			roadsOut[[2]int{rt.Roads[last], rt.Directions[last]}] = true
		}
		for j := 0; j < 2; j++ {
			row := newRow(h.numVars())
			row[h.shovelCol(i)] = 1
			for rd := range roadsOut {
				dir := rd[1]
				if j == 1 {
					dir = 1 - dir
				}
				row[h.roadCol(rd[0], dir)] = -1
			}
			lp.AddConstraint(row, golp.EQ, 0)
		}
	}

	roadUsers := h.roadUsers()
	for i := range net.Roads {
		for j := 0; j < 2; j++ {
			row := newRow(h.numVars())
			row[h.roadCol(i, j)] = 1
			for _, u := range roadUsers[i] {
				dir := u.dir
				if j == 1 {
					dir = 1 - dir
				}
				row[h.routeCol(u.route, dir)] = -1
			}
			lp.AddConstraint(row, golp.EQ, 0)
		}
	}
}

func (h *layoutHelper) numVars() int {
	if h.oneWay {
		return h.numVarsRestrict()
	}
	return h.numVarsScale()
}

func setObjective(lp *golp.LP, h *layoutHelper) {
	obj := newRow(h.numVars())
	for i := range h.net.Crushers {
		obj[h.crusherCol(i)] = bigM
	}
	obj[h.timeCol] = -1
	lp.SetObjFn(obj)
	lp.SetMaximize()
}

// buildScale constructs the congestion-scale variant (spec §4.6, no
// one-way restriction): one-lane roads inflate a route's effective travel
// time in proportion to their expected traffic instead of forcing a fixed
// direction.
func (m *Model) buildScale() {
	h := newLayout(m.net, false)
	m.numVars = h.numVarsScale()
	lp := golp.NewLP(0, m.numVars)
	routeVar := make([][2]int, len(m.net.Routes))
	h.commonColumnsAndCapacity(lp, routeVar)
	setObjective(lp, h)

	row := newRow(m.numVars)
	for i, c := range m.net.Crushers {
		row[h.crusherCol(i)] = c.EmptyMean
	}
	for i, s := range m.net.Shovels {
		row[h.shovelCol(i)] = s.FillMean
	}
	row[h.timeCol] = -1
	for i, rt := range m.net.Routes {
		routeTime := 0.0
		for _, road := range rt.Roads {
			scale := 1.0
			r := m.net.Roads[road]
			if r.Kind == network.OneLane && r.TravelMean > 0 {
				half := 0.5 / r.TravelMean
				if h.maxExpRoadFlow[road] > half {
					scale = 2
				} else {
					scale = 1 + 0.25*h.maxExpRoadFlow[road]/half
				}
			}
			routeTime += r.TravelMean * scale
		}
		row[h.routeCol(i, 0)] = routeTime
		row[h.routeCol(i, 1)] = routeTime * m.net.FullSlowdown
	}
	lp.AddConstraint(row, golp.EQ, 0)

	cap := newRow(m.numVars)
	cap[h.timeCol] = 1
	lp.AddConstraint(cap, golp.LE, float64(m.net.NumTrucks))

	m.lp = lp
	m.routeVar = routeVar
}

// buildRestrict constructs the one-way restriction variant (spec §4.6
// default): every one-lane road gets a binary direction indicator, and a
// Big-M pair of constraints zeroes out the disallowed direction's flow.
func (m *Model) buildRestrict() {
	h := newLayout(m.net, true)
	m.numVars = h.numVarsRestrict()
	lp := golp.NewLP(0, m.numVars)
	routeVar := make([][2]int, len(m.net.Routes))
	h.commonColumnsAndCapacity(lp, routeVar)
	for i, r := range m.net.Roads {
		if r.Kind == network.OneLane {
			lp.SetColName(h.roadBinaryCol(i), fmt.Sprintf("d_%d", i))
		}
	}
	setObjective(lp, h)

	row := newRow(m.numVars)
	for i, c := range m.net.Crushers {
		row[h.crusherCol(i)] = c.EmptyMean
	}
	for i, s := range m.net.Shovels {
		row[h.shovelCol(i)] = s.FillMean
	}
	for i, rt := range m.net.Routes {
		routeTime := 0.0
		for _, road := range rt.Roads {
			routeTime += m.net.Roads[road].TravelMean
		}
		row[h.routeCol(i, 0)] = routeTime
		row[h.routeCol(i, 1)] = routeTime * m.net.FullSlowdown
	}
	row[h.timeCol] = -1
	lp.AddConstraint(row, golp.EQ, 0)

	for i, r := range m.net.Roads {
		if r.Kind != network.OneLane {
			continue
		}
		row0 := newRow(m.numVars)
		row0[h.roadCol(i, 0)] = 1
		row0[h.roadBinaryCol(i)] = bigM
		lp.AddConstraint(row0, golp.LE, bigM)

		row1 := newRow(m.numVars)
		row1[h.roadCol(i, 1)] = 1
		row1[h.roadBinaryCol(i)] = -bigM
		lp.AddConstraint(row1, golp.LE, 0)
	}

	cap := newRow(m.numVars)
	cap[h.timeCol] = 1
	lp.AddConstraint(cap, golp.LE, float64(m.net.NumTrucks))

	for i, r := range m.net.Roads {
		if r.Kind == network.OneLane {
			lp.SetBinary(h.roadBinaryCol(i), true)
		}
	}

	m.lp = lp
	m.routeVar = routeVar
}

// Solve runs the LP, retrying a bounded number of times per the source's
// own "some lp_solve outcomes are transient" workaround, and returns the
// per-route [out, in] flow rate on success.
func (m *Model) Solve() ([][2]float64, error) {
	result := -1
	for i := 0; i < 1000; i++ {
		result = m.lp.Solve()
		if result == golp.OPTIMAL {
			break
		}
	}
	m.solved = result == golp.OPTIMAL
	m.lastResult = result
	if !m.solved {
		buf, _ := m.dump()
		return nil, &SolveError{Status: result, Model: buf}
	}
	vars := m.lp.Variables()
	flow := make([][2]float64, len(m.routeVar))
	for i, cols := range m.routeVar {
		flow[i][0] = vars[cols[0]]
		flow[i][1] = vars[cols[1]]
	}
	if m.log.Level >= logx.LevelTrace {
		m.log.Printf[logx.LevelTrace]("lpflow: solved flow: %# v\n", pretty.Formatter(flow))
	}
	return flow, nil
}

// WriteTo dumps the model in lp_solve's .lp text format, regardless of
// whether it has been solved -- callers use this both to archive a
// solved model and, on a SolveError, to inspect why the model was
// infeasible.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	buf, err := m.dump()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

func (m *Model) dump() ([]byte, error) {
	f, err := os.CreateTemp("", "lpflow-*.lp")
	if err != nil {
		return nil, fmt.Errorf("lpflow: creating dump file: %w", err)
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)
	if !m.lp.WriteToFile(name) {
		return nil, fmt.Errorf("lpflow: model refused to write to %s", name)
	}
	return os.ReadFile(name)
}
