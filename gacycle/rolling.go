package gacycle

import (
	"math/rand"
	"sort"
)

// RollingConfig bundles a RollingGeneticAlgorithm's tunable parameters,
// per spec §9's single-Config-value builder redesign; the source's
// setter-chain-then-run API collapses into one struct here.
type RollingConfig struct {
	PopSize        int
	SelectionSize  int
	Elitism        float64 // fraction of the population carried over unmutated each generation
	MaxGen         int
	ConCutoff      int // generations without improvement before stopping early; 0 disables early stop
	BucketSize     int
	ResampleRate   int // elites are resampled every ResampleRate generations; 0 disables resampling
	ResampleSize   int
	AllowSurvivors bool // non-elite parents also compete for next generation's slots
}

// RollingGA is the direct Go port of RollingGeneticAlgorithm, specialised
// to cyclic-schedule genomes: each generation keeps its elite unchanged
// (resampling their fitness periodically to smooth out simulation noise),
// generates SelectionSize offspring via the classical string operator, and
// refills the rest of the population from a k-tournament over the
// offspring (and, if AllowSurvivors, the outgoing non-elite population).
type RollingGA struct {
	cfg      RollingConfig
	fitness  *CycleFitness
	operator *Operator
	selector *Selector
	rng      *rand.Rand

	randomCycle func(rng *rand.Rand) []int

	population []*Genome
}

func NewRollingGA(cfg RollingConfig, fitness *CycleFitness, operator *Operator, selector *Selector, randomCycle func(*rand.Rand) []int, rng *rand.Rand) *RollingGA {
	return &RollingGA{cfg: cfg, fitness: fitness, operator: operator, selector: selector, randomCycle: randomCycle, rng: rng}
}

// Run evolves the population for up to MaxGen generations, stopping early
// once ConCutoff consecutive generations fail to improve the best
// chromosome, and returns the best genome found.
func (ga *RollingGA) Run() *Genome {
	ga.population = make([]*Genome, ga.cfg.PopSize)
	for i := range ga.population {
		g := NewGenome(ga.randomCycle(ga.rng), ga.cfg.BucketSize)
		ga.evaluate(g, ga.cfg.BucketSize)
		g.IncrementAge()
		ga.population[i] = g
	}
	ga.sortByFitness()

	conCutoff := ga.cfg.ConCutoff
	if conCutoff <= 0 {
		conCutoff = ga.cfg.MaxGen + 1
	}
	bestFitness := ga.population[0].Fitness()
	conCount := 0

	for gen := 0; gen < ga.cfg.MaxGen; gen++ {
		survive := max(1, int(ga.cfg.Elitism*float64(len(ga.population))))
		if survive > len(ga.population) {
			survive = len(ga.population)
		}

		next := make([]*Genome, 0, ga.cfg.PopSize)
		for i := 0; i < survive; i++ {
			g := ga.population[i]
			ga.maybeResample(g)
			g.IncrementAge()
			next = append(next, g)
		}

		var pool []*Genome
		offspring := ga.operator.PerformOperation(ga.population, ga.cfg.SelectionSize, ga.cfg.BucketSize, ga.rng)
		for _, o := range offspring {
			ga.evaluate(o, ga.cfg.BucketSize)
			o.IncrementAge()
		}
		pool = append(pool, offspring...)

		if ga.cfg.AllowSurvivors {
			for i := survive; i < len(ga.population); i++ {
				g := ga.population[i]
				ga.maybeResample(g)
				g.IncrementAge()
				pool = append(pool, g)
			}
		}

		refill := ga.selector.Select(pool, ga.cfg.PopSize-survive, ga.rng)
		next = append(next, refill...)

		ga.population = next
		ga.sortByFitness()

		improved := ga.better(ga.population[0].Fitness(), bestFitness)
		if improved {
			bestFitness = ga.population[0].Fitness()
			conCount = 0
		} else {
			conCount++
			if conCount >= conCutoff {
				break
			}
		}
	}
	return ga.population[0]
}

func (ga *RollingGA) evaluate(g *Genome, samples int) {
	for i := 0; i < samples; i++ {
		g.GiveFitness(ga.fitness.Evaluate(g))
	}
}

func (ga *RollingGA) maybeResample(g *Genome) {
	if ga.cfg.ResampleRate > 0 && g.Age()%ga.cfg.ResampleRate == 0 {
		ga.evaluate(g, ga.cfg.ResampleSize)
	}
}

func (ga *RollingGA) better(a, b float64) bool {
	if ga.fitness.Maximising() {
		return a > b
	}
	return a < b
}

// sortByFitness orders the population best-first, so population[0] is
// always the current champion regardless of whether the fitness function
// maximises or minimises.
func (ga *RollingGA) sortByFitness() {
	maximising := ga.fitness.Maximising()
	sort.Slice(ga.population, func(i, j int) bool {
		fi, fj := ga.population[i].Fitness(), ga.population[j].Fitness()
		if fi == fj {
			return ga.population[i].Age() > ga.population[j].Age()
		}
		if maximising {
			return fi > fj
		}
		return fi < fj
	})
}
