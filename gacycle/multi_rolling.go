package gacycle

import (
	"math/rand"
	"sort"
)

// MultiRollingGA is RollingGA's multi-string counterpart: same rolling
// elitism/resampling/refill loop, driving an AllCycleFitness/MultiOperator
// /MultiSelector triple over a population of MultiGenomes instead of
// Genomes.
type MultiRollingGA struct {
	cfg      RollingConfig
	fitness  *AllCycleFitness
	operator *MultiOperator
	selector *MultiSelector
	rng      *rand.Rand

	randomGenome func(rng *rand.Rand) (crusherStrings, shovelStrings [][]int)

	population []*MultiGenome
}

func NewMultiRollingGA(cfg RollingConfig, fitness *AllCycleFitness, operator *MultiOperator, selector *MultiSelector, randomGenome func(*rand.Rand) ([][]int, [][]int), rng *rand.Rand) *MultiRollingGA {
	return &MultiRollingGA{cfg: cfg, fitness: fitness, operator: operator, selector: selector, randomGenome: randomGenome, rng: rng}
}

func (ga *MultiRollingGA) Run() *MultiGenome {
	ga.population = make([]*MultiGenome, ga.cfg.PopSize)
	for i := range ga.population {
		cs, ss := ga.randomGenome(ga.rng)
		g := NewMultiGenome(cs, ss, ga.cfg.BucketSize)
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

		next := make([]*MultiGenome, 0, ga.cfg.PopSize)
		for i := 0; i < survive; i++ {
			g := ga.population[i]
			ga.maybeResample(g)
			g.IncrementAge()
			next = append(next, g)
		}

		var pool []*MultiGenome
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

func (ga *MultiRollingGA) evaluate(g *MultiGenome, samples int) {
	for i := 0; i < samples; i++ {
		g.GiveFitness(ga.fitness.Evaluate(g))
	}
}

func (ga *MultiRollingGA) maybeResample(g *MultiGenome) {
	if ga.cfg.ResampleRate > 0 && g.Age()%ga.cfg.ResampleRate == 0 {
		ga.evaluate(g, ga.cfg.ResampleSize)
	}
}

func (ga *MultiRollingGA) better(a, b float64) bool {
	if ga.fitness.Maximising() {
		return a > b
	}
	return a < b
}

func (ga *MultiRollingGA) sortByFitness() {
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
