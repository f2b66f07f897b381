// Package timedist supplies the random duration generators consumed by
// the simulation kernel and the forward-simulation controllers. Every
// generator turns a (mean, standard deviation) pair into a single
// nonnegative sample; the concrete shape of the distribution is the
// caller's choice.
//
// The wrapper style mirrors the teacher's RNG* types: a small struct
// pairing distribution parameters with a gonum/x-exp-rand source, and a
// single Next-style accessor.
package timedist

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TimeDistribution produces a nonnegative duration sample from a
// service's mean and standard deviation. Implementations must reject
// parameter combinations that would put probability mass on negative
// durations rather than silently clamping them.
type TimeDistribution interface {
	NextTime(mean, sd float64) float64
}

func newSource() rand.Source {
	return rand.NewSource(uint64(time.Now().UnixNano()))
}

// AverageTimes always returns the mean, i.e. a degenerate distribution.
// Used to obtain deterministic cycle times for scenario tests.
type AverageTimes struct{}

func NewAverageTimes() *AverageTimes { return &AverageTimes{} }

func (t *AverageTimes) NextTime(mean, sd float64) float64 {
	if mean < 0 {
		panic(fmt.Sprintf("timedist: AverageTimes given negative mean %g", mean))
	}
	return mean
}

// UniformTimes draws symmetrically about the mean with the given
// standard deviation: U(mean - sqrt(3)*sd, mean + sqrt(3)*sd). This is
// the unique uniform distribution with the requested first two moments.
// A mean/sd combination that would push the lower bound negative is
// rejected rather than clamped, since that would silently distort the
// mean of the resulting samples.
type UniformTimes struct {
	rng distuv.Uniform
}

func NewUniformTimes() *UniformTimes {
	return &UniformTimes{rng: distuv.Uniform{Min: 0, Max: 1, Src: rand.New(newSource())}}
}

func (t *UniformTimes) NextTime(mean, sd float64) float64 {
	spread := math.Sqrt(3) * sd
	lo := mean - spread
	if lo < 0 {
		panic(fmt.Sprintf("timedist: UniformTimes mean %g sd %g would sample below zero", mean, sd))
	}
	t.rng.Min, t.rng.Max = lo, mean+spread
	return t.rng.Rand()
}

// PresetUniformTimes draws uniformly on mean*(1-noise) .. mean*(1+noise)
// for a fixed noise fraction, ignoring the supplied sd. Used when a
// scenario wants reproducible relative jitter rather than moment-matched
// variance.
type PresetUniformTimes struct {
	Noise float64
	rng   distuv.Uniform
}

func NewPresetUniformTimes(noise float64) *PresetUniformTimes {
	if noise < 0 || noise > 1 {
		panic(fmt.Sprintf("timedist: PresetUniformTimes noise %g out of [0,1]", noise))
	}
	return &PresetUniformTimes{Noise: noise, rng: distuv.Uniform{Min: 0, Max: 1, Src: rand.New(newSource())}}
}

func (t *PresetUniformTimes) NextTime(mean, sd float64) float64 {
	if mean < 0 {
		panic(fmt.Sprintf("timedist: PresetUniformTimes given negative mean %g", mean))
	}
	t.rng.Min, t.rng.Max = mean*(1-t.Noise), mean*(1+t.Noise)
	return t.rng.Rand()
}
