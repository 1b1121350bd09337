// Package rng is the single source of randomness for a run.
//
// Every random decision the engine makes flows through one RNG seeded from
// the run seed, so a run is reproducible bit for bit.
package rng

import (
	"math/rand/v2"
)

// RNG is a seeded PCG generator.
type RNG struct {
	seed uint64
	r    *rand.Rand
}

// New creates a generator for seed.
func New(seed uint64) *RNG {
	g := &RNG{}
	g.Reseed(seed)
	return g
}

// Reseed restarts the sequence from seed.
func (g *RNG) Reseed(seed uint64) {
	g.seed = seed
	g.r = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Seed returns the seed the current sequence started from.
func (g *RNG) Seed() uint64 {
	return g.seed
}

// Float64 returns a value in [0, 1).
func (g *RNG) Float64() float64 {
	return g.r.Float64()
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (g *RNG) IntN(n int) int {
	return g.r.IntN(n)
}

// Int returns a non-negative int.
func (g *RNG) Int() int {
	return g.r.Int()
}

// Uint64 returns a uniformly distributed uint64.
func (g *RNG) Uint64() uint64 {
	return g.r.Uint64()
}

// Shuffle permutes [0, n) with Fisher-Yates, walking down from the top.
func (g *RNG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := g.r.IntN(i + 1)
		swap(i, j)
	}
}

// Child draws a seed for an independent generator. Used where a node needs
// to explore with throwaway randomness and later replay the winning attempt.
func (g *RNG) Child() uint64 {
	return g.r.Uint64()
}

// Weighted picks an index with probability proportional to weights[i],
// using the draw r in [0, 1). Zero-sum weights pick uniformly.
func Weighted(weights []float64, r float64) int {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return int(r * float64(len(weights)))
	}
	threshold := r * sum
	var partial float64
	for i, w := range weights {
		partial += w
		if partial > threshold {
			return i
		}
	}
	return len(weights) - 1
}
