package workload

import (
	"math"
	"math/rand/v2"
)

// Distribution selects how GenerateInts draws values.
type Distribution string

const (
	Uniform     Distribution = "uniform"
	Exponential Distribution = "exponential"
)

// GenerateInts returns n pseudo-random values from a seeded PCG source so
// runs are reproducible.
func GenerateInts(n int, dist Distribution, seed uint64) []int64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]int64, n)
	for i := range out {
		switch dist {
		case Exponential:
			out[i] = int64(math.Min(rng.ExpFloat64()*1e6, math.MaxInt32))
		default:
			out[i] = rng.Int64N(math.MaxInt32)
		}
	}
	return out
}

// Sum adds values; sorting must preserve it.
func Sum(values []int64) int64 {
	var s int64
	for _, v := range values {
		s += v
	}
	return s
}
