package core

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// maxWeightShift caps weights at 2^40 so deep trees with wide degrees do
// not overflow the load counters.
const maxWeightShift = 40

// loadModel maps a task level to the approximate amount of work below it:
// degree^(height-level), and 1 for levels at or past height.
type loadModel struct {
	weights []int64
}

func newLoadModel(degree, height int) loadModel {
	if height < 1 {
		height = 1
	}
	shift := bits.Len(uint(degree)) - 1
	if shift < 1 {
		shift = 1
	}
	weights := make([]int64, height+1)
	for level := range weights {
		e := shift * (height - level)
		if e > maxWeightShift {
			e = maxWeightShift
		}
		weights[level] = 1 << e
	}
	return loadModel{weights: weights}
}

func (m loadModel) weight(level int32) int64 {
	if level < 0 {
		level = 0
	}
	if int(level) >= len(m.weights) {
		return 1
	}
	return m.weights[level]
}

// levelFloor returns the shallowest level whose tasks weigh no more than
// imbalance. Migrating a task from that level or deeper cannot overshoot.
func (m loadModel) levelFloor(imbalance int64) int32 {
	for level, w := range m.weights {
		if w <= imbalance {
			return int32(level)
		}
	}
	return int32(len(m.weights) - 1)
}

// ceilPowerOfTwo rounds v up to the next power of two (minimum 1).
func ceilPowerOfTwo[V constraints.Integer](v V) V {
	if v <= 1 {
		return 1
	}
	return V(1) << bits.Len64(uint64(v-1))
}
