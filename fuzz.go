package srs

import (
	"math"
	"math/rand"
)

// fuzzThresholdDays: intervals at or below this are never fuzzed, so the
// short early intervals stay exact.
const fuzzThresholdDays = 2

// applyFuzz jitters the interval within ±fuzzFactor*interval (at least
// one day each side) to prevent review clustering. The randomness source
// is always the scheduler's injected rng, so a fixed seed reproduces the
// exact schedule.
func applyFuzz(interval, maxIvl int, fuzzFactor float64, rng *rand.Rand) int {
	if interval <= fuzzThresholdDays {
		return interval
	}

	delta := math.Max(1, fuzzFactor*float64(interval))
	minIvl := int(math.Round(float64(interval) - delta))
	maxFuzzIvl := int(math.Round(float64(interval) + delta))

	if minIvl < fuzzThresholdDays {
		minIvl = fuzzThresholdDays
	}
	if maxFuzzIvl > maxIvl {
		maxFuzzIvl = maxIvl
	}
	if minIvl > maxFuzzIvl {
		minIvl = maxFuzzIvl
	}

	return minIvl + rng.Intn(maxFuzzIvl-minIvl+1)
}
