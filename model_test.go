package srs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultModel() model {
	return newModel(DefaultParameters())
}

func TestRetrievabilityAtZeroIsOne(t *testing.T) {
	m := defaultModel()
	for _, s := range []float64{0.1, 1, 10, 1000} {
		assert.Equal(t, 1.0, m.retrievability(0, s), "stability %f", s)
	}
}

func TestRetrievabilityStrictlyDecreasing(t *testing.T) {
	m := defaultModel()
	prev := 1.0
	for days := 1.0; days <= 365; days++ {
		r := m.retrievability(days, 10)
		assert.Less(t, r, prev)
		assert.Greater(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
		prev = r
	}
}

// At elapsed == stability, retrievability is 0.9 by construction of the
// default factor.
func TestRetrievabilityAtStabilityIs90Percent(t *testing.T) {
	m := defaultModel()
	for _, s := range []float64{1, 7, 100} {
		assert.InDelta(t, 0.9, m.retrievability(s, s), 1e-9)
	}
}

func TestIntervalDaysInvertsRetrievability(t *testing.T) {
	m := defaultModel()
	// interval ≈ stability at 90% retention with the default factor.
	assert.Equal(t, 10, m.intervalDays(10, 0.9, 36500))
	assert.Equal(t, 100, m.intervalDays(100, 0.9, 36500))
}

func TestIntervalDaysClamped(t *testing.T) {
	m := defaultModel()
	assert.Equal(t, 1, m.intervalDays(0.001, 0.9, 36500))
	assert.Equal(t, 30, m.intervalDays(1e6, 0.9, 30))
}

func TestIntervalDaysLongerForLowerRetention(t *testing.T) {
	m := defaultModel()
	assert.Greater(t, m.intervalDays(50, 0.7, 36500), m.intervalDays(50, 0.95, 36500))
}

func TestInitStabilityPerRating(t *testing.T) {
	m := defaultModel()
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		assert.Equal(t, DefaultWeights[r-1], m.initStability(r))
	}
	// Better first ratings start more stable.
	assert.Less(t, m.initStability(Again), m.initStability(Hard))
	assert.Less(t, m.initStability(Hard), m.initStability(Good))
	assert.Less(t, m.initStability(Good), m.initStability(Easy))
}

func TestInitStabilityFloor(t *testing.T) {
	p := DefaultParameters()
	p.Weights[0] = LowerBounds[0]
	m := newModel(p)
	assert.GreaterOrEqual(t, m.initStability(Again), 0.001)
}

func TestInitDifficultyOrdering(t *testing.T) {
	m := defaultModel()
	prev := math.Inf(1)
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		d := m.initDifficulty(r, true)
		assert.Less(t, d, prev, "rating %s", r)
		assert.GreaterOrEqual(t, d, 1.0)
		assert.LessOrEqual(t, d, 10.0)
		prev = d
	}
}

func TestNextDifficultyDirection(t *testing.T) {
	m := defaultModel()
	const d = 5.0
	assert.Greater(t, m.nextDifficulty(d, Again), d)
	assert.Less(t, m.nextDifficulty(d, Easy), d)
}

func TestNextDifficultyClamped(t *testing.T) {
	m := defaultModel()
	// Hammering one rating converges inside [1,10], never past it.
	d := 5.0
	for i := 0; i < 50; i++ {
		d = m.nextDifficulty(d, Again)
		assert.LessOrEqual(t, d, 10.0)
	}
	d = 5.0
	for i := 0; i < 50; i++ {
		d = m.nextDifficulty(d, Easy)
		assert.GreaterOrEqual(t, d, 1.0)
	}
}

func TestRecallStabilityGrows(t *testing.T) {
	m := defaultModel()
	for _, r := range []Rating{Hard, Good, Easy} {
		next := m.recallStability(5, 10, 0.9, r)
		assert.Greater(t, next, 10.0, "rating %s", r)
	}
}

// A predictable recall (retrievability near 1) teaches less than a
// difficult one.
func TestRecallStabilityAttenuatedByRetrievability(t *testing.T) {
	m := defaultModel()
	easyRecall := m.recallStability(5, 10, 0.99, Good)
	hardRecall := m.recallStability(5, 10, 0.70, Good)
	assert.Less(t, easyRecall, hardRecall)
}

func TestRecallStabilityHardPenaltyEasyBonus(t *testing.T) {
	m := defaultModel()
	hard := m.recallStability(5, 10, 0.9, Hard)
	good := m.recallStability(5, 10, 0.9, Good)
	easy := m.recallStability(5, 10, 0.9, Easy)
	assert.Less(t, hard, good)
	assert.Less(t, good, easy)
}

func TestForgetStabilityNeverExceedsPrior(t *testing.T) {
	m := defaultModel()
	for _, s := range []float64{0.01, 1, 10, 500} {
		for _, r := range []float64{0.2, 0.5, 0.9, 0.99} {
			next := m.forgetStability(5, s, r)
			assert.LessOrEqual(t, next, s, "s=%f r=%f", s, r)
			assert.GreaterOrEqual(t, next, 0.001)
		}
	}
}

func TestShortTermStabilityNoShrinkOnSuccess(t *testing.T) {
	m := defaultModel()
	for _, r := range []Rating{Good, Easy} {
		assert.GreaterOrEqual(t, m.shortTermStability(10, r), 10.0, "rating %s", r)
	}
	assert.Less(t, m.shortTermStability(10, Again), 10.0)
}

func TestFiniteCheck(t *testing.T) {
	require.NoError(t, finiteCheck(0, 1.5, -3))
	require.ErrorIs(t, finiteCheck(math.NaN()), ErrNumericDivergence)
	require.ErrorIs(t, finiteCheck(1, math.Inf(1)), ErrNumericDivergence)
	require.ErrorIs(t, finiteCheck(math.Inf(-1)), ErrNumericDivergence)
}
