package srs

import (
	"fmt"
	"math"
)

// model evaluates the FSRS-5 memory equations for one weight vector.
// All methods are pure; non-finite results are reported by finiteCheck
// at the call sites that own error propagation.
type model struct {
	w      Weights
	decay  float64
	factor float64
}

func newModel(p Parameters) model {
	return model{w: p.Weights, decay: p.Decay, factor: p.Factor}
}

// retrievability computes R(t, S) = (1 + factor * t / S) ^ decay.
// R(0, S) = 1 exactly; R decreases toward 0 as t grows. Callers must
// ensure stability > 0.
func (m *model) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+m.factor*elapsedDays/stability, m.decay)
}

// intervalDays inverts the retrievability formula for the requested
// retention: the elapsed time at which R drops to the target, rounded and
// clamped to [1, maxIvl].
func (m *model) intervalDays(stability, requestRetention float64, maxIvl int) int {
	ivl := stability / m.factor * (math.Pow(requestRetention, 1.0/m.decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > maxIvl {
		days = maxIvl
	}
	return days
}

// initStability returns S₀(G) = clamp_s(w[G-1]) for a card's first review.
func (m *model) initStability(r Rating) float64 {
	return clampStability(m.w[r-1])
}

// initDifficulty returns D₀(G) = w[4] - e^(w[5] * (G - 1)) + 1.
// When clamp is true, the result is clamped to [1, 10].
func (m *model) initDifficulty(r Rating, clamp bool) float64 {
	d := m.w[4] - math.Exp(m.w[5]*float64(r-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// nextDifficulty computes the updated difficulty after a review.
// ΔD = -w[6] * (G - 3)
// D' = D + (10 - D) * ΔD / 9      (linear damping)
// D” = w[7]*D₀(Easy) + (1-w[7])*D'  (mean reversion)
// clamped to [1, 10]. Easy decreases difficulty, Again increases it.
func (m *model) nextDifficulty(difficulty float64, r Rating) float64 {
	deltaD := -m.w[6] * (float64(r) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	d0Easy := m.initDifficulty(Easy, false) // mean reversion target, unclamped
	return clampDifficulty(m.w[7]*d0Easy + (1-m.w[7])*dPrime)
}

// nextStability dispatches on the rating branch.
func (m *model) nextStability(d, s, r float64, rating Rating) float64 {
	if rating == Again {
		return m.forgetStability(d, s, r)
	}
	return m.recallStability(d, s, r, rating)
}

// recallStability computes stability after a successful recall.
// S'_r = S * (1 + e^w[8] * (11-D) * S^(-w[9]) * (e^((1-R)*w[10]) - 1) * hardPenalty * easyBonus)
// Growth shrinks as difficulty rises and as the review-time
// retrievability approaches 1 (a trivially-easy review teaches little).
func (m *model) recallStability(d, s, r float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = m.w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = m.w[16]
	}
	return s * (1 + math.Exp(m.w[8])*
		(11-d)*
		math.Pow(s, -m.w[9])*
		(math.Exp((1-r)*m.w[10])-1)*
		hardPenalty*easyBonus)
}

// forgetStability computes stability after a lapse.
// long = w[11] * D^(-w[12]) * ((S+1)^w[13] - 1) * e^((1-R)*w[14])
// short = S / e^(w[17] * w[18])
// The result never exceeds the pre-lapse stability and never drops below
// the stability floor.
func (m *model) forgetStability(d, s, r float64) float64 {
	long := m.w[11] *
		math.Pow(d, -m.w[12]) *
		(math.Pow(s+1, m.w[13]) - 1) *
		math.Exp((1-r)*m.w[14])
	short := s / math.Exp(m.w[17]*m.w[18])
	return clampStability(math.Min(math.Min(long, short), s))
}

// shortTermStability computes the same-day review stability.
// S' = S * e^(w[17] * (G - 3 + w[18])), not allowed to shrink on Good/Easy.
func (m *model) shortTermStability(s float64, r Rating) float64 {
	sInc := math.Exp(m.w[17] * (float64(r) - 3 + m.w[18]))
	if r == Good || r == Easy {
		sInc = math.Max(sInc, 1.0)
	}
	return clampStability(s * sInc)
}

// clampStability clamps stability to a minimum of 0.001 days.
func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}

// clampDifficulty clamps difficulty to [1, 10].
func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}

// finiteCheck returns ErrNumericDivergence if any value is NaN or ±Inf.
func finiteCheck(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %f", ErrNumericDivergence, v)
		}
	}
	return nil
}
