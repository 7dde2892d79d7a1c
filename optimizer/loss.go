package optimizer

import (
	"math"

	"github.com/stackcards/srs"
)

const bceClamp = 1e-7

// bceLoss computes the binary cross-entropy -[y*ln(p) + (1-y)*ln(1-p)].
// p is clamped to [bceClamp, 1-bceClamp] to avoid log(0).
func bceLoss(rPred, y float64) float64 {
	p := math.Max(bceClamp, math.Min(rPred, 1-bceClamp))
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

// trainingScheduler builds a fuzz-free scheduler for the candidate
// weights. Weights are clamped to their bounds first so that finite
// difference probes at the boundary stay constructible.
func trainingScheduler(w srs.Weights) (*srs.Scheduler, error) {
	p := srs.DefaultParameters()
	p.Weights = srs.ClampWeights(w)
	p.EnableFuzz = false
	return srs.NewScheduler(p, nil)
}

// datasetLoss computes the mean BCE loss over all cross-day reviews by
// replaying each card's history under the candidate weights. The
// predicted retrievability just before each review is compared to the
// binary recall outcome. Returns 0 when no cross-day reviews exist.
func datasetLoss(w srs.Weights, data map[int64][]review) (float64, error) {
	s, err := trainingScheduler(w)
	if err != nil {
		return 0, err
	}

	var totalLoss float64
	var count int

	for cardID, reviews := range data {
		card := srs.NewCard(cardID, reviews[0].reviewedAt)

		for _, rev := range reviews {
			rPred := s.Retrievability(card, rev.reviewedAt)

			if card.Reviewed() && rev.elapsedDays >= 1.0 {
				totalLoss += bceLoss(rPred, rev.label)
				count++
			}

			card, _, err = s.Apply(card, rev.rating, rev.reviewedAt)
			if err != nil {
				return 0, err
			}
		}
	}

	if count == 0 {
		return 0, nil
	}
	return totalLoss / float64(count), nil
}

const gradEps = 1e-5

// gradient computes dL/dw by central differences:
// dL/dw[i] ≈ (L(w[i]+ε) - L(w[i]-ε)) / (2ε).
func gradient(w srs.Weights, data map[int64][]review) (srs.Weights, error) {
	var grad srs.Weights
	for i := 0; i < srs.NumWeights; i++ {
		wPlus := w
		wPlus[i] += gradEps
		wMinus := w
		wMinus[i] -= gradEps

		lPlus, err := datasetLoss(wPlus, data)
		if err != nil {
			return srs.Weights{}, err
		}
		lMinus, err := datasetLoss(wMinus, data)
		if err != nil {
			return srs.Weights{}, err
		}

		grad[i] = (lPlus - lMinus) / (2 * gradEps)
	}
	return grad, nil
}
