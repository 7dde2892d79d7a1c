package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/stackcards/srs"
)

// ErrMissingDuration is returned when retention optimization is invoked
// on logs without answer durations.
var ErrMissingDuration = errors.New("optimizer: DurationMs required on every log for optimal retention")

// retentionMinLogs is the minimum log count for retention optimization.
const retentionMinLogs = 512

// retentionCandidates are the retention targets evaluated by
// OptimalRetention.
var retentionCandidates = []float64{0.70, 0.75, 0.80, 0.85, 0.90, 0.95}

// reviewCosts summarizes rating probabilities and average answer
// durations from a user's history, split into first reviews (one per
// card) and all later reviews.
type reviewCosts struct {
	firstProb  map[srs.Rating]float64 // rating distribution of first reviews
	firstDur   map[srs.Rating]float64 // avg duration (ms) of first reviews per rating
	recallProb map[srs.Rating]float64 // rating distribution among recalled later reviews
	laterDur   map[srs.Rating]float64 // avg duration (ms) of later reviews per rating
}

var allRatings = []srs.Rating{srs.Again, srs.Hard, srs.Good, srs.Easy}

// computeReviewCosts derives reviewCosts from the logs. Recall
// probabilities are computed among Hard/Good/Easy only; with no recall
// data they default to uniform.
func computeReviewCosts(logs []srs.ReviewLog) reviewCosts {
	type event struct {
		rating   srs.Rating
		duration float64
		at       time.Time
	}
	groups := make(map[int64][]event)
	for _, entry := range logs {
		groups[entry.CardID] = append(groups[entry.CardID], event{
			rating:   entry.Rating,
			duration: float64(entry.DurationMs),
			at:       entry.ReviewedAt,
		})
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].at.Before(g[j].at) })
	}

	firstDurs := make(map[srs.Rating][]float64)
	laterDurs := make(map[srs.Rating][]float64)
	firstCount := make(map[srs.Rating]float64)
	recallCount := make(map[srs.Rating]float64)
	var firstTotal, recallTotal float64

	for _, g := range groups {
		for i, e := range g {
			if i == 0 {
				firstTotal++
				firstCount[e.rating]++
				firstDurs[e.rating] = append(firstDurs[e.rating], e.duration)
				continue
			}
			laterDurs[e.rating] = append(laterDurs[e.rating], e.duration)
			if e.rating != srs.Again {
				recallTotal++
				recallCount[e.rating]++
			}
		}
	}

	costs := reviewCosts{
		firstProb:  make(map[srs.Rating]float64),
		firstDur:   make(map[srs.Rating]float64),
		recallProb: make(map[srs.Rating]float64),
		laterDur:   make(map[srs.Rating]float64),
	}
	for _, r := range allRatings {
		if firstTotal > 0 {
			costs.firstProb[r] = firstCount[r] / firstTotal
		}
		if len(firstDurs[r]) > 0 {
			costs.firstDur[r] = stat.Mean(firstDurs[r], nil)
		}
		if len(laterDurs[r]) > 0 {
			costs.laterDur[r] = stat.Mean(laterDurs[r], nil)
		}
		if r != srs.Again {
			if recallTotal > 0 {
				costs.recallProb[r] = recallCount[r] / recallTotal
			} else {
				costs.recallProb[r] = 1.0 / 3.0
			}
		}
	}
	return costs
}

// simulateCost estimates the review cost per retained card at one
// retention target by simulating 1000 cards over a year of scheduling.
func simulateCost(retention float64, w srs.Weights, costs reviewCosts) (float64, error) {
	const numCards = 1000

	p := srs.DefaultParameters()
	p.Weights = srs.ClampWeights(w)
	p.RequestRetention = retention
	p.EnableFuzz = false
	s, err := srs.NewScheduler(p, nil)
	if err != nil {
		return 0, err
	}

	rng := rand.New(rand.NewSource(42))
	startDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(1, 0, 0)

	var totalDuration float64

	for i := 0; i < numCards; i++ {
		card := srs.NewCard(int64(i+1), startDate)
		now := startDate
		isFirst := true

		for !now.After(endDate) {
			var rating srs.Rating
			var dur float64

			if isFirst {
				rating = pickRating(rng, costs.firstProb)
				dur = costs.firstDur[rating]
				isFirst = false
			} else if rng.Float64() < retention {
				rating = pickRating(rng, costs.recallProb)
				dur = costs.laterDur[rating]
			} else {
				rating = srs.Again
				dur = costs.laterDur[srs.Again]
			}

			totalDuration += dur
			card, _, err = s.Apply(card, rating, now)
			if err != nil {
				return 0, err
			}
			now = card.Due
		}
	}

	return totalDuration / (retention * numCards), nil
}

// pickRating samples a rating from the distribution; ratings missing from
// the map have probability zero, and the last listed rating absorbs
// rounding remainder.
func pickRating(rng *rand.Rand, probs map[srs.Rating]float64) srs.Rating {
	p := rng.Float64()
	var cum float64
	for _, r := range allRatings {
		cum += probs[r]
		if p < cum {
			return r
		}
	}
	return srs.Easy
}

// OptimalRetention finds the retention target with the lowest simulated
// review cost per retained card. It requires at least 512 logs, each with
// a positive DurationMs.
func (o *Optimizer) OptimalRetention(ctx context.Context, w srs.Weights, logs []srs.ReviewLog) (float64, error) {
	if len(logs) < retentionMinLogs {
		return 0, fmt.Errorf("%w: %d logs, need %d", ErrInsufficientSamples, len(logs), retentionMinLogs)
	}
	for _, entry := range logs {
		if entry.DurationMs <= 0 {
			return 0, ErrMissingDuration
		}
	}

	costs := computeReviewCosts(logs)

	best := retentionCandidates[0]
	bestCost := math.Inf(1)

	for _, candidate := range retentionCandidates {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		cost, err := simulateCost(candidate, w, costs)
		if err != nil {
			return 0, err
		}
		if cost < bestCost {
			bestCost = cost
			best = candidate
		}
	}

	return best, nil
}
