package optimizer

import (
	"sort"
	"time"

	"github.com/stackcards/srs"
)

// review is the training-set form of a single review event.
type review struct {
	rating      srs.Rating
	elapsedDays float64 // days since the card's previous review (0 for first)
	label       float64 // 0 if Again, 1 otherwise
	durationMs  int
	reviewedAt  time.Time // original timestamp, for replay
}

// buildDataset groups review logs by card and sorts each card's history
// by time, computing per-review elapsed days and the binary recall label.
func buildDataset(logs []srs.ReviewLog) map[int64][]review {
	if len(logs) == 0 {
		return nil
	}

	groups := make(map[int64][]srs.ReviewLog)
	for _, entry := range logs {
		groups[entry.CardID] = append(groups[entry.CardID], entry)
	}

	result := make(map[int64][]review, len(groups))
	for cardID, history := range groups {
		sort.Slice(history, func(i, j int) bool {
			return history[i].ReviewedAt.Before(history[j].ReviewedAt)
		})

		reviews := make([]review, len(history))
		for i, entry := range history {
			var elapsed float64
			if i > 0 {
				elapsed = entry.ReviewedAt.Sub(history[i-1].ReviewedAt).Hours() / 24.0
			}

			label := 1.0
			if entry.Rating == srs.Again {
				label = 0.0
			}

			reviews[i] = review{
				rating:      entry.Rating,
				elapsedDays: elapsed,
				label:       label,
				durationMs:  entry.DurationMs,
				reviewedAt:  entry.ReviewedAt,
			}
		}
		result[cardID] = reviews
	}

	return result
}

// countCrossDay counts reviews with elapsedDays >= 1. Same-day reviews
// carry no retention signal, so only cross-day reviews count toward the
// sample-size requirement and the loss.
func countCrossDay(data map[int64][]review) int {
	count := 0
	for _, reviews := range data {
		for _, r := range reviews {
			if r.elapsedDays >= 1.0 {
				count++
			}
		}
	}
	return count
}

// sortedCardIDs returns the dataset's card IDs in ascending order, for
// deterministic iteration and shuffling.
func sortedCardIDs(data map[int64][]review) []int64 {
	ids := make([]int64, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
