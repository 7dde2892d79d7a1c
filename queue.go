package srs

import (
	"sort"
	"time"
)

// QueueLimits bounds a study session: at most MaxDue previously-studied
// cards and MaxNew never-studied cards.
type QueueLimits struct {
	MaxDue int `json:"max_due"`
	MaxNew int `json:"max_new"`
}

// BuildQueue selects and orders the cards for a study session from a
// snapshot of a deck's cards.
//
// Due cards (state != New, due at or before now) come first, most overdue
// first. New cards follow in creation order. Ties break by ascending card
// ID, so a given snapshot and reference time always produce the identical
// sequence. The result holds card IDs, truncated to the session limits.
func BuildQueue(cards []Card, now time.Time, limits QueueLimits) []int64 {
	var due, fresh []Card
	for _, c := range cards {
		switch {
		case c.State != New && !c.Due.After(now):
			due = append(due, c)
		case c.State == New:
			fresh = append(fresh, c)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].Due.Equal(due[j].Due) {
			return due[i].Due.Before(due[j].Due)
		}
		return due[i].CardID < due[j].CardID
	})
	sort.Slice(fresh, func(i, j int) bool {
		if !fresh[i].CreatedAt.Equal(fresh[j].CreatedAt) {
			return fresh[i].CreatedAt.Before(fresh[j].CreatedAt)
		}
		return fresh[i].CardID < fresh[j].CardID
	})

	if limits.MaxDue >= 0 && len(due) > limits.MaxDue {
		due = due[:limits.MaxDue]
	}
	if limits.MaxNew >= 0 && len(fresh) > limits.MaxNew {
		fresh = fresh[:limits.MaxNew]
	}

	out := make([]int64, 0, len(due)+len(fresh))
	for _, c := range due {
		out = append(out, c.CardID)
	}
	for _, c := range fresh {
		out = append(out, c.CardID)
	}
	return out
}
