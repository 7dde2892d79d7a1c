package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dueAt(id int64, due time.Time) Card {
	last := due.Add(-5 * dayDuration)
	return Card{
		CardID:     id,
		State:      Review,
		Stability:  5,
		Difficulty: 5,
		Due:        due,
		LastReview: &last,
		CreatedAt:  due.Add(-30 * dayDuration),
	}
}

func newAt(id int64, created time.Time) Card {
	c := NewCard(id, created)
	return c
}

func TestBuildQueueDueBeforeNew(t *testing.T) {
	cards := []Card{
		newAt(10, t0.Add(-2*dayDuration)),
		dueAt(1, t0.Add(-3*dayDuration)),
		dueAt(2, t0.Add(-1*dayDuration)),
		newAt(11, t0.Add(-1*dayDuration)),
	}

	queue := BuildQueue(cards, t0, QueueLimits{MaxDue: 10, MaxNew: 10})
	assert.Equal(t, []int64{1, 2, 10, 11}, queue)
}

func TestBuildQueueMostOverdueFirst(t *testing.T) {
	cards := []Card{
		dueAt(1, t0.Add(-time.Hour)),
		dueAt(2, t0.Add(-10*dayDuration)),
		dueAt(3, t0.Add(-dayDuration)),
	}
	queue := BuildQueue(cards, t0, QueueLimits{MaxDue: 10, MaxNew: 10})
	assert.Equal(t, []int64{2, 3, 1}, queue)
}

func TestBuildQueueExcludesFutureDue(t *testing.T) {
	cards := []Card{
		dueAt(1, t0.Add(time.Minute)), // not due yet
		dueAt(2, t0),                  // due exactly now
	}
	queue := BuildQueue(cards, t0, QueueLimits{MaxDue: 10, MaxNew: 10})
	assert.Equal(t, []int64{2}, queue)
}

func TestBuildQueueTruncation(t *testing.T) {
	var cards []Card
	for i := int64(1); i <= 5; i++ {
		cards = append(cards, dueAt(i, t0.Add(-time.Duration(i)*dayDuration)))
	}
	for i := int64(100); i < 105; i++ {
		cards = append(cards, newAt(i, t0.Add(time.Duration(i)*time.Second)))
	}

	queue := BuildQueue(cards, t0, QueueLimits{MaxDue: 2, MaxNew: 3})
	require.Len(t, queue, 5)
	// The two most overdue, then the three oldest new cards.
	assert.Equal(t, []int64{5, 4, 100, 101, 102}, queue)
}

func TestBuildQueueNewCardsFIFO(t *testing.T) {
	cards := []Card{
		newAt(3, t0.Add(-time.Hour)),
		newAt(1, t0.Add(-3*time.Hour)),
		newAt(2, t0.Add(-2*time.Hour)),
	}
	queue := BuildQueue(cards, t0, QueueLimits{MaxDue: 10, MaxNew: 10})
	assert.Equal(t, []int64{1, 2, 3}, queue)
}

func TestBuildQueueTieBreaksByCardID(t *testing.T) {
	cards := []Card{
		dueAt(7, t0.Add(-dayDuration)),
		dueAt(3, t0.Add(-dayDuration)),
		newAt(9, t0.Add(-time.Hour)),
		newAt(4, t0.Add(-time.Hour)),
	}
	queue := BuildQueue(cards, t0, QueueLimits{MaxDue: 10, MaxNew: 10})
	assert.Equal(t, []int64{3, 7, 4, 9}, queue)
}

func TestBuildQueueDeterministic(t *testing.T) {
	var cards []Card
	for i := int64(1); i <= 50; i++ {
		if i%2 == 0 {
			cards = append(cards, dueAt(i, t0.Add(-time.Duration(i%7)*dayDuration)))
		} else {
			cards = append(cards, newAt(i, t0.Add(-time.Duration(i%5)*time.Hour)))
		}
	}
	first := BuildQueue(cards, t0, QueueLimits{MaxDue: 20, MaxNew: 20})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildQueue(cards, t0, QueueLimits{MaxDue: 20, MaxNew: 20}))
	}
}

func TestBuildQueueEmpty(t *testing.T) {
	assert.Empty(t, BuildQueue(nil, t0, QueueLimits{MaxDue: 10, MaxNew: 10}))
	assert.Empty(t, BuildQueue([]Card{dueAt(1, t0)}, t0, QueueLimits{MaxDue: 0, MaxNew: 0}))
}
