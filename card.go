package srs

import "time"

// Card holds a flashcard's scheduling and memory state. A card is created
// in the New state with zero stability; Stability and Difficulty only
// carry model values once the card has been reviewed. The Version field is
// an optimistic-concurrency token maintained by the persistence layer;
// the engine never touches it.
type Card struct {
	CardID        int64      `json:"card_id"`
	DeckID        int64      `json:"deck_id"`
	State         State      `json:"state"`
	Step          int        `json:"step"`       // index into the learning/relearning steps; 0 outside those states
	Stability     float64    `json:"stability"`  // days; 0 while New
	Difficulty    float64    `json:"difficulty"` // [1,10]; neutral default while New
	Due           time.Time  `json:"due"`
	LastReview    *time.Time `json:"last_review,omitempty"` // nil before first review
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	ElapsedDays   float64    `json:"elapsed_days"`
	ScheduledDays float64    `json:"scheduled_days"`
	CreatedAt     time.Time  `json:"created_at"`
	Version       int64      `json:"version"`
}

// neutralDifficulty is the placeholder difficulty of a never-reviewed
// card. It never feeds the model math; the first review replaces it with
// the rating-seeded initial difficulty.
const neutralDifficulty = 5.0

// NewCard creates a card in the New state, due immediately.
func NewCard(id int64, now time.Time) Card {
	return Card{
		CardID:     id,
		State:      New,
		Difficulty: neutralDifficulty,
		Due:        now,
		CreatedAt:  now,
	}
}

// clone returns a copy of the card. Pointer fields are copied by value.
func (c Card) clone() Card {
	out := c
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}

// Reviewed reports whether the card has been reviewed at least once.
func (c Card) Reviewed() bool {
	return c.LastReview != nil
}
