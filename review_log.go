package srs

import "time"

// ReviewLog records a single review event for a card, including the
// memory state on either side of the transition. Logs are append-only and
// are the sole input to parameter optimization.
type ReviewLog struct {
	CardID           int64     `json:"card_id"`
	UserID           string    `json:"user_id"`
	Rating           Rating    `json:"rating"`
	DurationMs       int       `json:"duration_ms,omitempty"` // time spent answering, optional
	StabilityBefore  float64   `json:"stability_before"`
	StabilityAfter   float64   `json:"stability_after"`
	DifficultyBefore float64   `json:"difficulty_before"`
	DifficultyAfter  float64   `json:"difficulty_after"`
	ReviewedAt       time.Time `json:"reviewed_at"`
}
