package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackcards/srs"
)

type reviewRow struct {
	ID               string    `db:"id"`
	CardID           int64     `db:"card_id"`
	UserID           string    `db:"user_id"`
	Rating           int       `db:"rating"`
	DurationMs       int       `db:"duration_ms"`
	StabilityBefore  float64   `db:"stability_before"`
	StabilityAfter   float64   `db:"stability_after"`
	DifficultyBefore float64   `db:"difficulty_before"`
	DifficultyAfter  float64   `db:"difficulty_after"`
	ReviewedAt       time.Time `db:"reviewed_at"`
}

func (r reviewRow) toLog() srs.ReviewLog {
	return srs.ReviewLog{
		CardID:           r.CardID,
		UserID:           r.UserID,
		Rating:           srs.Rating(r.Rating),
		DurationMs:       r.DurationMs,
		StabilityBefore:  r.StabilityBefore,
		StabilityAfter:   r.StabilityAfter,
		DifficultyBefore: r.DifficultyBefore,
		DifficultyAfter:  r.DifficultyAfter,
		ReviewedAt:       r.ReviewedAt,
	}
}

// AppendReviewLog stores a review log entry. Logs are append-only; there
// is no update or delete path.
func (s *Store) AppendReviewLog(ctx context.Context, entry srs.ReviewLog) error {
	row := reviewRow{
		ID:               uuid.NewString(),
		CardID:           entry.CardID,
		UserID:           entry.UserID,
		Rating:           int(entry.Rating),
		DurationMs:       entry.DurationMs,
		StabilityBefore:  entry.StabilityBefore,
		StabilityAfter:   entry.StabilityAfter,
		DifficultyBefore: entry.DifficultyBefore,
		DifficultyAfter:  entry.DifficultyAfter,
		ReviewedAt:       entry.ReviewedAt,
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO review_logs (id, card_id, user_id, rating, duration_ms,
			stability_before, stability_after, difficulty_before, difficulty_after, reviewed_at)
		VALUES (:id, :card_id, :user_id, :rating, :duration_ms,
			:stability_before, :stability_after, :difficulty_before, :difficulty_after, :reviewed_at)`,
		row)
	if err != nil {
		return fmt.Errorf("store: append review log for card %d: %w", entry.CardID, err)
	}
	return nil
}

// ListUserLogs returns all of a user's review logs ordered by review
// time, the shape the optimizer consumes.
func (s *Store) ListUserLogs(ctx context.Context, userID string) ([]srs.ReviewLog, error) {
	var rows []reviewRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM review_logs WHERE user_id = ? ORDER BY reviewed_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list logs for user %s: %w", userID, err)
	}
	logs := make([]srs.ReviewLog, len(rows))
	for i, r := range rows {
		logs[i] = r.toLog()
	}
	return logs, nil
}

// ListDeckLogs returns a user's review logs restricted to one deck,
// ordered by review time.
func (s *Store) ListDeckLogs(ctx context.Context, userID string, deckID int64) ([]srs.ReviewLog, error) {
	var rows []reviewRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT l.* FROM review_logs l
		JOIN cards c ON c.id = l.card_id
		WHERE l.user_id = ? AND c.deck_id = ?
		ORDER BY l.reviewed_at, l.id`, userID, deckID)
	if err != nil {
		return nil, fmt.Errorf("store: list logs for user %s deck %d: %w", userID, deckID, err)
	}
	logs := make([]srs.ReviewLog, len(rows))
	for i, r := range rows {
		logs[i] = r.toLog()
	}
	return logs, nil
}
