package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stackcards/srs"
	"github.com/stackcards/srs/optimizer"
)

// Scope identifies which entity a parameter override layer belongs to.
// It is a string alias so collaborator interfaces can name it without
// importing this package.
type Scope = string

const (
	ScopeUser Scope = "user"
	ScopeDeck Scope = "deck"
)

// PutOverrides stores (or replaces) an override layer for the scoped
// entity. The layer is stored as JSON; nil fields stay absent so the
// resolver's fall-through semantics survive the round trip.
func (s *Store) PutOverrides(ctx context.Context, scope Scope, scopeID string, o srs.Overrides) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("store: encode overrides: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parameter_overrides (scope, scope_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, scope_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(scope), scopeID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: put %s overrides for %s: %w", scope, scopeID, err)
	}
	return nil
}

// GetOverrides loads the override layer for the scoped entity. A missing
// layer is not an error: it returns nil, meaning "fall through".
func (s *Store) GetOverrides(ctx context.Context, scope Scope, scopeID string) (*srs.Overrides, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM parameter_overrides WHERE scope = ? AND scope_id = ?`,
		string(scope), scopeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s overrides for %s: %w", scope, scopeID, err)
	}
	var o srs.Overrides
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return nil, fmt.Errorf("store: decode %s overrides for %s: %w", scope, scopeID, err)
	}
	return &o, nil
}

// ResolveParameters loads the user and deck layers and merges them onto
// the built-in defaults. This is the read path the session collaborator
// calls before scheduling.
func (s *Store) ResolveParameters(ctx context.Context, userID string, deckID string) (srs.Parameters, error) {
	user, err := s.GetOverrides(ctx, ScopeUser, userID)
	if err != nil {
		return srs.Parameters{}, err
	}
	deck, err := s.GetOverrides(ctx, ScopeDeck, deckID)
	if err != nil {
		return srs.Parameters{}, err
	}
	return srs.Resolve(srs.DefaultParameters(), user, deck)
}

type resultRow struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	WeightsBefore      string    `db:"weights_before"`
	WeightsAfter       string    `db:"weights_after"`
	LossBefore         float64   `db:"loss_before"`
	LossAfter          float64   `db:"loss_after"`
	ImprovementPercent float64   `db:"improvement_percent"`
	RMSE               float64   `db:"rmse"`
	SampleSize         int       `db:"sample_size"`
	Iterations         int       `db:"iterations"`
	OptimizedAt        time.Time `db:"optimized_at"`
}

// InsertOptimization records a completed fit for a user.
func (s *Store) InsertOptimization(ctx context.Context, userID string, res optimizer.Result) error {
	before, err := json.Marshal(res.WeightsBefore)
	if err != nil {
		return fmt.Errorf("store: encode weights: %w", err)
	}
	after, err := json.Marshal(res.WeightsAfter)
	if err != nil {
		return fmt.Errorf("store: encode weights: %w", err)
	}
	row := resultRow{
		ID:                 uuid.NewString(),
		UserID:             userID,
		WeightsBefore:      string(before),
		WeightsAfter:       string(after),
		LossBefore:         res.LossBefore,
		LossAfter:          res.LossAfter,
		ImprovementPercent: res.ImprovementPercent,
		RMSE:               res.RMSE,
		SampleSize:         res.SampleSize,
		Iterations:         res.Iterations,
		OptimizedAt:        res.OptimizedAt,
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO optimization_results (id, user_id, weights_before, weights_after,
			loss_before, loss_after, improvement_percent, rmse, sample_size, iterations, optimized_at)
		VALUES (:id, :user_id, :weights_before, :weights_after,
			:loss_before, :loss_after, :improvement_percent, :rmse, :sample_size, :iterations, :optimized_at)`,
		row)
	if err != nil {
		return fmt.Errorf("store: insert optimization for user %s: %w", userID, err)
	}
	return nil
}

// LatestOptimization returns a user's most recent fit record, or
// ErrNotFound if the user has never been optimized.
func (s *Store) LatestOptimization(ctx context.Context, userID string) (optimizer.Result, error) {
	var row resultRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM optimization_results WHERE user_id = ?
		ORDER BY optimized_at DESC LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return optimizer.Result{}, fmt.Errorf("%w: no optimization for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return optimizer.Result{}, fmt.Errorf("store: latest optimization for user %s: %w", userID, err)
	}

	res := optimizer.Result{
		LossBefore:         row.LossBefore,
		LossAfter:          row.LossAfter,
		ImprovementPercent: row.ImprovementPercent,
		RMSE:               row.RMSE,
		SampleSize:         row.SampleSize,
		Iterations:         row.Iterations,
		OptimizedAt:        row.OptimizedAt,
	}
	if err := json.Unmarshal([]byte(row.WeightsBefore), &res.WeightsBefore); err != nil {
		return optimizer.Result{}, fmt.Errorf("store: decode weights: %w", err)
	}
	if err := json.Unmarshal([]byte(row.WeightsAfter), &res.WeightsAfter); err != nil {
		return optimizer.Result{}, fmt.Errorf("store: decode weights: %w", err)
	}
	return res, nil
}
