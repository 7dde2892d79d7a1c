// Package jobs runs parameter optimization off the review request path.
//
// The engine's concurrency contract forbids two concurrent fits for one
// user: both would race to the same stored weight slot. Runner enforces
// that with a per-user in-flight guard, bounds every run with a timeout,
// and can be scheduled periodically with gocron.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/stackcards/srs"
	"github.com/stackcards/srs/optimizer"
)

// ErrRunInFlight is returned when a fit for the same user is already
// executing.
var ErrRunInFlight = errors.New("jobs: optimization already running for user")

// Repository is the slice of the storage layer the runner needs.
// *store.Store satisfies it.
type Repository interface {
	ListUserLogs(ctx context.Context, userID string) ([]srs.ReviewLog, error)
	GetOverrides(ctx context.Context, scope Scope, scopeID string) (*srs.Overrides, error)
	PutOverrides(ctx context.Context, scope Scope, scopeID string, o srs.Overrides) error
	InsertOptimization(ctx context.Context, userID string, res optimizer.Result) error
}

// Scope mirrors store.Scope so the runner does not import the store
// package; the string values must match.
type Scope = string

const scopeUser Scope = "user"

// RunnerConfig configures a Runner. Zero values produce defaults.
type RunnerConfig struct {
	RunTimeout     time.Duration // default 10m; upper bound per fit
	ApplyThreshold float64       // default 0: apply fitted weights on any improvement; negative disables applying
	Optimizer      optimizer.Config
}

// Runner executes optimizer fits in the background.
type Runner struct {
	repo    Repository
	opt     *optimizer.Optimizer
	cfg     RunnerConfig
	log     *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRunner creates a Runner. logger and metrics may be nil.
func NewRunner(repo Repository, cfg RunnerConfig, logger *slog.Logger, metrics *Metrics) *Runner {
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		repo:     repo,
		opt:      optimizer.New(cfg.Optimizer),
		cfg:      cfg,
		log:      logger,
		metrics:  metrics,
		inFlight: make(map[string]struct{}),
	}
}

// RunForUser fits the user's weights from their full review history.
// At most one run per user executes at a time; a second concurrent call
// returns ErrRunInFlight. The run is bounded by the configured timeout
// and by ctx. The fit result is always recorded; the fitted weights are
// promoted to the user's override layer only when the improvement clears
// the apply threshold.
func (r *Runner) RunForUser(ctx context.Context, userID string) (optimizer.Result, error) {
	if err := r.acquire(userID); err != nil {
		return optimizer.Result{}, err
	}
	defer r.release(userID)

	if r.metrics != nil {
		r.metrics.inFlightRuns.Inc()
		defer r.metrics.inFlightRuns.Dec()
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	started := time.Now()
	res, err := r.run(ctx, userID)
	elapsed := time.Since(started).Seconds()

	switch {
	case err == nil:
		r.metrics.observeRun("ok", elapsed)
	case errors.Is(err, optimizer.ErrInsufficientSamples) || errors.Is(err, optimizer.ErrEmptyLogs):
		r.metrics.observeRun("skipped", elapsed)
	default:
		r.metrics.observeRun("error", elapsed)
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, userID string) (optimizer.Result, error) {
	logs, err := r.repo.ListUserLogs(ctx, userID)
	if err != nil {
		return optimizer.Result{}, fmt.Errorf("jobs: load logs for %s: %w", userID, err)
	}

	start := srs.DefaultWeights
	layer, err := r.repo.GetOverrides(ctx, scopeUser, userID)
	if err != nil {
		return optimizer.Result{}, fmt.Errorf("jobs: load overrides for %s: %w", userID, err)
	}
	if layer != nil && layer.Weights != nil {
		start = *layer.Weights
	}

	res, err := r.opt.Fit(ctx, logs, start)
	if err != nil {
		r.log.Info("optimizer fit not completed", "user_id", userID, "err", err)
		return optimizer.Result{}, err
	}

	if err := r.repo.InsertOptimization(ctx, userID, res); err != nil {
		return optimizer.Result{}, fmt.Errorf("jobs: record fit for %s: %w", userID, err)
	}

	r.log.Info("optimizer fit complete",
		"user_id", userID,
		"loss_before", res.LossBefore,
		"loss_after", res.LossAfter,
		"improvement_pct", res.ImprovementPercent,
		"rmse", res.RMSE,
		"samples", res.SampleSize,
		"iterations", res.Iterations,
	)

	if r.cfg.ApplyThreshold >= 0 && res.ImprovementPercent > r.cfg.ApplyThreshold {
		if err := r.applyWeights(ctx, userID, layer, res.WeightsAfter); err != nil {
			return optimizer.Result{}, err
		}
		if r.metrics != nil {
			r.metrics.weightsApplied.Inc()
		}
	}

	return res, nil
}

// applyWeights promotes fitted weights into the user's override layer,
// preserving any other overridden fields.
func (r *Runner) applyWeights(ctx context.Context, userID string, layer *srs.Overrides, w srs.Weights) error {
	next := srs.Overrides{}
	if layer != nil {
		next = *layer
	}
	next.Weights = &w
	if err := r.repo.PutOverrides(ctx, scopeUser, userID, next); err != nil {
		return fmt.Errorf("jobs: apply weights for %s: %w", userID, err)
	}
	return nil
}

func (r *Runner) acquire(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[userID]; busy {
		return fmt.Errorf("%w: %s", ErrRunInFlight, userID)
	}
	r.inFlight[userID] = struct{}{}
	return nil
}

func (r *Runner) release(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, userID)
}

// Schedule registers a periodic refresh of each listed user's weights on
// the given gocron scheduler. In-flight and insufficient-data runs are
// skipped quietly; other errors are logged.
func (r *Runner) Schedule(s *gocron.Scheduler, interval time.Duration, userIDs func() []string) (*gocron.Job, error) {
	return s.Every(interval).Do(func() {
		ctx := context.Background()
		for _, userID := range userIDs() {
			_, err := r.RunForUser(ctx, userID)
			if err != nil &&
				!errors.Is(err, ErrRunInFlight) &&
				!errors.Is(err, optimizer.ErrInsufficientSamples) &&
				!errors.Is(err, optimizer.ErrEmptyLogs) {
				r.log.Error("scheduled optimization failed", "user_id", userID, "err", err)
			}
		}
	})
}
