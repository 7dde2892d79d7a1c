package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/stackcards/srs"
)

var (
	// ErrEmptyLogs is returned when no review logs are provided.
	ErrEmptyLogs = errors.New("optimizer: no review logs provided")

	// ErrInsufficientSamples is returned when the cross-day review count
	// is below Config.MinSamples. The fit is not attempted.
	ErrInsufficientSamples = errors.New("optimizer: insufficient review samples for fitting")
)

// Config controls the fitting process. Zero values are replaced with
// defaults at construction.
type Config struct {
	MinSamples           int     `json:"min_samples"`           // default 256; counted over cross-day reviews
	MaxIterations        int     `json:"max_iterations"`        // default 64 full passes
	ConvergenceThreshold float64 `json:"convergence_threshold"` // default 1e-4 absolute loss improvement
	LearningRate         float64 `json:"learning_rate"`         // default 0.04
	BatchSize            int     `json:"batch_size"`            // default 512 cross-day reviews per gradient step
	MaxSeqLen            int     `json:"max_seq_len"`           // default 64 reviews per card
	ShuffleSeed          int64   `json:"shuffle_seed"`          // default 42
}

// Result describes one completed fit. It is an immutable record; the
// caller decides whether WeightsAfter become the user's active weights.
type Result struct {
	WeightsBefore      srs.Weights `json:"weights_before"`
	WeightsAfter       srs.Weights `json:"weights_after"`
	LossBefore         float64     `json:"loss_before"`
	LossAfter          float64     `json:"loss_after"`
	ImprovementPercent float64     `json:"improvement_percent"`
	RMSE               float64     `json:"rmse"`
	SampleSize         int         `json:"sample_size"`
	Iterations         int         `json:"iterations"`
	OptimizedAt        time.Time   `json:"optimized_at"`
}

// Optimizer fits FSRS-5 weights from review logs using mini-batch
// gradient descent with Adam and a cosine annealing learning rate.
type Optimizer struct {
	cfg Config
}

// New creates an Optimizer, filling zero-valued config fields with
// defaults: MinSamples=256, MaxIterations=64, ConvergenceThreshold=1e-4,
// LearningRate=0.04, BatchSize=512, MaxSeqLen=64, ShuffleSeed=42.
func New(cfg Config) *Optimizer {
	if cfg.MinSamples == 0 {
		cfg.MinSamples = 256
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 64
	}
	if cfg.ConvergenceThreshold == 0 {
		cfg.ConvergenceThreshold = 1e-4
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.04
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 512
	}
	if cfg.MaxSeqLen == 0 {
		cfg.MaxSeqLen = 64
	}
	if cfg.ShuffleSeed == 0 {
		cfg.ShuffleSeed = 42
	}
	return &Optimizer{cfg: cfg}
}

// Fit trains a weight vector on the user's review logs, starting from
// start. It returns ErrEmptyLogs or ErrInsufficientSamples without
// attempting a fit when the data is too thin, srs.ErrNumericDivergence
// if an update produces a non-finite weight or loss, and the context's
// error if cancelled mid-run. On success the Result carries the loss
// under the starting and fitted weights, the relative improvement, and
// the RMSE of predicted retrievability against recall outcomes.
//
// Fit never mutates stored parameters; persisting WeightsAfter is the
// caller's decision.
func (o *Optimizer) Fit(ctx context.Context, logs []srs.ReviewLog, start srs.Weights) (Result, error) {
	if len(logs) == 0 {
		return Result{}, ErrEmptyLogs
	}

	data := buildDataset(logs)

	// Truncate each card's history to MaxSeqLen reviews.
	for cardID, reviews := range data {
		if len(reviews) > o.cfg.MaxSeqLen {
			data[cardID] = reviews[:o.cfg.MaxSeqLen]
		}
	}

	sampleSize := countCrossDay(data)
	if sampleSize < o.cfg.MinSamples {
		return Result{}, fmt.Errorf("%w: %d cross-day reviews, need %d",
			ErrInsufficientSamples, sampleSize, o.cfg.MinSamples)
	}

	lossBefore, err := datasetLoss(start, data)
	if err != nil {
		return Result{}, err
	}

	batchesPerPass := int(math.Ceil(float64(sampleSize) / float64(o.cfg.BatchSize)))
	adam := NewAdam(o.cfg.LearningRate)
	schedule := NewCosineAnnealing(o.cfg.LearningRate, batchesPerPass*o.cfg.MaxIterations)
	rng := rand.New(rand.NewSource(o.cfg.ShuffleSeed))
	cardIDs := sortedCardIDs(data)

	w := srs.ClampWeights(start)
	bestWeights := w
	bestLoss := lossBefore
	prevLoss := lossBefore
	iterations := 0

	for iter := 0; iter < o.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		rng.Shuffle(len(cardIDs), func(i, j int) {
			cardIDs[i], cardIDs[j] = cardIDs[j], cardIDs[i]
		})

		w, err = o.runPass(ctx, w, data, cardIDs, adam, schedule)
		if err != nil {
			return Result{}, err
		}
		iterations++

		passLoss, err := datasetLoss(w, data)
		if err != nil {
			return Result{}, err
		}
		if math.IsNaN(passLoss) || math.IsInf(passLoss, 0) {
			return Result{}, fmt.Errorf("%w: loss after iteration %d", srs.ErrNumericDivergence, iterations)
		}

		if passLoss < bestLoss {
			bestLoss = passLoss
			bestWeights = w
		}

		if math.Abs(prevLoss-passLoss) < o.cfg.ConvergenceThreshold {
			break
		}
		prevLoss = passLoss
	}

	rmse, err := o.rmse(bestWeights, data)
	if err != nil {
		return Result{}, err
	}

	improvement := 0.0
	if lossBefore > 0 {
		improvement = (lossBefore - bestLoss) / lossBefore * 100
	}

	return Result{
		WeightsBefore:      start,
		WeightsAfter:       bestWeights,
		LossBefore:         lossBefore,
		LossAfter:          bestLoss,
		ImprovementPercent: improvement,
		RMSE:               rmse,
		SampleSize:         sampleSize,
		Iterations:         iterations,
		OptimizedAt:        time.Now().UTC(),
	}, nil
}

// runPass makes one shuffled pass over the dataset, stepping Adam once
// per BatchSize cross-day reviews.
func (o *Optimizer) runPass(ctx context.Context, w srs.Weights, data map[int64][]review,
	cardIDs []int64, adam *Adam, schedule *CosineAnnealing) (srs.Weights, error) {

	batch := make(map[int64][]review)
	crossDay := 0

	step := func() error {
		grad, err := gradient(w, batch)
		if err != nil {
			return err
		}
		adam.SetLR(schedule.LR())
		w = srs.ClampWeights(adam.Update(w, grad))
		schedule.Step()
		for i := 0; i < srs.NumWeights; i++ {
			if math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
				return fmt.Errorf("%w: w[%d] after update", srs.ErrNumericDivergence, i)
			}
		}
		return nil
	}

	for _, cardID := range cardIDs {
		if err := ctx.Err(); err != nil {
			return srs.Weights{}, err
		}

		reviews := data[cardID]
		batch[cardID] = reviews
		for _, r := range reviews {
			if r.elapsedDays >= 1.0 {
				crossDay++
			}
		}

		if crossDay >= o.cfg.BatchSize {
			if err := step(); err != nil {
				return srs.Weights{}, err
			}
			batch = make(map[int64][]review)
			crossDay = 0
		}
	}

	if crossDay > 0 {
		if err := step(); err != nil {
			return srs.Weights{}, err
		}
	}

	return w, nil
}

// rmse computes the root mean squared error between predicted
// retrievability and the binary recall outcome over all cross-day
// reviews, replaying under the given weights.
func (o *Optimizer) rmse(w srs.Weights, data map[int64][]review) (float64, error) {
	s, err := trainingScheduler(w)
	if err != nil {
		return 0, err
	}

	var residuals []float64
	for cardID, reviews := range data {
		card := srs.NewCard(cardID, reviews[0].reviewedAt)
		for _, rev := range reviews {
			rPred := s.Retrievability(card, rev.reviewedAt)
			if card.Reviewed() && rev.elapsedDays >= 1.0 {
				residuals = append(residuals, rPred-rev.label)
			}
			card, _, err = s.Apply(card, rev.rating, rev.reviewedAt)
			if err != nil {
				return 0, err
			}
		}
	}

	if len(residuals) == 0 {
		return 0, nil
	}
	return floats.Norm(residuals, 2) / math.Sqrt(float64(len(residuals))), nil
}

// Loss computes the mean BCE loss of the given weights over the logs,
// without fitting. Useful for evaluating a candidate weight vector.
func (o *Optimizer) Loss(w srs.Weights, logs []srs.ReviewLog) (float64, error) {
	return datasetLoss(w, buildDataset(logs))
}
