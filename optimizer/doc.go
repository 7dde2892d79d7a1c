// Package optimizer fits personalized FSRS-5 weights from review logs.
//
// [Optimizer.Fit] minimizes binary cross-entropy between the recall
// outcome of each cross-day review and the retrievability the memory
// model predicts just before it, replaying every card's history under the
// candidate weights. Gradients are numerical central differences, stepped
// with [Adam] under a [CosineAnnealing] learning-rate schedule, iterating
// until the loss improvement falls below the convergence threshold or the
// iteration cap is hit. The fit never touches stored weights: it returns
// a [Result] holding the weights before and after, the loss on both, the
// relative improvement, RMSE, sample size and iterations run, and the
// caller decides whether to persist.
//
//	opt := optimizer.New(optimizer.Config{})
//	res, err := opt.Fit(ctx, logs, srs.DefaultWeights)
//
// [Optimizer.OptimalRetention] additionally estimates the retention
// target that minimizes review cost via Monte Carlo simulation; it
// requires DurationMs on every log.
package optimizer
