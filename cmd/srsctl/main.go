// srsctl is an operational CLI for the scheduling engine: inspect a
// deck's review queue, apply reviews, and run parameter optimization
// against a SQLite database.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stackcards/srs"
	"github.com/stackcards/srs/jobs"
	"github.com/stackcards/srs/optimizer"
	"github.com/stackcards/srs/store"
)

var (
	dbPath string
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

func main() {
	// .env is optional; flags and environment still apply without it.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "srsctl",
		Short:        "Spaced repetition scheduling engine CLI",
		SilenceUsage: true,
	}

	defaultDB := os.Getenv("SRS_DB")
	if defaultDB == "" {
		defaultDB = "srs.db"
	}
	root.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to the SQLite database")

	root.AddCommand(initCmd(), dueCmd(), reviewCmd(), optimizeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	return store.Open(dbPath, logger)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", dbPath)
			return nil
		},
	}
}

func dueCmd() *cobra.Command {
	var (
		deckID int64
		maxDue int
		maxNew int
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Print the review queue for a deck",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			cards, err := s.ListDeckCards(cmd.Context(), deckID)
			if err != nil {
				return err
			}
			queue := srs.BuildQueue(cards, nowUTC(), srs.QueueLimits{MaxDue: maxDue, MaxNew: maxNew})
			for _, id := range queue {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&deckID, "deck", 0, "deck ID")
	cmd.Flags().IntVar(&maxDue, "max-due", 200, "maximum due cards")
	cmd.Flags().IntVar(&maxNew, "max-new", 20, "maximum new cards")
	cmd.MarkFlagRequired("deck")
	return cmd
}

func reviewCmd() *cobra.Command {
	var (
		cardID     int64
		userID     string
		ratingName string
		durationMs int
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Apply a rating to a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rating srs.Rating
			if err := rating.UnmarshalText([]byte(ratingName)); err != nil {
				return err
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			card, err := s.GetCard(ctx, cardID)
			if err != nil {
				return err
			}

			params, err := s.ResolveParameters(ctx, userID, fmt.Sprint(card.DeckID))
			if err != nil {
				return err
			}
			sched, err := srs.NewScheduler(params, nil)
			if err != nil {
				return err
			}

			next, entry, err := sched.Apply(card, rating, nowUTC())
			if err != nil {
				return err
			}
			entry.UserID = userID
			entry.DurationMs = durationMs

			if _, err := s.UpdateCard(ctx, next); err != nil {
				return err
			}
			if err := s.AppendReviewLog(ctx, entry); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "card %d: %s, due %s (stability %.2f, difficulty %.2f)\n",
				next.CardID, next.State, next.Due.Format("2006-01-02 15:04"),
				next.Stability, next.Difficulty)
			return nil
		},
	}
	cmd.Flags().Int64Var(&cardID, "card", 0, "card ID")
	cmd.Flags().StringVar(&userID, "user", "", "reviewing user ID")
	cmd.Flags().StringVar(&ratingName, "rating", "", "Again, Hard, Good or Easy")
	cmd.Flags().IntVar(&durationMs, "duration-ms", 0, "time spent answering")
	cmd.MarkFlagRequired("card")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("rating")
	return cmd
}

func optimizeCmd() *cobra.Command {
	var (
		userID     string
		minSamples int
		maxIter    int
		apply      bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Fit personalized weights from a user's review history",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			threshold := -1.0 // record only
			if apply {
				threshold = 0.0
			}
			runner := jobs.NewRunner(s, jobs.RunnerConfig{
				ApplyThreshold: threshold,
				Optimizer: optimizer.Config{
					MinSamples:    minSamples,
					MaxIterations: maxIter,
				},
			}, logger, nil)

			res, err := runner.RunForUser(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "samples:     %d\n", res.SampleSize)
			fmt.Fprintf(out, "iterations:  %d\n", res.Iterations)
			fmt.Fprintf(out, "loss:        %.6f -> %.6f (%.2f%%)\n", res.LossBefore, res.LossAfter, res.ImprovementPercent)
			fmt.Fprintf(out, "rmse:        %.6f\n", res.RMSE)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to optimize")
	cmd.Flags().IntVar(&minSamples, "min-samples", 0, "minimum cross-day reviews (0 = default)")
	cmd.Flags().IntVar(&maxIter, "max-iterations", 0, "iteration cap (0 = default)")
	cmd.Flags().BoolVar(&apply, "apply", false, "promote fitted weights to the user's active layer")
	cmd.MarkFlagRequired("user")
	return cmd
}
