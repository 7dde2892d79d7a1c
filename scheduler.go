package srs

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

const dayDuration = 24 * time.Hour

// defaultFuzzSeed seeds the fuzz rng when the caller injects none. A
// fixed seed keeps scheduling reproducible; it is not a secret.
const defaultFuzzSeed = 0x5eed

// Scheduler applies review ratings to cards using the FSRS-5 algorithm.
//
// The scheduler is a pure state-transition function over cards: Apply
// returns the full next state and never mutates its input, so callers can
// pair it with optimistic-concurrency writes. The rng drives only the
// due-date fuzz; inject a seeded rand.Rand for reproducible schedules.
type Scheduler struct {
	params Parameters
	model  model
	rng    *rand.Rand
}

// NewScheduler creates a Scheduler for the given parameters. The
// parameters must satisfy Validate; rng may be nil, in which case fuzz
// uses a fixed-seed generator (never a global nondeterministic source).
func NewScheduler(params Parameters, rng *rand.Rand) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(defaultFuzzSeed))
	}
	return &Scheduler{
		params: params,
		model:  newModel(params),
		rng:    rng,
	}, nil
}

// Parameters returns a copy of the scheduler's effective parameters.
func (s *Scheduler) Parameters() Parameters {
	return s.params
}

// Apply processes a review of the card at the given time. It returns the
// updated card and a review log entry; the input card is not mutated.
//
// Invalid inputs (unknown rating, malformed card state, step index beyond
// the configured sequence) are rejected before any state is computed, so
// no partial transition ever escapes.
func (s *Scheduler) Apply(card Card, rating Rating, now time.Time) (Card, ReviewLog, error) {
	if err := s.checkInput(card, rating); err != nil {
		return Card{}, ReviewLog{}, err
	}

	c := card.clone()

	var elapsedDays float64
	if c.LastReview != nil {
		elapsedDays = now.Sub(*c.LastReview).Hours() / 24.0
		if elapsedDays < 0 {
			elapsedDays = 0
		}
	}

	before := c

	if err := s.updateMemory(&c, rating, elapsedDays); err != nil {
		return Card{}, ReviewLog{}, err
	}

	interval := s.transition(&c, rating)

	if s.params.EnableFuzz && c.State == Review {
		days := int(interval.Hours() / 24.0)
		if days > 0 {
			fuzzed := applyFuzz(days, s.params.MaximumInterval, s.params.FuzzFactor, s.rng)
			interval = time.Duration(fuzzed) * dayDuration
		}
	}

	c.ElapsedDays = elapsedDays
	c.ScheduledDays = interval.Hours() / 24.0
	c.Due = now.Add(interval)
	c.LastReview = &now
	c.Reps++

	entry := ReviewLog{
		CardID:           c.CardID,
		Rating:           rating,
		StabilityBefore:  before.Stability,
		StabilityAfter:   c.Stability,
		DifficultyBefore: before.Difficulty,
		DifficultyAfter:  c.Difficulty,
		ReviewedAt:       now,
	}

	return c, entry, nil
}

// Preview returns the outcome of reviewing the card with each possible rating.
func (s *Scheduler) Preview(card Card, now time.Time) (map[Rating]Card, error) {
	result := make(map[Rating]Card, 4)
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		c, _, err := s.Apply(card, r, now)
		if err != nil {
			return nil, err
		}
		result[r] = c
	}
	return result, nil
}

// Replay rebuilds the card's scheduling state by reapplying its review
// logs in order. Returns ErrCardIDMismatch if any log belongs to another
// card.
func (s *Scheduler) Replay(card Card, logs []ReviewLog) (Card, error) {
	c := card.clone()
	for _, entry := range logs {
		if entry.CardID != c.CardID {
			return Card{}, fmt.Errorf("%w: card %d, log %d", ErrCardIDMismatch, c.CardID, entry.CardID)
		}
		var err error
		c, _, err = s.Apply(c, entry.Rating, entry.ReviewedAt)
		if err != nil {
			return Card{}, err
		}
	}
	return c, nil
}

// Retrievability returns the probability of recall for the card at the
// given time. Returns 0 for cards that have never been reviewed.
func (s *Scheduler) Retrievability(card Card, now time.Time) float64 {
	if card.LastReview == nil || card.Stability <= 0 {
		return 0
	}
	elapsed := now.Sub(*card.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return s.model.retrievability(elapsed, card.Stability)
}

// checkInput validates the rating and card state before any mutation.
func (s *Scheduler) checkInput(c Card, rating Rating) error {
	if !rating.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	if !c.State.IsValid() {
		return fmt.Errorf("%w: state %d", ErrInvalidState, int(c.State))
	}
	if c.State == New {
		return nil
	}
	if c.Stability <= 0 {
		return fmt.Errorf("%w: stability %f in state %s", ErrInvalidState, c.Stability, c.State)
	}
	if c.Difficulty < 1 || c.Difficulty > 10 {
		return fmt.Errorf("%w: difficulty %f out of [1,10]", ErrInvalidState, c.Difficulty)
	}
	steps := s.stepsForState(c.State)
	if len(steps) > 0 && (c.Step < 0 || c.Step >= len(steps)) {
		return fmt.Errorf("%w: step %d beyond %d configured steps", ErrInvalidState, c.Step, len(steps))
	}
	return nil
}

// updateMemory computes the card's next stability and difficulty.
func (s *Scheduler) updateMemory(c *Card, rating Rating, elapsedDays float64) error {
	if c.State == New {
		// First review seeds stability and difficulty from the rating.
		c.Stability = s.model.initStability(rating)
		c.Difficulty = s.model.initDifficulty(rating, true)
		return finiteCheck(c.Stability, c.Difficulty)
	}

	stability := c.Stability
	difficulty := c.Difficulty

	if elapsedDays < 1 && s.params.EnableShortTerm {
		c.Stability = s.model.shortTermStability(stability, rating)
	} else {
		r := s.model.retrievability(elapsedDays, stability)
		if err := finiteCheck(r); err != nil {
			return err
		}
		c.Stability = s.model.nextStability(difficulty, stability, r, rating)
	}
	c.Difficulty = s.model.nextDifficulty(difficulty, rating)
	return finiteCheck(c.Stability, c.Difficulty)
}

// stepsForState returns the short-term step durations for the state.
func (s *Scheduler) stepsForState(state State) []time.Duration {
	switch state {
	case Learning:
		return s.params.LearningSteps
	case Relearning:
		return s.params.RelearningSteps
	default:
		return nil
	}
}

// transition applies the state machine and returns the scheduling interval.
func (s *Scheduler) transition(c *Card, rating Rating) time.Duration {
	switch c.State {
	case New:
		return s.transitionNew(c, rating)
	case Learning, Relearning:
		return s.transitionSteps(c, rating)
	default:
		return s.transitionReview(c, rating)
	}
}

// transitionNew handles a card's first review. A New card behaves as an
// implicit step 0 of the learning sequence: Again and Hard land on step
// 0, Good advances past it (graduating if the sequence has length 1),
// and Easy skips the steps entirely.
func (s *Scheduler) transitionNew(c *Card, rating Rating) time.Duration {
	if rating == Easy {
		c.State = Review
		c.Step = 0
		return time.Duration(s.params.EasyInterval) * dayDuration
	}
	steps := s.params.LearningSteps
	if len(steps) == 0 {
		return s.graduate(c)
	}
	c.State = Learning
	c.Step = 0
	if rating != Good {
		return steps[0]
	}
	if len(steps) == 1 {
		c.State = Review
		return time.Duration(s.params.GraduatingInterval) * dayDuration
	}
	c.Step = 1
	return steps[1]
}

// transitionSteps handles Learning and Relearning.
func (s *Scheduler) transitionSteps(c *Card, rating Rating) time.Duration {
	steps := s.stepsForState(c.State)
	if len(steps) == 0 {
		return s.graduate(c)
	}

	switch rating {
	case Again:
		c.Step = 0
		return steps[0]

	case Hard:
		// Hold the current step.
		return steps[c.Step]

	case Good:
		next := c.Step + 1
		if next >= len(steps) {
			if c.State == Learning {
				c.State = Review
				c.Step = 0
				return time.Duration(s.params.GraduatingInterval) * dayDuration
			}
			return s.graduate(c)
		}
		c.Step = next
		return steps[next]

	default: // Easy
		if c.State == Learning {
			c.State = Review
			c.Step = 0
			return time.Duration(s.params.EasyInterval) * dayDuration
		}
		return s.graduate(c)
	}
}

// transitionReview handles the long-term Review state. Again is a lapse:
// the card drops into Relearning and its lapse counter increments.
func (s *Scheduler) transitionReview(c *Card, rating Rating) time.Duration {
	if rating == Again {
		c.Lapses++
		if len(s.params.RelearningSteps) > 0 {
			c.State = Relearning
			c.Step = 0
			return s.params.RelearningSteps[0]
		}
		// No relearning steps configured: stay in Review.
	}
	return s.graduate(c)
}

// graduate moves the card to Review with the interval obtained by
// inverting the retrievability curve for the requested retention.
func (s *Scheduler) graduate(c *Card) time.Duration {
	c.State = Review
	c.Step = 0
	days := s.model.intervalDays(c.Stability, s.params.RequestRetention, s.params.MaximumInterval)
	return time.Duration(days) * dayDuration
}

// MarshalJSON implements json.Marshaler. Only the parameters are
// serialized; the fuzz rng state is not part of the configuration.
func (s *Scheduler) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.params)
}

// UnmarshalJSON implements json.Unmarshaler. The rebuilt scheduler uses
// the default fixed-seed fuzz source.
func (s *Scheduler) UnmarshalJSON(data []byte) error {
	var p Parameters
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	rebuilt, err := NewScheduler(p, nil)
	if err != nil {
		return err
	}
	*s = *rebuilt
	return nil
}
