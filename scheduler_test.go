package srs

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func noFuzzParams() Parameters {
	p := DefaultParameters()
	p.EnableFuzz = false
	return p
}

func mustScheduler(t *testing.T, p Parameters) *Scheduler {
	t.Helper()
	s, err := NewScheduler(p, nil)
	require.NoError(t, err)
	return s
}

// reviewCard builds a Review-state card with the given memory state,
// last reviewed daysAgo days before t0.
func reviewCard(id int64, stability, difficulty float64, daysAgo int) Card {
	last := t0.Add(-time.Duration(daysAgo) * dayDuration)
	return Card{
		CardID:     id,
		State:      Review,
		Stability:  stability,
		Difficulty: difficulty,
		Due:        t0,
		LastReview: &last,
		Reps:       3,
		CreatedAt:  last,
	}
}

// --- NewScheduler ---

func TestNewSchedulerDefaults(t *testing.T) {
	s := mustScheduler(t, DefaultParameters())
	require.NotNil(t, s)
	assert.Equal(t, 0.9, s.Parameters().RequestRetention)
}

func TestNewSchedulerInvalidWeight(t *testing.T) {
	p := DefaultParameters()
	p.Weights[0] = -1.0 // below lower bound
	_, err := NewScheduler(p, nil)
	require.ErrorIs(t, err, ErrParameterInvariant)
}

func TestNewSchedulerInvalidRetention(t *testing.T) {
	for _, retention := range []float64{0, 1, 1.5, -0.1} {
		p := DefaultParameters()
		p.RequestRetention = retention
		_, err := NewScheduler(p, nil)
		require.ErrorIs(t, err, ErrParameterInvariant, "retention %f", retention)
	}
}

func TestNewSchedulerInvalidSteps(t *testing.T) {
	p := DefaultParameters()
	p.LearningSteps = []time.Duration{time.Minute, -time.Minute}
	_, err := NewScheduler(p, nil)
	require.ErrorIs(t, err, ErrParameterInvariant)
}

// --- First review (New state) ---

func TestFirstReviewAgain(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, entry, err := s.Apply(NewCard(1, t0), Again, t0)
	require.NoError(t, err)

	assert.Equal(t, Learning, c.State)
	assert.Equal(t, 0, c.Step)
	assert.InDelta(t, s.model.initStability(Again), c.Stability, 1e-12)
	assert.InDelta(t, s.model.initDifficulty(Again, true), c.Difficulty, 1e-12)
	assert.Equal(t, t0.Add(time.Minute), c.Due)
	assert.Equal(t, 1, c.Reps)
	assert.Equal(t, 0, c.Lapses)

	assert.Equal(t, 0.0, entry.StabilityBefore)
	assert.Equal(t, c.Stability, entry.StabilityAfter)
	assert.Equal(t, t0, entry.ReviewedAt)
}

func TestFirstReviewHardHoldsFirstStep(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, _, err := s.Apply(NewCard(1, t0), Hard, t0)
	require.NoError(t, err)

	assert.Equal(t, Learning, c.State)
	assert.Equal(t, 0, c.Step)
	assert.Equal(t, t0.Add(time.Minute), c.Due)
}

// A brand-new card rated Good advances past the implicit first step:
// Learning at step 1, due after the second learning step.
func TestFirstReviewGoodAdvancesToSecondStep(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, _, err := s.Apply(NewCard(1, t0), Good, t0)
	require.NoError(t, err)

	assert.Equal(t, Learning, c.State)
	assert.Equal(t, 1, c.Step)
	assert.Equal(t, t0.Add(10*time.Minute), c.Due)
	assert.InDelta(t, s.model.initStability(Good), c.Stability, 1e-12)
}

func TestFirstReviewGoodSingleStepGraduates(t *testing.T) {
	p := noFuzzParams()
	p.LearningSteps = []time.Duration{time.Minute}
	s := mustScheduler(t, p)
	c, _, err := s.Apply(NewCard(1, t0), Good, t0)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Equal(t, t0.Add(time.Duration(p.GraduatingInterval)*dayDuration), c.Due)
}

func TestFirstReviewEasySkipsSteps(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, _, err := s.Apply(NewCard(1, t0), Easy, t0)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Equal(t, t0.Add(4*dayDuration), c.Due)
	assert.InDelta(t, 4.0, c.ScheduledDays, 1e-12)
	assert.InDelta(t, s.model.initStability(Easy), c.Stability, 1e-12)
}

func TestFirstReviewDeterministic(t *testing.T) {
	run := func() (Card, ReviewLog) {
		s := mustScheduler(t, DefaultParameters())
		c, entry, err := s.Apply(NewCard(7, t0), Good, t0)
		require.NoError(t, err)
		return c, entry
	}
	c1, l1 := run()
	c2, l2 := run()
	assert.Equal(t, c1, c2)
	assert.Equal(t, l1, l2)
}

// --- Learning steps ---

func learningCard(t *testing.T, s *Scheduler) Card {
	t.Helper()
	c, _, err := s.Apply(NewCard(1, t0), Good, t0)
	require.NoError(t, err)
	require.Equal(t, Learning, c.State)
	require.Equal(t, 1, c.Step)
	return c
}

func TestLearningAgainResetsStep(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c := learningCard(t, s)

	now := c.Due
	c, _, err := s.Apply(c, Again, now)
	require.NoError(t, err)

	assert.Equal(t, Learning, c.State)
	assert.Equal(t, 0, c.Step)
	assert.Equal(t, now.Add(time.Minute), c.Due)
}

func TestLearningHardHoldsStep(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c := learningCard(t, s)

	now := c.Due
	c, _, err := s.Apply(c, Hard, now)
	require.NoError(t, err)

	assert.Equal(t, Learning, c.State)
	assert.Equal(t, 1, c.Step)
	assert.Equal(t, now.Add(10*time.Minute), c.Due)
}

func TestLearningGoodGraduates(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c := learningCard(t, s)

	now := c.Due
	c, _, err := s.Apply(c, Good, now)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Equal(t, 0, c.Step)
	assert.Equal(t, now.Add(dayDuration), c.Due) // GraduatingInterval = 1 day
}

func TestLearningEasyGraduatesWithEasyInterval(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c := learningCard(t, s)

	now := c.Due
	c, _, err := s.Apply(c, Easy, now)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Equal(t, now.Add(4*dayDuration), c.Due)
}

// --- Review state ---

// A lapse moves the card to Relearning, shrinks stability and counts
// exactly one lapse.
func TestReviewLapse(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	card := reviewCard(1, 10, 5, 10)

	c, entry, err := s.Apply(card, Again, t0)
	require.NoError(t, err)

	assert.Equal(t, Relearning, c.State)
	assert.Equal(t, 0, c.Step)
	assert.Less(t, c.Stability, 10.0)
	assert.Greater(t, c.Stability, 0.0)
	assert.Equal(t, 1, c.Lapses)
	assert.Equal(t, t0.Add(10*time.Minute), c.Due) // first relearning step

	assert.Equal(t, 10.0, entry.StabilityBefore)
	assert.Equal(t, c.Stability, entry.StabilityAfter)
}

func TestReviewLapseWithoutRelearningSteps(t *testing.T) {
	p := noFuzzParams()
	p.RelearningSteps = []time.Duration{}
	s := mustScheduler(t, p)

	c, _, err := s.Apply(reviewCard(1, 10, 5, 10), Again, t0)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Equal(t, 1, c.Lapses)
	assert.True(t, c.Due.After(t0))
}

func TestReviewSuccessUpdatesMemory(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	card := reviewCard(1, 10, 5, 12)

	c, _, err := s.Apply(card, Good, t0)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Greater(t, c.Stability, 10.0)
	assert.GreaterOrEqual(t, c.Difficulty, 1.0)
	assert.LessOrEqual(t, c.Difficulty, 10.0)
	assert.True(t, c.Due.After(t0))
	assert.InDelta(t, 12.0, c.ElapsedDays, 1e-9)
	assert.Equal(t, 4, c.Reps)
}

func TestReviewEasyDecreasesDifficulty(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, _, err := s.Apply(reviewCard(1, 10, 5, 10), Easy, t0)
	require.NoError(t, err)
	assert.Less(t, c.Difficulty, 5.0)
}

func TestReviewAgainIncreasesDifficulty(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, _, err := s.Apply(reviewCard(1, 10, 5, 10), Again, t0)
	require.NoError(t, err)
	assert.Greater(t, c.Difficulty, 5.0)
}

// Repeated Easy reviews produce nondecreasing intervals, capped at the
// maximum interval.
func TestRepeatedEasyIntervalsMonotone(t *testing.T) {
	p := noFuzzParams()
	p.MaximumInterval = 60
	s := mustScheduler(t, p)

	c, _, err := s.Apply(NewCard(1, t0), Easy, t0)
	require.NoError(t, err)
	require.Equal(t, Review, c.State)

	prev := c.ScheduledDays
	for i := 0; i < 20; i++ {
		now := c.Due
		c, _, err = s.Apply(c, Easy, now)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, c.ScheduledDays, prev, "iteration %d", i)
		assert.LessOrEqual(t, c.ScheduledDays, float64(p.MaximumInterval), "iteration %d", i)
		prev = c.ScheduledDays
	}
	assert.Equal(t, float64(p.MaximumInterval), prev)
}

// --- Relearning ---

func TestRelearningGoodGraduates(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c, _, err := s.Apply(reviewCard(1, 10, 5, 10), Again, t0)
	require.NoError(t, err)
	require.Equal(t, Relearning, c.State)

	now := c.Due
	c, _, err = s.Apply(c, Good, now)
	require.NoError(t, err)

	assert.Equal(t, Review, c.State)
	assert.Equal(t, 0, c.Step)
	assert.True(t, c.Due.After(now))
	assert.GreaterOrEqual(t, c.ScheduledDays, 1.0)
}

// --- Input validation ---

func TestApplyRejectsInvalidRating(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	_, _, err := s.Apply(NewCard(1, t0), Rating(5), t0)
	require.ErrorIs(t, err, ErrInvalidRating)

	_, _, err = s.Apply(NewCard(1, t0), Rating(0), t0)
	require.ErrorIs(t, err, ErrInvalidRating)
}

func TestApplyRejectsNonPositiveStability(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	card := reviewCard(1, 0, 5, 10)
	_, _, err := s.Apply(card, Good, t0)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyRejectsOutOfRangeDifficulty(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	card := reviewCard(1, 10, 11, 10)
	_, _, err := s.Apply(card, Good, t0)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyRejectsStepOverflow(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	c := learningCard(t, s)
	c.Step = 2 // beyond the two configured learning steps
	_, _, err := s.Apply(c, Good, t0)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	card := reviewCard(1, 10, 5, 10)
	snapshot := card.clone()

	_, _, err := s.Apply(card, Good, t0)
	require.NoError(t, err)
	assert.Equal(t, snapshot, card)
}

// --- Fuzz determinism ---

func TestFuzzedScheduleReproducible(t *testing.T) {
	run := func(seed int64) time.Time {
		p := DefaultParameters()
		p.FuzzFactor = 0.1
		s, err := NewScheduler(p, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		c, _, err := s.Apply(reviewCard(1, 40, 4, 40), Good, t0)
		require.NoError(t, err)
		return c.Due
	}

	assert.Equal(t, run(11), run(11))
	assert.Equal(t, run(99), run(99))
}

// --- Preview / Replay / Retrievability ---

func TestPreviewCoversAllRatings(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	out, err := s.Preview(reviewCard(1, 10, 5, 10), t0)
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, Relearning, out[Again].State)
	for _, r := range []Rating{Hard, Good, Easy} {
		assert.Equal(t, Review, out[r].State)
	}
	// Longer intervals for better ratings.
	assert.True(t, out[Hard].ScheduledDays <= out[Good].ScheduledDays)
	assert.True(t, out[Good].ScheduledDays <= out[Easy].ScheduledDays)
}

func TestReplayRebuildsState(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())

	card := NewCard(1, t0)
	var logs []ReviewLog
	expected := card
	now := t0
	for _, r := range []Rating{Good, Good, Good, Again, Good} {
		var entry ReviewLog
		var err error
		expected, entry, err = s.Apply(expected, r, now)
		require.NoError(t, err)
		logs = append(logs, entry)
		now = expected.Due
	}

	replayed, err := s.Replay(NewCard(1, t0), logs)
	require.NoError(t, err)
	assert.Equal(t, expected, replayed)
}

func TestReplayRejectsForeignLogs(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())
	logs := []ReviewLog{{CardID: 2, Rating: Good, ReviewedAt: t0}}
	_, err := s.Replay(NewCard(1, t0), logs)
	require.ErrorIs(t, err, ErrCardIDMismatch)
}

func TestRetrievability(t *testing.T) {
	s := mustScheduler(t, noFuzzParams())

	assert.Equal(t, 0.0, s.Retrievability(NewCard(1, t0), t0))

	card := reviewCard(1, 10, 5, 0)
	last := t0
	card.LastReview = &last

	r0 := s.Retrievability(card, t0)
	assert.InDelta(t, 1.0, r0, 1e-12)

	prev := r0
	for days := 1; days <= 100; days += 7 {
		r := s.Retrievability(card, t0.Add(time.Duration(days)*dayDuration))
		assert.Less(t, r, prev)
		assert.Greater(t, r, 0.0)
		prev = r
	}
}

// --- JSON round trip ---

func TestSchedulerJSONRoundTrip(t *testing.T) {
	p := noFuzzParams()
	p.RequestRetention = 0.85
	s := mustScheduler(t, p)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored Scheduler
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, s.Parameters(), restored.Parameters())

	c1, _, err := s.Apply(reviewCard(1, 10, 5, 10), Good, t0)
	require.NoError(t, err)
	c2, _, err := restored.Apply(reviewCard(1, 10, 5, 10), Good, t0)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}
