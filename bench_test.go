package srs

import (
	"testing"
	"time"
)

func BenchmarkApplyReview(b *testing.B) {
	p := DefaultParameters()
	p.EnableFuzz = false
	s, err := NewScheduler(p, nil)
	if err != nil {
		b.Fatal(err)
	}
	last := t0.Add(-10 * dayDuration)
	card := Card{CardID: 1, State: Review, Stability: 10, Difficulty: 5, LastReview: &last}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := s.Apply(card, Good, t0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRetrievability(b *testing.B) {
	s, err := NewScheduler(DefaultParameters(), nil)
	if err != nil {
		b.Fatal(err)
	}
	last := t0.Add(-10 * dayDuration)
	card := Card{CardID: 1, State: Review, Stability: 10, Difficulty: 5, LastReview: &last}
	now := t0.Add(5 * time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Retrievability(card, now)
	}
}

func BenchmarkBuildQueue(b *testing.B) {
	cards := make([]Card, 0, 2000)
	for i := int64(0); i < 2000; i++ {
		if i%3 == 0 {
			cards = append(cards, NewCard(i, t0.Add(-time.Duration(i)*time.Minute)))
			continue
		}
		last := t0.Add(-time.Duration(i%40) * dayDuration)
		cards = append(cards, Card{
			CardID: i, State: Review, Stability: 5, Difficulty: 5,
			Due: t0.Add(-time.Duration(i%15) * dayDuration), LastReview: &last,
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildQueue(cards, t0, QueueLimits{MaxDue: 200, MaxNew: 20})
	}
}
