// Package srs implements an FSRS-5 spaced repetition scheduling engine.
//
// srs provides a pure-Go Scheduler for computing review intervals from a
// 19-weight memory model, a layered parameter resolver (built-in defaults,
// per-user fitted weights, per-deck overrides), and a deterministic review
// queue builder. Parameter fitting from historical review logs lives in the
// srs/optimizer subpackage; a SQLite-backed repository and a background
// optimization runner live in srs/store and srs/jobs.
//
// Basic usage:
//
//	params := srs.DefaultParameters()
//	s, err := srs.NewScheduler(params, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	card := srs.NewCard(1, time.Now())
//	card, entry, err := s.Apply(card, srs.Good, time.Now())
package srs
