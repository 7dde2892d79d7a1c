package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stackcards/srs"
)

type cardRow struct {
	ID            int64        `db:"id"`
	DeckID        int64        `db:"deck_id"`
	State         string       `db:"state"`
	Step          int          `db:"step"`
	Stability     float64      `db:"stability"`
	Difficulty    float64      `db:"difficulty"`
	Due           time.Time    `db:"due"`
	LastReview    sql.NullTime `db:"last_review"`
	Reps          int          `db:"reps"`
	Lapses        int          `db:"lapses"`
	ElapsedDays   float64      `db:"elapsed_days"`
	ScheduledDays float64      `db:"scheduled_days"`
	CreatedAt     time.Time    `db:"created_at"`
	Version       int64        `db:"version"`
}

func (r cardRow) toCard() (srs.Card, error) {
	var state srs.State
	if err := state.UnmarshalText([]byte(r.State)); err != nil {
		return srs.Card{}, err
	}
	c := srs.Card{
		CardID:        r.ID,
		DeckID:        r.DeckID,
		State:         state,
		Step:          r.Step,
		Stability:     r.Stability,
		Difficulty:    r.Difficulty,
		Due:           r.Due,
		Reps:          r.Reps,
		Lapses:        r.Lapses,
		ElapsedDays:   r.ElapsedDays,
		ScheduledDays: r.ScheduledDays,
		CreatedAt:     r.CreatedAt,
		Version:       r.Version,
	}
	if r.LastReview.Valid {
		t := r.LastReview.Time
		c.LastReview = &t
	}
	return c, nil
}

func toCardRow(c srs.Card) cardRow {
	r := cardRow{
		ID:            c.CardID,
		DeckID:        c.DeckID,
		State:         c.State.String(),
		Step:          c.Step,
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		Due:           c.Due,
		Reps:          c.Reps,
		Lapses:        c.Lapses,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		CreatedAt:     c.CreatedAt,
		Version:       c.Version,
	}
	if c.LastReview != nil {
		r.LastReview = sql.NullTime{Time: *c.LastReview, Valid: true}
	}
	return r
}

// InsertCard stores a new card at version 0.
func (s *Store) InsertCard(ctx context.Context, card srs.Card) error {
	row := toCardRow(card)
	row.Version = 0
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO cards (id, deck_id, state, step, stability, difficulty, due,
			last_review, reps, lapses, elapsed_days, scheduled_days, created_at, version)
		VALUES (:id, :deck_id, :state, :step, :stability, :difficulty, :due,
			:last_review, :reps, :lapses, :elapsed_days, :scheduled_days, :created_at, :version)`,
		row)
	if err != nil {
		return fmt.Errorf("store: insert card %d: %w", card.CardID, err)
	}
	return nil
}

// GetCard looks up a card by ID. The returned card carries the current
// version token for a later UpdateCard.
func (s *Store) GetCard(ctx context.Context, id int64) (srs.Card, error) {
	var row cardRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return srs.Card{}, fmt.Errorf("%w: card %d", ErrNotFound, id)
	}
	if err != nil {
		return srs.Card{}, fmt.Errorf("store: get card %d: %w", id, err)
	}
	return row.toCard()
}

// ListDeckCards returns every card in a deck, ordered by creation then ID.
func (s *Store) ListDeckCards(ctx context.Context, deckID int64) ([]srs.Card, error) {
	var rows []cardRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM cards WHERE deck_id = ? ORDER BY created_at, id`, deckID)
	if err != nil {
		return nil, fmt.Errorf("store: list deck %d cards: %w", deckID, err)
	}
	cards := make([]srs.Card, 0, len(rows))
	for _, r := range rows {
		c, err := r.toCard()
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// UpdateCard writes the card's new state with compare-and-swap on the
// version token. card.Version must be the version the caller read; on
// success the stored version is card.Version+1 and the returned card
// reflects it. Returns ErrVersionConflict when another writer got there
// first.
func (s *Store) UpdateCard(ctx context.Context, card srs.Card) (srs.Card, error) {
	row := toCardRow(card)
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE cards SET
			deck_id = :deck_id, state = :state, step = :step,
			stability = :stability, difficulty = :difficulty, due = :due,
			last_review = :last_review, reps = :reps, lapses = :lapses,
			elapsed_days = :elapsed_days, scheduled_days = :scheduled_days,
			version = :version + 1
		WHERE id = :id AND version = :version`,
		row)
	if err != nil {
		return srs.Card{}, fmt.Errorf("store: update card %d: %w", card.CardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return srs.Card{}, fmt.Errorf("store: update card %d: %w", card.CardID, err)
	}
	if n == 0 {
		s.log.Warn("card update lost version race", "card_id", card.CardID, "version", card.Version)
		return srs.Card{}, fmt.Errorf("%w: card %d at version %d", ErrVersionConflict, card.CardID, card.Version)
	}
	card.Version++
	return card, nil
}
