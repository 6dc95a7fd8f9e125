package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/secretary"
)

// ListEvents returns events overlapping [from, to), ordered by start.
func (d *DB) ListEvents(ctx context.Context, from, to time.Time) ([]secretary.Event, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, description, location, start_at, end_at
		FROM events WHERE start_at < ? AND end_at > ?
		ORDER BY start_at, id
	`, toUnix(to), toUnix(from))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list events: %w", err)
	}
	defer rows.Close()

	var events []secretary.Event
	for rows.Next() {
		var (
			e          secretary.Event
			start, end int64
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &start, &end); err != nil {
			return nil, fmt.Errorf("sqlite: scan event: %w", err)
		}
		e.Start, e.End = fromUnix(start), fromUnix(end)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list events: %w", err)
	}
	return events, nil
}

// CreateEvent stores e and returns it with its assigned id. An event with
// no end lasts one hour.
func (d *DB) CreateEvent(ctx context.Context, e secretary.Event) (secretary.Event, error) {
	if e.Title == "" {
		return secretary.Event{}, fmt.Errorf("sqlite: event title required: %w", secretary.ErrValidation)
	}
	if e.Start.IsZero() {
		return secretary.Event{}, fmt.Errorf("sqlite: event start required: %w", secretary.ErrValidation)
	}
	if e.End.IsZero() {
		e.End = e.Start.Add(time.Hour)
	}
	if e.End.Before(e.Start) {
		return secretary.Event{}, fmt.Errorf("sqlite: event ends before it starts: %w", secretary.ErrValidation)
	}
	if e.ID == "" {
		e.ID = d.newID()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, location, start_at, end_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Title, e.Description, e.Location, toUnix(e.Start), toUnix(e.End))
	if err != nil {
		return secretary.Event{}, fmt.Errorf("sqlite: insert event: %w", err)
	}
	e.Start, e.End = e.Start.UTC(), e.End.UTC()
	return e, nil
}
