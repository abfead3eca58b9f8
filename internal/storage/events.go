package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/lueurxax/event-scout/internal/core/domain"
	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

// ListEvents returns the whole catalog in insertion order.
func (db *DB) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, date, description, link, category, verified, updated_at, embedding
		FROM events
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event

	for rows.Next() {
		var (
			id        pgtype.UUID
			updatedAt pgtype.Timestamptz
			embedding *pgvector.Vector
			e         domain.Event
		)

		if err := rows.Scan(&id, &e.Title, &e.Date, &e.Description, &e.Link, &e.Category, &e.Verified, &updatedAt, &embedding); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.ID = fromUUID(id)
		e.UpdatedAt = fromTimestamptz(updatedAt)
		e.Embedding = fromVector(embedding)

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// InsertEvent stores a new event and returns its id.
func (db *DB) InsertEvent(ctx context.Context, e domain.Event) (string, error) {
	id := uuid.New()
	if e.ID != "" {
		if parsed, err := uuid.Parse(e.ID); err == nil {
			id = parsed
		}
	}

	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = db.now().UTC()
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO events (id, title, date, description, link, category, verified, updated_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		pgtype.UUID{Bytes: id, Valid: true},
		SanitizeUTF8(e.Title),
		e.Date,
		SanitizeUTF8(e.Description),
		e.Link,
		e.Category,
		e.Verified,
		updatedAt,
		toVector(e.Embedding),
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	return id.String(), nil
}

// UpdateEvent overwrites the mutable fields of an existing event. ID and
// title are immutable.
func (db *DB) UpdateEvent(ctx context.Context, e domain.Event) error {
	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = db.now().UTC()
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE events
		SET date = $2, description = $3, link = $4, category = $5,
		    verified = $6, updated_at = $7, embedding = COALESCE($8, embedding)
		WHERE id = $1
	`,
		toUUID(e.ID),
		e.Date,
		SanitizeUTF8(e.Description),
		e.Link,
		e.Category,
		e.Verified,
		updatedAt,
		toVector(e.Embedding),
	)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event %s: %w", e.ID, coreerrors.ErrNotFound)
	}

	return nil
}

// SetEventEmbedding stores a lazily computed embedding without touching updated_at.
func (db *DB) SetEventEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return nil
	}

	if _, err := db.Pool.Exec(ctx, `UPDATE events SET embedding = $2 WHERE id = $1`, toUUID(id), pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("set embedding for %s: %w", id, err)
	}

	return nil
}

// CountEvents returns the catalog size.
func (db *DB) CountEvents(ctx context.Context) (int, error) {
	var n int

	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}

	return n, nil
}

// WithClock overrides the timestamp source used for defaults.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}
