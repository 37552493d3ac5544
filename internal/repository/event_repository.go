package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// EventRepository defines event store operations. The store is append-only;
// insertion is idempotent on the event id.
type EventRepository interface {
	// Insert appends a single event. It reports false when an event with
	// the same id was already stored (duplicate delivery).
	Insert(ctx context.Context, event model.Event) (bool, error)

	// CountSince counts a subject's events of one type since a point in time.
	CountSince(ctx context.Context, subjectID, eventType string, since time.Time) (int64, error)

	// ListBySubject returns a subject's events, time-ordered. eventType may
	// be empty to include all types.
	ListBySubject(ctx context.Context, subjectID, eventType string, since time.Time) ([]model.Event, error)

	// PurgeBefore deletes events older than the cutoff and reports how many.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates an EventRepository backed by PostgreSQL.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

const insertEventQuery = `
	INSERT INTO events (id, subject_id, event_type, channel, attributes, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
`

func (r *eventRepository) Insert(ctx context.Context, event model.Event) (bool, error) {
	attributes, err := marshalAttributes(event.Attributes)
	if err != nil {
		return false, err
	}

	ct, err := r.pool.Exec(ctx, insertEventQuery,
		event.ID,
		event.SubjectID,
		event.Type,
		event.Channel,
		attributes,
		event.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

func (r *eventRepository) CountSince(ctx context.Context, subjectID, eventType string, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events
		WHERE subject_id = $1 AND event_type = $2 AND occurred_at >= $3
	`, subjectID, eventType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (r *eventRepository) ListBySubject(ctx context.Context, subjectID, eventType string, since time.Time) ([]model.Event, error) {
	query := `
		SELECT id, subject_id, event_type, channel, attributes, occurred_at, ingested_at
		FROM events
		WHERE subject_id = $1 AND occurred_at >= $2
	`
	args := []interface{}{subjectID, since}
	if eventType != "" {
		query += " AND event_type = $3"
		args = append(args, eventType)
	}
	query += " ORDER BY occurred_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var attributes []byte
		if err := rows.Scan(&ev.ID, &ev.SubjectID, &ev.Type, &ev.Channel, &attributes, &ev.OccurredAt, &ev.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(attributes) > 0 {
			if err := json.Unmarshal(attributes, &ev.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal attributes: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *eventRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return ct.RowsAffected(), nil
}

func marshalAttributes(attributes map[string]interface{}) ([]byte, error) {
	if attributes == nil {
		return nil, nil // JSONB null
	}
	b, err := json.Marshal(attributes)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return b, nil
}
