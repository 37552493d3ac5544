package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// MessageRepository owns scheduled message rows, including the atomic claim
// the scheduler depends on for exactly-once processing.
type MessageRepository interface {
	// Schedule inserts a pending message.
	Schedule(ctx context.Context, msg model.ScheduledMessage) error

	// ClaimDue atomically claims up to limit pending messages due at or
	// before now. A message claimed by one caller is never returned to a
	// concurrent caller.
	ClaimDue(ctx context.Context, claimedBy string, now time.Time, limit int) ([]model.ScheduledMessage, error)

	MarkSent(ctx context.Context, id string) error

	MarkCancelled(ctx context.Context, id string) error

	// Reschedule returns a claimed message to pending with a new due time
	// after a failed attempt.
	Reschedule(ctx context.Context, id string, dueAt time.Time, attemptCount int, lastError string) error

	// MarkFailed moves a message to its terminal failed state.
	MarkFailed(ctx context.Context, id string, attemptCount int, lastError string) error

	// CancelPendingForEnrollment cancels every pending message of an
	// enrollment and reports how many were cancelled.
	CancelPendingForEnrollment(ctx context.Context, enrollmentID string) (int64, error)

	// CancelPendingForChannel cancels every pending message for a subject on
	// one channel, regardless of enrollment.
	CancelPendingForChannel(ctx context.Context, subjectID string, channel model.Channel) (int64, error)

	// ReleaseStale returns messages claimed before the cutoff to pending.
	// Covers instances that died between claiming and dispatching.
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a MessageRepository backed by PostgreSQL.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Schedule(ctx context.Context, msg model.ScheduledMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scheduled_messages
			(id, enrollment_id, subject_id, due_at, channel, template_id, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
	`, msg.ID, msg.EnrollmentID, msg.SubjectID, msg.DueAt, string(msg.Channel), msg.TemplateID, string(msg.Priority))
	if err != nil {
		return fmt.Errorf("schedule message: %w", err)
	}
	return nil
}

// ClaimDue uses FOR UPDATE SKIP LOCKED so concurrent ticks (or concurrent
// service instances) partition the due set instead of double-claiming rows.
func (r *messageRepository) ClaimDue(ctx context.Context, claimedBy string, now time.Time, limit int) ([]model.ScheduledMessage, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE scheduled_messages
		SET status = 'claimed', claimed_by = $1, claimed_at = $2, updated_at = $2
		WHERE id IN (
			SELECT id FROM scheduled_messages
			WHERE status = 'pending' AND due_at <= $2
			ORDER BY due_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, enrollment_id, subject_id, due_at, channel, template_id,
			priority, status, attempt_count, claimed_by, claimed_at, last_error,
			created_at, updated_at
	`, claimedBy, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ScheduledMessage
	for rows.Next() {
		var m model.ScheduledMessage
		if err := rows.Scan(&m.ID, &m.EnrollmentID, &m.SubjectID, &m.DueAt, &m.Channel, &m.TemplateID,
			&m.Priority, &m.Status, &m.AttemptCount, &m.ClaimedBy, &m.ClaimedAt, &m.LastError,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan claimed message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *messageRepository) MarkSent(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.MessageSent, "")
}

func (r *messageRepository) MarkCancelled(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.MessageCancelled, "")
}

func (r *messageRepository) setStatus(ctx context.Context, id string, status model.MessageStatus, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_messages
		SET status = $2, last_error = $3, updated_at = now()
		WHERE id = $1
	`, id, string(status), lastError)
	if err != nil {
		return fmt.Errorf("set message status: %w", err)
	}
	return nil
}

func (r *messageRepository) Reschedule(ctx context.Context, id string, dueAt time.Time, attemptCount int, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_messages
		SET status = 'pending', due_at = $2, attempt_count = $3, last_error = $4,
			claimed_by = '', claimed_at = NULL, updated_at = now()
		WHERE id = $1
	`, id, dueAt, attemptCount, lastError)
	if err != nil {
		return fmt.Errorf("reschedule message: %w", err)
	}
	return nil
}

func (r *messageRepository) MarkFailed(ctx context.Context, id string, attemptCount int, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_messages
		SET status = 'failed', attempt_count = $2, last_error = $3, updated_at = now()
		WHERE id = $1
	`, id, attemptCount, lastError)
	if err != nil {
		return fmt.Errorf("mark message failed: %w", err)
	}
	return nil
}

func (r *messageRepository) CancelPendingForEnrollment(ctx context.Context, enrollmentID string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE scheduled_messages
		SET status = 'cancelled', updated_at = now()
		WHERE enrollment_id = $1 AND status = 'pending'
	`, enrollmentID)
	if err != nil {
		return 0, fmt.Errorf("cancel enrollment messages: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *messageRepository) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE scheduled_messages
		SET status = 'pending', claimed_by = '', claimed_at = NULL, updated_at = now()
		WHERE status = 'claimed' AND claimed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *messageRepository) CancelPendingForChannel(ctx context.Context, subjectID string, channel model.Channel) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE scheduled_messages
		SET status = 'cancelled', updated_at = now()
		WHERE subject_id = $1 AND channel = $2 AND status = 'pending'
	`, subjectID, string(channel))
	if err != nil {
		return 0, fmt.Errorf("cancel channel messages: %w", err)
	}
	return ct.RowsAffected(), nil
}
