package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// EnrollmentRepository owns enrollment rows. The partial unique index on
// active (subject, campaign) pairs backs the idempotent-enroll invariant.
type EnrollmentRepository interface {
	// Insert creates an active enrollment at step 0. When an active
	// enrollment already exists for (subject, campaign) it returns that
	// enrollment and created=false.
	Insert(ctx context.Context, enrollment model.Enrollment) (model.Enrollment, bool, error)

	Get(ctx context.Context, id string) (model.Enrollment, error)

	ListBySubject(ctx context.Context, subjectID string) ([]model.Enrollment, error)

	// ListActiveByChannel returns active enrollments for the subject whose
	// campaign has at least one step on the channel.
	ListActiveByChannel(ctx context.Context, subjectID string, channel model.Channel) ([]model.Enrollment, error)

	// SetStep advances the current step index of an active enrollment.
	SetStep(ctx context.Context, id string, step int) error

	// Transition moves an enrollment between statuses. It reports false when
	// the enrollment was not in any of the expected source statuses.
	Transition(ctx context.Context, id string, from []model.EnrollmentStatus, to model.EnrollmentStatus, reason string, completedAt *time.Time) (bool, error)
}

type enrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates an EnrollmentRepository backed by PostgreSQL.
func NewEnrollmentRepository(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepository{pool: pool}
}

func (r *enrollmentRepository) Insert(ctx context.Context, e model.Enrollment) (model.Enrollment, bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO enrollments (id, subject_id, campaign_id, current_step, status, enrolled_at)
		VALUES ($1, $2, $3, 0, 'active', $4)
		ON CONFLICT (subject_id, campaign_id) WHERE status = 'active' DO NOTHING
	`, e.ID, e.SubjectID, e.CampaignID, e.EnrolledAt)
	if err != nil {
		return model.Enrollment{}, false, fmt.Errorf("insert enrollment: %w", err)
	}

	if ct.RowsAffected() > 0 {
		e.CurrentStep = 0
		e.Status = model.EnrollmentActive
		return e, true, nil
	}

	existing, err := r.getActive(ctx, e.SubjectID, e.CampaignID)
	if err != nil {
		return model.Enrollment{}, false, err
	}
	return existing, false, nil
}

func (r *enrollmentRepository) getActive(ctx context.Context, subjectID, campaignID string) (model.Enrollment, error) {
	row := r.pool.QueryRow(ctx, selectEnrollment+`
		WHERE subject_id = $1 AND campaign_id = $2 AND status = 'active'
	`, subjectID, campaignID)
	return scanEnrollment(row)
}

const selectEnrollment = `
	SELECT id, subject_id, campaign_id, current_step, status, stop_reason, enrolled_at, completed_at
	FROM enrollments
`

func scanEnrollment(row pgx.Row) (model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(&e.ID, &e.SubjectID, &e.CampaignID, &e.CurrentStep, &e.Status, &e.StopReason, &e.EnrolledAt, &e.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Enrollment{}, fmt.Errorf("enrollment: %w", ErrNotFound)
	}
	if err != nil {
		return model.Enrollment{}, fmt.Errorf("scan enrollment: %w", err)
	}
	return e, nil
}

func (r *enrollmentRepository) Get(ctx context.Context, id string) (model.Enrollment, error) {
	row := r.pool.QueryRow(ctx, selectEnrollment+` WHERE id = $1`, id)
	return scanEnrollment(row)
}

func (r *enrollmentRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Enrollment, error) {
	rows, err := r.pool.Query(ctx, selectEnrollment+`
		WHERE subject_id = $1 ORDER BY enrolled_at
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()
	return collectEnrollments(rows)
}

func (r *enrollmentRepository) ListActiveByChannel(ctx context.Context, subjectID string, channel model.Channel) ([]model.Enrollment, error) {
	rows, err := r.pool.Query(ctx, selectEnrollment+`
		WHERE subject_id = $1 AND status = 'active' AND campaign_id IN (
			SELECT DISTINCT campaign_id FROM campaign_steps WHERE channel = $2
		)
	`, subjectID, string(channel))
	if err != nil {
		return nil, fmt.Errorf("list active enrollments by channel: %w", err)
	}
	defer rows.Close()
	return collectEnrollments(rows)
}

func collectEnrollments(rows pgx.Rows) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (r *enrollmentRepository) SetStep(ctx context.Context, id string, step int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE enrollments SET current_step = $2 WHERE id = $1 AND status = 'active'
	`, id, step)
	if err != nil {
		return fmt.Errorf("set enrollment step: %w", err)
	}
	return nil
}

func (r *enrollmentRepository) Transition(ctx context.Context, id string, from []model.EnrollmentStatus, to model.EnrollmentStatus, reason string, completedAt *time.Time) (bool, error) {
	sources := make([]string, 0, len(from))
	for _, s := range from {
		sources = append(sources, string(s))
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE enrollments
		SET status = $2, stop_reason = $3, completed_at = $4
		WHERE id = $1 AND status = ANY($5)
	`, id, string(to), reason, completedAt, sources)
	if err != nil {
		return false, fmt.Errorf("transition enrollment: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
