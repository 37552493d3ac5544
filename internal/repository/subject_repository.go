package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// SubjectRepository owns the minimal per-subject state the engine needs:
// contact projection, score, tags, channel opt-outs and follow-up tasks.
type SubjectRepository interface {
	Get(ctx context.Context, id string) (model.Subject, error)

	// UpsertContact creates or refreshes the contact projection. Empty
	// fields leave the stored value untouched.
	UpsertContact(ctx context.Context, id, name, email, phone string) error

	// AdjustScore applies a delta and returns the new score.
	AdjustScore(ctx context.Context, id string, delta int) (int, error)

	AddTag(ctx context.Context, id, tag string) error
	RemoveTag(ctx context.Context, id, tag string) error

	// RecordOptOut marks a channel as off-limits for the subject.
	RecordOptOut(ctx context.Context, id string, channel model.Channel) error

	// IsOptedOut reports whether the subject opted out of the channel.
	IsOptedOut(ctx context.Context, id string, channel model.Channel) (bool, error)

	CreateTask(ctx context.Context, task model.Task) error
}

type subjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository creates a SubjectRepository backed by PostgreSQL.
func NewSubjectRepository(pool *pgxpool.Pool) SubjectRepository {
	return &subjectRepository{pool: pool}
}

func (r *subjectRepository) Get(ctx context.Context, id string) (model.Subject, error) {
	var s model.Subject
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, score, updated_at FROM subjects WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Score, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Subject{}, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Subject{}, fmt.Errorf("get subject: %w", err)
	}
	return s, nil
}

func (r *subjectRepository) UpsertContact(ctx context.Context, id, name, email, phone string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subjects (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE subjects.name END,
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE subjects.email END,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE subjects.phone END,
			updated_at = now()
	`, id, name, email, phone)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (r *subjectRepository) AdjustScore(ctx context.Context, id string, delta int) (int, error) {
	var score int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subjects (id, score)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			score = subjects.score + EXCLUDED.score,
			updated_at = now()
		RETURNING score
	`, id, delta).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("adjust score: %w", err)
	}
	return score, nil
}

func (r *subjectRepository) AddTag(ctx context.Context, id, tag string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subject_tags (subject_id, tag) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, tag)
	if err != nil {
		return fmt.Errorf("add tag: %w", err)
	}
	return nil
}

func (r *subjectRepository) RemoveTag(ctx context.Context, id, tag string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM subject_tags WHERE subject_id = $1 AND tag = $2
	`, id, tag)
	if err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	return nil
}

func (r *subjectRepository) RecordOptOut(ctx context.Context, id string, channel model.Channel) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channel_optouts (subject_id, channel) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, string(channel))
	if err != nil {
		return fmt.Errorf("record optout: %w", err)
	}
	return nil
}

func (r *subjectRepository) IsOptedOut(ctx context.Context, id string, channel model.Channel) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM channel_optouts WHERE subject_id = $1 AND channel = $2
		)
	`, id, string(channel)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check optout: %w", err)
	}
	return exists, nil
}

func (r *subjectRepository) CreateTask(ctx context.Context, task model.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, subject_id, description, status)
		VALUES ($1, $2, $3, 'open')
	`, task.ID, task.SubjectID, task.Description)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}
