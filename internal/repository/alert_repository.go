package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// AlertRepository persists operator-visible alerts. A permanently failed
// message must surface here rather than disappear into a log line.
type AlertRepository interface {
	Raise(ctx context.Context, alert model.Alert) error
	ListOpen(ctx context.Context) ([]model.Alert, error)
	Ack(ctx context.Context, id string) (bool, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository creates an AlertRepository backed by PostgreSQL.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Raise(ctx context.Context, alert model.Alert) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alerts (id, subject_id, message_id, message, status)
		VALUES ($1, $2, $3, $4, 'open')
	`, alert.ID, alert.SubjectID, alert.MessageID, alert.Message)
	if err != nil {
		return fmt.Errorf("raise alert: %w", err)
	}
	return nil
}

func (r *alertRepository) ListOpen(ctx context.Context) ([]model.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, message_id, message, status, created_at, acked_at
		FROM alerts WHERE status = 'open'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.SubjectID, &a.MessageID, &a.Message, &a.Status, &a.CreatedAt, &a.AckedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *alertRepository) Ack(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE alerts SET status = 'acked', acked_at = now()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, fmt.Errorf("ack alert: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
