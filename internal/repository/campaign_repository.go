package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// ErrNotFound is returned when a referenced definition row does not exist.
var ErrNotFound = errors.New("not found")

// CampaignRepository reads immutable campaign and template definitions.
type CampaignRepository interface {
	Get(ctx context.Context, id string) (model.Campaign, error)
	List(ctx context.Context) ([]model.Campaign, error)
	GetTemplate(ctx context.Context, id string) (model.Template, error)
}

type campaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a CampaignRepository backed by PostgreSQL.
func NewCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepository{pool: pool}
}

func (r *campaignRepository) Get(ctx context.Context, id string) (model.Campaign, error) {
	var c model.Campaign
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, version, trigger_type, created_at
		FROM campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Version, &c.TriggerType, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Campaign{}, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}

	steps, err := r.loadSteps(ctx, id)
	if err != nil {
		return model.Campaign{}, err
	}
	c.Steps = steps
	return c, nil
}

func (r *campaignRepository) List(ctx context.Context) ([]model.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, version, trigger_type, created_at
		FROM campaigns ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Version, &c.TriggerType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range campaigns {
		steps, err := r.loadSteps(ctx, campaigns[i].ID)
		if err != nil {
			return nil, err
		}
		campaigns[i].Steps = steps
	}
	return campaigns, nil
}

func (r *campaignRepository) loadSteps(ctx context.Context, campaignID string) ([]model.CampaignStep, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT step_index, offset_seconds, channel, template_id
		FROM campaign_steps WHERE campaign_id = $1
		ORDER BY step_index
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign steps: %w", err)
	}
	defer rows.Close()

	var steps []model.CampaignStep
	for rows.Next() {
		var s model.CampaignStep
		if err := rows.Scan(&s.Index, &s.OffsetSeconds, &s.Channel, &s.TemplateID); err != nil {
			return nil, fmt.Errorf("scan campaign step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func (r *campaignRepository) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	var t model.Template
	err := r.pool.QueryRow(ctx, `
		SELECT id, channel, subject, body FROM templates WHERE id = $1
	`, id).Scan(&t.ID, &t.Channel, &t.Subject, &t.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}
