package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lead-automation-service/internal/model"
)

// RuleRepository reads trigger rule definitions and owns the per
// (rule, subject) cooldown state.
type RuleRepository interface {
	// ListEnabled returns all enabled rules ordered by priority, then id.
	ListEnabled(ctx context.Context) ([]model.TriggerRule, error)

	// List returns every rule, for the read-only admin surface.
	List(ctx context.Context) ([]model.TriggerRule, error)

	// AcquireCooldown atomically records a firing for (rule, subject) if the
	// previous firing is at least cooldown old. It reports false when the
	// rule is still cooling down; a false result must suppress the firing.
	AcquireCooldown(ctx context.Context, ruleID, subjectID string, cooldown time.Duration, now time.Time) (bool, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository creates a RuleRepository backed by PostgreSQL.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

func (r *ruleRepository) ListEnabled(ctx context.Context) ([]model.TriggerRule, error) {
	return r.list(ctx, `WHERE enabled`)
}

func (r *ruleRepository) List(ctx context.Context) ([]model.TriggerRule, error) {
	return r.list(ctx, ``)
}

func (r *ruleRepository) list(ctx context.Context, where string) ([]model.TriggerRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, priority, enabled, cooldown_seconds, conditions, actions, created_at, updated_at
		FROM trigger_rules `+where+`
		ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.TriggerRule
	for rows.Next() {
		var rule model.TriggerRule
		var cooldownSeconds int64
		var conditions, actions []byte
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Priority, &rule.Enabled, &cooldownSeconds, &conditions, &actions, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Cooldown = time.Duration(cooldownSeconds) * time.Second
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("unmarshal rule %s conditions: %w", rule.ID, err)
		}
		if err := json.Unmarshal(actions, &rule.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal rule %s actions: %w", rule.ID, err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// AcquireCooldown relies on the conditional upsert touching zero rows while
// the cooldown interval has not elapsed, which makes concurrent firings for
// the same (rule, subject) resolve to exactly one winner.
func (r *ruleRepository) AcquireCooldown(ctx context.Context, ruleID, subjectID string, cooldown time.Duration, now time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO rule_firings (rule_id, subject_id, last_fired_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (rule_id, subject_id) DO UPDATE
		SET last_fired_at = EXCLUDED.last_fired_at
		WHERE rule_firings.last_fired_at <= $3 - $4::interval
	`, ruleID, subjectID, now, cooldown)
	if err != nil {
		return false, fmt.Errorf("acquire cooldown: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
