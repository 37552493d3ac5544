package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations ensures required tables exist. This keeps the service
// self-contained without an external migration step.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS events (
    id           TEXT PRIMARY KEY,
    subject_id   TEXT NOT NULL,
    event_type   TEXT NOT NULL,
    channel      TEXT NOT NULL DEFAULT '',
    attributes   JSONB,
    occurred_at  TIMESTAMPTZ NOT NULL,
    ingested_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_events_subject_type_time
    ON events (subject_id, event_type, occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at);

CREATE TABLE IF NOT EXISTS trigger_rules (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    priority         INT NOT NULL DEFAULT 100,
    enabled          BOOLEAN NOT NULL DEFAULT TRUE,
    cooldown_seconds BIGINT NOT NULL DEFAULT 0,
    conditions       JSONB NOT NULL,
    actions          JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rule_firings (
    rule_id       TEXT NOT NULL,
    subject_id    TEXT NOT NULL,
    last_fired_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (rule_id, subject_id)
);

CREATE TABLE IF NOT EXISTS campaigns (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    version      INT NOT NULL DEFAULT 1,
    trigger_type TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS campaign_steps (
    campaign_id    TEXT NOT NULL REFERENCES campaigns (id),
    step_index     INT NOT NULL,
    offset_seconds BIGINT NOT NULL DEFAULT 0,
    channel        TEXT NOT NULL,
    template_id    TEXT NOT NULL,
    PRIMARY KEY (campaign_id, step_index)
);

CREATE TABLE IF NOT EXISTS templates (
    id      TEXT PRIMARY KEY,
    channel TEXT NOT NULL,
    subject TEXT NOT NULL DEFAULT '',
    body    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS enrollments (
    id           TEXT PRIMARY KEY,
    subject_id   TEXT NOT NULL,
    campaign_id  TEXT NOT NULL REFERENCES campaigns (id),
    current_step INT NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'active',
    stop_reason  TEXT NOT NULL DEFAULT '',
    enrolled_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_one_active
    ON enrollments (subject_id, campaign_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_enrollments_subject ON enrollments (subject_id);

CREATE TABLE IF NOT EXISTS scheduled_messages (
    id            TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL DEFAULT '',
    subject_id    TEXT NOT NULL,
    due_at        TIMESTAMPTZ NOT NULL,
    channel       TEXT NOT NULL,
    template_id   TEXT NOT NULL,
    priority      TEXT NOT NULL DEFAULT 'normal',
    status        TEXT NOT NULL DEFAULT 'pending',
    attempt_count INT NOT NULL DEFAULT 0,
    claimed_by    TEXT NOT NULL DEFAULT '',
    claimed_at    TIMESTAMPTZ,
    last_error    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_messages_due ON scheduled_messages (status, due_at);
CREATE INDEX IF NOT EXISTS idx_messages_enrollment ON scheduled_messages (enrollment_id);

CREATE TABLE IF NOT EXISTS subjects (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    phone      TEXT NOT NULL DEFAULT '',
    score      INT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS subject_tags (
    subject_id TEXT NOT NULL,
    tag        TEXT NOT NULL,
    PRIMARY KEY (subject_id, tag)
);

CREATE TABLE IF NOT EXISTS channel_optouts (
    subject_id TEXT NOT NULL,
    channel    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (subject_id, channel)
);

CREATE TABLE IF NOT EXISTS tasks (
    id          TEXT PRIMARY KEY,
    subject_id  TEXT NOT NULL,
    description TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'open',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alerts (
    id         TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    message_id TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'open',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    acked_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts (status);
`)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
