package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"lead-automation-service/internal/config"
)

// NewClickHouseConn opens the analytics connection. ClickHouse is optional:
// callers should skip the sink entirely when cfg.ClickHouseAddr is empty.
func NewClickHouseConn(ctx context.Context, cfg *config.Config) (clickhouse.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return conn, nil
}

// RunClickHouseMigrations ensures the analytics events table exists.
func RunClickHouseMigrations(ctx context.Context, conn clickhouse.Conn) error {
	err := conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS behavioral_events
(
	event_id        String,
	event_type      String,
	channel         String,
	subject_id      String,
	occurred_at     DateTime64(3, 'UTC'),
	attributes      String DEFAULT '{}',
	ingested_at     DateTime DEFAULT now()
)
ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMMDD(occurred_at)
ORDER BY (event_type, occurred_at, subject_id, channel)
SETTINGS
    index_granularity = 8192;
`)
	if err != nil {
		return fmt.Errorf("apply clickhouse migrations: %w", err)
	}
	return nil
}
