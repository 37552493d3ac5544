// Package analytics mirrors ingested events into ClickHouse and serves the
// aggregate metrics queries. The mirror is best effort; the operational store
// in Postgres remains the source of truth.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"lead-automation-service/internal/model"
)

// Repository defines the analytics store operations.
type Repository interface {
	// InsertBatch writes a batch of events to the mirror.
	InsertBatch(ctx context.Context, events []model.Event) error

	// FetchMetrics aggregates mirrored events. Returns total count, unique
	// subject count and optional grouped rows.
	FetchMetrics(ctx context.Context, filter model.MetricsFilter) (uint64, uint64, []model.MetricsGroup, error)
}

type repository struct {
	conn clickhouse.Conn
}

// NewRepository creates a Repository backed by ClickHouse.
func NewRepository(conn clickhouse.Conn) Repository {
	return &repository{conn: conn}
}

const insertBatchQuery = `
	INSERT INTO behavioral_events (event_id, event_type, channel, subject_id, occurred_at, attributes, ingested_at)
`

func (r *repository) InsertBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertBatchQuery)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, event := range events {
		attrs, err := marshalAttributes(event.Attributes)
		if err != nil {
			return err
		}

		if err := batch.Append(
			event.ID,
			event.Type,
			event.Channel,
			event.SubjectID,
			event.OccurredAt,
			attrs,
			event.IngestedAt,
		); err != nil {
			return fmt.Errorf("append event %s: %w", event.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

const totalsQuery = `
	SELECT count(), uniqExact(subject_id)
	FROM behavioral_events
	WHERE event_type = $1 AND occurred_at >= $2 AND occurred_at < $3
`

const totalsWithChannelQuery = totalsQuery + ` AND channel = $4`

func (r *repository) FetchMetrics(ctx context.Context, filter model.MetricsFilter) (uint64, uint64, []model.MetricsGroup, error) {
	query := totalsQuery
	args := []any{filter.EventType, filter.From, filter.To}
	if filter.Channel != nil {
		query = totalsWithChannelQuery
		args = append(args, *filter.Channel)
	}

	var total, unique uint64
	row := r.conn.QueryRow(ctx, query, args...)
	if err := row.Scan(&total, &unique); err != nil {
		return 0, 0, nil, fmt.Errorf("fetch totals: %w", err)
	}

	if filter.GroupBy == "" {
		return total, unique, nil, nil
	}

	groupQuery, err := buildGroupQuery(filter.GroupBy, filter.Channel != nil)
	if err != nil {
		return 0, 0, nil, err
	}

	rows, err := r.conn.Query(ctx, groupQuery, args...)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("fetch groups: %w", err)
	}
	defer rows.Close()

	var groups []model.MetricsGroup
	for rows.Next() {
		var g model.MetricsGroup
		if err := rows.Scan(&g.Key, &g.TotalCount, &g.UniqueSubjectCount); err != nil {
			return 0, 0, nil, fmt.Errorf("scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("iterate group rows: %w", err)
	}

	return total, unique, groups, nil
}

// buildGroupQuery whitelists group_by values so the group key expression is
// never built from user input.
func buildGroupQuery(groupBy string, withChannel bool) (string, error) {
	where := "WHERE event_type = $1 AND occurred_at >= $2 AND occurred_at < $3"
	if withChannel {
		where += " AND channel = $4"
	}

	switch groupBy {
	case "channel":
		return fmt.Sprintf(
			"SELECT channel, count(), uniqExact(subject_id) FROM behavioral_events %s GROUP BY channel ORDER BY channel",
			where), nil
	case "hour":
		return fmt.Sprintf(
			"SELECT formatDateTime(toStartOfHour(occurred_at), '%%Y-%%m-%%dT%%H:00:00Z') AS bucket, count(), uniqExact(subject_id) FROM behavioral_events %s GROUP BY bucket ORDER BY bucket",
			where), nil
	case "day":
		return fmt.Sprintf(
			"SELECT toString(toDate(occurred_at)) AS bucket, count(), uniqExact(subject_id) FROM behavioral_events %s GROUP BY bucket ORDER BY bucket",
			where), nil
	default:
		return "", fmt.Errorf("unsupported group_by: %s", groupBy)
	}
}

func marshalAttributes(attrs map[string]interface{}) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(b), nil
}
