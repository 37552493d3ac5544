// Package service holds the ingestion pipeline: validating incoming events,
// deduplicating them against the event store, routing the special event
// types, and feeding rule evaluation and the analytics mirror.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"lead-automation-service/internal/analytics"
	"lead-automation-service/internal/campaign"
	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
)

// ValidationError represents user input issues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrAnalyticsDisabled is returned by GetMetrics when no analytics store is
// configured.
var ErrAnalyticsDisabled = errors.New("analytics store not configured")

// EventService is the entry point for behavioral events.
type EventService interface {
	// BuildEvent validates and constructs an Event from an incoming request.
	BuildEvent(req model.EventRequest) (model.Event, error)

	// ProcessEvent stores the event, routes special types and queues rule
	// evaluation. Replayed events are reported as duplicates and produce no
	// side effects.
	ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error)

	// GetMetrics validates filters, sets defaults and delegates aggregation
	// to the analytics store.
	GetMetrics(ctx context.Context, filter model.MetricsFilter) (model.MetricsResponse, error)
}

type eventService struct {
	events          repository.EventRepository
	subjects        repository.SubjectRepository
	campaigns       campaign.Engine
	pool            EvalPool
	sink            analytics.Sink       // nil when analytics disabled
	metrics         analytics.Repository // nil when analytics disabled
	now             func() time.Time
	newID           func() string
	futureTolerance time.Duration
}

// NewEventService constructs an eventService. sink and metrics may be nil.
func NewEventService(
	events repository.EventRepository,
	subjects repository.SubjectRepository,
	campaigns campaign.Engine,
	pool EvalPool,
	sink analytics.Sink,
	metrics analytics.Repository,
	futureTolerance time.Duration,
) EventService {
	return &eventService{
		events:          events,
		subjects:        subjects,
		campaigns:       campaigns,
		pool:            pool,
		sink:            sink,
		metrics:         metrics,
		now:             time.Now,
		newID:           uuid.NewString,
		futureTolerance: futureTolerance,
	}
}

func (s *eventService) BuildEvent(req model.EventRequest) (model.Event, error) {
	if req.SubjectID == "" {
		return model.Event{}, &ValidationError{Message: "subject_id is required"}
	}

	if req.Type == "" {
		return model.Event{}, &ValidationError{Message: "type is required"}
	}

	if req.OccurredAt == 0 {
		return model.Event{}, &ValidationError{Message: "occurred_at is required"}
	}

	now := s.now().UTC()
	occurredAt := time.Unix(req.OccurredAt, 0).UTC()
	if err := ValidateTimestamp(occurredAt, now, s.futureTolerance); err != nil {
		return model.Event{}, &ValidationError{Message: err.Error()}
	}

	// Callers may supply their own id for replay-safe delivery; one is
	// minted otherwise.
	id := req.ID
	if id == "" {
		id = s.newID()
	}

	return model.Event{
		ID:         id,
		SubjectID:  req.SubjectID,
		Type:       req.Type,
		Channel:    req.Channel,
		Attributes: req.Attributes,
		OccurredAt: occurredAt,
		IngestedAt: now,
	}, nil
}

func (s *eventService) ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error) {
	inserted, err := s.events.Insert(ctx, event)
	if err != nil {
		return model.EventResult{}, err
	}
	if !inserted {
		// Replay of an already-stored event. No rule re-fires, no mirror
		// write, no routing.
		return model.EventResult{Status: "duplicate", ID: event.ID}, nil
	}

	if s.sink != nil {
		s.sink.Enqueue(event)
	}

	s.route(ctx, event)
	s.pool.Enqueue(event)

	return model.EventResult{Status: "accepted", ID: event.ID}, nil
}

// route handles the event types the engine acts on directly, before rule
// evaluation. Routing failures are logged, not returned: the event is
// already stored and the caller already has its result.
func (s *eventService) route(ctx context.Context, event model.Event) {
	switch event.Type {
	case model.EventUnsubscribe:
		channel := model.Channel(event.StringAttr(model.AttrChannel))
		if channel == "" {
			channel = model.Channel(event.Channel)
		}
		if channel != model.ChannelEmail && channel != model.ChannelSMS {
			log.Printf("[ERROR] unsubscribe event %s has no usable channel", event.ID)
			return
		}
		if err := s.campaigns.Unsubscribe(ctx, event.SubjectID, channel); err != nil {
			log.Printf("[ERROR] unsubscribe subject %s on %s: %v", event.SubjectID, channel, err)
		}

	case model.EventContactUpdated:
		err := s.subjects.UpsertContact(ctx,
			event.SubjectID,
			event.StringAttr(model.AttrName),
			event.StringAttr(model.AttrEmail),
			event.StringAttr(model.AttrPhone),
		)
		if err != nil {
			log.Printf("[ERROR] upsert contact %s: %v", event.SubjectID, err)
		}
	}
}

func (s *eventService) GetMetrics(ctx context.Context, filter model.MetricsFilter) (model.MetricsResponse, error) {
	if s.metrics == nil {
		return model.MetricsResponse{}, ErrAnalyticsDisabled
	}

	if filter.EventType == "" {
		return model.MetricsResponse{}, &ValidationError{Message: "event_type is required"}
	}

	if filter.GroupBy != "" && !isSupportedGroupBy(filter.GroupBy) {
		return model.MetricsResponse{}, &ValidationError{Message: "unsupported group_by"}
	}

	now := s.now().UTC()
	if filter.To.IsZero() {
		filter.To = now
	} else {
		filter.To = filter.To.UTC()
	}

	if filter.From.IsZero() {
		filter.From = filter.To.Add(-30 * 24 * time.Hour)
	} else {
		filter.From = filter.From.UTC()
	}

	if filter.From.After(filter.To) {
		return model.MetricsResponse{}, &ValidationError{Message: "from must be before to"}
	}

	total, unique, groups, err := s.metrics.FetchMetrics(ctx, filter)
	if err != nil {
		return model.MetricsResponse{}, err
	}

	resp := model.MetricsResponse{
		Meta: model.MetricsMeta{
			EventType: filter.EventType,
			Period: model.MetricsPeriod{
				Start: filter.From.Format(time.RFC3339),
				End:   filter.To.Format(time.RFC3339),
			},
			GroupBy: filter.GroupBy,
		},
		Data: model.MetricsData{
			TotalEventCount:    total,
			UniqueSubjectCount: unique,
			Groups:             groups,
		},
	}

	if filter.Channel != nil && *filter.Channel != "" {
		resp.Meta.Filters = map[string]any{"channel": *filter.Channel}
	}

	return resp, nil
}

// ValidateTimestamp ensures timestamps are not too far in the future.
func ValidateTimestamp(ts time.Time, now time.Time, tolerance time.Duration) error {
	if tolerance <= 0 {
		return nil
	}
	if ts.After(now.Add(tolerance)) {
		return errors.New("occurred_at cannot be in the future")
	}
	return nil
}

func isSupportedGroupBy(group string) bool {
	switch group {
	case "channel", "hour", "day":
		return true
	default:
		return false
	}
}
