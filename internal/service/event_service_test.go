package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"lead-automation-service/internal/model"
	"lead-automation-service/internal/testdata/mockanalytics"
	"lead-automation-service/internal/testdata/mockcampaign"
	"lead-automation-service/internal/testdata/mockrepository"
	"lead-automation-service/internal/testdata/mockservice"
)

type EventServiceTestSuite struct {
	suite.Suite

	events    *mockrepository.EventRepository
	subjects  *mockrepository.SubjectRepository
	campaigns *mockcampaign.Engine
	pool      *mockservice.EvalPool
	sink      *mockanalytics.Sink
	metrics   *mockanalytics.Repository

	service *eventService
	now     time.Time
}

func TestEventServiceSuite(t *testing.T) {
	suite.Run(t, new(EventServiceTestSuite))
}

func (s *EventServiceTestSuite) SetupTest() {
	s.events = &mockrepository.EventRepository{}
	s.subjects = &mockrepository.SubjectRepository{}
	s.campaigns = &mockcampaign.Engine{}
	s.pool = &mockservice.EvalPool{}
	s.sink = &mockanalytics.Sink{}
	s.metrics = &mockanalytics.Repository{}

	svc := NewEventService(s.events, s.subjects, s.campaigns, s.pool, s.sink, s.metrics, 0)
	s.service = svc.(*eventService)

	s.now = time.Unix(1000, 0).UTC()
	s.service.now = func() time.Time { return s.now }
	s.service.newID = func() string { return "generated-id" }
}

func (s *EventServiceTestSuite) TestBuildEvent_ValidationErrors() {
	tests := []struct {
		name      string
		req       model.EventRequest
		errMsg    string
		tolerance time.Duration
	}{
		{
			name:   "Missing SubjectID",
			req:    model.EventRequest{Type: "property_view", OccurredAt: 1000},
			errMsg: "subject_id is required",
		},
		{
			name:   "Missing Type",
			req:    model.EventRequest{SubjectID: "lead-1", OccurredAt: 1000},
			errMsg: "type is required",
		},
		{
			name:   "Missing OccurredAt",
			req:    model.EventRequest{SubjectID: "lead-1", Type: "property_view"},
			errMsg: "occurred_at is required",
		},
		{
			name: "Future OccurredAt",
			req: model.EventRequest{
				SubjectID: "lead-1", Type: "property_view",
				OccurredAt: 1005, // 5 seconds past the frozen clock
			},
			errMsg:    "occurred_at cannot be in the future",
			tolerance: 2 * time.Second,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.service.futureTolerance = tt.tolerance

			_, err := s.service.BuildEvent(tt.req)

			s.Error(err)
			s.IsType(&ValidationError{}, err)
			s.EqualError(err, tt.errMsg)
		})
	}
}

func (s *EventServiceTestSuite) TestBuildEvent_MintsIDWhenAbsent() {
	event, err := s.service.BuildEvent(model.EventRequest{
		SubjectID: "lead-1", Type: "property_view", OccurredAt: 900,
	})

	s.NoError(err)
	s.Equal("generated-id", event.ID)
	s.Equal(time.Unix(900, 0).UTC(), event.OccurredAt)
	s.Equal(s.now, event.IngestedAt)
}

func (s *EventServiceTestSuite) TestBuildEvent_KeepsCallerID() {
	event, err := s.service.BuildEvent(model.EventRequest{
		ID: "evt-42", SubjectID: "lead-1", Type: "property_view", OccurredAt: 900,
	})

	s.NoError(err)
	s.Equal("evt-42", event.ID)
}

func (s *EventServiceTestSuite) TestProcessEvent_AcceptedFlowsToSinkAndPool() {
	event := model.Event{ID: "evt-1", SubjectID: "lead-1", Type: "property_view"}

	s.events.On("Insert", mock.Anything, event).Return(true, nil)
	s.sink.On("Enqueue", event).Return()
	s.pool.On("Enqueue", event).Return()

	result, err := s.service.ProcessEvent(context.Background(), event)

	s.NoError(err)
	s.Equal(model.EventResult{Status: "accepted", ID: "evt-1"}, result)
	s.sink.AssertExpectations(s.T())
	s.pool.AssertExpectations(s.T())
}

// A replayed event id is reported as duplicate and produces no side effects:
// no mirror write, no routing, no rule evaluation.
func (s *EventServiceTestSuite) TestProcessEvent_DuplicateShortCircuits() {
	event := model.Event{ID: "evt-1", SubjectID: "lead-1", Type: "unsubscribe"}

	s.events.On("Insert", mock.Anything, event).Return(false, nil)

	result, err := s.service.ProcessEvent(context.Background(), event)

	s.NoError(err)
	s.Equal("duplicate", result.Status)
	s.sink.AssertNotCalled(s.T(), "Enqueue", mock.Anything)
	s.pool.AssertNotCalled(s.T(), "Enqueue", mock.Anything)
	s.campaigns.AssertNotCalled(s.T(), "Unsubscribe", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EventServiceTestSuite) TestProcessEvent_StorageErrorPropagates() {
	event := model.Event{ID: "evt-1"}
	s.events.On("Insert", mock.Anything, event).Return(false, errors.New("connection refused"))

	_, err := s.service.ProcessEvent(context.Background(), event)

	s.Error(err)
}

func (s *EventServiceTestSuite) TestProcessEvent_UnsubscribeRoutesToCampaigns() {
	event := model.Event{
		ID: "evt-1", SubjectID: "lead-1", Type: model.EventUnsubscribe,
		Attributes: map[string]any{"channel": "sms"},
	}

	s.events.On("Insert", mock.Anything, event).Return(true, nil)
	s.sink.On("Enqueue", event).Return()
	s.campaigns.On("Unsubscribe", mock.Anything, "lead-1", model.ChannelSMS).Return(nil)
	s.pool.On("Enqueue", event).Return()

	_, err := s.service.ProcessEvent(context.Background(), event)

	s.NoError(err)
	s.campaigns.AssertExpectations(s.T())
}

func (s *EventServiceTestSuite) TestProcessEvent_UnsubscribeFallsBackToEventChannel() {
	event := model.Event{ID: "evt-1", SubjectID: "lead-1", Type: model.EventUnsubscribe, Channel: "email"}

	s.events.On("Insert", mock.Anything, event).Return(true, nil)
	s.sink.On("Enqueue", event).Return()
	s.campaigns.On("Unsubscribe", mock.Anything, "lead-1", model.ChannelEmail).Return(nil)
	s.pool.On("Enqueue", event).Return()

	_, err := s.service.ProcessEvent(context.Background(), event)

	s.NoError(err)
	s.campaigns.AssertExpectations(s.T())
}

func (s *EventServiceTestSuite) TestProcessEvent_ContactUpdatedUpserts() {
	event := model.Event{
		ID: "evt-1", SubjectID: "lead-1", Type: model.EventContactUpdated,
		Attributes: map[string]any{"name": "Dana", "email": "dana@example.com", "phone": "+15550001111"},
	}

	s.events.On("Insert", mock.Anything, event).Return(true, nil)
	s.sink.On("Enqueue", event).Return()
	s.subjects.On("UpsertContact", mock.Anything, "lead-1", "Dana", "dana@example.com", "+15550001111").Return(nil)
	s.pool.On("Enqueue", event).Return()

	_, err := s.service.ProcessEvent(context.Background(), event)

	s.NoError(err)
	s.subjects.AssertExpectations(s.T())
}

func (s *EventServiceTestSuite) TestGetMetrics_Validation() {
	_, err := s.service.GetMetrics(context.Background(), model.MetricsFilter{})
	s.Error(err)
	s.IsType(&ValidationError{}, err)
}

func (s *EventServiceTestSuite) TestGetMetrics_InvalidGroupBy() {
	_, err := s.service.GetMetrics(context.Background(), model.MetricsFilter{EventType: "inquiry", GroupBy: "minute"})
	s.Error(err)
	s.IsType(&ValidationError{}, err)
}

func (s *EventServiceTestSuite) TestGetMetrics_FromAfterTo() {
	_, err := s.service.GetMetrics(context.Background(), model.MetricsFilter{
		EventType: "inquiry",
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(10, 0).UTC(),
	})
	s.Error(err)
	s.IsType(&ValidationError{}, err)
}

func (s *EventServiceTestSuite) TestGetMetrics_DisabledWithoutStore() {
	s.service.metrics = nil

	_, err := s.service.GetMetrics(context.Background(), model.MetricsFilter{EventType: "inquiry"})

	s.ErrorIs(err, ErrAnalyticsDisabled)
}

func (s *EventServiceTestSuite) TestGetMetrics_DefaultsAndDelegates() {
	filter := model.MetricsFilter{EventType: "inquiry", GroupBy: "channel"}
	expected := model.MetricsFilter{
		EventType: "inquiry",
		GroupBy:   "channel",
		To:        s.now,
		From:      s.now.Add(-30 * 24 * time.Hour),
	}

	groups := []model.MetricsGroup{{Key: "web", TotalCount: 8, UniqueSubjectCount: 2}}
	s.metrics.On("FetchMetrics", mock.Anything, expected).Return(uint64(10), uint64(3), groups, nil)

	resp, err := s.service.GetMetrics(context.Background(), filter)

	s.NoError(err)
	s.Equal(uint64(10), resp.Data.TotalEventCount)
	s.Equal(uint64(3), resp.Data.UniqueSubjectCount)
	s.Equal(groups, resp.Data.Groups)
	s.Equal(expected.From.Format(time.RFC3339), resp.Meta.Period.Start)
	s.Equal(expected.To.Format(time.RFC3339), resp.Meta.Period.End)
}
