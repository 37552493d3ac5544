package mockservice

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/model"
)

type Service struct {
	mock.Mock
}

func (m *Service) BuildEvent(req model.EventRequest) (model.Event, error) {
	args := m.Called(req)
	return args.Get(0).(model.Event), args.Error(1)
}

func (m *Service) ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(model.EventResult), args.Error(1)
}

func (m *Service) GetMetrics(ctx context.Context, filter model.MetricsFilter) (model.MetricsResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(model.MetricsResponse), args.Error(1)
}

type EvalPool struct {
	mock.Mock
}

func (m *EvalPool) Enqueue(event model.Event) {
	m.Called(event)
}

func (m *EvalPool) Shutdown() {
	m.Called()
}

type ActionApplier struct {
	mock.Mock
}

func (m *ActionApplier) Apply(ctx context.Context, subjectID string, actions []model.Action) {
	m.Called(ctx, subjectID, actions)
}
