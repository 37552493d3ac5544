package mockanalytics

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/model"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) InsertBatch(ctx context.Context, events []model.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *Repository) FetchMetrics(ctx context.Context, filter model.MetricsFilter) (uint64, uint64, []model.MetricsGroup, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Get(2).([]model.MetricsGroup), args.Error(3)
}

type Sink struct {
	mock.Mock
}

func (m *Sink) Enqueue(event model.Event) {
	m.Called(event)
}

func (m *Sink) Shutdown() {
	m.Called()
}
