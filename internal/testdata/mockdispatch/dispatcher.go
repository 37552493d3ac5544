package mockdispatch

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/dispatch"
	"lead-automation-service/internal/model"
)

type Dispatcher struct {
	mock.Mock
}

var _ dispatch.Dispatcher = &Dispatcher{}

func (m *Dispatcher) Dispatch(ctx context.Context, msg model.ScheduledMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
