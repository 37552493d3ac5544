package mockrules

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/model"
	"lead-automation-service/internal/rules"
)

type Engine struct {
	mock.Mock
}

var _ rules.Engine = &Engine{}

func (m *Engine) Evaluate(ctx context.Context, event model.Event) ([]model.Action, error) {
	args := m.Called(ctx, event)
	return args.Get(0).([]model.Action), args.Error(1)
}
