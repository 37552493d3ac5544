package mockcampaign

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/campaign"
	"lead-automation-service/internal/model"
)

type Engine struct {
	mock.Mock
}

var _ campaign.Engine = &Engine{}

func (m *Engine) Enroll(ctx context.Context, subjectID, campaignID string) (model.Enrollment, bool, error) {
	args := m.Called(ctx, subjectID, campaignID)
	return args.Get(0).(model.Enrollment), args.Bool(1), args.Error(2)
}

func (m *Engine) Advance(ctx context.Context, enrollmentID string) error {
	args := m.Called(ctx, enrollmentID)
	return args.Error(0)
}

func (m *Engine) Stop(ctx context.Context, enrollmentID string, status model.EnrollmentStatus, reason string) error {
	args := m.Called(ctx, enrollmentID, status, reason)
	return args.Error(0)
}

func (m *Engine) Resume(ctx context.Context, enrollmentID string) error {
	args := m.Called(ctx, enrollmentID)
	return args.Error(0)
}

func (m *Engine) Unsubscribe(ctx context.Context, subjectID string, channel model.Channel) error {
	args := m.Called(ctx, subjectID, channel)
	return args.Error(0)
}
