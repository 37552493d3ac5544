package mocktransport

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/transport"
)

type EmailSender struct {
	mock.Mock
}

var _ transport.EmailSender = &EmailSender{}

func (m *EmailSender) Send(ctx context.Context, to, subject, htmlBody string) (transport.DeliveryResult, error) {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Get(0).(transport.DeliveryResult), args.Error(1)
}

type SMSSender struct {
	mock.Mock
}

var _ transport.SMSSender = &SMSSender{}

func (m *SMSSender) Send(ctx context.Context, to, body string) (transport.DeliveryResult, error) {
	args := m.Called(ctx, to, body)
	return args.Get(0).(transport.DeliveryResult), args.Error(1)
}
