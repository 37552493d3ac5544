package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSSender delivers SMS through AWS SNS.
type SNSSender struct {
	client *sns.Client
}

// NewSNSSender builds an SNSSender.
func NewSNSSender(cfg aws.Config) *SNSSender {
	return &SNSSender{client: sns.NewFromConfig(cfg)}
}

func (s *SNSSender) Send(ctx context.Context, to, body string) (DeliveryResult, error) {
	if to == "" {
		return DeliveryResult{}, fmt.Errorf("sms to %q: %w", to, ErrInvalidRecipient)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	})
	if err != nil {
		return DeliveryResult{}, classifySNS(err)
	}

	return DeliveryResult{
		Provider:  "sns",
		MessageID: aws.ToString(out.MessageId),
		SentAt:    time.Now().UTC(),
	}, nil
}

func classifySNS(err error) error {
	var throttled *types.ThrottledException
	if errors.As(err, &throttled) {
		return fmt.Errorf("sns: %w", ErrRateLimited)
	}
	var invalid *types.InvalidParameterException
	if errors.As(err, &invalid) {
		return fmt.Errorf("sns: %v: %w", err, ErrInvalidRecipient)
	}
	return &TransportError{Provider: "sns", Err: err}
}
