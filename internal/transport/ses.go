package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESSender delivers email through AWS SES.
type SESSender struct {
	client *sesv2.Client
	from   string
}

// NewSESSender builds an SESSender. from is the verified sender address.
func NewSESSender(cfg aws.Config, from string) (*SESSender, error) {
	if from == "" {
		return nil, fmt.Errorf("ses sender address is required")
	}
	return &SESSender{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, to, subject, htmlBody string) (DeliveryResult, error) {
	if to == "" {
		return DeliveryResult{}, fmt.Errorf("email to %q: %w", to, ErrInvalidRecipient)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return DeliveryResult{}, classifySES(err)
	}

	return DeliveryResult{
		Provider:  "ses",
		MessageID: aws.ToString(out.MessageId),
		SentAt:    time.Now().UTC(),
	}, nil
}

func classifySES(err error) error {
	var tooMany *types.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return fmt.Errorf("ses: %w", ErrRateLimited)
	}
	var badRequest *types.BadRequestException
	if errors.As(err, &badRequest) {
		return fmt.Errorf("ses: %v: %w", err, ErrInvalidRecipient)
	}
	return &TransportError{Provider: "ses", Err: err}
}
