// Package transport defines the outbound delivery capabilities and their
// failure taxonomy. One implementation per provider, selected at startup.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrRateLimited means the provider throttled the send; retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRecipient means the address can never succeed; not retryable.
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// TransportError wraps any other provider failure; retryable with backoff.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether a send failure is worth another attempt.
func Retryable(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidRecipient)
}

// DeliveryResult records one channel attempt's outcome.
type DeliveryResult struct {
	Provider  string
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers HTML email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (DeliveryResult, error)
}

// SMSSender delivers a short text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (DeliveryResult, error)
}
