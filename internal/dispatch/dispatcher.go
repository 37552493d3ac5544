// Package dispatch turns claimed scheduled messages into concrete
// notifications and sends them through the external transports.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lead-automation-service/internal/campaign"
	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
	"lead-automation-service/internal/textgen"
	"lead-automation-service/internal/transport"
)

// Config carries the dispatcher's operational thresholds. Passed explicitly
// at construction; there is no ambient global configuration.
type Config struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	GenerationTimeout time.Duration
}

// Dispatcher resolves and delivers one claimed message at a time.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg model.ScheduledMessage) error
}

type dispatcher struct {
	cfg         Config
	messages    repository.MessageRepository
	enrollments repository.EnrollmentRepository
	campaigns   repository.CampaignRepository
	subjects    repository.SubjectRepository
	alerts      repository.AlertRepository
	engine      campaign.Engine
	email       transport.EmailSender
	sms         transport.SMSSender
	generator   textgen.Generator // nil disables personalization
	now         func() time.Time
	newID       func() string
}

// NewDispatcher constructs a Dispatcher. generator may be nil, in which case
// templates render statically.
func NewDispatcher(
	cfg Config,
	messages repository.MessageRepository,
	enrollments repository.EnrollmentRepository,
	campaigns repository.CampaignRepository,
	subjects repository.SubjectRepository,
	alerts repository.AlertRepository,
	engine campaign.Engine,
	email transport.EmailSender,
	sms transport.SMSSender,
	generator textgen.Generator,
) Dispatcher {
	return &dispatcher{
		cfg:         cfg,
		messages:    messages,
		enrollments: enrollments,
		campaigns:   campaigns,
		subjects:    subjects,
		alerts:      alerts,
		engine:      engine,
		email:       email,
		sms:         sms,
		generator:   generator,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, msg model.ScheduledMessage) error {
	// Enrollment status is rechecked at send time, not only at schedule
	// time: a stop that raced the claim still wins here.
	if msg.EnrollmentID != "" {
		enrollment, err := d.enrollments.Get(ctx, msg.EnrollmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return d.messages.MarkCancelled(ctx, msg.ID)
			}
			return err
		}
		if enrollment.Status != model.EnrollmentActive {
			return d.messages.MarkCancelled(ctx, msg.ID)
		}
	}

	optedOut, err := d.subjects.IsOptedOut(ctx, msg.SubjectID, msg.Channel)
	if err != nil {
		return err
	}
	if optedOut {
		return d.messages.MarkCancelled(ctx, msg.ID)
	}

	subject, err := d.subjects.Get(ctx, msg.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return d.failPermanently(ctx, msg, "no contact record for subject")
		}
		return err
	}

	template, err := d.campaigns.GetTemplate(ctx, msg.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return d.failPermanently(ctx, msg, fmt.Sprintf("template %s missing", msg.TemplateID))
		}
		return err
	}

	channels, err := d.routeChannels(ctx, msg)
	if err != nil {
		return err
	}

	req, err := d.buildRequest(ctx, msg, subject, template, channels)
	if err != nil {
		return d.failPermanently(ctx, msg, fmt.Sprintf("render template %s: %v", msg.TemplateID, err))
	}

	primaryErr := d.send(ctx, msg, subject, req)
	if primaryErr == nil {
		if err := d.messages.MarkSent(ctx, msg.ID); err != nil {
			return err
		}
		if msg.EnrollmentID != "" {
			if err := d.engine.Advance(ctx, msg.EnrollmentID); err != nil {
				// The send already went out; a failed advance strands the
				// enrollment active with nothing pending.
				if alertErr := d.raiseAlert(ctx, msg, fmt.Sprintf("enrollment %s stalled: advance failed after send: %v", msg.EnrollmentID, err)); alertErr != nil {
					return alertErr
				}
				return err
			}
		}
		return nil
	}

	return d.handleSendFailure(ctx, msg, primaryErr)
}

// routeChannels resolves the channels this attempt goes out on. The message's
// own channel was already opt-out-checked by Dispatch; secondary channels get
// the same check here, and only ride along on the first attempt since any
// secondary send already happened before a retry.
func (d *dispatcher) routeChannels(ctx context.Context, msg model.ScheduledMessage) ([]model.Channel, error) {
	if msg.AttemptCount > 0 {
		return []model.Channel{msg.Channel}, nil
	}

	routed := make([]model.Channel, 0, 2)
	for _, channel := range msg.Priority.RouteChannels(msg.Channel) {
		if channel != msg.Channel {
			optedOut, err := d.subjects.IsOptedOut(ctx, msg.SubjectID, channel)
			if err != nil {
				return nil, err
			}
			if optedOut {
				continue
			}
		}
		routed = append(routed, channel)
	}
	return routed, nil
}

// buildRequest renders the template and assembles the notification. The
// text-generation call is bounded; any failure falls back to the static
// rendering rather than blocking or aborting the send.
func (d *dispatcher) buildRequest(ctx context.Context, msg model.ScheduledMessage, subject model.Subject, template model.Template, channels []model.Channel) (model.NotificationRequest, error) {
	subjectLine, body, err := render(template, subject)
	if err != nil {
		return model.NotificationRequest{}, err
	}

	if d.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, d.cfg.GenerationTimeout)
		personalized, genErr := d.generator.Generate(genCtx, personalizationPrompt(subject, body))
		cancel()
		if genErr != nil {
			log.Printf("[WARN] personalization failed for message %s, using static template: %v", msg.ID, genErr)
		} else if personalized != "" {
			body = personalized
		}
	}

	return model.NotificationRequest{
		SubjectID: msg.SubjectID,
		Priority:  msg.Priority,
		Channels:  channels,
		Subject:   subjectLine,
		Body:      body,
	}, nil
}

// send fans out to every routed channel concurrently. Channel outcomes are
// independent; the message's own channel decides the overall result.
func (d *dispatcher) send(ctx context.Context, msg model.ScheduledMessage, subject model.Subject, req model.NotificationRequest) error {
	results := make(map[model.Channel]error, len(req.Channels))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, channel := range req.Channels {
		wg.Add(1)
		go func(channel model.Channel) {
			defer wg.Done()
			err := d.sendChannel(ctx, channel, subject, req)
			mu.Lock()
			results[channel] = err
			mu.Unlock()
		}(channel)
	}
	wg.Wait()

	for channel, err := range results {
		if err != nil && channel != msg.Channel {
			log.Printf("[WARN] secondary channel %s failed for message %s: %v", channel, msg.ID, err)
		}
	}
	return results[msg.Channel]
}

func (d *dispatcher) sendChannel(ctx context.Context, channel model.Channel, subject model.Subject, req model.NotificationRequest) error {
	switch channel {
	case model.ChannelEmail:
		_, err := d.email.Send(ctx, subject.Email, req.Subject, req.Body)
		return err
	case model.ChannelSMS:
		_, err := d.sms.Send(ctx, subject.Phone, req.Body)
		return err
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

func (d *dispatcher) handleSendFailure(ctx context.Context, msg model.ScheduledMessage, sendErr error) error {
	attempt := msg.AttemptCount + 1

	if !transport.Retryable(sendErr) {
		return d.terminalFailure(ctx, msg, attempt, sendErr.Error())
	}
	if attempt >= d.cfg.MaxAttempts {
		return d.terminalFailure(ctx, msg, attempt, sendErr.Error())
	}

	dueAt := d.now().UTC().Add(backoff(d.cfg.BackoffBase, attempt))
	return d.messages.Reschedule(ctx, msg.ID, dueAt, attempt, sendErr.Error())
}

func (d *dispatcher) terminalFailure(ctx context.Context, msg model.ScheduledMessage, attempt int, reason string) error {
	if err := d.messages.MarkFailed(ctx, msg.ID, attempt, reason); err != nil {
		return err
	}
	return d.raiseAlert(ctx, msg, fmt.Sprintf("message delivery failed after %d attempt(s): %s", attempt, reason))
}

func (d *dispatcher) failPermanently(ctx context.Context, msg model.ScheduledMessage, reason string) error {
	if err := d.messages.MarkFailed(ctx, msg.ID, msg.AttemptCount, reason); err != nil {
		return err
	}
	return d.raiseAlert(ctx, msg, reason)
}

func (d *dispatcher) raiseAlert(ctx context.Context, msg model.ScheduledMessage, text string) error {
	return d.alerts.Raise(ctx, model.Alert{
		ID:        d.newID(),
		SubjectID: msg.SubjectID,
		MessageID: msg.ID,
		Message:   text,
	})
}

// backoff doubles per attempt: base, 2*base, 4*base, ...
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
