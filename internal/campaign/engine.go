// Package campaign owns enrollments: creating them idempotently, advancing
// them step by step, and stopping them, including the cross-cutting
// unsubscribe that touches every enrollment on a channel.
package campaign

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
)

// Engine drives subjects through campaign definitions.
type Engine interface {
	// Enroll starts a subject on a campaign. Idempotent: when an active
	// enrollment already exists it is returned with created=false and no
	// new messages are scheduled.
	Enroll(ctx context.Context, subjectID, campaignID string) (model.Enrollment, bool, error)

	// Advance moves an enrollment past its current step after a successful
	// send: schedules the next step or completes the enrollment. Advancing
	// a non-active enrollment is a no-op.
	Advance(ctx context.Context, enrollmentID string) error

	// Stop pauses or unsubscribes one enrollment and cancels its pending
	// messages. status must be paused or unsubscribed.
	Stop(ctx context.Context, enrollmentID string, status model.EnrollmentStatus, reason string) error

	// Resume reactivates a paused enrollment and reschedules its current step.
	Resume(ctx context.Context, enrollmentID string) error

	// Unsubscribe records a channel opt-out and stops every active
	// enrollment for the subject whose campaign touches the channel,
	// cancelling all of the subject's pending messages on that channel.
	Unsubscribe(ctx context.Context, subjectID string, channel model.Channel) error
}

type engine struct {
	campaigns   repository.CampaignRepository
	enrollments repository.EnrollmentRepository
	messages    repository.MessageRepository
	subjects    repository.SubjectRepository
	now         func() time.Time
	newID       func() string
}

// NewEngine constructs a campaign engine.
func NewEngine(
	campaigns repository.CampaignRepository,
	enrollments repository.EnrollmentRepository,
	messages repository.MessageRepository,
	subjects repository.SubjectRepository,
) Engine {
	return &engine{
		campaigns:   campaigns,
		enrollments: enrollments,
		messages:    messages,
		subjects:    subjects,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (e *engine) Enroll(ctx context.Context, subjectID, campaignID string) (model.Enrollment, bool, error) {
	campaign, err := e.campaigns.Get(ctx, campaignID)
	if err != nil {
		return model.Enrollment{}, false, err
	}
	if len(campaign.Steps) == 0 {
		return model.Enrollment{}, false, fmt.Errorf("campaign %s has no steps", campaignID)
	}

	enrollment, created, err := e.enrollments.Insert(ctx, model.Enrollment{
		ID:         e.newID(),
		SubjectID:  subjectID,
		CampaignID: campaignID,
		EnrolledAt: e.now().UTC(),
	})
	if err != nil {
		return model.Enrollment{}, false, err
	}
	if !created {
		return enrollment, false, nil
	}

	step := campaign.Steps[0]
	if err := e.scheduleStep(ctx, enrollment, step, enrollment.EnrolledAt.Add(step.Offset())); err != nil {
		return model.Enrollment{}, false, err
	}
	return enrollment, true, nil
}

func (e *engine) scheduleStep(ctx context.Context, enrollment model.Enrollment, step model.CampaignStep, dueAt time.Time) error {
	return e.messages.Schedule(ctx, model.ScheduledMessage{
		ID:           e.newID(),
		EnrollmentID: enrollment.ID,
		SubjectID:    enrollment.SubjectID,
		DueAt:        dueAt,
		Channel:      step.Channel,
		TemplateID:   step.TemplateID,
		Priority:     model.PriorityNormal,
		Status:       model.MessagePending,
	})
}

func (e *engine) Advance(ctx context.Context, enrollmentID string) error {
	enrollment, err := e.enrollments.Get(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.Status != model.EnrollmentActive {
		return nil
	}

	campaign, err := e.campaigns.Get(ctx, enrollment.CampaignID)
	if err != nil {
		return err
	}

	next := enrollment.CurrentStep + 1
	if next >= len(campaign.Steps) {
		now := e.now().UTC()
		_, err := e.enrollments.Transition(ctx, enrollmentID,
			[]model.EnrollmentStatus{model.EnrollmentActive},
			model.EnrollmentCompleted, "", &now)
		return err
	}

	if err := e.enrollments.SetStep(ctx, enrollmentID, next); err != nil {
		return err
	}

	step := campaign.Steps[next]
	enrollment.CurrentStep = next
	return e.scheduleStep(ctx, enrollment, step, e.now().UTC().Add(step.Offset()))
}

func (e *engine) Stop(ctx context.Context, enrollmentID string, status model.EnrollmentStatus, reason string) error {
	if status != model.EnrollmentPaused && status != model.EnrollmentUnsubscribed {
		return fmt.Errorf("invalid stop status %q", status)
	}

	stopped, err := e.enrollments.Transition(ctx, enrollmentID,
		[]model.EnrollmentStatus{model.EnrollmentActive, model.EnrollmentPaused},
		status, reason, nil)
	if err != nil {
		return err
	}
	if !stopped {
		return nil
	}

	cancelled, err := e.messages.CancelPendingForEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if cancelled > 0 {
		log.Printf("[INFO] enrollment %s stopped (%s), %d pending messages cancelled", enrollmentID, status, cancelled)
	}
	return nil
}

func (e *engine) Resume(ctx context.Context, enrollmentID string) error {
	resumed, err := e.enrollments.Transition(ctx, enrollmentID,
		[]model.EnrollmentStatus{model.EnrollmentPaused},
		model.EnrollmentActive, "", nil)
	if err != nil {
		return err
	}
	if !resumed {
		return nil
	}

	enrollment, err := e.enrollments.Get(ctx, enrollmentID)
	if err != nil {
		return err
	}
	campaign, err := e.campaigns.Get(ctx, enrollment.CampaignID)
	if err != nil {
		return err
	}
	if enrollment.CurrentStep >= len(campaign.Steps) {
		return nil
	}

	// The paused step's message was cancelled on stop; pick it back up now.
	step := campaign.Steps[enrollment.CurrentStep]
	return e.scheduleStep(ctx, enrollment, step, e.now().UTC())
}

func (e *engine) Unsubscribe(ctx context.Context, subjectID string, channel model.Channel) error {
	// Record first: the dispatcher consults opt-outs at send time, so this
	// also fences claimed-but-unsent messages.
	if err := e.subjects.RecordOptOut(ctx, subjectID, channel); err != nil {
		return err
	}

	active, err := e.enrollments.ListActiveByChannel(ctx, subjectID, channel)
	if err != nil {
		return err
	}

	for _, enrollment := range active {
		if err := e.Stop(ctx, enrollment.ID, model.EnrollmentUnsubscribed, "unsubscribe:"+string(channel)); err != nil {
			return err
		}
	}

	// One-off notifications on the channel are not tied to an enrollment.
	if _, err := e.messages.CancelPendingForChannel(ctx, subjectID, channel); err != nil {
		return err
	}
	return nil
}
