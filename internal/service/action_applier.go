package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"lead-automation-service/internal/campaign"
	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
)

// ActionApplier executes the side effects a fired rule requested.
type ActionApplier interface {
	// Apply runs each action for the subject. Actions are independent: a
	// failing action is logged and the rest still run.
	Apply(ctx context.Context, subjectID string, actions []model.Action)
}

type actionApplier struct {
	campaigns   campaign.Engine
	definitions repository.CampaignRepository
	enrollments repository.EnrollmentRepository
	messages    repository.MessageRepository
	subjects    repository.SubjectRepository
	now         func() time.Time
	newID       func() string
}

// NewActionApplier constructs an ActionApplier.
func NewActionApplier(
	campaigns campaign.Engine,
	definitions repository.CampaignRepository,
	enrollments repository.EnrollmentRepository,
	messages repository.MessageRepository,
	subjects repository.SubjectRepository,
) ActionApplier {
	return &actionApplier{
		campaigns:   campaigns,
		definitions: definitions,
		enrollments: enrollments,
		messages:    messages,
		subjects:    subjects,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (a *actionApplier) Apply(ctx context.Context, subjectID string, actions []model.Action) {
	for _, action := range actions {
		if err := a.apply(ctx, subjectID, action); err != nil {
			log.Printf("[ERROR] action %s for subject %s failed: %v", action.Type, subjectID, err)
		}
	}
}

func (a *actionApplier) apply(ctx context.Context, subjectID string, action model.Action) error {
	switch action.Type {
	case model.ActionStartCampaign:
		enrollment, created, err := a.campaigns.Enroll(ctx, subjectID, action.CampaignID)
		if err != nil {
			return err
		}
		if created {
			log.Printf("[INFO] enrolled subject %s in campaign %s (enrollment %s)", subjectID, action.CampaignID, enrollment.ID)
		}
		return nil

	case model.ActionStopCampaign:
		return a.stopCampaign(ctx, subjectID, action.CampaignID)

	case model.ActionAdjustScore:
		score, err := a.subjects.AdjustScore(ctx, subjectID, action.Delta)
		if err != nil {
			return err
		}
		log.Printf("[INFO] subject %s score adjusted by %d to %d", subjectID, action.Delta, score)
		return nil

	case model.ActionSendNotification:
		return a.scheduleNotification(ctx, subjectID, action)

	case model.ActionCreateTask:
		return a.subjects.CreateTask(ctx, model.Task{
			ID:          a.newID(),
			SubjectID:   subjectID,
			Description: action.Description,
			Status:      "open",
			CreatedAt:   a.now().UTC(),
		})

	case model.ActionAddTag:
		return a.subjects.AddTag(ctx, subjectID, action.Tag)

	case model.ActionRemoveTag:
		return a.subjects.RemoveTag(ctx, subjectID, action.Tag)

	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

// stopCampaign pauses the subject's active enrollment in the campaign, if
// one exists.
func (a *actionApplier) stopCampaign(ctx context.Context, subjectID, campaignID string) error {
	enrollments, err := a.enrollments.ListBySubject(ctx, subjectID)
	if err != nil {
		return err
	}

	for _, enrollment := range enrollments {
		if enrollment.CampaignID != campaignID || enrollment.Status != model.EnrollmentActive {
			continue
		}
		if err := a.campaigns.Stop(ctx, enrollment.ID, model.EnrollmentPaused, "stopped by rule"); err != nil {
			return err
		}
	}
	return nil
}

// scheduleNotification queues a one-off message, due immediately, outside
// any enrollment. The template decides the channel.
func (a *actionApplier) scheduleNotification(ctx context.Context, subjectID string, action model.Action) error {
	tpl, err := a.definitions.GetTemplate(ctx, action.TemplateID)
	if err != nil {
		return fmt.Errorf("template %s: %w", action.TemplateID, err)
	}

	priority := action.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	return a.messages.Schedule(ctx, model.ScheduledMessage{
		ID:         a.newID(),
		SubjectID:  subjectID,
		DueAt:      a.now().UTC(),
		Channel:    tpl.Channel,
		TemplateID: tpl.ID,
		Priority:   priority,
		Status:     model.MessagePending,
	})
}
