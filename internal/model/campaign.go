package model

import "time"

// Campaign is an immutable, versioned multi-step communication sequence.
// Editing a campaign creates a new version so in-flight enrollments keep
// the definition they started with.
type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     int            `json:"version"`
	TriggerType string         `json:"trigger_type"`
	Steps       []CampaignStep `json:"steps"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CampaignStep is one scheduled touch in a campaign.
type CampaignStep struct {
	Index         int     `json:"index"`
	OffsetSeconds int64   `json:"offset_seconds"`
	Channel       Channel `json:"channel"`
	TemplateID    string  `json:"template_id"`
}

// Offset returns the step's delay as a duration. Step 0 is offset from
// enrollment time; later steps are offset from the previous send.
func (s CampaignStep) Offset() time.Duration {
	return time.Duration(s.OffsetSeconds) * time.Second
}

// Template is a message body with {{placeholder}} slots.
type Template struct {
	ID      string
	Channel Channel
	Subject string
	Body    string
}

// EnrollmentStatus tracks a subject's traversal through a campaign.
type EnrollmentStatus string

const (
	EnrollmentActive       EnrollmentStatus = "active"
	EnrollmentPaused       EnrollmentStatus = "paused"
	EnrollmentCompleted    EnrollmentStatus = "completed"
	EnrollmentUnsubscribed EnrollmentStatus = "unsubscribed"
)

// Enrollment is a subject's active traversal through a campaign's steps.
// At most one active enrollment exists per (subject, campaign).
type Enrollment struct {
	ID          string           `json:"id"`
	SubjectID   string           `json:"subject_id"`
	CampaignID  string           `json:"campaign_id"`
	CurrentStep int              `json:"current_step_index"`
	Status      EnrollmentStatus `json:"status"`
	StopReason  string           `json:"stop_reason,omitempty"`
	EnrolledAt  time.Time        `json:"enrolled_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
