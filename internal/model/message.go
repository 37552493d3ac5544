package model

import "time"

// Channel is a delivery channel for outbound messages.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Priority classifies how aggressively a notification is routed.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// RouteChannels maps a priority to the channels a notification goes out on.
// Low and normal stay on the primary channel; high and urgent add SMS.
func (p Priority) RouteChannels(primary Channel) []Channel {
	switch p {
	case PriorityHigh, PriorityUrgent:
		if primary == ChannelSMS {
			return []Channel{ChannelSMS, ChannelEmail}
		}
		return []Channel{ChannelEmail, ChannelSMS}
	default:
		return []Channel{primary}
	}
}

// MessageStatus is the lifecycle state of a scheduled message.
type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageClaimed   MessageStatus = "claimed"
	MessageSent      MessageStatus = "sent"
	MessageFailed    MessageStatus = "failed"
	MessageCancelled MessageStatus = "cancelled"
)

// ScheduledMessage is the durable unit of work the scheduler polls.
// pending → claimed → sent | pending (retry) | failed | cancelled.
type ScheduledMessage struct {
	ID           string
	EnrollmentID string // empty for one-off notifications
	SubjectID    string
	DueAt        time.Time
	Channel      Channel
	TemplateID   string
	Priority     Priority
	Status       MessageStatus
	AttemptCount int
	ClaimedBy    string
	ClaimedAt    *time.Time
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NotificationRequest is the ephemeral value the dispatcher builds from a
// claimed message right before handing it to the transports.
type NotificationRequest struct {
	SubjectID string
	Priority  Priority
	Channels  []Channel
	Subject   string
	Body      string
}

// Alert is an operator-visible record of a permanently failed message.
type Alert struct {
	ID        string     `json:"id"`
	SubjectID string     `json:"subject_id"`
	MessageID string     `json:"message_id"`
	Message   string     `json:"message"`
	Status    string     `json:"status"` // open, acked
	CreatedAt time.Time  `json:"created_at"`
	AckedAt   *time.Time `json:"acked_at,omitempty"`
}

// Task is a follow-up item created for a human agent by a rule action.
type Task struct {
	ID          string
	SubjectID   string
	Description string
	Status      string // open, done
	CreatedAt   time.Time
}

// Subject is the minimal contact projection the dispatcher needs to
// deliver messages. Full lead/contact records live outside this core.
type Subject struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Score     int
	UpdatedAt time.Time
}
