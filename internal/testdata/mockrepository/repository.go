package mockrepository

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
)

// EventRepository mocks the event store.
type EventRepository struct {
	mock.Mock
}

var _ repository.EventRepository = &EventRepository{}

func (m *EventRepository) Insert(ctx context.Context, event model.Event) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *EventRepository) CountSince(ctx context.Context, subjectID, eventType string, since time.Time) (int64, error) {
	args := m.Called(ctx, subjectID, eventType, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *EventRepository) ListBySubject(ctx context.Context, subjectID, eventType string, since time.Time) ([]model.Event, error) {
	args := m.Called(ctx, subjectID, eventType, since)
	return args.Get(0).([]model.Event), args.Error(1)
}

func (m *EventRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// RuleRepository mocks rule storage and cooldown claims.
type RuleRepository struct {
	mock.Mock
}

var _ repository.RuleRepository = &RuleRepository{}

func (m *RuleRepository) ListEnabled(ctx context.Context) ([]model.TriggerRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.TriggerRule), args.Error(1)
}

func (m *RuleRepository) List(ctx context.Context) ([]model.TriggerRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.TriggerRule), args.Error(1)
}

func (m *RuleRepository) AcquireCooldown(ctx context.Context, ruleID, subjectID string, cooldown time.Duration, now time.Time) (bool, error) {
	args := m.Called(ctx, ruleID, subjectID, cooldown, now)
	return args.Bool(0), args.Error(1)
}

// CampaignRepository mocks campaign and template reads.
type CampaignRepository struct {
	mock.Mock
}

var _ repository.CampaignRepository = &CampaignRepository{}

func (m *CampaignRepository) Get(ctx context.Context, id string) (model.Campaign, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Campaign), args.Error(1)
}

func (m *CampaignRepository) List(ctx context.Context) ([]model.Campaign, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Campaign), args.Error(1)
}

func (m *CampaignRepository) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Template), args.Error(1)
}

// EnrollmentRepository mocks enrollment state transitions.
type EnrollmentRepository struct {
	mock.Mock
}

var _ repository.EnrollmentRepository = &EnrollmentRepository{}

func (m *EnrollmentRepository) Insert(ctx context.Context, enrollment model.Enrollment) (model.Enrollment, bool, error) {
	args := m.Called(ctx, enrollment)
	return args.Get(0).(model.Enrollment), args.Bool(1), args.Error(2)
}

func (m *EnrollmentRepository) Get(ctx context.Context, id string) (model.Enrollment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Enrollment), args.Error(1)
}

func (m *EnrollmentRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Enrollment, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).([]model.Enrollment), args.Error(1)
}

func (m *EnrollmentRepository) ListActiveByChannel(ctx context.Context, subjectID string, channel model.Channel) ([]model.Enrollment, error) {
	args := m.Called(ctx, subjectID, channel)
	return args.Get(0).([]model.Enrollment), args.Error(1)
}

func (m *EnrollmentRepository) SetStep(ctx context.Context, id string, step int) error {
	args := m.Called(ctx, id, step)
	return args.Error(0)
}

func (m *EnrollmentRepository) Transition(ctx context.Context, id string, from []model.EnrollmentStatus, to model.EnrollmentStatus, reason string, completedAt *time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, reason, completedAt)
	return args.Bool(0), args.Error(1)
}

// MessageRepository mocks the scheduled message store.
type MessageRepository struct {
	mock.Mock
}

var _ repository.MessageRepository = &MessageRepository{}

func (m *MessageRepository) Schedule(ctx context.Context, msg model.ScheduledMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ClaimDue(ctx context.Context, claimedBy string, now time.Time, limit int) ([]model.ScheduledMessage, error) {
	args := m.Called(ctx, claimedBy, now, limit)
	return args.Get(0).([]model.ScheduledMessage), args.Error(1)
}

func (m *MessageRepository) MarkSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageRepository) MarkCancelled(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MessageRepository) Reschedule(ctx context.Context, id string, dueAt time.Time, attemptCount int, lastError string) error {
	args := m.Called(ctx, id, dueAt, attemptCount, lastError)
	return args.Error(0)
}

func (m *MessageRepository) MarkFailed(ctx context.Context, id string, attemptCount int, lastError string) error {
	args := m.Called(ctx, id, attemptCount, lastError)
	return args.Error(0)
}

func (m *MessageRepository) CancelPendingForEnrollment(ctx context.Context, enrollmentID string) (int64, error) {
	args := m.Called(ctx, enrollmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepository) CancelPendingForChannel(ctx context.Context, subjectID string, channel model.Channel) (int64, error) {
	args := m.Called(ctx, subjectID, channel)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepository) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// SubjectRepository mocks the contact projection store.
type SubjectRepository struct {
	mock.Mock
}

var _ repository.SubjectRepository = &SubjectRepository{}

func (m *SubjectRepository) Get(ctx context.Context, id string) (model.Subject, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Subject), args.Error(1)
}

func (m *SubjectRepository) UpsertContact(ctx context.Context, id, name, email, phone string) error {
	args := m.Called(ctx, id, name, email, phone)
	return args.Error(0)
}

func (m *SubjectRepository) AdjustScore(ctx context.Context, id string, delta int) (int, error) {
	args := m.Called(ctx, id, delta)
	return args.Int(0), args.Error(1)
}

func (m *SubjectRepository) AddTag(ctx context.Context, id, tag string) error {
	args := m.Called(ctx, id, tag)
	return args.Error(0)
}

func (m *SubjectRepository) RemoveTag(ctx context.Context, id, tag string) error {
	args := m.Called(ctx, id, tag)
	return args.Error(0)
}

func (m *SubjectRepository) RecordOptOut(ctx context.Context, id string, channel model.Channel) error {
	args := m.Called(ctx, id, channel)
	return args.Error(0)
}

func (m *SubjectRepository) IsOptedOut(ctx context.Context, id string, channel model.Channel) (bool, error) {
	args := m.Called(ctx, id, channel)
	return args.Bool(0), args.Error(1)
}

func (m *SubjectRepository) CreateTask(ctx context.Context, task model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// AlertRepository mocks operator alert storage.
type AlertRepository struct {
	mock.Mock
}

var _ repository.AlertRepository = &AlertRepository{}

func (m *AlertRepository) Raise(ctx context.Context, alert model.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *AlertRepository) ListOpen(ctx context.Context) ([]model.Alert, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Alert), args.Error(1)
}

func (m *AlertRepository) Ack(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
