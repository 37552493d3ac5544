package model

import (
	"encoding/json"
	"time"
)

// Condition describes a requirement on a subject's recent event history.
// A leaf condition counts events of one type inside a rolling window.
// Composite conditions nest sub-conditions with ALL / ANY semantics.
type Condition struct {
	EventType     string      `json:"event_type,omitempty"`
	MinCount      int         `json:"min_count,omitempty"`
	WindowSeconds int64       `json:"window_seconds,omitempty"`
	All           []Condition `json:"all,omitempty"`
	Any           []Condition `json:"any,omitempty"`
}

// Window returns the leaf condition's rolling window as a duration.
func (c Condition) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// IsComposite reports whether the condition nests sub-conditions.
func (c Condition) IsComposite() bool {
	return len(c.All) > 0 || len(c.Any) > 0
}

// References reports whether the condition (or any sub-condition)
// involves the given event type. Rules whose conditions never reference
// an event's type are skipped during evaluation of that event.
func (c Condition) References(eventType string) bool {
	if c.EventType == eventType {
		return true
	}
	for _, sub := range c.All {
		if sub.References(eventType) {
			return true
		}
	}
	for _, sub := range c.Any {
		if sub.References(eventType) {
			return true
		}
	}
	return false
}

// ActionType enumerates the actions a fired rule can request.
type ActionType string

const (
	ActionStartCampaign    ActionType = "start_campaign"
	ActionStopCampaign     ActionType = "stop_campaign"
	ActionAdjustScore      ActionType = "adjust_score"
	ActionSendNotification ActionType = "send_notification"
	ActionCreateTask       ActionType = "create_task"
	ActionAddTag           ActionType = "add_tag"
	ActionRemoveTag        ActionType = "remove_tag"
)

// Action is pure data describing one side effect to apply for a subject.
// Execution happens in the campaign engine and dispatcher, never here.
type Action struct {
	Type        ActionType `json:"type"`
	CampaignID  string     `json:"campaign_id,omitempty"`
	Delta       int        `json:"delta,omitempty"`
	TemplateID  string     `json:"template_id,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Description string     `json:"description,omitempty"`
	Tag         string     `json:"tag,omitempty"`
}

// TriggerRule is an administrator-defined automation rule. Rules are
// read-only configuration inside this service; the admin surface that
// mutates them lives outside the core.
type TriggerRule struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Priority   int           `json:"priority"`
	Enabled    bool          `json:"enabled"`
	Cooldown   time.Duration `json:"-"`
	Conditions []Condition   `json:"conditions"`
	Actions    []Action      `json:"actions"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// MarshalJSON emits the cooldown in seconds, matching the stored form.
func (r TriggerRule) MarshalJSON() ([]byte, error) {
	type plain TriggerRule
	return json.Marshal(struct {
		plain
		CooldownSeconds int64 `json:"cooldown_seconds"`
	}{plain(r), int64(r.Cooldown / time.Second)})
}

// References reports whether any top-level condition involves the event type.
func (r TriggerRule) References(eventType string) bool {
	for _, c := range r.Conditions {
		if c.References(eventType) {
			return true
		}
	}
	return false
}
