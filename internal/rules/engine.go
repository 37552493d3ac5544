// Package rules evaluates trigger rules against the event store and turns
// matched rules into actions. Execution of those actions happens elsewhere.
package rules

import (
	"context"
	"fmt"
	"log"
	"time"

	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
)

// DefaultWindow applies to leaf conditions that omit a window.
const DefaultWindow = 24 * time.Hour

// Engine evaluates applicable rules for each new event.
type Engine interface {
	// Evaluate returns the ordered actions of every rule that fired for the
	// event. A single rule's evaluation error is logged and isolated; it
	// never aborts the batch.
	Evaluate(ctx context.Context, event model.Event) ([]model.Action, error)
}

type engine struct {
	rules           repository.RuleRepository
	events          repository.EventRepository
	defaultCooldown time.Duration
	now             func() time.Time
}

// NewEngine constructs a rule engine. defaultCooldown applies to rules that
// do not set their own cooldown.
func NewEngine(rules repository.RuleRepository, events repository.EventRepository, defaultCooldown time.Duration) Engine {
	return &engine{
		rules:           rules,
		events:          events,
		defaultCooldown: defaultCooldown,
		now:             time.Now,
	}
}

func (e *engine) Evaluate(ctx context.Context, event model.Event) ([]model.Action, error) {
	enabled, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	now := e.now().UTC()

	// ListEnabled returns rules ordered by priority then id, so appending
	// fired rules' actions preserves the required application order.
	var actions []model.Action
	for _, rule := range enabled {
		if !rule.References(event.Type) {
			continue
		}

		fired, err := e.ruleFires(ctx, rule, event, now)
		if err != nil {
			log.Printf("[ERROR] rule %s evaluation failed for subject %s: %v", rule.ID, event.SubjectID, err)
			continue
		}
		if !fired {
			continue
		}

		actions = append(actions, rule.Actions...)
	}

	return orderActions(actions), nil
}

func (e *engine) ruleFires(ctx context.Context, rule model.TriggerRule, event model.Event, now time.Time) (bool, error) {
	for _, cond := range rule.Conditions {
		ok, err := e.evalCondition(ctx, cond, event.SubjectID, now)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = e.defaultCooldown
	}

	// The cooldown acquire is the atomic gate: under a burst of qualifying
	// events only one acquires the firing slot per interval.
	acquired, err := e.rules.AcquireCooldown(ctx, rule.ID, event.SubjectID, cooldown, now)
	if err != nil {
		return false, fmt.Errorf("acquire cooldown: %w", err)
	}
	return acquired, nil
}

func (e *engine) evalCondition(ctx context.Context, cond model.Condition, subjectID string, now time.Time) (bool, error) {
	if cond.IsComposite() {
		for _, sub := range cond.All {
			ok, err := e.evalCondition(ctx, sub, subjectID, now)
			if err != nil || !ok {
				return false, err
			}
		}
		if len(cond.Any) > 0 {
			matched := false
			for _, sub := range cond.Any {
				ok, err := e.evalCondition(ctx, sub, subjectID, now)
				if err != nil {
					return false, err
				}
				if ok {
					matched = true
					break
				}
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}

	window := cond.Window()
	if window <= 0 {
		window = DefaultWindow
	}
	minCount := cond.MinCount
	if minCount <= 0 {
		minCount = 1
	}

	count, err := e.events.CountSince(ctx, subjectID, cond.EventType, now.Add(-window))
	if err != nil {
		return false, fmt.Errorf("count %s events: %w", cond.EventType, err)
	}
	return count >= int64(minCount), nil
}

// orderActions keeps batch order except that a stop_campaign always runs
// before a start_campaign for the same campaign.
func orderActions(actions []model.Action) []model.Action {
	if len(actions) < 2 {
		return actions
	}

	ordered := make([]model.Action, 0, len(actions))
	emitted := make([]bool, len(actions))

	for i, a := range actions {
		if emitted[i] {
			continue
		}
		if a.Type == model.ActionStartCampaign {
			for j := i + 1; j < len(actions); j++ {
				if !emitted[j] && actions[j].Type == model.ActionStopCampaign && actions[j].CampaignID == a.CampaignID {
					ordered = append(ordered, actions[j])
					emitted[j] = true
				}
			}
		}
		ordered = append(ordered, a)
		emitted[i] = true
	}

	return ordered
}
