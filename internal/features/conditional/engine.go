package conditional

import (
	"sort"

	"go-forms/internal/common/models"
	"go-forms/pkg/condition"
)

// Engine evaluates conditional rules and turns their actions into field
// deltas. It is pure: no persistence, no clock, no I/O.
type Engine interface {
	Evaluate(group *models.ConditionGroup, ctx *models.EvaluationContext) bool
	ApplyRules(rules []ConditionalRule, ctx *models.EvaluationContext) map[string]*models.FieldUpdate
	ExecuteAction(action RuleAction, ctx *models.EvaluationContext) (string, *models.FieldUpdate)
}

type EngineImpl struct {
	evaluator *condition.Evaluator
}

func NewEngine() Engine {
	return &EngineImpl{evaluator: condition.NewEvaluator()}
}

func (e *EngineImpl) Evaluate(group *models.ConditionGroup, ctx *models.EvaluationContext) bool {
	return e.evaluator.Evaluate(group, ctx)
}

// ApplyRules runs rules in configured order and merges matching rules'
// actions into one update map. When two rules touch the same field property,
// the later rule wins.
func (e *EngineImpl) ApplyRules(rules []ConditionalRule, ctx *models.EvaluationContext) map[string]*models.FieldUpdate {
	ordered := make([]ConditionalRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	updates := make(map[string]*models.FieldUpdate)

	for _, rule := range ordered {
		if !e.evaluator.Evaluate(&rule.Condition, ctx) {
			continue
		}
		for _, action := range rule.Actions {
			field, update := e.ExecuteAction(action, ctx)
			if field == "" || update == nil {
				continue
			}
			if existing, ok := updates[field]; ok {
				existing.Merge(update)
			} else {
				updates[field] = update
			}
		}
	}

	return updates
}

// ExecuteAction maps one action to its field delta. Unknown action types
// produce no delta; malformed configuration degrades to a no-op rather than
// blocking the form.
func (e *EngineImpl) ExecuteAction(action RuleAction, _ *models.EvaluationContext) (string, *models.FieldUpdate) {
	boolPtr := func(b bool) *bool { return &b }

	switch action.Type {
	case ActionShowField:
		return action.Field, &models.FieldUpdate{Visible: boolPtr(true)}
	case ActionHideField:
		return action.Field, &models.FieldUpdate{Visible: boolPtr(false)}
	case ActionSetRequired:
		return action.Field, &models.FieldUpdate{Required: boolPtr(true)}
	case ActionSetOptional:
		return action.Field, &models.FieldUpdate{Required: boolPtr(false)}
	case ActionSetValue:
		return action.Field, &models.FieldUpdate{Value: action.Value, HasValue: true}
	case ActionSetOptions:
		return action.Field, &models.FieldUpdate{Options: action.Options}
	case ActionDisableField:
		return action.Field, &models.FieldUpdate{Disabled: boolPtr(true)}
	case ActionEnableField:
		return action.Field, &models.FieldUpdate{Disabled: boolPtr(false)}
	}

	return "", nil
}
