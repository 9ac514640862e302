package rules

import (
	"fmt"
	"sort"

	"go-forms/internal/common/models"
	"go-forms/internal/features/assignment"
	"go-forms/pkg/condition"

	"github.com/d5/tengo/v2"
)

// Engine evaluates business rules against a trigger event. It is pure: the
// results carry field deltas, status changes and side-effect instructions for
// the caller to apply; the engine itself performs no I/O.
type Engine interface {
	Evaluate(input EvaluateInput) []RuleExecutionResult
}

type EngineImpl struct {
	assignmentEngine assignment.Engine
	evaluator        *condition.Evaluator
}

func NewEngine(assignmentEngine assignment.Engine) Engine {
	return &EngineImpl{
		assignmentEngine: assignmentEngine,
		evaluator:        condition.NewEvaluator(),
	}
}

// Evaluate selects the enabled rules whose trigger matches the event and
// whose condition holds, orders them by descending priority (ties keep
// declaration order) and executes each one. A failing rule is recorded in its
// own result and never blocks the rules after it.
func (e *EngineImpl) Evaluate(input EvaluateInput) []RuleExecutionResult {
	var matched []BusinessRule
	for _, rule := range input.Rules {
		if !rule.Enabled {
			continue
		}
		if !matchesTrigger(rule, input.Event) {
			continue
		}
		if rule.Condition != nil && !e.evaluator.Evaluate(rule.Condition, input.Ctx) {
			continue
		}
		matched = append(matched, rule)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	results := make([]RuleExecutionResult, 0, len(matched))
	for _, rule := range matched {
		results = append(results, e.executeRule(rule, input))
	}
	return results
}

func matchesTrigger(rule BusinessRule, event TriggerEvent) bool {
	if rule.Trigger != event.Type {
		return false
	}
	switch event.Type {
	case TriggerOnFieldChange:
		return rule.Field == "" || rule.Field == event.Field
	case TriggerOnStatusChange:
		if rule.FromStatus != "" && rule.FromStatus != event.FromStatus {
			return false
		}
		if rule.ToStatus != "" && rule.ToStatus != event.ToStatus {
			return false
		}
		return true
	default:
		return true
	}
}

// executeRule runs the rule's actions in order. The first failing action
// stops the rule and records the error; effects from earlier actions of the
// same rule are kept, matching append-style execution semantics.
func (e *EngineImpl) executeRule(rule BusinessRule, input EvaluateInput) RuleExecutionResult {
	result := RuleExecutionResult{RuleID: rule.ID, RuleName: rule.Name}

	for i, action := range rule.Actions {
		if err := e.executeAction(action, input, &result); err != nil {
			result.Err = fmt.Errorf("action %d (%s): %w", i, action.Type, err)
			break
		}
	}

	return result
}

func (e *EngineImpl) executeAction(action RuleAction, input EvaluateInput, result *RuleExecutionResult) error {
	switch action.Type {
	case ActionNotify:
		result.Instructions = append(result.Instructions, models.Instruction{
			Kind: models.InstructionNotify, Payload: action.Config,
		})
		return nil

	case ActionCallWebhook:
		if url, _ := action.Config["url"].(string); url == "" {
			return fmt.Errorf("webhook url is required")
		}
		result.Instructions = append(result.Instructions, models.Instruction{
			Kind: models.InstructionCallWebhook, Payload: action.Config,
		})
		return nil

	case ActionCreateTask:
		if subject, _ := action.Config["subject"].(string); subject == "" {
			return fmt.Errorf("task subject is required")
		}
		result.Instructions = append(result.Instructions, models.Instruction{
			Kind: models.InstructionCreateTask, Payload: action.Config,
		})
		return nil

	case ActionEscalate:
		result.Instructions = append(result.Instructions, models.Instruction{
			Kind: models.InstructionEscalate, Payload: action.Config,
		})
		return nil

	case ActionSetFieldValue:
		return e.executeSetFieldValue(action.Config, result)

	case ActionChangeStatus:
		status, _ := action.Config["status"].(string)
		if status == "" {
			return fmt.Errorf("status is required for change_status action")
		}
		result.Status = models.SubmissionStatus(status)
		return nil

	case ActionAssign:
		return e.executeAssign(action.Config, input, result)

	case ActionRunScript:
		return e.executeRunScript(action.Config, input, result)

	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *EngineImpl) executeSetFieldValue(config map[string]interface{}, result *RuleExecutionResult) error {
	field, _ := config["field"].(string)
	if field == "" {
		return fmt.Errorf("field name is required for set_field_value action")
	}
	setUpdate(result, field, config["value"])
	return nil
}

// executeAssign either sets a direct assignee from config or delegates to the
// assignment engine via a named assignment rule.
func (e *EngineImpl) executeAssign(config map[string]interface{}, input EvaluateInput, result *RuleExecutionResult) error {
	if assignee, _ := config["assignee"].(string); assignee != "" {
		result.AssignedTo = assignee
		return nil
	}

	ruleID, _ := config["rule_id"].(string)
	if ruleID == "" {
		return fmt.Errorf("assign action needs an assignee or a rule_id")
	}

	for _, rule := range input.AssignmentRules {
		if rule.ID != ruleID {
			continue
		}
		picked := e.assignmentEngine.Assign(rule, input.Load, input.Ctx)
		result.Assignment = &picked
		if picked.Assigned {
			result.AssignedTo = picked.AssigneeID
		}
		return nil
	}
	return fmt.Errorf("assignment rule %q not found", ruleID)
}

// executeRunScript runs a configured tengo script with the submission data
// and event bound. The script reports field changes by assigning an `updates`
// map of field id to value.
func (e *EngineImpl) executeRunScript(config map[string]interface{}, input EvaluateInput, result *RuleExecutionResult) error {
	scriptContent, _ := config["script"].(string)
	if scriptContent == "" {
		return fmt.Errorf("script content is required")
	}

	script := tengo.NewScript([]byte(scriptContent))

	var data map[string]interface{}
	if input.Ctx != nil {
		data = input.Ctx.Data
	}
	if err := script.Add("data", data); err != nil {
		return fmt.Errorf("failed to bind script input: %w", err)
	}
	if err := script.Add("event", string(input.Event.Type)); err != nil {
		return fmt.Errorf("failed to bind script input: %w", err)
	}
	if err := script.Add("updates", map[string]interface{}{}); err != nil {
		return fmt.Errorf("failed to bind script input: %w", err)
	}

	compiled, err := script.Run()
	if err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}

	updates := compiled.Get("updates")
	if updates == nil || updates.IsUndefined() {
		return nil
	}
	for field, value := range updates.Map() {
		setUpdate(result, field, value)
	}
	return nil
}

func setUpdate(result *RuleExecutionResult, field string, value interface{}) {
	if result.Updates == nil {
		result.Updates = make(map[string]*models.FieldUpdate)
	}
	update := &models.FieldUpdate{Value: value, HasValue: true}
	if existing, ok := result.Updates[field]; ok {
		existing.Merge(update)
		return
	}
	result.Updates[field] = update
}
