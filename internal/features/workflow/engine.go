package workflow

import (
	"fmt"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/assignment"
	"go-forms/pkg/condition"
)

// Engine owns a submission's step graph execution: starting it, resolving
// the current step, and executing named actions. Approval gates and
// auto-assignment are delegated to their engines; all I/O stays with the
// caller.
type Engine interface {
	StartWorkflow(config WorkflowConfig, ctx *models.EvaluationContext, now time.Time) (WorkflowState, error)
	GetCurrentStep(config WorkflowConfig, state WorkflowState) (*WorkflowStep, error)
	// ValidateAction runs every precondition of ExecuteAction (version token,
	// action availability, guard, roles, target step) without transitioning.
	// Callers use it to decide whether side effects like claiming an
	// assignment cursor slot are worth performing at all.
	ValidateAction(input ExecuteInput) error
	ExecuteAction(input ExecuteInput) (TransitionResult, error)
}

type EngineImpl struct {
	approvalEngine   approval.Engine
	assignmentEngine assignment.Engine
	evaluator        *condition.Evaluator
}

func NewEngine(approvalEngine approval.Engine, assignmentEngine assignment.Engine) Engine {
	return &EngineImpl{
		approvalEngine:   approvalEngine,
		assignmentEngine: assignmentEngine,
		evaluator:        condition.NewEvaluator(),
	}
}

// StartWorkflow positions the cursor on the single start step. When the
// start step is itself an approval gate its chain is initialized
// immediately and the submission goes straight to pending approval.
func (e *EngineImpl) StartWorkflow(config WorkflowConfig, ctx *models.EvaluationContext, now time.Time) (WorkflowState, error) {
	start, err := findStepByKind(config, StepStart)
	if err != nil {
		return WorkflowState{}, err
	}

	state := WorkflowState{
		CurrentStepID: start.ID,
		Status:        models.StatusSubmitted,
		Version:       1,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	if start.Kind == StepApproval || start.Approval != nil {
		if start.Approval != nil {
			state.Approvals = e.approvalEngine.InitializeApproval(*start.Approval, ctx, 0, now)
		}
		state.Status = models.StatusPendingApproval
	}

	return state, nil
}

func (e *EngineImpl) GetCurrentStep(config WorkflowConfig, state WorkflowState) (*WorkflowStep, error) {
	return findStep(config, state.CurrentStepID)
}

// resolveAction checks every precondition of a transition and returns the
// action plus its target step. Shared by ValidateAction and ExecuteAction so
// both agree on what counts as a legal move.
func (e *EngineImpl) resolveAction(input ExecuteInput) (*WorkflowAction, *WorkflowStep, error) {
	if input.ExpectedVersion != 0 && input.ExpectedVersion != input.State.Version {
		return nil, nil, fmt.Errorf("version %d does not match state version %d: %w",
			input.ExpectedVersion, input.State.Version, models.ErrConflict)
	}

	current, err := findStep(input.Config, input.State.CurrentStepID)
	if err != nil {
		return nil, nil, err
	}

	var action *WorkflowAction
	for i := range current.Actions {
		if current.Actions[i].ID == input.ActionID {
			action = &current.Actions[i]
			break
		}
	}
	if action == nil {
		return nil, nil, fmt.Errorf("action %q on step %q: %w", input.ActionID, current.ID, ErrActionNotAvailable)
	}

	if action.Guard != nil && !e.evaluator.Evaluate(action.Guard, input.Ctx) {
		return nil, nil, fmt.Errorf("action %q: %w", action.ID, ErrGuardNotSatisfied)
	}

	if len(action.RequiredRoles) > 0 && !hasAnyRole(input.Ctx, action.RequiredRoles) {
		return nil, nil, fmt.Errorf("action %q requires one of %v: %w", action.ID, action.RequiredRoles, models.ErrUnauthorized)
	}

	target, err := findStep(input.Config, action.TargetStepID)
	if err != nil {
		return nil, nil, err
	}
	return action, target, nil
}

func (e *EngineImpl) ValidateAction(input ExecuteInput) error {
	_, _, err := e.resolveAction(input)
	return err
}

// ExecuteAction moves the submission along one edge of the graph:
//
//  1. the action must be offered by the current step,
//  2. its guard condition must hold,
//  3. the acting user must carry a required role,
//  4. the target step decides the new status (approval gate, terminal end
//     step, or in-flight task status),
//  5. auto-assignment runs when the action asks for it,
//  6. the action's auto-actions come back as instructions for the caller.
func (e *EngineImpl) ExecuteAction(input ExecuteInput) (TransitionResult, error) {
	action, target, err := e.resolveAction(input)
	if err != nil {
		return TransitionResult{}, err
	}

	state := input.State
	state.CurrentStepID = target.ID
	state.UpdatedAt = input.Now
	state.Version++

	switch target.Kind {
	case StepApproval:
		// Re-entry after a rejection starts a fresh pass; earlier passes
		// stay in the record list as audit history.
		pass := 0
		if len(state.Approvals) > 0 {
			pass = latestRecordPass(state.Approvals) + 1
			state.Pass = pass
		}
		if target.Approval != nil {
			fresh := e.approvalEngine.InitializeApproval(*target.Approval, input.Ctx, pass, input.Now)
			state.Approvals = append(state.Approvals, fresh...)
		}
		state.Status = models.StatusPendingApproval
	case StepEnd:
		status := target.TerminalStatus
		if status == "" {
			status = models.StatusCompleted
		}
		state.Status = status
	default:
		if target.Status != "" {
			state.Status = target.Status
		} else {
			state.Status = models.StatusInProgress
		}
	}

	result := TransitionResult{State: state}

	if action.AutoAssign {
		if rule, ok := pickAssignmentRule(target, input.AssignmentRules); ok {
			picked := e.assignmentEngine.Assign(rule, input.Load, input.Ctx)
			result.Assignment = &picked
			if picked.Assigned {
				result.State.AssignedTo = picked.AssigneeID
			}
		}
	}

	for _, auto := range action.AutoActions {
		result.Instructions = append(result.Instructions, models.Instruction{
			Kind:    auto.Kind,
			Payload: auto.Config,
		})
	}

	return result, nil
}

func findStep(config WorkflowConfig, id string) (*WorkflowStep, error) {
	for i := range config.Steps {
		if config.Steps[i].ID == id {
			return &config.Steps[i], nil
		}
	}
	return nil, fmt.Errorf("step %q: %w", id, ErrStepNotFound)
}

func findStepByKind(config WorkflowConfig, kind StepKind) (*WorkflowStep, error) {
	for i := range config.Steps {
		if config.Steps[i].Kind == kind {
			return &config.Steps[i], nil
		}
	}
	return nil, fmt.Errorf("no step of kind %q: %w", kind, ErrStepNotFound)
}

func hasAnyRole(ctx *models.EvaluationContext, required []string) bool {
	if ctx == nil {
		return false
	}
	for _, want := range required {
		for _, have := range ctx.User.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

// pickAssignmentRule resolves the rule for an auto-assigning transition:
// the target step's configured rule when set, otherwise the first rule in
// template order.
func pickAssignmentRule(target *WorkflowStep, rules []assignment.AssignmentRule) (assignment.AssignmentRule, bool) {
	if target.AssignmentRuleID != "" {
		for _, rule := range rules {
			if rule.ID == target.AssignmentRuleID {
				return rule, true
			}
		}
		return assignment.AssignmentRule{}, false
	}
	if len(rules) > 0 {
		return rules[0], true
	}
	return assignment.AssignmentRule{}, false
}

func latestRecordPass(records []approval.ApprovalRecord) int {
	pass := 0
	for _, rec := range records {
		if rec.Pass > pass {
			pass = rec.Pass
		}
	}
	return pass
}
