package workflow

import (
	"errors"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/assignment"
)

var (
	// ErrStepNotFound signals template/state drift: the state points at a
	// step the config no longer has. A data-integrity bug upstream, not
	// recoverable here.
	ErrStepNotFound = errors.New("workflow step not found in template config")
	// ErrActionNotAvailable means the requested action is not offered by the
	// current step.
	ErrActionNotAvailable = errors.New("action is not available on the current step")
	// ErrGuardNotSatisfied means the action's guard condition evaluated
	// false for this context.
	ErrGuardNotSatisfied = errors.New("action guard condition not satisfied")
)

type StepKind string

const (
	StepStart    StepKind = "start"
	StepTask     StepKind = "task"
	StepApproval StepKind = "approval"
	StepEnd      StepKind = "end"
)

// AutoAction is a side effect configured on a transition, returned to the
// caller as an instruction after the transition lands.
type AutoAction struct {
	Kind   models.InstructionKind `json:"kind" bson:"kind"`
	Config map[string]interface{} `json:"config,omitempty" bson:"config,omitempty"`
}

// WorkflowAction is a named transition choice offered by a step.
type WorkflowAction struct {
	ID            string                 `json:"id" bson:"id"`
	Name          string                 `json:"name" bson:"name"`
	TargetStepID  string                 `json:"target_step_id" bson:"target_step_id"`
	RequiredRoles []string               `json:"required_roles,omitempty" bson:"required_roles,omitempty"`
	Guard         *models.ConditionGroup `json:"guard,omitempty" bson:"guard,omitempty"`
	AutoAssign    bool                   `json:"auto_assign" bson:"auto_assign"`
	AutoActions   []AutoAction           `json:"auto_actions,omitempty" bson:"auto_actions,omitempty"`
}

// WorkflowStep is one node of a template's step graph. The graph is set per
// template version and read-only during execution.
type WorkflowStep struct {
	ID               string                   `json:"id" bson:"id"`
	Name             string                   `json:"name" bson:"name"`
	Kind             StepKind                 `json:"kind" bson:"kind"`
	Actions          []WorkflowAction         `json:"actions,omitempty" bson:"actions,omitempty"`
	Approval         *approval.ApprovalConfig `json:"approval,omitempty" bson:"approval,omitempty"`             // approval steps
	Status           models.SubmissionStatus  `json:"status,omitempty" bson:"status,omitempty"`                 // in-flight status while on a task step
	TerminalStatus   models.SubmissionStatus  `json:"terminal_status,omitempty" bson:"terminal_status,omitempty"` // end steps
	AssignmentRuleID string                   `json:"assignment_rule_id,omitempty" bson:"assignment_rule_id,omitempty"`
}

type WorkflowConfig struct {
	Steps []WorkflowStep `json:"steps" bson:"steps"`
}

// WorkflowState is the per-submission execution cursor. Version implements
// the optimistic concurrency token callers pass back on every transition.
type WorkflowState struct {
	CurrentStepID string                    `json:"current_step_id" bson:"current_step_id"`
	Status        models.SubmissionStatus   `json:"status" bson:"status"`
	Approvals     []approval.ApprovalRecord `json:"approvals,omitempty" bson:"approvals,omitempty"`
	AssignedTo    string                    `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	Pass          int                       `json:"pass" bson:"pass"`
	Version       int64                     `json:"version" bson:"version"`
	StartedAt     time.Time                 `json:"started_at" bson:"started_at"`
	UpdatedAt     time.Time                 `json:"updated_at" bson:"updated_at"`
}

// ExecuteInput bundles everything one transition needs: the config/state
// snapshot, the acting context, the caller-held version token, and the
// assignment inputs for steps that auto-assign.
type ExecuteInput struct {
	Config          WorkflowConfig
	State           WorkflowState
	ActionID        string
	Ctx             *models.EvaluationContext
	Now             time.Time
	ExpectedVersion int64
	AssignmentRules []assignment.AssignmentRule
	Load            assignment.LoadSnapshot
}

// TransitionResult is the new state plus everything the caller must act on:
// the assignment pick (including the round-robin cursor to persist) and the
// side-effect instructions. The engine performs none of it.
type TransitionResult struct {
	State        WorkflowState
	Assignment   *assignment.AssignmentResult
	Instructions []models.Instruction
}
