package rules

import (
	"go-forms/internal/common/models"
	"go-forms/internal/features/assignment"
)

type TriggerType string

const (
	TriggerOnSubmit       TriggerType = "on_submit"
	TriggerOnFieldChange  TriggerType = "on_field_change"
	TriggerOnStatusChange TriggerType = "on_status_change"
	TriggerScheduled      TriggerType = "scheduled"
)

type ActionType string

const (
	ActionNotify        ActionType = "notify"
	ActionAssign        ActionType = "assign"
	ActionSetFieldValue ActionType = "set_field_value"
	ActionCreateTask    ActionType = "create_task"
	ActionChangeStatus  ActionType = "change_status"
	ActionEscalate      ActionType = "escalate"
	ActionCallWebhook   ActionType = "call_webhook"
	ActionRunScript     ActionType = "run_script"
)

type RuleAction struct {
	Type   ActionType             `json:"type" bson:"type"`
	Config map[string]interface{} `json:"config,omitempty" bson:"config,omitempty"`
}

// BusinessRule is an event-triggered automation definition. Rules are
// stateless; each matching event produces a fresh RuleExecutionResult.
type BusinessRule struct {
	ID       string      `json:"id" bson:"id"`
	Name     string      `json:"name" bson:"name"`
	Enabled  bool        `json:"enabled" bson:"enabled"`
	Priority int         `json:"priority" bson:"priority"`
	Trigger  TriggerType `json:"trigger" bson:"trigger"`
	// Field narrows an on_field_change rule to one field; empty matches any.
	Field string `json:"field,omitempty" bson:"field,omitempty"`
	// FromStatus/ToStatus narrow an on_status_change rule; empty matches any.
	FromStatus models.SubmissionStatus `json:"from_status,omitempty" bson:"from_status,omitempty"`
	ToStatus   models.SubmissionStatus `json:"to_status,omitempty" bson:"to_status,omitempty"`
	// Schedule holds the cron expression for scheduled rules. The engine only
	// matches on trigger type; the surrounding scheduler owns the timing.
	Schedule  string                 `json:"schedule,omitempty" bson:"schedule,omitempty"`
	Condition *models.ConditionGroup `json:"condition,omitempty" bson:"condition,omitempty"`
	Actions   []RuleAction           `json:"actions" bson:"actions"`
}

// TriggerEvent is one submission lifecycle event fed into Evaluate.
type TriggerEvent struct {
	Type       TriggerType
	Field      string
	OldValue   interface{}
	NewValue   interface{}
	FromStatus models.SubmissionStatus
	ToStatus   models.SubmissionStatus
}

// EvaluateInput bundles the rule set, the event, the evaluation context and
// the assignment inputs needed when an action delegates to auto-assignment.
type EvaluateInput struct {
	Rules           []BusinessRule
	Event           TriggerEvent
	Ctx             *models.EvaluationContext
	AssignmentRules []assignment.AssignmentRule
	Load            assignment.LoadSnapshot
}

// RuleExecutionResult is the per-rule outcome. A failed rule carries its
// error here instead of aborting the batch.
type RuleExecutionResult struct {
	RuleID       string
	RuleName     string
	Updates      map[string]*models.FieldUpdate
	Status       models.SubmissionStatus
	AssignedTo   string
	Assignment   *assignment.AssignmentResult
	Instructions []models.Instruction
	Err          error
}
