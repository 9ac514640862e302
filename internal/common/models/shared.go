package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	ActorIDKey ContextKey = "actor_id"
)

// Shared failure kinds. Engines return these (possibly wrapped); callers
// branch with errors.Is.
var (
	ErrUnauthorized = errors.New("actor is not allowed to perform this action")
	ErrConflict     = errors.New("state version is stale, re-read and retry")
)

// Field Definitions
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeCurrency    FieldType = "currency"
	FieldTypeDate        FieldType = "date"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeURL         FieldType = "url"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeFile        FieldType = "file"
)

type SelectOption struct {
	Label string `json:"label" bson:"label"`
	Value string `json:"value" bson:"value"`
}

// SmartField is one configurable form field. Once the owning template is
// published the definition is frozen; edits go into a new template version.
type SmartField struct {
	Name         string          `json:"name" bson:"name"`
	Label        string          `json:"label" bson:"label"`
	Type         FieldType       `json:"type" bson:"type"`
	Required     bool            `json:"required" bson:"required"`
	RequiredWhen *ConditionGroup `json:"required_when,omitempty" bson:"required_when,omitempty"`
	DefaultValue interface{}     `json:"default_value,omitempty" bson:"default_value,omitempty"`
	Options      []SelectOption  `json:"options,omitempty" bson:"options,omitempty"`
	OptionsURL   string          `json:"options_url,omitempty" bson:"options_url,omitempty"` // dynamically loaded option lists
	IsSystem     bool            `json:"is_system" bson:"is_system"`
}

// Condition DSL. Every rule family in the engine suite (conditional rules,
// validation applicability, approval level entry, workflow guards, business
// rules) shares this tree shape.
type ConditionOperator string

const (
	OpEquals         ConditionOperator = "equals"
	OpNotEquals      ConditionOperator = "not_equals"
	OpContains       ConditionOperator = "contains"
	OpNotContains    ConditionOperator = "not_contains"
	OpGreaterThan    ConditionOperator = "greater_than"
	OpLessThan       ConditionOperator = "less_than"
	OpGreaterOrEqual ConditionOperator = "greater_or_equal"
	OpLessOrEqual    ConditionOperator = "less_or_equal"
	OpIsEmpty        ConditionOperator = "is_empty"
	OpIsNotEmpty     ConditionOperator = "is_not_empty"
	OpIn             ConditionOperator = "in"
	OpNotIn          ConditionOperator = "not_in"
	OpMatchesPattern ConditionOperator = "matches_pattern"
)

type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeNumber  ValueType = "number"
	ValueTypeDate    ValueType = "date"
	ValueTypeBoolean ValueType = "boolean"
)

type Condition struct {
	Field     string            `json:"field" bson:"field"`
	Operator  ConditionOperator `json:"operator" bson:"operator"`
	Value     interface{}       `json:"value,omitempty" bson:"value,omitempty"`
	ValueType ValueType         `json:"value_type,omitempty" bson:"value_type,omitempty"`
}

type GroupOperator string

const (
	GroupAnd GroupOperator = "AND"
	GroupOr  GroupOperator = "OR"
)

type ConditionGroup struct {
	Operator   GroupOperator    `json:"operator" bson:"operator"`
	Conditions []Condition      `json:"conditions,omitempty" bson:"conditions,omitempty"`
	Groups     []ConditionGroup `json:"groups,omitempty" bson:"groups,omitempty"`
}

// Submission lifecycle statuses.
type SubmissionStatus string

const (
	StatusDraft           SubmissionStatus = "draft"
	StatusSubmitted       SubmissionStatus = "submitted"
	StatusInProgress      SubmissionStatus = "in_progress"
	StatusPendingApproval SubmissionStatus = "pending_approval"
	StatusCompleted       SubmissionStatus = "completed"
	StatusRejected        SubmissionStatus = "rejected"
	StatusCancelled       SubmissionStatus = "cancelled"
)

func (s SubmissionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// EvaluationContext is the transient snapshot every evaluation runs against.
// The caller builds it fresh per evaluation; engines never persist it.
type UserContext struct {
	ID         string                 `json:"id"`
	Roles      []string               `json:"roles"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

type SubmissionMeta struct {
	ID     string           `json:"id"`
	Status SubmissionStatus `json:"status"`
}

type EvaluationContext struct {
	Data       map[string]interface{} `json:"data"`
	User       UserContext            `json:"user"`
	Submission SubmissionMeta         `json:"submission"`
	Locale     string                 `json:"locale,omitempty"`
}

// FieldUpdate is the per-field delta produced by conditional rules and by
// business-rule field actions. Nil pointers mean "leave untouched" so deltas
// from successive passes merge cleanly.
type FieldUpdate struct {
	Visible  *bool          `json:"visible,omitempty"`
	Required *bool          `json:"required,omitempty"`
	Disabled *bool          `json:"disabled,omitempty"`
	Value    interface{}    `json:"value,omitempty"`
	HasValue bool           `json:"has_value,omitempty"`
	Options  []SelectOption `json:"options,omitempty"`
}

// Merge overlays other on top of u; later writers win per property.
func (u *FieldUpdate) Merge(other *FieldUpdate) {
	if other == nil {
		return
	}
	if other.Visible != nil {
		u.Visible = other.Visible
	}
	if other.Required != nil {
		u.Required = other.Required
	}
	if other.Disabled != nil {
		u.Disabled = other.Disabled
	}
	if other.HasValue {
		u.Value = other.Value
		u.HasValue = true
	}
	if other.Options != nil {
		u.Options = other.Options
	}
}

// Instruction is a side effect the engines want performed. Engines never do
// I/O themselves; the caller dispatches these after persisting state.
type InstructionKind string

const (
	InstructionNotify      InstructionKind = "notify"
	InstructionCallWebhook InstructionKind = "call_webhook"
	InstructionCreateTask  InstructionKind = "create_task"
	InstructionEscalate    InstructionKind = "escalate"
)

type Instruction struct {
	Kind    InstructionKind        `json:"kind" bson:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
}

// Audit trail
type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionSubmit     AuditAction = "SUBMIT"
	AuditActionTransition AuditAction = "TRANSITION"
	AuditActionApproval   AuditAction = "APPROVAL"
	AuditActionAssignment AuditAction = "ASSIGNMENT"
	AuditActionRule       AuditAction = "RULE"
	AuditActionEscalation AuditAction = "ESCALATION"
	AuditActionTemplate   AuditAction = "TEMPLATE"
	AuditActionExport     AuditAction = "EXPORT"
	AuditActionWebhook    AuditAction = "WEBHOOK"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type WebhookPayload struct {
	Event     string                 `json:"event"`
	Template  string                 `json:"template,omitempty"`
	RecordID  string                 `json:"record_id,omitempty"`
	Data      interface{}            `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Log is the document shape the async logger writer persists.
type Log struct {
	AppId        string    `bson:"app_id" json:"app_id"`
	Message      string    `bson:"message" json:"message"`
	Caller       string    `bson:"caller" json:"caller"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
