package validation

import (
	"go-forms/internal/common/models"
)

type ValidatorKind string

const (
	ValidatorRequired   ValidatorKind = "required"
	ValidatorMinLength  ValidatorKind = "min_length"
	ValidatorMaxLength  ValidatorKind = "max_length"
	ValidatorMin        ValidatorKind = "min"
	ValidatorMax        ValidatorKind = "max"
	ValidatorPattern    ValidatorKind = "pattern"
	ValidatorEmail      ValidatorKind = "email"
	ValidatorCrossField ValidatorKind = "cross_field"
	ValidatorCustom     ValidatorKind = "custom"
)

// ValidationRule is a constraint on one or more fields. Rules with an
// AppliesWhen group only run when that group evaluates true for the context.
type ValidationRule struct {
	ID          string                   `json:"id" bson:"id"`
	Fields      []string                 `json:"fields" bson:"fields"`
	Kind        ValidatorKind            `json:"kind" bson:"kind"`
	Value       interface{}              `json:"value,omitempty" bson:"value,omitempty"`       // numeric limit for min/max kinds
	Pattern     string                   `json:"pattern,omitempty" bson:"pattern,omitempty"`   // for the pattern kind
	Operator    models.ConditionOperator `json:"operator,omitempty" bson:"operator,omitempty"` // for cross_field: comparison between Fields[0] and Fields[1]
	Script      string                   `json:"script,omitempty" bson:"script,omitempty"`     // for custom: a tengo script
	Message     string                   `json:"message,omitempty" bson:"message,omitempty"`
	AppliesWhen *models.ConditionGroup   `json:"applies_when,omitempty" bson:"applies_when,omitempty"`
}

type ValidationError struct {
	Field   string        `json:"field"`
	Kind    ValidatorKind `json:"kind"`
	Message string        `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}
