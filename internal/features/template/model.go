package template

import (
	"errors"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/assignment"
	"go-forms/internal/features/conditional"
	"go-forms/internal/features/rules"
	"go-forms/internal/features/validation"
	"go-forms/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrTemplatePublished means a mutation was attempted on a frozen
	// version. Create a new version instead.
	ErrTemplatePublished = errors.New("published template versions are immutable")
	ErrTemplateNotFound  = errors.New("template not found")
)

// FormTemplate is the full configuration document the engines evaluate
// against: fields, rule sets, workflow graph and automation, versioned
// together. Once published a version is frozen; in-flight submissions keep
// evaluating against the version they started on.
type FormTemplate struct {
	ID               primitive.ObjectID            `json:"id" bson:"_id,omitempty"`
	Slug             string                        `json:"slug" bson:"slug"`
	Name             string                        `json:"name" bson:"name"`
	Description      string                        `json:"description,omitempty" bson:"description,omitempty"`
	Version          int                           `json:"version" bson:"version"`
	Published        bool                          `json:"published" bson:"published"`
	Fields           []models.SmartField           `json:"fields" bson:"fields"`
	ConditionalRules []conditional.ConditionalRule `json:"conditional_rules,omitempty" bson:"conditional_rules,omitempty"`
	ValidationRules  []validation.ValidationRule   `json:"validation_rules,omitempty" bson:"validation_rules,omitempty"`
	Workflow         workflow.WorkflowConfig       `json:"workflow" bson:"workflow"`
	AssignmentRules  []assignment.AssignmentRule   `json:"assignment_rules,omitempty" bson:"assignment_rules,omitempty"`
	BusinessRules    []rules.BusinessRule          `json:"business_rules,omitempty" bson:"business_rules,omitempty"`
	CreatedBy        string                        `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt        time.Time                     `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time                     `json:"updated_at" bson:"updated_at"`
	PublishedAt      *time.Time                    `json:"published_at,omitempty" bson:"published_at,omitempty"`
}

// FieldByName returns the field definition or nil.
func (t *FormTemplate) FieldByName(name string) *models.SmartField {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}
