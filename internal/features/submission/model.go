package submission

import (
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission is one filled-in form instance moving through its template's
// workflow. It pins the template version it started on so in-flight
// submissions are never re-evaluated against newer configuration.
type Submission struct {
	ID              primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	TemplateSlug    string                 `json:"template_slug" bson:"template_slug"`
	TemplateVersion int                    `json:"template_version" bson:"template_version"`
	Data            map[string]interface{} `json:"data" bson:"data"`
	State           workflow.WorkflowState `json:"state" bson:"state"`
	SubmittedBy     string                 `json:"submitted_by" bson:"submitted_by"`
	CreatedAt       time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" bson:"updated_at"`
}

// SubmitInput is a new submission request.
type SubmitInput struct {
	TemplateSlug string
	Data         map[string]interface{}
	User         models.UserContext
}

// ActionInput asks for one workflow transition on an existing submission.
type ActionInput struct {
	SubmissionID    string
	ActionID        string
	User            models.UserContext
	ExpectedVersion int64
}

// DecisionInput records one approver's verdict on the current level.
type DecisionInput struct {
	SubmissionID string
	User         models.UserContext
	Approve      bool
	Comments     string
}
