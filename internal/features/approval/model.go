package approval

import (
	"time"

	"go-forms/internal/common/models"
)

type LevelKind string

const (
	LevelSequential LevelKind = "sequential"
	LevelParallel   LevelKind = "parallel"
	LevelAnyOf      LevelKind = "any_of"
)

type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "pending"
	StatusApproved  ApprovalStatus = "approved"
	StatusRejected  ApprovalStatus = "rejected"
	StatusDelegated ApprovalStatus = "delegated"
)

type EscalationAction string

const (
	EscalateDelegate EscalationAction = "delegate"
	EscalateReject   EscalationAction = "reject"
	EscalateNotify   EscalationAction = "notify"
)

// ApprovalLevel is one configured gate in a multi-level chain. Levels with
// an entry condition are only instantiated when it holds for the submission
// context.
type ApprovalLevel struct {
	Name                 string                 `json:"name" bson:"name"`
	Kind                 LevelKind              `json:"kind" bson:"kind"`
	Approvers            []string               `json:"approvers,omitempty" bson:"approvers,omitempty"`
	ApproverRoles        []string               `json:"approver_roles,omitempty" bson:"approver_roles,omitempty"`
	EntryCondition       *models.ConditionGroup `json:"entry_condition,omitempty" bson:"entry_condition,omitempty"`
	EscalateAfterMinutes int                    `json:"escalate_after_minutes,omitempty" bson:"escalate_after_minutes,omitempty"`
	DelegateTo           string                 `json:"delegate_to,omitempty" bson:"delegate_to,omitempty"`
	OnEscalate           EscalationAction       `json:"on_escalate,omitempty" bson:"on_escalate,omitempty"`
}

type ApprovalConfig struct {
	Levels []ApprovalLevel `json:"levels" bson:"levels"`
}

// ApprovalRecord is one level's (or, for parallel/any_of levels, one
// approver's) outcome. Records are append-style: rework passes add new
// records with a higher Pass, they never overwrite history.
type ApprovalRecord struct {
	ID            string         `json:"id" bson:"id"`
	LevelIndex    int            `json:"level_index" bson:"level_index"`
	LevelName     string         `json:"level_name" bson:"level_name"`
	Kind          LevelKind      `json:"kind" bson:"kind"`
	ApproverID    string         `json:"approver_id,omitempty" bson:"approver_id,omitempty"`
	ApproverRoles []string       `json:"approver_roles,omitempty" bson:"approver_roles,omitempty"`
	Status        ApprovalStatus `json:"status" bson:"status"`
	DecidedBy     string         `json:"decided_by,omitempty" bson:"decided_by,omitempty"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
	Comments      string         `json:"comments,omitempty" bson:"comments,omitempty"`
	Pass          int            `json:"pass" bson:"pass"`
	// Escalated marks that the record's escalation window was already acted
	// on, so periodic sweeps do not fire it twice.
	Escalated bool      `json:"escalated,omitempty" bson:"escalated,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// DecisionInput carries one approval decision through ProcessApproval.
type DecisionInput struct {
	Config     ApprovalConfig
	Records    []ApprovalRecord
	ApproverID string
	ActorRoles []string
	Decision   ApprovalStatus // StatusApproved or StatusRejected
	Comments   string
	Now        time.Time
}

// DecisionResult is the updated record list plus the chain's overall status.
type DecisionResult struct {
	Records []ApprovalRecord
	Status  models.SubmissionStatus
}

// Escalation is a due escalation surfaced by CheckEscalations. The scheduler
// feeds it back through the normal decision path (or dispatches a
// notification), the engine never acts on it by itself.
type Escalation struct {
	RecordID   string           `json:"record_id"`
	LevelIndex int              `json:"level_index"`
	LevelName  string           `json:"level_name"`
	ApproverID string           `json:"approver_id,omitempty"`
	Action     EscalationAction `json:"action"`
	DelegateTo string           `json:"delegate_to,omitempty"`
}
