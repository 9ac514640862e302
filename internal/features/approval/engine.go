package approval

import (
	"errors"
	"time"

	"go-forms/internal/common/models"
	"go-forms/pkg/condition"

	"github.com/google/uuid"
)

var (
	// ErrChainSettled means there is no pending level left to act on.
	ErrChainSettled = errors.New("approval chain has no pending level")
	// ErrInvalidDecision means the decision was neither approve nor reject.
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
)

// Engine advances a multi-level approval chain one decision at a time. It is
// pure: records go in, updated records and a status come out. Persistence,
// locking and the clock belong to the caller.
type Engine interface {
	InitializeApproval(config ApprovalConfig, ctx *models.EvaluationContext, pass int, now time.Time) []ApprovalRecord
	ProcessApproval(input DecisionInput) (DecisionResult, error)
	CheckEscalations(config ApprovalConfig, records []ApprovalRecord, now time.Time) []Escalation
}

type EngineImpl struct {
	evaluator *condition.Evaluator
}

func NewEngine() Engine {
	return &EngineImpl{evaluator: condition.NewEvaluator()}
}

// InitializeApproval instantiates pending records for every level whose
// entry condition holds: one record for a sequential level, one per approver
// for parallel/any_of levels. Skipped levels never appear in the list.
func (e *EngineImpl) InitializeApproval(config ApprovalConfig, ctx *models.EvaluationContext, pass int, now time.Time) []ApprovalRecord {
	var records []ApprovalRecord

	for idx, level := range config.Levels {
		if level.EntryCondition != nil && !e.evaluator.Evaluate(level.EntryCondition, ctx) {
			continue
		}

		base := ApprovalRecord{
			LevelIndex:    idx,
			LevelName:     level.Name,
			Kind:          level.Kind,
			ApproverRoles: level.ApproverRoles,
			Status:        StatusPending,
			Pass:          pass,
			CreatedAt:     now,
		}

		switch level.Kind {
		case LevelParallel, LevelAnyOf:
			if len(level.Approvers) == 0 {
				rec := base
				rec.ID = uuid.NewString()
				records = append(records, rec)
				continue
			}
			for _, approver := range level.Approvers {
				rec := base
				rec.ID = uuid.NewString()
				rec.ApproverID = approver
				records = append(records, rec)
			}
		default: // sequential
			rec := base
			rec.ID = uuid.NewString()
			if len(level.Approvers) == 1 {
				rec.ApproverID = level.Approvers[0]
			}
			records = append(records, rec)
		}
	}

	return records
}

// ProcessApproval applies one decision to the chain's current level.
//
// Sequential levels accept a decision only on the earliest pending level.
// Parallel levels clear when every approver has approved; one rejection
// rejects the whole chain. Any-of levels clear on the first approval and
// supersede the remaining approvers as delegated. A rejection anywhere halts
// the chain: every still-pending record of the pass is superseded so nothing
// is left dangling.
func (e *EngineImpl) ProcessApproval(input DecisionInput) (DecisionResult, error) {
	if input.Decision != StatusApproved && input.Decision != StatusRejected {
		return DecisionResult{}, ErrInvalidDecision
	}

	records := make([]ApprovalRecord, len(input.Records))
	copy(records, input.Records)

	pass := latestPass(records)
	level, ok := currentLevel(records, pass)
	if !ok {
		return DecisionResult{}, ErrChainSettled
	}

	acted := -1
	for i, rec := range records {
		if rec.Pass != pass || rec.LevelIndex != level || rec.Status != StatusPending {
			continue
		}
		if e.canAct(input.Config, rec, input.ApproverID, input.ActorRoles) {
			acted = i
			break
		}
	}
	if acted < 0 {
		return DecisionResult{}, models.ErrUnauthorized
	}

	decidedAt := input.Now
	records[acted].Status = input.Decision
	records[acted].DecidedBy = input.ApproverID
	records[acted].DecidedAt = &decidedAt
	records[acted].Comments = input.Comments

	if input.Decision == StatusRejected {
		supersedePending(records, pass, -1)
		return DecisionResult{Records: records, Status: models.StatusRejected}, nil
	}

	if records[acted].Kind == LevelAnyOf {
		supersedeLevel(records, pass, level)
	}

	if _, stillPending := currentLevel(records, pass); stillPending {
		return DecisionResult{Records: records, Status: models.StatusPendingApproval}, nil
	}

	return DecisionResult{Records: records, Status: models.StatusCompleted}, nil
}

// CheckEscalations reports every pending record of the latest pass whose
// level's escalate-after window has elapsed at `now`. It is a pure function
// an external scheduler calls periodically; the results are fed back through
// ProcessApproval (delegate/reject) or dispatched as notifications.
func (e *EngineImpl) CheckEscalations(config ApprovalConfig, records []ApprovalRecord, now time.Time) []Escalation {
	pass := latestPass(records)

	var due []Escalation
	for _, rec := range records {
		if rec.Pass != pass || rec.Status != StatusPending || rec.Escalated {
			continue
		}
		if rec.LevelIndex >= len(config.Levels) {
			continue
		}
		level := config.Levels[rec.LevelIndex]
		if level.EscalateAfterMinutes <= 0 {
			continue
		}
		if now.Sub(rec.CreatedAt) < time.Duration(level.EscalateAfterMinutes)*time.Minute {
			continue
		}

		action := level.OnEscalate
		if action == "" {
			// Default when unconfigured: delegate when a target exists,
			// otherwise notify only. Never a silent auto-reject.
			if level.DelegateTo != "" {
				action = EscalateDelegate
			} else {
				action = EscalateNotify
			}
		}

		due = append(due, Escalation{
			RecordID:   rec.ID,
			LevelIndex: rec.LevelIndex,
			LevelName:  rec.LevelName,
			ApproverID: rec.ApproverID,
			Action:     action,
			DelegateTo: level.DelegateTo,
		})
	}

	return due
}

// canAct checks whether the actor is an expected approver for this record.
// Record-addressed approvers (parallel/any_of) must match exactly; level
// addressed records fall back to the level's configured users and roles.
func (e *EngineImpl) canAct(config ApprovalConfig, rec ApprovalRecord, approverID string, roles []string) bool {
	if rec.ApproverID != "" {
		return rec.ApproverID == approverID
	}

	if rec.LevelIndex >= len(config.Levels) {
		return false
	}
	level := config.Levels[rec.LevelIndex]

	for _, id := range level.Approvers {
		if id == approverID {
			return true
		}
	}
	for _, want := range level.ApproverRoles {
		for _, have := range roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

func latestPass(records []ApprovalRecord) int {
	pass := 0
	for _, rec := range records {
		if rec.Pass > pass {
			pass = rec.Pass
		}
	}
	return pass
}

func currentLevel(records []ApprovalRecord, pass int) (int, bool) {
	level, found := 0, false
	for _, rec := range records {
		if rec.Pass != pass || rec.Status != StatusPending {
			continue
		}
		if !found || rec.LevelIndex < level {
			level = rec.LevelIndex
			found = true
		}
	}
	return level, found
}

// supersedeLevel marks the remaining pending records at one level delegated.
func supersedeLevel(records []ApprovalRecord, pass, level int) {
	for i, rec := range records {
		if rec.Pass == pass && rec.LevelIndex == level && rec.Status == StatusPending {
			records[i].Status = StatusDelegated
		}
	}
}

// supersedePending marks every pending record of the pass delegated; used
// when a rejection halts the chain so later levels are never left pending.
func supersedePending(records []ApprovalRecord, pass, exceptLevel int) {
	for i, rec := range records {
		if rec.Pass == pass && rec.LevelIndex != exceptLevel && rec.Status == StatusPending {
			records[i].Status = StatusDelegated
		}
	}
}
