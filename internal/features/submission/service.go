package submission

import (
	"context"
	"fmt"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/assignment"
	"go-forms/internal/features/audit"
	"go-forms/internal/features/conditional"
	"go-forms/internal/features/notification"
	"go-forms/internal/features/rules"
	"go-forms/internal/features/task"
	"go-forms/internal/features/template"
	"go-forms/internal/features/validation"
	"go-forms/internal/features/webhook"
	"go-forms/internal/features/workflow"

	"go.uber.org/zap"
)

// SubmissionService drives a submission through its template's engines. The
// engines stay pure; everything stateful (snapshots, version tokens, cursor
// claims, instruction dispatch) happens here.
type SubmissionService interface {
	EvaluateForm(ctx context.Context, slug string, data map[string]interface{}, user models.UserContext) (map[string]*models.FieldUpdate, error)
	Submit(ctx context.Context, input SubmitInput) (*Submission, validation.ValidationResult, error)
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	ExecuteAction(ctx context.Context, input ActionInput) (*Submission, error)
	Decide(ctx context.Context, input DecisionInput) (*Submission, error)
	FieldChange(ctx context.Context, submissionID, field string, value interface{}, user models.UserContext) (*Submission, error)
	RunEscalations(ctx context.Context, now time.Time) error
	RunScheduledRules(ctx context.Context, now time.Time) error
}

type SubmissionServiceImpl struct {
	Repo          SubmissionRepository
	Templates     template.TemplateService
	Conditional   conditional.Engine
	Validation    validation.Engine
	Workflow      workflow.Engine
	Approval      approval.Engine
	Rules         rules.Engine
	Audit         audit.AuditService
	Notifications notification.NotificationService
	Tasks         task.TaskService
	Webhooks      webhook.WebhookService
	Logger        *zap.Logger
}

func NewSubmissionService(
	repo SubmissionRepository,
	templates template.TemplateService,
	conditionalEngine conditional.Engine,
	validationEngine validation.Engine,
	workflowEngine workflow.Engine,
	approvalEngine approval.Engine,
	rulesEngine rules.Engine,
	auditService audit.AuditService,
	notificationService notification.NotificationService,
	taskService task.TaskService,
	webhookService webhook.WebhookService,
	logger *zap.Logger,
) SubmissionService {
	return &SubmissionServiceImpl{
		Repo:          repo,
		Templates:     templates,
		Conditional:   conditionalEngine,
		Validation:    validationEngine,
		Workflow:      workflowEngine,
		Approval:      approvalEngine,
		Rules:         rulesEngine,
		Audit:         auditService,
		Notifications: notificationService,
		Tasks:         taskService,
		Webhooks:      webhookService,
		Logger:        logger,
	}
}

// EvaluateForm computes the current field visibility, requiredness and
// option sets for a draft, so clients can render the form as the user types.
func (s *SubmissionServiceImpl) EvaluateForm(ctx context.Context, slug string, data map[string]interface{}, user models.UserContext) (map[string]*models.FieldUpdate, error) {
	tpl, err := s.Templates.GetPublished(ctx, slug)
	if err != nil {
		return nil, err
	}

	ectx := &models.EvaluationContext{
		Data: data,
		User: user,
	}
	return s.Conditional.ApplyRules(tpl.ConditionalRules, ectx), nil
}

// Submit validates the form and, when it passes, starts the workflow and
// fires the on_submit business rules. A failed validation is not a Go error:
// the result carries the field errors for the client.
func (s *SubmissionServiceImpl) Submit(ctx context.Context, input SubmitInput) (*Submission, validation.ValidationResult, error) {
	tpl, err := s.Templates.GetPublished(ctx, input.TemplateSlug)
	if err != nil {
		return nil, validation.ValidationResult{}, err
	}

	data := make(map[string]interface{}, len(input.Data))
	for k, v := range input.Data {
		data[k] = v
	}

	ectx := &models.EvaluationContext{Data: data, User: input.User}

	// Conditional set_value actions land before validation so defaults and
	// derived values are checked like user input.
	applyValueUpdates(data, s.Conditional.ApplyRules(tpl.ConditionalRules, ectx))

	result := s.Validation.ValidateForm(tpl.Fields, tpl.ValidationRules, ectx)
	if !result.Valid {
		return nil, result, nil
	}

	now := time.Now()
	state, err := s.Workflow.StartWorkflow(tpl.Workflow, ectx, now)
	if err != nil {
		return nil, result, err
	}

	sub := &Submission{
		TemplateSlug:    tpl.Slug,
		TemplateVersion: tpl.Version,
		Data:            data,
		State:           state,
		SubmittedBy:     input.User.ID,
	}
	if err := s.Repo.Create(ctx, sub); err != nil {
		return nil, result, err
	}

	s.Audit.LogChange(ctx, models.AuditActionSubmit, "submissions", sub.ID.Hex(), map[string]models.Change{
		"status": {New: state.Status},
	})
	s.Webhooks.Trigger(ctx, "submission.submitted", s.payload(sub, "submission.submitted"))

	ruleResults := s.Rules.Evaluate(rules.EvaluateInput{
		Rules:           tpl.BusinessRules,
		Event:           rules.TriggerEvent{Type: rules.TriggerOnSubmit},
		Ctx:             s.evalContext(sub, input.User),
		AssignmentRules: tpl.AssignmentRules,
	})
	if err := s.applyRuleResults(ctx, sub, ruleResults, true); err != nil {
		return nil, result, err
	}

	return sub, result, nil
}

func (s *SubmissionServiceImpl) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	return s.Repo.Get(ctx, id)
}

// ExecuteAction runs one workflow transition under the caller's version
// token. On success the new state is persisted with a compare-and-set, so two
// racing actions cannot both win.
func (s *SubmissionServiceImpl) ExecuteAction(ctx context.Context, input ActionInput) (*Submission, error) {
	sub, err := s.Repo.Get(ctx, input.SubmissionID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.Templates.GetVersion(ctx, sub.TemplateSlug, sub.TemplateVersion)
	if err != nil {
		return nil, err
	}

	ectx := s.evalContext(sub, input.User)

	engineInput := workflow.ExecuteInput{
		Config:          tpl.Workflow,
		State:           sub.State,
		ActionID:        input.ActionID,
		Ctx:             ectx,
		Now:             time.Now(),
		ExpectedVersion: input.ExpectedVersion,
		AssignmentRules: tpl.AssignmentRules,
	}

	// The round-robin cursor is only advanced once the engine has agreed the
	// transition is legal; a stale version, failed guard or missing role must
	// not burn a slot.
	if err := s.Workflow.ValidateAction(engineInput); err != nil {
		return nil, err
	}

	load, claim, err := s.prepareLoad(ctx, tpl, sub, input.ActionID)
	if err != nil {
		return nil, err
	}
	engineInput.Load = load

	res, err := s.Workflow.ExecuteAction(engineInput)
	if err != nil {
		s.releaseClaim(ctx, claim)
		return nil, err
	}

	oldStatus := sub.State.Status
	if err := s.Repo.UpdateState(ctx, input.SubmissionID, res.State, sub.State.Version); err != nil {
		s.releaseClaim(ctx, claim)
		return nil, err
	}
	sub.State = res.State

	s.Audit.LogChange(ctx, models.AuditActionTransition, "submissions", sub.ID.Hex(), map[string]models.Change{
		"step":   {Old: oldStatus, New: res.State.CurrentStepID},
		"status": {Old: oldStatus, New: res.State.Status},
	})
	if res.Assignment != nil && res.Assignment.Assigned {
		s.Audit.LogChange(ctx, models.AuditActionAssignment, "submissions", sub.ID.Hex(), map[string]models.Change{
			"assigned_to": {New: res.Assignment.AssigneeID},
		})
		s.Notifications.Notify(ctx, res.Assignment.AssigneeID, "Submission assigned",
			fmt.Sprintf("Submission %s was assigned to you", sub.ID.Hex()))
	}

	s.dispatchInstructions(ctx, sub, res.Instructions)
	if res.State.Status == models.StatusPendingApproval {
		s.notifyPendingApprovers(ctx, sub)
	}
	s.Webhooks.Trigger(ctx, "submission.transitioned", s.payload(sub, "submission.transitioned"))

	if res.State.Status != oldStatus {
		s.fireStatusChange(ctx, sub, tpl, oldStatus, res.State.Status)
	}

	return sub, nil
}

// Decide applies one approver verdict to the submission's current approval
// gate and persists the chain outcome.
func (s *SubmissionServiceImpl) Decide(ctx context.Context, input DecisionInput) (*Submission, error) {
	sub, err := s.Repo.Get(ctx, input.SubmissionID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.Templates.GetVersion(ctx, sub.TemplateSlug, sub.TemplateVersion)
	if err != nil {
		return nil, err
	}

	step, err := s.Workflow.GetCurrentStep(tpl.Workflow, sub.State)
	if err != nil {
		return nil, err
	}
	if step.Approval == nil {
		return nil, fmt.Errorf("step %q: %w", step.ID, workflow.ErrActionNotAvailable)
	}

	decision := approval.StatusRejected
	if input.Approve {
		decision = approval.StatusApproved
	}

	res, err := s.Approval.ProcessApproval(approval.DecisionInput{
		Config:     *step.Approval,
		Records:    sub.State.Approvals,
		ApproverID: input.User.ID,
		ActorRoles: input.User.Roles,
		Decision:   decision,
		Comments:   input.Comments,
		Now:        time.Now(),
	})
	if err != nil {
		return nil, err
	}

	oldStatus := sub.State.Status
	newState := sub.State
	newState.Approvals = res.Records
	newState.Status = res.Status
	newState.Version++
	newState.UpdatedAt = time.Now()

	if err := s.Repo.UpdateState(ctx, input.SubmissionID, newState, sub.State.Version); err != nil {
		return nil, err
	}
	sub.State = newState

	s.Audit.LogChange(ctx, models.AuditActionApproval, "submissions", sub.ID.Hex(), map[string]models.Change{
		"decision": {New: decision},
		"status":   {Old: oldStatus, New: res.Status},
	})
	s.notifyPendingApprovers(ctx, sub)
	s.Webhooks.Trigger(ctx, "submission.approval", s.payload(sub, "submission.approval"))

	if res.Status != oldStatus {
		s.fireStatusChange(ctx, sub, tpl, oldStatus, res.Status)
	}

	return sub, nil
}

// FieldChange updates one field on an in-flight submission, re-runs the
// conditional rules and fires the on_field_change business rules.
func (s *SubmissionServiceImpl) FieldChange(ctx context.Context, submissionID, field string, value interface{}, user models.UserContext) (*Submission, error) {
	sub, err := s.Repo.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.Templates.GetVersion(ctx, sub.TemplateSlug, sub.TemplateVersion)
	if err != nil {
		return nil, err
	}

	oldValue := sub.Data[field]
	sub.Data[field] = value

	ectx := s.evalContext(sub, user)
	applyValueUpdates(sub.Data, s.Conditional.ApplyRules(tpl.ConditionalRules, ectx))

	if err := s.Repo.UpdateData(ctx, submissionID, sub.Data); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, models.AuditActionUpdate, "submissions", sub.ID.Hex(), map[string]models.Change{
		field: {Old: oldValue, New: value},
	})

	ruleResults := s.Rules.Evaluate(rules.EvaluateInput{
		Rules: tpl.BusinessRules,
		Event: rules.TriggerEvent{
			Type:     rules.TriggerOnFieldChange,
			Field:    field,
			OldValue: oldValue,
			NewValue: value,
		},
		Ctx:             ectx,
		AssignmentRules: tpl.AssignmentRules,
	})
	if err := s.applyRuleResults(ctx, sub, ruleResults, true); err != nil {
		return nil, err
	}

	return sub, nil
}

// RunEscalations sweeps every submission stuck in approval and acts on the
// levels whose escalation window has elapsed.
func (s *SubmissionServiceImpl) RunEscalations(ctx context.Context, now time.Time) error {
	subs, err := s.Repo.ListByStatus(ctx, models.StatusPendingApproval)
	if err != nil {
		return err
	}

	for i := range subs {
		sub := &subs[i]
		if err := s.escalateSubmission(ctx, sub, now); err != nil {
			s.Logger.Error("escalation sweep failed for submission",
				zap.String("submission_id", sub.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

func (s *SubmissionServiceImpl) escalateSubmission(ctx context.Context, sub *Submission, now time.Time) error {
	tpl, err := s.Templates.GetVersion(ctx, sub.TemplateSlug, sub.TemplateVersion)
	if err != nil {
		return err
	}
	step, err := s.Workflow.GetCurrentStep(tpl.Workflow, sub.State)
	if err != nil {
		return err
	}
	if step.Approval == nil {
		return nil
	}

	due := s.Approval.CheckEscalations(*step.Approval, sub.State.Approvals, now)
	if len(due) == 0 {
		return nil
	}

	newState := sub.State
	newState.Approvals = make([]approval.ApprovalRecord, len(sub.State.Approvals))
	copy(newState.Approvals, sub.State.Approvals)

	for _, esc := range due {
		for i := range newState.Approvals {
			rec := &newState.Approvals[i]
			if rec.ID != esc.RecordID {
				continue
			}
			rec.Escalated = true

			switch esc.Action {
			case approval.EscalateDelegate:
				rec.ApproverID = esc.DelegateTo
				s.Notifications.Notify(ctx, esc.DelegateTo, "Approval delegated to you",
					fmt.Sprintf("Level %q of submission %s escalated to you", esc.LevelName, sub.ID.Hex()))
			case approval.EscalateReject:
				// Only an explicitly configured reject fires; the clock never
				// rejects on its own.
				rec.Status = approval.StatusRejected
				rec.DecidedBy = "system"
				decidedAt := now
				rec.DecidedAt = &decidedAt
				rec.Comments = "escalation window elapsed"
				for j := range newState.Approvals {
					other := &newState.Approvals[j]
					if other.Pass == rec.Pass && other.ID != rec.ID && other.Status == approval.StatusPending {
						other.Status = approval.StatusDelegated
					}
				}
				newState.Status = models.StatusRejected
				s.Notifications.Notify(ctx, sub.SubmittedBy, "Submission rejected",
					fmt.Sprintf("Submission %s was rejected: approval window for %q elapsed", sub.ID.Hex(), esc.LevelName))
			default:
				s.Notifications.Notify(ctx, esc.ApproverID, "Approval overdue",
					fmt.Sprintf("Level %q of submission %s is past its escalation window", esc.LevelName, sub.ID.Hex()))
			}

			s.Audit.LogChange(ctx, models.AuditActionEscalation, "submissions", sub.ID.Hex(), map[string]models.Change{
				"level": {Old: esc.ApproverID, New: string(esc.Action)},
			})
		}
	}

	newState.Version++
	newState.UpdatedAt = now
	if err := s.Repo.UpdateState(ctx, sub.ID.Hex(), newState, sub.State.Version); err != nil {
		return err
	}
	sub.State = newState

	s.Webhooks.Trigger(ctx, "submission.escalated", s.payload(sub, "submission.escalated"))
	return nil
}

// RunScheduledRules fires every template's scheduled business rules against
// its open submissions.
func (s *SubmissionServiceImpl) RunScheduledRules(ctx context.Context, now time.Time) error {
	templates, err := s.Templates.ListTemplates(ctx)
	if err != nil {
		return err
	}

	for i := range templates {
		tpl := &templates[i]
		if !tpl.Published || !hasScheduledRules(tpl.BusinessRules) {
			continue
		}

		subs, err := s.Repo.ListByTemplate(ctx, tpl.Slug)
		if err != nil {
			s.Logger.Error("scheduled rules: failed to list submissions",
				zap.String("template", tpl.Slug), zap.Error(err))
			continue
		}

		for j := range subs {
			sub := &subs[j]
			if sub.TemplateVersion != tpl.Version || sub.State.Status.Terminal() {
				continue
			}
			results := s.Rules.Evaluate(rules.EvaluateInput{
				Rules:           tpl.BusinessRules,
				Event:           rules.TriggerEvent{Type: rules.TriggerScheduled},
				Ctx:             s.evalContext(sub, models.UserContext{ID: "system"}),
				AssignmentRules: tpl.AssignmentRules,
			})
			if err := s.applyRuleResults(ctx, sub, results, false); err != nil {
				s.Logger.Error("scheduled rules: apply failed",
					zap.String("submission_id", sub.ID.Hex()), zap.Error(err))
			}
		}
	}
	return nil
}

// slotClaim remembers a claimed round-robin cursor position so the caller
// can hand it back if the transition ultimately fails.
type slotClaim struct {
	templateSlug string
	ruleID       string
}

// prepareLoad gathers open-assignment counts when the requested action
// auto-assigns, and claims the next round-robin cursor position when the
// resolved rule actually rotates. Other strategies never touch the cursor.
func (s *SubmissionServiceImpl) prepareLoad(ctx context.Context, tpl *template.FormTemplate, sub *Submission, actionID string) (assignment.LoadSnapshot, *slotClaim, error) {
	step, err := s.Workflow.GetCurrentStep(tpl.Workflow, sub.State)
	if err != nil {
		return assignment.LoadSnapshot{}, nil, err
	}

	var action *workflow.WorkflowAction
	for i := range step.Actions {
		if step.Actions[i].ID == actionID {
			action = &step.Actions[i]
			break
		}
	}
	if action == nil || !action.AutoAssign {
		return assignment.LoadSnapshot{}, nil, nil
	}

	ruleID := ""
	for i := range tpl.Workflow.Steps {
		if tpl.Workflow.Steps[i].ID == action.TargetStepID {
			ruleID = tpl.Workflow.Steps[i].AssignmentRuleID
			break
		}
	}
	if ruleID == "" && len(tpl.AssignmentRules) > 0 {
		ruleID = tpl.AssignmentRules[0].ID
	}
	if ruleID == "" {
		return assignment.LoadSnapshot{}, nil, nil
	}

	counts, err := s.Repo.OpenAssignmentCounts(ctx, tpl.Slug)
	if err != nil {
		return assignment.LoadSnapshot{}, nil, err
	}
	load := assignment.LoadSnapshot{OpenAssignments: counts, LastIndex: -1}

	var rule *assignment.AssignmentRule
	for i := range tpl.AssignmentRules {
		if tpl.AssignmentRules[i].ID == ruleID {
			rule = &tpl.AssignmentRules[i]
			break
		}
	}
	if rule == nil || rule.Strategy != assignment.StrategyRoundRobin {
		return load, nil, nil
	}

	seq, err := s.Repo.ClaimAssignmentSlot(ctx, tpl.Slug, ruleID)
	if err != nil {
		return assignment.LoadSnapshot{}, nil, err
	}

	// seq counts claims from 1, so the previously used index is seq-2 (-1
	// before any assignment ever happened).
	load.LastIndex = int(seq) - 2
	return load, &slotClaim{templateSlug: tpl.Slug, ruleID: ruleID}, nil
}

func (s *SubmissionServiceImpl) releaseClaim(ctx context.Context, claim *slotClaim) {
	if claim == nil {
		return
	}
	if err := s.Repo.ReleaseAssignmentSlot(ctx, claim.templateSlug, claim.ruleID); err != nil {
		s.Logger.Error("failed to release assignment slot",
			zap.String("template", claim.templateSlug), zap.String("rule_id", claim.ruleID), zap.Error(err))
	}
}

// applyRuleResults folds rule outcomes back into the submission: field
// deltas, a status override, a direct assignment, and the side-effect
// instructions. Rule errors are logged and audited, never propagated.
func (s *SubmissionServiceImpl) applyRuleResults(ctx context.Context, sub *Submission, results []rules.RuleExecutionResult, allowStatusEvents bool) error {
	dataChanged := false
	stateChanged := false
	newState := sub.State
	oldStatus := sub.State.Status

	for _, res := range results {
		if res.Err != nil {
			s.Logger.Warn("business rule failed",
				zap.String("rule_id", res.RuleID), zap.String("rule", res.RuleName), zap.Error(res.Err))
			s.Audit.LogChange(ctx, models.AuditActionRule, "submissions", sub.ID.Hex(), map[string]models.Change{
				"rule": {Old: res.RuleID, New: res.Err.Error()},
			})
		}

		for field, update := range res.Updates {
			if update != nil && update.HasValue {
				sub.Data[field] = update.Value
				dataChanged = true
			}
		}
		if res.Status != "" && res.Status != newState.Status {
			newState.Status = res.Status
			stateChanged = true
		}
		if res.AssignedTo != "" && res.AssignedTo != newState.AssignedTo {
			newState.AssignedTo = res.AssignedTo
			stateChanged = true
		}

		s.dispatchInstructions(ctx, sub, res.Instructions)
	}

	if dataChanged {
		if err := s.Repo.UpdateData(ctx, sub.ID.Hex(), sub.Data); err != nil {
			return err
		}
	}
	if stateChanged {
		newState.Version++
		newState.UpdatedAt = time.Now()
		if err := s.Repo.UpdateState(ctx, sub.ID.Hex(), newState, sub.State.Version); err != nil {
			return err
		}
		sub.State = newState

		if allowStatusEvents && newState.Status != oldStatus {
			tpl, err := s.Templates.GetVersion(ctx, sub.TemplateSlug, sub.TemplateVersion)
			if err != nil {
				return err
			}
			s.fireStatusChange(ctx, sub, tpl, oldStatus, newState.Status)
		}
	}
	return nil
}

// fireStatusChange runs the on_status_change rules exactly one level deep:
// a status change produced by these rules does not recursively trigger more
// status-change events.
func (s *SubmissionServiceImpl) fireStatusChange(ctx context.Context, sub *Submission, tpl *template.FormTemplate, from, to models.SubmissionStatus) {
	results := s.Rules.Evaluate(rules.EvaluateInput{
		Rules: tpl.BusinessRules,
		Event: rules.TriggerEvent{
			Type:       rules.TriggerOnStatusChange,
			FromStatus: from,
			ToStatus:   to,
		},
		Ctx:             s.evalContext(sub, models.UserContext{ID: "system"}),
		AssignmentRules: tpl.AssignmentRules,
	})
	if err := s.applyRuleResults(ctx, sub, results, false); err != nil {
		s.Logger.Error("failed to apply status-change rule results",
			zap.String("submission_id", sub.ID.Hex()), zap.Error(err))
	}
}

func (s *SubmissionServiceImpl) dispatchInstructions(ctx context.Context, sub *Submission, instructions []models.Instruction) {
	for _, inst := range instructions {
		var err error
		switch inst.Kind {
		case models.InstructionNotify:
			err = s.Notifications.NotifyFromPayload(ctx, inst.Payload)
		case models.InstructionCreateTask:
			err = s.Tasks.CreateFromPayload(ctx, sub.ID.Hex(), inst.Payload)
		case models.InstructionCallWebhook:
			payload := s.payload(sub, "submission.rule")
			payload.Extra = inst.Payload
			s.Webhooks.Trigger(ctx, "submission.rule", payload)
		case models.InstructionEscalate:
			target, _ := inst.Payload["user_id"].(string)
			if target == "" {
				target = sub.State.AssignedTo
			}
			err = s.Notifications.Notify(ctx, target, "Submission escalated",
				fmt.Sprintf("Submission %s was escalated", sub.ID.Hex()))
		}
		if err != nil {
			s.Logger.Warn("failed to dispatch instruction",
				zap.String("kind", string(inst.Kind)), zap.Error(err))
		}
	}
}

// notifyPendingApprovers pings only the approvers whose turn it is. The
// chain creates every level's records upfront, so later sequential levels
// are pending too but not yet actionable.
func (s *SubmissionServiceImpl) notifyPendingApprovers(ctx context.Context, sub *Submission) {
	pass, level := -1, -1
	for _, rec := range sub.State.Approvals {
		if rec.Status != approval.StatusPending {
			continue
		}
		switch {
		case rec.Pass > pass:
			pass, level = rec.Pass, rec.LevelIndex
		case rec.Pass == pass && rec.LevelIndex < level:
			level = rec.LevelIndex
		}
	}
	if pass < 0 {
		return
	}

	for _, rec := range sub.State.Approvals {
		if rec.Status != approval.StatusPending || rec.Pass != pass || rec.LevelIndex != level || rec.ApproverID == "" {
			continue
		}
		s.Notifications.Notify(ctx, rec.ApproverID, "Approval requested",
			fmt.Sprintf("Submission %s is waiting on level %q", sub.ID.Hex(), rec.LevelName))
	}
}

func (s *SubmissionServiceImpl) evalContext(sub *Submission, user models.UserContext) *models.EvaluationContext {
	return &models.EvaluationContext{
		Data: sub.Data,
		User: user,
		Submission: models.SubmissionMeta{
			ID:     sub.ID.Hex(),
			Status: sub.State.Status,
		},
	}
}

func (s *SubmissionServiceImpl) payload(sub *Submission, event string) models.WebhookPayload {
	return models.WebhookPayload{
		Event:     event,
		Template:  sub.TemplateSlug,
		RecordID:  sub.ID.Hex(),
		Data:      sub.Data,
		Timestamp: time.Now(),
	}
}

func applyValueUpdates(data map[string]interface{}, updates map[string]*models.FieldUpdate) {
	for field, update := range updates {
		if update != nil && update.HasValue {
			data[field] = update.Value
		}
	}
}

func hasScheduledRules(ruleSet []rules.BusinessRule) bool {
	for _, rule := range ruleSet {
		if rule.Enabled && rule.Trigger == rules.TriggerScheduled {
			return true
		}
	}
	return false
}
