package workflow

import (
	"errors"
	"testing"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/assignment"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestEngine() Engine {
	return NewEngine(approval.NewEngine(), assignment.NewEngine())
}

func ticketConfig() WorkflowConfig {
	return WorkflowConfig{Steps: []WorkflowStep{
		{
			ID: "intake", Name: "Intake", Kind: StepStart,
			Actions: []WorkflowAction{
				{ID: "triage", Name: "Triage", TargetStepID: "work", AutoAssign: true},
				{
					ID: "escalate", Name: "Escalate", TargetStepID: "review",
					RequiredRoles: []string{"supervisor"},
				},
				{
					ID: "fast-track", Name: "Fast track", TargetStepID: "done",
					Guard: &models.ConditionGroup{
						Operator:   models.GroupAnd,
						Conditions: []models.Condition{{Field: "priority", Operator: models.OpEquals, Value: "low"}},
					},
				},
			},
		},
		{
			ID: "work", Name: "In progress", Kind: StepTask,
			AssignmentRuleID: "rr",
			Actions: []WorkflowAction{
				{
					ID: "resolve", Name: "Resolve", TargetStepID: "review",
					AutoActions: []AutoAction{{Kind: models.InstructionNotify, Config: map[string]interface{}{"user_id": "requester"}}},
				},
			},
		},
		{
			ID: "review", Name: "Review", Kind: StepApproval,
			Approval: &approval.ApprovalConfig{Levels: []approval.ApprovalLevel{
				{Name: "Lead", Kind: approval.LevelSequential, Approvers: []string{"lead"}},
			}},
			Actions: []WorkflowAction{
				{ID: "close", Name: "Close", TargetStepID: "done"},
				{ID: "rework", Name: "Rework", TargetStepID: "work"},
			},
		},
		{ID: "done", Name: "Done", Kind: StepEnd, TerminalStatus: models.StatusCompleted},
	}}
}

func userCtx(roles ...string) *models.EvaluationContext {
	return &models.EvaluationContext{
		Data: map[string]interface{}{"priority": "high"},
		User: models.UserContext{ID: "agent-1", Roles: roles},
	}
}

func TestStartWorkflow(t *testing.T) {
	e := newTestEngine()

	state, err := e.StartWorkflow(ticketConfig(), userCtx(), t0)
	if err != nil {
		t.Fatal(err)
	}
	if state.CurrentStepID != "intake" || state.Status != models.StatusSubmitted {
		t.Errorf("unexpected initial state %+v", state)
	}
	if state.Version != 1 {
		t.Errorf("fresh state must start at version 1, got %d", state.Version)
	}
}

func TestStartWorkflowApprovalStart(t *testing.T) {
	e := newTestEngine()

	config := WorkflowConfig{Steps: []WorkflowStep{
		{
			ID: "gate", Kind: StepStart,
			Approval: &approval.ApprovalConfig{Levels: []approval.ApprovalLevel{
				{Name: "Gatekeeper", Kind: approval.LevelSequential, Approvers: []string{"gk"}},
			}},
		},
	}}

	state, err := e.StartWorkflow(config, userCtx(), t0)
	if err != nil {
		t.Fatal(err)
	}
	if state.Status != models.StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", state.Status)
	}
	if len(state.Approvals) != 1 {
		t.Errorf("approval chain must be initialized immediately, got %+v", state.Approvals)
	}
}

func TestStartWorkflowWithoutStartStep(t *testing.T) {
	e := newTestEngine()
	_, err := e.StartWorkflow(WorkflowConfig{Steps: []WorkflowStep{{ID: "x", Kind: StepTask}}}, userCtx(), t0)
	if !errors.Is(err, ErrStepNotFound) {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}
}

func TestGetCurrentStepDrift(t *testing.T) {
	e := newTestEngine()
	_, err := e.GetCurrentStep(ticketConfig(), WorkflowState{CurrentStepID: "vanished"})
	if !errors.Is(err, ErrStepNotFound) {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}
}

func TestExecuteActionFailures(t *testing.T) {
	e := newTestEngine()
	config := ticketConfig()
	state, _ := e.StartWorkflow(config, userCtx(), t0)

	tests := []struct {
		name    string
		input   ExecuteInput
		wantErr error
	}{
		{
			name:    "unknown action",
			input:   ExecuteInput{Config: config, State: state, ActionID: "bogus", Ctx: userCtx(), Now: t0},
			wantErr: ErrActionNotAvailable,
		},
		{
			name:    "guard not satisfied",
			input:   ExecuteInput{Config: config, State: state, ActionID: "fast-track", Ctx: userCtx(), Now: t0},
			wantErr: ErrGuardNotSatisfied,
		},
		{
			name:    "missing role",
			input:   ExecuteInput{Config: config, State: state, ActionID: "escalate", Ctx: userCtx("agent"), Now: t0},
			wantErr: models.ErrUnauthorized,
		},
		{
			name:    "stale version",
			input:   ExecuteInput{Config: config, State: state, ActionID: "triage", Ctx: userCtx(), Now: t0, ExpectedVersion: 99},
			wantErr: models.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExecuteAction(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateActionAgreesWithExecute(t *testing.T) {
	e := newTestEngine()
	config := ticketConfig()
	state, _ := e.StartWorkflow(config, userCtx(), t0)

	tests := []struct {
		name    string
		input   ExecuteInput
		wantErr error
	}{
		{
			name:  "legal action passes",
			input: ExecuteInput{Config: config, State: state, ActionID: "triage", Ctx: userCtx(), Now: t0},
		},
		{
			name:    "unknown action",
			input:   ExecuteInput{Config: config, State: state, ActionID: "bogus", Ctx: userCtx(), Now: t0},
			wantErr: ErrActionNotAvailable,
		},
		{
			name:    "guard not satisfied",
			input:   ExecuteInput{Config: config, State: state, ActionID: "fast-track", Ctx: userCtx(), Now: t0},
			wantErr: ErrGuardNotSatisfied,
		},
		{
			name:    "missing role",
			input:   ExecuteInput{Config: config, State: state, ActionID: "escalate", Ctx: userCtx("agent"), Now: t0},
			wantErr: models.ErrUnauthorized,
		},
		{
			name:    "stale version",
			input:   ExecuteInput{Config: config, State: state, ActionID: "triage", Ctx: userCtx(), Now: t0, ExpectedVersion: 99},
			wantErr: models.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.ValidateAction(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateAction: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateActionDanglingTarget(t *testing.T) {
	e := newTestEngine()
	config := WorkflowConfig{Steps: []WorkflowStep{
		{ID: "s", Kind: StepStart, Actions: []WorkflowAction{{ID: "go", TargetStepID: "nowhere"}}},
	}}
	state, _ := e.StartWorkflow(config, userCtx(), t0)

	if err := e.ValidateAction(ExecuteInput{Config: config, State: state, ActionID: "go", Ctx: userCtx(), Now: t0}); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("expected ErrStepNotFound, got %v", err)
	}
}

func TestExecuteActionWithAutoAssignment(t *testing.T) {
	e := newTestEngine()
	config := ticketConfig()
	state, _ := e.StartWorkflow(config, userCtx(), t0)

	rules := []assignment.AssignmentRule{{
		ID:       "rr",
		Strategy: assignment.StrategyRoundRobin,
		Candidates: []assignment.Candidate{
			{ID: "agent-a"}, {ID: "agent-b"}, {ID: "agent-c"},
		},
	}}

	res, err := e.ExecuteAction(ExecuteInput{
		Config: config, State: state, ActionID: "triage", Ctx: userCtx(), Now: t0,
		ExpectedVersion: state.Version,
		AssignmentRules: rules,
		Load:            assignment.LoadSnapshot{LastIndex: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.State.CurrentStepID != "work" || res.State.Status != models.StatusInProgress {
		t.Errorf("unexpected state %+v", res.State)
	}
	if res.State.Version != state.Version+1 {
		t.Errorf("version must bump, got %d", res.State.Version)
	}
	if res.Assignment == nil || !res.Assignment.Assigned {
		t.Fatalf("expected an assignment, got %+v", res.Assignment)
	}
	if res.State.AssignedTo != "agent-b" || res.Assignment.NextIndex != 1 {
		t.Errorf("round robin from index 0 must pick agent-b/1, got %s/%d",
			res.State.AssignedTo, res.Assignment.NextIndex)
	}
}

func TestExecuteActionIntoApprovalStep(t *testing.T) {
	e := newTestEngine()
	config := ticketConfig()
	state, _ := e.StartWorkflow(config, userCtx(), t0)

	res, err := e.ExecuteAction(ExecuteInput{
		Config: config, State: state, ActionID: "triage", Ctx: userCtx(), Now: t0,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err = e.ExecuteAction(ExecuteInput{
		Config: config, State: res.State, ActionID: "resolve", Ctx: userCtx(), Now: t0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.State.Status != models.StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", res.State.Status)
	}
	if len(res.State.Approvals) != 1 || res.State.Approvals[0].Status != approval.StatusPending {
		t.Errorf("approval chain must be initialized, got %+v", res.State.Approvals)
	}
	if len(res.Instructions) != 1 || res.Instructions[0].Kind != models.InstructionNotify {
		t.Errorf("auto actions must surface as instructions, got %+v", res.Instructions)
	}
}

func TestReworkLoopStartsFreshPass(t *testing.T) {
	e := newTestEngine()
	config := ticketConfig()
	ctx := userCtx()

	state, _ := e.StartWorkflow(config, ctx, t0)
	res, err := e.ExecuteAction(ExecuteInput{Config: config, State: state, ActionID: "triage", Ctx: ctx, Now: t0})
	if err != nil {
		t.Fatal(err)
	}
	res, err = e.ExecuteAction(ExecuteInput{Config: config, State: res.State, ActionID: "resolve", Ctx: ctx, Now: t0})
	if err != nil {
		t.Fatal(err)
	}

	// Lead rejects, the submission is sent back to work, then resolved again.
	res.State.Status = models.StatusRejected
	res, err = e.ExecuteAction(ExecuteInput{Config: config, State: res.State, ActionID: "rework", Ctx: ctx, Now: t0.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	res, err = e.ExecuteAction(ExecuteInput{Config: config, State: res.State, ActionID: "resolve", Ctx: ctx, Now: t0.Add(2 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.State.Approvals) != 2 {
		t.Fatalf("prior pass records must be retained, got %d", len(res.State.Approvals))
	}
	if res.State.Approvals[1].Pass != res.State.Approvals[0].Pass+1 {
		t.Errorf("re-entry must open a fresh pass: %+v", res.State.Approvals)
	}
	if res.State.Approvals[1].Status != approval.StatusPending {
		t.Errorf("fresh pass record must be pending, got %s", res.State.Approvals[1].Status)
	}
}

func TestEndStepTerminalStatus(t *testing.T) {
	e := newTestEngine()
	config := ticketConfig()

	ctx := &models.EvaluationContext{
		Data: map[string]interface{}{"priority": "low"},
		User: models.UserContext{ID: "agent-1"},
	}

	state, _ := e.StartWorkflow(config, ctx, t0)
	res, err := e.ExecuteAction(ExecuteInput{Config: config, State: state, ActionID: "fast-track", Ctx: ctx, Now: t0})
	if err != nil {
		t.Fatal(err)
	}
	if res.State.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", res.State.Status)
	}
	if !res.State.Status.Terminal() {
		t.Error("end step status must be terminal")
	}
}
