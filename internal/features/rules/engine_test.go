package rules

import (
	"testing"

	"go-forms/internal/common/models"
	"go-forms/internal/features/assignment"
)

func testCtx(data map[string]interface{}) *models.EvaluationContext {
	return &models.EvaluationContext{
		Data:       data,
		User:       models.UserContext{ID: "u1", Roles: []string{"agent"}},
		Submission: models.SubmissionMeta{ID: "s1", Status: models.StatusSubmitted},
	}
}

func notifyAction() RuleAction {
	return RuleAction{Type: ActionNotify, Config: map[string]interface{}{"user_id": "mgr"}}
}

func TestTriggerMatching(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{
		{ID: "r-submit", Enabled: true, Trigger: TriggerOnSubmit, Actions: []RuleAction{notifyAction()}},
		{ID: "r-any-field", Enabled: true, Trigger: TriggerOnFieldChange, Actions: []RuleAction{notifyAction()}},
		{ID: "r-priority-field", Enabled: true, Trigger: TriggerOnFieldChange, Field: "priority", Actions: []RuleAction{notifyAction()}},
		{ID: "r-to-completed", Enabled: true, Trigger: TriggerOnStatusChange, ToStatus: models.StatusCompleted, Actions: []RuleAction{notifyAction()}},
		{ID: "r-tick", Enabled: true, Trigger: TriggerScheduled, Schedule: "0 * * * *", Actions: []RuleAction{notifyAction()}},
		{ID: "r-disabled", Enabled: false, Trigger: TriggerOnSubmit, Actions: []RuleAction{notifyAction()}},
	}

	tests := []struct {
		name  string
		event TriggerEvent
		want  []string
	}{
		{
			name:  "submit fires only submit rules",
			event: TriggerEvent{Type: TriggerOnSubmit},
			want:  []string{"r-submit"},
		},
		{
			name:  "matching field change fires both field rules",
			event: TriggerEvent{Type: TriggerOnFieldChange, Field: "priority", OldValue: "low", NewValue: "high"},
			want:  []string{"r-any-field", "r-priority-field"},
		},
		{
			name:  "other field change fires only the unscoped rule",
			event: TriggerEvent{Type: TriggerOnFieldChange, Field: "title"},
			want:  []string{"r-any-field"},
		},
		{
			name:  "status change matches the configured target status",
			event: TriggerEvent{Type: TriggerOnStatusChange, FromStatus: models.StatusInProgress, ToStatus: models.StatusCompleted},
			want:  []string{"r-to-completed"},
		},
		{
			name:  "status change to another status matches nothing",
			event: TriggerEvent{Type: TriggerOnStatusChange, FromStatus: models.StatusInProgress, ToStatus: models.StatusCancelled},
			want:  nil,
		},
		{
			name:  "scheduled tick",
			event: TriggerEvent{Type: TriggerScheduled},
			want:  []string{"r-tick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := e.Evaluate(EvaluateInput{Rules: rules, Event: tt.event, Ctx: testCtx(nil)})
			var got []string
			for _, res := range results {
				got = append(got, res.RuleID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("fired %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("fired %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestPriorityOrderingWithStableTies(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{
		{ID: "low", Enabled: true, Trigger: TriggerOnSubmit, Priority: 1, Actions: []RuleAction{notifyAction()}},
		{ID: "tie-first", Enabled: true, Trigger: TriggerOnSubmit, Priority: 5, Actions: []RuleAction{notifyAction()}},
		{ID: "high", Enabled: true, Trigger: TriggerOnSubmit, Priority: 10, Actions: []RuleAction{notifyAction()}},
		{ID: "tie-second", Enabled: true, Trigger: TriggerOnSubmit, Priority: 5, Actions: []RuleAction{notifyAction()}},
	}

	results := e.Evaluate(EvaluateInput{Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit}, Ctx: testCtx(nil)})

	want := []string{"high", "tie-first", "tie-second", "low"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, res := range results {
		if res.RuleID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, res.RuleID, want[i])
		}
	}
}

func TestConditionGatesRule(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{{
		ID: "vip-only", Enabled: true, Trigger: TriggerOnSubmit,
		Condition: &models.ConditionGroup{
			Operator:   models.GroupAnd,
			Conditions: []models.Condition{{Field: "tier", Operator: models.OpEquals, Value: "vip"}},
		},
		Actions: []RuleAction{notifyAction()},
	}}

	results := e.Evaluate(EvaluateInput{
		Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit},
		Ctx: testCtx(map[string]interface{}{"tier": "standard"}),
	})
	if len(results) != 0 {
		t.Fatalf("condition must gate the rule, got %+v", results)
	}

	results = e.Evaluate(EvaluateInput{
		Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit},
		Ctx: testCtx(map[string]interface{}{"tier": "vip"}),
	})
	if len(results) != 1 {
		t.Fatalf("expected the rule to fire, got %+v", results)
	}
}

func TestActionEffects(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{{
		ID: "on-submit", Enabled: true, Trigger: TriggerOnSubmit,
		Actions: []RuleAction{
			{Type: ActionSetFieldValue, Config: map[string]interface{}{"field": "sla", "value": "gold"}},
			{Type: ActionChangeStatus, Config: map[string]interface{}{"status": "in_progress"}},
			{Type: ActionNotify, Config: map[string]interface{}{"user_id": "mgr"}},
			{Type: ActionCallWebhook, Config: map[string]interface{}{"url": "https://example.com/hook"}},
			{Type: ActionCreateTask, Config: map[string]interface{}{"subject": "Review submission"}},
			{Type: ActionEscalate, Config: map[string]interface{}{"level": "supervisor"}},
		},
	}}

	results := e.Evaluate(EvaluateInput{Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit}, Ctx: testCtx(nil)})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	res := results[0]
	if res.Err != nil {
		t.Fatal(res.Err)
	}

	update, ok := res.Updates["sla"]
	if !ok || !update.HasValue || update.Value != "gold" {
		t.Errorf("set_field_value must yield a field delta, got %+v", res.Updates)
	}
	if res.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in_progress", res.Status)
	}

	kinds := make([]models.InstructionKind, 0, len(res.Instructions))
	for _, inst := range res.Instructions {
		kinds = append(kinds, inst.Kind)
	}
	want := []models.InstructionKind{
		models.InstructionNotify, models.InstructionCallWebhook,
		models.InstructionCreateTask, models.InstructionEscalate,
	}
	if len(kinds) != len(want) {
		t.Fatalf("instructions = %v, want %v", kinds, want)
	}
	for i := range kinds {
		if kinds[i] != want[i] {
			t.Errorf("instruction %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestAssignDelegatesToAssignmentEngine(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{{
		ID: "route", Enabled: true, Trigger: TriggerOnSubmit,
		Actions: []RuleAction{{Type: ActionAssign, Config: map[string]interface{}{"rule_id": "rr"}}},
	}}
	assignmentRules := []assignment.AssignmentRule{{
		ID:         "rr",
		Strategy:   assignment.StrategyRoundRobin,
		Candidates: []assignment.Candidate{{ID: "a"}, {ID: "b"}},
	}}

	results := e.Evaluate(EvaluateInput{
		Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit}, Ctx: testCtx(nil),
		AssignmentRules: assignmentRules,
		Load:            assignment.LoadSnapshot{LastIndex: 0},
	})
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].AssignedTo != "b" {
		t.Errorf("assigned to %s, want b", results[0].AssignedTo)
	}
	if results[0].Assignment == nil || results[0].Assignment.NextIndex != 1 {
		t.Errorf("round-robin cursor must come back for persistence, got %+v", results[0].Assignment)
	}
}

func TestDirectAssignee(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{{
		ID: "route", Enabled: true, Trigger: TriggerOnSubmit,
		Actions: []RuleAction{{Type: ActionAssign, Config: map[string]interface{}{"assignee": "oncall"}}},
	}}

	results := e.Evaluate(EvaluateInput{Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit}, Ctx: testCtx(nil)})
	if len(results) != 1 || results[0].AssignedTo != "oncall" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestFailingRuleIsIsolated(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	rules := []BusinessRule{
		{
			ID: "broken", Enabled: true, Trigger: TriggerOnSubmit, Priority: 10,
			Actions: []RuleAction{
				{Type: ActionNotify, Config: map[string]interface{}{"user_id": "mgr"}},
				{Type: ActionSetFieldValue, Config: map[string]interface{}{"value": "missing field name"}},
				{Type: ActionChangeStatus, Config: map[string]interface{}{"status": "completed"}},
			},
		},
		{
			ID: "healthy", Enabled: true, Trigger: TriggerOnSubmit, Priority: 5,
			Actions: []RuleAction{{Type: ActionSetFieldValue, Config: map[string]interface{}{"field": "sla", "value": "silver"}}},
		},
	}

	results := e.Evaluate(EvaluateInput{Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit}, Ctx: testCtx(nil)})
	if len(results) != 2 {
		t.Fatalf("both rules must produce a result, got %d", len(results))
	}

	broken := results[0]
	if broken.Err == nil {
		t.Error("misconfigured rule must record its error")
	}
	if len(broken.Instructions) != 1 {
		t.Errorf("effects before the failure are kept, got %+v", broken.Instructions)
	}
	if broken.Status != "" {
		t.Errorf("actions after the failure must not run, got status %s", broken.Status)
	}

	healthy := results[1]
	if healthy.Err != nil {
		t.Errorf("a sibling failure must not block this rule: %v", healthy.Err)
	}
	if update := healthy.Updates["sla"]; update == nil || update.Value != "silver" {
		t.Errorf("healthy rule must still apply, got %+v", healthy.Updates)
	}
}

func TestRunScriptAction(t *testing.T) {
	e := NewEngine(assignment.NewEngine())

	script := `
priority := data.priority
if priority == "high" {
	updates.sla_hours = 4
} else {
	updates.sla_hours = 48
}
`
	rules := []BusinessRule{{
		ID: "sla", Enabled: true, Trigger: TriggerOnSubmit,
		Actions: []RuleAction{{Type: ActionRunScript, Config: map[string]interface{}{"script": script}}},
	}}

	results := e.Evaluate(EvaluateInput{
		Rules: rules, Event: TriggerEvent{Type: TriggerOnSubmit},
		Ctx: testCtx(map[string]interface{}{"priority": "high"}),
	})
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results %+v", results)
	}
	update := results[0].Updates["sla_hours"]
	if update == nil || !update.HasValue {
		t.Fatalf("script updates must surface as field deltas, got %+v", results[0].Updates)
	}
	if v, ok := update.Value.(int64); !ok || v != 4 {
		t.Errorf("sla_hours = %v, want 4", update.Value)
	}

	broken := []BusinessRule{{
		ID: "broken", Enabled: true, Trigger: TriggerOnSubmit,
		Actions: []RuleAction{{Type: ActionRunScript, Config: map[string]interface{}{"script": "this is not tengo"}}},
	}}
	results = e.Evaluate(EvaluateInput{Rules: broken, Event: TriggerEvent{Type: TriggerOnSubmit}, Ctx: testCtx(nil)})
	if len(results) != 1 || results[0].Err == nil {
		t.Errorf("a broken script must record an error, got %+v", results)
	}
}
