package condition

import (
	"testing"

	"go-forms/internal/common/models"
)

func ctxWithData(data map[string]interface{}) *models.EvaluationContext {
	return &models.EvaluationContext{
		Data: data,
		User: models.UserContext{ID: "u1", Roles: []string{"agent"}},
	}
}

func TestEvaluateCondition(t *testing.T) {
	e := NewEvaluator()

	data := map[string]interface{}{
		"type":     "refund",
		"amount":   1500.0,
		"due_date": "2026-03-01",
		"tags":     []interface{}{"billing", "urgent"},
		"notes":    "",
	}

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{
			name: "equals string",
			cond: models.Condition{Field: "type", Operator: models.OpEquals, Value: "refund", ValueType: models.ValueTypeString},
			want: true,
		},
		{
			name: "not equals string",
			cond: models.Condition{Field: "type", Operator: models.OpNotEquals, Value: "standard"},
			want: true,
		},
		{
			name: "number greater than",
			cond: models.Condition{Field: "amount", Operator: models.OpGreaterThan, Value: 1000, ValueType: models.ValueTypeNumber},
			want: true,
		},
		{
			name: "number greater than string operand coerced",
			cond: models.Condition{Field: "amount", Operator: models.OpGreaterThan, Value: "2000", ValueType: models.ValueTypeNumber},
			want: false,
		},
		{
			name: "date less than",
			cond: models.Condition{Field: "due_date", Operator: models.OpLessThan, Value: "2026-06-01", ValueType: models.ValueTypeDate},
			want: true,
		},
		{
			name: "contains on list",
			cond: models.Condition{Field: "tags", Operator: models.OpContains, Value: "urgent"},
			want: true,
		},
		{
			name: "not contains on list",
			cond: models.Condition{Field: "tags", Operator: models.OpNotContains, Value: "spam"},
			want: true,
		},
		{
			name: "in list",
			cond: models.Condition{Field: "type", Operator: models.OpIn, Value: []interface{}{"refund", "exchange"}},
			want: true,
		},
		{
			name: "not in list",
			cond: models.Condition{Field: "type", Operator: models.OpNotIn, Value: []interface{}{"standard"}},
			want: true,
		},
		{
			name: "is empty on empty string",
			cond: models.Condition{Field: "notes", Operator: models.OpIsEmpty},
			want: true,
		},
		{
			name: "is empty on missing field",
			cond: models.Condition{Field: "missing", Operator: models.OpIsEmpty},
			want: true,
		},
		{
			name: "is not empty on populated field",
			cond: models.Condition{Field: "type", Operator: models.OpIsNotEmpty},
			want: true,
		},
		{
			name: "matches pattern without implicit anchors",
			cond: models.Condition{Field: "type", Operator: models.OpMatchesPattern, Value: "fun"},
			want: true,
		},
		{
			name: "matches pattern invalid regex degrades to false",
			cond: models.Condition{Field: "type", Operator: models.OpMatchesPattern, Value: "("},
			want: false,
		},
		{
			name: "unknown field evaluates false",
			cond: models.Condition{Field: "missing", Operator: models.OpEquals, Value: "x"},
			want: false,
		},
		{
			name: "user attribute lookup",
			cond: models.Condition{Field: "user.id", Operator: models.OpEquals, Value: "u1"},
			want: true,
		},
		{
			name: "user roles contains",
			cond: models.Condition{Field: "user.roles", Operator: models.OpContains, Value: "agent"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.EvaluateCondition(tt.cond, ctxWithData(data)); got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateGroup(t *testing.T) {
	e := NewEvaluator()
	ctx := ctxWithData(map[string]interface{}{"type": "refund", "amount": 500.0})

	condTrue := models.Condition{Field: "type", Operator: models.OpEquals, Value: "refund"}
	condFalse := models.Condition{Field: "amount", Operator: models.OpGreaterThan, Value: 1000, ValueType: models.ValueTypeNumber}

	tests := []struct {
		name  string
		group *models.ConditionGroup
		want  bool
	}{
		{"nil group is vacuously true", nil, true},
		{"empty group is vacuously true", &models.ConditionGroup{Operator: models.GroupAnd}, true},
		{
			"AND all true",
			&models.ConditionGroup{Operator: models.GroupAnd, Conditions: []models.Condition{condTrue, condTrue}},
			true,
		},
		{
			"AND short-circuits on false",
			&models.ConditionGroup{Operator: models.GroupAnd, Conditions: []models.Condition{condFalse, condTrue}},
			false,
		},
		{
			"OR short-circuits on true",
			&models.ConditionGroup{Operator: models.GroupOr, Conditions: []models.Condition{condTrue, condFalse}},
			true,
		},
		{
			"OR all false",
			&models.ConditionGroup{Operator: models.GroupOr, Conditions: []models.Condition{condFalse, condFalse}},
			false,
		},
		{
			"nested group",
			&models.ConditionGroup{
				Operator:   models.GroupAnd,
				Conditions: []models.Condition{condTrue},
				Groups: []models.ConditionGroup{
					{Operator: models.GroupOr, Conditions: []models.Condition{condFalse, condTrue}},
				},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Evaluate(tt.group, ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
			// Same tree, same context, same answer.
			if again := e.Evaluate(tt.group, ctx); again != tt.want {
				t.Errorf("Evaluate() second run = %v, want %v", again, tt.want)
			}
		})
	}
}
