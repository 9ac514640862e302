package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-forms/internal/common/models"
)

// Evaluator interprets a condition tree against an evaluation context.
// Evaluation is total: malformed configuration or unknown field references
// make the owning condition false, they never abort the whole form.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate walks the group recursively. AND/OR short-circuit in list order,
// conditions before nested groups. A nil or empty group is vacuously true
// (it means "no condition configured").
func (e *Evaluator) Evaluate(group *models.ConditionGroup, ctx *models.EvaluationContext) bool {
	if group == nil {
		return true
	}
	if len(group.Conditions) == 0 && len(group.Groups) == 0 {
		return true
	}

	or := strings.ToUpper(string(group.Operator)) == string(models.GroupOr)

	for _, cond := range group.Conditions {
		match := e.EvaluateCondition(cond, ctx)
		if or && match {
			return true
		}
		if !or && !match {
			return false
		}
	}

	for _, sub := range group.Groups {
		match := e.Evaluate(&sub, ctx)
		if or && match {
			return true
		}
		if !or && !match {
			return false
		}
	}

	return !or
}

// EvaluateCondition compares one field against the configured value,
// coercing both sides by the condition's declared value type.
func (e *Evaluator) EvaluateCondition(cond models.Condition, ctx *models.EvaluationContext) bool {
	val, exists := lookupField(cond.Field, ctx)

	switch cond.Operator {
	case models.OpIsEmpty:
		return isEmpty(val)
	case models.OpIsNotEmpty:
		return !isEmpty(val)
	}

	// An unknown field reference degrades to false rather than failing the
	// whole evaluation.
	if !exists || val == nil {
		return false
	}

	switch cond.Operator {
	case models.OpEquals:
		return compare(val, cond.Value, cond.ValueType) == 0
	case models.OpNotEquals:
		return compare(val, cond.Value, cond.ValueType) != 0
	case models.OpGreaterThan:
		return compare(val, cond.Value, cond.ValueType) > 0
	case models.OpLessThan:
		return compare(val, cond.Value, cond.ValueType) < 0
	case models.OpGreaterOrEqual:
		return compare(val, cond.Value, cond.ValueType) >= 0
	case models.OpLessOrEqual:
		return compare(val, cond.Value, cond.ValueType) <= 0
	case models.OpContains:
		return contains(val, cond.Value)
	case models.OpNotContains:
		return !contains(val, cond.Value)
	case models.OpIn:
		return inList(val, cond.Value)
	case models.OpNotIn:
		return !inList(val, cond.Value)
	case models.OpMatchesPattern:
		pattern := asString(cond.Value)
		if pattern == "" {
			return false
		}
		// The configured expression is used literally, no implicit anchors.
		matched, err := regexp.MatchString(pattern, asString(val))
		return err == nil && matched
	default:
		return false
	}
}

// lookupField resolves a field reference. Plain names read submission data;
// "user." and "submission." prefixes read the actor and submission metadata.
func lookupField(field string, ctx *models.EvaluationContext) (interface{}, bool) {
	if ctx == nil {
		return nil, false
	}

	switch {
	case field == "user.id":
		return ctx.User.ID, true
	case field == "user.roles":
		return ctx.User.Roles, true
	case strings.HasPrefix(field, "user."):
		v, ok := ctx.User.Attributes[strings.TrimPrefix(field, "user.")]
		return v, ok
	case field == "submission.status":
		return string(ctx.Submission.Status), true
	case field == "submission.id":
		return ctx.Submission.ID, true
	}

	v, ok := ctx.Data[field]
	return v, ok
}

func isEmpty(val interface{}) bool {
	if val == nil {
		return true
	}
	switch v := val.(type) {
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	}
	return false
}

// compare returns -1, 0 or 1. Incomparable values compare as unequal and
// non-ordered (returned as a sentinel 2 so every ordering operator is false).
func compare(left, right interface{}, vt models.ValueType) int {
	switch vt {
	case models.ValueTypeNumber:
		lf, lok := asFloat(left)
		rf, rok := asFloat(right)
		if !lok || !rok {
			return 2
		}
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		}
		return 0
	case models.ValueTypeDate:
		lt, lok := asTime(left)
		rt, rok := asTime(right)
		if !lok || !rok {
			return 2
		}
		switch {
		case lt.Before(rt):
			return -1
		case lt.After(rt):
			return 1
		}
		return 0
	case models.ValueTypeBoolean:
		if asBool(left) == asBool(right) {
			return 0
		}
		return 2
	default:
		return strings.Compare(asString(left), asString(right))
	}
}

func contains(val, needle interface{}) bool {
	switch v := val.(type) {
	case []interface{}:
		for _, item := range v {
			if asString(item) == asString(needle) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == asString(needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(asString(val), asString(needle))
}

func inList(val, list interface{}) bool {
	switch l := list.(type) {
	case []interface{}:
		for _, item := range l {
			if asString(item) == asString(val) {
				return true
			}
		}
	case []string:
		for _, item := range l {
			if item == asString(val) {
				return true
			}
		}
	}
	return false
}

func asString(val interface{}) string {
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

func asFloat(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func asTime(val interface{}) (time.Time, bool) {
	switch v := val.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func asBool(val interface{}) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "yes"
	}
	f, ok := asFloat(val)
	return ok && f != 0
}
