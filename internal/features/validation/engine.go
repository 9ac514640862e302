package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/conditional"

	"github.com/d5/tengo/v2"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Engine validates a single field or a whole form against the template's
// field definitions and validation rules. Validation is read-only: the data
// snapshot is never mutated, and failures are collected as values, never
// returned as Go errors.
type Engine interface {
	ValidateField(field models.SmartField, value interface{}, rules []ValidationRule, ctx *models.EvaluationContext) ValidationResult
	ValidateForm(fields []models.SmartField, rules []ValidationRule, ctx *models.EvaluationContext) ValidationResult
}

type EngineImpl struct {
	conditional conditional.Engine
}

func NewEngine(conditionalEngine conditional.Engine) Engine {
	return &EngineImpl{conditional: conditionalEngine}
}

// ValidateField checks one field. Order: required first (a failed required
// check short-circuits the rest), then type checks, then the field's rules.
// When the value is empty and the field is not required, everything after
// the required check is skipped.
func (e *EngineImpl) ValidateField(field models.SmartField, value interface{}, rules []ValidationRule, ctx *models.EvaluationContext) ValidationResult {
	var errs []ValidationError

	required := field.Required
	if field.RequiredWhen != nil {
		required = e.conditional.Evaluate(field.RequiredWhen, ctx)
	}

	if valueEmpty(value) {
		if required {
			errs = append(errs, ValidationError{
				Field:   field.Name,
				Kind:    ValidatorRequired,
				Message: fmt.Sprintf("%s is required", field.Label),
			})
		}
		return result(errs)
	}

	if err := e.checkFieldType(field, value); err != nil {
		errs = append(errs, *err)
	}

	for _, rule := range rules {
		if !ruleTargets(rule, field.Name) {
			continue
		}
		if rule.AppliesWhen != nil && !e.conditional.Evaluate(rule.AppliesWhen, ctx) {
			continue
		}
		if err := e.checkRule(rule, field.Name, value, ctx); err != nil {
			errs = append(errs, *err)
		}
	}

	return result(errs)
}

// ValidateForm validates every field independently, accumulating errors
// rather than stopping at the first failure, and then applies the
// cross-field and custom rules whose applicability condition holds.
func (e *EngineImpl) ValidateForm(fields []models.SmartField, rules []ValidationRule, ctx *models.EvaluationContext) ValidationResult {
	var errs []ValidationError

	perField := make([]ValidationRule, 0, len(rules))
	formWide := make([]ValidationRule, 0)
	for _, rule := range rules {
		if rule.Kind == ValidatorCrossField || rule.Kind == ValidatorCustom {
			formWide = append(formWide, rule)
		} else {
			perField = append(perField, rule)
		}
	}

	for _, field := range fields {
		res := e.ValidateField(field, ctx.Data[field.Name], perField, ctx)
		errs = append(errs, res.Errors...)
	}

	for _, rule := range formWide {
		if rule.AppliesWhen != nil && !e.conditional.Evaluate(rule.AppliesWhen, ctx) {
			continue
		}
		target := ""
		if len(rule.Fields) > 0 {
			target = rule.Fields[0]
		}
		if err := e.checkRule(rule, target, ctx.Data[target], ctx); err != nil {
			errs = append(errs, *err)
		}
	}

	return result(errs)
}

func (e *EngineImpl) checkFieldType(field models.SmartField, value interface{}) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Field: field.Name, Kind: ValidatorKind(field.Type), Message: msg}
	}

	switch field.Type {
	case models.FieldTypeNumber, models.FieldTypeCurrency:
		if _, ok := toFloat(value); !ok {
			return fail(fmt.Sprintf("%s must be a number", field.Label))
		}
	case models.FieldTypeDate:
		if _, ok := toTime(value); !ok {
			return fail(fmt.Sprintf("%s must be a valid date", field.Label))
		}
	case models.FieldTypeEmail:
		if !emailPattern.MatchString(toString(value)) {
			return fail(fmt.Sprintf("%s must be a valid email address", field.Label))
		}
	case models.FieldTypeSelect:
		if len(field.Options) > 0 && !optionAllowed(field.Options, toString(value)) {
			return fail(fmt.Sprintf("%s has an unknown option", field.Label))
		}
	case models.FieldTypeMultiSelect:
		if len(field.Options) > 0 {
			for _, v := range toStringList(value) {
				if !optionAllowed(field.Options, v) {
					return fail(fmt.Sprintf("%s has an unknown option", field.Label))
				}
			}
		}
	}

	return nil
}

func (e *EngineImpl) checkRule(rule ValidationRule, field string, value interface{}, ctx *models.EvaluationContext) *ValidationError {
	fail := func(fallback string) *ValidationError {
		msg := rule.Message
		if msg == "" {
			msg = fallback
		}
		return &ValidationError{Field: field, Kind: rule.Kind, Message: msg}
	}

	switch rule.Kind {
	case ValidatorRequired:
		if valueEmpty(value) {
			return fail(fmt.Sprintf("%s is required", field))
		}
	case ValidatorMinLength:
		if limit, ok := toFloat(rule.Value); ok && len([]rune(toString(value))) < int(limit) {
			return fail(fmt.Sprintf("%s must be at least %d characters", field, int(limit)))
		}
	case ValidatorMaxLength:
		if limit, ok := toFloat(rule.Value); ok && len([]rune(toString(value))) > int(limit) {
			return fail(fmt.Sprintf("%s must be at most %d characters", field, int(limit)))
		}
	case ValidatorMin:
		v, vok := toFloat(value)
		limit, lok := toFloat(rule.Value)
		if vok && lok && v < limit {
			return fail(fmt.Sprintf("%s must be at least %v", field, rule.Value))
		}
	case ValidatorMax:
		v, vok := toFloat(value)
		limit, lok := toFloat(rule.Value)
		if vok && lok && v > limit {
			return fail(fmt.Sprintf("%s must be at most %v", field, rule.Value))
		}
	case ValidatorPattern:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil || !re.MatchString(toString(value)) {
			return fail(fmt.Sprintf("%s has an invalid format", field))
		}
	case ValidatorEmail:
		if !emailPattern.MatchString(toString(value)) {
			return fail(fmt.Sprintf("%s must be a valid email address", field))
		}
	case ValidatorCrossField:
		if len(rule.Fields) < 2 {
			return nil
		}
		probe := models.Condition{
			Field:    rule.Fields[0],
			Operator: rule.Operator,
			Value:    ctx.Data[rule.Fields[1]],
		}
		group := models.ConditionGroup{Operator: models.GroupAnd, Conditions: []models.Condition{probe}}
		if !e.conditional.Evaluate(&group, ctx) {
			return fail(fmt.Sprintf("%s conflicts with %s", rule.Fields[0], rule.Fields[1]))
		}
	case ValidatorCustom:
		return e.runCustomScript(rule, field, value, ctx)
	}

	return nil
}

// runCustomScript executes a configured tengo script with the field value,
// the data snapshot and the acting user bound. The script sets `valid`
// (bool) and optionally `message`. Bad scripts fail the check: a
// misconfigured validator must not silently accept submissions.
func (e *EngineImpl) runCustomScript(rule ValidationRule, field string, value interface{}, ctx *models.EvaluationContext) *ValidationError {
	fail := func(msg string) *ValidationError {
		if rule.Message != "" {
			msg = rule.Message
		}
		return &ValidationError{Field: field, Kind: ValidatorCustom, Message: msg}
	}

	script := tengo.NewScript([]byte(rule.Script))
	script.Add("value", value)
	script.Add("data", ctx.Data)
	script.Add("user", map[string]interface{}{"id": ctx.User.ID})
	script.Add("valid", true)
	script.Add("message", "")

	compiled, err := script.Run()
	if err != nil {
		return fail(fmt.Sprintf("custom validator failed: %v", err))
	}

	if !compiled.Get("valid").Bool() {
		msg := compiled.Get("message").String()
		if msg == "" {
			msg = fmt.Sprintf("%s failed custom validation", field)
		}
		return fail(msg)
	}

	return nil
}

func ruleTargets(rule ValidationRule, field string) bool {
	for _, f := range rule.Fields {
		if f == field {
			return true
		}
	}
	return false
}

func result(errs []ValidationError) ValidationResult {
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func optionAllowed(options []models.SelectOption, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func valueEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func toString(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toStringList(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, toString(item))
		}
		return out
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
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

func toTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
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
