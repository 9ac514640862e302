package conditional

import (
	"go-forms/internal/common/models"
)

type ActionType string

const (
	ActionShowField    ActionType = "show_field"
	ActionHideField    ActionType = "hide_field"
	ActionSetRequired  ActionType = "set_required"
	ActionSetOptional  ActionType = "set_optional"
	ActionSetValue     ActionType = "set_value"
	ActionSetOptions   ActionType = "set_options"
	ActionDisableField ActionType = "disable_field"
	ActionEnableField  ActionType = "enable_field"
)

type RuleAction struct {
	Type    ActionType            `json:"type" bson:"type"`
	Field   string                `json:"field" bson:"field"`
	Value   interface{}           `json:"value,omitempty" bson:"value,omitempty"`
	Options []models.SelectOption `json:"options,omitempty" bson:"options,omitempty"`
}

// ConditionalRule drives field UI state: "if X then do Y". Rules are
// evaluated fresh on every context change and carry no state of their own.
type ConditionalRule struct {
	ID        string                `json:"id" bson:"id"`
	Name      string                `json:"name,omitempty" bson:"name,omitempty"`
	Order     int                   `json:"order" bson:"order"`
	Condition models.ConditionGroup `json:"condition" bson:"condition"`
	Actions   []RuleAction          `json:"actions" bson:"actions"`
}
