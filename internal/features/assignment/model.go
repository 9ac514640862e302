package assignment

import (
	"go-forms/internal/common/models"
)

type Strategy string

const (
	StrategyRoundRobin    Strategy = "round_robin"
	StrategyLoadBalance   Strategy = "load_balance"
	StrategySkillMatch    Strategy = "skill_match"
	StrategyLocationMatch Strategy = "location_match"
)

// Candidate is one member of the pool an assignment rule selects from.
type Candidate struct {
	ID       string   `json:"id" bson:"id"`
	Name     string   `json:"name,omitempty" bson:"name,omitempty"`
	Skills   []string `json:"skills,omitempty" bson:"skills,omitempty"`
	Location string   `json:"location,omitempty" bson:"location,omitempty"`
}

// AssignmentRule configures how an assignee is picked. SkillsField and
// LocationField name the submission data keys carrying the required skills
// and the target site for the matching strategies.
type AssignmentRule struct {
	ID            string                 `json:"id" bson:"id"`
	Name          string                 `json:"name,omitempty" bson:"name,omitempty"`
	Strategy      Strategy               `json:"strategy" bson:"strategy"`
	Candidates    []Candidate            `json:"candidates" bson:"candidates"`
	SkillsField   string                 `json:"skills_field,omitempty" bson:"skills_field,omitempty"`
	LocationField string                 `json:"location_field,omitempty" bson:"location_field,omitempty"`
	AppliesWhen   *models.ConditionGroup `json:"applies_when,omitempty" bson:"applies_when,omitempty"`
}

// LoadSnapshot is the caller-supplied view of current workload. The engine
// holds no state of its own: the round-robin cursor is read and persisted by
// the caller, atomically per rule.
type LoadSnapshot struct {
	OpenAssignments map[string]int `json:"open_assignments"`
	LastIndex       int            `json:"last_index"`
}

// AssignmentResult reports the pick. Assigned=false is an expected outcome
// (empty or fully filtered pool), never an error; the workflow step decides
// what to do with an unassigned submission.
type AssignmentResult struct {
	Assigned   bool   `json:"assigned"`
	AssigneeID string `json:"assignee_id,omitempty"`
	NextIndex  int    `json:"next_index"`
}
