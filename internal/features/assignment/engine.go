package assignment

import (
	"sort"

	"go-forms/internal/common/models"
	"go-forms/pkg/condition"
)

// Engine picks an assignee from a candidate pool. Stateless given the load
// snapshot; deterministic for a fixed snapshot so the caller can retry
// safely.
type Engine interface {
	Assign(rule AssignmentRule, snapshot LoadSnapshot, ctx *models.EvaluationContext) AssignmentResult
}

type EngineImpl struct {
	evaluator *condition.Evaluator
}

func NewEngine() Engine {
	return &EngineImpl{evaluator: condition.NewEvaluator()}
}

func (e *EngineImpl) Assign(rule AssignmentRule, snapshot LoadSnapshot, ctx *models.EvaluationContext) AssignmentResult {
	none := AssignmentResult{Assigned: false, NextIndex: snapshot.LastIndex}

	if rule.AppliesWhen != nil && !e.evaluator.Evaluate(rule.AppliesWhen, ctx) {
		return none
	}
	if len(rule.Candidates) == 0 {
		return none
	}

	switch rule.Strategy {
	case StrategyRoundRobin:
		return roundRobin(rule.Candidates, snapshot.LastIndex)
	case StrategyLoadBalance:
		return loadBalance(rule.Candidates, snapshot)
	case StrategySkillMatch:
		required := stringList(fieldValue(rule.SkillsField, ctx))
		pool := filterBySkills(rule.Candidates, required)
		if len(pool) == 0 {
			return none
		}
		return loadBalance(pool, snapshot)
	case StrategyLocationMatch:
		site := stringValue(fieldValue(rule.LocationField, ctx))
		pool := filterByLocation(rule.Candidates, site)
		if len(pool) == 0 {
			return none
		}
		return loadBalance(pool, snapshot)
	}

	return none
}

func roundRobin(candidates []Candidate, lastIndex int) AssignmentResult {
	next := (lastIndex + 1) % len(candidates)
	if next < 0 {
		next += len(candidates)
	}
	return AssignmentResult{
		Assigned:   true,
		AssigneeID: candidates[next].ID,
		NextIndex:  next,
	}
}

// loadBalance picks the candidate with the fewest open assignments in the
// snapshot. Ties break by candidate id ascending so repeated evaluation of
// the same snapshot is deterministic.
func loadBalance(candidates []Candidate, snapshot LoadSnapshot) AssignmentResult {
	pool := make([]Candidate, len(candidates))
	copy(pool, candidates)
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	best := pool[0]
	bestLoad := snapshot.OpenAssignments[best.ID]
	for _, c := range pool[1:] {
		if load := snapshot.OpenAssignments[c.ID]; load < bestLoad {
			best = c
			bestLoad = load
		}
	}

	return AssignmentResult{
		Assigned:   true,
		AssigneeID: best.ID,
		NextIndex:  snapshot.LastIndex,
	}
}

// filterBySkills keeps candidates whose skill set is a superset of the
// required skills.
func filterBySkills(candidates []Candidate, required []string) []Candidate {
	if len(required) == 0 {
		return candidates
	}
	var out []Candidate
	for _, c := range candidates {
		have := make(map[string]bool, len(c.Skills))
		for _, s := range c.Skills {
			have[s] = true
		}
		ok := true
		for _, need := range required {
			if !have[need] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func filterByLocation(candidates []Candidate, site string) []Candidate {
	if site == "" {
		return candidates
	}
	var out []Candidate
	for _, c := range candidates {
		if c.Location == site {
			out = append(out, c)
		}
	}
	return out
}

func fieldValue(field string, ctx *models.EvaluationContext) interface{} {
	if field == "" || ctx == nil {
		return nil
	}
	return ctx.Data[field]
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}
