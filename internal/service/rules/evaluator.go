package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/intinc/interact-engine/internal/models"
)

// Trigger is one engagement event submitted for rule evaluation.
type Trigger struct {
	// Entity names the record type that caused the trigger, e.g. "participation".
	Entity string `json:"entity"`
	// EntityID is the id of the causing record. Nil for user-level triggers.
	EntityID *string `json:"entity_id"`
	// UserEmail is the user the trigger is about.
	UserEmail string `json:"user_email"`
	// Data optionally carries the causing record inline, saving a lookup when
	// conditions reference the trigger entity.
	Data map[string]interface{} `json:"data,omitempty"`
}

// entityDoc resolves the record a condition refers to. Conditions on the
// trigger's own entity use the inline payload or the causing record; anything
// else is the user's most recent record of that entity.
func (s *Service) entityDoc(tx Store, cond *models.RuleCondition, trigger *Trigger, cache map[string]map[string]interface{}) (map[string]interface{}, error) {
	if doc, ok := cache[cond.Entity]; ok {
		return doc, nil
	}

	var doc map[string]interface{}
	var err error
	if cond.Entity == trigger.Entity {
		if trigger.Data != nil {
			doc = trigger.Data
		} else {
			doc, err = tx.FetchEntity(cond.Entity, trigger.EntityID, trigger.UserEmail)
		}
	} else {
		doc, err = tx.FetchEntity(cond.Entity, nil, trigger.UserEmail)
	}
	if err != nil {
		return nil, err
	}

	cache[cond.Entity] = doc
	return doc, nil
}

// evaluateCondition checks one condition. A missing record, unknown entity,
// missing field, or lookup failure all evaluate to false rather than failing
// the rule.
func (s *Service) evaluateCondition(tx Store, cond *models.RuleCondition, trigger *Trigger, cache map[string]map[string]interface{}) bool {
	if !KnownEntity(cond.Entity) {
		s.log.Warn().
			Str("entity", cond.Entity).
			Msg("Condition references unknown entity")
		return false
	}

	doc, err := s.entityDoc(tx, cond, trigger, cache)
	if err != nil {
		s.log.Warn().Err(err).
			Str("entity", cond.Entity).
			Str("user", trigger.UserEmail).
			Msg("Failed to load condition entity")
		return false
	}
	if doc == nil {
		return false
	}

	value, present := doc[cond.Field]
	if cond.Operator == models.OpExists {
		// The condition's comparison value is ignored for exists.
		return present && value != nil
	}
	if !present {
		return false
	}

	return compare(cond.Operator, value, cond.Value)
}

// compare applies a condition operator to a field value and the expected
// value. Type mismatches evaluate to false, never to an error.
func compare(operator string, fieldValue, expected interface{}) bool {
	switch operator {
	case models.OpEquals:
		return valuesEqual(fieldValue, expected)

	case models.OpContains:
		fv, ok := fieldValue.(string)
		if !ok {
			return false
		}
		want, ok := expected.(string)
		return ok && strings.Contains(fv, want)

	case models.OpGT, models.OpLT, models.OpGTE, models.OpLTE:
		fv, ok1 := toFloat64(fieldValue)
		want, ok2 := toFloat64(expected)
		if !ok1 || !ok2 {
			return false
		}
		switch operator {
		case models.OpGT:
			return fv > want
		case models.OpLT:
			return fv < want
		case models.OpGTE:
			return fv >= want
		default:
			return fv <= want
		}

	case models.OpIn:
		options, ok := expected.([]interface{})
		if !ok {
			return false
		}
		for _, option := range options {
			if valuesEqual(fieldValue, option) {
				return true
			}
		}
		return false
	}

	return false
}

// valuesEqual compares two decoded JSON values, normalizing numbers so 5 and
// 5.0 compare equal.
func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		return ok && fa == fb
	}
	return a == b
}

// toFloat64 normalizes the numeric types JSON decoding and Go literals
// produce.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// shouldFire decides whether a rule fires for a trigger. Throttles are checked
// before conditions: executions must be sorted most recent first.
func (s *Service) shouldFire(tx Store, rule *models.GamificationRule, trigger *Trigger, executions []models.RuleExecution, now time.Time) (bool, []string) {
	if rule.CooldownHours != nil && len(executions) > 0 {
		cooldown := time.Duration(*rule.CooldownHours) * time.Hour
		if now.Sub(executions[0].ExecutedAt) < cooldown {
			return false, nil
		}
	}

	if rule.MaxTriggersPerMonth != nil {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		count := 0
		for i := range executions {
			if !executions[i].ExecutedAt.Before(monthStart) {
				count++
			}
		}
		if count >= *rule.MaxTriggersPerMonth {
			return false, nil
		}
	}

	conditions, err := rule.ParseConditions()
	if err != nil {
		s.log.Error().Err(err).Str("rule", rule.Name).Msg("Failed to parse rule conditions")
		return false, nil
	}

	// Conditions are evaluated eagerly, never short-circuited: there is no
	// ordering dependency between them, and the audit trail lists everything
	// that was checked regardless of each condition's outcome.
	cache := make(map[string]map[string]interface{})
	checked := make([]string, len(conditions))
	satisfied := 0
	for i := range conditions {
		if s.evaluateCondition(tx, &conditions[i], trigger, cache) {
			satisfied++
		}
		checked[i] = conditionLabel(&conditions[i])
	}

	switch rule.Logic {
	case models.LogicAND:
		return satisfied == len(conditions), checked
	case models.LogicOR:
		return satisfied > 0, checked
	}

	s.log.Warn().Str("rule", rule.Name).Str("logic", rule.Logic).Msg("Unknown rule logic")
	return false, nil
}

func conditionLabel(cond *models.RuleCondition) string {
	return fmt.Sprintf("%s.%s %s", cond.Entity, cond.Field, cond.Operator)
}
