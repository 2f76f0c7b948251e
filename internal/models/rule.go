// Package models defines domain models for the engagement gamification engine.
package models

import (
	"encoding/json"
	"time"
)

// Rule logic combinators.
const (
	LogicAND = "AND"
	LogicOR  = "OR"
)

// Condition operators.
const (
	OpEquals   = "equals"
	OpContains = "contains"
	OpGT       = "gt"
	OpLT       = "lt"
	OpGTE      = "gte"
	OpLTE      = "lte"
	OpIn       = "in"
	OpExists   = "exists"
)

// GamificationRule is a declarative trigger definition. Conditions and Actions
// are stored as JSON documents and parsed on evaluation.
type GamificationRule struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Name                string          `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description         string          `gorm:"type:text" json:"description"`
	Conditions          json.RawMessage `gorm:"type:jsonb" json:"conditions"`
	Logic               string          `gorm:"size:10;not null;default:AND" json:"logic"`
	Actions             json.RawMessage `gorm:"type:jsonb" json:"actions"`
	CooldownHours       *int            `json:"cooldown_hours"`
	MaxTriggersPerMonth *int            `json:"max_triggers_per_month"`
	ExecutionCount      int64           `gorm:"not null;default:0" json:"execution_count"`
	IsActive            bool            `gorm:"index;not null;default:true" json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GamificationRule model.
func (GamificationRule) TableName() string {
	return "gamification_rules"
}

// RuleCondition is one declarative condition inside a rule.
type RuleCondition struct {
	Entity   string      `json:"entity"`
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// RuleActions is the action block of a rule. Zero values mean the action type
// is not configured.
type RuleActions struct {
	AwardPoints      int  `json:"award_points,omitempty"`
	AwardBadge       uint `json:"award_badge,omitempty"`
	SendNotification bool `json:"send_notification,omitempty"`
}

// ParseConditions decodes the stored condition list.
func (r *GamificationRule) ParseConditions() ([]RuleCondition, error) {
	if len(r.Conditions) == 0 {
		return nil, nil
	}
	var conditions []RuleCondition
	if err := json.Unmarshal(r.Conditions, &conditions); err != nil {
		return nil, err
	}
	return conditions, nil
}

// ParseActions decodes the stored action block.
func (r *GamificationRule) ParseActions() (*RuleActions, error) {
	actions := &RuleActions{}
	if len(r.Actions) == 0 {
		return actions, nil
	}
	if err := json.Unmarshal(r.Actions, actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// RuleExecution is the append-only audit record of one rule firing. It doubles
// as the throttling store: cooldown and monthly-cap checks are reconstructed
// from these rows. The unique index makes redelivery of the same entity-scoped
// trigger a no-op; user-level triggers carry a NULL trigger entity id and are
// exempt.
type RuleExecution struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	RuleID          uint            `gorm:"not null;index;uniqueIndex:uq_rule_user_trigger" json:"rule_id"`
	RuleName        string          `gorm:"size:100" json:"rule_name"`
	UserEmail       string          `gorm:"not null;index;size:255;uniqueIndex:uq_rule_user_trigger" json:"user_email"`
	TriggerEntity   string          `gorm:"size:100" json:"trigger_entity"`
	TriggerEntityID *string         `gorm:"size:64;uniqueIndex:uq_rule_user_trigger" json:"trigger_entity_id"`
	ExecutedAt      time.Time       `gorm:"not null;index" json:"executed_at"`
	ActionsExecuted json.RawMessage `gorm:"type:jsonb" json:"actions_executed"`
	ConditionsMet   json.RawMessage `gorm:"type:jsonb" json:"conditions_met"`
	Success         bool            `gorm:"not null;default:true" json:"success"`
}

// TableName specifies the table name for RuleExecution model.
func (RuleExecution) TableName() string {
	return "rule_executions"
}
