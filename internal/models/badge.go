package models

import (
	"time"
)

// Badge award provenance tags.
const (
	EarnedThroughRuleExecution = "rule_execution"
	EarnedThroughAutomatic     = "automatic"
	EarnedThroughManual        = "manual"
)

// Threshold criteria types for automatic badges. Each maps to a counter on
// the UserPoints row.
const (
	CriteriaEventsAttended      = "events_attended"
	CriteriaActivitiesCompleted = "activities_completed"
	CriteriaFeedbackSubmitted   = "feedback_submitted"
	CriteriaPointsTotal         = "points_total"
)

// Badge represents a badge that can be earned by users. Repeatable controls
// whether the same badge may be awarded to the same user more than once.
type Badge struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	Icon              string    `gorm:"size:50" json:"icon"`
	PointsValue       int       `gorm:"not null;default:0" json:"points_value"`
	Repeatable        bool      `gorm:"not null;default:false" json:"repeatable"`
	IsManualAward     bool      `gorm:"not null;default:false" json:"is_manual_award"`
	CriteriaType      string    `gorm:"size:50" json:"criteria_type"`
	CriteriaThreshold int       `gorm:"not null;default:0" json:"criteria_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// BadgeAward is an append-only grant record.
type BadgeAward struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserEmail     string    `gorm:"not null;index;size:255" json:"user_email"`
	BadgeID       uint      `gorm:"not null;index" json:"badge_id"`
	Badge         Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	AwardedAt     time.Time `gorm:"not null" json:"awarded_at"`
	EarnedThrough string    `gorm:"size:50;not null" json:"earned_through"`
}

// TableName specifies the table name for BadgeAward model.
func (BadgeAward) TableName() string {
	return "badge_awards"
}
