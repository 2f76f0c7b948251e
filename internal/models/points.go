package models

import (
	"time"
)

// PointsPerLevel is the number of total points required per level.
const PointsPerLevel = 100

// UserPoints is the per-user points row, created lazily on first award.
// LifetimePoints never decreases; TotalPoints and PointsThisMonth are the only
// counters spent or reset elsewhere.
type UserPoints struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserEmail           string    `gorm:"uniqueIndex;not null;size:255" json:"user_email"`
	TotalPoints         int       `gorm:"not null;default:0" json:"total_points"`
	LifetimePoints      int       `gorm:"not null;default:0" json:"lifetime_points"`
	PointsThisMonth     int       `gorm:"not null;default:0" json:"points_this_month"`
	Level               int       `gorm:"not null;default:1" json:"level"`
	EventsAttended      int       `gorm:"not null;default:0" json:"events_attended"`
	ActivitiesCompleted int       `gorm:"not null;default:0" json:"activities_completed"`
	FeedbackSubmitted   int       `gorm:"not null;default:0" json:"feedback_submitted"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserPoints model.
func (UserPoints) TableName() string {
	return "user_points"
}

// LevelForPoints computes the level implied by a total points balance.
func LevelForPoints(total int) int {
	if total < 0 {
		return 1
	}
	return total/PointsPerLevel + 1
}

// Award sources recorded in the points ledger.
const (
	SourceRuleExecution      = "rule_execution"
	SourceAttendance         = "attendance"
	SourceActivityCompletion = "activity_completion"
	SourceFeedback           = "feedback"
	SourceHighEngagement     = "high_engagement"
	SourceBadge              = "badge"
	SourceManualAdjustment   = "manual_adjustment"
)

// PointsLedgerEntry is one append-only row of point movement history.
type PointsLedgerEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserEmail string    `gorm:"not null;index;size:255" json:"user_email"`
	Amount    int       `gorm:"not null" json:"amount"`
	Source    string    `gorm:"size:50;not null" json:"source"`
	Reason    string    `gorm:"type:text" json:"reason"`
	RuleID    *uint     `gorm:"index" json:"rule_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for PointsLedgerEntry model.
func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}
