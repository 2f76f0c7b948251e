package models

import (
	"time"
)

// Participation tracks one user's attendance at one event. The points_awarded
// style flags prevent the direct award entry points from double-crediting the
// same participation.
type Participation struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserEmail         string     `gorm:"not null;index;size:255" json:"user_email"`
	EventID           uint       `gorm:"not null;index" json:"event_id"`
	Attended          bool       `gorm:"not null;default:false" json:"attended"`
	EngagementScore   *float64   `gorm:"type:decimal(4,2)" json:"engagement_score"`
	CheckedInAt       *time.Time `json:"checked_in_at"`
	PointsAwarded     bool       `gorm:"not null;default:false" json:"points_awarded"`
	ActivityCompleted bool       `gorm:"not null;default:false" json:"activity_completed"`
	FeedbackSubmitted bool       `gorm:"not null;default:false" json:"feedback_submitted"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Participation model.
func (Participation) TableName() string {
	return "participations"
}

// Recognition is one peer-to-peer recognition. UserEmail is the recipient.
type Recognition struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserEmail   string    `gorm:"not null;index;size:255" json:"user_email"`
	SenderEmail string    `gorm:"not null;index;size:255" json:"sender_email"`
	Category    string    `gorm:"size:50" json:"category"`
	Message     string    `gorm:"type:text" json:"message"`
	IsPublic    bool      `gorm:"not null;default:true" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for Recognition model.
func (Recognition) TableName() string {
	return "recognitions"
}

// Challenge progress states.
const (
	ChallengeStatusActive    = "active"
	ChallengeStatusCompleted = "completed"
	ChallengeStatusAbandoned = "abandoned"
)

// ChallengeProgress tracks one user's progress through one wellness challenge.
type ChallengeProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserEmail   string     `gorm:"not null;index;size:255" json:"user_email"`
	ChallengeID uint       `gorm:"not null;index" json:"challenge_id"`
	Status      string     `gorm:"size:50;not null;default:active" json:"status"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for ChallengeProgress model.
func (ChallengeProgress) TableName() string {
	return "challenge_progress"
}

// SurveyResponse records one submitted survey response.
type SurveyResponse struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserEmail   string    `gorm:"not null;index;size:255" json:"user_email"`
	SurveyID    uint      `gorm:"not null;index" json:"survey_id"`
	Score       *float64  `gorm:"type:decimal(4,2)" json:"score"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
}

// TableName specifies the table name for SurveyResponse model.
func (SurveyResponse) TableName() string {
	return "survey_responses"
}
