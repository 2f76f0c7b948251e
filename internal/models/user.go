package models

import (
	"time"
)

// User represents an employee account as mirrored from the identity provider.
// Role and UserType are raw attributes; the effective role is computed per
// request by the auth package and never persisted.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Role      string    `gorm:"size:50" json:"role"`      // 'admin', 'ops', 'hr', 'team_lead', 'employee'
	UserType  string    `gorm:"size:50" json:"user_type"` // 'facilitator', 'participant'
	Team      string    `gorm:"size:100" json:"team"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
