package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/intinc/interact-engine/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email. Returns (nil, nil) when no account
// exists; callers fall back to the default participant role.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// Update updates a user.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// List retrieves all users with optional filters.
func (r *UserRepository) List(team, role string) ([]models.User, error) {
	query := r.db.Model(&models.User{})

	if team != "" {
		query = query.Where("team = ?", team)
	}
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateOrUpdate creates a user if it doesn't exist, or updates if it does,
// keyed by email.
func (r *UserRepository) CreateOrUpdate(user *models.User) error {
	existing, err := r.GetByEmail(user.Email)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.Create(user)
	}

	existing.FullName = user.FullName
	existing.Role = user.Role
	existing.UserType = user.UserType
	existing.Team = user.Team
	existing.IsActive = user.IsActive
	existing.UpdatedAt = time.Now()
	return r.Update(existing)
}
