package repository

import (
	"errors"
	"time"

	"github.com/intinc/interact-engine/internal/models"
	"gorm.io/gorm"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Create creates a new badge in the database.
func (r *BadgeRepository) Create(badge *models.Badge) error {
	return r.db.Create(badge).Error
}

// GetByID retrieves a badge by its ID. Returns (nil, nil) when the badge id
// does not resolve; the rule executor treats that as a silent skip.
func (r *BadgeRepository) GetByID(id uint) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.First(&badge, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetByName retrieves a badge by its name.
func (r *BadgeRepository) GetByName(name string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.Where("name = ?", name).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetAll retrieves all badges from the database.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("created_at ASC").Find(&badges).Error
	return badges, err
}

// Update updates an existing badge in the database.
func (r *BadgeRepository) Update(badge *models.Badge) error {
	return r.db.Save(badge).Error
}

// CreateAward appends a badge award row. Duplicate-award policy is decided by
// the callers; the table itself allows repeats.
func (r *BadgeRepository) CreateAward(award *models.BadgeAward) error {
	if award.AwardedAt.IsZero() {
		award.AwardedAt = time.Now().UTC()
	}
	return r.db.Create(award).Error
}

// HasUserEarnedBadge checks if a user has already been awarded a badge.
func (r *BadgeRepository) HasUserEarnedBadge(userEmail string, badgeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.BadgeAward{}).
		Where("user_email = ? AND badge_id = ?", userEmail, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserAwards retrieves all awards earned by a user with badge details preloaded.
func (r *BadgeRepository) GetUserAwards(userEmail string) ([]models.BadgeAward, error) {
	var awards []models.BadgeAward
	err := r.db.
		Where("user_email = ?", userEmail).
		Preload("Badge").
		Order("awarded_at DESC").
		Find(&awards).Error
	return awards, err
}

// GetHolders retrieves the emails of users holding a specific badge.
func (r *BadgeRepository) GetHolders(badgeID uint) ([]string, error) {
	var holders []string
	err := r.db.Model(&models.BadgeAward{}).
		Distinct("user_email").
		Where("badge_id = ?", badgeID).
		Pluck("user_email", &holders).Error
	return holders, err
}

// GetHoldersCount returns the number of distinct users holding a badge.
func (r *BadgeRepository) GetHoldersCount(badgeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.BadgeAward{}).
		Where("badge_id = ?", badgeID).
		Distinct("user_email").
		Count(&count).Error
	return count, err
}

// GetUserBadgeCount returns the total number of awards a user has earned.
func (r *BadgeRepository) GetUserBadgeCount(userEmail string) (int64, error) {
	var count int64
	err := r.db.Model(&models.BadgeAward{}).
		Where("user_email = ?", userEmail).
		Count(&count).Error
	return count, err
}
