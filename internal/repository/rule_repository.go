package repository

import (
	"github.com/intinc/interact-engine/internal/models"
	"gorm.io/gorm"
)

// RuleRepository handles gamification rule database operations.
type RuleRepository struct {
	db *DB
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create creates a new rule.
func (r *RuleRepository) Create(rule *models.GamificationRule) error {
	return r.db.Create(rule).Error
}

// GetByID retrieves a rule by its ID.
func (r *RuleRepository) GetByID(id uint) (*models.GamificationRule, error) {
	var rule models.GamificationRule
	if err := r.db.First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetByName retrieves a rule by its name.
func (r *RuleRepository) GetByName(name string) (*models.GamificationRule, error) {
	var rule models.GamificationRule
	if err := r.db.Where("name = ?", name).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActive retrieves all rules considered by the orchestrator.
func (r *RuleRepository) ListActive() ([]models.GamificationRule, error) {
	var rules []models.GamificationRule
	err := r.db.Where("is_active = ?", true).Order("created_at ASC").Find(&rules).Error
	return rules, err
}

// List retrieves all rules.
func (r *RuleRepository) List() ([]models.GamificationRule, error) {
	var rules []models.GamificationRule
	err := r.db.Order("created_at ASC").Find(&rules).Error
	return rules, err
}

// Update updates an existing rule.
func (r *RuleRepository) Update(rule *models.GamificationRule) error {
	return r.db.Save(rule).Error
}

// Delete deletes a rule by its ID.
func (r *RuleRepository) Delete(id uint) error {
	return r.db.Delete(&models.GamificationRule{}, id).Error
}

// IncrementExecutionCount atomically bumps a rule's trigger counter.
func (r *RuleRepository) IncrementExecutionCount(id uint) error {
	return r.db.Model(&models.GamificationRule{}).
		Where("id = ?", id).
		UpdateColumn("execution_count", gorm.Expr("execution_count + 1")).Error
}
