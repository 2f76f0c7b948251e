package repository

import (
	"time"

	"github.com/intinc/interact-engine/internal/models"
)

// ExecutionRepository handles rule execution audit rows. Rows are append-only;
// this repository never updates or deletes them.
type ExecutionRepository struct {
	db *DB
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// Create appends one audit row.
func (r *ExecutionRepository) Create(execution *models.RuleExecution) error {
	return r.db.Create(execution).Error
}

// ListByRuleAndUser retrieves prior executions for a rule and user, most
// recent first. The rule evaluator reconstructs cooldown and monthly-cap
// state from these rows.
func (r *ExecutionRepository) ListByRuleAndUser(ruleID uint, userEmail string) ([]models.RuleExecution, error) {
	var executions []models.RuleExecution
	err := r.db.
		Where("rule_id = ? AND user_email = ?", ruleID, userEmail).
		Order("executed_at DESC").
		Find(&executions).Error
	return executions, err
}

// ListByUser retrieves a user's executions, most recent first.
func (r *ExecutionRepository) ListByUser(userEmail string, limit int) ([]models.RuleExecution, error) {
	var executions []models.RuleExecution
	query := r.db.Where("user_email = ?", userEmail).Order("executed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&executions).Error
	return executions, err
}

// ListSince retrieves executions after a cutoff, most recent first.
func (r *ExecutionRepository) ListSince(since time.Time) ([]models.RuleExecution, error) {
	var executions []models.RuleExecution
	err := r.db.
		Where("executed_at >= ?", since).
		Order("executed_at DESC").
		Find(&executions).Error
	return executions, err
}
