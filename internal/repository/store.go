package repository

import (
	"gorm.io/gorm"
)

// Store bundles all repositories over one database handle. Services that need
// multi-write atomicity run inside Transaction, which hands them a Store bound
// to the transaction.
type Store struct {
	db *DB

	Rules      *RuleRepository
	Executions *ExecutionRepository
	Points     *PointsRepository
	Badges     *BadgeRepository
	Users      *UserRepository
	Engagement *EngagementRepository
}

// NewStore creates a store over the given database handle.
func NewStore(db *DB) *Store {
	return &Store{
		db:         db,
		Rules:      NewRuleRepository(db),
		Executions: NewExecutionRepository(db),
		Points:     NewPointsRepository(db),
		Badges:     NewBadgeRepository(db),
		Users:      NewUserRepository(db),
		Engagement: NewEngagementRepository(db),
	}
}

// DB exposes the underlying database handle.
func (s *Store) DB() *DB {
	return s.db
}

// Transaction runs fn against a transaction-scoped store. Nested calls use
// savepoints via GORM's default transaction handling.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.DB.Transaction(func(txdb *gorm.DB) error {
		return fn(NewStore(&DB{txdb}))
	})
}
