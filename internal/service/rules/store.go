package rules

import (
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/repository"
)

// gormStore adapts the repository bundle to the engine's Store interface.
type gormStore struct {
	s *repository.Store
}

// NewStore wraps the repository bundle for use by the rule engine.
func NewStore(s *repository.Store) Store {
	return &gormStore{s: s}
}

func (g *gormStore) GetUserPoints(email string) (*models.UserPoints, error) {
	return g.s.Points.GetByEmail(email)
}

func (g *gormStore) CreateUserPoints(points *models.UserPoints) error {
	return g.s.Points.Create(points)
}

func (g *gormStore) SaveUserPoints(points *models.UserPoints) error {
	return g.s.Points.Save(points)
}

func (g *gormStore) AppendLedger(entry *models.PointsLedgerEntry) error {
	return g.s.Points.AppendLedger(entry)
}

func (g *gormStore) ListActiveRules() ([]models.GamificationRule, error) {
	return g.s.Rules.ListActive()
}

func (g *gormStore) ListExecutions(ruleID uint, userEmail string) ([]models.RuleExecution, error) {
	return g.s.Executions.ListByRuleAndUser(ruleID, userEmail)
}

func (g *gormStore) CreateExecution(execution *models.RuleExecution) error {
	return g.s.Executions.Create(execution)
}

func (g *gormStore) IncrementRuleExecutionCount(ruleID uint) error {
	return g.s.Rules.IncrementExecutionCount(ruleID)
}

func (g *gormStore) GetBadge(id uint) (*models.Badge, error) {
	return g.s.Badges.GetByID(id)
}

func (g *gormStore) HasUserEarnedBadge(userEmail string, badgeID uint) (bool, error) {
	return g.s.Badges.HasUserEarnedBadge(userEmail, badgeID)
}

func (g *gormStore) CreateBadgeAward(award *models.BadgeAward) error {
	return g.s.Badges.CreateAward(award)
}

func (g *gormStore) FetchEntity(entity string, id *string, userEmail string) (map[string]interface{}, error) {
	return fetchEntity(g.s, entity, id, userEmail)
}

func (g *gormStore) InTransaction(fn func(tx Store) error) error {
	return g.s.Transaction(func(tx *repository.Store) error {
		return fn(&gormStore{s: tx})
	})
}
