package badges

import (
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/repository"
)

// gormStore adapts the repository bundle to the service's Store interface.
type gormStore struct {
	s *repository.Store
}

// NewStore wraps the repository bundle for use by the badge service.
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

func (g *gormStore) ListBadges() ([]models.Badge, error) {
	return g.s.Badges.GetAll()
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

func (g *gormStore) GetUserAwards(userEmail string) ([]models.BadgeAward, error) {
	return g.s.Badges.GetUserAwards(userEmail)
}

func (g *gormStore) GetHoldersCount(badgeID uint) (int64, error) {
	return g.s.Badges.GetHoldersCount(badgeID)
}

func (g *gormStore) InTransaction(fn func(tx Store) error) error {
	return g.s.Transaction(func(tx *repository.Store) error {
		return fn(&gormStore{s: tx})
	})
}
