package points

import (
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/repository"
)

// gormStore adapts the repository bundle to the service's Store interface.
type gormStore struct {
	s *repository.Store
}

// NewStore wraps the repository bundle for use by the points service.
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

func (g *gormStore) GetParticipation(id uint) (*models.Participation, error) {
	return g.s.Engagement.GetParticipationByID(id)
}

func (g *gormStore) SaveParticipation(p *models.Participation) error {
	return g.s.Engagement.UpdateParticipation(p)
}

func (g *gormStore) InTransaction(fn func(tx Store) error) error {
	return g.s.Transaction(func(tx *repository.Store) error {
		return fn(&gormStore{s: tx})
	})
}
