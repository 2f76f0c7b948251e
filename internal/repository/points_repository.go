package repository

import (
	"errors"

	"github.com/intinc/interact-engine/internal/models"
	"gorm.io/gorm"
)

// PointsRepository handles user points and ledger database operations.
type PointsRepository struct {
	db *DB
}

// NewPointsRepository creates a new points repository.
func NewPointsRepository(db *DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// GetByEmail retrieves a user's points row. Returns (nil, nil) when the row
// does not exist yet; rows are created lazily on first award.
func (r *PointsRepository) GetByEmail(userEmail string) (*models.UserPoints, error) {
	var points models.UserPoints
	err := r.db.Where("user_email = ?", userEmail).First(&points).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &points, nil
}

// Create creates a new points row.
func (r *PointsRepository) Create(points *models.UserPoints) error {
	return r.db.Create(points).Error
}

// Save persists an updated points row.
func (r *PointsRepository) Save(points *models.UserPoints) error {
	return r.db.Save(points).Error
}

// AppendLedger appends one ledger entry.
func (r *PointsRepository) AppendLedger(entry *models.PointsLedgerEntry) error {
	return r.db.Create(entry).Error
}

// ListLedger retrieves a user's ledger entries, most recent first.
func (r *PointsRepository) ListLedger(userEmail string, limit int) ([]models.PointsLedgerEntry, error) {
	var entries []models.PointsLedgerEntry
	query := r.db.Where("user_email = ?", userEmail).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}

// TopByTotalPoints retrieves the highest point balances.
func (r *PointsRepository) TopByTotalPoints(limit int) ([]models.UserPoints, error) {
	var rows []models.UserPoints
	err := r.db.Order("total_points DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// TopByMonthPoints retrieves the highest month-to-date earners.
func (r *PointsRepository) TopByMonthPoints(limit int) ([]models.UserPoints, error) {
	var rows []models.UserPoints
	err := r.db.Order("points_this_month DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// CountUsers returns the number of users holding a points row.
func (r *PointsRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&models.UserPoints{}).Count(&count).Error
	return count, err
}

// RankByTotalPoints returns a user's 1-based global rank by total points.
func (r *PointsRepository) RankByTotalPoints(userEmail string) (int64, error) {
	points, err := r.GetByEmail(userEmail)
	if err != nil {
		return 0, err
	}
	if points == nil {
		return 0, nil
	}

	var ahead int64
	err = r.db.Model(&models.UserPoints{}).
		Where("total_points > ?", points.TotalPoints).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

// ResetMonthlyPoints zeroes points_this_month for all users. Run by the
// scheduler at the start of each calendar month.
func (r *PointsRepository) ResetMonthlyPoints() (int64, error) {
	result := r.db.Model(&models.UserPoints{}).
		Where("points_this_month <> 0").
		UpdateColumn("points_this_month", 0)
	return result.RowsAffected, result.Error
}
