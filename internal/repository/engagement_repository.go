package repository

import (
	"errors"

	"github.com/intinc/interact-engine/internal/models"
	"gorm.io/gorm"
)

// EngagementRepository handles lookups against the engagement entities that
// rule conditions may reference. All getters return (nil, nil) on not-found;
// the condition evaluator treats a missing record as condition-not-satisfied.
type EngagementRepository struct {
	db *DB
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(db *DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

func notFoundToNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// GetParticipationByID retrieves one participation record.
func (r *EngagementRepository) GetParticipationByID(id uint) (*models.Participation, error) {
	var row models.Participation
	if err := r.db.First(&row, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// GetParticipationByUser retrieves a user's most recent participation.
func (r *EngagementRepository) GetParticipationByUser(userEmail string) (*models.Participation, error) {
	var row models.Participation
	err := r.db.Where("user_email = ?", userEmail).Order("created_at DESC").First(&row).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// UpdateParticipation persists an updated participation record.
func (r *EngagementRepository) UpdateParticipation(row *models.Participation) error {
	return r.db.Save(row).Error
}

// GetRecognitionByID retrieves one recognition record.
func (r *EngagementRepository) GetRecognitionByID(id uint) (*models.Recognition, error) {
	var row models.Recognition
	if err := r.db.First(&row, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// GetRecognitionByUser retrieves a user's most recent received recognition.
func (r *EngagementRepository) GetRecognitionByUser(userEmail string) (*models.Recognition, error) {
	var row models.Recognition
	err := r.db.Where("user_email = ?", userEmail).Order("created_at DESC").First(&row).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// GetChallengeProgressByID retrieves one challenge progress record.
func (r *EngagementRepository) GetChallengeProgressByID(id uint) (*models.ChallengeProgress, error) {
	var row models.ChallengeProgress
	if err := r.db.First(&row, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// GetChallengeProgressByUser retrieves a user's most recent challenge progress.
func (r *EngagementRepository) GetChallengeProgressByUser(userEmail string) (*models.ChallengeProgress, error) {
	var row models.ChallengeProgress
	err := r.db.Where("user_email = ?", userEmail).Order("updated_at DESC").First(&row).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// GetSurveyResponseByID retrieves one survey response.
func (r *EngagementRepository) GetSurveyResponseByID(id uint) (*models.SurveyResponse, error) {
	var row models.SurveyResponse
	if err := r.db.First(&row, id).Error; err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}

// GetSurveyResponseByUser retrieves a user's most recent survey response.
func (r *EngagementRepository) GetSurveyResponseByUser(userEmail string) (*models.SurveyResponse, error) {
	var row models.SurveyResponse
	err := r.db.Where("user_email = ?", userEmail).Order("submitted_at DESC").First(&row).Error
	if err != nil {
		return nil, notFoundToNil(err)
	}
	return &row, nil
}
