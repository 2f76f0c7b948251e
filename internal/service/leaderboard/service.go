// Package leaderboard provides leaderboard and user statistics services.
package leaderboard

import (
	"fmt"

	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/pkg/logger"
)

// PointsRepository interface for points operations.
type PointsRepository interface {
	GetByEmail(userEmail string) (*models.UserPoints, error)
	TopByTotalPoints(limit int) ([]models.UserPoints, error)
	TopByMonthPoints(limit int) ([]models.UserPoints, error)
	CountUsers() (int64, error)
	RankByTotalPoints(userEmail string) (int64, error)
}

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetUserBadgeCount(userEmail string) (int64, error)
	GetUserAwards(userEmail string) ([]models.BadgeAward, error)
}

// ExecutionRepository interface for rule execution history.
type ExecutionRepository interface {
	ListByUser(userEmail string, limit int) ([]models.RuleExecution, error)
}

// Entry is a single leaderboard row.
type Entry struct {
	Rank       int    `json:"rank"`
	UserEmail  string `json:"user_email"`
	Points     int    `json:"points"`
	Level      int    `json:"level"`
	BadgeCount int64  `json:"badge_count"`
}

// Period selects which points column a leaderboard ranks by.
const (
	PeriodAllTime = "all_time"
	PeriodMonth   = "month"
)

const defaultLimit = 10

// Service builds leaderboards and per-user statistics.
type Service struct {
	pointsRepo PointsRepository
	badgeRepo  BadgeRepository
	execRepo   ExecutionRepository
	log        *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	pointsRepo *repository.PointsRepository,
	badgeRepo *repository.BadgeRepository,
	execRepo *repository.ExecutionRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		pointsRepo: pointsRepo,
		badgeRepo:  badgeRepo,
		execRepo:   execRepo,
		log:        log,
	}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	pointsRepo PointsRepository,
	badgeRepo BadgeRepository,
	execRepo ExecutionRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		pointsRepo: pointsRepo,
		badgeRepo:  badgeRepo,
		execRepo:   execRepo,
		log:        log,
	}
}

// GetLeaderboard returns the top earners for a period, all-time by default.
func (s *Service) GetLeaderboard(period string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	var rows []models.UserPoints
	var err error
	switch period {
	case PeriodMonth:
		rows, err = s.pointsRepo.TopByMonthPoints(limit)
	case PeriodAllTime, "":
		rows, err = s.pointsRepo.TopByTotalPoints(limit)
	default:
		return nil, fmt.Errorf("unknown leaderboard period %q", period)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		points := rows[i].TotalPoints
		if period == PeriodMonth {
			points = rows[i].PointsThisMonth
		}

		badgeCount, err := s.badgeRepo.GetUserBadgeCount(rows[i].UserEmail)
		if err != nil {
			s.log.Warn().Err(err).Str("user", rows[i].UserEmail).Msg("Failed to count badges for leaderboard")
		}

		entries = append(entries, Entry{
			Rank:       i + 1,
			UserEmail:  rows[i].UserEmail,
			Points:     points,
			Level:      rows[i].Level,
			BadgeCount: badgeCount,
		})
	}
	return entries, nil
}
