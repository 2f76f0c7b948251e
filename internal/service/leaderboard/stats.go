package leaderboard

import (
	"fmt"

	"github.com/intinc/interact-engine/internal/models"
)

// UserStats is one user's complete gamification standing.
type UserStats struct {
	UserEmail        string                 `json:"user_email"`
	TotalPoints      int                    `json:"total_points"`
	LifetimePoints   int                    `json:"lifetime_points"`
	PointsThisMonth  int                    `json:"points_this_month"`
	Level            int                    `json:"level"`
	PointsToNext     int                    `json:"points_to_next_level"`
	GlobalRank       int64                  `json:"global_rank"`
	TotalUsers       int64                  `json:"total_users"`
	BadgeCount       int64                  `json:"badge_count"`
	Badges           []models.BadgeAward    `json:"badges"`
	RecentExecutions []models.RuleExecution `json:"recent_executions"`
}

const recentExecutionsLimit = 10

// GetUserStats returns a user's points, rank, badges, and recent rule
// activity. Users with no points row yet get zeroed stats at level one.
func (s *Service) GetUserStats(userEmail string) (*UserStats, error) {
	points, err := s.pointsRepo.GetByEmail(userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to get points for %s: %w", userEmail, err)
	}

	stats := &UserStats{UserEmail: userEmail, Level: 1, PointsToNext: models.PointsPerLevel}
	if points != nil {
		stats.TotalPoints = points.TotalPoints
		stats.LifetimePoints = points.LifetimePoints
		stats.PointsThisMonth = points.PointsThisMonth
		stats.Level = points.Level
		stats.PointsToNext = points.Level*models.PointsPerLevel - points.TotalPoints
	}

	stats.TotalUsers, err = s.pointsRepo.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	stats.GlobalRank, err = s.pointsRepo.RankByTotalPoints(userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to rank %s: %w", userEmail, err)
	}

	stats.Badges, err = s.badgeRepo.GetUserAwards(userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges for %s: %w", userEmail, err)
	}
	stats.BadgeCount = int64(len(stats.Badges))

	stats.RecentExecutions, err = s.execRepo.ListByUser(userEmail, recentExecutionsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule history for %s: %w", userEmail, err)
	}

	return stats, nil
}
