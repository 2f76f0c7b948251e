// Package badges provides badge evaluation, awarding, and catalog services.
package badges

import (
	"context"
	"errors"
	"fmt"

	prommetrics "github.com/intinc/interact-engine/internal/metrics"
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/notifier"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/internal/service/points"
	"github.com/intinc/interact-engine/pkg/logger"
)

// Errors returned by the award paths.
var (
	ErrBadgeNotFound  = errors.New("badge not found")
	ErrAlreadyHolding = errors.New("user already holds this badge")
)

// Store is the storage surface of the badge service. It embeds the points
// ledger because awarding a badge credits its points value in the same
// transaction.
type Store interface {
	points.Ledger
	ListBadges() ([]models.Badge, error)
	GetBadge(id uint) (*models.Badge, error)
	HasUserEarnedBadge(userEmail string, badgeID uint) (bool, error)
	CreateBadgeAward(award *models.BadgeAward) error
	GetUserAwards(userEmail string) ([]models.BadgeAward, error)
	GetHoldersCount(badgeID uint) (int64, error)
	InTransaction(fn func(tx Store) error) error
}

// Notifier is the slice of the Teams client the service uses.
type Notifier interface {
	SendBadgeAwarded(ctx context.Context, userEmail, badgeName, icon string) error
}

// Service evaluates threshold badges and handles manual awards.
type Service struct {
	store    Store
	notifier Notifier
	log      *logger.Logger
}

// NewService creates a badge service over the shared store.
func NewService(store *repository.Store, n *notifier.Client, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(NewStore(store), n, log)
}

// NewServiceWithInterfaces creates a badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(store Store, n Notifier, log *logger.Logger) *Service {
	return &Service{store: store, notifier: n, log: log}
}

// EvaluateUser checks every automatic badge against the user's counters and
// awards the ones whose threshold is now met. Returns the number of badges
// awarded. Badges the user already holds are never re-awarded here; the
// counters only grow, so a repeat award would fire on every evaluation.
func (s *Service) EvaluateUser(ctx context.Context, userEmail string) (int, error) {
	userPoints, err := s.store.GetUserPoints(userEmail)
	if err != nil {
		return 0, fmt.Errorf("failed to load points for %s: %w", userEmail, err)
	}
	if userPoints == nil {
		return 0, nil
	}

	badges, err := s.store.ListBadges()
	if err != nil {
		return 0, fmt.Errorf("failed to list badges: %w", err)
	}

	awarded := 0
	for i := range badges {
		badge := &badges[i]
		if badge.IsManualAward || badge.CriteriaType == "" {
			continue
		}

		value, ok := counterFor(userPoints, badge.CriteriaType)
		if !ok {
			s.log.Warn().
				Str("badge", badge.Name).
				Str("criteria_type", badge.CriteriaType).
				Msg("Unknown badge criteria type, skipping")
			continue
		}
		if value < badge.CriteriaThreshold {
			continue
		}

		earned, err := s.store.HasUserEarnedBadge(userEmail, badge.ID)
		if err != nil {
			s.log.Error().Err(err).Str("badge", badge.Name).Msg("Failed to check badge holding")
			continue
		}
		if earned {
			continue
		}

		if err := s.award(ctx, userEmail, badge, models.EarnedThroughAutomatic); err != nil {
			s.log.Error().Err(err).Str("badge", badge.Name).Str("user", userEmail).Msg("Failed to award badge")
			continue
		}
		awarded++
	}

	return awarded, nil
}

// AwardManual grants a badge outside any criteria. Non-repeatable badges
// cannot be granted twice to the same user.
func (s *Service) AwardManual(ctx context.Context, userEmail string, badgeID uint) error {
	badge, err := s.store.GetBadge(badgeID)
	if err != nil {
		return fmt.Errorf("failed to load badge %d: %w", badgeID, err)
	}
	if badge == nil {
		return fmt.Errorf("%w: id %d", ErrBadgeNotFound, badgeID)
	}

	if !badge.Repeatable {
		earned, err := s.store.HasUserEarnedBadge(userEmail, badgeID)
		if err != nil {
			return err
		}
		if earned {
			return fmt.Errorf("%w: %s", ErrAlreadyHolding, badge.Name)
		}
	}

	return s.award(ctx, userEmail, badge, models.EarnedThroughManual)
}

// award writes the grant and credits the badge's points value atomically,
// then emits notification and metrics.
func (s *Service) award(ctx context.Context, userEmail string, badge *models.Badge, earnedThrough string) error {
	err := s.store.InTransaction(func(tx Store) error {
		award := &models.BadgeAward{
			UserEmail:     userEmail,
			BadgeID:       badge.ID,
			EarnedThrough: earnedThrough,
		}
		if err := tx.CreateBadgeAward(award); err != nil {
			return err
		}
		if badge.PointsValue > 0 {
			reason := fmt.Sprintf("badge %q", badge.Name)
			if _, err := points.Apply(tx, userEmail, badge.PointsValue, models.SourceBadge, reason, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	prommetrics.RecordBadgeAwarded(badge.Name, earnedThrough)
	if badge.PointsValue > 0 {
		prommetrics.RecordPointsAwarded(models.SourceBadge, badge.PointsValue)
	}
	if count, err := s.store.GetHoldersCount(badge.ID); err == nil {
		prommetrics.SetActiveBadgeHolders(badge.Name, count)
	}

	if s.notifier != nil {
		if err := s.notifier.SendBadgeAwarded(ctx, userEmail, badge.Name, badge.Icon); err != nil {
			s.log.Warn().Err(err).Str("badge", badge.Name).Msg("Failed to send badge notification")
		}
	}

	s.log.Info().
		Str("user", userEmail).
		Str("badge", badge.Name).
		Str("earned_through", earnedThrough).
		Msg("Badge awarded")
	return nil
}

// counterFor maps a criteria type to the matching counter on the points row.
func counterFor(p *models.UserPoints, criteriaType string) (int, bool) {
	switch criteriaType {
	case models.CriteriaEventsAttended:
		return p.EventsAttended, true
	case models.CriteriaActivitiesCompleted:
		return p.ActivitiesCompleted, true
	case models.CriteriaFeedbackSubmitted:
		return p.FeedbackSubmitted, true
	case models.CriteriaPointsTotal:
		return p.TotalPoints, true
	default:
		return 0, false
	}
}

// ListCatalog returns every badge with its distinct holder count.
func (s *Service) ListCatalog() ([]CatalogEntry, error) {
	badges, err := s.store.ListBadges()
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(badges))
	for i := range badges {
		count, err := s.store.GetHoldersCount(badges[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count holders of %s: %w", badges[i].Name, err)
		}
		entries = append(entries, CatalogEntry{Badge: badges[i], Holders: count})
	}
	return entries, nil
}

// CatalogEntry is one badge with its holder count.
type CatalogEntry struct {
	Badge   models.Badge `json:"badge"`
	Holders int64        `json:"holders"`
}

// UserBadges returns the awards a user has earned, most recent first.
func (s *Service) UserBadges(userEmail string) ([]models.BadgeAward, error) {
	return s.store.GetUserAwards(userEmail)
}
