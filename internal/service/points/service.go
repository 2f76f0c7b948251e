// Package points maintains per-user point balances, the append-only ledger,
// and level progression.
package points

import (
	"context"
	"errors"
	"fmt"

	prommetrics "github.com/intinc/interact-engine/internal/metrics"
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/notifier"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/pkg/logger"
)

// Errors returned by the award paths.
var (
	// ErrInvalidAmount rejects zero and negative awards. Deductions go through
	// their own entry point if one is ever added; this one only credits.
	ErrInvalidAmount = errors.New("award amount must be positive")

	// ErrAlreadyAwarded marks a participation whose credit flag for the
	// requested award type is already set.
	ErrAlreadyAwarded = errors.New("participation already credited for this award type")

	// ErrParticipationNotFound marks an unknown participation id.
	ErrParticipationNotFound = errors.New("participation not found")

	// ErrUnknownAwardType marks an award type outside the fixed set.
	ErrUnknownAwardType = errors.New("unknown award type")
)

// Ledger is the slice of storage Apply needs. The rule executor passes its own
// transaction-scoped store here.
type Ledger interface {
	GetUserPoints(email string) (*models.UserPoints, error)
	CreateUserPoints(points *models.UserPoints) error
	SaveUserPoints(points *models.UserPoints) error
	AppendLedger(entry *models.PointsLedgerEntry) error
}

// Store is the full storage surface of the points service.
type Store interface {
	Ledger
	GetParticipation(id uint) (*models.Participation, error)
	SaveParticipation(p *models.Participation) error
	InTransaction(fn func(tx Store) error) error
}

// ApplyResult reports what one award changed.
type ApplyResult struct {
	Points    *models.UserPoints
	LeveledUp bool
}

// Apply credits amount to the user's balance and appends a ledger entry. The
// points row is created lazily on first award. Callers provide transactional
// scope; Apply itself does not open one.
func Apply(ledger Ledger, userEmail string, amount int, source, reason string, ruleID *uint) (*ApplyResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	points, err := ledger.GetUserPoints(userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load points for %s: %w", userEmail, err)
	}

	created := false
	if points == nil {
		points = &models.UserPoints{UserEmail: userEmail, Level: 1}
		created = true
	}

	points.TotalPoints += amount
	points.LifetimePoints += amount
	points.PointsThisMonth += amount

	switch source {
	case models.SourceAttendance:
		points.EventsAttended++
	case models.SourceActivityCompletion:
		points.ActivitiesCompleted++
	case models.SourceFeedback:
		points.FeedbackSubmitted++
	}

	newLevel := models.LevelForPoints(points.TotalPoints)
	leveledUp := newLevel > points.Level
	points.Level = newLevel

	if created {
		err = ledger.CreateUserPoints(points)
	} else {
		err = ledger.SaveUserPoints(points)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist points for %s: %w", userEmail, err)
	}

	entry := &models.PointsLedgerEntry{
		UserEmail: userEmail,
		Amount:    amount,
		Source:    source,
		Reason:    reason,
		RuleID:    ruleID,
	}
	if err := ledger.AppendLedger(entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry for %s: %w", userEmail, err)
	}

	return &ApplyResult{Points: points, LeveledUp: leveledUp}, nil
}

// Award types accepted by the direct award path. Each maps to a fixed amount.
// Attendance additionally earns the high-engagement bonus when the
// participation's engagement score is 4 or higher.
const (
	AwardAttendance         = "attendance"
	AwardActivityCompletion = "activity_completion"
	AwardFeedback           = "feedback"
)

const (
	highEngagementMinScore = 4.0
	highEngagementBonus    = 5
)

var awardAmounts = map[string]int{
	AwardAttendance:         10,
	AwardActivityCompletion: 15,
	AwardFeedback:           5,
}

// Notifier is the slice of the Teams client the service uses.
type Notifier interface {
	SendLevelUp(ctx context.Context, userEmail string, level int) error
}

// Service exposes the direct award entry points outside rule execution.
type Service struct {
	store    Store
	notifier Notifier
	log      *logger.Logger
}

// NewService creates a points service over the shared store.
func NewService(store *repository.Store, n *notifier.Client, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(NewStore(store), n, log)
}

// NewServiceWithInterfaces creates a points service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(store Store, n Notifier, log *logger.Logger) *Service {
	return &Service{store: store, notifier: n, log: log}
}

// Adjust credits points outside any participation, typically an administrative
// adjustment. Amount must be positive.
func (s *Service) Adjust(ctx context.Context, userEmail string, amount int, reason string) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.store.InTransaction(func(tx Store) error {
		var err error
		result, err = Apply(tx, userEmail, amount, models.SourceManualAdjustment, reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	prommetrics.RecordPointsAwarded(models.SourceManualAdjustment, amount)
	s.afterAward(ctx, userEmail, result)

	s.log.Info().
		Str("user", userEmail).
		Int("amount", amount).
		Str("reason", reason).
		Msg("Points adjusted")
	return result, nil
}

// AwardForParticipation credits the fixed amount for one award type against
// one participation. Each participation can be credited once per award type;
// repeat calls return ErrAlreadyAwarded.
func (s *Service) AwardForParticipation(ctx context.Context, participationID uint, awardType string) (*ApplyResult, error) {
	amount, ok := awardAmounts[awardType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAwardType, awardType)
	}

	var result *ApplyResult
	var userEmail string
	bonus := 0
	err := s.store.InTransaction(func(tx Store) error {
		p, err := tx.GetParticipation(participationID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: id %d", ErrParticipationNotFound, participationID)
		}
		userEmail = p.UserEmail

		if err := markAwarded(p, awardType); err != nil {
			return err
		}

		reason := fmt.Sprintf("%s for participation %d", awardType, participationID)
		result, err = Apply(tx, p.UserEmail, amount, awardType, reason, nil)
		if err != nil {
			return err
		}

		if awardType == AwardAttendance && p.EngagementScore != nil && *p.EngagementScore >= highEngagementMinScore {
			bonus = highEngagementBonus
			reason := fmt.Sprintf("high engagement for participation %d", participationID)
			result, err = Apply(tx, p.UserEmail, bonus, models.SourceHighEngagement, reason, nil)
			if err != nil {
				return err
			}
		}
		return tx.SaveParticipation(p)
	})
	if err != nil {
		return nil, err
	}

	prommetrics.RecordPointsAwarded(awardType, amount)
	if bonus > 0 {
		prommetrics.RecordPointsAwarded(models.SourceHighEngagement, bonus)
	}
	s.afterAward(ctx, userEmail, result)

	s.log.Info().
		Str("user", userEmail).
		Uint("participation_id", participationID).
		Str("award_type", awardType).
		Int("amount", amount).
		Msg("Participation points awarded")
	return result, nil
}

// markAwarded flips the participation's credit flag for the award type, or
// fails when it is already set.
func markAwarded(p *models.Participation, awardType string) error {
	switch awardType {
	case AwardAttendance:
		if p.PointsAwarded {
			return ErrAlreadyAwarded
		}
		p.PointsAwarded = true
	case AwardActivityCompletion:
		if p.ActivityCompleted {
			return ErrAlreadyAwarded
		}
		p.ActivityCompleted = true
	case AwardFeedback:
		if p.FeedbackSubmitted {
			return ErrAlreadyAwarded
		}
		p.FeedbackSubmitted = true
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAwardType, awardType)
	}
	return nil
}

// afterAward emits post-commit side effects. Notification failures are logged
// and swallowed; the award already happened.
func (s *Service) afterAward(ctx context.Context, userEmail string, result *ApplyResult) {
	if !result.LeveledUp {
		return
	}
	prommetrics.RecordLevelUp()
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendLevelUp(ctx, userEmail, result.Points.Level); err != nil {
		s.log.Warn().Err(err).Str("user", userEmail).Msg("Failed to send level-up notification")
	}
}
