// Package rules implements the gamification rule engine: declarative rules
// evaluated against engagement triggers, with points, badges, and
// notifications as actions.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/intinc/interact-engine/internal/metrics"
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/notifier"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/internal/service/points"
	"github.com/intinc/interact-engine/pkg/logger"
)

// ErrMissingUserEmail rejects triggers without a subject user.
var ErrMissingUserEmail = errors.New("trigger user_email is required")

// Store is the storage surface of the rule engine. It embeds the points
// ledger because award actions run against the same transaction as the
// execution audit row.
type Store interface {
	points.Ledger
	ListActiveRules() ([]models.GamificationRule, error)
	ListExecutions(ruleID uint, userEmail string) ([]models.RuleExecution, error)
	CreateExecution(execution *models.RuleExecution) error
	IncrementRuleExecutionCount(ruleID uint) error
	GetBadge(id uint) (*models.Badge, error)
	HasUserEarnedBadge(userEmail string, badgeID uint) (bool, error)
	CreateBadgeAward(award *models.BadgeAward) error
	FetchEntity(entity string, id *string, userEmail string) (map[string]interface{}, error)
	InTransaction(fn func(tx Store) error) error
}

// Notifier is the slice of the Teams client the engine uses.
type Notifier interface {
	SendRuleTriggered(ctx context.Context, userEmail, ruleName string, points int, badgeName string) error
	SendLevelUp(ctx context.Context, userEmail string, level int) error
	SendBadgeAwarded(ctx context.Context, userEmail, badgeName, icon string) error
}

// Service evaluates and executes gamification rules.
type Service struct {
	store    Store
	notifier Notifier
	locks    *userLocks
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a rule engine over the shared store.
func NewService(store *repository.Store, n *notifier.Client, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(NewStore(store), n, log)
}

// NewServiceWithInterfaces creates a rule engine with interface dependencies (useful for testing).
func NewServiceWithInterfaces(store Store, n Notifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: n,
		locks:    newUserLocks(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FiredRule reports one rule that fired for a trigger.
type FiredRule struct {
	RuleID        uint           `json:"rule_id"`
	RuleName      string         `json:"rule_name"`
	Actions       map[string]any `json:"actions"`
	ConditionsMet []string       `json:"conditions_met"`
}

// Result summarizes one trigger's evaluation.
type Result struct {
	Evaluated int         `json:"evaluated"`
	Fired     []FiredRule `json:"fired"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
}

// Execute evaluates every active rule against the trigger. Each firing rule
// runs its actions and audit row in one transaction; a failing rule rolls its
// own transaction back and the loop continues with the next rule. Redelivered
// entity-scoped triggers hit the execution table's unique index and are
// counted as skips.
func (s *Service) Execute(ctx context.Context, trigger *Trigger) (*Result, error) {
	if trigger.UserEmail == "" {
		return nil, ErrMissingUserEmail
	}

	start := time.Now()
	defer func() {
		prommetrics.ObserveRuleExecutionDuration(time.Since(start))
	}()

	rules, err := s.store.ListActiveRules()
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules: %w", err)
	}

	unlock := s.locks.lock(trigger.UserEmail)
	defer unlock()

	result := &Result{Evaluated: len(rules)}
	for i := range rules {
		rule := &rules[i]
		prommetrics.RecordRuleEvaluated(trigger.Entity)

		outcome, err := s.executeRule(ctx, rule, trigger)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				prommetrics.RecordRuleDuplicateSkip(rule.Name)
				s.log.Debug().
					Str("rule", rule.Name).
					Str("user", trigger.UserEmail).
					Msg("Duplicate trigger, skipping rule")
				result.Skipped++
				continue
			}
			prommetrics.RecordRuleExecutionFailure(rule.Name)
			s.log.Error().Err(err).
				Str("rule", rule.Name).
				Str("user", trigger.UserEmail).
				Msg("Rule execution failed")
			result.Failed++
			continue
		}
		if outcome == nil {
			continue
		}

		prommetrics.RecordRuleFired(rule.Name)
		result.Fired = append(result.Fired, FiredRule{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			Actions:       outcome.actions,
			ConditionsMet: outcome.conditionsMet,
		})
		s.notify(ctx, rule, trigger, outcome)

		s.log.Info().
			Str("rule", rule.Name).
			Str("user", trigger.UserEmail).
			Interface("actions", outcome.actions).
			Msg("Rule fired")
	}

	return result, nil
}

// executeRule evaluates one rule and, when it fires, runs its actions and
// audit row in one transaction. Returns (nil, nil) when the rule did not fire.
func (s *Service) executeRule(_ context.Context, rule *models.GamificationRule, trigger *Trigger) (*ruleOutcome, error) {
	executions, err := s.store.ListExecutions(rule.ID, trigger.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution history: %w", err)
	}

	fire, conditionsMet := s.shouldFire(s.store, rule, trigger, executions, s.now())
	if !fire {
		return nil, nil
	}

	var outcome *ruleOutcome
	err = s.store.InTransaction(func(tx Store) error {
		var err error
		outcome, err = s.executeActions(tx, rule, trigger)
		if err != nil {
			return err
		}
		outcome.conditionsMet = conditionsMet

		if err := s.recordExecution(tx, rule, trigger, outcome); err != nil {
			return err
		}
		return tx.IncrementRuleExecutionCount(rule.ID)
	})
	if err != nil {
		return nil, err
	}

	s.recordMetrics(outcome)
	return outcome, nil
}

func (s *Service) recordMetrics(outcome *ruleOutcome) {
	if outcome.pointsAwarded > 0 {
		prommetrics.RecordPointsAwarded(models.SourceRuleExecution, outcome.pointsAwarded)
	}
	if outcome.badgePoints > 0 {
		prommetrics.RecordPointsAwarded(models.SourceBadge, outcome.badgePoints)
	}
	if outcome.badgeName != "" {
		prommetrics.RecordBadgeAwarded(outcome.badgeName, models.EarnedThroughRuleExecution)
	}
	if outcome.leveledUp {
		prommetrics.RecordLevelUp()
	}
}

// notify emits best-effort notifications after the transaction committed.
func (s *Service) notify(ctx context.Context, rule *models.GamificationRule, trigger *Trigger, outcome *ruleOutcome) {
	if s.notifier == nil || !outcome.notify {
		return
	}

	if err := s.notifier.SendRuleTriggered(ctx, trigger.UserEmail, rule.Name, outcome.pointsAwarded, outcome.badgeName); err != nil {
		s.log.Warn().Err(err).Str("rule", rule.Name).Msg("Failed to send rule notification")
	}
	if outcome.leveledUp {
		if err := s.notifier.SendLevelUp(ctx, trigger.UserEmail, outcome.newLevel); err != nil {
			s.log.Warn().Err(err).Str("user", trigger.UserEmail).Msg("Failed to send level-up notification")
		}
	}
	if outcome.badgeName != "" {
		if err := s.notifier.SendBadgeAwarded(ctx, trigger.UserEmail, outcome.badgeName, outcome.badgeIcon); err != nil {
			s.log.Warn().Err(err).Str("user", trigger.UserEmail).Msg("Failed to send badge notification")
		}
	}
}
