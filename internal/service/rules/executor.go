package rules

import (
	"encoding/json"
	"fmt"

	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/service/points"
)

// ruleOutcome accumulates what one firing rule actually did.
type ruleOutcome struct {
	actions       map[string]any
	conditionsMet []string
	pointsAwarded int
	badgeName     string
	badgeIcon     string
	badgePoints   int
	notify        bool
	leveledUp     bool
	newLevel      int
}

// executeActions runs the rule's configured actions against the transaction
// store. Misconfigured actions degrade instead of failing the rule: a
// non-positive points amount and an unresolvable badge id are both skipped.
func (s *Service) executeActions(tx Store, rule *models.GamificationRule, trigger *Trigger) (*ruleOutcome, error) {
	actions, err := rule.ParseActions()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule actions: %w", err)
	}

	outcome := &ruleOutcome{actions: make(map[string]any)}

	if actions.AwardPoints != 0 {
		if actions.AwardPoints < 0 {
			s.log.Warn().
				Str("rule", rule.Name).
				Int("amount", actions.AwardPoints).
				Msg("Rule configures non-positive points award, skipping")
		} else {
			reason := fmt.Sprintf("rule %q", rule.Name)
			ruleID := rule.ID
			applied, err := points.Apply(tx, trigger.UserEmail, actions.AwardPoints, models.SourceRuleExecution, reason, &ruleID)
			if err != nil {
				return nil, err
			}
			outcome.pointsAwarded = actions.AwardPoints
			outcome.actions["points_awarded"] = actions.AwardPoints
			outcome.leveledUp = applied.LeveledUp
			outcome.newLevel = applied.Points.Level
		}
	}

	if actions.AwardBadge != 0 {
		if err := s.executeBadgeAward(tx, rule, trigger, actions.AwardBadge, outcome); err != nil {
			return nil, err
		}
	}

	if actions.SendNotification {
		outcome.notify = true
		outcome.actions["notification_sent"] = true
	}

	return outcome, nil
}

// executeBadgeAward grants the rule's badge. A badge id that no longer
// resolves is skipped silently so stale rules cannot block their other
// actions; a non-repeatable badge the user already holds is likewise skipped.
func (s *Service) executeBadgeAward(tx Store, rule *models.GamificationRule, trigger *Trigger, badgeID uint, outcome *ruleOutcome) error {
	badge, err := tx.GetBadge(badgeID)
	if err != nil {
		return err
	}
	if badge == nil {
		s.log.Warn().
			Str("rule", rule.Name).
			Uint("badge_id", badgeID).
			Msg("Rule references unknown badge, skipping award")
		return nil
	}

	if !badge.Repeatable {
		earned, err := tx.HasUserEarnedBadge(trigger.UserEmail, badgeID)
		if err != nil {
			return err
		}
		if earned {
			return nil
		}
	}

	award := &models.BadgeAward{
		UserEmail:     trigger.UserEmail,
		BadgeID:       badgeID,
		EarnedThrough: models.EarnedThroughRuleExecution,
	}
	if err := tx.CreateBadgeAward(award); err != nil {
		return err
	}

	if badge.PointsValue > 0 {
		reason := fmt.Sprintf("badge %q via rule %q", badge.Name, rule.Name)
		ruleID := rule.ID
		applied, err := points.Apply(tx, trigger.UserEmail, badge.PointsValue, models.SourceBadge, reason, &ruleID)
		if err != nil {
			return err
		}
		outcome.badgePoints = badge.PointsValue
		if applied.LeveledUp {
			outcome.leveledUp = true
			outcome.newLevel = applied.Points.Level
		}
	}

	outcome.badgeName = badge.Name
	outcome.badgeIcon = badge.Icon
	outcome.actions["badge_awarded"] = badge.ID
	return nil
}

// recordExecution writes the audit row for a fired rule. The row shares the
// actions transaction, so a rejected duplicate rolls the awards back with it.
func (s *Service) recordExecution(tx Store, rule *models.GamificationRule, trigger *Trigger, outcome *ruleOutcome) error {
	actionsJSON, err := json.Marshal(outcome.actions)
	if err != nil {
		return err
	}
	conditionsJSON, err := json.Marshal(outcome.conditionsMet)
	if err != nil {
		return err
	}

	return tx.CreateExecution(&models.RuleExecution{
		RuleID:          rule.ID,
		RuleName:        rule.Name,
		UserEmail:       trigger.UserEmail,
		TriggerEntity:   trigger.Entity,
		TriggerEntityID: trigger.EntityID,
		ExecutedAt:      s.now(),
		ActionsExecuted: actionsJSON,
		ConditionsMet:   conditionsJSON,
		Success:         true,
	})
}
