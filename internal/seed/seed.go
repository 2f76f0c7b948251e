// Package seed loads the default badge and rule catalog from a YAML file and
// upserts it into the database. Seeding is idempotent: records are matched by
// name, so rerunning it updates definitions without duplicating them.
package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/pkg/logger"
)

// BadgeSeed is one badge definition in the seed file.
type BadgeSeed struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Icon              string `yaml:"icon"`
	PointsValue       int    `yaml:"points_value"`
	Repeatable        bool   `yaml:"repeatable"`
	IsManualAward     bool   `yaml:"is_manual_award"`
	CriteriaType      string `yaml:"criteria_type"`
	CriteriaThreshold int    `yaml:"criteria_threshold"`
}

// ConditionSeed is one rule condition in the seed file.
type ConditionSeed struct {
	Entity   string      `yaml:"entity" json:"entity"`
	Field    string      `yaml:"field" json:"field"`
	Operator string      `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value" json:"value,omitempty"`
}

// ActionsSeed is the action block of a seeded rule.
type ActionsSeed struct {
	AwardPoints      int    `yaml:"award_points" json:"award_points,omitempty"`
	AwardBadge       string `yaml:"award_badge" json:"-"`
	SendNotification bool   `yaml:"send_notification" json:"send_notification,omitempty"`
}

// RuleSeed is one rule definition in the seed file. AwardBadge references the
// badge by name; it is resolved to an id during apply.
type RuleSeed struct {
	Name                string          `yaml:"name"`
	Description         string          `yaml:"description"`
	Logic               string          `yaml:"logic"`
	Conditions          []ConditionSeed `yaml:"conditions"`
	Actions             ActionsSeed     `yaml:"actions"`
	CooldownHours       *int            `yaml:"cooldown_hours"`
	MaxTriggersPerMonth *int            `yaml:"max_triggers_per_month"`
	IsActive            *bool           `yaml:"is_active"`
}

// File is the top-level seed document.
type File struct {
	Badges []BadgeSeed `yaml:"badges"`
	Rules  []RuleSeed  `yaml:"rules"`
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	for i := range f.Badges {
		if f.Badges[i].Name == "" {
			return fmt.Errorf("badge %d: name is required", i)
		}
	}
	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		switch r.Logic {
		case "", models.LogicAND, models.LogicOR:
		default:
			return fmt.Errorf("rule %q: unknown logic %q", r.Name, r.Logic)
		}
		for j := range r.Conditions {
			c := &r.Conditions[j]
			if c.Entity == "" || c.Field == "" || c.Operator == "" {
				return fmt.Errorf("rule %q condition %d: entity, field and operator are required", r.Name, j)
			}
		}
	}
	return nil
}

// Apply upserts the seed catalog. Badges go first so rules can reference them
// by name.
func Apply(f *File, store *repository.Store, log *logger.Logger) error {
	badgeIDs := make(map[string]uint, len(f.Badges))

	for i := range f.Badges {
		id, err := applyBadge(&f.Badges[i], store)
		if err != nil {
			return fmt.Errorf("failed to seed badge %q: %w", f.Badges[i].Name, err)
		}
		badgeIDs[f.Badges[i].Name] = id
	}

	for i := range f.Rules {
		if err := applyRule(&f.Rules[i], store, badgeIDs); err != nil {
			return fmt.Errorf("failed to seed rule %q: %w", f.Rules[i].Name, err)
		}
	}

	log.Info().
		Int("badges", len(f.Badges)).
		Int("rules", len(f.Rules)).
		Msg("Seed catalog applied")
	return nil
}

func applyBadge(s *BadgeSeed, store *repository.Store) (uint, error) {
	badge := &models.Badge{
		Name:              s.Name,
		Description:       s.Description,
		Icon:              s.Icon,
		PointsValue:       s.PointsValue,
		Repeatable:        s.Repeatable,
		IsManualAward:     s.IsManualAward,
		CriteriaType:      s.CriteriaType,
		CriteriaThreshold: s.CriteriaThreshold,
	}

	existing, err := store.Badges.GetByName(s.Name)
	switch {
	case err == nil:
		badge.ID = existing.ID
		badge.CreatedAt = existing.CreatedAt
		return badge.ID, store.Badges.Update(badge)
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := store.Badges.Create(badge); err != nil {
			return 0, err
		}
		return badge.ID, nil
	default:
		return 0, err
	}
}

func applyRule(s *RuleSeed, store *repository.Store, badgeIDs map[string]uint) error {
	conditions, err := json.Marshal(s.Conditions)
	if err != nil {
		return err
	}

	actions := models.RuleActions{
		AwardPoints:      s.Actions.AwardPoints,
		SendNotification: s.Actions.SendNotification,
	}
	if s.Actions.AwardBadge != "" {
		id, ok := badgeIDs[s.Actions.AwardBadge]
		if !ok {
			badge, err := store.Badges.GetByName(s.Actions.AwardBadge)
			if err != nil || badge == nil {
				return fmt.Errorf("action references unknown badge %q", s.Actions.AwardBadge)
			}
			id = badge.ID
		}
		actions.AwardBadge = id
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return err
	}

	logic := s.Logic
	if logic == "" {
		logic = models.LogicAND
	}
	active := true
	if s.IsActive != nil {
		active = *s.IsActive
	}

	rule := &models.GamificationRule{
		Name:                s.Name,
		Description:         s.Description,
		Conditions:          conditions,
		Logic:               logic,
		Actions:             actionsJSON,
		CooldownHours:       s.CooldownHours,
		MaxTriggersPerMonth: s.MaxTriggersPerMonth,
		IsActive:            active,
	}

	existing, err := store.Rules.GetByName(s.Name)
	switch {
	case err == nil:
		rule.ID = existing.ID
		rule.ExecutionCount = existing.ExecutionCount
		rule.CreatedAt = existing.CreatedAt
		return store.Rules.Update(rule)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.Rules.Create(rule)
	default:
		return err
	}
}
