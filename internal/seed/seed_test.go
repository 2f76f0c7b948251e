package seed

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/pkg/logger"
)

const testSeed = `
badges:
  - name: Event Regular
    description: Attended 5 events
    icon: "🎪"
    points_value: 20
    criteria_type: events_attended
    criteria_threshold: 5
  - name: Team Spirit
    description: Awarded by HR for exceptional contributions
    icon: "🏆"
    is_manual_award: true
rules:
  - name: attendance-bonus
    description: Reward confirmed attendance
    logic: AND
    conditions:
      - entity: participation
        field: attended
        operator: equals
        value: true
    actions:
      award_points: 10
      send_notification: true
    cooldown_hours: 24
  - name: event-regular-grant
    logic: AND
    conditions:
      - entity: user_points
        field: events_attended
        operator: gte
        value: 5
    actions:
      award_badge: Event Regular
`

func setupTestStore(t *testing.T) *repository.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.Badge{}, &models.GamificationRule{}); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return repository.NewStore(&repository.DB{DB: db})
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(testSeed))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Badges) != 2 {
		t.Errorf("Expected 2 badges, got %d", len(f.Badges))
	}
	if len(f.Rules) != 2 {
		t.Errorf("Expected 2 rules, got %d", len(f.Rules))
	}
	if f.Rules[1].Actions.AwardBadge != "Event Regular" {
		t.Errorf("Expected badge action reference, got %q", f.Rules[1].Actions.AwardBadge)
	}
}

func TestParseRejectsUnknownLogic(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - name: bad\n    logic: XOR\n"))
	if err == nil {
		t.Fatal("Expected error for unknown logic")
	}
}

func TestParseRejectsIncompleteCondition(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - name: bad\n    conditions:\n      - entity: participation\n"))
	if err == nil {
		t.Fatal("Expected error for incomplete condition")
	}
}

func TestApply(t *testing.T) {
	f, err := Parse([]byte(testSeed))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	store := setupTestStore(t)
	log := logger.New("error", "console", "")

	if err := Apply(f, store, log); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	badges, err := store.Badges.GetAll()
	if err != nil {
		t.Fatalf("GetAll badges failed: %v", err)
	}
	if len(badges) != 2 {
		t.Fatalf("Expected 2 badges, got %d", len(badges))
	}

	rules, err := store.Rules.List()
	if err != nil {
		t.Fatalf("List rules failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(rules))
	}

	// Badge action reference resolved to the badge id.
	grant, err := store.Rules.GetByName("event-regular-grant")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	actions, err := grant.ParseActions()
	if err != nil {
		t.Fatalf("ParseActions failed: %v", err)
	}
	regular, err := store.Badges.GetByName("Event Regular")
	if err != nil {
		t.Fatalf("GetByName badge failed: %v", err)
	}
	if actions.AwardBadge != regular.ID {
		t.Errorf("Expected award_badge %d, got %d", regular.ID, actions.AwardBadge)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	f, err := Parse([]byte(testSeed))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	store := setupTestStore(t)
	log := logger.New("error", "console", "")

	if err := Apply(f, store, log); err != nil {
		t.Fatalf("First apply failed: %v", err)
	}

	// Bump an execution count to prove reapply preserves it.
	rule, err := store.Rules.GetByName("attendance-bonus")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if err := store.Rules.IncrementExecutionCount(rule.ID); err != nil {
		t.Fatalf("IncrementExecutionCount failed: %v", err)
	}

	f.Rules[0].Description = "updated description"
	if err := Apply(f, store, log); err != nil {
		t.Fatalf("Second apply failed: %v", err)
	}

	badges, _ := store.Badges.GetAll()
	if len(badges) != 2 {
		t.Errorf("Expected 2 badges after reapply, got %d", len(badges))
	}
	rules, _ := store.Rules.List()
	if len(rules) != 2 {
		t.Errorf("Expected 2 rules after reapply, got %d", len(rules))
	}

	updated, err := store.Rules.GetByName("attendance-bonus")
	if err != nil {
		t.Fatalf("GetByName after reapply failed: %v", err)
	}
	if updated.Description != "updated description" {
		t.Errorf("Expected updated description, got %q", updated.Description)
	}
	if updated.ExecutionCount != 1 {
		t.Errorf("Expected execution count preserved at 1, got %d", updated.ExecutionCount)
	}
}
