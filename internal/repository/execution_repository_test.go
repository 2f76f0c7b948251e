package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/intinc/interact-engine/internal/models"
)

// setupExecutionTestDB creates an in-memory SQLite database for testing.
func setupExecutionTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	if err := db.AutoMigrate(&models.RuleExecution{}); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

func strPtr(s string) *string {
	return &s
}

func TestExecutionCreateAndList(t *testing.T) {
	repo := NewExecutionRepository(setupExecutionTestDB(t))

	base := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	rows := []models.RuleExecution{
		{RuleID: 1, UserEmail: "alice@corp.test", TriggerEntityID: strPtr("7"), ExecutedAt: base, Success: true},
		{RuleID: 1, UserEmail: "alice@corp.test", TriggerEntityID: strPtr("8"), ExecutedAt: base.Add(time.Hour), Success: true},
		{RuleID: 2, UserEmail: "alice@corp.test", TriggerEntityID: strPtr("7"), ExecutedAt: base, Success: true},
		{RuleID: 1, UserEmail: "bob@corp.test", TriggerEntityID: strPtr("7"), ExecutedAt: base, Success: true},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	list, err := repo.ListByRuleAndUser(1, "alice@corp.test")
	if err != nil {
		t.Fatalf("ListByRuleAndUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 executions, got %d", len(list))
	}
	// Most recent first.
	if *list[0].TriggerEntityID != "8" {
		t.Errorf("Expected most recent execution first, got entity id %s", *list[0].TriggerEntityID)
	}
}

func TestExecutionDuplicateTriggerRejected(t *testing.T) {
	repo := NewExecutionRepository(setupExecutionTestDB(t))

	first := &models.RuleExecution{
		RuleID:          1,
		UserEmail:       "alice@corp.test",
		TriggerEntityID: strPtr("7"),
		ExecutedAt:      time.Now().UTC(),
		Success:         true,
	}
	if err := repo.Create(first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	dup := &models.RuleExecution{
		RuleID:          1,
		UserEmail:       "alice@corp.test",
		TriggerEntityID: strPtr("7"),
		ExecutedAt:      time.Now().UTC(),
		Success:         true,
	}
	err := repo.Create(dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestExecutionUserLevelTriggersRepeat(t *testing.T) {
	repo := NewExecutionRepository(setupExecutionTestDB(t))

	// NULL trigger entity ids do not collide in the unique index.
	for i := 0; i < 2; i++ {
		row := &models.RuleExecution{
			RuleID:     1,
			UserEmail:  "alice@corp.test",
			ExecutedAt: time.Now().UTC(),
			Success:    true,
		}
		if err := repo.Create(row); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	list, err := repo.ListByRuleAndUser(1, "alice@corp.test")
	if err != nil {
		t.Fatalf("ListByRuleAndUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 executions, got %d", len(list))
	}
}

func TestExecutionListByUserLimit(t *testing.T) {
	repo := NewExecutionRepository(setupExecutionTestDB(t))

	base := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		row := &models.RuleExecution{
			RuleID:     uint(i + 1),
			UserEmail:  "alice@corp.test",
			ExecutedAt: base.Add(time.Duration(i) * time.Hour),
			Success:    true,
		}
		if err := repo.Create(row); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	list, err := repo.ListByUser("alice@corp.test", 3)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 executions, got %d", len(list))
	}
	if list[0].RuleID != 5 {
		t.Errorf("Expected most recent execution first, got rule %d", list[0].RuleID)
	}
}

func TestExecutionListSince(t *testing.T) {
	repo := NewExecutionRepository(setupExecutionTestDB(t))

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	old := &models.RuleExecution{RuleID: 1, UserEmail: "alice@corp.test", ExecutedAt: base.Add(-time.Hour), Success: true}
	recent := &models.RuleExecution{RuleID: 2, UserEmail: "alice@corp.test", ExecutedAt: base.Add(time.Hour), Success: true}
	if err := repo.Create(old); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(recent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, err := repo.ListSince(base)
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(list) != 1 || list[0].RuleID != 2 {
		t.Errorf("Expected only the recent execution, got %+v", list)
	}
}
