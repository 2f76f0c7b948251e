package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/intinc/interact-engine/internal/models"
)

// setupBadgeTestDB creates an in-memory SQLite database for testing.
func setupBadgeTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(&models.Badge{}, &models.BadgeAward{}); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestBadge creates a test badge in the database.
func createTestBadge(t *testing.T, repo *BadgeRepository, name string, pointsValue int) *models.Badge {
	t.Helper()

	badge := &models.Badge{
		Name:              name,
		Description:       "test badge",
		Icon:              "🎖️",
		PointsValue:       pointsValue,
		CriteriaType:      models.CriteriaEventsAttended,
		CriteriaThreshold: 5,
	}
	if err := repo.Create(badge); err != nil {
		t.Fatalf("Failed to create test badge: %v", err)
	}
	return badge
}

func TestBadgeGetByIDMissing(t *testing.T) {
	repo := NewBadgeRepository(setupBadgeTestDB(t))

	badge, err := repo.GetByID(99)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if badge != nil {
		t.Errorf("Expected nil for missing badge, got %+v", badge)
	}
}

func TestBadgeCreateAward(t *testing.T) {
	repo := NewBadgeRepository(setupBadgeTestDB(t))
	badge := createTestBadge(t, repo, "Event Regular", 20)

	award := &models.BadgeAward{
		UserEmail:     "alice@corp.test",
		BadgeID:       badge.ID,
		EarnedThrough: models.EarnedThroughAutomatic,
	}
	if err := repo.CreateAward(award); err != nil {
		t.Fatalf("CreateAward failed: %v", err)
	}
	if award.AwardedAt.IsZero() {
		t.Error("Expected AwardedAt to be stamped")
	}

	earned, err := repo.HasUserEarnedBadge("alice@corp.test", badge.ID)
	if err != nil {
		t.Fatalf("HasUserEarnedBadge failed: %v", err)
	}
	if !earned {
		t.Error("Expected badge to be earned")
	}

	earned, err = repo.HasUserEarnedBadge("bob@corp.test", badge.ID)
	if err != nil {
		t.Fatalf("HasUserEarnedBadge failed: %v", err)
	}
	if earned {
		t.Error("Expected badge not earned by other user")
	}
}

func TestBadgeGetUserAwardsPreloadsBadge(t *testing.T) {
	repo := NewBadgeRepository(setupBadgeTestDB(t))
	badge := createTestBadge(t, repo, "Event Regular", 20)

	award := &models.BadgeAward{
		UserEmail:     "alice@corp.test",
		BadgeID:       badge.ID,
		EarnedThrough: models.EarnedThroughManual,
	}
	if err := repo.CreateAward(award); err != nil {
		t.Fatalf("CreateAward failed: %v", err)
	}

	awards, err := repo.GetUserAwards("alice@corp.test")
	if err != nil {
		t.Fatalf("GetUserAwards failed: %v", err)
	}
	if len(awards) != 1 {
		t.Fatalf("Expected 1 award, got %d", len(awards))
	}
	if awards[0].Badge.Name != "Event Regular" {
		t.Errorf("Expected badge details preloaded, got %+v", awards[0].Badge)
	}
	if awards[0].EarnedThrough != models.EarnedThroughManual {
		t.Errorf("Expected manual provenance, got %s", awards[0].EarnedThrough)
	}
}

func TestBadgeHolders(t *testing.T) {
	repo := NewBadgeRepository(setupBadgeTestDB(t))
	badge := createTestBadge(t, repo, "Monthly Star", 0)

	// alice holds it twice (repeatable), bob once.
	for _, email := range []string{"alice@corp.test", "alice@corp.test", "bob@corp.test"} {
		award := &models.BadgeAward{
			UserEmail:     email,
			BadgeID:       badge.ID,
			EarnedThrough: models.EarnedThroughManual,
		}
		if err := repo.CreateAward(award); err != nil {
			t.Fatalf("CreateAward failed: %v", err)
		}
	}

	holders, err := repo.GetHolders(badge.ID)
	if err != nil {
		t.Fatalf("GetHolders failed: %v", err)
	}
	if len(holders) != 2 {
		t.Errorf("Expected 2 distinct holders, got %d", len(holders))
	}

	count, err := repo.GetHoldersCount(badge.ID)
	if err != nil {
		t.Fatalf("GetHoldersCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected holder count 2, got %d", count)
	}

	badgeCount, err := repo.GetUserBadgeCount("alice@corp.test")
	if err != nil {
		t.Fatalf("GetUserBadgeCount failed: %v", err)
	}
	if badgeCount != 2 {
		t.Errorf("Expected alice to hold 2 awards, got %d", badgeCount)
	}
}

func TestBadgeDuplicateNameRejected(t *testing.T) {
	repo := NewBadgeRepository(setupBadgeTestDB(t))
	createTestBadge(t, repo, "Event Regular", 20)

	err := repo.Create(&models.Badge{Name: "Event Regular"})
	if err == nil {
		t.Fatal("Expected duplicate badge name to be rejected")
	}
}
