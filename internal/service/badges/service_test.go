package badges

import (
	"context"
	"testing"

	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	points map[string]*models.UserPoints
	ledger []models.PointsLedgerEntry
	badges []models.Badge
	awards []models.BadgeAward
}

func newMockStore() *mockStore {
	return &mockStore{points: make(map[string]*models.UserPoints)}
}

func (m *mockStore) GetUserPoints(email string) (*models.UserPoints, error) {
	return m.points[email], nil
}

func (m *mockStore) CreateUserPoints(p *models.UserPoints) error {
	m.points[p.UserEmail] = p
	return nil
}

func (m *mockStore) SaveUserPoints(p *models.UserPoints) error {
	m.points[p.UserEmail] = p
	return nil
}

func (m *mockStore) AppendLedger(e *models.PointsLedgerEntry) error {
	m.ledger = append(m.ledger, *e)
	return nil
}

func (m *mockStore) ListBadges() ([]models.Badge, error) {
	return m.badges, nil
}

func (m *mockStore) GetBadge(id uint) (*models.Badge, error) {
	for i := range m.badges {
		if m.badges[i].ID == id {
			return &m.badges[i], nil
		}
	}
	return nil, nil
}

func (m *mockStore) HasUserEarnedBadge(email string, badgeID uint) (bool, error) {
	for _, a := range m.awards {
		if a.UserEmail == email && a.BadgeID == badgeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) CreateBadgeAward(a *models.BadgeAward) error {
	m.awards = append(m.awards, *a)
	return nil
}

func (m *mockStore) GetUserAwards(email string) ([]models.BadgeAward, error) {
	var out []models.BadgeAward
	for _, a := range m.awards {
		if a.UserEmail == email {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) GetHoldersCount(badgeID uint) (int64, error) {
	seen := make(map[string]bool)
	for _, a := range m.awards {
		if a.BadgeID == badgeID {
			seen[a.UserEmail] = true
		}
	}
	return int64(len(seen)), nil
}

func (m *mockStore) InTransaction(fn func(tx Store) error) error {
	return fn(m)
}

type mockNotifier struct {
	badges []string
}

func (m *mockNotifier) SendBadgeAwarded(_ context.Context, _, badgeName, _ string) error {
	m.badges = append(m.badges, badgeName)
	return nil
}

func newTestService(store Store, n Notifier) *Service {
	return NewServiceWithInterfaces(store, n, logger.New("error", "console", ""))
}

func TestEvaluateUser(t *testing.T) {
	t.Run("awards badge when counter meets threshold", func(t *testing.T) {
		store := newMockStore()
		store.points["alice@corp.test"] = &models.UserPoints{UserEmail: "alice@corp.test", EventsAttended: 5, TotalPoints: 50}
		store.badges = []models.Badge{
			{ID: 1, Name: "Event Regular", CriteriaType: models.CriteriaEventsAttended, CriteriaThreshold: 5, PointsValue: 20},
		}
		n := &mockNotifier{}
		svc := newTestService(store, n)

		awarded, err := svc.EvaluateUser(context.Background(), "alice@corp.test")
		require.NoError(t, err)
		assert.Equal(t, 1, awarded)
		require.Len(t, store.awards, 1)
		assert.Equal(t, models.EarnedThroughAutomatic, store.awards[0].EarnedThrough)
		assert.Equal(t, []string{"Event Regular"}, n.badges)

		// Badge points value was credited alongside the award.
		assert.Equal(t, 70, store.points["alice@corp.test"].TotalPoints)
		require.Len(t, store.ledger, 1)
		assert.Equal(t, models.SourceBadge, store.ledger[0].Source)
	})

	t.Run("below threshold awards nothing", func(t *testing.T) {
		store := newMockStore()
		store.points["alice@corp.test"] = &models.UserPoints{UserEmail: "alice@corp.test", EventsAttended: 4}
		store.badges = []models.Badge{
			{ID: 1, Name: "Event Regular", CriteriaType: models.CriteriaEventsAttended, CriteriaThreshold: 5},
		}
		svc := newTestService(store, &mockNotifier{})

		awarded, err := svc.EvaluateUser(context.Background(), "alice@corp.test")
		require.NoError(t, err)
		assert.Zero(t, awarded)
		assert.Empty(t, store.awards)
	})

	t.Run("already held badge is not re-awarded", func(t *testing.T) {
		store := newMockStore()
		store.points["alice@corp.test"] = &models.UserPoints{UserEmail: "alice@corp.test", FeedbackSubmitted: 10}
		store.badges = []models.Badge{
			{ID: 1, Name: "Voice Heard", CriteriaType: models.CriteriaFeedbackSubmitted, CriteriaThreshold: 3},
		}
		store.awards = []models.BadgeAward{{UserEmail: "alice@corp.test", BadgeID: 1}}
		svc := newTestService(store, &mockNotifier{})

		awarded, err := svc.EvaluateUser(context.Background(), "alice@corp.test")
		require.NoError(t, err)
		assert.Zero(t, awarded)
		assert.Len(t, store.awards, 1)
	})

	t.Run("manual-award badges are skipped", func(t *testing.T) {
		store := newMockStore()
		store.points["alice@corp.test"] = &models.UserPoints{UserEmail: "alice@corp.test", TotalPoints: 1000}
		store.badges = []models.Badge{
			{ID: 1, Name: "Founder's Pick", IsManualAward: true, CriteriaType: models.CriteriaPointsTotal, CriteriaThreshold: 1},
		}
		svc := newTestService(store, &mockNotifier{})

		awarded, err := svc.EvaluateUser(context.Background(), "alice@corp.test")
		require.NoError(t, err)
		assert.Zero(t, awarded)
	})

	t.Run("user without points row awards nothing", func(t *testing.T) {
		store := newMockStore()
		store.badges = []models.Badge{
			{ID: 1, Name: "Event Regular", CriteriaType: models.CriteriaEventsAttended, CriteriaThreshold: 0},
		}
		svc := newTestService(store, &mockNotifier{})

		awarded, err := svc.EvaluateUser(context.Background(), "ghost@corp.test")
		require.NoError(t, err)
		assert.Zero(t, awarded)
	})

	t.Run("unknown criteria type is skipped", func(t *testing.T) {
		store := newMockStore()
		store.points["alice@corp.test"] = &models.UserPoints{UserEmail: "alice@corp.test", TotalPoints: 100}
		store.badges = []models.Badge{
			{ID: 1, Name: "Mystery", CriteriaType: "karma", CriteriaThreshold: 1},
		}
		svc := newTestService(store, &mockNotifier{})

		awarded, err := svc.EvaluateUser(context.Background(), "alice@corp.test")
		require.NoError(t, err)
		assert.Zero(t, awarded)
	})
}

func TestAwardManual(t *testing.T) {
	t.Run("awards and records provenance", func(t *testing.T) {
		store := newMockStore()
		store.badges = []models.Badge{{ID: 1, Name: "Founder's Pick", IsManualAward: true}}
		svc := newTestService(store, &mockNotifier{})

		require.NoError(t, svc.AwardManual(context.Background(), "alice@corp.test", 1))
		require.Len(t, store.awards, 1)
		assert.Equal(t, models.EarnedThroughManual, store.awards[0].EarnedThrough)
	})

	t.Run("non-repeatable badge cannot be granted twice", func(t *testing.T) {
		store := newMockStore()
		store.badges = []models.Badge{{ID: 1, Name: "Founder's Pick"}}
		svc := newTestService(store, &mockNotifier{})

		require.NoError(t, svc.AwardManual(context.Background(), "alice@corp.test", 1))
		err := svc.AwardManual(context.Background(), "alice@corp.test", 1)
		assert.ErrorIs(t, err, ErrAlreadyHolding)
	})

	t.Run("repeatable badge can be granted twice", func(t *testing.T) {
		store := newMockStore()
		store.badges = []models.Badge{{ID: 1, Name: "Spot Award", Repeatable: true}}
		svc := newTestService(store, &mockNotifier{})

		require.NoError(t, svc.AwardManual(context.Background(), "alice@corp.test", 1))
		require.NoError(t, svc.AwardManual(context.Background(), "alice@corp.test", 1))
		assert.Len(t, store.awards, 2)
	})

	t.Run("unknown badge", func(t *testing.T) {
		svc := newTestService(newMockStore(), &mockNotifier{})
		err := svc.AwardManual(context.Background(), "alice@corp.test", 99)
		assert.ErrorIs(t, err, ErrBadgeNotFound)
	})
}

func TestListCatalog(t *testing.T) {
	store := newMockStore()
	store.badges = []models.Badge{
		{ID: 1, Name: "Event Regular"},
		{ID: 2, Name: "Voice Heard"},
	}
	store.awards = []models.BadgeAward{
		{UserEmail: "alice@corp.test", BadgeID: 1},
		{UserEmail: "bob@corp.test", BadgeID: 1},
	}
	svc := newTestService(store, &mockNotifier{})

	entries, err := svc.ListCatalog()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Holders)
	assert.Equal(t, int64(0), entries[1].Holders)
}
