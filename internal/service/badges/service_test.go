package badges

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/internal/testutil"
	"github.com/trailquest/trailquest/pkg/logger"
)

// Mock repositories for testing
type mockBadgeRepository struct {
	badges     []models.Badge
	userBadges map[uint]map[uint]bool // userID -> badgeID -> exists
}

func newMockBadgeRepository(badges ...models.Badge) *mockBadgeRepository {
	return &mockBadgeRepository{
		badges:     badges,
		userBadges: make(map[uint]map[uint]bool),
	}
}

func (m *mockBadgeRepository) GetAll() ([]models.Badge, error) {
	return m.badges, nil
}

func (m *mockBadgeRepository) GetByID(id uint) (*models.Badge, error) {
	for i := range m.badges {
		if m.badges[i].ID == id {
			return &m.badges[i], nil
		}
	}
	return nil, nil
}

func (m *mockBadgeRepository) UpsertByName(badge *models.Badge) (bool, error) {
	for i := range m.badges {
		if m.badges[i].Name == badge.Name {
			m.badges[i].Criteria = badge.Criteria
			return false, nil
		}
	}
	badge.ID = uint(len(m.badges) + 1)
	m.badges = append(m.badges, *badge)
	return true, nil
}

func (m *mockBadgeRepository) HasUserEarnedBadge(userID, badgeID uint) (bool, error) {
	return m.userBadges[userID][badgeID], nil
}

func (m *mockBadgeRepository) AwardBadge(userID, badgeID uint, huntID *uint) (bool, error) {
	if m.userBadges[userID] == nil {
		m.userBadges[userID] = make(map[uint]bool)
	}
	if m.userBadges[userID][badgeID] {
		return false, nil
	}
	m.userBadges[userID][badgeID] = true
	return true, nil
}

func (m *mockBadgeRepository) GetUserBadges(userID uint) ([]models.UserBadge, error) {
	var result []models.UserBadge
	for badgeID := range m.userBadges[userID] {
		result = append(result, models.UserBadge{UserID: userID, BadgeID: badgeID, EarnedAt: time.Now()})
	}
	return result, nil
}

func (m *mockBadgeRepository) GetBadgeHoldersCount(badgeID uint) (int64, error) {
	count := int64(0)
	for _, badges := range m.userBadges {
		if badges[badgeID] {
			count++
		}
	}
	return count, nil
}

// mockCompletionRepository answers from an in-memory completion log.
type mockCompletionRepository struct {
	log []models.HuntCompletion
}

func (m *mockCompletionRepository) add(c models.HuntCompletion) *models.HuntCompletion {
	c.ID = uint(len(m.log) + 1)
	m.log = append(m.log, c)
	return &m.log[len(m.log)-1]
}

func (m *mockCompletionRepository) count(match func(models.HuntCompletion) bool) int64 {
	var n int64
	for _, c := range m.log {
		if match(c) {
			n++
		}
	}
	return n
}

func (m *mockCompletionRepository) CountByUser(userID uint) (int64, error) {
	return m.count(func(c models.HuntCompletion) bool { return c.UserID == userID }), nil
}

func (m *mockCompletionRepository) CountByUserAndCategory(userID uint, category string) (int64, error) {
	return m.count(func(c models.HuntCompletion) bool { return c.UserID == userID && c.Category == category }), nil
}

func (m *mockCompletionRepository) CountByUserAndDifficulty(userID uint, difficulty string) (int64, error) {
	return m.count(func(c models.HuntCompletion) bool { return c.UserID == userID && c.Difficulty == difficulty }), nil
}

func (m *mockCompletionRepository) Fastest() (*models.HuntCompletion, error) {
	var best *models.HuntCompletion
	for i := range m.log {
		if best == nil || m.log[i].CompletionTimeMinutes < best.CompletionTimeMinutes {
			best = &m.log[i]
		}
	}
	return best, nil
}

func (m *mockCompletionRepository) MaxCompletionsPerUser() (int64, error) {
	counts := make(map[uint]int64)
	var best int64
	for _, c := range m.log {
		counts[c.UserID]++
		if counts[c.UserID] > best {
			best = counts[c.UserID]
		}
	}
	return best, nil
}

func badgeWith(id uint, name string, criteria models.BadgeCriteria) models.Badge {
	raw, _ := json.Marshal(criteria)
	return models.Badge{ID: id, Name: name, Criteria: raw}
}

func TestEvaluateMetricCriteria(t *testing.T) {
	s := &Service{}

	tests := []struct {
		operator  string
		threshold float64
		value     float64
		want      bool
		wantErr   bool
	}{
		{"<", 10, 5, true, false},
		{"<=", 10, 10, true, false},
		{">", 10, 10, false, false},
		{">=", 2, 2, true, false},
		{"==", 1, 1, true, false},
		{"~", 1, 1, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			got, err := s.evaluateMetricCriteria(tt.operator, tt.threshold, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("evaluateMetricCriteria() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("evaluateMetricCriteria() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_CategoryThreshold(t *testing.T) {
	badgeRepo := newMockBadgeRepository(badgeWith(1, "Heritage Explorer", models.BadgeCriteria{
		Metric: models.MetricCategoryCompletions, Filter: "History", Operator: ">=", Value: 2,
	}))
	completions := &mockCompletionRepository{}
	s := NewServiceWithInterfaces(badgeRepo, completions, logger.Nop())
	ctx := context.Background()

	first := completions.add(models.HuntCompletion{UserID: 1, HuntID: 1, Category: "History", CompletionTimeMinutes: 30})
	earned, err := s.Evaluate(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, earned, "one History hunt is not enough")

	second := completions.add(models.HuntCompletion{UserID: 1, HuntID: 2, Category: "History", CompletionTimeMinutes: 30})
	earned, err = s.Evaluate(ctx, second)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "Heritage Explorer", earned[0].Name)

	third := completions.add(models.HuntCompletion{UserID: 1, HuntID: 3, Category: "History", CompletionTimeMinutes: 30})
	earned, err = s.Evaluate(ctx, third)
	require.NoError(t, err)
	assert.Empty(t, earned, "owned badges are not awarded again")
}

func TestEvaluate_RecordIsNotRevoked(t *testing.T) {
	badgeRepo := newMockBadgeRepository(badgeWith(1, "Speed Hunter", models.BadgeCriteria{
		Metric: models.MetricCompletionTime, Operator: models.OperatorRecord,
	}))
	completions := &mockCompletionRepository{}
	s := NewServiceWithInterfaces(badgeRepo, completions, logger.Nop())
	ctx := context.Background()

	earned, err := s.Evaluate(ctx, completions.add(models.HuntCompletion{UserID: 1, CompletionTimeMinutes: 40}))
	require.NoError(t, err)
	assert.Len(t, earned, 1, "the first run holds the record")

	earned, err = s.Evaluate(ctx, completions.add(models.HuntCompletion{UserID: 2, CompletionTimeMinutes: 40}))
	require.NoError(t, err)
	assert.Empty(t, earned, "equalling the record does not take it")

	earned, err = s.Evaluate(ctx, completions.add(models.HuntCompletion{UserID: 2, CompletionTimeMinutes: 25}))
	require.NoError(t, err)
	assert.Len(t, earned, 1)

	has, _ := badgeRepo.HasUserEarnedBadge(1, 1)
	assert.True(t, has, "the former record holder keeps the badge")
}

func TestEvaluate_LeaderSharesTies(t *testing.T) {
	badgeRepo := newMockBadgeRepository(badgeWith(1, "Adventure Master", models.BadgeCriteria{
		Metric: models.MetricCompletedHunts, Operator: models.OperatorLeader,
	}))
	completions := &mockCompletionRepository{}
	s := NewServiceWithInterfaces(badgeRepo, completions, logger.Nop())
	ctx := context.Background()

	completions.add(models.HuntCompletion{UserID: 1})
	completions.add(models.HuntCompletion{UserID: 1})

	earned, err := s.Evaluate(ctx, completions.add(models.HuntCompletion{UserID: 2}))
	require.NoError(t, err)
	assert.Empty(t, earned, "1 completion trails the leader's 2")

	earned, err = s.Evaluate(ctx, completions.add(models.HuntCompletion{UserID: 2}))
	require.NoError(t, err)
	assert.Len(t, earned, 1, "a tie for the lead qualifies")
}

func TestEvaluate_InvalidCriteria(t *testing.T) {
	tests := []struct {
		name  string
		badge models.Badge
	}{
		{"bad json", models.Badge{ID: 1, Name: "Broken", Criteria: json.RawMessage(`{`)}},
		{"unknown metric", badgeWith(1, "Unknown", models.BadgeCriteria{Metric: "steps", Operator: ">=", Value: 1})},
		{"record on counts", badgeWith(1, "Odd", models.BadgeCriteria{Metric: models.MetricCompletedHunts, Operator: models.OperatorRecord})},
		{"leader on time", badgeWith(1, "Odd", models.BadgeCriteria{Metric: models.MetricCompletionTime, Operator: models.OperatorLeader})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completions := &mockCompletionRepository{}
			s := NewServiceWithInterfaces(newMockBadgeRepository(tt.badge), completions, logger.Nop())

			_, err := s.Evaluate(context.Background(), completions.add(models.HuntCompletion{UserID: 1}))
			assert.Error(t, err)
		})
	}
}

func TestParseCatalog(t *testing.T) {
	entries, err := ParseCatalog(defaultCatalog)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	byName := make(map[string]CatalogEntry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, models.OperatorRecord, byName["Speed Hunter"].Criteria.Operator)
	assert.Equal(t, "Cultural Heritage", byName["Culture Enthusiast"].Criteria.Filter)
	assert.Equal(t, float64(1), byName["Navigator"].Criteria.Value)

	_, err = ParseCatalog([]byte("badges:\n  - name: A\n  - name: A\n"))
	assert.Error(t, err)
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	st := testutil.NewStore(t)
	s := NewService(st, logger.Nop())
	ctx := context.Background()

	created, err := s.SeedCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	created, err = s.SeedCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	catalog, err := s.GetBadgeCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 5)
}

// recordCompletion appends a completion to the real log the way the progress engine does.
func recordCompletion(t *testing.T, st *repository.Store, userID uint, category, difficulty string, minutes int) *models.HuntCompletion {
	t.Helper()

	var progressCount int64
	st.DB().Model(&models.HuntCompletion{}).Count(&progressCount)

	c := &models.HuntCompletion{
		UserID:                userID,
		HuntID:                uint(progressCount + 1),
		ProgressID:            uint(progressCount + 1),
		Category:              category,
		Difficulty:            difficulty,
		CompletionTimeMinutes: minutes,
		CompletedAt:           time.Now(),
	}
	require.NoError(t, st.Completions.Record(c))
	return c
}

func names(badges []models.Badge) []string {
	out := make([]string, 0, len(badges))
	for _, b := range badges {
		out = append(out, b.Name)
	}
	return out
}

func TestEvaluate_DefaultCatalogScenario(t *testing.T) {
	st := testutil.NewStore(t)
	s := NewService(st, logger.Nop())
	ctx := context.Background()
	_, err := s.SeedCatalog(ctx)
	require.NoError(t, err)

	// First ever completion: fastest run and sole leader.
	earned, err := s.Evaluate(ctx, recordCompletion(t, st, 1, "History", "Hard", 50))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Navigator", "Speed Hunter", "Adventure Master"}, names(earned))

	earned, err = s.Evaluate(ctx, recordCompletion(t, st, 1, "History", "Easy", 70))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Heritage Explorer"}, names(earned))

	// A second user ties nothing yet; a faster run takes the record.
	earned, err = s.Evaluate(ctx, recordCompletion(t, st, 2, "Cultural Heritage", "Easy", 20))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Speed Hunter"}, names(earned))

	earned, err = s.Evaluate(ctx, recordCompletion(t, st, 2, "Cultural Heritage", "Easy", 30))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Culture Enthusiast", "Adventure Master"}, names(earned))

	userBadges, err := s.GetUserBadges(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, userBadges, 4)

	var rows int64
	st.DB().Model(&models.UserBadge{}).Count(&rows)
	assert.Equal(t, int64(7), rows)
}
