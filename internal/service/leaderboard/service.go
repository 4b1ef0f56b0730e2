// Package leaderboard ranks players over the hunt completion log.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/pkg/logger"
)

// Ranking metrics.
const (
	MetricCompletedHunts = "completed_hunts"
	MetricTotalPoints    = "total_points"
	MetricFastest        = "fastest_minutes"
	MetricBadgeCount     = "badge_count"
)

// Periods accepted by the leaderboard.
const (
	PeriodDay     = "day"
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodYear    = "year"
	PeriodAllTime = "all_time"
)

// CompletionRepository interface for completion log reads.
type CompletionRepository interface {
	ListBetween(start, end time.Time, category string) ([]models.HuntCompletion, error)
}

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetUserBadgeCount(userID uint) (int64, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	CompletedHunts int    `json:"completed_hunts"`
	TotalPoints    int    `json:"total_points"`
	FastestMinutes int    `json:"fastest_minutes"`
	BadgeCount     int    `json:"badge_count"`
	Rank           int    `json:"rank"`
}

// Service handles leaderboard generation and player statistics.
type Service struct {
	completionRepo CompletionRepository
	badgeRepo      BadgeRepository
	userRepo       UserRepository
	log            *logger.Logger
	now            func() time.Time
}

// NewService creates a new leaderboard service over the store's repositories.
func NewService(store *repository.Store, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(store.Completions, store.Badges, store.Users, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	completionRepo CompletionRepository,
	badgeRepo BadgeRepository,
	userRepo UserRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		completionRepo: completionRepo,
		badgeRepo:      badgeRepo,
		userRepo:       userRepo,
		log:            log,
		now:            time.Now,
	}
}

// SetClock replaces the time source used to compute period windows.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ValidPeriod reports whether period is one the leaderboard understands.
func ValidPeriod(period string) bool {
	switch period {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAllTime:
		return true
	}
	return false
}

// ValidMetric reports whether metric is one the leaderboard can rank by.
func ValidMetric(metric string) bool {
	switch metric {
	case MetricCompletedHunts, MetricTotalPoints, MetricFastest, MetricBadgeCount:
		return true
	}
	return false
}

// GetGlobalLeaderboard returns the leaderboard across all categories.
func (s *Service) GetGlobalLeaderboard(ctx context.Context, period, metric string, limit int) ([]Entry, error) {
	return s.getLeaderboard(ctx, "", period, metric, limit)
}

// GetCategoryLeaderboard returns the leaderboard for hunts of one category.
func (s *Service) GetCategoryLeaderboard(ctx context.Context, category, period, metric string, limit int) ([]Entry, error) {
	return s.getLeaderboard(ctx, category, period, metric, limit)
}

//nolint:revive,unparam // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) getLeaderboard(ctx context.Context, category, period, metric string, limit int) ([]Entry, error) {
	startDate, endDate := calculatePeriodRange(s.now(), period)

	completions, err := s.completionRepo.ListBetween(startDate, endDate, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get completions: %w", err)
	}

	totals := aggregateByUser(completions)

	entries := make([]Entry, 0, len(totals))
	for userID, agg := range totals {
		user, err := s.userRepo.GetByID(userID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user")
			continue
		}

		badgeCount, err := s.badgeRepo.GetUserBadgeCount(userID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get badge count")
			badgeCount = 0
		}

		entries = append(entries, Entry{
			UserID:         userID,
			Username:       displayName(user),
			CompletedHunts: agg.CompletedHunts,
			TotalPoints:    agg.TotalPoints,
			FastestMinutes: agg.FastestMinutes,
			BadgeCount:     int(badgeCount),
		})
	}

	sortLeaderboard(entries, metric)

	for i := range entries {
		entries[i].Rank = i + 1
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// GetUserRank returns the rank of a user for a specific metric in a period.
func (s *Service) GetUserRank(ctx context.Context, userID uint, period, metric string) (int, error) {
	return s.rankIn(ctx, "", userID, period, metric)
}

func (s *Service) rankIn(ctx context.Context, category string, userID uint, period, metric string) (int, error) {
	entries, err := s.getLeaderboard(ctx, category, period, metric, 0)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}

	return 0, fmt.Errorf("user %d has no completions in period %s: %w", userID, period, apperr.ErrNotFound)
}

type userTotals struct {
	CompletedHunts int
	TotalPoints    int
	FastestMinutes int
	TotalMinutes   int
	Categories     map[string]int
}

func aggregateByUser(completions []models.HuntCompletion) map[uint]*userTotals {
	totals := make(map[uint]*userTotals)

	for _, c := range completions {
		agg, ok := totals[c.UserID]
		if !ok {
			agg = &userTotals{Categories: make(map[string]int)}
			totals[c.UserID] = agg
		}

		agg.CompletedHunts++
		agg.TotalPoints += c.TotalPoints
		agg.TotalMinutes += c.CompletionTimeMinutes
		if agg.CompletedHunts == 1 || c.CompletionTimeMinutes < agg.FastestMinutes {
			agg.FastestMinutes = c.CompletionTimeMinutes
		}
		if c.Category != "" {
			agg.Categories[c.Category]++
		}
	}

	return totals
}

// sortLeaderboard orders entries best first. Ties fall back to user ID so
// ranks are stable between requests.
func sortLeaderboard(entries []Entry, metric string) {
	var better func(a, b Entry) (bool, bool)

	switch metric {
	case MetricTotalPoints:
		better = func(a, b Entry) (bool, bool) { return a.TotalPoints > b.TotalPoints, a.TotalPoints == b.TotalPoints }
	case MetricFastest:
		// Lower is better
		better = func(a, b Entry) (bool, bool) {
			return a.FastestMinutes < b.FastestMinutes, a.FastestMinutes == b.FastestMinutes
		}
	case MetricBadgeCount:
		better = func(a, b Entry) (bool, bool) { return a.BadgeCount > b.BadgeCount, a.BadgeCount == b.BadgeCount }
	default:
		better = func(a, b Entry) (bool, bool) {
			return a.CompletedHunts > b.CompletedHunts, a.CompletedHunts == b.CompletedHunts
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		less, equal := better(entries[i], entries[j])
		if equal {
			return entries[i].UserID < entries[j].UserID
		}
		return less
	})
}

// calculatePeriodRange calculates the start and end dates for a period ending at now.
func calculatePeriodRange(now time.Time, period string) (startDate, endDate time.Time) {
	// end is exclusive in the repository query
	endDate = now.Add(time.Second)

	switch period {
	case PeriodDay:
		startDate = now.Add(-24 * time.Hour)
	case PeriodWeek:
		startDate = now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		startDate = now.Add(-30 * 24 * time.Hour)
	case PeriodYear:
		startDate = now.Add(-365 * 24 * time.Hour)
	default:
		startDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	return startDate, endDate
}

func displayName(user *models.User) string {
	if user.Username != "" {
		return user.Username
	}
	if local, _, ok := strings.Cut(user.Email, "@"); ok && local != "" {
		return local
	}
	return fmt.Sprintf("player-%d", user.ID)
}
