package leaderboard

import (
	"context"
	"fmt"

	"github.com/trailquest/trailquest/internal/models"
)

// UserStats represents a player's totals for a period.
type UserStats struct {
	UserID           uint           `json:"user_id"`
	Username         string         `json:"username"`
	Period           string         `json:"period"`
	CompletedHunts   int            `json:"completed_hunts"`
	TotalPoints      int            `json:"total_points"`
	FastestMinutes   int            `json:"fastest_minutes"`
	AvgMinutes       float64        `json:"avg_minutes"`
	Categories       map[string]int `json:"categories"`
	FavoriteCategory string         `json:"favorite_category,omitempty"`
	Badges           []models.Badge `json:"badges"`
	GlobalRank       int            `json:"global_rank"`
	CategoryRank     int            `json:"category_rank"`
}

// GetUserStats returns a player's statistics for a period. Ranks are by
// total points; a player without completions in the period has rank 0.
func (s *Service) GetUserStats(ctx context.Context, userID uint, period string) (*UserStats, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	startDate, endDate := calculatePeriodRange(s.now(), period)

	completions, err := s.completionRepo.ListBetween(startDate, endDate, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get user completions: %w", err)
	}

	stats := &UserStats{
		UserID:     userID,
		Username:   displayName(user),
		Period:     period,
		Categories: map[string]int{},
		Badges:     []models.Badge{},
	}

	if agg, ok := aggregateByUser(completions)[userID]; ok {
		stats.CompletedHunts = agg.CompletedHunts
		stats.TotalPoints = agg.TotalPoints
		stats.FastestMinutes = agg.FastestMinutes
		stats.AvgMinutes = float64(agg.TotalMinutes) / float64(agg.CompletedHunts)
		stats.Categories = agg.Categories
		stats.FavoriteCategory = favorite(agg.Categories)
	}

	userBadges, err := s.badgeRepo.GetUserBadges(userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
	} else {
		for _, ub := range userBadges {
			if ub.Badge.ID != 0 {
				stats.Badges = append(stats.Badges, ub.Badge)
			}
		}
	}

	if stats.CompletedHunts == 0 {
		return stats, nil
	}

	globalRank, err := s.GetUserRank(ctx, userID, period, MetricTotalPoints)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get global rank")
	} else {
		stats.GlobalRank = globalRank
	}

	if stats.FavoriteCategory != "" {
		categoryRank, err := s.rankIn(ctx, stats.FavoriteCategory, userID, period, MetricTotalPoints)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Str("category", stats.FavoriteCategory).Msg("Failed to get category rank")
		} else {
			stats.CategoryRank = categoryRank
		}
	}

	return stats, nil
}

// favorite returns the most completed category, alphabetically first on ties.
func favorite(categories map[string]int) string {
	best, bestCount := "", 0
	for name, count := range categories {
		if count > bestCount || (count == bestCount && name < best) {
			best, bestCount = name, count
		}
	}
	return best
}
