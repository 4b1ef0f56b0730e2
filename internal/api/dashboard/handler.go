// Package dashboard provides REST API handlers for the gamification dashboard.
// It exposes endpoints for leaderboards, player statistics and badges.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailquest/trailquest/internal/api/middleware"
	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/service/leaderboard"
	"github.com/trailquest/trailquest/pkg/logger"
)

// BadgeService interface for badge operations.
type BadgeService interface {
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	GetBadgeCatalog(ctx context.Context) ([]models.Badge, error)
	GetBadgeByID(ctx context.Context, badgeID uint) (*models.Badge, error)
	GetBadgeHoldersCount(ctx context.Context, badgeID uint) (int64, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetGlobalLeaderboard(ctx context.Context, period, metric string, limit int) ([]leaderboard.Entry, error)
	GetCategoryLeaderboard(ctx context.Context, category, period, metric string, limit int) ([]leaderboard.Entry, error)
	GetUserStats(ctx context.Context, userID uint, period string) (*leaderboard.UserStats, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	badgeService       BadgeService
	leaderboardService LeaderboardService
	log                *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(badgeService BadgeService, leaderboardService LeaderboardService, log *logger.Logger) *Handler {
	return &Handler{
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		log:                log,
	}
}

// RegisterRoutes mounts the dashboard endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/leaderboard", h.GetGlobalLeaderboard)
	r.GET("/leaderboard/:category", h.GetCategoryLeaderboard)
	r.GET("/users/me/stats", h.GetMyStats)
	r.GET("/users/me/badges", h.GetMyBadges)
	r.GET("/badges", h.GetBadgeCatalog)
	r.GET("/badges/:id", h.GetBadgeByID)
}

// GetGlobalLeaderboard returns the global leaderboard.
// GET /api/v1/leaderboard?period=month&metric=total_points&limit=10.
func (h *Handler) GetGlobalLeaderboard(c *gin.Context) {
	period, metric, limit, err := h.leaderboardQuery(c)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	entries, err := h.leaderboardService.GetGlobalLeaderboard(c.Request.Context(), period, metric, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get global leaderboard")
		middleware.ErrorResponse(c, err)
		return
	}

	h.log.Debug().
		Str("period", period).
		Str("metric", metric).
		Int("limit", limit).
		Int("entries", len(entries)).
		Msg("Retrieved global leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"period":        period,
		"metric":        metric,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetCategoryLeaderboard returns the leaderboard for one hunt category.
// GET /api/v1/leaderboard/:category?period=month&metric=total_points&limit=10.
func (h *Handler) GetCategoryLeaderboard(c *gin.Context) {
	category := c.Param("category")
	if category == "" {
		middleware.ErrorResponse(c, fmt.Errorf("category parameter is required: %w", apperr.ErrInvalidInput))
		return
	}

	period, metric, limit, err := h.leaderboardQuery(c)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	entries, err := h.leaderboardService.GetCategoryLeaderboard(c.Request.Context(), category, period, metric, limit)
	if err != nil {
		h.log.Error().Err(err).Str("category", category).Msg("Failed to get category leaderboard")
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":      category,
		"leaderboard":   entries,
		"period":        period,
		"metric":        metric,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetMyStats returns statistics for the caller.
// GET /api/v1/users/me/stats?period=month.
func (h *Handler) GetMyStats(c *gin.Context) {
	viewer := middleware.CurrentViewer(c)

	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	if err := validatePeriod(period); err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	stats, err := h.leaderboardService.GetUserStats(c.Request.Context(), viewer.UserID, period)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", viewer.UserID).Msg("Failed to get user stats")
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetMyBadges returns badges earned by the caller.
// GET /api/v1/users/me/badges.
func (h *Handler) GetMyBadges(c *gin.Context) {
	viewer := middleware.CurrentViewer(c)

	userBadges, err := h.badgeService.GetUserBadges(c.Request.Context(), viewer.UserID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", viewer.UserID).Msg("Failed to get user badges")
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      viewer.UserID,
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.badgeService.GetBadgeCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeByID returns details for a specific badge with its holder count.
// GET /api/v1/badges/:id.
func (h *Handler) GetBadgeByID(c *gin.Context) {
	badgeID, err := middleware.ParseID(c, "id")
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	ctx := c.Request.Context()
	badge, err := h.badgeService.GetBadgeByID(ctx, badgeID)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	holders, err := h.badgeService.GetBadgeHoldersCount(ctx, badgeID)
	if err != nil {
		h.log.Warn().Err(err).Uint("badge_id", badgeID).Msg("Failed to count badge holders")
		holders = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"badge":         badge,
		"total_holders": holders,
		"generated_at":  time.Now().UTC(),
	})
}

func (h *Handler) leaderboardQuery(c *gin.Context) (period, metric string, limit int, err error) {
	period = c.DefaultQuery("period", leaderboard.PeriodAllTime)
	metric = c.DefaultQuery("metric", leaderboard.MetricTotalPoints)

	if limit, err = parseLimit(c, 10); err != nil {
		return "", "", 0, err
	}
	if err = validatePeriod(period); err != nil {
		return "", "", 0, err
	}
	if err = validateMetric(metric); err != nil {
		return "", "", 0, err
	}
	return period, metric, limit, nil
}

// parseLimit extracts and validates the limit query parameter.
func parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s: %w", limitStr, apperr.ErrInvalidInput)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0: %w", apperr.ErrInvalidInput)
	}
	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000: %w", apperr.ErrInvalidInput)
	}

	return limit, nil
}

func validatePeriod(period string) error {
	if !leaderboard.ValidPeriod(period) {
		return fmt.Errorf("invalid period: %s (valid: day, week, month, year, all_time): %w", period, apperr.ErrInvalidInput)
	}
	return nil
}

func validateMetric(metric string) error {
	if !leaderboard.ValidMetric(metric) {
		return fmt.Errorf("invalid metric: %s (valid: completed_hunts, total_points, fastest_minutes, badge_count): %w",
			metric, apperr.ErrInvalidInput)
	}
	return nil
}
