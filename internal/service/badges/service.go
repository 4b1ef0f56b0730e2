// Package badges provides badge evaluation and management services.
package badges

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	prommetrics "github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetAll() ([]models.Badge, error)
	GetByID(id uint) (*models.Badge, error)
	UpsertByName(badge *models.Badge) (bool, error)
	HasUserEarnedBadge(userID, badgeID uint) (bool, error)
	AwardBadge(userID, badgeID uint, huntID *uint) (bool, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
	GetBadgeHoldersCount(badgeID uint) (int64, error)
}

// CompletionRepository interface for completion log queries.
type CompletionRepository interface {
	CountByUser(userID uint) (int64, error)
	CountByUserAndCategory(userID uint, category string) (int64, error)
	CountByUserAndDifficulty(userID uint, difficulty string) (int64, error)
	Fastest() (*models.HuntCompletion, error)
	MaxCompletionsPerUser() (int64, error)
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo      BadgeRepository
	completionRepo CompletionRepository
	log            *logger.Logger
}

// NewService creates a new badge service.
func NewService(store *repository.Store, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(store.Badges, store.Completions, log)
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(badgeRepo BadgeRepository, completionRepo CompletionRepository, log *logger.Logger) *Service {
	return &Service{
		badgeRepo:      badgeRepo,
		completionRepo: completionRepo,
		log:            log,
	}
}

// Bind returns a service that reads and writes through tx.
func (s *Service) Bind(tx *repository.Store) *Service {
	return NewServiceWithInterfaces(tx.Badges, tx.Completions, s.log)
}

// Evaluate runs the catalog against the user's completion history after a
// completion was recorded, awards every badge newly earned and returns them.
// Badges already held are skipped and nothing is ever revoked.
func (s *Service) Evaluate(ctx context.Context, completion *models.HuntCompletion) ([]models.Badge, error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveBadgeEvaluationDuration(time.Since(start).Seconds())
	}()

	s.log.Debug().
		Uint("user_id", completion.UserID).
		Uint("hunt_id", completion.HuntID).
		Msg("Evaluating badges for completion")

	badges, err := s.badgeRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}

	var newlyEarned []models.Badge

	for i := range badges {
		badge := badges[i]

		hasEarned, err := s.badgeRepo.HasUserEarnedBadge(completion.UserID, badge.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check badge %q: %w", badge.Name, err)
		}
		if hasEarned {
			continue
		}

		qualifies, err := s.EvaluateBadge(ctx, &badge, completion)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate badge %q: %w", badge.Name, err)
		}
		if !qualifies {
			continue
		}

		awarded, err := s.AwardBadge(ctx, completion.UserID, &badge, completion.HuntID)
		if err != nil {
			return nil, err
		}
		if awarded {
			newlyEarned = append(newlyEarned, badge)
			s.log.Info().
				Uint("user_id", completion.UserID).
				Str("badge", badge.Name).
				Msg("Badge awarded")
		}
	}

	return newlyEarned, nil
}

// EvaluateBadge evaluates if a completion earns a specific badge.
func (s *Service) EvaluateBadge(ctx context.Context, badge *models.Badge, completion *models.HuntCompletion) (bool, error) {
	var criteria models.BadgeCriteria
	if err := json.Unmarshal(badge.Criteria, &criteria); err != nil {
		return false, fmt.Errorf("failed to parse badge criteria: %w", err)
	}

	return s.checkCriteria(ctx, &criteria, completion)
}

// AwardBadge awards a badge to a user. Returns false when the user already held it.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) AwardBadge(ctx context.Context, userID uint, badge *models.Badge, huntID uint) (bool, error) {
	awarded, err := s.badgeRepo.AwardBadge(userID, badge.ID, &huntID)
	if err != nil {
		return false, err
	}
	if !awarded {
		return false, nil
	}

	prommetrics.RecordBadgeAwarded(badge.Name)

	count, _ := s.badgeRepo.GetBadgeHoldersCount(badge.ID)
	prommetrics.SetActiveBadgeHolders(badge.Name, int(count))

	return true, nil
}

// GetUserBadges retrieves all badges earned by a user.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(userID)
}

// GetBadgeCatalog retrieves all available badges.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll()
}

// GetBadgeByID retrieves a badge by its ID.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgeByID(ctx context.Context, badgeID uint) (*models.Badge, error) {
	return s.badgeRepo.GetByID(badgeID)
}

// GetBadgeHoldersCount retrieves the count of users who have earned a badge.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgeHoldersCount(ctx context.Context, badgeID uint) (int64, error) {
	return s.badgeRepo.GetBadgeHoldersCount(badgeID)
}
