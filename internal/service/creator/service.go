// Package creator lets users author their own hunts ahead of a paid deployment.
package creator

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/pkg/logger"
)

// DraftRequest describes a new creator hunt.
type DraftRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Difficulty  string          `json:"difficulty"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"`
}

// ClueRequest describes a clue appended to a draft.
type ClueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Answer    string   `json:"answer"`
	Hint      string   `json:"hint"`
	Narrative string   `json:"narrative"`
	Points    int      `json:"points"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Service handles creator drafts.
type Service struct {
	store *repository.Store
	fee   decimal.Decimal
	log   *logger.Logger
}

// NewService creates a creator service. fee is recorded on each draft as its deployment price.
func NewService(store *repository.Store, fee decimal.Decimal, log *logger.Logger) *Service {
	return &Service{store: store, fee: fee, log: log}
}

// CreateDraft creates a hunt owned by viewer together with its draft lifecycle row.
func (s *Service) CreateDraft(ctx context.Context, viewer models.Viewer, req DraftRequest) (*models.UserCreatedHunt, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", apperr.ErrInvalidInput)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price %s is negative: %w", req.Price, apperr.ErrInvalidInput)
	}

	var created *models.UserCreatedHunt
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		huntSlug, err := uniqueSlug(tx.Hunts, title)
		if err != nil {
			return err
		}

		creatorID := viewer.UserID
		hunt := &models.Hunt{
			Title:       title,
			Slug:        huntSlug,
			Description: req.Description,
			Category:    req.Category,
			Difficulty:  req.Difficulty,
			Location:    req.Location,
			Price:       req.Price,
			CreatorID:   &creatorID,
		}
		if err := tx.Hunts.Create(hunt); err != nil {
			return err
		}

		created = &models.UserCreatedHunt{
			HuntID:          hunt.ID,
			CreatorID:       creatorID,
			Status:          models.CreatedHuntStatusDraft,
			IsDraft:         true,
			DeploymentPrice: s.fee,
		}
		if err := tx.Billing.CreateCreatedHunt(created); err != nil {
			return err
		}
		created.Hunt = hunt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", viewer.UserID).
		Uint("hunt_id", created.HuntID).
		Str("slug", created.Hunt.Slug).
		Msg("Creator hunt drafted")

	return created, nil
}

func uniqueSlug(hunts *repository.HuntRepository, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "hunt"
	}

	candidate := base
	for n := 2; ; n++ {
		exists, err := hunts.SlugExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// AddClue appends a clue to a hunt the viewer owns. Deployed hunts are frozen.
func (s *Service) AddClue(ctx context.Context, viewer models.Viewer, huntID uint, req ClueRequest) (*models.Clue, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return nil, fmt.Errorf("answer is required: %w", apperr.ErrInvalidInput)
	}
	if req.Points < 0 {
		return nil, fmt.Errorf("points %d is negative: %w", req.Points, apperr.ErrInvalidInput)
	}

	var clue *models.Clue
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		created, err := owned(tx, viewer, huntID)
		if err != nil {
			return err
		}
		if created.IsActive() {
			return fmt.Errorf("hunt %d is deployed: %w", huntID, apperr.ErrConflict)
		}

		order, err := tx.Hunts.NextClueOrder(huntID)
		if err != nil {
			return err
		}

		points := req.Points
		if points == 0 {
			points = models.DefaultCluePoints
		}

		clue = &models.Clue{
			HuntID:    huntID,
			Order:     order,
			Title:     req.Title,
			Body:      req.Body,
			Answer:    strings.TrimSpace(req.Answer),
			Hint:      req.Hint,
			Narrative: req.Narrative,
			Points:    points,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		}
		return tx.Hunts.CreateClue(clue)
	})
	if err != nil {
		return nil, err
	}

	return clue, nil
}

// Finalize marks authoring as done. It does not deploy the hunt; only a
// confirmed deployment payment does that.
func (s *Service) Finalize(ctx context.Context, viewer models.Viewer, huntID uint) (*models.UserCreatedHunt, error) {
	var created *models.UserCreatedHunt
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		created, err = owned(tx, viewer, huntID)
		if err != nil {
			return err
		}
		if !created.IsDraft {
			return nil
		}
		created.IsDraft = false
		return tx.Billing.SaveCreatedHunt(created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func owned(tx *repository.Store, viewer models.Viewer, huntID uint) (*models.UserCreatedHunt, error) {
	created, err := tx.Billing.FindCreatedHunt(huntID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("creator hunt %d: %w", huntID, apperr.ErrNotFound)
	}
	if created.CreatorID != viewer.UserID && !viewer.IsAdmin {
		return nil, fmt.Errorf("hunt %d belongs to user %d: %w", huntID, created.CreatorID, apperr.ErrAccessDenied)
	}
	return created, nil
}
