// Package progress advances a user's position through a hunt's clue sequence.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/trailquest/trailquest/internal/apperr"
	prommetrics "github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/internal/service/badges"
	"github.com/trailquest/trailquest/pkg/logger"
)

// HuntRepository interface for clue sequence lookups.
type HuntRepository interface {
	FindClueByOrder(huntID uint, order int) (*models.Clue, error)
}

// ProgressRepository interface for progress rows.
type ProgressRepository interface {
	Find(userID, huntID uint) (*models.UserProgress, error)
	FindForUpdate(userID, huntID uint) (*models.UserProgress, error)
	Create(progress *models.UserProgress) error
	Save(progress *models.UserProgress) error
}

// AttemptRepository interface for the first-attempt timestamp.
type AttemptRepository interface {
	FirstAttemptAt(userID, huntID uint) (*time.Time, error)
}

// CompletionRepository interface for the completion log.
type CompletionRepository interface {
	Record(completion *models.HuntCompletion) error
}

// BadgeEvaluator is called once per completed run.
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, completion *models.HuntCompletion) ([]models.Badge, error)
}

// Result is the outcome of one advance.
type Result struct {
	Progress   *models.UserProgress
	NextClue   *models.Clue
	Completion *models.HuntCompletion
	Badges     []models.Badge
}

// Completed reports whether this advance finished the hunt.
func (r *Result) Completed() bool {
	return r.Completion != nil
}

// Engine owns UserProgress transitions.
type Engine struct {
	hunts       HuntRepository
	progress    ProgressRepository
	attempts    AttemptRepository
	completions CompletionRepository
	badges      BadgeEvaluator
	badgeSvc    *badges.Service
	log         *logger.Logger
	now         func() time.Time
}

// NewEngine creates an engine over the store. badgeSvc may be nil to skip badge evaluation.
func NewEngine(store *repository.Store, badgeSvc *badges.Service, log *logger.Logger) *Engine {
	e := &Engine{
		hunts:       store.Hunts,
		progress:    store.Progress,
		attempts:    store.Attempts,
		completions: store.Completions,
		badgeSvc:    badgeSvc,
		log:         log,
		now:         time.Now,
	}
	if badgeSvc != nil {
		e.badges = badgeSvc
	}
	return e
}

// NewEngineWithInterfaces creates an engine with interface dependencies (useful for testing).
func NewEngineWithInterfaces(
	hunts HuntRepository,
	progress ProgressRepository,
	attempts AttemptRepository,
	completions CompletionRepository,
	evaluator BadgeEvaluator,
	log *logger.Logger,
) *Engine {
	return &Engine{
		hunts:       hunts,
		progress:    progress,
		attempts:    attempts,
		completions: completions,
		badges:      evaluator,
		log:         log,
		now:         time.Now,
	}
}

// Bind returns an engine that reads and writes through tx, badge evaluation included.
func (e *Engine) Bind(tx *repository.Store) *Engine {
	bound := *e
	bound.hunts = tx.Hunts
	bound.progress = tx.Progress
	bound.attempts = tx.Attempts
	bound.completions = tx.Completions
	if e.badgeSvc != nil {
		bound.badges = e.badgeSvc.Bind(tx)
	}
	return &bound
}

// SetClock overrides the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Get returns the user's progress on a hunt, or nil before the first solved clue.
//
//nolint:revive // ctx reserved for future context-aware operations
func (e *Engine) Get(ctx context.Context, userID, huntID uint) (*models.UserProgress, error) {
	return e.progress.Find(userID, huntID)
}

// Lock reads the progress row with a row lock held until the transaction ends.
//
//nolint:revive // ctx reserved for future context-aware operations
func (e *Engine) Lock(ctx context.Context, userID, huntID uint) (*models.UserProgress, error) {
	return e.progress.FindForUpdate(userID, huntID)
}

// CheckSequence verifies that clue is the one the user is expected to answer:
// order 1 before any progress exists, the current clue afterwards, nothing once completed.
func (e *Engine) CheckSequence(progress *models.UserProgress, clue *models.Clue) error {
	if progress == nil {
		if clue.Order != 1 {
			return fmt.Errorf("clue %d is #%d but the hunt starts at #1: %w", clue.ID, clue.Order, apperr.ErrOutOfSequence)
		}
		return nil
	}

	switch state := progress.State().(type) {
	case models.Completed:
		return fmt.Errorf("hunt %d already completed: %w", progress.HuntID, apperr.ErrOutOfSequence)
	case models.InProgress:
		if state.CurrentClueID != clue.ID {
			return fmt.Errorf("clue %d is not the current clue %d: %w", clue.ID, state.CurrentClueID, apperr.ErrOutOfSequence)
		}
	}
	return nil
}

// Advance moves the user past clue, adding points. progress is the locked row
// from Lock, or nil when the user has none yet. Running out of clues completes
// the hunt, appends to the completion log and evaluates badges.
func (e *Engine) Advance(ctx context.Context, userID uint, hunt *models.Hunt, clue *models.Clue, points int, progress *models.UserProgress) (*Result, error) {
	if clue.HuntID != hunt.ID {
		return nil, fmt.Errorf("clue %d does not belong to hunt %d: %w", clue.ID, hunt.ID, apperr.ErrNotFound)
	}

	now := e.now()

	next, err := e.hunts.FindClueByOrder(hunt.ID, clue.Order+1)
	if err != nil {
		return nil, err
	}

	isNew := progress == nil
	if isNew {
		startedAt := now
		first, err := e.attempts.FirstAttemptAt(userID, hunt.ID)
		if err != nil {
			return nil, err
		}
		if first != nil && first.Before(now) {
			startedAt = *first
		}
		progress = &models.UserProgress{UserID: userID, HuntID: hunt.ID, StartedAt: startedAt}
	}

	progress.TotalPoints += points
	if next != nil {
		progress.MarkInProgress(next.ID)
	} else {
		progress.MarkCompleted(now)
	}

	if isNew {
		err = e.progress.Create(progress)
	} else {
		err = e.progress.Save(progress)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Progress: progress, NextClue: next}
	if next != nil {
		return result, nil
	}

	completion := &models.HuntCompletion{
		UserID:                userID,
		HuntID:                hunt.ID,
		ProgressID:            progress.ID,
		Category:              hunt.Category,
		Difficulty:            hunt.Difficulty,
		TotalPoints:           progress.TotalPoints,
		CompletionTimeMinutes: *progress.CompletionTimeMinutes,
		CompletedAt:           now,
	}
	if err := e.completions.Record(completion); err != nil {
		return nil, err
	}
	result.Completion = completion

	prommetrics.RecordHuntCompleted(hunt.Category, hunt.Difficulty, completion.CompletionTimeMinutes)
	e.log.Info().
		Uint("user_id", userID).
		Uint("hunt_id", hunt.ID).
		Int("total_points", progress.TotalPoints).
		Int("completion_minutes", completion.CompletionTimeMinutes).
		Msg("Hunt completed")

	if e.badges != nil {
		awarded, err := e.badges.Evaluate(ctx, completion)
		if err != nil {
			return nil, err
		}
		result.Badges = awarded
	}

	return result, nil
}
