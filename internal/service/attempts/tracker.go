// Package attempts tracks incorrect answers, hint reveals and bypasses per user and clue.
package attempts

import (
	"context"

	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/pkg/logger"
)

// AttemptRepository interface for attempt operations.
type AttemptRepository interface {
	Find(userID, clueID uint) (*models.ClueAttempt, error)
	IncrementIncorrect(userID, huntID, clueID uint) (*models.ClueAttempt, error)
	SetHintViewed(userID, huntID, clueID uint) (*models.ClueAttempt, error)
	SetBypassed(userID, huntID, clueID uint) (*models.ClueAttempt, error)
}

// Key identifies one user's attempts on one clue.
type Key struct {
	UserID uint
	HuntID uint
	ClueID uint
}

// Tracker records attempt state. Counters only ever grow and flags only ever get set.
type Tracker struct {
	repo AttemptRepository
	log  *logger.Logger
}

// NewTracker creates a tracker over the store.
func NewTracker(store *repository.Store, log *logger.Logger) *Tracker {
	return NewTrackerWithInterfaces(store.Attempts, log)
}

// NewTrackerWithInterfaces creates a tracker with interface dependencies (useful for testing).
func NewTrackerWithInterfaces(repo AttemptRepository, log *logger.Logger) *Tracker {
	return &Tracker{repo: repo, log: log}
}

// Bind returns a tracker that reads and writes through tx.
func (t *Tracker) Bind(tx *repository.Store) *Tracker {
	return &Tracker{repo: tx.Attempts, log: t.log}
}

// State returns the attempt row, or a zero row when the user never missed the clue.
//
//nolint:revive // ctx reserved for future context-aware operations
func (t *Tracker) State(ctx context.Context, key Key) (*models.ClueAttempt, error) {
	attempt, err := t.repo.Find(key.UserID, key.ClueID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return &models.ClueAttempt{UserID: key.UserID, HuntID: key.HuntID, ClueID: key.ClueID}, nil
	}
	return attempt, nil
}

// RecordIncorrect adds one miss and returns the updated row.
//
//nolint:revive // ctx reserved for future context-aware operations
func (t *Tracker) RecordIncorrect(ctx context.Context, key Key) (*models.ClueAttempt, error) {
	attempt, err := t.repo.IncrementIncorrect(key.UserID, key.HuntID, key.ClueID)
	if err != nil {
		return nil, err
	}

	t.log.Debug().
		Uint("user_id", key.UserID).
		Uint("clue_id", key.ClueID).
		Int("incorrect_attempts", attempt.IncorrectAttempts).
		Msg("Recorded incorrect answer")

	return attempt, nil
}

// MarkHintViewed flags the hint as revealed. Calling it again is a no-op.
//
//nolint:revive // ctx reserved for future context-aware operations
func (t *Tracker) MarkHintViewed(ctx context.Context, key Key) (*models.ClueAttempt, error) {
	return t.repo.SetHintViewed(key.UserID, key.HuntID, key.ClueID)
}

// MarkBypassed flags the clue as skipped. Calling it again is a no-op.
//
//nolint:revive // ctx reserved for future context-aware operations
func (t *Tracker) MarkBypassed(ctx context.Context, key Key) (*models.ClueAttempt, error) {
	attempt, err := t.repo.SetBypassed(key.UserID, key.HuntID, key.ClueID)
	if err != nil {
		return nil, err
	}

	t.log.Info().
		Uint("user_id", key.UserID).
		Uint("hunt_id", key.HuntID).
		Uint("clue_id", key.ClueID).
		Msg("Clue bypassed")

	return attempt, nil
}
