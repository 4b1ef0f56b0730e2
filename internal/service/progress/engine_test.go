package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/internal/service/badges"
	"github.com/trailquest/trailquest/internal/testutil"
	"github.com/trailquest/trailquest/pkg/logger"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEngine(t *testing.T, st *repository.Store, withBadges bool) (*Engine, *fixedClock) {
	t.Helper()

	var badgeSvc *badges.Service
	if withBadges {
		badgeSvc = badges.NewService(st, logger.Nop())
		_, err := badgeSvc.SeedCatalog(context.Background())
		require.NoError(t, err)
	}

	clock := &fixedClock{t: time.Now()}
	engine := NewEngine(st, badgeSvc, logger.Nop())
	engine.SetClock(clock.now)
	return engine, clock
}

// answer runs one advance the way the judge does: lock, check, advance, in one transaction.
func answer(t *testing.T, st *repository.Store, engine *Engine, userID uint, hunt *models.Hunt, clue *models.Clue, points int) (*Result, error) {
	t.Helper()

	var result *Result
	err := st.InTx(context.Background(), func(tx *repository.Store) error {
		bound := engine.Bind(tx)
		progress, err := bound.Lock(context.Background(), userID, hunt.ID)
		if err != nil {
			return err
		}
		if err := bound.CheckSequence(progress, clue); err != nil {
			return err
		}
		result, err = bound.Advance(context.Background(), userID, hunt, clue, points, progress)
		return err
	})
	return result, err
}

func TestAdvance_TwoClueScenario(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100, 150})
	engine, clock := newEngine(t, st, false)

	result, err := answer(t, st, engine, 1, hunt, &hunt.Clues[0], 100)
	require.NoError(t, err)
	assert.False(t, result.Completed())
	assert.Equal(t, 100, result.Progress.TotalPoints)
	require.NotNil(t, result.NextClue)
	assert.Equal(t, hunt.Clues[1].ID, result.NextClue.ID)
	assert.Equal(t, models.InProgress{CurrentClueID: hunt.Clues[1].ID}, result.Progress.State(),
		"a new progress row already points at the next clue")

	clock.advance(37 * time.Minute)

	result, err = answer(t, st, engine, 1, hunt, &hunt.Clues[1], 150)
	require.NoError(t, err)
	assert.True(t, result.Completed())
	assert.Equal(t, 250, result.Progress.TotalPoints)
	assert.Nil(t, result.Progress.CurrentClueID)
	require.NotNil(t, result.Progress.CompletionTimeMinutes)
	assert.Equal(t, 37, *result.Progress.CompletionTimeMinutes)
	assert.Equal(t, 250, result.Completion.TotalPoints)

	stored, err := engine.Get(context.Background(), 1, hunt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.Equal(t, 250, stored.TotalPoints)
}

func TestAdvance_SingleClueCompletesImmediately(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{80})
	engine, _ := newEngine(t, st, false)

	result, err := answer(t, st, engine, 1, hunt, &hunt.Clues[0], 80)
	require.NoError(t, err)
	assert.True(t, result.Completed())
	assert.Equal(t, 80, result.Progress.TotalPoints)
	assert.Equal(t, 0, *result.Progress.CompletionTimeMinutes)
}

func TestAdvance_SumsAllPoints(t *testing.T) {
	points := []int{100, 50, 200, 75, 125}
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, points)
	engine, _ := newEngine(t, st, false)

	var (
		result *Result
		err    error
		sum    int
	)
	for i := range hunt.Clues {
		result, err = answer(t, st, engine, 7, hunt, &hunt.Clues[i], points[i])
		require.NoError(t, err)
		sum += points[i]
		assert.Equal(t, sum, result.Progress.TotalPoints)
		assert.Equal(t, i == len(points)-1, result.Completed())
	}

	assert.Equal(t, models.Completed{
		CompletedAt:           *result.Progress.CompletedAt,
		CompletionTimeMinutes: 0,
	}, result.Progress.State())
}

func TestAdvance_ZeroPointsForBypass(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100, 100})
	engine, _ := newEngine(t, st, false)

	result, err := answer(t, st, engine, 1, hunt, &hunt.Clues[0], 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Progress.TotalPoints)
}

func TestAdvance_StartedAtUsesFirstAttempt(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100, 100})
	engine, clock := newEngine(t, st, false)

	attempt, err := st.Attempts.IncrementIncorrect(1, hunt.ID, hunt.Clues[0].ID)
	require.NoError(t, err)

	clock.t = attempt.CreatedAt.Add(10 * time.Minute)
	result, err := answer(t, st, engine, 1, hunt, &hunt.Clues[0], 100)
	require.NoError(t, err)
	assert.True(t, result.Progress.StartedAt.Equal(attempt.CreatedAt))

	clock.advance(5 * time.Minute)
	result, err = answer(t, st, engine, 1, hunt, &hunt.Clues[1], 100)
	require.NoError(t, err)
	assert.Equal(t, 15, *result.Progress.CompletionTimeMinutes)
}

func TestCheckSequence(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100, 100, 100})
	engine, _ := newEngine(t, st, false)

	_, err := answer(t, st, engine, 1, hunt, &hunt.Clues[1], 100)
	assert.True(t, errors.Is(err, apperr.ErrOutOfSequence), "cannot start at clue 2")

	_, err = answer(t, st, engine, 1, hunt, &hunt.Clues[0], 100)
	require.NoError(t, err)

	_, err = answer(t, st, engine, 1, hunt, &hunt.Clues[0], 100)
	assert.True(t, errors.Is(err, apperr.ErrOutOfSequence), "clue 1 cannot be scored twice")

	_, err = answer(t, st, engine, 1, hunt, &hunt.Clues[2], 100)
	assert.True(t, errors.Is(err, apperr.ErrOutOfSequence), "clue 3 is not current yet")

	_, err = answer(t, st, engine, 1, hunt, &hunt.Clues[1], 100)
	require.NoError(t, err)
	_, err = answer(t, st, engine, 1, hunt, &hunt.Clues[2], 100)
	require.NoError(t, err)

	_, err = answer(t, st, engine, 1, hunt, &hunt.Clues[2], 100)
	assert.True(t, errors.Is(err, apperr.ErrOutOfSequence), "completed hunts accept nothing")

	progress, err := engine.Get(context.Background(), 1, hunt.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, progress.TotalPoints)
}

func TestAdvance_CompletionAwardsBadges(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100}, testutil.WithCategory("History", "Hard"))
	engine, _ := newEngine(t, st, true)

	result, err := answer(t, st, engine, 1, hunt, &hunt.Clues[0], 100)
	require.NoError(t, err)
	require.True(t, result.Completed())

	var earned []string
	for _, b := range result.Badges {
		earned = append(earned, b.Name)
	}
	assert.ElementsMatch(t, []string{"Navigator", "Speed Hunter", "Adventure Master"}, earned)

	completions, err := st.Completions.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, result.Progress.ID, completions[0].ProgressID)
}

func TestAdvance_RollbackLeavesNoProgress(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100, 100})
	engine, _ := newEngine(t, st, false)

	err := st.InTx(context.Background(), func(tx *repository.Store) error {
		if _, err := engine.Bind(tx).Advance(context.Background(), 1, hunt, &hunt.Clues[0], 100, nil); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	progress, err := engine.Get(context.Background(), 1, hunt.ID)
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestAdvance_ForeignClue(t *testing.T) {
	st := testutil.NewStore(t)
	hunt := testutil.SeedHunt(t, st, []int{100})
	other := testutil.SeedHunt(t, st, []int{100})
	engine, _ := newEngine(t, st, false)

	_, err := engine.Advance(context.Background(), 1, hunt, &other.Clues[0], 100, nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
