package creator

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/testutil"
	"github.com/trailquest/trailquest/pkg/logger"
)

func TestCreateDraft(t *testing.T) {
	st := testutil.NewStore(t)
	svc := NewService(st, decimal.NewFromInt(50), logger.Nop())
	viewer := testutil.SeedUser(t, st, 3, false)

	created, err := svc.CreateDraft(context.Background(), viewer, DraftRequest{
		Title:    "Nairobi's Urban Canvas",
		Category: "Art",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CreatedHuntStatusDraft, created.Status)
	assert.True(t, created.IsDraft)
	assert.True(t, decimal.NewFromInt(50).Equal(created.DeploymentPrice))
	assert.Equal(t, "nairobis-urban-canvas", created.Hunt.Slug)
	assert.Equal(t, uint(3), *created.Hunt.CreatorID)

	again, err := svc.CreateDraft(context.Background(), viewer, DraftRequest{Title: "Nairobi's Urban Canvas"})
	require.NoError(t, err)
	assert.Equal(t, "nairobis-urban-canvas-2", again.Hunt.Slug)
}

func TestCreateDraft_Validation(t *testing.T) {
	st := testutil.NewStore(t)
	svc := NewService(st, decimal.NewFromInt(50), logger.Nop())
	viewer := testutil.SeedUser(t, st, 3, false)

	_, err := svc.CreateDraft(context.Background(), viewer, DraftRequest{Title: "  "})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.CreateDraft(context.Background(), viewer, DraftRequest{Title: "Cheap", Price: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestAddClue(t *testing.T) {
	st := testutil.NewStore(t)
	svc := NewService(st, decimal.NewFromInt(50), logger.Nop())
	owner := testutil.SeedUser(t, st, 3, false)
	other := testutil.SeedUser(t, st, 4, false)

	created, err := svc.CreateDraft(context.Background(), owner, DraftRequest{Title: "Old Town"})
	require.NoError(t, err)

	first, err := svc.AddClue(context.Background(), owner, created.HuntID, ClueRequest{Answer: " clock tower "})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, models.DefaultCluePoints, first.Points)
	assert.Equal(t, "clock tower", first.Answer)

	second, err := svc.AddClue(context.Background(), owner, created.HuntID, ClueRequest{Answer: "fountain", Points: 150})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Order)
	assert.Equal(t, 150, second.Points)

	_, err = svc.AddClue(context.Background(), other, created.HuntID, ClueRequest{Answer: "x"})
	assert.True(t, errors.Is(err, apperr.ErrAccessDenied))

	_, err = svc.AddClue(context.Background(), owner, created.HuntID, ClueRequest{Answer: ""})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.AddClue(context.Background(), owner, 999, ClueRequest{Answer: "x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAddClue_DeployedHuntIsFrozen(t *testing.T) {
	st := testutil.NewStore(t)
	svc := NewService(st, decimal.NewFromInt(50), logger.Nop())
	owner := testutil.SeedUser(t, st, 3, false)

	created, err := svc.CreateDraft(context.Background(), owner, DraftRequest{Title: "Live"})
	require.NoError(t, err)
	created.Status = models.CreatedHuntStatusActive
	require.NoError(t, st.Billing.SaveCreatedHunt(created))

	_, err = svc.AddClue(context.Background(), owner, created.HuntID, ClueRequest{Answer: "x"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestFinalize_OnlyTogglesDraftFlag(t *testing.T) {
	st := testutil.NewStore(t)
	svc := NewService(st, decimal.NewFromInt(50), logger.Nop())
	owner := testutil.SeedUser(t, st, 3, false)

	created, err := svc.CreateDraft(context.Background(), owner, DraftRequest{Title: "Riverside"})
	require.NoError(t, err)

	finalized, err := svc.Finalize(context.Background(), owner, created.HuntID)
	require.NoError(t, err)
	assert.False(t, finalized.IsDraft)
	assert.Equal(t, models.CreatedHuntStatusDraft, finalized.Status, "finalizing never deploys")
	assert.Nil(t, finalized.DeployedAt)

	_, err = svc.Finalize(context.Background(), owner, created.HuntID)
	require.NoError(t, err)
}
