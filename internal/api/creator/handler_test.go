//nolint:noctx // Test file uses http.NewRequest for simplicity
package creator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailquest/trailquest/internal/api/middleware"
	"github.com/trailquest/trailquest/internal/models"
	creatorsvc "github.com/trailquest/trailquest/internal/service/creator"
	"github.com/trailquest/trailquest/internal/testutil"
	"github.com/trailquest/trailquest/pkg/logger"
)

func setupRouter(t *testing.T, viewer models.Viewer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := testutil.NewStore(t)
	svc := creatorsvc.NewService(st, decimal.NewFromInt(50), logger.Nop())

	router := gin.New()
	NewHandler(svc, logger.Nop()).RegisterRoutes(router.Group("/api/v1", middleware.SetViewer(viewer)))
	return router
}

func do(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthoringFlow(t *testing.T) {
	router := setupRouter(t, models.Viewer{UserID: 3})

	w := do(router, "/api/v1/created-hunts", `{"title":"Market Walk","category":"Food","price":"0"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.UserCreatedHunt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.CreatedHuntStatusDraft, created.Status)

	w = do(router, fmt.Sprintf("/api/v1/created-hunts/%d/clues", created.HuntID), `{"answer":"spice stall","points":120}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var clue models.Clue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clue))
	assert.Equal(t, 1, clue.Order)
	assert.Equal(t, 120, clue.Points)

	w = do(router, fmt.Sprintf("/api/v1/created-hunts/%d/finalize", created.HuntID), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.False(t, created.IsDraft)
	assert.Equal(t, models.CreatedHuntStatusDraft, created.Status)
}

func TestAuthoringErrors(t *testing.T) {
	router := setupRouter(t, models.Viewer{UserID: 3})

	assert.Equal(t, http.StatusBadRequest, do(router, "/api/v1/created-hunts", `{"title":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "/api/v1/created-hunts", `{`).Code)
	assert.Equal(t, http.StatusNotFound, do(router, "/api/v1/created-hunts/77/clues", `{"answer":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "/api/v1/created-hunts/x/finalize", "").Code)
}
