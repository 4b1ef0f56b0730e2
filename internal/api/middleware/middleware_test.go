//nolint:noctx // Test file uses http.NewRequest for simplicity
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/pkg/logger"
	"github.com/trailquest/trailquest/test/mocks"
)

const (
	testSecret = "test-secret"
	testIssuer = "trailquest-test"
)

func setupAuthRouter(users UserEnsurer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", Auth(testSecret, testIssuer, users, logger.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, CurrentViewer(c))
	})
	return router
}

func request(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenRoundTrip(t *testing.T) {
	viewer := models.Viewer{UserID: 7, Email: "ada@example.com", IsAdmin: true}

	token, err := IssueToken(testSecret, testIssuer, viewer, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(testSecret, testIssuer, token)
	require.NoError(t, err)
	assert.Equal(t, viewer, got)

	_, err = ParseToken("other-secret", testIssuer, token)
	assert.Error(t, err)

	_, err = ParseToken(testSecret, "someone-else", token)
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	users := mocks.NewMockUserRepository()
	router := setupAuthRouter(users)

	valid, err := IssueToken(testSecret, testIssuer, models.Viewer{UserID: 3, Email: "u3@example.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, testIssuer, models.Viewer{UserID: 3}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing bearer token"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "missing bearer token"},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, "invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(router, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantError != "" {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantError, body["error"])
				assert.Equal(t, "unauthorized", body["code"])
			}
		})
	}

	require.Len(t, users.Ensured, 1, "only the valid token reaches the user store")
	assert.Equal(t, uint(3), users.Ensured[0].UserID)
}

func TestAuth_EnsureFailure(t *testing.T) {
	users := mocks.NewMockUserRepository()
	users.EnsureFunc = func(models.Viewer) (*models.User, error) {
		return nil, errors.New("connection refused")
	}
	router := setupAuthRouter(users)

	token, err := IssueToken(testSecret, testIssuer, models.Viewer{UserID: 3}, time.Hour)
	require.NoError(t, err)

	w := request(router, "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("hunt 9: %w", apperr.ErrAccessDenied), http.StatusForbidden, "access_denied"},
		{fmt.Errorf("verify: %w", apperr.ErrGatewayUnavailable), http.StatusBadGateway, "gateway_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			} else {
				assert.Equal(t, tt.err.Error(), body["error"])
			}
		})
	}
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "id", Value: raw}}

		id, err := ParseID(c, "id")
		if ok {
			require.NoError(t, err, raw)
			assert.Equal(t, uint(12), id)
		} else {
			assert.True(t, errors.Is(err, apperr.ErrInvalidInput), raw)
		}
	}
}
