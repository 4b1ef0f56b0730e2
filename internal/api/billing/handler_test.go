//nolint:noctx // Test file uses http.NewRequest for simplicity
package billing

import (
	"bytes"
	"context"
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
	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/service/payments"
	"github.com/trailquest/trailquest/pkg/logger"
)

type mockPaymentService struct {
	deployReq  payments.DeploymentRequest
	plan       string
	reconciled map[string]error
}

func (m *mockPaymentService) InitiatePurchase(ctx context.Context, viewer models.Viewer, huntID uint) (*payments.Checkout, error) {
	if huntID == 404 {
		return nil, fmt.Errorf("hunt 404: %w", apperr.ErrNotFound)
	}
	return &payments.Checkout{Reference: "hunt_1", AuthorizationURL: "https://checkout.test/hunt_1", Type: models.PaymentTypeOneTime}, nil
}

func (m *mockPaymentService) InitiateSubscription(ctx context.Context, viewer models.Viewer, plan string) (*payments.Checkout, error) {
	m.plan = plan
	return &payments.Checkout{Reference: "sub_1", Type: models.PaymentTypeSubscription}, nil
}

func (m *mockPaymentService) InitiateDeployment(ctx context.Context, viewer models.Viewer, req payments.DeploymentRequest) (*payments.Checkout, error) {
	m.deployReq = req
	if !req.Amount.Equal(decimal.NewFromInt(50)) {
		return nil, fmt.Errorf("amount: %w", apperr.ErrDeploymentPrecondition)
	}
	return &payments.Checkout{Reference: "deploy_1", Type: models.PaymentTypeDeployment}, nil
}

func (m *mockPaymentService) Reconcile(ctx context.Context, reference string) (*payments.Result, error) {
	if err := m.reconciled[reference]; err != nil {
		return nil, err
	}
	return &payments.Result{Reference: reference, Type: models.PaymentTypeOneTime, Changed: true}, nil
}

func setupRouter() (*gin.Engine, *mockPaymentService) {
	gin.SetMode(gin.TestMode)
	svc := &mockPaymentService{reconciled: map[string]error{
		"pending_ref": fmt.Errorf("ongoing: %w", apperr.ErrPaymentNotConfirmed),
		"short_ref":   fmt.Errorf("amount 40.00: %w", apperr.ErrDeploymentPrecondition),
		"down_ref":    fmt.Errorf("verify: %w", apperr.ErrGatewayUnavailable),
	}}

	router := gin.New()
	NewHandler(svc, logger.Nop()).RegisterRoutes(router.Group("/api/v1", middleware.SetViewer(models.Viewer{UserID: 7, Email: "c@example.com"})))
	return router, svc
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPurchaseHunt(t *testing.T) {
	router, _ := setupRouter()

	w := do(router, http.MethodPost, "/api/v1/hunts/3/purchase", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "https://checkout.test/hunt_1")

	w = do(router, http.MethodPost, "/api/v1/hunts/404/purchase", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribe(t *testing.T) {
	router, svc := setupRouter()

	w := do(router, http.MethodPost, "/api/v1/subscriptions", `{"plan":"Monthly"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.PlanMonthly, svc.plan)

	w = do(router, http.MethodPost, "/api/v1/subscriptions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeployHunt(t *testing.T) {
	router, svc := setupRouter()

	w := do(router, http.MethodPost, "/api/v1/deploy-hunt", `{"email":"c@example.com","huntId":12,"amount":50}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, uint(12), svc.deployReq.HuntID)

	w = do(router, http.MethodPost, "/api/v1/deploy-hunt", `{"email":"c@example.com","huntId":12,"amount":"40.00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/deploy-hunt", `{"amount":50}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/deploy-hunt", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerify(t *testing.T) {
	router, _ := setupRouter()

	tests := []struct {
		reference string
		status    int
		code      string
	}{
		{"hunt_ok", http.StatusOK, ""},
		{"pending_ref", http.StatusAccepted, "payment_not_confirmed"},
		{"short_ref", http.StatusBadRequest, "deployment_precondition_failed"},
		{"down_ref", http.StatusBadGateway, "gateway_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.reference, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/v1/verify/"+tt.reference, "")
			assert.Equal(t, tt.status, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if tt.code == "" {
				assert.Equal(t, "success", resp["status"])
				return
			}
			assert.Equal(t, tt.code, resp["code"])
		})
	}
}
