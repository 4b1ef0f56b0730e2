// Package billing exposes payment initiation and verification over HTTP.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailquest/trailquest/internal/api/middleware"
	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/service/payments"
	"github.com/trailquest/trailquest/pkg/logger"
)

// PaymentService interface for payment operations.
type PaymentService interface {
	InitiatePurchase(ctx context.Context, viewer models.Viewer, huntID uint) (*payments.Checkout, error)
	InitiateSubscription(ctx context.Context, viewer models.Viewer, plan string) (*payments.Checkout, error)
	InitiateDeployment(ctx context.Context, viewer models.Viewer, req payments.DeploymentRequest) (*payments.Checkout, error)
	Reconcile(ctx context.Context, reference string) (*payments.Result, error)
}

// Handler handles billing API requests.
type Handler struct {
	payments PaymentService
	log      *logger.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(svc PaymentService, log *logger.Logger) *Handler {
	return &Handler{payments: svc, log: log}
}

// RegisterRoutes mounts the billing endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/hunts/:id/purchase", h.PurchaseHunt)
	r.POST("/subscriptions", h.Subscribe)
	r.POST("/deploy-hunt", h.DeployHunt)
	r.GET("/verify/:reference", h.Verify)
}

// PurchaseHunt starts a one-time purchase.
// POST /api/v1/hunts/:id/purchase.
func (h *Handler) PurchaseHunt(c *gin.Context) {
	huntID, err := middleware.ParseID(c, "id")
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	checkout, err := h.payments.InitiatePurchase(c.Request.Context(), middleware.CurrentViewer(c), huntID)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

type subscribeRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// Subscribe starts a subscription payment.
// POST /api/v1/subscriptions {"plan": "monthly"}.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := middleware.BindJSON(c, &req); err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	checkout, err := h.payments.InitiateSubscription(c.Request.Context(), middleware.CurrentViewer(c), strings.ToLower(req.Plan))
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

// DeployHunt starts the deployment fee payment for a creator hunt.
// POST /api/v1/deploy-hunt {"email": "...", "huntId": 1, "amount": 50}.
func (h *Handler) DeployHunt(c *gin.Context) {
	var req payments.DeploymentRequest
	if err := middleware.BindJSON(c, &req); err != nil {
		middleware.ErrorResponse(c, err)
		return
	}
	if req.HuntID == 0 {
		middleware.ErrorResponse(c, fmt.Errorf("huntId is required: %w", apperr.ErrInvalidInput))
		return
	}

	checkout, err := h.payments.InitiateDeployment(c.Request.Context(), middleware.CurrentViewer(c), req)
	if err != nil {
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

// Verify reconciles a gateway reference. Clients poll it after checkout:
// 200 once applied, 202 while the gateway has not confirmed the payment.
// GET /api/v1/verify/:reference.
func (h *Handler) Verify(c *gin.Context) {
	reference := c.Param("reference")

	result, err := h.payments.Reconcile(c.Request.Context(), reference)
	if errors.Is(err, apperr.ErrPaymentNotConfirmed) {
		c.JSON(http.StatusAccepted, gin.H{
			"reference": reference,
			"status":    "pending",
			"code":      apperr.Code(err),
			"timestamp": time.Now().UTC(),
		})
		return
	}
	if err != nil {
		if errors.Is(err, apperr.ErrDeploymentPrecondition) {
			h.log.Warn().Err(err).Str("reference", reference).Msg("Deployment verification rejected")
		}
		middleware.ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"result": result,
	})
}
