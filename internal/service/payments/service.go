// Package payments starts gateway transactions and reconciles their confirmations
// into purchases, subscriptions and hunt deployments.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/config"
	"github.com/trailquest/trailquest/internal/gateway"
	prommetrics "github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/notify"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/pkg/logger"
)

// Reconcile outcomes reported to metrics.
const (
	resultApplied        = "applied"
	resultAlreadyApplied = "already_applied"
	resultPending        = "pending"
	resultRejected       = "rejected"
	resultError          = "error"
)

// Checkout is a started transaction the payer must complete at AuthorizationURL.
type Checkout struct {
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorizationUrl"`
	Amount           decimal.Decimal `json:"amount"`
	Type             string          `json:"type"`
}

// DeploymentRequest asks to pay for deploying a creator hunt.
type DeploymentRequest struct {
	Email  string          `json:"email"`
	HuntID uint            `json:"huntId"`
	Amount decimal.Decimal `json:"amount"`
}

// Result is the local state after a successful reconciliation.
// Changed is false when an earlier call already applied the transition.
type Result struct {
	Reference    string                  `json:"reference"`
	Type         string                  `json:"type"`
	Changed      bool                    `json:"changed"`
	Purchase     *models.Purchase        `json:"purchase,omitempty"`
	Subscription *models.Subscription    `json:"subscription,omitempty"`
	CreatedHunt  *models.UserCreatedHunt `json:"createdHunt,omitempty"`
}

// Service owns the payment intent state machine.
type Service struct {
	store   *repository.Store
	gateway gateway.Gateway
	alerter notify.Alerter
	billing config.BillingConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates a payment service. alerter may be nil.
func NewService(
	store *repository.Store,
	gw gateway.Gateway,
	alerter notify.Alerter,
	billing config.BillingConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		store:   store,
		gateway: gw,
		alerter: alerter,
		billing: billing,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func newReference(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// InitiatePurchase records a pending purchase of a priced hunt and starts the transaction.
func (s *Service) InitiatePurchase(ctx context.Context, viewer models.Viewer, huntID uint) (*Checkout, error) {
	hunt, err := s.store.Hunts.GetByID(huntID)
	if err != nil {
		return nil, err
	}
	if hunt.IsFree() {
		return nil, fmt.Errorf("hunt %d is free: %w", huntID, apperr.ErrInvalidInput)
	}

	existing, err := s.store.Billing.GetUserPurchase(viewer.UserID, huntID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsCompleted() {
		return nil, fmt.Errorf("user %d already owns hunt %d: %w", viewer.UserID, huntID, apperr.ErrConflict)
	}

	purchase := &models.Purchase{
		UserID:               viewer.UserID,
		HuntID:               huntID,
		AmountPaid:           hunt.Price,
		PaymentStatus:        models.PaymentStatusPending,
		TransactionReference: newReference("hunt"),
	}
	if err := s.store.Billing.CreatePurchase(purchase); err != nil {
		return nil, err
	}

	return s.initialize(ctx, viewer.Email, hunt.Price, purchase.TransactionReference, gateway.Metadata{
		Type:   models.PaymentTypeOneTime,
		UserID: viewer.UserID,
		HuntID: huntID,
	})
}

// InitiateSubscription starts a subscription transaction. Nothing is stored
// locally until the gateway confirms it.
func (s *Service) InitiateSubscription(ctx context.Context, viewer models.Viewer, plan string) (*Checkout, error) {
	price, err := s.billing.PlanPrice(plan)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}

	return s.initialize(ctx, viewer.Email, price, newReference("sub"), gateway.Metadata{
		Type:   models.PaymentTypeSubscription,
		UserID: viewer.UserID,
		Plan:   plan,
	})
}

// InitiateDeployment validates a creator hunt for deployment and starts the fee transaction.
func (s *Service) InitiateDeployment(ctx context.Context, viewer models.Viewer, req DeploymentRequest) (*Checkout, error) {
	created, err := s.store.Billing.FindCreatedHunt(req.HuntID)
	if err != nil {
		return nil, err
	}
	clues, err := s.store.Hunts.CountClues(req.HuntID)
	if err != nil {
		return nil, err
	}
	if err := checkDeployment(created, req.HuntID, viewer.UserID, req.Amount, s.billing.Fee(), clues); err != nil {
		return nil, err
	}

	email := req.Email
	if email == "" {
		email = viewer.Email
	}

	return s.initialize(ctx, email, s.billing.Fee(), newReference("deploy"), gateway.Metadata{
		Type:   models.PaymentTypeDeployment,
		UserID: viewer.UserID,
		HuntID: req.HuntID,
	})
}

func (s *Service) initialize(ctx context.Context, email string, amount decimal.Decimal, reference string, meta gateway.Metadata) (*Checkout, error) {
	auth, err := s.gateway.Initialize(ctx, gateway.InitializeRequest{
		Email:     email,
		Amount:    amount,
		Reference: reference,
		Metadata:  meta,
	})
	if err != nil {
		return nil, err
	}

	prommetrics.RecordPaymentInitiated(meta.Type)
	s.log.Info().
		Str("reference", reference).
		Str("type", meta.Type).
		Uint("user_id", meta.UserID).
		Str("amount", amount.StringFixed(2)).
		Msg("Payment initiated")

	return &Checkout{
		Reference:        reference,
		AuthorizationURL: auth.AuthorizationURL,
		Amount:           amount,
		Type:             meta.Type,
	}, nil
}

// checkDeployment is the deployment predicate evaluated both when the
// transaction starts and again when the gateway confirms it.
func checkDeployment(created *models.UserCreatedHunt, huntID, payerID uint, amount, fee decimal.Decimal, clueCount int64) error {
	switch {
	case created == nil:
		return fmt.Errorf("hunt %d is not a creator hunt: %w", huntID, apperr.ErrDeploymentPrecondition)
	case created.CreatorID != payerID:
		return fmt.Errorf("hunt %d is not owned by user %d: %w", huntID, payerID, apperr.ErrDeploymentPrecondition)
	case created.IsActive():
		return fmt.Errorf("hunt %d is already deployed: %w", huntID, apperr.ErrDeploymentPrecondition)
	case clueCount < 1:
		return fmt.Errorf("hunt %d has no clues: %w", huntID, apperr.ErrDeploymentPrecondition)
	case !amount.Equal(fee):
		return fmt.Errorf("amount %s does not match deployment fee %s: %w",
			amount.StringFixed(2), fee.StringFixed(2), apperr.ErrDeploymentPrecondition)
	}
	return nil
}
