package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/gateway"
	prommetrics "github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/notify"
	"github.com/trailquest/trailquest/internal/repository"
)

// Reconcile verifies reference with the gateway and applies the matching
// local transition. It is safe to call repeatedly for the same reference.
// A transaction the gateway has not confirmed yet fails with
// apperr.ErrPaymentNotConfirmed and changes nothing.
func (s *Service) Reconcile(ctx context.Context, reference string) (*Result, error) {
	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		prommetrics.RecordPaymentReconciled("unknown", resultError)
		return nil, err
	}

	paymentType := tx.Metadata.Type
	if !tx.Succeeded() {
		prommetrics.RecordPaymentReconciled(paymentType, resultPending)
		return nil, fmt.Errorf("transaction %s is %q: %w", reference, tx.Status, apperr.ErrPaymentNotConfirmed)
	}

	var result *Result
	switch paymentType {
	case models.PaymentTypeOneTime:
		result, err = s.reconcilePurchase(reference)
	case models.PaymentTypeSubscription:
		result, err = s.reconcileSubscription(reference, tx)
	case models.PaymentTypeDeployment:
		result, err = s.reconcileDeployment(ctx, reference, tx)
	default:
		err = fmt.Errorf("transaction %s has unknown type %q: %w", reference, paymentType, apperr.ErrInvalidInput)
	}

	switch {
	case errors.Is(err, apperr.ErrDeploymentPrecondition):
		prommetrics.RecordPaymentReconciled(paymentType, resultRejected)
	case err != nil:
		prommetrics.RecordPaymentReconciled(paymentType, resultError)
	case result.Changed:
		prommetrics.RecordPaymentReconciled(paymentType, resultApplied)
	default:
		prommetrics.RecordPaymentReconciled(paymentType, resultAlreadyApplied)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("reference", reference).
		Str("type", paymentType).
		Bool("changed", result.Changed).
		Msg("Payment reconciled")

	return result, nil
}

func (s *Service) reconcilePurchase(reference string) (*Result, error) {
	result := &Result{Reference: reference, Type: models.PaymentTypeOneTime}

	purchase, err := s.store.Billing.FindPurchaseByReference(reference)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		s.log.Warn().
			Str("reference", reference).
			Msg("Confirmed purchase has no local row, nothing to complete")
		return result, nil
	}

	changed, err := s.store.Billing.CompletePurchase(purchase.ID, s.now())
	if err != nil {
		return nil, err
	}

	purchase, err = s.store.Billing.FindPurchaseByReference(reference)
	if err != nil {
		return nil, err
	}

	result.Changed = changed
	result.Purchase = purchase
	return result, nil
}

// reconcileSubscription creates at most one subscription per reference.
func (s *Service) reconcileSubscription(reference string, tx *gateway.Transaction) (*Result, error) {
	result := &Result{Reference: reference, Type: models.PaymentTypeSubscription}

	existing, err := s.store.Billing.FindSubscriptionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result.Subscription = existing
		return result, nil
	}

	now := s.now()
	expiry, ok := models.PlanExpiry(tx.Metadata.Plan, now)
	if !ok {
		return nil, fmt.Errorf("transaction %s has unknown plan %q: %w", reference, tx.Metadata.Plan, apperr.ErrInvalidInput)
	}
	if tx.Metadata.UserID == 0 {
		return nil, fmt.Errorf("transaction %s carries no user: %w", reference, apperr.ErrInvalidInput)
	}

	sub := &models.Subscription{
		UserID:               tx.Metadata.UserID,
		Plan:                 tx.Metadata.Plan,
		Status:               models.SubscriptionStatusActive,
		ExpiryDate:           expiry,
		TransactionReference: reference,
	}
	if err := s.store.Billing.CreateSubscription(sub); err != nil {
		// A concurrent call may have won the unique reference.
		existing, findErr := s.store.Billing.FindSubscriptionByReference(reference)
		if findErr != nil || existing == nil {
			return nil, err
		}
		result.Subscription = existing
		return result, nil
	}

	result.Changed = true
	result.Subscription = sub
	return result, nil
}

func (s *Service) reconcileDeployment(ctx context.Context, reference string, tx *gateway.Transaction) (*Result, error) {
	result := &Result{Reference: reference, Type: models.PaymentTypeDeployment}
	huntID := tx.Metadata.HuntID
	payerID := tx.Metadata.UserID

	err := s.store.InTx(ctx, func(repo *repository.Store) error {
		created, err := repo.Billing.FindCreatedHunt(huntID)
		if err != nil {
			return err
		}

		if created != nil && created.IsActive() &&
			created.DeploymentReference != nil && *created.DeploymentReference == reference {
			result.CreatedHunt = created
			return nil
		}

		clues, err := repo.Hunts.CountClues(huntID)
		if err != nil {
			return err
		}
		if err := checkDeployment(created, huntID, payerID, tx.AmountPaid(), s.billing.Fee(), clues); err != nil {
			return err
		}

		now := s.now()
		created.Status = models.CreatedHuntStatusActive
		created.IsDraft = false
		created.DeployedAt = &now
		created.DeploymentReference = &reference
		if err := repo.Billing.SaveCreatedHunt(created); err != nil {
			return err
		}

		result.Changed = true
		result.CreatedHunt = created
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDeploymentPrecondition) {
			s.alertRejected(ctx, reference, tx, err)
		}
		return nil, err
	}

	if result.Changed {
		s.log.Info().
			Str("reference", reference).
			Uint("hunt_id", huntID).
			Uint("user_id", payerID).
			Msg("Hunt deployed")
	}

	return result, nil
}

// alertRejected reports captured money that could not be applied. Alert
// failures are logged and never change the reconcile outcome.
func (s *Service) alertRejected(ctx context.Context, reference string, tx *gateway.Transaction, cause error) {
	s.log.Error().
		Err(cause).
		Str("reference", reference).
		Uint("hunt_id", tx.Metadata.HuntID).
		Uint("user_id", tx.Metadata.UserID).
		Str("amount", tx.AmountPaid().StringFixed(2)).
		Msg("Confirmed deployment payment rejected, manual refund needed")

	if s.alerter == nil {
		return
	}

	err := s.alerter.DeploymentRejected(ctx, notify.DeploymentAlert{
		Reference: reference,
		HuntID:    tx.Metadata.HuntID,
		UserID:    tx.Metadata.UserID,
		Amount:    tx.AmountPaid().StringFixed(2),
		Reason:    cause.Error(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("Failed to send deployment alert")
	}
}
