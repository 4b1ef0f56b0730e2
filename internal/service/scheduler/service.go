// Package scheduler runs the periodic sweep that reconciles abandoned payment polls.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/config"
	prommetrics "github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/service/payments"
	"github.com/trailquest/trailquest/pkg/logger"
)

// PendingLister lists purchases still waiting for confirmation.
type PendingLister interface {
	ListPendingPurchases(from, to time.Time, limit int) ([]models.Purchase, error)
}

// Reconciler applies a confirmed gateway transaction.
type Reconciler interface {
	Reconcile(ctx context.Context, reference string) (*payments.Result, error)
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Checked   int
	Completed int
	Pending   int
	Failed    int
}

// Service handles the reconcile sweep schedule.
type Service struct {
	config     config.SchedulerConfig
	purchases  PendingLister
	reconciler Reconciler
	log        *logger.Logger
	cron       *cron.Cron
	now        func() time.Time
}

// NewService creates a new scheduler service.
func NewService(cfg config.SchedulerConfig, purchases PendingLister, reconciler Reconciler, log *logger.Logger) *Service {
	return &Service{
		config:     cfg,
		purchases:  purchases,
		reconciler: reconciler,
		log:        log,
		now:        time.Now,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	_, err = s.cron.AddFunc(s.config.ReconcileCron, func() {
		s.runReconcileSweep(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register reconcile job %q: %w", s.config.ReconcileCron, err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", s.config.ReconcileCron).
		Str("timezone", s.config.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running sweep.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

func (s *Service) runReconcileSweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun()
	}()

	stats, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Reconcile sweep failed")
		prommetrics.RecordSchedulerJobRun("error")
		return
	}

	prommetrics.RecordSchedulerJobRun("success")
	s.log.Info().
		Int("checked", stats.Checked).
		Int("completed", stats.Completed).
		Int("pending", stats.Pending).
		Int("failed", stats.Failed).
		Dur("duration", time.Since(start)).
		Msg("Reconcile sweep finished")
}

// Sweep reconciles pending purchases older than the minimum age and younger
// than the maximum age. Young rows are left to the payer's own poll and old
// ones are considered abandoned.
func (s *Service) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	now := s.now()
	from := now.Add(-time.Duration(s.config.PendingMaxAge) * time.Minute)
	to := now.Add(-time.Duration(s.config.PendingMinAge) * time.Minute)

	pending, err := s.purchases.ListPendingPurchases(from, to, s.config.MaxPerSweep)
	if err != nil {
		return stats, err
	}
	prommetrics.SetSchedulerPendingPurchases(len(pending))

	for _, purchase := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++

		result, err := s.reconciler.Reconcile(ctx, purchase.TransactionReference)
		switch {
		case err == nil:
			if result.Changed {
				stats.Completed++
			}
		case errors.Is(err, apperr.ErrPaymentNotConfirmed), errors.Is(err, apperr.ErrNotFound):
			stats.Pending++
		default:
			stats.Failed++
			s.log.Warn().
				Err(err).
				Str("reference", purchase.TransactionReference).
				Uint("purchase_id", purchase.ID).
				Msg("Failed to reconcile pending purchase")
		}
	}

	return stats, nil
}
