// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for hunt play, billing and badges.
var (
	// Play counters.
	AnswersJudgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunt_answers_judged_total",
			Help: "Total answers judged, by outcome (correct, incorrect, bypassed, rejected)",
		},
		[]string{"outcome"},
	)

	HintsRevealedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hunt_hints_revealed_total",
			Help: "Total hints revealed after repeated misses",
		},
	)

	BypassOffersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hunt_bypass_offers_total",
			Help: "Total incorrect answers that offered a bypass",
		},
	)

	HuntsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunts_completed_total",
			Help: "Total hunt runs completed",
		},
		[]string{"category", "difficulty"},
	)

	// Histograms.
	HuntCompletionMinutes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hunt_completion_minutes",
			Help:    "Minutes from first attempt to completion",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8), // 5min to ~10hours
		},
		[]string{"difficulty"},
	)

	GatewayRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// Billing counters.
	PaymentsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Total payment intents created, by payment type",
		},
		[]string{"type"},
	)

	PaymentsReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_reconciled_total",
			Help: "Total payment verifications, by payment type and result",
		},
		[]string{"type", "result"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"status"},
	)

	SchedulerPendingPurchases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_pending_purchases",
			Help: "Pending purchases found by the last reconcile sweep",
		},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute the reconcile sweep",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~128s
		},
	)

	// Badge gamification metrics.
	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge_name"},
	)

	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_badge_holders",
			Help: "Current number of users holding each badge",
		},
		[]string{"badge_name"},
	)

	BadgeEvaluationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "badge_evaluation_duration_seconds",
			Help:    "Time taken to evaluate the catalog after a completion",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	// Ops alerts.
	AlertsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ops_alerts_sent_total",
			Help: "Total ops alerts posted to the webhook, by result",
		},
		[]string{"result"},
	)
)

// RecordAnswerJudged records one judged submission.
func RecordAnswerJudged(outcome string) {
	AnswersJudgedTotal.WithLabelValues(outcome).Inc()
}

// RecordHintRevealed records a hint shown to a player.
func RecordHintRevealed() {
	HintsRevealedTotal.Inc()
}

// RecordBypassOffered records an incorrect answer that unlocked the bypass.
func RecordBypassOffered() {
	BypassOffersTotal.Inc()
}

// RecordHuntCompleted records a finished run and its duration.
func RecordHuntCompleted(category, difficulty string, minutes int) {
	HuntsCompletedTotal.WithLabelValues(category, difficulty).Inc()
	HuntCompletionMinutes.WithLabelValues(difficulty).Observe(float64(minutes))
}

// ObserveGatewayRequest observes one gateway call.
func ObserveGatewayRequest(operation, status string, elapsed time.Duration) {
	GatewayRequestDurationSeconds.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// RecordPaymentInitiated records a new payment intent.
func RecordPaymentInitiated(paymentType string) {
	PaymentsInitiatedTotal.WithLabelValues(paymentType).Inc()
}

// RecordPaymentReconciled records the result of a verification.
func RecordPaymentReconciled(paymentType, result string) {
	PaymentsReconciledTotal.WithLabelValues(paymentType, result).Inc()
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(status string) {
	SchedulerJobsRunTotal.WithLabelValues(status).Inc()
}

// SetSchedulerPendingPurchases sets the number of pending purchases in the last sweep.
func SetSchedulerPendingPurchases(count int) {
	SchedulerPendingPurchases.Set(float64(count))
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun() {
	SchedulerLastRunTimestamp.SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(seconds float64) {
	SchedulerJobDurationSeconds.Observe(seconds)
}

// RecordBadgeAwarded records a badge award event.
func RecordBadgeAwarded(badgeName string) {
	BadgesAwardedTotal.WithLabelValues(badgeName).Inc()
}

// SetActiveBadgeHolders sets the number of holders for a badge.
func SetActiveBadgeHolders(badgeName string, count int) {
	ActiveBadgeHolders.WithLabelValues(badgeName).Set(float64(count))
}

// ObserveBadgeEvaluationDuration observes the duration of a badge evaluation.
func ObserveBadgeEvaluationDuration(seconds float64) {
	BadgeEvaluationDurationSeconds.Observe(seconds)
}

// RecordAlertSent records an ops alert delivery attempt.
func RecordAlertSent(result string) {
	AlertsSentTotal.WithLabelValues(result).Inc()
}
