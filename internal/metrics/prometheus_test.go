package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAnswerJudged(t *testing.T) {
	// Reset the counter before test
	AnswersJudgedTotal.Reset()

	RecordAnswerJudged("correct")
	RecordAnswerJudged("correct")
	RecordAnswerJudged("incorrect")

	count := testutil.ToFloat64(AnswersJudgedTotal.WithLabelValues("correct"))
	if count != 2 {
		t.Errorf("Expected correct count = 2, got %f", count)
	}

	count = testutil.ToFloat64(AnswersJudgedTotal.WithLabelValues("incorrect"))
	if count != 1 {
		t.Errorf("Expected incorrect count = 1, got %f", count)
	}
}

func TestRecordHintAndBypass(t *testing.T) {
	hintsBefore := testutil.ToFloat64(HintsRevealedTotal)
	bypassBefore := testutil.ToFloat64(BypassOffersTotal)

	RecordHintRevealed()
	RecordBypassOffered()
	RecordBypassOffered()

	if got := testutil.ToFloat64(HintsRevealedTotal) - hintsBefore; got != 1 {
		t.Errorf("Expected 1 hint revealed, got %f", got)
	}
	if got := testutil.ToFloat64(BypassOffersTotal) - bypassBefore; got != 2 {
		t.Errorf("Expected 2 bypass offers, got %f", got)
	}
}

func TestRecordHuntCompleted(t *testing.T) {
	HuntsCompletedTotal.Reset()
	HuntCompletionMinutes.Reset()

	RecordHuntCompleted("History", "Easy", 42)

	count := testutil.ToFloat64(HuntsCompletedTotal.WithLabelValues("History", "Easy"))
	if count != 1 {
		t.Errorf("Expected completed count = 1, got %f", count)
	}

	if n := testutil.CollectAndCount(HuntCompletionMinutes); n != 1 {
		t.Errorf("Expected 1 histogram series, got %d", n)
	}
}

func TestPaymentMetrics(t *testing.T) {
	PaymentsInitiatedTotal.Reset()
	PaymentsReconciledTotal.Reset()
	GatewayRequestDurationSeconds.Reset()

	RecordPaymentInitiated("one-time")
	RecordPaymentReconciled("one-time", "completed")
	RecordPaymentReconciled("deployment", "precondition_failed")
	ObserveGatewayRequest("verify", "ok", 120*time.Millisecond)

	if got := testutil.ToFloat64(PaymentsInitiatedTotal.WithLabelValues("one-time")); got != 1 {
		t.Errorf("Expected 1 initiated payment, got %f", got)
	}
	if got := testutil.ToFloat64(PaymentsReconciledTotal.WithLabelValues("deployment", "precondition_failed")); got != 1 {
		t.Errorf("Expected 1 failed deployment, got %f", got)
	}
	if n := testutil.CollectAndCount(GatewayRequestDurationSeconds); n != 1 {
		t.Errorf("Expected 1 gateway histogram series, got %d", n)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	SchedulerJobsRunTotal.Reset()

	RecordSchedulerJobRun("success")
	SetSchedulerPendingPurchases(4)
	SetSchedulerLastRun()
	ObserveSchedulerJobDuration(1.5)

	if got := testutil.ToFloat64(SchedulerJobsRunTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 successful run, got %f", got)
	}
	if got := testutil.ToFloat64(SchedulerPendingPurchases); got != 4 {
		t.Errorf("Expected 4 pending purchases, got %f", got)
	}
	if got := testutil.ToFloat64(SchedulerLastRunTimestamp); got <= 0 {
		t.Errorf("Expected last run timestamp to be set, got %f", got)
	}
}

func TestBadgeMetrics(t *testing.T) {
	BadgesAwardedTotal.Reset()

	RecordBadgeAwarded("Navigator")
	SetActiveBadgeHolders("Navigator", 3)
	ObserveBadgeEvaluationDuration(0.01)

	if got := testutil.ToFloat64(BadgesAwardedTotal.WithLabelValues("Navigator")); got != 1 {
		t.Errorf("Expected 1 Navigator award, got %f", got)
	}
	if got := testutil.ToFloat64(ActiveBadgeHolders.WithLabelValues("Navigator")); got != 3 {
		t.Errorf("Expected 3 holders, got %f", got)
	}
}

func TestMetricsRegistered(t *testing.T) {
	RecordAlertSent("ok")

	collectors := []prometheus.Collector{
		AnswersJudgedTotal,
		HintsRevealedTotal,
		BypassOffersTotal,
		HuntsCompletedTotal,
		PaymentsReconciledTotal,
		BadgesAwardedTotal,
		AlertsSentTotal,
	}
	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err == nil {
			t.Errorf("Expected collector to be registered already")
		}
	}
}
