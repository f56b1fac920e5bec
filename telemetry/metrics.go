// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	WebhookDeliveries    *prometheus.CounterVec // by message type
	EventsDropped        *prometheus.CounterVec // by reason: self_message, no_session
	ScoreOutcomes        *prometheus.CounterVec // by outcome: created, incremented, rate_limited
	SignatureRejections  prometheus.Counter
	EnrichmentFailures   prometheus.Counter
	SubscriptionsCreated prometheus.Counter

	// Histograms (seconds)
	WebhookHandleDuration prometheus.Observer
	RankingDuration       prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{Name: "leaderboard_webhook_deliveries_total", Help: "EventSub deliveries received, by message type"}, []string{"type"})
		EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "leaderboard_events_dropped_total", Help: "Chat events dropped without accrual, by reason"}, []string{"reason"})
		ScoreOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "leaderboard_score_outcomes_total", Help: "Score upsert outcomes"}, []string{"outcome"})
		SignatureRejections = promauto.NewCounter(prometheus.CounterOpts{Name: "leaderboard_signature_rejections_total", Help: "Webhook deliveries rejected for bad signatures"})
		EnrichmentFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "leaderboard_enrichment_failures_total", Help: "Leaderboard rows whose profile lookup failed"})
		SubscriptionsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "leaderboard_subscriptions_created_total", Help: "EventSub subscriptions registered"})
		WebhookHandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "leaderboard_webhook_handle_duration_seconds", Help: "Webhook handling duration seconds", Buckets: prometheus.DefBuckets})
		RankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "leaderboard_ranking_duration_seconds", Help: "Leaderboard assembly duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// CountDelivery records one webhook delivery by message type.
func CountDelivery(messageType string) {
	if WebhookDeliveries != nil {
		WebhookDeliveries.WithLabelValues(messageType).Inc()
	}
}

// CountEventDropped records a chat event discarded without accrual.
func CountEventDropped(reason string) {
	if EventsDropped != nil {
		EventsDropped.WithLabelValues(reason).Inc()
	}
}

// CountScoreOutcome records a score upsert outcome.
func CountScoreOutcome(outcome string) {
	if ScoreOutcomes != nil {
		ScoreOutcomes.WithLabelValues(outcome).Inc()
	}
}

// CountSignatureRejection records a delivery rejected at the boundary.
func CountSignatureRejection() {
	if SignatureRejections != nil {
		SignatureRejections.Inc()
	}
}

// CountEnrichmentFailure records a per-row profile lookup failure.
func CountEnrichmentFailure() {
	if EnrichmentFailures != nil {
		EnrichmentFailures.Inc()
	}
}

// CountSubscriptionCreated records a successful EventSub registration.
func CountSubscriptionCreated() {
	if SubscriptionsCreated != nil {
		SubscriptionsCreated.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
