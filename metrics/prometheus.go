package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream request statuses
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusRateLimited = "rate_limited"
	StatusTimeout     = "timeout"
	StatusLocked      = "locked"
	StatusParseError  = "parse_error"
)

var (
	// CircuitBreakerTripsTotal counts how often a 429 opened the circuit
	CircuitBreakerTripsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "circuit_breaker_trips_total",
			Help: "Number of times the upstream circuit breaker was opened",
		},
	)

	// CircuitBreakerRejectionsTotal counts calls refused while the circuit was open
	CircuitBreakerRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "circuit_breaker_rejections_total",
			Help: "Number of upstream calls rejected by an open circuit breaker",
		},
	)

	// CallWindowGauge mirrors the advisory per-minute call counter
	CallWindowGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricsPrefix + "api_calls_current_window",
			Help: "Upstream calls recorded in the current one-minute window",
		},
	)

	// BadgeUpdatesTotal counts badge writes by outcome
	// Cardinality: 3 (price, error, clear)
	BadgeUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "badge_updates_total",
			Help: "Number of badge updates by outcome",
		},
		[]string{"outcome"},
	)

	// FeedbackSubmissionsTotal counts feedback submissions by result
	FeedbackSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "feedback_submissions_total",
			Help: "Number of feedback submissions by result",
		},
		[]string{"result"},
	)
)

func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

func RecordCircuitBreakerRejection() {
	CircuitBreakerRejectionsTotal.Inc()
}

func RecordCallWindow(count int) {
	CallWindowGauge.Set(float64(count))
}

func RecordBadgeUpdate(outcome string) {
	BadgeUpdatesTotal.WithLabelValues(outcome).Inc()
}

func RecordFeedbackSubmission(result string) {
	FeedbackSubmissionsTotal.WithLabelValues(result).Inc()
}
