package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spec-kit/helpdesk-service/internal/sla"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	httpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "HTTP error responses by route, method and error code",
		},
		[]string{"route", "method", "code"},
	)

	slaEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_sla_evaluations_total",
			Help: "SLA evaluations by compliance status and source tier",
		},
		[]string{"status", "tier"},
	)

	slaFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_sla_evaluation_failures_total",
			Help: "SLA evaluations aborted because configuration could not be read",
		},
		[]string{"source"},
	)

	slaInconsistentTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helpdesk_sla_inconsistent_tickets_total",
			Help: "Tickets whose status and resolution time disagree",
		},
	)

	slaOpenTickets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helpdesk_sla_open_tickets",
			Help: "Open tickets by SLA status as of the last monitor sweep",
		},
		[]string{"status"},
	)
)

// Metrics records service counters into the default Prometheus registry.
type Metrics struct{}

// NewMetrics returns the metrics recorder.
func NewMetrics() *Metrics {
	return &Metrics{}
}

var _ sla.Observer = (*Metrics)(nil)

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	httpErrors.WithLabelValues(path, method, code).Inc()
}

// ObserveOutcome implements sla.Observer.
func (m *Metrics) ObserveOutcome(status sla.Status, tier sla.Tier) {
	if m == nil {
		return
	}
	slaEvaluations.WithLabelValues(string(status), string(tier)).Inc()
}

// ObserveFailure implements sla.Observer.
func (m *Metrics) ObserveFailure(source string) {
	if m == nil {
		return
	}
	slaFailures.WithLabelValues(source).Inc()
}

// ObserveInconsistentTicket implements sla.Observer.
func (m *Metrics) ObserveInconsistentTicket() {
	if m == nil {
		return
	}
	slaInconsistentTickets.Inc()
}

// SetOpenTickets publishes the per-status counts of the latest sweep.
func (m *Metrics) SetOpenTickets(counts map[sla.Status]int) {
	if m == nil {
		return
	}
	for _, status := range []sla.Status{sla.StatusMet, sla.StatusAtRisk, sla.StatusViolated} {
		slaOpenTickets.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
