package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for the HTTP surface and the engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	scans            prometheus.Counter
	scanTickets      prometheus.Counter
	alertsCreated    *prometheus.CounterVec
	assignments      *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryAttempts prometheus.Counter
	deliveryDuration prometheus.Histogram
}

// NewMetrics registers and returns metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_engine_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sla_engine_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_engine_http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_engine_scans_total",
			Help: "Completed SLA scans.",
		}),
		scanTickets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_engine_scan_tickets_total",
			Help: "Tickets examined by SLA scans.",
		}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_engine_alerts_created_total",
			Help: "Alerts created by type.",
		}, []string{"type"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_engine_assignments_total",
			Help: "Assignment attempts by strategy and result.",
		}, []string{"strategy", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_engine_webhook_deliveries_total",
			Help: "Webhook deliveries by event and final result.",
		}, []string{"event", "result"}),
		deliveryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_engine_webhook_attempts_total",
			Help: "Individual webhook POST attempts, including retries.",
		}),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_engine_webhook_attempt_duration_seconds",
			Help:    "Duration of individual webhook POST attempts.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 9), // 50ms .. ~12.8s
		}),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.scans,
		m.scanTickets,
		m.alertsCreated,
		m.assignments,
		m.deliveries,
		m.deliveryAttempts,
		m.deliveryDuration,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordScan records one completed SLA scan.
func (m *Metrics) RecordScan(ticketsScanned int) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.scanTickets.Add(float64(ticketsScanned))
}

// RecordAlert records one created alert.
func (m *Metrics) RecordAlert(alertType string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(alertType).Inc()
}

// RecordAssignment records one assignment outcome.
func (m *Metrics) RecordAssignment(strategy string, assigned bool) {
	if m == nil {
		return
	}
	result := "failed"
	if assigned {
		result = "assigned"
	}
	m.assignments.WithLabelValues(strategy, result).Inc()
}

// RecordDeliveryAttempt records one webhook POST.
func (m *Metrics) RecordDeliveryAttempt(duration time.Duration) {
	if m == nil {
		return
	}
	m.deliveryAttempts.Inc()
	m.deliveryDuration.Observe(duration.Seconds())
}

// RecordDelivery records the final outcome of a delivery.
func (m *Metrics) RecordDelivery(event string, success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "delivered"
	}
	m.deliveries.WithLabelValues(event, result).Inc()
}
