package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
// Methods are safe on a nil *Metrics so tests can skip registration.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	ExternalRequests *prometheus.CounterVec
	ExternalLatency  *prometheus.HistogramVec
	EmailsSent       *prometheus.CounterVec
	Reminders        *prometheus.CounterVec
	Errors           *prometheus.CounterVec
}

// New builds the collectors and registers them with reg
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ExternalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_requests_total",
			Help:      "Total outbound provider requests by provider, operation and status.",
		}, []string{"provider", "operation", "status"}),
		ExternalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_request_duration_seconds",
			Help:      "Latency distribution for outbound provider requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total notification emails by template and outcome.",
		}, []string{"template", "status"}),
		Reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_reminders_total",
			Help:      "Meeting reminders processed by outcome.",
		}, []string{"outcome"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequests,
			m.HTTPLatency,
			m.ExternalRequests,
			m.ExternalLatency,
			m.EmailsSent,
			m.Reminders,
			m.Errors,
		)
	}
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveExternal(provider, operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ExternalRequests.WithLabelValues(provider, operation, status).Inc()
	m.ExternalLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveEmail(template string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.EmailsSent.WithLabelValues(template, status).Inc()
}

func (m *Metrics) ObserveReminder(outcome string) {
	if m == nil {
		return
	}
	m.Reminders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncError(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
