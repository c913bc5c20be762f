package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge

	// Business metrics
	SubscriptionTransitions *prometheus.CounterVec
	PaymentVerifications    *prometheus.CounterVec
	InviteEvents            *prometheus.CounterVec
	PatentsImported         *prometheus.CounterVec
	ActiveSubscriptions     prometheus.Gauge
	OTPEvents               *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patentdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patentdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "patentdesk_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "patentdesk_db_connections_in_use",
				Help: "Number of database connections currently in use",
			},
		),

		SubscriptionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patentdesk_subscription_transitions_total",
				Help: "Subscription status transitions",
			},
			[]string{"from", "to"},
		),
		PaymentVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patentdesk_payment_verifications_total",
				Help: "Payment verification attempts by result",
			},
			[]string{"method", "result"},
		),
		InviteEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patentdesk_invites_total",
				Help: "Organization invite events",
			},
			[]string{"event"},
		),
		PatentsImported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patentdesk_patents_imported_total",
				Help: "Patent numbers extracted from uploaded files",
			},
			[]string{"format"},
		),
		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "patentdesk_active_subscriptions",
				Help: "Subscriptions currently in the active status",
			},
		),
		OTPEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patentdesk_otp_events_total",
				Help: "One-time password issue and verification events",
			},
			[]string{"event"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.SubscriptionTransitions,
		m.PaymentVerifications,
		m.InviteEvents,
		m.PatentsImported,
		m.ActiveSubscriptions,
		m.OTPEvents,
	)

	return m
}

// NewNopMetrics returns metrics registered against a throwaway registry
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// RecordTransition counts a subscription status change
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.SubscriptionTransitions.WithLabelValues(from, to).Inc()
}

// RecordPayment counts a payment verification outcome
func (m *Metrics) RecordPayment(method, result string) {
	if m == nil {
		return
	}
	m.PaymentVerifications.WithLabelValues(method, result).Inc()
}

// RecordInvite counts an invite lifecycle event
func (m *Metrics) RecordInvite(event string) {
	if m == nil {
		return
	}
	m.InviteEvents.WithLabelValues(event).Inc()
}

// RecordImport counts extracted patent numbers for a file format
func (m *Metrics) RecordImport(format string, count int) {
	if m == nil {
		return
	}
	m.PatentsImported.WithLabelValues(format).Add(float64(count))
}

// RecordOTP counts an OTP event
func (m *Metrics) RecordOTP(event string) {
	if m == nil {
		return
	}
	m.OTPEvents.WithLabelValues(event).Inc()
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts and latencies per mux route template
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
