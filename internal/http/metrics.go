package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/student-affairs/internal/application"
)

// Metrics holds the Prometheus collectors of the site.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	signInBalance prometheus.Gauge
	staffEvents   *prometheus.CounterVec
}

// NewMetrics registers the site collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubsite",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clubsite",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		signInBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clubsite",
			Name:      "staff_signin_balance",
			Help:      "Staff sign-ins minus explicit sign-outs since start. Expired sessions are not subtracted.",
		}),
		staffEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubsite",
			Name:      "staff_session_events_total",
			Help:      "Auth gate session change notifications by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.signInBalance,
		m.staffEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStaffEvent is an auth gate subscriber that counts session changes.
// Rejections leave the sign-in balance alone: a rejected restore may belong
// to a session that was already signed out.
func (m *Metrics) ObserveStaffEvent(event application.StaffEvent) {
	m.staffEvents.WithLabelValues(string(event.Kind)).Inc()
	switch event.Kind {
	case application.StaffSignedIn:
		m.signInBalance.Inc()
	case application.StaffSignedOut:
		m.signInBalance.Dec()
	}
}

// Middleware counts requests by their matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
