package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes the application-level instruments.
type Metrics struct {
	Registry *prometheus.Registry

	SignupOutcomes *prometheus.CounterVec
	ProfileUpdates *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		SignupOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_signup_outcomes_total",
			Help: "Signup attempts by admission outcome.",
		}, []string{"outcome"}),
		ProfileUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_profile_updates_total",
			Help: "Profile updates by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_http_requests_total",
			Help: "Inbound HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "membership_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	registry.MustRegister(m.SignupOutcomes, m.ProfileUpdates, m.httpRequests, m.httpDuration)
	return m
}

// MetricsMiddleware records per-route request counts and latency.
func MetricsMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).
			Observe(time.Since(start).Seconds())
	}
}
