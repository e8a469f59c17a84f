// Package metrics exposes the Prometheus collectors of the draw service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	drawsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "luckydraw",
			Subsystem: "draws",
			Name:      "finished_total",
			Help:      "Draw cycles that reached idle again, by outcome.",
		},
		[]string{"outcome"},
	)

	drawRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "luckydraw",
			Subsystem: "draws",
			Name:      "rejected_total",
			Help:      "Draw requests refused before the reveal started, by reason.",
		},
		[]string{"reason"},
	)

	awardsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "luckydraw",
			Subsystem: "draws",
			Name:      "awards_total",
			Help:      "Award records committed to a ledger.",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "luckydraw",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Tenant sessions held in memory.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "luckydraw",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "luckydraw",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		drawsTotal,
		drawRejections,
		awardsTotal,
		activeSessions,
		httpRequests,
		httpDuration,
		collectors.NewGoCollector(),
	)
}

// RecordDraw counts a finished draw cycle and its winners.
func RecordDraw(outcome string, winners int) {
	drawsTotal.WithLabelValues(outcome).Inc()
	if winners > 0 {
		awardsTotal.Add(float64(winners))
	}
}

// RecordRejection counts a refused draw request.
func RecordRejection(reason string) {
	drawRejections.WithLabelValues(reason).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
