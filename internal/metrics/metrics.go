package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Module provides the engine metric set.
var Module = fx.Provide(New)

// Metrics exposes the engine's prometheus instruments.
type Metrics struct {
	EventsTracked   *prometheus.CounterVec
	AlertsGenerated *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	JobErrors       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		EventsTracked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight",
			Name:      "usage_events_tracked_total",
			Help:      "Usage events recorded, by event type.",
		}, []string{"event_type"}),
		AlertsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight",
			Name:      "alerts_generated_total",
			Help:      "Alerts produced by the detectors, by alert type.",
		}, []string{"alert_type"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "insight",
			Name:      "scheduler_job_duration_seconds",
			Help:      "Scheduler job wall time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		JobErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight",
			Name:      "scheduler_job_errors_total",
			Help:      "Scheduler job failures.",
		}, []string{"job"}),
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insight",
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "path", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "insight",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
