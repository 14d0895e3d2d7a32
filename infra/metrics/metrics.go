package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_pipeline_runs_total",
			Help: "Payment pipeline runs by outcome and the state that failed",
		},
		[]string{"outcome", "failed_state"},
	)
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_pipeline_step_duration_seconds",
			Help:    "Duration of each remote call made by the payment pipeline",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
	ChargedAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_charged_amount",
			Help:    "Amounts of accepted charges",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 10),
		},
	)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notifications_total",
			Help: "Payment notifications by result",
		},
		[]string{"result"},
	)
)

// ObserveAmount records an accepted charge value. Values that do not parse
// as a number are skipped.
func ObserveAmount(value string) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return
	}
	f, _ := amount.Float64()
	ChargedAmount.Observe(f)
}

func ObserveStep(step string, start time.Time) {
	StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if idx := strings.Index(p, "/"); idx >= 0 {
		p = p[:idx]
	}
	if p == "" {
		return "root"
	}
	return p
}

func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	duration := time.Since(start).Seconds()
	path := NormalizePath(c.Request.URL.Path)
	status := strconv.Itoa(c.Writer.Status())
	RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
}
