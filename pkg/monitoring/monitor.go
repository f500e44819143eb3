package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AssignmentActions 分配引擎动作计数，result ∈ {ok, rejected, conflict}
	AssignmentActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_actions_total",
			Help: "Total number of assignment workflow actions",
		},
		[]string{"action", "result"},
	)

	// VersionConflicts 带版本谓词的写入命中 0 行的次数
	VersionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assignment_version_conflicts_total",
			Help: "Total number of optimistic version conflicts on assignments",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AssignmentActions)
	prometheus.MustRegister(VersionConflicts)
}

// RecordAssignmentAction 引擎各操作提交/拒绝后打点
func RecordAssignmentAction(action, result string) {
	AssignmentActions.WithLabelValues(action, result).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
