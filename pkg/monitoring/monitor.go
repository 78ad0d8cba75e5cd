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

	// 考试会话与阅卷指标
	ActiveExamSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exam_active_sessions",
			Help: "Number of exam sessions currently in progress",
		},
	)

	ExamSubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Total number of graded submissions by trigger",
		},
		[]string{"trigger"}, // student | timeout
	)

	GradingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_grading_duration_seconds",
			Help:    "Duration of the grading pipeline per submission",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	JudgeFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_judge_failures_total",
			Help: "Total number of AI judge calls that failed and were defaulted",
		},
	)

	LockdownViolationCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_lockdown_violations_total",
			Help: "Total number of lockdown (fullscreen) exits during exams",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ActiveExamSessions)
	prometheus.MustRegister(ExamSubmissionCounter)
	prometheus.MustRegister(GradingDuration)
	prometheus.MustRegister(JudgeFailureCounter)
	prometheus.MustRegister(LockdownViolationCounter)
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
