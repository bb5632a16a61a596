package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - счётчики Prometheus сервера. Методы безопасны для nil.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	activities *prometheus.CounterVec
	statuses   prometheus.Counter
	schedules  prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sadhana_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sadhana_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sadhana_activities_written_total",
			Help: "Activities created or updated.",
		}, []string{"op"}),
		statuses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sadhana_preaching_statuses_written_total",
			Help: "Preaching status rows upserted.",
		}),
		schedules: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sadhana_bhoga_schedule_replacements_total",
			Help: "Bhoga schedule replacements.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.activities, m.statuses, m.schedules,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware считает запросы. Маршрут берётся из шаблона, а не из пути.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		m.requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) ActivityWritten(op string) {
	if m == nil {
		return
	}
	m.activities.WithLabelValues(op).Inc()
}

func (m *Metrics) StatusesWritten(n int) {
	if m == nil {
		return
	}
	m.statuses.Add(float64(n))
}

func (m *Metrics) ScheduleReplaced() {
	if m == nil {
		return
	}
	m.schedules.Inc()
}
