package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records inbound request counts and latency for /metrics.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPMetrics(cfg Config) (*HTTPMetrics, error) {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) (*HTTPMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabels(cfg)

	requests, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "disputeops_http_requests_total",
		Help:        "HTTP requests by method, route and status code.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status_code"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "disputeops_http_request_duration_seconds",
		Help:        "HTTP request latency by method and route.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"method", "route"}))
	if err != nil {
		return nil, err
	}
	inFlight, err := register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "disputeops_http_requests_in_flight",
		Help:        "HTTP requests currently being served.",
		ConstLabels: constLabels,
	}))
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// GinMiddleware records every request against its route template.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func constLabels(cfg Config) prometheus.Labels {
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName(cfg.ServiceName),
		"env":     environment,
	}
}

// register returns the already registered collector when an identical one
// exists, so providers can be built more than once per process.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return collector, nil
}
