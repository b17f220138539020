package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

const (
	QueryReasonTimeout          = "timeout"
	QueryReasonCanceled         = "canceled"
	QueryReasonStatementTimeout = "statement_timeout"
	QueryReasonLockTimeout      = "lock_timeout"
	QueryReasonConnection       = "connection"
	QueryReasonValidation       = "validation"
	QueryReasonNotFound         = "not_found"
	QueryReasonUnknown          = "unknown"
)

const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// QueryMetrics captures dashboard query health for the Prometheus scrape.
type QueryMetrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	cache    *prometheus.CounterVec
}

func NewQueryMetrics(cfg Config) (*QueryMetrics, error) {
	return newQueryMetrics(prometheus.DefaultRegisterer, cfg)
}

func newQueryMetrics(registerer prometheus.Registerer, cfg Config) (*QueryMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	duration, err := register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "disputeops_dashboard_query_duration_seconds",
		Help:        "Dashboard operation latency including all concurrent sub-queries.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: labels,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	queryErrors, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "disputeops_dashboard_query_errors_total",
		Help:        "Dashboard operation failures by low-cardinality reason.",
		ConstLabels: labels,
	}, []string{"operation", "reason"}))
	if err != nil {
		return nil, err
	}
	cache, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "disputeops_dashboard_cache_total",
		Help:        "Statistics cache lookups by result.",
		ConstLabels: labels,
	}, []string{"cache", "result"}))
	if err != nil {
		return nil, err
	}

	return &QueryMetrics{duration: duration, errors: queryErrors, cache: cache}, nil
}

// Observe records the latency of operation and, when err is set, its reason.
func (m *QueryMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		m.errors.WithLabelValues(operation, ClassifyQueryReason(err)).Inc()
	}
}

func (m *QueryMetrics) Cache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cache.WithLabelValues(cache, result).Inc()
}

// ClassifyQueryReason maps err to a bounded reason label.
func ClassifyQueryReason(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "57014":
			return QueryReasonStatementTimeout
		case pgErr.Code == "55P03":
			return QueryReasonLockTimeout
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return QueryReasonConnection
		}
	}

	switch {
	case errors.Is(err, disputedomain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return QueryReasonTimeout
	case errors.Is(err, context.Canceled):
		return QueryReasonCanceled
	case errors.Is(err, disputedomain.ErrInvalidWindow),
		errors.Is(err, disputedomain.ErrInvalidCategory),
		errors.Is(err, disputedomain.ErrInvalidPageToken):
		return QueryReasonValidation
	case errors.Is(err, disputedomain.ErrNotFound):
		return QueryReasonNotFound
	case errors.Is(err, disputedomain.ErrStorageUnavailable):
		return QueryReasonConnection
	}
	return QueryReasonUnknown
}
