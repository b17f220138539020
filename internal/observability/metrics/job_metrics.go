package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonCanceled         = "canceled"
	JobReasonError            = "error"
)

// JobMetrics tracks background job runs.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lag      prometheus.Histogram
}

func NewJobMetrics(cfg Config) (*JobMetrics, error) {
	return newJobMetrics(prometheus.DefaultRegisterer, cfg)
}

func newJobMetrics(registerer prometheus.Registerer, cfg Config) (*JobMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	runs, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "disputeops_scheduler_job_runs_total",
		Help:        "Scheduler job executions.",
		ConstLabels: labels,
	}, []string{"job"}))
	if err != nil {
		return nil, err
	}
	jobErrors, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "disputeops_scheduler_job_errors_total",
		Help:        "Scheduler job failures by reason.",
		ConstLabels: labels,
	}, []string{"job", "reason"}))
	if err != nil {
		return nil, err
	}
	timeouts, err := register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "disputeops_scheduler_job_timeouts_total",
		Help:        "Scheduler jobs stopped by their deadline.",
		ConstLabels: labels,
	}, []string{"job"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "disputeops_scheduler_job_duration_seconds",
		Help:        "Scheduler job latency.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: labels,
	}, []string{"job"}))
	if err != nil {
		return nil, err
	}
	lag, err := register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "disputeops_scheduler_run_loop_lag_seconds",
		Help:        "Delay between the planned and actual start of a scheduler tick.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		ConstLabels: labels,
	}))
	if err != nil {
		return nil, err
	}

	return &JobMetrics{runs: runs, errors: jobErrors, timeouts: timeouts, duration: duration, lag: lag}, nil
}

func (m *JobMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *JobMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil {
		return
	}
	m.lag.Observe(lag.Seconds())
}

// IncJobError counts err under job. Deadline errors also count as timeouts.
func (m *JobMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	reason := ClassifyJobReason(err)
	if reason == JobReasonDeadlineExceeded {
		m.timeouts.WithLabelValues(job).Inc()
	}
	m.errors.WithLabelValues(job, reason).Inc()
}

func ClassifyJobReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return JobReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return JobReasonCanceled
	default:
		return JobReasonError
	}
}
