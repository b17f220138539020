package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsDurationCarriesServiceLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := newJobMetrics(registry, Config{ServiceName: "disputeops", Environment: "test"})
	if err != nil {
		t.Fatalf("new job metrics: %v", err)
	}

	m.ObserveJobDuration("import_drop_dir", 250*time.Millisecond)
	m.ObserveJobDuration("import_drop_dir", 2*time.Second)

	metric := findMetric(t, registry, "disputeops_scheduler_job_duration_seconds", map[string]string{
		"job":     "import_drop_dir",
		"service": "disputeops",
		"env":     "test",
	})
	if metric.Histogram == nil {
		t.Fatalf("expected a histogram")
	}
	if got := metric.GetHistogram().GetSampleCount(); got != 2 {
		t.Fatalf("expected 2 samples, got %d", got)
	}
	if got := metric.GetHistogram().GetSampleSum(); got != 2.25 {
		t.Fatalf("expected sum 2.25, got %v", got)
	}
}

func TestJobMetricsNilIsNoop(t *testing.T) {
	var m *JobMetrics
	m.IncJobRun("import_drop_dir")
	m.ObserveJobDuration("import_drop_dir", time.Second)
	m.ObserveRunLoopLag(time.Second)
	m.IncJobError("import_drop_dir", nil)
}

func findMetric(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return nil
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
