package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.CentralityRunsTotal == nil {
		t.Error("CentralityRunsTotal not initialized")
	}
	if r.CentralityProgress == nil {
		t.Error("CentralityProgress not initialized")
	}
	if r.GraphNodes == nil {
		t.Error("GraphNodes not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordRun(t *testing.T) {
	r := NewRegistry()

	r.RecordRun("ra-brandes", StatusCompleted, 100*time.Millisecond)
	r.RecordRun("ra-brandes", StatusCompleted, 2*time.Second)
	r.RecordRun("ra-brandes", StatusCancelled, 50*time.Millisecond)

	completed, err := r.CentralityRunsTotal.GetMetricWithLabelValues("ra-brandes", StatusCompleted)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, completed); got != 2 {
		t.Errorf("completed runs = %v, want 2", got)
	}

	cancelled, _ := r.CentralityRunsTotal.GetMetricWithLabelValues("ra-brandes", StatusCancelled)
	if got := counterValue(t, cancelled); got != 1 {
		t.Errorf("cancelled runs = %v, want 1", got)
	}

	histogram, err := r.CentralityRunDuration.GetMetricWithLabelValues("ra-brandes")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := histogram.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("duration samples = %d, want 3", metric.Histogram.GetSampleCount())
	}
}

func TestRecordSourcesAndRelationships(t *testing.T) {
	r := NewRegistry()

	r.RecordSources(10, 5)
	r.RecordSources(2, 0)
	r.RecordRelationships(40)

	if got := counterValue(t, r.CentralitySourcesTotal); got != 12 {
		t.Errorf("sources processed = %v, want 12", got)
	}
	if got := counterValue(t, r.CentralitySkippedTotal); got != 5 {
		t.Errorf("sources skipped = %v, want 5", got)
	}
	if got := counterValue(t, r.CentralityRelationships); got != 40 {
		t.Errorf("relationships = %v, want 40", got)
	}
}

func TestGaugeMetrics(t *testing.T) {
	r := NewRegistry()

	r.SetProgress(0.5)
	r.SetScaleFactor(4)
	r.SetGraphSize(100, 250)
	r.WorkerStarted()
	r.WorkerStarted()
	r.WorkerStopped()

	tests := []struct {
		name     string
		gauge    prometheus.Gauge
		expected float64
	}{
		{"CentralityProgress", r.CentralityProgress, 0.5},
		{"CentralityScaleFactor", r.CentralityScaleFactor, 4},
		{"GraphNodes", r.GraphNodes, 100},
		{"GraphRelationships", r.GraphRelationships, 250},
		{"CentralityWorkersActive", r.CentralityWorkersActive, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeValue(t, tt.gauge); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if got := gaugeValue(t, r.UptimeSeconds); got < 60 {
		t.Errorf("uptime = %v, want >= 60", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("goroutines = %v, want >= 1", got)
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	r.RecordGraphLoad("text", time.Second)

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "centrality_graph_load_duration") {
			found = true
		}
	}
	if !found {
		t.Error("Expected centrality_graph_load_duration_seconds in gathered metrics")
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.SetGraphSize(7, 9)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "centrality_graph_nodes 7") {
		t.Errorf("Expected centrality_graph_nodes in output, got:\n%s", body)
	}
}
