package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	if err := (<-ch).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	default:
		t.Fatalf("metric has neither Counter nor Gauge set")
		return 0
	}
}

func TestPublishesTotalIncrements(t *testing.T) {
	PublishesTotal.Reset()
	PublishesTotal.WithLabelValues("EdgeNode1", "birth").Inc()
	PublishesTotal.WithLabelValues("EdgeNode1", "birth").Inc()

	if got := counterValue(t, PublishesTotal.WithLabelValues("EdgeNode1", "birth")); got != 2 {
		t.Errorf("PublishesTotal = %v, want 2", got)
	}
}

func TestAdapterConnectedGauge(t *testing.T) {
	AdapterConnected.WithLabelValues("local").Set(1)
	if got := counterValue(t, AdapterConnected.WithLabelValues("local")); got != 1 {
		t.Errorf("AdapterConnected = %v, want 1", got)
	}

	AdapterConnected.WithLabelValues("local").Set(0)
	if got := counterValue(t, AdapterConnected.WithLabelValues("local")); got != 0 {
		t.Errorf("AdapterConnected = %v, want 0", got)
	}
}

func TestBdSeqCurrentGauge(t *testing.T) {
	BdSeqCurrent.Set(7)
	if got := counterValue(t, BdSeqCurrent); got != 7 {
		t.Errorf("BdSeqCurrent = %v, want 7", got)
	}
}

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_observe_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(h)

	m := &dto.Metric{}
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	if err := (<-ch).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.Histogram.GetSampleCount(); got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected non-empty metrics response body")
	}
}
