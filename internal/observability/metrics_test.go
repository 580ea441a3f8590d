package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ObserveReflect("ok", time.Second)
	m.ObserveReflect("ok", time.Second)
	m.ObserveReflect("model_error", time.Second)
	m.MemoryEvent("write", "stored")

	if got := testutil.ToFloat64(m.ReflectTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok reflects, got %v", got)
	}
	if got := testutil.ToFloat64(m.MemoryEvents.WithLabelValues("write", "stored")); got != 1 {
		t.Fatalf("expected 1 memory write, got %v", got)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveReflect("ok", time.Second)
	m.ObserveModel("fake", time.Second)
	m.MemoryEvent("recall", "error")
}
