package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"

	"age-of-war/server/logging"
)

func TestWrapMetrics(t *testing.T) {
	metrics := logging.Metrics{}
	adapter := WrapMetrics(&metrics)

	adapter.Add("test_counter", 2)
	adapter.Store("test_counter", 5)
	adapter.Add("test_counter", 3)

	snapshot := metrics.Snapshot()
	if got := snapshot["test_counter"]; got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}
}

func TestWrapMetricsNil(t *testing.T) {
	adapter := WrapMetrics(nil)
	adapter.Add("ignored", 1)
	adapter.Store("ignored", 1)
}

func TestMultiFansOut(t *testing.T) {
	a := logging.NewMetrics()
	b := logging.NewMetrics()
	m := Multi(WrapMetrics(a), nil, WrapMetrics(b))
	m.Add(MetricTicks, 4)
	if a.Value(MetricTicks) != 4 || b.Value(MetricTicks) != 4 {
		t.Fatalf("expected both backends updated: %v %v", a.Snapshot(), b.Snapshot())
	}
}

func TestOTelAdapterCreatesInstrumentsOnce(t *testing.T) {
	var errs []error
	o := NewOTel(noop.Meter{}, func(err error) { errs = append(errs, err) }, attribute.String("lobby", "ABC123"))
	o.Add(MetricTicks, 1)
	o.Add(MetricTicks, 2)
	o.Store(MetricUnitsAlive, 7)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(o.counters) != 1 || len(o.gauges) != 1 {
		t.Fatalf("expected one counter and one gauge, got %d/%d", len(o.counters), len(o.gauges))
	}
}
