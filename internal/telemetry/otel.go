package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTel forwards metrics to an OpenTelemetry meter. Counters and gauges are
// created lazily on first use of each key.
type OTel struct {
	meter metric.Meter
	attrs metric.MeasurementOption

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
	gauges   map[string]metric.Int64Gauge
	onError  func(error)
}

// NewOTel uses meter, or the global provider when meter is nil. attrs are
// attached to every measurement.
func NewOTel(meter metric.Meter, onError func(error), attrs ...attribute.KeyValue) *OTel {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("age-of-war/server")
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &OTel{
		meter:    meter,
		attrs:    metric.WithAttributes(attrs...),
		counters: make(map[string]metric.Int64Counter),
		gauges:   make(map[string]metric.Int64Gauge),
		onError:  onError,
	}
}

func (o *OTel) Add(key string, delta uint64) {
	counter, err := o.counter(key)
	if err != nil {
		o.onError(err)
		return
	}
	counter.Add(context.Background(), int64(delta), o.attrs)
}

func (o *OTel) Store(key string, value uint64) {
	gauge, err := o.gauge(key)
	if err != nil {
		o.onError(err)
		return
	}
	gauge.Record(context.Background(), int64(value), o.attrs)
}

func (o *OTel) counter(key string) (metric.Int64Counter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.counters[key]; ok {
		return c, nil
	}
	c, err := o.meter.Int64Counter("aow."+key, metric.WithDescription(key))
	if err != nil {
		return nil, fmt.Errorf("creating counter %s: %w", key, err)
	}
	o.counters[key] = c
	return c, nil
}

func (o *OTel) gauge(key string) (metric.Int64Gauge, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if g, ok := o.gauges[key]; ok {
		return g, nil
	}
	g, err := o.meter.Int64Gauge("aow."+key, metric.WithDescription(key))
	if err != nil {
		return nil, fmt.Errorf("creating gauge %s: %w", key, err)
	}
	o.gauges[key] = g
	return g, nil
}
