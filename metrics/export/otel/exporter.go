package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithAttributes attaches attrs to every observation, e.g. a deployment or
// instance name.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(e *Exporter) {
		e.static = append(e.static, attrs...)
	}
}

type counterInstrument struct {
	id  authcore.MetricID
	ins metric.Int64ObservableCounter
}

// latencyInstrument carries one histogram as a cumulative bucket gauge with
// an le attribute plus a count gauge.
type latencyInstrument struct {
	id      authcore.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bucketO []metric.ObserveOption
}

// Exporter publishes engine counters as observable instruments read from
// MetricsSnapshot on every collection cycle.
type Exporter struct {
	source       metricsSource
	static       []attribute.KeyValue
	registration metric.Registration

	counters []counterInstrument
	latency  []latencyInstrument
	dropped  metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, engine *authcore.Engine, opts ...Option) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine, opts...)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	for _, opt := range opts {
		opt(e)
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	labels := internaldefs.BucketLabels()
	for _, def := range internaldefs.HistogramDefs {
		li := latencyInstrument{id: def.ID}
		var err error
		li.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per le bound."),
			metric.WithUnit("{request}"))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		li.count, err = meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("otel: histogram %s: %w", def.Name, err)
		}
		for _, le := range labels {
			attrs := append([]attribute.KeyValue{attribute.String("le", le)}, e.static...)
			li.bucketO = append(li.bucketO, metric.WithAttributes(attrs...))
		}
		e.latency = append(e.latency, li)
		observables = append(observables, li.buckets, li.count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.dropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	static := metric.WithAttributes(e.static...)

	// A disabled Metrics returns an empty snapshot; report nothing rather
	// than a wall of zeros.
	if len(snap.Counters) > 0 {
		for _, c := range e.counters {
			o.ObserveInt64(c.ins, int64(snap.Counters[c.id]), static)
		}
	}
	for _, li := range e.latency {
		raw, ok := snap.Histograms[li.id]
		if !ok {
			continue
		}
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cum {
			o.ObserveInt64(li.buckets, int64(n), li.bucketO[i])
		}
		o.ObserveInt64(li.count, int64(cum[len(cum)-1]), static)
	}
	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()), static)
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
