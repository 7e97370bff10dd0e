// Package otel exports authcore engine metrics through an OpenTelemetry
// Meter. Counters become Int64ObservableCounters; the Authenticate latency
// histogram becomes one cumulative gauge per bucket plus a count gauge. The
// caller owns the MeterProvider.
package otel
