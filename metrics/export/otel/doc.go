// Package otel binds engine metrics to an OpenTelemetry [metric.Meter].
//
// Each counter becomes an Int64ObservableCounter. Each latency histogram
// becomes a <name>_bucket gauge carrying an "le" attribute per bound plus a
// <name>_count gauge. One callback reads the engine snapshot per collection;
// the caller owns the MeterProvider.
package otel
