// Package prometheus exposes engine metrics through prometheus/client_golang.
//
// [NewCollector] returns a [prometheus.Collector]; callers register it with
// their own registry and mount promhttp. Counters are named authd_*_total and
// the two latency histograms authd_login_latency_seconds and
// authd_authenticate_latency_seconds.
package prometheus
