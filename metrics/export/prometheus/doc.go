// Package prometheus exposes authcore engine metrics as a
// prometheus.Collector. Register it on a registry of your choice, or mount
// Handler, which serves a private registry holding only the collector.
package prometheus
