// Package metrics records pipeline measurements in a private Prometheus
// registry and exports them in the text exposition format, suitable for
// the node_exporter textfile collector.
package metrics
