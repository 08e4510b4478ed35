// Package selfmetrics instruments the agent itself: scrape failures by error
// class, metrics published, batches sent and failed per destination, metrics
// trimmed from a backlog, and current backlog depth.
//
// Metrics wraps a private prometheus.Registry. Every recording method is safe
// on a nil *Metrics so packages can run uninstrumented in tests. ServeHTTP
// gathers the registry and writes it in the Prometheus text format.
package selfmetrics
