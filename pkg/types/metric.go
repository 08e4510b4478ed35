package types

import "time"

// Kind classifies how a destination should interpret a metric value.
type Kind string

const (
	KindGauge   Kind = "GAUGE"
	KindCounter Kind = "COUNTER"
)

// Metric is one normalized observation.
// Name is a dot-joined path of sanitized segments. Timestamp is stamped by
// the collector at publish time.
type Metric struct {
	Name      string
	Value     float64
	Kind      Kind
	Timestamp time.Time
}
