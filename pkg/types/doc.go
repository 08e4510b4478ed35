// Package types defines shared Go types used across the agent packages.
// Metric is the canonical in-memory representation of one normalized
// observation, separate from any wire format a destination speaks.
package types
