// Package shipper forwards normalized metrics to one or more remote
// collection endpoints (carbon/Graphite receivers).
//
// Publisher.Process fans each metric out to every Transmitter; one
// Transmitter exists per configured host and exclusively owns that host's
// batch, backlog and connection. A batch is sent when it reaches BatchSize or
// when Publisher.Flush forces it; Flush runs all destinations in parallel and
// waits for every one of them.
//
// A failed send keeps the batch: it joins the backlog tail, and the backlog
// is retried oldest first on the next flush. When the backlog grows past
// MaxBacklogMultiplier×BatchSize its oldest metrics are dropped until
// TrimBacklogMultiplier×BatchSize remain.
//
// Wire codecs: pickle (carbon pickle receiver, length-prefixed protocol 2),
// msgpack (same shape, length-prefixed) and plaintext lines. Reconnects after
// a failed dial use truncated exponential backoff (1s→60s, ±25% jitter).
//
// Sender is injectable so tests can substitute in-memory destinations.
package shipper
