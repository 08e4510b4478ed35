// Package scraper pulls the stats CSV from a monitored load balancer and
// normalizes it into flat, dot-separated metric names.
//
// Two transports implement Transport, selected once per target by
// NewTransport: httpTransport (GET with lazy Basic auth: credentials are sent
// only after a 401 challenge, and only once) and unixTransport (writes
// "show stat" to the admin socket and reads until EOF).
//
// Normalize turns CSV lines into Observations using the header row as a
// column-index map. Collector ties it together: one target per configured
// section, each prefixed by its sanitized name, published through a
// PublishFunc. Every failure is recoverable and scoped to one target.
package scraper
