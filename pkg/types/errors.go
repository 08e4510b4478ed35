package types

import "errors"

// Error classes reported by the scrape and forwarding paths. None of them is
// fatal: each is caught at the boundary of one scrape target or one
// destination and logged there. Wrap with fmt.Errorf("...: %w", Err...) and
// test with errors.Is.
var (
	// ErrTransport covers connection refused, timeouts, DNS failures and
	// short writes.
	ErrTransport = errors.New("transport error")

	// ErrAuth covers a malformed challenge, an unsupported scheme and a
	// repeated 401 after one credentialed retry.
	ErrAuth = errors.New("auth error")

	// ErrParse covers a missing header row or a row shorter than the header.
	ErrParse = errors.New("parse error")

	// ErrCapacity is reported when a destination backlog overflowed and its
	// oldest entries were dropped.
	ErrCapacity = errors.New("capacity error")
)
