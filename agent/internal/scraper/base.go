package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/obsidianstack/statsrelay/agent/internal/config"
)

// Transport produces the raw stats lines for one logical scrape target.
// Implementations return an error wrapping one of the types.Err* classes;
// a failed fetch never panics and yields no lines.
type Transport interface {
	Fetch(ctx context.Context) ([]string, error)
}

// NewTransport returns the Transport selected by target.Method.
// The HTTP client is built once and reused across fetches.
func NewTransport(target config.Target, timeout time.Duration) (Transport, error) {
	switch target.Method {
	case config.MethodHTTP:
		return &httpTransport{
			url:    target.URL,
			user:   target.User,
			pass:   target.Pass,
			client: &http.Client{Timeout: timeout},
		}, nil
	case config.MethodUnixSocket:
		return &unixTransport{
			path:    target.SocketPath,
			timeout: timeout,
		}, nil
	default:
		return nil, fmt.Errorf("scraper: unsupported method %q", target.Method)
	}
}

// splitLines trims surrounding whitespace and splits raw stats output on
// newlines. Empty output yields no lines rather than one empty line.
func splitLines(data []byte) []string {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
