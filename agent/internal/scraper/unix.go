package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

// statCommand asks the admin socket for the stats CSV.
const statCommand = "show stat\n"

type unixTransport struct {
	path    string
	timeout time.Duration
}

// Fetch connects to the admin socket, writes the stat command and reads until
// the peer closes the connection. The timeout bounds the whole exchange.
func (t *unixTransport) Fetch(ctx context.Context) ([]string, error) {
	d := net.Dialer{Timeout: t.timeout}
	conn, err := d.DialContext(ctx, "unix", t.path)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", types.ErrTransport, t.path, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(t.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	if _, err := io.WriteString(conn, statCommand); err != nil {
		return nil, fmt.Errorf("%w: write %s: %w", types.ErrTransport, t.path, err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrTransport, t.path, err)
	}
	return splitLines(data), nil
}
