package shipper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
)

// errReconnectThrottled is returned while a failed destination is inside its
// reconnect backoff window. No dial is attempted.
var errReconnectThrottled = errors.New("reconnect throttled")

// Sender writes one serialized batch to a destination.
// A Sender is owned by a single Transmitter and is not safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// netSender keeps one tcp or udp connection open across sends. Any write
// error closes it; the next send redials, throttled by exponential backoff
// after a failed dial.
type netSender struct {
	network string
	addr    string
	timeout time.Duration
	clock   clock.Clock

	conn    net.Conn
	bo      *backoff
	retryAt time.Time
}

func newNetSender(network, addr string, timeout time.Duration, clk clock.Clock) *netSender {
	return &netSender{
		network: network,
		addr:    addr,
		timeout: timeout,
		clock:   clk,
		bo:      newBackoff(),
	}
}

func (s *netSender) Send(ctx context.Context, payload []byte) error {
	if s.conn == nil {
		if err := s.dial(ctx); err != nil {
			return err
		}
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	n, err := s.conn.Write(payload)
	if err == nil && n < len(payload) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("%w: write %s://%s: %w", types.ErrTransport, s.network, s.addr, err)
	}
	return nil
}

func (s *netSender) dial(ctx context.Context) error {
	now := s.clock.Now()
	if now.Before(s.retryAt) {
		return fmt.Errorf("%w: %s://%s: %w for %v", types.ErrTransport, s.network, s.addr,
			errReconnectThrottled, s.retryAt.Sub(now).Round(time.Millisecond))
	}

	d := net.Dialer{Timeout: s.timeout}
	conn, err := d.DialContext(ctx, s.network, s.addr)
	if err != nil {
		s.retryAt = now.Add(s.bo.next())
		return fmt.Errorf("%w: dial %s://%s: %w", types.ErrTransport, s.network, s.addr, err)
	}
	s.bo.reset()
	s.retryAt = time.Time{}
	s.conn = conn
	return nil
}

func (s *netSender) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
