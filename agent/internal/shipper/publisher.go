package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/statsrelay/agent/internal/config"
	"github.com/obsidianstack/statsrelay/agent/internal/selfmetrics"
	"github.com/obsidianstack/statsrelay/pkg/types"
)

// Publisher fans every metric out to all of its Transmitters. A failure at
// one destination is logged and never affects delivery to the others.
type Publisher struct {
	transmitters []*Transmitter
}

// New builds one Transmitter per configured host. Each host gets its own
// network sender and its own batch and backlog. metrics may be nil.
func New(cfg config.HandlerConfig, metrics *selfmetrics.Metrics) (*Publisher, error) {
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	limits := Limits{
		BatchSize:             cfg.BatchSize,
		MaxBacklogMultiplier:  cfg.MaxBacklogMultiplier,
		TrimBacklogMultiplier: cfg.TrimBacklogMultiplier,
	}

	clk := clock.New()
	ts := make([]*Transmitter, 0, len(cfg.Hosts))
	for _, host := range cfg.Hosts {
		addr := destinationAddr(host, cfg.Port)
		sender := newNetSender(cfg.TransportProtocol, addr, cfg.Timeout, clk)
		ts = append(ts, NewTransmitter(addr, codec, sender, limits, metrics))
	}
	return NewPublisher(ts...), nil
}

// NewPublisher wraps pre-built transmitters.
func NewPublisher(transmitters ...*Transmitter) *Publisher {
	return &Publisher{transmitters: transmitters}
}

// Transmitters returns the destinations in configuration order.
func (p *Publisher) Transmitters() []*Transmitter {
	return p.transmitters
}

// Process hands m to every transmitter in order. Errors are logged per
// destination and never interrupt the fan-out.
func (p *Publisher) Process(ctx context.Context, m types.Metric) {
	for _, t := range p.transmitters {
		if err := t.Accept(ctx, m); err != nil {
			slog.Warn("shipper: send failed, batch kept in backlog",
				"destination", t.Destination(), "backlog", t.BacklogLen(), "err", err)
		}
	}
}

// Flush forces every transmitter to flush in parallel and waits for all of
// them. The combined error lists each failed destination; every destination
// is flushed regardless.
func (p *Publisher) Flush(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	for _, t := range p.transmitters {
		g.Go(func() error {
			if err := t.Flush(ctx); err != nil {
				slog.Warn("shipper: flush failed",
					"destination", t.Destination(), "backlog", t.BacklogLen(), "err", err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.Destination(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Close releases every destination connection.
func (p *Publisher) Close() error {
	var errs error
	for _, t := range p.transmitters {
		errs = multierr.Append(errs, t.Close())
	}
	return errs
}

// destinationAddr keeps an explicit host:port and otherwise applies port.
func destinationAddr(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
