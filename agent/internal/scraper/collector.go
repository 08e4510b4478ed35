package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/obsidianstack/statsrelay/agent/internal/config"
	"github.com/obsidianstack/statsrelay/agent/internal/selfmetrics"
	"github.com/obsidianstack/statsrelay/pkg/types"
)

// PublishFunc receives every normalized metric of a scrape cycle.
type PublishFunc func(types.Metric)

// target pairs one resolved scrape target with its transport.
type target struct {
	cfg       config.Target
	prefix    string
	transport Transport
}

// Collector scrapes every configured target and publishes the normalized
// metrics. It is immutable after New.
type Collector struct {
	targets []target
	publish PublishFunc
	metrics *selfmetrics.Metrics
	now     func() time.Time // injectable for deterministic tests
}

// New builds one transport per resolved target, in section order.
// metrics may be nil.
func New(cfg config.CollectorConfig, publish PublishFunc, metrics *selfmetrics.Metrics) (*Collector, error) {
	c := &Collector{
		publish: publish,
		metrics: metrics,
		now:     time.Now,
	}
	for _, t := range cfg.Targets() {
		tr, err := NewTransport(t, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("scraper: section %q: %w", t.Section, err)
		}
		c.targets = append(c.targets, target{
			cfg:       t,
			prefix:    joinName(cfg.PathPrefix, Sanitize(strings.ToLower(t.Section))),
			transport: tr,
		})
	}
	return c, nil
}

// Collect runs one scrape cycle. A failing section is logged and counted;
// the remaining sections are still scraped.
func (c *Collector) Collect(ctx context.Context) {
	for _, t := range c.targets {
		n, err := c.collectTarget(ctx, t)
		if err != nil {
			class := errorClass(err)
			c.metrics.ScrapeFailed(t.cfg.Section, class)
			if n == 0 {
				slog.Warn("scraper: no data this cycle",
					"section", t.cfg.Section, "class", class, "err", err)
			} else {
				slog.Warn("scraper: skipped malformed rows",
					"section", t.cfg.Section, "published", n, "err", err)
			}
		}
		c.metrics.Published(n)
	}
}

// collectTarget scrapes and publishes one target, returning the number of
// metrics published.
func (c *Collector) collectTarget(ctx context.Context, t target) (int, error) {
	lines, err := t.transport.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	obs, parseErr := Normalize(lines, t.prefix, t.cfg.IgnoreNonAggregateRows)
	ts := c.now()
	for _, o := range obs {
		c.publish(types.Metric{Name: o.Name, Value: o.Value, Kind: o.Kind, Timestamp: ts})
	}
	return len(obs), parseErr
}

// errorClass names the error taxonomy bucket of err for logs and metrics.
func errorClass(err error) string {
	switch {
	case errors.Is(err, types.ErrAuth):
		return "auth"
	case errors.Is(err, types.ErrParse):
		return "parse"
	case errors.Is(err, types.ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
