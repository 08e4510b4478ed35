package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/obsidianstack/statsrelay/agent/internal/selfmetrics"
	"github.com/obsidianstack/statsrelay/pkg/types"
)

// State is the observable phase of a Transmitter between calls.
type State string

const (
	StateIdle           State = "idle"
	StateAccumulating   State = "accumulating"
	StateBackloggedIdle State = "backlogged"
)

// Limits sizes a Transmitter's batch and backlog. Backlog bounds are
// multiples of BatchSize, counted in metrics.
type Limits struct {
	BatchSize             int
	MaxBacklogMultiplier  int
	TrimBacklogMultiplier int
}

// Transmitter owns the batch and backlog of one destination.
// Accept and Flush may be called from different goroutines; all state is
// guarded by mu, and the Sender is only used while mu is held.
type Transmitter struct {
	dest    string
	codec   Codec
	sender  Sender
	limits  Limits
	metrics *selfmetrics.Metrics

	mu      sync.Mutex
	batch   []types.Metric
	backlog []types.Metric
}

// NewTransmitter creates a Transmitter for dest. metrics may be nil.
func NewTransmitter(dest string, codec Codec, sender Sender, limits Limits, metrics *selfmetrics.Metrics) *Transmitter {
	return &Transmitter{
		dest:    dest,
		codec:   codec,
		sender:  sender,
		limits:  limits,
		metrics: metrics,
	}
}

// Destination returns the address this Transmitter sends to.
func (t *Transmitter) Destination() string {
	return t.dest
}

// Accept appends m to the current batch and flushes once the batch is full.
func (t *Transmitter) Accept(ctx context.Context, m types.Metric) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.batch = append(t.batch, m)
	if len(t.batch) < t.limits.BatchSize {
		return nil
	}
	return t.flushLocked(ctx)
}

// Flush sends everything pending regardless of batch fullness.
func (t *Transmitter) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked(ctx)
}

// flushLocked moves the current batch behind any backlog and sends the
// backlog oldest first, one batch-sized chunk per send. It stops at the first
// failed send; unsent metrics stay queued and the backlog is trimmed if it has
// outgrown its bound.
func (t *Transmitter) flushLocked(ctx context.Context) error {
	if len(t.batch) > 0 {
		t.backlog = append(t.backlog, t.batch...)
		t.batch = t.batch[:0]
	}

	for len(t.backlog) > 0 {
		n := min(t.limits.BatchSize, len(t.backlog))
		payload, err := t.codec.Encode(t.backlog[:n])
		if err != nil {
			// An unencodable chunk would block the queue forever.
			slog.Error("shipper: dropping unencodable batch",
				"destination", t.dest, "metrics", n, "err", err)
			t.backlog = t.backlog[n:]
			continue
		}

		if err := t.sender.Send(ctx, payload); err != nil {
			t.metrics.SendFailed(t.dest)
			if dropped := t.trimLocked(); dropped > 0 {
				err = multierr.Append(err, fmt.Errorf("%w: %s: dropped %d oldest metrics, backlog now %d",
					types.ErrCapacity, t.dest, dropped, len(t.backlog)))
			}
			t.metrics.Backlog(t.dest, len(t.backlog))
			return err
		}

		t.metrics.BatchSent(t.dest)
		t.backlog = t.backlog[n:]
	}

	t.backlog = nil
	t.metrics.Backlog(t.dest, 0)
	return nil
}

// trimLocked drops the oldest backlog entries once the backlog exceeds
// MaxBacklogMultiplier×BatchSize, cutting it to TrimBacklogMultiplier×BatchSize.
// It returns the number of metrics dropped.
func (t *Transmitter) trimLocked() int {
	bs := t.limits.BatchSize
	if len(t.backlog) <= t.limits.MaxBacklogMultiplier*bs {
		return 0
	}
	keep := t.limits.TrimBacklogMultiplier * bs
	drop := len(t.backlog) - keep
	if drop <= 0 {
		return 0
	}
	t.backlog = append([]types.Metric(nil), t.backlog[drop:]...)
	t.metrics.Trimmed(t.dest, drop)
	slog.Warn("shipper: backlog overflow, trimmed oldest metrics",
		"destination", t.dest, "dropped", drop, "backlog", len(t.backlog))
	return drop
}

// State reports the current phase of the transmitter.
func (t *Transmitter) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case len(t.backlog) > 0:
		return StateBackloggedIdle
	case len(t.batch) > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

// BacklogLen returns the number of metrics waiting in the backlog.
func (t *Transmitter) BacklogLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.backlog)
}

// Close releases the underlying connection. Pending metrics are discarded.
func (t *Transmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sender.Close()
}
