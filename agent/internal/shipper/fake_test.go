package shipper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

var errFakeDown = errors.New("fake destination down")

// fakeSender records payloads and can be switched to fail every send.
type fakeSender struct {
	mu       sync.Mutex
	fail     bool
	payloads []string
	attempts int
}

func (f *fakeSender) Send(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.fail {
		return fmt.Errorf("%w: %w", types.ErrTransport, errFakeDown)
	}
	f.payloads = append(f.payloads, string(payload))
	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

// names returns every metric name delivered, in delivery order. Payloads are
// assumed to be plaintext-encoded.
func (f *fakeSender) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.payloads {
		for _, line := range strings.Split(strings.TrimSpace(p), "\n") {
			if line == "" {
				continue
			}
			out = append(out, strings.Fields(line)[0])
		}
	}
	return out
}

func (f *fakeSender) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func metric(i int) types.Metric {
	return types.Metric{
		Name:      fmt.Sprintf("m.%03d", i),
		Value:     float64(i),
		Kind:      types.KindGauge,
		Timestamp: time.Unix(1700000000+int64(i), 0),
	}
}

func metricNames(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, metric(i).Name)
	}
	return out
}
