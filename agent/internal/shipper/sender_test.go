package shipper

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

func TestNetSender_TCPDelivers(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	lines := make(chan string, 2)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	s := newNetSender("tcp", lis.Addr().String(), time.Second, clock.New())
	defer s.Close()

	ctx := context.Background()
	if err := s.Send(ctx, []byte("a 1 1\n")); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if err := s.Send(ctx, []byte("b 2 2\n")); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}

	for _, want := range []string{"a 1 1", "b 2 2"} {
		select {
		case got := <-lines:
			if got != want {
				t.Errorf("received %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestNetSender_ReconnectThrottled(t *testing.T) {
	// Grab a free port, then close it so dials are refused.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	mock := clock.NewMock()
	s := newNetSender("tcp", addr, time.Second, mock)
	ctx := context.Background()

	err = s.Send(ctx, []byte("x"))
	if !errors.Is(err, types.ErrTransport) {
		t.Fatalf("first Send() err = %v, want ErrTransport", err)
	}
	if errors.Is(err, errReconnectThrottled) {
		t.Fatal("first failure should come from the dial, not the throttle")
	}

	err = s.Send(ctx, []byte("x"))
	if !errors.Is(err, errReconnectThrottled) {
		t.Fatalf("second Send() err = %v, want throttled", err)
	}

	mock.Add(2 * backoffMax)
	err = s.Send(ctx, []byte("x"))
	if errors.Is(err, errReconnectThrottled) {
		t.Fatalf("Send() after backoff window still throttled: %v", err)
	}
}

func TestShipper_BackoffResets(t *testing.T) {
	b := newBackoff()
	// First few calls should be small.
	first := b.next()
	if first > 2*time.Second {
		t.Errorf("first backoff too large: %v", first)
	}
	for i := 0; i < 10; i++ {
		b.next()
	}
	b.reset()
	after := b.next()
	if after > 2*time.Second {
		t.Errorf("backoff after reset too large: %v", after)
	}
}

func TestBackoff_NeverExceedsMax(t *testing.T) {
	b := newBackoff()
	for i := 0; i < 50; i++ {
		d := b.next()
		// With jitter, max is backoffMax * 1.25
		if d > backoffMax*2 {
			t.Errorf("backoff[%d] = %v, exceeds 2×max", i, d)
		}
	}
}

func TestDestinationAddr(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"graphite", "graphite:2004"},
		{"graphite:2014", "graphite:2014"},
		{"10.0.0.1", "10.0.0.1:2004"},
		{"::1", "[::1]:2004"},
		{"[::1]:2003", "[::1]:2003"},
	}
	for _, tc := range tests {
		if got := destinationAddr(tc.host, 2004); got != tc.want {
			t.Errorf("destinationAddr(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}
