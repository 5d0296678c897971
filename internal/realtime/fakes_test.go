package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
)

var errRefused = errors.New("connection refused")

type fakeConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(data string) {
	c.inbound <- []byte(data)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// fakeDialer replays scripted outcomes (nil means success) and then falls
// back to fallback for every further dial.
type fakeDialer struct {
	mu       sync.Mutex
	script   []error
	fallback error
	dials    int
	conns    []*fakeConn
	hold     chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	hold := d.hold
	var err error
	if len(d.script) > 0 {
		err = d.script[0]
		d.script = d.script[1:]
	} else {
		err = d.fallback
	}
	d.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func testLogger() *logger.Logger {
	log, _ := logger.New("", "test", "error")
	return log
}

func testPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 5,
		BaseDelay:   1000 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    30000 * time.Millisecond,
	}
}

func setupManager(t *testing.T, policy ReconnectPolicy, dialer *fakeDialer) (*Manager, *clock.MockClock) {
	t.Helper()
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m := NewManager(ManagerConfig{
		Name:     "dashboard",
		Endpoint: "ws://example.test/ws/dashboard/",
		Policy:   policy,
	}, dialer, mockClock, testLogger())
	t.Cleanup(m.Disconnect)
	return m, mockClock
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func connected(t *testing.T, m *Manager) {
	t.Helper()
	waitFor(t, "connected", func() bool { return m.State() == StateConnected })
}
