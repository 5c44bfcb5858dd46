package hackchat

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/hcbot/hackchat/frame"
)

// pipeConn is an in-memory Conn. Frames pushed with deliver are read by the
// session; frames the session writes are kept in order.
type pipeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written [][]byte
	wrote   chan struct{}
	failAll bool
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan []byte, 64),
		closed: make(chan struct{}),
		wrote:  make(chan struct{}, 256),
	}
}

func (c *pipeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *pipeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("write on closed pipe")
	default:
	}
	c.mu.Lock()
	if c.failAll {
		c.mu.Unlock()
		return errors.New("write refused")
	}
	c.written = append(c.written, append([]byte(nil), data...))
	c.mu.Unlock()
	select {
	case c.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) deliver(data string) {
	c.in <- []byte(data)
}

func (c *pipeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// commands returns the cmd of every written frame.
func (c *pipeConn) commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, data := range c.written {
		f, err := frame.Decode(data)
		if err != nil {
			out = append(out, "?")
			continue
		}
		out = append(out, f.Cmd)
	}
	return out
}

func (c *pipeConn) frame(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.written) {
		return nil
	}
	return c.written[i]
}

func (c *pipeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

// pipeDialer hands out pipeConns in dial order.
type pipeDialer struct {
	mu    sync.Mutex
	conns []*pipeConn
	fail  map[int]error // dial index -> error
	clock Clock
	dials []time.Time
}

func (d *pipeDialer) Dial(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := len(d.dials)
	if d.clock != nil {
		d.dials = append(d.dials, d.clock.Now())
	} else {
		d.dials = append(d.dials, time.Now())
	}
	if err := d.fail[idx]; err != nil {
		return nil, err
	}
	c := newPipeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *pipeDialer) dialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.dials...)
}

func (d *pipeDialer) conn(i int) *pipeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// eventLog collects handler calls.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newEventLog() *eventLog {
	return &eventLog{ch: make(chan Event, 256)}
}

func (l *eventLog) handle(_ *Session, ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	l.ch <- ev
}

func (l *eventLog) next(timeout time.Duration) (Event, bool) {
	select {
	case ev := <-l.ch:
		return ev, true
	case <-time.After(timeout):
		return nil, false
	}
}
