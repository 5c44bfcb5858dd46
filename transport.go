package hackchat

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const (
	DefaultEndpoint    = "wss://hack.chat/chat-ws"
	defaultDialTimeout = 15 * time.Second
	writeTimeout       = 10 * time.Second
)

// Conn is a message-oriented connection carrying one frame per message.
// ReadMessage is called from a single goroutine; WriteMessage and Close may
// be called concurrently with it.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Conn to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

func (f DialFunc) Dial(ctx context.Context, endpoint string) (Conn, error) {
	return f(ctx, endpoint)
}

// WebSocketDialer dials endpoints over WebSocket.
type WebSocketDialer struct {
	Timeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialer := ws.Dialer{Timeout: timeout}
	conn, br, _, err := dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return newWSConn(conn, br), nil
}

// wsConn is a client-side WebSocket connection. Data frames and the replies
// to control frames share one write mutex so frames never interleave.
type wsConn struct {
	conn   net.Conn
	rd     *wsutil.Reader
	ctl    bytes.Buffer // control replies composed by the reader
	handle wsutil.FrameHandlerFunc

	mu sync.Mutex
}

func newWSConn(conn net.Conn, br *bufio.Reader) *wsConn {
	c := &wsConn{conn: conn}
	var src io.Reader = conn
	if br != nil {
		src = br
	}
	c.handle = wsutil.ControlFrameHandler(&c.ctl, ws.StateClientSide)
	c.rd = &wsutil.Reader{
		Source:         src,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: c.handle,
	}
	return c
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		hdr, err := c.rd.NextFrame()
		if err != nil {
			return nil, err
		}

		if hdr.OpCode.IsControl() {
			err := c.handle(hdr, c.rd)
			if ferr := c.flushControl(); err == nil {
				err = ferr
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := c.rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		data, err := io.ReadAll(c.rd)
		if ferr := c.flushControl(); err == nil {
			err = ferr
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func (c *wsConn) flushControl() error {
	if c.ctl.Len() == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(c.ctl.Bytes())
	c.ctl.Reset()
	return err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsutil.WriteClientText(c.conn, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
