// Package tcp provides the point-to-point transports used once two peers
// agreed on a transfer: a Client whose reads run on the listener engine and
// a Server that accepts a bounded number of connections.
package tcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"lanshare/internal/listener"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultStopTimeout = 2 * time.Second
)

// Client is one outgoing connection. Received bytes are delivered to the
// data listeners of the embedded listener.Listener.
type Client struct {
	*listener.Listener

	log  *slog.Logger
	mu   sync.Mutex
	conn net.Conn
}

func NewClient(bufferSize int, log *slog.Logger) *Client {
	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}

	c := &Client{log: log}
	c.Listener = listener.New(&connTransport{client: c}, bufferSize, log)
	return c
}

// Connect dials address. The receive loop is not started.
func (c *Client) Connect(ctx context.Context, address string) error {
	const op = "tcp.Connect"
	log := c.log.With(slog.String("op", op), slog.String("address", address))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("%s: %w", op, ErrAlreadyConnected)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.conn = conn

	log.Info("connected", slog.String("remote", conn.RemoteAddr().String()))
	return nil
}

func (c *Client) currentConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// RemoteAddr returns the peer address, or nil when not connected.
func (c *Client) RemoteAddr() net.Addr {
	conn := c.currentConn()
	if conn == nil {
		return nil
	}
	return conn.RemoteAddr()
}

// Send writes text to the connection.
func (c *Client) Send(text string) error {
	const op = "tcp.Send"

	conn := c.currentConn()
	if conn == nil {
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	if _, err := conn.Write([]byte(text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Close was not called since.
func (c *Client) IsConnected() bool {
	return c.currentConn() != nil
}

// Close stops the receive loop and closes the connection. The client may
// Connect again afterwards.
func (c *Client) Close() error {
	const op = "tcp.Close"
	log := c.log.With(slog.String("op", op))

	if c.State() != listener.StateStopped && !c.StopListeningWait(DefaultStopTimeout) {
		log.Warn("receive loop did not confirm stop")
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	if err := conn.Close(); err != nil {
		log.Debug("failed to close connection", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// connTransport reads from whatever connection the client currently holds.
type connTransport struct {
	client *Client
}

func (t *connTransport) Prepare() error {
	conn := t.client.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.SetReadDeadline(time.Time{})
}

func (t *connTransport) Read(buf []byte) (int, net.Addr, error) {
	conn := t.client.currentConn()
	if conn == nil {
		return 0, nil, ErrNotConnected
	}
	n, err := conn.Read(buf)
	return n, conn.RemoteAddr(), err
}

func (t *connTransport) Interrupt() error {
	conn := t.client.currentConn()
	if conn == nil {
		return nil
	}
	return conn.SetReadDeadline(time.Now())
}

func (t *connTransport) ClearInterrupt() error {
	conn := t.client.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.SetReadDeadline(time.Time{})
}
