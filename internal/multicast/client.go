// Package multicast implements a UDP multicast transport on top of the
// listener engine.
package multicast

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"golang.org/x/net/ipv4"

	"lanshare/internal/listener"
	"lanshare/internal/protocol"
	"lanshare/internal/registry"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

// Client sends datagrams to a multicast group and receives the group's
// traffic through the embedded listener.Listener.
type Client struct {
	*listener.Listener

	cfg    Config
	log    *slog.Logger
	conn   *net.UDPConn
	pconn  *ipv4.PacketConn
	group  *net.UDPAddr
	closed atomic.Bool

	messageListeners *registry.Set[protocol.MessageListener]
}

// New binds the group port, joins the group on every up multicast-capable
// interface and applies the loopback mode from cfg. The receive loop is not
// started.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	const op = "multicast.New"

	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}
	cfg = cfg.withDefaults()
	log = log.With(slog.String("op", op), slog.String("group", cfg.GroupAddress), slog.Int("port", cfg.Port))

	ip := net.ParseIP(cfg.GroupAddress)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%s: invalid IPv4 group address %q", op, cfg.GroupAddress)
	}
	if !ip.IsMulticast() {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrNotMulticast, cfg.GroupAddress)
	}
	group := &net.UDPAddr{IP: ip, Port: cfg.Port}

	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn := pc.(*net.UDPConn)
	pconn := ipv4.NewPacketConn(conn)

	joined, err := joinAll(pconn, group, log)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, ErrNoInterfaces)
	}

	if err := pconn.SetMulticastTTL(cfg.TTL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: set ttl: %w", op, err)
	}
	if err := pconn.SetMulticastLoopback(cfg.Loopback); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: set loopback: %w", op, err)
	}

	c := &Client{
		cfg:              cfg,
		log:              log.With(slog.String("op", "multicast.Client")),
		conn:             conn,
		pconn:            pconn,
		group:            group,
		messageListeners: registry.New[protocol.MessageListener](),
	}
	c.Listener = listener.New(&udpTransport{conn: conn, closed: &c.closed}, cfg.ReadBufferSize, c.log)
	c.Listener.AddDataListener(&dispatcher{messageListeners: c.messageListeners})

	log.Info("joined multicast group", slog.Int("interfaces", joined))

	return c, nil
}

func joinAll(pconn *ipv4.PacketConn, group *net.UDPAddr, log *slog.Logger) (int, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("list interfaces: %w", err)
	}

	joined := 0
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pconn.JoinGroup(iface, group); err != nil {
			log.Debug("failed to join group", slog.String("interface", iface.Name), sl.Err(err))
			continue
		}
		joined++
	}
	return joined, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// GroupAddr returns the group address datagrams are sent to.
func (c *Client) GroupAddr() *net.UDPAddr {
	return c.group
}

// LocalAddr returns the bound socket address.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// SetLoopbackMode controls whether this endpoint receives its own datagrams.
func (c *Client) SetLoopbackMode(enable bool) error {
	const op = "multicast.SetLoopbackMode"

	if c.IsClosed() {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if err := c.pconn.SetMulticastLoopback(enable); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Send transmits text to the group.
func (c *Client) Send(text string) error {
	const op = "multicast.Send"

	if c.IsClosed() {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if _, err := c.conn.WriteToUDP([]byte(text), c.group); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendMessage encodes m and transmits it to the group.
func (c *Client) SendMessage(m protocol.Message) error {
	const op = "multicast.SendMessage"

	text, err := protocol.Encode(m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.Send(text)
}

// IsListening reports whether the receive loop runs on an open socket.
func (c *Client) IsListening() bool {
	return !c.IsClosed() && c.Listener.IsListening()
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// Close stops the receive loop, waiting up to the configured stop timeout,
// and then releases the socket. It returns false if already closed.
func (c *Client) Close() bool {
	const op = "multicast.Close"
	log := c.log.With(slog.String("op", op))

	if !c.closed.CompareAndSwap(false, true) {
		return false
	}

	if c.State() != listener.StateStopped && !c.StopListeningWait(c.cfg.StopTimeout) {
		log.Warn("receive loop did not confirm stop", slog.Duration("timeout", c.cfg.StopTimeout))
	}

	if err := c.conn.Close(); err != nil {
		log.Debug("failed to close socket", sl.Err(err))
	}
	return true
}

// AddMessageListener registers ml for decoded messages and reports false
// if it was already registered.
func (c *Client) AddMessageListener(ml protocol.MessageListener) bool {
	return c.messageListeners.Add(ml)
}

func (c *Client) ContainsMessageListener(ml protocol.MessageListener) bool {
	return c.messageListeners.Contains(ml)
}

func (c *Client) RemoveMessageListener(ml protocol.MessageListener) bool {
	return c.messageListeners.Remove(ml)
}

// dispatcher decodes every datagram for the message listeners.
type dispatcher struct {
	messageListeners *registry.Set[protocol.MessageListener]
}

func (d *dispatcher) OnData(_ net.Addr, data []byte) {
	listeners := d.messageListeners.Snapshot()
	if len(listeners) == 0 {
		return
	}
	protocol.Dispatch(string(data), listeners)
}
