package discovery

import (
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"lanshare/internal/multicast"
	"lanshare/internal/registry"
	"lanshare/internal/syncutil"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

// Client announces the local peer and maintains the table of peers heard
// on the transport.
type Client struct {
	transport Transport
	cfg       Config
	log       *slog.Logger

	nickMu   sync.RWMutex
	nickName string

	// peers is written only from the transport's receive goroutine.
	peersMu sync.RWMutex
	peers   map[string]string

	peerListeners *registry.Set[PeerListener]
	handler       *messageHandler

	pingStop *syncutil.Signaller
	pingDone chan struct{}
	closed   atomic.Bool
}

// New opens a multicast transport from cfg.Multicast and starts discovery
// on it.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	const op = "discovery.New"

	mc, err := multicast.New(cfg.Multicast, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := NewWithTransport(mc, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// NewWithTransport starts discovery on t: it registers the message handler,
// starts the receive loop and only then starts announcing. On failure t is
// closed.
func NewWithTransport(t Transport, cfg Config, log *slog.Logger) (*Client, error) {
	const op = "discovery.NewWithTransport"

	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}
	cfg = cfg.withDefaults()

	if strings.Contains(cfg.NickName, PeerDelimiter) {
		t.Close()
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidNickName, cfg.NickName)
	}

	c := &Client{
		transport:     t,
		cfg:           cfg,
		log:           log.With(slog.String("local_address", cfg.LocalAddress)),
		nickName:      cfg.NickName,
		peers:         make(map[string]string),
		peerListeners: registry.New[PeerListener](),
		pingStop:      syncutil.NewSignaller(),
		pingDone:      make(chan struct{}),
	}
	c.handler = &messageHandler{client: c}

	if err := t.SetLoopbackMode(cfg.Loopback); err != nil {
		t.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t.AddDataListener(c.handler)

	if !t.StartListening(cfg.StartTimeout) {
		t.Close()
		return nil, fmt.Errorf("%s: %w", op, ErrStartTimeout)
	}

	go c.pingLoop()

	c.log.Info("peer discovery started", slog.String("nick_name", cfg.NickName))

	return c, nil
}

func (c *Client) NickName() string {
	c.nickMu.RLock()
	defer c.nickMu.RUnlock()
	return c.nickName
}

// SetNickName changes the nickname used by subsequent announcements. It
// returns false if nickName equals the current one or is not representable
// in a peer message.
func (c *Client) SetNickName(nickName string) bool {
	const op = "discovery.SetNickName"

	if strings.Contains(nickName, PeerDelimiter) {
		c.log.Warn("nickname rejected", slog.String("op", op), slog.String("nick_name", nickName))
		return false
	}

	c.nickMu.Lock()
	defer c.nickMu.Unlock()

	if c.nickName == nickName {
		return false
	}
	c.nickName = nickName
	return true
}

// LocalAddress returns the address announced for this client.
func (c *Client) LocalAddress() string {
	return c.cfg.LocalAddress
}

func (c *Client) SetLoopbackMode(enable bool) error {
	if c.IsClosed() {
		return ErrClosed
	}
	return c.transport.SetLoopbackMode(enable)
}

// Peers returns a snapshot of the peer table, address to nickname.
func (c *Client) Peers() map[string]string {
	c.peersMu.RLock()
	defer c.peersMu.RUnlock()
	return maps.Clone(c.peers)
}

func (c *Client) AddPeerListener(pl PeerListener) bool {
	return c.peerListeners.Add(pl)
}

func (c *Client) ContainsPeerListener(pl PeerListener) bool {
	return c.peerListeners.Contains(pl)
}

func (c *Client) RemovePeerListener(pl PeerListener) bool {
	return c.peerListeners.Remove(pl)
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// Close stops announcing, broadcasts DISCONNECT a fixed number of times,
// closes the transport and forgets all peers. No disconnect events are
// fired for the forgotten peers. It returns false if already closed.
func (c *Client) Close() bool {
	const op = "discovery.Close"
	log := c.log.With(slog.String("op", op))

	if !c.closed.CompareAndSwap(false, true) {
		return false
	}

	c.pingStop.Signal()
	<-c.pingDone

	text := FormatPeerMessage(NewDisconnect(c.cfg.LocalAddress, c.NickName()))
	for i := 0; i < c.cfg.DisconnectAttempts; i++ {
		if err := c.transport.Send(text); err != nil {
			log.Debug("disconnect announcement failed", slog.Int("attempt", i+1), sl.Err(err))
		}
	}

	c.transport.Close()

	c.peersMu.Lock()
	clear(c.peers)
	c.peersMu.Unlock()

	log.Info("peer discovery stopped")

	return true
}

func (c *Client) pingLoop() {
	const op = "discovery.pingLoop"
	log := c.log.With(slog.String("op", op))

	defer close(c.pingDone)

	for {
		text := FormatPeerMessage(NewPing(c.cfg.LocalAddress, c.NickName()))
		if err := c.transport.Send(text); err != nil {
			log.Warn("failed to send ping", sl.Err(err))
		}

		if c.pingStop.WaitForTimeout(c.cfg.PingInterval) {
			return
		}
	}
}

// messageHandler receives raw datagrams from the transport.
type messageHandler struct {
	client *Client
}

func (h *messageHandler) OnData(_ net.Addr, data []byte) {
	const op = "discovery.OnData"
	c := h.client

	if c.IsClosed() {
		return
	}

	msg, err := ParsePeerMessage(string(data))
	if err != nil {
		c.log.Debug("dropped datagram", slog.String("op", op), sl.Err(err))
		return
	}

	switch msg.Type {
	case MessagePing:
		c.handlePing(msg)
	case MessageDisconnect:
		c.handleDisconnect(msg)
	}
}

func (c *Client) handlePing(msg PeerMessage) {
	c.peersMu.RLock()
	stored, known := c.peers[msg.IPAddress]
	c.peersMu.RUnlock()

	switch {
	case !known:
		c.log.Info("peer connected", slog.String("peer", msg.IPAddress), slog.String("nick_name", msg.NickName))
		for _, pl := range c.peerListeners.Snapshot() {
			pl.OnPeerConnected(msg.IPAddress, msg.NickName)
		}
	case stored != msg.NickName:
		c.log.Info("peer changed nickname",
			slog.String("peer", msg.IPAddress),
			slog.String("nick_name", msg.NickName),
			slog.String("old_nick_name", stored),
		)
		for _, pl := range c.peerListeners.Snapshot() {
			pl.OnPeerNickNameChange(msg.IPAddress, msg.NickName, stored)
		}
	default:
		return
	}

	c.peersMu.Lock()
	c.peers[msg.IPAddress] = msg.NickName
	c.peersMu.Unlock()
}

func (c *Client) handleDisconnect(msg PeerMessage) {
	c.peersMu.RLock()
	stored, known := c.peers[msg.IPAddress]
	c.peersMu.RUnlock()

	if !known {
		return
	}

	c.log.Info("peer disconnected", slog.String("peer", msg.IPAddress), slog.String("nick_name", stored))
	for _, pl := range c.peerListeners.Snapshot() {
		pl.OnPeerDisconnected(msg.IPAddress, stored)
	}

	c.peersMu.Lock()
	delete(c.peers, msg.IPAddress)
	c.peersMu.Unlock()
}
