// Package discovery tracks the peers present on the local network.
//
// Every client periodically announces itself with a PING carrying its
// address and nickname. A peer is connected from its first PING until it
// withdraws with a DISCONNECT; there is no timeout.
package discovery

import (
	"time"

	"lanshare/internal/listener"
	"lanshare/internal/multicast"
)

const (
	DefaultPingInterval       = time.Second
	DefaultDisconnectAttempts = 3
	DefaultStartTimeout       = 2 * time.Second
)

// PeerListener receives peer lifecycle events. Callbacks run on the
// receive goroutine and must not block for long.
type PeerListener interface {
	OnPeerConnected(ipAddress, nickName string)
	OnPeerNickNameChange(ipAddress, newNickName, oldNickName string)
	OnPeerDisconnected(ipAddress, nickName string)
}

// Transport is the datagram channel discovery runs over. *multicast.Client
// implements it.
type Transport interface {
	Send(text string) error
	AddDataListener(dl listener.DataListener) bool
	RemoveDataListener(dl listener.DataListener) bool
	StartListening(timeout time.Duration) bool
	SetLoopbackMode(enable bool) error
	IsClosed() bool
	Close() bool
}

var _ Transport = (*multicast.Client)(nil)

type Config struct {
	// NickName is announced in every PING. Empty selects a generated one.
	NickName string
	// LocalAddress is announced as this client's address. Empty selects
	// the first non-loopback IPv4 address of the host.
	LocalAddress       string
	PingInterval       time.Duration
	DisconnectAttempts int
	// Loopback lets the client observe its own announcements.
	Loopback     bool
	StartTimeout time.Duration
	Multicast    multicast.Config
}

func (c Config) withDefaults() Config {
	if c.NickName == "" {
		c.NickName = DefaultNickName()
	}
	if c.LocalAddress == "" {
		c.LocalAddress = DetectLocalAddress()
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.DisconnectAttempts <= 0 {
		c.DisconnectAttempts = DefaultDisconnectAttempts
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	return c
}
