package multicast

import (
	"net"
	"sync/atomic"
	"time"
)

// udpTransport adapts a UDP socket to listener.Transport. A blocked read is
// interrupted by moving the read deadline to now.
type udpTransport struct {
	conn   *net.UDPConn
	closed *atomic.Bool
}

func (t *udpTransport) Prepare() error {
	if t.closed.Load() {
		return ErrClosed
	}
	return t.conn.SetReadDeadline(time.Time{})
}

func (t *udpTransport) Read(buf []byte) (int, net.Addr, error) {
	n, addr, err := t.conn.ReadFromUDP(buf)
	if addr == nil {
		return n, nil, err
	}
	return n, addr, err
}

func (t *udpTransport) Interrupt() error {
	return t.conn.SetReadDeadline(time.Now())
}

func (t *udpTransport) ClearInterrupt() error {
	return t.conn.SetReadDeadline(time.Time{})
}
