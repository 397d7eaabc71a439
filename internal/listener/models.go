package listener

import (
	"log/slog"
	"net"
	"sync"

	"lanshare/internal/registry"
	"lanshare/internal/syncutil"
)

// DefaultBufferSize is the receive buffer used when none is configured.
const DefaultBufferSize = 4096

// State описывает фазу жизненного цикла цикла приема
type State int

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Transport supplies the channel specific steps of the receive loop.
type Transport interface {
	// Prepare establishes or validates the underlying channel. It runs on the
	// loop goroutine before the first Read.
	Prepare() error

	// Read performs a single blocking read into buf and reports the sender.
	Read(buf []byte) (n int, src net.Addr, err error)

	// Interrupt unblocks a pending Read. It must be safe to call from any goroutine.
	Interrupt() error

	// ClearInterrupt undoes a previous Interrupt so later reads block again.
	ClearInterrupt() error
}

// DataListener receives every unit read by a Listener. data is a copy of the
// receive buffer shared by all listeners of one read and must not be modified.
// Implementations are used as registry handles and must be comparable,
// in practice pointer types.
type DataListener interface {
	OnData(src net.Addr, data []byte)
}

// Listener runs a background receive loop over a Transport and fans each
// received unit out to the registered DataListeners. A Listener can be
// started again after it has stopped.
type Listener struct {
	transport  Transport
	bufferSize int
	log        *slog.Logger

	mu           sync.Mutex
	state        State
	shouldListen bool
	started      *syncutil.Signaller
	stopped      *syncutil.Signaller

	listeners *registry.Set[DataListener]
}
