package tcp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"lanshare/internal/registry"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

const (
	DefaultPort           = 35035
	DefaultMaxConnections = 100 // Максимальное число одновременных соединений
)

// ConnectionListener is told about every accepted connection. Closing the
// connection frees its slot on the server.
type ConnectionListener interface {
	OnConnectionEstablished(conn net.Conn)
}

// Server accepts incoming connections on a port. Accepting can be stopped
// and resumed; once closed the server cannot be reopened.
type Server struct {
	ln             *net.TCPListener
	log            *slog.Logger
	maxConnections int
	connLimiter    chan struct{}

	mu        sync.Mutex
	accepting bool
	done      chan struct{}
	closed    bool
	clients   map[*serverConn]struct{}

	listeners *registry.Set[ConnectionListener]
}

// NewServer listens on port on all interfaces. Port 0 picks a free port.
func NewServer(port, maxConnections int, log *slog.Logger) (*Server, error) {
	const op = "tcp.NewServer"

	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}
	if port < 0 || port > 65535 {
		port = DefaultPort
	}
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve address: %w", op, err)
	}

	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to listen: %w", op, err)
	}

	log.Info("server started", slog.String("op", op), slog.String("addr", ln.Addr().String()))

	return &Server{
		ln:             ln,
		log:            log,
		maxConnections: maxConnections,
		connLimiter:    make(chan struct{}, maxConnections),
		clients:        make(map[*serverConn]struct{}),
		listeners:      registry.New[ConnectionListener](),
	}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() *net.TCPAddr {
	return s.ln.Addr().(*net.TCPAddr)
}

// AcceptIncomingConnections starts the accept loop and returns false if it
// is already running or the server is closed.
func (s *Server) AcceptIncomingConnections() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.accepting {
		return false
	}
	if err := s.ln.SetDeadline(time.Time{}); err != nil {
		s.log.Warn("failed to clear accept deadline", sl.Err(err))
	}

	s.accepting = true
	s.done = make(chan struct{})
	go s.acceptLoop(s.done)
	return true
}

func (s *Server) IsAcceptingIncomingConnections() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.accepting
}

// StopAcceptingIncomingConnections interrupts the accept loop and waits for
// it to exit. Established connections stay open. It returns false if the
// loop was not running.
func (s *Server) StopAcceptingIncomingConnections() bool {
	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		return false
	}
	s.accepting = false
	done := s.done
	if err := s.ln.SetDeadline(time.Now()); err != nil {
		s.log.Debug("failed to interrupt accept", sl.Err(err))
	}
	s.mu.Unlock()

	<-done
	return true
}

func (s *Server) acceptLoop(done chan struct{}) {
	const op = "tcp.acceptLoop"
	log := s.log.With(slog.String("op", op))

	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.accepting = false
		}
		s.mu.Unlock()
		close(done)
	}()

	for {
		conn, err := s.ln.Accept()

		s.mu.Lock()
		keep := s.accepting
		s.mu.Unlock()

		if err != nil {
			if keep && errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if keep {
				log.Debug("accept loop terminated", sl.Err(err))
			}
			return
		}

		select {
		case s.connLimiter <- struct{}{}:
			s.register(conn)
		default:
			log.Warn("too many connections, rejecting new connection", slog.String("remote", conn.RemoteAddr().String()))
			conn.Close()
		}

		if !keep {
			return
		}
	}
}

func (s *Server) register(conn net.Conn) {
	sc := &serverConn{Conn: conn}
	sc.release = func() {
		s.mu.Lock()
		delete(s.clients, sc)
		s.mu.Unlock()
		<-s.connLimiter
	}

	s.mu.Lock()
	s.clients[sc] = struct{}{}
	s.mu.Unlock()

	s.log.Info("new connection established", slog.String("remote", conn.RemoteAddr().String()))

	for _, l := range s.listeners.Snapshot() {
		l.OnConnectionEstablished(sc)
	}
}

// ConnectedClients returns the connections accepted and not yet closed.
func (s *Server) ConnectedClients() []net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := make([]net.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// IsClosed reports whether Close was called.
func (s *Server) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops accepting, closes the listening socket and every connected
// client.
func (s *Server) Close() error {
	const op = "tcp.Server.Close"

	s.StopAcceptingIncomingConnections()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrServerClosed)
	}
	s.closed = true
	clients := make([]*serverConn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}

	if err := s.ln.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Server) AddConnectionListener(l ConnectionListener) bool {
	return s.listeners.Add(l)
}

func (s *Server) ContainsConnectionListener(l ConnectionListener) bool {
	return s.listeners.Contains(l)
}

func (s *Server) RemoveConnectionListener(l ConnectionListener) bool {
	return s.listeners.Remove(l)
}

// serverConn frees its connection slot on the first Close.
type serverConn struct {
	net.Conn
	once    sync.Once
	release func()
}

func (c *serverConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)
	return err
}
