// Package node wires discovery, the control channel, peer storage and the
// transfer listener into one running LAN client.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"lanshare/internal/config"
	"lanshare/internal/discovery"
	"lanshare/internal/multicast"
	"lanshare/internal/protocol"
	"lanshare/internal/storage/peerhistory"
	"lanshare/internal/storage/sessionlog"
	"lanshare/internal/tcp"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

const shutdownTimeout = 5 * time.Second

// ControlChannel carries protocol messages. *multicast.Client implements it.
type ControlChannel interface {
	SendMessage(m protocol.Message) error
	AddMessageListener(ml protocol.MessageListener) bool
	StartListening(timeout time.Duration) bool
	Close() bool
}

var _ ControlChannel = (*multicast.Client)(nil)

type Options struct {
	// AcceptTransfers opens the transfer port and accepts SEND_REQUESTs.
	AcceptTransfers bool
	// DiscoveryTransport and Control replace the multicast sockets.
	DiscoveryTransport discovery.Transport
	Control            ControlChannel
}

type Node struct {
	log *slog.Logger
	cfg *config.Config

	Discovery *discovery.Client
	History   *peerhistory.Store
	Journal   *sessionlog.Journal
	Transfer  *tcp.Server

	control   ControlChannel
	closeOnce sync.Once
	closeErr  error
}

func New(ctx context.Context, cfg *config.Config, opts Options, log *slog.Logger) (*Node, error) {
	const op = "node.New"

	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}

	n := &Node{log: log, cfg: cfg}
	if err := n.start(ctx, opts); err != nil {
		n.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (n *Node) start(ctx context.Context, opts Options) error {
	var err error

	sessionID := uuid.NewString()
	log := n.log.With(slog.String("session_id", sessionID))

	if path := n.cfg.Storage.HistoryPath; path != "" {
		n.History, err = peerhistory.New(peerhistory.Config{Path: path, SessionID: sessionID}, log)
		if err != nil {
			return err
		}
	}

	if path := n.cfg.Storage.JournalPath; path != "" {
		n.Journal, err = sessionlog.Open(ctx, sessionlog.Config{DBPath: path, SessionID: sessionID}, log)
		if err != nil {
			return err
		}
	}

	dcfg := n.cfg.DiscoveryConfig()
	if opts.DiscoveryTransport != nil {
		n.Discovery, err = discovery.NewWithTransport(opts.DiscoveryTransport, dcfg, log)
	} else {
		n.Discovery, err = discovery.New(dcfg, log)
	}
	if err != nil {
		return err
	}

	if n.History != nil {
		n.Discovery.AddPeerListener(n.History)
	}
	if n.Journal != nil {
		n.Discovery.AddPeerListener(n.Journal)
	}

	transferPort := 0
	if opts.AcceptTransfers {
		n.Transfer, err = tcp.NewServer(n.cfg.Transfer.Port, n.cfg.Transfer.MaxConnections, log)
		if err != nil {
			return err
		}
		n.Transfer.AddConnectionListener(&transferLogger{log: log})
		n.Transfer.AcceptIncomingConnections()
		transferPort = n.Transfer.Addr().Port
	}

	n.control = opts.Control
	if n.control == nil {
		n.control, err = multicast.New(n.cfg.MulticastConfig(), log)
		if err != nil {
			return err
		}
	}

	n.control.AddMessageListener(&responder{
		sender:       n.control,
		nickName:     n.Discovery.NickName,
		address:      n.Discovery.LocalAddress(),
		transferPort: transferPort,
		log:          log,
	})
	if !n.control.StartListening(n.cfg.Multicast.StartTimeout) {
		return fmt.Errorf("control channel: %w", discovery.ErrStartTimeout)
	}

	log.Info("node started",
		slog.String("nick", n.Discovery.NickName()),
		slog.String("ip", n.Discovery.LocalAddress()),
		slog.Int("transfer_port", transferPort),
	)
	return nil
}

// Control exposes the protocol channel for one-off announcements.
func (n *Node) Control() ControlChannel {
	return n.control
}

// Reconfigure applies the settings that can change without a restart.
func (n *Node) Reconfigure(cfg *config.Config) {
	if cfg.NickName != "" && n.Discovery.SetNickName(cfg.NickName) {
		n.log.Info("nickname changed", slog.String("nick", cfg.NickName))
	}
}

// Close withdraws from the network and closes storage. Only the first
// call does any work.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		n.closeErr = n.close()
	})
	return n.closeErr
}

func (n *Node) close() error {
	const op = "node.Close"

	log := n.log.With(slog.String("op", op))

	var errs []error

	if n.control != nil {
		n.control.Close()
	}
	if n.Discovery != nil {
		n.Discovery.Close()
	}

	if n.Transfer != nil {
		if err := n.Transfer.Close(); err != nil && !errors.Is(err, tcp.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if n.Journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		ended, err := n.Journal.EndAll(ctx, sessionlog.EndLocalShutdown)
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
		log.Debug("sessions closed", slog.Int64("count", ended))
		if err := n.Journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if n.History != nil {
		if err := n.History.MarkAllOffline(); err != nil {
			errs = append(errs, err)
		}
		if err := n.History.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Error("shutdown finished with errors", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("node stopped")
	return nil
}

// transferLogger stands in for the file transfer handler, which is not
// part of this client yet.
type transferLogger struct {
	log *slog.Logger
}

func (t *transferLogger) OnConnectionEstablished(conn net.Conn) {
	t.log.Info("transfer connection refused: no transfer handler",
		slog.String("remote", conn.RemoteAddr().String()),
	)
	conn.Close()
}
