package cliplugins

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lanshare/internal/config"
	"lanshare/internal/listener"
	"lanshare/internal/node"
	"lanshare/internal/protocol"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/pkg/cli"
)

type fakeDiscovery struct {
	mu        sync.Mutex
	closed    bool
	listeners []listener.DataListener
}

func (f *fakeDiscovery) Send(string) error { return nil }

func (f *fakeDiscovery) AddDataListener(dl listener.DataListener) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, dl)
	return true
}

func (f *fakeDiscovery) RemoveDataListener(listener.DataListener) bool { return false }
func (f *fakeDiscovery) StartListening(time.Duration) bool           { return true }
func (f *fakeDiscovery) SetLoopbackMode(bool) error                  { return nil }

func (f *fakeDiscovery) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeDiscovery) Close() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	wasOpen := !f.closed
	f.closed = true
	return wasOpen
}

func (f *fakeDiscovery) deliver(text string) {
	f.mu.Lock()
	listeners := append([]listener.DataListener(nil), f.listeners...)
	f.mu.Unlock()

	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 7899}
	for _, l := range listeners {
		l.OnData(src, []byte(text))
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.Message
}

func (f *fakeSender) SendMessage(m protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) AddMessageListener(protocol.MessageListener) bool { return true }
func (f *fakeSender) StartListening(time.Duration) bool                { return true }
func (f *fakeSender) Close() bool                                      { return true }

func (f *fakeSender) messages() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Message(nil), f.sent...)
}

func testApp(t *testing.T) *AppContext {
	t.Helper()

	dir := t.TempDir()
	return &AppContext{
		Config: &config.Config{
			NickName:     "alice",
			LocalAddress: "10.0.0.1",
			Multicast: config.MulticastConfig{
				GroupAddress: "224.0.0.17",
				Port:         7899,
				StartTimeout: time.Second,
				StopTimeout:  time.Second,
			},
			Discovery: config.DiscoveryConfig{PingInterval: time.Hour, DisconnectAttempts: 1},
			Storage: config.StorageConfig{
				HistoryPath: filepath.Join(dir, "peers.db"),
				JournalPath: filepath.Join(dir, "journal.db"),
			},
			Transfer: config.TransferConfig{Port: 35035, MaxConnections: 4},
		},
		Log: slogdiscard.NewDiscardLogger(),
	}
}

func startTestNode(t *testing.T, app *AppContext) (*node.Node, *fakeDiscovery, *fakeSender) {
	t.Helper()

	disc := &fakeDiscovery{}
	ctrl := &fakeSender{}
	n, err := node.New(context.Background(), app.Config, node.Options{
		DiscoveryTransport: disc,
		Control:            ctrl,
	}, app.Log)
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n, disc, ctrl
}

// run executes args against c and returns what the command printed.
func run(t *testing.T, c *cli.CLI, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	c.Root().SetOut(&out)
	c.Root().SetErr(&out)
	err := c.Run(context.Background(), args)
	return out.String(), err
}
