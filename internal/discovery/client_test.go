package discovery

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lanshare/internal/listener"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []string
	sendErr   error
	loopback  bool
	startOK   bool
	listening bool
	closed    bool
	closes    int
	listeners []listener.DataListener
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{startOK: true}
}

func (f *fakeTransport) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) AddDataListener(dl listener.DataListener) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listeners {
		if l == dl {
			return false
		}
	}
	f.listeners = append(f.listeners, dl)
	return true
}

func (f *fakeTransport) RemoveDataListener(dl listener.DataListener) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.listeners {
		if l == dl {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeTransport) StartListening(time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening = f.startOK
	return f.startOK
}

func (f *fakeTransport) SetLoopbackMode(enable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loopback = enable
	return nil
}

func (f *fakeTransport) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) Close() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closed {
		return false
	}
	f.closed = true
	f.listening = false
	return true
}

// deliver plays the role of the receive goroutine.
func (f *fakeTransport) deliver(text string) {
	f.mu.Lock()
	listeners := append([]listener.DataListener(nil), f.listeners...)
	f.mu.Unlock()

	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 7899}
	for _, l := range listeners {
		l.OnData(src, []byte(text))
	}
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) count(text string) int {
	n := 0
	for _, s := range f.sentMessages() {
		if s == text {
			n++
		}
	}
	return n
}

type mockPeerListener struct {
	mock.Mock
}

func (m *mockPeerListener) OnPeerConnected(ipAddress, nickName string) {
	m.Called(ipAddress, nickName)
}

func (m *mockPeerListener) OnPeerNickNameChange(ipAddress, newNickName, oldNickName string) {
	m.Called(ipAddress, newNickName, oldNickName)
}

func (m *mockPeerListener) OnPeerDisconnected(ipAddress, nickName string) {
	m.Called(ipAddress, nickName)
}

func testConfig() Config {
	return Config{
		NickName:     "bob",
		LocalAddress: "10.0.0.2",
		PingInterval: time.Hour,
	}
}

func newTestClient(t *testing.T) (*Client, *fakeTransport) {
	t.Helper()

	ft := newFakeTransport()
	c, err := NewWithTransport(ft, testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, ft
}

func TestClient_PeerLifecycle(t *testing.T) {
	c, ft := newTestClient(t)

	pl := new(mockPeerListener)
	require.True(t, c.AddPeerListener(pl))

	pl.On("OnPeerConnected", "10.0.0.1", "alice").Once()
	ft.deliver("ping,10.0.0.1,alice")
	ft.deliver("ping,10.0.0.1,alice")
	assert.Equal(t, map[string]string{"10.0.0.1": "alice"}, c.Peers())

	pl.On("OnPeerNickNameChange", "10.0.0.1", "alicia", "alice").Once()
	ft.deliver("ping,10.0.0.1,alicia")
	ft.deliver("ping,10.0.0.1,alicia")
	assert.Equal(t, map[string]string{"10.0.0.1": "alicia"}, c.Peers())

	pl.On("OnPeerDisconnected", "10.0.0.1", "alicia").Once()
	ft.deliver("dc,10.0.0.1,alicia")
	assert.NotContains(t, c.Peers(), "10.0.0.1")

	pl.AssertExpectations(t)
	pl.AssertNumberOfCalls(t, "OnPeerConnected", 1)
	pl.AssertNumberOfCalls(t, "OnPeerNickNameChange", 1)
	pl.AssertNumberOfCalls(t, "OnPeerDisconnected", 1)
}

func TestClient_DisconnectReportsStoredNickName(t *testing.T) {
	c, ft := newTestClient(t)

	pl := new(mockPeerListener)
	c.AddPeerListener(pl)
	pl.On("OnPeerConnected", "10.0.0.1", "alice").Once()
	pl.On("OnPeerDisconnected", "10.0.0.1", "alice").Once()

	ft.deliver("ping,10.0.0.1,alice")
	ft.deliver("dc,10.0.0.1,someone-else")

	pl.AssertExpectations(t)
	assert.Empty(t, c.Peers())
}

func TestClient_DuplicateDisconnectIsNoop(t *testing.T) {
	c, ft := newTestClient(t)

	pl := new(mockPeerListener)
	c.AddPeerListener(pl)

	ft.deliver("dc,10.0.0.9,ghost")
	ft.deliver("dc,10.0.0.9,ghost")

	pl.AssertNotCalled(t, "OnPeerDisconnected", mock.Anything, mock.Anything)
	assert.Empty(t, pl.Calls)
	assert.Empty(t, c.Peers())
}

func TestClient_IgnoresMalformedDatagrams(t *testing.T) {
	c, ft := newTestClient(t)

	pl := new(mockPeerListener)
	c.AddPeerListener(pl)

	for _, text := range []string{"", "ping", "ping,10.0.0.1", "hello,10.0.0.1,x", "0,alice,10.0.0.1"} {
		ft.deliver(text)
	}

	assert.Empty(t, pl.Calls)
	assert.Empty(t, c.Peers())
}

func TestClient_MultipleListeners(t *testing.T) {
	c, ft := newTestClient(t)

	first := new(mockPeerListener)
	second := new(mockPeerListener)
	require.True(t, c.AddPeerListener(first))
	require.True(t, c.AddPeerListener(second))
	first.On("OnPeerConnected", "10.0.0.3", "carol").Once()
	second.On("OnPeerConnected", "10.0.0.3", "carol").Once()

	ft.deliver("ping,10.0.0.3,carol")

	first.AssertExpectations(t)
	second.AssertExpectations(t)

	require.True(t, c.RemovePeerListener(second))
	first.On("OnPeerDisconnected", "10.0.0.3", "carol").Once()
	ft.deliver("dc,10.0.0.3,carol")

	first.AssertExpectations(t)
	second.AssertNumberOfCalls(t, "OnPeerDisconnected", 0)
}

func TestClient_PeerListenerRegistry(t *testing.T) {
	c, _ := newTestClient(t)
	pl := new(mockPeerListener)

	assert.True(t, c.AddPeerListener(pl))
	assert.False(t, c.AddPeerListener(pl))
	assert.True(t, c.ContainsPeerListener(pl))
	assert.True(t, c.RemovePeerListener(pl))
	assert.False(t, c.ContainsPeerListener(pl))
	assert.False(t, c.RemovePeerListener(pl))
}

func TestClient_PeersIsSnapshot(t *testing.T) {
	c, ft := newTestClient(t)

	ft.deliver("ping,10.0.0.1,alice")
	snapshot := c.Peers()
	snapshot["10.0.0.1"] = "mallory"
	snapshot["10.0.0.66"] = "eve"

	assert.Equal(t, map[string]string{"10.0.0.1": "alice"}, c.Peers())
}

func TestClient_SetNickName(t *testing.T) {
	c, _ := newTestClient(t)

	assert.Equal(t, "bob", c.NickName())
	assert.False(t, c.SetNickName("bob"))
	assert.True(t, c.SetNickName("robert"))
	assert.Equal(t, "robert", c.NickName())
	assert.False(t, c.SetNickName("rob,ert"))
	assert.Equal(t, "robert", c.NickName())
}

func TestClient_Pings(t *testing.T) {
	ft := newFakeTransport()
	cfg := testConfig()
	cfg.PingInterval = 10 * time.Millisecond

	c, err := NewWithTransport(ft, cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		return ft.count("ping,10.0.0.2,bob") >= 2
	}, time.Second, 5*time.Millisecond)

	c.SetNickName("robert")
	require.Eventually(t, func() bool {
		return ft.count("ping,10.0.0.2,robert") >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestClient_PingFailureKeepsSchedule(t *testing.T) {
	ft := newFakeTransport()
	ft.sendErr = errors.New("network unreachable")
	cfg := testConfig()
	cfg.PingInterval = 10 * time.Millisecond

	c, err := NewWithTransport(ft, cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	time.Sleep(30 * time.Millisecond)
	ft.mu.Lock()
	ft.sendErr = nil
	ft.mu.Unlock()

	require.Eventually(t, func() bool {
		return ft.count("ping,10.0.0.2,bob") >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestClient_Close(t *testing.T) {
	ft := newFakeTransport()
	c, err := NewWithTransport(ft, testConfig(), nil)
	require.NoError(t, err)

	ft.deliver("ping,10.0.0.1,alice")
	require.NotEmpty(t, c.Peers())

	pl := new(mockPeerListener)
	c.AddPeerListener(pl)

	assert.True(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.False(t, c.Close())

	assert.Equal(t, DefaultDisconnectAttempts, ft.count("dc,10.0.0.2,bob"))
	assert.True(t, ft.IsClosed())
	assert.Empty(t, c.Peers())
	assert.Empty(t, pl.Calls)
	assert.ErrorIs(t, c.SetLoopbackMode(true), ErrClosed)

	// после закрытия входящие сообщения игнорируются
	ft.deliver("ping,10.0.0.5,dave")
	assert.Empty(t, c.Peers())
}

func TestClient_CloseSwallowsSendErrors(t *testing.T) {
	ft := newFakeTransport()
	c, err := NewWithTransport(ft, testConfig(), nil)
	require.NoError(t, err)

	ft.mu.Lock()
	ft.sendErr = errors.New("socket closed")
	ft.mu.Unlock()

	assert.True(t, c.Close())
	assert.True(t, ft.IsClosed())
}

func TestNewWithTransport_StartOrder(t *testing.T) {
	ft := newFakeTransport()
	cfg := testConfig()
	cfg.Loopback = true

	c, err := NewWithTransport(ft, cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.True(t, ft.loopback)
	assert.True(t, ft.listening)
	assert.Len(t, ft.listeners, 1)
}

func TestNewWithTransport_StartTimeout(t *testing.T) {
	ft := newFakeTransport()
	ft.startOK = false

	c, err := NewWithTransport(ft, testConfig(), nil)
	require.ErrorIs(t, err, ErrStartTimeout)
	assert.Nil(t, c)
	assert.True(t, ft.IsClosed())
	assert.Empty(t, ft.sentMessages())
}

func TestNewWithTransport_InvalidNickName(t *testing.T) {
	ft := newFakeTransport()
	cfg := testConfig()
	cfg.NickName = "a,b"

	_, err := NewWithTransport(ft, cfg, nil)
	require.ErrorIs(t, err, ErrInvalidNickName)
	assert.True(t, ft.IsClosed())
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Regexp(t, `^peer-`, cfg.NickName)
	assert.NotEmpty(t, cfg.LocalAddress)
	assert.Equal(t, DefaultPingInterval, cfg.PingInterval)
	assert.Equal(t, DefaultDisconnectAttempts, cfg.DisconnectAttempts)
	assert.Equal(t, DefaultStartTimeout, cfg.StartTimeout)
}
