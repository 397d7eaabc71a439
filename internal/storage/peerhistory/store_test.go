package peerhistory

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"lanshare/internal/discovery"
)

var _ discovery.PeerListener = (*Store)(nil)

type testHelper struct {
	store *Store
	path  string
	clock time.Time
}

func setupTest(t *testing.T) *testHelper {
	t.Helper()

	path := filepath.Join(t.TempDir(), "peers.db")
	store, err := New(Config{Path: path, SessionID: "session-1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, store)

	h := &testHelper{
		store: store,
		path:  path,
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	store.now = func() time.Time { return h.clock }

	t.Cleanup(func() {
		store.Close()
	})

	return h
}

func (h *testHelper) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func TestStore_PeerLifecycle(t *testing.T) {
	h := setupTest(t)

	h.store.OnPeerConnected("10.0.0.1", "alice")

	rec, err := h.store.Get("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.NickName)
	assert.True(t, rec.Online)
	assert.Equal(t, "session-1", rec.SessionID)
	assert.True(t, rec.FirstSeen.Equal(h.clock))
	assert.Empty(t, rec.PreviousNickNames)

	first := h.clock
	h.advance(time.Minute)
	h.store.OnPeerNickNameChange("10.0.0.1", "alicia", "alice")

	rec, err = h.store.Get("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "alicia", rec.NickName)
	assert.Equal(t, []string{"alice"}, rec.PreviousNickNames)
	assert.True(t, rec.FirstSeen.Equal(first))
	assert.True(t, rec.LastSeen.Equal(h.clock))

	h.advance(time.Minute)
	h.store.OnPeerDisconnected("10.0.0.1", "alicia")

	rec, err = h.store.Get("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, rec.Online)
	assert.Equal(t, "alicia", rec.NickName)
	assert.True(t, rec.LastSeen.Equal(h.clock))
}

func TestStore_ReconnectWithNewNickName(t *testing.T) {
	h := setupTest(t)

	h.store.OnPeerConnected("10.0.0.1", "alice")
	h.store.OnPeerDisconnected("10.0.0.1", "alice")
	h.store.OnPeerConnected("10.0.0.1", "alicia")

	rec, err := h.store.Get("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, rec.Online)
	assert.Equal(t, "alicia", rec.NickName)
	assert.Equal(t, []string{"alice"}, rec.PreviousNickNames)
}

func TestStore_Get(t *testing.T) {
	h := setupTest(t)
	h.store.OnPeerConnected("10.0.0.1", "alice")

	tests := []struct {
		name      string
		address   string
		errorType error
	}{
		{name: "Existing peer", address: "10.0.0.1"},
		{name: "Unknown peer", address: "10.0.0.99", errorType: ErrPeerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := h.store.Get(tt.address)
			if tt.errorType != nil {
				assert.ErrorIs(t, err, tt.errorType)
				assert.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.address, rec.Address)
		})
	}
}

func TestStore_List(t *testing.T) {
	h := setupTest(t)

	for i := 1; i <= 3; i++ {
		h.store.OnPeerConnected(fmt.Sprintf("10.0.0.%d", i), fmt.Sprintf("peer%d", i))
		h.advance(time.Second)
	}

	records, err := h.store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// последний увиденный первым
	assert.Equal(t, "10.0.0.3", records[0].Address)
	assert.Equal(t, "10.0.0.1", records[2].Address)
}

func TestStore_Delete(t *testing.T) {
	h := setupTest(t)
	h.store.OnPeerConnected("10.0.0.1", "alice")

	tests := []struct {
		name    string
		address string
	}{
		{name: "Delete existing peer", address: "10.0.0.1"},
		{name: "Delete unknown peer", address: "10.0.0.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, h.store.Delete(tt.address))

			_, err := h.store.Get(tt.address)
			assert.ErrorIs(t, err, ErrPeerNotFound)
		})
	}
}

func TestStore_EmptyAddressIsNotStored(t *testing.T) {
	h := setupTest(t)

	h.store.OnPeerConnected("", "nobody")

	records, err := h.store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_ReopenMarksPeersOffline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.db")

	store, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	store.OnPeerConnected("10.0.0.1", "alice")
	store.OnPeerConnected("10.0.0.2", "bob")
	first := store.SessionID()
	require.NoError(t, store.Close())

	store, err = New(Config{Path: path}, nil)
	require.NoError(t, err)
	defer store.Close()
	assert.NotEqual(t, first, store.SessionID())

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.False(t, rec.Online, rec.Address)
		assert.Equal(t, first, rec.SessionID)
	}
}

func TestStore_Concurrency(t *testing.T) {
	h := setupTest(t)
	h.store.now = time.Now

	const numGoroutines = 10
	done := make(chan bool)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			h.store.OnPeerConnected(fmt.Sprintf("10.0.1.%d", id), fmt.Sprintf("peer%d", id))
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	records, err := h.store.List()
	assert.NoError(t, err)
	assert.Len(t, records, numGoroutines)
}

func TestAppendNickName(t *testing.T) {
	assert.Nil(t, appendNickName(nil, ""))
	assert.Equal(t, []string{"a"}, appendNickName(nil, "a"))
	assert.Equal(t, []string{"a"}, appendNickName([]string{"a"}, "a"))
	assert.Equal(t, []string{"a", "b"}, appendNickName([]string{"a"}, "b"))
}

func TestStore_ReadOnly(t *testing.T) {
	h := setupTest(t)

	h.store.OnPeerConnected("10.0.0.1", "alice")
	require.NoError(t, h.store.Close())

	ro, err := New(Config{
		Path:    h.path,
		Options: &bbolt.Options{ReadOnly: true, Timeout: time.Second},
	}, nil)
	require.NoError(t, err)
	defer ro.Close()

	records, err := ro.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	// открытие только на чтение не сбрасывает статус
	assert.True(t, records[0].Online)

	assert.Error(t, ro.Delete("10.0.0.1"))
}
