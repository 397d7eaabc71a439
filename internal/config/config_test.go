package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
env: dev
nick_name: alice
local_address: 192.168.1.10
multicast:
  group_address: 224.0.0.18
  port: 7900
  loopback: true
discovery:
  ping_interval: 250ms
storage:
  history_path: /tmp/history.db
  journal_path: /tmp/sessions.sqlite
transfer:
  port: 4000
  max_connections: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, "alice", cfg.NickName)
	assert.Equal(t, "192.168.1.10", cfg.LocalAddress)
	assert.Equal(t, "224.0.0.18", cfg.Multicast.GroupAddress)
	assert.Equal(t, 7900, cfg.Multicast.Port)
	assert.True(t, cfg.Multicast.Loopback)
	assert.Equal(t, 250*time.Millisecond, cfg.Discovery.PingInterval)
	assert.Equal(t, "/tmp/sessions.sqlite", cfg.Storage.JournalPath)
	assert.Equal(t, 4000, cfg.Transfer.Port)
	assert.Equal(t, 5, cfg.Transfer.MaxConnections)

	// значения по умолчанию для незаданных полей
	assert.Equal(t, 4096, cfg.Multicast.ReadBufferSize)
	assert.Equal(t, 3, cfg.Discovery.DisconnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Multicast.StopTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "nick_name: bob\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "224.0.0.17", cfg.Multicast.GroupAddress)
	assert.Equal(t, 7899, cfg.Multicast.Port)
	assert.False(t, cfg.Multicast.Loopback)
	assert.Equal(t, 1, cfg.Multicast.TTL)
	assert.Equal(t, time.Second, cfg.Discovery.PingInterval)
	assert.Equal(t, "peers.db", cfg.Storage.HistoryPath)
	assert.Empty(t, cfg.Storage.JournalPath)
	assert.Equal(t, 35035, cfg.Transfer.Port)
	assert.Equal(t, 100, cfg.Transfer.MaxConnections)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "nick_name: bob\nmulticast:\n  port: 7900\n")
	t.Setenv("NICK_NAME", "carol")
	t.Setenv("MULTICAST_PORT", "7901")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "carol", cfg.NickName)
	assert.Equal(t, 7901, cfg.Multicast.Port)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("NICK_NAME", "dave")
	t.Setenv("PING_INTERVAL", "3s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dave", cfg.NickName)
	assert.Equal(t, 3*time.Second, cfg.Discovery.PingInterval)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	path := writeConfig(t, "multicast: [unterminated\n")
	_, err = Load(path)
	assert.Error(t, err)

	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/lanshare.yaml")

	assert.Equal(t, "/tmp/flag.yaml", ResolvePath("/tmp/flag.yaml"))
	assert.Equal(t, "/etc/lanshare.yaml", ResolvePath(""))
}

func TestConfig_ComponentSettings(t *testing.T) {
	path := writeConfig(t, "nick_name: erin\nlocal_address: 10.1.1.1\nmulticast:\n  loopback: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	mc := cfg.MulticastConfig()
	assert.Equal(t, "224.0.0.17", mc.GroupAddress)
	assert.True(t, mc.Loopback)

	dc := cfg.DiscoveryConfig()
	assert.Equal(t, "erin", dc.NickName)
	assert.Equal(t, "10.1.1.1", dc.LocalAddress)
	assert.True(t, dc.Loopback)
	assert.Equal(t, mc, dc.Multicast)
}
