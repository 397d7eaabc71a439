package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"lanshare/internal/discovery"
	"lanshare/internal/multicast"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

var ErrConfigNotFound = errors.New("config file does not exist")

type Config struct {
	Env          string          `yaml:"env" env:"ENV" env-default:"local"`
	NickName     string          `yaml:"nick_name" env:"NICK_NAME"`
	LocalAddress string          `yaml:"local_address" env:"LOCAL_ADDRESS"`
	Multicast    MulticastConfig `yaml:"multicast"`
	Discovery    DiscoveryConfig `yaml:"discovery"`
	Storage      StorageConfig   `yaml:"storage"`
	Transfer     TransferConfig  `yaml:"transfer"`
}

type MulticastConfig struct {
	GroupAddress   string        `yaml:"group_address" env:"MULTICAST_GROUP" env-default:"224.0.0.17"`
	Port           int           `yaml:"port" env:"MULTICAST_PORT" env-default:"7899"`
	ReadBufferSize int           `yaml:"read_buffer_size" env-default:"4096"`
	Loopback       bool          `yaml:"loopback" env:"MULTICAST_LOOPBACK" env-default:"false"`
	TTL            int           `yaml:"ttl" env-default:"1"`
	StartTimeout   time.Duration `yaml:"start_timeout" env-default:"2s"`
	StopTimeout    time.Duration `yaml:"stop_timeout" env-default:"2s"`
}

type DiscoveryConfig struct {
	PingInterval       time.Duration `yaml:"ping_interval" env:"PING_INTERVAL" env-default:"1s"`
	DisconnectAttempts int           `yaml:"disconnect_attempts" env-default:"3"`
}

type StorageConfig struct {
	// HistoryPath is the bbolt peer history file; empty disables it.
	HistoryPath string `yaml:"history_path" env:"HISTORY_PATH" env-default:"peers.db"`
	// JournalPath is the SQLite session journal; empty disables it.
	JournalPath string `yaml:"journal_path" env:"JOURNAL_PATH"`
}

type TransferConfig struct {
	Port           int `yaml:"port" env:"TRANSFER_PORT" env-default:"35035"`
	MaxConnections int `yaml:"max_connections" env-default:"100"`
}

// Load reads the file at path, with environment variables taking
// precedence. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: cannot read env: %w", op, err)
		}
		return &cfg, nil
	}

	// check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrConfigNotFound, path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}
	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// ResolvePath returns flagValue, or CONFIG_PATH when the flag is empty.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CONFIG_PATH")
}

func (c *Config) MulticastConfig() multicast.Config {
	return multicast.Config{
		GroupAddress:   c.Multicast.GroupAddress,
		Port:           c.Multicast.Port,
		ReadBufferSize: c.Multicast.ReadBufferSize,
		Loopback:       c.Multicast.Loopback,
		TTL:            c.Multicast.TTL,
		StartTimeout:   c.Multicast.StartTimeout,
		StopTimeout:    c.Multicast.StopTimeout,
	}
}

func (c *Config) DiscoveryConfig() discovery.Config {
	return discovery.Config{
		NickName:           c.NickName,
		LocalAddress:       c.LocalAddress,
		PingInterval:       c.Discovery.PingInterval,
		DisconnectAttempts: c.Discovery.DisconnectAttempts,
		Loopback:           c.Multicast.Loopback,
		StartTimeout:       c.Multicast.StartTimeout,
		Multicast:          c.MulticastConfig(),
	}
}
