package multicast

import (
	"time"

	"lanshare/internal/listener"
)

const (
	DefaultGroupAddress = "224.0.0.17"
	DefaultPort         = 7899
	DefaultTTL          = 1
	DefaultTimeout      = 2 * time.Second
)

type Config struct {
	GroupAddress   string
	Port           int
	ReadBufferSize int
	// Loopback delivers datagrams sent by this endpoint back to it.
	Loopback     bool
	TTL          int
	StartTimeout time.Duration
	StopTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		GroupAddress:   DefaultGroupAddress,
		Port:           DefaultPort,
		ReadBufferSize: listener.DefaultBufferSize,
		TTL:            DefaultTTL,
		StartTimeout:   DefaultTimeout,
		StopTimeout:    DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GroupAddress == "" {
		c.GroupAddress = d.GroupAddress
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = d.StartTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	return c
}
