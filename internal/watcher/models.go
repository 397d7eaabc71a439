package watcher

import (
	"log/slog"
	"time"

	"lanshare/internal/config"
)

// Loader reads a configuration file.
type Loader func(path string) (*config.Config, error)

// Config содержит настройки для ConfigWatcher
type Config struct {
	DebounceDuration time.Duration
	BufferSize       int
	IgnorePatterns   []string
	Loader           Loader
	Logger           *slog.Logger
}
