// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"lanshare/internal/config"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

// ConfigWatcher calls onChange with the freshly loaded configuration after
// every debounced change of the watched file. The parent directory is
// watched so editors that replace the file by rename are handled.
type ConfigWatcher struct {
	watcher   *fsnotify.Watcher
	path      string
	onChange  func(*config.Config)
	errors    chan error
	config    Config
	log       *slog.Logger
	debouncer *Debouncer
	metrics   *WatcherMetrics
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewConfigWatcher(path string, onChange func(*config.Config), cfg Config) (*ConfigWatcher, error) {
	const op = "watcher.NewConfigWatcher"

	if cfg.DebounceDuration == 0 {
		cfg.DebounceDuration = DefaultDebounceDuration
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.IgnorePatterns == nil {
		cfg.IgnorePatterns = IgnoredPatterns
	}
	if cfg.Loader == nil {
		cfg.Loader = config.Load
	}
	if cfg.Logger == nil {
		cfg.Logger = slogdiscard.NewDiscardLogger()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidPath, err)
	}
	if info, err := os.Stat(abs); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidPath, path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s: failed to watch %s: %w", op, filepath.Dir(abs), err)
	}

	cw := &ConfigWatcher{
		watcher:   w,
		path:      abs,
		onChange:  onChange,
		errors:    make(chan error, cfg.BufferSize),
		config:    cfg,
		log:       cfg.Logger.With(slog.String("op", "watcher.ConfigWatcher"), slog.String("path", abs)),
		debouncer: NewDebouncer(cfg.DebounceDuration),
		metrics:   NewWatcherMetrics(),
		stopChan:  make(chan struct{}),
	}

	cw.wg.Add(1)
	go cw.run()

	return cw, nil
}

func (cw *ConfigWatcher) run() {
	defer cw.wg.Done()

	for {
		select {
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if cw.shouldProcessEvent(event) {
				cw.processEvent(event)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.handleError(err)
		}
	}
}

func (cw *ConfigWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != cw.path {
		return false
	}

	// Проверяем, что это событие, которое нас интересует
	if event.Op&WatchedEvents == 0 {
		return false
	}

	for _, pattern := range cw.config.IgnorePatterns {
		if strings.Contains(event.Name, pattern) {
			cw.log.Debug("ignoring file", slog.String("name", event.Name), slog.String("pattern", pattern))
			return false
		}
	}

	return true
}

func (cw *ConfigWatcher) processEvent(event fsnotify.Event) {
	cw.metrics.RecordEvent(event.Op)

	cw.debouncer.Debounce(cw.path, cw.reload)
}

func (cw *ConfigWatcher) reload() {
	select {
	case <-cw.stopChan:
		return
	default:
	}

	cfg, err := cw.config.Loader(cw.path)
	if err != nil {
		cw.handleError(fmt.Errorf("failed to reload config: %w", err))
		return
	}

	cw.metrics.RecordReload()
	cw.log.Info("config reloaded")

	if cw.onChange != nil {
		cw.onChange(cfg)
	}
}

func (cw *ConfigWatcher) handleError(err error) {
	cw.metrics.RecordError()
	cw.log.Warn("watcher error", sl.Err(err))

	select {
	case cw.errors <- err:
	default:
		cw.log.Debug("error buffer full, dropping error", sl.Err(err))
	}
}

// Errors returns reload and watch errors. The channel is never closed.
func (cw *ConfigWatcher) Errors() <-chan error {
	return cw.errors
}

func (cw *ConfigWatcher) Metrics() *WatcherMetrics {
	return cw.metrics
}

func (cw *ConfigWatcher) Close() error {
	err := ErrWatcherClosed
	cw.closeOnce.Do(func() {
		close(cw.stopChan)
		cw.debouncer.Stop()
		cw.wg.Wait()

		err = nil
		if cerr := cw.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}
