package watcher

import (
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatcherMetrics struct {
	eventsProcessed atomic.Int64
	reloads         atomic.Int64
	errors          atomic.Int64
	lastEventTime   atomic.Int64
	lastOp          atomic.Uint32
}

func NewWatcherMetrics() *WatcherMetrics {
	return &WatcherMetrics{}
}

func (m *WatcherMetrics) RecordEvent(op fsnotify.Op) {
	m.eventsProcessed.Add(1)
	m.lastEventTime.Store(time.Now().UnixNano())
	m.lastOp.Store(uint32(op))
}

func (m *WatcherMetrics) RecordReload() {
	m.reloads.Add(1)
}

func (m *WatcherMetrics) RecordError() {
	m.errors.Add(1)
}

func (m *WatcherMetrics) Reloads() int64 {
	return m.reloads.Load()
}

func (m *WatcherMetrics) GetStats() map[string]interface{} {
	var last time.Time
	if ns := m.lastEventTime.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return map[string]interface{}{
		"events_processed": m.eventsProcessed.Load(),
		"reloads":          m.reloads.Load(),
		"errors":           m.errors.Load(),
		"last_event_time":  last,
		"last_op":          fsnotify.Op(m.lastOp.Load()).String(),
	}
}
