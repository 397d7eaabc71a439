package listener

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"lanshare/internal/registry"
	"lanshare/internal/syncutil"
	"lanshare/internal/util/logger/handlers/slogdiscard"
	"lanshare/internal/util/logger/sl"
)

// New creates a stopped Listener reading from transport. A non-positive
// bufferSize selects DefaultBufferSize; a nil log discards output.
func New(transport Transport, bufferSize int, log *slog.Logger) *Listener {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if log == nil {
		log = slogdiscard.NewDiscardLogger()
	}

	return &Listener{
		transport:  transport,
		bufferSize: bufferSize,
		log:        log,
		state:      StateStopped,
		listeners:  registry.New[DataListener](),
	}
}

// StartListening spawns the receive loop and waits up to timeout for it to
// finish Prepare. It returns false if the listener was not stopped or the
// readiness was not confirmed in time; in the latter case the loop keeps
// starting in the background.
func (l *Listener) StartListening(timeout time.Duration) bool {
	const op = "listener.StartListening"
	log := l.log.With(slog.String("op", op))

	l.mu.Lock()
	if l.state != StateStopped {
		l.mu.Unlock()
		return false
	}
	started := syncutil.NewSignaller()
	stopped := syncutil.NewSignaller()
	l.state = StateStarting
	l.shouldListen = true
	l.started = started
	l.stopped = stopped
	l.mu.Unlock()

	go l.run(started, stopped)

	if !started.WaitForTimeout(timeout) {
		log.Debug("start not confirmed", slog.Duration("timeout", timeout))
		return false
	}
	return true
}

// IsListening reports whether the loop is running and has not been asked to stop.
func (l *Listener) IsListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateListening && l.shouldListen
}

// State returns the current lifecycle phase.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// StopListening asks the loop to exit and interrupts a blocked read. It
// returns false if the listener was not running.
func (l *Listener) StopListening() bool {
	_, ok := l.requestStop()
	return ok
}

// StopListeningWait is StopListening followed by a wait of up to timeout for
// the loop to exit. It returns true only when the exit was confirmed; after
// that no DataListener is called until the next StartListening.
func (l *Listener) StopListeningWait(timeout time.Duration) bool {
	stopped, ok := l.requestStop()
	if !ok {
		return false
	}
	return stopped.WaitForTimeout(timeout)
}

func (l *Listener) requestStop() (*syncutil.Signaller, bool) {
	const op = "listener.requestStop"
	log := l.log.With(slog.String("op", op))

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.shouldListen || (l.state != StateStarting && l.state != StateListening) {
		return nil, false
	}
	l.shouldListen = false
	l.state = StateStopping

	if err := l.transport.Interrupt(); err != nil {
		log.Debug("interrupt failed", sl.Err(err))
	}
	return l.stopped, true
}

// AddDataListener registers dl and reports false if it was already registered.
func (l *Listener) AddDataListener(dl DataListener) bool {
	return l.listeners.Add(dl)
}

// ContainsDataListener reports whether dl is registered.
func (l *Listener) ContainsDataListener(dl DataListener) bool {
	return l.listeners.Contains(dl)
}

// RemoveDataListener unregisters dl and reports false if it was absent.
func (l *Listener) RemoveDataListener(dl DataListener) bool {
	return l.listeners.Remove(dl)
}

func (l *Listener) run(started, stopped *syncutil.Signaller) {
	const op = "listener.run"
	log := l.log.With(slog.String("op", op))

	defer l.finish(stopped)

	if err := l.transport.Prepare(); err != nil {
		log.Error("failed to prepare transport", sl.Err(err))
		return
	}

	l.mu.Lock()
	if !l.shouldListen {
		// остановка пришла раньше, чем завершилась подготовка
		l.mu.Unlock()
		return
	}
	l.state = StateListening
	l.mu.Unlock()

	started.Signal()
	log.Debug("listening")

	buf := make([]byte, l.bufferSize)
	for {
		n, src, err := l.transport.Read(buf)

		l.mu.Lock()
		keep := l.shouldListen
		l.mu.Unlock()

		if !keep {
			return
		}

		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				// прерывание от предыдущей остановки, продолжаем слушать
				if cerr := l.transport.ClearInterrupt(); cerr != nil {
					log.Debug("failed to clear interrupt", sl.Err(cerr))
					return
				}
				continue
			}
			log.Debug("receive loop terminated", sl.Err(err))
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		l.notify(src, data)
	}
}

func (l *Listener) finish(stopped *syncutil.Signaller) {
	l.mu.Lock()
	l.state = StateStopped
	l.shouldListen = false
	l.mu.Unlock()

	stopped.Signal()
}

func (l *Listener) notify(src net.Addr, data []byte) {
	for _, dl := range l.listeners.Snapshot() {
		l.deliver(dl, src, data)
	}
}

func (l *Listener) deliver(dl DataListener, src net.Addr, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("data listener panicked",
				slog.String("op", "listener.deliver"),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	dl.OnData(src, data)
}
