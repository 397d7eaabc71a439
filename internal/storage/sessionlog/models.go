package sessionlog

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput      = errors.New("invalid input parameters")
	ErrDBOperationFailed = errors.New("database operation failed")
)

// EndReason explains why a session row was closed.
type EndReason string

const (
	EndDisconnect    EndReason = "disconnect"
	EndSuperseded    EndReason = "superseded"
	EndLocalShutdown EndReason = "local_shutdown"
)

// Session is one continuous presence of a peer, from the connect event to
// the disconnect event, as observed by one local run.
type Session struct {
	ID             int64
	SessionID      string
	Address        string
	NickName       string
	ConnectedAt    time.Time
	DisconnectedAt time.Time
	NickChanges    int
	EndReason      EndReason
}

// Open reports whether the peer is still present.
func (s Session) Open() bool {
	return s.DisconnectedAt.IsZero()
}

// Duration returns how long the session lasted, measured up to now while open.
func (s Session) Duration(now time.Time) time.Duration {
	if s.Open() {
		return now.Sub(s.ConnectedAt)
	}
	return s.DisconnectedAt.Sub(s.ConnectedAt)
}

// Filter restricts Sessions. Zero values mean no restriction.
type Filter struct {
	Address   string
	SessionID string
	OnlyOpen  bool
	Limit     int
}
