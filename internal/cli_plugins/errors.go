package cliplugins

import "errors"

var (
	ErrHistoryDisabled = errors.New("peer history is disabled (storage.history_path is empty)")
	ErrJournalDisabled = errors.New("session journal is disabled (storage.journal_path is empty)")
	ErrHistoryLocked   = errors.New("peer history is locked by a running discover")
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrNotRunning      = errors.New("discovery is not running")
)
