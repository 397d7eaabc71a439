package discovery

import "errors"

var (
	ErrMalformedPeerMessage   = errors.New("malformed peer message")
	ErrUnknownPeerMessageType = errors.New("unknown peer message type")
	ErrInvalidNickName        = errors.New("nickname contains the peer message delimiter")
	ErrStartTimeout           = errors.New("transport did not start listening in time")
	ErrClosed                 = errors.New("discovery client is closed")
)
