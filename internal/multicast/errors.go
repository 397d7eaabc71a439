package multicast

import "errors"

var (
	ErrClosed       = errors.New("multicast client is closed")
	ErrNotMulticast = errors.New("group address is not a multicast address")
	ErrNoInterfaces = errors.New("no multicast-capable interface joined the group")
)
