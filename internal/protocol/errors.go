package protocol

import "errors"

var (
	ErrInvalidField   = errors.New("field contains the message delimiter")
	ErrUnknownMessage = errors.New("unknown message cannot be encoded")
)
