package peerhistory

import "errors"

var (
	ErrPeerNotFound   = errors.New("peer not found")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrNilDB          = errors.New("database connection is nil")
	ErrEmptyAddress   = errors.New("peer address is empty")
)
