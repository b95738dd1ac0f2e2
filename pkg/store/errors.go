package store

import "errors"

var (
	ErrUnavailable    = errors.New("store unavailable")
	ErrRequest        = errors.New("store request failed")
	ErrClosed         = errors.New("store closed")
	ErrUnknownBackend = errors.New("unknown store backend")
)
