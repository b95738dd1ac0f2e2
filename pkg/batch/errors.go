package batch

import "errors"

var (
	ErrUnknownKind = errors.New("unknown operation kind")
)
