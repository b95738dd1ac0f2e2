package store

import (
	"context"
	"fmt"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/types"
)

// Store is a flat byte-string keyed table.
type Store interface {
	// WriteBatch applies ops atomically and strictly in the given order.
	WriteBatch(ctx context.Context, ops []batch.Operation) error
	// ScanByRange returns every stored pair whose key is inside r.
	// The order of the result is unspecified.
	ScanByRange(ctx context.Context, r keyrange.Range) ([]types.KV, error)
	Close() error
}

// Resetter is implemented by stores that can drop all of their content,
// which is how a run provisions an empty table.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Reset empties s, falling back to a delete of the empty prefix when s has no
// cheaper way to do it.
func Reset(ctx context.Context, s Store) error {
	if r, ok := s.(Resetter); ok {
		return r.Reset(ctx)
	}
	return s.WriteBatch(ctx, []batch.Operation{batch.DeletePrefix(nil)})
}

func checkOps(ops []batch.Operation) error {
	for i, op := range ops {
		switch op.Kind {
		case batch.PutOp, batch.DeleteOp, batch.DeletePrefixOp:
		default:
			return fmt.Errorf("%w: op %d: %w", ErrRequest, i, batch.ErrUnknownKind)
		}
	}
	return nil
}
