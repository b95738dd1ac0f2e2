package store

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/types"
)

// Pebble implements Store on an embedded Pebble database. Batches are
// indexed so that reads inside a batch see its earlier writes.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a Pebble database in directory.
func OpenPebble(directory string) (*Pebble, error) {
	opts := &pebble.Options{
		MemTableSize: 4 << 20, // 4 MB
	}
	opts.EnsureDefaults()

	db, err := pebble.Open(directory, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble %q: %w", ErrUnavailable, directory, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) WriteBatch(_ context.Context, ops []batch.Operation) error {
	if err := checkOps(ops); err != nil {
		return err
	}

	b := p.db.NewIndexedBatch()
	defer b.Close()

	for i, op := range ops {
		if err := applyPebble(b, op); err != nil {
			return fmt.Errorf("%w: op %d (%s): %w", ErrRequest, i, op.Kind, err)
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrRequest, err)
	}
	return nil
}

func applyPebble(b *pebble.Batch, op batch.Operation) error {
	switch op.Kind {
	case batch.PutOp:
		return b.Set(op.Key, op.Value, nil)
	case batch.DeleteOp:
		return b.Delete(op.Key, nil)
	case batch.DeletePrefixOp:
		start, limit := keyrange.PrefixRange(op.Key).HalfOpen()
		if limit != nil {
			return b.DeleteRange(start, limit, nil)
		}

		// no finite end key for an all-0xFF prefix, drop the keys one by one
		iter := b.NewIter(&pebble.IterOptions{LowerBound: start})
		var doomed [][]byte
		for iter.First(); iter.Valid(); iter.Next() {
			doomed = append(doomed, types.Clone(iter.Key()))
		}
		if err := iter.Close(); err != nil {
			return err
		}
		for _, key := range doomed {
			if err := b.Delete(key, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pebble) ScanByRange(_ context.Context, r keyrange.Range) ([]types.KV, error) {
	start, limit := r.HalfOpen()
	iter := p.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: limit})

	var result []types.KV
	for iter.First(); iter.Valid(); iter.Next() {
		result = append(result, types.KV{
			Key:   types.Clone(iter.Key()),
			Value: types.Clone(iter.Value()),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrRequest, r, err)
	}
	return result, nil
}

func (p *Pebble) Reset(ctx context.Context) error {
	return p.WriteBatch(ctx, []batch.Operation{batch.DeletePrefix(nil)})
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
