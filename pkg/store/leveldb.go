package store

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/types"
)

// LevelDB implements Store on an embedded LevelDB. Every batch runs in its
// own transaction, so a DeletePrefix sees the puts made earlier in the batch.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a LevelDB database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %q: %w", ErrUnavailable, path, err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) WriteBatch(_ context.Context, ops []batch.Operation) error {
	if err := checkOps(ops); err != nil {
		return err
	}

	tx, err := l.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("%w: open transaction: %w", ErrRequest, err)
	}

	for i, op := range ops {
		if err := l.apply(tx, op); err != nil {
			tx.Discard()
			return fmt.Errorf("%w: op %d (%s): %w", ErrRequest, i, op.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrRequest, err)
	}
	return nil
}

func (l *LevelDB) apply(tx *leveldb.Transaction, op batch.Operation) error {
	switch op.Kind {
	case batch.PutOp:
		return tx.Put(op.Key, op.Value, nil)
	case batch.DeleteOp:
		return tx.Delete(op.Key, nil)
	case batch.DeletePrefixOp:
		start, limit := keyrange.PrefixRange(op.Key).HalfOpen()
		iter := tx.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
		var doomed [][]byte
		for iter.Next() {
			doomed = append(doomed, types.Clone(iter.Key()))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return err
		}
		for _, key := range doomed {
			if err := tx.Delete(key, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *LevelDB) ScanByRange(_ context.Context, r keyrange.Range) ([]types.KV, error) {
	start, limit := r.HalfOpen()
	iter := l.db.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
	defer iter.Release()

	var result []types.KV
	for iter.Next() {
		result = append(result, types.KV{
			Key:   types.Clone(iter.Key()),
			Value: types.Clone(iter.Value()),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrRequest, r, err)
	}
	return result, nil
}

func (l *LevelDB) Reset(ctx context.Context) error {
	return l.WriteBatch(ctx, []batch.Operation{batch.DeletePrefix(nil)})
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
