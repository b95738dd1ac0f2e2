package store

import (
	"bytes"
	"context"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/types"
)

type orderedMap = skipmap.FuncMap[[]byte, []byte]

func newOrderedMap() *orderedMap {
	return skipmap.NewFunc[[]byte, []byte](func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
}

// Memory is an in-process Store. Batches are serialized by a mutex so a scan
// never observes half of a batch.
type Memory struct {
	mu     sync.RWMutex
	data   *orderedMap
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: newOrderedMap()}
}

func (m *Memory) WriteBatch(_ context.Context, ops []batch.Operation) error {
	if err := checkOps(ops); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for _, op := range ops {
		switch op.Kind {
		case batch.PutOp:
			m.data.Store(types.Clone(op.Key), types.Clone(op.Value))
		case batch.DeleteOp:
			m.data.Delete(op.Key)
		case batch.DeletePrefixOp:
			m.deleteRange(keyrange.PrefixRange(op.Key))
		}
	}
	return nil
}

func (m *Memory) deleteRange(r keyrange.Range) {
	var doomed [][]byte
	m.data.Range(func(key, _ []byte) bool {
		if !r.AboveLower(key) {
			return true
		}
		if !r.BelowUpper(key) {
			return false
		}
		doomed = append(doomed, key)
		return true
	})
	for _, key := range doomed {
		m.data.Delete(key)
	}
}

func (m *Memory) ScanByRange(_ context.Context, r keyrange.Range) ([]types.KV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	var result []types.KV
	m.data.Range(func(key, value []byte) bool {
		if !r.AboveLower(key) {
			return true
		}
		if !r.BelowUpper(key) {
			return false
		}
		result = append(result, types.KV{Key: types.Clone(key), Value: types.Clone(value)})
		return true
	})
	return result, nil
}

// Inject writes a pair behind the back of the replay, bypassing batches.
// It exists to simulate a store that loses or invents data.
func (m *Memory) Inject(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Store(types.Clone(key), types.Clone(value))
}

// Drop removes a key behind the back of the replay.
func (m *Memory) Drop(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Delete(key)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Len()
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data = newOrderedMap()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
