// Package model holds the in-memory reference copy of the keyspace that the
// replay engine checks the store against.
package model

import (
	"bytes"

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

// Model is an ordered byte-string map. It is owned by a single goroutine.
type Model struct {
	m *orderedMap
}

func New() *Model {
	return &Model{m: newOrderedMap()}
}

// FromPairs builds a model from scanned pairs; later duplicates win.
func FromPairs(pairs []types.KV) *Model {
	md := New()
	for _, kv := range pairs {
		md.Put(kv.Key, kv.Value)
	}
	return md
}

func (md *Model) Put(key, value []byte) {
	md.m.Store(types.Clone(key), types.Clone(value))
}

func (md *Model) Get(key []byte) ([]byte, bool) {
	return md.m.Load(key)
}

func (md *Model) Delete(key []byte) {
	md.m.Delete(key)
}

func (md *Model) Len() int {
	return md.m.Len()
}

// Range calls fn for every pair inside r in ascending key order until fn
// returns false.
func (md *Model) Range(r keyrange.Range, fn func(key, value []byte) bool) {
	md.m.Range(func(key, value []byte) bool {
		if !r.AboveLower(key) {
			return true
		}
		if !r.BelowUpper(key) {
			return false
		}
		return fn(key, value)
	})
}

// DeleteRange removes every key inside r and returns how many were removed.
func (md *Model) DeleteRange(r keyrange.Range) int {
	var doomed [][]byte
	md.Range(r, func(key, _ []byte) bool {
		doomed = append(doomed, key)
		return true
	})
	for _, key := range doomed {
		md.m.Delete(key)
	}
	return len(doomed)
}

// Apply replays the batch in order. DeletePrefix sees the writes of earlier
// operations of the same batch.
func (md *Model) Apply(b batch.Batch) {
	for _, op := range b.Operations {
		md.ApplyOp(op)
	}
}

func (md *Model) ApplyOp(op batch.Operation) {
	switch op.Kind {
	case batch.PutOp:
		md.Put(op.Key, op.Value)
	case batch.DeleteOp:
		md.Delete(op.Key)
	case batch.DeletePrefixOp:
		md.DeleteRange(keyrange.PrefixRange(op.Key))
	}
}

// Pairs returns all pairs in ascending key order.
func (md *Model) Pairs() []types.KV {
	result := make([]types.KV, 0, md.m.Len())
	md.m.Range(func(key, value []byte) bool {
		result = append(result, types.KV{Key: key, Value: value})
		return true
	})
	return result
}

// Keys returns all keys in ascending order.
func (md *Model) Keys() [][]byte {
	result := make([][]byte, 0, md.m.Len())
	md.m.Range(func(key, _ []byte) bool {
		result = append(result, key)
		return true
	})
	return result
}

// Equal reports whether both models hold the same keys with the same values.
func (md *Model) Equal(other *Model) bool {
	if md.Len() != other.Len() {
		return false
	}
	a, b := md.Pairs(), other.Pairs()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i].Key, b[i].Key) || !bytes.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
