package store_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/metrics"
	"kvreplay/pkg/store"
	"kvreplay/pkg/types"
)

type backend struct {
	name string
	open func(t *testing.T) store.Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) store.Store {
			return store.NewMemory()
		}},
		{"leveldb", func(t *testing.T) store.Store {
			s, err := store.OpenLevelDB(filepath.Join(t.TempDir(), "leveldb"))
			require.NoError(t, err)
			return s
		}},
		{"pebble", func(t *testing.T) store.Store {
			s, err := store.OpenPebble(filepath.Join(t.TempDir(), "pebble"))
			require.NoError(t, err)
			return s
		}},
	}
}

func scanAll(t *testing.T, s store.Store) []types.KV {
	t.Helper()
	pairs, err := s.ScanByRange(context.Background(), keyrange.All())
	require.NoError(t, err)
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].Key, pairs[j].Key) < 0
	})
	return pairs
}

func keysOf(pairs []types.KV) [][]byte {
	keys := make([][]byte, 0, len(pairs))
	for _, kv := range pairs {
		keys = append(keys, kv.Key)
	}
	return keys
}

func TestBackends(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Run("put overwrite delete", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()

				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
					batch.Put([]byte{1}, []byte{1}),
					batch.Put([]byte{2}, []byte{2}),
					batch.Put([]byte{1}, []byte{3}),
				}))
				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
					batch.Delete([]byte{2}),
					batch.Delete([]byte{7}),
				}))

				require.Equal(t, []types.KV{{Key: []byte{1}, Value: []byte{3}}}, scanAll(t, s))
			})

			t.Run("order inside a batch", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				require.NoError(t, s.WriteBatch(context.Background(), []batch.Operation{
					batch.Put([]byte{5}, []byte{1}),
					batch.Delete([]byte{5}),
					batch.Put([]byte{5}, []byte{2}),
					batch.Put([]byte{6, 1}, []byte{1}),
					batch.DeletePrefix([]byte{6}),
					batch.Put([]byte{6, 2}, []byte{1}),
				}))

				require.Equal(t, []types.KV{
					{Key: []byte{5}, Value: []byte{2}},
					{Key: []byte{6, 2}, Value: []byte{1}},
				}, scanAll(t, s))
			})

			t.Run("delete prefix", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()

				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
					batch.Put([]byte{1}, []byte{0}),
					batch.Put([]byte{1, 2}, []byte{0}),
					batch.Put([]byte{1, 255}, []byte{0}),
					batch.Put([]byte{2}, []byte{0}),
					batch.Put([]byte{0, 1}, []byte{0}),
				}))
				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{batch.DeletePrefix([]byte{1})}))

				require.Equal(t, [][]byte{{0, 1}, {2}}, keysOf(scanAll(t, s)))
			})

			t.Run("delete all-0xFF prefix", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()

				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
					batch.Put([]byte{255}, []byte{1}),
					batch.Put([]byte{255, 0}, []byte{1}),
					batch.Put([]byte{255, 255}, []byte{1}),
					batch.Put([]byte{254, 255}, []byte{1}),
				}))
				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{batch.DeletePrefix([]byte{255})}))

				require.Equal(t, [][]byte{{254, 255}}, keysOf(scanAll(t, s)))
			})

			t.Run("scan by range", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()

				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
					batch.Put([]byte{0, 9}, []byte{1}),
					batch.Put([]byte{1}, []byte{1}),
					batch.Put([]byte{1, 0}, []byte{1}),
					batch.Put([]byte{1, 255, 255}, []byte{1}),
					batch.Put([]byte{2}, []byte{1}),
				}))

				pairs, err := s.ScanByRange(ctx, keyrange.PrefixRange([]byte{1}))
				require.NoError(t, err)
				sort.Slice(pairs, func(i, j int) bool {
					return bytes.Compare(pairs[i].Key, pairs[j].Key) < 0
				})
				require.Equal(t, [][]byte{{1}, {1, 0}, {1, 255, 255}}, keysOf(pairs))

				pairs, err = s.ScanByRange(ctx, keyrange.Range{
					Lower: keyrange.ExcludedBound([]byte{1}),
					Upper: keyrange.IncludedBound([]byte{2}),
				})
				require.NoError(t, err)
				require.Len(t, pairs, 3)
			})

			t.Run("reset", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()
				ctx := context.Background()

				require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
					batch.Put([]byte{1}, []byte{1}),
					batch.Put([]byte{255, 255}, []byte{1}),
				}))
				require.NoError(t, store.Reset(ctx, s))
				require.Empty(t, scanAll(t, s))
			})

			t.Run("unknown kind", func(t *testing.T) {
				s := b.open(t)
				defer s.Close()

				err := s.WriteBatch(context.Background(), []batch.Operation{{Kind: batch.Kind(42)}})
				require.ErrorIs(t, err, store.ErrRequest)
				require.ErrorIs(t, err, batch.ErrUnknownKind)
			})
		})
	}
}

func TestMemoryClosed(t *testing.T) {
	s := store.NewMemory()
	require.NoError(t, s.Close())

	err := s.WriteBatch(context.Background(), []batch.Operation{batch.Put([]byte{1}, nil)})
	require.ErrorIs(t, err, store.ErrClosed)
	_, err = s.ScanByRange(context.Background(), keyrange.All())
	require.ErrorIs(t, err, store.ErrClosed)
}

func TestMemoryInjectAndDrop(t *testing.T) {
	s := store.NewMemory()
	s.Inject([]byte{3}, []byte{4})
	require.Equal(t, 1, s.Len())
	s.Drop([]byte{3})
	require.Zero(t, s.Len())
}

func TestOpenLevelDBUnavailable(t *testing.T) {
	dir := t.TempDir()
	first, err := store.OpenLevelDB(dir)
	require.NoError(t, err)
	defer first.Close()

	// the directory lock is held by the first handle
	_, err = store.OpenLevelDB(dir)
	require.ErrorIs(t, err, store.ErrUnavailable)
}

type noReset struct{ store.Store }

func TestResetFallsBackToPrefixDelete(t *testing.T) {
	mem := store.NewMemory()
	mem.Inject([]byte{}, []byte{1})
	mem.Inject([]byte{9}, []byte{1})

	require.NoError(t, store.Reset(context.Background(), noReset{mem}))
	require.Zero(t, mem.Len())
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStore(reg)
	mem := store.NewMemory()
	s := store.Instrument(mem, m)
	ctx := context.Background()

	require.NoError(t, s.WriteBatch(ctx, []batch.Operation{
		batch.Put([]byte{1}, []byte{1}),
		batch.Put([]byte{2}, []byte{1}),
		batch.DeletePrefix([]byte{2}),
	}))
	pairs, err := s.ScanByRange(ctx, keyrange.All())
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	require.Equal(t, float64(1), testutil.ToFloat64(m.Batches))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Operations.WithLabelValues("put")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("delete_prefix")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Scans))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ScannedKeys))

	require.NoError(t, mem.Close())
	_, err = s.ScanByRange(ctx, keyrange.All())
	require.ErrorIs(t, err, store.ErrClosed)
	require.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("scan")))

	_, ok := s.(store.Resetter)
	require.True(t, ok)
}
