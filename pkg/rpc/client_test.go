package rpc_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apihttp "kvreplay/internal/http"
	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/replay"
	"kvreplay/pkg/rpc"
	"kvreplay/pkg/store"
	"kvreplay/pkg/types"
)

func newRemote(t *testing.T) (*rpc.Client, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ts := httptest.NewServer(apihttp.NewServer(mem, nil, "").Handler())
	t.Cleanup(ts.Close)

	c := rpc.NewClient(ts.URL+"/", time.Second)
	t.Cleanup(func() { _ = c.Close() })
	return c, mem
}

func TestClientRoundTrip(t *testing.T) {
	c, mem := newRemote(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))
	require.NoError(t, c.WriteBatch(ctx, []batch.Operation{
		batch.Put([]byte{}, []byte{1}),
		batch.Put([]byte{255, 255}, []byte{2}),
		batch.Put([]byte{3}, []byte{}),
	}))
	require.Equal(t, 3, mem.Len())

	pairs, err := c.ScanByRange(ctx, keyrange.PrefixRange([]byte{255}))
	require.NoError(t, err)
	require.Equal(t, []types.KV{{Key: []byte{255, 255}, Value: []byte{2}}}, pairs)

	pairs, err = c.ScanByRange(ctx, keyrange.All())
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	require.Empty(t, pairs[0].Key)
	require.Empty(t, pairs[1].Value)

	require.NoError(t, c.Reset(ctx))
	require.Zero(t, mem.Len())
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unavailable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		c := rpc.NewClient(url, time.Second)
		require.ErrorIs(t, c.Health(ctx), store.ErrUnavailable)
		_, err := c.ScanByRange(ctx, keyrange.All())
		require.ErrorIs(t, err, store.ErrUnavailable)
	})

	t.Run("server error", func(t *testing.T) {
		c, mem := newRemote(t)
		require.NoError(t, mem.Close())

		err := c.WriteBatch(ctx, []batch.Operation{batch.Put([]byte{1}, []byte{1})})
		require.ErrorIs(t, err, store.ErrRequest)
	})

	t.Run("garbage body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer ts.Close()

		_, err := rpc.NewClient(ts.URL, 0).ScanByRange(ctx, keyrange.All())
		require.ErrorIs(t, err, store.ErrRequest)
	})
}

func TestReplayOverHTTP(t *testing.T) {
	c, mem := newRemote(t)
	e := replay.New(c,
		replay.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		replay.WithOutput(io.Discard),
	)
	ctx := context.Background()

	summary, err := e.Run(ctx, replay.Batches([]batch.Batch{
		batch.New(batch.Put([]byte{1, 2}, []byte{9}), batch.Put([]byte{1, 3}, []byte{9})),
		batch.New(batch.DeletePrefix([]byte{1}), batch.Put([]byte{1, 4}, []byte{1})),
	}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Keys)

	mem.Inject([]byte{1, 9}, []byte{0})
	require.ErrorIs(t, e.Step(ctx, batch.New(batch.Delete([]byte{1, 4}))), replay.ErrInconsistent)
}
