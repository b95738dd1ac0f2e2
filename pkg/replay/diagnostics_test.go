package replay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"kvreplay/pkg/batch"
)

func TestDiagnose(t *testing.T) {
	b := batch.New(
		batch.Put([]byte{1, 2}, []byte{0}),
		batch.Put([]byte{1, 2}, []byte{1}),
		batch.Put([]byte{1, 3}, []byte{0}),
		batch.Put([]byte{2}, []byte{0}),
		batch.Put([]byte{255, 7}, []byte{0}),
		batch.Delete([]byte{1, 3}),
		batch.Delete([]byte{9}),
		batch.DeletePrefix([]byte{1}),
		batch.DeletePrefix([]byte{255}),
		batch.DeletePrefix([]byte{7}),
		batch.DeletePrefix([]byte{1}),
	)

	r := Diagnose(b)
	require.Equal(t, 4, r.Puts)
	require.Equal(t, 2, r.Deletes)
	require.Equal(t, 3, r.PrefixDeletes)
	require.Equal(t, 1, r.PutDeleteOverlap)
	require.Equal(t, []PrefixCoverage{
		{Prefix: []byte{1}, CoveredPuts: 2},
		{Prefix: []byte{7}, CoveredPuts: 0},
		{Prefix: []byte{255}, CoveredPuts: 1},
	}, r.Prefixes)

	var sb strings.Builder
	require.NoError(t, r.Format(&sb))
	require.Equal(t, "|key_puts|=4\n"+
		"|key_deletes|=2\n"+
		"|key_prefix_deletes|=3\n"+
		"|key_puts int key_deletes|=1\n"+
		"|key_prefix|=1 |key_list|=2\n"+
		"|key_prefix|=1 |key_list|=0\n"+
		"|key_prefix|=1 |key_list|=1\n", sb.String())
}

func TestDiagnoseEmptyPrefixCoversAllPuts(t *testing.T) {
	r := Diagnose(batch.New(
		batch.Put([]byte{}, nil),
		batch.Put([]byte{0xFF, 0xFF}, nil),
		batch.DeletePrefix([]byte{}),
	))
	require.Len(t, r.Prefixes, 1)
	require.Empty(t, r.Prefixes[0].Prefix)
	require.Equal(t, 2, r.Prefixes[0].CoveredPuts)
}

func TestDiagnoseEmptyBatch(t *testing.T) {
	require.Equal(t, Report{}, Diagnose(batch.New()))
}
