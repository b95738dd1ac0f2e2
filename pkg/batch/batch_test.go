package batch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	b := New(
		Put([]byte{1, 2}, []byte{9}),
		Delete([]byte{5}),
		DeletePrefix([]byte{}),
	)

	want := "batch, n_operation=3\n" +
		"0: Put key=[1, 2] value=[9]\n" +
		"1: Delete key=[5]\n" +
		"2: DeletePrefix key_prefix=[]\n"
	require.Equal(t, want, b.String())
}

func TestFirstByte(t *testing.T) {
	b, ok := DeletePrefix([]byte{0xFF, 1}).FirstByte()
	require.True(t, ok)
	require.Equal(t, byte(0xFF), b)

	_, ok = Put(nil, []byte{1}).FirstByte()
	require.False(t, ok)
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(New(DeletePrefix([]byte{1})))
	require.NoError(t, err)
	require.JSONEq(t, `{"operations":[{"kind":"delete_prefix","key":"AQ=="}]}`, string(data))

	var b Batch
	require.NoError(t, json.Unmarshal(data, &b))
	require.Equal(t, DeletePrefixOp, b.Operations[0].Kind)
	require.Equal(t, []byte{1}, b.Operations[0].Key)

	err = json.Unmarshal([]byte(`{"operations":[{"kind":"merge","key":""}]}`), &b)
	require.ErrorIs(t, err, ErrUnknownKind)
}
