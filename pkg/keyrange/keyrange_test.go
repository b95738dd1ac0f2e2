package keyrange

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
		ok     bool
	}{
		{name: "empty", prefix: []byte{}, ok: false},
		{name: "nil", prefix: nil, ok: false},
		{name: "single byte", prefix: []byte{0x01}, want: []byte{0x02}, ok: true},
		{name: "zero byte", prefix: []byte{0x00}, want: []byte{0x01}, ok: true},
		{name: "single 0xFF", prefix: []byte{0xFF}, ok: false},
		{name: "trailing 0xFF", prefix: []byte{0x01, 0xFF}, want: []byte{0x02}, ok: true},
		{name: "trailing 0xFF run", prefix: []byte{0x07, 0x01, 0xFF, 0xFF}, want: []byte{0x07, 0x02}, ok: true},
		{name: "last byte incremented", prefix: []byte{0x01, 0x02, 0x03}, want: []byte{0x01, 0x02, 0x04}, ok: true},
		{name: "leading 0xFF", prefix: []byte{0xFF, 0x10}, want: []byte{0xFF, 0x11}, ok: true},
		{name: "all 0xFF", prefix: []byte{0xFF, 0xFF, 0xFF}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UpperBound(tt.prefix)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			} else {
				require.Nil(t, got)
			}
		})
	}
}

func TestUpperBoundDoesNotAliasPrefix(t *testing.T) {
	prefix := []byte{0x01, 0x02}
	upper, ok := UpperBound(prefix)
	require.True(t, ok)

	upper[1] = 0x42
	require.Equal(t, []byte{0x01, 0x02}, prefix)
}

func TestPrefixRange(t *testing.T) {
	t.Run("empty prefix matches everything", func(t *testing.T) {
		r := PrefixRange(nil)
		require.Equal(t, Included, r.Lower.Kind)
		require.Empty(t, r.Lower.Key)
		require.Equal(t, Unbounded, r.Upper.Kind)
		require.False(t, r.Bounded())
		require.True(t, r.Contains(nil))
		require.True(t, r.Contains([]byte{0xFF, 0xFF}))
	})

	t.Run("finite upper bound", func(t *testing.T) {
		r := PrefixRange([]byte{0x01, 0xFF})
		require.Equal(t, IncludedBound([]byte{0x01, 0xFF}), r.Lower)
		require.Equal(t, ExcludedBound([]byte{0x02}), r.Upper)
		require.Equal(t, []byte{0x02}, r.End())
	})

	t.Run("all 0xFF keeps the lower bound", func(t *testing.T) {
		r := PrefixRange([]byte{0xFF})
		require.Equal(t, IncludedBound([]byte{0xFF}), r.Lower)
		require.Equal(t, Unbounded, r.Upper.Kind)
		require.Nil(t, r.End())
		require.False(t, r.Contains([]byte{0xFE, 0xFF}))
		require.True(t, r.Contains([]byte{0xFF}))
		require.True(t, r.Contains([]byte{0xFF, 0x00}))
		require.True(t, r.Contains([]byte{0xFF, 0xFF, 0xFF}))
	})
}

// every byte string over a small alphabet up to length 3
func keySpace() [][]byte {
	alphabet := []byte{0x00, 0x01, 0x7F, 0xFE, 0xFF}
	keys := [][]byte{{}}
	frontier := [][]byte{{}}
	for depth := 0; depth < 3; depth++ {
		var next [][]byte
		for _, k := range frontier {
			for _, c := range alphabet {
				nk := append(append([]byte{}, k...), c)
				next = append(next, nk)
			}
		}
		keys = append(keys, next...)
		frontier = next
	}
	return keys
}

func TestPrefixRangeMembershipLaw(t *testing.T) {
	keys := keySpace()
	for _, prefix := range keys {
		r := PrefixRange(prefix)
		for _, k := range keys {
			require.Equalf(t, bytes.HasPrefix(k, prefix), r.Contains(k),
				"prefix=%v key=%v range=%s", prefix, k, r)
		}
	}
}

func TestUpperBoundIsMinimal(t *testing.T) {
	// no key strictly between the prefix family and the upper bound
	for _, prefix := range keySpace() {
		upper, ok := UpperBound(prefix)
		if !ok {
			continue
		}
		for _, k := range keySpace() {
			if bytes.Compare(k, upper) < 0 && bytes.Compare(k, prefix) >= 0 {
				require.Truef(t, bytes.HasPrefix(k, prefix), "prefix=%v key=%v upper=%v", prefix, k, upper)
			}
		}
	}
}

func TestHalfOpen(t *testing.T) {
	start, limit := PrefixRange([]byte{0x05}).HalfOpen()
	require.Equal(t, []byte{0x05}, start)
	require.Equal(t, []byte{0x06}, limit)

	start, limit = PrefixRange([]byte{0xFF, 0xFF}).HalfOpen()
	require.Equal(t, []byte{0xFF, 0xFF}, start)
	require.Nil(t, limit)

	start, limit = All().HalfOpen()
	require.NotNil(t, start)
	require.Empty(t, start)
	require.Nil(t, limit)

	r := Range{Lower: ExcludedBound([]byte{0x01}), Upper: IncludedBound([]byte{0x03})}
	start, limit = r.HalfOpen()
	require.Equal(t, []byte{0x01, 0x00}, start)
	require.Equal(t, []byte{0x03, 0x00}, limit)
	require.False(t, r.Contains([]byte{0x01}))
	require.True(t, r.Contains([]byte{0x01, 0x00}))
	require.True(t, r.Contains([]byte{0x03}))
	require.False(t, r.Contains([]byte{0x03, 0x00}))
}
