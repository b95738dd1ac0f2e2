package replay

import (
	"bytes"
	"fmt"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/types"
)

type MismatchKind uint8

const (
	// MissingInStore: the model has the key, the store does not.
	MissingInStore MismatchKind = iota
	// ExtraInStore: the store has a key the model does not.
	ExtraInStore
	// ValueMismatch: both have the key with different values.
	ValueMismatch
)

func (k MismatchKind) String() string {
	switch k {
	case MissingInStore:
		return "missing"
	case ExtraInStore:
		return "extra"
	case ValueMismatch:
		return "value"
	default:
		return fmt.Sprintf("MismatchKind(%d)", uint8(k))
	}
}

// Mismatch is one differing key.
type Mismatch struct {
	Kind MismatchKind
	Key  []byte
	Want []byte
	Got  []byte
}

func (m Mismatch) String() string {
	switch m.Kind {
	case MissingInStore:
		return fmt.Sprintf("missing key=%s value=%s", batch.FormatBytes(m.Key), batch.FormatBytes(m.Want))
	case ExtraInStore:
		return fmt.Sprintf("extra key=%s value=%s", batch.FormatBytes(m.Key), batch.FormatBytes(m.Got))
	default:
		return fmt.Sprintf("value key=%s want=%s got=%s",
			batch.FormatBytes(m.Key), batch.FormatBytes(m.Want), batch.FormatBytes(m.Got))
	}
}

// Diff merges two key-ordered pair lists and returns at most limit
// differences (all of them when limit <= 0). want is the model side.
func Diff(want, got []types.KV, limit int) []Mismatch {
	var out []Mismatch
	full := func() bool { return limit > 0 && len(out) >= limit }

	i, j := 0, 0
	for (i < len(want) || j < len(got)) && !full() {
		switch {
		case j == len(got):
			out = append(out, Mismatch{Kind: MissingInStore, Key: want[i].Key, Want: want[i].Value})
			i++
		case i == len(want):
			out = append(out, Mismatch{Kind: ExtraInStore, Key: got[j].Key, Got: got[j].Value})
			j++
		default:
			switch c := bytes.Compare(want[i].Key, got[j].Key); {
			case c < 0:
				out = append(out, Mismatch{Kind: MissingInStore, Key: want[i].Key, Want: want[i].Value})
				i++
			case c > 0:
				out = append(out, Mismatch{Kind: ExtraInStore, Key: got[j].Key, Got: got[j].Value})
				j++
			default:
				if !bytes.Equal(want[i].Value, got[j].Value) {
					out = append(out, Mismatch{
						Kind: ValueMismatch, Key: want[i].Key, Want: want[i].Value, Got: got[j].Value,
					})
				}
				i++
				j++
			}
		}
	}
	return out
}
