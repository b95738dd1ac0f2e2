package types

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// Value is an immutable byte slice type alias used for clarity.
type Value = []byte

// KV is a single stored pair as returned by range scans.
type KV struct {
	Key   Key   `json:"key"`
	Value Value `json:"value"`
}

// Clone returns a copy of b that does not alias the caller's buffer.
func Clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
