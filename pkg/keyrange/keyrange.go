// Package keyrange converts byte-string prefixes into half-open key ranges.
package keyrange

import (
	"bytes"
	"fmt"
)

type BoundKind uint8

const (
	Included BoundKind = iota
	Excluded
	Unbounded
)

var boundNames = map[BoundKind]string{
	Included:  "included",
	Excluded:  "excluded",
	Unbounded: "unbounded",
}

func (k BoundKind) MarshalText() ([]byte, error) {
	name, ok := boundNames[k]
	if !ok {
		return nil, fmt.Errorf("keyrange: unknown bound kind %d", uint8(k))
	}
	return []byte(name), nil
}

func (k *BoundKind) UnmarshalText(text []byte) error {
	for kind, name := range boundNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("keyrange: unknown bound kind %q", text)
}

func (k BoundKind) String() string {
	switch k {
	case Included:
		return "Included"
	case Excluded:
		return "Excluded"
	case Unbounded:
		return "Unbounded"
	default:
		return fmt.Sprintf("BoundKind(%d)", uint8(k))
	}
}

// Bound is one end of a Range. Key is ignored for Unbounded.
type Bound struct {
	Kind BoundKind `json:"kind"`
	Key  []byte    `json:"key,omitempty"`
}

func IncludedBound(k []byte) Bound { return Bound{Kind: Included, Key: k} }
func ExcludedBound(k []byte) Bound { return Bound{Kind: Excluded, Key: k} }
func UnboundedBound() Bound        { return Bound{Kind: Unbounded} }

// Range is an interval over lexicographically ordered byte strings.
type Range struct {
	Lower Bound `json:"lower"`
	Upper Bound `json:"upper"`
}

// UpperBound returns the smallest byte string greater than every string
// starting with prefix. ok is false when no such string exists, which happens
// for the empty prefix and for prefixes made only of 0xFF bytes.
func UpperBound(prefix []byte) (upper []byte, ok bool) {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] < 0xFF {
			upper = make([]byte, i+1)
			copy(upper, prefix[:i+1])
			upper[i]++
			return upper, true
		}
	}
	return nil, false
}

// PrefixRange returns [prefix, UpperBound(prefix)), unbounded above when the
// prefix has no finite upper bound. The lower bound is always present.
func PrefixRange(prefix []byte) Range {
	lower := make([]byte, len(prefix))
	copy(lower, prefix)

	r := Range{Lower: IncludedBound(lower), Upper: UnboundedBound()}
	if upper, ok := UpperBound(prefix); ok {
		r.Upper = ExcludedBound(upper)
	}
	return r
}

// All matches every key.
func All() Range {
	return PrefixRange(nil)
}

// Start returns the inclusive start key; nil means the range starts at the
// empty key.
func (r Range) Start() []byte {
	if r.Lower.Kind == Unbounded {
		return nil
	}
	return r.Lower.Key
}

// End returns the exclusive end key, or nil when the range is unbounded above.
func (r Range) End() []byte {
	if r.Upper.Kind == Unbounded {
		return nil
	}
	return r.Upper.Key
}

// HalfOpen expresses r exactly as [start, limit), the form iterator based
// stores take. limit is nil when r is unbounded above. An excluded lower key
// or an included upper key is replaced by its immediate successor, key+0x00.
func (r Range) HalfOpen() (start, limit []byte) {
	switch r.Lower.Kind {
	case Included:
		start = r.Lower.Key
	case Excluded:
		start = successor(r.Lower.Key)
	}
	switch r.Upper.Kind {
	case Included:
		limit = successor(r.Upper.Key)
	case Excluded:
		limit = r.Upper.Key
	}
	if start == nil {
		start = []byte{}
	}
	return start, limit
}

func successor(k []byte) []byte {
	out := make([]byte, len(k)+1)
	copy(out, k)
	return out
}

func (r Range) Bounded() bool {
	return r.Upper.Kind != Unbounded
}

// AboveLower reports whether k satisfies the lower bound.
func (r Range) AboveLower(k []byte) bool {
	switch r.Lower.Kind {
	case Included:
		return bytes.Compare(k, r.Lower.Key) >= 0
	case Excluded:
		return bytes.Compare(k, r.Lower.Key) > 0
	default:
		return true
	}
}

// BelowUpper reports whether k satisfies the upper bound.
func (r Range) BelowUpper(k []byte) bool {
	switch r.Upper.Kind {
	case Included:
		return bytes.Compare(k, r.Upper.Key) <= 0
	case Excluded:
		return bytes.Compare(k, r.Upper.Key) < 0
	default:
		return true
	}
}

func (r Range) Contains(k []byte) bool {
	return r.AboveLower(k) && r.BelowUpper(k)
}

func (r Range) String() string {
	lo, hi := "(-inf", "+inf)"
	switch r.Lower.Kind {
	case Included:
		lo = fmt.Sprintf("[%v", r.Lower.Key)
	case Excluded:
		lo = fmt.Sprintf("(%v", r.Lower.Key)
	}
	switch r.Upper.Kind {
	case Included:
		hi = fmt.Sprintf("%v]", r.Upper.Key)
	case Excluded:
		hi = fmt.Sprintf("%v)", r.Upper.Key)
	}
	return lo + ", " + hi
}
