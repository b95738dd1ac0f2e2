package batch

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"kvreplay/pkg/types"
)

// Kind tags a write operation.
type Kind uint8

const (
	PutOp Kind = iota
	DeleteOp
	DeletePrefixOp
)

var kindNames = map[Kind]string{
	PutOp:          "put",
	DeleteOp:       "delete",
	DeletePrefixOp: "delete_prefix",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(name), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, text)
}

// Operation is a single write. For DeletePrefixOp Key holds the prefix and
// Value is unused; for DeleteOp Value is unused.
type Operation struct {
	Kind  Kind        `json:"kind"`
	Key   types.Key   `json:"key"`
	Value types.Value `json:"value,omitempty"`
}

func Put(key, value []byte) Operation {
	return Operation{Kind: PutOp, Key: key, Value: value}
}

func Delete(key []byte) Operation {
	return Operation{Kind: DeleteOp, Key: key}
}

func DeletePrefix(prefix []byte) Operation {
	return Operation{Kind: DeletePrefixOp, Key: prefix}
}

// FirstByte returns the first byte of the key or prefix. ok is false for an
// empty key.
func (op Operation) FirstByte() (b byte, ok bool) {
	if len(op.Key) == 0 {
		return 0, false
	}
	return op.Key[0], true
}

func (op Operation) String() string {
	switch op.Kind {
	case PutOp:
		return "Put key=" + FormatBytes(op.Key) + " value=" + FormatBytes(op.Value)
	case DeleteOp:
		return "Delete key=" + FormatBytes(op.Key)
	case DeletePrefixOp:
		return "DeletePrefix key_prefix=" + FormatBytes(op.Key)
	default:
		return op.Kind.String()
	}
}

// Batch is an ordered group of writes applied atomically, in order.
type Batch struct {
	Operations []Operation `json:"operations"`
}

func New(ops ...Operation) Batch {
	return Batch{Operations: ops}
}

func (b Batch) Len() int {
	return len(b.Operations)
}

// Format writes the batch in the same line shape the script reader accepts,
// with Put values spelled out.
func (b Batch) Format(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "batch, n_operation=%d\n", len(b.Operations)); err != nil {
		return err
	}
	for pos, op := range b.Operations {
		if _, err := fmt.Fprintf(w, "%d: %s\n", pos, op); err != nil {
			return err
		}
	}
	return nil
}

func (b Batch) String() string {
	var sb strings.Builder
	_ = b.Format(&sb)
	return sb.String()
}

// FormatBytes renders b as a bracketed, comma separated decimal list: [1, 2].
func FormatBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(c)))
	}
	sb.WriteByte(']')
	return sb.String()
}
