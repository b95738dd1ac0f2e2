// Package script decodes replay scripts: a sequence of batches, each
// announced by a header line with its operation count
//
//	write_batch n_operation=3
//	0: Put key=[1, 2] |value|=1
//	1: Delete key=[1, 3]
//	2: DeletePrefix key_prefix=[1]
//
// A Put either carries its value as `value=[..]` or only the value length as
// `|value|=N`; in the latter case the value is the single byte 0. Lines
// outside of a batch are ignored, so logs can be fed in directly.
package script

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"kvreplay/pkg/batch"
)

const (
	headerPrefix = "write_batch n_operation="

	putMarker          = " Put key=["
	deleteMarker       = " Delete key=["
	deletePrefixMarker = " DeletePrefix key_prefix=["

	valueLenMarker = "] |value|="
	valueMarker    = "] value=["

	maxLineBytes = 16 << 20
)

// Reader yields batches one at a time. A batch is fully decoded before it is
// returned, so a malformed batch never reaches the store.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Next returns the next batch or io.EOF when the script is exhausted.
func (r *Reader) Next() (batch.Batch, error) {
	for {
		text, ok, err := r.scan()
		if err != nil {
			return batch.Batch{}, err
		}
		if !ok {
			return batch.Batch{}, io.EOF
		}
		if strings.HasPrefix(text, headerPrefix) {
			return r.readBatch(text)
		}
	}
}

// ReadAll decodes the whole script.
func (r *Reader) ReadAll() ([]batch.Batch, error) {
	var batches []batch.Batch
	for {
		b, err := r.Next()
		if errors.Is(err, io.EOF) {
			return batches, nil
		}
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
}

func (r *Reader) scan() (string, bool, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	r.line++
	return r.sc.Text(), true, nil
}

func (r *Reader) readBatch(header string) (batch.Batch, error) {
	n, err := parseCount(header)
	if err != nil {
		return batch.Batch{}, formatErr(r.line, "%v", err)
	}

	ops := make([]batch.Operation, 0, n)
	for i := 0; i < n; i++ {
		text, ok, err := r.scan()
		if err != nil {
			return batch.Batch{}, err
		}
		if !ok {
			return batch.Batch{}, formatErr(r.line, "batch declares %d operations, script ends after %d", n, i)
		}

		op, err := parseOperation(i, text)
		if err != nil {
			return batch.Batch{}, formatErr(r.line, "%v", err)
		}
		ops = append(ops, op)
	}

	return batch.Batch{Operations: ops}, nil
}

func parseCount(header string) (int, error) {
	parts := strings.Split(header, "=")
	if len(parts) != 2 {
		return 0, errors.New("header must be write_batch n_operation=N")
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || n < 0 {
		return 0, errors.New("bad operation count " + strconv.Quote(parts[1]))
	}
	return n, nil
}

func parseOperation(want int, text string) (batch.Operation, error) {
	idx, _, found := strings.Cut(text, ":")
	if !found {
		return batch.Operation{}, errors.New("missing operation index")
	}
	got, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return batch.Operation{}, errors.New("bad operation index " + strconv.Quote(idx))
	}
	if got != want {
		return batch.Operation{}, errors.New("wrong operation index " + strconv.Itoa(got) + ", want " + strconv.Itoa(want))
	}

	if _, rest, ok := strings.Cut(text, putMarker); ok {
		return parsePut(rest)
	}
	if _, rest, ok := strings.Cut(text, deletePrefixMarker); ok {
		prefix, err := parseClosedList(rest)
		if err != nil {
			return batch.Operation{}, err
		}
		return batch.DeletePrefix(prefix), nil
	}
	if _, rest, ok := strings.Cut(text, deleteMarker); ok {
		key, err := parseClosedList(rest)
		if err != nil {
			return batch.Operation{}, err
		}
		return batch.Delete(key), nil
	}

	return batch.Operation{}, errors.New("unrecognized operation " + strconv.Quote(text))
}

func parsePut(rest string) (batch.Operation, error) {
	if keyStr, lenStr, ok := strings.Cut(rest, valueLenMarker); ok {
		key, err := ParseBytes(keyStr)
		if err != nil {
			return batch.Operation{}, err
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lenStr)); err != nil {
			return batch.Operation{}, errors.New("bad value length " + strconv.Quote(lenStr))
		}
		return batch.Put(key, []byte{0}), nil
	}

	if keyStr, valueStr, ok := strings.Cut(rest, valueMarker); ok {
		key, err := ParseBytes(keyStr)
		if err != nil {
			return batch.Operation{}, err
		}
		value, err := parseClosedList(valueStr)
		if err != nil {
			return batch.Operation{}, err
		}
		return batch.Put(key, value), nil
	}

	return batch.Operation{}, errors.New("put without value")
}

// parseClosedList parses "1, 2, 3]", the tail of a list whose opening
// bracket has already been consumed.
func parseClosedList(s string) ([]byte, error) {
	s = strings.TrimRight(s, " \t\r")
	body, ok := strings.CutSuffix(s, "]")
	if !ok {
		return nil, errors.New("byte list is not closed: " + strconv.Quote(s))
	}
	return ParseBytes(body)
}

// ParseBytes parses a comma separated list of decimal bytes. An empty or
// blank string is the empty byte string.
func ParseBytes(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return []byte{}, nil
	}

	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, errors.New("bad byte " + strconv.Quote(p) + " in list")
		}
		out = append(out, byte(v))
	}
	return out, nil
}
