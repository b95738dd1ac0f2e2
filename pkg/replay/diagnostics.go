package replay

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
)

// PrefixCoverage counts the batch's own Put keys that fall under a prefix the
// same batch deletes.
type PrefixCoverage struct {
	Prefix      []byte
	CoveredPuts int
}

// Report summarizes which keys a batch touches and how its operations
// overlap. It is advisory only.
type Report struct {
	Puts             int
	Deletes          int
	PrefixDeletes    int
	PutDeleteOverlap int
	Prefixes         []PrefixCoverage
}

// Diagnose looks at a single batch, without any history, and counts the
// overlaps between its operations: the same key both put and deleted, and
// puts that land inside a deleted prefix. These are the places where the
// order of statements inside a batch decides the outcome.
func Diagnose(b batch.Batch) Report {
	puts := make(map[string]struct{})
	deletes := make(map[string]struct{})
	prefixes := make(map[string]struct{})

	for _, op := range b.Operations {
		switch op.Kind {
		case batch.PutOp:
			puts[string(op.Key)] = struct{}{}
		case batch.DeleteOp:
			deletes[string(op.Key)] = struct{}{}
		case batch.DeletePrefixOp:
			prefixes[string(op.Key)] = struct{}{}
		}
	}

	r := Report{
		Puts:          len(puts),
		Deletes:       len(deletes),
		PrefixDeletes: len(prefixes),
	}

	for key := range puts {
		if _, ok := deletes[key]; ok {
			r.PutDeleteOverlap++
		}
	}

	putKeys := sortedKeys(puts)
	for _, prefix := range sortedKeys(prefixes) {
		r.Prefixes = append(r.Prefixes, PrefixCoverage{
			Prefix:      []byte(prefix),
			CoveredPuts: countInRange(putKeys, keyrange.PrefixRange([]byte(prefix))),
		})
	}

	return r
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	// string order is byte-wise, the same order as bytes.Compare
	sort.Strings(keys)
	return keys
}

// countInRange counts the entries of the sorted keys that r contains.
func countInRange(keys []string, r keyrange.Range) int {
	start, limit := r.HalfOpen()
	lo := sort.SearchStrings(keys, string(start))
	hi := len(keys)
	if limit != nil {
		hi = sort.SearchStrings(keys, string(limit))
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Format prints the report one figure per line.
func (r Report) Format(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("|key_puts|=%d", r.Puts),
		fmt.Sprintf("|key_deletes|=%d", r.Deletes),
		fmt.Sprintf("|key_prefix_deletes|=%d", r.PrefixDeletes),
		fmt.Sprintf("|key_puts int key_deletes|=%d", r.PutDeleteOverlap),
	}
	for _, p := range r.Prefixes {
		lines = append(lines, fmt.Sprintf("|key_prefix|=%d |key_list|=%d", len(p.Prefix), p.CoveredPuts))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (r Report) LogValue() slog.Value {
	covered := 0
	for _, p := range r.Prefixes {
		covered += p.CoveredPuts
	}
	return slog.GroupValue(
		slog.Int("puts", r.Puts),
		slog.Int("deletes", r.Deletes),
		slog.Int("prefix_deletes", r.PrefixDeletes),
		slog.Int("put_delete_overlap", r.PutDeleteOverlap),
		slog.Int("puts_under_deleted_prefix", covered),
	)
}
