package replay

import (
	"errors"
	"fmt"

	"kvreplay/pkg/batch"
)

var (
	ErrInconsistent = errors.New("store diverged from reference model")
)

// InconsistencyError is returned when the store content read back after a
// batch differs from the reference model. It carries the evidence needed to
// debug the offending batch.
type InconsistencyError struct {
	Pos    int
	Batch  batch.Batch
	Report Report
	Diff   []Mismatch
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inconsistency at pos=%d: %d differing keys", e.Pos, len(e.Diff))
}

func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistent
}
