// Package replay drives write batches into a store and, after each batch,
// checks the store against an in-memory reference model.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/metrics"
	"kvreplay/pkg/model"
	"kvreplay/pkg/store"
	"kvreplay/pkg/types"
)

const defaultMaxDiff = 20

// Source yields batches in replay order and io.EOF after the last one.
type Source interface {
	Next() (batch.Batch, error)
}

type sliceSource struct {
	batches []batch.Batch
	next    int
}

// Batches returns a Source over an already decoded script.
func Batches(bs []batch.Batch) Source {
	return &sliceSource{batches: bs}
}

func (s *sliceSource) Next() (batch.Batch, error) {
	if s.next >= len(s.batches) {
		return batch.Batch{}, io.EOF
	}
	b := s.batches[s.next]
	s.next++
	return b, nil
}

func (s *sliceSource) Len() int { return len(s.batches) }

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Batches    int
	Operations int
	Keys       int
	Buckets    int
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithFullScan makes every verification read the whole keyspace.
func WithFullScan(full bool) Option {
	return func(e *Engine) { e.fullScan = full }
}

func WithMetrics(m *metrics.Replay) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxDiff caps the number of differing keys collected on a mismatch.
// Zero or less means no cap.
func WithMaxDiff(n int) Option {
	return func(e *Engine) { e.maxDiff = n }
}

// WithOutput sets where the offending batch and its report are printed.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// Engine replays batches strictly one after another. It is not safe for
// concurrent use.
type Engine struct {
	store    store.Store
	model    *model.Model
	buckets  bucketSet
	log      *slog.Logger
	metrics  *metrics.Replay
	out      io.Writer
	fullScan bool
	maxDiff  int

	runID      string
	pos        int
	operations int
	failed     error
}

func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		model:   model.New(),
		log:     slog.Default(),
		out:     os.Stdout,
		maxDiff: defaultMaxDiff,
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("run_id", e.runID)
	return e
}

func (e *Engine) Model() *model.Model { return e.model }

func (e *Engine) RunID() string { return e.runID }

// Run replays every batch of src. It stops at the first error: a malformed
// script, a failed store request or an inconsistency.
func (e *Engine) Run(ctx context.Context, src Source) (Summary, error) {
	total := -1
	if l, ok := src.(interface{ Len() int }); ok {
		total = l.Len()
	}
	e.log.Info("replay started", "n_batches", total, "full_scan", e.fullScan)

	for {
		b, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return e.summary(), fmt.Errorf("read batch %d: %w", e.pos, err)
		}

		if err := e.Step(ctx, b); err != nil {
			var inc *InconsistencyError
			if errors.As(err, &inc) {
				e.log.Error("Inconsistency", "pos", inc.Pos, "n_batches", total)
			}
			return e.summary(), err
		}
	}

	s := e.summary()
	e.log.Info("replay finished", "batches", s.Batches, "operations", s.Operations, "keys", s.Keys)
	return s, nil
}

func (e *Engine) summary() Summary {
	return Summary{
		RunID:      e.runID,
		Batches:    e.pos,
		Operations: e.operations,
		Keys:       e.model.Len(),
		Buckets:    e.buckets.len(),
	}
}

// Step applies one batch to the model and the store and verifies them.
// After an inconsistency the engine refuses further batches.
func (e *Engine) Step(ctx context.Context, b batch.Batch) error {
	if e.failed != nil {
		return e.failed
	}

	e.buckets.observe(b)
	e.model.Apply(b)

	if err := e.store.WriteBatch(ctx, b.Operations); err != nil {
		e.failed = fmt.Errorf("write batch pos=%d: %w", e.pos, err)
		return e.failed
	}

	got, err := e.Snapshot(ctx)
	if err != nil {
		e.failed = fmt.Errorf("read back pos=%d: %w", e.pos, err)
		return e.failed
	}

	if !got.Equal(e.model) {
		e.failed = e.inconsistency(b, got)
		return e.failed
	}

	e.operations += b.Len()
	e.observeMetrics(b)
	e.log.Debug("batch verified", "pos", e.pos, "operations", b.Len(), "keys", e.model.Len())
	e.pos++
	return nil
}

// Snapshot reads back the part of the store the replay has touched: every
// first-byte bucket written so far, or the whole keyspace in full-scan mode
// or once the empty key or prefix was used.
func (e *Engine) Snapshot(ctx context.Context) (*model.Model, error) {
	snap := model.New()

	if e.fullScan || e.buckets.all {
		pairs, err := e.store.ScanByRange(ctx, keyrange.All())
		if err != nil {
			return nil, err
		}
		for _, kv := range pairs {
			snap.Put(kv.Key, kv.Value)
		}
		return snap, nil
	}

	var scanErr error
	e.buckets.each(func(first byte) {
		if scanErr != nil {
			return
		}
		scanErr = e.readBucket(ctx, first, snap)
	})
	return snap, scanErr
}

func (e *Engine) readBucket(ctx context.Context, first byte, into *model.Model) error {
	r := bucket(first)
	pairs, err := e.store.ScanByRange(ctx, r)
	if err != nil {
		return err
	}

	for _, kv := range pairs {
		if !r.Contains(kv.Key) {
			return fmt.Errorf("%w: scan of bucket %d returned key %s",
				store.ErrRequest, first, batch.FormatBytes(kv.Key))
		}
		into.Put(rebuildKey(first, kv.Key[1:]), kv.Value)
	}
	return nil
}

// rebuildKey prepends the bucket byte to a key suffix.
func rebuildKey(first byte, suffix []byte) types.Key {
	key := make([]byte, 0, len(suffix)+1)
	key = append(key, first)
	return append(key, suffix...)
}

func (e *Engine) inconsistency(b batch.Batch, got *model.Model) error {
	err := &InconsistencyError{
		Pos:    e.pos,
		Batch:  b,
		Report: Diagnose(b),
		Diff:   Diff(e.model.Pairs(), got.Pairs(), e.maxDiff),
	}

	if e.metrics != nil {
		e.metrics.Inconsistencies.Inc()
	}

	e.log.Error("store diverged from reference model",
		"pos", err.Pos,
		"operations", b.Len(),
		"model_keys", e.model.Len(),
		"store_keys", got.Len(),
		"report", err.Report,
	)
	for _, m := range err.Diff {
		e.log.Error("divergent key", "diff", m.String())
	}

	if e.out != nil {
		fmt.Fprintln(e.out, "              ---------------------")
		fmt.Fprintf(e.out, "Inconsistency at pos=%d\n", err.Pos)
		_ = b.Format(e.out)
		_ = err.Report.Format(e.out)
	}

	return err
}

func (e *Engine) observeMetrics(b batch.Batch) {
	if e.metrics == nil {
		return
	}
	e.metrics.Batches.Inc()
	for _, op := range b.Operations {
		e.metrics.Operations.WithLabelValues(op.Kind.String()).Inc()
	}
	e.metrics.ModelKeys.Set(float64(e.model.Len()))
	e.metrics.Buckets.Set(float64(e.buckets.len()))
}
