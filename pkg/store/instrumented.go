package store

import (
	"context"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/metrics"
	"kvreplay/pkg/types"
)

type instrumented struct {
	Store
	m *metrics.Store
}

// Instrument wraps s so that every batch and scan is counted in m.
// Optional interfaces of s (Resetter) are preserved.
func Instrument(s Store, m *metrics.Store) Store {
	return &instrumented{Store: s, m: m}
}

func (i *instrumented) WriteBatch(ctx context.Context, ops []batch.Operation) error {
	if err := i.Store.WriteBatch(ctx, ops); err != nil {
		i.m.Errors.WithLabelValues("write_batch").Inc()
		return err
	}
	i.m.Batches.Inc()
	for _, op := range ops {
		i.m.Operations.WithLabelValues(op.Kind.String()).Inc()
	}
	return nil
}

func (i *instrumented) ScanByRange(ctx context.Context, r keyrange.Range) ([]types.KV, error) {
	pairs, err := i.Store.ScanByRange(ctx, r)
	if err != nil {
		i.m.Errors.WithLabelValues("scan").Inc()
		return nil, err
	}
	i.m.Scans.Inc()
	i.m.ScannedKeys.Add(float64(len(pairs)))
	return pairs, nil
}

func (i *instrumented) Reset(ctx context.Context) error {
	return Reset(ctx, i.Store)
}
