package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/types"
)

// CQLOptions describe the Cassandra/Scylla table that backs a CQL store.
type CQLOptions struct {
	Hosts             []string
	Keyspace          string
	Table             string
	Consistency       string
	ReplicationFactor int
	Timeout           time.Duration
}

// CQL implements Store on a single-partition table
// (dummy int, k blob, v blob, primary key (dummy, k)). All rows live in
// partition dummy = 0 so that k is a clustering column and supports ranges.
//
// Statements of a logged batch share one write timestamp, so the server
// resolves a put and a delete of the same key in one batch by its own rules
// rather than by statement order. That is one of the divergences a replay run
// is expected to surface.
type CQL struct {
	session *gocql.Session
	table   string
}

func OpenCQL(ctx context.Context, opts CQLOptions) (*CQL, error) {
	consistency, err := gocql.ParseConsistencyWrapper(opts.Consistency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Consistency = consistency
	if opts.Timeout > 0 {
		cluster.Timeout = opts.Timeout
		cluster.ConnectTimeout = opts.Timeout
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("%w: connect %v: %w", ErrUnavailable, opts.Hosts, err)
	}

	c := &CQL{
		session: session,
		table:   opts.Keyspace + "." + opts.Table,
	}

	keyspace := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : %d }",
		opts.Keyspace, opts.ReplicationFactor,
	)
	if err := c.exec(ctx, keyspace); err != nil {
		session.Close()
		return nil, err
	}
	if err := c.createTable(ctx); err != nil {
		session.Close()
		return nil, err
	}

	return c, nil
}

func (c *CQL) exec(ctx context.Context, stmt string, values ...any) error {
	if err := c.session.Query(stmt, values...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequest, stmt, err)
	}
	return nil
}

func (c *CQL) createTable(ctx context.Context) error {
	return c.exec(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (dummy int, k blob, v blob, primary key (dummy, k))", c.table,
	))
}

func (c *CQL) WriteBatch(ctx context.Context, ops []batch.Operation) error {
	if err := checkOps(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	b := c.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, op := range ops {
		stmt, values := c.statement(op)
		b.Query(stmt, values...)
	}

	if err := c.session.ExecuteBatch(b); err != nil {
		return fmt.Errorf("%w: batch of %d: %w", ErrRequest, len(ops), err)
	}
	return nil
}

func (c *CQL) statement(op batch.Operation) (string, []any) {
	switch op.Kind {
	case batch.PutOp:
		return "INSERT INTO " + c.table + " (dummy, k, v) VALUES (0, ?, ?)", []any{op.Key, op.Value}
	case batch.DeleteOp:
		return "DELETE FROM " + c.table + " WHERE dummy = 0 AND k = ?", []any{op.Key}
	default:
		start, limit := keyrange.PrefixRange(op.Key).HalfOpen()
		if limit == nil {
			return "DELETE FROM " + c.table + " WHERE dummy = 0 AND k >= ?", []any{start}
		}
		return "DELETE FROM " + c.table + " WHERE dummy = 0 AND k >= ? AND k < ?", []any{start, limit}
	}
}

func (c *CQL) ScanByRange(ctx context.Context, r keyrange.Range) ([]types.KV, error) {
	start, limit := r.HalfOpen()

	stmt := "SELECT k, v FROM " + c.table + " WHERE dummy = 0 AND k >= ?"
	values := []any{start}
	if limit != nil {
		stmt += " AND k < ?"
		values = append(values, limit)
	}

	iter := c.session.Query(stmt, values...).WithContext(ctx).Iter()

	var (
		result []types.KV
		k, v   []byte
	)
	for iter.Scan(&k, &v) {
		result = append(result, types.KV{Key: types.Clone(k), Value: types.Clone(v)})
		k, v = nil, nil
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", ErrRequest, r, err)
	}
	return result, nil
}

// Reset drops and recreates the table.
func (c *CQL) Reset(ctx context.Context) error {
	if err := c.exec(ctx, "DROP TABLE IF EXISTS "+c.table); err != nil {
		return err
	}
	return c.createTable(ctx)
}

func (c *CQL) Close() error {
	c.session.Close()
	return nil
}
