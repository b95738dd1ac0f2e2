// Package backend opens the store.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"kvreplay/pkg/config"
	"kvreplay/pkg/rpc"
	"kvreplay/pkg/store"
)

// Open builds the configured store and, when cfg.Reset is set, empties it.
func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	st, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Reset {
		if err := store.Reset(ctx, st); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("reset %s store: %w", cfg.Backend, err)
		}
		slog.Info("store reset", "backend", cfg.Backend)
	}

	return st, nil
}

func open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendHTTP:
		client := rpc.NewClient(cfg.HTTP.URL, cfg.HTTP.Timeout)
		if err := client.Health(ctx); err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendLevelDB:
		return store.OpenLevelDB(cfg.LevelDB.Path)
	case config.BackendPebble:
		return store.OpenPebble(cfg.Pebble.Path)
	case config.BackendCQL:
		return store.OpenCQL(ctx, store.CQLOptions{
			Hosts:             cfg.CQL.Hosts,
			Keyspace:          cfg.CQL.Keyspace,
			Table:             cfg.CQL.Table,
			Consistency:       cfg.CQL.Consistency,
			ReplicationFactor: cfg.CQL.ReplicationFactor,
			Timeout:           cfg.CQL.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownBackend, cfg.Backend)
	}
}
