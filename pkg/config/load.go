package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var (
	ErrInvalid = errors.New("invalid config")
)

// Load reads a YAML config from path on top of Default(). A missing file is
// not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the validate tags and the rules that span fields.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	switch c.Store.Backend {
	case BackendHTTP:
		if c.Store.HTTP.URL == "" {
			return fmt.Errorf("%w: store.http.url is required for the http backend", ErrInvalid)
		}
	case BackendLevelDB:
		if c.Store.LevelDB.Path == "" {
			return fmt.Errorf("%w: store.leveldb.path is required for the leveldb backend", ErrInvalid)
		}
	case BackendPebble:
		if c.Store.Pebble.Path == "" {
			return fmt.Errorf("%w: store.pebble.path is required for the pebble backend", ErrInvalid)
		}
	case BackendCQL:
		if len(c.Store.CQL.Hosts) == 0 || c.Store.CQL.Keyspace == "" || c.Store.CQL.Table == "" {
			return fmt.Errorf("%w: store.cql needs hosts, keyspace and table", ErrInvalid)
		}
	}

	return nil
}
