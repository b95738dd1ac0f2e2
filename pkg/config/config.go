package config

import (
	"time"
)

// Config - корневая структура конфигурации приложения
// yaml и validate теги для парсинга и валидации

type Config struct {
	Logger  LoggerConfig  `yaml:"logger" validate:"required"`
	Server  ServerConfig  `yaml:"http-server" validate:"required"`
	Store   StoreConfig   `yaml:"store" validate:"required"`
	Replay  ReplayConfig  `yaml:"replay"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Port              int           `yaml:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" validate:"min=0"`
}

const (
	BackendMemory  = "memory"
	BackendHTTP    = "http"
	BackendLevelDB = "leveldb"
	BackendPebble  = "pebble"
	BackendCQL     = "cql"
)

type StoreConfig struct {
	Backend string          `yaml:"backend" validate:"required,oneof=memory http leveldb pebble cql"`
	Reset   bool            `yaml:"reset"`
	HTTP    HTTPStoreConfig `yaml:"http"`
	LevelDB PathConfig      `yaml:"leveldb"`
	Pebble  PathConfig      `yaml:"pebble"`
	CQL     CQLConfig       `yaml:"cql"`
}

type HTTPStoreConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

type PathConfig struct {
	Path string `yaml:"path"`
}

type CQLConfig struct {
	Hosts             []string      `yaml:"hosts" validate:"dive,required"`
	Keyspace          string        `yaml:"keyspace"`
	Table             string        `yaml:"table"`
	Consistency       string        `yaml:"consistency" validate:"omitempty,oneof=ANY ONE TWO THREE QUORUM ALL LOCAL_QUORUM EACH_QUORUM LOCAL_ONE"`
	ReplicationFactor int           `yaml:"replication_factor" validate:"min=0"`
	Timeout           time.Duration `yaml:"timeout" validate:"min=0"`
}

type ReplayConfig struct {
	// FullScan re-reads the whole keyspace after every batch instead of the
	// first-byte buckets touched so far.
	FullScan bool `yaml:"full_scan"`
	// MaxDiff caps the number of differing keys reported on a mismatch.
	MaxDiff int `yaml:"max_diff" validate:"min=0"`
}

type MetricsConfig struct {
	// Listen is the address of the prometheus endpoint of kvreplay; empty disables it.
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Reset:   true,
			HTTP: HTTPStoreConfig{
				URL:     "http://localhost:8080",
				Timeout: 10 * time.Second,
			},
			LevelDB: PathConfig{Path: "./data/leveldb"},
			Pebble:  PathConfig{Path: "./data/pebble"},
			CQL: CQLConfig{
				Hosts:             []string{"localhost:9042"},
				Keyspace:          "kv",
				Table:             "pairs",
				Consistency:       "QUORUM",
				ReplicationFactor: 1,
				Timeout:           10 * time.Second,
			},
		},
		Replay: ReplayConfig{
			FullScan: false,
			MaxDiff:  20,
		},
	}
}
