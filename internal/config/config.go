// Package config loads server configuration from defaults, an optional YAML
// file, a .env file and CHART_PAGER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"chart-pager/internal/validation"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHART_PAGER_"

// Storage backends.
const (
	BackendNone       = "none"
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Config is the top-level server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Engine  EngineConfig  `yaml:"engine" envPrefix:"ENGINE_"`
	Session SessionConfig `yaml:"session" envPrefix:"SESSION_"`
	WS      WSConfig      `yaml:"ws" envPrefix:"WS_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Loader  LoaderConfig  `yaml:"loader" envPrefix:"LOADER_"`
	Kafka   KafkaConfig   `yaml:"kafka" envPrefix:"KAFKA_"`
}

// ServerConfig holds network listener configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
	// MetricsAddr serves /metrics on a separate listener when set.
	MetricsAddr       string        `yaml:"metrics_addr" env:"METRICS_ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// EngineConfig tunes chunking and pagination.
type EngineConfig struct {
	ChunkThreshold      int `yaml:"chunk_threshold" env:"CHUNK_THRESHOLD"`
	DefaultHistoryCount int `yaml:"default_history_count" env:"DEFAULT_HISTORY_COUNT"`
}

// SessionConfig controls UI session expiry.
type SessionConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	IdleTTL       time.Duration `yaml:"idle_ttl" env:"IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// WSConfig controls WebSocket connections.
type WSConfig struct {
	PingInterval time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	SendBuffer   int           `yaml:"send_buffer" env:"SEND_BUFFER"`
}

// StorageConfig selects where series are loaded from.
type StorageConfig struct {
	Backend       string `yaml:"backend" env:"BACKEND"`
	PostgresDSN   string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	ClickHouseDSN string `yaml:"clickhouse_dsn" env:"CLICKHOUSE_DSN"`
	// MemoryFile is the JSON series file the memory backend is filled from.
	MemoryFile    string `yaml:"memory_file" env:"MEMORY_FILE"`
}

// LoaderConfig controls the source loader.
type LoaderConfig struct {
	// Interval re-runs the load; zero loads once at startup.
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// KafkaConfig configures the series update consumer. It is disabled when
// Brokers is empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"TOPIC"`
	GroupID string   `yaml:"group_id" env:"GROUP_ID"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Engine: EngineConfig{
			ChunkThreshold:      500,
			DefaultHistoryCount: validation.DefaultHistoryCount,
		},
		Session: SessionConfig{Enabled: true, IdleTTL: 30 * time.Minute},
		WS:      WSConfig{PingInterval: 30 * time.Second, SendBuffer: 64},
		Storage: StorageConfig{Backend: BackendNone},
		Kafka:   KafkaConfig{Topic: "chart-series", GroupID: "chart-pager"},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Engine.ChunkThreshold < 1 {
		errs = append(errs, errors.New("engine.chunk_threshold must be >= 1"))
	}
	if err := validation.HistoryCount(c.Engine.DefaultHistoryCount); err != nil {
		errs = append(errs, fmt.Errorf("engine.default_history_count: %w", err))
	}

	switch c.Storage.Backend {
	case BackendNone:
	case BackendMemory:
		if c.Storage.MemoryFile == "" {
			errs = append(errs, errors.New("storage.memory_file is required for the memory backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendClickHouse:
		if c.Storage.ClickHouseDSN == "" {
			errs = append(errs, errors.New("storage.clickhouse_dsn is required for the clickhouse backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}

	return errors.Join(errs...)
}
