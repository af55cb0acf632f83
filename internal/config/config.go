// Package config loads indexer settings from defaults, an optional YAML file
// and RODEO_-prefixed environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. RODEO_POSTGRES_DSN.
const EnvPrefix = "RODEO_"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the full indexer configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Postgres   PostgresConfig   `koanf:"postgres"`
	ClickHouse ClickHouseConfig `koanf:"clickhouse"`
	Redis      RedisConfig      `koanf:"redis"`
	NATS       NATSConfig       `koanf:"nats"`
	Feed       FeedConfig       `koanf:"feed"`
	Indexer    IndexerConfig    `koanf:"indexer"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// PostgresConfig locates the entity store database.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// ClickHouseConfig enables the analytics sink.
type ClickHouseConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"`
}

// RedisConfig enables the latest price and candle cache.
type RedisConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	TTL     time.Duration `koanf:"ttl"`
}

// NATSConfig enables publication of trades, candles and prices.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Prefix  string `koanf:"prefix"`
}

// FeedConfig selects the event source. A non-empty File takes precedence over URL.
type FeedConfig struct {
	URL            string        `koanf:"url"`
	File           string        `koanf:"file"`
	BlockLag       uint64        `koanf:"block_lag"`
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`
	MaxReconnects  int           `koanf:"max_reconnects"`
}

// IndexerConfig controls the reducer and its entity store.
type IndexerConfig struct {
	Store         string `koanf:"store"`
	HolderPolicy  string `koanf:"holder_policy"`
	RecordRaw     bool   `koanf:"record_raw"`
	MigrateOnBoot bool   `koanf:"migrate_on_boot"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.level":               "info",
		"log.pretty":              false,
		"postgres.dsn":            "",
		"clickhouse.enabled":      false,
		"clickhouse.dsn":          "clickhouse://localhost:9000/rodeo",
		"redis.enabled":           false,
		"redis.url":               "redis://localhost:6379/0",
		"redis.ttl":               24 * time.Hour,
		"nats.enabled":            false,
		"nats.url":                "nats://localhost:4222",
		"nats.prefix":             "rodeo",
		"feed.url":                "",
		"feed.file":               "",
		"feed.block_lag":          0,
		"feed.reconnect_delay":    2 * time.Second,
		"feed.max_reconnects":     0,
		"indexer.store":           StoreMemory,
		"indexer.holder_policy":   "creator",
		"indexer.record_raw":      false,
		"indexer.migrate_on_boot": false,
		"metrics.addr":            ":9102",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// RODEO_FEED_BLOCK_LAG -> feed.block_lag: only the section separator becomes a dot.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Indexer.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres.dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown indexer.store %q", c.Indexer.Store)
	}
	if c.Indexer.RecordRaw && c.Postgres.DSN == "" {
		return fmt.Errorf("config: indexer.record_raw requires postgres.dsn")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" {
		return fmt.Errorf("config: clickhouse.dsn is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("config: redis.url is required when redis is enabled")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("config: nats.url is required when nats is enabled")
	}
	return nil
}
