package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent haven configuration stored as config.toml
// in the .haven/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Gateway     GatewayConfig     `toml:"gateway"`
	API         APIConfig         `toml:"api"`
	Decoder     DecoderConfig     `toml:"decoder"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Kafka       KafkaConfig       `toml:"kafka"`
}

// StorageConfig selects where entries and sessions live. A Postgres DSN wins
// over a SQLite path; with neither, storage is in memory. RedisAddr moves
// chat sessions to Redis.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	RedisAddr   string `toml:"redis_addr,omitempty"`
}

// GatewayConfig holds the LLM gateway settings. Provider "canned" answers
// chat offline and disables drift analysis.
type GatewayConfig struct {
	Provider string `toml:"provider,omitempty"`
	URL      string `toml:"url,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// APIConfig holds API server settings. A RateLimit of zero disables limiting.
type APIConfig struct {
	Listen    string  `toml:"listen,omitempty"`
	RateLimit float64 `toml:"rate_limit,omitempty"`
	RateBurst int     `toml:"rate_burst,omitempty"`
}

// DecoderConfig tunes the stream decoder. MaxRecoveries bounds how many chunks
// may arrive while a malformed record is pending; a negative value disables
// the bound.
type DecoderConfig struct {
	MaxRecoveries int `toml:"max_recoveries,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. haven chat, haven journal). APITarget is a full URL.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	User      string `toml:"user,omitempty"`
}

// VectorStoreConfig holds vector store settings. An empty provider disables
// journal recall.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// KafkaConfig holds event publishing settings. No brokers means events are
// dropped.
type KafkaConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"storage.redis_addr": {
		get: func(c *Config) string { return c.Storage.RedisAddr },
		set: func(c *Config, v string) error { c.Storage.RedisAddr = v; return nil },
	},
	"gateway.provider": {
		get: func(c *Config) string { return c.Gateway.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case GatewayDefault, GatewayCanned:
				c.Gateway.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for gateway.provider: %q (expected gateway or canned)", v)
			}
		},
	},
	"gateway.url": {
		get: func(c *Config) string { return c.Gateway.URL },
		set: func(c *Config, v string) error { c.Gateway.URL = v; return nil },
	},
	"gateway.api_key": {
		get: func(c *Config) string { return c.Gateway.APIKey },
		set: func(c *Config, v string) error { c.Gateway.APIKey = v; return nil },
	},
	"gateway.model": {
		get: func(c *Config) string { return c.Gateway.Model },
		set: func(c *Config, v string) error { c.Gateway.Model = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.rate_limit": {
		get: func(c *Config) string {
			if c.API.RateLimit == 0 {
				return ""
			}
			return strconv.FormatFloat(c.API.RateLimit, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for api.rate_limit: %w", err)
			}
			if f < 0 {
				return fmt.Errorf("invalid value for api.rate_limit: %v is negative", f)
			}
			c.API.RateLimit = f
			return nil
		},
	},
	"api.rate_burst": {
		get: func(c *Config) string {
			if c.API.RateBurst == 0 {
				return ""
			}
			return strconv.Itoa(c.API.RateBurst)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 31)
			if err != nil {
				return fmt.Errorf("invalid value for api.rate_burst: %w", err)
			}
			c.API.RateBurst = int(n)
			return nil
		},
	},
	"decoder.max_recoveries": {
		get: func(c *Config) string {
			if c.Decoder.MaxRecoveries == 0 {
				return ""
			}
			return strconv.Itoa(c.Decoder.MaxRecoveries)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for decoder.max_recoveries: %w", err)
			}
			c.Decoder.MaxRecoveries = n
			return nil
		},
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.user": {
		get: func(c *Config) string { return c.Client.User },
		set: func(c *Config, v string) error { c.Client.User = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"kafka.brokers": {
		get: func(c *Config) string { return strings.Join(c.Kafka.Brokers, ",") },
		set: func(c *Config, v string) error { c.Kafka.Brokers = SplitList(v); return nil },
	},
	"kafka.topic": {
		get: func(c *Config) string { return c.Kafka.Topic },
		set: func(c *Config, v string) error { c.Kafka.Topic = v; return nil },
	},
}
