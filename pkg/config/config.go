// Package config loads and validates the apicache configuration.
//
// Configuration comes from a YAML file, with environment variables
// overriding the common deployment knobs (PORT, APICACHE_DB_PATH,
// APICACHE_REDIS_ADDR, APICACHE_LOG_LEVEL). Defaults reproduce the
// stock deployment: port 8080, LevelDB storage under /data/cache.db,
// and the two bundled currency APIs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backend names accepted in the config file.
const (
	BackendLevelDB = "leveldb"
	BackendRedis   = "redis"
)

// Config is the top-level apicache configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Upstream UpstreamConfig `yaml:"upstream"`

	// AllowedDomains is the exact-match allowlist of upstream hosts.
	AllowedDomains []string `yaml:"allowed_domains"`

	// CacheablePaths lists the host/path prefixes whose responses are
	// cached. Requests outside every prefix are proxied without cache
	// interaction.
	CacheablePaths []CacheRule `yaml:"cacheable_paths"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// StorageConfig selects and configures the cache store backend.
type StorageConfig struct {
	// Backend is "leveldb" (default) or "redis".
	Backend string `yaml:"backend"`

	// Path is the LevelDB database directory.
	Path string `yaml:"path"`

	// RedisAddr is the Redis host:port (redis backend only).
	RedisAddr string `yaml:"redis_addr"`

	// TTL bounds entry freshness, e.g. "24h". Empty or "0" means
	// entries never expire.
	TTL string `yaml:"ttl"`

	// FailClosed turns cache read errors into 500 responses instead of
	// falling through to the upstream.
	FailClosed bool `yaml:"fail_closed"`

	// EntryTTL is TTL parsed; populated by LoadConfig.
	EntryTTL time.Duration `yaml:"-"`
}

// UpstreamConfig bounds outbound requests.
type UpstreamConfig struct {
	// Timeout bounds a single upstream round trip, e.g. "30s".
	Timeout string `yaml:"timeout"`

	// UserAgent is sent on every upstream request.
	UserAgent string `yaml:"user_agent"`

	// FetchTimeout is Timeout parsed; populated by LoadConfig.
	FetchTimeout time.Duration `yaml:"-"`
}

// CacheRule marks a host/path prefix as cacheable.
type CacheRule struct {
	// Prefix matches against "<host><escaped-path>", e.g.
	// "api.twelvedata.com/eod".
	Prefix string `yaml:"prefix"`

	// CheckBodyCode enables inspection of the response body for an
	// embedded error code (some APIs report errors inside 200 bodies).
	CheckBodyCode bool `yaml:"check_body_code"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		Storage: StorageConfig{
			Backend:   BackendLevelDB,
			Path:      "/data/cache.db",
			RedisAddr: "localhost:6379",
		},
		Upstream: UpstreamConfig{
			Timeout:      "30s",
			UserAgent:    "apicache/1.0",
			FetchTimeout: 30 * time.Second,
		},
		AllowedDomains: []string{
			"openexchangerates.org",
			"api.twelvedata.com",
		},
		CacheablePaths: []CacheRule{
			{Prefix: "openexchangerates.org/api/historical"},
			{Prefix: "api.twelvedata.com/eod", CheckBodyCode: true},
		},
	}
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path yields the default
// configuration (env overrides still apply).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("APICACHE_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("APICACHE_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("APICACHE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// finalize validates the configuration and compiles the derived fields.
func (c *Config) finalize() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535 (got %d)", c.Server.Port)
	}

	switch c.Storage.Backend {
	case BackendLevelDB:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the leveldb backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q (got %q)",
			BackendLevelDB, BackendRedis, c.Storage.Backend)
	}

	if c.Storage.TTL != "" && c.Storage.TTL != "0" {
		d, err := time.ParseDuration(c.Storage.TTL)
		if err != nil {
			return fmt.Errorf("storage.ttl: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("storage.ttl must not be negative (got %s)", d)
		}
		c.Storage.EntryTTL = d
	}

	if c.Upstream.Timeout != "" {
		d, err := time.ParseDuration(c.Upstream.Timeout)
		if err != nil {
			return fmt.Errorf("upstream.timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("upstream.timeout must be positive (got %s)", d)
		}
		c.Upstream.FetchTimeout = d
	}
	if c.Upstream.FetchTimeout == 0 {
		c.Upstream.FetchTimeout = 30 * time.Second
	}

	if len(c.AllowedDomains) == 0 {
		return fmt.Errorf("allowed_domains must not be empty")
	}
	for i, d := range c.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			return fmt.Errorf("allowed_domains[%d] is empty", i)
		}
		if strings.ContainsAny(d, "/?#") {
			return fmt.Errorf("allowed_domains[%d]: %q must be a bare host", i, c.AllowedDomains[i])
		}
		c.AllowedDomains[i] = d
	}

	for i := range c.CacheablePaths {
		r := &c.CacheablePaths[i]
		r.Prefix = strings.TrimSpace(r.Prefix)
		if r.Prefix == "" {
			return fmt.Errorf("cacheable_paths[%d].prefix is empty", i)
		}
		r.Prefix = strings.ToLower(r.Prefix[:hostLen(r.Prefix)]) + r.Prefix[hostLen(r.Prefix):]
	}

	return nil
}

// hostLen returns the length of the host portion of a "<host>/<path>" prefix.
func hostLen(prefix string) int {
	if i := strings.IndexByte(prefix, '/'); i >= 0 {
		return i
	}
	return len(prefix)
}
