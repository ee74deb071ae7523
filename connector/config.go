package connector

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Konsultn-Engineering/sqlcore/cache"
	"github.com/Konsultn-Engineering/sqlcore/dialect"
)

// Config represents database connection configuration.
type Config struct {
	// Driver names the provider: postgres, mysql, tidb or sqlite.
	Driver         string            `json:"driver" yaml:"driver"`
	Host           string            `json:"host" yaml:"host"`
	Port           int               `json:"port" yaml:"port"`
	Database       string            `json:"database" yaml:"database"`
	Username       string            `json:"username" yaml:"username"`
	Password       string            `json:"password" yaml:"password"`
	SSLMode        string            `json:"ssl_mode" yaml:"ssl_mode"`
	Params         map[string]string `json:"params" yaml:"params"`
	Pool           PoolConfig        `json:"pool" yaml:"pool"`
	ConnectTimeout time.Duration     `json:"connect_timeout" yaml:"connect_timeout"`
	Retry          *RetryConfig      `json:"retry,omitempty" yaml:"retry,omitempty"`
	// PreparedStatements sizes the prepared statement cache of database/sql
	// providers. Zero disables it.
	PreparedStatements int         `json:"prepared_statements" yaml:"prepared_statements"`
	Cache              CacheConfig `json:"cache" yaml:"cache"`
	Batch              BatchConfig `json:"batch" yaml:"batch"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `json:"max_open" yaml:"max_open"`
	MaxIdle     int           `json:"max_idle" yaml:"max_idle"`
	MaxLifetime time.Duration `json:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff"`
}

// CacheConfig tunes the statement cache. Zero fields keep the defaults.
type CacheConfig struct {
	Capacity      int           `json:"capacity" yaml:"capacity"`
	CheckInterval time.Duration `json:"check_interval" yaml:"check_interval"`
	EvictFraction float64       `json:"evict_fraction" yaml:"evict_fraction"`
	TrimThreshold float64       `json:"trim_threshold" yaml:"trim_threshold"`
}

// Options converts the config into statement cache options.
func (c CacheConfig) Options(logger *slog.Logger) cache.Options {
	opts := cache.DefaultOptions()
	if c.Capacity > 0 {
		opts.Capacity = c.Capacity
	}
	if c.CheckInterval > 0 {
		opts.CheckInterval = c.CheckInterval
	}
	if c.EvictFraction > 0 {
		opts.EvictFraction = c.EvictFraction
	}
	if c.TrimThreshold > 0 {
		opts.Threshold = c.TrimThreshold
	}
	opts.Logger = logger
	return opts
}

// BatchConfig overrides the provider limits used when packing batches.
type BatchConfig struct {
	MaxParamCount          int `json:"max_param_count" yaml:"max_param_count"`
	MaxRecordsInInsertMany int `json:"max_records_in_insert_many" yaml:"max_records_in_insert_many"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("connector: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("connector: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the selected driver needs.
func (c *Config) Validate() error {
	d, err := dialect.For(c.Driver)
	if err != nil {
		return err
	}
	switch d.Name() {
	case "sqlite":
		if c.Database == "" {
			return fmt.Errorf("connector: sqlite requires a database path")
		}
	default:
		if c.Host == "" {
			return fmt.Errorf("connector: host is required")
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("connector: invalid port: %d", c.Port)
		}
	}
	if c.Cache.EvictFraction < 0 || c.Cache.EvictFraction >= 1 {
		return fmt.Errorf("connector: cache evict_fraction must be in [0, 1)")
	}
	if c.Cache.TrimThreshold < 0 || c.Cache.TrimThreshold > 1 {
		return fmt.Errorf("connector: cache trim_threshold must be in [0, 1]")
	}
	return nil
}
