package config

import (
	"fmt"
	"strings"
	"time"

	svcerrors "github.com/turtacn/itemsvc/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	PprofEnabled    bool          `mapstructure:"pprof_enabled"`
	// ItemCacheMaxAge is advertised in Cache-Control on item responses; zero means no-cache.
	ItemCacheMaxAge time.Duration `mapstructure:"item_cache_max_age"`
}

// Address returns the host:port the HTTP server listens on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	AcquireTimeout  time.Duration `mapstructure:"acquire_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Insecure     bool    `mapstructure:"insecure"`
}

type MetricsConfig struct {
	Buckets           []float64 `mapstructure:"buckets"`
	RuntimeCollectors bool      `mapstructure:"runtime_collectors"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Database.validate(); err != nil {
		return err
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return invalid("tracing.sampling_rate must be between 0 and 1")
	}
	return c.Metrics.validate()
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return invalid("server.port must be between 1 and 65535")
	}
	if c.RequestTimeout <= 0 {
		return invalid("server.request_timeout must be positive")
	}
	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.URL == "" {
		return invalid("database.url is required")
	}
	if !strings.HasPrefix(c.URL, "postgres://") && !strings.HasPrefix(c.URL, "postgresql://") {
		return invalid("database.url must start with postgres:// or postgresql://")
	}
	if c.MaxConns < 1 {
		return invalid("database.max_conns must be >= 1")
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return invalid("database.min_conns must be between 0 and database.max_conns")
	}
	if c.ConnectTimeout < time.Second || c.ConnectTimeout > time.Minute {
		return invalid("database.connect_timeout must be between 1s and 60s")
	}
	if c.AcquireTimeout < time.Second || c.AcquireTimeout > time.Minute {
		return invalid("database.acquire_timeout must be between 1s and 60s")
	}
	return nil
}

func (c *MetricsConfig) validate() error {
	if len(c.Buckets) == 0 {
		return invalid("metrics.buckets must not be empty")
	}
	for i := 1; i < len(c.Buckets); i++ {
		if c.Buckets[i] <= c.Buckets[i-1] {
			return invalid("metrics.buckets must be strictly ascending")
		}
	}
	return nil
}

func invalid(msg string) error {
	return svcerrors.ErrInvalidConfig(msg)
}
