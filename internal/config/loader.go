package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/turtacn/itemsvc/pkg/constants"
	svcerrors "github.com/turtacn/itemsvc/pkg/errors"
)

// legacyEnv maps environment variable names used by earlier deployments onto config keys.
// The *_SECS variables carry plain integers and are converted in applyLegacySeconds.
var legacyEnv = map[string]string{
	"database.url":       "DATABASE_URL",
	"server.port":        "PORT",
	"database.max_conns": "DB_POOL_MAX_CONNECTIONS",
	"database.min_conns": "DB_POOL_MIN_CONNECTIONS",
}

var legacySecondsEnv = map[string]string{
	"database.connect_timeout": "DB_CONNECT_TIMEOUT_SECS",
	"database.acquire_timeout": "DB_ACQUIRE_TIMEOUT_SECS",
}

// LoadConfig loads the configuration from defaults, an optional config file and environment variables.
// configFile may be empty, in which case config.yaml is searched in the usual locations.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/itemsvc/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, svcerrors.ErrInvalidConfig("failed to read config file").WithCause(err)
		}
	}

	v.SetEnvPrefix("ITEMSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, envName(key), env); err != nil {
			return nil, svcerrors.ErrInvalidConfig("failed to bind env").WithCause(err)
		}
	}
	applyLegacySeconds(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, svcerrors.ErrInvalidConfig("failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", constants.DefaultHTTPPort)
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", constants.DefaultRequestTimeout)
	v.SetDefault("server.shutdown_timeout", constants.DefaultShutdownTimeout)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.pprof_enabled", false)
	v.SetDefault("server.item_cache_max_age", time.Duration(0))

	v.SetDefault("database.max_conns", constants.DefaultPoolMaxConns)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.connect_timeout", constants.DefaultConnectTimeout)
	v.SetDefault("database.acquire_timeout", constants.DefaultAcquireTimeout)
	v.SetDefault("database.max_conn_lifetime", constants.DefaultMaxConnLifetime)
	v.SetDefault("database.max_conn_idle_time", constants.DefaultMaxConnIdleTime)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sampling_rate", 1.0)
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("metrics.buckets", prometheus.DefBuckets)
	v.SetDefault("metrics.runtime_collectors", true)
}

// applyLegacySeconds converts the *_SECS variables. Like the other legacy aliases they rank with
// the environment, above the config file, but the canonical ITEMSVC_ variable always wins.
func applyLegacySeconds(v *viper.Viper) {
	for key, env := range legacySecondsEnv {
		if _, ok := os.LookupEnv(envName(key)); ok {
			continue
		}
		if err := v.BindEnv(key+"_secs", env); err != nil {
			continue
		}
		if secs := v.GetInt(key + "_secs"); secs > 0 {
			v.Set(key, time.Duration(secs)*time.Second)
		}
	}
}

// envName returns the canonical variable for a config key: database.url -> ITEMSVC_DATABASE_URL.
func envName(key string) string {
	return "ITEMSVC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
