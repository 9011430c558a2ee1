// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and AUTOEDA_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/inferloop/autoeda/internal/observability/metrics"
	"github.com/inferloop/autoeda/internal/quality"
	"github.com/inferloop/autoeda/internal/server"
	"github.com/inferloop/autoeda/internal/storage"
	"github.com/inferloop/autoeda/pkg/constants"
	"github.com/inferloop/autoeda/pkg/errors"
)

// Config is the full service configuration
type Config struct {
	Storage   StorageConfig            `mapstructure:"storage"`
	State     storage.StateConfig      `mapstructure:"state"`
	Server    server.Config            `mapstructure:"server"`
	Metrics   metrics.PrometheusConfig `mapstructure:"metrics"`
	Scheduler SchedulerConfig          `mapstructure:"scheduler"`
	Pipeline  quality.Options          `mapstructure:"pipeline"`
	Log       LogConfig                `mapstructure:"log"`
}

// StorageConfig locates dataset artefacts
type StorageConfig struct {
	Root string `mapstructure:"root"`
}

// SchedulerConfig controls the background batch scheduler
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Tick     time.Duration `mapstructure:"tick"`
	StopWait time.Duration `mapstructure:"stop_wait"`
}

// LogConfig selects the log level and output format
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StatePath returns the resolved path of the file state store
func (c *Config) StatePath() string {
	return c.State.ResolvePath(c.Storage.Root)
}

// Load builds the configuration. cfgFile may be empty, in which case
// $HOME/.autoeda/config.yaml and ./config.yaml are tried. A .env file in the
// working directory is loaded first if present; variables already set in the
// environment win.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidConfig, "failed to read .env file")
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+constants.AppName))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("storage.root", constants.EnvPrefix+"_STORAGE_ROOT", constants.EnvStorageDir); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidConfig, "error reading config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidConfig, "error unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration with no file or environment applied
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", constants.DefaultStorageDir)

	v.SetDefault("state.backend", constants.DefaultStateBackend)
	v.SetDefault("state.path", "")
	v.SetDefault("state.redis.addr", "localhost:6379")
	v.SetDefault("state.redis.db", 0)
	v.SetDefault("state.redis.key", constants.DefaultStateKey)
	v.SetDefault("state.redis.dial_timeout", constants.DefaultStorageTimeout)
	v.SetDefault("state.postgres.dsn", "")
	v.SetDefault("state.postgres.table", "batch_state")
	v.SetDefault("state.postgres.key", constants.DefaultStateKey)
	v.SetDefault("state.postgres.connect_timeout", constants.DefaultStorageTimeout)

	v.SetDefault("server.host", constants.DefaultHost)
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("server.read_timeout", constants.DefaultReadTimeout)
	v.SetDefault("server.write_timeout", constants.DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", constants.DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", constants.DefaultShutdownTimeout)
	v.SetDefault("server.max_upload_bytes", constants.DefaultMaxUploadBytes)
	v.SetDefault("server.enable_cors", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", constants.DefaultMetricsPort)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", constants.AppName)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.tick", constants.SchedulerTick)
	v.SetDefault("scheduler.stop_wait", constants.SchedulerStopWait)

	opts := quality.DefaultOptions()
	v.SetDefault("pipeline.numeric_ratio", opts.NumericRatio)
	v.SetDefault("pipeline.date_like_ratio", opts.DateLikeRatio)
	v.SetDefault("pipeline.datetime_ratio", opts.DatetimeRatio)
	v.SetDefault("pipeline.correlation_threshold", opts.CorrelationThreshold)
	v.SetDefault("pipeline.skew_threshold", opts.SkewThreshold)
	v.SetDefault("pipeline.iqr_multiplier", opts.IQRMultiplier)

	v.SetDefault("log.level", constants.DefaultLogLevel)
	v.SetDefault("log.format", constants.DefaultLogFormat)
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	verrs := errors.NewValidationErrors("invalid configuration")

	if strings.TrimSpace(c.Storage.Root) == "" {
		verrs.Add("storage.root", errors.CodeMissingField, "storage root is required", c.Storage.Root)
	}
	switch c.State.Backend {
	case "", storage.BackendFile, storage.BackendRedis, storage.BackendPostgres:
	default:
		verrs.Add("state.backend", errors.CodeInvalidParameter, "must be one of file, redis, postgres", c.State.Backend)
	}
	if c.State.Backend == storage.BackendPostgres && c.State.Postgres.DSN == "" {
		verrs.Add("state.postgres.dsn", errors.CodeMissingField, "dsn is required for the postgres backend", nil)
	}
	if c.State.Backend == storage.BackendRedis && c.State.Redis.Addr == "" && len(c.State.Redis.ClusterAddrs) == 0 {
		verrs.Add("state.redis.addr", errors.CodeMissingField, "addr is required for the redis backend", nil)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		verrs.Add("server.port", errors.CodeInvalidParameter, "must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		verrs.Add("server.max_upload_bytes", errors.CodeInvalidParameter, "must be positive", c.Server.MaxUploadBytes)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		verrs.Add("metrics.port", errors.CodeInvalidParameter, "must be between 1 and 65535", c.Metrics.Port)
	}
	if c.Scheduler.Tick <= 0 {
		verrs.Add("scheduler.tick", errors.CodeInvalidParameter, "must be positive", c.Scheduler.Tick.String())
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		verrs.Add("log.format", errors.CodeInvalidParameter, "must be json or text", c.Log.Format)
	}
	if err := c.Pipeline.Validate(); err != nil {
		verrs.Add("pipeline", errors.CodeInvalidParameter, err.Error(), nil)
	}

	if verrs.HasErrors() {
		return verrs.AsAppError()
	}
	return nil
}
