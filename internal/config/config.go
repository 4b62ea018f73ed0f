// Package config loads the CLI runtime settings from the environment.
package config

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "DUNGEONBREAK_"

// MaxBatchWorkers bounds the batch and longrun worker pools.
const MaxBatchWorkers = 256

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Config is the runtime configuration.
type Config struct {
	Seed         int64         `env:"SEED"          envDefault:"7"`
	PlayerName   string        `env:"PLAYER_NAME"   envDefault:"Kael"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	SaveTTL      time.Duration `env:"SAVE_TTL"      envDefault:"0s"`
	ContentDir   string        `env:"CONTENT_DIR"`
	BatchWorkers int           `env:"BATCH_WORKERS" envDefault:"4"`
	LogLevel     string        `env:"LOG_LEVEL"     envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT"    envDefault:"text"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses environ instead of the process environment when it is
// non-nil.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse environment")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// Validate checks the values are usable
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("playerName", c.PlayerName, vb)
	errors.ValidateRange("batchWorkers", c.BatchWorkers, 1, MaxBatchWorkers, vb)
	if c.SaveTTL < 0 {
		vb.InvalidField("saveTTL", "must not be negative")
	}
	if _, ok := logLevels[c.LogLevel]; !ok {
		vb.InvalidField("logLevel", "must be one of debug, info, warn, error")
	}
	errors.ValidateEnum("logFormat", c.LogFormat, []string{LogFormatText, LogFormatJSON}, vb)
	return vb.Build()
}

// NewLogger builds the slog logger the config asks for.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevels[c.LogLevel]}
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
