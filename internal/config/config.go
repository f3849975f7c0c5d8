// Package config loads application settings from, in increasing order of
// precedence, built-in defaults, an optional YAML file, WORDCARDS_ environment
// variables (after reading .env) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/wordcards/internal/queue"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: WORDCARDS_SERVER__ADDR sets server.addr.
const EnvPrefix = "WORDCARDS_"

type Config struct {
	DB     DBConfig     `koanf:"db"`
	Server ServerConfig `koanf:"server"`
	Review ReviewConfig `koanf:"review"`
	Sync   SyncConfig   `koanf:"sync"`
	Log    LogConfig    `koanf:"log"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`

	// CORSOrigins enables cross-origin requests from these origins.
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,required"`
}

type ReviewConfig struct {
	DefaultLimit int `koanf:"default_limit" validate:"gte=1,lte=200"`
}

type SyncConfig struct {
	// Interval between background re-imports while serving. Zero disables
	// the job.
	Interval time.Duration `koanf:"interval" validate:"gte=0s"`
	ReposDir string        `koanf:"repos_dir" validate:"required"`
	Sheet    SheetConfig   `koanf:"sheet"`
}

type SheetConfig struct {
	Name       string `koanf:"name"`
	SkipHeader bool   `koanf:"skip_header"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DB:     DBConfig{Path: "wordcards.db"},
		Server: ServerConfig{Addr: "localhost:8080"},
		Review: ReviewConfig{DefaultLimit: queue.DefaultLimit},
		Sync: SyncConfig{
			Interval: time.Hour,
			ReposDir: "repos",
			Sheet:    SheetConfig{SkipHeader: true},
		},
		Log: LogConfig{Level: "info"},
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"db":            "db.path",
	"addr":          "server.addr",
	"default-limit": "review.default_limit",
	"sync-interval": "sync.interval",
	"repos-dir":     "sync.repos_dir",
	"log-level":     "log.level",
}

// Load builds the configuration. path names an optional YAML file; flags may
// be nil. Only flags the user set override earlier layers.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings for values the application cannot run with.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
