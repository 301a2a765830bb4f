// Package config loads quadmem settings from YAML and turns them into
// dataset options and a logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mannyrivera2010/go-quadmem/pkg/quadstore"
)

// Config is the top-level configuration.
type Config struct {
	// Backend is one of memory, journal, badger or sqlite.
	Backend   string `yaml:"backend"`
	Namespace string `yaml:"namespace"`
	// SeparateDefaultGraph keeps default-graph triples in their own table.
	// Memory backend only.
	SeparateDefaultGraph bool `yaml:"separate_default_graph"`
	// LogChanges logs every journaled change at INFO.
	LogChanges bool `yaml:"log_changes"`

	Badger  BadgerConfig  `yaml:"badger"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type BadgerConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Backend:              string(quadstore.BackendMemory),
		SeparateDefaultGraph: true,
		Badger:               BadgerConfig{InMemory: true},
		Log:                  LogConfig{Level: "info", Format: "text"},
		Metrics:              MetricsConfig{Enabled: true},
	}
}

// Load reads path over the defaults, applies QUADMEM_* environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QUADMEM_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("QUADMEM_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("QUADMEM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QUADMEM_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	switch quadstore.BackendKind(c.Backend) {
	case quadstore.BackendMemory, quadstore.BackendJournal, quadstore.BackendSQLite:
	case quadstore.BackendBadger:
		if c.Badger.Path == "" && !c.Badger.InMemory {
			errs = append(errs, errors.New("badger.path is required unless badger.in_memory is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend must be one of memory, journal, badger, sqlite; got %q", c.Backend))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json; got %q", f))
	}
	return errors.Join(errs...)
}

// ToOpenOptions maps the configuration onto dataset options.
func (c Config) ToOpenOptions(logger *slog.Logger) quadstore.OpenOptions {
	opts := quadstore.OpenOptions{
		Backend:              quadstore.BackendKind(c.Backend),
		Namespace:            c.Namespace,
		SeparateDefaultGraph: c.SeparateDefaultGraph,
		LogChanges:           c.LogChanges,
		Logger:               logger,
	}
	switch opts.Backend {
	case quadstore.BackendBadger:
		if !c.Badger.InMemory {
			opts.Path = c.Badger.Path
		}
		opts.SyncWrites = c.Badger.SyncWrites
	case quadstore.BackendSQLite:
		opts.Path = c.SQLite.Path
	}
	return opts
}

// NewLogger builds a slog logger writing to w in the configured format and
// level. An unparsable level falls back to info.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error; got %q", s)
}
