// Package config holds run configuration: which scheduler to use, how to
// log, and where to journal runs. Values come from defaults, then an
// optional TOML file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Journal backends.
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Scheduler kinds. These match the engine's names.
const (
	KindCooperative = "cooperative"
	KindPool        = "pool"
)

// Config is a complete run configuration.
type Config struct {
	Scheduler Scheduler `toml:"scheduler"`
	Log       Log       `toml:"log"`
	Journal   Journal   `toml:"journal"`
}

// Scheduler selects the scheduler. Workers only applies to the pool.
type Scheduler struct {
	Kind    string `toml:"kind"`
	Workers int    `toml:"workers"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Journal selects where run journals go.
type Journal struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Scheduler: Scheduler{Kind: KindCooperative, Workers: runtime.NumCPU()},
		Log:       Log{Level: "info", Format: FormatText},
		Journal:   Journal{Backend: BackendNone},
	}
}

// Load reads a TOML file over Default. Keys the file does not set keep their
// defaults; keys this package does not know are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("scheduler", "kind") {
		cfg.Scheduler.Kind = strings.TrimSpace(raw.Scheduler.Kind)
	}
	if meta.IsDefined("scheduler", "workers") {
		cfg.Scheduler.Workers = raw.Scheduler.Workers
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.TrimSpace(raw.Log.Format)
	}
	if meta.IsDefined("journal", "backend") {
		cfg.Journal.Backend = strings.TrimSpace(raw.Journal.Backend)
	}
	if meta.IsDefined("journal", "path") {
		cfg.Journal.Path = strings.TrimSpace(raw.Journal.Path)
	}

	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Scheduler.Kind {
	case KindCooperative, KindPool:
	default:
		errs = append(errs, fmt.Errorf("scheduler.kind: unknown kind %q", c.Scheduler.Kind))
	}
	if c.Scheduler.Workers <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.workers: must be positive, got %d", c.Scheduler.Workers))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch c.Journal.Backend {
	case BackendNone:
	case BackendSQLite, BackendBolt:
		if c.Journal.Path == "" {
			errs = append(errs, fmt.Errorf("journal.path: required for backend %q", c.Journal.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.backend: unknown backend %q", c.Journal.Backend))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w. An unparsable level falls back
// to info.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
