package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, KindCooperative, cfg.Scheduler.Kind)
	assert.Equal(t, runtime.NumCPU(), cfg.Scheduler.Workers)
	assert.Equal(t, BackendNone, cfg.Journal.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load("testdata/full.toml")
	require.NoError(t, err)
	assert.Equal(t, Config{
		Scheduler: Scheduler{Kind: KindPool, Workers: 3},
		Log:       Log{Level: "debug", Format: FormatJSON},
		Journal:   Journal{Backend: BackendSQLite, Path: "runs.db"},
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load("testdata/partial.toml")
	require.NoError(t, err)
	assert.Equal(t, Default().Scheduler, cfg.Scheduler)
	assert.Equal(t, Default().Log, cfg.Log)
	assert.Equal(t, Journal{Backend: BackendBolt, Path: "runs.bolt"}, cfg.Journal)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load("testdata/unknown.toml")
	assert.ErrorContains(t, err, "unknown keys: scheduler.threads")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler\nkind ="), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "load config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown kind", func(c *Config) { c.Scheduler.Kind = "threads" }, `scheduler.kind: unknown kind "threads"`},
		{"zero workers", func(c *Config) { c.Scheduler.Workers = 0 }, "scheduler.workers: must be positive"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, `log.format: unknown format "xml"`},
		{"bad backend", func(c *Config) { c.Journal.Backend = "postgres" }, `journal.backend: unknown backend "postgres"`},
		{"missing path", func(c *Config) { c.Journal.Backend = BackendSQLite }, `journal.path: required for backend "sqlite"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.Kind = "x"
	cfg.Log.Format = "y"
	err := cfg.Validate()
	assert.ErrorContains(t, err, "scheduler.kind")
	assert.ErrorContains(t, err, "log.format")
}

func TestLog_SlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := Log{Level: in}.SlogLevel()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestLog_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	Log{Level: "warn", Format: FormatJSON}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Log{Level: "debug", Format: FormatJSON}.NewLogger(&buf).Debug("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	Log{Level: "info", Format: FormatText}.NewLogger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
