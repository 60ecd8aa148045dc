package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/logging"
	"github.com/odvcencio/dashcore/pkg/target"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)
	assert.Equal(t, "dashcore.events", cfg.Bus.SubjectPrefix)
	assert.Empty(t, cfg.Bus.URL, "in-process bus by default")
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MergesInOrder(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.yaml")
	project := filepath.Join(dir, "project.yaml")
	writeFile(t, user, `
logging:
  level: debug
  rotate: true
bus:
  url: nats://user:4222
  timeout: 3s
metrics:
  enabled: true
`)
	writeFile(t, project, `
bus:
  url: nats://project:4222
metrics:
  enabled: false
storage:
  path: /tmp/project.db
`)

	cfg, err := Load(user, project, filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.True(t, cfg.Logging.Rotate)
	assert.Equal(t, "nats://project:4222", cfg.Bus.URL)
	assert.Equal(t, 3*time.Second, cfg.Bus.Timeout)
	assert.False(t, cfg.Metrics.Enabled, "explicit false overrides an earlier true")
	assert.Equal(t, "/tmp/project.db", cfg.Storage.Path)
	assert.Equal(t, "dashcore", cfg.Bus.Name, "unset fields keep defaults")
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, dcerrors.IsCode(err, dcerrors.ErrCodeConfigLoad))
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "logging: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, dcerrors.IsCode(err, dcerrors.ErrCodeConfigParse))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DASHCORE_LOG_LEVEL", "WARN")
	t.Setenv("DASHCORE_STORAGE_PATH", "/var/lib/dash.db")
	t.Setenv("DASHCORE_BUS_URL", "nats://env:4222")
	t.Setenv("DASHCORE_METRICS_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, cfg.Logging.Level)
	assert.Equal(t, "/var/lib/dash.db", cfg.Storage.Path)
	assert.Equal(t, "nats://env:4222", cfg.Bus.URL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestEnvOverrides_BadBoolIgnored(t *testing.T) {
	t.Setenv("DASHCORE_METRICS_ENABLED", "sometimes")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"empty storage", func(c *Config) { c.Storage.Path = " " }},
		{"negative timeout", func(c *Config) { c.Bus.Timeout = -time.Second }},
		{"empty prefix", func(c *Config) { c.Bus.SubjectPrefix = "" }},
		{"wildcard prefix", func(c *Config) { c.Bus.SubjectPrefix = "dash.*" }},
		{"empty token", func(c *Config) { c.Bus.SubjectPrefix = "dash..events" }},
		{"bad namespace", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Namespace = "9lives" }},
		{"no listen", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, dcerrors.IsCode(err, dcerrors.ErrCodeConfigInvalid), "got %v", err)
		})
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DASHCORE_STORAGE_PATH", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "storage:\n  path: ~/docs/x.db\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "docs", "x.db"), cfg.Storage.Path)
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: info\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(initial, zerolog.Nop(), path)
	require.NoError(t, err)
	defer w.Close()

	var from, to *Config
	w.On(target.ChangeOf(AttrConfig), func(e target.Event) error {
		from, _ = e.Arg(0).(*Config)
		to, _ = e.Arg(1).(*Config)
		return nil
	})

	changed, err := w.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged file is not a change")

	writeFile(t, path, "logging:\n  level: debug\n")
	changed, err = w.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Same(t, initial, from)
	require.NotNil(t, to)
	assert.Equal(t, logging.LevelDebug, to.Logging.Level)
	assert.Same(t, to, w.Current())
}

func TestWatcher_ReloadErrorKeepsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: info\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(initial, zerolog.Nop(), path)
	require.NoError(t, err)
	defer w.Close()

	var posted error
	w.On(EventReloadError, func(e target.Event) error {
		posted, _ = e.Arg(0).(error)
		return nil
	})

	writeFile(t, path, "logging:\n  level: shouting\n")
	_, err = w.Reload()
	require.Error(t, err)
	assert.Equal(t, err, posted)
	assert.Same(t, initial, w.Current())
}

func TestWatcher_RunPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "bus:\n  name: before\n")
	initial, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(initial, zerolog.Nop(), path)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, path, "bus:\n  name: after\n")
	cfg, err := w.Wait(ctx, func(c *Config) bool { return c.Bus.Name == "after" })
	require.NoError(t, err)
	assert.Equal(t, "after", cfg.Bus.Name)

	require.NoError(t, w.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestNewWatcher_NoDirectory(t *testing.T) {
	_, err := NewWatcher(DefaultConfig(), zerolog.Nop(), filepath.Join(t.TempDir(), "missing", "config.yaml"))
	require.Error(t, err)
	assert.True(t, dcerrors.IsCode(err, dcerrors.ErrCodeConfigWatch))
}
