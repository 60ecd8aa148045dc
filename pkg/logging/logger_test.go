package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

func TestNew_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dash.log")
	log, closer, err := New(Config{Level: LevelDebug, Format: FormatJSON, File: path})
	require.NoError(t, err)

	catLog := For(log, CategoryRevive)
	catLog.Debug().Str("type", "Color").Msg("revived")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "revive", line[CategoryField])
	assert.Equal(t, "Color", line["type"])
	assert.Equal(t, "revived", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash.log")
	log, closer, err := New(Config{Level: LevelWarn, File: path})
	require.NoError(t, err)

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNew_Console(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash.log")
	log, closer, err := New(Config{Format: FormatConsole, File: path})
	require.NoError(t, err)
	log.Info().Msg("hello console")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello console")
	assert.False(t, strings.HasPrefix(string(data), "{"), "console output is not JSON")
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{}.Validate())

	err := Config{Level: "loud"}.Validate()
	assert.True(t, dcerrors.IsCode(err, dcerrors.ErrCodeConfigInvalid))

	err = Config{Format: "xml"}.Validate()
	assert.True(t, dcerrors.IsCode(err, dcerrors.ErrCodeConfigInvalid))

	_, _, err = New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestFile_RotatesDaily(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	f, err := openFile(filepath.Join(dir, "dash.log"), true, func() time.Time { return day })
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dash-2026-03-01.log"), f.Path())

	day = day.Add(2 * time.Minute)
	_, err = f.Write([]byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dash-2026-03-02.log"), f.Path())

	first, err := os.ReadFile(filepath.Join(dir, "dash-2026-03-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))
}

func TestFile_WriteAfterClose(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "dash.log"), false)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestDatedName(t *testing.T) {
	assert.Equal(t, "logs/dash-2026-01-02.log", datedName("logs/dash.log", "2026-01-02"))
	assert.Equal(t, "dash-2026-01-02", datedName("dash", "2026-01-02"))
}
