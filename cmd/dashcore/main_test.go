package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

func captureOutput(t *testing.T, input string) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	oldOut, oldIn := stdout, stdin
	stdout, stdin = &out, strings.NewReader(input)
	t.Cleanup(func() { stdout, stdin = oldOut, oldIn })
	return &out
}

func testConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("DASHCORE_STORAGE_PATH", "")
	t.Setenv("DASHCORE_METRICS_ENABLED", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "logging:\n  level: error\nstorage:\n  path: " + filepath.Join(dir, "docs.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseGlobalOptions(t *testing.T) {
	opts, err := parseGlobalOptions([]string{"-config", "x.yaml", "-log-level", "debug", "keys", "-l"})
	require.NoError(t, err)
	assert.Equal(t, "x.yaml", opts.configPath)
	assert.Equal(t, "debug", opts.logLevel)
	assert.Equal(t, []string{"keys", "-l"}, opts.args)

	_, err = parseGlobalOptions([]string{"-nope"})
	assert.Error(t, err)
}

func TestExitCodeForError(t *testing.T) {
	assert.Equal(t, 0, exitCodeForError(nil))
	assert.Equal(t, exitFailure, exitCodeForError(errors.New("boom")))
	assert.Equal(t, exitUsage, exitCodeForError(usageError("usage")))
	assert.Equal(t, exitNotFound, exitCodeForError(dcerrors.New(dcerrors.ErrCodeNotFound, "missing")))
	assert.Equal(t, exitUsage, exitCodeForError(dcerrors.New(dcerrors.ErrCodeConfigInvalid, "bad")))
	assert.Equal(t, 7, exitCodeForError(withExitCode(errors.New("x"), 7)))
}

func TestRun_UnknownCommand(t *testing.T) {
	captureOutput(t, "")
	assert.Equal(t, exitUsage, run([]string{"frobnicate"}))
	assert.Equal(t, exitUsage, run(nil))
}

func TestRun_Version(t *testing.T) {
	out := captureOutput(t, "")
	assert.Equal(t, 0, run([]string{"version"}))
	assert.Contains(t, out.String(), "dashcore "+version)
}

func TestRevive_PrintsTypes(t *testing.T) {
	out := captureOutput(t, `{"accent":{"%cstm":true,"%o":"Color","%a":[255,0,0,1]},"size":[1,2],"future":{"%cstm":true,"%o":"Unknown","%a":[]}}`)
	require.Equal(t, 0, run([]string{"revive"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "accent\t*value.Color\t#ff0000ff", lines[0])
	assert.Contains(t, lines[1], "future.%a")
	assert.Equal(t, "size[0]\tfloat64\t1", lines[4])
}

func TestRevive_BadJSON(t *testing.T) {
	captureOutput(t, "{")
	assert.Equal(t, exitUsage, run([]string{"revive", "-"}))
}

func TestDescribe_Scalar(t *testing.T) {
	var buf bytes.Buffer
	describe(&buf, "", "hi")
	assert.Equal(t, ".\tstring\thi\n", buf.String())
}

func TestStoreCommands(t *testing.T) {
	cfg := testConfig(t)

	captureOutput(t, `{"%cstm":true,"%o":"Vec2","%a":[3,4]}`)
	require.Equal(t, 0, run([]string{"-config", cfg, "put", "pos/a"}))

	captureOutput(t, `{"pos/b":{"%cstm":true,"%o":"Range","%a":[0,1,true,false]},"note":"hello"}`)
	require.Equal(t, 0, run([]string{"-config", cfg, "import", "-batch", "1"}))

	out := captureOutput(t, "")
	require.Equal(t, 0, run([]string{"-config", cfg, "keys", "-prefix", "pos/"}))
	assert.Equal(t, "pos/a\npos/b\n", out.String())

	out = captureOutput(t, "")
	require.Equal(t, 0, run([]string{"-config", cfg, "keys", "-l"}))
	assert.Contains(t, out.String(), "pos/a\tVec2\t")
	assert.Contains(t, out.String(), "note\t-\t")

	out = captureOutput(t, "")
	require.Equal(t, 0, run([]string{"-config", cfg, "get", "pos/a"}))
	assert.Equal(t, ".\t*value.Vec2\tVec2(3, 4)\n", out.String())

	out = captureOutput(t, "")
	require.Equal(t, 0, run([]string{"-config", cfg, "get", "-raw", "pos/a"}))
	assert.Contains(t, out.String(), `"%o":"Vec2"`)

	captureOutput(t, "")
	assert.Equal(t, 0, run([]string{"-config", cfg, "delete", "pos/a"}))
	assert.Equal(t, exitNotFound, run([]string{"-config", cfg, "delete", "pos/a"}))
	assert.Equal(t, exitNotFound, run([]string{"-config", cfg, "get", "pos/a"}))
}

func TestStoreCommands_Usage(t *testing.T) {
	cfg := testConfig(t)
	captureOutput(t, "")
	assert.Equal(t, exitUsage, run([]string{"-config", cfg, "put"}))
	assert.Equal(t, exitUsage, run([]string{"-config", cfg, "get"}))
	assert.Equal(t, exitUsage, run([]string{"-config", cfg, "delete"}))

	captureOutput(t, `[1,2]`)
	assert.Equal(t, exitUsage, run([]string{"-config", cfg, "import"}))
}

func TestMissingConfigIsUsageError(t *testing.T) {
	captureOutput(t, "")
	assert.Equal(t, exitUsage, run([]string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "keys"}))
}
