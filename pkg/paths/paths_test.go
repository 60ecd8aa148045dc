package paths

import (
	"path/filepath"
	"testing"
)

func TestHomeDefaultsUnderUserHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvHome, "")
	if got, want := Home(), filepath.Join(home, ".dashcore"); got != want {
		t.Fatalf("Home() = %q, want %q", got, want)
	}
	if got, want := Documents(), filepath.Join(home, ".dashcore", "documents.db"); got != want {
		t.Fatalf("Documents() = %q, want %q", got, want)
	}
	if got, want := UserConfig(), filepath.Join(home, ".dashcore", "config.yaml"); got != want {
		t.Fatalf("UserConfig() = %q, want %q", got, want)
	}
}

func TestHomeFromEnvExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvHome, "~/state/dash/")
	if got, want := Home(), filepath.Join(home, "state", "dash"); got != want {
		t.Fatalf("Home() = %q, want %q", got, want)
	}
}

func TestProjectConfigIsRelative(t *testing.T) {
	if got := ProjectConfig(); filepath.IsAbs(got) {
		t.Fatalf("ProjectConfig() = %q, want a relative path", got)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cases := map[string]string{
		"~/x.db":    filepath.Join(home, "x.db"),
		"~":         home,
		"/abs/x.db": "/abs/x.db",
		"~other/x":  "~other/x",
		"  ":        "",
	}
	for in, want := range cases {
		if got := ExpandHome(in); got != want {
			t.Errorf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
