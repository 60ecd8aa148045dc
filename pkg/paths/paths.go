// Package paths resolves where dashcore keeps its files.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvHome overrides the per-user dashcore directory.
const EnvHome = "DASHCORE_HOME"

const dirName = ".dashcore"

// Home returns $DASHCORE_HOME, or ~/.dashcore. Without a known home
// directory it falls back to .dashcore in the working directory.
func Home() string {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return filepath.Clean(ExpandHome(dir))
	}
	if home := userHome(); home != "" {
		return filepath.Join(home, dirName)
	}
	return dirName
}

// UserConfig is the per-user config file.
func UserConfig() string {
	return filepath.Join(Home(), "config.yaml")
}

// ProjectConfig is the config file of the working directory.
func ProjectConfig() string {
	return filepath.Join(dirName, "config.yaml")
}

// Documents is the default document database.
func Documents() string {
	return filepath.Join(Home(), "documents.db")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := userHome()
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return strings.TrimSpace(home)
}
