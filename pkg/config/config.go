// Package config loads dashcore settings from YAML files and the environment.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/logging"
	"github.com/odvcencio/dashcore/pkg/paths"
)

// Config is the full dashcore configuration.
type Config struct {
	Logging logging.Config `yaml:"logging"`
	Storage StorageConfig  `yaml:"storage"`
	Bus     BusConfig      `yaml:"bus"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// StorageConfig locates the document store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// BusConfig configures the event relay transport. An empty URL keeps events
// in process.
type BusConfig struct {
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Listen    string `yaml:"listen"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Storage: StorageConfig{
			Path: paths.Documents(),
		},
		Bus: BusConfig{
			Name:          "dashcore",
			SubjectPrefix: "dashcore.events",
			Timeout:       10 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "dashcore",
			Listen:    "127.0.0.1:9464",
		},
	}
}

// DefaultPaths lists the files Load reads when given none: the user config
// and then the project config, so the project wins.
func DefaultPaths() []string {
	user, project := paths.UserConfig(), paths.ProjectConfig()
	if user == project {
		return []string{project}
	}
	return []string{user, project}
}

// Load merges the given files over the defaults, in order, then applies
// environment overrides and validates. Missing files are skipped. With no
// paths DefaultPaths is used.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths()
	}
	cfg := DefaultConfig()
	for _, path := range paths {
		if err := loadAndMerge(cfg, path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
	}
	return finish(cfg)
}

// LoadFromPath is Load for a single file that must exist.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadAndMerge(cfg, path); err != nil {
		if os.IsNotExist(err) {
			return nil, dcerrors.Wrap(err, dcerrors.ErrCodeConfigLoad, "config file not found").
				WithContext("path", path)
		}
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	cfg.Storage.Path = paths.ExpandHome(cfg.Storage.Path)
	cfg.Logging.File = paths.ExpandHome(cfg.Logging.File)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DASHCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = logging.Level(strings.ToLower(v))
	}
	if v := os.Getenv("DASHCORE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = logging.Format(strings.ToLower(v))
	}
	if v := os.Getenv("DASHCORE_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("DASHCORE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DASHCORE_BUS_URL"); v != "" {
		cfg.Bus.URL = v
	}
	if v := os.Getenv("DASHCORE_BUS_PREFIX"); v != "" {
		cfg.Bus.SubjectPrefix = v
	}
	if val, ok := envBool("DASHCORE_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = val
	}
}

func envBool(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return val, true
}

var (
	subjectToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	metricName   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Validate checks the configuration for values the components would reject.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return dcerrors.New(dcerrors.ErrCodeConfigInvalid, "storage.path is required")
	}
	if c.Bus.Timeout < 0 {
		return dcerrors.New(dcerrors.ErrCodeConfigInvalid, "bus.timeout must not be negative").
			WithContext("timeout", c.Bus.Timeout.String())
	}
	if c.Bus.SubjectPrefix == "" {
		return dcerrors.New(dcerrors.ErrCodeConfigInvalid, "bus.subject_prefix is required")
	}
	for _, tok := range strings.Split(c.Bus.SubjectPrefix, ".") {
		if !subjectToken.MatchString(tok) {
			return dcerrors.Newf(dcerrors.ErrCodeConfigInvalid, "bus.subject_prefix has invalid token %q", tok).
				WithContext("subject_prefix", c.Bus.SubjectPrefix)
		}
	}
	if c.Metrics.Enabled {
		if !metricName.MatchString(c.Metrics.Namespace) {
			return dcerrors.Newf(dcerrors.ErrCodeConfigInvalid, "metrics.namespace %q is not a valid metric prefix", c.Metrics.Namespace)
		}
		if c.Metrics.Listen == "" {
			return dcerrors.New(dcerrors.ErrCodeConfigInvalid, "metrics.listen is required when metrics are enabled")
		}
	}
	return nil
}
