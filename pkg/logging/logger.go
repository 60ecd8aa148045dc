// Package logging builds the zerolog loggers used across dashcore.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

// Level is a configured log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category names the subsystem a log line comes from.
type Category string

const (
	CategoryDispatch Category = "dispatch"
	CategoryRevive   Category = "revive"
	CategoryStorage  Category = "storage"
	CategoryBus      Category = "bus"
	CategoryBridge   Category = "bridge"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// CategoryField is the field carrying the Category.
const CategoryField = "category"

// Format selects the output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config describes where and how to log.
type Config struct {
	Level  Level  `yaml:"level"`
	Format Format `yaml:"format"`
	// File is appended to when set; stderr is used otherwise.
	File string `yaml:"file"`
	// Rotate starts a new file every day, named after File with the date
	// inserted before the extension.
	Rotate bool `yaml:"rotate"`
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: FormatJSON}
}

// Validate reports an unknown level or format.
func (c Config) Validate() error {
	if _, err := c.Level.zerolog(); err != nil {
		return err
	}
	switch c.Format {
	case "", FormatJSON, FormatConsole:
		return nil
	}
	return dcerrors.Newf(dcerrors.ErrCodeConfigInvalid, "unknown log format %q", c.Format)
}

func (l Level) zerolog() (zerolog.Level, error) {
	if l == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(string(l)))
	if err != nil {
		return zerolog.NoLevel, dcerrors.Wrap(err, dcerrors.ErrCodeConfigInvalid, "parse log level").
			WithContext("level", string(l))
	}
	return lvl, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. The returned Closer releases the log file and
// is safe to call when logging to stderr.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	lvl, err := cfg.Level.zerolog()
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := OpenFile(cfg.File, cfg.Rotate)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		out, closer = f, f
	}
	if cfg.Format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: cfg.File != ""}
	}

	log := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return log, closer, nil
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// For tags log with a category.
func For(log zerolog.Logger, c Category) zerolog.Logger {
	return log.With().Str(CategoryField, string(c)).Logger()
}
