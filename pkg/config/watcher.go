package config

import (
	"context"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/resolver"
	"github.com/odvcencio/dashcore/pkg/target"
)

// AttrConfig is the attribute posted when a reload changes the config.
const AttrConfig = "config"

// EventReloadError is posted with the error when a changed file fails to
// load. The previous config stays current.
const EventReloadError target.EventName = "reload-error"

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads configuration when one of its files changes and posts
// change-config (old, new) on its Target for every effective change.
type Watcher struct {
	target.Target

	paths    []string
	state    *resolver.Resolver[*Config]
	fs       *fsnotify.Watcher
	log      zerolog.Logger
	debounce time.Duration
}

// NewWatcher watches paths, starting from initial. The directories holding
// the files are watched so that editors replacing a file by rename are seen.
func NewWatcher(initial *Config, log zerolog.Logger, paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		paths = DefaultPaths()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeConfigWatch, "create file watcher")
	}

	w := &Watcher{
		state:    resolver.NewFunc[*Config](initial, nil),
		fs:       fsw,
		log:      log,
		debounce: defaultDebounce,
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		w.paths = append(w.paths, abs)
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			// A directory that does not exist yet cannot hold the file.
			log.Debug().Err(err).Str("dir", dir).Msg("not watching config directory")
		}
	}
	if len(fsw.WatchList()) == 0 {
		fsw.Close()
		return nil, dcerrors.New(dcerrors.ErrCodeConfigWatch, "no config directory could be watched").
			WithContext("paths", paths)
	}
	return w, nil
}

// Current returns the config in effect.
func (w *Watcher) Current() *Config {
	return w.state.State()
}

// Wait blocks until the current config satisfies pred or ctx is done.
func (w *Watcher) Wait(ctx context.Context, pred func(*Config) bool) (*Config, error) {
	return w.state.Wait(ctx, pred)
}

// Reload loads the files now. It reports whether the config changed.
func (w *Watcher) Reload() (bool, error) {
	cfg, err := Load(w.paths...)
	if err != nil {
		if perr := w.Post(EventReloadError, err); perr != nil {
			return false, perr
		}
		return false, err
	}
	old := w.state.State()
	if reflect.DeepEqual(old, cfg) {
		return false, nil
	}
	if err := w.state.SetState(cfg); err != nil {
		return true, err
	}
	return true, w.Change(AttrConfig, old, cfg)
}

func (w *Watcher) watched(name string) bool {
	name = filepath.Clean(name)
	for _, p := range w.paths {
		if p == name {
			return true
		}
	}
	return false
}

// Run processes file events until ctx is done or Close is called. Bursts of
// events within the debounce window cause one reload.
func (w *Watcher) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.watched(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			w.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("config file event")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed, err := w.Reload()
			switch {
			case err != nil:
				w.log.Warn().Err(err).Msg("config reload failed, keeping previous config")
			case changed:
				w.log.Info().Msg("config reloaded")
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Close stops watching. Run returns after Close.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
