package main

import (
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/odvcencio/dashcore/pkg/config"
	"github.com/odvcencio/dashcore/pkg/logging"
	"github.com/odvcencio/dashcore/pkg/storage"
	"github.com/odvcencio/dashcore/pkg/target"
	"github.com/odvcencio/dashcore/pkg/telemetry"
	_ "github.com/odvcencio/dashcore/pkg/value"
)

// app holds what every command shares: configuration, the logger and, when
// enabled, the metrics registry.
type app struct {
	cfg      *config.Config
	paths    []string
	log      zerolog.Logger
	logClose io.Closer
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
}

func newApp(opts *globalOptions) (*app, error) {
	var paths []string
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		paths = []string{opts.configPath}
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		paths = config.DefaultPaths()
		cfg, err = config.Load(paths...)
	}
	if err != nil {
		return nil, withExitCode(err, exitUsage)
	}
	if lvl := strings.TrimSpace(opts.logLevel); lvl != "" {
		cfg.Logging.Level = logging.Level(lvl)
		if err := cfg.Logging.Validate(); err != nil {
			return nil, withExitCode(err, exitUsage)
		}
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, paths: paths, log: log, logClose: closer}

	target.SetLogger(logging.For(log, logging.CategoryDispatch))
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics, err = telemetry.New(a.registry, cfg.Metrics.Namespace)
		if err != nil {
			closer.Close()
			return nil, err
		}
		a.metrics.Install()
	}
	return a, nil
}

func (a *app) openStore() (*storage.Store, error) {
	return storage.Open(a.cfg.Storage.Path,
		storage.WithLogger(logging.For(a.log, logging.CategoryStorage)),
		storage.WithMetrics(a.metrics),
	)
}

func (a *app) Close() error {
	return a.logClose.Close()
}
