package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/dashcore/pkg/config"
	"github.com/odvcencio/dashcore/pkg/logging"
	"github.com/odvcencio/dashcore/pkg/target"
	"github.com/odvcencio/dashcore/pkg/telemetry"
)

func runServeCommand(opts *globalOptions, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("metrics-listen", "", "override the configured metrics address")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	log := logging.For(a.log, logging.CategoryCLI)

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := a.openBus()
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := commandContext()
	defer cancel()

	br, err := mirrorChanges(ctx, store, b, logging.For(a.log, logging.CategoryBridge), a.bridgeOptions()...)
	if err != nil {
		return err
	}
	defer br.Close()

	g, ctx := errgroup.WithContext(ctx)
	if a.registry != nil {
		addr := a.cfg.Metrics.Listen
		if *listen != "" {
			addr = *listen
		}
		serveMetrics(ctx, g, addr, a.registry, log)
	}
	if w, err := config.NewWatcher(a.cfg, logging.For(a.log, logging.CategoryConfig), a.paths...); err != nil {
		log.Debug().Err(err).Msg("config reloads disabled")
	} else {
		defer w.Close()
		w.On(target.ChangeOf(config.AttrConfig), func(e target.Event) error {
			if next, ok := e.Arg(1).(*config.Config); ok && next.Bus != a.cfg.Bus {
				log.Warn().Msg("bus settings changed; restart to apply")
			}
			return nil
		})
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	log.Info().
		Str("store", a.cfg.Storage.Path).
		Str("bus", busDescription(a.cfg.Bus.URL)).
		Str("prefix", a.cfg.Bus.SubjectPrefix).
		Str("origin", br.Origin()).
		Msg("serving")
	<-ctx.Done()
	err = g.Wait()
	log.Info().Msg("stopped")
	return err
}

func busDescription(url string) string {
	if url == "" {
		return "memory"
	}
	return url
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, registry prometheus.Gatherer, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler(registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func runWatchConfigCommand(opts *globalOptions, args []string) error {
	if len(args) != 0 {
		return usageError("usage: dashcore watch-config")
	}
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	log := logging.For(a.log, logging.CategoryConfig)

	w, err := config.NewWatcher(a.cfg, log, a.paths...)
	if err != nil {
		return err
	}
	defer w.Close()
	w.On(target.ChangeOf(config.AttrConfig), func(e target.Event) error {
		next, _ := e.Arg(1).(*config.Config)
		if next == nil {
			return nil
		}
		log.Info().
			Str("level", string(next.Logging.Level)).
			Str("storage", next.Storage.Path).
			Str("bus", busDescription(next.Bus.URL)).
			Bool("metrics", next.Metrics.Enabled).
			Msg("config changed")
		return nil
	})
	w.On(config.EventReloadError, func(e target.Event) error {
		err, _ := e.Arg(0).(error)
		log.Error().Err(err).Msg("config reload rejected")
		return nil
	})

	ctx, cancel := commandContext()
	defer cancel()
	log.Info().Strs("paths", a.paths).Msg("watching config")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
