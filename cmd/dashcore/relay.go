package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/odvcencio/dashcore/pkg/bridge"
	"github.com/odvcencio/dashcore/pkg/bus"
	"github.com/odvcencio/dashcore/pkg/logging"
	"github.com/odvcencio/dashcore/pkg/storage"
	"github.com/odvcencio/dashcore/pkg/target"
)

func (a *app) openBus() (bus.Bus, error) {
	return bus.Open(bus.Config{
		URL:     a.cfg.Bus.URL,
		Name:    a.cfg.Bus.Name,
		Timeout: a.cfg.Bus.Timeout,
	}, logging.For(a.log, logging.CategoryBus))
}

func (a *app) bridgeOptions() []bridge.Option {
	return []bridge.Option{
		bridge.WithPrefix(a.cfg.Bus.SubjectPrefix),
		bridge.WithMetrics(a.metrics),
		bridge.WithLogger(logging.For(a.log, logging.CategoryBridge)),
	}
}

// publishWrites publishes the store's changes when a bus URL is configured,
// so a running serve applies writes made by one-shot commands. The returned
// func closes the bridge and then the bus, which flushes pending messages.
func (a *app) publishWrites(store *storage.Store) (func(), error) {
	if a.cfg.Bus.URL == "" {
		return func() {}, nil
	}
	b, err := a.openBus()
	if err != nil {
		return nil, err
	}
	br, err := publishChanges(store, b, a.bridgeOptions()...)
	if err != nil {
		b.Close()
		return nil, err
	}
	return func() {
		br.Close()
		if err := b.Close(); err != nil {
			a.log.Warn().Err(err).Msg("bus close failed")
		}
	}, nil
}

// publishChanges relays every change posted on store to b.
func publishChanges(store *storage.Store, b bus.Bus, opts ...bridge.Option) (*bridge.Bridge, error) {
	br := bridge.New(&store.Target, b, opts...)
	if err := br.Relay(target.EventChange); err != nil {
		br.Close()
		return nil, err
	}
	return br, nil
}

// mirrorChanges applies change events arriving on b to store. The bridge is
// bound to its own Target, so applied writes are not published again.
func mirrorChanges(ctx context.Context, store *storage.Store, b bus.Bus, log zerolog.Logger, opts ...bridge.Option) (*bridge.Bridge, error) {
	feed := &target.Target{}
	br := bridge.New(feed, b, opts...)
	feed.On(target.EventChange, func(e target.Event) error {
		key, _, to, _ := e.Change()
		if err := store.Apply(ctx, e); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("relayed change not applied")
			return err
		}
		log.Debug().Str("key", key).Bool("deleted", to == nil).Msg("relayed change applied")
		return nil
	})
	if err := br.Relay(target.EventChange); err != nil {
		br.Close()
		return nil, err
	}
	if err := br.Start(ctx); err != nil {
		br.Close()
		return nil, err
	}
	return br, nil
}
