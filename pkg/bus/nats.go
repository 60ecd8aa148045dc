package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
)

// NATSBus is a Bus on a NATS connection.
type NATSBus struct {
	conn    *nats.Conn
	timeout time.Duration
	closed  atomic.Bool
	log     zerolog.Logger
}

// NewNATSBus connects to cfg.URL. The connection reconnects forever.
func NewNATSBus(cfg Config, log zerolog.Logger) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrlRedacted()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeBusConnect, "connect to nats").
			WithContext("url", cfg.URL).
			WithRetryable(true)
	}
	return NewNATSBusFromConn(conn, cfg.Timeout, log), nil
}

// NewNATSBusFromConn wraps an existing connection. Close closes conn.
func NewNATSBusFromConn(conn *nats.Conn, timeout time.Duration, log zerolog.Logger) *NATSBus {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &NATSBus{conn: conn, timeout: timeout, log: log}
}

func (b *NATSBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return b.conn.Publish(subject, data)
}

func (b *NATSBus) Subscribe(ctx context.Context, subject string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	sub, err := b.conn.Subscribe(subject, func(m *nats.Msg) {
		reply := handler(&Message{Subject: m.Subject, Data: m.Data, ReplyTo: m.Reply})
		if reply != nil && m.Reply != "" {
			if err := m.Respond(reply); err != nil {
				b.log.Warn().Err(err).Str("subject", m.Subject).Msg("reply failed")
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return natsSubscription{sub}, nil
}

func (b *NATSBus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	msg, err := b.conn.RequestWithContext(ctx, subject, data)
	switch {
	case errors.Is(err, nats.ErrNoResponders):
		return nil, ErrNoResponders
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return nil, ErrTimeout
	case err != nil:
		return nil, err
	}
	return msg.Data, nil
}

// Close drains pending messages and closes the connection.
func (b *NATSBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}

// Conn returns the underlying connection.
func (b *NATSBus) Conn() *nats.Conn {
	return b.conn
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s natsSubscription) Unsubscribe() error { return s.sub.Unsubscribe() }
func (s natsSubscription) Subject() string    { return s.sub.Subject }
