// Package bus carries serialized events between processes.
//
// Subjects are dot-separated tokens. Subscriptions may use "*" to match one
// token and a trailing ">" to match one or more. NATS backs the bus in
// deployments; MemoryBus is used in-process and in tests.
package bus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned when operating on a closed bus.
	ErrClosed = errors.New("bus closed")

	// ErrTimeout is returned when a request gets no reply in time.
	ErrTimeout = errors.New("request timeout")

	// ErrNoResponders is returned when nothing subscribes to a request subject.
	ErrNoResponders = errors.New("no responders available")
)

// Bus is implemented by MemoryBus and NATSBus. Implementations are safe for
// concurrent use.
type Bus interface {
	// Publish sends data to every subscriber of subject without waiting for
	// delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe calls handler for every message matching subject. Messages
	// of one subscription are delivered in publish order.
	Subscribe(ctx context.Context, subject string, handler Handler) (Subscription, error)

	// Request publishes data and waits for the first reply.
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)

	Close() error
}

// Handler processes one message. A non-nil return is sent back when the
// sender asked for a reply.
type Handler func(msg *Message) []byte

// Message is a delivered message.
type Message struct {
	Subject string
	Data    []byte
	ReplyTo string
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Subject() string
}

// Config holds connection settings.
type Config struct {
	// URL of the NATS server. Empty selects the in-memory bus.
	URL string

	// Name identifies the client to the server.
	Name string

	// Timeout bounds connects and requests.
	Timeout time.Duration
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Name:    "dashcore",
		Timeout: 10 * time.Second,
	}
}

// Open returns a NATS bus when cfg.URL is set and a MemoryBus otherwise.
func Open(cfg Config, log zerolog.Logger) (Bus, error) {
	if cfg.URL == "" {
		return NewMemoryBus(WithLogger(log), WithTimeout(cfg.Timeout)), nil
	}
	b, err := NewNATSBus(cfg, log)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Match reports whether subject matches pattern.
func Match(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	p := strings.Split(pattern, ".")
	s := strings.Split(subject, ".")
	for i, tok := range p {
		if tok == ">" {
			return i == len(p)-1 && len(s) > i
		}
		if i >= len(s) {
			return false
		}
		if tok != "*" && tok != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}
