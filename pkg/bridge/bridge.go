// Package bridge relays events posted on a Target across a bus so that
// observers in other processes see them, and posts events arriving from the
// bus onto the local Target.
package bridge

import (
	"context"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/odvcencio/dashcore/pkg/bus"
	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/revive"
	"github.com/odvcencio/dashcore/pkg/target"
	"github.com/odvcencio/dashcore/pkg/telemetry"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "dashcore.events"

// Envelope is the wire form of one relayed event. Args hold revivable
// payloads for typed values.
type Envelope struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Args   json.RawMessage `json:"args"`
}

// Bridge links itself as owner on a Target. Close releases every handler it
// linked.
type Bridge struct {
	target  *target.Target
	bus     bus.Bus
	prefix  string
	origin  string
	rev     *revive.Reviver
	metrics *telemetry.Metrics
	log     zerolog.Logger

	mu     sync.Mutex
	events map[target.EventName]bool
	sub    bus.Subscription
	closed bool

	echoMu sync.Mutex
	echo   map[string]int
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPrefix sets the subject prefix.
func WithPrefix(prefix string) Option {
	return func(b *Bridge) { b.prefix = strings.TrimSuffix(prefix, ".") }
}

// WithReviver sets the reviver for encoding and decoding arguments.
func WithReviver(r *revive.Reviver) Option {
	return func(b *Bridge) { b.rev = r }
}

// WithMetrics counts relayed messages on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithLogger sets the bridge logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// New returns a bridge between t and bs. Nothing is relayed until Relay
// and Start are called.
func New(t *target.Target, bs bus.Bus, opts ...Option) *Bridge {
	b := &Bridge{
		target: t,
		bus:    bs,
		prefix: DefaultPrefix,
		origin: ulid.Make().String(),
		rev:    revive.Default,
		log:    zerolog.Nop(),
		events: make(map[target.EventName]bool),
		echo:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Origin identifies this bridge in the envelopes it publishes.
func (b *Bridge) Origin() string {
	return b.origin
}

// Subject returns the subject event is published on.
func (b *Bridge) Subject(event target.EventName) string {
	return b.prefix + "." + subjectToken(string(event))
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// Relay publishes every later post of the named events. Inbound events are
// only posted locally when their name is relayed.
func (b *Bridge) Relay(events ...target.EventName) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	for _, name := range events {
		if b.events[name] {
			continue
		}
		b.events[name] = true
		name := name
		b.target.Link(b, name, func(e target.Event) error {
			b.publish(name, e.Args)
			return nil
		})
	}
	return nil
}

// Relayed reports whether name is relayed.
func (b *Bridge) Relayed(name target.EventName) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[name]
}

// Start subscribes to inbound events.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	if b.sub != nil {
		return nil
	}
	sub, err := b.bus.Subscribe(ctx, b.prefix+".>", b.receive)
	if err != nil {
		return dcerrors.Wrap(err, dcerrors.ErrCodeBusSubscribe, "subscribe to relayed events").
			WithContext("prefix", b.prefix)
	}
	b.sub = sub
	return nil
}

// Close unlinks every handler the bridge registered and unsubscribes.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	b.target.ClearOwner(b)
	if sub != nil {
		return sub.Unsubscribe()
	}
	return nil
}

func (b *Bridge) encodeArgs(name target.EventName, args []any) (json.RawMessage, string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := b.rev.Marshal(args)
	if err != nil {
		return nil, "", err
	}
	return data, string(name) + "\x00" + string(data), nil
}

func (b *Bridge) publish(name target.EventName, args []any) {
	data, key, err := b.encodeArgs(name, args)
	if err != nil {
		b.log.Warn().Err(err).Str("event", string(name)).Msg("event arguments do not encode")
		return
	}
	if b.echoing(key) {
		return
	}
	msg, err := json.Marshal(Envelope{Origin: b.origin, Event: string(name), Args: data})
	if err != nil {
		b.log.Warn().Err(err).Str("event", string(name)).Msg("envelope does not encode")
		return
	}
	if err := b.bus.Publish(context.Background(), b.Subject(name), msg); err != nil {
		b.log.Warn().Err(err).Str("event", string(name)).Msg("publish failed")
		return
	}
	b.metrics.BridgeMessage(telemetry.DirectionOut)
}

func (b *Bridge) receive(msg *bus.Message) []byte {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed relayed event")
		return nil
	}
	if env.Origin == b.origin {
		return nil
	}
	name := target.EventName(env.Event)
	if !b.Relayed(name) {
		return nil
	}

	var args []any
	if len(env.Args) > 0 {
		v, err := b.rev.Parse(env.Args)
		if err != nil {
			b.log.Warn().Err(err).Str("event", env.Event).Msg("relayed arguments do not decode")
			return nil
		}
		args, _ = v.([]any)
	}
	b.metrics.BridgeMessage(telemetry.DirectionIn)

	// Mark the event so that our own relay handler does not send it back.
	if _, key, err := b.encodeArgs(name, args); err == nil {
		b.hold(key)
		defer b.release(key)
	}
	if err := b.target.Post(name, args...); err != nil {
		b.log.Warn().Err(err).Str("event", env.Event).Str("origin", env.Origin).Msg("relayed event handler failed")
	}
	return nil
}

func (b *Bridge) hold(key string) {
	b.echoMu.Lock()
	b.echo[key]++
	b.echoMu.Unlock()
}

func (b *Bridge) release(key string) {
	b.echoMu.Lock()
	if b.echo[key]--; b.echo[key] <= 0 {
		delete(b.echo, key)
	}
	b.echoMu.Unlock()
}

func (b *Bridge) echoing(key string) bool {
	b.echoMu.Lock()
	defer b.echoMu.Unlock()
	return b.echo[key] > 0
}
