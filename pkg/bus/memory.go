package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const memoryBuffer = 256

// MemoryBus is an in-process Bus. Each subscription has its own buffered
// queue drained by one goroutine; a full queue drops the message with a
// warning.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    map[string]*memorySubscription
	closed  atomic.Bool
	log     zerolog.Logger
	timeout time.Duration
}

// MemoryOption configures a MemoryBus.
type MemoryOption func(*MemoryBus)

// WithLogger sets the logger for dropped messages.
func WithLogger(log zerolog.Logger) MemoryOption {
	return func(b *MemoryBus) { b.log = log }
}

// WithTimeout sets the default request timeout.
func WithTimeout(d time.Duration) MemoryOption {
	return func(b *MemoryBus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus(opts ...MemoryOption) *MemoryBus {
	b := &MemoryBus{
		subs:    make(map[string]*memorySubscription),
		log:     zerolog.Nop(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	b.deliver(&Message{Subject: subject, Data: data})
	return nil
}

// deliver queues msg on every matching subscription and reports how many
// accepted it.
func (b *MemoryBus) deliver(msg *Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, sub := range b.subs {
		if !Match(sub.subject, msg.Subject) {
			continue
		}
		select {
		case sub.queue <- msg:
			n++
		default:
			b.log.Warn().Str("subject", msg.Subject).Str("subscription", sub.subject).Msg("subscriber queue full, dropping message")
		}
	}
	return n
}

func (b *MemoryBus) Subscribe(ctx context.Context, subject string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	sub := &memorySubscription{
		id:      ulid.Make().String(),
		subject: subject,
		queue:   make(chan *Message, memoryBuffer),
		done:    make(chan struct{}),
		handler: handler,
		bus:     b,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go sub.run(ctx)
	return sub, nil
}

func (b *MemoryBus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	inbox := "_INBOX." + ulid.Make().String()
	replies := make(chan []byte, 1)
	sub, err := b.Subscribe(ctx, inbox, func(msg *Message) []byte {
		select {
		case replies <- msg.Data:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if b.deliver(&Message{Subject: subject, Data: data, ReplyTo: inbox}) == 0 {
		return nil, ErrNoResponders
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case reply := <-replies:
		return reply, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*memorySubscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	return nil
}

type memorySubscription struct {
	id      string
	subject string
	queue   chan *Message
	done    chan struct{}
	once    sync.Once
	handler Handler
	bus     *MemoryBus
}

func (s *memorySubscription) Subject() string { return s.subject }

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	s.stop()
	return nil
}

func (s *memorySubscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *memorySubscription) run(ctx context.Context) {
	for {
		select {
		case msg := <-s.queue:
			reply := s.handler(msg)
			if reply != nil && msg.ReplyTo != "" {
				s.bus.deliver(&Message{Subject: msg.ReplyTo, Data: reply})
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
