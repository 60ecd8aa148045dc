// Package target provides the publish/subscribe primitive every stateful
// dashboard model is built on.
//
// Handlers are grouped by owner: an arbitrary comparable key identifying the
// relationship that registered them. The owner that links a handler onto a
// Target is responsible for unlinking it (Subscription.Unsubscribe,
// ClearLinkedHandlers, ClearOwner or Group.Close); nothing is released
// automatically.
package target

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type noOwner struct{}

// NoOwner is the owner key used by the non-linked handler helpers.
var NoOwner any = noOwner{}

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger sets the logger used for dispatch diagnostics.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

func log() *zerolog.Logger {
	return logger.Load()
}

// Observer is told about every dispatch a handler error aborted.
type Observer interface {
	ObserveDispatchError(name EventName, err error)
}

type observerBox struct{ o Observer }

var observer atomic.Pointer[observerBox]

// SetObserver installs o for all Targets. Nil removes it.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&observerBox{o})
}

func dispatchFailed(name EventName, err error) {
	if b := observer.Load(); b != nil {
		b.o.ObserveDispatchError(name, err)
	}
}

type ownerEntry struct {
	names    []EventName
	handlers map[EventName][]*Handler
}

// Target stores handlers keyed by (owner, event name). The zero value is
// ready to use. Target is safe for concurrent use; handlers run outside the
// internal lock on a snapshot taken when dispatch starts, so registrations
// made during a dispatch apply from the next Post.
type Target struct {
	mu     sync.Mutex
	owners []any
	links  map[any]*ownerEntry
	count  int
}

// Len returns the number of registered handlers across all owners.
func (t *Target) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// AddLinkedHandler registers h for (owner, name). It reports false when h is
// nil or already registered for that pair.
func (t *Target) AddLinkedHandler(owner any, name EventName, h *Handler) (*Handler, bool) {
	if h == nil {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.links == nil {
		t.links = make(map[any]*ownerEntry)
	}
	entry, ok := t.links[owner]
	if !ok {
		entry = &ownerEntry{handlers: make(map[EventName][]*Handler)}
		t.links[owner] = entry
		t.owners = append(t.owners, owner)
	}
	list, ok := entry.handlers[name]
	if !ok {
		entry.names = append(entry.names, name)
	}
	for _, existing := range list {
		if existing == h {
			return nil, false
		}
	}
	entry.handlers[name] = append(list, h)
	t.count++
	return h, true
}

// RemLinkedHandler unregisters h from (owner, name). It reports false when h
// was not registered there.
func (t *Target) RemLinkedHandler(owner any, name EventName, h *Handler) (*Handler, bool) {
	if h == nil {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.links[owner]
	if !ok {
		return nil, false
	}
	list := entry.handlers[name]
	for i, existing := range list {
		if existing != h {
			continue
		}
		entry.handlers[name] = append(list[:i:i], list[i+1:]...)
		t.count--
		t.pruneLocked(owner, entry, name)
		return h, true
	}
	return nil, false
}

// HasLinkedHandler reports whether h is registered for (owner, name).
func (t *Target) HasLinkedHandler(owner any, name EventName, h *Handler) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.links[owner]
	if !ok {
		return false
	}
	for _, existing := range entry.handlers[name] {
		if existing == h {
			return true
		}
	}
	return false
}

// GetLinkedHandlers returns the handlers of (owner, name) in registration order.
func (t *Target) GetLinkedHandlers(owner any, name EventName) []*Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.links[owner]
	if !ok {
		return nil
	}
	return append([]*Handler(nil), entry.handlers[name]...)
}

// ClearLinkedHandlers removes every handler of (owner, name) and returns them.
func (t *Target) ClearLinkedHandlers(owner any, name EventName) []*Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.links[owner]
	if !ok {
		return nil
	}
	removed := entry.handlers[name]
	if len(removed) == 0 {
		return nil
	}
	entry.handlers[name] = nil
	t.count -= len(removed)
	t.pruneLocked(owner, entry, name)
	return removed
}

// ClearOwner removes every handler registered by owner, across all events,
// and returns how many were removed.
func (t *Target) ClearOwner(owner any) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.links[owner]
	if !ok {
		return 0
	}
	n := 0
	for _, list := range entry.handlers {
		n += len(list)
	}
	t.count -= n
	delete(t.links, owner)
	t.dropOwnerLocked(owner)
	return n
}

func (t *Target) pruneLocked(owner any, entry *ownerEntry, name EventName) {
	if len(entry.handlers[name]) > 0 {
		return
	}
	delete(entry.handlers, name)
	for i, n := range entry.names {
		if n == name {
			entry.names = append(entry.names[:i:i], entry.names[i+1:]...)
			break
		}
	}
	if len(entry.names) == 0 {
		delete(t.links, owner)
		t.dropOwnerLocked(owner)
	}
}

func (t *Target) dropOwnerLocked(owner any) {
	for i, o := range t.owners {
		if o == owner {
			t.owners = append(t.owners[:i:i], t.owners[i+1:]...)
			return
		}
	}
}

// AddHandler registers h without an owner.
func (t *Target) AddHandler(name EventName, h *Handler) (*Handler, bool) {
	return t.AddLinkedHandler(NoOwner, name, h)
}

// RemHandler unregisters an ownerless handler.
func (t *Target) RemHandler(name EventName, h *Handler) (*Handler, bool) {
	return t.RemLinkedHandler(NoOwner, name, h)
}

// HasHandler reports whether h is registered without an owner.
func (t *Target) HasHandler(name EventName, h *Handler) bool {
	return t.HasLinkedHandler(NoOwner, name, h)
}

// GetHandlers returns the ownerless handlers of name.
func (t *Target) GetHandlers(name EventName) []*Handler {
	return t.GetLinkedHandlers(NoOwner, name)
}

// ClearHandlers removes every ownerless handler of name.
func (t *Target) ClearHandlers(name EventName) []*Handler {
	return t.ClearLinkedHandlers(NoOwner, name)
}

func (t *Target) snapshot(name EventName) []*Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return nil
	}
	var out []*Handler
	for _, owner := range t.owners {
		out = append(out, t.links[owner].handlers[name]...)
	}
	return out
}

// Post invokes every handler of name synchronously. Owners are visited in
// the order they first registered, handlers in registration order. The first
// handler error stops the dispatch and is returned as is.
func (t *Target) Post(name EventName, args ...any) error {
	handlers := t.snapshot(name)
	if len(handlers) == 0 {
		return nil
	}
	e := Event{Name: name, Args: args}
	ctx := context.Background()
	for _, h := range handlers {
		if _, err := h.call(ctx, e); err != nil {
			log().Debug().Str("event", string(name)).Str("handler", h.id).Err(err).Msg("dispatch aborted")
			dispatchFailed(name, err)
			return err
		}
	}
	return nil
}

// PostResult invokes every handler of name synchronously in dispatch order
// and returns their answers in that order. Answers that are a Future are
// awaited concurrently once every handler has been invoked. If any handler
// or Future fails, the context passed to pending Futures is cancelled and
// the first error is returned.
func (t *Target) PostResult(ctx context.Context, name EventName, args ...any) ([]any, error) {
	handlers := t.snapshot(name)
	results := make([]any, len(handlers))
	if len(handlers) == 0 {
		return results, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e := Event{Name: name, Args: args}
	g, gctx := errgroup.WithContext(ctx)
	fail := func(err error) ([]any, error) {
		log().Debug().Str("event", string(name)).Err(err).Msg("result dispatch failed")
		dispatchFailed(name, err)
		return nil, err
	}
	for i, h := range handlers {
		if gctx.Err() != nil {
			break
		}
		res, err := h.call(gctx, e)
		if err != nil {
			cancel()
			_ = g.Wait()
			return fail(err)
		}
		if f, ok := res.(Future); ok {
			g.Go(func() error {
				v, err := f(gctx)
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
			continue
		}
		results[i] = res
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	return results, nil
}

// Gate reports whether every handler of name answered with a truthy result.
// A Target without handlers for name lets the gate pass.
func (t *Target) Gate(ctx context.Context, name EventName, args ...any) (bool, error) {
	results, err := t.PostResult(ctx, name, args...)
	if err != nil {
		return false, err
	}
	for _, r := range results {
		if !Truthy(r) {
			return false, nil
		}
	}
	return true, nil
}

// Change posts "change" with (attr, from, to) and then "change-<attr>" with
// (from, to). Callers only invoke it for real transitions.
func (t *Target) Change(attr string, from, to any) error {
	if err := t.Post(EventChange, attr, from, to); err != nil {
		return err
	}
	return t.Post(ChangeOf(attr), from, to)
}

// OnAdd posts the "add" lifecycle event.
func (t *Target) OnAdd() error {
	return t.Post(EventAdd)
}

// OnRem posts the "rem" lifecycle event.
func (t *Target) OnRem() error {
	return t.Post(EventRem)
}

// Truthy applies the usual truthiness rules to a handler answer.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case error:
		return false
	default:
		return true
	}
}
