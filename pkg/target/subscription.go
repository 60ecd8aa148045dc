package target

import "sync"

// Subscription is the release handle for one registration. Whoever holds it
// must call Unsubscribe once the relationship it represents ends.
type Subscription struct {
	target  *Target
	owner   any
	name    EventName
	handler *Handler
	once    sync.Once
}

// Link registers fn for (owner, name) and returns its release handle.
func (t *Target) Link(owner any, name EventName, fn func(Event) error) *Subscription {
	h := NewHandler(fn)
	t.AddLinkedHandler(owner, name, h)
	return &Subscription{target: t, owner: owner, name: name, handler: h}
}

// On registers an ownerless fn for name and returns its release handle.
func (t *Target) On(name EventName, fn func(Event) error) *Subscription {
	return t.Link(NoOwner, name, fn)
}

// Handler returns the registered handler.
func (s *Subscription) Handler() *Handler {
	return s.handler
}

// Event returns the subscribed event name.
func (s *Subscription) Event() EventName {
	return s.name
}

// Unsubscribe removes the registration. It reports whether this call removed
// it; later calls are no-ops.
func (s *Subscription) Unsubscribe() bool {
	removed := false
	s.once.Do(func() {
		_, removed = s.target.RemLinkedHandler(s.owner, s.name, s.handler)
	})
	return removed
}

// Group collects the subscriptions one observer holds on any number of
// targets so they can be released together.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add tracks sub and returns it.
func (g *Group) Add(sub *Subscription) *Subscription {
	if sub == nil {
		return nil
	}
	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
	return sub
}

// Len returns the number of tracked subscriptions.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close unsubscribes everything tracked by the group.
func (g *Group) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
