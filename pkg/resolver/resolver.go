// Package resolver provides a single-slot state cell that callers can wait on
// until its value satisfies a predicate.
package resolver

import (
	"context"
	"reflect"
	"sync"

	"github.com/odvcencio/dashcore/pkg/target"
)

// AttrState is the attribute name used for state change events.
const AttrState = "state"

type waiter[T any] struct {
	pred    func(T) bool
	done    func(T)
	settled bool
}

// Resolver holds a value of type T and completes waiters once their
// predicate holds. Waiters are completed in registration order. If a
// completion changes the state, the pass that was running stops; the
// remaining waiters are considered by the pass the new state triggers.
type Resolver[T any] struct {
	target.Target

	mu      sync.Mutex
	state   T
	equal   func(a, b T) bool
	version uint64
	waiters []*waiter[T]
}

// New creates a resolver whose no-op check uses ==.
func New[T comparable](initial T) *Resolver[T] {
	return NewFunc(initial, func(a, b T) bool { return a == b })
}

// NewFunc creates a resolver with a custom equality used to skip no-op
// writes. A nil equal falls back to reflect.DeepEqual.
func NewFunc[T any](initial T, equal func(a, b T) bool) *Resolver[T] {
	if equal == nil {
		equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}
	return &Resolver[T]{state: initial, equal: equal}
}

// State returns the current value.
func (r *Resolver[T]) State() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetState stores v. Equal values are ignored. Otherwise a change event is
// posted and satisfied waiters are completed. A change handler error is
// returned after the state was updated, and waiters are left for the next
// transition.
func (r *Resolver[T]) SetState(v T) error {
	r.mu.Lock()
	from := r.state
	if r.equal(from, v) {
		r.mu.Unlock()
		return nil
	}
	r.state = v
	r.version++
	version := r.version
	r.mu.Unlock()

	if err := r.Change(AttrState, from, v); err != nil {
		return err
	}
	r.resolve(version)
	return nil
}

func (r *Resolver[T]) resolve(version uint64) {
	r.mu.Lock()
	pending := append([]*waiter[T](nil), r.waiters...)
	r.mu.Unlock()

	for _, w := range pending {
		r.mu.Lock()
		if r.version != version {
			r.mu.Unlock()
			return
		}
		state := r.state
		settled := w.settled
		r.mu.Unlock()
		if settled || !w.pred(state) {
			continue
		}

		r.mu.Lock()
		if r.version != version {
			r.mu.Unlock()
			return
		}
		if w.settled {
			r.mu.Unlock()
			continue
		}
		w.settled = true
		r.removeLocked(w)
		r.mu.Unlock()

		w.done(state)
	}
}

func (r *Resolver[T]) removeLocked(w *waiter[T]) {
	for i, x := range r.waiters {
		if x == w {
			r.waiters = append(r.waiters[:i:i], r.waiters[i+1:]...)
			return
		}
	}
}

// OnCondition calls fn with the state once pred holds. If pred already
// holds, fn runs before OnCondition returns. The returned cancel func
// withdraws a pending waiter and reports whether it did so.
func (r *Resolver[T]) OnCondition(pred func(T) bool, fn func(T)) (cancel func() bool) {
	w := &waiter[T]{pred: pred, done: fn}
	for {
		r.mu.Lock()
		state, version := r.state, r.version
		r.mu.Unlock()
		if pred(state) {
			fn(state)
			return func() bool { return false }
		}
		r.mu.Lock()
		if r.version == version {
			r.waiters = append(r.waiters, w)
			r.mu.Unlock()
			break
		}
		// State moved while pred ran; evaluate again.
		r.mu.Unlock()
	}
	return func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		if w.settled {
			return false
		}
		w.settled = true
		r.removeLocked(w)
		return true
	}
}

// WhenCondition returns a channel that receives the state once pred holds.
// The channel is already filled when pred holds at call time.
func (r *Resolver[T]) WhenCondition(pred func(T) bool) <-chan T {
	ch := make(chan T, 1)
	r.OnCondition(pred, func(v T) { ch <- v })
	return ch
}

// When waits for the state to equal v.
func (r *Resolver[T]) When(v T) <-chan T {
	return r.WhenCondition(func(s T) bool { return r.equal(s, v) })
}

// WhenNot waits for the state to differ from v.
func (r *Resolver[T]) WhenNot(v T) <-chan T {
	return r.WhenCondition(func(s T) bool { return !r.equal(s, v) })
}

// Wait blocks until pred holds or ctx is done. A cancelled wait is withdrawn
// from the pending list.
func (r *Resolver[T]) Wait(ctx context.Context, pred func(T) bool) (T, error) {
	ch := make(chan T, 1)
	cancel := r.OnCondition(pred, func(v T) { ch <- v })
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		if !cancel() {
			// Completed concurrently with cancellation.
			return <-ch, nil
		}
		var zero T
		return zero, ctx.Err()
	}
}

// Pending returns the number of waiters not yet completed.
func (r *Resolver[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
