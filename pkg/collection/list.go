package collection

import (
	"iter"
	"slices"
	"sync"
)

// List is an insertion-ordered collection. Reads are safe from any
// goroutine; mutations are expected to come from one goroutine at a time.
type List[T comparable] struct {
	Collection[T]

	mu     sync.RWMutex
	items  []T
	counts map[T]int
}

// NewList creates an empty list with the given hooks.
func NewList[T comparable](hooks Hooks[T]) *List[T] {
	l := &List[T]{counts: make(map[T]int)}
	l.init(l, hooks)
	return l
}

func (l *List[T]) addInternal(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
	l.counts[item]++
}

func (l *List[T]) remInternal(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.Index(l.items, item)
	if i < 0 {
		return
	}
	l.items = slices.Delete(l.items, i, i+1)
	if l.counts[item] <= 1 {
		delete(l.counts, item)
	} else {
		l.counts[item]--
	}
}

func (l *List[T]) hasInternal(item T) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[item] > 0
}

// Insert adds v and moves it to index at. Out-of-range positions snap to the
// nearest end.
func (l *List[T]) Insert(v any, at int) (T, bool, error) {
	item, ok, err := l.Add(v)
	if !ok {
		return item, ok, err
	}
	l.mu.Lock()
	last := len(l.items) - 1
	if at < 0 {
		at = 0
	}
	if at < last && l.items[last] == item {
		l.items = slices.Insert(l.items[:last], at, item)
	}
	l.mu.Unlock()
	return item, true, err
}

// Get returns the item at index i.
func (l *List[T]) Get(i int) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

// Index returns the position of the converted value, or -1.
func (l *List[T]) Index(v any) int {
	item, ok := l.Convert(v)
	if !ok {
		return -1
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Index(l.items, item)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns a snapshot of the list contents.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// All iterates over a snapshot of the list.
func (l *List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.Items())
}

// Clear removes every item through the regular removal pipeline.
func (l *List[T]) Clear() ([]T, error) {
	items := l.Items()
	vals := make([]any, len(items))
	for i, item := range items {
		vals[i] = item
	}
	return l.RemMultiple(vals...)
}

// Copy replaces the contents of l with those of other.
func (l *List[T]) Copy(other *List[T]) error {
	if _, err := l.Clear(); err != nil {
		return err
	}
	items := other.Items()
	vals := make([]any, len(items))
	for i, item := range items {
		vals[i] = item
	}
	_, err := l.AddMultiple(vals...)
	return err
}
