package collection

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Dict is a keyed collection. KeyOf must derive the same key for an item for
// as long as it is stored.
type Dict[T any] struct {
	Collection[T]

	keyOf func(T) string

	mu    sync.RWMutex
	keys  []string
	items map[string]T
}

// NewDict creates an empty dict keyed by keyOf.
func NewDict[T any](keyOf func(T) string, hooks Hooks[T]) *Dict[T] {
	d := &Dict[T]{keyOf: keyOf, items: make(map[string]T)}
	d.init(d, hooks)
	return d
}

func (d *Dict[T]) addInternal(item T) {
	key := d.keyOf(item)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.items[key] = item
}

func (d *Dict[T]) remInternal(item T) {
	key := d.keyOf(item)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[key]; !ok {
		return
	}
	delete(d.items, key)
	if i := slices.Index(d.keys, key); i >= 0 {
		d.keys = slices.Delete(d.keys, i, i+1)
	}
}

func (d *Dict[T]) hasInternal(item T) bool {
	return d.HasKey(d.keyOf(item))
}

// KeyOf returns the key item is (or would be) stored under.
func (d *Dict[T]) KeyOf(item T) string {
	return d.keyOf(item)
}

// HasKey reports whether key is present.
func (d *Dict[T]) HasKey(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.items[key]
	return ok
}

// Get returns the item stored under key.
func (d *Dict[T]) Get(key string) (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	item, ok := d.items[key]
	return item, ok
}

// Len returns the number of entries.
func (d *Dict[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// Keys returns the keys in insertion order.
func (d *Dict[T]) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.keys)
}

// Values returns the items in key insertion order.
func (d *Dict[T]) Values() []T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]T, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.items[k])
	}
	return out
}

// Map returns a snapshot of the entries.
func (d *Dict[T]) Map() map[string]T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.items)
}

// All iterates over a snapshot in key insertion order.
func (d *Dict[T]) All() iter.Seq2[string, T] {
	keys, values := d.Keys(), d.Map()
	return func(yield func(string, T) bool) {
		for _, k := range keys {
			if !yield(k, values[k]) {
				return
			}
		}
	}
}

// Clear removes every entry through the regular removal pipeline.
func (d *Dict[T]) Clear() ([]T, error) {
	values := d.Values()
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return d.RemMultiple(vals...)
}

// Copy replaces the contents of d with those of other.
func (d *Dict[T]) Copy(other *Dict[T]) error {
	if _, err := d.Clear(); err != nil {
		return err
	}
	values := other.Values()
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	_, err := d.AddMultiple(vals...)
	return err
}
