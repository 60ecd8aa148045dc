// Package collection implements mutable containers that announce membership
// changes through a target.Target.
//
// Every mutation runs the same pipeline. Adding converts the input, checks
// AddFilter, stores the item, posts change("add", nil, item), then calls
// AddCallback; batches call AddFinal once at the end. Removing converts,
// checks RemFilter, calls RemCallback, posts change("rem", item, nil) and only
// then drops the item, so callbacks still see it in place.
package collection

import (
	"github.com/odvcencio/dashcore/pkg/target"
)

const (
	// KindAdd is the attribute of the change event posted on insertion.
	KindAdd = "add"
	// KindRem is the attribute of the change event posted on removal.
	KindRem = "rem"
)

// Hooks customise a collection. Nil fields fall back to defaults.
type Hooks[T any] struct {
	// Convert maps an arbitrary input to an item. The default accepts values
	// that already have type T.
	Convert func(v any) (T, bool)
	// AddFilter decides whether an item may be added. Default: not present.
	AddFilter func(T) bool
	// RemFilter decides whether an item may be removed. Default: present.
	RemFilter func(T) bool

	AddCallback func(T)
	RemCallback func(T)
	AddFinal    func()
	RemFinal    func()
}

type storage[T any] interface {
	addInternal(T)
	remInternal(T)
	hasInternal(T) bool
}

// Collection holds the shared add/remove pipeline. List and Dict embed it
// and provide the storage.
type Collection[T any] struct {
	target.Target

	hooks Hooks[T]
	store storage[T]
}

func (c *Collection[T]) init(store storage[T], hooks Hooks[T]) {
	c.store = store
	c.hooks = hooks
}

// Convert applies the Convert hook without touching the collection.
func (c *Collection[T]) Convert(v any) (T, bool) {
	if c.hooks.Convert != nil {
		return c.hooks.Convert(v)
	}
	item, ok := v.(T)
	return item, ok
}

func (c *Collection[T]) addAllowed(item T) bool {
	if c.hooks.AddFilter != nil {
		return c.hooks.AddFilter(item)
	}
	return !c.store.hasInternal(item)
}

func (c *Collection[T]) remAllowed(item T) bool {
	if c.hooks.RemFilter != nil {
		return c.hooks.RemFilter(item)
	}
	return c.store.hasInternal(item)
}

// Has reports whether the converted value is a member.
func (c *Collection[T]) Has(v any) bool {
	item, ok := c.Convert(v)
	if !ok {
		return false
	}
	return c.store.hasInternal(item)
}

func (c *Collection[T]) addOne(item T) (bool, error) {
	if !c.addAllowed(item) {
		return false, nil
	}
	c.store.addInternal(item)
	if err := c.Change(KindAdd, nil, item); err != nil {
		return true, err
	}
	if c.hooks.AddCallback != nil {
		c.hooks.AddCallback(item)
	}
	return true, nil
}

func (c *Collection[T]) remOne(item T) (bool, error) {
	if !c.remAllowed(item) {
		return false, nil
	}
	if c.hooks.RemCallback != nil {
		c.hooks.RemCallback(item)
	}
	if err := c.Change(KindRem, item, nil); err != nil {
		return false, err
	}
	c.store.remInternal(item)
	return true, nil
}

// Add inserts v. It reports false when v is rejected by Convert or
// AddFilter. A change handler error is returned after the item was stored;
// the remaining hooks are skipped.
func (c *Collection[T]) Add(v any) (T, bool, error) {
	var zero T
	item, ok := c.Convert(v)
	if !ok {
		return zero, false, nil
	}
	added, err := c.addOne(item)
	if err != nil {
		return item, added, err
	}
	if !added {
		return zero, false, nil
	}
	if c.hooks.AddFinal != nil {
		c.hooks.AddFinal()
	}
	return item, true, nil
}

// AddMultiple converts every input first, dropping rejects, then adds the
// survivors one by one. It returns the items that were actually stored.
// AddFinal runs once if at least one item was stored.
func (c *Collection[T]) AddMultiple(values ...any) ([]T, error) {
	items := c.convertAll(values)
	var added []T
	for _, item := range items {
		ok, err := c.addOne(item)
		if ok {
			added = append(added, item)
		}
		if err != nil {
			return added, err
		}
	}
	if len(added) > 0 && c.hooks.AddFinal != nil {
		c.hooks.AddFinal()
	}
	return added, nil
}

// Rem removes v. It reports false when v is rejected by Convert or
// RemFilter. A change handler error aborts before the item is dropped.
func (c *Collection[T]) Rem(v any) (T, bool, error) {
	var zero T
	item, ok := c.Convert(v)
	if !ok {
		return zero, false, nil
	}
	removed, err := c.remOne(item)
	if err != nil {
		return item, false, err
	}
	if !removed {
		return zero, false, nil
	}
	if c.hooks.RemFinal != nil {
		c.hooks.RemFinal()
	}
	return item, true, nil
}

// RemMultiple mirrors AddMultiple for removal.
func (c *Collection[T]) RemMultiple(values ...any) ([]T, error) {
	items := c.convertAll(values)
	var removed []T
	for _, item := range items {
		ok, err := c.remOne(item)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, item)
		}
	}
	if len(removed) > 0 && c.hooks.RemFinal != nil {
		c.hooks.RemFinal()
	}
	return removed, nil
}

func (c *Collection[T]) convertAll(values []any) []T {
	items := make([]T, 0, len(values))
	for _, v := range values {
		if item, ok := c.Convert(v); ok {
			items = append(items, item)
		}
	}
	return items
}
