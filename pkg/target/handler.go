package target

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// HandlerFunc is the uniform callback shape. Plain handlers ignore the
// context and return a nil result.
type HandlerFunc func(ctx context.Context, e Event) (any, error)

// Handler wraps a callback with a stable identity. Registration and removal
// compare *Handler pointers, so the same Handler can be stored at most once
// per (owner, event) pair.
type Handler struct {
	id string
	fn HandlerFunc
}

// NewHandler wraps a fire-and-forget callback.
func NewHandler(fn func(Event) error) *Handler {
	return &Handler{
		id: ulid.Make().String(),
		fn: func(_ context.Context, e Event) (any, error) {
			if fn == nil {
				return nil, nil
			}
			return nil, fn(e)
		},
	}
}

// Future is an answer that completes after its handler has returned. A
// result handler with asynchronous work returns a Future and PostResult
// waits for it.
type Future func(ctx context.Context) (any, error)

// NewResultHandler wraps a callback whose answer is collected by PostResult.
func NewResultHandler(fn HandlerFunc) *Handler {
	if fn == nil {
		fn = func(context.Context, Event) (any, error) { return nil, nil }
	}
	return &Handler{id: ulid.Make().String(), fn: fn}
}

// ID returns the handler's unique identifier.
func (h *Handler) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

func (h *Handler) call(ctx context.Context, e Event) (any, error) {
	return h.fn(ctx, e)
}
