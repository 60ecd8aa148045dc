package target

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLinkedHandler_NoDuplicates(t *testing.T) {
	var tg Target
	owner := &struct{ name string }{"panel"}
	h := NewHandler(func(Event) error { return nil })

	got, ok := tg.AddLinkedHandler(owner, "tick", h)
	require.True(t, ok)
	assert.Same(t, h, got)

	_, ok = tg.AddLinkedHandler(owner, "tick", h)
	assert.False(t, ok, "second registration must be rejected")
	assert.Len(t, tg.GetLinkedHandlers(owner, "tick"), 1)
	assert.Equal(t, 1, tg.Len())

	// Same handler under a different owner is a distinct registration.
	_, ok = tg.AddLinkedHandler(NoOwner, "tick", h)
	assert.True(t, ok)
	assert.Equal(t, 2, tg.Len())
}

func TestAddLinkedHandler_Nil(t *testing.T) {
	var tg Target
	_, ok := tg.AddHandler("x", nil)
	assert.False(t, ok)
	assert.Zero(t, tg.Len())
}

func TestRemLinkedHandler_Balanced(t *testing.T) {
	var tg Target
	owner := "owner"
	h := NewHandler(nil)
	before := tg.Len()

	tg.AddLinkedHandler(owner, "a", h)
	got, ok := tg.RemLinkedHandler(owner, "a", h)
	require.True(t, ok)
	assert.Same(t, h, got)

	assert.False(t, tg.HasLinkedHandler(owner, "a", h))
	assert.Equal(t, before, tg.Len())
	assert.Empty(t, tg.owners, "empty owner entries are pruned")
	assert.Empty(t, tg.links)

	_, ok = tg.RemLinkedHandler(owner, "a", h)
	assert.False(t, ok, "removing a missing handler reports the sentinel")
}

func TestRemLinkedHandler_KeepsOtherEvents(t *testing.T) {
	var tg Target
	h1, h2 := NewHandler(nil), NewHandler(nil)
	tg.AddLinkedHandler("o", "a", h1)
	tg.AddLinkedHandler("o", "b", h2)

	tg.RemLinkedHandler("o", "a", h1)
	assert.True(t, tg.HasLinkedHandler("o", "b", h2))
	assert.Equal(t, []EventName{"b"}, tg.links["o"].names)
}

func TestClearLinkedHandlers(t *testing.T) {
	var tg Target
	h1, h2, h3 := NewHandler(nil), NewHandler(nil), NewHandler(nil)
	tg.AddLinkedHandler("o", "a", h1)
	tg.AddLinkedHandler("o", "a", h2)
	tg.AddLinkedHandler("o", "b", h3)

	removed := tg.ClearLinkedHandlers("o", "a")
	assert.Equal(t, []*Handler{h1, h2}, removed)
	assert.Equal(t, 1, tg.Len())
	assert.Nil(t, tg.ClearLinkedHandlers("o", "a"))

	assert.Equal(t, 1, tg.ClearOwner("o"))
	assert.Zero(t, tg.Len())
	assert.Zero(t, tg.ClearOwner("o"))
}

func TestPost_Order(t *testing.T) {
	var tg Target
	var order []string
	rec := func(tag string) *Handler {
		return NewHandler(func(Event) error {
			order = append(order, tag)
			return nil
		})
	}

	tg.AddLinkedHandler("first", "ev", rec("first-1"))
	tg.AddLinkedHandler("second", "ev", rec("second-1"))
	tg.AddLinkedHandler("first", "ev", rec("first-2"))
	tg.AddHandler("ev", rec("none"))
	tg.AddHandler("other", rec("other"))

	require.NoError(t, tg.Post("ev"))
	assert.Equal(t, []string{"first-1", "first-2", "second-1", "none"}, order)
}

func TestPost_ArgsAndNoHandlers(t *testing.T) {
	var tg Target
	require.NoError(t, tg.Post("nobody"))

	var got Event
	tg.On("ev", func(e Event) error {
		got = e
		return nil
	})
	require.NoError(t, tg.Post("ev", 1, "two"))
	assert.Equal(t, EventName("ev"), got.Name)
	assert.Equal(t, 1, got.Arg(0))
	assert.Equal(t, "two", got.Arg(1))
	assert.Nil(t, got.Arg(5))
}

func TestPost_FirstErrorAborts(t *testing.T) {
	var tg Target
	boom := errors.New("boom")
	var calls int
	tg.On("ev", func(Event) error { calls++; return nil })
	tg.On("ev", func(Event) error { calls++; return boom })
	tg.On("ev", func(Event) error { calls++; return nil })

	err := tg.Post("ev")
	assert.Same(t, boom, err, "handler errors are returned unwrapped")
	assert.Equal(t, 2, calls)
}

func TestPost_RegistrationDuringDispatch(t *testing.T) {
	var tg Target
	var late int
	tg.On("ev", func(Event) error {
		tg.On("ev", func(Event) error { late++; return nil })
		return nil
	})

	require.NoError(t, tg.Post("ev"))
	assert.Zero(t, late, "handlers added mid-dispatch run from the next post")
	require.NoError(t, tg.Post("ev"))
	assert.Equal(t, 1, late)
}

func TestPostResult(t *testing.T) {
	var tg Target
	tg.AddHandler("ask", NewResultHandler(func(_ context.Context, e Event) (any, error) {
		return e.Arg(0).(int) * 2, nil
	}))
	tg.AddLinkedHandler("late", "ask", NewResultHandler(func(context.Context, Event) (any, error) {
		return "late", nil
	}))
	tg.AddHandler("ask", NewHandler(func(Event) error { return nil }))

	res, err := tg.PostResult(context.Background(), "ask", 21)
	require.NoError(t, err)
	assert.Equal(t, []any{42, nil, "late"}, res)

	res, err = tg.PostResult(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestPostResult_Error(t *testing.T) {
	var tg Target
	boom := errors.New("denied")
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		return nil, boom
	}))
	_, err := tg.PostResult(context.Background(), "ask")
	assert.ErrorIs(t, err, boom)
}

func TestPostResult_StartsInRegistrationOrder(t *testing.T) {
	var tg Target
	var started []int
	for i := 0; i < 4; i++ {
		tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
			started = append(started, i)
			return i, nil
		}))
	}

	res, err := tg.PostResult(context.Background(), "ask")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, started)
	assert.Equal(t, []any{0, 1, 2, 3}, res)
}

func TestPostResult_JoinsFutures(t *testing.T) {
	var tg Target
	release := make(chan struct{})
	var order []string
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		order = append(order, "slow")
		return Future(func(ctx context.Context) (any, error) {
			select {
			case <-release:
				return "slow done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}), nil
	}))
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		order = append(order, "fast")
		close(release)
		return "fast", nil
	}))

	res, err := tg.PostResult(context.Background(), "ask")
	require.NoError(t, err)
	assert.Equal(t, []string{"slow", "fast"}, order, "the second handler starts before the first future completes")
	assert.Equal(t, []any{"slow done", "fast"}, res)
}

func TestPostResult_FutureErrorCancelsOthers(t *testing.T) {
	var tg Target
	boom := errors.New("denied")
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		return Future(func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}), nil
	}))
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		return Future(func(context.Context) (any, error) { return nil, boom }), nil
	}))

	_, err := tg.PostResult(context.Background(), "ask")
	assert.ErrorIs(t, err, boom)
}

func TestPostResult_SyncErrorStopsDispatch(t *testing.T) {
	var tg Target
	boom := errors.New("denied")
	var cancelled bool
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		return Future(func(ctx context.Context) (any, error) {
			<-ctx.Done()
			cancelled = true
			return nil, ctx.Err()
		}), nil
	}))
	tg.AddHandler("ask", NewResultHandler(func(context.Context, Event) (any, error) {
		return nil, boom
	}))
	later := 0
	tg.AddHandler("ask", NewHandler(func(Event) error { later++; return nil }))

	_, err := tg.PostResult(context.Background(), "ask")
	assert.Same(t, boom, err)
	assert.True(t, cancelled, "pending futures are cancelled and awaited")
	assert.Zero(t, later)
}

func TestGate(t *testing.T) {
	var tg Target
	ok, err := tg.Gate(context.Background(), "permission")
	require.NoError(t, err)
	assert.True(t, ok, "no handlers lets the gate pass")

	var answer atomic.Bool
	answer.Store(true)
	tg.AddHandler("permission", NewResultHandler(func(context.Context, Event) (any, error) {
		return true, nil
	}))
	tg.AddHandler("permission", NewResultHandler(func(context.Context, Event) (any, error) {
		return answer.Load(), nil
	}))

	ok, err = tg.Gate(context.Background(), "permission")
	require.NoError(t, err)
	assert.True(t, ok)

	answer.Store(false)
	ok, err = tg.Gate(context.Background(), "permission")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChange_EmitsBothEvents(t *testing.T) {
	var tg Target
	var generic, specific []Event
	tg.On(EventChange, func(e Event) error { generic = append(generic, e); return nil })
	tg.On(ChangeOf("x"), func(e Event) error { specific = append(specific, e); return nil })

	require.NoError(t, tg.Change("x", 1.0, 2.0))
	require.Len(t, generic, 1)
	require.Len(t, specific, 1)

	attr, from, to, ok := generic[0].Change()
	require.True(t, ok)
	assert.Equal(t, "x", attr)
	assert.Equal(t, 1.0, from)
	assert.Equal(t, 2.0, to)

	attr, from, to, ok = specific[0].Change()
	require.True(t, ok)
	assert.Equal(t, "x", attr)
	assert.Equal(t, []any{1.0, 2.0}, []any{from, to})
}

func TestLifecycleEvents(t *testing.T) {
	var tg Target
	var seen []EventName
	tg.On(EventAdd, func(e Event) error { seen = append(seen, e.Name); return nil })
	tg.On(EventRem, func(e Event) error { seen = append(seen, e.Name); return nil })

	require.NoError(t, tg.OnAdd())
	require.NoError(t, tg.OnRem())
	assert.Equal(t, []EventName{EventAdd, EventRem}, seen)
}

func TestSubscriptionAndGroup(t *testing.T) {
	var a, b Target
	var g Group
	observer := &struct{}{}

	calls := 0
	count := func(Event) error { calls++; return nil }
	sub := g.Add(a.Link(observer, "ev", count))
	g.Add(b.Link(observer, "ev", count))
	g.Add(b.Link(observer, ChangeOf("y"), count))
	assert.Equal(t, 3, g.Len())

	require.NoError(t, a.Post("ev"))
	require.NoError(t, b.Post("ev"))
	assert.Equal(t, 2, calls)

	assert.True(t, sub.Unsubscribe())
	assert.False(t, sub.Unsubscribe(), "unsubscribe is idempotent")
	assert.Zero(t, a.Len())

	g.Close()
	assert.Zero(t, b.Len())
	assert.Zero(t, g.Len())
}

func TestEventName_Attribute(t *testing.T) {
	attr, ok := ChangeOf("hex").Attribute()
	assert.True(t, ok)
	assert.Equal(t, "hex", attr)

	_, ok = EventAdd.Attribute()
	assert.False(t, ok)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(0.0))
	assert.True(t, Truthy("yes"))
	assert.True(t, Truthy(1))
	assert.True(t, Truthy(struct{}{}))
}

type failureLog map[EventName]int

func (f failureLog) ObserveDispatchError(name EventName, _ error) { f[name]++ }

func TestSetObserver(t *testing.T) {
	seen := failureLog{}
	SetObserver(seen)
	t.Cleanup(func() { SetObserver(nil) })

	var tg Target
	tg.On("boom", func(Event) error { return errors.New("nope") })
	tg.On("fine", func(Event) error { return nil })

	assert.Error(t, tg.Post("boom"))
	assert.NoError(t, tg.Post("fine"))
	_, err := tg.PostResult(context.Background(), "boom")
	assert.Error(t, err)

	assert.Equal(t, failureLog{"boom": 2}, seen)
}
