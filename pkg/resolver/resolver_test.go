package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/dashcore/pkg/target"
)

func received[T any](ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

func TestResolver_FIFO(t *testing.T) {
	r := New(0)
	var order []int
	r.OnCondition(func(s int) bool { return s > 0 }, func(int) { order = append(order, 1) })
	r.OnCondition(func(s int) bool { return s == 1 }, func(int) { order = append(order, 2) })
	r.OnCondition(func(s int) bool { return s < 5 && s != 0 }, func(int) { order = append(order, 3) })
	assert.Equal(t, 3, r.Pending())

	require.NoError(t, r.SetState(1))
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, r.Pending())
}

func TestResolver_WhenNot(t *testing.T) {
	r := New(1)
	v, ok := received(r.WhenNot(0))
	assert.True(t, ok, "already satisfied conditions complete immediately")
	assert.Equal(t, 1, v)

	r = New(0)
	ch := r.WhenNot(0)
	_, ok = received(ch)
	assert.False(t, ok)

	require.NoError(t, r.SetState(1))
	v, ok = received(ch)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestResolver_When(t *testing.T) {
	r := New("idle")
	ch := r.When("granted")
	require.NoError(t, r.SetState("asking"))
	_, ok := received(ch)
	assert.False(t, ok)

	require.NoError(t, r.SetState("granted"))
	v, ok := received(ch)
	assert.True(t, ok)
	assert.Equal(t, "granted", v)
}

func TestResolver_NoOpWrite(t *testing.T) {
	r := New(3)
	changes := 0
	r.On(target.EventChange, func(target.Event) error { changes++; return nil })
	r.On(target.ChangeOf(AttrState), func(e target.Event) error {
		assert.Equal(t, []any{3, 4}, e.Args)
		return nil
	})

	require.NoError(t, r.SetState(3))
	assert.Zero(t, changes)
	require.NoError(t, r.SetState(4))
	assert.Equal(t, 1, changes)
	assert.Equal(t, 4, r.State())
}

func TestResolver_ReentrantStop(t *testing.T) {
	r := New(0)
	var log []string

	r.OnCondition(func(s int) bool { return s >= 1 }, func(s int) {
		log = append(log, "a")
		require.NoError(t, r.SetState(s+10))
	})
	r.OnCondition(func(s int) bool { return s == 1 }, func(int) {
		log = append(log, "stale")
	})
	r.OnCondition(func(s int) bool { return s >= 1 }, func(s int) {
		log = append(log, "c")
		assert.Equal(t, 11, s)
	})

	require.NoError(t, r.SetState(1))
	assert.Equal(t, []string{"a", "c"}, log, "waiters are evaluated against the newest state")
	assert.Equal(t, 1, r.Pending(), "the stale waiter stays pending")
}

func TestResolver_ChangeHandlerError(t *testing.T) {
	r := New(false)
	boom := errors.New("boom")
	r.On(target.EventChange, func(target.Event) error { return boom })

	ch := r.When(true)
	assert.ErrorIs(t, r.SetState(true), boom)
	assert.True(t, r.State())
	_, ok := received(ch)
	assert.False(t, ok)
}

func TestResolver_Wait(t *testing.T) {
	r := New(0)
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = r.SetState(2)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := r.Wait(ctx, func(s int) bool { return s == 2 })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestResolver_WaitCancelled(t *testing.T) {
	r := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Wait(ctx, func(s int) bool { return s == 99 })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.Pending(), "cancelled waiters are withdrawn")
}

func TestResolver_CancelFunc(t *testing.T) {
	r := New(0)
	called := false
	cancel := r.OnCondition(func(s int) bool { return s == 1 }, func(int) { called = true })
	assert.True(t, cancel())
	assert.False(t, cancel())

	require.NoError(t, r.SetState(1))
	assert.False(t, called)
}

func TestNewFunc_DeepEqual(t *testing.T) {
	r := NewFunc([]string{"a"}, nil)
	changes := 0
	r.On(target.EventChange, func(target.Event) error { changes++; return nil })

	require.NoError(t, r.SetState([]string{"a"}))
	assert.Zero(t, changes)
	require.NoError(t, r.SetState([]string{"b"}))
	assert.Equal(t, 1, changes)
}
