package observable

import (
	"context"
	"sync"
)

// Value holds one piece of state with a defined initial value. Subscribers
// are conflated: a slow reader sees the latest value, not every
// intermediate one.
type Value[T any] struct {
	mu   sync.Mutex
	cur  T
	subs map[int]chan T
	next int
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[int]chan T)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set replaces the value and notifies subscribers.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = x
	for _, ch := range v.subs {
		offer(ch, x)
	}
}

// Subscribe returns a channel that first yields the current value and then
// every later one. It is closed when ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = ch
	ch <- v.cur
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, id)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

// offer replaces any undelivered value with x.
func offer[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	ch <- x
}
