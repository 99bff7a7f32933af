// Package observe provides a minimal observable value: subscribers receive
// the current value immediately and every subsequent replacement in order.
// It is the state-holder primitive behind the session store and the
// favourites view model.
package observe

import "sync"

// subscriberBuffer absorbs short bursts of updates so a slow consumer does
// not block the writer. A subscriber that falls further behind than this
// drops intermediate values and only sees the latest.
const subscriberBuffer = 8

// Value holds a T and broadcasts replacements to subscribers. The zero value
// is not usable; construct with NewValue.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[int]chan T
	nextID  int
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[int]chan T),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set replaces the current value and notifies every subscriber.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = next
	for _, ch := range v.subs {
		send(ch, next)
	}
}

// Subscribe registers a new subscriber. The returned channel carries the
// current value immediately, then every replacement. The cancel function
// unregisters the subscriber and closes the channel; it is safe to call
// more than once.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++

	ch := make(chan T, subscriberBuffer)
	ch <- v.current
	v.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// send delivers next without blocking. When the subscriber's buffer is full
// the oldest queued value is evicted, so the channel always ends with the
// latest state.
func send[T any](ch chan T, next T) {
	for {
		select {
		case ch <- next:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
