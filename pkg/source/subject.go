package source

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Subscribe on a source that has been closed.
var ErrClosed = errors.New("source: closed")

// Subject is a manual push source: callers publish values, subscribers
// receive them. It is the glue between imperative code and a binder.
//
// Delivery is synchronous and in registration order. Publishing after Close
// is a no-op; subscribing after Close fails with ErrClosed.
type Subject[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	nextID uint64
	closed bool
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewSubject creates an open Subject with no subscribers.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers fn for every subsequent Publish. The returned cancel
// is idempotent.
func (s *Subject[T]) Subscribe(fn func(T)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.remove(id)
		})
	}, nil
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber in registration order.
// The subscriber list is snapshotted under the lock and callbacks run
// outside it, so a callback may subscribe or cancel without deadlocking.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

// Close shuts the subject down. Existing subscriptions are dropped, further
// Publish calls are ignored, and further Subscribe calls fail with
// ErrClosed. Close is idempotent.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = nil
	s.mu.Unlock()
}

// Len reports the number of active subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
