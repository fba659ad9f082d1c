package client

import "sync"

// Event is a mutable, ordered list of handlers that accept one payload of
// type T. Subscribe appends a handler and returns a token that Unsubscribe
// removes by identity. Invoke calls each handler in subscription order on
// whichever goroutine decoded the payload (spec.md §5) — it does not run
// handlers concurrently or queue them.
//
// A handler that panics aborts delivery of the remaining handlers for that
// payload; Invoke does not recover, the panic propagates to Invoke's caller.
type Event[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []eventSubscription[T]
}

type eventSubscription[T any] struct {
	id      int
	handler func(T)
}

// NewEvent creates an Event with no subscribers.
func NewEvent[T any]() *Event[T] {
	return &Event[T]{}
}

// Subscribe appends handler to the dispatch list and returns a token that
// can later be passed to Unsubscribe.
func (e *Event[T]) Subscribe(handler func(T)) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.subs = append(e.subs, eventSubscription[T]{id: id, handler: handler})
	return id
}

// Unsubscribe removes the handler registered under token, if still present.
func (e *Event[T]) Unsubscribe(token int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub.id == token {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Invoke calls every subscribed handler, in subscription order, with
// payload. Handlers are snapshotted under lock before any of them run, so a
// handler that subscribes or unsubscribes during Invoke affects only the
// next Invoke, not the one in progress.
func (e *Event[T]) Invoke(payload T) {
	e.mu.Lock()
	subs := make([]eventSubscription[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, sub := range subs {
		sub.handler(payload)
	}
}
