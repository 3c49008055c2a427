// Package tether provides scope-bound subscription binders.
//
// A Binder ties the latest value of a push Source to the lifetime of a
// Scope. It subscribes at most once per source, caches the newest emission
// for any number of readers, swaps sources without leaking the old
// subscription, and tears down exactly once when its scope is disposed.
//
// # Core Types
//
// Binder[T] owns one subscription and one cached value:
//
//	scope := tether.NewScope(nil)
//	b := tether.New[int](scope, tether.WithName("counter"))
//
//	if err := b.Bind(src); err != nil { ... }  // subscribe (once per source)
//	v, ok := b.Read()                          // latest value, ok=false before first emission
//	scope.Dispose()                            // cancels the subscription exactly once
//
// Rebinding replaces the subscription atomically from the caller's point of
// view: the outgoing source is cancelled before the incoming one is
// subscribed, and the cached value resets so a stale value is never
// attributed to the new source. Binding the identical source again is a
// no-op.
//
// Source[T] is the one-method contract a value producer implements:
//
//	type Source[T any] interface {
//	    Subscribe(fn func(T)) (cancel func(), err error)
//	}
//
// Adapters for common producers (a manual Subject, tickers, channels,
// polling, websockets) live in pkg/source.
//
// # Scopes
//
// A Scope collects cleanups and child scopes and disposes them in reverse
// order. Binders register their own Dispose at construction, so a
// per-request or per-connection scope tears down every binder created under
// it:
//
//	conn := tether.NewScope(appScope)
//	defer conn.Dispose()
//
// # Update Notification
//
// OnUpdate registers a callback invoked synchronously after each accepted
// emission. It carries no payload; dependents pull the value with Read:
//
//	b := tether.New[int](scope, tether.OnUpdate(func() {
//	    v, _ := b.Read()
//	    render(v)
//	}))
//
// # Thread Safety
//
// Read is safe from any goroutine at any time. Sources may emit from any
// goroutine; the binder serializes deliveries internally and fences off
// emissions from replaced or disposed subscriptions. Bind and Dispose are
// lifecycle calls and belong to the scope's owning goroutine.
package tether
