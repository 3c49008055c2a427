// Package source provides ready-made value producers for binders.
//
// Every type here exposes the same one-method shape a binder subscribes to:
//
//	Subscribe(fn func(T)) (cancel func(), err error)
//
// Subject is the manual source: imperative code publishes, subscribers
// receive. Ticker, Poll, and BucketPoll produce values on a schedule;
// WebSocket and FromChannel adapt external feeds. Pass any of them (by
// pointer) straight to a binder's Bind.
package source
