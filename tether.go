// Package tether provides the public API for the tether library.
//
// This is the recommended import for most applications:
//
//	import "github.com/tether-go/tether"
//
// Usage:
//
//	scope := tether.NewScope(nil)
//	defer scope.Dispose()
//
//	quotes := tether.New[Quote](scope, tether.WithName("quotes"))
//	if err := quotes.Bind(feed); err != nil {
//	    return err
//	}
//	if quote, ok := quotes.Read(); ok {
//	    render(quote)
//	}
package tether

import (
	coretether "github.com/tether-go/tether/pkg/tether"
)

// =============================================================================
// Core types (re-export from pkg/tether)
// =============================================================================

// Binder ties the latest value of a Source to the lifetime of a Scope.
// It holds at most one live subscription, caches the most recent emission
// for reading, and tears down exactly once when its scope is disposed.
type Binder[T any] = coretether.Binder[T]

// Scope is a bounded unit of lifetime. Binders register with a scope at
// construction; disposing the scope disposes them, children before parents.
type Scope = coretether.Scope

// Source is a push-based producer of values over time. Anything with a
// cancellable Subscribe can feed a binder.
type Source[T any] = coretether.Source[T]

// State identifies where a binder is in its lifecycle.
type State = coretether.State

// Lifecycle states.
const (
	StateUnbound  = coretether.StateUnbound
	StateBound    = coretether.StateBound
	StateDisposed = coretether.StateDisposed
)

// New creates an unbound binder owned by scope.
//
// Example:
//
//	prices := tether.New[Price](scope,
//	    tether.WithName("prices"),
//	    tether.OnUpdate(refresh))
func New[T any](scope *Scope, opts ...Option) *Binder[T] {
	return coretether.New[T](scope, opts...)
}

// NewWithSource creates a binder owned by scope and immediately binds src.
func NewWithSource[T any](scope *Scope, src Source[T], opts ...Option) (*Binder[T], error) {
	return coretether.NewWithSource[T](scope, src, opts...)
}

// NewScope creates a scope under parent. A nil parent makes a root scope.
var NewScope = coretether.NewScope

// =============================================================================
// Options (re-export from pkg/tether)
// =============================================================================

// Option configures a binder at construction time.
type Option = coretether.Option

// WithName gives the binder a stable name for logs, metrics, and traces.
var WithName = coretether.WithName

// OnUpdate registers a callback invoked after each accepted emission, once
// the value slot already holds the new value.
var OnUpdate = coretether.OnUpdate

// WithHook attaches a lifecycle hook. Repeating the option composes hooks.
var WithHook = coretether.WithHook

// WithLogger sets the binder's logger.
var WithLogger = coretether.WithLogger

// =============================================================================
// Lifecycle hooks (re-export from pkg/tether)
// =============================================================================

// Hook observes binder lifecycle events.
type Hook = coretether.Hook

// HookFunc adapts a function to the Hook interface.
type HookFunc = coretether.HookFunc

// Event describes a single binder lifecycle moment.
type Event = coretether.Event

// EventKind identifies a binder lifecycle event.
type EventKind = coretether.EventKind

// Lifecycle event kinds.
const (
	EventSubscribe      = coretether.EventSubscribe
	EventSubscribeError = coretether.EventSubscribeError
	EventUnsubscribe    = coretether.EventUnsubscribe
	EventEmit           = coretether.EventEmit
	EventDiscard        = coretether.EventDiscard
	EventDispose        = coretether.EventDispose
	EventLeak           = coretether.EventLeak
)

// Multi fans events out to several hooks in order.
var Multi = coretether.Multi

// =============================================================================
// Errors (re-export from pkg/tether)
// =============================================================================

// ErrDisposed reports a lifecycle call on a disposed binder.
var ErrDisposed = coretether.ErrDisposed

// SubscribeError reports that a source rejected a subscription. The binder
// stays usable; unwrap to get the source's error.
type SubscribeError = coretether.SubscribeError

// =============================================================================
// Configuration (re-export from pkg/tether)
// =============================================================================

// DevMode enables development-time diagnostics for lifecycle misuse.
var DevMode = &coretether.DevMode

// Debug is the global debug configuration.
var Debug = &coretether.Debug

// DebugConfig controls debugging features for development.
type DebugConfig = coretether.DebugConfig
