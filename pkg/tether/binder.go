package tether

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	diag "github.com/tether-go/tether/internal/errors"
)

// State identifies where a binder is in its lifecycle.
type State uint8

const (
	// StateUnbound means no source is bound and no subscription exists.
	StateUnbound State = iota

	// StateBound means one active subscription tracks one source.
	StateBound

	// StateDisposed is terminal: the binder holds nothing and accepts no
	// further Bind.
	StateDisposed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "Unbound"
	case StateBound:
		return "Bound"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// Binder ties the latest value of a Source to the lifetime of a Scope.
//
// A binder holds at most one live subscription no matter how many readers
// consume the value: Bind subscribes once, Read is free. Rebinding to a
// different source tears the old subscription down before the new one is
// established and resets the cached value, so a stale value is never
// attributed to the new source. Disposal, normally driven by the owning
// Scope, cancels the subscription exactly once and is terminal.
//
// Bind and Dispose belong to the lifecycle sequence of the owning scope and
// are not meant to race each other from multiple goroutines. Emissions are
// different: sources deliver from their own goroutines, and the binder
// serializes them internally. Read is safe from any goroutine at any time.
type Binder[T any] struct {
	id   uint64
	name string

	// mu guards the binding state: source, cancel, epoch, and the value
	// slot.
	mu     sync.RWMutex
	source Source[T]
	cancel func()

	// epoch fences emissions. Every (re)bind and the disposal bump it; an
	// emission stamped with an older epoch is late and gets discarded.
	epoch uint64

	// value is the latest emitted value; hasValue distinguishes it from
	// the "no value yet" sentinel.
	value    T
	hasValue bool

	// emitMu serializes emission delivery end to end, including the update
	// notification, so Dispose can wait out an in-flight emission before
	// returning.
	emitMu sync.Mutex

	// disposed indicates whether this binder has been disposed.
	disposed atomic.Bool

	// Set at construction, immutable afterward.
	notify    func()
	hook      Hook
	logger    *slog.Logger
	leakCheck bool
}

// New creates an unbound binder owned by scope.
//
// Construction registers Dispose with the scope's cleanup list, so the
// scope's teardown disposes the binder exactly once. A binder created on an
// already disposed scope is born disposed. A nil scope is allowed for
// callers that manage disposal themselves; they take over the obligation to
// call Dispose.
func New[T any](scope *Scope, opts ...Option) *Binder[T] {
	var cfg binderConfig
	for _, opt := range opts {
		opt.applyBinder(&cfg)
	}

	b := &Binder[T]{
		id:        nextID(),
		name:      cfg.name,
		notify:    cfg.notify,
		hook:      cfg.hook,
		logger:    cfg.logger,
		leakCheck: Debug.DetectLeaks,
	}
	if b.name == "" {
		b.name = fmt.Sprintf("binder-%d", b.id)
	}
	if b.hook == nil {
		b.hook = nopHook{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	if b.leakCheck {
		runtime.SetFinalizer(b, reportLeak[T])
	}

	if scope != nil {
		scope.OnCleanup(b.Dispose)
	}

	return b
}

// NewWithSource creates a binder owned by scope and immediately binds src.
//
// The binder is returned even when the initial Bind fails: on a subscribe
// failure it is valid and unbound, and the caller may Bind another source;
// on a disposed scope it is born disposed. The error reports which case
// occurred, exactly as Bind would.
func NewWithSource[T any](scope *Scope, src Source[T], opts ...Option) (*Binder[T], error) {
	b := New[T](scope, opts...)
	if src == nil {
		return b, nil
	}
	if err := b.Bind(src); err != nil {
		return b, err
	}
	return b, nil
}

// ID returns the unique identifier for this binder.
func (b *Binder[T]) ID() uint64 {
	return b.id
}

// Name returns the binder's name.
func (b *Binder[T]) Name() string {
	return b.name
}

// IsDisposed returns true if this binder has been disposed.
func (b *Binder[T]) IsDisposed() bool {
	return b.disposed.Load()
}

// State reports the binder's current lifecycle state.
func (b *Binder[T]) State() State {
	if b.disposed.Load() {
		return StateDisposed
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.source != nil {
		return StateBound
	}
	return StateUnbound
}

// Source returns the currently bound source, or nil when the binder is
// unbound or disposed.
func (b *Binder[T]) Source() Source[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.source
}

// Read returns the latest value emitted by the active subscription.
// The second result is false while no value has been emitted yet: before
// the first emission, after a source swap, and after disposal.
//
// Read is pure: any number of consumers may call it, from any goroutine,
// without affecting the subscription.
func (b *Binder[T]) Read() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value, b.hasValue
}

// Bind points the binder at src, replacing whatever source was bound.
//
// Binding the identical source again (interface identity, not value
// equality) is a no-op: no second subscription, no value reset. Binding a
// different source first cancels the outgoing subscription (the cancel
// completes before the incoming source is touched), then resets the value
// slot and subscribes to src. Binding nil leaves the binder unbound.
//
// If src's Subscribe fails, the binder stays unbound, the slot stays at the
// sentinel, and the failure comes back wrapped in a *SubscribeError. A
// panicking Subscribe propagates after the same rollback. After Dispose,
// Bind always returns ErrDisposed.
func (b *Binder[T]) Bind(src Source[T]) error {
	b.mu.Lock()
	if b.disposed.Load() {
		b.mu.Unlock()
		return b.rejectDisposed()
	}
	if src == b.source {
		b.mu.Unlock()
		return nil
	}

	// Tear down the outgoing subscription before the incoming source is
	// touched. The epoch bump fences off emissions the old source already
	// has in flight, and the slot resets so its last value is not
	// attributed to the new source.
	oldCancel := b.cancel
	wasBound := b.source != nil
	b.cancel = nil
	b.source = nil
	b.epoch++
	var zero T
	b.value = zero
	b.hasValue = false
	b.mu.Unlock()

	if oldCancel != nil {
		oldCancel()
	}
	if wasBound {
		b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventUnsubscribe})
	}

	if src == nil {
		if Debug.LogLifecycle {
			b.logger.Debug("binder unbound", "binder", b.name)
		}
		return nil
	}

	b.mu.Lock()
	if b.disposed.Load() {
		b.mu.Unlock()
		return b.rejectDisposed()
	}
	b.source = src
	b.epoch++
	epoch := b.epoch
	b.mu.Unlock()

	// The source is committed before Subscribe so that emissions delivered
	// synchronously during the call already pass the epoch fence. The defer
	// rolls that commitment back if Subscribe errors or panics.
	subscribed := false
	defer func() {
		if subscribed {
			return
		}
		b.mu.Lock()
		if b.epoch == epoch {
			b.source = nil
		}
		b.mu.Unlock()
	}()

	cancel, err := src.Subscribe(func(v T) {
		b.deliver(epoch, v)
	})
	if err != nil {
		b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventSubscribeError, Err: err})
		if DevMode {
			d := diag.New(diag.CodeSubscribeFailed).Wrap(err)
			b.logger.Error("subscribe failed",
				"binder", b.name,
				"code", d.Code,
				"error", err,
				"hint", d.Suggestion)
		}
		return &SubscribeError{Binder: b.name, Err: err}
	}

	b.mu.Lock()
	if b.disposed.Load() || b.epoch != epoch {
		// Disposed (or rebound) while the Subscribe call was in flight.
		// The new registration lost; cancel it before anyone sees it.
		b.mu.Unlock()
		subscribed = true
		if cancel != nil {
			cancel()
		}
		if b.disposed.Load() {
			return ErrDisposed
		}
		return nil
	}
	b.cancel = cancel
	b.mu.Unlock()
	subscribed = true

	b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventSubscribe})
	if Debug.LogLifecycle {
		b.logger.Debug("binder bound", "binder", b.name)
	}
	return nil
}

// Dispose tears the binder down: it cancels the active subscription if one
// exists, clears the value slot, and marks the binder inert. Dispose is
// idempotent, so any number of calls produce exactly one underlying cancel,
// and terminal: the binder accepts no further Bind.
//
// Once Dispose returns, no further observable effects occur. An emission
// already being delivered finishes before Dispose returns; emissions that
// arrive later are discarded without touching the slot or the update
// callback.
func (b *Binder[T]) Dispose() {
	b.mu.Lock()
	if b.disposed.Swap(true) {
		b.mu.Unlock()
		return
	}
	oldCancel := b.cancel
	wasBound := b.source != nil
	b.cancel = nil
	b.source = nil
	b.epoch++
	b.mu.Unlock()

	if oldCancel != nil {
		oldCancel()
	}

	// Taking the emission lock waits out any delivery that passed its
	// disposed check before the swap above; clearing the slot under it
	// erases anything such a straggler wrote.
	b.emitMu.Lock()
	b.mu.Lock()
	var zero T
	b.value = zero
	b.hasValue = false
	b.mu.Unlock()
	b.emitMu.Unlock()

	if wasBound {
		b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventUnsubscribe})
	}
	b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventDispose})

	if b.leakCheck {
		runtime.SetFinalizer(b, nil)
	}
	if Debug.LogLifecycle {
		b.logger.Debug("binder disposed", "binder", b.name)
	}
}

// deliver is the emission path. Every subscription's callback funnels here
// with the epoch it was created under; a mismatch means the subscription is
// stale and the emission is late.
func (b *Binder[T]) deliver(epoch uint64, v T) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	if b.disposed.Load() || epoch != b.epoch {
		b.mu.Unlock()
		b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventDiscard})
		if Debug.LogLifecycle {
			b.logger.Debug("late emission discarded", "binder", b.name)
		}
		return
	}
	b.value = v
	b.hasValue = true
	b.mu.Unlock()

	b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventEmit})
	b.notifyDependents()
}

// notifyDependents invokes the update callback, containing any panic so a
// misbehaving dependent cannot corrupt the slot or tear half the
// subscription down.
func (b *Binder[T]) notifyDependents() {
	if b.notify == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d := diag.New(diag.CodeCallbackPanic)
			b.logger.Error("update callback panic",
				"binder", b.name,
				"code", d.Code,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	b.notify()
}

// rejectDisposed reports a mutating call on a disposed binder.
func (b *Binder[T]) rejectDisposed() error {
	if DevMode {
		d := diag.New(diag.CodeUseAfterDispose)
		b.logger.Error("bind rejected: binder already disposed",
			"binder", b.name,
			"code", d.Code,
			"hint", d.Suggestion)
	}
	return ErrDisposed
}

// reportLeak is the finalizer armed by DetectLeaks. It fires only for
// binders that became unreachable without being disposed.
func reportLeak[T any](b *Binder[T]) {
	if b.disposed.Load() {
		return
	}
	d := diag.New(diag.CodeBinderLeaked).WithDetail(
		"binder %q (id %d) was garbage collected without Dispose", b.name, b.id)
	b.logger.Error("binder leaked",
		"binder", b.name,
		"id", b.id,
		"code", d.Code,
		"detail", d.Detail,
		"hint", d.Suggestion)
	b.hook.Observe(Event{BinderID: b.id, Binder: b.name, Kind: EventLeak})
}
