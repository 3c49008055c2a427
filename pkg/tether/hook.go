package tether

// EventKind identifies a binder lifecycle event.
type EventKind uint8

const (
	// EventSubscribe fires after a source accepted the binder's subscription.
	EventSubscribe EventKind = iota + 1

	// EventSubscribeError fires when a source rejected the subscription.
	// Event.Err carries the source's error.
	EventSubscribeError

	// EventUnsubscribe fires after the active subscription was cancelled,
	// on a source swap, an unbind, or disposal of a bound binder.
	EventUnsubscribe

	// EventEmit fires after an emission was written to the value slot.
	EventEmit

	// EventDiscard fires when a late emission was dropped without touching
	// the value slot: its subscription is stale or the binder is disposed.
	EventDiscard

	// EventDispose fires once, when the binder is disposed.
	EventDispose

	// EventLeak fires from the leak detector when a binder is garbage
	// collected without having been disposed.
	EventLeak
)

// String returns a stable lowercase name, suitable for metric labels.
func (k EventKind) String() string {
	switch k {
	case EventSubscribe:
		return "subscribe"
	case EventSubscribeError:
		return "subscribe_error"
	case EventUnsubscribe:
		return "unsubscribe"
	case EventEmit:
		return "emit"
	case EventDiscard:
		return "discard"
	case EventDispose:
		return "dispose"
	case EventLeak:
		return "leak"
	default:
		return "unknown"
	}
}

// Event describes a single binder lifecycle moment.
type Event struct {
	// BinderID is the unique ID of the binder that produced the event.
	BinderID uint64

	// Binder is the binder's name, as configured with WithName.
	Binder string

	// Kind says what happened.
	Kind EventKind

	// Err is set for EventSubscribeError; nil otherwise.
	Err error
}

// Hook observes binder lifecycle events. Implementations must be safe for
// concurrent use: emissions report from source goroutines, the leak detector
// reports from the finalizer goroutine.
//
// Hooks are for observation only. A hook must not call Bind or Dispose on
// the binder it observes; doing so from inside Observe deadlocks or
// re-enters the transition that produced the event.
type Hook interface {
	Observe(Event)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(Event)

// Observe implements Hook.
func (f HookFunc) Observe(e Event) { f(e) }

// Multi fans events out to several hooks in order. Nil entries are skipped.
func Multi(hooks ...Hook) Hook {
	kept := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return nopHook{}
	case 1:
		return kept[0]
	}
	return multiHook(kept)
}

type multiHook []Hook

func (m multiHook) Observe(e Event) {
	for _, h := range m {
		h.Observe(e)
	}
}

// nopHook is the default hook when none is configured.
type nopHook struct{}

func (nopHook) Observe(Event) {}
