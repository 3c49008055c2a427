package errors

import "sort"

// Diagnostic codes. Stable identifiers: log scrapers key on them.
const (
	CodeUseAfterDispose = "T001"
	CodeSubscribeFailed = "T002"
	CodeBinderLeaked    = "T003"
	CodeCallbackPanic   = "T004"
)

// ErrorTemplate defines a registered diagnostic.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

// registry maps diagnostic codes to their templates.
var registry = map[string]ErrorTemplate{
	CodeUseAfterDispose: {
		Category:   CategoryLifecycle,
		Message:    "binder used after dispose",
		Detail:     "Bind was called on a binder that has already been disposed. A disposed binder is terminal and cannot be rebound.",
		Suggestion: "Create the binder inside the scope that owns it, and do not hold references past scope teardown.",
		DocURL:     "https://pkg.go.dev/github.com/tether-go/tether#Binder.Bind",
	},
	CodeSubscribeFailed: {
		Category:   CategorySource,
		Message:    "source subscribe failed",
		Detail:     "The source rejected the subscription. The binder rolled back to the unbound state; no value was cached.",
		Suggestion: "Check the source's readiness before binding, or retry the Bind call from the caller.",
		DocURL:     "https://pkg.go.dev/github.com/tether-go/tether#SubscribeError",
	},
	CodeBinderLeaked: {
		Category:   CategoryLifecycle,
		Message:    "binder garbage collected without dispose",
		Detail:     "A binder was reclaimed by the garbage collector before Dispose ran. The owning scope never tore it down.",
		Suggestion: "Wire the binder to a Scope at construction, and make sure the scope's Dispose runs at the end of its lifetime.",
		DocURL:     "https://pkg.go.dev/github.com/tether-go/tether#Scope",
	},
	CodeCallbackPanic: {
		Category:   CategoryCallback,
		Message:    "update callback panicked",
		Detail:     "The update notification callback panicked while reacting to an emission. The panic was contained; the cached value and the subscription are intact.",
		Suggestion: "Keep update callbacks small: re-read the value and schedule work elsewhere instead of doing it inline.",
		DocURL:     "https://pkg.go.dev/github.com/tether-go/tether#OnUpdate",
	},
}

// New creates a TetherError from a registered code.
// Unknown codes produce a generic diagnostic rather than a panic so that a
// stale call site degrades to a less helpful message, not a crash.
func New(code string) *TetherError {
	t, ok := registry[code]
	if !ok {
		return &TetherError{
			Code:     code,
			Category: CategoryLifecycle,
			Message:  "unknown diagnostic",
		}
	}
	return &TetherError{
		Code:       code,
		Category:   t.Category,
		Message:    t.Message,
		Detail:     t.Detail,
		Suggestion: t.Suggestion,
		DocURL:     t.DocURL,
	}
}

// Codes returns all registered diagnostic codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
