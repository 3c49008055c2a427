package tether

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned when a mutating operation is invoked on a binder
// after it has been disposed. Disposal is terminal: a disposed binder never
// accepts another source.
//
// Callers that race teardown against rebinding should treat this error as
// "the scope is gone" and drop the binder, not retry.
var ErrDisposed = errors.New("tether: binder is disposed")

// SubscribeError reports that a source rejected a subscription during Bind.
// The binder has already rolled back to the unbound state when this error
// is returned; the failed source was never registered and the cached value
// stayed at the sentinel.
//
// The source's own error is available via errors.Unwrap / errors.Is /
// errors.As. Bind never retries; whether the source is retryable is the
// caller's call.
type SubscribeError struct {
	// Binder is the name of the binder whose Bind failed.
	Binder string

	// Err is the error the source returned from Subscribe.
	Err error
}

// Error implements the error interface.
func (e *SubscribeError) Error() string {
	return fmt.Sprintf("tether: subscribe failed for %s: %v", e.Binder, e.Err)
}

// Unwrap returns the source's error for errors.Is/As support.
func (e *SubscribeError) Unwrap() error {
	return e.Err
}
