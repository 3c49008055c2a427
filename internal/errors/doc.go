// Package errors provides coded diagnostics for tether's dev-mode reports.
//
// Each diagnostic has a stable code (e.g., "T001") that maps to a short
// message, a detailed explanation, a fix suggestion, and a documentation
// link. The binder logs these when it detects lifecycle misuse: a Bind after
// Dispose, a leaked binder, a panicking update callback.
//
// Diagnostics are for logs only. The public API returns plain sentinel and
// wrapped errors; callers never see a TetherError.
//
//	d := errors.New(errors.CodeBinderLeaked)
//	logger.Error("binder leaked", "code", d.Code, "hint", d.Suggestion)
package errors
