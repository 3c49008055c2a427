package tether

// DevMode enables development-time diagnostics for lifecycle misuse.
// When true:
//   - Bind after Dispose logs a coded diagnostic before returning ErrDisposed
//   - leak and panic reports include the full diagnostic text
//
// When false (production):
//   - misuse still fails the same way, just without the verbose report
//
// Set this at application startup:
//
//	func main() {
//	    tether.DevMode = os.Getenv("TETHER_DEV") == "1"
//	    // ...
//	}
var DevMode = false

// DebugConfig controls debugging features for development.
// These settings affect logging only, never binder semantics.
type DebugConfig struct {
	// LogLifecycle logs every bind, unbind, dispose, and discarded late
	// emission at debug level. Noisy; useful when chasing a rebind storm.
	// Default: false.
	LogLifecycle bool

	// DetectLeaks arms a finalizer on each new binder that reports, loudly,
	// any binder garbage collected without having been disposed. Consulted
	// at construction time; toggling it later does not affect existing
	// binders. A binder whose subscription callback is still held by a live
	// source is reachable and will not be reported until the source lets
	// go. Default: false.
	DetectLeaks bool
}

// DefaultDebugConfig returns a DebugConfig with all debugging disabled.
// Enable individual options as needed for development.
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{
		LogLifecycle: false,
		DetectLeaks:  false,
	}
}

// Debug is the global debug configuration.
// Modify this at application startup to enable debugging features.
var Debug = DefaultDebugConfig()
