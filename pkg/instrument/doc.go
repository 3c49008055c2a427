// Package instrument provides observability hooks for binders.
//
// Prometheus returns a hook that translates binder lifecycle events into
// metrics; OpenTelemetry returns one that opens a span per subscription.
// Attach either (or both) with tether.WithHook:
//
//	b := tether.New[Quote](scope,
//	    tether.WithName("quotes"),
//	    tether.WithHook(instrument.Prometheus()),
//	    tether.WithHook(instrument.OpenTelemetry()),
//	)
package instrument
