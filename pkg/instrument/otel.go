package instrument

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tether-go/tether/pkg/tether"
)

// Default tracer name for binder instrumentation.
const defaultTracerName = "tether"

// TracingConfig configures the OpenTelemetry binder hook.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "tether").
	TracerName string

	// IncludeEmissions records a span event per accepted emission.
	// High-volume sources produce a lot of span events - disabled by
	// default. Discarded emissions are always recorded; they are rare and
	// usually interesting.
	IncludeEmissions bool

	// AttributeExtractor extracts custom attributes from each event.
	// Called when a subscription span starts.
	AttributeExtractor func(e tether.Event) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TracingOption configures the OpenTelemetry binder hook.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithEmissionEvents enables recording a span event per accepted emission.
func WithEmissionEvents(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeEmissions = include
	}
}

// WithSpanAttributes sets a custom attribute extractor.
func WithSpanAttributes(extractor func(e tether.Event) []attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultTracingConfig returns the default tracing configuration.
func defaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName:       defaultTracerName,
		IncludeEmissions: false,
	}
}

// OpenTelemetry creates a binder hook that traces subscription lifetimes.
//
// The hook:
//   - Opens a span per subscription, from subscribe to unsubscribe
//   - Records discarded emissions as span events (and accepted ones with
//     WithEmissionEvents)
//   - Records failed subscription attempts as error spans
//   - Records leaked binders as error spans
//
// Subscription spans are root spans: a subscription outlives whatever
// request created it, so there is no parent context to attach to.
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it in
// your main() before binding anything:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...TracingOption) tether.Hook {
	config := defaultTracingConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return &traceHook{
		config: config,
		spans:  make(map[uint64]trace.Span),
	}
}

// traceHook translates binder events into spans.
type traceHook struct {
	config TracingConfig

	mu    sync.Mutex
	spans map[uint64]trace.Span
}

// Observe implements tether.Hook.
func (h *traceHook) Observe(e tether.Event) {
	switch e.Kind {
	case tether.EventSubscribe:
		attrs := h.attributes(e)
		_, span := h.config.tracer.Start(
			context.Background(),
			fmt.Sprintf("tether %s", e.Binder),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		h.mu.Lock()
		// A binder has one live subscription; a leftover span here would
		// mean an unsubscribe was never observed. End it rather than leak.
		if old, ok := h.spans[e.BinderID]; ok {
			old.End()
		}
		h.spans[e.BinderID] = span
		h.mu.Unlock()

	case tether.EventUnsubscribe:
		h.mu.Lock()
		span, ok := h.spans[e.BinderID]
		if ok {
			delete(h.spans, e.BinderID)
		}
		h.mu.Unlock()
		if ok {
			span.SetStatus(codes.Ok, "")
			span.End()
		}

	case tether.EventEmit:
		if !h.config.IncludeEmissions {
			return
		}
		if span, ok := h.span(e.BinderID); ok {
			span.AddEvent("emit")
		}

	case tether.EventDiscard:
		if span, ok := h.span(e.BinderID); ok {
			span.AddEvent("discard")
		}

	case tether.EventSubscribeError:
		_, span := h.config.tracer.Start(
			context.Background(),
			fmt.Sprintf("tether %s subscribe", e.Binder),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(h.attributes(e)...),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()

	case tether.EventLeak:
		_, span := h.config.tracer.Start(
			context.Background(),
			fmt.Sprintf("tether %s leak", e.Binder),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(h.attributes(e)...),
		)
		span.SetStatus(codes.Error, "binder garbage collected without Dispose")
		span.End()
	}
}

func (h *traceHook) span(binderID uint64) (trace.Span, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	span, ok := h.spans[binderID]
	return span, ok
}

func (h *traceHook) attributes(e tether.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("tether.binder", e.Binder),
		attribute.Int64("tether.binder_id", int64(e.BinderID)),
	}
	if h.config.AttributeExtractor != nil {
		attrs = append(attrs, h.config.AttributeExtractor(e)...)
	}
	return attrs
}
