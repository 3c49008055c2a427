package instrument

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tether-go/tether/pkg/tether"
)

// MetricsConfig configures the Prometheus binder hook.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "tether").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for subscription duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus binder hook.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "tether",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for binder lifecycles.
type metrics struct {
	subscribesTotal      *prometheus.CounterVec
	unsubscribesTotal    *prometheus.CounterVec
	emissionsTotal       *prometheus.CounterVec
	discardsTotal        *prometheus.CounterVec
	subscribeErrors      prometheus.Counter
	disposalsTotal       prometheus.Counter
	leaksTotal           prometheus.Counter
	activeSubscriptions  prometheus.Gauge
	subscriptionDuration prometheus.Histogram
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		subscribesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribes_total",
			Help:        "Total number of source subscriptions established",
			ConstLabels: config.ConstLabels,
		}, []string{"binder"}),

		unsubscribesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unsubscribes_total",
			Help:        "Total number of source subscriptions cancelled",
			ConstLabels: config.ConstLabels,
		}, []string{"binder"}),

		emissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "emissions_total",
			Help:        "Total number of emissions written to value slots",
			ConstLabels: config.ConstLabels,
		}, []string{"binder"}),

		discardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "discards_total",
			Help:        "Total number of late emissions discarded",
			ConstLabels: config.ConstLabels,
		}, []string{"binder"}),

		subscribeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribe_errors_total",
			Help:        "Total number of failed subscription attempts",
			ConstLabels: config.ConstLabels,
		}),

		disposalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "disposals_total",
			Help:        "Total number of binder disposals",
			ConstLabels: config.ConstLabels,
		}),

		leaksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "leaks_total",
			Help:        "Total number of binders garbage collected without Dispose",
			ConstLabels: config.ConstLabels,
		}),

		activeSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_subscriptions",
			Help:        "Number of currently active source subscriptions",
			ConstLabels: config.ConstLabels,
		}),

		subscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscription_duration_seconds",
			Help:        "Lifetime of a subscription from subscribe to unsubscribe",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// Prometheus creates a binder hook that records Prometheus metrics.
//
// Metrics collected:
//   - tether_subscribes_total: Counter of subscriptions by binder
//   - tether_unsubscribes_total: Counter of cancellations by binder
//   - tether_emissions_total: Counter of accepted emissions by binder
//   - tether_discards_total: Counter of discarded late emissions by binder
//   - tether_subscribe_errors_total: Counter of failed subscription attempts
//   - tether_disposals_total: Counter of binder disposals
//   - tether_leaks_total: Counter of binders collected without Dispose
//   - tether_active_subscriptions: Gauge of live subscriptions
//   - tether_subscription_duration_seconds: Histogram of subscription lifetimes
//
// The metric set is global and wired on the first call; later calls reuse it
// and their config is ignored. The "binder" label takes the binder's name,
// so give binders stable names with tether.WithName to keep label
// cardinality bounded.
//
// Example:
//
//	hook := instrument.Prometheus(
//	    instrument.WithNamespace("myapp"),
//	)
//	b := tether.New[Quote](scope, tether.WithHook(hook))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) tether.Hook {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return &promHook{
		m:      m,
		starts: make(map[uint64]time.Time),
	}
}

// promHook translates binder events into metric updates.
type promHook struct {
	m *metrics

	mu     sync.Mutex
	starts map[uint64]time.Time
}

// Observe implements tether.Hook.
func (h *promHook) Observe(e tether.Event) {
	switch e.Kind {
	case tether.EventSubscribe:
		h.m.subscribesTotal.WithLabelValues(e.Binder).Inc()
		h.m.activeSubscriptions.Inc()
		h.mu.Lock()
		h.starts[e.BinderID] = time.Now()
		h.mu.Unlock()

	case tether.EventUnsubscribe:
		h.m.unsubscribesTotal.WithLabelValues(e.Binder).Inc()
		h.m.activeSubscriptions.Dec()
		h.mu.Lock()
		start, ok := h.starts[e.BinderID]
		if ok {
			delete(h.starts, e.BinderID)
		}
		h.mu.Unlock()
		if ok {
			h.m.subscriptionDuration.Observe(time.Since(start).Seconds())
		}

	case tether.EventEmit:
		h.m.emissionsTotal.WithLabelValues(e.Binder).Inc()

	case tether.EventDiscard:
		h.m.discardsTotal.WithLabelValues(e.Binder).Inc()

	case tether.EventSubscribeError:
		h.m.subscribeErrors.Inc()

	case tether.EventDispose:
		h.m.disposalsTotal.Inc()

	case tether.EventLeak:
		h.m.leaksTotal.Inc()
	}
}

// Collector exposes the metric handles for use in custom registrations.
// This allows collecting binder metrics alongside other application metrics.
type Collector struct {
	subscribesTotal      *prometheus.CounterVec
	unsubscribesTotal    *prometheus.CounterVec
	emissionsTotal       *prometheus.CounterVec
	discardsTotal        *prometheus.CounterVec
	subscribeErrors      prometheus.Counter
	disposalsTotal       prometheus.Counter
	leaksTotal           prometheus.Counter
	activeSubscriptions  prometheus.Gauge
	subscriptionDuration prometheus.Histogram
}

// GetMetrics returns the global metrics collector.
// Returns nil if the Prometheus hook has not been initialized.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		subscribesTotal:      globalMetrics.subscribesTotal,
		unsubscribesTotal:    globalMetrics.unsubscribesTotal,
		emissionsTotal:       globalMetrics.emissionsTotal,
		discardsTotal:        globalMetrics.discardsTotal,
		subscribeErrors:      globalMetrics.subscribeErrors,
		disposalsTotal:       globalMetrics.disposalsTotal,
		leaksTotal:           globalMetrics.leaksTotal,
		activeSubscriptions:  globalMetrics.activeSubscriptions,
		subscriptionDuration: globalMetrics.subscriptionDuration,
	}
}
