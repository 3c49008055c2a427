package tether

import "log/slog"

// binderConfig holds configuration from Options.
type binderConfig struct {
	name   string
	notify func()
	hook   Hook
	logger *slog.Logger
}

// Option configures a Binder at construction.
type Option interface {
	isOption()
	applyBinder(cfg *binderConfig)
}

type optionFunc func(*binderConfig)

func (f optionFunc) isOption()                     {}
func (f optionFunc) applyBinder(cfg *binderConfig) { f(cfg) }

// WithName names the binder for logs, diagnostics, metrics, and traces.
// Unnamed binders get "binder-<id>".
func WithName(name string) Option {
	return optionFunc(func(cfg *binderConfig) {
		cfg.name = name
	})
}

// OnUpdate sets the update notification callback, invoked synchronously
// after each value slot write. It carries no payload; dependents re-read
// via Read. It never runs after Dispose has returned.
//
// The callback may call Read on the binder but must not call Bind or
// Dispose; mutating the binder from inside its own notification deadlocks.
// Panics in the callback are recovered and logged, and do not disturb the
// cached value or the subscription.
func OnUpdate(fn func()) Option {
	return optionFunc(func(cfg *binderConfig) {
		cfg.notify = fn
	})
}

// WithHook attaches a lifecycle hook. Repeated WithHook options compose:
// every hook sees every event, in the order the options were given.
func WithHook(h Hook) Option {
	return optionFunc(func(cfg *binderConfig) {
		if h == nil {
			return
		}
		if cfg.hook == nil {
			cfg.hook = h
			return
		}
		cfg.hook = Multi(cfg.hook, h)
	})
}

// WithLogger sets the logger for lifecycle logging and misuse reports.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *binderConfig) {
		cfg.logger = logger
	})
}
