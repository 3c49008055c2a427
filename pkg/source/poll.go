package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Poll fetches a value at a fixed interval and emits each result. The first
// fetch happens immediately on Subscribe. A failed fetch is logged and its
// tick skipped; the subscription stays alive and retries on the next tick.
type Poll[T any] struct {
	// Fetch produces the next value. The context is cancelled when the
	// subscription is.
	Fetch func(ctx context.Context) (T, error)

	// Every is the polling interval. Subscribe rejects values <= 0.
	Every time.Duration

	// Logger receives fetch failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Subscribe starts the polling goroutine.
func (p *Poll[T]) Subscribe(fn func(T)) (func(), error) {
	if p.Fetch == nil {
		return nil, errors.New("source: poll requires a Fetch function")
	}
	if p.Every <= 0 {
		return nil, fmt.Errorf("source: poll interval must be positive, got %v", p.Every)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		p.tick(ctx, fn, logger)

		ticker := time.NewTicker(p.Every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.tick(ctx, fn, logger)
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

func (p *Poll[T]) tick(ctx context.Context, fn func(T), logger *slog.Logger) {
	v, err := p.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("poll fetch failed", "error", err)
		}
		return
	}
	// Cancelled while the fetch was in flight: drop the result.
	if ctx.Err() != nil {
		return
	}
	fn(v)
}
