package source

import (
	"fmt"
	"sync"
	"time"
)

// Ticker emits the current time at a fixed interval. Each subscription runs
// its own ticker goroutine; cancelling the subscription stops it.
type Ticker struct {
	// Every is the emission interval. Subscribe rejects values <= 0.
	Every time.Duration

	// Immediate emits once right away instead of waiting a full interval
	// for the first tick.
	Immediate bool
}

// NewTicker returns a Ticker emitting every d.
func NewTicker(d time.Duration) *Ticker {
	return &Ticker{Every: d}
}

// Subscribe starts a goroutine that calls fn on every tick until cancelled.
func (t *Ticker) Subscribe(fn func(time.Time)) (func(), error) {
	if t.Every <= 0 {
		return nil, fmt.Errorf("source: ticker interval must be positive, got %v", t.Every)
	}

	done := make(chan struct{})
	go func() {
		if t.Immediate {
			select {
			case <-done:
				return
			default:
				fn(time.Now())
			}
		}

		ticker := time.NewTicker(t.Every)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn(now)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
		})
	}, nil
}
