package source

import "context"

// FromChannel adapts a receive channel into a source. One pump goroutine
// forwards values from ch to the returned Subject, which any number of
// binders can subscribe to.
//
// The pump stops when ch is closed or ctx is cancelled; either way the
// Subject closes and the returned done channel closes after the last value
// was delivered.
func FromChannel[T any](ctx context.Context, ch <-chan T) (*Subject[T], <-chan struct{}) {
	subj := NewSubject[T]()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer subj.Close()
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					return
				}
				subj.Publish(v)
			case <-ctx.Done():
				return
			}
		}
	}()

	return subj, done
}
