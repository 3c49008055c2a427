package tethertest

import (
	"sync"
	"testing"

	"github.com/tether-go/tether/pkg/tether"
)

// Journal records interactions in order across any number of scripts, so a
// test can assert cross-source ordering ("the old cancel happened before the
// new subscribe").
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends one entry.
func (j *Journal) Record(entry string) {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string{}, j.entries...)
}

// Index returns the position of the first occurrence of entry, or -1.
func (j *Journal) Index(entry string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, e := range j.entries {
		if e == entry {
			return i
		}
	}
	return -1
}

// Script is a scripted source for binder tests. It counts subscriptions and
// cancels, can be told to fail, and can replay emissions through cancelled
// handlers to simulate late deliveries.
//
// Example:
//
//	journal := tethertest.NewJournal()
//	feed := tethertest.NewScript[int]("feed", journal)
//	b := tether.New[int](scope)
//	if err := b.Bind(feed); err != nil { ... }
//	feed.Emit(42)
type Script[T any] struct {
	label   string
	journal *Journal

	mu       sync.Mutex
	handlers []func(T)
	live     []bool
	subs     int
	cancels  int
	failErr  error
}

// NewScript creates a script named label. The journal may be nil; pass one
// to record this script's subscribes and cancels alongside other scripts'.
func NewScript[T any](label string, journal *Journal) *Script[T] {
	return &Script[T]{label: label, journal: journal}
}

// Label returns the script's name.
func (s *Script[T]) Label() string {
	return s.label
}

// FailWith makes subsequent Subscribe calls fail with err.
// FailWith(nil) restores normal behavior.
func (s *Script[T]) FailWith(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// Subscribe implements the source contract.
func (s *Script[T]) Subscribe(fn func(T)) (func(), error) {
	s.mu.Lock()
	if s.failErr != nil {
		err := s.failErr
		s.mu.Unlock()
		s.record("subscribe_failed")
		return nil, err
	}
	idx := len(s.handlers)
	s.handlers = append(s.handlers, fn)
	s.live = append(s.live, true)
	s.subs++
	s.mu.Unlock()
	s.record("subscribe")

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.live[idx] = false
			s.cancels++
			s.mu.Unlock()
			s.record("cancel")
		})
	}, nil
}

// Emit delivers v through every live handler.
func (s *Script[T]) Emit(v T) {
	s.mu.Lock()
	fns := []func(T){}
	for i, fn := range s.handlers {
		if s.live[i] {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// EmitStale delivers v through every handler ever registered, cancelled
// ones included. Use it to simulate an emission that was already in flight
// when its subscription was torn down.
func (s *Script[T]) EmitStale(v T) {
	s.mu.Lock()
	fns := append([]func(T){}, s.handlers...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Subscribes returns how many subscriptions were accepted.
func (s *Script[T]) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs
}

// Cancels returns how many subscriptions were cancelled.
func (s *Script[T]) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

// Live returns how many subscriptions are currently active.
func (s *Script[T]) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, alive := range s.live {
		if alive {
			n++
		}
	}
	return n
}

func (s *Script[T]) record(action string) {
	if s.journal != nil {
		s.journal.Record(s.label + ":" + action)
	}
}

// Recorder is a tether.Hook that captures every event for later assertions.
type Recorder struct {
	mu     sync.Mutex
	events []tether.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe implements tether.Hook.
func (r *Recorder) Observe(e tether.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of all captured events.
func (r *Recorder) Events() []tether.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tether.Event{}, r.events...)
}

// Kinds returns just the event kinds, in order.
func (r *Recorder) Kinds() []tether.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]tether.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many events of the given kind were captured.
func (r *Recorder) Count(kind tether.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// ExpectKinds asserts the recorder captured exactly the given kinds in order.
//
// Example:
//
//	tethertest.ExpectKinds(t, rec,
//	    tether.EventSubscribe,
//	    tether.EventEmit,
//	    tether.EventDispose,
//	)
func ExpectKinds(t *testing.T, r *Recorder, want ...tether.EventKind) {
	t.Helper()
	got := r.Kinds()
	if len(got) != len(want) {
		t.Errorf("expected %d events %v, got %d: %v", len(want), want, len(got), got)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// ExpectOrder asserts that first was journaled before second.
//
// Example:
//
//	tethertest.ExpectOrder(t, journal, "old:cancel", "new:subscribe")
func ExpectOrder(t *testing.T, j *Journal, first, second string) {
	t.Helper()
	fi := j.Index(first)
	si := j.Index(second)
	if fi == -1 {
		t.Errorf("expected journal to contain %q, got %v", first, j.Entries())
		return
	}
	if si == -1 {
		t.Errorf("expected journal to contain %q, got %v", second, j.Entries())
		return
	}
	if fi >= si {
		t.Errorf("expected %q before %q, got %v", first, second, j.Entries())
	}
}

// ExpectValue asserts the binder currently reads the given value.
//
// Example:
//
//	tethertest.ExpectValue(t, b, 42)
func ExpectValue[T comparable](t *testing.T, b *tether.Binder[T], want T) {
	t.Helper()
	got, ok := b.Read()
	if !ok {
		t.Errorf("expected value %v, got no value", want)
		return
	}
	if got != want {
		t.Errorf("expected value %v, got %v", want, got)
	}
}

// ExpectNoValue asserts the binder currently reads the no-value sentinel.
//
// Example:
//
//	tethertest.ExpectNoValue(t, b)
func ExpectNoValue[T any](t *testing.T, b *tether.Binder[T]) {
	t.Helper()
	if v, ok := b.Read(); ok {
		t.Errorf("expected no value, got %v", v)
	}
}
