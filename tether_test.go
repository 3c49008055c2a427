package tether

import (
	"errors"
	"testing"

	"github.com/tether-go/tether/pkg/source"
	"github.com/tether-go/tether/pkg/tethertest"
)

type quote struct {
	Symbol string
	Price  float64
}

func TestBindReadDispose(t *testing.T) {
	scope := NewScope(nil)
	feed := source.NewSubject[quote]()
	defer feed.Close()

	quotes := New[quote](scope, WithName("quotes"))
	if _, ok := quotes.Read(); ok {
		t.Errorf("expected no value before binding")
	}

	if err := quotes.Bind(feed); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	feed.Publish(quote{Symbol: "ACME", Price: 99.5})

	got, ok := quotes.Read()
	if !ok {
		t.Fatalf("expected a value after publish")
	}
	if got.Symbol != "ACME" || got.Price != 99.5 {
		t.Errorf("expected ACME at 99.5, got %+v", got)
	}

	scope.Dispose()
	if !quotes.IsDisposed() {
		t.Errorf("expected binder disposed with its scope")
	}
	if quotes.State() != StateDisposed {
		t.Errorf("expected StateDisposed, got %v", quotes.State())
	}
	if err := quotes.Bind(feed); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed after disposal, got %v", err)
	}
}

func TestNewWithSource(t *testing.T) {
	scope := NewScope(nil)
	defer scope.Dispose()

	feed := source.NewSubject[int]()
	defer feed.Close()

	b, err := NewWithSource[int](scope, feed, WithName("numbers"))
	if err != nil {
		t.Fatalf("NewWithSource failed: %v", err)
	}
	if b.State() != StateBound {
		t.Errorf("expected StateBound, got %v", b.State())
	}

	feed.Publish(7)
	if v, ok := b.Read(); !ok || v != 7 {
		t.Errorf("expected 7, got %v (ok=%v)", v, ok)
	}
}

func TestHooks(t *testing.T) {
	var kinds []EventKind
	hook := HookFunc(func(e Event) { kinds = append(kinds, e.Kind) })

	scope := NewScope(nil)
	feed := source.NewSubject[int]()
	defer feed.Close()

	updates := 0
	b := New[int](scope,
		WithName("hooked"),
		WithHook(Multi(hook, nil)),
		OnUpdate(func() { updates++ }))
	if err := b.Bind(feed); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	feed.Publish(1)
	scope.Dispose()

	want := []EventKind{EventSubscribe, EventEmit, EventUnsubscribe, EventDispose}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], kinds[i])
		}
	}
	if updates != 1 {
		t.Errorf("expected 1 update callback, got %d", updates)
	}
}

func TestSubscribeErrorUnwrapping(t *testing.T) {
	scope := NewScope(nil)
	defer scope.Dispose()

	cause := errors.New("stream offline")
	feed := tethertest.NewScript[int]("feed", nil)
	feed.FailWith(cause)

	b := New[int](scope, WithName("flaky"))
	err := b.Bind(feed)
	if err == nil {
		t.Fatalf("expected an error from a failing source")
	}

	var subErr *SubscribeError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected a SubscribeError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the source's error in the chain, got %v", err)
	}
	if b.State() != StateUnbound {
		t.Errorf("expected the binder to stay unbound after a failed bind, got %v", b.State())
	}

	// The binder recovers once the source comes back.
	feed.FailWith(nil)
	if err := b.Bind(feed); err != nil {
		t.Fatalf("rebind after recovery failed: %v", err)
	}
	feed.Emit(3)
	if v, ok := b.Read(); !ok || v != 3 {
		t.Errorf("expected 3 after recovery, got %v (ok=%v)", v, ok)
	}
}

func TestScopeTreeDisposesChildrenFirst(t *testing.T) {
	var order []string

	parent := NewScope(nil)
	child := NewScope(parent)
	parent.OnCleanup(func() { order = append(order, "parent") })
	child.OnCleanup(func() { order = append(order, "child") })

	parent.Dispose()

	if len(order) != 2 || order[0] != "child" || order[1] != "parent" {
		t.Errorf("expected child cleanup before parent, got %v", order)
	}
}
