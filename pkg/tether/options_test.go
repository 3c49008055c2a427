package tether

import "testing"

func TestWithHookComposes(t *testing.T) {
	// Repeated WithHook options stack rather than replace.
	var a, c int
	src := &fakeSource{}
	b := New[int](nil,
		WithHook(HookFunc(func(Event) { a++ })),
		WithHook(HookFunc(func(Event) { c++ })))

	if err := b.Bind(src); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	src.emit(1)

	// subscribe + emit for each hook
	if a != 2 || c != 2 {
		t.Errorf("expected both hooks to see 2 events, got %d and %d", a, c)
	}
}

func TestWithHookNil(t *testing.T) {
	src := &fakeSource{}
	b := New[int](nil, WithHook(nil))

	if err := b.Bind(src); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	src.emit(1) // must not panic
}

func TestOnUpdateNil(t *testing.T) {
	src := &fakeSource{}
	b := New[int](nil, OnUpdate(nil))

	if err := b.Bind(src); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	src.emit(1) // must not panic

	if v, ok := b.Read(); !ok || v != 1 {
		t.Errorf("expected (1, true), got (%d, %v)", v, ok)
	}
}
