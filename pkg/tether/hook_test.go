package tether

import "testing"

func TestEventKindString(t *testing.T) {
	cases := []struct {
		kind EventKind
		want string
	}{
		{EventSubscribe, "subscribe"},
		{EventSubscribeError, "subscribe_error"},
		{EventUnsubscribe, "unsubscribe"},
		{EventEmit, "emit"},
		{EventDiscard, "discard"},
		{EventDispose, "dispose"},
		{EventLeak, "leak"},
		{EventKind(0), "unknown"},
		{EventKind(200), "unknown"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestHookFunc(t *testing.T) {
	var got Event
	h := HookFunc(func(e Event) { got = e })

	h.Observe(Event{Binder: "x", Kind: EventEmit})

	if got.Binder != "x" || got.Kind != EventEmit {
		t.Errorf("HookFunc should forward the event, got %+v", got)
	}
}

func TestMulti(t *testing.T) {
	var first, second []EventKind
	a := HookFunc(func(e Event) { first = append(first, e.Kind) })
	c := HookFunc(func(e Event) { second = append(second, e.Kind) })

	m := Multi(a, nil, c)
	m.Observe(Event{Kind: EventSubscribe})
	m.Observe(Event{Kind: EventDispose})

	want := []EventKind{EventSubscribe, EventDispose}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("hook a event %d: expected %v, got %v", i, want[i], first[i])
		}
		if second[i] != want[i] {
			t.Errorf("hook c event %d: expected %v, got %v", i, want[i], second[i])
		}
	}
}

func TestMultiEmpty(t *testing.T) {
	m := Multi()
	// A no-op hook must still be safe to call.
	m.Observe(Event{Kind: EventEmit})

	if m == nil {
		t.Error("Multi() should never return nil")
	}
}

func TestMultiSingle(t *testing.T) {
	n := 0
	h := HookFunc(func(Event) { n++ })

	m := Multi(nil, h, nil)
	m.Observe(Event{Kind: EventEmit})

	if n != 1 {
		t.Errorf("expected single hook invoked once, got %d", n)
	}
}
