package source

import (
	"errors"
	"sync"
	"testing"
)

func TestSubjectPublish(t *testing.T) {
	s := NewSubject[int]()

	var got []int
	cancel, err := s.Subscribe(func(v int) { got = append(got, v) })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	s.Publish(1)
	s.Publish(2)
	s.Publish(3)

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestSubjectDeliveryOrder(t *testing.T) {
	s := NewSubject[int]()

	var order []string
	c1, err := s.Subscribe(func(int) { order = append(order, "first") })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer c1()
	c2, err := s.Subscribe(func(int) { order = append(order, "second") })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer c2()

	s.Publish(0)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected registration-order delivery, got %v", order)
	}
}

func TestSubjectCancel(t *testing.T) {
	s := NewSubject[int]()

	n := 0
	cancel, err := s.Subscribe(func(int) { n++ })
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	s.Publish(1)
	cancel()
	cancel() // idempotent
	s.Publish(2)

	if n != 1 {
		t.Errorf("expected 1 delivery before cancel, got %d", n)
	}
	if s.Len() != 0 {
		t.Errorf("expected 0 subscribers after cancel, got %d", s.Len())
	}
}

func TestSubjectClose(t *testing.T) {
	s := NewSubject[int]()

	n := 0
	if _, err := s.Subscribe(func(int) { n++ }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	s.Close()
	s.Close() // idempotent
	s.Publish(1)

	if n != 0 {
		t.Errorf("publish after close should not deliver, got %d", n)
	}

	if _, err := s.Subscribe(func(int) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSubjectSubscribeDuringPublish(t *testing.T) {
	s := NewSubject[int]()

	// A callback that subscribes mid-publish must not deadlock, and the
	// new subscriber only sees later values.
	var nested []int
	if _, err := s.Subscribe(func(v int) {
		if v == 1 {
			if _, err := s.Subscribe(func(v int) { nested = append(nested, v) }); err != nil {
				t.Errorf("nested subscribe failed: %v", err)
			}
		}
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	s.Publish(1)
	s.Publish(2)

	if len(nested) != 1 || nested[0] != 2 {
		t.Errorf("nested subscriber should see only later values, got %v", nested)
	}
}

func TestSubjectCancelDuringPublish(t *testing.T) {
	s := NewSubject[int]()

	var cancel func()
	n := 0
	cancel, err := s.Subscribe(func(int) {
		n++
		cancel()
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	s.Publish(1)
	s.Publish(2)

	if n != 1 {
		t.Errorf("self-cancelling subscriber should see 1 value, got %d", n)
	}
}

func TestSubjectConcurrentPublish(t *testing.T) {
	s := NewSubject[int]()

	var mu sync.Mutex
	n := 0
	cancel, err := s.Subscribe(func(int) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Publish(i)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if n != 800 {
		t.Errorf("expected 800 deliveries, got %d", n)
	}
}
