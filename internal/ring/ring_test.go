package ring

import (
	"sync"
	"testing"
)

func TestPushPopFIFO(t *testing.T) {
	q := New[int](4)
	for i := 0; i < 4; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: got %d, ok=%v", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop on empty queue should fail")
	}
}

func TestPushDropsWhenFull(t *testing.T) {
	q := New[int](2) // rounds to power of 2, capacity 2
	cap := len(q.buf)
	for i := 0; i < cap; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d should succeed while under capacity", i)
		}
	}
	if q.Push(999) {
		t.Fatal("push beyond capacity should fail")
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", q.Dropped())
	}
	// Draining makes room again.
	if _, ok := q.Pop(); !ok {
		t.Fatal("expected a pop to succeed")
	}
	if !q.Push(999) {
		t.Fatal("push after drain should succeed")
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	q := New[int](1024)
	const n = 100000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(i) {
				// spin until there's room; single consumer drains fast
			}
		}
	}()

	got := make([]int, 0, n)
	for len(got) < n {
		if v, ok := q.Pop(); ok {
			got = append(got, v)
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("ordering broken at index %d: got %d", i, v)
			break
		}
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
