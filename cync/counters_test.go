package cync

import "testing"

func TestOuterCounter_StartsAtOneAndIncrements(t *testing.T) {
	c := newOuterCounter()
	if v := c.Next(); v != 1 {
		t.Fatalf("first Next() = %d, want 1", v)
	}
	if v := c.Next(); v != 2 {
		t.Fatalf("second Next() = %d, want 2", v)
	}
}

func TestOuterCounter_WrapsAt65536(t *testing.T) {
	c := newOuterCounter()
	c.v.Store(65535)
	if v := c.Next(); v != 65535 {
		t.Fatalf("Next() = %d, want 65535", v)
	}
	if v := c.Next(); v != 1 {
		t.Fatalf("Next() after wrap = %d, want 1", v)
	}
}

func TestInnerCounter_StartsAtInitial(t *testing.T) {
	c := newInnerCounter()
	if v := c.Next(); v != innerCounterInitial {
		t.Fatalf("first Next() = %#x, want %#x", v, innerCounterInitial)
	}
}

func TestInnerCounter_WrapsAtMax(t *testing.T) {
	c := newInnerCounter()
	c.v.Store(0xFFFFFFFE)
	if v := c.Next(); v != 0xFFFFFFFE {
		t.Fatalf("Next() = %#x, want 0xFFFFFFFE", v)
	}
	if v := c.Next(); v != innerCounterInitial {
		t.Fatalf("Next() after wrap = %#x, want %#x", v, innerCounterInitial)
	}
}

func TestCounters_ConcurrentNextNeverRepeats(t *testing.T) {
	c := newOuterCounter()
	const n = 200
	seen := make(chan uint16, n)
	done := make(chan struct{})
	for range n {
		go func() {
			seen <- c.Next()
		}()
	}
	go func() { close(done) }()
	<-done

	values := make(map[uint16]int, n)
	for range n {
		values[<-seen]++
	}
	for v, count := range values {
		if count > 1 {
			t.Fatalf("value %d produced %d times, want unique", v, count)
		}
	}
}
