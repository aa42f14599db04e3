package ring

import "testing"

func TestTryPushPopOrderAndCapacity(t *testing.T) {
	t.Parallel()
	r := New[int](4) // effective capacity 3

	for i := 1; i <= 3; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d should succeed", i)
		}
	}
	if r.TryPush(4) {
		t.Fatal("push beyond effective capacity should fail")
	}
	if !r.Full() {
		t.Fatal("ring should report full")
	}

	for i := 1; i <= 3; i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("pop %d: got v=%d ok=%v", i, v, ok)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("pop on empty ring should fail")
	}
}

func TestBatchPushPop(t *testing.T) {
	t.Parallel()
	r := New[int](8) // effective capacity 7

	n := r.TryPushBatch([]int{1, 2, 3, 4, 5, 6, 7, 8, 9})
	if n != 7 {
		t.Fatalf("batch push = %d, want 7 (clamped to capacity)", n)
	}

	out := make([]int, 10)
	popped := r.TryPopBatch(out)
	if popped != 7 {
		t.Fatalf("batch pop = %d, want 7", popped)
	}
	for i := 0; i < 7; i++ {
		if out[i] != i+1 {
			t.Fatalf("value integrity violated at %d: got %d want %d", i, out[i], i+1)
		}
	}
}

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two capacity")
		}
	}()
	New[int](3)
}

func TestRingNonInterference(t *testing.T) {
	t.Parallel()
	r := New[int](16)
	pushed, popped := 0, 0
	for i := 0; i < 1000; i++ {
		if r.TryPush(i) {
			pushed++
		}
		if pushed-popped > 2 {
			if _, ok := r.TryPop(); ok {
				popped++
			}
		}
	}
	if r.Size() != pushed-popped {
		t.Fatalf("size=%d, want %d", r.Size(), pushed-popped)
	}
	if r.Size() < 0 || r.Size() > r.Capacity() {
		t.Fatalf("size %d out of bounds [0,%d]", r.Size(), r.Capacity())
	}
}
