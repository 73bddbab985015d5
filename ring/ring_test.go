package ring

import "testing"

func TestSingleThreadedRoundTrip(t *testing.T) {
	b := New(1)
	src := []byte("HELLO")
	b.Push(src, len(src))
	dst := make([]byte, len(src))
	n := b.Pop(dst, len(src))
	if n != len(src) {
		t.Fatalf("Pop returned %d, want %d", n, len(src))
	}
	if string(dst) != "HELLO" {
		t.Fatalf("Pop = %q, want HELLO", dst)
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
	if err := b.Check(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestForcedWrapAcrossBufend(t *testing.T) {
	b := New(1) // elemSize=1, default minCap=32

	first := make([]byte, 30)
	for i := range first {
		first[i] = byte(i) // 0x00..0x1D
	}
	b.Push(first, len(first))

	drained := make([]byte, 20)
	if n := b.Pop(drained, 20); n != 20 {
		t.Fatalf("first Pop = %d, want 20", n)
	}

	second := make([]byte, 20)
	for i := range second {
		second[i] = byte(0x1E + i) // 0x1E..0x31, wraps past bufend=32
	}
	b.Push(second, len(second))

	out := make([]byte, 30)
	if n := b.Pop(out, 30); n != 30 {
		t.Fatalf("final Pop = %d, want 30", n)
	}
	for i, v := range out {
		want := byte(0x14 + i) // 0x14..0x31
		if v != want {
			t.Fatalf("out[%d] = %#x, want %#x", i, v, want)
		}
	}
	if err := b.Check(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestForcedGrowth(t *testing.T) {
	b := NewWithMinCapacity(4, 2)
	records := make([]byte, 10*4)
	for i := range records {
		records[i] = byte(i)
	}
	b.Push(records, 10)
	if b.Cap() != 16 {
		t.Fatalf("Cap() = %d, want 16 (next pow2 >= 10)", b.Cap())
	}
	out := make([]byte, 10*4)
	if n := b.Pop(out, 10); n != 10 {
		t.Fatalf("Pop = %d, want 10", n)
	}
	for i, v := range out {
		if v != byte(i) {
			t.Fatalf("out[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestShrinkNeverBelowMinCapOrLen(t *testing.T) {
	b := NewWithMinCapacity(1, 2)
	src := make([]byte, 100)
	b.Push(src, 100)
	capAfterGrowth := b.Cap()
	if capAfterGrowth < 100 {
		t.Fatalf("Cap() = %d, want >= 100", capAfterGrowth)
	}

	dst := make([]byte, 98)
	b.Pop(dst, 98)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if b.Cap() < b.MinCap() {
		t.Fatalf("Cap() = %d fell below MinCap() = %d", b.Cap(), b.MinCap())
	}
	if b.Cap() < b.Len() {
		t.Fatalf("Cap() = %d fell below Len() = %d", b.Cap(), b.Len())
	}
	if b.Cap() >= capAfterGrowth {
		t.Fatalf("Cap() = %d did not shrink from %d", b.Cap(), capAfterGrowth)
	}
}

func TestReserveRaisesMinCapAndResets(t *testing.T) {
	b := New(1)
	b.Reserve(100)
	if b.Cap() < 100 {
		t.Fatalf("Cap() = %d after Reserve(100), want >= 100", b.Cap())
	}
	if b.MinCap() < 100 {
		t.Fatalf("MinCap() = %d after Reserve(100), want >= 100", b.MinCap())
	}

	b.Reserve(0)
	if b.MinCap() != DefaultMinCapacity {
		t.Fatalf("MinCap() after Reserve(0) = %d, want %d", b.MinCap(), DefaultMinCapacity)
	}
	// Reserve(0) never shrinks immediately; only the ordinary pop-time guard does.
	if b.Cap() < 100 {
		t.Fatalf("Cap() = %d shrank eagerly on Reserve(0)", b.Cap())
	}
}

func TestReserveNoopWhenNNotAboveLen(t *testing.T) {
	b := New(1) // elemSize=1, default minCap=32
	src := make([]byte, 50)
	b.Push(src, 50) // grows capacity to 64, elemCount=50
	if b.Cap() != 64 {
		t.Fatalf("Cap() after push = %d, want 64", b.Cap())
	}

	b.Reserve(40) // 40 <= elemCount(50): spec says this is a no-op
	if b.MinCap() != DefaultMinCapacity {
		t.Fatalf("MinCap() after Reserve(40) = %d, want unchanged %d", b.MinCap(), DefaultMinCapacity)
	}

	dst := make([]byte, 48)
	b.Pop(dst, 48) // elemCount drops to 2, well under cap/4
	if b.Cap() < DefaultMinCapacity {
		t.Fatalf("Cap() = %d fell below DefaultMinCapacity %d", b.Cap(), DefaultMinCapacity)
	}
	if b.Cap() > DefaultMinCapacity {
		t.Fatalf("Cap() = %d did not shrink to MinCap() %d; Reserve(40) wrongly raised the floor", b.Cap(), DefaultMinCapacity)
	}
}

func TestNextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {31, 32}, {32, 32}, {33, 64},
	}
	for _, c := range cases {
		if got := nextPow2(c.in); got != c.want {
			t.Fatalf("nextPow2(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBeginNeverEqualsBufend(t *testing.T) {
	b := New(1)
	src := make([]byte, 32)
	dst := make([]byte, 32)
	for i := 0; i < 100; i++ {
		b.Push(src, 32)
		b.Pop(dst, 32)
		if err := b.Check(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}

func TestExactlyFullBufferWrapsBeginToEnd(t *testing.T) {
	b := New(1) // default minCap=32, elemSize=1
	src := make([]byte, 32)
	for i := range src {
		src[i] = byte(i)
	}
	b.Push(src, 32) // elem_count lands exactly on capacity, no growth triggered
	if b.Len() != 32 || b.Cap() != 32 {
		t.Fatalf("Len()=%d Cap()=%d, want 32,32", b.Len(), b.Cap())
	}
	if err := b.Check(); err != nil {
		t.Fatalf("invariants on exactly-full buffer: %v", err)
	}
	out := make([]byte, 32)
	if n := b.Pop(out, 32); n != 32 {
		t.Fatalf("Pop = %d, want 32", n)
	}
	for i, v := range out {
		if v != byte(i) {
			t.Fatalf("out[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestPanicsOnZeroElemSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for elemSize=0")
		}
	}()
	New(0)
}
