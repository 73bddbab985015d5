// Package ring implements the dynamically resizing circular buffer that
// backs a pipe: fixed-width records ("elements") packed into a contiguous
// byte slice with wrap-around, growing and shrinking by powers of two.
//
// Semantics
//   - Records are elemSize bytes each; elemSize is fixed at creation.
//   - Capacity (record slots) is always a power of two and never below
//     MinCap.
//   - Empty: begin == end. Live bytes run [begin,end) when begin < end,
//     or [begin,bufend) ++ [0,end) when begin > end (wrapped). An exactly
//     full buffer also has begin == end; elemCount tells it from empty.
//   - A Buffer is not safe for concurrent use on its own — it holds no lock
//     and signals nothing. Callers (see the pipe package) own a mutex and
//     serialize every call themselves; the wrap/grow/shrink arithmetic here
//     never blocks and never contends.
package ring

import "github.com/rharrison/pipe/x/mathx"

// DefaultMinCapacity is the smallest capacity a Buffer shrinks to unless
// Reserve has raised the floor.
const DefaultMinCapacity = 32

// Buffer is the storage engine: elemSize-sized records laid end to end in
// buf, wrapping at len(buf) ("bufend").
type Buffer struct {
	elemSize  int
	minCap    int
	capacity  int // record slots, not bytes
	elemCount int

	buf        []byte
	begin, end int // byte offsets into buf
}

// New allocates a Buffer for elemSize-byte records at the default minimum
// capacity. elemSize must be non-zero.
func New(elemSize int) *Buffer {
	return NewWithMinCapacity(elemSize, DefaultMinCapacity)
}

// NewWithMinCapacity is New with an explicit starting floor, used when a
// caller already knows it will Reserve a larger size immediately.
func NewWithMinCapacity(elemSize, minCap int) *Buffer {
	if elemSize <= 0 {
		panic("ring: elemSize must be > 0")
	}
	if minCap <= 0 {
		minCap = DefaultMinCapacity
	}
	cap := nextPow2(minCap)
	return &Buffer{
		elemSize: elemSize,
		minCap:   cap,
		capacity: cap,
		buf:      make([]byte, cap*elemSize),
	}
}

// ElemSize returns the fixed per-record size in bytes.
func (b *Buffer) ElemSize() int { return b.elemSize }

// Len returns the number of live records.
func (b *Buffer) Len() int { return b.elemCount }

// Cap returns the number of record slots currently allocated.
func (b *Buffer) Cap() int { return b.capacity }

// MinCap returns the floor capacity will not shrink below.
func (b *Buffer) MinCap() int { return b.minCap }

func (b *Buffer) bufend() int { return len(b.buf) }

// Push appends n records (n*elemSize bytes) read from src, growing the
// buffer first if necessary. src must hold at least n*elemSize bytes.
func (b *Buffer) Push(src []byte, n int) {
	if n <= 0 {
		return
	}
	need := b.elemCount + n
	if need > b.capacity {
		b.resizeTo(nextPow2(need))
	}

	nbytes := n * b.elemSize
	firstLen := b.bufend() - b.end
	if firstLen > nbytes {
		firstLen = nbytes
	}
	copy(b.buf[b.end:b.end+firstLen], src[:firstLen])
	if rem := nbytes - firstLen; rem > 0 {
		copy(b.buf[0:rem], src[firstLen:nbytes])
	}

	b.end += nbytes
	if b.end >= b.bufend() {
		b.end -= b.bufend()
	}
	b.elemCount += n
}

// Pop removes up to count records into dst, returning the number actually
// removed: min(count, Len()). dst must hold at least count*elemSize bytes.
func (b *Buffer) Pop(dst []byte, count int) int {
	k := mathx.Min(count, b.elemCount)
	if k <= 0 {
		return 0
	}
	b.elemCount -= k

	nbytes := k * b.elemSize
	firstLen := b.bufend() - b.begin
	if firstLen > nbytes {
		firstLen = nbytes
	}
	copy(dst[:firstLen], b.buf[b.begin:b.begin+firstLen])
	if rem := nbytes - firstLen; rem > 0 {
		copy(dst[firstLen:nbytes], b.buf[0:rem])
	}

	b.begin += nbytes
	if b.begin >= b.bufend() {
		b.begin -= b.bufend()
	}

	b.maybeShrink()
	return k
}

// maybeShrink implements the 4x/2x shrink policy: once occupancy drops to a
// quarter of capacity, halve it — refusing if that would go below minCap or
// below the live record count. The asymmetry (grow trigger at full, shrink
// trigger at a quarter) damps oscillation under bursty push/pop
// interleavings.
func (b *Buffer) maybeShrink() {
	if b.elemCount > b.capacity/4 {
		return
	}
	target := b.capacity / 2
	if target < b.minCap || target < b.elemCount {
		return
	}
	b.resizeTo(target)
}

// Reserve raises the minimum capacity to n and resizes to accommodate it.
// It never shrinks: if n <= Len(), nothing changes; otherwise minCap is
// raised to n (when larger), and the buffer is resized only if the
// power-of-two target exceeds the current capacity. n == 0 resets the minimum
// capacity to DefaultMinCapacity without forcing a shrink — the ordinary
// shrink guard still applies on the next Pop.
func (b *Buffer) Reserve(n int) {
	if n == 0 {
		b.minCap = DefaultMinCapacity
		return
	}
	if n <= b.elemCount {
		return
	}
	if n > b.minCap {
		b.minCap = n
	}
	target := nextPow2(mathx.Max(n, b.minCap))
	if target > b.capacity {
		b.resizeTo(target)
	}
}

// resizeTo reallocates the backing buffer to newCap record slots, copying
// the live region linearised (wrap collapsed to a single prefix starting at
// offset 0). It is the only reallocation path, used for both growth and
// shrinkage.
func (b *Buffer) resizeTo(newCap int) {
	nb := make([]byte, newCap*b.elemSize)
	live := b.elemCount * b.elemSize

	firstLen := b.bufend() - b.begin
	if firstLen > live {
		firstLen = live
	}
	copy(nb[:firstLen], b.buf[b.begin:b.begin+firstLen])
	if rem := live - firstLen; rem > 0 {
		copy(nb[firstLen:live], b.buf[0:rem])
	}

	b.buf = nb
	b.capacity = newCap
	b.begin = 0
	b.end = live
	if b.end == b.bufend() {
		b.end = 0
	}
}

// nextPow2 returns the smallest power of two >= x, or x itself if no such
// power of two is representable as an int on this platform.
func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	n := x - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	if n <= 0 {
		return x
	}
	return n
}
