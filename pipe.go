// Package pipe implements a bounded, thread-safe, multi-producer /
// multi-consumer byte-granular FIFO queue: a "pipe" that transports
// fixed-size records between concurrent goroutines.
//
// A pipe is reached through three handle kinds that share one underlying
// structure: Bidirectional (counts as one producer and one consumer),
// Producer (producer only), and Consumer (consumer only). The type system
// enforces the split — a Producer has no Pop method, a Consumer has no
// Push method — rather than relying on a single struct with a role flag a
// caller could misuse. The pipe is destroyed only once every handle of
// every kind has been freed; consumers detect permanent end-of-stream when
// the producer refcount drops to zero.
//
// One mutex guards the whole structure; Push never blocks (the ring grows
// to accommodate), Pop blocks until enough records are available or all
// producers have departed.
package pipe

import (
	"sync"

	"github.com/rharrison/pipe/errcode"
	"github.com/rharrison/pipe/ring"
)

// Pipe is the shared object. All fields are guarded by mu except buf's
// ElemSize, which is fixed at construction and never mutated.
type Pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf *ring.Buffer

	producerRefs int
	consumerRefs int
	destroyed    bool // true once both refcounts have reached zero
}

// Bidirectional, Producer and Consumer are capability-scoped handles onto a
// shared Pipe. Each carries only the methods its role is allowed to call.
type Bidirectional struct{ p *Pipe }
type Producer struct{ p *Pipe }
type Consumer struct{ p *Pipe }

// New creates a pipe for elemSize-byte records and returns a Bidirectional
// handle. Both refcounts start at 1. elemSize must be non-zero.
func New(elemSize int) (*Bidirectional, error) {
	if elemSize <= 0 {
		return nil, &errcode.E{C: errcode.ZeroElemSize, Op: "pipe.New"}
	}
	p := &Pipe{
		buf:          ring.New(elemSize),
		producerRefs: 1,
		consumerRefs: 1,
	}
	p.cond = sync.NewCond(&p.mu)
	return &Bidirectional{p}, nil
}

// -----------------------------------------------------------------------------
// Handle minting
// -----------------------------------------------------------------------------

// NewProducer mints a Producer-only handle onto the same pipe, incrementing
// the producer refcount.
func (h *Bidirectional) NewProducer() *Producer { return h.p.newProducer() }
func (h *Producer) NewProducer() *Producer      { return h.p.newProducer() }
func (h *Consumer) NewProducer() *Producer      { return h.p.newProducer() }

// NewConsumer mints a Consumer-only handle onto the same pipe, incrementing
// the consumer refcount.
func (h *Bidirectional) NewConsumer() *Consumer { return h.p.newConsumer() }
func (h *Producer) NewConsumer() *Consumer      { return h.p.newConsumer() }
func (h *Consumer) NewConsumer() *Consumer      { return h.p.newConsumer() }

func (p *Pipe) newProducer() *Producer {
	p.mu.Lock()
	debugAssert(!p.destroyed, "new producer on destroyed pipe")
	p.producerRefs++
	p.mu.Unlock()
	return &Producer{p}
}

func (p *Pipe) newConsumer() *Consumer {
	p.mu.Lock()
	debugAssert(!p.destroyed, "new consumer on destroyed pipe")
	p.consumerRefs++
	p.mu.Unlock()
	return &Consumer{p}
}

// -----------------------------------------------------------------------------
// Release
// -----------------------------------------------------------------------------

// Free releases the bidirectional handle, decrementing both refcounts. It
// reports errcode.FreedHandle rather than mutating further if either
// refcount is already zero — freeing past zero is a contract violation
// (§7), but one this implementation reports instead of leaving undefined,
// the same way Push/Pop report NilBuffer/ShortBuffer instead of trusting
// the caller. Handles carry no freed flag of their own: a second Free of one
// handle is reported only once the pipe-wide refcount has reached zero.
func (h *Bidirectional) Free() error {
	p := h.p
	p.mu.Lock()
	if p.producerRefs == 0 || p.consumerRefs == 0 {
		p.mu.Unlock()
		return &errcode.E{C: errcode.FreedHandle, Op: "Bidirectional.Free"}
	}
	p.producerRefs--
	p.consumerRefs--
	zero := p.producerRefs == 0
	p.destroyed = zero && p.consumerRefs == 0
	p.mu.Unlock()
	if zero {
		p.cond.Broadcast()
	}
	return nil
}

// Free releases the producer handle. If this was the last producer,
// blocked consumers are woken so they can observe end-of-stream.
func (h *Producer) Free() error {
	p := h.p
	p.mu.Lock()
	if p.producerRefs == 0 {
		p.mu.Unlock()
		return &errcode.E{C: errcode.FreedHandle, Op: "Producer.Free"}
	}
	p.producerRefs--
	zero := p.producerRefs == 0
	p.destroyed = zero && p.consumerRefs == 0
	p.mu.Unlock()
	if zero {
		p.cond.Broadcast()
	}
	return nil
}

// Free releases the consumer handle.
func (h *Consumer) Free() error {
	p := h.p
	p.mu.Lock()
	if p.consumerRefs == 0 {
		p.mu.Unlock()
		return &errcode.E{C: errcode.FreedHandle, Op: "Consumer.Free"}
	}
	p.consumerRefs--
	p.destroyed = p.producerRefs == 0 && p.consumerRefs == 0
	p.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------
// Push (producer-capable handles)
// -----------------------------------------------------------------------------

// Push atomically appends count records read from src. It never blocks on
// space — the buffer grows to accommodate. It fails if src is too short,
// count is negative, or every consumer handle has already been freed (see
// DESIGN.md's Open Question decision on push-after-no-consumers).
func (h *Bidirectional) Push(src []byte, count int) error { return h.p.push(src, count) }
func (h *Producer) Push(src []byte, count int) error      { return h.p.push(src, count) }

func (p *Pipe) push(src []byte, count int) error {
	if count < 0 {
		return &errcode.E{C: errcode.NegativeCount, Op: "Push"}
	}
	if count == 0 {
		return nil
	}
	if src == nil {
		return &errcode.E{C: errcode.NilBuffer, Op: "Push"}
	}
	if len(src) < count*p.buf.ElemSize() {
		return &errcode.E{C: errcode.ShortBuffer, Op: "Push"}
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return &errcode.E{C: errcode.Closed, Op: "Push"}
	}
	debugCheck(p)
	if p.consumerRefs == 0 {
		p.mu.Unlock()
		return &errcode.E{C: errcode.NoConsumers, Op: "Push"}
	}
	p.buf.Push(src, count)
	debugCheck(p)
	p.mu.Unlock()

	// Broadcast after unlock: minimises the window in which a woken
	// consumer finds the mutex still held.
	p.cond.Broadcast()
	return nil
}

// -----------------------------------------------------------------------------
// Pop (consumer-capable handles)
// -----------------------------------------------------------------------------

// Pop blocks until at least count records are available or every producer
// handle has been freed, then removes and returns min(count, available)
// records into dst. A return of 0 with a nil error means the pipe is empty
// and permanently will stay that way (end-of-stream) — not an error
// condition.
func (h *Bidirectional) Pop(dst []byte, count int) (int, error) { return h.p.popBlocking(dst, count) }
func (h *Consumer) Pop(dst []byte, count int) (int, error)      { return h.p.popBlocking(dst, count) }

// PopEager returns immediately with up to count records currently
// available, never waiting. It returns 0 if the pipe is empty right now,
// regardless of whether producers remain.
func (h *Bidirectional) PopEager(dst []byte, count int) (int, error) { return h.p.popEager(dst, count) }
func (h *Consumer) PopEager(dst []byte, count int) (int, error)      { return h.p.popEager(dst, count) }

func checkPopArgs(dst []byte, count int, elemSize int) error {
	if count < 0 {
		return &errcode.E{C: errcode.NegativeCount, Op: "Pop"}
	}
	if count > 0 && dst == nil {
		return &errcode.E{C: errcode.NilBuffer, Op: "Pop"}
	}
	if len(dst) < count*elemSize {
		return &errcode.E{C: errcode.ShortBuffer, Op: "Pop"}
	}
	return nil
}

func (p *Pipe) popBlocking(dst []byte, count int) (int, error) {
	if err := checkPopArgs(dst, count, p.buf.ElemSize()); err != nil {
		return 0, err
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return 0, &errcode.E{C: errcode.Closed, Op: "Pop"}
	}
	debugCheck(p)
	for p.buf.Len() < count && p.producerRefs > 0 {
		p.cond.Wait()
	}
	k := p.buf.Pop(dst, count)
	debugCheck(p)
	p.mu.Unlock()
	return k, nil
}

func (p *Pipe) popEager(dst []byte, count int) (int, error) {
	if err := checkPopArgs(dst, count, p.buf.ElemSize()); err != nil {
		return 0, err
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return 0, &errcode.E{C: errcode.Closed, Op: "Pop"}
	}
	debugCheck(p)
	k := p.buf.Pop(dst, count)
	debugCheck(p)
	p.mu.Unlock()
	return k, nil
}

// -----------------------------------------------------------------------------
// Reserve (any handle)
// -----------------------------------------------------------------------------

// Reserve raises the pipe's minimum capacity to n, resizing immediately if
// that is larger than the current capacity. If n does not exceed the number
// of live records, nothing changes. n == 0 resets the minimum to
// ring.DefaultMinCapacity.
func (h *Bidirectional) Reserve(n int) error { return h.p.reserve(n) }
func (h *Producer) Reserve(n int) error      { return h.p.reserve(n) }
func (h *Consumer) Reserve(n int) error      { return h.p.reserve(n) }

func (p *Pipe) reserve(n int) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return &errcode.E{C: errcode.Closed, Op: "Reserve"}
	}
	debugCheck(p)
	p.buf.Reserve(n)
	debugCheck(p)
	p.mu.Unlock()
	return nil
}
