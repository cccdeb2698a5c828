// Package barrier implements the four barrier flavors the scheduler uses to
// coordinate its worker pool: a many-to-one latch (MO), a one-to-many
// arrival counter (OM), a reusable many-to-many rendezvous (MM), and a
// reusable many-to-one barrier keyed by caller id (RMO). All blocking is
// implemented on top of internal/spin; there are no mutexes or channels on
// the hot path.
package barrier

import (
	"sync/atomic"

	"sts/internal/spin"
)

// MOBarrier is a single latch: one publisher calls Open to release every
// waiter, Close re-latches it, and Wait spins until it is open. It is the
// begin-barrier a Task uses to publish its functor once per step.
type MOBarrier struct {
	open atomic.Bool
}

// NewMOBarrier returns a closed MOBarrier.
func NewMOBarrier() *MOBarrier {
	b := &MOBarrier{}
	b.open.Store(false)
	return b
}

func (b *MOBarrier) Open()  { b.open.Store(true) }
func (b *MOBarrier) Close() { b.open.Store(false) }
func (b *MOBarrier) Wait()  { spin.Until(&b.open, true) }

// IsOpen is a non-blocking probe, used to check whether a task's functor has
// been published yet without spinning (e.g. when looking for pause targets).
func (b *MOBarrier) IsOpen() bool { return b.open.Load() }

// OMBarrier is an arrival counter: Close(n) arms it for n arrivals,
// MarkArrival records one, and Wait spins until every arrival has been
// recorded. AddThread grows the expected arrival count mid-life, used when a
// helper thread steals a tail of work and becomes another participant in the
// task's end-of-step accounting.
type OMBarrier struct {
	remaining atomic.Int64
}

// NewOMBarrier returns an OMBarrier armed for n arrivals.
func NewOMBarrier(n int) *OMBarrier {
	b := &OMBarrier{}
	b.remaining.Store(int64(n))
	return b
}

func (b *OMBarrier) Close(n int)  { b.remaining.Store(int64(n)) }
func (b *OMBarrier) MarkArrival() { b.remaining.Add(-1) }
func (b *OMBarrier) AddThread()   { b.remaining.Add(1) }
func (b *OMBarrier) Wait()        { spin.Until(&b.remaining, 0) }

// Remaining reports the number of outstanding arrivals, for introspection
// only (PrintSubTaskTimes-style diagnostics); never read on the hot path.
func (b *OMBarrier) Remaining() int64 { return b.remaining.Load() }

// MMBarrier is a fixed-size, reusable N-party rendezvous usable inside a
// loop body without any external reset between rounds. The ordering here —
// wait for released to drain, then register arrival, then wait for the full
// party, then register release, with the thread that observes the final
// release resetting both counters — is load-bearing and must not be
// reordered: it is what lets the same N threads re-enter next round without
// racing a slow thread still leaving the previous round.
type MMBarrier struct {
	n        int32
	waiting  atomic.Int32
	released atomic.Int32
}

// NewMMBarrier returns an MMBarrier sized for exactly n parties.
func NewMMBarrier(n int) *MMBarrier {
	if n <= 0 {
		panic("barrier: MMBarrier size must be > 0")
	}
	return &MMBarrier{n: int32(n)}
}

// Enter blocks until all n parties have called Enter for this round.
func (b *MMBarrier) Enter() {
	spin.Until(&b.released, int32(0))
	b.waiting.Add(1)
	spin.Until(&b.waiting, b.n)
	if b.released.Add(1) == b.n {
		b.waiting.Store(0)
		b.released.Store(0)
	}
}

// RMOBarrier is a reusable many-to-one barrier keyed by caller id: an opener
// increments a shared counter each time it opens, and each waiter tracks its
// own private counter of how many times it has waited, so a given waiter can
// re-enter after the next Open without any external reset coordinating all
// waiters.
type RMOBarrier struct {
	locksOpened atomic.Int64
	lockNum     []int64
}

// NewRMOBarrier returns an RMOBarrier with capacity for numCallers distinct
// caller ids (0..numCallers-1).
func NewRMOBarrier(numCallers int) *RMOBarrier {
	return &RMOBarrier{lockNum: make([]int64, numCallers)}
}

// Open releases one round of waiters.
func (b *RMOBarrier) Open() { b.locksOpened.Add(1) }

// Wait blocks the given caller until the barrier has been opened at least as
// many times as this caller has called Wait, including this call. Only the
// caller identified by tid may call Wait(tid); it owns lockNum[tid]
// exclusively.
func (b *RMOBarrier) Wait(tid int) {
	b.lockNum[tid]++
	spin.UntilGE(&b.locksOpened, b.lockNum[tid])
}
