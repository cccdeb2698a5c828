package barrier

import "sync/atomic"

// MOHyperBarrier is a log-depth many-to-one barrier, structured as a tree of
// locks with a configurable branching factor: thread 0 releases its
// immediate children, each of which releases its own children, and so on,
// instead of every waiter spinning on a single shared cache line as
// MOBarrier does. It trades a touch of latency (log_b(n) hops) for much
// better scalability at wide thread counts, and is provided as an
// alternative topology rather than the default — most schedules have few
// enough threads per task that the linear MOBarrier is simpler and fast
// enough.
type MOHyperBarrier struct {
	branch  int
	nthread int
	locks   [][]atomic.Bool
}

// NewMOHyperBarrier builds a hyper barrier for nthreads participants with
// the given branching factor (commonly 2).
func NewMOHyperBarrier(nthreads, branch int) *MOHyperBarrier {
	if branch < 2 {
		branch = 2
	}
	b := &MOHyperBarrier{branch: branch, nthread: nthreads}
	for levelLocks := 1; levelLocks <= nthreads/branch; levelLocks *= branch {
		level := make([]atomic.Bool, levelLocks)
		for i := range level {
			level[i].Store(true)
		}
		b.locks = append(b.locks, level)
	}
	return b
}

// Enter is called by every one of the nthreads participants, identified by a
// contiguous id starting at 0; id 0 is the opener and returns immediately
// after releasing its children, the rest block until their ancestor
// releases them.
func (b *MOHyperBarrier) Enter(tid int) {
	level := 0
	skip := b.nthread / b.branch
	for tid%skip != 0 {
		level++
		skip /= b.branch
	}
	if tid != 0 {
		idx := tid / skip / b.branch
		for b.locks[level][idx].Load() {
		}
		level++
		skip /= b.branch
	}
	for ; level < len(b.locks); level, skip = level+1, skip/b.branch {
		b.locks[level][tid/skip/b.branch].Store(false)
	}
}

// OMHyperBarrier is the one-to-many analog: leaves decrement their way up a
// tree of counters instead of all hammering one shared atomic, so a single
// OM barrier scales the same way MOHyperBarrier does for the many-to-one
// direction.
type OMHyperBarrier struct {
	branch int
	locks  [][]atomic.Int32
}

// NewOMHyperBarrier builds a hyper barrier for nthreads participants with
// the given branching factor.
func NewOMHyperBarrier(nthreads, branch int) *OMHyperBarrier {
	if branch < 2 {
		branch = 2
	}
	b := &OMHyperBarrier{branch: branch}
	for levelLocks := nthreads / branch; levelLocks >= 1; levelLocks /= branch {
		level := make([]atomic.Int32, levelLocks)
		for i := range level {
			level[i].Store(int32(branch - 1))
		}
		b.locks = append(b.locks, level)
	}
	return b
}

// Enter is called by every participant, identified by a contiguous id
// starting at 0. A participant whose id is a multiple of branch^k waits at
// each of the first k levels for its children to arrive before signalling
// its own parent; every other participant signals and returns at once. Id 0
// returns only after every other participant has arrived.
func (b *OMHyperBarrier) Enter(tid int) {
	bpow := b.branch
	for level := 0; level < len(b.locks); level, bpow = level+1, bpow*b.branch {
		if tid%bpow == 0 {
			for b.locks[level][tid/bpow].Load() != 0 {
			}
		} else {
			b.locks[level][tid/bpow].Add(-1)
			return
		}
	}
}
