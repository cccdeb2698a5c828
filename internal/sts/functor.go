package sts

import "sts/internal/stsrange"

// Range is the [0,1]-relative slice of a loop a functor is asked to run;
// LoopFunctor maps it onto its own absolute integer range with
// stsrange.IntRange.Subset. A BasicFunctor ignores it.
type Range = stsrange.RatioRange

// Functor is the single-method contract every published unit of work
// implements, mirroring ITaskFunctor::run(Range<Ratio>) in the original: a
// task's functor slot only ever needs one operation, whether the task is a
// point call or a loop. bal is non-nil only for a loop subtask whose Task
// has auto-balancing enabled (spec.md 5's SubTaskRunInfo); it lets
// LoopFunctor publish live progress for Task.StealWork to read.
type Functor interface {
	Run(w *Worker, r Range, bal *balanceInfo)
}

// BasicFunctor wraps a single point call; its Range and balance arguments
// are both ignored.
type BasicFunctor struct {
	Fn func(w *Worker)
}

// NewBasicFunctor builds a BasicFunctor around fn.
func NewBasicFunctor(fn func(w *Worker)) *BasicFunctor {
	return &BasicFunctor{Fn: fn}
}

// Run invokes the wrapped function.
func (f *BasicFunctor) Run(w *Worker, _ Range, _ *balanceInfo) {
	f.Fn(w)
}

// LoopFunctor wraps a loop body over an absolute integer range; Run maps
// its Ratio argument onto the concrete iterations this call is responsible
// for.
type LoopFunctor struct {
	Body func(w *Worker, i int64)
	Full stsrange.IntRange
}

// NewLoopFunctor builds a LoopFunctor over [start,end) running body.
func NewLoopFunctor(body func(w *Worker, i int64), start, end int64) *LoopFunctor {
	return &LoopFunctor{Body: body, Full: stsrange.IntRange{Start: start, End: end}}
}

// Run executes the concrete sub-range of the loop that r maps onto within
// Full. When bal is non-nil, iterations are pulled one at a time from its
// atomic current counter instead of a plain for loop, so a concurrent
// Task.StealWork call can observe remaining work and shrink bal.end.
func (f *LoopFunctor) Run(w *Worker, r Range, bal *balanceInfo) {
	s := f.Full.Subset(r)
	if bal == nil {
		for i := s.Start; i < s.End; i++ {
			f.Body(w, i)
		}
		return
	}
	bal.start.Store(s.Start)
	bal.current.Store(s.Start)
	bal.end.Store(s.End)
	for {
		i := bal.current.Load()
		if i >= bal.end.Load() {
			return
		}
		bal.current.Add(1)
		f.Body(w, i)
	}
}
