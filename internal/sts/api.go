package sts

import "sts/internal/reduce"

// CallerWorker returns the master thread's *Worker context (STS thread id
// 0), the one the goroutine that called Startup uses to drive
// NextStep/Run/ParallelFor/Wait, per spec.md 4.8's "main thread" role.
func CallerWorker() *Worker { return rt.worker(0) }

// Run invokes fn synchronously on the calling thread, the ad-hoc entry
// point spec.md 4.10 describes for code with no explicit schedule set up.
// It is equivalent to DefaultSchedule().Run(w, "default", fn).
func Run(w *Worker, fn func(w *Worker)) {
	DefaultSchedule().Run(w, "default", fn)
}

// ParallelFor fans body out over [start,end) across the default schedule's
// even per-thread split, blocking until every thread's slice has run.
func ParallelFor(w *Worker, start, end int64, body func(w *Worker, i int64)) {
	DefaultSchedule().ParallelFor(w, "default", start, end, body)
}

// ParallelForDefaultReduce is the reduction-bearing form of ParallelFor
// against the default schedule.
func ParallelForDefaultReduce[T reduce.Number](w *Worker, start, end int64, body func(w *Worker, i int64), red *reduce.TaskReduction[T]) {
	ParallelForReduce(DefaultSchedule(), w, "default", start, end, body, red)
}
