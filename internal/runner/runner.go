// Package runner implements the coroutine mechanism: a long-lived goroutine
// that hosts one callable at a time and can be paused from inside the
// callable and continued from outside it. It is the mechanism a coroutine
// task runs inside of — pause() inside the task body yields control back to
// the scheduling loop instead of returning, the same way
// original_source/sts/lambdaRunner.h's OS-thread-per-coroutine does, except
// that a goroutine is already Go's stackful-coroutine primitive, so no
// extra OS thread is required per in-flight coroutine.
package runner

import (
	"sync"
)

// Runner hosts one callable at a time on its own goroutine. Run starts a
// fresh callable; inside that callable, Pause blocks the goroutine until the
// outside caller invokes Cont; outside the callable, Wait blocks until the
// inside calls Pause or the callable returns.
type Runner struct {
	core int

	mu        sync.Mutex
	cond      *sync.Cond
	running   bool
	finished  bool
	haltOnce  sync.Once
	halt      bool
	lambda    func()
	goroutine sync.WaitGroup
}

// New starts a Runner's goroutine, pinned (best-effort, via
// runtime.LockOSThread inside the goroutine) to the given core. core is
// opaque to Runner; Pool is what maps it onto an actual CPU affinity. A
// negative core means no pinning.
func New(core int) *Runner {
	r := &Runner{core: core, finished: true, running: true}
	r.cond = sync.NewCond(&r.mu)
	r.goroutine.Add(1)
	go r.loop()
	// The calling goroutine waits for the first pause, so the Runner is
	// known to be fully initialized before New returns — mirrors
	// LambdaRunner's constructor in original_source, which blocks on wait()
	// for the same reason.
	r.Wait()
	return r
}

func (r *Runner) loop() {
	defer r.goroutine.Done()
	lockRunnerThread(r.core)
	for {
		r.pauseInternal()
		if r.halt {
			return
		}
		// finished_ is only ever false here immediately after Run, so this
		// guards against a spurious Cont() firing after the lambda already
		// completed (possible if cont() races pause() the way
		// original_source's own comment notes).
		if !r.isFinished() {
			r.lambda()
		}
		r.setFinished(true)
	}
}

// Core returns the core this runner is pinned to.
func (r *Runner) Core() int { return r.core }

// Run sets the callable and wakes the runner's goroutine. It is an error to
// call Run while the previous callable has not finished.
func (r *Runner) Run(lambda func()) {
	r.mu.Lock()
	if !r.finished {
		r.mu.Unlock()
		panic("runner: Run called while previous callable is still running")
	}
	r.lambda = lambda
	r.finished = false
	r.mu.Unlock()
	r.Cont()
}

// Pause is called from inside the running callable to suspend it until Cont
// is called from the outside. Calling it outside the callable is a
// programmer error.
func (r *Runner) Pause() {
	r.pauseInternal()
}

func (r *Runner) pauseInternal() {
	r.mu.Lock()
	r.running = false
	r.cond.Broadcast()
	for !r.running {
		r.cond.Wait()
	}
	r.mu.Unlock()
}

// Cont resumes a paused callable. It is a no-op if called from inside the
// callable.
func (r *Runner) Cont() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Wait blocks until the callable pauses or returns. It is for use outside
// the callable; called from inside it, it never returns.
func (r *Runner) Wait() {
	r.mu.Lock()
	for r.running {
		r.cond.Wait()
	}
	r.mu.Unlock()
}

// IsFinished reports whether the most recently run callable has returned.
func (r *Runner) IsFinished() bool {
	return r.isFinished()
}

func (r *Runner) isFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *Runner) setFinished(v bool) {
	r.mu.Lock()
	r.finished = v
	r.mu.Unlock()
}

// Close halts the runner's goroutine and waits for it to exit. It is a
// programmer error to Close a runner whose last callable has not finished.
func (r *Runner) Close() {
	if !r.isFinished() {
		panic("runner: Close called while a callable is still running")
	}
	r.haltOnce.Do(func() {
		r.mu.Lock()
		r.halt = true
		r.running = true
		r.mu.Unlock()
		r.cond.Broadcast()
		r.goroutine.Wait()
	})
}
