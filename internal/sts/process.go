package sts

import (
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sts/internal/barrier"
	"sts/internal/runner"
	"sts/internal/spin"
	"sts/internal/stslog"
)

// runtime is the process-wide singleton spec.md 9 describes: the worker
// pool, the lambda-runner pool coroutines borrow from, the step counter
// helper threads spin on, and the registry of named schedule instances
// createSchedule/getSchedule resolve against.
type runtime struct {
	mu      sync.Mutex
	workers []*Worker
	pool    *runner.Pool

	step   atomic.Int64 // -1 before Startup and after Shutdown
	cancel atomic.Bool

	active      atomic.Pointer[Scheduler]
	stepBarrier atomic.Pointer[barrier.OMBarrier]

	group *errgroup.Group

	registryMu sync.Mutex
	registry   *treemap.Map // name string -> *Scheduler

	defaultSched *Scheduler

	// runID identifies one Startup..Shutdown lifetime, attached to the
	// lifecycle log events so a multi-process log stream can be grepped
	// for one run.
	runID string
}

var rt = newRuntime()

func newRuntime() *runtime {
	r := &runtime{
		pool:     runner.NewPool(),
		registry: treemap.NewWithStringComparator(),
	}
	r.step.Store(-1)
	return r
}

// numThreads returns the worker count set by Startup, or 0 before Startup
// and after Shutdown.
func (r *runtime) numThreads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// allWorkers returns every worker thread, master included at index 0.
func (r *runtime) allWorkers() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workers
}

func (r *runtime) worker(id int) *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.workers) {
		return nil
	}
	return r.workers[id]
}

// activate installs s as the schedule helper threads drain until Wait
// deactivates it, per spec.md 4.9.
func (r *runtime) activate(s *Scheduler) { r.active.Store(s) }

func (r *runtime) deactivate(s *Scheduler) { r.active.CompareAndSwap(s, nil) }

// advanceStepCounter arms a fresh step-completion barrier for the schedule's
// helper threads (every worker but the master calling NextStep) and bumps
// the shared step counter so their spin loop wakes and drains the queue
// nextStep just published.
func (r *runtime) advanceStepCounter() {
	r.mu.Lock()
	helpers := len(r.workers) - 1
	r.mu.Unlock()
	if helpers < 0 {
		helpers = 0
	}
	r.stepBarrier.Store(barrier.NewOMBarrier(helpers))
	r.step.Add(1)
}

// waitStepCompletion blocks the master thread until every helper thread has
// reported it drained its queue for the current step.
func (r *runtime) waitStepCompletion() {
	if b := r.stepBarrier.Load(); b != nil {
		b.Wait()
	}
}

func (r *runtime) registerSchedule(name string, s *Scheduler) {
	r.registryMu.Lock()
	defer r.registryMu.Unlock()
	r.registry.Put(name, s)
}

func (r *runtime) lookupSchedule(name string) (*Scheduler, bool) {
	r.registryMu.Lock()
	defer r.registryMu.Unlock()
	v, ok := r.registry.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Scheduler), true
}

func (r *runtime) deregisterSchedule(name string) {
	r.registryMu.Lock()
	defer r.registryMu.Unlock()
	r.registry.Remove(name)
}

// runHelperLoop is the body of every worker thread but the master: park on
// the step counter, and each time it changes, drain whatever schedule is
// currently active before reporting arrival and parking again. Mirrors
// original_source's worker-thread wait/processQueue cycle (spec.md 4.8);
// spin.UntilNot plays the role of the condition variable the original
// blocks on, since goroutines have no portable park/wake primitive as cheap
// as a spin here.
func runHelperLoop(w *Worker) {
	last := rt.step.Load()
	for {
		cur := spin.UntilNot(&rt.step, last)
		if rt.cancel.Load() {
			return
		}
		if s := rt.active.Load(); s != nil {
			s.processQueue(w)
			if b := rt.stepBarrier.Load(); b != nil {
				b.MarkArrival()
			}
		}
		last = cur
	}
}

// Startup brings up n worker threads (id 0 is the calling/master thread,
// which never runs runHelperLoop — it drives steps via NextStep/Wait
// itself) and registers the default schedule (spec.md 4.10). It panics if
// called while already running.
func Startup(n int) {
	assertf(n >= 1, "startup: n must be >= 1, got %d", n)
	rt.mu.Lock()
	assertf(len(rt.workers) == 0, "startup called while already running")
	rt.workers = make([]*Worker, n)
	for i := 0; i < n; i++ {
		rt.workers[i] = newWorker(i, i)
		rt.pool.AddCore(i)
	}
	rt.mu.Unlock()

	rt.cancel.Store(false)
	rt.step.Store(0)

	var g errgroup.Group
	rt.group = &g
	for i := 1; i < n; i++ {
		w := rt.workers[i]
		g.Go(func() error {
			runHelperLoop(w)
			return nil
		})
	}

	sched := newScheduler("default", true)
	rt.defaultSched = sched
	rt.registerSchedule("default", sched)
	setupDefaultSchedule(sched, n)

	rt.runID = uuid.NewString()
	logger := stslog.Named("sts")
	logger.Info().Str("run_id", rt.runID).Int("threads", n).Msg("startup")
}

// Shutdown halts every helper thread, drains the runner pool, and clears
// the schedule registry, undoing Startup.
func Shutdown() {
	rt.cancel.Store(true)
	rt.step.Add(1)
	if rt.group != nil {
		_ = rt.group.Wait()
		rt.group = nil
	}
	rt.pool.Close()

	rt.mu.Lock()
	rt.workers = nil
	rt.mu.Unlock()

	rt.registryMu.Lock()
	rt.registry.Clear()
	rt.registryMu.Unlock()

	rt.defaultSched = nil
	rt.step.Store(-1)

	logger := stslog.Named("sts")
	logger.Info().Str("run_id", rt.runID).Msg("shutdown")
	rt.runID = ""
}

// DefaultSchedule returns the schedule Startup installs automatically, the
// process-wide singleton spec.md 4.10 describes: one loop task named
// "default" whose subtasks partition [0,1) evenly across every worker
// thread.
func DefaultSchedule() *Scheduler { return rt.defaultSched }

// GetSchedule looks up a named schedule created with CreateSchedule.
func GetSchedule(name string) (*Scheduler, bool) { return rt.lookupSchedule(name) }

// CreateSchedule registers and returns a new, empty named schedule.
func CreateSchedule(name string) *Scheduler {
	s := newScheduler(name, false)
	rt.registerSchedule(name, s)
	return s
}

// DeleteSchedule deregisters a named schedule created with CreateSchedule.
func DeleteSchedule(name string) { rt.deregisterSchedule(name) }
