package sts

import (
	"sync"
	"sync/atomic"
	"time"

	"sts/internal/barrier"
	"sts/internal/runner"
	"sts/internal/stsrange"
)

// TaskTimes carries the timestamps original_source/sts/task.h's TaskTimes
// struct records for one subtask invocation, plus the auxiliary
// user-labelled timestamps recordTime appends to.
type TaskTimes struct {
	WaitStart    time.Time
	RunStart     time.Time
	RunEnd       time.Time
	NextRunAvail time.Time
	AuxTimes     map[string][]time.Time
}

func (t *TaskTimes) clear() {
	t.WaitStart = time.Time{}
	t.RunStart = time.Time{}
	t.RunEnd = time.Time{}
	t.NextRunAvail = time.Time{}
	t.AuxTimes = nil
}

// WaitDuration is the time spent waiting for the functor to publish.
func (t *TaskTimes) WaitDuration() time.Duration { return t.RunStart.Sub(t.WaitStart) }

// RunDuration is the time spent inside the functor.
func (t *TaskTimes) RunDuration() time.Duration { return t.RunEnd.Sub(t.RunStart) }

// TotalDuration is wait plus run.
func (t *TaskTimes) TotalDuration() time.Duration { return t.RunEnd.Sub(t.WaitStart) }

// balanceInfo is the shared, atomically-updated progress counter a
// LoopFunctor publishes into when its owning Task has auto-balancing
// enabled, so Task.StealWork can find the subtask with the most remaining
// work and split its tail off to an idle helper.
type balanceInfo struct {
	start   atomic.Int64
	current atomic.Int64
	end     atomic.Int64
}

func (b *balanceInfo) remaining() int64 {
	return b.end.Load() - b.current.Load()
}

func newBalanceInfo() *balanceInfo { return &balanceInfo{} }

// SubTask is one thread's slice of one Task, as described in spec.md 3 and
// 4.7.
type SubTask struct {
	ThreadID int
	task     *Task
	rangeMu  sync.Mutex
	rng      Range

	done atomic.Bool

	runnerMu sync.Mutex
	lr       *runner.Runner

	times TaskTimes

	// resumeCheckpoint is the Task checkpoint value this subtask must
	// observe before it may resume after a pause.
	resumeCheckpoint atomic.Int64

	// balance is this subtask's live SubTaskRunInfo (start/current/end),
	// allocated lazily the first time it runs a loop iteration under a
	// Task with auto-balancing enabled; spec.md 5.
	balanceMu sync.Mutex
	balance   *balanceInfo
}

func newSubTask(threadID int, task *Task, r Range) *SubTask {
	return &SubTask{ThreadID: threadID, task: task, rng: r}
}

// Task returns the owning Task.
func (s *SubTask) Task() *Task { return s.task }

// Range returns the [0,1]-relative range this subtask was assigned.
func (s *SubTask) Range() Range {
	s.rangeMu.Lock()
	defer s.rangeMu.Unlock()
	return s.rng
}

// SetRange overrides the assigned range (setSubTaskRanges, or a work-steal
// assigning a stolen tail as a new working range).
func (s *SubTask) SetRange(r Range) {
	s.rangeMu.Lock()
	s.rng = r
	s.rangeMu.Unlock()
}

// IsDone reports whether this subtask has finished for the current step.
func (s *SubTask) IsDone() bool { return s.done.Load() }

func (s *SubTask) setDone(v bool) { s.done.Store(v) }

// IsReady reports whether the owning Task's begin-barrier is open, a fast
// probe used when deciding whether this subtask is a viable pause target.
func (s *SubTask) IsReady() bool { return s.task.begin.IsOpen() }

func (s *SubTask) clearTimes() {
	s.times.clear()
	s.resumeCheckpoint.Store(0)
}

// RecordTime appends a user-named auxiliary timestamp, matching
// SubTask::recordTime in the original.
func (s *SubTask) RecordTime(label string) {
	if s.times.AuxTimes == nil {
		s.times.AuxTimes = make(map[string][]time.Time)
	}
	s.times.AuxTimes[label] = append(s.times.AuxTimes[label], time.Now())
}

// Times returns a copy of this subtask's timing record.
func (s *SubTask) Times() TaskTimes { return s.times }

// run executes this subtask directly (non-coroutine path of SubTask::run).
func (s *SubTask) run(w *Worker) {
	s.times.WaitStart = time.Now()
	var bal *balanceInfo
	if s.task.autoBalance.Load() {
		bal = s.getOrCreateBalance()
	}
	s.task.run(w, s.Range(), &s.times, bal)
	s.setDone(true)
}

// RunToCompletion runs the subtask and, when the owning Task has
// auto-balancing enabled, keeps stealing and draining tails from the
// busiest running sibling until none remain, matching the "loop until no
// more work is available" rule of spec.md 4.7.
func (s *SubTask) RunToCompletion(w *Worker) {
	s.run(w)
	for s.task.AutoBalancingEnabled() {
		if !s.tryStealAndRun(w) {
			break
		}
	}
}

// tryStealAndRun attempts Task.StealWork and, on success, drains the stolen
// iteration range directly through the loop body. The stolen range is
// already inside the published functor's span and its begin-barrier is
// already open, so this bypasses Task.run's publish-wait step and only
// marks a fresh end-barrier arrival (the extra one StealWork registered via
// AddThread) when the drained range is exhausted.
func (s *SubTask) tryStealAndRun(w *Worker) bool {
	if !s.task.StealWork(s) {
		return false
	}
	lf, ok := s.task.functor.(*LoopFunctor)
	if !ok {
		return false
	}
	s.balanceMu.Lock()
	bal := s.balance
	s.balanceMu.Unlock()
	for {
		i := bal.current.Load()
		if i >= bal.end.Load() {
			break
		}
		bal.current.Add(1)
		lf.Body(w, i)
	}
	s.task.end.MarkArrival()
	return true
}

func (s *SubTask) getOrCreateBalance() *balanceInfo {
	s.balanceMu.Lock()
	defer s.balanceMu.Unlock()
	if s.balance == nil {
		s.balance = newBalanceInfo()
	}
	return s.balance
}

// pause records a resume checkpoint and suspends the hosting lambda runner,
// matching SubTask::pause.
func (s *SubTask) pause(cp int64) {
	s.resumeCheckpoint.Store(cp)
	s.runnerMu.Lock()
	lr := s.lr
	s.runnerMu.Unlock()
	if lr != nil {
		lr.Pause()
	}
}

func (s *SubTask) waitForCheckPoint() {
	for s.task.checkpoint.Load() < s.resumeCheckpoint.Load() {
	}
}

// Task is a named unit of work published once per step; see spec.md 3 and
// 4.6.
type Task struct {
	label string

	mu       sync.Mutex
	subtasks []*SubTask
	threadTaskIDs map[int]int
	numThreads    int
	active        bool

	functor        Functor
	functorSetTime time.Time
	begin          *barrier.MOBarrier
	end            *barrier.OMBarrier

	checkpoint atomic.Int64

	coroutine bool
	nextTasks map[string]bool

	reduction any

	highPriority bool

	autoBalance   atomic.Bool
	autoBalanceMu sync.Mutex
}

func newTask(label string) *Task {
	return &Task{
		label:         label,
		threadTaskIDs: make(map[int]int),
		begin:         barrier.NewMOBarrier(),
		end:           barrier.NewOMBarrier(0),
	}
}

// Label returns the task's name.
func (t *Task) Label() string { return t.label }

// PushSubtask appends a subtask, assigning threadID a task-local id on
// first occurrence. Invalid while the task is active (being run this
// step), matching spec.md 4.6.
func (t *Task) PushSubtask(threadID int, st *SubTask) {
	t.mu.Lock()
	defer t.mu.Unlock()
	assertf(!t.active, "pushSubtask(%s) called while task is active", t.label)
	t.subtasks = append(t.subtasks, st)
	if _, ok := t.threadTaskIDs[threadID]; !ok {
		t.threadTaskIDs[threadID] = t.numThreads
		t.numThreads++
	}
}

// ClearSubtasks removes every subtask. Scheduler.ClearAssignments does not
// call it; it discards whole tasks instead.
func (t *Task) ClearSubtasks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	assertf(!t.active, "clearSubtasks(%s) called while task is active", t.label)
	t.subtasks = nil
	t.threadTaskIDs = make(map[int]int)
	t.numThreads = 0
}

// NumThreads returns the number of distinct threads assigned to this task.
func (t *Task) NumThreads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numThreads
}

// NumSubtasks returns the total number of subtasks for this task.
func (t *Task) NumSubtasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subtasks)
}

// GetThreadId returns the task-local id for an STS thread id, or -1.
func (t *Task) GetThreadId(threadID int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.threadTaskIDs[threadID]
	if !ok {
		return -1
	}
	return id
}

// SubTaskAt returns the i-th subtask, or nil if out of range.
func (t *Task) SubTaskAt(i int) *SubTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.subtasks) {
		return nil
	}
	return t.subtasks[i]
}

// SubTasks returns a snapshot of every subtask, in assignment order.
func (t *Task) SubTasks() []*SubTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*SubTask, len(t.subtasks))
	copy(out, t.subtasks)
	return out
}

// Restart resets the task for a new step: clear done flags and times,
// close barriers, drop the functor, reset the checkpoint.
func (t *Task) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.subtasks {
		st.setDone(false)
		st.clearTimes()
	}
	t.functor = nil
	t.begin.Close()
	t.end.Close(len(t.subtasks))
	t.checkpoint.Store(0)
	t.active = true
}

// Deactivate marks the task inactive again, permitting assignment mutation.
func (t *Task) Deactivate() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// SetCoroutine marks the task as a coroutine with the given successor
// labels.
func (t *Task) SetCoroutine(continuations map[string]bool) {
	t.coroutine = true
	t.nextTasks = continuations
}

// IsCoroutine reports whether SetCoroutine was called for this task.
func (t *Task) IsCoroutine() bool { return t.coroutine }

// NextTasks returns the coroutine's successor label set.
func (t *Task) NextTasks() map[string]bool { return t.nextTasks }

// SetHighPriority marks the task for the yield fast path.
func (t *Task) SetHighPriority(v bool) { t.highPriority = v }

// HighPriority reports the SetHighPriority flag.
func (t *Task) HighPriority() bool { return t.highPriority }

// SetReduction stores the (type-erased) reduction handle for this step.
func (t *Task) SetReduction(r any) { t.reduction = r }

// Reduction returns the current reduction handle, or nil.
func (t *Task) Reduction() any { return t.reduction }

// EnableAutoBalancing turns on work stealing among this task's subtasks.
func (t *Task) EnableAutoBalancing(v bool) {
	t.autoBalance.Store(v)
}

// AutoBalancingEnabled reports the EnableAutoBalancing flag.
func (t *Task) AutoBalancingEnabled() bool { return t.autoBalance.Load() }

// SetSubTaskRanges assigns ranges to subtasks from a vector of Ratio
// boundaries, matching Task::setSubTaskRanges.
func (t *Task) SetSubTaskRanges(boundaries []stsrange.Ratio) {
	t.mu.Lock()
	defer t.mu.Unlock()
	assertf(len(boundaries) == len(t.subtasks)+1, "setTaskRanges(%s): expected %d boundaries, got %d", t.label, len(t.subtasks)+1, len(boundaries))
	assertf(boundaries[0].Cmp(stsrange.RatioFromInt(0)) == 0, "setTaskRanges(%s): first boundary must be 0", t.label)
	assertf(boundaries[len(boundaries)-1].Cmp(stsrange.RatioFromInt(1)) == 0, "setTaskRanges(%s): last boundary must be 1", t.label)
	for i, st := range t.subtasks {
		assertf(boundaries[i].Cmp(boundaries[i+1]) <= 0, "setTaskRanges(%s): boundaries must be non-decreasing", t.label)
		st.SetRange(Range{Start: boundaries[i], End: boundaries[i+1]})
	}
}

// SetFunctor publishes f, opening the begin-barrier so waiting subtasks may
// proceed, and records the publication time (used for cross-subtask
// latency analysis via SubTask.NextRunAvail).
func (t *Task) SetFunctor(f Functor) {
	assertf(t.functor == nil, "setFunctor(%s) called twice in the same step", t.label)
	t.functor = f
	t.functorSetTime = time.Now()
	t.begin.Open()
}

// FunctorSetTime returns when SetFunctor last published a functor.
func (t *Task) FunctorSetTime() time.Time { return t.functorSetTime }

// IsReady reports whether the functor has been published this step.
func (t *Task) IsReady() bool { return t.begin.IsOpen() }

// run waits for the functor to publish, invokes it over r, and marks an
// arrival on the end-barrier.
func (t *Task) run(w *Worker, r Range, td *TaskTimes, bal *balanceInfo) {
	td.WaitStart = time.Now()
	t.begin.Wait()
	td.RunStart = time.Now()
	t.functor.Run(w, r, bal)
	td.RunEnd = time.Now()
	t.end.MarkArrival()
}

// GetRunner returns a pool runner already started on a callable that calls
// run as above, restoring w (the caller's explicit thread context, see
// worker.go) inside the callable so nested calls observe the correct STS
// thread id. The runner is attached to st before it starts, so a Pause in
// the body always finds it.
func (t *Task) GetRunner(pool *runner.Pool, w *Worker, st *SubTask, td *TaskTimes) *runner.Runner {
	lr := pool.Get(w.Core())
	st.runnerMu.Lock()
	st.lr = lr
	st.runnerMu.Unlock()
	lr.Run(func() {
		var bal *balanceInfo
		if t.autoBalance.Load() {
			bal = st.getOrCreateBalance()
		}
		t.run(w, st.Range(), td, bal)
	})
	return lr
}

// Wait blocks until every thread assigned to this task has completed its
// portion for this step.
func (t *Task) Wait() { t.end.Wait() }

// SetCheckPoint advances the task's checkpoint counter, gating coroutine
// resumption.
func (t *Task) SetCheckPoint(cp int64) { t.checkpoint.Store(cp) }

// CheckPoint returns the current checkpoint value.
func (t *Task) CheckPoint() int64 { return t.checkpoint.Load() }

// WaitForCheckPoint spins until the task's checkpoint reaches cp.
func (t *Task) WaitForCheckPoint(cp int64) {
	for t.checkpoint.Load() < cp {
	}
}

// StealWork scans running subtasks for the one with the most remaining
// loop iterations and, if at least two remain, halves its tail off as
// thief's new working range, matching spec.md 4.6's stealWork contract.
// Returns whether a steal occurred; on success thief.balance is primed
// with the stolen [mid,end) range ready to be consumed by
// SubTask.tryStealAndRun.
func (t *Task) StealWork(thief *SubTask) bool {
	if !t.autoBalance.Load() {
		return false
	}
	t.autoBalanceMu.Lock()
	defer t.autoBalanceMu.Unlock()

	var victim *SubTask
	var victimRemaining int64
	for _, st := range t.SubTasks() {
		if st == thief || st.IsDone() {
			continue
		}
		st.balanceMu.Lock()
		bal := st.balance
		st.balanceMu.Unlock()
		if bal == nil {
			continue
		}
		if r := bal.remaining(); r > victimRemaining {
			victimRemaining = r
			victim = st
		}
	}
	if victim == nil || victimRemaining < 2 {
		return false
	}

	victim.balanceMu.Lock()
	bal := victim.balance
	victim.balanceMu.Unlock()

	cur := bal.current.Load()
	end := bal.end.Load()
	mid := cur + (end-cur)/2
	if mid <= cur || mid >= end {
		return false
	}
	bal.end.Store(mid)

	stolen := newBalanceInfo()
	stolen.start.Store(mid)
	stolen.current.Store(mid)
	stolen.end.Store(end)
	thief.balanceMu.Lock()
	thief.balance = stolen
	thief.balanceMu.Unlock()

	t.end.AddThread()
	return true
}
