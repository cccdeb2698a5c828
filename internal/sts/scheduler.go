package sts

import (
	"fmt"
	"sync"
	"sync/atomic"

	"sts/internal/reduce"
	"sts/internal/stsrange"
)

// reducer type-erases reduce.TaskReduction[T] so a Task can hold any
// element type behind one field, per spec.md 9's "erased behind a
// type-tagged handle" guidance for polymorphic reductions.
type reducer interface {
	reduceAny()
}

type typedReduction[T reduce.Number] struct{ r *reduce.TaskReduction[T] }

func (t *typedReduction[T]) reduceAny() { t.r.Reduce() }

// Scheduler is one named schedule: an ordered Task list, per-thread
// subtask queues, and the assignment/step/wait API of spec.md 4.9.
type Scheduler struct {
	name string

	mu         sync.Mutex
	tasks      []*Task
	taskLabels map[string]int
	threadQ    map[int][]*SubTask

	active    atomic.Bool
	isDefault bool

	reschedulePolicy func(*Scheduler)
}

func newScheduler(name string, isDefault bool) *Scheduler {
	return &Scheduler{
		name:       name,
		taskLabels: make(map[string]int),
		threadQ:    make(map[int][]*SubTask),
		isDefault:  isDefault,
	}
}

// Name returns the scheduler instance's registered name.
func (s *Scheduler) Name() string { return s.name }

func (s *Scheduler) requireInactive(op string) {
	assertf(!s.active.Load(), "%s called while schedule %q is active", op, s.name)
}

// getOrCreateTask returns the Task for label, creating it (and registering
// its ordinal position) on first use. Repeated assignment of the same
// label returns the same *Task until ClearAssignments discards it.
func (s *Scheduler) getOrCreateTask(label string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.taskLabels[label]; ok {
		return s.tasks[id]
	}
	t := newTask(label)
	s.taskLabels[label] = len(s.tasks)
	s.tasks = append(s.tasks, t)
	return t
}

func (s *Scheduler) lookupTask(label string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.taskLabels[label]
	if !ok {
		return nil, false
	}
	return s.tasks[id], true
}

// ClearAssignments removes every task and per-thread queue. Task objects
// are not kept: a label assigned again afterwards gets a new *Task, and its
// coroutine, high-priority and auto-balancing settings are not carried over.
func (s *Scheduler) ClearAssignments() {
	s.requireInactive("clearAssignments")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.taskLabels = make(map[string]int)
	s.threadQ = make(map[int][]*SubTask)
}

func (s *Scheduler) pushAssignment(threadID int, label string, r Range) *SubTask {
	s.requireInactive("assign")
	t := s.getOrCreateTask(label)
	st := newSubTask(threadID, t, r)
	t.PushSubtask(threadID, st)
	s.mu.Lock()
	s.threadQ[threadID] = append(s.threadQ[threadID], st)
	s.mu.Unlock()
	return st
}

// AssignRun assigns a basic (point) task to threadID, in the order this
// call is made relative to other assignments on the same thread.
func (s *Scheduler) AssignRun(label string, threadID int) {
	s.pushAssignment(threadID, label, Range{Start: stsrange.RatioFromInt(0), End: stsrange.RatioFromInt(1)})
}

// AssignLoop assigns a [0,1]-relative slice r of a loop task to threadID.
// Calling it with the default full range is the single-thread form;
// callers building a multi-helper schedule call it once per thread with
// distinct slices (spec.md 4.9's "vector form").
func (s *Scheduler) AssignLoop(label string, threadID int, r Range) {
	s.pushAssignment(threadID, label, r)
}

// AssignLoopVector assigns ranges for label across threadIDs in one call,
// the "vector form" of assign_loop in spec.md 4.9.
func (s *Scheduler) AssignLoopVector(label string, threadIDs []int, ranges []Range) {
	assertf(len(threadIDs) == len(ranges), "assignLoopVector(%s): threadIDs and ranges length mismatch", label)
	for i, tid := range threadIDs {
		s.pushAssignment(tid, label, ranges[i])
	}
}

// SetCoroutine marks label as a coroutine task whose body may call Pause,
// with continuations naming its pause-target successor tasks.
func (s *Scheduler) SetCoroutine(label string, continuations ...string) {
	s.requireInactive("setCoroutine")
	set := make(map[string]bool, len(continuations))
	for _, c := range continuations {
		set[c] = true
	}
	s.getOrCreateTask(label).SetCoroutine(set)
}

// SetHighPriority marks label for the yield fast path.
func (s *Scheduler) SetHighPriority(label string, v bool) {
	s.requireInactive("setHighPriority")
	s.getOrCreateTask(label).SetHighPriority(v)
}

// EnableTaskAutoBalancing turns on work stealing for label's subtasks.
func (s *Scheduler) EnableTaskAutoBalancing(label string, v bool) {
	s.requireInactive("enableTaskAutoBalancing")
	s.getOrCreateTask(label).EnableAutoBalancing(v)
}

// SetTaskRanges assigns subtask ranges for label from a vector of Ratio
// boundaries (spec.md 4.6's setSubTaskRanges).
func (s *Scheduler) SetTaskRanges(label string, boundaries []stsrange.Ratio) {
	s.requireInactive("setTaskRanges")
	s.getOrCreateTask(label).SetSubTaskRanges(boundaries)
}

// GetNumThreads returns the total number of worker threads in the pool.
func (s *Scheduler) GetNumThreads() int { return rt.numThreads() }

// GetNumSubTasks returns how many subtasks are queued for threadID.
func (s *Scheduler) GetNumSubTasks(threadID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threadQ[threadID])
}

// GetTaskNumThreads returns the number of distinct threads assigned to
// label, or 0 if label is unassigned.
func (s *Scheduler) GetTaskNumThreads(label string) int {
	t, ok := s.lookupTask(label)
	if !ok {
		return 0
	}
	return t.NumThreads()
}

// GetTaskThreadId returns the task-local id of the subtask on top of w's
// call stack, or -1 if none.
func (s *Scheduler) GetTaskThreadId(w *Worker) int {
	idx, ok := w.currentSubtaskIdx()
	if !ok {
		return -1
	}
	st := w.queue[idx]
	return st.Task().GetThreadId(w.ID())
}

// NextStep publishes a new step: restarts every task, resets per-thread
// queue cursors, and increments the shared step counter with release
// ordering so workers observe it via acquire, per spec.md 4.9 and 5.
func (s *Scheduler) NextStep() {
	if s.active.Load() {
		return // spec.md 8: calling nextStep twice without an intervening wait is a no-op.
	}
	s.mu.Lock()
	tasks := append([]*Task(nil), s.tasks...)
	threadQ := s.threadQ
	s.mu.Unlock()

	for _, t := range tasks {
		t.Restart()
	}
	for _, w := range rt.allWorkers() {
		w.queue = threadQ[w.id]
		w.nextSubtaskIdx = 0
		atomic.StoreInt64(&w.progressed, 0)
	}

	s.active.Store(true)
	rt.activate(s)
	rt.advanceStepCounter()
}

// Run publishes fn into label's functor slot, or runs it synchronously if
// label is unassigned or the default schedule is active, per spec.md 4.9.
// Unlike ParallelFor, Run does not drive the caller's own queued subtask —
// every assigned thread, including the caller, picks its subtasks up during
// Wait's queue-drain pass. This is what lets two coroutine tasks assigned
// to the same thread interleave: both functors are published (by two Run
// calls) before either one's body starts running inside Wait.
func (s *Scheduler) Run(w *Worker, label string, fn func(w *Worker)) {
	if s.isDefault || !s.active.Load() {
		fn(w)
		return
	}
	t, ok := s.lookupTask(label)
	if !ok {
		fn(w)
		return
	}
	t.SetFunctor(NewBasicFunctor(fn))
	s.markStateChange()
}

// ParallelFor runs body over [start,end) on label's assigned subtasks, or
// locally on the caller if label is unassigned, per spec.md 4.9. Use
// ParallelForReduce for the reduction-bearing form.
func (s *Scheduler) ParallelFor(w *Worker, label string, start, end int64, body func(w *Worker, i int64)) {
	s.parallelForImpl(w, label, start, end, body, nil)
}

// ParallelForReduce is the reduction-bearing form of ParallelFor: red is
// merged via Reduce once every assigned subtask has finished, and its
// result is available through red.Result() afterward. red is typically
// the value returned by CreateTaskReduction for the same label. This is a
// free function, not a method, because Go forbids a method from
// introducing its own type parameter beyond the receiver's — the same
// reason the original's default-template-parameter overload of
// parallel_for becomes two entry points here instead of one optional
// argument.
func ParallelForReduce[T reduce.Number](s *Scheduler, w *Worker, label string, start, end int64, body func(w *Worker, i int64), red *reduce.TaskReduction[T]) {
	s.parallelForImpl(w, label, start, end, body, &typedReduction[T]{r: red})
}

func (s *Scheduler) parallelForImpl(w *Worker, label string, start, end int64, body func(w *Worker, i int64), red reducer) {
	if s.isDefault {
		// spec.md 4.10: parallel_for on the default schedule always runs
		// against its one built-in "default" task, regardless of label.
		label = "default"
		s.NextStep()
	}
	t, ok := s.lookupTask(label)
	if !s.isDefault && !ok {
		for i := start; i < end; i++ {
			body(w, i)
		}
		return
	}
	if red != nil {
		t.SetReduction(red)
	}
	t.SetFunctor(NewLoopFunctor(body, start, end))
	s.markStateChange()
	s.runCallerSubtask(w, t)
	if s.isDefault {
		s.Wait(w)
	} else {
		t.Wait()
	}
	if red != nil {
		red.reduceAny()
	}
}

// runCallerSubtask finds the caller's next queued subtask for t and runs
// it (and, if that subtask belongs to a different task, any intermediate
// skipped-function subtasks up to it), matching the "nested loop run" rule
// of spec.md 4.9's parallel_for contract.
func (s *Scheduler) runCallerSubtask(w *Worker, t *Task) {
	for w.nextSubtaskIdx < len(w.queue) {
		idx := w.nextSubtaskIdx
		w.nextSubtaskIdx++
		st := w.queue[idx]
		s.runSubTask(w, idx)
		if st.Task() == t {
			return
		}
	}
	assertf(false, "run/parallel_for(%s): no queued subtask found for thread %d", t.label, w.ID())
}

// SkipRun publishes an empty functor so the assigned thread still marks
// the barrier and advances, per spec.md 4.9.
func (s *Scheduler) SkipRun(label string) {
	t, ok := s.lookupTask(label)
	if !ok {
		return
	}
	t.SetFunctor(NewBasicFunctor(func(*Worker) {}))
	s.markStateChange()
}

// SkipLoop is the loop-task analog of SkipRun.
func (s *Scheduler) SkipLoop(label string) {
	t, ok := s.lookupTask(label)
	if !ok {
		return
	}
	t.SetFunctor(NewLoopFunctor(func(*Worker, int64) {}, 0, 0))
	s.markStateChange()
}

// WaitForTask waits on label's end-barrier; a no-op if label is
// unassigned or this is the default schedule.
func (s *Scheduler) WaitForTask(label string) {
	if s.isDefault {
		return
	}
	if t, ok := s.lookupTask(label); ok {
		t.Wait()
	}
}

// Wait drains the caller's own queue to completion, waits on every task's
// end-barrier, then on the process-wide step-completion barrier, and
// finally deactivates the schedule, matching spec.md 4.9.
func (s *Scheduler) Wait(w *Worker) {
	for w.nextSubtaskIdx < len(w.queue) {
		idx := w.nextSubtaskIdx
		w.nextSubtaskIdx++
		if w.queue[idx].IsDone() {
			continue
		}
		s.runSubTask(w, idx)
	}

	s.mu.Lock()
	tasks := append([]*Task(nil), s.tasks...)
	s.mu.Unlock()
	for _, t := range tasks {
		t.Wait()
	}

	rt.waitStepCompletion()

	s.active.Store(false)
	for _, t := range tasks {
		t.Deactivate()
	}
	rt.deactivate(s)
}

// Collect dispatches value into the current task's reduction slot for w's
// task-local id, or silently no-ops outside any task (spec.md 9's
// documented Open Question decision).
func Collect[T reduce.Number](s *Scheduler, w *Worker, value T) {
	idx, ok := w.currentSubtaskIdx()
	if !ok {
		return
	}
	t := w.queue[idx].Task()
	red, _ := t.Reduction().(*typedReduction[T])
	if red == nil {
		return
	}
	ttid := t.GetThreadId(w.ID())
	if ttid < 0 {
		return
	}
	red.r.Collect(ttid, value)
}

// CreateTaskReduction allocates a reduction with one slot per thread
// currently assigned to label and initial value init, matching
// STS::createTaskReduction.
func CreateTaskReduction[T reduce.Number](s *Scheduler, label string, init T) *reduce.TaskReduction[T] {
	t := s.getOrCreateTask(label)
	n := t.NumThreads()
	if n == 0 {
		n = rt.numThreads()
	}
	r := reduce.New(init, n)
	t.SetReduction(&typedReduction[T]{r: r})
	return r
}

// SetCheckPoint advances label's checkpoint, gating coroutine resumption.
func (s *Scheduler) SetCheckPoint(label string, cp int64) {
	if t, ok := s.lookupTask(label); ok {
		t.SetCheckPoint(cp)
		s.markStateChange()
	}
}

// Reschedule is a documented no-op hook for a future automatic-scheduling
// policy module, matching spec.md 9's "declared but unimplemented" note
// for STS::reschedule.
func (s *Scheduler) Reschedule() {
	if s.reschedulePolicy != nil {
		s.reschedulePolicy(s)
	}
}

// SetReschedulePolicy registers a policy hook Reschedule invokes.
func (s *Scheduler) SetReschedulePolicy(f func(*Scheduler)) {
	s.reschedulePolicy = f
}

// markStateChange bumps every worker's "system progressed" counter so a
// pending pause() fast-path can no longer short-circuit, per spec.md 4.9.
func (s *Scheduler) markStateChange() {
	for _, w := range rt.allWorkers() {
		atomic.AddInt64(&w.progressed, 1)
	}
}

// PrintAssignments logs one structured event per task/subtask assignment,
// the Go-native analog of STS's debug-print surface named in spec.md 6.
func (s *Scheduler) PrintAssignments() {
	s.mu.Lock()
	tasks := append([]*Task(nil), s.tasks...)
	s.mu.Unlock()
	log := schedLogger(s.name)
	for _, t := range tasks {
		for i, st := range t.SubTasks() {
			r := st.Range()
			log.Info().
				Str("task", t.Label()).
				Int("subtask", i).
				Int("thread", st.ThreadID).
				Str("range", fmt.Sprintf("[%s,%s)", r.Start.String(), r.End.String())).
				Msg("assignment")
		}
	}
}

// PrintSubTaskTimes logs wait/run/total durations for every subtask's most
// recent run, the Go-native analog of STS's timing-report surface.
func (s *Scheduler) PrintSubTaskTimes() {
	s.mu.Lock()
	tasks := append([]*Task(nil), s.tasks...)
	s.mu.Unlock()
	log := schedLogger(s.name)
	for _, t := range tasks {
		for i, st := range t.SubTasks() {
			times := st.Times()
			log.Info().
				Str("task", t.Label()).
				Int("subtask", i).
				Int("thread", st.ThreadID).
				Dur("wait", times.WaitDuration()).
				Dur("run", times.RunDuration()).
				Dur("total", times.TotalDuration()).
				Msg("subtask_times")
		}
	}
}

