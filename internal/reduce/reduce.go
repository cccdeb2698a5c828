// Package reduce implements the per-task, per-worker accumulators collect
// writes into and the final merge step that produces a task's result.
package reduce

// Number is the set of element types a default (summing) reduction
// supports. Custom merge operators are a documented future extension (see
// spec.md 4.4) and are not expressible through this package today.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// TaskReduction holds one accumulator slot per task-local thread id, each
// starting at zero, plus the initial value Reduce merges the slots into.
// Collect is safe to call from any
// number of goroutines as long as each calls it only with its own slot
// index; Reduce must be called exactly once, after every collector has
// finished, and Result read only after Reduce.
type TaskReduction[T Number] struct {
	init   T
	values []T
	result T
}

// New allocates a reduction with numThreads zeroed slots and initial value
// init, so the result is init plus every value collected.
func New[T Number](init T, numThreads int) *TaskReduction[T] {
	values := make([]T, numThreads)
	return &TaskReduction[T]{init: init, values: values, result: init}
}

// Collect adds a to the accumulator owned by task-local thread id pos. It is
// intended to be called from inside a parallel_for body.
func (r *TaskReduction[T]) Collect(pos int, a T) {
	r.values[pos] += a
}

// Reduce merges every slot into the final result. The default operator is
// addition.
func (r *TaskReduction[T]) Reduce() {
	result := r.init
	for _, v := range r.values {
		result += v
	}
	r.result = result
}

// Result returns the merged value computed by the most recent Reduce.
func (r *TaskReduction[T]) Result() T {
	return r.result
}
