package reduce_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sts/internal/reduce"
)

func TestReductionSumsAcrossSlots(t *testing.T) {
	r := reduce.New(0, 10)
	for thread := 0; thread < 10; thread++ {
		for i := 0; i < 3; i++ {
			r.Collect(thread, 1)
		}
	}
	r.Reduce()
	assert.Equal(t, 30, r.Result())
}

func TestReductionAccumulatesAcrossRepeatedReduceWithoutReset(t *testing.T) {
	// Mirrors spec.md scenario 3: the same reduction object reused over two
	// steps, without clearAssignments/rescheduling in between, accumulates.
	r := reduce.New(0, 10)
	for thread := 0; thread < 10; thread++ {
		for i := 0; i < 3; i++ {
			r.Collect(thread, 1)
		}
	}
	r.Reduce()
	assert.Equal(t, 30, r.Result())

	for thread := 0; thread < 10; thread++ {
		for i := 0; i < 3; i++ {
			r.Collect(thread, 1)
		}
	}
	r.Reduce()
	assert.Equal(t, 60, r.Result())
}

func TestReductionFloat(t *testing.T) {
	r := reduce.New(1.5, 2)
	r.Collect(0, 2.5)
	r.Collect(1, 1.0)
	r.Reduce()
	// result is init (1.5) plus the collected values: 1.5 + 2.5 + 1.0 = 5.0
	assert.InDelta(t, 5.0, r.Result(), 1e-9)
}
