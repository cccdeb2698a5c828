package stsrange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sts/internal/stsrange"
)

func TestRatioRangeSubsetHalves(t *testing.T) {
	full := stsrange.Full()
	left := full.Subset(stsrange.RatioRange{Start: stsrange.RatioFromInt(0), End: stsrange.NewRatio(1, 2)})
	right := full.Subset(stsrange.RatioRange{Start: stsrange.NewRatio(1, 2), End: stsrange.RatioFromInt(1)})

	assert.Equal(t, 0, left.Start.Cmp(stsrange.RatioFromInt(0)))
	assert.Equal(t, 0, left.End.Cmp(stsrange.NewRatio(1, 2)))
	assert.Equal(t, 0, right.Start.Cmp(stsrange.NewRatio(1, 2)))
	assert.Equal(t, 0, right.End.Cmp(stsrange.RatioFromInt(1)))
}

func TestIntRangeSubsetPartitionsExactly(t *testing.T) {
	parent := stsrange.IntRange{Start: 0, End: 100}
	// Four equal quarters must tile [0,100) with no gap or overlap.
	bounds := []stsrange.Ratio{
		stsrange.RatioFromInt(0),
		stsrange.NewRatio(1, 4),
		stsrange.NewRatio(1, 2),
		stsrange.NewRatio(3, 4),
		stsrange.RatioFromInt(1),
	}
	var got []stsrange.IntRange
	for i := 0; i < 4; i++ {
		got = append(got, parent.Subset(stsrange.RatioRange{Start: bounds[i], End: bounds[i+1]}))
	}
	require.Len(t, got, 4)
	want := []stsrange.IntRange{{0, 25}, {25, 50}, {50, 75}, {75, 100}}
	assert.Equal(t, want, got)
}

func TestIntRangeSubsetUnevenPartitionExactWithoutGapOrOverlap(t *testing.T) {
	// 600 iterations split as documented in spec.md scenario 2: [0,4/6) and [4/6,1].
	parent := stsrange.IntRange{Start: 0, End: 600}
	first := parent.Subset(stsrange.RatioRange{Start: stsrange.RatioFromInt(0), End: stsrange.NewRatio(4, 6)})
	second := parent.Subset(stsrange.RatioRange{Start: stsrange.NewRatio(4, 6), End: stsrange.RatioFromInt(1)})

	assert.Equal(t, stsrange.IntRange{Start: 0, End: 400}, first)
	assert.Equal(t, stsrange.IntRange{Start: 400, End: 600}, second)
}

func TestIntRangeSubsetEmptyIsLegal(t *testing.T) {
	parent := stsrange.IntRange{Start: 0, End: 10}
	sub := parent.Subset(stsrange.RatioRange{Start: stsrange.NewRatio(1, 2), End: stsrange.NewRatio(1, 2)})
	assert.True(t, sub.Empty())
	assert.Equal(t, int64(0), sub.Len())
}

func TestRatioFloorInt64(t *testing.T) {
	assert.Equal(t, int64(0), stsrange.NewRatio(1, 3).FloorInt64())
	assert.Equal(t, int64(1), stsrange.NewRatio(4, 3).FloorInt64())
	assert.Equal(t, int64(2), stsrange.RatioFromInt(2).FloorInt64())
}
