// Package stsrange implements the half-open interval arithmetic used to
// describe loop partitioning without floating point. A RatioRange slices
// the abstract [0,1] loop domain that assignments are expressed in; an
// IntRange slices the concrete iteration space a functor executes.
package stsrange

import "math/big"

// Ratio is an exact fraction, used so that partitioning a loop across many
// threads never accumulates floating point error. math/big.Rat is the
// standard library's arbitrary-precision rational type; there is no
// ecosystem rational-arithmetic library represented anywhere in the
// example pack, so this is one of the few places the design intentionally
// reaches for the standard library instead of a third-party package.
type Ratio struct {
	r *big.Rat
}

// NewRatio builds an exact num/den fraction.
func NewRatio(num, den int64) Ratio {
	return Ratio{r: big.NewRat(num, den)}
}

// RatioFromInt lifts a whole number into a Ratio.
func RatioFromInt(n int64) Ratio {
	return Ratio{r: big.NewRat(n, 1)}
}

func (a Ratio) rat() *big.Rat {
	if a.r == nil {
		return big.NewRat(0, 1)
	}
	return a.r
}

// Add returns a+b.
func (a Ratio) Add(b Ratio) Ratio {
	return Ratio{r: new(big.Rat).Add(a.rat(), b.rat())}
}

// Sub returns a-b.
func (a Ratio) Sub(b Ratio) Ratio {
	return Ratio{r: new(big.Rat).Sub(a.rat(), b.rat())}
}

// Mul returns a*b.
func (a Ratio) Mul(b Ratio) Ratio {
	return Ratio{r: new(big.Rat).Mul(a.rat(), b.rat())}
}

// Cmp returns -1, 0 or 1 as a is less than, equal to, or greater than b.
func (a Ratio) Cmp(b Ratio) int {
	return a.rat().Cmp(b.rat())
}

// Float64 returns the closest float64 approximation, for logging only.
func (a Ratio) Float64() float64 {
	f, _ := a.rat().Float64()
	return f
}

// String renders the fraction in lowest terms, e.g. "1/2".
func (a Ratio) String() string {
	return a.rat().RatString()
}

// FloorInt64 rounds a Ratio toward negative infinity. Every offset
// IntRange.Subset computes for a sub-range inside [0,1] is non-negative, so
// "round toward start" (spec.md 4.3) and "round toward negative infinity"
// coincide for the offsets this package computes.
func (a Ratio) FloorInt64() int64 {
	num := a.rat().Num()
	den := a.rat().Denom()
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(num, den, m) // Euclidean division; big.Rat denominators are always positive, so this floors.
	return q.Int64()
}

// RatioRange is a half-open interval [Start, End) over exact fractions,
// almost always relative to the abstract loop domain [0,1].
type RatioRange struct {
	Start Ratio
	End   Ratio
}

// Full returns the [0,1] range covering an entire loop domain.
func Full() RatioRange {
	return RatioRange{Start: RatioFromInt(0), End: RatioFromInt(1)}
}

// Subset maps sub (itself relative to [0,1]) into the receiver's span,
// returning a RatioRange relative to the same parent domain as the receiver.
func (r RatioRange) Subset(sub RatioRange) RatioRange {
	span := r.End.Sub(r.Start)
	return RatioRange{
		Start: r.Start.Add(sub.Start.Mul(span)),
		End:   r.Start.Add(sub.End.Mul(span)),
	}
}

// IntRange is a half-open interval [Start, End) over concrete loop indices.
type IntRange struct {
	Start int64
	End   int64
}

// Subset maps sub (relative to [0,1]) into this range's integer span,
// computed exactly and with both endpoints rounded toward the receiver's
// start so that adjacent sub-ranges partition the parent without overlap or
// gap. A sub-range whose rounded bounds coincide is legal and yields zero
// iterations.
func (r IntRange) Subset(sub RatioRange) IntRange {
	span := RatioFromInt(r.End - r.Start)
	startOff := sub.Start.Mul(span)
	endOff := sub.End.Mul(span)
	return IntRange{
		Start: r.Start + startOff.FloorInt64(),
		End:   r.Start + endOff.FloorInt64(),
	}
}

// Len returns the number of integer iterations in the range.
func (r IntRange) Len() int64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range has zero span.
func (r IntRange) Empty() bool {
	return r.End <= r.Start
}
