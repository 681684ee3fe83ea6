// Package ndarray implements flat row-major array math shared by the
// indexing and column packages: strides, cross-product gather/scatter,
// NaN-aware reductions, axis swaps, and nested-value conversion.
package ndarray

import (
	"github.com/robbertmijn/datamatrix/pkg/pool"
)

// Size returns the element count of dims. Empty dims describe a scalar.
func Size(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// Strides returns row-major strides for dims: the last dimension varies
// fastest.
func Strides(dims []int) []int {
	strides := make([]int, len(dims))
	acc := 1
	for d := len(dims) - 1; d >= 0; d-- {
		strides[d] = acc
		acc *= dims[d]
	}
	return strides
}

// SelectionSize returns the element count of a cross-product selection.
func SelectionSize(sel [][]int) int {
	n := 1
	for _, s := range sel {
		n *= len(s)
	}
	return n
}

// Gather copies the cross product of sel positions out of src (shape dims)
// into a new slice. The selection is walked in row-major order: the last
// dimension varies fastest.
func Gather(src []float64, dims []int, sel [][]int) []float64 {
	out := make([]float64, SelectionSize(sel))
	walk(dims, sel, func(i, offset int) {
		out[i] = src[offset]
	})
	return out
}

// Scatter writes vals into dst (shape dims) at the cross product of sel
// positions, in row-major order. len(vals) must equal the selection size.
func Scatter(dst []float64, dims []int, sel [][]int, vals []float64) {
	walk(dims, sel, func(i, offset int) {
		dst[offset] = vals[i]
	})
}

// ScatterRepeat writes vals into the selection with vals repeating at period
// len(vals). Because the walk is row-major, a vals slice matching the
// selection's trailing dimensions broadcasts across the leading ones.
func ScatterRepeat(dst []float64, dims []int, sel [][]int, vals []float64) {
	n := len(vals)
	walk(dims, sel, func(i, offset int) {
		dst[offset] = vals[i%n]
	})
}

// ScatterSpread writes vals into the selection with each value filling one
// contiguous row-major block: vals[i] covers selection positions
// [i*block, (i+1)*block). vals must be non-empty. Used for per-row
// broadcasts where one value per selected row fills the row's whole cell.
func ScatterSpread(dst []float64, dims []int, sel [][]int, vals []float64) {
	block := SelectionSize(sel) / len(vals)
	walk(dims, sel, func(i, offset int) {
		dst[offset] = vals[i/block]
	})
}

// Fill writes one value to every selected position.
func Fill(dst []float64, dims []int, sel [][]int, v float64) {
	walk(dims, sel, func(_, offset int) {
		dst[offset] = v
	})
}

// walk iterates the cross product of sel in row-major order, calling fn with
// the running selection index and the flat offset into an array of shape dims.
func walk(dims []int, sel [][]int, fn func(i, offset int)) {
	total := SelectionSize(sel)
	if total == 0 {
		return
	}

	strides := Strides(dims)
	counter := pool.GetIntSlice(len(sel))
	defer pool.PutIntSlice(counter)

	offset := 0
	for d := range sel {
		offset += sel[d][0] * strides[d]
	}

	for i := 0; i < total; i++ {
		fn(i, offset)

		// Advance the odometer from the fastest-varying dimension.
		for d := len(sel) - 1; d >= 0; d-- {
			offset -= sel[d][counter[d]] * strides[d]
			counter[d]++
			if counter[d] < len(sel[d]) {
				offset += sel[d][counter[d]] * strides[d]
				break
			}
			counter[d] = 0
			offset += sel[d][0] * strides[d]
		}
	}
}

// SwapEnds returns a copy of src with the first and last axes swapped, along
// with the new dims. One-axis arrays copy unchanged.
func SwapEnds(src []float64, dims []int) ([]float64, []int) {
	n := len(dims)
	outDims := make([]int, n)
	copy(outDims, dims)
	if n <= 1 {
		out := make([]float64, len(src))
		copy(out, src)
		return out, outDims
	}

	outDims[0], outDims[n-1] = outDims[n-1], outDims[0]
	dstStrides := Strides(outDims)

	// Destination stride per source axis: axis 0 and axis n-1 trade places,
	// middle axes keep theirs.
	mapped := make([]int, n)
	for d := range mapped {
		mapped[d] = dstStrides[d]
	}
	mapped[0] = dstStrides[n-1]
	mapped[n-1] = dstStrides[0]

	out := make([]float64, len(src))
	counter := pool.GetIntSlice(n)
	defer pool.PutIntSlice(counter)

	dstOff := 0
	for i := range src {
		out[dstOff] = src[i]

		for d := n - 1; d >= 0; d-- {
			counter[d]++
			dstOff += mapped[d]
			if counter[d] < dims[d] {
				break
			}
			counter[d] = 0
			dstOff -= dims[d] * mapped[d]
		}
	}
	return out, outDims
}

// Clone returns a copy of vals.
func Clone(vals []float64) []float64 {
	out := make([]float64, len(vals))
	copy(out, vals)
	return out
}

// CloneInts returns a copy of dims.
func CloneInts(dims []int) []int {
	out := make([]int, len(dims))
	copy(out, dims)
	return out
}

// EqualInts reports whether two dimension lists match.
func EqualInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
