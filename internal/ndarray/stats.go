package ndarray

import (
	"math"
	"sort"

	"github.com/robbertmijn/datamatrix/pkg/pool"
)

// The NaN* reductions collapse the leading axis of a flat (rows, cell...)
// array: each output position aggregates one cell position across all rows,
// skipping NaN entries. Positions with no data yield NaN, except NaNSum which
// yields 0 there.

// NaNMean returns the per-position mean across rows.
func NaNMean(src []float64, rows, cellLen int) []float64 {
	out := make([]float64, cellLen)
	counts := pool.GetIntSlice(cellLen)
	defer pool.PutIntSlice(counts)

	for r := 0; r < rows; r++ {
		base := r * cellLen
		for j := 0; j < cellLen; j++ {
			if v := src[base+j]; !math.IsNaN(v) {
				out[j] += v
				counts[j]++
			}
		}
	}
	for j := 0; j < cellLen; j++ {
		if counts[j] == 0 {
			out[j] = math.NaN()
		} else {
			out[j] /= float64(counts[j])
		}
	}
	return out
}

// NaNSum returns the per-position sum across rows. Positions with no data
// sum to 0.
func NaNSum(src []float64, rows, cellLen int) []float64 {
	out := make([]float64, cellLen)
	for r := 0; r < rows; r++ {
		base := r * cellLen
		for j := 0; j < cellLen; j++ {
			if v := src[base+j]; !math.IsNaN(v) {
				out[j] += v
			}
		}
	}
	return out
}

// NaNMin returns the per-position minimum across rows.
func NaNMin(src []float64, rows, cellLen int) []float64 {
	return nanExtreme(src, rows, cellLen, func(a, b float64) bool { return b < a })
}

// NaNMax returns the per-position maximum across rows.
func NaNMax(src []float64, rows, cellLen int) []float64 {
	return nanExtreme(src, rows, cellLen, func(a, b float64) bool { return b > a })
}

func nanExtreme(src []float64, rows, cellLen int, better func(cur, cand float64) bool) []float64 {
	out := make([]float64, cellLen)
	for j := range out {
		out[j] = math.NaN()
	}
	for r := 0; r < rows; r++ {
		base := r * cellLen
		for j := 0; j < cellLen; j++ {
			v := src[base+j]
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(out[j]) || better(out[j], v) {
				out[j] = v
			}
		}
	}
	return out
}

// NaNStd returns the per-position sample standard deviation (one delta degree
// of freedom) across rows. Positions with fewer than two values yield NaN.
func NaNStd(src []float64, rows, cellLen int) []float64 {
	means := NaNMean(src, rows, cellLen)
	out := make([]float64, cellLen)
	counts := pool.GetIntSlice(cellLen)
	defer pool.PutIntSlice(counts)

	for r := 0; r < rows; r++ {
		base := r * cellLen
		for j := 0; j < cellLen; j++ {
			v := src[base+j]
			if math.IsNaN(v) {
				continue
			}
			d := v - means[j]
			out[j] += d * d
			counts[j]++
		}
	}
	for j := 0; j < cellLen; j++ {
		if counts[j] < 2 {
			out[j] = math.NaN()
		} else {
			out[j] = math.Sqrt(out[j] / float64(counts[j]-1))
		}
	}
	return out
}

// NaNMedian returns the per-position median across rows.
func NaNMedian(src []float64, rows, cellLen int) []float64 {
	out := make([]float64, cellLen)
	scratch := pool.GetFloat64Slice(rows)
	defer pool.PutFloat64Slice(scratch)

	for j := 0; j < cellLen; j++ {
		vals := scratch[:0]
		for r := 0; r < rows; r++ {
			if v := src[r*cellLen+j]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			out[j] = math.NaN()
			continue
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			out[j] = vals[mid]
		} else {
			out[j] = (vals[mid-1] + vals[mid]) / 2
		}
	}
	return out
}
