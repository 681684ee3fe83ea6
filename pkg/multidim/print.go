package multidim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/robbertmijn/datamatrix/internal/ndarray"
	"github.com/robbertmijn/datamatrix/pkg/errors"
)

// Plottable returns a copy of the full values with the row and last cell
// dimensions swapped, plus the swapped shape. Plotting libraries that draw
// one line per trailing series can consume it directly.
func (c *Column) Plottable() ([]float64, []int, error) {
	if err := c.guard(); err != nil {
		return nil, nil, err
	}
	vals, dims := ndarray.SwapEnds(c.values(), c.fullDims())
	return vals, dims, nil
}

// CellString renders row i's cell bounded by the print configuration: axes
// longer than the threshold show only the edge items around an ellipsis.
func (c *Column) CellString(i int) (string, error) {
	if err := c.guard(); err != nil {
		return "", err
	}
	if i < 0 || i >= len(c.rowids) {
		return "", errors.Newf(errors.ErrorTypeIndex,
			"row %d out of range for %d rows", i, len(c.rowids))
	}
	cellLen := c.spec.CellLen()
	cell := c.values()[i*cellLen : (i+1)*cellLen]
	return c.render(cell, c.spec.Dims()), nil
}

// String summarizes the column: full shape, live backend, and the edge rows
// with their cells. It never materializes more text than the print bounds
// allow, no matter how large the column is.
func (c *Column) String() string {
	if c.closed {
		return "column(closed)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "column(shape=%s, %s)", dimsString(c.fullDims()), c.buf.Kind())

	cellLen := c.spec.CellLen()
	src := c.values()
	cellDims := c.spec.Dims()
	for _, r := range c.edges(len(c.rowids)) {
		if r < 0 {
			b.WriteString("\n...")
			continue
		}
		fmt.Fprintf(&b, "\n[%d] %s",
			c.rowids[r], c.render(src[r*cellLen:(r+1)*cellLen], cellDims))
	}
	return b.String()
}

// render formats values of the given shape, eliding long axes.
func (c *Column) render(vals []float64, dims []int) string {
	if len(dims) == 0 {
		return c.formatValue(vals[0])
	}

	block := ndarray.Size(dims[1:])
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for _, i := range c.edges(dims[0]) {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		if i < 0 {
			b.WriteString("...")
			continue
		}
		b.WriteString(c.render(vals[i*block:(i+1)*block], dims[1:]))
	}
	b.WriteByte(']')
	return b.String()
}

// edges returns the indices to show for an axis of length n: everything
// when within the threshold, otherwise the leading and trailing edge items
// with -1 marking the elision between them.
func (c *Column) edges(n int) []int {
	threshold := c.cfg.Print.Threshold
	edge := c.cfg.Print.EdgeItems
	if n <= threshold || n <= 2*edge {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, 2*edge+1)
	for i := 0; i < edge; i++ {
		out = append(out, i)
	}
	out = append(out, -1)
	for i := n - edge; i < n; i++ {
		out = append(out, i)
	}
	return out
}

func (c *Column) formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', c.cfg.Print.Precision, 64)
}

func dimsString(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
