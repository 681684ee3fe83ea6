package multidim

import (
	"github.com/robbertmijn/datamatrix/internal/ndarray"
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/table"
)

// Reductions collapse the row dimension: each returns one value per cell
// position, computed across rows with NaN treated as missing. A position
// with no non-NaN data yields NaN, except Sum, which yields 0 there.
// Reductions read storage in place and do not touch the recency order.

// Mean returns the per-position mean across rows.
func (c *Column) Mean() ([]float64, error) { return c.reduce(ndarray.NaNMean) }

// Median returns the per-position median across rows.
func (c *Column) Median() ([]float64, error) { return c.reduce(ndarray.NaNMedian) }

// Std returns the per-position sample standard deviation across rows.
// Positions with fewer than two values yield NaN.
func (c *Column) Std() ([]float64, error) { return c.reduce(ndarray.NaNStd) }

// Min returns the per-position minimum across rows.
func (c *Column) Min() ([]float64, error) { return c.reduce(ndarray.NaNMin) }

// Max returns the per-position maximum across rows.
func (c *Column) Max() ([]float64, error) { return c.reduce(ndarray.NaNMax) }

// Sum returns the per-position sum across rows.
func (c *Column) Sum() ([]float64, error) { return c.reduce(ndarray.NaNSum) }

func (c *Column) reduce(fn func(src []float64, rows, cellLen int) []float64) ([]float64, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	return fn(c.values(), len(c.rowids), c.spec.CellLen()), nil
}

// MapCells applies fn to every cell and collects the results into a new
// column of shape (rows, len(first result)). The cell passed to fn is a
// copy; mutating it does not write through. Every result must have the same
// length as the first.
func (c *Column) MapCells(fn func(rowID table.RowID, cell []float64) []float64) (*Column, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	if err := c.pager.Touch(c.ticket); err != nil {
		return nil, err
	}

	rows := len(c.rowids)
	if rows == 0 {
		// The first result fixes the output width; with no rows there is
		// nothing to infer it from.
		return nil, errors.New(errors.ErrorTypeValue,
			"cannot map cells of an empty column")
	}
	cellLen := c.spec.CellLen()
	src := c.values()

	var out []float64
	width := 0
	cell := make([]float64, cellLen)
	for r := 0; r < rows; r++ {
		copy(cell, src[r*cellLen:(r+1)*cellLen])
		mapped := fn(c.rowids[r], cell)
		if r == 0 {
			width = len(mapped)
			if width == 0 {
				return nil, errors.New(errors.ErrorTypeType,
					"mapped cell must not be empty")
			}
			out = make([]float64, 0, rows*width)
		} else if len(mapped) != width {
			return nil, errors.Newf(errors.ErrorTypeType,
				"mapped cell for row %d has %d values, want %d",
				r, len(mapped), width)
		}
		out = append(out, mapped...)
	}

	spec, err := shape.New(shape.Sized(width))
	if err != nil {
		return nil, err
	}
	return newDerived(c, spec, c.RowIDs(), out)
}
