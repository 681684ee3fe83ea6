package multidim

import (
	"github.com/robbertmijn/datamatrix/internal/ndarray"
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/indexing"
)

// Set assigns value into the selection the expressions describe. A scalar
// broadcasts to every selected position. A flat or nested value assigns by
// shape: a value matching a trailing suffix of the selection shape repeats
// across the leading dimensions, and a value with exactly as many elements
// as the selection assigns in row-major order.
//
// One legacy form survives for single-depth-dimension columns: selecting
// rows with a single expression and assigning one value per selected row
// spreads each value across its row's entire depth.
//
// Validation happens before any write, so a failed Set leaves the column
// untouched. A successful Set marks the host table mutated.
func (c *Column) Set(value any, exprs ...indexing.Expr) error {
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.pager.Touch(c.ticket); err != nil {
		return err
	}

	plan, err := indexing.Translate(exprs, c.spec, c.rowids)
	if err != nil {
		return err
	}

	if v, ok := ndarray.AsScalar(value); ok {
		ndarray.Fill(c.values(), c.fullDims(), plan.Dims, v)
		c.markMutated()
		return nil
	}

	vals, dims, err := ndarray.FromAny(value)
	if err != nil {
		return err
	}
	if dims == nil {
		ndarray.Fill(c.values(), c.fullDims(), plan.Dims, vals[0])
		c.markMutated()
		return nil
	}

	target := plan.ResultDims()
	if len(vals) == 0 {
		// An empty value matches no form, not even an empty selection.
		return errors.Newf(errors.ErrorTypeType,
			"cannot assign shape %v to selection of shape %v", dims, target)
	}
	switch {
	case c.spec.NumDims() == 1 && len(exprs) == 1 &&
		len(dims) == 1 && dims[0] == len(plan.Dims[0]):
		// One value per selected row, spread across the row's depth.
		ndarray.ScatterSpread(c.values(), c.fullDims(), plan.Dims, vals)

	case isSuffix(dims, target):
		ndarray.ScatterRepeat(c.values(), c.fullDims(), plan.Dims, vals)

	case len(vals) == ndarray.SelectionSize(plan.Dims):
		ndarray.Scatter(c.values(), c.fullDims(), plan.Dims, vals)

	default:
		return errors.Newf(errors.ErrorTypeType,
			"cannot assign shape %v to selection of shape %v", dims, target)
	}

	c.markMutated()
	return nil
}

// SetAll assigns value to every cell. A scalar broadcasts everywhere; a
// value matching a trailing suffix of the cell shape broadcasts within each
// cell and repeats across rows; a full cell assigns per row; a value
// covering the full column shape assigns everything at once.
func (c *Column) SetAll(value any) error {
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.pager.Touch(c.ticket); err != nil {
		return err
	}

	dst := c.values()
	if v, ok := ndarray.AsScalar(value); ok {
		for i := range dst {
			dst[i] = v
		}
		c.markMutated()
		return nil
	}

	vals, dims, err := ndarray.FromAny(value)
	if err != nil {
		return err
	}
	if dims == nil {
		for i := range dst {
			dst[i] = vals[0]
		}
		c.markMutated()
		return nil
	}

	cellDims := c.spec.Dims()
	switch {
	case ndarray.EqualInts(dims, c.fullDims()):
		copy(dst, vals)

	case isSuffix(dims, cellDims):
		// Broadcast within the cell, then tile the cell across rows.
		period := len(vals)
		for i := range dst {
			dst[i] = vals[i%period]
		}

	default:
		return errors.Newf(errors.ErrorTypeType,
			"cannot assign shape %v to cells of shape %v", dims, cellDims)
	}

	c.markMutated()
	return nil
}

// isSuffix reports whether dims equals a trailing run of target.
func isSuffix(dims, target []int) bool {
	if len(dims) == 0 || len(dims) > len(target) {
		return false
	}
	return ndarray.EqualInts(dims, target[len(target)-len(dims):])
}

func (c *Column) markMutated() {
	c.host.MarkMutated()
}
