package multidim

import (
	"math"

	"github.com/robbertmijn/datamatrix/internal/ndarray"
	"github.com/robbertmijn/datamatrix/pkg/errors"
)

// Add returns a new column holding the element-wise sum.
func (c *Column) Add(other any) (*Column, error) {
	return c.apply(other, func(a, b float64) float64 { return a + b })
}

// Sub returns a new column holding the element-wise difference.
func (c *Column) Sub(other any) (*Column, error) {
	return c.apply(other, func(a, b float64) float64 { return a - b })
}

// Mul returns a new column holding the element-wise product.
func (c *Column) Mul(other any) (*Column, error) {
	return c.apply(other, func(a, b float64) float64 { return a * b })
}

// Div returns a new column holding the element-wise IEEE 754 quotient:
// dividing by zero yields ±Inf or NaN, never an error.
func (c *Column) Div(other any) (*Column, error) {
	return c.apply(other, func(a, b float64) float64 { return a / b })
}

// Pow returns a new column holding the element-wise power.
func (c *Column) Pow(other any) (*Column, error) {
	return c.apply(other, math.Pow)
}

// Mod returns a new column holding the element-wise floating-point
// remainder.
func (c *Column) Mod(other any) (*Column, error) {
	return c.apply(other, math.Mod)
}

// apply builds the derived column for a binary operation. The operand may be
// a scalar, another column of identical full shape, one value per row, or a
// nested value covering the full shape. The result carries this column's row
// identities and cell shape.
func (c *Column) apply(other any, op func(a, b float64) float64) (*Column, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	if err := c.pager.Touch(c.ticket); err != nil {
		return nil, err
	}

	src := c.values()
	out := make([]float64, len(src))

	if oc, ok := other.(*Column); ok {
		if err := oc.guard(); err != nil {
			return nil, err
		}
		if err := oc.pager.Touch(oc.ticket); err != nil {
			return nil, err
		}
		if len(oc.rowids) != len(c.rowids) || !oc.spec.Equal(c.spec) {
			return nil, errors.Newf(errors.ErrorTypeType,
				"operand shape %v does not match %v", oc.Dims(), c.Dims())
		}
		b := oc.values()
		for i, a := range src {
			out[i] = op(a, b[i])
		}
		return newDerived(c, c.spec, c.RowIDs(), out)
	}

	if v, ok := ndarray.AsScalar(other); ok {
		for i, a := range src {
			out[i] = op(a, v)
		}
		return newDerived(c, c.spec, c.RowIDs(), out)
	}

	vals, dims, err := ndarray.FromAny(other)
	if err != nil {
		return nil, err
	}
	switch {
	case dims == nil:
		for i, a := range src {
			out[i] = op(a, vals[0])
		}
	case len(dims) == 1 && dims[0] == len(c.rowids):
		// One operand value per row.
		cellLen := c.spec.CellLen()
		for r, v := range vals {
			base := r * cellLen
			for j := 0; j < cellLen; j++ {
				out[base+j] = op(src[base+j], v)
			}
		}
	case ndarray.EqualInts(dims, c.fullDims()):
		for i, a := range src {
			out[i] = op(a, vals[i])
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeType,
			"operand shape %v does not match %v", dims, c.Dims())
	}

	return newDerived(c, c.spec, c.RowIDs(), out)
}

// CompareOp names a relational comparison.
type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
)

// Compare always fails: an array cell has no per-row truth value.
func (c *Column) Compare(op CompareOp, other any) error {
	return errors.New(errors.ErrorTypeUnsupported,
		"cannot compare multi-dimensional columns")
}

// Unique always fails: cells have no total order to deduplicate by.
func (c *Column) Unique() ([]float64, error) {
	return nil, errors.New(errors.ErrorTypeUnsupported,
		"cannot take unique values of a multi-dimensional column")
}
