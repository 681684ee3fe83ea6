package multidim

import (
	"github.com/robbertmijn/datamatrix/internal/ndarray"
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/indexing"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/table"
)

// Selection is the result of At. Its outcome decides which accessor carries
// the data: a lone float, one row's values, one float per selected row, or a
// derived column.
type Selection struct {
	outcome indexing.Outcome

	scalar  float64
	row     []float64
	rowDims []int
	floats  []float64
	rowIDs  []table.RowID
	column  *Column
}

// Outcome reports what the selection produced.
func (s Selection) Outcome() indexing.Outcome { return s.outcome }

// Scalar returns the single selected value. Valid for OutcomeScalar.
func (s Selection) Scalar() float64 { return s.scalar }

// Row returns one row's selected values with their per-dimension sizes,
// unsqueezed. Valid for OutcomeRow.
func (s Selection) Row() ([]float64, []int) { return s.row, s.rowDims }

// Floats returns one value per selected row. Valid for OutcomeScalarColumn.
func (s Selection) Floats() []float64 { return s.floats }

// RowIDs returns the selected row identities. Valid for OutcomeScalarColumn.
func (s Selection) RowIDs() []table.RowID { return s.rowIDs }

// Column returns the derived column. Valid for OutcomeColumn; the caller
// owns it and must close it.
func (s Selection) Column() *Column { return s.column }

// At selects from the column. The first expression indexes rows, the rest
// index cell dimensions in order; missing trailing dimensions are selected
// whole. The outcome depends on the plan: singly indexing every dimension
// yields a scalar, singly indexing only the row yields that row's values,
// squeezing away every cell dimension yields one float per row, and anything
// else yields a derived column over the surviving dimensions.
func (c *Column) At(exprs ...indexing.Expr) (Selection, error) {
	if err := c.guard(); err != nil {
		return Selection{}, err
	}
	if err := c.pager.Touch(c.ticket); err != nil {
		return Selection{}, err
	}

	plan, err := indexing.Translate(exprs, c.spec, c.rowids)
	if err != nil {
		return Selection{}, err
	}

	vals := ndarray.Gather(c.values(), c.fullDims(), plan.Dims)
	outcome, keep := indexing.Classify(plan)

	switch outcome {
	case indexing.OutcomeScalar:
		return Selection{outcome: outcome, scalar: vals[0]}, nil

	case indexing.OutcomeRow:
		return Selection{
			outcome: outcome,
			row:     vals,
			rowDims: plan.ResultDims()[1:],
		}, nil

	case indexing.OutcomeScalarColumn:
		return Selection{
			outcome: outcome,
			floats:  vals,
			rowIDs:  c.selectedIDs(plan.Dims[0]),
		}, nil
	}

	spec, err := c.derivedSpec(plan, keep)
	if err != nil {
		return Selection{}, err
	}
	derived, err := newDerived(c, spec, c.selectedIDs(plan.Dims[0]), vals)
	if err != nil {
		return Selection{}, err
	}
	return Selection{outcome: outcome, column: derived}, nil
}

// selectedIDs maps selected row positions to their identities.
func (c *Column) selectedIDs(positions []int) []table.RowID {
	ids := make([]table.RowID, len(positions))
	for i, pos := range positions {
		ids[i] = c.rowids[pos]
	}
	return ids
}

// derivedSpec builds the cell shape of a derived column from the surviving
// dimensions. A named dimension keeps the selected names; when a selection
// repeats a name the dimension degrades to unnamed, since name lookups would
// be ambiguous.
func (c *Column) derivedSpec(plan indexing.Plan, keep []int) (shape.Spec, error) {
	dims := make([]shape.Dim, len(keep))
	for i, d := range keep {
		positions := plan.Dims[d]
		names := c.spec.Names(d - 1)
		if names == nil {
			dims[i] = shape.Sized(len(positions))
			continue
		}
		picked := make([]string, len(positions))
		seen := make(map[string]bool, len(positions))
		unique := true
		for j, pos := range positions {
			picked[j] = names[pos]
			if seen[picked[j]] {
				unique = false
			}
			seen[picked[j]] = true
		}
		if unique {
			dims[i] = shape.Named(picked...)
		} else {
			dims[i] = shape.Sized(len(positions))
		}
	}
	spec, err := shape.New(dims...)
	if err != nil {
		return shape.Spec{}, errors.Wrap(err, errors.ErrorTypeInternal,
			"derived column shape")
	}
	return spec, nil
}
