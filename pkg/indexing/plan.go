package indexing

import (
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/table"
)

// Plan is a fully resolved selection: integer positions per dimension, in
// full-shape order (rows first). The selection covers the cross product of
// all per-dimension positions.
type Plan struct {
	// Dims holds the selected positions per dimension.
	Dims [][]int
	// Explicit marks dimensions selected by an explicit slice (All, Span,
	// SpanStep) or by ellipsis expansion.
	Explicit []bool
	// Single marks dimensions selected by a bare At or Name.
	Single []bool
	// Covered reports whether the expression list (after ellipsis
	// expansion) named every dimension.
	Covered bool
}

// ResultDims returns the per-dimension selection sizes, rows included.
func (p Plan) ResultDims() []int {
	out := make([]int, len(p.Dims))
	for i, d := range p.Dims {
		out[i] = len(d)
	}
	return out
}

// Translate resolves an expression list against a column's shape and row
// identities. Missing trailing dimensions are taken whole; one Ellipsis may
// stand in for any run of middle dimensions.
func Translate(exprs []Expr, spec shape.Spec, rowIDs []table.RowID) (Plan, error) {
	ndim := 1 + spec.NumDims()
	rc := resolveCtx{spec: spec, rowIDs: rowIDs}

	expanded, err := expandEllipsis(exprs, ndim)
	if err != nil {
		return Plan{}, err
	}
	if len(expanded) > ndim {
		return Plan{}, errors.Newf(errors.ErrorTypeIndex,
			"too many indices: %d expressions for %d dimensions", len(expanded), ndim)
	}

	plan := Plan{
		Dims:     make([][]int, ndim),
		Explicit: make([]bool, ndim),
		Single:   make([]bool, ndim),
		Covered:  len(expanded) == ndim,
	}
	for d := 0; d < ndim; d++ {
		size := len(rowIDs)
		if d > 0 {
			size = spec.DimSize(d - 1)
		}

		// Dimensions beyond the expression list are taken whole, but
		// implicitly: they do not count as explicit slices.
		if d >= len(expanded) {
			plan.Dims[d] = wholeDim(size)
			continue
		}

		e := expanded[d]
		positions, err := e.resolve(rc, d, size)
		if err != nil {
			return Plan{}, err
		}
		plan.Dims[d] = positions
		plan.Explicit[d] = e.explicit()
		plan.Single[d] = e.single()
	}
	return plan, nil
}

// expandEllipsis replaces the single allowed Ellipsis with as many All()
// as needed for the list to cover every dimension.
func expandEllipsis(exprs []Expr, ndim int) ([]Expr, error) {
	pos := -1
	for i, e := range exprs {
		if _, ok := e.(ellipsisExpr); !ok {
			continue
		}
		if pos >= 0 {
			return nil, errors.New(errors.ErrorTypeIndex,
				"at most one ellipsis (...) allowed in indexing")
		}
		pos = i
	}
	if pos < 0 {
		return exprs, nil
	}

	fill := ndim - len(exprs) + 1
	if fill < 0 {
		fill = 0
	}
	out := make([]Expr, 0, len(exprs)-1+fill)
	out = append(out, exprs[:pos]...)
	for i := 0; i < fill; i++ {
		out = append(out, All())
	}
	return append(out, exprs[pos+1:]...), nil
}

func wholeDim(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Outcome tags what a selection produces.
type Outcome int

const (
	// OutcomeScalar: every dimension singly indexed and the expression
	// covered all of them: one float.
	OutcomeScalar Outcome = iota
	// OutcomeRow: only the row dimension singly indexed, yielding one row's
	// selected values.
	OutcomeRow
	// OutcomeScalarColumn: every non-row dimension squeezed away, leaving one
	// float per selected row.
	OutcomeScalarColumn
	// OutcomeColumn: the surviving dimensions form a new column.
	OutcomeColumn
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScalar:
		return "scalar"
	case OutcomeRow:
		return "row"
	case OutcomeScalarColumn:
		return "scalar-column"
	case OutcomeColumn:
		return "column"
	}
	return "unknown"
}

// Classify tags a plan's outcome and lists the surviving non-row dimensions.
// Size-1 non-row dimensions are squeezed away unless an explicit slice or
// ellipsis produced them; when none survive and the rows were not singly
// indexed, the result degrades to one float per selected row.
func Classify(p Plan) (Outcome, []int) {
	if p.Covered {
		scalar := true
		for _, s := range p.Single {
			if !s {
				scalar = false
				break
			}
		}
		if scalar {
			return OutcomeScalar, nil
		}
	}
	if len(p.Single) > 0 && p.Single[0] {
		return OutcomeRow, nil
	}

	var keep []int
	for d := 1; d < len(p.Dims); d++ {
		if len(p.Dims[d]) > 1 || p.Explicit[d] {
			keep = append(keep, d)
		}
	}
	if len(keep) == 0 {
		return OutcomeScalarColumn, nil
	}
	return OutcomeColumn, keep
}
