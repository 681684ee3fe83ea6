// Package indexing translates per-dimension index expressions into integer
// position arrays over a column's full shape (rows first, then cell
// dimensions). Selections combine as an outer product: the chosen positions
// of each dimension form a cross product, never a zip.
package indexing

import (
	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/shape"
	"github.com/robbertmijn/datamatrix/pkg/table"
)

// Expr selects positions within one dimension. Expressions are built with
// the constructors in this package; the interface is sealed.
type Expr interface {
	// resolve returns the selected positions for dimension dim (0 = rows)
	// of size n.
	resolve(rc resolveCtx, dim, n int) ([]int, error)
	// single reports whether the expression names exactly one position
	// outright, the way a bare integer or name does.
	single() bool
	// explicit reports whether the expression is an explicit slice: such
	// dimensions survive result squeezing even at size 1.
	explicit() bool
}

type resolveCtx struct {
	spec   shape.Spec
	rowIDs []table.RowID
}

// At selects a single position. Negative positions count from the end.
func At(i int) Expr { return atExpr{i: i} }

type atExpr struct{ i int }

func (e atExpr) resolve(_ resolveCtx, dim, n int) ([]int, error) {
	i, err := normalize(e.i, dim, n)
	if err != nil {
		return nil, err
	}
	return []int{i}, nil
}

func (e atExpr) single() bool   { return true }
func (e atExpr) explicit() bool { return false }

// Name selects a single position through the dimension's name table.
func Name(s string) Expr { return nameExpr{s: s} }

type nameExpr struct{ s string }

func (e nameExpr) resolve(rc resolveCtx, dim, _ int) ([]int, error) {
	i, err := resolveName(rc, dim, e.s)
	if err != nil {
		return nil, err
	}
	return []int{i}, nil
}

func (e nameExpr) single() bool   { return true }
func (e nameExpr) explicit() bool { return false }

// All selects the whole dimension. It is an explicit slice: a size-1
// dimension selected with All survives result squeezing.
func All() Expr { return spanExpr{full: true, step: 1} }

// Span selects the half-open range [start, stop) with Python slice
// semantics: negative bounds count from the end, out-of-range bounds clamp.
func Span(start, stop int) Expr {
	return spanExpr{start: start, stop: stop, step: 1}
}

// SpanStep is Span with a stride. A negative step walks backwards; zero is
// an index error.
func SpanStep(start, stop, step int) Expr {
	return spanExpr{start: start, stop: stop, step: step}
}

type spanExpr struct {
	start, stop, step int
	full              bool
}

func (e spanExpr) resolve(_ resolveCtx, _, n int) ([]int, error) {
	if e.step == 0 {
		return nil, errors.New(errors.ErrorTypeIndex, "slice step cannot be zero")
	}
	start, stop := e.start, e.stop
	if e.full {
		start, stop = 0, n
	}

	// Python slice.indices clamping.
	if e.step > 0 {
		start = clampForward(start, n)
		stop = clampForward(stop, n)
		out := make([]int, 0, max((stop-start+e.step-1)/e.step, 0))
		for i := start; i < stop; i += e.step {
			out = append(out, i)
		}
		return out, nil
	}

	start = clampBackward(start, n)
	stop = clampBackward(stop, n)
	var out []int
	for i := start; i > stop; i += e.step {
		out = append(out, i)
	}
	return out, nil
}

func (e spanExpr) single() bool   { return false }
func (e spanExpr) explicit() bool { return true }

func clampForward(v, n int) int {
	if v < 0 {
		v += n
		if v < 0 {
			return 0
		}
	}
	if v > n {
		return n
	}
	return v
}

func clampBackward(v, n int) int {
	if v < 0 {
		v += n
		if v < 0 {
			return -1
		}
	}
	if v >= n {
		return n - 1
	}
	return v
}

// Ellipsis expands to All() for every dimension the expression list leaves
// unspecified. At most one per selection.
func Ellipsis() Expr { return ellipsisExpr{} }

type ellipsisExpr struct{}

func (ellipsisExpr) resolve(resolveCtx, int, int) ([]int, error) {
	return nil, errors.New(errors.ErrorTypeInternal, "unexpanded ellipsis")
}

func (ellipsisExpr) single() bool   { return false }
func (ellipsisExpr) explicit() bool { return true }

// Pick selects an explicit sequence of positions: ints (negatives count from
// the end), names, or a mix.
func Pick(vals ...any) Expr { return pickExpr{vals: vals} }

type pickExpr struct{ vals []any }

func (e pickExpr) resolve(rc resolveCtx, dim, n int) ([]int, error) {
	if len(e.vals) == 0 {
		return nil, errors.New(errors.ErrorTypeIndex, "empty selection")
	}
	out := make([]int, len(e.vals))
	for k, v := range e.vals {
		switch x := v.(type) {
		case int:
			i, err := normalize(x, dim, n)
			if err != nil {
				return nil, err
			}
			out[k] = i
		case string:
			i, err := resolveName(rc, dim, x)
			if err != nil {
				return nil, err
			}
			out[k] = i
		default:
			return nil, errors.Newf(errors.ErrorTypeType,
				"selection positions must be int or string, got %T", v)
		}
	}
	return out, nil
}

func (e pickExpr) single() bool   { return false }
func (e pickExpr) explicit() bool { return false }

// Mask selects positions by a boolean mask whose length must equal the
// dimension size.
func Mask(keep ...bool) Expr { return maskExpr{keep: keep} }

type maskExpr struct{ keep []bool }

func (e maskExpr) resolve(_ resolveCtx, _, n int) ([]int, error) {
	if len(e.keep) != n {
		return nil, errors.Newf(errors.ErrorTypeIndex,
			"boolean mask length %d does not match dimension size %d", len(e.keep), n)
	}
	var out []int
	for i, keep := range e.keep {
		if keep {
			out = append(out, i)
		}
	}
	if out == nil {
		out = []int{}
	}
	return out, nil
}

func (e maskExpr) single() bool   { return false }
func (e maskExpr) explicit() bool { return false }

// Rows selects row positions whose identity appears in t's identity
// sequence, in t's order: an identity filter, not positional. Only valid on
// the row dimension.
func Rows(t *table.Table) Expr { return rowsExpr{t: t} }

type rowsExpr struct{ t *table.Table }

func (e rowsExpr) resolve(rc resolveCtx, dim, _ int) ([]int, error) {
	if dim != 0 {
		return nil, errors.New(errors.ErrorTypeIndex,
			"identity filter only applies to the row dimension")
	}
	if e.t == nil {
		return nil, errors.New(errors.ErrorTypeValue, "nil table in identity filter")
	}

	positions := make(map[table.RowID]int, len(rc.rowIDs))
	for i, id := range rc.rowIDs {
		positions[id] = i
	}

	want := e.t.RowIDs()
	out := make([]int, len(want))
	for k, id := range want {
		pos, ok := positions[id]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeValue,
				"cannot filter rows with a different table: identity %d not present", id)
		}
		out[k] = pos
	}
	return out, nil
}

func (e rowsExpr) single() bool   { return false }
func (e rowsExpr) explicit() bool { return false }

// normalize wraps a possibly negative position and bounds-checks it.
func normalize(i, dim, n int) (int, error) {
	pos := i
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos >= n {
		return 0, errors.Newf(errors.ErrorTypeIndex,
			"index %d out of range for dimension %d of size %d", i, dim, n)
	}
	return pos, nil
}

// resolveName maps a name through the dimension's name table. The row
// dimension has none.
func resolveName(rc resolveCtx, dim int, name string) (int, error) {
	if dim == 0 {
		return 0, errors.Newf(errors.ErrorTypeValue,
			"'%s' is not an index name: the row dimension has no name table", name)
	}
	return rc.spec.Resolve(dim-1, name)
}
