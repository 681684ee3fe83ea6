// Package shape describes the per-row cell dimensions of a multi-dimensional
// column. A Spec lists only the non-row dimensions: the row count is always
// the implicit first dimension of the full column shape and is owned by the
// host table.
//
// Dimensions are either sized (positions 0..n-1) or named (a name table whose
// length is the size). Specs are immutable values; mutation-like operations
// return a new Spec.
package shape

import (
	"strconv"
	"strings"

	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/json"
)

// Dim describes one non-row dimension of a cell.
type Dim struct {
	size  int
	names []string
}

// Sized returns an unnamed dimension of size n.
func Sized(n int) Dim {
	return Dim{size: n}
}

// Named returns a dimension whose size is len(names), indexable by name.
// The name table is copied, so later mutation of the argument slice does not
// reach the dimension.
func Named(names ...string) Dim {
	return Dim{size: len(names), names: append([]string{}, names...)}
}

// Spec is an ordered, immutable list of cell dimensions.
type Spec struct {
	dims    []Dim
	cellLen int
}

// New validates and assembles a Spec. It fails with a config error on an
// empty dimension list, a non-positive size, an empty name list, or duplicate
// names within one dimension.
func New(dims ...Dim) (Spec, error) {
	if len(dims) == 0 {
		return Spec{}, errors.New(errors.ErrorTypeConfig,
			"shape spec has no dimensions")
	}
	cellLen := 1
	for i, d := range dims {
		if d.names != nil {
			if len(d.names) == 0 {
				return Spec{}, errors.Newf(errors.ErrorTypeConfig,
					"dimension %d has an empty name list", i)
			}
			seen := make(map[string]struct{}, len(d.names))
			for _, n := range d.names {
				if _, dup := seen[n]; dup {
					return Spec{}, errors.Newf(errors.ErrorTypeConfig,
						"duplicate name %q in dimension %d", n, i)
				}
				seen[n] = struct{}{}
			}
		} else if d.size < 1 {
			return Spec{}, errors.Newf(errors.ErrorTypeConfig,
				"dimension %d has non-positive size %d", i, d.size)
		}
		cellLen *= d.size
	}
	out := Spec{dims: make([]Dim, len(dims)), cellLen: cellLen}
	copy(out.dims, dims)
	return out, nil
}

// NumDims returns the number of non-row dimensions.
func (s Spec) NumDims() int {
	return len(s.dims)
}

// DimSize returns the size of dimension d. Out-of-range d panics.
func (s Spec) DimSize(d int) int {
	return s.dims[d].size
}

// Names returns a copy of dimension d's name table, or nil when the
// dimension is unnamed.
func (s Spec) Names(d int) []string {
	src := s.dims[d].names
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// CellLen returns the number of float64 values in one cell: the product of
// all dimension sizes.
func (s Spec) CellLen() int {
	return s.cellLen
}

// Dims returns a copy of the dimension sizes.
func (s Spec) Dims() []int {
	out := make([]int, len(s.dims))
	for i, d := range s.dims {
		out[i] = d.size
	}
	return out
}

// Resolve returns the position of name in dimension d's name table. Unnamed
// dimensions and unknown names are value errors.
func (s Spec) Resolve(d int, name string) (int, error) {
	dim := s.dims[d]
	if dim.names == nil {
		return 0, errors.Newf(errors.ErrorTypeValue,
			"'%s' is not an index name: dimension %d has no name table", name, d)
	}
	for i, n := range dim.names {
		if n == name {
			return i, nil
		}
	}
	return 0, errors.Newf(errors.ErrorTypeValue,
		"'%s' is not an index name", name)
}

// Depth returns the size of the single non-row dimension. Columns with more
// than one non-row dimension have no depth.
func (s Spec) Depth() (int, error) {
	if len(s.dims) != 1 {
		return 0, errors.New(errors.ErrorTypeConfig,
			"column has more than one non-row dimension")
	}
	return s.dims[0].size, nil
}

// WithDepth returns a new one-dimensional Spec with the given depth. The
// dimension's name table, if any, does not survive the resize.
func (s Spec) WithDepth(d int) (Spec, error) {
	if len(s.dims) != 1 {
		return Spec{}, errors.New(errors.ErrorTypeConfig,
			"column has more than one non-row dimension")
	}
	if d <= 0 {
		return Spec{}, errors.Newf(errors.ErrorTypeConfig,
			"depth must be positive, got %d", d)
	}
	return New(Sized(d))
}

// Equal reports whether both specs have identical sizes and name tables.
func (s Spec) Equal(other Spec) bool {
	if len(s.dims) != len(other.dims) {
		return false
	}
	for i, d := range s.dims {
		o := other.dims[i]
		if d.size != o.size || len(d.names) != len(o.names) {
			return false
		}
		for j, n := range d.names {
			if n != o.names[j] {
				return false
			}
		}
	}
	return true
}

// String renders the spec as a tuple, name tables inline:
// ((x, y), 4) for Named("x","y"), Sized(4).
func (s Spec) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, d := range s.dims {
		if i > 0 {
			b.WriteString(", ")
		}
		if d.names == nil {
			b.WriteString(strconv.Itoa(d.size))
			continue
		}
		b.WriteByte('(')
		for j, n := range d.names {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n)
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

// MarshalJSON renders the spec as a JSON array with one element per
// dimension: a number for sized dimensions, an array of names for named ones.
func (s Spec) MarshalJSON() ([]byte, error) {
	out := make([]any, len(s.dims))
	for i, d := range s.dims {
		if d.names == nil {
			out[i] = d.size
		} else {
			out[i] = d.names
		}
	}
	return json.Marshal(out)
}
