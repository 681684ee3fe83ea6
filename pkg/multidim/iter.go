package multidim

import (
	"github.com/robbertmijn/datamatrix/pkg/table"
)

// RowIter walks a column's rows in order.
//
//	it := col.RowIter()
//	for it.Next() {
//	    process(it.RowID(), it.Cell())
//	}
type RowIter struct {
	c *Column
	i int
}

// RowIter returns an iterator positioned before the first row.
func (c *Column) RowIter() *RowIter {
	return &RowIter{c: c, i: -1}
}

// Next advances to the next row and reports whether one exists.
func (it *RowIter) Next() bool {
	if it.i+1 >= len(it.c.rowids) {
		return false
	}
	it.i++
	return true
}

// RowID returns the current row's identity.
func (it *RowIter) RowID() table.RowID {
	return it.c.rowids[it.i]
}

// Cell returns a copy of the current row's cell values, row-major.
func (it *RowIter) Cell() []float64 {
	cellLen := it.c.spec.CellLen()
	out := make([]float64, cellLen)
	copy(out, it.c.values()[it.i*cellLen:(it.i+1)*cellLen])
	return out
}
