// Package table hosts columns and owns row identity. A Table issues
// sequential, never-reused row IDs, drives registered columns when rows are
// appended, and carries the mutation hook that columns mark on successful
// writes. It is deliberately minimal: the interesting data lives in the
// columns, the table just keeps them aligned.
//
// Like the columns it hosts, a Table is not safe for concurrent use.
package table

import (
	"fmt"

	"github.com/robbertmijn/datamatrix/pkg/errors"
)

// RowID identifies one row. IDs are sequential int64, strictly ascending,
// and never reused.
type RowID int64

// Column is the surface a hosted column presents to its table.
type Column interface {
	// ExtendRows grows the column by len(ids) rows, fill-initialized.
	ExtendRows(ids []RowID) error
	Close() error
}

// Table aligns a set of columns over one shared row-identity sequence.
type Table struct {
	rowids    []RowID
	nextID    RowID
	columns   map[string]Column
	names     []string // attach order
	mutations uint64
	onMutate  []func()
	closed    bool
}

// New creates a table with rows initial rows, identified 0..rows-1.
func New(rows int) *Table {
	if rows < 0 {
		rows = 0
	}
	t := &Table{
		rowids:  make([]RowID, rows),
		nextID:  RowID(rows),
		columns: make(map[string]Column),
	}
	for i := range t.rowids {
		t.rowids[i] = RowID(i)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rowids)
}

// RowIDs returns a copy of the row-identity sequence, in row order.
func (t *Table) RowIDs() []RowID {
	out := make([]RowID, len(t.rowids))
	copy(out, t.rowids)
	return out
}

// Append issues n new row identities and extends every attached column.
// Columns are extended in attach order; on a column failure the table and
// the columns already extended keep the new rows, and the error reports the
// failing column.
func (t *Table) Append(n int) ([]RowID, error) {
	if t.closed {
		return nil, errors.New(errors.ErrorTypeConfig, "table is closed")
	}
	if n < 0 {
		return nil, errors.Newf(errors.ErrorTypeValue, "cannot append %d rows", n)
	}

	ids := make([]RowID, n)
	for i := range ids {
		ids[i] = t.nextID
		t.nextID++
	}
	t.rowids = append(t.rowids, ids...)

	for _, name := range t.names {
		if err := t.columns[name].ExtendRows(ids); err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err),
				fmt.Sprintf("failed to extend column %q", name))
		}
	}
	t.MarkMutated()
	return ids, nil
}

// Attach registers a column under name. The column must already span the
// table's current rows.
func (t *Table) Attach(name string, c Column) error {
	if t.closed {
		return errors.New(errors.ErrorTypeConfig, "table is closed")
	}
	if c == nil {
		return errors.New(errors.ErrorTypeValue, "cannot attach a nil column")
	}
	if _, exists := t.columns[name]; exists {
		return errors.Newf(errors.ErrorTypeValue, "column %q already exists", name)
	}
	t.columns[name] = c
	t.names = append(t.names, name)
	return nil
}

// Column returns the column attached under name.
func (t *Table) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Names returns the attached column names in attach order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Subset returns a new table carrying the given subset of this table's row
// identities, in the given order, with no columns attached. Subset tables
// act as identity filters in column selections. Unknown identities are a
// value error.
func (t *Table) Subset(ids ...RowID) (*Table, error) {
	known := make(map[RowID]struct{}, len(t.rowids))
	for _, id := range t.rowids {
		known[id] = struct{}{}
	}

	sub := &Table{
		rowids:  make([]RowID, len(ids)),
		nextID:  t.nextID,
		columns: make(map[string]Column),
	}
	for i, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, errors.Newf(errors.ErrorTypeValue, "unknown row identity %d", id)
		}
		sub.rowids[i] = id
	}
	return sub, nil
}

// MarkMutated bumps the mutation counter and fires the change hooks.
// Columns call this after every successful write.
func (t *Table) MarkMutated() {
	t.mutations++
	for _, fn := range t.onMutate {
		fn()
	}
}

// Mutations returns the number of mutations marked so far.
func (t *Table) Mutations() uint64 {
	return t.mutations
}

// OnMutate registers a hook fired on every mutation mark.
func (t *Table) OnMutate(fn func()) {
	if fn != nil {
		t.onMutate = append(t.onMutate, fn)
	}
}

// Close closes every attached column and marks the table closed. It is
// idempotent and returns the first column close error.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var first error
	for _, name := range t.names {
		if err := t.columns[name].Close(); err != nil && first == nil {
			first = errors.Wrap(err, errors.TypeOf(err),
				fmt.Sprintf("failed to close column %q", name))
		}
	}
	return first
}
