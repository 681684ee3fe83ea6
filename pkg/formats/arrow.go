// Package formats hands column data to downstream consumers in standard
// interchange encodings. It is interchange-only: nothing here shares page
// files across processes or promises durability.
package formats

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/robbertmijn/datamatrix/pkg/errors"
	"github.com/robbertmijn/datamatrix/pkg/json"
	"github.com/robbertmijn/datamatrix/pkg/multidim"
)

// CellShapeKey is the schema metadata key carrying the cell shape, encoded
// as the column shape's JSON form.
const CellShapeKey = "datamatrix:cell_shape"

// WriteArrow writes the column as an Arrow IPC stream: one record batch with
// a "row" int64 field holding row identities and a fixed-size-list field
// named after the column holding each cell, row-major. The cell shape rides
// along as schema metadata, since the flat list does not capture it.
func WriteArrow(w io.Writer, name string, c *multidim.Column) error {
	if name == "" {
		return errors.New(errors.ErrorTypeValue, "column name is required")
	}
	if err := c.Touch(); err != nil {
		return err
	}

	shapeJSON, err := json.Marshal(c.Shape())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode cell shape")
	}
	md := arrow.NewMetadata([]string{CellShapeKey}, []string{string(shapeJSON)})

	cellLen := c.Shape().CellLen()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "row", Type: arrow.PrimitiveTypes.Int64},
		{Name: name, Type: arrow.FixedSizeListOf(int32(cellLen), arrow.PrimitiveTypes.Float64)},
	}, &md)

	alloc := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	rowBuilder := builder.Field(0).(*array.Int64Builder)
	listBuilder := builder.Field(1).(*array.FixedSizeListBuilder)
	cellBuilder := listBuilder.ValueBuilder().(*array.Float64Builder)

	it := c.RowIter()
	for it.Next() {
		rowBuilder.Append(int64(it.RowID()))
		listBuilder.Append(true)
		cellBuilder.AppendValues(it.Cell(), nil)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write arrow record")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close arrow stream")
	}
	return nil
}
