// Package batch holds the Batch type: an immutable pairing of a schema
// with one array per field, all of the same length.
package batch

import (
	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/dberrors"
)

// Batch is an immutable (schema, columns) pair. Every column's length
// equals NumRows.
type Batch struct {
	Schema  *arrowcol.Schema
	Columns []arrowcol.Array
}

// New validates that schema and columns agree in length and that every
// column's runtime type tag matches its field, then returns a Batch.
func New(schema *arrowcol.Schema, columns []arrowcol.Array) (*Batch, error) {
	if len(schema.Fields) != len(columns) {
		return nil, dberrors.NewErrCreateRecordBatch("schema field count does not match column count")
	}
	var rows int
	if len(columns) > 0 {
		rows = columns[0].Len()
	}
	for i, col := range columns {
		if col.Len() != rows {
			return nil, dberrors.NewErrCreateRecordBatch("column length mismatch")
		}
		if col.DataType() != schema.Fields[i].Type {
			return nil, dberrors.NewErrDataType(schema.Fields[i].Name, schema.Fields[i].Type.String(), col.DataType().String())
		}
	}
	return &Batch{Schema: schema, Columns: columns}, nil
}

// NumRows returns the batch's row count (zero for a batch with no
// columns).
func (b *Batch) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Len()
}

// WithColumn returns a new Batch with the column at index replaced,
// keeping the schema unless newField is non-nil.
func (b *Batch) WithColumn(index int, col arrowcol.Array, newField *arrowcol.Field) (*Batch, error) {
	if index < 0 || index >= len(b.Columns) {
		return nil, dberrors.NewErrColumnIndexOutOfBounds(index, len(b.Columns))
	}
	schema := b.Schema
	if newField != nil {
		schema = b.Schema.Clone()
		schema.Fields[index] = *newField
	}
	cols := make([]arrowcol.Array, len(b.Columns))
	copy(cols, b.Columns)
	cols[index] = col
	return New(schema, cols)
}

// WithAddedColumn inserts a field and column at index.
func (b *Batch) WithAddedColumn(index int, field arrowcol.Field, col arrowcol.Array) (*Batch, error) {
	if index < 0 || index > len(b.Columns) {
		return nil, dberrors.NewErrColumnIndexOutOfBounds(index, len(b.Columns))
	}
	schema := b.Schema.Clone()
	fields := make([]arrowcol.Field, 0, len(schema.Fields)+1)
	fields = append(fields, schema.Fields[:index]...)
	fields = append(fields, field)
	fields = append(fields, schema.Fields[index:]...)
	schema.Fields = fields

	cols := make([]arrowcol.Array, 0, len(b.Columns)+1)
	cols = append(cols, b.Columns[:index]...)
	cols = append(cols, col)
	cols = append(cols, b.Columns[index:]...)
	return New(schema, cols)
}

// WithColumns returns a new Batch over the same schema and a full
// replacement column slice, used by the row mutation kernel which
// rebuilds every column at once.
func (b *Batch) WithColumns(cols []arrowcol.Array) (*Batch, error) {
	return New(b.Schema, cols)
}
