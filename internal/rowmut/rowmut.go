// Package rowmut implements the row mutation kernel: AppendRow and
// DeleteRow, each of which rebuilds every column of a batch in lockstep
// via internal/arrowcol's per-column kernel.
package rowmut

import (
	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
)

// AppendRow concatenates each existing column with the matching
// single-element array in values (one per column, schema order) and
// installs the resulting columns under the unchanged schema.
func AppendRow(b *batch.Batch, values []arrowcol.Array) (*batch.Batch, error) {
	if len(values) != len(b.Columns) {
		return nil, dberrors.NewErrQuery("append_row", "value count does not match column count")
	}
	newCols := make([]arrowcol.Array, len(b.Columns))
	for i, col := range b.Columns {
		appended, err := arrowcol.Append(col, values[i])
		if err != nil {
			return nil, err
		}
		newCols[i] = appended
	}
	return b.WithColumns(newCols)
}

// DeleteRow removes the element at rowIndex from every column and
// rebuilds the batch.
func DeleteRow(b *batch.Batch, rowIndex int) (*batch.Batch, error) {
	newCols := make([]arrowcol.Array, len(b.Columns))
	for i, col := range b.Columns {
		switch col.(type) {
		case *arrowcol.FixedWidthArray, *arrowcol.StringArray:
		default:
			return nil, dberrors.NewErrQuery("delete_row", "unsupported column type "+col.DataType().String())
		}
		deleted, err := arrowcol.Delete(col, rowIndex)
		if err != nil {
			return nil, err
		}
		newCols[i] = deleted
	}
	return b.WithColumns(newCols)
}
