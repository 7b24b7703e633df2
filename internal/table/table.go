// Package table implements Table: a named, mutable-by-replacement
// wrapper around a batch.Batch, guarded by a RWMutex so readers never
// observe a half-written batch.
package table

import (
	"strings"
	"sync"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/rowmut"
)

// Table is (name, batch). Mutations replace the batch pointer under
// mu; reads take a snapshot of the pointer and operate outside the
// lock.
type Table struct {
	Name string

	mu    sync.RWMutex
	batch *batch.Batch
}

// New creates an empty table (empty schema, zero columns, zero rows).
func New(name string) (*Table, error) {
	if strings.ContainsAny(name, " \t\n\r") {
		return nil, dberrors.NewErrCreateDatabase(name, "table name must not contain whitespace")
	}
	b, err := batch.New(&arrowcol.Schema{}, nil)
	if err != nil {
		return nil, err
	}
	return &Table{Name: name, batch: b}, nil
}

// NewWithBatch wraps an existing batch (used by Parquet import).
func NewWithBatch(name string, b *batch.Batch) (*Table, error) {
	if strings.ContainsAny(name, " \t\n\r") {
		return nil, dberrors.NewErrCreateDatabase(name, "table name must not contain whitespace")
	}
	return &Table{Name: name, batch: b}, nil
}

// Batch returns the table's current batch under a read lock.
func (t *Table) Batch() *batch.Batch {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.batch
}

// replace installs b as the table's current batch.
func (t *Table) replace(b *batch.Batch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batch = b
}

// AddColumn inserts a field and its initial data at index.
func (t *Table) AddColumn(index int, name string, dt arrowcol.DataType, nullable bool, initial arrowcol.Array) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	nb, err := t.batch.WithAddedColumn(index, arrowcol.Field{Name: name, Type: dt, Nullable: nullable}, initial)
	if err != nil {
		return err
	}
	t.batch = nb
	return nil
}

// AppendColumnData appends data to the column at index.
func (t *Table) AppendColumnData(index int, data arrowcol.Array) error {
	return t.mutateColumn(index, func(col arrowcol.Array) (arrowcol.Array, error) {
		return arrowcol.Append(col, data)
	})
}

// InsertColumnData inserts data into the column at index at rowIndex.
func (t *Table) InsertColumnData(index, rowIndex int, data arrowcol.Array) error {
	return t.mutateColumn(index, func(col arrowcol.Array) (arrowcol.Array, error) {
		return arrowcol.Insert(col, rowIndex, data)
	})
}

// UpdateColumnData replaces the element at rowIndex in the column at
// index.
func (t *Table) UpdateColumnData(index, rowIndex int, data arrowcol.Array) error {
	return t.mutateColumn(index, func(col arrowcol.Array) (arrowcol.Array, error) {
		return arrowcol.Update(col, rowIndex, data)
	})
}

// DeleteColumnData removes the element at rowIndex from the column at
// index.
func (t *Table) DeleteColumnData(index, rowIndex int) error {
	return t.mutateColumn(index, func(col arrowcol.Array) (arrowcol.Array, error) {
		return arrowcol.Delete(col, rowIndex)
	})
}

// ReplaceColumnData rebuilds the batch with the column at index
// replaced wholesale by newColumn.
func (t *Table) ReplaceColumnData(index int, newColumn arrowcol.Array) error {
	return t.mutateColumn(index, func(arrowcol.Array) (arrowcol.Array, error) {
		return newColumn, nil
	})
}

func (t *Table) mutateColumn(index int, fn func(arrowcol.Array) (arrowcol.Array, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.batch.Columns) {
		return dberrors.NewErrColumnIndexOutOfBounds(index, len(t.batch.Columns))
	}
	newCol, err := fn(t.batch.Columns[index])
	if err != nil {
		return err
	}
	nb, err := t.batch.WithColumn(index, newCol, nil)
	if err != nil {
		return err
	}
	t.batch = nb
	return nil
}

// AppendRow appends one row, values given in schema column order.
func (t *Table) AppendRow(values []arrowcol.Array) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	nb, err := rowmut.AppendRow(t.batch, values)
	if err != nil {
		return err
	}
	t.batch = nb
	return nil
}

// DeleteRow removes the row at rowIndex.
func (t *Table) DeleteRow(rowIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	nb, err := rowmut.DeleteRow(t.batch, rowIndex)
	if err != nil {
		return err
	}
	t.batch = nb
	return nil
}

// NumRows returns the table's current row count.
func (t *Table) NumRows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.batch.NumRows()
}
