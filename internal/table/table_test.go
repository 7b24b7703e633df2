package table

import (
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBatch(t *testing.T) *batch.Batch {
	t.Helper()
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
	}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2)}, nil)
	require.NoError(t, err)
	names := arrowcol.NewStringArray([]string{"Alice", "Bob"}, nil)
	b, err := batch.New(schema, []arrowcol.Array{ids, names})
	require.NoError(t, err)
	return b
}

func TestNewRejectsWhitespaceInName(t *testing.T) {
	_, err := New("bad name")
	require.Error(t, err)
}

func TestNewProducesEmptyTable(t *testing.T) {
	tbl, err := New("empty")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
}

func TestNewWithBatchWrapsBatch(t *testing.T) {
	tbl, err := NewWithBatch("users", seedBatch(t))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "users", tbl.Name)
}

// idOnlyTable builds a single-column table: the length-changing column
// ops (append/insert/delete) only keep the batch valid when every
// column moves together, so a one-column table is the unit they apply
// to directly.
func idOnlyTable(t *testing.T) *Table {
	t.Helper()
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{{Name: "id", Type: arrowcol.Int32}}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2)}, nil)
	require.NoError(t, err)
	b, err := batch.New(schema, []arrowcol.Array{ids})
	require.NoError(t, err)
	tbl, err := NewWithBatch("ids", b)
	require.NoError(t, err)
	return tbl
}

func TestAppendColumnDataAndUpdateColumnData(t *testing.T) {
	tbl := idOnlyTable(t)

	extra, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(3)}, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.AppendColumnData(0, extra))
	assert.Equal(t, 3, tbl.Batch().Columns[0].Len())

	updated, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(99)}, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.UpdateColumnData(0, 0, updated))
	assert.Equal(t, int32(99), tbl.Batch().Columns[0].Value(0))
}

func TestInsertAndDeleteColumnData(t *testing.T) {
	tbl := idOnlyTable(t)

	inserted, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(7)}, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.InsertColumnData(0, 1, inserted))
	assert.Equal(t, int32(7), tbl.Batch().Columns[0].Value(1))

	require.NoError(t, tbl.DeleteColumnData(0, 1))
	assert.Equal(t, int32(2), tbl.Batch().Columns[0].Value(1))
}

func TestAppendColumnDataRejectsLengthSkew(t *testing.T) {
	tbl, err := NewWithBatch("users", seedBatch(t))
	require.NoError(t, err)

	extra, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(3)}, nil)
	require.NoError(t, err)
	err = tbl.AppendColumnData(0, extra)
	require.Error(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestMutateColumnRejectsOutOfRangeIndex(t *testing.T) {
	tbl, err := NewWithBatch("users", seedBatch(t))
	require.NoError(t, err)
	err = tbl.AppendColumnData(5, tbl.Batch().Columns[0])
	require.Error(t, err)
}

func TestAddColumn(t *testing.T) {
	tbl, err := NewWithBatch("users", seedBatch(t))
	require.NoError(t, err)

	age, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(30), int32(40)}, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.AddColumn(2, "age", arrowcol.Int32, false, age))
	require.Len(t, tbl.Batch().Schema.Fields, 3)
	assert.Equal(t, "age", tbl.Batch().Schema.Fields[2].Name)
}

func TestReplaceColumnData(t *testing.T) {
	tbl, err := NewWithBatch("users", seedBatch(t))
	require.NoError(t, err)

	replacement := arrowcol.NewStringArray([]string{"X", "Y"}, nil)
	require.NoError(t, tbl.ReplaceColumnData(1, replacement))
	assert.Equal(t, "X", tbl.Batch().Columns[1].Value(0))
}

func TestAppendRowAndDeleteRow(t *testing.T) {
	tbl, err := NewWithBatch("users", seedBatch(t))
	require.NoError(t, err)

	id3, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(3)}, nil)
	require.NoError(t, err)
	name3 := arrowcol.NewStringArray([]string{"Carol"}, nil)
	require.NoError(t, tbl.AppendRow([]arrowcol.Array{id3, name3}))
	assert.Equal(t, 3, tbl.NumRows())

	require.NoError(t, tbl.DeleteRow(0))
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, int32(2), tbl.Batch().Columns[0].Value(0))
}
