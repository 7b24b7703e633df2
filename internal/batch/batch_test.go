package batch

import (
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersSchema() *arrowcol.Schema {
	return &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
	}}
}

func usersColumns(t *testing.T) []arrowcol.Array {
	t.Helper()
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2)}, nil)
	require.NoError(t, err)
	names := arrowcol.NewStringArray([]string{"Alice", "Bob"}, nil)
	return []arrowcol.Array{ids, names}
}

func TestNewValidatesFieldColumnCount(t *testing.T) {
	_, err := New(usersSchema(), usersColumns(t)[:1])
	require.Error(t, err)
	assert.IsType(t, &dberrors.ErrCreateRecordBatch{}, err)
}

func TestNewValidatesColumnLengths(t *testing.T) {
	cols := usersColumns(t)
	short, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1)}, nil)
	require.NoError(t, err)
	cols[0] = short
	_, err = New(usersSchema(), cols)
	require.Error(t, err)
}

func TestNewValidatesColumnDataType(t *testing.T) {
	cols := usersColumns(t)
	cols[0], cols[1] = cols[1], cols[0]
	_, err := New(usersSchema(), cols)
	require.Error(t, err)
	assert.IsType(t, &dberrors.ErrDataType{}, err)
}

func TestNumRowsEmptyBatch(t *testing.T) {
	b, err := New(&arrowcol.Schema{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, b.NumRows())
}

func TestWithColumnReplacesInPlace(t *testing.T) {
	b, err := New(usersSchema(), usersColumns(t))
	require.NoError(t, err)

	newNames := arrowcol.NewStringArray([]string{"Zed", "Bob"}, nil)
	updated, err := b.WithColumn(1, newNames, nil)
	require.NoError(t, err)
	assert.Equal(t, "Zed", updated.Columns[1].Value(0))
	assert.Equal(t, "Alice", b.Columns[1].Value(0))
}

func TestWithColumnRejectsOutOfRangeIndex(t *testing.T) {
	b, err := New(usersSchema(), usersColumns(t))
	require.NoError(t, err)

	_, err = b.WithColumn(5, b.Columns[0], nil)
	require.Error(t, err)
	assert.IsType(t, &dberrors.ErrColumnIndexOutOfBounds{}, err)
}

func TestWithColumnCanRenameField(t *testing.T) {
	b, err := New(usersSchema(), usersColumns(t))
	require.NoError(t, err)

	renamed := arrowcol.Field{Name: "full_name", Type: arrowcol.Utf8}
	updated, err := b.WithColumn(1, b.Columns[1], &renamed)
	require.NoError(t, err)
	assert.Equal(t, "full_name", updated.Schema.Fields[1].Name)
	assert.Equal(t, "name", b.Schema.Fields[1].Name)
}

func TestWithAddedColumnInsertsAtIndex(t *testing.T) {
	b, err := New(usersSchema(), usersColumns(t))
	require.NoError(t, err)

	age, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(30), int32(40)}, nil)
	require.NoError(t, err)
	updated, err := b.WithAddedColumn(1, arrowcol.Field{Name: "age", Type: arrowcol.Int32}, age)
	require.NoError(t, err)

	require.Len(t, updated.Schema.Fields, 3)
	assert.Equal(t, "age", updated.Schema.Fields[1].Name)
	assert.Equal(t, "name", updated.Schema.Fields[2].Name)
	assert.Len(t, b.Schema.Fields, 2)
}

func TestWithColumnsRebuildsEntireBatch(t *testing.T) {
	b, err := New(usersSchema(), usersColumns(t))
	require.NoError(t, err)

	ids2, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(9)}, nil)
	require.NoError(t, err)
	names2 := arrowcol.NewStringArray([]string{"Carol"}, nil)
	updated, err := b.WithColumns([]arrowcol.Array{ids2, names2})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.NumRows())
	assert.Equal(t, 2, b.NumRows())
}
