package browserbinding_test

import (
	"os"
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/browserbinding"
	"github.com/colbase/colbase/internal/table"
	"github.com/stretchr/testify/require"
)

func usersParquetBytes(t *testing.T) []byte {
	t.Helper()
	dir := t.TempDir()

	schema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
	}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2)}, nil)
	require.NoError(t, err)
	names := arrowcol.NewStringArray([]string{"Alice", "Bob"}, nil)
	b, err := batch.New(schema, []arrowcol.Array{ids, names})
	require.NoError(t, err)

	tbl, err := table.NewWithBatch("seed", b)
	require.NoError(t, err)
	path := dir + "/seed.parquet"
	require.NoError(t, tbl.ExportParquetFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestReadFileThenQuery(t *testing.T) {
	b := browserbinding.New("mydb")
	require.NoError(t, b.ReadFile("users", usersParquetBytes(t)))

	require.ElementsMatch(t, []string{"users"}, b.GetTables())

	rows, err := b.Query("SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "id", *rows[0][0])
	require.Equal(t, "name", *rows[0][1])
	require.Equal(t, "1", *rows[1][0])
	require.Equal(t, "Alice", *rows[1][1])
	require.Equal(t, "2", *rows[2][0])
	require.Equal(t, "Bob", *rows[2][1])
}

func TestGetSchemasDescribesRegisteredTables(t *testing.T) {
	b := browserbinding.New("mydb")
	require.NoError(t, b.ReadFile("users", usersParquetBytes(t)))

	schemas, err := b.GetSchemas()
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	require.Equal(t, "users", schemas[0].TableName)
	require.Equal(t, "id", schemas[0].Fields[0].Name)
	require.Equal(t, "Int32", schemas[0].Fields[0].DataType)
}

func TestQueryPaginatedReturnsMetadata(t *testing.T) {
	b := browserbinding.New("mydb")
	require.NoError(t, b.ReadFile("users", usersParquetBytes(t)))

	rows, info, err := b.QueryPaginated("SELECT id FROM users ORDER BY id", 0, 1, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, info.TotalRows)
	require.Equal(t, int64(2), *info.TotalRows)
}

func TestRemoveTable(t *testing.T) {
	b := browserbinding.New("mydb")
	require.NoError(t, b.ReadFile("users", usersParquetBytes(t)))
	require.NoError(t, b.RemoveTable("users"))
	require.Empty(t, b.GetTables())
}
