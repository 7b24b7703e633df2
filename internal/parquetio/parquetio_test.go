package parquetio_test

import (
	"os"
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/parquetio"
	"github.com/colbase/colbase/internal/table"
	"github.com/stretchr/testify/require"
)

type fakeEngineCtx struct{}

func (fakeEngineCtx) RegisterTable(name string, b *batch.Batch) error { return nil }
func (fakeEngineCtx) Deregister(name string) error                    { return nil }

func usersBatch(t *testing.T) *batch.Batch {
	t.Helper()
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
	}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2), int32(3)}, nil)
	require.NoError(t, err)
	names := arrowcol.NewStringArray([]string{"Alice", "Bob", "Carol"}, nil)
	b, err := batch.New(schema, []arrowcol.Array{ids, names})
	require.NoError(t, err)
	return b
}

func TestSaveThenLoadDatabaseRoundTrips(t *testing.T) {
	dir := t.TempDir()

	db := database.New("mydb", fakeEngineCtx{})
	tbl, err := table.NewWithBatch("users", usersBatch(t))
	require.NoError(t, err)
	require.NoError(t, db.AddTable(tbl))

	require.NoError(t, parquetio.SaveDatabase(db, dir))

	loaded, err := parquetio.LoadDatabase(dir, fakeEngineCtx{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"users"}, loaded.TableNames())

	got, err := loaded.GetTable("users")
	require.NoError(t, err)
	require.Equal(t, 3, got.NumRows())
	require.Equal(t, int32(1), got.Batch().Columns[0].Value(0))
	require.Equal(t, "Carol", got.Batch().Columns[1].Value(2))
}

func TestLoadDatabaseIgnoresNonParquetEntries(t *testing.T) {
	dir := t.TempDir()
	db := database.New("mydb", fakeEngineCtx{})
	tbl, err := table.NewWithBatch("users", usersBatch(t))
	require.NoError(t, err)
	require.NoError(t, db.AddTable(tbl))
	require.NoError(t, parquetio.SaveDatabase(db, dir))

	require.NoError(t, os.WriteFile(dir+"/README.txt", []byte("not a table"), 0o644))

	loaded, err := parquetio.LoadDatabase(dir, fakeEngineCtx{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"users"}, loaded.TableNames())
}

func TestLoadTableBytesRegistersTable(t *testing.T) {
	dir := t.TempDir()
	db := database.New("mydb", fakeEngineCtx{})
	tbl, err := table.NewWithBatch("users", usersBatch(t))
	require.NoError(t, err)
	require.NoError(t, db.AddTable(tbl))
	require.NoError(t, parquetio.SaveDatabase(db, dir))

	data, err := os.ReadFile(dir + "/users.parquet")
	require.NoError(t, err)

	blank := database.New("mydb", fakeEngineCtx{})
	require.NoError(t, parquetio.LoadTableBytes(blank, "users_copy", data))

	got, err := blank.GetTable("users_copy")
	require.NoError(t, err)
	require.Equal(t, 3, got.NumRows())
}
