package database_test

import (
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	registered map[string]*batch.Batch
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{registered: make(map[string]*batch.Batch)}
}

func (f *fakeEngine) RegisterTable(name string, b *batch.Batch) error {
	f.registered[name] = b
	return nil
}

func (f *fakeEngine) Deregister(name string) error {
	delete(f.registered, name)
	return nil
}

func seedTable(t *testing.T, name string) *table.Table {
	t.Helper()
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{{Name: "id", Type: arrowcol.Int32}}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1)}, nil)
	require.NoError(t, err)
	b, err := batch.New(schema, []arrowcol.Array{ids})
	require.NoError(t, err)
	tbl, err := table.NewWithBatch(name, b)
	require.NoError(t, err)
	return tbl
}

func TestAddTableThenGetTable(t *testing.T) {
	db := database.New("mydb", newFakeEngine())
	tbl := seedTable(t, "users")
	require.NoError(t, db.AddTable(tbl))

	got, err := db.GetTable("users")
	require.NoError(t, err)
	assert.Same(t, tbl, got)
}

func TestAddTableRejectsDuplicateName(t *testing.T) {
	db := database.New("mydb", newFakeEngine())
	require.NoError(t, db.AddTable(seedTable(t, "users")))
	err := db.AddTable(seedTable(t, "users"))
	require.Error(t, err)
}

func TestGetTableMissingReturnsError(t *testing.T) {
	db := database.New("mydb", newFakeEngine())
	_, err := db.GetTable("nope")
	require.Error(t, err)
}

func TestRemoveTableDeregistersFromEngine(t *testing.T) {
	eng := newFakeEngine()
	db := database.New("mydb", eng)
	require.NoError(t, db.AddTable(seedTable(t, "users")))
	require.NoError(t, db.AddTableContext("users"))
	require.Contains(t, eng.registered, "users")

	require.NoError(t, db.RemoveTable("users"))
	assert.NotContains(t, eng.registered, "users")
	_, err := db.GetTable("users")
	assert.Error(t, err)
}

func TestRemoveTableMissingReturnsError(t *testing.T) {
	db := database.New("mydb", newFakeEngine())
	err := db.RemoveTable("nope")
	assert.Error(t, err)
}

func TestAddTableContextRegistersCurrentBatch(t *testing.T) {
	eng := newFakeEngine()
	db := database.New("mydb", eng)
	tbl := seedTable(t, "users")
	require.NoError(t, db.AddTable(tbl))
	require.NoError(t, db.AddTableContext("users"))

	assert.Same(t, tbl.Batch(), eng.registered["users"])
}

func TestAddAllTableContextsRegistersEveryTable(t *testing.T) {
	eng := newFakeEngine()
	db := database.New("mydb", eng)
	require.NoError(t, db.AddTable(seedTable(t, "a")))
	require.NoError(t, db.AddTable(seedTable(t, "b")))

	require.NoError(t, db.AddAllTableContexts())
	assert.Len(t, eng.registered, 2)
}

func TestTableNames(t *testing.T) {
	db := database.New("mydb", newFakeEngine())
	require.NoError(t, db.AddTable(seedTable(t, "a")))
	require.NoError(t, db.AddTable(seedTable(t, "b")))

	assert.ElementsMatch(t, []string{"a", "b"}, db.TableNames())
}

func TestCloneSharesTablesButNotEngine(t *testing.T) {
	db := database.New("mydb", newFakeEngine())
	require.NoError(t, db.AddTable(seedTable(t, "users")))

	newEng := newFakeEngine()
	clone := db.Clone(newEng)
	assert.ElementsMatch(t, []string{"users"}, clone.TableNames())
	assert.Empty(t, newEng.registered)

	original, err := db.GetTable("users")
	require.NoError(t, err)
	cloned, err := clone.GetTable("users")
	require.NoError(t, err)
	assert.Same(t, original, cloned)
}
