package engine_test

import (
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/engine"
	"github.com/colbase/colbase/internal/query"
	"github.com/colbase/colbase/internal/table"
	"github.com/stretchr/testify/require"
)

// seedUsers builds a 4-row users(id, name, age) table registered with
// both db and eng.
func seedUsers(t *testing.T, eng *engine.Engine) *database.Database {
	t.Helper()
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
		{Name: "age", Type: arrowcol.Int32},
	}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2), int32(3), int32(4)}, nil)
	require.NoError(t, err)
	names := arrowcol.NewStringArray([]string{"Alice", "Bob", "Carol", "Dave"}, nil)
	ages, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(30), int32(25), int32(40), int32(22)}, nil)
	require.NoError(t, err)

	b, err := batch.New(schema, []arrowcol.Array{ids, names, ages})
	require.NoError(t, err)

	tbl, err := table.NewWithBatch("users", b)
	require.NoError(t, err)

	db := database.New("test", eng)
	require.NoError(t, db.AddTable(tbl))
	require.NoError(t, db.AddTableContext("users"))
	return db
}

func TestSelectCountStar(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)

	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	require.Equal(t, int64(4), got.Columns[0].Value(0))
}

func TestSelectWhereAndOrderBy(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "SELECT name FROM users WHERE age >= 25 ORDER BY age DESC")
	require.NoError(t, err)

	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 3, got.NumRows())
	require.Equal(t, "Carol", got.Columns[0].Value(0))
	require.Equal(t, "Alice", got.Columns[0].Value(1))
	require.Equal(t, "Bob", got.Columns[0].Value(2))
}

func TestSelectLikeAndIn(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "SELECT id FROM users WHERE name LIKE 'A%' OR id IN (2, 3)")
	require.NoError(t, err)

	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 3, got.NumRows())
}

func TestSelectLimitOffset(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "SELECT id FROM users ORDER BY id LIMIT 2 OFFSET 1")
	require.NoError(t, err)

	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 2, got.NumRows())
	require.Equal(t, int32(2), got.Columns[0].Value(0))
	require.Equal(t, int32(3), got.Columns[0].Value(1))
}

func TestSelectDistinct(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	_, err := query.Query(db, eng, "INSERT INTO users (id, name, age) VALUES (5, 'Alice', 30)")
	require.NoError(t, err)

	df, err := query.Query(db, eng, "SELECT DISTINCT name FROM users")
	require.NoError(t, err)

	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 4, got.NumRows())
}

func TestSelectAggregates(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "SELECT SUM(age) AS total, AVG(age) AS avg_age, MIN(age) AS youngest, MAX(age) AS oldest FROM users")
	require.NoError(t, err)

	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	require.Equal(t, float64(117), got.Columns[0].Value(0))
	require.InDelta(t, 29.25, got.Columns[1].Value(0).(float64), 0.001)
	require.Equal(t, int32(22), got.Columns[2].Value(0))
	require.Equal(t, int32(40), got.Columns[3].Value(0))
}

func TestInsertLiteralThenUpdateThenDelete(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "INSERT INTO users (id, name, age) VALUES (5, 'Eve', 29)")
	require.NoError(t, err)
	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "UPDATE users SET age = 50 WHERE name = 'Eve'")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "DELETE FROM users WHERE id = 1")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(4), got.Columns[0].Value(0))
}

// TestInsertFromSelectChain seeds 4 users, backs them all up, then
// tops the backup up twice more with WHERE-filtered selects (2 rows,
// then 3 rows), checking the running count after each statement.
func TestInsertFromSelectChain(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	emptySchema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
		{Name: "age", Type: arrowcol.Int32},
	}}
	emptyIDs, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{}, nil)
	require.NoError(t, err)
	emptyNames := arrowcol.NewStringArray([]string{}, nil)
	emptyAges, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{}, nil)
	require.NoError(t, err)
	emptyBatch, err := batch.New(emptySchema, []arrowcol.Array{emptyIDs, emptyNames, emptyAges})
	require.NoError(t, err)
	backupTbl, err := table.NewWithBatch("backup_users", emptyBatch)
	require.NoError(t, err)
	require.NoError(t, db.AddTable(backupTbl))
	require.NoError(t, db.AddTableContext("backup_users"))

	df, err := query.Query(db, eng, "INSERT INTO backup_users (id, name, age) SELECT id, name, age FROM users")
	require.NoError(t, err)
	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(4), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM backup_users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(4), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "INSERT INTO backup_users (id, name, age) SELECT id, name, age FROM users WHERE age < 30")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM backup_users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(6), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "INSERT INTO backup_users (id, name, age) SELECT id, name, age FROM users WHERE name LIKE 'A%' OR id IN (2, 4)")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM backup_users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(9), got.Columns[0].Value(0))
}

func TestMultiRowInsertThenInDelete(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	df, err := query.Query(db, eng, "INSERT INTO users (id, name, age) VALUES (5, 'Eve', 29), (6, 'Frank', 31), (7, 'Grace', 27)")
	require.NoError(t, err)
	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(7), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "DELETE FROM users WHERE id IN (5, 6)")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Columns[0].Value(0))

	df, err = query.Query(db, eng, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	got, err = df.Materialize()
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Columns[0].Value(0))
}

func TestJoinInnerWithWhere(t *testing.T) {
	eng := engine.New()
	db := seedUsers(t, eng)

	orderSchema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "user_id", Type: arrowcol.Int32},
		{Name: "total", Type: arrowcol.Int32},
	}}
	userIDs, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(1), int32(3)}, nil)
	require.NoError(t, err)
	totals, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(10), int32(20), int32(30)}, nil)
	require.NoError(t, err)
	ordersBatch, err := batch.New(orderSchema, []arrowcol.Array{userIDs, totals})
	require.NoError(t, err)
	ordersTbl, err := table.NewWithBatch("orders", ordersBatch)
	require.NoError(t, err)
	require.NoError(t, db.AddTable(ordersTbl))
	require.NoError(t, db.AddTableContext("orders"))

	df, err := query.Query(db, eng, "SELECT total FROM users JOIN orders ON users.id = orders.user_id WHERE users.id = 1")
	require.NoError(t, err)
	got, err := df.Materialize()
	require.NoError(t, err)
	require.Equal(t, 2, got.NumRows())
}
