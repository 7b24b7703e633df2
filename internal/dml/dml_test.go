package dml

import (
	"testing"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/plan"
	"github.com/colbase/colbase/internal/table"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct{}

func (fakeEngine) RegisterTable(name string, b *batch.Batch) error { return nil }
func (fakeEngine) Deregister(name string) error                    { return nil }

func newUsersDB(t *testing.T) (*database.Database, *table.Table) {
	t.Helper()
	schema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
	}}
	ids, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(1), int32(2), int32(3)}, nil)
	require.NoError(t, err)
	names := arrowcol.NewStringArray([]string{"Alice", "Bob", "Eve"}, nil)
	b, err := batch.New(schema, []arrowcol.Array{ids, names})
	require.NoError(t, err)

	tbl, err := table.NewWithBatch("users", b)
	require.NoError(t, err)

	db := database.New("test", fakeEngine{})
	require.NoError(t, db.AddTable(tbl))
	return db, tbl
}

func TestExecuteUpdateAppliesMatchingRows(t *testing.T) {
	db, tbl := newUsersDB(t)

	proj := plan.NewProjection(
		plan.NewFilter(&plan.TableScan{TableName: "users"}, plan.BinOp("=", plan.Col("id"), plan.Lit(int32(2)))),
		[]plan.ProjAlias{{Alias: "name", Expr: plan.Lit("Bobby")}},
	)
	dmlNode := plan.NewDml(plan.DmlUpdate, "users", proj)

	n, err := ExecuteUpdate(db, "users", dmlNode)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	b := tbl.Batch()
	require.Equal(t, "Bobby", b.Columns[1].Value(1))
	require.Equal(t, "Alice", b.Columns[1].Value(0))
}

func TestExecuteDeleteRemovesMatchingRowsDescending(t *testing.T) {
	db, tbl := newUsersDB(t)

	filter := plan.NewFilter(&plan.TableScan{TableName: "users"}, plan.BinOp(">=", plan.Col("id"), plan.Lit(int32(2))))
	dmlNode := plan.NewDml(plan.DmlDelete, "users", filter)

	n, err := ExecuteDelete(db, "users", dmlNode)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	b := tbl.Batch()
	require.Equal(t, 1, b.NumRows())
	require.Equal(t, "Alice", b.Columns[1].Value(0))
}

func TestExecuteInsertLiteralRow(t *testing.T) {
	db, tbl := newUsersDB(t)

	values := &plan.Values{Rows: [][]plan.Expr{
		{*plan.Lit(int32(4)), *plan.Lit("Dan")},
	}}
	proj := plan.NewProjection(values, []plan.ProjAlias{
		{Alias: "id", Expr: plan.Col("id")},
		{Alias: "name", Expr: plan.Col("name")},
	})
	dmlNode := plan.NewDml(plan.DmlInsert, "users", proj)

	n, err := ExecuteInsert(db, "users", dmlNode, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	b := tbl.Batch()
	require.Equal(t, 4, b.NumRows())
	require.Equal(t, int32(4), b.Columns[0].Value(3))
	require.Equal(t, "Dan", b.Columns[1].Value(3))
}

type stubExecutor struct {
	result *batch.Batch
}

func (s stubExecutor) ExecutePlan(node plan.Node) (*batch.Batch, error) {
	return s.result, nil
}

func TestExecuteInsertFromSelect(t *testing.T) {
	db, tbl := newUsersDB(t)

	srcSchema := &arrowcol.Schema{Fields: []arrowcol.Field{
		{Name: "id", Type: arrowcol.Int32},
		{Name: "name", Type: arrowcol.Utf8},
	}}
	srcIDs, err := arrowcol.NewFixedWidthArray(arrowcol.Int32, []any{int32(9)}, nil)
	require.NoError(t, err)
	srcNames := arrowcol.NewStringArray([]string{"Imported"}, nil)
	srcBatch, err := batch.New(srcSchema, []arrowcol.Array{srcIDs, srcNames})
	require.NoError(t, err)

	scan := &plan.TableScan{TableName: "archive"}
	proj := plan.NewProjection(scan, []plan.ProjAlias{
		{Alias: "id", Expr: plan.Col("id")},
		{Alias: "name", Expr: plan.Col("name")},
	})
	dmlNode := plan.NewDml(plan.DmlInsert, "users", proj)

	n, err := ExecuteInsert(db, "users", dmlNode, stubExecutor{result: srcBatch})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	b := tbl.Batch()
	require.Equal(t, 4, b.NumRows())
	require.Equal(t, int32(9), b.Columns[0].Value(3))
	require.Equal(t, "Imported", b.Columns[1].Value(3))
}
