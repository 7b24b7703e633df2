// Package dml implements the write-path executors: INSERT, UPDATE, and
// DELETE against a table.Table, driven by the components a planwalk
// walk extracts from the compiled plan. Each executor resolves its
// target rows, applies the mutation kernels, and returns the affected
// row count.
package dml

import (
	"sort"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/database"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
	"github.com/colbase/colbase/internal/planwalk"
	"github.com/colbase/colbase/internal/predicate"
)

// PlanExecutor resolves a subplan (the FROM-SELECT source of an INSERT)
// into its result batch. internal/engine implements this; dml does not
// import engine to avoid a cycle.
type PlanExecutor interface {
	ExecutePlan(node plan.Node) (*batch.Batch, error)
}

// matchingRows evaluates where against every row of b in ascending
// order, returning the indices that match (or every index when where
// is nil).
func matchingRows(b *batch.Batch, where *plan.Expr) ([]int, error) {
	n := b.NumRows()
	matched := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ok, err := predicate.Evaluate(where, b, i)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, i)
		}
	}
	return matched, nil
}

// literalToArray builds a single-element Array of field's type from a
// literal value, narrowing Int64 literals to Int32 columns and Float64
// literals to Float32 columns via the column kernel's own encoding.
func literalToArray(field arrowcol.Field, value any) (arrowcol.Array, error) {
	if field.Type == arrowcol.Utf8 {
		s, ok := value.(string)
		if !ok {
			return nil, dberrors.NewErrDataType(field.Name, "Utf8", "?")
		}
		return arrowcol.NewStringArray([]string{s}, nil), nil
	}
	return arrowcol.NewFixedWidthArray(field.Type, []any{value}, nil)
}

// ExecuteUpdate applies the plan's SET assignments to every row matching
// its WHERE, ascending by row index, and re-registers the table with
// the engine once all rows are written.
func ExecuteUpdate(db *database.Database, tableName string, dmlNode *plan.Dml) (int64, error) {
	sets, where, err := planwalk.ExtractUpdateComponents(dmlNode)
	if err != nil {
		return 0, err
	}
	if len(sets) == 0 {
		return 0, dberrors.NewErrQuery("update", "SET clause is empty")
	}

	t, err := db.GetMutTable(tableName)
	if err != nil {
		return 0, err
	}

	b := t.Batch()
	matched, err := matchingRows(b, where)
	if err != nil {
		return 0, err
	}

	schema := b.Schema
	for _, rowIdx := range matched {
		for _, set := range sets {
			colIdx := schema.IndexOf(set.Column)
			if colIdx < 0 {
				return 0, dberrors.NewErrQuery("update", "unknown column "+set.Column)
			}
			data, err := literalToArray(schema.Fields[colIdx], set.Value.Value)
			if err != nil {
				return 0, err
			}
			if err := t.UpdateColumnData(colIdx, rowIdx, data); err != nil {
				return 0, err
			}
		}
	}

	if err := db.AddTableContext(tableName); err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// ExecuteDelete removes every row matching the plan's WHERE, applying
// DeleteRow in descending row-index order so earlier deletes never
// perturb the index of a later one.
func ExecuteDelete(db *database.Database, tableName string, dmlNode *plan.Dml) (int64, error) {
	where := planwalk.ExtractDeleteWhere(dmlNode)

	t, err := db.GetMutTable(tableName)
	if err != nil {
		return 0, err
	}

	b := t.Batch()
	matched, err := matchingRows(b, where)
	if err != nil {
		return 0, err
	}

	sort.Sort(sort.Reverse(sort.IntSlice(matched)))
	for _, rowIdx := range matched {
		if err := t.DeleteRow(rowIdx); err != nil {
			return 0, err
		}
	}

	if err := db.AddTableContext(tableName); err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// ExecuteInsert appends either the plan's literal rows, or (for INSERT
// FROM SELECT) every row of exec's evaluation of the source subplan,
// taking the first len(schema.Fields) columns of each source row in
// order.
func ExecuteInsert(db *database.Database, tableName string, dmlNode *plan.Dml, exec PlanExecutor) (int64, error) {
	comps, err := planwalk.ExtractInsertComponents(dmlNode)
	if err != nil {
		return 0, err
	}

	t, err := db.GetMutTable(tableName)
	if err != nil {
		return 0, err
	}
	schema := t.Batch().Schema

	var inserted int64
	if comps.FromQuery != nil {
		if exec == nil {
			return 0, dberrors.NewErrQuery("insert", "INSERT FROM SELECT requires a plan executor")
		}
		src, err := exec.ExecutePlan(comps.FromQuery)
		if err != nil {
			return 0, err
		}
		if len(src.Columns) < len(schema.Fields) {
			return 0, dberrors.NewErrQuery("insert", "source query has fewer columns than the target table")
		}
		for row := 0; row < src.NumRows(); row++ {
			values := make([]arrowcol.Array, len(schema.Fields))
			for i, field := range schema.Fields {
				col := src.Columns[i]
				if col.IsNull(row) {
					values[i], err = literalToArrayNull(field)
				} else {
					values[i], err = literalToArray(field, col.Value(row))
				}
				if err != nil {
					return 0, err
				}
			}
			if err := t.AppendRow(values); err != nil {
				return 0, err
			}
			inserted++
		}
		if err := db.AddTableContext(tableName); err != nil {
			return 0, err
		}
		return inserted, nil
	}

	for _, row := range comps.Rows {
		values := make([]arrowcol.Array, len(schema.Fields))
		for i, field := range schema.Fields {
			found := false
			for j, col := range row.Columns {
				if col == field.Name {
					v, err := literalToArray(field, row.Values[j].Value)
					if err != nil {
						return 0, err
					}
					values[i] = v
					found = true
					break
				}
			}
			if !found {
				return 0, dberrors.NewErrQuery("insert", "no value provided for column "+field.Name)
			}
		}
		if err := t.AppendRow(values); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := db.AddTableContext(tableName); err != nil {
		return 0, err
	}
	return inserted, nil
}

func literalToArrayNull(field arrowcol.Field) (arrowcol.Array, error) {
	if field.Type == arrowcol.Utf8 {
		return arrowcol.NewStringArray([]string{""}, []bool{false}), nil
	}
	return arrowcol.NewFixedWidthArray(field.Type, []any{nil}, []bool{false})
}
