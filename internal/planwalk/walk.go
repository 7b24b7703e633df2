// Package planwalk extracts WHERE predicates and DML components from a
// logical plan tree, tolerating the Projection/Sort/Limit/Aggregate/
// Distinct/Union/SubqueryAlias wrapping a real planner inserts around
// the node the caller actually wants.
package planwalk

import (
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
)

// ExtractWhereCondition returns the predicate of the nearest Filter
// reachable by descending into the first input (Join: left then
// right). TableScan and input-less leaves return nil.
func ExtractWhereCondition(node plan.Node) *plan.Expr {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *plan.Filter:
		return n.Predicate
	case *plan.TableScan:
		return nil
	case *plan.Join:
		if w := ExtractWhereCondition(n.Left); w != nil {
			return w
		}
		return ExtractWhereCondition(n.Right)
	default:
		children := node.Children()
		if len(children) == 0 {
			return nil
		}
		return ExtractWhereCondition(children[0])
	}
}

// InsertRow pairs target column names with the literal expression to
// write into each, one entry per row.
type InsertRow struct {
	Columns []string
	Values  []plan.Expr
}

// InsertComponents is the result of walking an INSERT plan: either a
// literal set of Rows, or a FromQuery subplan for INSERT FROM SELECT.
type InsertComponents struct {
	Rows      []InsertRow
	FromQuery plan.Node
}

// ExtractInsertComponents decomposes an INSERT plan: the canonical
// shape is Projection(Values); a Projection over a column-reference
// source is INSERT FROM SELECT; a projection of bare literals gets a
// best-effort single-row interpretation, and anything else errors.
func ExtractInsertComponents(dml *plan.Dml) (*InsertComponents, error) {
	children := dml.Children()
	if len(children) == 0 {
		return nil, dberrors.NewErrQuery("insert", "plan has no input")
	}
	proj, ok := children[0].(*plan.Projection)
	if !ok {
		return nil, dberrors.NewErrQuery("insert", "expected Projection as INSERT plan root")
	}

	projChildren := proj.Children()

	if len(projChildren) > 0 {
		if values, ok := projChildren[0].(*plan.Values); ok {
			rows := make([]InsertRow, 0, len(values.Rows))
			for _, row := range values.Rows {
				if len(row) != len(proj.Aliases) {
					return nil, dberrors.NewErrQuery("insert", "VALUES row arity does not match column list")
				}
				cols := make([]string, len(proj.Aliases))
				for i, a := range proj.Aliases {
					cols[i] = a.Alias
				}
				rows = append(rows, InsertRow{Columns: cols, Values: row})
			}
			return &InsertComponents{Rows: rows}, nil
		}

		if allColumnRefs(proj.Aliases) {
			return &InsertComponents{FromQuery: projChildren[0]}, nil
		}
	}

	if allLiterals(proj.Aliases) {
		cols := make([]string, len(proj.Aliases))
		vals := make([]plan.Expr, len(proj.Aliases))
		for i, a := range proj.Aliases {
			cols[i] = a.Alias
			vals[i] = *a.Expr
		}
		return &InsertComponents{Rows: []InsertRow{{Columns: cols, Values: vals}}}, nil
	}

	return nil, dberrors.NewErrQuery("insert", "unrecognized INSERT shape")
}

func allColumnRefs(aliases []plan.ProjAlias) bool {
	if len(aliases) == 0 {
		return false
	}
	for _, a := range aliases {
		if a.Expr == nil || a.Expr.Type != plan.ExprColumn {
			return false
		}
	}
	return true
}

func allLiterals(aliases []plan.ProjAlias) bool {
	if len(aliases) == 0 {
		return false
	}
	for _, a := range aliases {
		if a.Expr == nil || a.Expr.Type != plan.ExprValue {
			return false
		}
	}
	return true
}

// SetAssignment is one column=literal pair from an UPDATE's SET
// clause.
type SetAssignment struct {
	Column string
	Value  plan.Expr
}

// ExtractUpdateComponents walks a Projection(SET literals) wrapping an
// optional WHERE-bearing input, returning the SET assignments and the
// WHERE predicate (nil meaning "match every row").
func ExtractUpdateComponents(dml *plan.Dml) ([]SetAssignment, *plan.Expr, error) {
	children := dml.Children()
	if len(children) == 0 {
		return nil, nil, dberrors.NewErrQuery("update", "plan has no input")
	}
	proj, ok := children[0].(*plan.Projection)
	if !ok {
		return nil, nil, dberrors.NewErrQuery("update", "expected Projection as UPDATE plan root")
	}

	sets := make([]SetAssignment, 0, len(proj.Aliases))
	for _, a := range proj.Aliases {
		if a.Expr == nil || a.Expr.Type != plan.ExprValue {
			return nil, nil, dberrors.NewErrQuery("update", "SET assignment must be a literal")
		}
		sets = append(sets, SetAssignment{Column: a.Alias, Value: *a.Expr})
	}
	if len(sets) == 0 {
		return nil, nil, dberrors.NewErrQuery("update", "SET clause is empty")
	}

	var where *plan.Expr
	if projChildren := proj.Children(); len(projChildren) > 0 {
		where = ExtractWhereCondition(projChildren[0])
	}
	return sets, where, nil
}

// ExtractDeleteWhere returns the WHERE predicate for a DELETE plan (nil
// meaning "match every row").
func ExtractDeleteWhere(dml *plan.Dml) *plan.Expr {
	children := dml.Children()
	if len(children) == 0 {
		return nil
	}
	return ExtractWhereCondition(children[0])
}
