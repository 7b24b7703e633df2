package engine

import (
	"fmt"
	"sort"

	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
	"github.com/colbase/colbase/internal/predicate"
)

// ExecutePlan is the minimal physical executor: it walks the plan tree
// bottom-up, materializing each node's input before applying its own
// operation, to a single result batch. Satisfies internal/query.Engine
// and internal/dml.PlanExecutor.
func (e *Engine) ExecutePlan(node plan.Node) (*batch.Batch, error) {
	switch n := node.(type) {
	case *plan.TableScan:
		return e.tableBatch(n.TableName)

	case *plan.Filter:
		in, err := e.ExecutePlan(firstChild(n))
		if err != nil {
			return nil, err
		}
		return filterBatch(in, n.Predicate)

	case *plan.Projection:
		in, err := e.ExecutePlan(firstChild(n))
		if err != nil {
			return nil, err
		}
		return projectBatch(in, n.Aliases)

	case *plan.Sort:
		in, err := e.ExecutePlan(firstChild(n))
		if err != nil {
			return nil, err
		}
		return sortBatch(in, n.Items)

	case *plan.Limit:
		in, err := e.ExecutePlan(firstChild(n))
		if err != nil {
			return nil, err
		}
		return limitBatch(in, n.Limit, n.Offset)

	case *plan.Aggregate:
		in, err := e.ExecutePlan(firstChild(n))
		if err != nil {
			return nil, err
		}
		return aggregateBatch(in, n.GroupBy, n.Items)

	case *plan.Distinct:
		in, err := e.ExecutePlan(firstChild(n))
		if err != nil {
			return nil, err
		}
		return distinctBatch(in)

	case *plan.Union:
		left, err := e.ExecutePlan(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.ExecutePlan(n.Right)
		if err != nil {
			return nil, err
		}
		return concatBatches(left, right)

	case *plan.SubqueryAlias:
		return e.ExecutePlan(firstChild(n))

	case *plan.Join:
		left, err := e.ExecutePlan(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.ExecutePlan(n.Right)
		if err != nil {
			return nil, err
		}
		return joinBatches(left, right, n.JoinType, n.On)

	case *plan.Values:
		return valuesToBatch(n)

	case *plan.Dml:
		return nil, dberrors.NewErrQuery("exec", "a DML plan must run through internal/dml, not ExecutePlan")

	default:
		return nil, dberrors.NewErrQuery("exec", "unsupported plan node")
	}
}

func firstChild(n plan.Node) plan.Node {
	children := n.Children()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// gatherColumn builds a new array by reading col at each index in idx,
// an index of -1 producing a null element (used by LEFT JOIN's
// unmatched right side).
func gatherColumn(col arrowcol.Array, dt arrowcol.DataType, idx []int) (arrowcol.Array, error) {
	if dt == arrowcol.Utf8 {
		vals := make([]string, len(idx))
		valid := make([]bool, len(idx))
		for k, ix := range idx {
			if ix < 0 || col.IsNull(ix) {
				continue
			}
			vals[k] = col.Value(ix).(string)
			valid[k] = true
		}
		return arrowcol.NewStringArray(vals, valid), nil
	}
	vals := make([]any, len(idx))
	valid := make([]bool, len(idx))
	for k, ix := range idx {
		if ix < 0 || col.IsNull(ix) {
			continue
		}
		vals[k] = col.Value(ix)
		valid[k] = true
	}
	return arrowcol.NewFixedWidthArray(dt, vals, valid)
}

// selectRows rebuilds b restricted to (and reordered by) idx.
func selectRows(b *batch.Batch, idx []int) (*batch.Batch, error) {
	cols := make([]arrowcol.Array, len(b.Columns))
	for i, col := range b.Columns {
		gathered, err := gatherColumn(col, b.Schema.Fields[i].Type, idx)
		if err != nil {
			return nil, err
		}
		cols[i] = gathered
	}
	return batch.New(b.Schema, cols)
}

func filterBatch(b *batch.Batch, pred *plan.Expr) (*batch.Batch, error) {
	idx := make([]int, 0, b.NumRows())
	for i := 0; i < b.NumRows(); i++ {
		ok, err := predicate.Evaluate(pred, b, i)
		if err != nil {
			return nil, err
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return selectRows(b, idx)
}

// inferLiteralType picks a DataType for a projected literal value,
// using Utf8 for a SQL NULL literal since no column type can be
// inferred from a bare nil.
func inferLiteralType(v any) arrowcol.DataType {
	switch v.(type) {
	case int64:
		return arrowcol.Int64
	case float64:
		return arrowcol.Float64
	case bool:
		return arrowcol.Boolean
	default:
		return arrowcol.Utf8
	}
}

func broadcastLiteral(v any, dt arrowcol.DataType, n int) (arrowcol.Array, error) {
	if dt == arrowcol.Utf8 {
		s, _ := v.(string)
		vals := make([]string, n)
		valid := make([]bool, n)
		for i := range vals {
			vals[i] = s
			valid[i] = v != nil
		}
		return arrowcol.NewStringArray(vals, valid), nil
	}
	vals := make([]any, n)
	valid := make([]bool, n)
	for i := range vals {
		vals[i] = v
		valid[i] = v != nil
	}
	return arrowcol.NewFixedWidthArray(dt, vals, valid)
}

// projectBatch evaluates each alias over b: a column reference passes
// the source column through unchanged (just renamed), and a literal is
// broadcast to every row. Computed expressions beyond a bare column or
// literal are outside this engine's scope.
func projectBatch(b *batch.Batch, aliases []plan.ProjAlias) (*batch.Batch, error) {
	fields := make([]arrowcol.Field, len(aliases))
	cols := make([]arrowcol.Array, len(aliases))
	n := b.NumRows()

	for i, a := range aliases {
		if a.Expr == nil {
			return nil, dberrors.NewErrQuery("project", "projection alias "+a.Alias+" has no expression")
		}
		switch a.Expr.Type {
		case plan.ExprColumn:
			idx := b.Schema.IndexOf(a.Expr.Column)
			if idx < 0 {
				return nil, dberrors.NewErrQuery("project", "unknown column "+a.Expr.Column)
			}
			fields[i] = arrowcol.Field{Name: a.Alias, Type: b.Schema.Fields[idx].Type, Nullable: b.Schema.Fields[idx].Nullable}
			cols[i] = b.Columns[idx]
		case plan.ExprValue:
			dt := inferLiteralType(a.Expr.Value)
			col, err := broadcastLiteral(a.Expr.Value, dt, n)
			if err != nil {
				return nil, err
			}
			fields[i] = arrowcol.Field{Name: a.Alias, Type: dt, Nullable: true}
			cols[i] = col
		default:
			return nil, dberrors.NewErrQuery("project", "unsupported projection expression for "+a.Alias)
		}
	}

	return batch.New(&arrowcol.Schema{Fields: fields}, cols)
}

func sortBatch(b *batch.Batch, items []plan.OrderByItem) (*batch.Batch, error) {
	idx := make([]int, b.NumRows())
	for i := range idx {
		idx[i] = i
	}

	type key struct {
		col  arrowcol.Array
		desc bool
	}
	keys := make([]key, 0, len(items))
	for _, item := range items {
		ci := b.Schema.IndexOf(item.Column)
		if ci < 0 {
			return nil, dberrors.NewErrQuery("sort", "unknown column "+item.Column)
		}
		keys = append(keys, key{col: b.Columns[ci], desc: item.Direction == "DESC"})
	}

	sort.SliceStable(idx, func(x, y int) bool {
		ri, rj := idx[x], idx[y]
		for _, k := range keys {
			c := compareCell(k.col, ri, rj)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	return selectRows(b, idx)
}

// compareCell orders NULL before any value, then by the column's
// natural numeric/string ordering.
func compareCell(col arrowcol.Array, i, j int) int {
	ni, nj := col.IsNull(i), col.IsNull(j)
	if ni && nj {
		return 0
	}
	if ni {
		return -1
	}
	if nj {
		return 1
	}
	vi, vj := col.Value(i), col.Value(j)
	switch col.DataType() {
	case arrowcol.Utf8:
		a, b := vi.(string), vj.(string)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	case arrowcol.Boolean:
		a, b := vi.(bool), vj.(bool)
		if a == b {
			return 0
		}
		if !a && b {
			return -1
		}
		return 1
	default:
		a, b := asFloat(vi), asFloat(vj)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func limitBatch(b *batch.Batch, limit, offset int64) (*batch.Batch, error) {
	n := int64(b.NumRows())
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return selectRows(b, nil)
	}
	end := n
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	idx := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		idx = append(idx, int(i))
	}
	return selectRows(b, idx)
}

func distinctBatch(b *batch.Batch) (*batch.Batch, error) {
	seen := make(map[string]struct{})
	idx := make([]int, 0, b.NumRows())
	for i := 0; i < b.NumRows(); i++ {
		key := rowKey(b, i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		idx = append(idx, i)
	}
	return selectRows(b, idx)
}

func rowKey(b *batch.Batch, row int) string {
	key := ""
	for _, col := range b.Columns {
		if col.IsNull(row) {
			key += "\x00N\x1f"
			continue
		}
		key += fmt.Sprintf("%v\x1f", col.Value(row))
	}
	return key
}

func concatBatches(left, right *batch.Batch) (*batch.Batch, error) {
	if len(left.Schema.Fields) != len(right.Schema.Fields) {
		return nil, dberrors.NewErrQuery("union", "mismatched column count")
	}
	cols := make([]arrowcol.Array, len(left.Columns))
	for i := range left.Columns {
		dt := left.Schema.Fields[i].Type
		col, err := concatColumn(dt, left.Columns[i], right.Columns[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return batch.New(left.Schema, cols)
}

func concatColumn(dt arrowcol.DataType, a, b arrowcol.Array) (arrowcol.Array, error) {
	n := a.Len() + b.Len()
	if dt == arrowcol.Utf8 {
		vals := make([]string, 0, n)
		valid := make([]bool, 0, n)
		for _, src := range []arrowcol.Array{a, b} {
			for i := 0; i < src.Len(); i++ {
				if src.IsNull(i) {
					vals = append(vals, "")
					valid = append(valid, false)
					continue
				}
				vals = append(vals, src.Value(i).(string))
				valid = append(valid, true)
			}
		}
		return arrowcol.NewStringArray(vals, valid), nil
	}
	vals := make([]any, 0, n)
	valid := make([]bool, 0, n)
	for _, src := range []arrowcol.Array{a, b} {
		for i := 0; i < src.Len(); i++ {
			if src.IsNull(i) {
				vals = append(vals, nil)
				valid = append(valid, false)
				continue
			}
			vals = append(vals, src.Value(i))
			valid = append(valid, true)
		}
	}
	return arrowcol.NewFixedWidthArray(dt, vals, valid)
}

// valuesToBatch materializes a bare Values node by inferring each
// column's type from its first row. This path is a defensive fallback:
// INSERT's canonical Projection(Values) shape is always consumed by
// internal/dml, never executed here directly.
func valuesToBatch(v *plan.Values) (*batch.Batch, error) {
	if len(v.Rows) == 0 {
		return batch.New(&arrowcol.Schema{}, nil)
	}
	width := len(v.Rows[0])
	fields := make([]arrowcol.Field, width)
	cols := make([]arrowcol.Array, width)
	for c := 0; c < width; c++ {
		dt := inferLiteralType(v.Rows[0][c].Value)
		fields[c] = arrowcol.Field{Name: fmt.Sprintf("col%d", c), Type: dt, Nullable: true}
		if dt == arrowcol.Utf8 {
			vals := make([]string, len(v.Rows))
			valid := make([]bool, len(v.Rows))
			for r, row := range v.Rows {
				s, ok := row[c].Value.(string)
				vals[r] = s
				valid[r] = ok
			}
			cols[c] = arrowcol.NewStringArray(vals, valid)
			continue
		}
		vals := make([]any, len(v.Rows))
		valid := make([]bool, len(v.Rows))
		for r, row := range v.Rows {
			vals[r] = row[c].Value
			valid[r] = row[c].Value != nil
		}
		arr, err := arrowcol.NewFixedWidthArray(dt, vals, valid)
		if err != nil {
			return nil, err
		}
		cols[c] = arr
	}
	return batch.New(&arrowcol.Schema{Fields: fields}, cols)
}

// joinBatches performs a nested-loop INNER/LEFT/CROSS join, evaluating
// on against one combined row at a time (the join is not on this
// engine's hot path, so row-at-a-time evaluation over predicate.Evaluate
// is preferred over a specialized join-key index).
func joinBatches(left, right *batch.Batch, joinType string, on *plan.Expr) (*batch.Batch, error) {
	fields := make([]arrowcol.Field, 0, len(left.Schema.Fields)+len(right.Schema.Fields))
	fields = append(fields, left.Schema.Fields...)
	fields = append(fields, right.Schema.Fields...)

	var leftIdx, rightIdx []int
	for li := 0; li < left.NumRows(); li++ {
		matched := false
		for ri := 0; ri < right.NumRows(); ri++ {
			ok := true
			if on != nil {
				combined, err := combinedRow(left, li, right, ri)
				if err != nil {
					return nil, err
				}
				ok, err = predicate.Evaluate(bindRightColumns(on, combined, 0), combined, 0)
				if err != nil {
					return nil, err
				}
			}
			if joinType == "CROSS" || ok {
				leftIdx = append(leftIdx, li)
				rightIdx = append(rightIdx, ri)
				matched = true
			}
		}
		if !matched && joinType == "LEFT" {
			leftIdx = append(leftIdx, li)
			rightIdx = append(rightIdx, -1)
		}
	}

	cols := make([]arrowcol.Array, 0, len(fields))
	for i, f := range left.Schema.Fields {
		col, err := gatherColumn(left.Columns[i], f.Type, leftIdx)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	for i, f := range right.Schema.Fields {
		col, err := gatherColumn(right.Columns[i], f.Type, rightIdx)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return batch.New(&arrowcol.Schema{Fields: fields}, cols)
}

// bindRightColumns rewrites a join ON predicate so any right-hand
// column reference becomes a literal read from row of b. The predicate
// evaluator only compares a column against a literal, so an
// `ON a.x = b.y` pair is decided by binding b.y's value for the
// candidate row first. A null right-hand cell binds as a nil literal,
// which the evaluator rejects for every comparison, matching SQL's
// NULL-never-joins behavior.
func bindRightColumns(on *plan.Expr, b *batch.Batch, row int) *plan.Expr {
	if on == nil {
		return nil
	}
	if on.Operator == "AND" || on.Operator == "OR" {
		return plan.BinOp(on.Operator, bindRightColumns(on.Left, b, row), bindRightColumns(on.Right, b, row))
	}
	if on.Right == nil || on.Right.Type != plan.ExprColumn {
		return on
	}
	idx := b.Schema.IndexOf(on.Right.Column)
	if idx < 0 {
		return on
	}
	var v any
	if !b.Columns[idx].IsNull(row) {
		v = b.Columns[idx].Value(row)
	}
	bound := *on
	bound.Right = plan.Lit(v)
	return &bound
}

// combinedRow builds a one-row batch pairing left's li row with
// right's ri row, used only to evaluate a join's ON predicate by
// column name across both sides.
func combinedRow(left *batch.Batch, li int, right *batch.Batch, ri int) (*batch.Batch, error) {
	fields := make([]arrowcol.Field, 0, len(left.Schema.Fields)+len(right.Schema.Fields))
	fields = append(fields, left.Schema.Fields...)
	fields = append(fields, right.Schema.Fields...)

	cols := make([]arrowcol.Array, 0, len(fields))
	for i, f := range left.Schema.Fields {
		col, err := gatherColumn(left.Columns[i], f.Type, []int{li})
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	for i, f := range right.Schema.Fields {
		col, err := gatherColumn(right.Columns[i], f.Type, []int{ri})
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return batch.New(&arrowcol.Schema{Fields: fields}, cols)
}
