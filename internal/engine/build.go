package engine

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
)

// tableNameOf pulls the base table name out of a TableSource/TableName
// pair, the shape stmt.From.TableRefs.Left and stmt.Table.TableRefs.Left
// always take for a single-table reference.
func tableNameOf(node ast.ResultSetNode) (string, bool) {
	src, ok := node.(*ast.TableSource)
	if !ok {
		return "", false
	}
	name, ok := src.Source.(*ast.TableName)
	if !ok {
		return "", false
	}
	return name.Name.String(), true
}

// buildFrom turns a FROM clause into a TableScan, or a two-way Join
// when a single JOIN is present. Deeper join trees are not supported
// (multi-table planning is explicitly out of scope).
func buildFrom(refs *ast.Join) (plan.Node, error) {
	leftName, ok := tableNameOf(refs.Left)
	if !ok {
		return nil, dberrors.NewErrQuery("from", "expected a base table reference")
	}
	left := plan.Node(&plan.TableScan{TableName: leftName})
	if refs.Right == nil {
		return left, nil
	}

	rightName, ok := tableNameOf(refs.Right)
	if !ok {
		return nil, dberrors.NewErrQuery("from", "expected a base table reference on the join's right side")
	}
	right := plan.Node(&plan.TableScan{TableName: rightName})

	// The parser tags plain JOIN / INNER JOIN as CrossJoin (MySQL
	// treats them identically); an ON clause is what makes it inner.
	joinType := "CROSS"
	switch refs.Tp {
	case ast.LeftJoin:
		joinType = "LEFT"
	case ast.RightJoin:
		left, right = right, left
		joinType = "LEFT"
	}
	if joinType == "CROSS" && refs.On != nil {
		joinType = "INNER"
	}

	var on *plan.Expr
	if refs.On != nil && refs.On.Expr != nil {
		expr, err := buildExpr(refs.On.Expr)
		if err != nil {
			return nil, err
		}
		on = expr
	}

	j := &plan.Join{JoinType: joinType, On: on}
	j.SetChildren(left, right)
	return j, nil
}

// buildSelect builds a SELECT statement into TableScan -> Filter ->
// (Aggregate -> Sort | Sort -> Projection) -> Distinct -> Limit,
// skipping any stage the statement does not use.
func (e *Engine) buildSelect(stmt *ast.SelectStmt) (plan.Node, error) {
	var node plan.Node
	if stmt.From != nil && stmt.From.TableRefs != nil {
		n, err := buildFrom(stmt.From.TableRefs)
		if err != nil {
			return nil, err
		}
		node = n
	}

	if stmt.Where != nil {
		if node == nil {
			return nil, dberrors.NewErrQuery("select", "WHERE without FROM")
		}
		pred, err := buildExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(node, pred)
	}

	aggItems, isAggregate, err := e.collectAggregates(stmt)
	if err != nil {
		return nil, err
	}

	var orderItems []plan.OrderByItem
	if stmt.OrderBy != nil {
		for _, item := range stmt.OrderBy.Items {
			col, ok := item.Expr.(*ast.ColumnNameExpr)
			if !ok {
				continue
			}
			direction := "ASC"
			if item.Desc {
				direction = "DESC"
			}
			orderItems = append(orderItems, plan.OrderByItem{Column: col.Name.Name.String(), Direction: direction})
		}
	}

	if isAggregate {
		groupBy := make([]string, 0)
		if stmt.GroupBy != nil {
			for _, item := range stmt.GroupBy.Items {
				if col, ok := item.Expr.(*ast.ColumnNameExpr); ok {
					groupBy = append(groupBy, col.Name.Name.String())
				}
			}
		}
		node = plan.NewAggregate(node, groupBy, aggItems)
		if len(orderItems) > 0 {
			node = plan.NewSort(node, orderItems)
		}
	} else {
		// Sort below the projection so ORDER BY can reference columns
		// the SELECT list drops.
		if len(orderItems) > 0 {
			node = plan.NewSort(node, orderItems)
		}
		aliases, err := e.collectProjection(stmt)
		if err != nil {
			return nil, err
		}
		node = plan.NewProjection(node, aliases)
	}

	if stmt.Distinct {
		node = plan.NewDistinct(node)
	}

	if stmt.Limit != nil {
		limit, offset, err := limitValues(stmt.Limit)
		if err != nil {
			return nil, err
		}
		node = plan.NewLimit(node, limit, offset)
	}

	return node, nil
}

// collectAggregates reports whether any SELECT field is an aggregate
// function call, and if so builds the corresponding AggregationItems.
// Mixing aggregate and non-aggregate fields is accepted on a
// best-effort basis: non-aggregate fields are dropped, and the output
// holds only the GROUP BY columns (if any) followed by the aggregates.
func (e *Engine) collectAggregates(stmt *ast.SelectStmt) ([]plan.AggregationItem, bool, error) {
	if stmt.Fields == nil {
		return nil, false, nil
	}
	var items []plan.AggregationItem
	for _, field := range stmt.Fields.Fields {
		agg, ok := field.Expr.(*ast.AggregateFuncExpr)
		if !ok {
			continue
		}
		column := "*"
		if len(agg.Args) > 0 {
			if col, ok := agg.Args[0].(*ast.ColumnNameExpr); ok {
				column = col.Name.Name.String()
			}
		}
		fn := strings.ToUpper(agg.F)
		alias := fieldAlias(field)
		if alias == "" {
			alias = strings.ToLower(fn)
		}
		items = append(items, plan.AggregationItem{Function: fn, Column: column, Alias: alias})
	}
	return items, len(items) > 0, nil
}

func fieldAlias(field *ast.SelectField) string {
	if field.AsName.L != "" {
		return field.AsName.String()
	}
	return ""
}

// collectProjection builds the Projection aliases for a non-aggregate
// SELECT, expanding a `*` wildcard against the FROM table's registered
// schema.
func (e *Engine) collectProjection(stmt *ast.SelectStmt) ([]plan.ProjAlias, error) {
	if stmt.Fields == nil {
		return nil, nil
	}

	var fromTable string
	if stmt.From != nil && stmt.From.TableRefs != nil {
		if name, ok := tableNameOf(stmt.From.TableRefs.Left); ok {
			fromTable = name
		}
	}

	aliases := make([]plan.ProjAlias, 0, len(stmt.Fields.Fields))
	for _, field := range stmt.Fields.Fields {
		if field.WildCard != nil {
			if fromTable == "" {
				return nil, dberrors.NewErrQuery("select", "`*` requires a FROM table")
			}
			schema, err := e.tableSchema(fromTable)
			if err != nil {
				return nil, err
			}
			for _, f := range schema.Fields {
				aliases = append(aliases, plan.ProjAlias{Alias: f.Name, Expr: plan.Col(f.Name)})
			}
			continue
		}

		expr, err := buildExpr(field.Expr)
		if err != nil {
			return nil, err
		}
		alias := fieldAlias(field)
		if alias == "" {
			if expr.Type == plan.ExprColumn {
				alias = expr.Column
			} else {
				alias = "?column?"
			}
		}
		aliases = append(aliases, plan.ProjAlias{Alias: alias, Expr: expr})
	}
	return aliases, nil
}

func limitValues(l *ast.Limit) (limit, offset int64, err error) {
	limit = -1
	if l.Count != nil {
		v, ok := l.Count.(ast.ValueExpr)
		if !ok {
			return 0, 0, dberrors.NewErrQuery("limit", "LIMIT count must be a literal")
		}
		n, ok := asInt64(v.GetValue())
		if !ok {
			return 0, 0, dberrors.NewErrQuery("limit", "LIMIT count must be an integer")
		}
		limit = n
	}
	if l.Offset != nil {
		v, ok := l.Offset.(ast.ValueExpr)
		if !ok {
			return 0, 0, dberrors.NewErrQuery("limit", "LIMIT offset must be a literal")
		}
		n, ok := asInt64(v.GetValue())
		if !ok {
			return 0, 0, dberrors.NewErrQuery("limit", "LIMIT offset must be an integer")
		}
		offset = n
	}
	return limit, offset, nil
}

// buildInsert builds either the canonical Projection(Values) shape for
// a literal INSERT, or Projection(subplan) with column-reference
// aliases for INSERT ... SELECT, both wrapped in a Dml node.
func (e *Engine) buildInsert(stmt *ast.InsertStmt) (plan.Node, error) {
	tableName, ok := tableNameOf(stmt.Table.TableRefs.Left)
	if !ok {
		return nil, dberrors.NewErrQuery("insert", "expected a base table reference")
	}

	columns := make([]string, 0, len(stmt.Columns))
	for _, c := range stmt.Columns {
		columns = append(columns, c.Name.String())
	}
	if len(columns) == 0 {
		schema, err := e.tableSchema(tableName)
		if err != nil {
			return nil, err
		}
		for _, f := range schema.Fields {
			columns = append(columns, f.Name)
		}
	}

	if selStmt, ok := stmt.Select.(*ast.SelectStmt); ok {
		sub, err := e.buildSelect(selStmt)
		if err != nil {
			return nil, err
		}
		aliases := make([]plan.ProjAlias, len(columns))
		for i, c := range columns {
			aliases[i] = plan.ProjAlias{Alias: c, Expr: plan.Col(c)}
		}
		proj := plan.NewProjection(sub, aliases)
		return plan.NewDml(plan.DmlInsert, tableName, proj), nil
	}

	rows := make([][]plan.Expr, 0, len(stmt.Lists))
	for _, rowExprs := range stmt.Lists {
		if len(rowExprs) != len(columns) {
			return nil, dberrors.NewErrQuery("insert", "VALUES row arity does not match column list")
		}
		row := make([]plan.Expr, len(rowExprs))
		for i, expr := range rowExprs {
			v, err := buildExpr(expr)
			if err != nil {
				return nil, err
			}
			row[i] = *v
		}
		rows = append(rows, row)
	}

	aliases := make([]plan.ProjAlias, len(columns))
	for i, c := range columns {
		aliases[i] = plan.ProjAlias{Alias: c}
	}
	proj := plan.NewProjection(&plan.Values{Rows: rows}, aliases)
	return plan.NewDml(plan.DmlInsert, tableName, proj), nil
}

// buildUpdate builds Dml(Update, Projection(SET literals, Filter?(TableScan))).
func (e *Engine) buildUpdate(stmt *ast.UpdateStmt) (plan.Node, error) {
	tableName, ok := tableNameOf(stmt.TableRefs.TableRefs.Left)
	if !ok {
		return nil, dberrors.NewErrQuery("update", "expected a base table reference")
	}

	var base plan.Node = &plan.TableScan{TableName: tableName}
	if stmt.Where != nil {
		pred, err := buildExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		base = plan.NewFilter(base, pred)
	}

	aliases := make([]plan.ProjAlias, 0, len(stmt.List))
	for _, assign := range stmt.List {
		val, err := buildExpr(assign.Expr)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, plan.ProjAlias{Alias: assign.Column.Name.String(), Expr: val})
	}

	proj := plan.NewProjection(base, aliases)
	return plan.NewDml(plan.DmlUpdate, tableName, proj), nil
}

// buildDelete builds Dml(Delete, Filter?(TableScan)).
func (e *Engine) buildDelete(stmt *ast.DeleteStmt) (plan.Node, error) {
	tableName, ok := tableNameOf(stmt.TableRefs.TableRefs.Left)
	if !ok {
		return nil, dberrors.NewErrQuery("delete", "expected a base table reference")
	}

	var base plan.Node = &plan.TableScan{TableName: tableName}
	if stmt.Where != nil {
		pred, err := buildExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		base = plan.NewFilter(base, pred)
	}
	return plan.NewDml(plan.DmlDelete, tableName, base), nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint:
		return int64(n), true
	}
	return 0, false
}
