// Package predicate evaluates plan.Expr predicates row-at-a-time
// against a batch.Batch, handling the numeric coercions, float
// epsilon comparisons, and LIKE pattern matching the column mutation
// kernel's type system requires.
package predicate

import (
	"github.com/colbase/colbase/internal/arrowcol"
	"github.com/colbase/colbase/internal/batch"
	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
	"golang.org/x/text/runes"
)

// floatEpsilon is the float64 machine epsilon scaled by 1000, wide
// enough to absorb accumulated rounding without conflating adjacent
// representable values.
const floatEpsilon = 2.220446049250313e-16 * 1000

// Evaluate returns whether row matches expr. Unsupported expression
// kinds, unsupported operators, type mismatches with no defined
// coercion, and NULL operands in a comparison all evaluate to false
// (not an error); only an unresolvable column name is an error.
func Evaluate(expr *plan.Expr, b *batch.Batch, row int) (bool, error) {
	if expr == nil {
		return true, nil
	}
	switch expr.Type {
	case plan.ExprOperator:
		return evalOperator(expr, b, row)
	default:
		return false, nil
	}
}

func evalOperator(expr *plan.Expr, b *batch.Batch, row int) (bool, error) {
	switch expr.Operator {
	case "AND":
		left, err := Evaluate(expr.Left, b, row)
		if err != nil {
			return false, err
		}
		right, err := Evaluate(expr.Right, b, row)
		if err != nil {
			return false, err
		}
		return left && right, nil
	case "OR":
		left, err := Evaluate(expr.Left, b, row)
		if err != nil {
			return false, err
		}
		right, err := Evaluate(expr.Right, b, row)
		if err != nil {
			return false, err
		}
		return left || right, nil
	case "IS NULL", "IS NOT NULL":
		return evalIsNull(expr, b, row)
	case "IN", "NOT IN":
		return evalIn(expr, b, row)
	case "LIKE", "NOT LIKE":
		return evalLike(expr, b, row)
	case "=", "!=", "<", "<=", ">", ">=":
		return evalComparison(expr, b, row)
	default:
		return false, nil
	}
}

func columnIndex(b *batch.Batch, name string) (int, error) {
	idx := b.Schema.IndexOf(name)
	if idx < 0 {
		return 0, dberrors.NewErrQuery("predicate", "unknown column "+name)
	}
	return idx, nil
}

func evalIsNull(expr *plan.Expr, b *batch.Batch, row int) (bool, error) {
	if expr.Left == nil || expr.Left.Type != plan.ExprColumn {
		return false, nil
	}
	idx, err := columnIndex(b, expr.Left.Column)
	if err != nil {
		return false, err
	}
	isNull := b.Columns[idx].IsNull(row)
	if expr.Operator == "IS NOT NULL" {
		return !isNull, nil
	}
	return isNull, nil
}

func evalIn(expr *plan.Expr, b *batch.Batch, row int) (bool, error) {
	if expr.Left == nil || expr.Left.Type != plan.ExprColumn || expr.Right == nil || expr.Right.Type != plan.ExprList {
		return false, nil
	}
	idx, err := columnIndex(b, expr.Left.Column)
	if err != nil {
		return false, err
	}
	col := b.Columns[idx]
	if col.IsNull(row) {
		return false, nil
	}
	left := col.Value(row)

	found := false
	for _, item := range expr.Right.Args {
		if item.Type != plan.ExprValue {
			continue
		}
		if valuesEqual(col.DataType(), left, item.Value) {
			found = true
			break
		}
	}
	if expr.Operator == "NOT IN" {
		return !found, nil
	}
	return found, nil
}

func evalLike(expr *plan.Expr, b *batch.Batch, row int) (bool, error) {
	if expr.Left == nil || expr.Left.Type != plan.ExprColumn || expr.Right == nil || expr.Right.Type != plan.ExprValue {
		return false, nil
	}
	idx, err := columnIndex(b, expr.Left.Column)
	if err != nil {
		return false, err
	}
	col := b.Columns[idx]
	if col.IsNull(row) || col.DataType() != arrowcol.Utf8 {
		return false, nil
	}
	str, _ := col.Value(row).(string)
	pattern, _ := expr.Right.Value.(string)

	match := likeMatch([]rune(str), []rune(pattern))
	if expr.Operator == "NOT LIKE" {
		return !match, nil
	}
	return match, nil
}

// likeMatch is a recursive-descent matcher over Unicode scalar values:
// '%' matches zero or more characters, '_' matches exactly one.
// golang.org/x/text/runes backs the rune classification used to strip
// lone surrogate scalars before comparison, keeping matching defined
// over scalar values rather than UTF-16 code units.
func likeMatch(s, p []rune) bool {
	s = normalizeScalars(s)
	p = normalizeScalars(p)
	return likeMatchAt(s, p)
}

var surrogateScalars = runes.Predicate(func(r rune) bool { return r >= 0xD800 && r <= 0xDFFF })

func normalizeScalars(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		if surrogateScalars.Contains(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func likeMatchAt(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		if likeMatchAt(s, p[1:]) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if likeMatchAt(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchAt(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchAt(s[1:], p[1:])
	}
}

func evalComparison(expr *plan.Expr, b *batch.Batch, row int) (bool, error) {
	if expr.Left == nil || expr.Left.Type != plan.ExprColumn || expr.Right == nil || expr.Right.Type != plan.ExprValue {
		return false, nil
	}
	idx, err := columnIndex(b, expr.Left.Column)
	if err != nil {
		return false, err
	}
	col := b.Columns[idx]
	if col.IsNull(row) {
		return false, nil
	}
	return compare(col.DataType(), col.Value(row), expr.Operator, expr.Right.Value), nil
}

// compare dispatches by the column's runtime type, widening Int32
// column values against Int64 literals and Float32 column values
// against Float64 literals before comparing.
func compare(dt arrowcol.DataType, colVal any, op string, litVal any) bool {
	switch dt {
	case arrowcol.Int32:
		cv := int64(colVal.(int32))
		lv, ok := asInt64(litVal)
		if !ok {
			return false
		}
		return compareOrdered(op, cv, lv)
	case arrowcol.Int64, arrowcol.Date32, arrowcol.Date64:
		cv, ok1 := asInt64(colVal)
		lv, ok2 := asInt64(litVal)
		if !ok1 || !ok2 {
			return false
		}
		return compareOrdered(op, cv, lv)
	case arrowcol.Float32:
		cv := float64(colVal.(float32))
		lv, ok := asFloat64(litVal)
		if !ok {
			return false
		}
		return compareFloat(op, cv, lv)
	case arrowcol.Float64:
		cv, ok1 := asFloat64(colVal)
		lv, ok2 := asFloat64(litVal)
		if !ok1 || !ok2 {
			return false
		}
		return compareFloat(op, cv, lv)
	case arrowcol.Boolean:
		cv, ok1 := colVal.(bool)
		lv, ok2 := litVal.(bool)
		if !ok1 || !ok2 {
			return false
		}
		switch op {
		case "=":
			return cv == lv
		case "!=":
			return cv != lv
		default:
			return false
		}
	case arrowcol.Utf8:
		cv, ok1 := colVal.(string)
		lv, ok2 := litVal.(string)
		if !ok1 || !ok2 {
			return false
		}
		switch op {
		case "=":
			return cv == lv
		case "!=":
			return cv != lv
		case "<":
			return cv < lv
		case "<=":
			return cv <= lv
		case ">":
			return cv > lv
		case ">=":
			return cv >= lv
		}
		return false
	default:
		return false
	}
}

func valuesEqual(dt arrowcol.DataType, colVal, litVal any) bool {
	return compare(dt, colVal, "=", litVal)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func compareOrdered(op string, a, b int64) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func compareFloat(op string, a, b float64) bool {
	switch op {
	case "=":
		return abs(a-b) < floatEpsilon
	case "!=":
		return !(abs(a-b) < floatEpsilon)
	case "<":
		return a < b-floatEpsilon
	case "<=":
		return a <= b+floatEpsilon
	case ">":
		return a > b+floatEpsilon
	case ">=":
		return a >= b-floatEpsilon
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
