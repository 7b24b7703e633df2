package engine

import (
	"fmt"
	"strconv"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"

	"github.com/colbase/colbase/internal/dberrors"
	"github.com/colbase/colbase/internal/plan"
)

// buildExpr converts a TiDB expression AST node into this repository's
// plan.Expr, switching on opcode.Op constants rather than trusting
// Op.String() so the operator strings produced always match what
// internal/predicate.Evaluate expects ("=", "AND", ...) regardless of
// how the parser renders them for display.
func buildExpr(node ast.ExprNode) (*plan.Expr, error) {
	switch n := node.(type) {
	case *ast.ParenthesesExpr:
		return buildExpr(n.Expr)

	case *ast.ColumnNameExpr:
		return plan.Col(n.Name.Name.String()), nil

	case ast.ValueExpr:
		return plan.Lit(normalizeLiteral(n.GetValue())), nil

	case *ast.BinaryOperationExpr:
		op, ok := binOpString(n.Op)
		if !ok {
			return nil, dberrors.NewErrQuery("expr", "unsupported operator")
		}
		left, err := buildExpr(n.L)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(n.R)
		if err != nil {
			return nil, err
		}
		return plan.BinOp(op, left, right), nil

	case *ast.PatternLikeOrIlikeExpr:
		left, err := buildExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(n.Pattern)
		if err != nil {
			return nil, err
		}
		op := "LIKE"
		if n.Not {
			op = "NOT LIKE"
		}
		return plan.BinOp(op, left, right), nil

	case *ast.PatternInExpr:
		left, err := buildExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		items := make([]plan.Expr, 0, len(n.List))
		for _, item := range n.List {
			v, err := buildExpr(item)
			if err != nil {
				return nil, err
			}
			items = append(items, *v)
		}
		op := "IN"
		if n.Not {
			op = "NOT IN"
		}
		return &plan.Expr{Type: plan.ExprOperator, Operator: op, Left: left, Right: plan.List(items...)}, nil

	case *ast.IsNullExpr:
		left, err := buildExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		op := "IS NULL"
		if n.Not {
			op = "IS NOT NULL"
		}
		return &plan.Expr{Type: plan.ExprOperator, Operator: op, Left: left}, nil

	default:
		return nil, dberrors.NewErrQuery("expr", "unsupported expression")
	}
}

// binOpString maps the subset of opcode.Op this engine understands to
// the exact operator strings internal/predicate switches on.
func binOpString(op opcode.Op) (string, bool) {
	switch op {
	case opcode.EQ:
		return "=", true
	case opcode.NE:
		return "!=", true
	case opcode.LT:
		return "<", true
	case opcode.LE:
		return "<=", true
	case opcode.GT:
		return ">", true
	case opcode.GE:
		return ">=", true
	case opcode.LogicAnd:
		return "AND", true
	case opcode.LogicOr:
		return "OR", true
	default:
		return "", false
	}
}

// normalizeLiteral narrows the handful of Go types the TiDB test_driver
// value expression produces down to the ones arrowcol's encoder
// accepts: integers widen to int64, floats to float64, byte slices to
// string. DECIMAL literals arrive as the driver's fixed-point type,
// which only exposes itself through String(); those parse to float64.
func normalizeLiteral(v any) any {
	switch val := v.(type) {
	case uint64:
		return int64(val)
	case uint:
		return int64(val)
	case uint32:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	case string:
		return val
	default:
		if s, ok := v.(fmt.Stringer); ok {
			if f, err := strconv.ParseFloat(s.String(), 64); err == nil {
				return f
			}
		}
		return v
	}
}
