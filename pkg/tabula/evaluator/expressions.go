package evaluator

import (
	"cmp"
	"math"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	"github.com/sambeau/tabula/pkg/tabula/catalog"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

// evalExpr evaluates an expression. With a table and row, identifiers that
// name a column read the row's cell; any other identifier evaluates to its
// own name as a string.
func evalExpr(expr ast.Expression, table *catalog.Table, row catalog.Row) (any, error) {
	switch node := expr.(type) {
	case *ast.Identifier:
		if table != nil && row != nil {
			if idx := table.ColumnIndex(node.Value); idx != -1 {
				return row[idx], nil
			}
		}
		return node.Value, nil

	case *ast.Literal:
		return node.Value, nil

	case *ast.BinaryExpression:
		if node.Operator == lexer.DOT {
			return evalQualified(node, table, row)
		}
		left, err := evalExpr(node.Left, table, row)
		if err != nil {
			return nil, err
		}
		right, err := evalExpr(node.Right, table, row)
		if err != nil {
			return nil, err
		}
		return evalArithmetic(node.Operator, left, right)

	case *ast.Condition:
		return evalCond(node, table, row)
	}

	return nil, terrors.New("SEM-0014", map[string]any{"Statement": expr.String()})
}

// evalQualified handles table.column. The left side must be a name; the
// result is whatever the right side resolves to.
func evalQualified(node *ast.BinaryExpression, table *catalog.Table, row catalog.Row) (any, error) {
	left, err := evalExpr(node.Left, table, row)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(node.Right, table, row)
	if err != nil {
		return nil, err
	}
	if _, ok := left.(string); !ok {
		return nil, terrors.New("SEM-0012", map[string]any{
			"Left":  catalog.TypeName(left),
			"Right": catalog.TypeName(right),
		})
	}
	return right, nil
}

// evalArithmetic applies + - * /. Two integers stay integral except for
// division, which always produces a float.
func evalArithmetic(op lexer.TokenType, left, right any) (any, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return nil, terrors.New("SEM-0007", map[string]any{
			"Operator": op.Symbol(),
			"Left":     catalog.TypeName(left),
			"Right":    catalog.TypeName(right),
		})
	}

	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt && op != lexer.SLASH {
		return intArithmetic(op, li, ri)
	}

	lf, rf := toFloat(left), toFloat(right)
	var result float64
	switch op {
	case lexer.PLUS:
		result = lf + rf
	case lexer.MINUS:
		result = lf - rf
	case lexer.ASTERISK:
		result = lf * rf
	case lexer.SLASH:
		if rf == 0 {
			return nil, terrors.New("SEM-0008", nil)
		}
		result = lf / rf
	default:
		return nil, terrors.New("SEM-0009", map[string]any{"Operator": op.Symbol()})
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return nil, overflow(op, left, right, catalog.TypeFloat)
	}
	return result, nil
}

// intArithmetic applies + - * to two integers, failing instead of wrapping.
func intArithmetic(op lexer.TokenType, li, ri int64) (any, error) {
	switch op {
	case lexer.PLUS:
		sum := li + ri
		if (li > 0 && ri > 0 && sum < 0) || (li < 0 && ri < 0 && sum >= 0) {
			return nil, overflow(op, li, ri, catalog.TypeInt)
		}
		return sum, nil
	case lexer.MINUS:
		diff := li - ri
		if (li^ri)&(li^diff) < 0 {
			return nil, overflow(op, li, ri, catalog.TypeInt)
		}
		return diff, nil
	case lexer.ASTERISK:
		product := li * ri
		if li != 0 && (product/li != ri || (li == -1 && ri == math.MinInt64)) {
			return nil, overflow(op, li, ri, catalog.TypeInt)
		}
		return product, nil
	}
	return nil, terrors.New("SEM-0009", map[string]any{"Operator": op.Symbol()})
}

func overflow(op lexer.TokenType, left, right any, t catalog.ColumnType) error {
	return terrors.New("SEM-0018", map[string]any{
		"Left":     catalog.FormatValue(left),
		"Operator": op.Symbol(),
		"Right":    catalog.FormatValue(right),
		"Type":     t.String(),
	})
}

// evalCond evaluates a predicate. Logical operators yield false unless every
// operand is boolean. A comparison involving NULL is false; comparing values
// of different, non-numeric types is a TypeMismatch error.
func evalCond(expr ast.Expression, table *catalog.Table, row catalog.Row) (any, error) {
	cond, ok := expr.(*ast.Condition)
	if !ok {
		return evalExpr(expr, table, row)
	}

	switch cond.Operator {
	case lexer.ILLEGAL:
		return evalCond(cond.Left, table, row)

	case lexer.AND, lexer.OR:
		left, err := evalCond(cond.Left, table, row)
		if err != nil {
			return nil, err
		}
		right, err := evalCond(cond.Right, table, row)
		if err != nil {
			return nil, err
		}
		lb, lok := left.(bool)
		rb, rok := right.(bool)
		if !lok || !rok {
			return false, nil
		}
		if cond.Operator == lexer.AND {
			return lb && rb, nil
		}
		return lb || rb, nil

	case lexer.NOT:
		operand, err := evalCond(cond.Right, table, row)
		if err != nil {
			return nil, err
		}
		b, ok := operand.(bool)
		if !ok {
			return false, nil
		}
		return !b, nil
	}

	if !cond.IsComparison() {
		return nil, terrors.New("SEM-0009", map[string]any{"Operator": cond.Operator.Symbol()})
	}

	left, err := evalExpr(cond.Left, table, row)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(cond.Right, table, row)
	if err != nil {
		return nil, err
	}
	return compare(cond.Operator, left, right)
}

// compare applies a comparison operator to two values.
func compare(op lexer.TokenType, left, right any) (any, error) {
	if left == nil || right == nil {
		return false, nil
	}

	switch {
	case isNumeric(left) && isNumeric(right):
		if li, ok := left.(int64); ok {
			if ri, ok := right.(int64); ok {
				return applyOrdering(op, cmp.Compare(li, ri)), nil
			}
		}
		return applyOrdering(op, cmp.Compare(toFloat(left), toFloat(right))), nil

	case catalog.TypeName(left) != catalog.TypeName(right):
		return nil, terrors.New("SEM-0006", map[string]any{
			"Left":     catalog.TypeName(left),
			"Operator": op.Symbol(),
			"Right":    catalog.TypeName(right),
		})
	}

	switch l := left.(type) {
	case string:
		return applyOrdering(op, cmp.Compare(l, right.(string))), nil
	case bool:
		r := right.(bool)
		switch op {
		case lexer.EQ:
			return l == r, nil
		case lexer.NOT_EQ:
			return l != r, nil
		}
		return nil, terrors.New("SEM-0009", map[string]any{"Operator": op.Symbol() + " on BOOLEAN"})
	}

	return nil, terrors.New("SEM-0009", map[string]any{"Operator": op.Symbol()})
}

func applyOrdering(op lexer.TokenType, c int) bool {
	switch op {
	case lexer.EQ:
		return c == 0
	case lexer.NOT_EQ:
		return c != 0
	case lexer.GT:
		return c > 0
	case lexer.LT:
		return c < 0
	case lexer.GTE:
		return c >= 0
	case lexer.LTE:
		return c <= 0
	}
	return false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
