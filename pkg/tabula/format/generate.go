package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
	"github.com/sambeau/tabula/pkg/tabula/parser"
)

// ErrUnsupportedNode is returned when Generate meets a node it cannot print.
var ErrUnsupportedNode = errors.New("format: unsupported node")

// Generate prints node as canonical single-line SQL. Parentheses are added
// only where operator precedence needs them, so parsing the output yields an
// equivalent tree.
func Generate(node ast.Node) (string, error) {
	g := &generator{}
	g.node(node)
	if g.err != nil {
		return "", g.err
	}
	return g.out.String(), nil
}

// MustGenerate is like Generate but panics on error.
func MustGenerate(node ast.Node) string {
	s, err := Generate(node)
	if err != nil {
		panic(err)
	}
	return s
}

type generator struct {
	out strings.Builder
	err error
}

func (g *generator) write(s string) {
	g.out.WriteString(s)
}

func (g *generator) fail(node ast.Node) {
	if g.err == nil {
		g.err = fmt.Errorf("%w: %T", ErrUnsupportedNode, node)
	}
}

func (g *generator) node(node ast.Node) {
	switch n := node.(type) {
	case *ast.SelectStatement:
		g.selectStatement(n)
	case *ast.InsertStatement:
		g.insertStatement(n)
	case *ast.UpdateStatement:
		g.updateStatement(n)
	case *ast.DeleteStatement:
		g.deleteStatement(n)
	case *ast.CreateStatement:
		g.createStatement(n)
	case *ast.DropStatement:
		g.write("DROP TABLE ")
		g.node(n.Table)
	case *ast.Join:
		g.join(n)
	case *ast.SetClause:
		g.node(n.Column)
		g.write(" = ")
		g.expr(n.Value, parser.LOWEST)
	case *ast.ColumnDefinition:
		g.node(n.Name)
		g.write(" " + n.Type.Symbol())
	case ast.Expression:
		g.expr(n, parser.LOWEST)
	default:
		g.fail(node)
	}
}

func (g *generator) selectStatement(s *ast.SelectStatement) {
	g.write("SELECT ")
	g.list(len(s.Columns), func(i int) { g.expr(s.Columns[i], parser.LOWEST) })
	g.write(" FROM ")
	g.list(len(s.Tables), func(i int) { g.node(s.Tables[i]) })
	for _, j := range s.Joins {
		g.write(" ")
		g.join(j)
	}
	g.where(s.Where)
}

func (g *generator) insertStatement(s *ast.InsertStatement) {
	g.write("INSERT INTO ")
	g.node(s.Table)
	if len(s.Columns) > 0 {
		g.write(" (")
		g.list(len(s.Columns), func(i int) { g.node(s.Columns[i]) })
		g.write(")")
	}
	g.write(" VALUES (")
	g.list(len(s.Values), func(i int) { g.expr(s.Values[i], parser.LOWEST) })
	g.write(")")
}

func (g *generator) updateStatement(s *ast.UpdateStatement) {
	g.write("UPDATE ")
	g.node(s.Table)
	g.write(" SET ")
	g.list(len(s.Set), func(i int) { g.node(s.Set[i]) })
	g.where(s.Where)
}

func (g *generator) deleteStatement(s *ast.DeleteStatement) {
	g.write("DELETE FROM ")
	g.node(s.Table)
	g.where(s.Where)
}

func (g *generator) createStatement(s *ast.CreateStatement) {
	g.write("CREATE TABLE ")
	g.node(s.Table)
	g.write(" (")
	g.list(len(s.Columns), func(i int) { g.node(s.Columns[i]) })
	g.write(")")
	if s.Title != "" {
		g.write(" " + quote(s.Title))
	}
}

func (g *generator) join(j *ast.Join) {
	g.write("JOIN ")
	g.node(j.Table)
	g.write(" ON ")
	g.expr(j.Condition, parser.LOWEST)
}

func (g *generator) where(cond *ast.Condition) {
	if cond == nil {
		return
	}
	g.write(" WHERE ")
	g.expr(cond, parser.LOWEST)
}

func (g *generator) list(n int, item func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			g.write(", ")
		}
		item(i)
	}
}

// expr prints e, wrapping it in parentheses when its own precedence is
// lower than minPrec.
func (g *generator) expr(e ast.Expression, minPrec int) {
	if e == nil {
		g.fail(e)
		return
	}
	e = ast.Unwrap(e)

	if precedence(e) < minPrec {
		g.write("(")
		defer g.write(")")
	}

	switch n := e.(type) {
	case *ast.Identifier:
		g.write(n.Value)

	case *ast.Literal:
		g.write(literal(n))

	case *ast.BinaryExpression:
		if n.Operator == lexer.DOT {
			if isName(n.Left) {
				g.expr(n.Left, parser.QUALIFIER)
			} else {
				// a number before the dot would lex as a malformed float
				g.write("(")
				g.expr(n.Left, parser.LOWEST)
				g.write(")")
			}
			g.write(".")
			g.expr(n.Right, parser.QUALIFIER+1)
			return
		}
		prec := precedence(n)
		g.expr(n.Left, prec)
		g.write(" " + n.Operator.Symbol() + " ")
		g.expr(n.Right, prec+1)

	case *ast.Condition:
		switch {
		case n.Operator == lexer.NOT:
			g.write("NOT ")
			g.expr(n.Right, parser.LOGIC_NOT)
		case n.IsComparison():
			g.expr(n.Left, parser.COMPARE+1)
			g.write(" " + n.Operator.Symbol() + " ")
			g.expr(n.Right, parser.COMPARE+1)
		default:
			prec := precedence(n)
			g.expr(n.Left, prec)
			g.write(" " + n.Operator.Symbol() + " ")
			g.expr(n.Right, prec+1)
		}

	default:
		g.fail(e)
	}
}

// precedence returns the binding strength of e using the parser's levels.
// Operands bind tighter than any operator.
func precedence(e ast.Expression) int {
	switch n := e.(type) {
	case *ast.BinaryExpression:
		switch n.Operator {
		case lexer.PLUS, lexer.MINUS:
			return parser.SUM
		case lexer.ASTERISK, lexer.SLASH:
			return parser.PRODUCT
		case lexer.DOT:
			return parser.QUALIFIER
		}
	case *ast.Condition:
		switch {
		case !n.HasOperator():
			return precedence(n.Left)
		case n.Operator == lexer.OR:
			return parser.LOGIC_OR
		case n.Operator == lexer.AND:
			return parser.LOGIC_AND
		case n.Operator == lexer.NOT:
			return parser.LOGIC_NOT
		case n.IsComparison():
			return parser.COMPARE
		}
	case *ast.Literal:
		if isNegative(n) {
			return parser.PREFIX
		}
	}
	return parser.QUALIFIER + 1
}

// isName reports whether e is an identifier or a qualified name.
func isName(e ast.Expression) bool {
	switch n := ast.Unwrap(e).(type) {
	case *ast.Identifier:
		return true
	case *ast.BinaryExpression:
		return n.Operator == lexer.DOT
	}
	return false
}

func literal(l *ast.Literal) string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return ast.FormatFloat(v)
	case string:
		return quote(v)
	}
	return l.Token.Literal
}

func isNegative(l *ast.Literal) bool {
	switch v := l.Value.(type) {
	case int64:
		return v < 0
	case float64:
		return v < 0
	}
	return false
}

// quote wraps s in single quotes. The grammar has no escape sequences.
func quote(s string) string {
	return "'" + s + "'"
}
