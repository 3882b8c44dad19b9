// Package ast defines the syntax tree produced by the parser.
//
// The node set is closed: statements implement Statement, operands and
// predicates implement Expression, and clause helpers (Join, SetClause,
// ColumnDefinition) are plain nodes owned by their statement.
package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// ============================================================================
// Statements
// ============================================================================

// SelectStatement represents SELECT <cols|*> FROM <tables> [JOIN ...] [WHERE ...]
type SelectStatement struct {
	Token   lexer.Token // the SELECT token
	Columns []Expression
	Tables  []*Identifier
	Joins   []*Join
	Where   *Condition
}

func (ss *SelectStatement) statementNode()       {}
func (ss *SelectStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SelectStatement) String() string {
	var out bytes.Buffer

	out.WriteString("SELECT ")
	out.WriteString(joinNodes(ss.Columns))
	out.WriteString(" FROM ")
	out.WriteString(joinNodes(ss.Tables))
	for _, j := range ss.Joins {
		out.WriteString(" ")
		out.WriteString(j.String())
	}
	if ss.Where != nil {
		out.WriteString(" WHERE ")
		out.WriteString(ss.Where.String())
	}

	return out.String()
}

// InsertStatement represents INSERT INTO <table> [(<cols>)] VALUES (<exprs>)
type InsertStatement struct {
	Token   lexer.Token // the INSERT token
	Table   *Identifier
	Columns []*Identifier // nil when no column list was given
	Values  []Expression
}

func (is *InsertStatement) statementNode()       {}
func (is *InsertStatement) TokenLiteral() string { return is.Token.Literal }
func (is *InsertStatement) String() string {
	var out bytes.Buffer

	out.WriteString("INSERT INTO ")
	out.WriteString(is.Table.String())
	if len(is.Columns) > 0 {
		out.WriteString(" (")
		out.WriteString(joinNodes(is.Columns))
		out.WriteString(")")
	}
	out.WriteString(" VALUES (")
	out.WriteString(joinNodes(is.Values))
	out.WriteString(")")

	return out.String()
}

// UpdateStatement represents UPDATE <table> SET <col>=<expr>[, ...] [WHERE ...]
type UpdateStatement struct {
	Token lexer.Token // the UPDATE token
	Table *Identifier
	Set   []*SetClause
	Where *Condition
}

func (us *UpdateStatement) statementNode()       {}
func (us *UpdateStatement) TokenLiteral() string { return us.Token.Literal }
func (us *UpdateStatement) String() string {
	var out bytes.Buffer

	out.WriteString("UPDATE ")
	out.WriteString(us.Table.String())
	out.WriteString(" SET ")
	out.WriteString(joinNodes(us.Set))
	if us.Where != nil {
		out.WriteString(" WHERE ")
		out.WriteString(us.Where.String())
	}

	return out.String()
}

// DeleteStatement represents DELETE FROM <table> [WHERE ...]
type DeleteStatement struct {
	Token lexer.Token // the DELETE token
	Table *Identifier
	Where *Condition
}

func (ds *DeleteStatement) statementNode()       {}
func (ds *DeleteStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DeleteStatement) String() string {
	var out bytes.Buffer

	out.WriteString("DELETE FROM ")
	out.WriteString(ds.Table.String())
	if ds.Where != nil {
		out.WriteString(" WHERE ")
		out.WriteString(ds.Where.String())
	}

	return out.String()
}

// CreateStatement represents CREATE TABLE <table> (<col> <type>[, ...]) ['title']
type CreateStatement struct {
	Token   lexer.Token // the CREATE token
	Table   *Identifier
	Columns []*ColumnDefinition
	Title   string // optional display title; empty means none
}

func (cs *CreateStatement) statementNode()       {}
func (cs *CreateStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *CreateStatement) String() string {
	var out bytes.Buffer

	out.WriteString("CREATE TABLE ")
	out.WriteString(cs.Table.String())
	out.WriteString(" (")
	out.WriteString(joinNodes(cs.Columns))
	out.WriteString(")")
	if cs.Title != "" {
		out.WriteString(" '" + cs.Title + "'")
	}

	return out.String()
}

// DropStatement represents DROP TABLE <table>
type DropStatement struct {
	Token lexer.Token // the DROP token
	Table *Identifier
}

func (ds *DropStatement) statementNode()       {}
func (ds *DropStatement) TokenLiteral() string { return ds.Token.Literal }
func (ds *DropStatement) String() string {
	return "DROP TABLE " + ds.Table.String()
}

// ============================================================================
// Clauses
// ============================================================================

// Join represents JOIN <table> ON <condition>. It is parsed and regenerated
// but never executed.
type Join struct {
	Token     lexer.Token // the JOIN token
	Table     *Identifier
	Condition *Condition
}

func (j *Join) TokenLiteral() string { return j.Token.Literal }
func (j *Join) String() string {
	return "JOIN " + j.Table.String() + " ON " + j.Condition.String()
}

// SetClause represents one <col> = <expr> assignment of an UPDATE.
type SetClause struct {
	Token  lexer.Token // the '=' token
	Column *Identifier
	Value  Expression
}

func (sc *SetClause) TokenLiteral() string { return sc.Token.Literal }
func (sc *SetClause) String() string {
	return sc.Column.String() + " = " + sc.Value.String()
}

// ColumnDefinition represents <name> <type> inside CREATE TABLE.
type ColumnDefinition struct {
	Token lexer.Token // the column name token
	Name  *Identifier
	Type  lexer.TokenType // INT, FLOAT, TEXT or DATE
}

func (cd *ColumnDefinition) TokenLiteral() string { return cd.Token.Literal }
func (cd *ColumnDefinition) String() string {
	return cd.Name.String() + " " + cd.Type.String()
}

// ============================================================================
// Expressions
// ============================================================================

// Identifier represents a table or column name. SELECT * is Identifier{Value: "*"}.
type Identifier struct {
	Token lexer.Token // the IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// IsStar reports whether the identifier is the * projection.
func (i *Identifier) IsStar() bool { return i.Value == "*" }

// Literal represents an integer, float, string or NULL constant.
// Value holds int64, float64, string or nil; ValueType is the literal's token type.
type Literal struct {
	Token     lexer.Token
	Value     any
	ValueType lexer.TokenType // INT_LIT, FLOAT_LIT, STRING or NULL
}

func (l *Literal) expressionNode()      {}
func (l *Literal) TokenLiteral() string { return l.Token.Literal }
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return FormatFloat(v)
	case string:
		return "'" + v + "'"
	}
	return l.Token.Literal
}

// FormatFloat prints a float so that it always reads back as a float literal.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// BinaryExpression represents arithmetic (+ - * /) and the qualifier dot.
type BinaryExpression struct {
	Token    lexer.Token // the operator token
	Left     Expression
	Operator lexer.TokenType
	Right    Expression
}

func (be *BinaryExpression) expressionNode()      {}
func (be *BinaryExpression) TokenLiteral() string { return be.Token.Literal }
func (be *BinaryExpression) String() string {
	if be.Operator == lexer.DOT {
		return be.Left.String() + "." + be.Right.String()
	}
	return "(" + be.Left.String() + " " + be.Operator.Symbol() + " " + be.Right.String() + ")"
}

// Condition represents a predicate. Operator is a comparison, AND, OR or NOT;
// NOT keeps its operand in Right. When Operator is lexer.ILLEGAL (the zero
// value) the condition has no operator and Left is evaluated as a plain expression.
type Condition struct {
	Token    lexer.Token
	Left     Expression
	Operator lexer.TokenType
	Right    Expression
}

func (c *Condition) expressionNode()      {}
func (c *Condition) TokenLiteral() string { return c.Token.Literal }
func (c *Condition) String() string {
	switch {
	case !c.HasOperator():
		return c.Left.String()
	case c.Operator == lexer.NOT:
		return "(NOT " + c.Right.String() + ")"
	default:
		return "(" + c.Left.String() + " " + c.Operator.Symbol() + " " + c.Right.String() + ")"
	}
}

// HasOperator reports whether the condition applies an operator.
func (c *Condition) HasOperator() bool { return c.Operator != lexer.ILLEGAL }

// IsComparison reports whether the operator is one of = != > < >= <=.
func (c *Condition) IsComparison() bool { return IsComparisonOperator(c.Operator) }

// IsComparisonOperator reports whether t is a comparison operator.
func IsComparisonOperator(t lexer.TokenType) bool {
	switch t {
	case lexer.EQ, lexer.NOT_EQ, lexer.GT, lexer.LT, lexer.GTE, lexer.LTE:
		return true
	}
	return false
}

// Unwrap returns the bare expression of an operator-less condition, or the condition itself.
func Unwrap(e Expression) Expression {
	if c, ok := e.(*Condition); ok && !c.HasOperator() {
		return Unwrap(c.Left)
	}
	return e
}

func joinNodes[T Node](nodes []T) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
