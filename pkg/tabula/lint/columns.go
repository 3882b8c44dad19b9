package lint

import (
	"github.com/araddon/dateparse"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

// checkColumns looks at column references of a parsed statement whose
// table is in the schema. Unknown tables were already reported from tokens.
func (c *checker) checkColumns(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.SelectStatement:
		if len(s.Tables) != 1 || len(s.Joins) > 0 {
			return
		}
		table, ok := c.schema.table(s.Tables[0].Value)
		if !ok {
			return
		}
		for _, col := range s.Columns {
			if ident := columnIdent(col); ident != nil && !ident.IsStar() {
				c.requireColumn(table, ident)
			}
		}
		c.checkPredicate(table, s.Where)

	case *ast.InsertStatement:
		table, ok := c.schema.table(s.Table.Value)
		if !ok {
			return
		}
		c.checkInsert(table, s)

	case *ast.UpdateStatement:
		table, ok := c.schema.table(s.Table.Value)
		if !ok {
			return
		}
		for _, clause := range s.Set {
			col, ok := c.requireColumn(table, clause.Column)
			if ok {
				c.checkDateValue(col, clause.Value)
			}
		}
		c.checkPredicate(table, s.Where)

	case *ast.DeleteStatement:
		if table, ok := c.schema.table(s.Table.Value); ok {
			c.checkPredicate(table, s.Where)
		}
	}
}

func (c *checker) checkInsert(table Table, s *ast.InsertStatement) {
	columns := table.Columns
	if s.Columns != nil {
		columns = nil
		for _, ident := range s.Columns {
			col, ok := c.requireColumn(table, ident)
			if !ok {
				return
			}
			columns = append(columns, col)
		}
	}

	if len(columns) != len(s.Values) {
		c.add(CodeColumnCount, SeverityError, s.Token.Line, s.Token.Column, "",
			"%d value(s) for %d column(s) of table '%s'", len(s.Values), len(columns), table.Name)
		return
	}
	for i, col := range columns {
		c.checkDateValue(col, s.Values[i])
	}
}

// requireColumn reports ident as an error when table has no such column.
func (c *checker) requireColumn(table Table, ident *ast.Identifier) (Column, bool) {
	col, ok := table.column(ident.Value)
	if !ok {
		c.add(CodeUnknownColumn, SeverityError, ident.Token.Line, ident.Token.Column,
			suggestColumn(ident.Value, table),
			"column '%s' does not exist in table '%s'", ident.Value, table.Name)
	}
	return col, ok
}

// checkPredicate warns about names in a WHERE clause that are not columns,
// since they compare as plain strings, and about malformed DATE literals.
func (c *checker) checkPredicate(table Table, where *ast.Condition) {
	if where == nil {
		return
	}

	walk(where, func(e ast.Expression) {
		switch n := e.(type) {
		case *ast.Identifier:
			if _, ok := table.column(n.Value); !ok {
				c.add(CodeUnknownColumn, SeverityWarning, n.Token.Line, n.Token.Column,
					suggestColumn(n.Value, table),
					"'%s' is not a column of '%s' and will be compared as the string '%s'",
					n.Value, table.Name, n.Value)
			}
		case *ast.Condition:
			if !n.IsComparison() {
				return
			}
			if ident := columnIdent(n.Left); ident != nil {
				if col, ok := table.column(ident.Value); ok {
					c.checkDateValue(col, n.Right)
				}
			}
			if ident := columnIdent(n.Right); ident != nil {
				if col, ok := table.column(ident.Value); ok {
					c.checkDateValue(col, n.Left)
				}
			}
		}
	})
}

// checkDateValue warns when a string literal bound for a DATE column does
// not look like a date.
func (c *checker) checkDateValue(col Column, value ast.Expression) {
	if col.Type != "DATE" {
		return
	}
	lit, ok := ast.Unwrap(value).(*ast.Literal)
	if !ok || lit.ValueType != lexer.STRING {
		return
	}
	s := lit.Value.(string)
	if _, err := dateparse.ParseAny(s); err != nil {
		c.add(CodeBadDate, SeverityWarning, lit.Token.Line, lit.Token.Column,
			"Write dates as 'YYYY-MM-DD'",
			"'%s' is not a recognisable date for column '%s'", s, col.Name)
	}
}

// walk visits e and its operands. The table part of a qualified name is
// skipped; the column part is visited.
func walk(e ast.Expression, visit func(ast.Expression)) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.BinaryExpression:
		if n.Operator == lexer.DOT {
			walk(n.Right, visit)
			return
		}
		walk(n.Left, visit)
		walk(n.Right, visit)
		return
	case *ast.Condition:
		visit(n)
		walk(n.Left, visit)
		walk(n.Right, visit)
		return
	}
	visit(e)
}

// columnIdent returns the column identifier of a bare or qualified name.
func columnIdent(e ast.Expression) *ast.Identifier {
	switch n := ast.Unwrap(e).(type) {
	case *ast.Identifier:
		return n
	case *ast.BinaryExpression:
		if n.Operator == lexer.DOT {
			if ident, ok := n.Right.(*ast.Identifier); ok {
				return ident
			}
		}
	}
	return nil
}

func suggestColumn(name string, table Table) string {
	if suggestion := terrors.FindClosestMatch(name, table.columnNames()); suggestion != "" {
		return "Did you mean `" + suggestion + "`?"
	}
	return ""
}
