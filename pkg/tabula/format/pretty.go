package format

import (
	"strings"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
	"github.com/sambeau/tabula/pkg/tabula/parser"
)

// Pretty prints stmt with one clause per line. Lists that do not fit within
// ListThreshold are broken one item per line, and long WHERE or ON predicates
// are split before each top-level AND/OR.
func Pretty(stmt ast.Statement) (string, error) {
	p := NewPrinter()
	if err := p.statement(stmt); err != nil {
		return "", err
	}
	return strings.TrimRight(p.String(), "\n"), nil
}

func (p *Printer) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.SelectStatement:
		return p.formatSelect(s)
	case *ast.InsertStatement:
		return p.formatInsert(s)
	case *ast.UpdateStatement:
		return p.formatUpdate(s)
	case *ast.DeleteStatement:
		p.writeln("DELETE FROM " + s.Table.Value)
		return p.formatPredicate("WHERE", s.Where)
	case *ast.CreateStatement:
		return p.formatCreate(s)
	case *ast.DropStatement:
		p.writeln("DROP TABLE " + s.Table.Value)
		return nil
	}
	return ErrUnsupportedNode
}

func (p *Printer) formatSelect(s *ast.SelectStatement) error {
	columns, err := generateAll(s.Columns)
	if err != nil {
		return err
	}
	p.formatList("SELECT", columns, "", "")

	tables := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		tables[i] = t.Value
	}
	p.formatList("FROM", tables, "", "")

	for _, j := range s.Joins {
		if err := p.formatPredicate("JOIN "+j.Table.Value+" ON", j.Condition); err != nil {
			return err
		}
	}
	return p.formatPredicate("WHERE", s.Where)
}

func (p *Printer) formatInsert(s *ast.InsertStatement) error {
	header := "INSERT INTO " + s.Table.Value
	if len(s.Columns) > 0 {
		names := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			names[i] = c.Value
		}
		inline := header + " (" + strings.Join(names, ", ") + ")"
		if p.fitsOnLine(inline, MaxLineWidth) {
			p.writeln(inline)
		} else {
			p.formatList(header, names, " (", ")")
		}
	} else {
		p.writeln(header)
	}

	values, err := generateAll(s.Values)
	if err != nil {
		return err
	}
	p.formatList("VALUES", values, " (", ")")
	return nil
}

func (p *Printer) formatUpdate(s *ast.UpdateStatement) error {
	p.writeln("UPDATE " + s.Table.Value)

	set := make([]string, len(s.Set))
	for i, clause := range s.Set {
		text, err := Generate(clause)
		if err != nil {
			return err
		}
		set[i] = text
	}
	p.formatList("SET", set, "", "")

	return p.formatPredicate("WHERE", s.Where)
}

func (p *Printer) formatCreate(s *ast.CreateStatement) error {
	p.writeln("CREATE TABLE " + s.Table.Value + " (")
	p.indentInc()
	for i, col := range s.Columns {
		p.writeIndent()
		p.write(col.Name.Value + " " + col.Type.Symbol())
		if i < len(s.Columns)-1 {
			p.write(",")
		}
		p.newline()
	}
	p.indentDec()

	if s.Title != "" {
		p.writeln(") " + quote(s.Title))
	} else {
		p.writeln(")")
	}
	return nil
}

// formatList writes keyword followed by items. Items go on the keyword's
// line when they fit; otherwise each gets its own indented line. open and
// close surround the items, e.g. " (" and ")" for VALUES.
func (p *Printer) formatList(keyword string, items []string, open, close string) {
	sep := open
	if sep == "" {
		sep = " "
	}
	inline := keyword + sep + strings.Join(items, ", ") + close
	if p.fitsOnLine(inline, ListThreshold) {
		p.writeln(inline)
		return
	}

	p.writeln(keyword + open)
	p.indentInc()
	for i, item := range items {
		p.writeIndent()
		p.write(item)
		if i < len(items)-1 {
			p.write(",")
		}
		p.newline()
	}
	p.indentDec()
	if close != "" {
		p.writeln(close)
	}
}

// formatPredicate writes keyword and cond. A predicate too long for
// ConditionThreshold continues on indented lines, one per AND/OR term.
func (p *Printer) formatPredicate(keyword string, cond *ast.Condition) error {
	if cond == nil {
		return nil
	}

	text, err := Generate(cond)
	if err != nil {
		return err
	}
	if p.fitsOnLine(keyword+" "+text, ConditionThreshold) {
		p.writeln(keyword + " " + text)
		return nil
	}

	first, rest := splitLogical(cond)
	head, err := generateExpr(first.expr, first.minPrec)
	if err != nil {
		return err
	}
	p.writeln(keyword + " " + head)

	p.indentInc()
	for _, term := range rest {
		text, err := generateExpr(term.expr, term.minPrec)
		if err != nil {
			return err
		}
		p.writeIndent()
		p.writeln(term.op.Symbol() + " " + text)
	}
	p.indentDec()
	return nil
}

// logicalTerm is one operand of a flattened AND/OR chain.
type logicalTerm struct {
	op      lexer.TokenType
	expr    ast.Expression
	minPrec int
}

// splitLogical flattens the left spine of an AND/OR chain. Printing the
// first term followed by "op term" for each of rest reproduces cond.
func splitLogical(cond ast.Expression) (logicalTerm, []logicalTerm) {
	var rest []logicalTerm
	node := ast.Unwrap(cond)
	minPrec := parser.LOWEST

	for {
		c, ok := node.(*ast.Condition)
		if !ok || (c.Operator != lexer.AND && c.Operator != lexer.OR) {
			break
		}
		prec := precedence(c)
		rest = append([]logicalTerm{{op: c.Operator, expr: c.Right, minPrec: prec + 1}}, rest...)
		minPrec = prec

		node = ast.Unwrap(c.Left)
		if precedence(node) < prec {
			break
		}
	}

	return logicalTerm{expr: node, minPrec: minPrec}, rest
}

func generateExpr(e ast.Expression, minPrec int) (string, error) {
	g := &generator{}
	g.expr(e, minPrec)
	if g.err != nil {
		return "", g.err
	}
	return g.out.String(), nil
}

func generateAll(exprs []ast.Expression) ([]string, error) {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := generateExpr(e, parser.LOWEST)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
