// Package lint checks query text for common mistakes before it is executed.
//
// Checks work on the token stream, so they also run on text that does not
// parse. When the first statement does parse, column and DATE checks use
// the syntax tree and the schema.
package lint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sambeau/tabula/pkg/tabula/catalog"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
	"github.com/sambeau/tabula/pkg/tabula/parser"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding. Line is 1-based and Column 0-based, as for tokens.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint,omitempty"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

func (i Issue) String() string {
	s := fmt.Sprintf("%d:%d: %s: %s", i.Line, i.Column, i.Severity, i.Message)
	if i.Hint != "" {
		s += " (" + i.Hint + ")"
	}
	return s
}

// Issue codes
const (
	CodeUnterminatedString = "LINT-0001"
	CodeUnbalancedParens   = "LINT-0002"
	CodeMissingSemicolon   = "LINT-0003"
	CodeUnknownTable       = "LINT-0004"
	CodeUnknownColumn      = "LINT-0005"
	CodeBadDate            = "LINT-0006"
	CodeSyntax             = "LINT-0007"
	CodeExtraStatements    = "LINT-0008"
	CodeColumnCount        = "LINT-0009"
)

// Column is a column name and its type name (INT, FLOAT, TEXT or DATE).
type Column struct {
	Name string
	Type string
}

// Table is one table known to the linter.
type Table struct {
	Name    string
	Columns []Column
}

// Schema lists the tables a query may refer to. A nil Schema disables the
// table and column checks.
type Schema []Table

// SchemaFromCatalog builds a Schema from cat.
func SchemaFromCatalog(cat *catalog.Catalog) Schema {
	schema := make(Schema, 0, cat.Len())
	for _, t := range cat.Tables() {
		table := Table{Name: t.Name}
		for _, c := range t.Columns {
			table.Columns = append(table.Columns, Column{Name: c.Name, Type: c.Type.String()})
		}
		schema = append(schema, table)
	}
	return schema
}

func (s Schema) table(name string) (Table, bool) {
	for _, t := range s {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

func (s Schema) names() []string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.Name
	}
	return names
}

func (t Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) columnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Check returns every issue found in query, in the order the checks run:
// lexical problems, parentheses, the trailing semicolon, table references,
// then checks that need a parsed statement.
func Check(query string, schema Schema) []Issue {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	l := lexer.New(query)
	var tokens []lexer.Token
	for {
		tok := l.NextToken()
		if tok.Type == lexer.EOF {
			break
		}
		tokens = append(tokens, tok)
	}

	c := &checker{schema: schema}
	c.checkLexical(l)
	c.checkParens(tokens)
	c.checkSemicolon(tokens)
	if schema != nil {
		c.checkTables(tokens)
	}
	c.checkStatement(query)
	return c.issues
}

type checker struct {
	schema Schema
	issues []Issue
}

func (c *checker) add(code string, sev Severity, line, column int, hint, format string, args ...any) {
	c.issues = append(c.issues, Issue{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Hint:     hint,
		Line:     line,
		Column:   column,
	})
}

// checkLexical reports lexical errors. Unterminated strings get their own
// code, positioned at the opening quote.
func (c *checker) checkLexical(l *lexer.Lexer) {
	for _, err := range l.Errors() {
		if err.Code == "LEX-0002" {
			c.add(CodeUnterminatedString, SeverityError, err.Line, err.Column,
				"Close the string with a single quote", "unbalanced single quote")
			continue
		}
		c.add(CodeSyntax, SeverityError, err.Line, err.Column, firstHint(err), "%s", err.Message)
	}
}

func firstHint(err *terrors.TabulaError) string {
	if len(err.Hints) > 0 {
		return err.Hints[0]
	}
	return ""
}

// checkParens reports the first unmatched closing parenthesis, or the first
// opening parenthesis that is never closed.
func (c *checker) checkParens(tokens []lexer.Token) {
	var open []lexer.Token
	opens, closes := 0, 0
	var stray *lexer.Token

	for i, tok := range tokens {
		switch tok.Type {
		case lexer.LPAREN:
			opens++
			open = append(open, tok)
		case lexer.RPAREN:
			closes++
			if len(open) == 0 {
				if stray == nil {
					stray = &tokens[i]
				}
				continue
			}
			open = open[:len(open)-1]
		}
	}

	var at *lexer.Token
	switch {
	case stray != nil:
		at = stray
	case len(open) > 0:
		at = &open[0]
	default:
		return
	}
	c.add(CodeUnbalancedParens, SeverityError, at.Line, at.Column, "",
		"unbalanced parentheses: %d opening vs %d closing", opens, closes)
}

func (c *checker) checkSemicolon(tokens []lexer.Token) {
	if len(tokens) == 0 {
		return
	}
	last := tokens[len(tokens)-1]
	if last.Type != lexer.SEMICOLON {
		c.add(CodeMissingSemicolon, SeverityWarning, last.Line, last.Column+len(last.Literal), "",
			"query should end with a semicolon")
	}
}

// checkTables reports names after FROM, JOIN, UPDATE, INTO and DROP TABLE
// that are not in the schema. Each name is reported once.
func (c *checker) checkTables(tokens []lexer.Token) {
	seen := map[string]bool{}

	report := func(tok lexer.Token) {
		key := strings.ToLower(tok.Literal)
		if seen[key] {
			return
		}
		seen[key] = true
		if _, ok := c.schema.table(tok.Literal); ok {
			return
		}
		hint := ""
		if suggestion := terrors.FindClosestMatch(tok.Literal, c.schema.names()); suggestion != "" {
			hint = "Did you mean `" + suggestion + "`?"
		}
		c.add(CodeUnknownTable, SeverityError, tok.Line, tok.Column, hint,
			"table '%s' does not exist in the database", tok.Literal)
	}

	for i := 0; i < len(tokens); i++ {
		next := func(offset int) (lexer.Token, bool) {
			if i+offset < len(tokens) {
				return tokens[i+offset], true
			}
			return lexer.Token{}, false
		}

		switch tokens[i].Type {
		case lexer.FROM:
			// FROM a, b, c
			for j := i + 1; j < len(tokens) && tokens[j].Type == lexer.IDENT; j += 2 {
				report(tokens[j])
				if j+1 >= len(tokens) || tokens[j+1].Type != lexer.COMMA {
					break
				}
			}
		case lexer.JOIN, lexer.UPDATE, lexer.INTO:
			if tok, ok := next(1); ok && tok.Type == lexer.IDENT {
				report(tok)
			}
		case lexer.DROP:
			if tok, ok := next(1); ok && tok.Type == lexer.TABLE {
				if name, ok := next(2); ok && name.Type == lexer.IDENT {
					report(name)
				}
			}
		}
	}
}

// checkStatement parses the first statement. Syntax errors are reported
// unless a lexical check already explains them; a parsed statement gets the
// column and DATE checks.
func (c *checker) checkStatement(query string) {
	stmt, extra, err := parser.ParseFirst(query)
	if err != nil {
		var terr *terrors.TabulaError
		switch {
		case !errors.As(err, &terr):
			c.add(CodeSyntax, SeverityError, 0, 0, "", "%s", err.Error())
		case terr.Class != terrors.ClassLexical:
			c.add(CodeSyntax, SeverityError, terr.Line, terr.Column, firstHint(terr), "%s", terr.Message)
		}
		return
	}

	if extra != nil {
		c.add(CodeExtraStatements, SeverityWarning, extra.Line, extra.Column, "",
			"only the first statement is executed; the rest is ignored")
	}

	if c.schema != nil {
		c.checkColumns(stmt)
	}
}
