package parser

import (
	"strings"
	"testing"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

func parseOne(t *testing.T, input string) ast.Statement {
	t.Helper()
	stmt, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", input, err)
	}
	return stmt
}

func parseError(t *testing.T, input string) *terrors.TabulaError {
	t.Helper()
	_, err := Parse(input)
	if err == nil {
		t.Fatalf("Parse(%q) expected error, got none", input)
	}
	terr, ok := err.(*terrors.TabulaError)
	if !ok {
		t.Fatalf("expected *TabulaError, got %T", err)
	}
	return terr
}

func TestSelectStatement(t *testing.T) {
	stmt := parseOne(t, "SELECT id, name FROM users WHERE age >= 18;")

	sel, ok := stmt.(*ast.SelectStatement)
	if !ok {
		t.Fatalf("stmt is not *ast.SelectStatement. got=%T", stmt)
	}
	if len(sel.Columns) != 2 {
		t.Fatalf("wrong column count. expected=2, got=%d", len(sel.Columns))
	}
	if sel.Columns[0].String() != "id" || sel.Columns[1].String() != "name" {
		t.Errorf("wrong columns: %s, %s", sel.Columns[0], sel.Columns[1])
	}
	if len(sel.Tables) != 1 || sel.Tables[0].Value != "users" {
		t.Errorf("wrong tables: %v", sel.Tables)
	}
	if sel.Where == nil {
		t.Fatal("expected WHERE condition")
	}
	if sel.Where.Operator != lexer.GTE {
		t.Errorf("wrong WHERE operator. expected=%s, got=%s", lexer.GTE, sel.Where.Operator)
	}
	if sel.Where.String() != "(age >= 18)" {
		t.Errorf("wrong WHERE. got=%q", sel.Where.String())
	}
}

func TestSelectStar(t *testing.T) {
	sel := parseOne(t, "select * from t").(*ast.SelectStatement)
	if len(sel.Columns) != 1 {
		t.Fatalf("wrong column count. got=%d", len(sel.Columns))
	}
	ident, ok := sel.Columns[0].(*ast.Identifier)
	if !ok || !ident.IsStar() {
		t.Errorf("expected * projection, got %s", sel.Columns[0])
	}
}

func TestSelectMultipleTablesAndJoin(t *testing.T) {
	sel := parseOne(t, "SELECT a.id FROM a, b JOIN c ON a.id = c.id JOIN d ON d.x = 1").(*ast.SelectStatement)

	if len(sel.Tables) != 2 {
		t.Fatalf("wrong table count. expected=2, got=%d", len(sel.Tables))
	}
	if len(sel.Joins) != 2 {
		t.Fatalf("wrong join count. expected=2, got=%d", len(sel.Joins))
	}
	if sel.Joins[0].Table.Value != "c" || sel.Joins[0].Condition.String() != "(a.id = c.id)" {
		t.Errorf("wrong first join: %s", sel.Joins[0])
	}
	if sel.Columns[0].String() != "a.id" {
		t.Errorf("wrong qualified column: %s", sel.Columns[0])
	}
}

func TestInsertStatement(t *testing.T) {
	tests := []struct {
		input   string
		table   string
		columns []string
		values  []any
	}{
		{"INSERT INTO t VALUES (1, 'Alice', 2.5, NULL)", "t", nil, []any{int64(1), "Alice", 2.5, nil}},
		{"INSERT INTO t (a, b) VALUES (-3, 'x');", "t", []string{"a", "b"}, []any{int64(-3), "x"}},
	}

	for _, tt := range tests {
		ins, ok := parseOne(t, tt.input).(*ast.InsertStatement)
		if !ok {
			t.Fatalf("not an InsertStatement: %q", tt.input)
		}
		if ins.Table.Value != tt.table {
			t.Errorf("wrong table. expected=%q, got=%q", tt.table, ins.Table.Value)
		}
		if len(ins.Columns) != len(tt.columns) {
			t.Fatalf("wrong column count. expected=%d, got=%d", len(tt.columns), len(ins.Columns))
		}
		for i, c := range tt.columns {
			if ins.Columns[i].Value != c {
				t.Errorf("column[%d] wrong. expected=%q, got=%q", i, c, ins.Columns[i].Value)
			}
		}
		if len(ins.Values) != len(tt.values) {
			t.Fatalf("wrong value count. expected=%d, got=%d", len(tt.values), len(ins.Values))
		}
		for i, want := range tt.values {
			lit, ok := ins.Values[i].(*ast.Literal)
			if !ok {
				t.Fatalf("value[%d] not a literal: %T", i, ins.Values[i])
			}
			if lit.Value != want {
				t.Errorf("value[%d] wrong. expected=%v (%T), got=%v (%T)", i, want, want, lit.Value, lit.Value)
			}
		}
	}
}

func TestUpdateStatement(t *testing.T) {
	upd := parseOne(t, "UPDATE t SET a = a + 1, b = 'x' WHERE id = 3").(*ast.UpdateStatement)

	if upd.Table.Value != "t" {
		t.Errorf("wrong table: %s", upd.Table)
	}
	if len(upd.Set) != 2 {
		t.Fatalf("wrong SET count. expected=2, got=%d", len(upd.Set))
	}
	if upd.Set[0].String() != "a = (a + 1)" {
		t.Errorf("wrong first SET clause: %q", upd.Set[0].String())
	}
	if upd.Where == nil || upd.Where.String() != "(id = 3)" {
		t.Errorf("wrong WHERE: %v", upd.Where)
	}
}

func TestDeleteStatement(t *testing.T) {
	del := parseOne(t, "DELETE FROM t").(*ast.DeleteStatement)
	if del.Table.Value != "t" || del.Where != nil {
		t.Errorf("wrong delete: %s", del)
	}

	del = parseOne(t, "DELETE FROM t WHERE NOT a = 1").(*ast.DeleteStatement)
	if del.Where.Operator != lexer.NOT {
		t.Errorf("expected NOT condition, got %s", del.Where.Operator)
	}
}

func TestCreateStatement(t *testing.T) {
	create := parseOne(t, "CREATE TABLE users (id INT, name TEXT, score FLOAT, born DATE) 'Registered Users'").(*ast.CreateStatement)

	if create.Table.Value != "users" {
		t.Errorf("wrong table: %s", create.Table)
	}
	if create.Title != "Registered Users" {
		t.Errorf("wrong title: %q", create.Title)
	}

	expected := []struct {
		name string
		typ  lexer.TokenType
	}{
		{"id", lexer.INT},
		{"name", lexer.TEXT},
		{"score", lexer.FLOAT},
		{"born", lexer.DATE},
	}
	if len(create.Columns) != len(expected) {
		t.Fatalf("wrong column count. expected=%d, got=%d", len(expected), len(create.Columns))
	}
	for i, want := range expected {
		if create.Columns[i].Name.Value != want.name || create.Columns[i].Type != want.typ {
			t.Errorf("column[%d] wrong. expected=%s %s, got=%s", i, want.name, want.typ, create.Columns[i])
		}
	}
}

func TestDropStatement(t *testing.T) {
	drop := parseOne(t, "drop table t;").(*ast.DropStatement)
	if drop.Table.Value != "t" {
		t.Errorf("wrong table: %s", drop.Table)
	}
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"a - b - c", "((a - b) - c)"},
		{"a / b * c", "((a / b) * c)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"a + b = c * d", "((a + b) = (c * d))"},
		{"a = 1 OR b = 2 AND c = 3", "((a = 1) OR ((b = 2) AND (c = 3)))"},
		{"(a = 1 OR b = 2) AND c = 3", "(((a = 1) OR (b = 2)) AND (c = 3))"},
		{"NOT a = 1 AND b = 2", "((NOT (a = 1)) AND (b = 2))"},
		{"NOT NOT a", "(NOT (NOT a))"},
		{"t.a * 2 >= t.b", "((t.a * 2) >= t.b)"},
		{"-a * b", "((0 - a) * b)"},
		{"a - -1", "(a - -1)"},
		{"a OR b OR c", "((a OR b) OR c)"},
	}

	for _, tt := range tests {
		stmt := parseOne(t, "SELECT x FROM t WHERE "+tt.input).(*ast.SelectStatement)
		if got := stmt.Where.String(); got != tt.expected {
			t.Errorf("WHERE %s: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestBareConditionIsWrapped(t *testing.T) {
	sel := parseOne(t, "SELECT a FROM t WHERE flag").(*ast.SelectStatement)
	if sel.Where.HasOperator() {
		t.Fatalf("expected operator-less condition, got %s", sel.Where.Operator)
	}
	if ident, ok := sel.Where.Left.(*ast.Identifier); !ok || ident.Value != "flag" {
		t.Errorf("wrong condition operand: %v", sel.Where.Left)
	}
}

func TestChainedComparisonIsRejected(t *testing.T) {
	err := parseError(t, "SELECT a FROM t WHERE a < b < c")
	if err.Code != "SYN-0004" {
		t.Errorf("wrong code. expected=SYN-0004, got=%s (%s)", err.Code, err.Message)
	}
	if err.Line != 1 || err.Column != 28 {
		t.Errorf("wrong position. expected=1:28, got=%d:%d", err.Line, err.Column)
	}

	// explicit grouping is allowed
	parseOne(t, "SELECT a FROM t WHERE (a < b) = c")
}

func TestIntegerLiterals(t *testing.T) {
	ins := parseOne(t, "INSERT INTO t VALUES (9223372036854775807, -9223372036854775808)").(*ast.InsertStatement)
	if ins.Values[0].(*ast.Literal).Value != int64(9223372036854775807) {
		t.Errorf("max int wrong: %v", ins.Values[0])
	}
	if ins.Values[1].(*ast.Literal).Value != int64(-9223372036854775808) {
		t.Errorf("min int wrong: %v", ins.Values[1])
	}

	err := parseError(t, "INSERT INTO t VALUES (9223372036854775808)")
	if err.Code != "SYN-0007" {
		t.Errorf("wrong code. expected=SYN-0007, got=%s", err.Code)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input          string
		expectedCode   string
		expectedLine   int
		expectedColumn int
		contains       string
	}{
		{"SELECT FROM t", "SYN-0002", 1, 7, "keyword FROM"},
		{"SELECT a t", "SYN-0001", 1, 9, "expected FROM"},
		{"SELECT a FROM", "SYN-0001", 1, 13, "end of input"},
		{"INSERT t VALUES (1)", "SYN-0001", 1, 7, "expected INTO"},
		{"INSERT INTO t VALUES ()", "SYN-0002", 1, 22, "')'"},
		{"UPDATE t a = 1", "SYN-0001", 1, 9, "expected SET"},
		{"CREATE TABLE t (a STRING)", "SYN-0005", 1, 18, "column type"},
		{"CREATE TABLE t (a INT", "SYN-0001", 1, 21, "')'"},
		{"DROP t", "SYN-0001", 1, 5, "expected TABLE"},
		{"SELEC a FROM t", "SYN-0003", 1, 0, "expected a statement"},
		{"", "SYN-0006", 1, 0, "empty input"},
		{"SELECT a FROM t WHERE", "SYN-0002", 1, 21, "end of input"},
		{"SELECT a FROM t WHERE a =\n  AND b", "SYN-0002", 2, 2, "keyword AND"},
		{"SELECT t. FROM t", "SYN-0001", 1, 10, "expected identifier"},
		{"SELECT a FROM t extra", "SYN-0002", 1, 16, "identifier extra"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := parseError(t, tt.input)
			if err.Code != tt.expectedCode {
				t.Errorf("wrong code. expected=%s, got=%s (%s)", tt.expectedCode, err.Code, err.Message)
			}
			if err.Kind != terrors.KindSyntax {
				t.Errorf("wrong kind. expected=%s, got=%s", terrors.KindSyntax, err.Kind)
			}
			if err.Line != tt.expectedLine || err.Column != tt.expectedColumn {
				t.Errorf("wrong position. expected=%d:%d, got=%d:%d",
					tt.expectedLine, tt.expectedColumn, err.Line, err.Column)
			}
			if !strings.Contains(err.Message, tt.contains) {
				t.Errorf("message %q does not contain %q", err.Message, tt.contains)
			}
		})
	}
}

func TestKeywordTypoHints(t *testing.T) {
	err := parseError(t, "SELEC a FROM t")
	if len(err.Hints) == 0 || !strings.Contains(err.Hints[0], "SELECT") {
		t.Errorf("expected SELECT suggestion, got %v", err.Hints)
	}

	err = parseError(t, "SELECT a FORM t")
	found := false
	for _, h := range err.Hints {
		if strings.Contains(h, "`FROM`") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected FROM suggestion, got %v", err.Hints)
	}
}

func TestLexicalErrorsSurfaceThroughParser(t *testing.T) {
	tests := []struct {
		input        string
		expectedCode string
	}{
		{"SELECT a FROM t WHERE b = 'open", "LEX-0002"},
		{"SELECT a FROM t WHERE b = 1.", "LEX-0003"},
		{"SELECT @ FROM t", "LEX-0001"},
		{"SELECT a FROM t; @", "LEX-0001"},
	}

	for _, tt := range tests {
		err := parseError(t, tt.input)
		if err.Code != tt.expectedCode {
			t.Errorf("%q: wrong code. expected=%s, got=%s", tt.input, tt.expectedCode, err.Code)
		}
		if err.Kind != terrors.KindLexical {
			t.Errorf("%q: wrong kind. expected=%s, got=%s", tt.input, terrors.KindLexical, err.Kind)
		}
	}
}

func TestOnlyFirstErrorIsKept(t *testing.T) {
	p := New(lexer.New("SELECT FROM WHERE"))
	if stmt := p.ParseStatement(); stmt != nil {
		t.Fatalf("expected nil statement, got %s", stmt)
	}
	if len(p.Errors()) != 1 {
		t.Errorf("expected exactly one error, got %d: %v", len(p.Errors()), p.Errors())
	}
	if !strings.HasPrefix(p.Errors()[0], "line 1, column 7:") {
		t.Errorf("wrong error string: %q", p.Errors()[0])
	}
}

func TestParseFirstLeavesExtraTokens(t *testing.T) {
	stmt, extra, err := ParseFirst("DROP TABLE a; DROP TABLE b;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stmt.String() != "DROP TABLE a" {
		t.Errorf("wrong statement: %s", stmt)
	}
	if extra == nil {
		t.Fatal("expected leftover token")
	}
	if extra.Type != lexer.DROP || extra.Line != 1 || extra.Column != 14 {
		t.Errorf("wrong leftover token: %s", extra)
	}

	_, extra, err = ParseFirst("DROP TABLE a;")
	if err != nil || extra != nil {
		t.Errorf("expected clean parse, got extra=%v err=%v", extra, err)
	}
}

func TestParserPositionsAfterStatement(t *testing.T) {
	p := New(lexer.New("DELETE FROM t WHERE a = 1 ; SELECT"))
	if stmt := p.ParseStatement(); stmt == nil {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	if p.CurToken().Type != lexer.SEMICOLON {
		t.Fatalf("expected to stop on ';', got %s", p.CurToken())
	}
	p.SkipSemicolon()
	if p.CurToken().Type != lexer.SELECT {
		t.Errorf("expected SELECT after semicolon, got %s", p.CurToken())
	}
}

func TestParseScript(t *testing.T) {
	stmts, err := ParseScript("CREATE TABLE t (a INT);\nINSERT INTO t VALUES (1);\n\nSELECT a FROM t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"CREATE TABLE t (a INT)", "INSERT INTO t VALUES (1)", "SELECT a FROM t"}
	if len(stmts) != len(expected) {
		t.Fatalf("expected %d statements, got %d", len(expected), len(stmts))
	}
	for i, stmt := range stmts {
		if stmt.String() != expected[i] {
			t.Errorf("statement %d wrong. expected=%q, got=%q", i, expected[i], stmt.String())
		}
	}

	stmts, err = ParseScript("DROP TABLE a; DROP b;")
	if err == nil {
		t.Fatal("expected error for second statement")
	}
	if len(stmts) != 1 {
		t.Errorf("statements before the error should be returned, got %d", len(stmts))
	}

	if stmts, err := ParseScript("  "); err != nil || len(stmts) != 0 {
		t.Errorf("empty script: stmts=%v err=%v", stmts, err)
	}
}
