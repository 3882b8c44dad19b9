package repl

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sambeau/tabula/pkg/tabula/tabula"
)

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"SELECT * FROM t;", false},
		{"SELECT * FROM t;  \n", false},
		{"SELECT * FROM t", true},
		{"SELECT *\nFROM t\nWHERE a = 1;", false},
		{"SELECT * FROM t WHERE a = ';", true},
		{"SELECT * FROM t WHERE a = ';';", false},
		{"SELECT * FROM t; -- done", false},
		{"SELECT * FROM t -- not yet;", true},
		{"SELECT * FROM t /* ; */", true},
		{"SELECT * FROM t; /* trailing", true},
		{"SELECT * FROM t /* x */;", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NeedsMoreInput(tt.input); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	tables := []string{"users", "Orders"}
	tests := []struct {
		line     string
		expected []string
	}{
		{"sel", []string{"select"}},
		{"SEL", []string{"SELECT"}},
		{"select * fr", []string{"select * from"}},
		{"select * from us", []string{"select * from users"}},
		{"select * from or", []string{"select * from Orders"}},
		{"insert into t values (nu", []string{"insert into t values (null"}},
		{":sc", []string{":schema"}},
		{":c", []string{":check", ":clear", ":csv"}},
		{"select ", nil},
		{"", nil},
		{"select", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Complete(tt.line, tables)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func newSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	engine := tabula.New()
	engine.Execute("CREATE TABLE users (id INT, name TEXT) 'People';")
	engine.Execute("INSERT INTO users VALUES (1, 'Ann');")
	return NewSession(engine, nil, &out), &out
}

func TestSessionRun(t *testing.T) {
	s, out := newSession(t)
	s.Run("SELECT name FROM users;")

	for _, want := range []string{"│ name │", "│ Ann  │", "1 row in set"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestSessionCommands(t *testing.T) {
	tests := []struct {
		command  string
		contains string
	}{
		{":help", ":dump <dsn>"},
		{":tables", "  users"},
		{":schema", "Table: People (users)"},
		{":csv users", "\"1\",\"Ann\""},
		{":csv nobody", "table 'nobody' does not exist"},
		{":csv", "Usage: :csv <table>"},
		{":check SELECT nmae FROM users;", "column 'nmae' does not exist"},
		{":check SELECT id FROM users;", "No issues found"},
		{":format select id, name from users where id = 1", "SELECT id, name\nFROM users\nWHERE id = 1"},
		{":format select from", "Syntax error"},
		{":nope", "Unknown command: :nope"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			s, out := newSession(t)
			if quit := s.Command(tt.command); quit {
				t.Fatal("command should not quit")
			}
			if !strings.Contains(out.String(), tt.contains) {
				t.Errorf("output does not contain %q:\n%s", tt.contains, out.String())
			}
		})
	}
}

func TestSessionClearAndQuit(t *testing.T) {
	s, out := newSession(t)
	s.Command(":clear")
	if len(s.engine.Tables()) != 0 {
		t.Errorf("tables remain after :clear: %v", s.engine.Tables())
	}
	if !s.Command(":quit") {
		t.Error(":quit should end the session")
	}
	if !strings.Contains(out.String(), "Bye") {
		t.Errorf("missing goodbye:\n%s", out.String())
	}
}

func TestSessionDump(t *testing.T) {
	s, out := newSession(t)
	path := filepath.Join(t.TempDir(), "dump.db")

	s.Command(":dump sqlite:" + path)
	if !strings.Contains(out.String(), "Exported 1 table(s), 1 row(s)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
