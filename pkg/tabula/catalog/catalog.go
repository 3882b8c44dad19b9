// Package catalog holds the in-memory tables of an engine.
//
// A Catalog maps case-folded table names to tables and remembers the order
// in which they were created. Tables own their column definitions and rows;
// every stored row has one cell per column and every non-NULL cell satisfies
// the column's declared type. The catalog does no locking of its own.
package catalog

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

var (
	// ErrAlreadyExists is the cause of a DuplicateTable error.
	ErrAlreadyExists = errors.New("table already exists")
	// ErrNotFound is the cause of an UnknownTable error.
	ErrNotFound = errors.New("table not found")
)

// ColumnType is the declared type of a column.
type ColumnType int

const (
	TypeInt ColumnType = iota + 1
	TypeFloat
	TypeText
	TypeDate
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeDate:
		return "DATE"
	}
	return "UNKNOWN"
}

// Token returns the type keyword token for t.
func (t ColumnType) Token() lexer.TokenType {
	switch t {
	case TypeInt:
		return lexer.INT
	case TypeFloat:
		return lexer.FLOAT
	case TypeText:
		return lexer.TEXT
	case TypeDate:
		return lexer.DATE
	}
	return lexer.ILLEGAL
}

// TypeFromToken maps a column type keyword to its ColumnType.
func TypeFromToken(tt lexer.TokenType) (ColumnType, bool) {
	switch tt {
	case lexer.INT:
		return TypeInt, true
	case lexer.FLOAT:
		return TypeFloat, true
	case lexer.TEXT:
		return TypeText, true
	case lexer.DATE:
		return TypeDate, true
	}
	return 0, false
}

// Column is a column definition.
type Column struct {
	Name string
	Type ColumnType
}

// Row is one stored row. Cells are nil (NULL), int64, float64 or string.
type Row []any

// Table is a named relation with a fixed column list.
type Table struct {
	Name    string
	Title   string
	Columns []Column
	Rows    []Row

	strictDates bool
}

// ColumnIndex returns the position of the named column, or -1.
// Matching is case-insensitive.
func (t *Table) ColumnIndex(name string) int {
	key := fold(name)
	for i, col := range t.Columns {
		if fold(col.Name) == key {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// AddRow validates values against the columns and appends them as a new row.
// Nothing is stored when validation fails.
func (t *Table) AddRow(values []any) error {
	if err := t.ValidateRow(values); err != nil {
		return err
	}
	row := make(Row, len(values))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// ValidateRow checks the cell count and every cell's type.
func (t *Table) ValidateRow(values []any) error {
	if len(values) != len(t.Columns) {
		return terrors.New("SEM-0003", map[string]any{
			"Expected": len(t.Columns),
			"Got":      len(values),
		})
	}
	for i, v := range values {
		if err := t.CheckValue(i, v); err != nil {
			return err
		}
	}
	return nil
}

// CheckValue checks that value may be stored in column i.
func (t *Table) CheckValue(i int, value any) error {
	col := t.Columns[i]
	if !ValidateValue(value, col.Type) {
		return typeMismatch(col, TypeName(value))
	}
	if t.strictDates && col.Type == TypeDate && value != nil {
		if _, err := dateparse.ParseAny(value.(string)); err != nil {
			return typeMismatch(col, fmt.Sprintf("unparseable date '%s'", value))
		}
	}
	return nil
}

func typeMismatch(col Column, got string) error {
	return terrors.New("SEM-0005", map[string]any{
		"Column":   col.Name,
		"Expected": col.Type.String(),
		"Got":      got,
	})
}

// ValidateValue reports whether value satisfies typ. NULL is always valid
// and FLOAT columns accept integers.
func ValidateValue(value any, typ ColumnType) bool {
	if value == nil {
		return true
	}
	switch typ {
	case TypeInt:
		_, ok := value.(int64)
		return ok
	case TypeFloat:
		switch value.(type) {
		case int64, float64:
			return true
		}
		return false
	case TypeText, TypeDate:
		_, ok := value.(string)
		return ok
	}
	return false
}

// TypeName names the runtime type of a cell or expression value.
func TypeName(value any) string {
	switch value.(type) {
	case nil:
		return "NULL"
	case int64:
		return "INT"
	case float64:
		return "FLOAT"
	case string:
		return "TEXT"
	case bool:
		return "BOOLEAN"
	}
	return fmt.Sprintf("%T", value)
}

// FormatValue renders a cell for display. Floats always carry a decimal
// point so they can be told apart from integers.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return ast.FormatFloat(v)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(value)
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStrictDates makes DATE columns reject strings that do not parse as a date.
func WithStrictDates() Option {
	return func(c *Catalog) {
		c.strictDates = true
	}
}

// Catalog is the set of tables of one engine.
type Catalog struct {
	tables      map[string]*Table
	order       []string // folded keys in creation order
	strictDates bool
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{tables: make(map[string]*Table)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateTable adds a table. An empty title defaults to the table name.
func (c *Catalog) CreateTable(name string, columns []Column, title string) (*Table, error) {
	key := fold(name)
	if existing, ok := c.tables[key]; ok {
		return nil, terrors.New("SEM-0013", map[string]any{"Table": existing.Name}).WithCause(ErrAlreadyExists)
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		k := fold(col.Name)
		if seen[k] {
			return nil, terrors.New("SEM-0015", map[string]any{"Column": col.Name, "Table": name})
		}
		seen[k] = true
	}

	if title == "" {
		title = name
	}

	t := &Table{
		Name:        name,
		Title:       title,
		Columns:     append([]Column(nil), columns...),
		strictDates: c.strictDates,
	}
	c.tables[key] = t
	c.order = append(c.order, key)
	return t, nil
}

// DropTable removes a table and its rows.
func (c *Catalog) DropTable(name string) error {
	key := fold(name)
	if _, ok := c.tables[key]; !ok {
		return c.UnknownTable(name)
	}
	delete(c.tables, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetTable looks a table up by name, ignoring case.
func (c *Catalog) GetTable(name string) (*Table, bool) {
	t, ok := c.tables[fold(name)]
	return t, ok
}

// Tables returns the tables in creation order.
func (c *Catalog) Tables() []*Table {
	tables := make([]*Table, 0, len(c.order))
	for _, key := range c.order {
		tables = append(tables, c.tables[key])
	}
	return tables
}

// TableNames returns the table names in creation order.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.order))
	for _, key := range c.order {
		names = append(names, c.tables[key].Name)
	}
	return names
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Reset drops every table.
func (c *Catalog) Reset() {
	c.tables = make(map[string]*Table)
	c.order = nil
}

// UnknownTable builds the UnknownTable error for name with hints from the
// tables that do exist.
func (c *Catalog) UnknownTable(name string) *terrors.TabulaError {
	return terrors.NewUnknownTable(name, c.TableNames()).WithCause(ErrNotFound)
}

// fold returns the case-insensitive lookup key for an identifier.
// A Caser holds state, so a fresh one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
