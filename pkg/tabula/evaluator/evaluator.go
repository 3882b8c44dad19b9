// Package evaluator executes parsed statements against a catalog.
//
// Execution is a direct walk over the syntax tree. Each statement either
// completes or fails without side effects: INSERT validates the whole row
// before storing it, UPDATE computes and validates every new value before
// mutating any row, and DELETE builds the kept set before replacing rows.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	"github.com/sambeau/tabula/pkg/tabula/catalog"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

// Execute runs stmt against cat. It never panics; every problem is
// reported as a ResultFailure.
func Execute(stmt ast.Statement, cat *catalog.Catalog) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result = NewFailure(terrors.New("SEM-0017", map[string]any{"Detail": fmt.Sprint(r)}))
		}
	}()

	switch node := stmt.(type) {
	case *ast.SelectStatement:
		return evalSelect(node, cat)
	case *ast.InsertStatement:
		return evalInsert(node, cat)
	case *ast.UpdateStatement:
		return evalUpdate(node, cat)
	case *ast.DeleteStatement:
		return evalDelete(node, cat)
	case *ast.CreateStatement:
		return evalCreate(node, cat)
	case *ast.DropStatement:
		return evalDrop(node, cat)
	case nil:
		return NewFailure(terrors.New("SEM-0014", map[string]any{"Statement": "<nil>"}))
	default:
		return NewFailure(terrors.New("SEM-0014", map[string]any{"Statement": fmt.Sprintf("%T", stmt)}))
	}
}

// ============================================================================
// Statements
// ============================================================================

func evalCreate(node *ast.CreateStatement, cat *catalog.Catalog) *Result {
	columns := make([]catalog.Column, 0, len(node.Columns))
	for _, def := range node.Columns {
		typ, ok := catalog.TypeFromToken(def.Type)
		if !ok {
			return NewFailure(terrors.New("SEM-0014", map[string]any{"Statement": "column type " + def.Type.String()}))
		}
		columns = append(columns, catalog.Column{Name: def.Name.Value, Type: typ})
	}

	if _, err := cat.CreateTable(node.Table.Value, columns, node.Title); err != nil {
		return NewFailure(err)
	}
	return NewAck(0)
}

func evalDrop(node *ast.DropStatement, cat *catalog.Catalog) *Result {
	if err := cat.DropTable(node.Table.Value); err != nil {
		return NewFailure(err)
	}
	return NewAck(0)
}

func evalInsert(node *ast.InsertStatement, cat *catalog.Catalog) *Result {
	table, ok := cat.GetTable(node.Table.Value)
	if !ok {
		return NewFailure(cat.UnknownTable(node.Table.Value))
	}

	// values have no row to read from
	values := make([]any, len(node.Values))
	for i, expr := range node.Values {
		v, err := evalExpr(expr, nil, nil)
		if err != nil {
			return NewFailure(err)
		}
		values[i] = v
	}

	if node.Columns == nil {
		if len(values) != len(table.Columns) {
			return NewFailure(terrors.New("SEM-0003", map[string]any{
				"Expected": len(table.Columns),
				"Got":      len(values),
			}))
		}
		if err := table.AddRow(values); err != nil {
			return NewFailure(err)
		}
		return NewAck(1)
	}

	indexes := make([]int, len(node.Columns))
	for i, col := range node.Columns {
		idx := table.ColumnIndex(col.Value)
		if idx == -1 {
			return NewFailure(unknownColumn(col.Value, table))
		}
		indexes[i] = idx
	}

	if len(indexes) != len(values) {
		return NewFailure(terrors.New("SEM-0004", map[string]any{
			"Columns": len(indexes),
			"Values":  len(values),
		}))
	}

	row := make([]any, len(table.Columns))
	for i, idx := range indexes {
		row[idx] = values[i]
	}
	if err := table.AddRow(row); err != nil {
		return NewFailure(err)
	}
	return NewAck(1)
}

func evalSelect(node *ast.SelectStatement, cat *catalog.Catalog) *Result {
	if len(node.Joins) > 0 {
		return NewFailure(terrors.New("SEM-0010", nil))
	}
	if len(node.Tables) > 1 {
		names := make([]string, len(node.Tables))
		for i, t := range node.Tables {
			names[i] = t.Value
		}
		return NewFailure(terrors.New("SEM-0016", map[string]any{"Tables": strings.Join(names, ", ")}))
	}

	table, ok := cat.GetTable(node.Tables[0].Value)
	if !ok {
		return NewFailure(cat.UnknownTable(node.Tables[0].Value))
	}

	var names []string
	var indexes []int
	for _, col := range node.Columns {
		if ident, ok := col.(*ast.Identifier); ok && ident.IsStar() {
			for i, c := range table.Columns {
				names = append(names, c.Name)
				indexes = append(indexes, i)
			}
			continue
		}

		name, err := projectedName(col)
		if err != nil {
			return NewFailure(err)
		}
		idx := table.ColumnIndex(name)
		if idx == -1 {
			return NewFailure(unknownColumn(name, table))
		}
		names = append(names, name)
		indexes = append(indexes, idx)
	}

	rows := [][]any{}
	for _, row := range table.Rows {
		keep, err := matches(node.Where, table, row)
		if err != nil {
			return NewFailure(err)
		}
		if !keep {
			continue
		}
		projected := make([]any, len(indexes))
		for i, idx := range indexes {
			projected[i] = row[idx]
		}
		rows = append(rows, projected)
	}

	return NewRows(names, rows)
}

// projectedName returns the column a SELECT list item refers to. A qualified
// name resolves by its column part; the qualifier is not checked.
func projectedName(expr ast.Expression) (string, error) {
	switch node := expr.(type) {
	case *ast.Identifier:
		return node.Value, nil
	case *ast.BinaryExpression:
		if node.Operator == lexer.DOT {
			if right, ok := node.Right.(*ast.Identifier); ok {
				return right.Value, nil
			}
		}
	}
	return "", terrors.New("SEM-0011", map[string]any{"Clause": "SELECT", "Expr": expr.String()})
}

// pendingUpdate is a validated change to one row.
type pendingUpdate struct {
	row    catalog.Row
	values []any
}

func evalUpdate(node *ast.UpdateStatement, cat *catalog.Catalog) *Result {
	table, ok := cat.GetTable(node.Table.Value)
	if !ok {
		return NewFailure(cat.UnknownTable(node.Table.Value))
	}

	indexes := make([]int, len(node.Set))
	constant := make([]bool, len(node.Set))
	constValues := make([]any, len(node.Set))
	for i, clause := range node.Set {
		idx := table.ColumnIndex(clause.Column.Value)
		if idx == -1 {
			return NewFailure(unknownColumn(clause.Column.Value, table))
		}
		indexes[i] = idx

		if !referencesColumns(clause.Value, table) {
			v, err := evalExpr(clause.Value, nil, nil)
			if err != nil {
				return NewFailure(err)
			}
			constant[i] = true
			constValues[i] = v
		}
	}

	// First pass: compute and validate everything. Nothing is written yet.
	var pending []pendingUpdate
	for _, row := range table.Rows {
		keep, err := matches(node.Where, table, row)
		if err != nil {
			return NewFailure(err)
		}
		if !keep {
			continue
		}

		values := make([]any, len(node.Set))
		for i, clause := range node.Set {
			v := constValues[i]
			if !constant[i] {
				v, err = evalExpr(clause.Value, table, row)
				if err != nil {
					return NewFailure(err)
				}
			}
			if err := table.CheckValue(indexes[i], v); err != nil {
				return NewFailure(err)
			}
			values[i] = v
		}
		pending = append(pending, pendingUpdate{row: row, values: values})
	}

	// Second pass: apply.
	for _, u := range pending {
		for i, idx := range indexes {
			u.row[idx] = u.values[i]
		}
	}

	return NewAck(len(pending))
}

func evalDelete(node *ast.DeleteStatement, cat *catalog.Catalog) *Result {
	table, ok := cat.GetTable(node.Table.Value)
	if !ok {
		return NewFailure(cat.UnknownTable(node.Table.Value))
	}

	kept := make([]catalog.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		remove, err := matches(node.Where, table, row)
		if err != nil {
			return NewFailure(err)
		}
		if !remove {
			kept = append(kept, row)
		}
	}

	removed := len(table.Rows) - len(kept)
	table.Rows = kept
	return NewAck(removed)
}

// matches reports whether row satisfies where. A missing clause matches every row.
func matches(where *ast.Condition, table *catalog.Table, row catalog.Row) (bool, error) {
	if where == nil {
		return true, nil
	}
	v, err := evalCond(where, table, row)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	return ok && b, nil
}

// referencesColumns reports whether expr reads any column of table.
func referencesColumns(expr ast.Expression, table *catalog.Table) bool {
	switch node := expr.(type) {
	case *ast.Identifier:
		return table.ColumnIndex(node.Value) != -1
	case *ast.BinaryExpression:
		return referencesColumns(node.Left, table) || referencesColumns(node.Right, table)
	case *ast.Condition:
		if node.Left != nil && referencesColumns(node.Left, table) {
			return true
		}
		return node.Right != nil && referencesColumns(node.Right, table)
	}
	return false
}

func unknownColumn(name string, table *catalog.Table) *terrors.TabulaError {
	return terrors.NewUnknownColumn(name, table.Name, table.ColumnNames())
}
