package tabula

import (
	"fmt"
	"strings"
)

// ColumnInfo describes one column in a schema listing.
type ColumnInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

const emptySchema = "Database is empty. No tables defined."

// GetSchema returns the columns of every table keyed by the table's display
// title. Tables sharing a title collapse to the one created last.
func GetSchema(cat *Catalog) map[string][]ColumnInfo {
	schema := make(map[string][]ColumnInfo, cat.Len())
	for _, table := range cat.Tables() {
		columns := make([]ColumnInfo, len(table.Columns))
		for i, col := range table.Columns {
			columns[i] = ColumnInfo{Name: col.Name, Type: col.Type.String(), Index: i}
		}
		schema[table.Title] = columns
	}
	return schema
}

// GetSchemaText returns a fixed-width report of every table's columns and
// row count, in creation order.
func GetSchemaText(cat *Catalog) string {
	if cat.Len() == 0 {
		return emptySchema
	}

	var b strings.Builder
	b.WriteString("Database Schema:\n")
	b.WriteString("================\n\n")

	for _, table := range cat.Tables() {
		heading := fmt.Sprintf("Table: %s (%s)", table.Title, table.Name)
		b.WriteString(heading + "\n")
		b.WriteString(strings.Repeat("-", len(heading)) + "\n")

		if len(table.Columns) == 0 {
			b.WriteString("  No columns defined.\n\n")
			continue
		}

		fmt.Fprintf(&b, "%-6s | %-15s | %-10s\n", "Index", "Column Name", "Type")
		fmt.Fprintf(&b, "%s-+-%s-+-%s\n", strings.Repeat("-", 6), strings.Repeat("-", 15), strings.Repeat("-", 10))
		for i, col := range table.Columns {
			fmt.Fprintf(&b, "%-6d | %-15s | %-10s\n", i, col.Name, col.Type)
		}

		fmt.Fprintf(&b, "\nTotal rows: %d\n\n", len(table.Rows))
	}

	return b.String()
}

// GetSchemaMarkdown returns the schema report as markdown with one GFM table
// per database table.
func GetSchemaMarkdown(cat *Catalog) string {
	if cat.Len() == 0 {
		return emptySchema + "\n"
	}

	var b strings.Builder
	b.WriteString("# Database Schema\n")

	for _, table := range cat.Tables() {
		fmt.Fprintf(&b, "\n## %s (`%s`)\n\n", escapeMarkdown(table.Title), table.Name)
		b.WriteString("| Index | Column Name | Type |\n")
		b.WriteString("|------:|-------------|------|\n")
		for i, col := range table.Columns {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i, escapeMarkdown(col.Name), col.Type)
		}
		fmt.Fprintf(&b, "\nTotal rows: %d\n", len(table.Rows))
	}

	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", "&lt;",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
