// Package export writes query results and whole catalogs to other formats:
// CSV files and SQL databases (SQLite, PostgreSQL and MySQL).
package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/sambeau/tabula/pkg/tabula/catalog"
)

// WriteCSV writes a header line and one line per row. Every field is
// double-quoted with embedded quotes doubled; NULL becomes an empty field.
func WriteCSV(w io.Writer, columns []string, rows [][]any) error {
	bw := bufio.NewWriter(w)

	fields := make([]string, len(columns))
	for i, col := range columns {
		fields[i] = quoteCSV(col)
	}
	if err := writeCSVLine(bw, fields); err != nil {
		return err
	}

	for _, row := range rows {
		fields = fields[:0]
		for _, v := range row {
			if v == nil {
				fields = append(fields, `""`)
				continue
			}
			fields = append(fields, quoteCSV(catalog.FormatValue(v)))
		}
		if err := writeCSVLine(bw, fields); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// TableCSV writes every row of table as CSV.
func TableCSV(w io.Writer, table *catalog.Table) error {
	rows := make([][]any, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = row
	}
	return WriteCSV(w, table.ColumnNames(), rows)
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeCSVLine(w *bufio.Writer, fields []string) error {
	if _, err := w.WriteString(strings.Join(fields, ",")); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
