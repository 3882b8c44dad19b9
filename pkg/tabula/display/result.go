package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sambeau/tabula/pkg/tabula/catalog"
	"github.com/sambeau/tabula/pkg/tabula/evaluator"
)

// Printer writes results to a terminal.
type Printer struct {
	Box      *Box
	NullText string
}

// NewPrinter creates a Printer with default settings.
func NewPrinter() *Printer {
	return &Printer{Box: NewBox(), NullText: "NULL"}
}

// Print writes r to w. Row sets become a table followed by a row count,
// acknowledgements a "Query OK" line and failures the error with its hints.
// Warnings follow on their own lines.
func (p *Printer) Print(w io.Writer, r *evaluator.Result) error {
	var out string
	switch r.Kind {
	case evaluator.ResultRows:
		out = p.Rows(r.Columns, r.Rows)
	case evaluator.ResultAck:
		out = fmt.Sprintf("Query OK, %s affected\n", countRows(r.RowsAffected))
	case evaluator.ResultFailure:
		out = r.Error.PrettyString() + "\n"
	}

	for _, warning := range r.Warnings {
		out += warning + "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}

// Rows renders a row set and its row count.
func (p *Printer) Rows(columns []string, rows [][]any) string {
	if len(rows) == 0 {
		return "Empty set\n"
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[i][j] = p.NullText
				continue
			}
			cells[i][j] = catalog.FormatValue(v)
		}
	}
	table := p.Box.Render(columns, cells, numericAligns(len(columns), rows))
	return table + countRows(len(rows)) + " in set\n"
}

// numericAligns right-aligns columns whose non-NULL cells are all numbers.
func numericAligns(numCols int, rows [][]any) []Align {
	aligns := make([]Align, numCols)
	for i := range aligns {
		numeric, seen := true, false
		for _, row := range rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			seen = true
			switch row[i].(type) {
			case int64, float64:
			default:
				numeric = false
			}
		}
		if numeric && seen {
			aligns[i] = AlignRight
		}
	}
	return aligns
}

func countRows(n int) string {
	if n == 1 {
		return "1 row"
	}
	return humanize.Comma(int64(n)) + " rows"
}

// Plain renders rows as tab-separated lines with a header, for piped output.
func Plain(columns []string, rows [][]any) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(columns, "\t"))
	sb.WriteString("\n")
	for _, row := range rows {
		for j, v := range row {
			if j > 0 {
				sb.WriteString("\t")
			}
			sb.WriteString(catalog.FormatValue(v))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
