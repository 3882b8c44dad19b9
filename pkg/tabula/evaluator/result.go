package evaluator

import (
	"fmt"

	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
)

// ResultKind tags the variant held by a Result.
type ResultKind int

const (
	ResultRows ResultKind = iota
	ResultAck
	ResultFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultRows:
		return "rows"
	case ResultAck:
		return "ack"
	case ResultFailure:
		return "failure"
	}
	return "unknown"
}

// Result is the outcome of executing one statement.
//
//   - ResultRows: Columns and Rows are set (SELECT).
//   - ResultAck: RowsAffected is set (INSERT, UPDATE, DELETE, CREATE, DROP).
//   - ResultFailure: Error is set.
//
// Warnings are non-fatal notes attached by the caller, e.g. ignored trailing input.
type Result struct {
	Kind         ResultKind
	Columns      []string
	Rows         [][]any
	RowsAffected int
	Error        *terrors.TabulaError
	Warnings     []string
}

// NewRows builds a row set result.
func NewRows(columns []string, rows [][]any) *Result {
	if rows == nil {
		rows = [][]any{}
	}
	return &Result{Kind: ResultRows, Columns: columns, Rows: rows}
}

// NewAck builds an acknowledgement result.
func NewAck(rowsAffected int) *Result {
	return &Result{Kind: ResultAck, RowsAffected: rowsAffected}
}

// NewFailure builds a failed result from err. Errors that are not
// TabulaErrors are reported as unsupported operations.
func NewFailure(err error) *Result {
	terr, ok := err.(*terrors.TabulaError)
	if !ok {
		terr = terrors.New("SEM-0014", map[string]any{"Statement": err.Error()})
	}
	return &Result{Kind: ResultFailure, Error: terr}
}

// Failed reports whether the statement failed.
func (r *Result) Failed() bool {
	return r.Kind == ResultFailure
}

// ErrorKind returns the failure kind, or "" for successful results.
func (r *Result) ErrorKind() terrors.Kind {
	if r.Error == nil {
		return ""
	}
	return r.Error.Kind
}

// Message returns a one-line summary: the error message for failures,
// "N row(s) affected" for acks and "N row(s)" for row sets.
func (r *Result) Message() string {
	switch r.Kind {
	case ResultFailure:
		return r.Error.Message
	case ResultAck:
		return fmt.Sprintf("%d row(s) affected", r.RowsAffected)
	default:
		return fmt.Sprintf("%d row(s)", len(r.Rows))
	}
}
