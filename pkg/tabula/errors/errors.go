// Package errors provides structured error types for the tabula SQL engine.
//
// This package defines TabulaError, a unified error type that represents
// lexical, syntax and semantic (execution) errors with enough metadata for
// display, hinting and programmatic handling.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors by the stage that produced them.
type ErrorClass string

const (
	ClassLexical  ErrorClass = "lexical"  // Tokenizer errors
	ClassSyntax   ErrorClass = "syntax"   // Parser errors
	ClassSemantic ErrorClass = "semantic" // Execution errors
)

// Kind is the stable, inspectable error kind surfaced in failed results.
type Kind string

const (
	KindLexical             Kind = "LexicalError"
	KindSyntax              Kind = "SyntaxError"
	KindUnknownTable        Kind = "UnknownTable"
	KindUnknownColumn       Kind = "UnknownColumn"
	KindColumnCountMismatch Kind = "ColumnCountMismatch"
	KindTypeMismatch        Kind = "TypeMismatch"
	KindDivisionByZero      Kind = "DivisionByZero"
	KindUnsupportedOperator Kind = "UnsupportedOperator"
	KindDuplicateTable      Kind = "DuplicateTable"
	KindDuplicateColumn     Kind = "DuplicateColumn"
)

// TabulaError represents any error from tokenizing, parsing or executing a query.
type TabulaError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Kind    Kind           `json:"kind"`            // Error kind (e.g. "UnknownTable")
	Code    string         `json:"code"`            // Error code (e.g. "SEM-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 0-based column
	Data    map[string]any `json:"data,omitempty"`  // Template variables

	cause error // sentinel for errors.Is; not serialized
}

// Error implements the error interface.
func (e *TabulaError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *TabulaError) String() string {
	var sb strings.Builder

	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *TabulaError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLexical:
		sb.WriteString("Lexical error")
	case ClassSyntax:
		sb.WriteString("Syntax error")
	default:
		sb.WriteString("Execution error")
	}

	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *TabulaError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithPosition returns a copy of the error with line and column set.
func (e *TabulaError) WithPosition(line, column int) *TabulaError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// WithHints returns a copy of the error with extra hints appended.
func (e *TabulaError) WithHints(hints ...string) *TabulaError {
	copy := *e
	copy.Hints = append(append([]string{}, e.Hints...), hints...)
	return &copy
}

// WithCause returns a copy of the error that unwraps to cause.
func (e *TabulaError) WithCause(cause error) *TabulaError {
	copy := *e
	copy.cause = cause
	return &copy
}

// Unwrap returns the sentinel error set with WithCause, if any.
func (e *TabulaError) Unwrap() error {
	return e.cause
}

// IsSemantic reports whether the error was raised during execution.
func (e *TabulaError) IsSemantic() bool {
	return e.Class == ClassSemantic
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Kind     Kind       // Reported kind
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

const syntaxHint = "Check your SQL syntax. Common issues include missing commas between columns, unbalanced quotes, or incorrect keywords."

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Lexical errors (LEX-0xxx)
	// ========================================
	"LEX-0001": {
		Class:    ClassLexical,
		Kind:     KindLexical,
		Template: "illegal character '{{.Char}}'",
	},
	"LEX-0002": {
		Class:    ClassLexical,
		Kind:     KindLexical,
		Template: "unterminated string literal",
		Hints:    []string{"Close the string with a single quote: 'text'"},
	},
	"LEX-0003": {
		Class:    ClassLexical,
		Kind:     KindLexical,
		Template: "malformed number literal '{{.Literal}}'",
		Hints:    []string{"Write decimals with digits on both sides of the point, e.g. 1.5"},
	},
	"LEX-0004": {
		Class:    ClassLexical,
		Kind:     KindLexical,
		Template: "unterminated block comment",
		Hints:    []string{"Close the comment with */"},
	},

	// ========================================
	// Syntax errors (SYN-0xxx)
	// ========================================
	"SYN-0001": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "expected {{.Expected}}, got {{.Got}}",
		Hints:    []string{syntaxHint},
	},
	"SYN-0002": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "unexpected {{.Got}}",
		Hints:    []string{syntaxHint},
	},
	"SYN-0003": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "expected a statement (SELECT, INSERT, UPDATE, DELETE, CREATE or DROP), got {{.Got}}",
	},
	"SYN-0004": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "comparison operators cannot be chained: '{{.Literal}}'",
		Hints:    []string{"Combine comparisons with AND or OR: a < b AND b < c"},
	},
	"SYN-0005": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "expected a column type (INT, FLOAT, TEXT or DATE), got {{.Got}}",
	},
	"SYN-0006": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "empty input: no statement to parse",
	},
	"SYN-0007": {
		Class:    ClassSyntax,
		Kind:     KindSyntax,
		Template: "integer literal out of range: {{.Literal}}",
		Hints:    []string{"Integers must fit in 64 bits; write larger values as FLOAT, e.g. 10000000000000000000.0"},
	},

	// ========================================
	// Semantic errors (SEM-0xxx)
	// ========================================
	"SEM-0001": {
		Class:    ClassSemantic,
		Kind:     KindUnknownTable,
		Template: "table '{{.Table}}' does not exist",
	},
	"SEM-0002": {
		Class:    ClassSemantic,
		Kind:     KindUnknownColumn,
		Template: "column '{{.Column}}' not found in table '{{.Table}}'",
	},
	"SEM-0003": {
		Class:    ClassSemantic,
		Kind:     KindColumnCountMismatch,
		Template: "column count mismatch: expected {{.Expected}}, got {{.Got}}",
	},
	"SEM-0004": {
		Class:    ClassSemantic,
		Kind:     KindColumnCountMismatch,
		Template: "column and value count mismatch: {{.Columns}} columns, {{.Values}} values",
	},
	"SEM-0005": {
		Class:    ClassSemantic,
		Kind:     KindTypeMismatch,
		Template: "type mismatch for column '{{.Column}}': expected {{.Expected}}, got {{.Got}}",
	},
	"SEM-0006": {
		Class:    ClassSemantic,
		Kind:     KindTypeMismatch,
		Template: "type mismatch in comparison: {{.Left}} {{.Operator}} {{.Right}}",
		Hints:    []string{"Compare values of the same type, e.g. quote text values: name = '5'"},
	},
	"SEM-0007": {
		Class:    ClassSemantic,
		Kind:     KindTypeMismatch,
		Template: "invalid operand types for '{{.Operator}}': {{.Left}} and {{.Right}}",
		Hints:    []string{"Arithmetic needs INT or FLOAT operands"},
	},
	"SEM-0008": {
		Class:    ClassSemantic,
		Kind:     KindDivisionByZero,
		Template: "division by zero",
	},
	"SEM-0009": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "unsupported operator '{{.Operator}}'",
	},
	"SEM-0010": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "JOIN is not supported: only single-table queries can be executed",
		Hints:    []string{"Query each table separately"},
	},
	"SEM-0011": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "unsupported column reference in {{.Clause}}: {{.Expr}}",
	},
	"SEM-0012": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "invalid operands for '.': {{.Left}} and {{.Right}}",
	},
	"SEM-0013": {
		Class:    ClassSemantic,
		Kind:     KindDuplicateTable,
		Template: "table '{{.Table}}' already exists",
		Hints:    []string{"DROP TABLE {{.Table}} first, or choose another name"},
	},
	"SEM-0014": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "unsupported statement: {{.Statement}}",
	},
	"SEM-0015": {
		Class:    ClassSemantic,
		Kind:     KindDuplicateColumn,
		Template: "column '{{.Column}}' is defined more than once in table '{{.Table}}'",
	},
	"SEM-0016": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "queries over more than one table are not supported: {{.Tables}}",
		Hints:    []string{"Query each table separately"},
	},
	"SEM-0017": {
		Class:    ClassSemantic,
		Kind:     KindUnsupportedOperator,
		Template: "internal error: {{.Detail}}",
	},
	"SEM-0018": {
		Class:    ClassSemantic,
		Kind:     KindTypeMismatch,
		Template: "numeric overflow: {{.Left}} {{.Operator}} {{.Right}} does not fit in {{.Type}}",
		Hints:    []string{"INT results must stay within 64 bits and FLOAT results must be finite"},
	},
}

// New creates a TabulaError from the catalog.
// If the code is not found, creates a generic semantic error with the message.
func New(code string, data map[string]any) *TabulaError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &TabulaError{
			Class:   ClassSemantic,
			Kind:    KindUnsupportedOperator,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &TabulaError{
		Class:   def.Class,
		Kind:    def.Kind,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a TabulaError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *TabulaError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FuzzyMatch represents a fuzzy match result with its distance.
type FuzzyMatch struct {
	Value    string
	Distance int
}

// matchThreshold scales the allowed edit distance with the input length.
// Short words (1-3): max 1 edit, medium (4-6): 2, longer: 3.
func matchThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
// Comparison is case-insensitive, so an exact match in another case is not suggested.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= 0 || bestDistance > matchThreshold(input) {
		return ""
	}

	return bestMatch
}

// FindTopMatches returns up to n candidates within the threshold, closest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	inputLower := strings.ToLower(input)

	var matches []FuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, FuzzyMatch{Value: candidate, Distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	threshold := matchThreshold(input)
	var result []string
	for i := 0; i < len(matches) && len(result) < n; i++ {
		if matches[i].Distance <= threshold {
			result = append(result, matches[i].Value)
		}
	}

	return result
}

// NewUnknownTable creates an unknown table error with hints listing what exists.
func NewUnknownTable(name string, available []string) *TabulaError {
	err := New("SEM-0001", map[string]any{"Table": name})

	if suggestion := FindClosestMatch(name, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	if len(available) > 0 {
		err.Hints = append(err.Hints, "Available tables: "+strings.Join(available, ", "))
	} else {
		err.Hints = append(err.Hints, "No tables are defined yet. Use CREATE TABLE first.")
	}

	return err
}

// NewUnknownColumn creates an unknown column error with a "Did you mean?" hint.
func NewUnknownColumn(column, table string, available []string) *TabulaError {
	err := New("SEM-0002", map[string]any{"Column": column, "Table": table})

	if suggestion := FindClosestMatch(column, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	} else if len(available) > 0 {
		err.Hints = append(err.Hints, "Columns of "+table+": "+strings.Join(available, ", "))
	}

	return err
}

// SQLKeywords is the reserved word list used for typo suggestions.
var SQLKeywords = []string{
	"SELECT", "FROM", "WHERE", "INSERT", "INTO", "VALUES", "UPDATE", "SET",
	"DELETE", "CREATE", "TABLE", "DROP", "JOIN", "ON", "AND", "OR", "NOT",
	"NULL", "INT", "TEXT", "FLOAT", "DATE",
}
