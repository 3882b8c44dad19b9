// Package tabula is the public API for embedding the query engine.
//
// The package-level functions work on a caller-owned catalog and do no
// locking. Engine bundles a catalog with a mutex and a Logger so that a
// server and a REPL can share one database.
package tabula

import (
	"fmt"
	"sync"

	"github.com/sambeau/tabula/pkg/tabula/catalog"
	"github.com/sambeau/tabula/pkg/tabula/evaluator"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
	"github.com/sambeau/tabula/pkg/tabula/parser"
)

// Result is the outcome of one statement.
type Result = evaluator.Result

// Catalog holds the tables of one database.
type Catalog = catalog.Catalog

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...catalog.Option) *Catalog {
	return catalog.New(opts...)
}

// Execute parses the first statement of query and runs it against cat.
// Input after the statement (and one optional semicolon) is ignored with a
// warning on the result. Lexical, syntax and execution problems are all
// reported as failed results.
func Execute(query string, cat *Catalog) *Result {
	return execute(query, cat, nil)
}

// Tokenize returns the tokens of query without the trailing EOF.
func Tokenize(query string) ([]lexer.Token, error) {
	return lexer.Tokenize(query)
}

// ExecuteScript runs every statement of script in order, each optionally
// terminated by a semicolon, and returns one result per statement run.
// Execution stops after the first failed statement.
func ExecuteScript(script string, cat *Catalog) []*Result {
	var results []*Result
	p := parser.New(lexer.New(script))

	for p.CurToken().Type != lexer.EOF {
		stmt := p.ParseStatement()
		if err := p.Err(); err != nil {
			return append(results, evaluator.NewFailure(err))
		}
		result := evaluator.Execute(stmt, cat)
		results = append(results, result)
		if result.Failed() {
			return results
		}
		p.SkipSemicolon()
	}
	return results
}

func execute(query string, cat *Catalog, logger Logger) *Result {
	stmt, extra, err := parser.ParseFirst(query)
	if err != nil {
		return evaluator.NewFailure(err)
	}

	var warning string
	if extra != nil {
		warning = TrailingWarning(*extra)
		if logger != nil {
			logger.LogLine(warning)
		}
	}

	result := evaluator.Execute(stmt, cat)
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	return result
}

// TrailingWarning is the message reported when tokens follow the first
// statement. tok is the first ignored token.
func TrailingWarning(tok lexer.Token) string {
	return fmt.Sprintf("Warning: Ignoring extra tokens after the first statement starting at line %d, column %d",
		tok.Line, tok.Column)
}

// ============================================================================
// Engine
// ============================================================================

// Engine is a catalog guarded by a mutex. Every method is safe for
// concurrent use; statements run one at a time.
type Engine struct {
	mu           sync.Mutex
	catalog      *Catalog
	catalogOpts  []catalog.Option
	logger       Logger
	warnTrailing bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for warnings and failures. The default is NullLogger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStrictDates makes DATE columns reject strings that do not parse as dates.
func WithStrictDates() Option {
	return func(e *Engine) {
		e.catalogOpts = append(e.catalogOpts, catalog.WithStrictDates())
	}
}

// WithTrailingWarnings controls whether ignored trailing input is logged.
// The warning is always attached to the result.
func WithTrailingWarnings(enabled bool) Option {
	return func(e *Engine) {
		e.warnTrailing = enabled
	}
}

// New creates an engine with an empty catalog.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:       NullLogger(),
		warnTrailing: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.catalog = catalog.New(e.catalogOpts...)
	return e
}

// Execute runs the first statement of query.
func (e *Engine) Execute(query string) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var logger Logger
	if e.warnTrailing {
		logger = e.logger
	}
	result := execute(query, e.catalog, logger)
	if result.Failed() {
		e.logger.LogLine("[DEBUG]", result.Error.Code, result.Error.Message)
	}
	return result
}

// ExecuteScript runs every statement of script. See the package-level
// ExecuteScript.
func (e *Engine) ExecuteScript(script string) []*Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := ExecuteScript(script, e.catalog)
	if n := len(results); n > 0 && results[n-1].Failed() {
		err := results[n-1].Error
		e.logger.LogLine("[DEBUG]", fmt.Sprintf("statement %d:", n), err.Code, err.Message)
	}
	return results
}

// Schema returns the column layout of every table keyed by display title.
func (e *Engine) Schema() map[string][]ColumnInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GetSchema(e.catalog)
}

// SchemaText returns the plain-text schema report.
func (e *Engine) SchemaText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GetSchemaText(e.catalog)
}

// SchemaMarkdown returns the schema report as markdown.
func (e *Engine) SchemaMarkdown() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GetSchemaMarkdown(e.catalog)
}

// Tables returns the table names in creation order.
func (e *Engine) Tables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.TableNames()
}

// Reset drops every table.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog.Reset()
}

// View calls fn with the catalog while holding the engine lock. fn must not
// keep references to tables or rows after it returns.
func (e *Engine) View(fn func(cat *Catalog) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.catalog)
}
