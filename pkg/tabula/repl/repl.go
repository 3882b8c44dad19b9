// Package repl runs the interactive query shell.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/tabula/pkg/tabula/catalog"
	"github.com/sambeau/tabula/pkg/tabula/display"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/export"
	"github.com/sambeau/tabula/pkg/tabula/format"
	"github.com/sambeau/tabula/pkg/tabula/lint"
	"github.com/sambeau/tabula/pkg/tabula/parser"
	"github.com/sambeau/tabula/pkg/tabula/tabula"
)

const PROMPT = "tabula> "
const CONTINUATION_PROMPT = "     -> "

const LOGO = `
▀█▀ ▄▀█ █▄▄ █░█ █░░ ▄▀█
░█░ █▀█ █▄█ █▄█ █▄▄ █▀█`

// Options configures Start.
type Options struct {
	Version     string
	Prompt      string // defaults to PROMPT
	HistoryFile string // defaults to .tabula_history in the temp directory
	Printer     *display.Printer
}

// Session is the state shared by the prompt loop and the meta-commands.
type Session struct {
	engine  *tabula.Engine
	printer *display.Printer
	out     io.Writer
}

// NewSession creates a session writing to out.
func NewSession(engine *tabula.Engine, printer *display.Printer, out io.Writer) *Session {
	if printer == nil {
		printer = display.NewPrinter()
	}
	return &Session{engine: engine, printer: printer, out: out}
}

// Start runs the shell until Ctrl+D, "exit" or "quit".
func Start(engine *tabula.Engine, out io.Writer, opts Options) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	prompt := opts.Prompt
	if prompt == "" {
		prompt = PROMPT
	}
	historyFile := opts.HistoryFile
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".tabula_history")
	}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	session := NewSession(engine, opts.Printer, out)
	line.SetCompleter(func(input string) []string {
		return Complete(input, engine.Tables())
	})

	fmt.Fprintln(out, LOGO)
	fmt.Fprintln(out, "v", opts.Version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "End statements with ';'. Type ':help' for commands, Ctrl+D to quit")
	fmt.Fprintln(out, "")

	var buffer strings.Builder

	for {
		currentPrompt := prompt
		if buffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if buffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				buffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nBye")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if buffer.Len() == 0 {
			if trimmed == "exit" || trimmed == "quit" {
				fmt.Fprintln(out, "Bye")
				return
			}
			if strings.HasPrefix(trimmed, ":") {
				line.AppendHistory(trimmed)
				if quit := session.Command(trimmed); quit {
					return
				}
				continue
			}
			if trimmed == "" {
				continue
			}
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(input)

		// A blank line submits an unterminated statement
		query := buffer.String()
		if trimmed != "" && NeedsMoreInput(query) {
			continue
		}

		line.AppendHistory(query)
		session.Run(query)
		buffer.Reset()
	}
}

// Run executes query and prints its result.
func (s *Session) Run(query string) {
	if err := s.printer.Print(s.out, s.engine.Execute(query)); err != nil {
		fmt.Fprintf(s.out, "Error writing output: %v\n", err)
	}
}

// Command runs a meta-command and reports whether the shell should exit.
func (s *Session) Command(input string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?        Show this help")
		fmt.Fprintln(s.out, "  :tables              List tables")
		fmt.Fprintln(s.out, "  :schema              Describe every table")
		fmt.Fprintln(s.out, "  :csv <table>         Print a table as CSV")
		fmt.Fprintln(s.out, "  :check <query>       Look for mistakes without running the query")
		fmt.Fprintln(s.out, "  :format <query>      Pretty-print a query")
		fmt.Fprintln(s.out, "  :dump <dsn>          Copy every table to a SQLite, PostgreSQL or MySQL database")
		fmt.Fprintln(s.out, "  :clear               Drop every table")
		fmt.Fprintln(s.out, "  :quit, exit, quit    Leave the shell")

	case ":tables":
		tables := s.engine.Tables()
		if len(tables) == 0 {
			fmt.Fprintln(s.out, "(no tables)")
		}
		for _, name := range tables {
			fmt.Fprintln(s.out, "  "+name)
		}

	case ":schema":
		io.WriteString(s.out, s.engine.SchemaText())

	case ":csv":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: :csv <table>")
			break
		}
		err := s.engine.View(func(cat *catalog.Catalog) error {
			table, ok := cat.GetTable(arg)
			if !ok {
				return cat.UnknownTable(arg)
			}
			return export.TableCSV(s.out, table)
		})
		s.reportError(err)

	case ":check":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: :check <query>")
			break
		}
		var schema lint.Schema
		s.engine.View(func(cat *catalog.Catalog) error {
			schema = lint.SchemaFromCatalog(cat)
			return nil
		})
		issues := lint.Check(arg, schema)
		if len(issues) == 0 {
			fmt.Fprintln(s.out, "No issues found")
		}
		for _, issue := range issues {
			fmt.Fprintln(s.out, issue.String())
		}

	case ":format":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: :format <query>")
			break
		}
		stmt, _, err := parser.ParseFirst(arg)
		if err != nil {
			s.reportError(err)
			break
		}
		pretty, err := format.Pretty(stmt)
		if err != nil {
			s.reportError(err)
			break
		}
		fmt.Fprintln(s.out, pretty)

	case ":dump":
		if arg == "" {
			fmt.Fprintln(s.out, "Usage: :dump <dsn>")
			break
		}
		var stats export.Stats
		err := s.engine.View(func(cat *catalog.Catalog) error {
			var err error
			stats, err = export.ToDatabase(context.Background(), arg, cat, export.Options{Replace: true})
			return err
		})
		if err == nil {
			fmt.Fprintf(s.out, "Exported %d table(s), %d row(s)\n", stats.Tables, stats.Rows)
		}
		s.reportError(err)

	case ":clear":
		s.engine.Reset()
		fmt.Fprintln(s.out, "All tables dropped")

	case ":quit", ":q":
		fmt.Fprintln(s.out, "Bye")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return false
}

func (s *Session) reportError(err error) {
	if err == nil {
		return
	}
	var terr *terrors.TabulaError
	if errors.As(err, &terr) {
		fmt.Fprintln(s.out, terr.PrettyString())
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}
