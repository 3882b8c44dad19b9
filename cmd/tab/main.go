package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/tabula/display"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/evaluator"
	"github.com/sambeau/tabula/pkg/tabula/repl"
	"github.com/sambeau/tabula/pkg/tabula/tabula"
	"github.com/sambeau/tabula/server"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0-dev"

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1 // a statement failed or a check found errors
	exitUsage   = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

// cli carries the streams and settings shared by every mode.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	cfg    *config.Config
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, getenv: getenv}

	// Subcommands come before flag parsing
	if len(args) > 0 {
		switch args[0] {
		case "exec":
			return c.execCommand(args[1:])
		case "check":
			return c.checkCommand(args[1:])
		case "fmt":
			return c.fmtCommand(args[1:])
		case "tokens":
			return c.tokensCommand(args[1:])
		case "export":
			return c.exportCommand(ctx, args[1:])
		case "hash-key":
			return c.hashKeyCommand(args[1:])
		}
	}

	flags := flag.NewFlagSet("tab", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printHelp(stderr) }

	var (
		configPath  = flags.String("config", "", "Path to config file")
		eval        = flags.String("e", "", "Run statements and exit")
		style       = flags.String("style", "", "Table borders: single, rounded or ascii")
		showVersion = flags.Bool("version", false, "Show version information")
		showHelp    = flags.Bool("help", false, "Show help message")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *showHelp {
		printHelp(stdout)
		return exitOK
	}
	if *showVersion {
		fmt.Fprintf(stdout, "tab version %s\n", Version)
		return exitOK
	}

	if err := c.loadConfig(*configPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if *style != "" {
		c.cfg.REPL.Style = *style
	}

	engine, err := server.BuildEngine(c.cfg, io.Discard, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	switch {
	case *eval != "":
		return c.runScript(engine, *eval)
	case flags.NArg() > 0:
		return c.runFiles(engine, flags.Args())
	case isTerminal(stdin):
		repl.Start(engine, stdout, repl.Options{
			Version:     Version,
			Prompt:      c.cfg.REPL.Prompt,
			HistoryFile: c.cfg.REPL.HistoryFile,
			Printer:     c.printer(),
		})
		return exitOK
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading input: %v\n", err)
			return exitFailure
		}
		return c.runScript(engine, string(data))
	}
}

// loadConfig loads the config file, or defaults when there is none.
func (c *cli) loadConfig(path string) error {
	cfg, _, err := config.LoadOrDefaults(path, c.getenv)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) printer() *display.Printer {
	p := display.NewPrinter()
	p.Box.Style = display.StyleByName(c.cfg.REPL.Style)
	p.Box.MaxWidth = c.cfg.REPL.MaxWidth
	return p
}

// execCommand implements 'tab exec <query>...'
func (c *cli) execCommand(args []string) int {
	flags := flag.NewFlagSet("exec", flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	configPath := flags.String("config", "", "Path to config file")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(c.stderr, "Usage: tab exec [--config PATH] <query>...")
		return exitUsage
	}

	if err := c.loadConfig(*configPath); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitUsage
	}
	engine, err := server.BuildEngine(c.cfg, io.Discard, c.stderr)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return exitFailure
	}
	return c.runScript(engine, strings.Join(flags.Args(), " "))
}

func (c *cli) runFiles(engine *tabula.Engine, files []string) int {
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitFailure
		}
		if code := c.runScript(engine, string(data)); code != exitOK {
			fmt.Fprintf(c.stderr, "in %s\n", file)
			return code
		}
	}
	return exitOK
}

// runScript runs every statement of script, stopping at the first failure.
// On a terminal results are drawn as tables; otherwise row sets are written
// as tab-separated text and everything else goes to stderr.
func (c *cli) runScript(engine *tabula.Engine, script string) int {
	tty := isTerminal(c.stdout)
	var printer *display.Printer
	if tty {
		printer = c.printer()
	}

	failed := false
	for _, result := range engine.ExecuteScript(script) {
		failed = failed || result.Failed()
		if tty {
			printer.Print(c.stdout, result)
			continue
		}

		switch result.Kind {
		case evaluator.ResultRows:
			io.WriteString(c.stdout, display.Plain(result.Columns, result.Rows))
		case evaluator.ResultFailure:
			fmt.Fprintln(c.stderr, result.Error.PrettyString())
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(c.stderr, warning)
		}
	}

	if failed {
		return exitFailure
	}
	return exitOK
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printError prints err, with position and hints when it is a query error.
func printError(w io.Writer, err error) {
	var terr *terrors.TabulaError
	if errors.As(err, &terr) {
		fmt.Fprintln(w, terr.PrettyString())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `tab - Tabula SQL shell version %s

Usage:
  tab [options]                  Start the interactive shell
  tab [options] <file>...        Run ';'-separated statements from files
  tab [options] -e "<query>"     Run statements and exit
  command | tab [options]        Run statements read from stdin
  tab <command> [arguments]

Commands:
  exec <query>...                Run statements given as arguments
  check [-schema FILE] [file]... Lint queries without running them
  fmt [-w] [-mode MODE] <file>.. Format SQL files
  tokens <query>                 Show the tokens of a query
  export -to DSN <file>...       Run files, then copy the tables to a database
  hash-key [key]                 Hash an API key for the server config

Options:
  --config PATH    Config file (seed data, REPL settings)
  --style STYLE    Table borders: single, rounded or ascii
  -e QUERY         Run statements and exit
  --version        Show version information
  --help           Show this help message

Examples:
  tab                                    Start the shell
  tab schema.sql queries.sql             Run two files against one database
  tab -e "CREATE TABLE t (a INT); SELECT * FROM t;"
  echo "SELECT * FROM users;" | tab --config tabula.yaml
  tab check -schema schema.sql report.sql
  tab fmt -w report.sql
  tab export -to postgres://localhost/shop schema.sql data.sql
  tab hash-key

`, Version)
}
