package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/server"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, kept apart from main so tests can call it
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("tabula", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		devMode     = flags.Bool("dev", false, "Development mode (reload on config and seed file changes)")
		host        = flags.String("host", "", "Override listen host")
		port        = flags.Int("port", 0, "Override listen port")
		checkOnly   = flags.Bool("check", false, "Load and seed, then exit without serving")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "tabula version %s\n", Version)
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configFile, err := config.LoadOrDefaults(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if *devMode {
		cfg.Server.Dev = true
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logOut, closeLog, err := openLogOutput(cfg.Logging.Output, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "[WARN] %s\n", warning)
	}
	if configFile == "" {
		fmt.Fprintf(stderr, "[INFO] no config file found, using defaults\n")
	}

	srv, err := server.New(cfg, configFile, getenv, logOut, stderr)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if *checkOnly {
		fmt.Fprintf(stdout, "OK: %d table(s)\n", len(srv.Engine().Tables()))
		return nil
	}

	return srv.Run(ctx)
}

// openLogOutput resolves logging.output: "stdout", "stderr" or a file that
// is appended to.
func openLogOutput(output string, stdout, stderr io.Writer) (io.Writer, func(), error) {
	switch output {
	case "", "stderr":
		return stderr, func() {}, nil
	case "stdout":
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `tabula - An in-memory SQL server

Usage:
  tabula [options]

Options:
  --config PATH    Path to config file (default: auto-detect)
  --dev            Development mode (reload on config and seed file changes)
  --host HOST      Override listen host
  --port PORT      Override listen port
  --check          Load config and seed data, then exit
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. TABULA_CONFIG environment variable
  3. ./tabula.yaml
  4. ~/.config/tabula/tabula.yaml
  5. built-in defaults

Examples:
  tabula                        Start with auto-detected config
  tabula --dev                  Reload when tabula.yaml or seed files change
  tabula --config app.yaml      Use specific config file
  tabula --port 3000            Listen on port 3000
  tabula --check                Validate config and seeds

`)
}
