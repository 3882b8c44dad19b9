package server

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/tabula/tabula"
)

func (s *Server) buildEngine(cfg *config.Config) (*tabula.Engine, error) {
	return BuildEngine(cfg, s.stdout, s.stderr)
}

// BuildEngine creates an engine configured by cfg and runs the seed
// statements, then the seed files. The first failing statement aborts.
// Progress goes to stdout; with debug logging the engine logs to stderr.
func BuildEngine(cfg *config.Config, stdout, stderr io.Writer) (*tabula.Engine, error) {
	logInfo := func(format string, args ...any) {
		fmt.Fprintf(stdout, "[INFO] "+format+"\n", args...)
	}

	opts := []tabula.Option{tabula.WithTrailingWarnings(cfg.Engine.WarnTrailing)}
	if cfg.Engine.StrictDates {
		opts = append(opts, tabula.WithStrictDates())
	}
	if cfg.Logging.Level == "debug" {
		opts = append(opts, tabula.WithLogger(tabula.WriterLogger(stderr)))
	}
	engine := tabula.New(opts...)

	for i, stmt := range cfg.Seed {
		if err := runSeed(engine, stmt); err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	for _, path := range cfg.SeedFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading seed file: %w", err)
		}
		if err := runSeed(engine, string(data)); err != nil {
			return nil, fmt.Errorf("seed file %s: %w", path, err)
		}
		logInfo("loaded seed file %s (%s)", path, humanize.Bytes(uint64(len(data))))
	}

	if len(cfg.Seed) > 0 || len(cfg.SeedFiles) > 0 {
		tables, rows := engineSize(engine)
		logInfo("seeded %s table(s), %s row(s)", humanize.Comma(int64(tables)), humanize.Comma(int64(rows)))
	}
	return engine, nil
}

func runSeed(engine *tabula.Engine, script string) error {
	results := engine.ExecuteScript(script)
	if n := len(results); n > 0 && results[n-1].Failed() {
		err := results[n-1].Error
		return fmt.Errorf("statement %d: %s", n, strings.TrimSpace(err.String()))
	}
	return nil
}

func engineSize(engine *tabula.Engine) (tables, rows int) {
	engine.View(func(cat *tabula.Catalog) error {
		for _, t := range cat.Tables() {
			tables++
			rows += len(t.Rows)
		}
		return nil
	})
	return tables, rows
}
