package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/netutil"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/tabula/tabula"
)

// Server serves one engine over HTTP.
type Server struct {
	config     *config.Config
	configPath string
	getenv     func(string) string
	stdout     io.Writer
	stderr     io.Writer
	server     *http.Server
	watcher    *Watcher
	markdown   goldmark.Markdown
	limiter    *rateLimiter

	mu     sync.RWMutex
	engine *tabula.Engine
}

// New creates a server and seeds its engine from the configuration.
// getenv resolves ${VAR} references when the config file is reloaded;
// nil means os.Getenv.
func New(cfg *config.Config, configPath string, getenv func(string) string, stdout, stderr io.Writer) (*Server, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	s := &Server{
		config:     cfg,
		configPath: configPath,
		getenv:     getenv,
		stdout:     stdout,
		stderr:     stderr,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}

	engine, err := s.buildEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("seeding engine: %w", err)
	}
	s.engine = engine

	if cfg.RateLimit.Requests > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	return s, nil
}

// Engine returns the engine currently serving requests.
func (s *Server) Engine() *tabula.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Config returns the configuration currently in effect.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Reload re-reads the config file and replaces the engine with a freshly
// seeded one. On error the running engine and config are kept.
func (s *Server) Reload() error {
	if s.configPath == "" {
		return fmt.Errorf("no config file to reload")
	}
	cfg, err := config.Load(s.configPath, s.getenv)
	if err != nil {
		return err
	}
	cfg.Server.Dev = s.Config().Server.Dev

	engine, err := s.buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("seeding engine: %w", err)
	}

	s.mu.Lock()
	s.config = cfg
	s.engine = engine
	s.mu.Unlock()
	return nil
}

// Handler returns the complete handler chain.
func (s *Server) Handler() http.Handler {
	cfg := s.Config()

	var handler http.Handler = s.routes()
	handler = newSecurityHeaders(handler, cfg.Server.Dev)
	handler = newCompressionHandler(handler, cfg.Compression)

	// Request logging unless level is error-only
	if cfg.Logging.Level != "error" && !cfg.Logging.Quiet {
		handler = newRequestLogger(handler, s.stdout, cfg.Logging.Format)
	} else {
		handler = withRequestID(handler)
	}
	return handler
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.Config()
	addr := s.listenAddr()

	if cfg.Server.Dev && s.configPath != "" {
		watcher, err := NewWatcher(s, s.configPath, s.stdout, s.stderr)
		if err != nil {
			s.logError("failed to create watcher: %v", err)
		} else {
			s.watcher = watcher
			if err := s.watcher.Start(ctx); err != nil {
				s.logError("failed to start watcher: %v", err)
			}
			defer s.watcher.Close()
		}
	}

	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if n := cfg.Server.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		mode := ""
		if cfg.Server.Dev {
			mode = " in development mode"
		}
		fmt.Fprintf(s.stdout, "Starting Tabula%s on http://%s\n", mode, ln.Addr())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(s.limiter.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.sweep()
		}
	}
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	cfg := s.Config()
	return net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
}

func (s *Server) logInfo(format string, args ...any) {
	fmt.Fprintf(s.stdout, "[INFO] "+format+"\n", args...)
}

func (s *Server) logWarn(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[WARN] "+format+"\n", args...)
}

func (s *Server) logError(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[ERROR] "+format+"\n", args...)
}
