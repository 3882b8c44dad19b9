package config

import "time"

// Config represents the complete Tabula configuration
type Config struct {
	BaseDir     string            `yaml:"-"` // Directory containing config file, for resolving relative paths
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Compression CompressionConfig `yaml:"compression"`
	Engine      EngineConfig      `yaml:"engine"`
	Seed        []string          `yaml:"seed"`       // Statements run against a fresh engine, in order
	SeedFiles   []string          `yaml:"seed_files"` // Files of ';'-terminated statements, run after seed
	Logging     LoggingConfig     `yaml:"logging"`
	REPL        REPLConfig        `yaml:"repl"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Dev            bool          `yaml:"-"`               // Set via CLI flag, not config
	MaxConnections int           `yaml:"max_connections"` // 0 = unlimited
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxQuerySize   string        `yaml:"max_query_size"` // Request body limit, e.g. "64KB"
}

// AuthConfig holds API key settings
type AuthConfig struct {
	Enabled bool           `yaml:"enabled"`  // Require a bearer API key on query endpoints
	APIKeys []SecretString `yaml:"api_keys"` // bcrypt hashes of accepted keys
}

// RateLimitConfig limits query endpoint requests per client
type RateLimitConfig struct {
	Requests int           `yaml:"requests"` // Requests allowed per window (0 = unlimited)
	Window   time.Duration `yaml:"window"`   // default: 1m
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// EngineConfig holds query engine settings
type EngineConfig struct {
	StrictDates  bool `yaml:"strict_dates"`  // DATE columns reject strings that are not dates
	WarnTrailing bool `yaml:"warn_trailing"` // Warn about input after the first statement (default: true)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// REPLConfig holds interactive shell settings
type REPLConfig struct {
	HistoryFile string `yaml:"history_file"` // default: .tabula_history in the temp directory
	Prompt      string `yaml:"prompt"`
	Style       string `yaml:"style"`     // Table borders: "single", "rounded" or "ascii"
	MaxWidth    int    `yaml:"max_width"` // Truncate cells wider than this (0 = no limit)
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxQuerySize: "64KB",
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
		},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   "default",
			MinSize: 1024,
		},
		Engine: EngineConfig{
			WarnTrailing: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		REPL: REPLConfig{
			Prompt: "tabula> ",
			Style:  "single",
		},
	}
}
