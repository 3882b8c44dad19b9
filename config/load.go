package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned by LoadWithPath when no path was given and no
// file exists in the default locations.
var ErrNoConfig = fmt.Errorf("no config file found (tried TABULA_CONFIG, tabula.yaml, ~/.config/tabula/tabula.yaml)")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadOrDefaults is Load, except that a missing default config yields
// Defaults() rather than an error. An explicit path must exist.
func LoadOrDefaults(configPath string, getenv func(string) string) (*Config, string, error) {
	cfg, path, err := LoadWithPath(configPath, getenv)
	if err == ErrNoConfig {
		return Defaults(), "", nil
	}
	return cfg, path, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, getenv)
	if err != nil {
		return nil, "", err
	}
	cfg.resolvePaths(filepath.Dir(absPath))

	return cfg, absPath, nil
}

// Parse interpolates the environment into data, decodes it over Defaults()
// and validates the result. Relative paths are left as written.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePaths makes file paths relative to the config file's directory.
func (cfg *Config) resolvePaths(baseDir string) {
	cfg.BaseDir = baseDir

	for i, file := range cfg.SeedFiles {
		if !filepath.IsAbs(file) {
			cfg.SeedFiles[i] = filepath.Join(baseDir, file)
		}
	}
	if cfg.REPL.HistoryFile != "" && !filepath.IsAbs(cfg.REPL.HistoryFile) {
		cfg.REPL.HistoryFile = filepath.Join(baseDir, cfg.REPL.HistoryFile)
	}
	if out := cfg.Logging.Output; out != "" && out != "stderr" && out != "stdout" && !filepath.IsAbs(out) {
		cfg.Logging.Output = filepath.Join(baseDir, out)
	}
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}
	if cfg.Server.MaxConnections < 0 {
		errs = append(errs, fmt.Sprintf("invalid max_connections: %d (must be 0 or more)", cfg.Server.MaxConnections))
	}
	if _, err := ParseSize(cfg.Server.MaxQuerySize); err != nil {
		errs = append(errs, "server.max_query_size: "+err.Error())
	}

	if cfg.RateLimit.Requests < 0 {
		errs = append(errs, fmt.Sprintf("invalid rate_limit.requests: %d (must be 0 or more)", cfg.RateLimit.Requests))
	}
	if cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window <= 0 {
		errs = append(errs, "rate_limit.window: must be positive when requests is set")
	}

	validCompression := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if !validCompression[cfg.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Compression.Level))
	}

	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		errs = append(errs, "auth: enabled but no api_keys configured")
	}
	for i, key := range cfg.Auth.APIKeys {
		if !strings.HasPrefix(key.Value(), "$2") {
			errs = append(errs, fmt.Sprintf("auth.api_keys[%d]: not a bcrypt hash (use 'tab hash-key')", i))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	validStyles := map[string]bool{"single": true, "rounded": true, "ascii": true}
	if !validStyles[cfg.REPL.Style] {
		errs = append(errs, fmt.Sprintf("invalid repl style: %s (must be single, rounded, or ascii)", cfg.REPL.Style))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if !cfg.Auth.Enabled && !cfg.Server.Dev && cfg.Server.Host != "localhost" && cfg.Server.Host != "127.0.0.1" {
		warnings = append(warnings, fmt.Sprintf("auth disabled while listening on %q - anyone who can reach the server can change its tables", cfg.Server.Host))
	}
	if !cfg.Auth.Enabled && len(cfg.Auth.APIKeys) > 0 {
		warnings = append(warnings, "auth.api_keys configured but auth.enabled is false - keys are ignored")
	}
	for _, file := range cfg.SeedFiles {
		if _, err := os.Stat(file); err != nil {
			warnings = append(warnings, fmt.Sprintf("seed file not found: %s", file))
		}
	}

	return warnings
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > TABULA_CONFIG env > ./tabula.yaml > ~/.config/tabula/tabula.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("TABULA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("TABULA_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("tabula.yaml"); err == nil {
		return "tabula.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "tabula", "tabula.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", ErrNoConfig
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// ParseSize parses a size string like "64KB" or "1MB" to bytes.
// Supports: B, KB, MB, GB (case insensitive). Returns 0 for empty string.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	s = strings.TrimSpace(strings.ToUpper(s))

	// Longest suffix first so "B" does not match before "MB"
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	numStr, mult := s, int64(1)
	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr, mult = strings.TrimSpace(strings.TrimSuffix(s, sf.suffix)), sf.mult
			break
		}
	}

	var num int64
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil || num < 0 {
		return 0, fmt.Errorf("invalid size: %s (use B, KB, MB, or GB suffix)", s)
	}
	return num * mult, nil
}
