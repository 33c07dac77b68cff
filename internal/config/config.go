// Package config loads server configuration from a TOML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the server's settings.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// LogPretty enables human-readable console output.
	LogPretty bool `toml:"log_pretty"`
	// IndexPath is the sqlite file holding the persistent search index.
	IndexPath string `toml:"index_path"`
	// SearchLimit is the default result cap for search queries.
	SearchLimit int `toml:"search_limit"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		LogLevel:    "info",
		IndexPath:   filepath.Join(configDir(), "index.db"),
		SearchLimit: 10,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".rustdoc-mcp")
}

// Load reads the TOML file at path (DefaultPath when path is empty), then
// applies RUSTDOC_MCP_* environment overrides. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RUSTDOC_MCP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RUSTDOC_MCP_LOG_PRETTY"); v != "" {
		if pretty, err := strconv.ParseBool(v); err == nil {
			cfg.LogPretty = pretty
		}
	}
	if v := os.Getenv("RUSTDOC_MCP_INDEX_PATH"); v != "" {
		cfg.IndexPath = v
	}
	if v := os.Getenv("RUSTDOC_MCP_SEARCH_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			cfg.SearchLimit = limit
		}
	}
}
