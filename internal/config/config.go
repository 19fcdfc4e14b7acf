package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "cadastro.yaml"

// Config holds all cadastro configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP server serving the registration form
	Server ServerConfig `yaml:"server"`

	// User database
	Database DatabaseConfig `yaml:"database"`

	// Headless browser used by the smoke test
	Browser BrowserConfig `yaml:"browser"`

	// Smoke test target
	Smoke SmokeConfig `yaml:"smoke"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig configures the SQLite user store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SmokeConfig configures the registration smoke run.
type SmokeConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cadastro",
		Version: "0.3.0",

		Server: ServerConfig{
			Addr:            "127.0.0.1:8000",
			ReadTimeout:     "10s",
			WriteTimeout:    "10s",
			ShutdownTimeout: "5s",
		},

		Database: DatabaseConfig{
			Path: "data/dados.db",
		},

		Browser: BrowserConfig{
			Headless:            true,
			ViewportWidth:       1280,
			ViewportHeight:      800,
			NavigationTimeoutMs: 30000,
			ActionTimeoutMs:     10000,
		},

		Smoke: SmokeConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: "60s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("CADASTRO_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("CADASTRO_DB"); path != "" {
		c.Database.Path = path
	}
	if u := os.Getenv("CADASTRO_BASE_URL"); u != "" {
		c.Smoke.BaseURL = strings.TrimRight(u, "/")
	}
	if raw := os.Getenv("CADASTRO_HEADLESS"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			c.Browser.Headless = v
		}
	}
	if u := os.Getenv("CADASTRO_CHROME_URL"); u != "" {
		c.Browser.DebuggerURL = u
	}
	if lvl := os.Getenv("CADASTRO_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// GetSmokeTimeout returns the overall smoke run timeout.
func (c *Config) GetSmokeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Smoke.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("invalid server addr %q: %w", c.Server.Addr, err)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path not configured (set database.path or CADASTRO_DB)")
	}

	u, err := url.Parse(c.Smoke.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid smoke base_url %q: %w", c.Smoke.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid smoke base_url %q: scheme must be http or https", c.Smoke.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid smoke base_url %q: missing host", c.Smoke.BaseURL)
	}

	if !isValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	return nil
}
