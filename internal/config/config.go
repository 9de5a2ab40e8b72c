// ABOUTME: Configuration loading and parsing for darcy-bridge
// ABOUTME: Supports YAML files with environment variable expansion plus an env-only fallback

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding fields are unset.
const (
	DefaultHTTPAddr       = "127.0.0.1:8000"
	DefaultTimeout        = 10 * time.Second
	DefaultTrackerEntries = 200
	DefaultRatePerMinute  = 60
)

// Config represents the complete darcy-bridge configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	N8N     N8NConfig     `yaml:"n8n"`
	Tracker TrackerConfig `yaml:"tracker"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the inbound HTTP listener configuration.
type ServerConfig struct {
	HTTPAddr      string `yaml:"http_addr"`
	RatePerMinute int    `yaml:"rate_per_minute"`
}

// AuthConfig holds the API key callers must present on the MCP endpoint.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// N8NConfig holds the upstream n8n API configuration.
type N8NConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// Timeout is parsed from the raw duration string below.
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`

	// WorkflowAllowlist is parsed from the raw comma-separated string below.
	// Empty means unrestricted.
	WorkflowAllowlist    []string `yaml:"-"`
	WorkflowAllowlistRaw string   `yaml:"workflow_allowlist"`
}

// TrackerConfig holds the in-memory run tracker configuration.
type TrackerConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// If no file exists at the path, configuration is read from the process
// environment instead (see FromEnv).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return FromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds a Config from the environment variables the bridge has
// always understood: MCP_API_KEY, N8N_BASE_URL, N8N_API_KEY,
// N8N_WORKFLOW_ALLOWLIST, HTTP_TIMEOUT_SECONDS, and optionally
// DARCY_HTTP_ADDR.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.Auth.APIKey = os.Getenv("MCP_API_KEY")
	cfg.N8N.BaseURL = os.Getenv("N8N_BASE_URL")
	cfg.N8N.APIKey = os.Getenv("N8N_API_KEY")
	cfg.N8N.WorkflowAllowlistRaw = os.Getenv("N8N_WORKFLOW_ALLOWLIST")
	cfg.Server.HTTPAddr = os.Getenv("DARCY_HTTP_ADDR")

	if raw := os.Getenv("HTTP_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing HTTP_TIMEOUT_SECONDS %q: %w", raw, err)
		}
		cfg.N8N.Timeout = time.Duration(seconds * float64(time.Second))
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finalize normalizes raw fields, applies defaults, and validates.
func (c *Config) finalize() error {
	if c.N8N.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(c.N8N.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing n8n.timeout %q: %w", c.N8N.TimeoutRaw, err)
		}
		c.N8N.Timeout = timeout
	}
	if c.N8N.Timeout <= 0 {
		c.N8N.Timeout = DefaultTimeout
	}

	c.N8N.BaseURL = strings.TrimRight(c.N8N.BaseURL, "/")
	c.N8N.WorkflowAllowlist = ParseAllowlist(c.N8N.WorkflowAllowlistRaw)

	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.RatePerMinute <= 0 {
		c.Server.RatePerMinute = DefaultRatePerMinute
	}
	if c.Tracker.MaxEntries <= 0 {
		c.Tracker.MaxEntries = DefaultTrackerEntries
	}

	return c.Validate()
}

// ParseAllowlist splits a comma-separated workflow allowlist into its
// non-empty trimmed entries. A list that parses to zero entries yields nil,
// which means unrestricted; it is never an empty-set restriction.
func ParseAllowlist(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key (MCP_API_KEY) is required")
	}
	if c.N8N.BaseURL == "" {
		return fmt.Errorf("n8n.base_url (N8N_BASE_URL) is required")
	}
	if c.N8N.APIKey == "" {
		return fmt.Errorf("n8n.api_key (N8N_API_KEY) is required")
	}
	return nil
}
