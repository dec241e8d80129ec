// ABOUTME: Configuration loading and parsing for mcp-bridge
// ABOUTME: Supports YAML files with environment variable expansion and backend definitions

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete mcp-bridge configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Backends []Backend      `yaml:"backends"`
	Trigger  TriggerConfig  `yaml:"trigger"`
}

// ServerConfig holds the bridge HTTP server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds the event ledger database configuration.
// An empty path disables persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TriggerConfig holds the optional command launched when a webhook
// event is accepted (typically the agent entry point).
type TriggerConfig struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
}

// Backend describes one tool backend. The registry classifies each
// backend by shape: a backend carrying a script is stdio-hosted, a
// backend carrying a host is a static HTTP service. Script takes
// precedence when both are set; a backend with neither is skipped at
// registration time.
type Backend struct {
	// Stdio shape
	Script  string `yaml:"script"`
	Cwd     string `yaml:"cwd"`
	Command string `yaml:"command"` // interpreter for the script, defaults to "python3"

	// HTTP shape
	Name        string      `yaml:"name"`
	Host        string      `yaml:"host"`
	Description string      `yaml:"description"`
	Tools       []ToolEntry `yaml:"tools"`
}

// ToolEntry statically declares one tool exposed by an HTTP backend.
type ToolEntry struct {
	Name        string         `yaml:"name"`
	Endpoint    string         `yaml:"endpoint"`
	Method      string         `yaml:"method"` // GET or POST, defaults to POST
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values the YAML file may omit.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8081"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that the configuration is internally consistent.
// Returns an error describing the first validation failure encountered.
// Backend entries are not validated here: the registry classifies them
// by shape at discovery time and skips malformed entries with a warning,
// so one bad backend never aborts startup.
func (c *Config) Validate() error {
	if len(c.Trigger.Command) == 0 && c.Trigger.Dir != "" {
		return fmt.Errorf("trigger.dir requires trigger.command")
	}

	return nil
}
