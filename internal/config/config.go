// Package config loads the problemd configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ProblemConfig holds the settings of the problem advice.
type ProblemConfig struct {
	CausalChainsEnabled bool   `toml:"causal_chains_enabled" yaml:"causal_chains_enabled"` // Nest causes into problems
	IncludeStackTraces  bool   `toml:"include_stack_traces" yaml:"include_stack_traces"`   // Render stackTrace members
	TypeBaseURL         string `toml:"type_base_url" yaml:"type_base_url"`                 // Base URI of built-in problem types
}

// ConfigParam holds all configuration parameters for the problemd service
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version" yaml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerPort     string `toml:"server_port" yaml:"server_port"`         // Port for the server
	HandleCORS     bool   `toml:"handle_cors" yaml:"handle_cors"`         // Whether to handle CORS
	LogLevel       string `toml:"log_level" yaml:"log_level"`             // zerolog level name
	RequestTimeout string `toml:"request_timeout" yaml:"request_timeout"` // Handler timeout, e.g. "30s"

	Problem ProblemConfig `toml:"problem" yaml:"problem"`

	requestTimeout time.Duration
}

// GetRequestTimeout returns the validated request timeout.
func (c *ConfigParam) GetRequestTimeout() time.Duration {
	return c.requestTimeout
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// ConfigFormatVersion is the current version of the configuration file format
const ConfigFormatVersion = "0.1.0"

const (
	defaultLogLevel       = "info"
	defaultRequestTimeout = "30s"
)

var formatConstraint = mustConstraint("~" + ConfigFormatVersion)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// ValidateConfig checks if all required configuration values are present and
// valid, and fills in defaults.
func ValidateConfig(cfg *ConfigParam) error {
	// Check if the config file format version is supported
	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil {
		return fmt.Errorf("invalid config file format version %q: %v", cfg.FormatVersion, err)
	}
	if !formatConstraint.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}

	// Server validation
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %q", cfg.LogLevel)
	}

	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	timeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("invalid request_timeout: %v", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	cfg.requestTimeout = timeout

	// Problem validation
	if base := cfg.Problem.TypeBaseURL; base != "" {
		u, err := url.Parse(base)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("problem.type_base_url must be an absolute URI: %q", base)
		}
		cfg.Problem.TypeBaseURL = strings.TrimRight(base, "/")
	}

	return nil
}

// TraceEnabled reports whether the configured log level is trace.
func (cfg *ConfigParam) TraceEnabled() bool {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	return err == nil && level == zerolog.TraceLevel
}

// LoadConfig loads configuration from a file. Files ending in .yaml or .yml
// are read as YAML, anything else as TOML. {{ .ENV.NAME }} placeholders are
// expanded before parsing.
func LoadConfig(filename string) error {
	c, err := ParseConfig(filename)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// ParseConfig reads and validates a configuration file without installing it.
func ParseConfig(filename string) (*ConfigParam, error) {
	if filename == "" {
		return nil, fmt.Errorf("config filename is required")
	}

	// Read and parse the config file
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	content, err = PreprocessConfig(content, filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("error expanding config file: %v", err)
	}

	c := &ConfigParam{}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, c)
	default:
		_, err = toml.Decode(string(content), c)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Validate the configuration
	if err := ValidateConfig(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return c, nil
}
