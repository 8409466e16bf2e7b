package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the hitrelay configuration
type Config struct {
	Host            string   `yaml:"host,omitempty" json:"host,omitempty"`
	Port            int      `yaml:"port,omitempty" json:"port,omitempty"`
	Timeout         int      `yaml:"timeout,omitempty" json:"timeout,omitempty"` // milliseconds, 0 = none
	FollowRedirects *bool    `yaml:"followRedirects,omitempty" json:"followRedirects,omitempty"`
	MaxRedirects    int      `yaml:"maxRedirects,omitempty" json:"maxRedirects,omitempty"`
	ValidateSSL     *bool    `yaml:"validateSSL,omitempty" json:"validateSSL,omitempty"`
	Proxy           string   `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	UserAgent       string   `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`
	FileRoot        string   `yaml:"fileRoot,omitempty" json:"fileRoot,omitempty"` // Directory multipart file parts may be read from; empty allows data: URLs only
	AllowedHeaders  []string `yaml:"allowedHeaders,omitempty" json:"allowedHeaders,omitempty"`
	LogLevel        string   `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	LogFormat       string   `yaml:"logFormat,omitempty" json:"logFormat,omitempty"`

	// Headers added to every outbound request the caller did not set
	DefaultHeaders map[string]string `yaml:"defaultHeaders,omitempty" json:"defaultHeaders,omitempty"`

	// Lets POST /flow reach loopback, private and link-local addresses
	FlowAllowPrivate *bool `yaml:"flowAllowPrivate,omitempty" json:"flowAllowPrivate,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetFlowAllowPrivate returns the flow private address setting, defaulting to false
func (c *Config) GetFlowAllowPrivate() bool {
	return getBool(c.FlowAllowPrivate, false)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports settings that cannot work
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("maxRedirects must not be negative, got %d", c.MaxRedirects)
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitrelay.yaml",
	".hitrelay.yml",
	"hitrelay.yaml",
	".hitrelay.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file. JSON files
// are valid YAML, so one decoder serves both.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Host != "" {
		result.Host = other.Host
	}
	if other.Port > 0 {
		result.Port = other.Port
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.FileRoot != "" {
		result.FileRoot = other.FileRoot
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		result.LogFormat = other.LogFormat
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.FlowAllowPrivate != nil {
		result.FlowAllowPrivate = other.FlowAllowPrivate
	}

	if len(other.AllowedHeaders) > 0 {
		result.AllowedHeaders = append([]string(nil), other.AllowedHeaders...)
	}

	if len(other.DefaultHeaders) > 0 {
		headers := make(map[string]string, len(c.DefaultHeaders)+len(other.DefaultHeaders))
		for k, v := range c.DefaultHeaders {
			headers[k] = v
		}
		for k, v := range other.DefaultHeaders {
			headers[k] = v
		}
		result.DefaultHeaders = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
