// Package config provides YAML-based configuration loading for doqq.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint  = "http://localhost:11434"
	DefaultTimeout   = 5 * time.Minute
	DefaultKeepAlive = 30 * time.Minute
	DefaultStorePath = "doqq.db"
)

// ErrInvalidEndpoint is wrapped by every ConfigurationError raised for the
// inference server base URL.
var ErrInvalidEndpoint = errors.New("invalid inference endpoint")

// ConfigurationError reports a configuration value that cannot be used.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Config is the top-level doqq configuration, loaded from doqq.yaml.
type Config struct {
	Ollama       OllamaConfig `yaml:"ollama"`
	Store        StoreConfig  `yaml:"store"`
	DefaultModel string       `yaml:"default_model"`
	Prime        PrimeConfig  `yaml:"prime"`
}

// OllamaConfig holds connection settings for the local inference server.
type OllamaConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// StoreConfig locates the sqlite database holding persisted sessions.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PrimeConfig tunes the directory walk used while priming.
type PrimeConfig struct {
	SkipHidden bool `yaml:"skip_hidden"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file is not an error: defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Parse(nil)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets the environment (or a .env file) override the file values.
func (c *Config) applyEnv() {
	if host := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		c.Ollama.Endpoint = host
	}
	if path := strings.TrimSpace(os.Getenv("DOQQ_DB_PATH")); path != "" {
		c.Store.Path = path
	}
	if model := strings.TrimSpace(os.Getenv("DOQQ_MODEL")); model != "" {
		c.DefaultModel = model
	}
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Ollama.Endpoint == "" {
		c.Ollama.Endpoint = DefaultEndpoint
	}
	if c.Ollama.Timeout == 0 {
		c.Ollama.Timeout = DefaultTimeout
	}
	if c.Ollama.KeepAlive == 0 {
		c.Ollama.KeepAlive = DefaultKeepAlive
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
}

// validate checks that all values are usable.
func (c *Config) validate() error {
	if _, err := ParseEndpoint(c.Ollama.Endpoint); err != nil {
		return err
	}
	var errs []string
	if c.Ollama.Timeout < 0 {
		errs = append(errs, "ollama.timeout must not be negative")
	}
	if c.Ollama.KeepAlive < 0 {
		errs = append(errs, "ollama.keep_alive must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ParseEndpoint validates the inference server base URL. Only absolute
// http and https URLs with a host are accepted.
func ParseEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &ConfigurationError{Field: "ollama.endpoint", Value: raw, Err: fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigurationError{Field: "ollama.endpoint", Value: raw, Err: fmt.Errorf("%w: scheme must be http or https", ErrInvalidEndpoint)}
	}
	if u.Host == "" {
		return nil, &ConfigurationError{Field: "ollama.endpoint", Value: raw, Err: fmt.Errorf("%w: host is required", ErrInvalidEndpoint)}
	}
	return u, nil
}
