package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/xray/types"
)

// DefaultPath is the config file read when --config is not given and the
// file exists in the working directory.
const DefaultPath = "xray.yaml"

// Adapter types accepted in the config file.
const (
	AdapterWebhook = "webhook"
	AdapterRedis   = "redis"
)

// Config represents an xray.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Backend           BackendConfig     `yaml:"backend"`
	Weights           types.WeightTable `yaml:"weights"`
	DefaultTasksCount int               `yaml:"default_tasks_count"`
	Adapter           AdapterConfig     `yaml:"adapter"`
	// MissingEnv lists ${VAR} references that expanded to nothing.
	MissingEnv []string `yaml:"-"`
}

// BackendConfig holds scoring backend defaults.
type BackendConfig struct {
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	ConnectTimeout Duration          `yaml:"connect_timeout,omitempty"`
}

// AdapterConfig holds completion adapter defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`

	// LatestPrefix enables the redis per-company latest key.
	LatestPrefix string `yaml:"latest_prefix,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ErrUnknownAdapter is returned for an adapter type other than webhook or redis.
var ErrUnknownAdapter = errors.New("unknown adapter type")

// Validate checks semantic constraints YAML parsing cannot express.
func (c *Config) Validate() error {
	if len(c.Weights) > 0 {
		if err := c.Weights.Validate(); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
	}
	if c.DefaultTasksCount < 0 {
		return fmt.Errorf("default_tasks_count must be >= 0, got %d", c.DefaultTasksCount)
	}
	switch c.Adapter.Type {
	case "", AdapterWebhook, AdapterRedis:
	default:
		return fmt.Errorf("adapter.type %q: %w", c.Adapter.Type, ErrUnknownAdapter)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required for %s adapter", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries)
	}
	return nil
}

// WeightTable returns the configured weights, or the default table.
func (c *Config) WeightTable() types.WeightTable {
	if c == nil || len(c.Weights) == 0 {
		return types.DefaultWeights
	}
	return c.Weights
}

// ExpectedTaskCount returns the configured default task count, or the
// built-in default.
func (c *Config) ExpectedTaskCount() int {
	if c == nil || c.DefaultTasksCount <= 0 {
		return types.DefaultExpectedTaskCount
	}
	return c.DefaultTasksCount
}
