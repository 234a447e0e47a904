// Package config loads the YAML configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/nikbrunner/bmlens/internal/ai"
	"github.com/nikbrunner/bmlens/internal/categorize"
	"github.com/nikbrunner/bmlens/internal/culler"
	"github.com/nikbrunner/bmlens/internal/dedupe"
	"github.com/nikbrunner/bmlens/internal/storage"
)

// Config holds the application configuration
type Config struct {
	Storage    StorageConfig    `yaml:"storage" json:"storage" jsonschema:"description=Library storage"`
	Check      CheckConfig      `yaml:"check" json:"check" jsonschema:"description=Dead link check"`
	Duplicates DuplicatesConfig `yaml:"duplicates" json:"duplicates" jsonschema:"description=Duplicate detection"`
	Categorize CategorizeConfig `yaml:"categorize" json:"categorize" jsonschema:"description=Rule based categorization"`
	AI         AIConfig         `yaml:"ai" json:"ai" jsonschema:"description=LLM assisted categorization"`
	Server     ServerConfig     `yaml:"server" json:"server" jsonschema:"description=Local HTTP API"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics" jsonschema:"description=Prometheus metrics"`
}

// StorageConfig selects where the library lives.
type StorageConfig struct {
	Dir  string       `yaml:"dir" json:"dir" jsonschema:"description=data directory, ~/.config/bmlens when empty"`
	Kind storage.Kind `yaml:"kind" json:"kind" jsonschema:"enum=auto,enum=json,enum=sqlite,default=auto"`
}

// CheckConfig tunes the dead link checker.
type CheckConfig struct {
	BatchSize      int           `yaml:"batch_size" json:"batch_size" jsonschema:"default=10,minimum=1,description=links probed concurrently per batch"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=per request timeout"`
	BatchDelay     time.Duration `yaml:"batch_delay" json:"batch_delay" jsonschema:"default=500ms,description=pause after each batch"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User-Agent header for probes"`
	ExcludeDomains []string      `yaml:"exclude_domains" json:"exclude_domains" jsonschema:"description=domains whose auth errors count as alive"`
}

// DuplicatesConfig picks which bookmark of a duplicate group survives cleanup.
type DuplicatesConfig struct {
	Keep dedupe.KeepPolicy `yaml:"keep" json:"keep" jsonschema:"enum=newest,enum=oldest,default=newest"`
}

// CategorizeConfig configures the rule based categorizer.
type CategorizeConfig struct {
	Fallback categorize.FallbackPolicy `yaml:"fallback" json:"fallback" jsonschema:"enum=uncategorized,enum=random,default=uncategorized"`
	Seed     uint64                    `yaml:"seed" json:"seed" jsonschema:"description=seed of the random fallback, time based when 0"`
	Rules    []categorize.CustomRule   `yaml:"rules" json:"rules" jsonschema:"description=extra domain rules tried before the built-in ones"`
}

// AIConfig configures the chat completion client. Settings stored through the
// API override these.
type AIConfig struct {
	ai.Settings `yaml:",inline"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s"`
	ChunkSize   int           `yaml:"chunk_size" json:"chunk_size" jsonschema:"default=100,minimum=1,description=bookmarks per request"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen    string `yaml:"listen" json:"listen" jsonschema:"default=127.0.0.1:8087"`
	Throttle  int    `yaml:"throttle" json:"throttle" jsonschema:"default=100,description=max concurrent requests"`
	SizeLimit int64  `yaml:"size_limit" json:"size_limit" jsonschema:"default=1048576,description=max request body in bytes"`
}

// MetricsConfig configures metric output of one-shot commands.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile" jsonschema:"description=node exporter textfile written after check"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file, expanding ${ENV} references.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Kind == "" {
		c.Storage.Kind = storage.KindAuto
	}

	if c.Check.BatchSize == 0 {
		c.Check.BatchSize = culler.DefaultBatchSize
	}
	if c.Check.Timeout == 0 {
		c.Check.Timeout = culler.DefaultTimeout
	}
	if c.Check.BatchDelay == 0 {
		c.Check.BatchDelay = culler.DefaultBatchDelay
	}
	if c.Check.ExcludeDomains == nil {
		c.Check.ExcludeDomains = []string{}
	}

	if c.Duplicates.Keep == "" {
		c.Duplicates.Keep = dedupe.KeepNewest
	}
	if c.Categorize.Fallback == "" {
		c.Categorize.Fallback = categorize.FallbackUncategorized
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ai.ProviderOpenAI
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.AI.ChunkSize == 0 {
		c.AI.ChunkSize = 100
	}

	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8087"
	}
	if c.Server.Throttle == 0 {
		c.Server.Throttle = 100
	}
	if c.Server.SizeLimit == 0 {
		c.Server.SizeLimit = 1024 * 1024
	}
}

// validate checks configuration for correctness
func (c *Config) validate() error {
	switch c.Storage.Kind {
	case storage.KindAuto, storage.KindJSON, storage.KindSQLite:
	default:
		return fmt.Errorf("storage.kind must be auto, json or sqlite, got %q", c.Storage.Kind)
	}
	if c.Check.BatchSize < 1 {
		return fmt.Errorf("check.batch_size must be at least 1")
	}
	if c.Check.Timeout < 100*time.Millisecond {
		return fmt.Errorf("check.timeout must be at least 100ms")
	}
	if c.Check.BatchDelay < 0 {
		return fmt.Errorf("check.batch_delay must be non-negative")
	}
	if _, err := dedupe.ParseKeepPolicy(string(c.Duplicates.Keep)); err != nil {
		return fmt.Errorf("duplicates.keep: %w", err)
	}
	if _, err := categorize.ParseFallbackPolicy(string(c.Categorize.Fallback)); err != nil {
		return fmt.Errorf("categorize.fallback: %w", err)
	}
	if _, err := categorize.DefaultRules().WithCustom(c.Categorize.Rules); err != nil {
		return fmt.Errorf("categorize.rules: %w", err)
	}
	if c.AI.ChunkSize < 1 {
		return fmt.Errorf("ai.chunk_size must be at least 1")
	}
	if c.Server.Throttle < 1 {
		return fmt.Errorf("server.throttle must be at least 1")
	}
	return nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{FieldNameTag: "yaml"}
	data, err := json.MarshalIndent(r.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// DefaultPath returns the default config path: ~/.config/bmlens/config.yml
func DefaultPath() (string, error) {
	dir, err := storage.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}
