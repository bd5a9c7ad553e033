// Package config provides configuration management for osintgraph.
//
// Config file locations (priority order):
//  1. $OSINTGRAPH_CONFIG
//  2. ./osintgraph.yaml
//  3. $XDG_CONFIG_HOME/osintgraph/config.yaml
//  4. ~/.config/osintgraph/config.yaml
//  5. /etc/osintgraph/config.yaml
//
// API keys are read from the file or from the environment variable named
// by llm.api_key_env. They are never written back.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultFraction     = 0.1
	defaultTrees        = 100
	defaultSampleSize   = 256
	defaultSeed         = 42
	defaultReportPath   = "correlation_report.txt"
	defaultExportPath   = "correlation_graph.json"
	defaultExportFormat = "json"
	defaultArchivePath  = "./osintgraph.db"
	defaultServerAddr   = ":8080"
	defaultAPIKeyEnv    = "OPENROUTER_API_KEY"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path. A literal API key is not
// persisted; keys belong in the environment.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	out := *c
	out.LLM.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Anomaly.OutlierFraction == 0 {
		c.Anomaly.OutlierFraction = defaultFraction
	}
	if c.Anomaly.Trees == 0 {
		c.Anomaly.Trees = defaultTrees
	}
	if c.Anomaly.SampleSize == 0 {
		c.Anomaly.SampleSize = defaultSampleSize
	}
	if c.Anomaly.Seed == 0 {
		c.Anomaly.Seed = defaultSeed
	}
	if c.Report.Path == "" {
		c.Report.Path = defaultReportPath
	}
	if c.Report.ExportPath == "" {
		c.Report.ExportPath = defaultExportPath
	}
	if c.Report.ExportFormat == "" {
		c.Report.ExportFormat = defaultExportFormat
	}
	if c.Archive.Path == "" {
		c.Archive.Path = defaultArchivePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = defaultAPIKeyEnv
	}
}

// Validate rejects values no component can run with
func (c *Config) Validate() error {
	if f := c.Anomaly.OutlierFraction; f <= 0 || f > 0.5 {
		return fmt.Errorf("anomaly.outlier_fraction must be in (0, 0.5], got %v", f)
	}
	if c.Anomaly.Trees < 0 {
		return fmt.Errorf("anomaly.trees must be positive, got %d", c.Anomaly.Trees)
	}
	if c.Anomaly.SampleSize < 0 {
		return fmt.Errorf("anomaly.sample_size must be positive, got %d", c.Anomaly.SampleSize)
	}
	if c.Patterns.MaxCliqueNodes < 0 {
		return fmt.Errorf("patterns.max_clique_nodes must not be negative, got %d", c.Patterns.MaxCliqueNodes)
	}
	if c.Timeline.MaxGap < 0 {
		return fmt.Errorf("timeline.max_gap must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	switch c.Report.ExportFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("report.export_format must be json or yaml, got %q", c.Report.ExportFormat)
	}
	return nil
}

// ResolveAPIKey returns the language-model API key from the file, falling back
// to the configured environment variable. Empty means not configured.
func (c *LLMConfig) ResolveAPIKey() string {
	return firstSet(fromValue(c.APIKey), fromEnv(c.APIKeyEnv))
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	llm := "not configured"
	if c.LLM.ResolveAPIKey() != "" {
		llm = "configured"
		if c.LLM.Model != "" {
			llm += " (" + c.LLM.Model + ")"
		}
	}

	summary := fmt.Sprintf("Log: %s/%s\n", c.Log.Level, c.Log.Format)
	summary += fmt.Sprintf("Anomaly: fraction=%.2f trees=%d sample=%d seed=%d\n",
		c.Anomaly.OutlierFraction, c.Anomaly.Trees, c.Anomaly.SampleSize, c.Anomaly.Seed)
	summary += fmt.Sprintf("Report: %s, export: %s (%s)\n", c.Report.Path, c.Report.ExportPath, c.Report.ExportFormat)
	summary += fmt.Sprintf("LLM: %s", llm)
	if c.Archive.Enabled {
		summary += fmt.Sprintf("\nArchive: %s", c.Archive.Path)
	}

	return summary
}
