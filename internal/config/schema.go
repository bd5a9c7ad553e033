package config

import (
	"time"
)

// Config is the osintgraph configuration file
type Config struct {
	Version  int            `yaml:"version"`
	Log      LogConfig      `yaml:"log"`
	Anomaly  AnomalyConfig  `yaml:"anomaly"`
	Patterns PatternsConfig `yaml:"patterns"`
	Timeline TimelineConfig `yaml:"timeline"`
	LLM      LLMConfig      `yaml:"llm"`
	Report   ReportConfig   `yaml:"report"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Server   ServerConfig   `yaml:"server"`
	Intake   IntakeConfig   `yaml:"intake"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// AnomalyConfig holds outlier detection settings
type AnomalyConfig struct {
	OutlierFraction float64 `yaml:"outlier_fraction"`
	Trees           int     `yaml:"trees"`
	SampleSize      int     `yaml:"sample_size"`
	Seed            int64   `yaml:"seed"`
}

// PatternsConfig holds graph algorithm settings
type PatternsConfig struct {
	// MaxCliqueNodes bounds clique enumeration; 0 disables the bound
	MaxCliqueNodes int `yaml:"max_clique_nodes"`
}

// TimelineConfig holds timeline correlation settings
type TimelineConfig struct {
	MaxGap Duration `yaml:"max_gap,omitempty"`
}

// LLMConfig holds the language-model capability settings. With no key the
// capability stays unwired.
type LLMConfig struct {
	APIKey    string   `yaml:"api_key,omitempty"`
	APIKeyEnv string   `yaml:"api_key_env,omitempty"`
	Model     string   `yaml:"model,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
}

// ReportConfig holds output file settings
type ReportConfig struct {
	Path         string `yaml:"path"`
	ExportPath   string `yaml:"export_path"`
	ExportFormat string `yaml:"export_format"`
}

// ArchiveConfig holds session archive settings
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// IntakeConfig holds the intake watcher settings
type IntakeConfig struct {
	WatchDir string `yaml:"watch_dir,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
