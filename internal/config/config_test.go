package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 0.1, cfg.Anomaly.OutlierFraction)
	assert.Equal(t, 100, cfg.Anomaly.Trees)
	assert.Equal(t, 256, cfg.Anomaly.SampleSize)
	assert.Equal(t, int64(42), cfg.Anomaly.Seed)
	assert.Equal(t, "correlation_report.txt", cfg.Report.Path)
	assert.Equal(t, "correlation_graph.json", cfg.Report.ExportPath)
	assert.Equal(t, "json", cfg.Report.ExportFormat)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Archive.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"fraction at upper bound", func(c *Config) { c.Anomaly.OutlierFraction = 0.5 }, true},
		{"fraction above bound", func(c *Config) { c.Anomaly.OutlierFraction = 0.6 }, false},
		{"negative fraction", func(c *Config) { c.Anomaly.OutlierFraction = -0.1 }, false},
		{"negative clique bound", func(c *Config) { c.Patterns.MaxCliqueNodes = -1 }, false},
		{"negative gap", func(c *Config) { c.Timeline.MaxGap = Duration(-time.Second) }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"yaml export", func(c *Config) { c.Report.ExportFormat = "yaml" }, true},
		{"bad export format", func(c *Config) { c.Report.ExportFormat = "csv" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Anomaly.OutlierFraction = 0.2
	cfg.Patterns.MaxCliqueNodes = 500
	cfg.Timeline.MaxGap = Duration(90 * time.Minute)
	cfg.LLM.APIKey = "sk-secret"
	cfg.LLM.Model = "openai/gpt-4o"

	require.NoError(t, cfg.Save(configPath))

	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")

	loaded, path, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, path)
	assert.Equal(t, 0.2, loaded.Anomaly.OutlierFraction)
	assert.Equal(t, 500, loaded.Patterns.MaxCliqueNodes)
	assert.Equal(t, 90*time.Minute, loaded.Timeline.MaxGap.Duration())
	assert.Equal(t, "openai/gpt-4o", loaded.LLM.Model)
	assert.Empty(t, loaded.LLM.APIKey)
}

func TestLoadFromPathPartial(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "osintgraph.yaml")
	content := "anomaly:\n  outlier_fraction: 0.05\ntimeline:\n  max_gap: 10m\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, _, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Anomaly.OutlierFraction)
	assert.Equal(t, 10*time.Minute, cfg.Timeline.MaxGap.Duration())
	assert.Equal(t, 100, cfg.Anomaly.Trees)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	badFraction := filepath.Join(dir, "fraction.yaml")
	require.NoError(t, os.WriteFile(badFraction, []byte("anomaly:\n  outlier_fraction: 0.9\n"), 0600))
	_, _, err := LoadFromPath(badFraction)
	assert.ErrorContains(t, err, "outlier_fraction")

	badDuration := filepath.Join(dir, "duration.yaml")
	require.NoError(t, os.WriteFile(badDuration, []byte("timeline:\n  max_gap: soon\n"), 0600))
	_, _, err = LoadFromPath(badDuration)
	assert.ErrorContains(t, err, "parse config")

	_, _, err = LoadFromPath(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("OSINTGRAPH_TEST_KEY", "from-env")

	llm := LLMConfig{APIKeyEnv: "OSINTGRAPH_TEST_KEY"}
	assert.Equal(t, "from-env", llm.ResolveAPIKey())

	llm.APIKey = "from-file"
	assert.Equal(t, "from-file", llm.ResolveAPIKey())

	empty := LLMConfig{}
	assert.Empty(t, empty.ResolveAPIKey())
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	require.NoError(t, DefaultConfig().Save(configPath))

	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	assert.NotEmpty(t, FindConfigPath(), "should find config in working directory")

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	assert.NotEmpty(t, FindConfigPath())

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	require.NoError(t, DefaultConfig().Save(explicit))
	t.Setenv(EnvConfigPath, explicit)
	assert.Equal(t, explicit, FindConfigPath())
}

func TestDefaultConfigPath(t *testing.T) {
	tmpDir := t.TempDir()

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	assert.Equal(t, filepath.Join(tmpDir, "xdg", ConfigDirName, "config.yaml"), DefaultConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	assert.Equal(t, filepath.Join(tmpDir, "home", ".config", ConfigDirName, "config.yaml"), DefaultConfigPath())

	t.Setenv("HOME", "")
	assert.Equal(t, ConfigFileName, DefaultConfigPath())
}

func TestFindConfigPathUserDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv(EnvConfigPath, "")
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	xdgPath := filepath.Join(tmpDir, "xdg", ConfigDirName, "config.yaml")
	homePath := filepath.Join(tmpDir, "home", ".config", ConfigDirName, "config.yaml")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	require.NoError(t, DefaultConfig().Save(homePath))
	assert.Equal(t, homePath, FindConfigPath(), "falls through a missing XDG file")

	require.NoError(t, DefaultConfig().Save(xdgPath))
	assert.Equal(t, xdgPath, FindConfigPath())
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, d.Duration())

	marshaled, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", marshaled)
}

func TestSummary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKeyEnv = "OSINTGRAPH_UNSET_KEY_FOR_TEST"
	assert.Contains(t, cfg.Summary(), "LLM: not configured")

	cfg.LLM.APIKey = "k"
	cfg.LLM.Model = "m"
	cfg.Archive.Enabled = true
	s := cfg.Summary()
	assert.Contains(t, s, "LLM: configured (m)")
	assert.Contains(t, s, "Archive: ./osintgraph.db")
}
