package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "OSINTGRAPH_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "osintgraph.yaml"
	// ConfigDirName is the directory under the user and system config roots
	ConfigDirName = "osintgraph"
)

// lookup yields one candidate setting; empty means not set
type lookup func() string

// firstSet returns the first non-empty candidate
func firstSet(lookups ...lookup) string {
	for _, l := range lookups {
		if v := l(); v != "" {
			return v
		}
	}
	return ""
}

func fromValue(v string) lookup {
	return func() string { return v }
}

func fromEnv(name string) lookup {
	return func() string {
		if name == "" {
			return ""
		}
		return os.Getenv(name)
	}
}

// existing passes through a candidate path only when the file is there
func existing(l lookup) lookup {
	return func() string {
		path := l()
		if path == "" {
			return ""
		}
		if _, err := os.Stat(path); err != nil {
			return ""
		}
		return path
	}
}

// underEnvDir joins elem onto the directory held by env
func underEnvDir(env string, elem ...string) lookup {
	return func() string {
		dir := os.Getenv(env)
		if dir == "" {
			return ""
		}
		return filepath.Join(append([]string{dir}, elem...)...)
	}
}

func userConfigFiles() []lookup {
	return []lookup{
		underEnvDir("XDG_CONFIG_HOME", ConfigDirName, "config.yaml"),
		underEnvDir("HOME", ".config", ConfigDirName, "config.yaml"),
	}
}

func workingDirFile() string {
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		return abs
	}
	return ConfigFileName
}

// FindConfigPath returns the first config file that exists, searching
// $OSINTGRAPH_CONFIG, ./osintgraph.yaml, the XDG and ~/.config user
// directories and finally /etc/osintgraph. Empty means none was found.
func FindConfigPath() string {
	lookups := []lookup{
		existing(fromEnv(EnvConfigPath)),
		existing(func() string {
			if _, err := os.Stat(ConfigFileName); err != nil {
				return ""
			}
			return workingDirFile()
		}),
	}
	for _, l := range userConfigFiles() {
		lookups = append(lookups, existing(l))
	}
	lookups = append(lookups, existing(fromValue(filepath.Join("/etc", ConfigDirName, "config.yaml"))))
	return firstSet(lookups...)
}

// DefaultConfigPath is where config init writes a new file: the first user
// config directory available, else the working directory
func DefaultConfigPath() string {
	lookups := append(userConfigFiles(), fromValue(ConfigFileName))
	return firstSet(lookups...)
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}
