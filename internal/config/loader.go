package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "ok"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
	// DebugLogFile receives the --debug log
	DebugLogFile = "ok-debug.log"
	// PathEnv names a config file to use instead of the default location.
	PathEnv = "OK_CONFIG"
)

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader finds the config file, overlays it on DefaultConfig and validates
// the result.
type Loader struct {
	fs     FileSystem
	getenv func(string) string
	path   string
}

// NewLoader creates a production Loader using the real filesystem
func NewLoader() *Loader {
	return NewLoaderWithFS(ConfigFileReader{})
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem) *Loader {
	return &Loader{fs: fs, getenv: os.Getenv}
}

// WithPath makes the loader read path, which must then exist. An empty
// path keeps the default lookup.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Dir returns ~/.config/ok for the given home directory.
func Dir(home string) string {
	return filepath.Join(home, ".config", ConfigDir)
}

// resolve picks the file to read: an explicit path, then $OK_CONFIG, then
// ~/.config/ok/config.json. required is false only for the default
// location, whose absence means "use defaults".
func (l *Loader) resolve() (path string, required bool) {
	if l.path != "" {
		return l.path, true
	}
	if p := l.getenv(PathEnv); p != "" {
		return p, true
	}
	home, err := l.fs.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(Dir(home), ConfigFile), false
}

// Load reads the config file and merges it with defaults.
//
// NOTE: JSON keys are unmarshalled directly over the default configuration,
// so explicit zero values in the file override defaults.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path, required := l.resolve()
	if path == "" {
		return cfg, nil
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
