package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = ".slidetranslate"
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "config.yaml"
)

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Loader reads and writes the configuration file.
type Loader struct {
	fs   afero.Fs
	dir  string
	path string
}

// NewLoader returns a loader for ~/.slidetranslate/config.yaml.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewLoaderWithPath(filepath.Join(home, ConfigDirName, ConfigFileName)), nil
}

// NewLoaderWithPath returns a loader for a config file at path.
func NewLoaderWithPath(path string) *Loader {
	return NewLoaderWithFs(afero.NewOsFs(), path)
}

// NewLoaderWithFs returns a loader working on fsys.
func NewLoaderWithFs(fsys afero.Fs, path string) *Loader {
	return &Loader{fs: fsys, dir: filepath.Dir(path), path: path}
}

// ConfigPath returns the configuration file path.
func (l *Loader) ConfigPath() string {
	return l.path
}

// Load reads the configuration file, expands ${VAR} references and applies
// environment overrides. Keys missing from the file keep their defaults.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.read(expandEnvVars)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadRaw reads the configuration as written, leaving ${VAR} references in
// place. Use it when the result is saved back.
func (l *Loader) LoadRaw() (*Config, error) {
	return l.read(func(s string) string { return s })
}

func (l *Loader) read(expand func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := afero.ReadFile(l.fs, l.path)
	if errors.Is(err, fs.ErrNotExist) {
		for name, p := range cfg.Providers {
			p.APIKey = expand(p.APIKey)
			p.Endpoint = expand(p.Endpoint)
			cfg.Providers[name] = p
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(expand(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", l.path, err)
	}
	return cfg, nil
}

// Save writes cfg to the configuration file, creating its directory.
func (l *Loader) Save(cfg *Config) error {
	if err := l.fs.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(l.fs, l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether the configuration file exists.
func (l *Loader) Exists() bool {
	ok, err := afero.Exists(l.fs, l.path)
	return ok && err == nil
}

// Init writes the default configuration unless a file is already there.
func (l *Loader) Init() error {
	if l.Exists() {
		return fmt.Errorf("config file already exists: %s", l.path)
	}
	return l.Save(DefaultConfig())
}

// ReadGlossary returns the contents of the configured glossary file, or ""
// when none is set. Relative paths are resolved against the config
// directory.
func (l *Loader) ReadGlossary(cfg *Config) (string, error) {
	path := cfg.Translation.Glossary
	if path == "" {
		return "", nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, path)
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read glossary: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables expand to "".
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}
