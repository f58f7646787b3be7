package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lc/whereami/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultConfigPath is the default path for the configuration file,
	// relative to the user's home directory.
	DefaultConfigPath = ".whereami/config.yaml"
	// DefaultStrategy is the default provider combination strategy.
	DefaultStrategy = StrategyRace
	// DefaultTimeout is the default overall resolution deadline.
	DefaultTimeout = 5 * time.Second
	// DefaultLookupTimeout is the default per-network-operation timeout.
	DefaultLookupTimeout = 3 * time.Second
)

// Strategy names accepted in the configuration file.
const (
	StrategyRace     = "race"
	StrategyFallback = "fallback"
)

// Config holds the application configuration.
type Config struct {
	Resolve ResolveConfig `yaml:"resolve"`
}

// ResolveConfig holds resolution-related configuration.
type ResolveConfig struct {
	// Providers names the catalog providers to query. Empty means all.
	Providers []string `yaml:"providers"`
	// Strategy is how providers are combined: "race" or "fallback".
	Strategy string `yaml:"strategy"`
	// Timeout bounds the whole resolution.
	Timeout time.Duration `yaml:"timeout"`
	// LookupTimeout bounds each individual DNS query or HTTP request.
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a new configuration provider using the default configuration
// path under the user's home directory. If the home directory cannot be
// determined, it falls back to the current directory.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath creates a new provider with a specific config path.
// It allows specifying both the filesystem implementation and the path to use.
func NewWithPath(fs filesys.ReadWriteFS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns a default configuration with preset values.
// This is used when no configuration file exists.
func Default() *Config {
	return &Config{
		Resolve: ResolveConfig{
			Strategy:      DefaultStrategy,
			Timeout:       DefaultTimeout,
			LookupTimeout: DefaultLookupTimeout,
		},
	}
}

// Load loads the configuration from the specified path.
func (p *FSProvider) Load() (*Config, error) {
	_ = p.ensureConfigDir()

	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c *Config) Validate() error {
	switch c.Resolve.Strategy {
	case StrategyRace, StrategyFallback:
	default:
		return fmt.Errorf("strategy must be %q or %q", StrategyRace, StrategyFallback)
	}
	if c.Resolve.Timeout < time.Second {
		return errors.New("timeout must be at least 1 second")
	}
	if c.Resolve.LookupTimeout < time.Second {
		return errors.New("lookup timeout must be at least 1 second")
	}
	for _, name := range c.Resolve.Providers {
		if strings.TrimSpace(name) == "" {
			return errors.New("provider names cannot be empty")
		}
	}
	return nil
}

func (p *FSProvider) ensureConfigDir() error {
	dir := filepath.Dir(p.path)
	if _, err := p.fs.Stat(dir); os.IsNotExist(err) {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return cfg, nil
}
