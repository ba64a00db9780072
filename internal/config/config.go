package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schaermu/dlsort/internal/category"
)

// ConflictPolicy defines what happens when a destination file already exists
type ConflictPolicy string

const (
	ConflictRename ConflictPolicy = "rename"
	ConflictSkip   ConflictPolicy = "skip"
)

const (
	undoLogFile      = "undo_log.json"
	operationLogFile = "operations.log"
	lockFile         = "dlsort.lock"
)

// DefaultIgnore lists base-name patterns that are never organized
var DefaultIgnore = []string{
	"*.crdownload",
	"*.part",
	"*.partial",
	"*.download",
	".DS_Store",
	"desktop.ini",
}

// Config represents the complete dlsort configuration
type Config struct {
	Paths      PathsConfig         `yaml:"paths"`
	Organize   OrganizeConfig      `yaml:"organize"`
	Categories map[string][]string `yaml:"categories"`
	Watch      WatchConfig         `yaml:"watch"`
}

// PathsConfig configures local filesystem paths
type PathsConfig struct {
	TargetDir string `yaml:"target_dir"`
	StateDir  string `yaml:"state_dir"`
}

// OrganizeConfig configures organize behavior
type OrganizeConfig struct {
	OnConflict ConflictPolicy `yaml:"on_conflict"`
	Ignore     []string       `yaml:"ignore"`
}

// WatchConfig configures the folder watcher
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finalize(&cfg)
}

// LoadOrDefault behaves like Load but returns defaults when the file does
// not exist
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(os.ExpandEnv(path)); errors.Is(err, os.ErrNotExist) {
		return finalize(&Config{})
	}
	return Load(path)
}

func finalize(cfg *Config) (*Config, error) {
	// Expand environment variables and ~ in string fields
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandPaths expands environment variables and a leading ~ in path fields
func (c *Config) expandPaths() error {
	var err error
	if c.Paths.TargetDir, err = ExpandPath(c.Paths.TargetDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = ExpandPath(c.Paths.StateDir); err != nil {
		return err
	}
	return nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Paths.TargetDir == "" {
		c.Paths.TargetDir = DefaultTargetDir()
	}
	if c.Paths.StateDir == "" {
		c.Paths.StateDir = DefaultStateDir()
	}
	if c.Organize.OnConflict == "" {
		c.Organize.OnConflict = ConflictRename
	}
	if c.Organize.Ignore == nil {
		c.Organize.Ignore = append([]string(nil), DefaultIgnore...)
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 2 * time.Second
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate paths
	if c.Paths.TargetDir == "" {
		return fmt.Errorf("paths.target_dir is required")
	}
	if c.Paths.StateDir == "" {
		return fmt.Errorf("paths.state_dir is required")
	}
	if !filepath.IsAbs(c.Paths.StateDir) {
		return fmt.Errorf("paths.state_dir must be an absolute path: %s", c.Paths.StateDir)
	}

	// Validate conflict policy
	switch c.Organize.OnConflict {
	case ConflictRename, ConflictSkip:
		// valid
	default:
		return fmt.Errorf("invalid organize.on_conflict policy: %s (must be rename or skip)", c.Organize.OnConflict)
	}

	for _, pattern := range c.Organize.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid organize.ignore pattern %q: %w", pattern, err)
		}
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	// Category rules must build a consistent table
	if _, err := category.New(c.Categories); err != nil {
		return fmt.Errorf("categories: %w", err)
	}

	return nil
}

// CategoryTable builds the category table from the configured rules
func (c *Config) CategoryTable() (*category.Table, error) {
	return category.New(c.Categories)
}

// UndoLogPath returns the path to the undo log of the last organize run
func (c *Config) UndoLogPath() string {
	return filepath.Join(c.Paths.StateDir, undoLogFile)
}

// OperationLogPath returns the path to the append-only operation log
func (c *Config) OperationLogPath() string {
	return filepath.Join(c.Paths.StateDir, operationLogFile)
}

// LockPath returns the path to the instance lock file
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFile)
}

// IsIgnored reports whether a base file name matches an ignore pattern.
// Matching is case-insensitive.
func (c *Config) IsIgnored(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range c.Organize.Ignore {
		if ok, _ := filepath.Match(strings.ToLower(pattern), lower); ok {
			return true
		}
	}
	return false
}

// DefaultTargetDir returns the user's Downloads folder
func DefaultTargetDir() string {
	home, _ := os.UserHomeDir()
	if strings.TrimSpace(home) == "" {
		home = "."
	}
	return filepath.Join(home, "Downloads")
}

// DefaultStateDir returns $XDG_STATE_HOME/dlsort, falling back to
// ~/.local/state/dlsort
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, "dlsort")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "dlsort")
	}
	return filepath.Join(home, ".local", "state", "dlsort")
}

// ExpandPath expands environment variables and a leading ~ and returns an
// absolute, cleaned path. Empty input is returned unchanged.
func ExpandPath(in string) (string, error) {
	in = os.ExpandEnv(strings.TrimSpace(in))
	if in == "" {
		return "", nil
	}
	if strings.HasPrefix(in, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		if in == "~" {
			in = home
		} else if strings.HasPrefix(in, "~/") || strings.HasPrefix(in, `~\`) {
			in = filepath.Join(home, in[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(in))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", in, err)
	}
	return abs, nil
}
