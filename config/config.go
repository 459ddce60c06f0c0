package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/docfs/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultBasePath        = "./data"
	DefaultCreateDirectory = true
	DefaultValidateOnRead  = false

	// DefaultLockMaxAttempts is how many times a held lock is polled before giving up
	DefaultLockMaxAttempts = 100

	// DefaultLockRetryDelay is the fixed pause between lock polls
	DefaultLockRetryDelay = 10 * time.Millisecond

	// DefaultBatchConcurrency bounds how many collection groups a batch runs at once
	DefaultBatchConcurrency = 4

	DefaultFileMode os.FileMode = 0o644
	DefaultDirMode  os.FileMode = 0o755

	DefaultLogLvl = util.InfoLevel
)

// CLI verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Config contains runtime configuration values for the document store.
type Config struct {
	BasePath         string        // Root directory holding one subdirectory per collection (Default ./data)
	CreateDirectory  bool          // Create missing collection directories on write (Default true)
	ValidateOnRead   bool          // Run the applicable validator on reads too (Default false)
	LockMaxAttempts  int           // Lock polls before ErrLockTimeout (Default 100)
	LockRetryDelay   time.Duration // Pause between lock polls (Default 10ms)
	BatchConcurrency int           // Collection groups processed concurrently by batches (Default 4)
	FileMode         os.FileMode   // Permissions for document files (Default 0644)
	DirMode          os.FileMode   // Permissions for collection directories (Default 0755)
	LogLvl           util.LogLevel
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	BasePath         *string `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	CreateDirectory  *bool   `yaml:"create_directory,omitempty" json:"create_directory,omitempty"`
	ValidateOnRead   *bool   `yaml:"validate_on_read,omitempty" json:"validate_on_read,omitempty"`
	LockMaxAttempts  *int    `yaml:"lock_max_attempts,omitempty" json:"lock_max_attempts,omitempty"`
	LockRetryDelayMs *int    `yaml:"lock_retry_delay_ms,omitempty" json:"lock_retry_delay_ms,omitempty"`
	BatchConcurrency *int    `yaml:"batch_concurrency,omitempty" json:"batch_concurrency,omitempty"`
	FileMode         *uint32 `yaml:"file_mode,omitempty" json:"file_mode,omitempty"`
	DirMode          *uint32 `yaml:"dir_mode,omitempty" json:"dir_mode,omitempty"`
	// LogLvl is a CLI style verbosity between 1 (error) and 5 (trace); values outside are clamped
	LogLvl *int `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		BasePath:         DefaultBasePath,
		CreateDirectory:  DefaultCreateDirectory,
		ValidateOnRead:   DefaultValidateOnRead,
		LockMaxAttempts:  DefaultLockMaxAttempts,
		LockRetryDelay:   DefaultLockRetryDelay,
		BatchConcurrency: DefaultBatchConcurrency,
		FileMode:         DefaultFileMode,
		DirMode:          DefaultDirMode,
		LogLvl:           DefaultLogLvl,
	}
}

// NewConfig returns the defaults with override applied. A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.BasePath != nil {
		c.BasePath = *override.BasePath
	}
	if override.CreateDirectory != nil {
		c.CreateDirectory = *override.CreateDirectory
	}
	if override.ValidateOnRead != nil {
		c.ValidateOnRead = *override.ValidateOnRead
	}
	if override.LockMaxAttempts != nil {
		c.LockMaxAttempts = *override.LockMaxAttempts
	}
	if override.LockRetryDelayMs != nil {
		c.LockRetryDelay = time.Duration(*override.LockRetryDelayMs) * time.Millisecond
	}
	if override.BatchConcurrency != nil {
		c.BatchConcurrency = *override.BatchConcurrency
	}
	if override.FileMode != nil {
		c.FileMode = os.FileMode(*override.FileMode)
	}
	if override.DirMode != nil {
		c.DirMode = os.FileMode(*override.DirMode)
	}
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
}

// Normalize clamps values that would make the store unusable back to their defaults.
func (c *Config) Normalize() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.LockMaxAttempts < 1 {
		c.LockMaxAttempts = 1
	}
	if c.LockRetryDelay < 0 {
		c.LockRetryDelay = 0
	}
	if c.BatchConcurrency < 1 {
		c.BatchConcurrency = 1
	}
	if c.FileMode == 0 {
		c.FileMode = DefaultFileMode
	}
	if c.DirMode == 0 {
		c.DirMode = DefaultDirMode
	}
}

// VerboseToLogLevel converts a 1 (error) .. 5 (trace) verbosity into a [util.LogLevel]
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
