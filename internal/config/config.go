// Package config loads this module's configuration from a .citelink.yaml
// file, environment variables (CITELINK_ prefix), and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// boundEnvKeys lists every leaf config key in dotted mapstructure form so
// AutomaticEnv reaches nested fields on Unmarshal; viper only consults the
// environment for keys it already knows about.
var boundEnvKeys = []string{
	"vault.scope_folder",
	"vault.ignore_patterns",
	"validation.fail_on_warnings",
	"extraction.full_files",
	"watch.debounce_millis",
	"performance.max_workers",
	"safety.create_backup",
	"safety.backup_retention",
}

// Config is the complete configuration for a validate/extract/fix/watch
// run.
type Config struct {
	Vault       VaultConfig       `mapstructure:"vault" yaml:"vault"`
	Validation  ValidationConfig  `mapstructure:"validation" yaml:"validation"`
	Extraction  ExtractionConfig  `mapstructure:"extraction" yaml:"extraction"`
	Watch       WatchConfig       `mapstructure:"watch" yaml:"watch"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`
	Safety      SafetyConfig      `mapstructure:"safety" yaml:"safety"`
}

// VaultConfig describes the scope folder used to resolve basename-only
// links and the directories never treated as candidate link targets.
type VaultConfig struct {
	ScopeFolder    string   `mapstructure:"scope_folder" yaml:"scope_folder"`
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
}

// ValidationConfig tunes CitationValidator behavior.
type ValidationConfig struct {
	FailOnWarnings bool `mapstructure:"fail_on_warnings" yaml:"fail_on_warnings"`
}

// ExtractionConfig tunes ContentExtractor behavior.
type ExtractionConfig struct {
	FullFiles bool `mapstructure:"full_files" yaml:"full_files"`
}

// WatchConfig tunes the watch subcommand's rebuild debounce.
type WatchConfig struct {
	DebounceMillis int `mapstructure:"debounce_millis" yaml:"debounce_millis"`
}

// PerformanceConfig tunes worker-pool sizing for validation dispatch.
type PerformanceConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers"`
}

// SafetyConfig tunes the fix subcommand's backup behavior.
type SafetyConfig struct {
	CreateBackup    bool   `mapstructure:"create_backup" yaml:"create_backup"`
	BackupRetention string `mapstructure:"backup_retention" yaml:"backup_retention"`
}

// DefaultConfig returns the built-in defaults applied before any config
// file or environment variable is consulted.
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			ScopeFolder:    ".",
			IgnorePatterns: []string{".git", ".obsidian"},
		},
		Validation:  ValidationConfig{FailOnWarnings: false},
		Extraction:  ExtractionConfig{FullFiles: false},
		Watch:       WatchConfig{DebounceMillis: 300},
		Performance: PerformanceConfig{MaxWorkers: 0}, // 0 means runtime.NumCPU()
		Safety:      SafetyConfig{CreateBackup: true, BackupRetention: "24h"},
	}
}

// Loader locates and parses .citelink.yaml across a fixed set of search
// paths, in increasing precedence: system-wide, home directory, then the
// current working directory.
type Loader struct {
	searchPaths []string
	configFile  string
	usedFile    string
}

// NewLoader returns a Loader with the module's standard search paths.
func NewLoader() *Loader {
	// viper reads the first .citelink.yaml it finds, in the order the paths
	// were added, so the highest-precedence path comes first.
	return &Loader{searchPaths: []string{".", "~", "/etc/citelink"}}
}

// SetConfigFile pins Load to an explicit file (the CLI's --config flag)
// instead of the standard search paths.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// ConfigFileUsed returns the path Load actually read configuration from, or
// "" if no config file was found (DefaultConfig values only).
func (l *Loader) ConfigFileUsed() string {
	return l.usedFile
}

// Load reads configuration with viper's file-then-environment precedence,
// falling back to DefaultConfig values for anything neither source sets.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	cfg := DefaultConfig()

	if l.configFile != "" {
		v.SetConfigFile(l.expandPath(l.configFile))
	} else {
		v.SetConfigName(".citelink")
		v.SetConfigType("yaml")
		for _, path := range l.searchPaths {
			v.AddConfigPath(l.expandPath(path))
		}
	}

	v.SetEnvPrefix("CITELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnvKeys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		l.usedFile = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Vault.ScopeFolder = l.expandPath(cfg.Vault.ScopeFolder)
	return cfg, nil
}

func (l *Loader) expandPath(path string) string {
	if path == "~" || (len(path) >= 2 && path[:2] == "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Validate checks configuration values that viper's Unmarshal cannot
// itself enforce.
func (c *Config) Validate() error {
	if c.Safety.BackupRetention != "" {
		if _, err := time.ParseDuration(c.Safety.BackupRetention); err != nil {
			return fmt.Errorf("invalid backup retention duration: %w", err)
		}
	}
	if c.Performance.MaxWorkers < 0 {
		return fmt.Errorf("performance.max_workers must not be negative")
	}
	return nil
}
