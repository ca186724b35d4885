package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ProbabilityConfig holds the configured weight of each explicit action.
// The rewrite action takes the remaining probability mass.
type ProbabilityConfig struct {
	Mkdir  float64 `mapstructure:"mkdir"`
	Rmdir  float64 `mapstructure:"rmdir"`
	Mkfile float64 `mapstructure:"mkfile"`
	Rmfile float64 `mapstructure:"rmfile"`
	Append float64 `mapstructure:"append"`
}

// JournalConfig configures the run-history journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"` // Badger DB directory (auto if empty)
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Root          string            `mapstructure:"root"`
	Probabilities ProbabilityConfig `mapstructure:"probabilities"`
	MaxDirs       int               `mapstructure:"max_dirs"`
	MaxBytes      string            `mapstructure:"max_bytes"`
	Workers       int               `mapstructure:"workers"`
	MaxSleep      time.Duration     `mapstructure:"max_sleep"`
	Isolate       bool              `mapstructure:"isolate"`
	Journal       JournalConfig     `mapstructure:"journal"`
	Logging       LoggingConfig     `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/churn/config.yaml
//   - $HOME/.config/churn/config.yaml
//
// Environment variables are prefixed with CHURN_ (e.g., CHURN_MAX_DIRS).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "churn"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "churn"))

	v.SetEnvPrefix("CHURN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in the root path if present
	if strings.HasPrefix(cfg.Root, "~") {
		cfg.Root = filepath.Join(homeDir, cfg.Root[1:])
	}

	return &cfg, nil
}

// SetDefaults registers every configuration default on the given viper
// instance. Shared between Load and the CLI's flag binding.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", DefaultRoot)
	v.SetDefault("probabilities.mkdir", DefaultProbMkdir)
	v.SetDefault("probabilities.rmdir", DefaultProbRmdir)
	v.SetDefault("probabilities.mkfile", DefaultProbMkfile)
	v.SetDefault("probabilities.rmfile", DefaultProbRmfile)
	v.SetDefault("probabilities.append", DefaultProbAppend)
	v.SetDefault("max_dirs", DefaultMaxDirs)
	v.SetDefault("max_bytes", DefaultMaxBytes)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("max_sleep", DefaultMaxSleep)
	v.SetDefault("isolate", DefaultIsolate)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "") // Empty means use DefaultJournalPath
	v.SetDefault("journal.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"worker":     "info",
		"supervisor": "info",
		"tree":       "warn",
		"journal":    "warn",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "churn"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "churn"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Churn Workload Generator Configuration

# Directory tree the workload mutates. Must be at least three path
# segments deep; created if missing.
root: %s

# Per-tick action weights. Each in [0,1], summing to less than 1;
# the rewrite action takes the remainder.
probabilities:
  mkdir: %g
  rmdir: %g
  mkfile: %g
  rmfile: %g
  append: %g

# Resource ceilings. Exceeding one forces the corresponding removal
# action on the next tick. Approximate under multiple workers.
max_dirs: %d
max_bytes: %s

# Number of independent workers mutating the same tree.
workers: %d

# Upper bound on the random sleep between ticks.
max_sleep: %s

# Confine the process's filesystem view to the root before starting
# (requires privileges; falls back with a warning).
isolate: %t

# Run-history journal
journal:
  enabled: true
  # Badger database directory (empty means use default: $XDG_DATA_HOME/churn/journal)
  path: ""
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/churn/churn.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    worker: info
    supervisor: info
    tree: warn
    journal: warn
`, DefaultRoot,
		DefaultProbMkdir, DefaultProbRmdir, DefaultProbMkfile, DefaultProbRmfile, DefaultProbAppend,
		DefaultMaxDirs, DefaultMaxBytes, DefaultWorkers, DefaultMaxSleep, DefaultIsolate,
		DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/churn/ for the journal database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "churn")
}

// StateDir returns $XDG_STATE_HOME/churn/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "churn")
}

// DefaultJournalPath returns the default journal database directory.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "churn.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
