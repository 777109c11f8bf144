// Package config loads runtime settings from flags, environment
// variables, an optional .env file, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings holds all configurable values.
type Settings struct {
	LogLevel      string        `mapstructure:"log_level"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
	MaxFileSizeMB int           `mapstructure:"max_file_size_mb"`
	Workers       int           `mapstructure:"workers"`
	BackupDir     string        `mapstructure:"backup_dir"`
	NoColor       bool          `mapstructure:"no_color"`
}

// MaxFileSizeBytes returns the file size limit in bytes.
func (s *Settings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// Load loads settings from environment variables and optional .env file.
func Load() (*Settings, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("log_level", "info")
	v.SetDefault("lock_timeout", 5*time.Second)
	v.SetDefault("max_file_size_mb", 10)
	v.SetDefault("workers", 4)
	v.SetDefault("backup_dir", ".linepatch")
	v.SetDefault("no_color", false)

	// Environment variables
	v.SetEnvPrefix("LINEPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("log_level", "LINEPATCH_LOG_LEVEL")
	_ = v.BindEnv("lock_timeout", "LINEPATCH_LOCK_TIMEOUT")
	_ = v.BindEnv("max_file_size_mb", "LINEPATCH_MAX_FILE_SIZE_MB")
	_ = v.BindEnv("workers", "LINEPATCH_WORKERS")
	_ = v.BindEnv("backup_dir", "LINEPATCH_BACKUP_DIR")
	_ = v.BindEnv("no_color", "LINEPATCH_NO_COLOR")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
		_ = v.BindPFlag("lock_timeout", flags.Lookup("lock-timeout"))
		_ = v.BindPFlag("max_file_size_mb", flags.Lookup("max-file-size"))
		_ = v.BindPFlag("workers", flags.Lookup("workers"))
		_ = v.BindPFlag("backup_dir", flags.Lookup("backup-dir"))
		_ = v.BindPFlag("no_color", flags.Lookup("no-color"))
	}

	// Look for a .env file in the working directory
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.BackupDir = expandHomeDir(settings.BackupDir)

	return &settings, nil
}

// Validate checks if the configuration values are valid.
func (s *Settings) Validate() error {
	switch s.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error")
	}

	if s.LockTimeout < 100*time.Millisecond || s.LockTimeout > 10*time.Minute {
		return fmt.Errorf("lock timeout must be between 100ms and 10m")
	}

	if s.MaxFileSizeMB < 1 || s.MaxFileSizeMB > 100 {
		return fmt.Errorf("max file size must be between 1 and 100 MB")
	}

	if s.Workers < 1 || s.Workers > 100 {
		return fmt.Errorf("workers must be between 1 and 100")
	}

	if s.BackupDir == "" {
		return fmt.Errorf("backup directory is required")
	}

	return nil
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}
