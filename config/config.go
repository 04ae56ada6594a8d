package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config describes a mount table and how it logs.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (MOUNTFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Mounts lists the backends bound into the table
	Mounts []MountConfig `mapstructure:"mounts" yaml:"mounts" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`

	// File additionally writes logs to a rotated file
	File string `mapstructure:"file" yaml:"file,omitempty"`

	// JSON switches to one JSON object per line
	JSON bool `mapstructure:"json" yaml:"json"`

	// NoTerminal disables output to stdout
	NoTerminal bool `mapstructure:"no_terminal" yaml:"no_terminal"`
}

// MountConfig binds one backend to a base path.
type MountConfig struct {
	// Path is the mount base; "" mounts at the table root
	Path string `mapstructure:"path" yaml:"path" validate:"vpath"`

	// Type selects the backend factory
	Type string `mapstructure:"type" yaml:"type" validate:"required,backend"`

	// ReadOnly refuses every mutation on this mount
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`

	// Options are decoded by the backend factory
	Options map[string]any `mapstructure:"options" yaml:"options,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath searches the default location; a missing file is
// not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Example: MOUNTFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("MOUNTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only consults the environment for known keys
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.no_terminal", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicitly named file that does not exist is fine as well
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func getConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "mountfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
