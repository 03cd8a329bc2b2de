package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Panels   PanelsConfig   `mapstructure:"panels"`
	Transfer TransferConfig `mapstructure:"transfer"`
	History  HistoryConfig  `mapstructure:"history"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// AuthConfig holds authentication configuration. When Enabled is false
// the API is open, which is the expected mode for a loopback-only bind.
type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	TokenHours int    `mapstructure:"token_hours"`
}

// PanelsConfig holds the defaults applied to newly created panels and
// the initial grid.
type PanelsConfig struct {
	Rows        int    `mapstructure:"rows"`
	Cols        int    `mapstructure:"cols"`
	Home        string `mapstructure:"home"` // empty: resolve user home at runtime
	ShowHidden  bool   `mapstructure:"show_hidden"`
	SortBy      string `mapstructure:"sort_by"`
	SortOrder   string `mapstructure:"sort_order"`
	ViewMode    string `mapstructure:"view_mode"`
	LayoutsFile string `mapstructure:"layouts_file"` // overrides the built-in presets
}

// TransferConfig holds file transfer behavior.
type TransferConfig struct {
	// Collision selects what happens when the destination name already
	// exists: "rename", "skip" or "overwrite".
	Collision string `mapstructure:"collision"`
}

// HistoryConfig holds transfer history retention.
type HistoryConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// WatcherConfig holds filesystem watcher configuration.
type WatcherConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms"`
	MaxBatch   int  `mapstructure:"max_batch"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.paneldeck")
	}

	v.SetEnvPrefix("PANELDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults + env vars.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper) {
	// The server binds loopback by default; this process backs a local
	// UI, not a shared service.
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8421)

	v.SetDefault("database.path", "./data/paneldeck.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.buffer_size", 1000)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_hours", 24)

	v.SetDefault("panels.rows", 1)
	v.SetDefault("panels.cols", 2)
	v.SetDefault("panels.home", "")
	v.SetDefault("panels.show_hidden", false)
	v.SetDefault("panels.sort_by", "name")
	v.SetDefault("panels.sort_order", "asc")
	v.SetDefault("panels.view_mode", "list")
	v.SetDefault("panels.layouts_file", "./data/layouts.yaml")

	v.SetDefault("transfer.collision", "rename")

	v.SetDefault("history.retention_days", 30)

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce_ms", 500)
	v.SetDefault("watcher.max_batch", 100)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FindAvailablePort returns the first free TCP port at or after start,
// trying up to attempts ports. Desktop installs often have the default
// port taken by an older instance.
func FindAvailablePort(start, attempts int) (int, error) {
	for port := start; port < start+attempts; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, start+attempts-1)
}
