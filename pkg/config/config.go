// Package config provides configuration management for storage-analysis.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Search   SearchConfig   `mapstructure:"search"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Source   SourceConfig   `mapstructure:"source"`
	Output   OutputConfig   `mapstructure:"output"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// AnalysisConfig holds aggregation pipeline settings.
type AnalysisConfig struct {
	Workers          int           `mapstructure:"workers"` // 0 = max(NumCPU, 2)
	QueueCapacity    int           `mapstructure:"queue_capacity"`
	Backoff          time.Duration `mapstructure:"backoff"`
	Estimator        string        `mapstructure:"estimator"`
	Level            string        `mapstructure:"level"` // fastest, default, best
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// WorkerCount resolves the configured worker count.
func (c AnalysisConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return max(runtime.NumCPU(), 2)
}

// SearchConfig holds search engine settings.
type SearchConfig struct {
	Ignore string `mapstructure:"ignore"`
}

// SchemaConfig locates the category schema.
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// SourceConfig selects the record source.
type SourceConfig struct {
	Type string `mapstructure:"type"` // snapshot, badger
	Path string `mapstructure:"path"`
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	JSONDir string `mapstructure:"json_dir"`
	Gzip    bool   `mapstructure:"gzip"`
	Verbose bool   `mapstructure:"verbose"`
}

// StorageConfig holds report upload configuration.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
	Prefix    string `mapstructure:"prefix"`
}

// DatabaseConfig holds the run-history database connection.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, mysql or postgres
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// Load reads configuration from the specified file path. A missing file
// falls back to defaults; environment variables prefixed with
// STORAGE_ANALYSIS_ override both.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/storage-analysis")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg, _ := LoadFromReader("yaml", nil)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("STORAGE_ANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.queue_capacity", 100*1024)
	v.SetDefault("analysis.backoff", "1ms")
	v.SetDefault("analysis.estimator", "deflate")
	v.SetDefault("analysis.level", "default")
	v.SetDefault("analysis.progress_interval", "2s")

	v.SetDefault("search.ignore", "")

	v.SetDefault("source.type", "snapshot")

	v.SetDefault("output.json_dir", ".")
	v.SetDefault("output.gzip", false)
	v.SetDefault("output.verbose", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./reports")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./storage-analysis.db")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("log.level", "info")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative")
	}
	if c.Analysis.QueueCapacity < 1 {
		return fmt.Errorf("analysis.queue_capacity must be at least 1")
	}
	if c.Analysis.Backoff <= 0 {
		return fmt.Errorf("analysis.backoff must be positive")
	}

	switch c.Source.Type {
	case "snapshot", "badger", "memory":
	default:
		return fmt.Errorf("unsupported source type: %s", c.Source.Type)
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
			if c.Database.Path == "" {
				return fmt.Errorf("database.path is required for sqlite")
			}
		case "mysql", "postgres":
			if c.Database.Host == "" {
				return fmt.Errorf("database host is required")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
	}

	// Storage settings are checked by the storage package when enabled.

	return nil
}
