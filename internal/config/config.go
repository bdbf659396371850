// Package config provides configuration management for the inventory tracker.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultLogLevel             = "info"
	DefaultStorageBackend       = "file"
	DefaultStoragePath          = "./data"
	DefaultStorageKey           = "inventoryItems"
	DefaultPersistMaxRetries    = 2
	DefaultPersistRetryInterval = 50 * time.Millisecond
	DefaultServerHost           = "127.0.0.1"
	DefaultServerPort           = 8080
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultMetricsEnabled       = true
	DefaultAuthMode             = "none"
	DefaultLogFileName          = "inventory.log"
)

// Environment variable names.
const (
	EnvConfigFile           = "APP_CONFIG_FILE"
	EnvLogLevel             = "APP_LOG_LEVEL"
	EnvLogFile              = "APP_LOG_FILE"
	EnvStorageBackend       = "APP_STORAGE_BACKEND"
	EnvStoragePath          = "APP_STORAGE_PATH"
	EnvStorageKey           = "APP_STORAGE_KEY"
	EnvPersistMaxRetries    = "APP_PERSIST_MAX_RETRIES"
	EnvPersistRetryInterval = "APP_PERSIST_RETRY_INTERVAL"
	EnvServerHost           = "APP_SERVER_HOST"
	EnvServerPort           = "APP_SERVER_PORT"
	EnvAllowedOrigins       = "APP_ALLOWED_ORIGINS"
	EnvShutdownTimeout      = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled       = "APP_METRICS_ENABLED"
	EnvAuthMode             = "APP_AUTH_MODE"
	EnvBasicAuthUsers       = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys              = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
)

// Config holds the application configuration.
type Config struct {
	LogLevel string `yaml:"logLevel"`
	// LogFile receives logs while the terminal UI owns stdout. Empty means
	// DefaultLogFileName inside StoragePath.
	LogFile string `yaml:"logFile"`

	// Storage backend: file, sqlite, memory.
	StorageBackend string `yaml:"storageBackend"`
	StoragePath    string `yaml:"storagePath"`
	StorageKey     string `yaml:"storageKey"`

	PersistMaxRetries    int           `yaml:"persistMaxRetries"`
	PersistRetryInterval time.Duration `yaml:"persistRetryInterval"`

	// HTTP surface settings. ServerHost is the listen interface; an empty
	// value listens on all of them.
	ServerHost      string        `yaml:"serverHost"`
	ServerPort      int           `yaml:"serverPort"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MetricsEnabled  bool          `yaml:"metricsEnabled"`

	// AllowedOrigins lists browser origins besides the server's own that
	// may call the API and open /ws. "*" allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string `yaml:"authMode"`

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string `yaml:"basicAuthUsers"`

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string `yaml:"apiKeys"`
}

// Validation errors.
var (
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidStorageBackend  = errors.New("storage backend must be one of: file, sqlite, memory")
	ErrInvalidStoragePath     = errors.New("storage path must be set for file and sqlite backends")
	ErrInvalidStorageKey      = errors.New("storage key must not be empty")
	ErrInvalidPersistRetries  = errors.New("persist max retries must not be negative")
	ErrInvalidRetryInterval   = errors.New("persist retry interval must be positive")
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		LogLevel:             DefaultLogLevel,
		StorageBackend:       DefaultStorageBackend,
		StoragePath:          DefaultStoragePath,
		StorageKey:           DefaultStorageKey,
		PersistMaxRetries:    DefaultPersistMaxRetries,
		PersistRetryInterval: DefaultPersistRetryInterval,
		ServerHost:           DefaultServerHost,
		ServerPort:           DefaultServerPort,
		ShutdownTimeout:      DefaultShutdownTimeout,
		MetricsEnabled:       DefaultMetricsEnabled,
		AuthMode:             DefaultAuthMode,
	}
}

// Load reads configuration from defaults, then the YAML file named by
// APP_CONFIG_FILE (if set), then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays values present in the YAML file at path.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	c.loadLogEnv()

	if err := c.loadStorageEnv(); err != nil {
		return err
	}

	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()

	return nil
}

// loadLogEnv loads logging environment variables.
func (c *Config) loadLogEnv() {
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvLogFile); val != "" {
		c.LogFile = val
	}
}

// loadStorageEnv loads storage and persistence environment variables.
func (c *Config) loadStorageEnv() error {
	if val := os.Getenv(EnvStorageBackend); val != "" {
		c.StorageBackend = val
	}

	if val := os.Getenv(EnvStoragePath); val != "" {
		c.StoragePath = val
	}

	if val := os.Getenv(EnvStorageKey); val != "" {
		c.StorageKey = val
	}

	if val := os.Getenv(EnvPersistMaxRetries); val != "" {
		retries, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvPersistMaxRetries, err)
		}
		c.PersistMaxRetries = retries
	}

	if val := os.Getenv(EnvPersistRetryInterval); val != "" {
		interval, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvPersistRetryInterval, err)
		}
		c.PersistRetryInterval = interval
	}

	return nil
}

// loadServerEnv loads HTTP surface environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerHost); val != "" {
		c.ServerHost = val
	}

	if val := os.Getenv(EnvAllowedOrigins); val != "" {
		c.AllowedOrigins = splitList(val)
	}

	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateAuth()
}

// validateStorage validates storage and persistence configuration.
func (c *Config) validateStorage() error {
	switch c.StorageBackend {
	case "file", "sqlite":
		if c.StoragePath == "" {
			return ErrInvalidStoragePath
		}
	case "memory":
	default:
		return ErrInvalidStorageBackend
	}

	if c.StorageKey == "" {
		return ErrInvalidStorageKey
	}

	if c.PersistMaxRetries < 0 {
		return ErrInvalidPersistRetries
	}

	if c.PersistRetryInterval <= 0 {
		return ErrInvalidRetryInterval
	}

	return nil
}

// validateServer validates HTTP surface configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	authMode := c.AuthMode
	if authMode == "" {
		authMode = DefaultAuthMode
	}

	switch authMode {
	case "none":
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogFilePath returns where the terminal UI writes its log.
func (c *Config) LogFilePath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	if c.StorageBackend == "memory" || c.StoragePath == "" {
		return filepath.Join(os.TempDir(), DefaultLogFileName)
	}
	return filepath.Join(c.StoragePath, DefaultLogFileName)
}
