package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"onion-watch/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

const (
	DefaultHost                 = "127.0.0.1"
	DefaultPort                 = 3001
	DefaultPushIntervalMs       = 5000
	DefaultHistoryCapacity      = 1000
	DefaultRecordIntervalSecs   = 5
	DefaultMaxReconnectAttempts = 5
	DefaultRelayChannel         = "onion-watch:control"

	// MaxHistoryCapacity bounds the retained snapshot window
	MaxHistoryCapacity = 1000
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, applies env overrides and defaults
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyEnv(os.Getenv)
	config.ApplyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a configuration usable without any file
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{Name: "onion-watch"}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every zero value with its default
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "onion-watch"
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Push.IntervalMs == 0 {
		c.Push.IntervalMs = DefaultPushIntervalMs
	}
	if c.History.Capacity == 0 {
		c.History.Capacity = DefaultHistoryCapacity
	}
	if c.History.RecordIntervalSeconds == 0 {
		c.History.RecordIntervalSeconds = DefaultRecordIntervalSecs
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "memory"
	}
	if c.Relay.Channel == "" {
		c.Relay.Channel = DefaultRelayChannel
	}
	if c.Client.URL == "" {
		c.Client.URL = fmt.Sprintf("ws://%s:%d/ws", c.Host, c.Port)
	}
	if c.Client.MaxReconnectAttempts == 0 {
		c.Client.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides file values with ONION_WATCH_* environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ONION_WATCH_HOST"); v != "" {
		c.Host = v
	}
	if v := getenv("ONION_WATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := getenv("ONION_WATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := getenv("ONION_WATCH_WS_URL"); v != "" {
		c.Client.URL = v
	}
	if v := getenv("ONION_WATCH_REDIS_ADDR"); v != "" {
		c.Relay.RedisAddr = v
		c.Relay.Enabled = true
	}
	if v := getenv("ONION_WATCH_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("ONION_WATCH_DB_DSN"); v != "" {
		switch c.Storage.DBType {
		case "postgres":
			c.Storage.DBConnectionString = v
		default:
			c.Storage.DBPath = v
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Push / History
	if c.Push.IntervalMs < 100 {
		return fmt.Errorf("push interval must be at least 100ms, got %d", c.Push.IntervalMs)
	}
	if c.History.Capacity <= 0 || c.History.Capacity > MaxHistoryCapacity {
		return fmt.Errorf("history capacity must be between 1 and %d, got %d", MaxHistoryCapacity, c.History.Capacity)
	}
	if c.History.RecordIntervalSeconds < 0 {
		return fmt.Errorf("record interval cannot be negative")
	}

	// Storage
	switch c.Storage.DBType {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Relay
	if c.Relay.Enabled && c.Relay.RedisAddr == "" {
		return fmt.Errorf("relay enabled but redis address is empty")
	}

	// Client
	if !strings.HasPrefix(c.Client.URL, "ws://") && !strings.HasPrefix(c.Client.URL, "wss://") {
		return fmt.Errorf("client url must use ws:// or wss://, got %q", c.Client.URL)
	}
	if c.Client.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max reconnect attempts cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Addr returns host:port of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
