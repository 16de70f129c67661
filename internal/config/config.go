// Package config loads decoder settings from JSON. Fields omitted from the
// file fall back to defaults through the Get* accessors, so partial configs
// are safe.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/ars430.defaults.json"

// Config represents the root configuration for the decoder daemon.
type Config struct {
	// Ingress params
	SensorIP    *string `json:"sensor_ip,omitempty"`    // expected radar source address
	UDPListen   *string `json:"udp_listen,omitempty"`   // listen address like ":31122"
	RcvBuf      *int    `json:"rcv_buf,omitempty"`      // socket receive buffer bytes
	LogInterval *string `json:"log_interval,omitempty"` // duration string like "60s"

	// Pipeline params
	Immediate *bool `json:"immediate,omitempty"` // bypass batching, one batch per packet

	// Persistence params
	DBPath        *string `json:"db_path,omitempty"`
	MigrationsDir *string `json:"migrations_dir,omitempty"`

	// Cache params (optional; empty addr disables Redis)
	RedisAddr *string `json:"redis_addr,omitempty"`
	RedisDB   *int    `json:"redis_db,omitempty"`

	// Egress params
	HTTPListen  *string `json:"http_listen,omitempty"`  // API listen address
	ForwardAddr *string `json:"forward_addr,omitempty"` // raw packet mirror target; empty disables
	PlotDir     *string `json:"plot_dir,omitempty"`     // batch scatter plot output dir; empty disables
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file is validated to
// ensure it has a .json extension and is under the max file size.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields that have a parseable shape.
func (c *Config) Validate() error {
	if c.SensorIP != nil && *c.SensorIP != "" {
		if net.ParseIP(*c.SensorIP) == nil {
			return fmt.Errorf("invalid sensor_ip %q", *c.SensorIP)
		}
	}

	if c.LogInterval != nil && *c.LogInterval != "" {
		if _, err := time.ParseDuration(*c.LogInterval); err != nil {
			return fmt.Errorf("invalid log_interval '%s': %w", *c.LogInterval, err)
		}
	}

	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcv_buf must be non-negative, got %d", *c.RcvBuf)
	}

	return nil
}

// GetSensorIP returns the sensor source address or the default. The default
// matches the factory configuration of the sensor's ethernet interface.
func (c *Config) GetSensorIP() string {
	if c.SensorIP == nil {
		return "172.22.10.101" // default
	}
	return *c.SensorIP
}

// GetUDPListen returns the UDP listen address or the default.
func (c *Config) GetUDPListen() string {
	if c.UDPListen == nil {
		return ":31122" // default, the sensor's telemetry destination port
	}
	return *c.UDPListen
}

// GetRcvBuf returns the socket receive buffer size or the default.
func (c *Config) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return 4 * 1024 * 1024 // default
	}
	return *c.RcvBuf
}

// GetLogInterval returns the stats log interval or the default.
func (c *Config) GetLogInterval() time.Duration {
	if c.LogInterval == nil || *c.LogInterval == "" {
		return time.Minute // default
	}
	d, err := time.ParseDuration(*c.LogInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// GetImmediate returns whether batching is bypassed.
func (c *Config) GetImmediate() bool {
	if c.Immediate == nil {
		return false // default
	}
	return *c.Immediate
}

// GetDBPath returns the SQLite database path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return "ars430.db" // default
	}
	return *c.DBPath
}

// GetMigrationsDir returns the migrations directory or the default.
func (c *Config) GetMigrationsDir() string {
	if c.MigrationsDir == nil {
		return "internal/db/migrations" // default, relative to repo root
	}
	return *c.MigrationsDir
}

// GetRedisAddr returns the Redis address; empty disables the cache.
func (c *Config) GetRedisAddr() string {
	if c.RedisAddr == nil {
		return "" // default: disabled
	}
	return *c.RedisAddr
}

// GetRedisDB returns the Redis database number or the default.
func (c *Config) GetRedisDB() int {
	if c.RedisDB == nil {
		return 0 // default
	}
	return *c.RedisDB
}

// GetHTTPListen returns the HTTP API listen address or the default.
func (c *Config) GetHTTPListen() string {
	if c.HTTPListen == nil {
		return ":8080" // default
	}
	return *c.HTTPListen
}

// GetForwardAddr returns the raw packet mirror target; empty disables it.
func (c *Config) GetForwardAddr() string {
	if c.ForwardAddr == nil {
		return "" // default: disabled
	}
	return *c.ForwardAddr
}

// GetPlotDir returns the scatter plot output directory; empty disables it.
func (c *Config) GetPlotDir() string {
	if c.PlotDir == nil {
		return "" // default: disabled
	}
	return *c.PlotDir
}
