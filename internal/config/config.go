// Package config loads the relay's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/session"
)

// Defaults applied to fields omitted from the file.
const (
	DefaultListen      = ":8080"
	DefaultReadWindow  = 2 * time.Second
	DefaultLineTimeout = 100 * time.Millisecond
	DefaultSettleDelay = 200 * time.Millisecond
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration. Every field is optional; the Get* methods
// return the default for anything left unset.
type Config struct {
	Listen      *string `json:"listen,omitempty"`
	DefaultPort *string `json:"default_port,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty"`

	// Durations are strings like "2s" or "150ms".
	ReadWindow  *string `json:"read_window,omitempty"`
	LineTimeout *string `json:"line_timeout,omitempty"`
	SettleDelay *string `json:"settle_delay,omitempty"`

	// ResponseCodes replaces or adds controller response texts, keyed by raw code
	// such as "error:9".
	ResponseCodes map[string]string `json:"response_codes,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// DefaultConfig returns a Config with every scalar field set to its default.
func DefaultConfig() *Config {
	return &Config{
		Listen:      ptrString(DefaultListen),
		DefaultPort: ptrString(""),
		BaudRate:    ptrInt(serialport.DefaultBaudRate),
		ReadWindow:  ptrString(DefaultReadWindow.String()),
		LineTimeout: ptrString(DefaultLineTimeout.String()),
		SettleDelay: ptrString(DefaultSettleDelay.String()),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set values are usable.
func (c *Config) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	for name, v := range map[string]*string{
		"read_window":  c.ReadWindow,
		"line_timeout": c.LineTimeout,
		"settle_delay": c.SettleDelay,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}
	if c.ReadWindow != nil && c.LineTimeout != nil && *c.ReadWindow != "" && *c.LineTimeout != "" {
		if c.GetLineTimeout() > c.GetReadWindow() {
			return fmt.Errorf("line_timeout %s exceeds read_window %s", *c.LineTimeout, *c.ReadWindow)
		}
	}
	for code, text := range c.ResponseCodes {
		if code == "" || text == "" {
			return fmt.Errorf("response_codes entries need a code and a message, got %q: %q", code, text)
		}
	}
	return nil
}

// GetListen returns the HTTP listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetDefaultPort returns the port used by the query endpoint, or "" if none.
func (c *Config) GetDefaultPort() string {
	if c.DefaultPort == nil {
		return ""
	}
	return *c.DefaultPort
}

// GetBaudRate returns the baud rate or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil || *c.BaudRate <= 0 {
		return serialport.DefaultBaudRate
	}
	return *c.BaudRate
}

// GetReadWindow parses and returns ReadWindow as a time.Duration.
func (c *Config) GetReadWindow() time.Duration {
	return parseDuration(c.ReadWindow, DefaultReadWindow)
}

// GetLineTimeout parses and returns LineTimeout as a time.Duration.
func (c *Config) GetLineTimeout() time.Duration {
	return parseDuration(c.LineTimeout, DefaultLineTimeout)
}

// GetSettleDelay parses and returns SettleDelay as a time.Duration.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDuration(c.SettleDelay, DefaultSettleDelay)
}

func parseDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// SessionOptions builds the session manager options described by the config.
func (c *Config) SessionOptions() session.Options {
	port := serialport.DefaultPortOptions()
	port.BaudRate = c.GetBaudRate()
	return session.Options{
		Port:        port,
		ReadWindow:  c.GetReadWindow(),
		LineTimeout: c.GetLineTimeout(),
		SettleDelay: c.GetSettleDelay(),
		Codes:       session.NewResponseTable(c.ResponseCodes),
	}
}
