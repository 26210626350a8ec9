package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults for the capture pipeline.
const (
	DefaultPoolSize              = 3
	DefaultExposureTimeoutMargin = 2 * time.Second
	DefaultShutterPin            = 17
	DefaultShutterSettle         = 50 * time.Millisecond
)

// ShutterConfig selects and drives the GPIO mechanical shutter.
type ShutterConfig struct {
	Enabled   bool
	Pin       int
	ActiveLow bool
	Settle    time.Duration
	MockGPIO  bool
}

// Config holds CLI configuration for mantacam.
type Config struct {
	DeviceID  string
	DeviceDir string

	PoolSize             int
	PayloadSize          int
	PacketSize           int
	AdjustPacketSize     bool
	StreamBytesPerSecond int

	ExposureTimeoutMargin time.Duration

	Shutter ShutterConfig

	LogLevel    string
	LogFormat   string
	AutoConnect bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		PoolSize:              DefaultPoolSize,
		ExposureTimeoutMargin: DefaultExposureTimeoutMargin,
		Shutter: ShutterConfig{
			Pin:      DefaultShutterPin,
			Settle:   DefaultShutterSettle,
			MockGPIO: true,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.DeviceDir == "" {
		return fmt.Errorf("device-dir is required")
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.PayloadSize < 0 {
		return fmt.Errorf("payload size must not be negative")
	}
	if c.PacketSize < 0 {
		return fmt.Errorf("packet size must not be negative")
	}
	if c.StreamBytesPerSecond < 0 {
		return fmt.Errorf("stream bytes per second must not be negative")
	}
	if c.ExposureTimeoutMargin <= 0 {
		return fmt.Errorf("exposure timeout margin must be positive")
	}

	if c.Shutter.Enabled {
		if c.Shutter.Pin < 0 {
			return fmt.Errorf("shutter pin must not be negative")
		}
		if c.Shutter.Settle < 0 {
			return fmt.Errorf("shutter settle must not be negative")
		}
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case "":
		c.LogFormat = "console"
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.LogFormat)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
