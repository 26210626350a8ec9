package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	DeviceID              string            `toml:"device_id" yaml:"device_id"`
	DeviceDir             string            `toml:"device_dir" yaml:"device_dir"`
	PoolSize              int               `toml:"pool_size" yaml:"pool_size"`
	PayloadSize           int               `toml:"payload_size" yaml:"payload_size"`
	PacketSize            int               `toml:"packet_size" yaml:"packet_size"`
	AdjustPacketSize      *bool             `toml:"adjust_packet_size" yaml:"adjust_packet_size"`
	StreamBytesPerSecond  int               `toml:"stream_bytes_per_second" yaml:"stream_bytes_per_second"`
	ExposureTimeoutMargin string            `toml:"exposure_timeout_margin" yaml:"exposure_timeout_margin"`
	Shutter               FileShutterConfig `toml:"shutter" yaml:"shutter"`
	LogLevel              string            `toml:"log_level" yaml:"log_level"`
	LogFormat             string            `toml:"log_format" yaml:"log_format"`
	AutoConnect           *bool             `toml:"auto_connect" yaml:"auto_connect"`
}

// FileShutterConfig is the [shutter] table of the config file.
type FileShutterConfig struct {
	Enabled   *bool  `toml:"enabled" yaml:"enabled"`
	Pin       int    `toml:"pin" yaml:"pin"`
	ActiveLow *bool  `toml:"active_low" yaml:"active_low"`
	Settle    string `toml:"settle" yaml:"settle"`
	MockGPIO  *bool  `toml:"mock_gpio" yaml:"mock_gpio"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.mantacam/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mantacam", "config.toml")
	}
	return ""
}

// DefaultDeviceDir returns ~/.mantacam/devices, or "" without a home directory.
func DefaultDeviceDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mantacam", "devices")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", fc.DeviceID, &cfg.DeviceID)
	s.setString("device-dir", fc.DeviceDir, &cfg.DeviceDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setInt("pool-size", fc.PoolSize, &cfg.PoolSize)
	s.setInt("payload-size", fc.PayloadSize, &cfg.PayloadSize)
	s.setInt("packet-size", fc.PacketSize, &cfg.PacketSize)
	s.setInt("stream-bps", fc.StreamBytesPerSecond, &cfg.StreamBytesPerSecond)
	s.setInt("shutter-pin", fc.Shutter.Pin, &cfg.Shutter.Pin)

	if err := s.setDuration("timeout-margin", fc.ExposureTimeoutMargin, &cfg.ExposureTimeoutMargin); err != nil {
		return err
	}
	if err := s.setDuration("shutter-settle", fc.Shutter.Settle, &cfg.Shutter.Settle); err != nil {
		return err
	}

	s.setBool("adjust-packet-size", fc.AdjustPacketSize, &cfg.AdjustPacketSize)
	s.setBool("auto-connect", fc.AutoConnect, &cfg.AutoConnect)
	s.setBool("shutter", fc.Shutter.Enabled, &cfg.Shutter.Enabled)
	s.setBool("shutter-active-low", fc.Shutter.ActiveLow, &cfg.Shutter.ActiveLow)
	s.setBool("mock-gpio", fc.Shutter.MockGPIO, &cfg.Shutter.MockGPIO)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
