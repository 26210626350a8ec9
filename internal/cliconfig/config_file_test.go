package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				DeviceID:              "cam-1",
				DeviceDir:             "/var/lib/mantacam",
				PoolSize:              5,
				PayloadSize:           4096,
				PacketSize:            1500,
				AdjustPacketSize:      &trueVal,
				StreamBytesPerSecond:  1000000,
				ExposureTimeoutMargin: "3s",
				Shutter: FileShutterConfig{
					Enabled:   &trueVal,
					Pin:       22,
					ActiveLow: &trueVal,
					Settle:    "20ms",
					MockGPIO:  &falseVal,
				},
				LogLevel:    "debug",
				LogFormat:   "json",
				AutoConnect: &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{Shutter: ShutterConfig{MockGPIO: true}},
			expected: Config{
				DeviceID:              "cam-1",
				DeviceDir:             "/var/lib/mantacam",
				PoolSize:              5,
				PayloadSize:           4096,
				PacketSize:            1500,
				AdjustPacketSize:      true,
				StreamBytesPerSecond:  1000000,
				ExposureTimeoutMargin: 3 * time.Second,
				Shutter: ShutterConfig{
					Enabled:   true,
					Pin:       22,
					ActiveLow: true,
					Settle:    20 * time.Millisecond,
					MockGPIO:  false,
				},
				LogLevel:    "debug",
				LogFormat:   "json",
				AutoConnect: true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				DeviceID:  "file-cam",
				DeviceDir: "/file/devices",
				Shutter:   FileShutterConfig{Enabled: &trueVal},
			},
			changed: map[string]bool{"device": true, "shutter": true},
			initial: Config{DeviceID: "flag-cam"},
			expected: Config{
				DeviceID:  "flag-cam", // unchanged because flag was set
				DeviceDir: "/file/devices",
			},
		},
		{
			name:       "zero values leave defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{ExposureTimeoutMargin: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for invalid shutter settle",
			fileConfig: FileConfig{Shutter: FileShutterConfig{Settle: "later"}},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
device_id = "cam-1"
device_dir = "/tmp/devices"
pool_size = 4
exposure_timeout_margin = "5s"
adjust_packet_size = true

[shutter]
enabled = true
pin = 27
settle = "10ms"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.DeviceID != "cam-1" {
		t.Errorf("DeviceID = %v, want cam-1", fc.DeviceID)
	}
	if fc.DeviceDir != "/tmp/devices" {
		t.Errorf("DeviceDir = %v, want /tmp/devices", fc.DeviceDir)
	}
	if fc.PoolSize != 4 {
		t.Errorf("PoolSize = %v, want 4", fc.PoolSize)
	}
	if fc.ExposureTimeoutMargin != "5s" {
		t.Errorf("ExposureTimeoutMargin = %v, want 5s", fc.ExposureTimeoutMargin)
	}
	if fc.AdjustPacketSize == nil || !*fc.AdjustPacketSize {
		t.Errorf("AdjustPacketSize = %v, want true", fc.AdjustPacketSize)
	}
	if fc.Shutter.Enabled == nil || !*fc.Shutter.Enabled {
		t.Errorf("Shutter.Enabled = %v, want true", fc.Shutter.Enabled)
	}
	if fc.Shutter.Pin != 27 || fc.Shutter.Settle != "10ms" {
		t.Errorf("Shutter = %+v", fc.Shutter)
	}
}

func TestLoadFileConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()

	yamlContent := `
device_id: cam-2
log_format: json
shutter:
  pin: 5
  active_low: true
`
	for _, name := range []string{"config.yaml", "config.YML"} {
		configPath := filepath.Join(tmpDir, name)
		if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
			t.Fatalf("Failed to create test config file: %v", err)
		}

		fc, err := LoadFileConfig(configPath)
		if err != nil {
			t.Fatalf("LoadFileConfig(%s) error = %v", name, err)
		}
		if fc.DeviceID != "cam-2" || fc.LogFormat != "json" {
			t.Errorf("%s: config = %+v", name, fc)
		}
		if fc.Shutter.Pin != 5 || fc.Shutter.ActiveLow == nil || !*fc.Shutter.ActiveLow {
			t.Errorf("%s: shutter = %+v", name, fc.Shutter)
		}
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
device_id = "cam"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestLoadFileConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("pool_size: [1, 2\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	if _, err := LoadFileConfig(configPath); err == nil {
		t.Error("LoadFileConfig() expected error for invalid YAML")
	}
}

func TestDefaultPaths(t *testing.T) {
	if path := DefaultConfigPath(); path != "" && !strings.Contains(path, ".mantacam") {
		t.Errorf("DefaultConfigPath() = %v, should contain .mantacam", path)
	}
	if dir := DefaultDeviceDir(); dir != "" && !strings.HasSuffix(dir, filepath.Join(".mantacam", "devices")) {
		t.Errorf("DefaultDeviceDir() = %v", dir)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
