package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (MANTACAM_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", os.Getenv("MANTACAM_DEVICE_ID"), &cfg.DeviceID)
	s.setString("device-dir", os.Getenv("MANTACAM_DEVICE_DIR"), &cfg.DeviceDir)
	s.setString("log-level", os.Getenv("MANTACAM_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("MANTACAM_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setIntFromString("pool-size", os.Getenv("MANTACAM_POOL_SIZE"), &cfg.PoolSize); err != nil {
		return err
	}
	if err := s.setIntFromString("payload-size", os.Getenv("MANTACAM_PAYLOAD_SIZE"), &cfg.PayloadSize); err != nil {
		return err
	}
	if err := s.setIntFromString("packet-size", os.Getenv("MANTACAM_PACKET_SIZE"), &cfg.PacketSize); err != nil {
		return err
	}
	if err := s.setIntFromString("stream-bps", os.Getenv("MANTACAM_STREAM_BYTES_PER_SECOND"), &cfg.StreamBytesPerSecond); err != nil {
		return err
	}
	if err := s.setIntFromString("shutter-pin", os.Getenv("MANTACAM_SHUTTER_PIN"), &cfg.Shutter.Pin); err != nil {
		return err
	}

	if err := s.setDuration("timeout-margin", os.Getenv("MANTACAM_EXPOSURE_TIMEOUT_MARGIN"), &cfg.ExposureTimeoutMargin); err != nil {
		return err
	}
	if err := s.setDuration("shutter-settle", os.Getenv("MANTACAM_SHUTTER_SETTLE"), &cfg.Shutter.Settle); err != nil {
		return err
	}

	s.setBoolFromString("adjust-packet-size", os.Getenv("MANTACAM_ADJUST_PACKET_SIZE"), &cfg.AdjustPacketSize)
	s.setBoolFromString("auto-connect", os.Getenv("MANTACAM_AUTO_CONNECT"), &cfg.AutoConnect)
	s.setBoolFromString("shutter", os.Getenv("MANTACAM_SHUTTER"), &cfg.Shutter.Enabled)
	s.setBoolFromString("shutter-active-low", os.Getenv("MANTACAM_SHUTTER_ACTIVE_LOW"), &cfg.Shutter.ActiveLow)
	s.setBoolFromString("mock-gpio", os.Getenv("MANTACAM_MOCK_GPIO"), &cfg.Shutter.MockGPIO)

	return nil
}
