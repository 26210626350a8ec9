package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/mantacam/internal/cliconfig"
)

const helpDescription = `
Drive GigE Vision cameras through a buffer-pooled capture pipeline.

Highlights:
  - One frame per exposure, with a bounded wait and recovery from late frames.
  - Cameras come and go with descriptor files in the device directory.
  - Optional GPIO mechanical shutter opened around each exposure.
  - Configure via file (TOML or YAML), MANTACAM_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  mantacam devices add DEV-01 --model "Manta G-125B"
  mantacam list
  mantacam expose --device DEV-01 --exposure 10ms --count 3
  mantacam watch --device DEV-01 --auto-connect
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the resolved configuration to the subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

func main() {
	a := &app{cfg: cliconfig.DefaultConfig()}
	a.cfg.DeviceDir = cliconfig.DefaultDeviceDir()
	a.log = cliconfig.NewLogger(os.Stderr, a.cfg.LogLevel, a.cfg.LogFormat)

	root := &cobra.Command{
		Use:           "mantacam",
		Short:         "Capture frames from GigE Vision cameras",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.mantacam/config.toml)")
	f.StringVar(&a.cfg.DeviceID, "device", a.cfg.DeviceID, "camera id")
	f.StringVar(&a.cfg.DeviceDir, "device-dir", a.cfg.DeviceDir, "directory of emulated camera descriptors")
	f.IntVar(&a.cfg.PoolSize, "pool-size", a.cfg.PoolSize, "frame buffers per capture run")
	f.IntVar(&a.cfg.PayloadSize, "payload-size", a.cfg.PayloadSize, "frame size in bytes to request (0 keeps the camera's)")
	f.IntVar(&a.cfg.PacketSize, "packet-size", a.cfg.PacketSize, "GigE stream packet size (0 keeps the camera's)")
	f.BoolVar(&a.cfg.AdjustPacketSize, "adjust-packet-size", a.cfg.AdjustPacketSize, "negotiate the largest working packet size on connect")
	f.IntVar(&a.cfg.StreamBytesPerSecond, "stream-bps", a.cfg.StreamBytesPerSecond, "stream bandwidth cap in bytes per second")
	f.DurationVar(&a.cfg.ExposureTimeoutMargin, "timeout-margin", a.cfg.ExposureTimeoutMargin, "extra wait for delivery beyond the exposure time")
	f.BoolVar(&a.cfg.Shutter.Enabled, "shutter", a.cfg.Shutter.Enabled, "install the GPIO mechanical shutter")
	f.IntVar(&a.cfg.Shutter.Pin, "shutter-pin", a.cfg.Shutter.Pin, "BCM pin of the shutter line")
	f.BoolVar(&a.cfg.Shutter.ActiveLow, "shutter-active-low", a.cfg.Shutter.ActiveLow, "drive the shutter line low to open")
	f.DurationVar(&a.cfg.Shutter.Settle, "shutter-settle", a.cfg.Shutter.Settle, "time the shutter blades need to move")
	f.BoolVar(&a.cfg.Shutter.MockGPIO, "mock-gpio", a.cfg.Shutter.MockGPIO, "use an in-memory GPIO driver")
	f.BoolVar(&a.cfg.AutoConnect, "auto-connect", a.cfg.AutoConnect, "connect to --device whenever it is plugged in")
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	f.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format (console or json)")

	root.AddCommand(
		newListCmd(a),
		newExposeCmd(a),
		newWatchCmd(a),
		newDevicesCmd(a),
	)

	if err := root.Execute(); err != nil {
		a.log.Error().Err(err).Msg("mantacam")
		os.Exit(1)
	}
}

// loadConfig layers the config file, MANTACAM_* env and flags, in that
// order of increasing precedence.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = a.cfg.Logger()
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}
