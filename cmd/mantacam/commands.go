package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/mantacam/internal/adapters/fs"
	"github.com/bft-labs/mantacam/pkg/mantacam"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the cameras in the device directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newRig(cmd.Context(), false, nil)
			if err != nil {
				return err
			}
			defer r.Close()

			devices, err := r.camera.Devices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no cameras in %s\n", a.cfg.DeviceDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODEL\tSERIAL\tINTERFACE")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Model, d.SerialNumber, d.InterfaceID)
			}
			return w.Flush()
		},
	}
}

func newExposeCmd(a *app) *cobra.Command {
	var (
		exposure time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:   "expose",
		Short: "Connect to a camera and take frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := a.newRig(ctx, false, nil)
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := pickDevice(a.cfg.DeviceID, r.camera)
			if err != nil {
				return err
			}
			if err := r.camera.Connect(id); err != nil {
				return err
			}

			for i := 0; i < count; i++ {
				frame, err := r.camera.Expose(ctx, exposure, a.cfg.Shutter.Enabled)
				if errors.Is(err, mantacam.ErrExposureTimeout) {
					a.log.Warn().Err(err).Int("index", i).Msg("exposure timed out, skipping")
					// Give a late frame the chance to land before dropping it.
					time.Sleep(a.cfg.ExposureTimeoutMargin)
					r.camera.DiscardStale()
					continue
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "frame %d %s %dx%d %s %d bytes\n",
					frame.Seq(), frame.ID(), frame.Width(), frame.Height(), frame.Format(), frame.Len())
			}

			st := r.camera.Stats()
			a.log.Info().
				Uint64("delivered", st.Delivered).
				Uint64("dropped", st.Dropped).
				Uint64("overwritten", st.Overwritten).
				Msg("capture stats")
			return r.camera.Disconnect()
		},
	}

	cmd.Flags().DurationVar(&exposure, "exposure", 10*time.Millisecond, "exposure time")
	cmd.Flags().IntVar(&count, "count", 1, "number of frames")
	return cmd
}

// pickDevice returns id, or the only camera present when id is empty.
func pickDevice(id string, cam *mantacam.Camera) (string, error) {
	if id != "" {
		return id, nil
	}
	devices, err := cam.Devices()
	if err != nil {
		return "", err
	}
	switch len(devices) {
	case 0:
		return "", fmt.Errorf("%w: no cameras", mantacam.ErrDeviceNotFound)
	case 1:
		return devices[0].ID, nil
	default:
		return "", fmt.Errorf("%d cameras present, choose one with --device", len(devices))
	}
}

// printer writes camera events to the command output.
type printer struct {
	cmd *cobra.Command
}

func (p printer) OnCameraConnected(id string) {
	fmt.Fprintf(p.cmd.OutOrStdout(), "%s connected %s\n", time.Now().Format(time.RFC3339), id)
}

func (p printer) OnCameraDisconnected(id string) {
	fmt.Fprintf(p.cmd.OutOrStdout(), "%s disconnected %s\n", time.Now().Format(time.RFC3339), id)
}

func (p printer) OnStateChange(ev mantacam.StateChangeEvent) {
	fmt.Fprintf(p.cmd.OutOrStdout(), "%s session %s -> %s (%s)\n",
		time.Now().Format(time.RFC3339), ev.Previous, ev.Current, ev.Reason)
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print camera connect and disconnect events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := a.newRig(ctx, true, printer{cmd: cmd})
			if err != nil {
				return err
			}

			<-ctx.Done()
			a.log.Info().Msg("received signal, stopping...")
			return r.Close()
		},
	}
}

func newDevicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage emulated cameras in the device directory",
	}
	cmd.AddCommand(newDevicesAddCmd(a), newDevicesRemoveCmd(a))
	return cmd
}

func newDevicesAddCmd(a *app) *cobra.Command {
	var d fs.Descriptor
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "add ID",
		Short: "Plug in an emulated camera",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if latency > 0 {
				d.Latency = latency.String()
			}
			// Reject what the device directory would refuse to load.
			if _, err := d.Spec(args[0]); err != nil {
				return err
			}
			if err := fs.WriteDescriptor(a.cfg.DeviceDir, args[0], d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&d.Name, "name", "", "device name")
	cmd.Flags().StringVar(&d.Model, "model", "", "camera model")
	cmd.Flags().StringVar(&d.Serial, "serial", "", "serial number (defaults to the id)")
	cmd.Flags().StringVar(&d.Interface, "interface", "", "network interface id")
	cmd.Flags().IntVar(&d.Width, "width", 0, "sensor width in pixels")
	cmd.Flags().IntVar(&d.Height, "height", 0, "sensor height in pixels")
	cmd.Flags().StringVar(&d.PixelFormat, "pixel-format", "", "pixel format (Mono8, Mono16, ...)")
	cmd.Flags().Int64Var(&d.MaxPacketSize, "max-packet-size", 0, "largest stream packet the link accepts")
	cmd.Flags().DurationVar(&latency, "latency", 0, "readout delay after the exposure")
	return cmd
}

func newDevicesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Unplug an emulated camera",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fs.RemoveDescriptor(a.cfg.DeviceDir, args[0]); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("%w: %s", mantacam.ErrDeviceNotFound, args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
