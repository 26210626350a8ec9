package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bft-labs/mantacam/internal/adapters/fs"
	"github.com/bft-labs/mantacam/internal/adapters/gpio"
	logAdapter "github.com/bft-labs/mantacam/internal/adapters/log"
	"github.com/bft-labs/mantacam/internal/adapters/sim"
	"github.com/bft-labs/mantacam/internal/ports"
	"github.com/bft-labs/mantacam/pkg/mantacam"
)

// rig is the emulated engine, its device directory and the camera on top.
type rig struct {
	system *sim.System
	dir    *fs.DeviceDir
	camera *mantacam.Camera
	gpio   gpio.Driver
}

// newRig builds the camera stack. With watch set the device directory is
// watched for hotplug after the camera subscribed to list changes;
// otherwise it is scanned once before the camera is created.
func (a *app) newRig(ctx context.Context, watch bool, handler mantacam.EventHandler) (*rig, error) {
	logger := logAdapter.NewZerologAdapterWithLogger(a.log)

	r := &rig{system: sim.NewSystem(logger)}
	r.dir = fs.NewDeviceDir(a.cfg.DeviceDir, r.system, 0, logger)

	if err := os.MkdirAll(a.cfg.DeviceDir, 0o755); err != nil {
		return nil, fmt.Errorf("create device dir: %w", err)
	}
	if !watch {
		if err := r.dir.Scan(); err != nil {
			return nil, err
		}
	}

	opts := []mantacam.Option{mantacam.WithLogger(logger)}
	if handler != nil {
		opts = append(opts, mantacam.WithEventHandler(handler))
	}
	if a.cfg.Shutter.Enabled {
		shutter, err := r.newShutter(a, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mantacam.WithShutter(shutter))
	}

	cam, err := mantacam.New(r.system, a.cameraConfig(), opts...)
	if err != nil {
		r.closeGPIO()
		return nil, err
	}
	r.camera = cam

	if watch {
		if err := r.dir.Start(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *rig) newShutter(a *app, logger ports.Logger) (*gpio.Shutter, error) {
	driver, err := gpio.NewDriver(a.cfg.Shutter.MockGPIO, logger)
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	shutter, err := gpio.NewShutter(driver, gpio.ShutterConfig{
		Pin:       a.cfg.Shutter.Pin,
		ActiveLow: a.cfg.Shutter.ActiveLow,
		Settle:    a.cfg.Shutter.Settle,
	}, logger)
	if err != nil {
		_ = driver.Close()
		return nil, err
	}
	r.gpio = driver
	return shutter, nil
}

func (a *app) cameraConfig() mantacam.Config {
	return mantacam.Config{
		DeviceID:    a.cfg.DeviceID,
		AutoConnect: a.cfg.AutoConnect,
		PoolSize:    a.cfg.PoolSize,
		PayloadSize: int64(a.cfg.PayloadSize),
		Network: mantacam.NetworkParams{
			PacketSize:           int64(a.cfg.PacketSize),
			AdjustPacketSize:     a.cfg.AdjustPacketSize,
			StreamBytesPerSecond: int64(a.cfg.StreamBytesPerSecond),
		},
		ExposureTimeoutMargin: a.cfg.ExposureTimeoutMargin,
	}
}

func (r *rig) closeGPIO() error {
	if r.gpio == nil {
		return nil
	}
	return r.gpio.Close()
}

// Close stops watching, closes the camera and releases the GPIO line.
func (r *rig) Close() error {
	r.dir.Stop()
	var errs []error
	if r.camera != nil {
		errs = append(errs, r.camera.Close())
	}
	errs = append(errs, r.closeGPIO())
	return errors.Join(errs...)
}
