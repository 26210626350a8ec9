package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/mantacam/internal/adapters/sim"
	"github.com/bft-labs/mantacam/internal/domain"
)

// DescriptorExt is the file extension of device descriptor files.
const DescriptorExt = ".toml"

// Descriptor is the file form of one emulated camera. The device id is the
// file name without extension.
type Descriptor struct {
	Name          string `toml:"name"`
	Model         string `toml:"model"`
	Serial        string `toml:"serial"`
	Interface     string `toml:"interface"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	PixelFormat   string `toml:"pixel_format"`
	MaxPacketSize int64  `toml:"max_packet_size"`
	Latency       string `toml:"latency"`
}

// Spec converts the descriptor into a camera description for id.
// Missing geometry falls back to sim.DefaultSensor.
func (d Descriptor) Spec(id string) (sim.CameraSpec, error) {
	sensor := sim.DefaultSensor()
	if d.Width > 0 {
		sensor.Width = d.Width
	}
	if d.Height > 0 {
		sensor.Height = d.Height
	}
	if d.PixelFormat != "" {
		format, err := domain.ParsePixelFormat(d.PixelFormat)
		if err != nil {
			return sim.CameraSpec{}, err
		}
		sensor.Format = format
	}
	if d.MaxPacketSize > 0 {
		sensor.MaxPacketSize = d.MaxPacketSize
	}
	if d.Latency != "" {
		latency, err := time.ParseDuration(d.Latency)
		if err != nil {
			return sim.CameraSpec{}, fmt.Errorf("%w: latency %q: %w", domain.ErrInvalidArgument, d.Latency, err)
		}
		sensor.Latency = latency
	}

	serial := d.Serial
	if serial == "" {
		serial = id
	}
	return sim.CameraSpec{
		Device: domain.Device{
			ID:           id,
			Name:         d.Name,
			Model:        d.Model,
			SerialNumber: serial,
			InterfaceID:  d.Interface,
		},
		Sensor: sensor,
	}, nil
}

// DeviceID returns the device id encoded in a descriptor path, or false if
// the path is not a descriptor file.
func DeviceID(path string) (string, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != DescriptorExt || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, DescriptorExt), true
}

// LoadDescriptor reads a descriptor file and returns the camera it describes.
func LoadDescriptor(path string) (sim.CameraSpec, error) {
	id, ok := DeviceID(path)
	if !ok {
		return sim.CameraSpec{}, fmt.Errorf("%w: %s is not a %s descriptor", domain.ErrInvalidArgument, path, DescriptorExt)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sim.CameraSpec{}, err
	}

	var d Descriptor
	if err := toml.Unmarshal(data, &d); err != nil {
		return sim.CameraSpec{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return d.Spec(id)
}

// WriteDescriptor stores d as the descriptor of id in dir.
// Uses atomic write (write to temp file, then rename) so a watcher never
// reads a partial file.
func WriteDescriptor(dir, id string, d Descriptor) error {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: device id %q", domain.ErrInvalidArgument, id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(d)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, id+DescriptorExt)
	// Hidden, so directory watchers skip it.
	tmp := filepath.Join(dir, "."+id+DescriptorExt+".tmp")

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RemoveDescriptor deletes the descriptor of id from dir.
func RemoveDescriptor(dir, id string) error {
	return os.Remove(filepath.Join(dir, id+DescriptorExt))
}
