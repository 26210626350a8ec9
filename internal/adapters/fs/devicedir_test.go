package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logAdapter "github.com/bft-labs/mantacam/internal/adapters/log"
	"github.com/bft-labs/mantacam/internal/adapters/sim"
	"github.com/bft-labs/mantacam/internal/domain"
)

// recordingHotplug implements Hotplug, recording calls.
type recordingHotplug struct {
	mu      sync.Mutex
	plugged map[string]sim.CameraSpec
	events  []string
}

func newRecordingHotplug() *recordingHotplug {
	return &recordingHotplug{plugged: make(map[string]sim.CameraSpec)}
}

func (r *recordingHotplug) Plug(spec sim.CameraSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugged[spec.Device.ID] = spec
	r.events = append(r.events, "plug:"+spec.Device.ID)
	return nil
}

func (r *recordingHotplug) Unplug(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.plugged[id]
	delete(r.plugged, id)
	r.events = append(r.events, "unplug:"+id)
	return ok
}

func (r *recordingHotplug) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.plugged[id]
	return ok
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadDescriptor(t *testing.T) {
	dir := t.TempDir()
	content := `
name = "bench camera"
model = "Manta G-125B"
interface = "eth1"
width = 1292
height = 964
pixel_format = "Mono12"
max_packet_size = 9000
latency = "15ms"
`
	path := filepath.Join(dir, "50-0503317618.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}

	spec, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if spec.Device.ID != "50-0503317618" || spec.Device.SerialNumber != "50-0503317618" {
		t.Errorf("Device = %+v", spec.Device)
	}
	if spec.Device.Model != "Manta G-125B" || spec.Device.InterfaceID != "eth1" {
		t.Errorf("Device = %+v", spec.Device)
	}
	s := spec.Sensor
	if s.Width != 1292 || s.Height != 964 || s.Format != domain.PixelFormatMono12 ||
		s.MaxPacketSize != 9000 || s.Latency != 15*time.Millisecond {
		t.Errorf("Sensor = %+v", s)
	}
}

func TestLoadDescriptor_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "DEV-01.toml")
	_ = os.WriteFile(path, []byte(`model = "Manta"`), 0o644)

	spec, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if spec.Sensor != sim.DefaultSensor() {
		t.Errorf("Sensor = %+v, want defaults", spec.Sensor)
	}
}

func TestLoadDescriptor_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad toml", "A.toml", "width = ["},
		{"bad format", "B.toml", `pixel_format = "RGB8"`},
		{"bad latency", "C.toml", `latency = "soon"`},
		{"not a descriptor", "D.yaml", `width = 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			_ = os.WriteFile(path, []byte(tt.content), 0o644)
			if _, err := LoadDescriptor(path); err == nil {
				t.Error("LoadDescriptor() succeeded, want error")
			}
		})
	}
}

func TestWriteDescriptor(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDescriptor(dir, "DEV-01", Descriptor{Model: "Manta", Width: 32, Height: 16}); err != nil {
		t.Fatalf("WriteDescriptor() error = %v", err)
	}

	spec, err := LoadDescriptor(filepath.Join(dir, "DEV-01.toml"))
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if spec.Sensor.Width != 32 || spec.Sensor.Height != 16 {
		t.Errorf("Sensor = %+v", spec.Sensor)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir holds %d entries, temp file left behind", len(entries))
	}

	if err := WriteDescriptor(dir, "../escape", Descriptor{}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("WriteDescriptor(../escape) error = %v, want ErrInvalidArgument", err)
	}
}

func TestDeviceDir_Scan(t *testing.T) {
	dir := t.TempDir()
	_ = WriteDescriptor(dir, "A", Descriptor{})
	_ = WriteDescriptor(dir, "B", Descriptor{})
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("width = ["), 0o644)

	rec := newRecordingHotplug()
	d := NewDeviceDir(dir, rec, 0, logAdapter.NewNoopLogger())
	if err := d.Scan(); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if !rec.has("A") || !rec.has("B") || rec.has("broken") || len(rec.plugged) != 2 {
		t.Errorf("plugged = %v", rec.events)
	}
}

func TestDeviceDir_Scan_MissingDir(t *testing.T) {
	d := NewDeviceDir(filepath.Join(t.TempDir(), "missing"), newRecordingHotplug(), 0, logAdapter.NewNoopLogger())
	if err := d.Scan(); err == nil {
		t.Error("Scan() of missing directory succeeded")
	}
}

func TestDeviceDir_Watch(t *testing.T) {
	dir := t.TempDir()
	_ = WriteDescriptor(dir, "A", Descriptor{})

	rec := newRecordingHotplug()
	d := NewDeviceDir(dir, rec, 10*time.Millisecond, logAdapter.NewNoopLogger())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer d.Stop()

	if !rec.has("A") {
		t.Fatal("initial scan did not plug A")
	}

	if err := WriteDescriptor(dir, "B", Descriptor{Model: "Manta"}); err != nil {
		t.Fatalf("WriteDescriptor() error = %v", err)
	}
	waitUntil(t, "B plugged", func() bool { return rec.has("B") })

	if err := RemoveDescriptor(dir, "A"); err != nil {
		t.Fatalf("RemoveDescriptor() error = %v", err)
	}
	waitUntil(t, "A unplugged", func() bool { return !rec.has("A") })
}

func TestDeviceDir_FeedsSimSystem(t *testing.T) {
	dir := t.TempDir()
	sys := sim.NewSystem(logAdapter.NewNoopLogger())
	d := NewDeviceDir(dir, sys, 10*time.Millisecond, logAdapter.NewNoopLogger())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer d.Stop()

	_ = WriteDescriptor(dir, "DEV-01", Descriptor{Model: "Manta G-125B"})
	waitUntil(t, "DEV-01 enumerated", func() bool {
		devices, _ := sys.Devices()
		return len(devices) == 1 && devices[0].ID == "DEV-01"
	})
}
