package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/mantacam/internal/adapters/sim"
	"github.com/bft-labs/mantacam/internal/ports"
)

const defaultDebounceDelay = 100 * time.Millisecond

// Hotplug receives camera arrivals and departures.
// *sim.System satisfies this interface.
type Hotplug interface {
	Plug(spec sim.CameraSpec) error
	Unplug(id string) bool
}

// DeviceDir turns a directory of descriptor files into hotplug events:
// a descriptor appearing plugs a camera in, its removal unplugs it.
type DeviceDir struct {
	mu sync.Mutex

	dir           string
	debounceDelay time.Duration
	sink          Hotplug
	logger        ports.Logger

	pending map[string]*time.Timer
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDeviceDir creates a device directory source feeding sink.
// A debounceDelay <= 0 uses 100ms.
func NewDeviceDir(dir string, sink Hotplug, debounceDelay time.Duration, logger ports.Logger) *DeviceDir {
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounceDelay
	}
	return &DeviceDir{
		dir:           dir,
		debounceDelay: debounceDelay,
		sink:          sink,
		logger:        logger,
		pending:       make(map[string]*time.Timer),
	}
}

// Dir returns the watched directory.
func (d *DeviceDir) Dir() string {
	return d.dir
}

// Scan plugs in every camera currently described in the directory.
// Invalid descriptors are logged and skipped.
func (d *DeviceDir) Scan() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("scan device dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := DeviceID(e.Name()); !ok {
			continue
		}
		d.plug(filepath.Join(d.dir, e.Name()))
	}
	return nil
}

// Start scans the directory and watches it for changes until Stop is
// called or ctx is done.
func (d *DeviceDir) Start(ctx context.Context) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(d.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", d.dir, err)
	}

	if err := d.Scan(); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	d.logger.Info("watching device directory", ports.String("dir", d.dir))

	d.wg.Add(1)
	go d.watchLoop(watchCtx, watcher)
	return nil
}

// Stop ends watching and cancels pending debounced plugs.
func (d *DeviceDir) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	for id, t := range d.pending {
		t.Stop()
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// watchLoop translates directory events into hotplug calls.
func (d *DeviceDir) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer d.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			id, ok := DeviceID(event.Name)
			if !ok {
				continue
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				d.unplug(id)
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				d.debouncePlug(ctx, id, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("device directory watcher error", ports.Err(err))
		}
	}
}

// debouncePlug waits for writes to a descriptor to settle before loading it.
func (d *DeviceDir) debouncePlug(ctx context.Context, id, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.pending[id]; ok {
		t.Stop()
	}
	d.pending[id] = time.AfterFunc(d.debounceDelay, func() {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		d.plug(path)
	})
}

func (d *DeviceDir) plug(path string) {
	spec, err := LoadDescriptor(path)
	if err != nil {
		d.logger.Warn("skipping invalid device descriptor",
			ports.String("path", path),
			ports.Err(err),
		)
		return
	}
	if err := d.sink.Plug(spec); err != nil {
		d.logger.Warn("device descriptor rejected",
			ports.String("device_id", spec.Device.ID),
			ports.Err(err),
		)
	}
}

func (d *DeviceDir) unplug(id string) {
	d.mu.Lock()
	if t, ok := d.pending[id]; ok {
		t.Stop()
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if d.sink.Unplug(id) {
		d.logger.Debug("descriptor removed", ports.String("device_id", id))
	}
}
