package sim

import (
	"time"

	"github.com/bft-labs/mantacam/internal/adapters/genicam"
	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

const (
	featureAcquisitionFrameCount = "AcquisitionFrameCount"
	featureDeviceModelName       = "DeviceModelName"

	minExposureMicros = 1
	maxExposureMicros = 60e6

	adjustDuration = 5 * time.Millisecond
)

// features implements ports.FeatureSet on top of a Device.
type features struct {
	d *Device
}

func invalidValue(op string) error { return domain.NewEngineError(op, domain.ErrorInvalidValue) }

func unknownFeature(op string) error { return domain.NewEngineError(op, domain.ErrorNotFound) }

func (f *features) Int(name string) (int64, error) {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("Int "+name, false); err != nil {
		return 0, err
	}
	switch name {
	case genicam.FeatureWidth:
		return int64(d.sensor.Width), nil
	case genicam.FeatureHeight:
		return int64(d.sensor.Height), nil
	case genicam.FeaturePayloadSize:
		return d.payloadSize(), nil
	case genicam.FeaturePacketSize:
		return d.packetSize, nil
	case genicam.FeatureStreamBytesPerSecond:
		return d.bandwidth, nil
	case featureAcquisitionFrameCount:
		return d.frameCount, nil
	default:
		return 0, unknownFeature("Int " + name)
	}
}

func (f *features) SetInt(name string, v int64) error {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	op := "SetInt " + name
	if err := d.checkUsable(op, true); err != nil {
		return err
	}

	switch name {
	case genicam.FeatureWidth, genicam.FeatureHeight:
		if d.capturing {
			return domain.NewEngineError(op, domain.ErrorInvalidAccess)
		}
		if v <= 0 {
			return invalidValue(op)
		}
		if name == genicam.FeatureWidth {
			d.sensor.Width = int(v)
		} else {
			d.sensor.Height = int(v)
		}
	case genicam.FeaturePayloadSize:
		// Derived from the geometry: accepted only as a whole number of rows,
		// in which case the height follows.
		if d.capturing {
			return domain.NewEngineError(op, domain.ErrorInvalidAccess)
		}
		row := int64(d.sensor.Format.ImageSize(d.sensor.Width, 1))
		if v <= 0 || row == 0 || v%row != 0 {
			return invalidValue(op)
		}
		d.sensor.Height = int(v / row)
	case genicam.FeaturePacketSize:
		if v < minPacketSize || v > d.sensor.MaxPacketSize {
			return invalidValue(op)
		}
		d.packetSize = v
	case genicam.FeatureStreamBytesPerSecond:
		if v <= 0 || v > maxStreamBytesPerSecond {
			return invalidValue(op)
		}
		d.bandwidth = v
	case featureAcquisitionFrameCount:
		if v < 1 {
			return invalidValue(op)
		}
		d.frameCount = v
	default:
		return unknownFeature(op)
	}
	return nil
}

func (f *features) Float(name string) (float64, error) {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("Float "+name, false); err != nil {
		return 0, err
	}
	if name != genicam.FeatureExposureTime {
		return 0, unknownFeature("Float " + name)
	}
	return float64(d.exposure) / float64(time.Microsecond), nil
}

func (f *features) SetFloat(name string, v float64) error {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	op := "SetFloat " + name
	if err := d.checkUsable(op, true); err != nil {
		return err
	}
	if name != genicam.FeatureExposureTime {
		return unknownFeature(op)
	}
	if v < minExposureMicros || v > maxExposureMicros {
		return invalidValue(op)
	}
	d.exposure = time.Duration(v * float64(time.Microsecond))
	return nil
}

func (f *features) String(name string) (string, error) {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkUsable("String "+name, false); err != nil {
		return "", err
	}
	switch name {
	case genicam.FeatureAcquisitionMode:
		return d.mode.String(), nil
	case genicam.FeaturePixelFormat:
		return d.sensor.Format.String(), nil
	case featureDeviceModelName:
		return d.info.Model, nil
	default:
		return "", unknownFeature("String " + name)
	}
}

func (f *features) SetString(name, v string) error {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	op := "SetString " + name
	if err := d.checkUsable(op, true); err != nil {
		return err
	}
	switch name {
	case genicam.FeatureAcquisitionMode:
		mode, ok := parseAcquisitionMode(v)
		if !ok {
			return invalidValue(op)
		}
		d.mode = mode
	case genicam.FeaturePixelFormat:
		if d.capturing {
			return domain.NewEngineError(op, domain.ErrorInvalidAccess)
		}
		format, err := domain.ParsePixelFormat(v)
		if err != nil {
			return invalidValue(op)
		}
		d.sensor.Format = format
	default:
		return unknownFeature(op)
	}
	return nil
}

func (f *features) RunCommand(name string) error {
	d := f.d
	switch name {
	case genicam.FeatureAcquisitionStart:
		return d.acquisitionStart()
	case genicam.FeatureAcquisitionStop:
		return d.acquisitionStop()
	case genicam.FeatureAdjustPacketSize:
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.checkUsable("RunCommand "+name, true); err != nil {
			return err
		}
		// Negotiation completes asynchronously; poll CommandDone.
		d.adjustDone = false
		time.AfterFunc(adjustDuration, func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.packetSize = d.sensor.MaxPacketSize
			d.adjustDone = true
		})
		return nil
	default:
		return unknownFeature("RunCommand " + name)
	}
}

func (f *features) CommandDone(name string) (bool, error) {
	d := f.d
	d.mu.Lock()
	defer d.mu.Unlock()

	switch name {
	case genicam.FeatureAdjustPacketSize:
		return d.adjustDone, nil
	case genicam.FeatureAcquisitionStart, genicam.FeatureAcquisitionStop:
		return true, nil
	default:
		return false, unknownFeature("CommandDone " + name)
	}
}

func parseAcquisitionMode(s string) (ports.AcquisitionMode, bool) {
	for _, m := range []ports.AcquisitionMode{
		ports.AcquisitionSingleFrame,
		ports.AcquisitionMultiFrame,
		ports.AcquisitionContinuous,
	} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}
