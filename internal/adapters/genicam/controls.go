// Package genicam implements ports.Controls over a GenICam-style feature map.
package genicam

import (
	"fmt"
	"time"

	"github.com/bft-labs/mantacam/internal/domain"
	"github.com/bft-labs/mantacam/internal/ports"
)

// Standard feature names (SFNC plus GigE Vision transport features).
const (
	FeatureWidth                = "Width"
	FeatureHeight               = "Height"
	FeaturePixelFormat          = "PixelFormat"
	FeaturePayloadSize          = "PayloadSize"
	FeaturePacketSize           = "GevSCPSPacketSize"
	FeatureAdjustPacketSize     = "GVSPAdjustPacketSize"
	FeatureStreamBytesPerSecond = "StreamBytesPerSecond"
	FeatureAcquisitionMode      = "AcquisitionMode"
	FeatureExposureTime         = "ExposureTimeAbs"
	FeatureAcquisitionStart     = "AcquisitionStart"
	FeatureAcquisitionStop      = "AcquisitionStop"
)

const (
	defaultPollInterval  = 10 * time.Millisecond
	defaultAdjustTimeout = 5 * time.Second
)

// Controls adapts a ports.FeatureSet to the typed ports.Controls.
type Controls struct {
	features      ports.FeatureSet
	pollInterval  time.Duration
	adjustTimeout time.Duration
}

// New creates Controls over features.
func New(features ports.FeatureSet) *Controls {
	return &Controls{
		features:      features,
		pollInterval:  defaultPollInterval,
		adjustTimeout: defaultAdjustTimeout,
	}
}

// Factory returns New as a function producing the ports.Controls interface.
func Factory() func(ports.FeatureSet) ports.Controls {
	return func(fs ports.FeatureSet) ports.Controls { return New(fs) }
}

func (c *Controls) PayloadSize() (int64, error) {
	return c.features.Int(FeaturePayloadSize)
}

func (c *Controls) SetPayloadSize(size int64) error {
	return c.features.SetInt(FeaturePayloadSize, size)
}

func (c *Controls) SetPacketSize(size int64) error {
	return c.features.SetInt(FeaturePacketSize, size)
}

// AdjustPacketSize runs the packet size negotiation command and waits for it
// to complete.
func (c *Controls) AdjustPacketSize() error {
	if err := c.features.RunCommand(FeatureAdjustPacketSize); err != nil {
		return err
	}

	deadline := time.Now().Add(c.adjustTimeout)
	for {
		done, err := c.features.CommandDone(FeatureAdjustPacketSize)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s did not complete within %v: %w",
				FeatureAdjustPacketSize, c.adjustTimeout,
				domain.NewEngineError("CommandDone "+FeatureAdjustPacketSize, domain.ErrorTimeout))
		}
		time.Sleep(c.pollInterval)
	}
}

func (c *Controls) SetStreamBandwidth(bytesPerSecond int64) error {
	return c.features.SetInt(FeatureStreamBytesPerSecond, bytesPerSecond)
}

func (c *Controls) SetAcquisitionMode(mode ports.AcquisitionMode) error {
	return c.features.SetString(FeatureAcquisitionMode, mode.String())
}

// SetExposure writes the exposure time in microseconds.
func (c *Controls) SetExposure(d time.Duration) error {
	return c.features.SetFloat(FeatureExposureTime, float64(d)/float64(time.Microsecond))
}

func (c *Controls) AcquisitionStart() error {
	return c.features.RunCommand(FeatureAcquisitionStart)
}

func (c *Controls) AcquisitionStop() error {
	return c.features.RunCommand(FeatureAcquisitionStop)
}
