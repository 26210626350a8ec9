// Package mantacam provides an embeddable capture pipeline for GigE
// Vision machine-vision cameras.
//
// A [Camera] owns one device at a time. Connect opens it, negotiates the
// payload size and starts the capture engine with a small pool of frame
// buffers. Expose then runs a single-frame acquisition and returns the
// frame the engine delivered for it.
//
// # Basic Usage
//
//	system := sim.NewSystem(logger) // or any ports.System implementation
//	cam, err := mantacam.New(system, mantacam.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cam.Close()
//
//	if err := cam.Connect("DEV-01"); err != nil {
//	    log.Fatal(err)
//	}
//	frame, err := cam.Expose(ctx, 10*time.Millisecond, false)
//	if errors.Is(err, mantacam.ErrExposureTimeout) {
//	    cam.DiscardStale()
//	}
//
// # Events
//
// Implement [EventHandler] and pass it via [WithEventHandler] to learn
// about cameras appearing and disappearing on the network and about
// session state changes. Connect and disconnect notifications are
// delivered from a worker goroutine owned by the Camera, never from the
// engine's notification goroutine.
//
// # Auto-connect
//
// With Config.AutoConnect set, the Camera connects to Config.DeviceID
// whenever that device is plugged in and disconnects when it goes away.
//
// # Mechanical Shutter
//
// [WithShutter] installs a shutter that Expose opens before and closes
// after the exposure when asked to.
package mantacam
