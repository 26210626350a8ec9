// Package ports defines the interfaces (ports) that connect the capture
// pipeline to the vendor engine and other infrastructure.
//
// # Port Interfaces
//
//   - [System]: device enumeration, exclusive open, device-list notifications
//   - [Device]: buffer announcement, capture engine start/stop, frame delivery
//   - [FeatureSet]: the engine's string-keyed feature surface
//   - [Controls]: typed camera controls used by the application core
//   - [Shutter]: optional mechanical shutter in front of the sensor
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them: an emulated engine, a GenICam
// feature-name adapter, a GPIO shutter and zerolog logging.
package ports
