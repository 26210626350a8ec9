// Package domain contains the core entities and value objects of the capture
// pipeline.
//
// This package is the innermost layer. It has no dependency on the vendor
// engine, logging or configuration and holds only data and invariants.
//
// # Entities
//
//   - [Device]: an enumerated camera (id, name, model, serial, interface)
//   - [FrameBuffer]: a fixed-size region cycled between pool and engine
//   - [Frame]: an immutable delivered image with dimensions and pixel format
//   - [CameraListEvent]: a classified device-list change
//
// # Errors
//
// The error taxonomy lives in errors.go. Vendor failures are carried as
// [EngineError] and wrapped by the application layer into one of the
// sentinel errors, so callers can match either with errors.Is / errors.As.
package domain
