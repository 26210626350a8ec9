// Package log is the public logging surface of mantacam.
//
// Logger is the interface every mantacam component logs through. Build
// one from zerolog:
//
//	logger := log.NewZerologLogger(zerolog.New(os.Stderr))
//
// or discard everything:
//
//	logger := log.NewNoopLogger()
//
// Any type with Debug, Info, Warn and Error methods taking a message and
// Fields can be passed instead.
package log
