// SPDX-License-Identifier: MIT
/*
Package transport carries visualizer output out of the process: the browser
preview surface and sinks for the band stream.
*/
package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// BandSource is polled by publishers for the latest displayed bands.
type BandSource interface {
	// SnapshotBands copies up to len(dst) bands into dst and returns the
	// count with the energy and bass of the same frame.
	SnapshotBands(dst []float32) (n int, energy, bass float64)
}
