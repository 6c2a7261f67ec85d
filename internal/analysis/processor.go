// SPDX-License-Identifier: MIT
package analysis

// SampleProcessor consumes blocks of mono float32 audio. Implementations are
// fed from the owning goroutine only and must not retain the slice.
type SampleProcessor interface {
	Process(samples []float32)
}

// SpectrumProvider exposes the latest byte magnitude spectrum of an analyser.
type SpectrumProvider interface {
	// ByteFrequencyData copies the latest magnitudes (0-255) into dst and
	// returns the number of bins written.
	ByteFrequencyData(dst []byte) int
	FrequencyForBin(bin int) float64 // center frequency (Hz) of bin
	BinCount() int                   // FFTSize()/2
	FFTSize() int
	SampleRate() float64
}
