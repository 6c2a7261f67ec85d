// Package utils holds signal fixtures and fakes shared by package tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu       sync.Mutex
	LastData any
	Sent     int
	Closed   bool
}

// Send stores the data for later inspection instead of transmitting. Float
// and byte slices are copied so callers may reuse their buffers.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch d := data.(type) {
	case []float64:
		data = append([]float64(nil), d...)
	case []byte:
		data = append([]byte(nil), d...)
	}
	m.LastData = data
	m.Sent++
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Last returns the most recent payload.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastData
}

// Count returns the number of Send calls so far.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateSineWave returns size samples of a 0.9 amplitude sine.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// ConstantSpectrum returns a byte spectrum of n bins all set to v.
func ConstantSpectrum(n int, v byte) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// FindPeakBin returns the index of the largest value in mags[startBin:endBin+1].
func FindPeakBin(mags []byte, startBin, endBin int) int {
	if len(mags) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(mags) {
		endBin = len(mags) - 1
	}

	peakBin := startBin
	peakValue := mags[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if mags[bin] > peakValue {
			peakValue = mags[bin]
			peakBin = bin
		}
	}

	return peakBin
}
