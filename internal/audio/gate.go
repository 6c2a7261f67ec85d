// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// DefaultGateThreshold is ~0.1% of full scale.
const DefaultGateThreshold = 0.001

// Gate is a peak noise gate for captured audio. Blocks whose peak does not
// exceed the threshold are replaced with silence. All methods are safe to
// call while the capture callback is running.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits, 0.0-1.0
}

// NewGate returns an enabled gate at the given threshold.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.Enable()
	return g
}

func (g *Gate) Enable() {
	g.enabled.Store(true)
}

func (g *Gate) Disable() {
	g.enabled.Store(false)
}

// Enabled reports whether the gate is active.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

// Threshold returns the current noise gate threshold in the range 0.0-1.0.
func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// Open reports whether buf passes the gate. A disabled gate is always open.
func (g *Gate) Open(buf []float32) bool {
	if !g.enabled.Load() {
		return true
	}
	return Peak(buf) > math.Float32frombits(g.threshold.Load())
}

// Peak returns the largest absolute sample in buf.
func Peak(buf []float32) float32 {
	var peak uint32
	for _, s := range buf {
		// Clearing the sign bit gives |s|; for non-negative floats the bit
		// patterns order the same way as the values.
		if a := math.Float32bits(s) &^ (1 << 31); a > peak {
			peak = a
		}
	}
	return math.Float32frombits(peak)
}
