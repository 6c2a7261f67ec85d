// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"testing"

	"waveviz/pkg/utils"
)

var (
	quietBuffer = scaled(utils.GenerateSineWave(1024, 44100, 440), 0.01)
	loudBuffer  = scaled(utils.GenerateSineWave(1024, 44100, 440), 1.0/0.9*0.8)
)

func scaled(buf []float32, k float32) []float32 {
	for i := range buf {
		buf[i] *= k
	}
	return buf
}

func TestGateEnable(t *testing.T) {
	g := NewGate(DefaultGateThreshold)
	if !g.Enabled() {
		t.Error("Gate should be enabled after NewGate")
	}

	g.Disable()
	g.Disable() // Multiple calls should be idempotent
	if g.Enabled() {
		t.Error("Gate should remain disabled after multiple Disable()")
	}

	g.Enable()
	g.Enable()
	if !g.Enabled() {
		t.Error("Gate should remain enabled after multiple Enable()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
		{math.NaN(), 0.0},
	}

	g := NewGate(0)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.input), func(t *testing.T) {
			g.SetThreshold(tt.input)
			if got := g.Threshold(); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("Gate threshold conversion: got %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateOpen(t *testing.T) {
	tests := []struct {
		desc      string
		buffer    []float32
		enabled   bool
		threshold float64
		open      bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, true, 0.999, false},
		{"Gate enabled/Silence/Zero threshold", make([]float32, 64), true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			g := NewGate(tt.threshold)
			if !tt.enabled {
				g.Disable()
			}
			if got := g.Open(tt.buffer); got != tt.open {
				t.Errorf("Open() = %v, want %v (peak %v, threshold %v)", got, tt.open, Peak(tt.buffer), g.Threshold())
			}
		})
	}
}

func TestPeak(t *testing.T) {
	if p := Peak([]float32{0.1, -0.7, 0.5}); p != 0.7 {
		t.Errorf("Peak = %v, want 0.7", p)
	}
	if p := Peak(nil); p != 0 {
		t.Errorf("Peak(nil) = %v, want 0", p)
	}
}

func TestGateHotPath(t *testing.T) {
	g := NewGate(0.1)
	allocs := testing.AllocsPerRun(100, func() {
		_ = g.Open(loudBuffer)
		g.SetThreshold(0.2)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in gate hot path, got %.1f", allocs)
	}
}

func BenchmarkGateOpen(b *testing.B) {
	g := NewGate(0.1)

	b.ReportAllocs()

	for b.Loop() {
		_ = g.Open(loudBuffer)
	}
}
