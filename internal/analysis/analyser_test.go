// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"waveviz/pkg/utils"
)

const (
	testFFTSize    = 2048
	testSampleRate = 44100
)

func newTestAnalyser(t testing.TB) *Analyser {
	t.Helper()
	a, err := NewAnalyser(AnalyserConfig{FFTSize: testFFTSize, SampleRate: testSampleRate, Window: Blackman})
	if err != nil {
		t.Fatalf("NewAnalyser: %v", err)
	}
	return a
}

func TestNewAnalyserValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  AnalyserConfig
	}{
		{"Not Power Of Two", AnalyserConfig{FFTSize: 1000, SampleRate: 44100}},
		{"Zero Sample Rate", AnalyserConfig{FFTSize: 1024}},
		{"Inverted Decibels", AnalyserConfig{FFTSize: 1024, SampleRate: 44100, MinDecibels: -10, MaxDecibels: -90}},
		{"Smoothing One", AnalyserConfig{FFTSize: 1024, SampleRate: 44100, Smoothing: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAnalyser(tt.cfg); err == nil {
				t.Errorf("NewAnalyser(%+v) succeeded, want error", tt.cfg)
			}
		})
	}
}

func TestAnalyserSinePeak(t *testing.T) {
	a := newTestAnalyser(t)
	const freq = 1000.0
	a.Process(utils.GenerateSineWave(testFFTSize, testSampleRate, freq))

	spec := make([]byte, a.BinCount())
	if n := a.ByteFrequencyData(spec); n != testFFTSize/2 {
		t.Fatalf("ByteFrequencyData wrote %d bins, want %d", n, testFFTSize/2)
	}
	peak := utils.FindPeakBin(spec, 0, len(spec)-1)
	want := int(math.Round(freq / (testSampleRate / float64(testFFTSize))))
	if peak < want-1 || peak > want+1 {
		t.Errorf("peak bin = %d (%.1f Hz), want %d", peak, a.FrequencyForBin(peak), want)
	}
	if spec[peak] < 200 {
		t.Errorf("peak magnitude = %d, want a strong byte value", spec[peak])
	}
	if spec[len(spec)-1] > spec[peak]/2 {
		t.Errorf("top bin %d not well below peak %d", spec[len(spec)-1], spec[peak])
	}
}

func TestAnalyserSilenceAndReset(t *testing.T) {
	a := newTestAnalyser(t)
	a.Process(make([]float32, testFFTSize))
	spec := make([]byte, a.BinCount())
	a.ByteFrequencyData(spec)
	for i, v := range spec {
		if v != 0 {
			t.Fatalf("silence produced %d at bin %d", v, i)
		}
	}

	a.Process(utils.GenerateComplexWave(testFFTSize, testSampleRate))
	a.Reset()
	a.ByteFrequencyData(spec)
	for i, v := range spec {
		if v != 0 {
			t.Fatalf("reset left %d at bin %d", v, i)
		}
	}
}

func TestAnalyserShortBlock(t *testing.T) {
	a := newTestAnalyser(t)
	a.Process(utils.GenerateSineWave(testFFTSize/4, testSampleRate, 2000))
	spec := make([]byte, a.BinCount())
	a.ByteFrequencyData(spec)
	if utils.FindPeakBin(spec, 0, len(spec)-1) == 0 {
		t.Error("short block produced no spectrum")
	}
}

func TestFrequencyForBin(t *testing.T) {
	a := newTestAnalyser(t)
	if f := a.FrequencyForBin(testFFTSize / 2); math.Abs(f-testSampleRate/2) > 1e-9 {
		t.Errorf("FrequencyForBin(N/2) = %v, want Nyquist", f)
	}
	if f := a.FrequencyForBin(-1); f != 0 {
		t.Errorf("FrequencyForBin(-1) = %v, want 0", f)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"Blackman", Blackman, false},
		{"hanning", Hann, false},
		{"", Blackman, false},
		{"nuttall", Nuttall, false},
		{"triangle", Blackman, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestAnalyserHotPath(t *testing.T) {
	a := newTestAnalyser(t)
	input := utils.GenerateComplexWave(testFFTSize, testSampleRate)
	spec := make([]byte, a.BinCount())

	// Warm-up call so first-use costs are not counted.
	a.Process(input)
	allocs := testing.AllocsPerRun(100, func() {
		a.Process(input)
		a.ByteFrequencyData(spec)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Analyser hot path, got %.1f", allocs)
	}
}

func BenchmarkAnalyserProcess(b *testing.B) {
	a := newTestAnalyser(b)
	input := utils.GenerateComplexWave(testFFTSize, testSampleRate)

	b.ReportAllocs()

	for b.Loop() {
		a.Process(input)
	}
}
