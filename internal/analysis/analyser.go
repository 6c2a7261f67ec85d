// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"waveviz/internal/log"
	"waveviz/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Analyser defaults. The decibel range matches the usual browser analyser
// node so byte spectra look the same across hosts.
const (
	DefaultMinDecibels = -90.0
	DefaultMaxDecibels = -10.0
	DefaultSmoothing   = 0.0
	DefaultWindow      = Blackman
)

var logger = log.Named("analysis")

// AnalyserConfig configures an Analyser.
type AnalyserConfig struct {
	FFTSize     int
	SampleRate  float64
	Window      WindowFunc
	MinDecibels float64
	MaxDecibels float64
	// Smoothing is the time constant blending each frame with the previous
	// magnitude, in [0, 1). Zero disables it.
	Smoothing float64
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	input     []float64    // Windowed input signal.
	fftOutput []complex128 // FFT complex results, N/2+1 values.
	magnitude []float64    // Smoothed linear magnitudes, N/2 values.
	bytes     []byte       // Magnitudes mapped onto the decibel range.
	window    []float64    // Pre-calculated window coefficients.
}

// Analyser turns a block of time-domain samples into a byte magnitude
// spectrum: window, real FFT, |X|/N, temporal smoothing, decibels, then a
// linear map of [MinDecibels, MaxDecibels] onto 0-255.
//
// An Analyser is owned by a single goroutine. Process and ByteFrequencyData
// do not allocate.
type Analyser struct {
	fftCalculator *fourier.FFT
	cfg           AnalyserConfig
	workspace     fftWorkspace
	rangeScale    float64 // 255 / (max - min)
}

// Compile-time checks for interface implementations.
var _ SampleProcessor = (*Analyser)(nil)
var _ SpectrumProvider = (*Analyser)(nil)

// NewAnalyser validates cfg and preallocates every buffer the analyser will
// touch afterwards.
func NewAnalyser(cfg AnalyserConfig) (*Analyser, error) {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", cfg.FFTSize)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.MinDecibels == 0 && cfg.MaxDecibels == 0 {
		cfg.MinDecibels, cfg.MaxDecibels = DefaultMinDecibels, DefaultMaxDecibels
	}
	if cfg.MaxDecibels <= cfg.MinDecibels {
		return nil, fmt.Errorf("decibel range must be increasing, got [%.1f, %.1f]", cfg.MinDecibels, cfg.MaxDecibels)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1), got %f", cfg.Smoothing)
	}

	windowCoeffs := make([]float64, cfg.FFTSize)
	applyWindow(windowCoeffs, cfg.Window)
	bins := cfg.FFTSize / 2

	logger.Debugf("analyser: size %d, sample rate %.1f Hz, window %v, dB [%.0f, %.0f]",
		cfg.FFTSize, cfg.SampleRate, cfg.Window, cfg.MinDecibels, cfg.MaxDecibels)

	return &Analyser{
		fftCalculator: fourier.NewFFT(cfg.FFTSize),
		cfg:           cfg,
		rangeScale:    255 / (cfg.MaxDecibels - cfg.MinDecibels),
		workspace: fftWorkspace{
			input:     make([]float64, cfg.FFTSize),
			fftOutput: make([]complex128, bins+1),
			magnitude: make([]float64, bins),
			bytes:     make([]byte, bins),
			window:    windowCoeffs,
		},
	}, nil
}

// Process analyses the most recent FFTSize samples of samples. Shorter
// blocks are zero padded at the front so the newest sample stays last.
func (a *Analyser) Process(samples []float32) {
	ws := &a.workspace
	n := a.cfg.FFTSize
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	pad := n - len(samples)
	for i := range pad {
		ws.input[i] = 0
	}
	for i, s := range samples {
		ws.input[pad+i] = float64(s) * ws.window[pad+i]
	}

	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	tau := a.cfg.Smoothing
	norm := 1 / float64(n)
	for i := range ws.magnitude {
		m := cmplx.Abs(ws.fftOutput[i]) * norm
		ws.magnitude[i] = tau*ws.magnitude[i] + (1-tau)*m
		ws.bytes[i] = a.toByte(ws.magnitude[i])
	}
}

// Reset clears the smoothing history and the byte spectrum.
func (a *Analyser) Reset() {
	clear(a.workspace.magnitude)
	clear(a.workspace.bytes)
}

func (a *Analyser) toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := math.Floor((db - a.cfg.MinDecibels) * a.rangeScale)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return byte(v)
}

// ByteFrequencyData copies the latest byte spectrum into dst.
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	return copy(dst, a.workspace.bytes)
}

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (a *Analyser) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.workspace.fftOutput) {
		return 0.0
	}
	return float64(bin) * (a.cfg.SampleRate / float64(a.cfg.FFTSize))
}

// BinCount returns the number of magnitude bins, FFTSize/2.
func (a *Analyser) BinCount() int { return a.cfg.FFTSize / 2 }

// FFTSize returns the configured FFT size (number of points).
func (a *Analyser) FFTSize() int { return a.cfg.FFTSize }

// SampleRate returns the configured sample rate (Hz).
func (a *Analyser) SampleRate() float64 { return a.cfg.SampleRate }

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Blackman) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman", "":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window function.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// gonum windows scale the slice in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		logger.Warnf("unknown window function type %d, defaulting to blackman", windowType)
		window.Blackman(coeffs)
	}
}
