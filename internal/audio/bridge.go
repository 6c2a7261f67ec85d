// SPDX-License-Identifier: MIT
/*
Package audio connects live audio to spectral analysis.

A Bridge owns at most one active source, either a decoded MediaStream or a
microphone Capture, and exposes the latest byte magnitude spectrum once per
frame through ReadSpectrum.

Thread Safety:
  - Producers (output pulls, the PortAudio callback, the headless pump) only
    write into a mutex-guarded SampleRing
  - Connect, SetFFTSize and Close serialize on connMu and do their slow work
    (device setup, output start, edge teardown) without holding mu
  - mu guards only what ReadSpectrum, SampleRate and FFTSize read, so the
    frame loop never waits on audio I/O
*/
package audio

import (
	"context"
	"fmt"
	"sync"

	"waveviz/internal/analysis"
	"waveviz/internal/log"
)

var logger = log.Named("audio")

// Bridge defaults.
const (
	DefaultFFTSize    = 2048
	DefaultSampleRate = 44100
)

// BridgeConfig configures a Bridge and the analyser it builds.
type BridgeConfig struct {
	FFTSize     int
	Window      analysis.WindowFunc
	MinDecibels float64
	MaxDecibels float64
	Smoothing   float64

	// Playback routes media streams to the output device. Without it they
	// are paced by wall-clock time.
	Playback bool

	// SampleRate is reported before any source is connected.
	SampleRate int

	Capture CaptureConfig
}

// Bridge is the signal bridge between one audio source and the analyser.
type Bridge struct {
	connMu sync.Mutex // held by connect, resize and close; never taken under mu
	edge   edge
	owned  *Capture // capture opened by ConnectMicrophone
	paInit bool
	closed bool

	// Written with both locks held, read with either.
	mu       sync.Mutex
	cfg      BridgeConfig
	actx     *Context // created on first connect
	analyser *analysis.Analyser
	ring     *SampleRing
	source   Source
	block    []float32 // analysis window scratch, FFTSize samples
	spectrum []byte    // FFTSize/2, returned by ReadSpectrum
}

// NewBridge returns a bridge with no source. Nothing touches audio hardware
// until the first connect.
func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = DefaultFFTSize
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	return &Bridge{
		cfg:      cfg,
		block:    make([]float32, cfg.FFTSize),
		spectrum: make([]byte, cfg.FFTSize/2),
	}
}

// ensureGraph lazily creates the context and analyser. The context adopts
// sampleRate; afterwards every source must match it. connMu must be held.
func (b *Bridge) ensureGraph(ctx context.Context, sampleRate int) error {
	if b.actx != nil {
		if sampleRate != b.actx.SampleRate() {
			return fmt.Errorf("%w: source runs at %d Hz, context at %d Hz",
				ErrUnsupportedMedia, sampleRate, b.actx.SampleRate())
		}
		return nil
	}
	actx, err := NewContext(ctx, sampleRate, b.cfg.Playback)
	if err != nil {
		return err
	}
	a, err := b.newAnalyser(sampleRate)
	if err != nil {
		return err
	}
	// Two analysis windows of history.
	ring := NewSampleRing(2 * b.cfg.FFTSize)

	b.mu.Lock()
	b.actx, b.analyser, b.ring = actx, a, ring
	b.mu.Unlock()
	logger.Debugf("context created at %d Hz (playback %v)", sampleRate, b.cfg.Playback)
	return nil
}

func (b *Bridge) newAnalyser(sampleRate int) (*analysis.Analyser, error) {
	return b.newAnalyserSized(sampleRate, b.cfg.FFTSize)
}

func (b *Bridge) newAnalyserSized(sampleRate, fftSize int) (*analysis.Analyser, error) {
	return analysis.NewAnalyser(analysis.AnalyserConfig{
		FFTSize:     fftSize,
		SampleRate:  float64(sampleRate),
		Window:      b.cfg.Window,
		MinDecibels: b.cfg.MinDecibels,
		MaxDecibels: b.cfg.MaxDecibels,
		Smoothing:   b.cfg.Smoothing,
	})
}

// ConnectSource makes src the active source. Connecting the active source
// again is a no-op; connecting a different one disconnects the previous edge
// first.
func (b *Bridge) ConnectSource(ctx context.Context, src Source) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.connectConn(ctx, src)
}

// connectConn does the work of ConnectSource. connMu must be held.
func (b *Bridge) connectConn(ctx context.Context, src Source) error {
	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrUnsupportedMedia)
	}
	if b.source != nil && b.source == src {
		return nil
	}

	switch src.(type) {
	case *Capture, MediaStream:
	default:
		return fmt.Errorf("%w: cannot analyse %T", ErrUnsupportedMedia, src)
	}
	if src.Channels() < 1 {
		return fmt.Errorf("%w: %q has no channels", ErrUnsupportedMedia, src.Name())
	}
	if src.SampleRate() <= 0 {
		return fmt.Errorf("%w: %q has sample rate %d", ErrUnsupportedMedia, src.Name(), src.SampleRate())
	}
	if err := b.ensureGraph(ctx, src.SampleRate()); err != nil {
		return err
	}

	b.disconnectConn()

	b.edge = b.attach(src, b.ring)
	b.mu.Lock()
	b.source = src
	b.mu.Unlock()
	logger.Infof("connected %q (%d ch, %d Hz)", src.Name(), src.Channels(), src.SampleRate())
	return nil
}

// attach starts feeding ring from src.
func (b *Bridge) attach(src Source, ring *SampleRing) edge {
	switch s := src.(type) {
	case *Capture:
		return connectCapture(b.actx, s, ring)
	case MediaStream:
		if b.actx.Playback() {
			return connectPlayback(b.actx, s, ring)
		}
		return connectPump(b.actx, s, ring)
	}
	return nil
}

// disconnectConn tears down the active edge. The spectrum goes silent
// before the teardown starts. Teardown errors are expected on
// already-closed nodes and only logged. connMu must be held.
func (b *Bridge) disconnectConn() {
	b.mu.Lock()
	src := b.source
	b.source = nil
	b.mu.Unlock()

	if b.edge != nil {
		if err := b.edge.disconnect(); err != nil {
			logger.Debugf("disconnect %q: %v", src.Name(), err)
		}
		b.edge = nil
	}
	if b.owned != nil && src == Source(b.owned) {
		b.closeOwned()
	}
	if b.ring != nil {
		b.ring.Clear()
	}
}

func (b *Bridge) closeOwned() {
	if err := b.owned.Close(); err != nil {
		logger.Debugf("close capture: %v", err)
	}
	b.owned = nil
}

// ConnectMicrophone opens the configured input device and connects it.
func (b *Bridge) ConnectMicrophone(ctx context.Context) (*Capture, error) {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !b.paInit {
		if err := Initialize(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
		}
		b.paInit = true
	}

	cfg := b.cfg.Capture
	if b.actx != nil {
		cfg.SampleRate = b.actx.SampleRate()
	}
	capture, err := OpenCapture(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.connectConn(ctx, capture); err != nil {
		capture.Close()
		return nil, err
	}
	if b.owned != nil {
		b.closeOwned()
	}
	b.owned = capture
	return capture, nil
}

// Resume starts sample flow. Without a connected source there is nothing to
// resume and it returns nil.
func (b *Bridge) Resume(ctx context.Context) error {
	b.mu.Lock()
	actx := b.actx
	b.mu.Unlock()
	if actx == nil {
		logger.Debugf("resume before any source, ignored")
		return nil
	}
	return actx.Resume(ctx)
}

// ReadSpectrum returns the latest byte magnitudes, FFTSize/2 long, all zero
// when nothing is connected or the source has ended. The slice is reused on
// the next call.
func (b *Bridge) ReadSpectrum() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.analyser == nil || b.source == nil {
		clear(b.spectrum)
		return b.spectrum
	}
	n := b.ring.Latest(b.block)
	if n == 0 {
		b.analyser.Reset()
		clear(b.spectrum)
		return b.spectrum
	}
	b.analyser.Process(b.block[:n])
	b.analyser.ByteFrequencyData(b.spectrum)
	return b.spectrum
}

// SetFFTSize changes the analysis resolution. n must be a power of two.
func (b *Bridge) SetFFTSize(n int) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	if n == b.cfg.FFTSize {
		return nil
	}
	var (
		a    *analysis.Analyser
		ring = b.ring
	)
	if b.actx != nil {
		var err error
		if a, err = b.newAnalyserSized(b.actx.SampleRate(), n); err != nil {
			return err
		}
		ring = b.resizeRing(2 * n)
	}
	block, spectrum := make([]float32, n), make([]byte, n/2)

	b.mu.Lock()
	b.cfg.FFTSize = n
	if a != nil {
		b.analyser = a
	}
	b.ring = ring
	b.block, b.spectrum = block, spectrum
	b.mu.Unlock()
	return nil
}

// resizeRing returns a ring of the new size. Edges hold the old ring, so
// the active source is reconnected onto the new one. connMu must be held.
func (b *Bridge) resizeRing(size int) *SampleRing {
	ring := NewSampleRing(size)
	if b.source == nil {
		return ring
	}
	if b.edge != nil {
		if err := b.edge.disconnect(); err != nil {
			logger.Debugf("disconnect %q: %v", b.source.Name(), err)
		}
	}
	b.edge = b.attach(b.source, ring)
	return ring
}

// SampleRate returns the context sample rate, or the configured rate before
// the first connect.
func (b *Bridge) SampleRate() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.actx != nil {
		return b.actx.SampleRate()
	}
	return b.cfg.SampleRate
}

// FFTSize returns the analysis resolution.
func (b *Bridge) FFTSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.FFTSize
}

// Source returns the active source, or nil.
func (b *Bridge) Source() Source {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// Running reports whether samples are flowing.
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.actx != nil && b.actx.Running()
}

// Close disconnects the active source, suspends the context and terminates
// PortAudio if the bridge initialized it. Closing twice is a no-op.
func (b *Bridge) Close() error {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.disconnectConn()
	if b.owned != nil {
		b.closeOwned()
	}
	if b.actx != nil {
		if err := b.actx.Suspend(); err != nil {
			logger.Debugf("suspend: %v", err)
		}
	}
	if b.paInit {
		b.paInit = false
		if err := Terminate(); err != nil {
			logger.Debugf("%v", err)
		}
	}
	b.mu.Lock()
	clear(b.spectrum)
	b.mu.Unlock()
	return nil
}
